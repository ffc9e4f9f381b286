package sqlite

import "database/sql"

// AUTOINCREMENT keeps activity ids strictly increasing and never reused,
// even across deletes or rollbacks.
const schema = `
CREATE TABLE IF NOT EXISTS activities (
    activity_id  INTEGER PRIMARY KEY AUTOINCREMENT,
    trace_id     TEXT NOT NULL,
    user_id      INTEGER NOT NULL,
    posts        BLOB NOT NULL,
    replies      BLOB NOT NULL,
    likes        BLOB NOT NULL,
    submitted_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_activities_user ON activities(user_id);

CREATE TABLE IF NOT EXISTS reputations (
    user_id         INTEGER PRIMARY KEY,
    encrypted_score BLOB NOT NULL,
    minted_badge    INTEGER NOT NULL DEFAULT 0,
    updated_at      TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS decryption_requests (
    request_id   INTEGER PRIMARY KEY,
    user_id      INTEGER NOT NULL,
    requested_at TIMESTAMP NOT NULL
);
`

// Migrate applies the ledger schema.
func Migrate(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
