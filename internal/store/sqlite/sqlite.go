// Package sqlite is the embedded SQL store driver. Ciphertext envelopes are
// stored as JSON blobs; ids and flags stay relational so the mint invariant
// can be checked in queries.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/veilrep/repledger/internal/model"
	"github.com/veilrep/repledger/internal/store"
)

// New wraps an open database in the store interface and applies the schema.
func New(db *sql.DB) (store.Store, error) {
	if err := Migrate(db); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &sqlStore{db: db}, nil
}

type sqlStore struct{ db *sql.DB }

func (s *sqlStore) Activities() store.Activities   { return &activities{db: s.db} }
func (s *sqlStore) Reputations() store.Reputations { return &reputations{db: s.db} }
func (s *sqlStore) Requests() store.Requests       { return &requests{db: s.db} }

func (s *sqlStore) HealthPing(ctx context.Context) error { return s.db.PingContext(ctx) }

func encodeCiphertext(ct *model.Ciphertext) ([]byte, error) { return json.Marshal(ct) }

func decodeCiphertext(raw []byte) (*model.Ciphertext, error) {
	var ct model.Ciphertext
	if err := json.Unmarshal(raw, &ct); err != nil {
		return nil, err
	}
	return &ct, nil
}

// --- Activities ---

type activities struct{ db *sql.DB }

func (a *activities) Append(ctx context.Context, in *model.EncryptedActivity) (*model.EncryptedActivity, error) {
	posts, err := encodeCiphertext(in.Posts)
	if err != nil {
		return nil, err
	}
	replies, err := encodeCiphertext(in.Replies)
	if err != nil {
		return nil, err
	}
	likes, err := encodeCiphertext(in.Likes)
	if err != nil {
		return nil, err
	}
	out := *in
	out.TraceID = uuid.New().String()
	out.SubmittedAt = time.Now().UTC()
	res, err := a.db.ExecContext(ctx, `
        INSERT INTO activities (trace_id, user_id, posts, replies, likes, submitted_at)
        VALUES (?,?,?,?,?,?)
    `, out.TraceID, out.UserID, posts, replies, likes, out.SubmittedAt)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	out.ActivityID = uint64(id)
	return &out, nil
}

func (a *activities) Get(ctx context.Context, activityID uint64) (*model.EncryptedActivity, error) {
	row := a.db.QueryRowContext(ctx, `
        SELECT activity_id, trace_id, user_id, posts, replies, likes, submitted_at
        FROM activities WHERE activity_id=?
    `, activityID)
	return scanActivity(row)
}

func (a *activities) ListByUser(ctx context.Context, userID uint64) ([]*model.EncryptedActivity, error) {
	rows, err := a.db.QueryContext(ctx, `
        SELECT activity_id, trace_id, user_id, posts, replies, likes, submitted_at
        FROM activities WHERE user_id=? ORDER BY activity_id ASC
    `, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.EncryptedActivity
	for rows.Next() {
		rec, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanActivity(row rowScanner) (*model.EncryptedActivity, error) {
	var rec model.EncryptedActivity
	var posts, replies, likes []byte
	err := row.Scan(&rec.ActivityID, &rec.TraceID, &rec.UserID, &posts, &replies, &likes, &rec.SubmittedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if rec.Posts, err = decodeCiphertext(posts); err != nil {
		return nil, err
	}
	if rec.Replies, err = decodeCiphertext(replies); err != nil {
		return nil, err
	}
	if rec.Likes, err = decodeCiphertext(likes); err != nil {
		return nil, err
	}
	return &rec, nil
}

// --- Reputations ---

type reputations struct{ db *sql.DB }

func (r *reputations) Get(ctx context.Context, userID uint64) (*model.ReputationState, error) {
	var st model.ReputationState
	var score []byte
	var minted int
	row := r.db.QueryRowContext(ctx, `
        SELECT user_id, encrypted_score, minted_badge, updated_at
        FROM reputations WHERE user_id=?
    `, userID)
	err := row.Scan(&st.UserID, &score, &minted, &st.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if st.EncryptedScore, err = decodeCiphertext(score); err != nil {
		return nil, err
	}
	st.MintedBadge = minted != 0
	return &st, nil
}

func (r *reputations) Put(ctx context.Context, s *model.ReputationState) error {
	score, err := encodeCiphertext(s.EncryptedScore)
	if err != nil {
		return err
	}
	minted := 0
	if s.MintedBadge {
		minted = 1
	}
	_, err = r.db.ExecContext(ctx, `
        INSERT INTO reputations (user_id, encrypted_score, minted_badge, updated_at)
        VALUES (?,?,?,?)
        ON CONFLICT(user_id) DO UPDATE SET
            encrypted_score=excluded.encrypted_score,
            minted_badge=excluded.minted_badge,
            updated_at=excluded.updated_at
    `, s.UserID, score, minted, time.Now().UTC())
	return err
}

// --- Requests ---

type requests struct{ db *sql.DB }

func (q *requests) Create(ctx context.Context, in *model.DecryptionRequest) error {
	_, err := q.db.ExecContext(ctx, `
        INSERT INTO decryption_requests (request_id, user_id, requested_at)
        VALUES (?,?,?)
    `, in.RequestID, in.UserID, in.RequestedAt)
	return err
}

func (q *requests) Get(ctx context.Context, requestID uint64) (*model.DecryptionRequest, error) {
	var req model.DecryptionRequest
	row := q.db.QueryRowContext(ctx, `
        SELECT request_id, user_id, requested_at
        FROM decryption_requests WHERE request_id=?
    `, requestID)
	err := row.Scan(&req.RequestID, &req.UserID, &req.RequestedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (q *requests) Resolve(ctx context.Context, requestID uint64) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM decryption_requests WHERE request_id=?`, requestID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (q *requests) DeleteExpired(ctx context.Context, before time.Time) (int, error) {
	res, err := q.db.ExecContext(ctx, `DELETE FROM decryption_requests WHERE requested_at < ?`, before)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}
