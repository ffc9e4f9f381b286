package model

import "time"

// Ciphertext is an opaque encrypted integer. Context tags the encryption
// context (scheme parameters and public key) that produced it; the arithmetic
// adapter rejects operands whose tag does not match its own.
type Ciphertext struct {
	Context string `json:"context"`
	Data    []byte `json:"data"`
}

// EncryptedActivity is one immutable submission of encrypted forum counters.
// Records are append-only and never deleted (audit trail).
type EncryptedActivity struct {
	ActivityID  uint64      `json:"activityId"`
	TraceID     string      `json:"traceId"`
	UserID      uint64      `json:"userId"`
	Posts       *Ciphertext `json:"posts"`
	Replies     *Ciphertext `json:"replies"`
	Likes       *Ciphertext `json:"likes"`
	SubmittedAt time.Time   `json:"submittedAt"`
}

// ReputationState holds a user's current encrypted score and mint flag.
// One row per user; once MintedBadge is true the score is frozen.
type ReputationState struct {
	UserID         uint64      `json:"userId"`
	EncryptedScore *Ciphertext `json:"encryptedScore"`
	MintedBadge    bool        `json:"mintedBadge"`
	UpdatedAt      time.Time   `json:"updatedAt"`
}

// DecryptionRequest correlates an outstanding oracle decryption with a user.
// A request id maps to at most one user and is consumed exactly once.
type DecryptionRequest struct {
	RequestID   uint64    `json:"requestId"`
	UserID      uint64    `json:"userId"`
	RequestedAt time.Time `json:"requestedAt"`
}
