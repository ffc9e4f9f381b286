// Package store defines the persistence interface for the ledger's three
// tables and its monotonic activity counter. Implementations live under
// internal/store/<driver>/ (memory, sqlite).
package store

import (
	"context"
	"time"

	"github.com/veilrep/repledger/internal/model"
)

// Store exposes the keyed tables required by the ledger services.
type Store interface {
	Activities() Activities
	Reputations() Reputations
	Requests() Requests

	// HealthPing verifies the backing store is reachable.
	HealthPing(ctx context.Context) error
}

// Activities is the append-only encrypted activity table. There is no delete:
// submissions form the audit trail.
type Activities interface {
	// Append assigns the next activity id (starting at 1, never reused or
	// decremented), stamps SubmittedAt and a trace id, and stores the record.
	Append(ctx context.Context, a *model.EncryptedActivity) (*model.EncryptedActivity, error)
	// Get returns model.ErrNotFound for ids that were never assigned.
	Get(ctx context.Context, activityID uint64) (*model.EncryptedActivity, error)
	// ListByUser returns a user's records ordered by activity id.
	ListByUser(ctx context.Context, userID uint64) ([]*model.EncryptedActivity, error)
}

// Reputations holds one state row per user. Callers serialize writes per user;
// the store only guards its own structures.
type Reputations interface {
	Get(ctx context.Context, userID uint64) (*model.ReputationState, error)
	// Put upserts the full row.
	Put(ctx context.Context, s *model.ReputationState) error
}

// Requests is the outstanding decryption request table. Resolve consumes a
// request exactly once: a second Resolve for the same id reports
// model.ErrNotFound.
type Requests interface {
	Create(ctx context.Context, r *model.DecryptionRequest) error
	Get(ctx context.Context, requestID uint64) (*model.DecryptionRequest, error)
	Resolve(ctx context.Context, requestID uint64) error
	// DeleteExpired removes pending requests issued before the cutoff and
	// returns how many were pruned.
	DeleteExpired(ctx context.Context, before time.Time) (int, error)
}
