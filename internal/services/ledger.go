// Package services implements the ledger's use cases: encrypted activity
// ingestion, homomorphic score aggregation, the decryption request/callback
// protocol, and the badge issuance gate.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/veilrep/repledger/internal/he"
	"github.com/veilrep/repledger/internal/model"
	"github.com/veilrep/repledger/internal/store"
)

// Reputation weights, applied per activity record entirely in ciphertext
// space: points = posts + replies*2 + likes*3.
const (
	weightPosts   = 1
	weightReplies = 2
	weightLikes   = 3
)

// LedgerService orchestrates the activity store and the reputation
// aggregator.
type LedgerService struct {
	store store.Store
	arith he.Arithmetic
	locks *UserLocks
	log   zerolog.Logger
}

func NewLedgerService(s store.Store, arith he.Arithmetic, locks *UserLocks, log zerolog.Logger) *LedgerService {
	return &LedgerService{store: s, arith: arith, locks: locks, log: log}
}

// SubmitActivity appends one encrypted activity record and returns it with
// its assigned id. Counters from a foreign encryption context are rejected
// up front so the audit trail never holds unusable ciphertexts.
func (s *LedgerService) SubmitActivity(ctx context.Context, userID uint64, posts, replies, likes *model.Ciphertext) (*model.EncryptedActivity, error) {
	for _, ct := range []*model.Ciphertext{posts, replies, likes} {
		if ct == nil || ct.Context != s.arith.Context() {
			return nil, fmt.Errorf("submission for user %d: %w", userID, model.ErrCiphertextFormat)
		}
	}
	rec, err := s.store.Activities().Append(ctx, &model.EncryptedActivity{
		UserID:  userID,
		Posts:   posts,
		Replies: replies,
		Likes:   likes,
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().Uint64("activity_id", rec.ActivityID).Uint64("user_id", userID).Str("trace_id", rec.TraceID).Msg("activity submitted")
	return rec, nil
}

// GetActivity returns a stored record; ciphertexts stay opaque.
func (s *LedgerService) GetActivity(ctx context.Context, activityID uint64) (*model.EncryptedActivity, error) {
	return s.store.Activities().Get(ctx, activityID)
}

// ListActivities returns a user's audit trail ordered by activity id.
func (s *LedgerService) ListActivities(ctx context.Context, userID uint64) ([]*model.EncryptedActivity, error) {
	return s.store.Activities().ListByUser(ctx, userID)
}

// ComputeOne recomputes the weighted score for a single record and replaces
// the stored score for that record's user (last-write-wins).
func (s *LedgerService) ComputeOne(ctx context.Context, activityID uint64) (*model.Ciphertext, error) {
	rec, err := s.store.Activities().Get(ctx, activityID)
	if err != nil {
		return nil, err
	}
	score, err := s.weighted(rec)
	if err != nil {
		return nil, err
	}
	if err := s.writeScore(ctx, rec.UserID, score); err != nil {
		return nil, err
	}
	return score, nil
}

// AggregateMany folds the weighted scores of the given records into a single
// encrypted score for the user, starting from an encrypted zero. Records
// belonging to other users are skipped silently: batches may mix users.
// Returns model.ErrNotFound before any state write if an id was never
// assigned.
func (s *LedgerService) AggregateMany(ctx context.Context, userID uint64, activityIDs []uint64) (*model.Ciphertext, error) {
	total, err := s.arith.EncryptConstant(0)
	if err != nil {
		return nil, err
	}
	for _, id := range activityIDs {
		rec, err := s.store.Activities().Get(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("activity %d: %w", id, err)
		}
		if rec.UserID != userID {
			continue
		}
		points, err := s.weighted(rec)
		if err != nil {
			return nil, err
		}
		if total, err = s.arith.Add(total, points); err != nil {
			return nil, err
		}
	}
	if err := s.writeScore(ctx, userID, total); err != nil {
		return nil, err
	}
	return total, nil
}

// GetEncryptedScore exposes the current score for dashboards. Never returns
// plaintext.
func (s *LedgerService) GetEncryptedScore(ctx context.Context, userID uint64) (*model.Ciphertext, error) {
	st, err := s.store.Reputations().Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	return st.EncryptedScore, nil
}

// GetReputation returns the full state row, including the mint flag.
func (s *LedgerService) GetReputation(ctx context.Context, userID uint64) (*model.ReputationState, error) {
	return s.store.Reputations().Get(ctx, userID)
}

// weighted computes posts + replies*2 + likes*3 via the arithmetic adapter.
// No operand is ever decrypted; the weights are plaintext scalars.
func (s *LedgerService) weighted(rec *model.EncryptedActivity) (*model.Ciphertext, error) {
	posts, err := s.arith.ScalarMul(rec.Posts, weightPosts)
	if err != nil {
		return nil, err
	}
	replies, err := s.arith.ScalarMul(rec.Replies, weightReplies)
	if err != nil {
		return nil, err
	}
	likes, err := s.arith.ScalarMul(rec.Likes, weightLikes)
	if err != nil {
		return nil, err
	}
	sum, err := s.arith.Add(posts, replies)
	if err != nil {
		return nil, err
	}
	return s.arith.Add(sum, likes)
}

// writeScore stores the new encrypted score under the user's lock. A state
// with an issued badge is frozen: aggregation is rejected rather than
// overwriting post-mint history.
func (s *LedgerService) writeScore(ctx context.Context, userID uint64, score *model.Ciphertext) error {
	unlock := s.locks.lock(userID)
	defer unlock()

	st, err := s.store.Reputations().Get(ctx, userID)
	switch {
	case errors.Is(err, model.ErrNotFound):
		st = &model.ReputationState{UserID: userID}
	case err != nil:
		return err
	case st.MintedBadge:
		return fmt.Errorf("user %d: %w", userID, model.ErrScoreFrozen)
	}
	st.EncryptedScore = score
	st.UpdatedAt = time.Now().UTC()
	return s.store.Reputations().Put(ctx, st)
}
