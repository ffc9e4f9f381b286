package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/veilrep/repledger/internal/model"
	"github.com/veilrep/repledger/internal/oracle"
	"github.com/veilrep/repledger/internal/store"
)

// DecryptionService runs the request/callback protocol against the external
// decryption oracle. Per-user states move NoRequest → Pending → Resolved;
// there is no cancellation and no Resolved → Pending transition.
type DecryptionService struct {
	store    store.Store
	oracle   oracle.Client
	verifier oracle.Verifier
	gate     *BadgeGate
	locks    *UserLocks

	// requestTTL of zero disables expiry (the minimal protocol). When set,
	// stale requests are pruned by the janitor and fail callbacks closed.
	requestTTL time.Duration
	log        zerolog.Logger
}

func NewDecryptionService(s store.Store, oc oracle.Client, v oracle.Verifier, gate *BadgeGate, locks *UserLocks, requestTTL time.Duration, log zerolog.Logger) *DecryptionService {
	return &DecryptionService{
		store:      s,
		oracle:     oc,
		verifier:   v,
		gate:       gate,
		locks:      locks,
		requestTTL: requestTTL,
		log:        log,
	}
}

// RequestDecryption captures the user's current encrypted score, submits it
// to the oracle, and records the pending request. Repeated calls before a
// callback each produce an independent request id bound to the same user.
func (d *DecryptionService) RequestDecryption(ctx context.Context, userID uint64) (uint64, error) {
	unlock := d.locks.lock(userID)
	defer unlock()

	st, err := d.store.Reputations().Get(ctx, userID)
	if err != nil {
		return 0, err
	}
	if st.MintedBadge {
		return 0, fmt.Errorf("user %d: %w", userID, model.ErrAlreadyMinted)
	}

	// Fire-and-forget: the plaintext arrives later via HandleCallback.
	requestID, err := d.oracle.SubmitForDecryption(ctx, st.EncryptedScore)
	if err != nil {
		return 0, err
	}
	req := &model.DecryptionRequest{
		RequestID:   requestID,
		UserID:      userID,
		RequestedAt: time.Now().UTC(),
	}
	if err := d.store.Requests().Create(ctx, req); err != nil {
		return 0, err
	}
	d.log.Info().Uint64("request_id", requestID).Uint64("user_id", userID).Msg("decryption requested")
	return requestID, nil
}

// HandleCallback validates an oracle response and drives badge issuance.
// Returns whether a badge was issued by this callback. Unknown or resolved
// request ids fail closed with ErrUnknownRequest; a bad proof leaves the
// request pending so the oracle can retry; a mint transport failure leaves
// every table in its pre-call state.
func (d *DecryptionService) HandleCallback(ctx context.Context, requestID uint64, cleartext uint32, proof []byte) (bool, error) {
	req, err := d.lookupPending(ctx, requestID)
	if err != nil {
		return false, err
	}
	if err := d.verifier.Verify(requestID, cleartext, proof); err != nil {
		d.log.Warn().Uint64("request_id", requestID).Msg("callback proof rejected")
		return false, err
	}

	unlock := d.locks.lock(req.UserID)
	defer unlock()

	// Re-check under the lock: a concurrent callback may have resolved it.
	if _, err := d.lookupPending(ctx, requestID); err != nil {
		return false, err
	}
	st, err := d.store.Reputations().Get(ctx, req.UserID)
	if err != nil {
		return false, err
	}

	issued, err := d.gate.TryIssue(ctx, st, cleartext)
	if err != nil {
		return false, err
	}
	if issued {
		st.UpdatedAt = time.Now().UTC()
		if err := d.store.Reputations().Put(ctx, st); err != nil {
			return false, err
		}
	}
	// Resolved either way: a race between two outstanding requests still
	// consumes both, with at most one mint.
	if err := d.store.Requests().Resolve(ctx, requestID); err != nil && !errors.Is(err, model.ErrNotFound) {
		return issued, err
	}
	d.log.Info().Uint64("request_id", requestID).Uint64("user_id", req.UserID).Bool("issued", issued).Msg("decryption callback resolved")
	return issued, nil
}

// lookupPending maps store misses and expired requests to ErrUnknownRequest.
func (d *DecryptionService) lookupPending(ctx context.Context, requestID uint64) (*model.DecryptionRequest, error) {
	req, err := d.store.Requests().Get(ctx, requestID)
	if errors.Is(err, model.ErrNotFound) {
		return nil, fmt.Errorf("request %d: %w", requestID, model.ErrUnknownRequest)
	}
	if err != nil {
		return nil, err
	}
	if d.requestTTL > 0 && time.Since(req.RequestedAt) > d.requestTTL {
		return nil, fmt.Errorf("request %d expired: %w", requestID, model.ErrUnknownRequest)
	}
	return req, nil
}

// RunJanitor prunes expired requests until ctx is canceled. A no-op when no
// TTL is configured.
func (d *DecryptionService) RunJanitor(ctx context.Context, interval time.Duration) error {
	if d.requestTTL <= 0 {
		return nil
	}
	if interval <= 0 {
		interval = time.Minute
	}
	d.log.Info().Dur("ttl", d.requestTTL).Dur("interval", interval).Msg("request janitor starting")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.log.Info().Msg("request janitor stopping")
			return ctx.Err()
		case <-ticker.C:
			cutoff := time.Now().UTC().Add(-d.requestTTL)
			n, err := d.store.Requests().DeleteExpired(ctx, cutoff)
			if err != nil {
				d.log.Error().Err(err).Msg("janitor prune failed")
				continue
			}
			if n > 0 {
				d.log.Info().Int("pruned", n).Msg("expired decryption requests pruned")
			}
		}
	}
}
