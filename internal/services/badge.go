package services

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/veilrep/repledger/internal/mint"
	"github.com/veilrep/repledger/internal/model"
)

// BadgeGate guards the external mint capability. It only ever sees decrypted,
// proof-validated scores; one mint per user across the lifetime of the
// ledger, enforced by the MintedBadge flag.
type BadgeGate struct {
	minter mint.Minter
	log    zerolog.Logger
}

func NewBadgeGate(m mint.Minter, log zerolog.Logger) *BadgeGate {
	return &BadgeGate{minter: m, log: log}
}

// TryIssue mints for the state's user unless a badge was already issued.
// Returns true when a mint call was made. On a minter failure the state is
// left untouched so the issuance can be retried. Callers must hold the
// user's lock and persist the mutated state.
func (g *BadgeGate) TryIssue(ctx context.Context, st *model.ReputationState, score uint32) (bool, error) {
	if st.MintedBadge {
		g.log.Info().Uint64("user_id", st.UserID).Msg("badge already issued, skipping mint")
		return false, nil
	}
	if err := g.minter.Mint(ctx, st.UserID, score); err != nil {
		return false, err
	}
	st.MintedBadge = true
	g.log.Info().Uint64("user_id", st.UserID).Uint32("score", score).Msg("badge minted")
	return true, nil
}
