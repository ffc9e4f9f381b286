package services

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/binary"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veilrep/repledger/internal/mint"
	"github.com/veilrep/repledger/internal/model"
	"github.com/veilrep/repledger/internal/oracle"
	"github.com/veilrep/repledger/internal/store"
	"github.com/veilrep/repledger/internal/store/memory"
)

// --- Fakes ---

// fakeArith runs the adapter contract over plaintext uint32 payloads so
// protocol tests stay fast; homomorphic correctness is covered by the real
// adapter's tests.
type fakeArith struct{}

const fakeCtx = "fake-context"

func fakeEnc(v uint32) *model.Ciphertext {
	data := make([]byte, 4)
	binary.BigEndian.PutUint32(data, v)
	return &model.Ciphertext{Context: fakeCtx, Data: data}
}

func fakeDec(ct *model.Ciphertext) uint32 { return binary.BigEndian.Uint32(ct.Data) }

func (fakeArith) Add(a, b *model.Ciphertext) (*model.Ciphertext, error) {
	return fakeEnc(fakeDec(a) + fakeDec(b)), nil
}
func (fakeArith) ScalarMul(a *model.Ciphertext, k uint32) (*model.Ciphertext, error) {
	return fakeEnc(fakeDec(a) * k), nil
}
func (fakeArith) EncryptConstant(k uint32) (*model.Ciphertext, error) { return fakeEnc(k), nil }
func (fakeArith) Context() string                                     { return fakeCtx }

// fakeOracle assigns sequential request ids and records submissions.
type fakeOracle struct {
	mu        sync.Mutex
	nextID    uint64
	submitted []*model.Ciphertext
}

func (f *fakeOracle) SubmitForDecryption(ctx context.Context, score *model.Ciphertext) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.submitted = append(f.submitted, score)
	return f.nextID, nil
}

func (f *fakeOracle) submissions() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.submitted)
}

// --- Harness ---

type protocolRig struct {
	ledger   *LedgerService
	decrypt  *DecryptionService
	oracle   *fakeOracle
	minter   *mint.Recorder
	signKey  ed25519.PrivateKey
	rawStore store.Store
}

func newRig(t *testing.T, ttl time.Duration) *protocolRig {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	verifier, err := oracle.NewEd25519Verifier(pub)
	require.NoError(t, err)

	st := memory.New()
	locks := NewUserLocks()
	oc := &fakeOracle{}
	minter := mint.NewRecorder()
	gate := NewBadgeGate(minter, zerolog.Nop())

	return &protocolRig{
		ledger:   NewLedgerService(st, fakeArith{}, locks, zerolog.Nop()),
		decrypt:  NewDecryptionService(st, oc, verifier, gate, locks, ttl, zerolog.Nop()),
		oracle:   oc,
		minter:   minter,
		signKey:  priv,
		rawStore: st,
	}
}

// seedScore submits one activity for the user and aggregates it so a
// reputation state exists.
func (r *protocolRig) seedScore(t *testing.T, userID uint64, posts, replies, likes uint32) {
	t.Helper()
	ctx := context.Background()
	rec, err := r.ledger.SubmitActivity(ctx, userID, fakeEnc(posts), fakeEnc(replies), fakeEnc(likes))
	require.NoError(t, err)
	_, err = r.ledger.ComputeOne(ctx, rec.ActivityID)
	require.NoError(t, err)
}

func (r *protocolRig) proof(requestID uint64, cleartext uint32) []byte {
	return oracle.Sign(r.signKey, requestID, cleartext)
}

// --- Tests ---

func TestRequestDecryptionWithoutState(t *testing.T) {
	rig := newRig(t, 0)
	_, err := rig.decrypt.RequestDecryption(context.Background(), 7)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestCallbackMintsExactlyOnce(t *testing.T) {
	rig := newRig(t, 0)
	ctx := context.Background()
	rig.seedScore(t, 7, 2, 1, 0) // score 4

	reqID, err := rig.decrypt.RequestDecryption(ctx, 7)
	require.NoError(t, err)

	issued, err := rig.decrypt.HandleCallback(ctx, reqID, 4, rig.proof(reqID, 4))
	require.NoError(t, err)
	assert.True(t, issued)
	require.Len(t, rig.minter.Calls(), 1)
	assert.Equal(t, mint.Call{Owner: 7, Score: 4}, rig.minter.Calls()[0])

	st, err := rig.rawStore.Reputations().Get(ctx, 7)
	require.NoError(t, err)
	assert.True(t, st.MintedBadge)

	// A second callback for the resolved request fails closed and does not
	// re-mint.
	_, err = rig.decrypt.HandleCallback(ctx, reqID, 4, rig.proof(reqID, 4))
	assert.ErrorIs(t, err, model.ErrUnknownRequest)
	assert.Len(t, rig.minter.Calls(), 1)
}

func TestTwoOutstandingRequestsOneMint(t *testing.T) {
	rig := newRig(t, 0)
	ctx := context.Background()
	rig.seedScore(t, 7, 2, 1, 0)

	first, err := rig.decrypt.RequestDecryption(ctx, 7)
	require.NoError(t, err)
	second, err := rig.decrypt.RequestDecryption(ctx, 7)
	require.NoError(t, err)
	require.NotEqual(t, first, second)

	issued, err := rig.decrypt.HandleCallback(ctx, first, 4, rig.proof(first, 4))
	require.NoError(t, err)
	assert.True(t, issued)

	// The second request still resolves, but skips minting.
	issued, err = rig.decrypt.HandleCallback(ctx, second, 4, rig.proof(second, 4))
	require.NoError(t, err)
	assert.False(t, issued)
	assert.Len(t, rig.minter.Calls(), 1)

	// Both requests are consumed.
	_, err = rig.decrypt.HandleCallback(ctx, second, 4, rig.proof(second, 4))
	assert.ErrorIs(t, err, model.ErrUnknownRequest)
}

func TestCallbackUnknownRequest(t *testing.T) {
	rig := newRig(t, 0)
	ctx := context.Background()
	rig.seedScore(t, 7, 2, 1, 0)

	_, err := rig.decrypt.HandleCallback(ctx, 999, 4, rig.proof(999, 4))
	assert.ErrorIs(t, err, model.ErrUnknownRequest)

	st, err := rig.rawStore.Reputations().Get(ctx, 7)
	require.NoError(t, err)
	assert.False(t, st.MintedBadge)
	assert.Empty(t, rig.minter.Calls())
}

func TestCallbackInvalidProofLeavesRequestPending(t *testing.T) {
	rig := newRig(t, 0)
	ctx := context.Background()
	rig.seedScore(t, 7, 2, 1, 0)

	reqID, err := rig.decrypt.RequestDecryption(ctx, 7)
	require.NoError(t, err)

	// Tampered cleartext under a proof for the real value.
	_, err = rig.decrypt.HandleCallback(ctx, reqID, 400, rig.proof(reqID, 4))
	assert.ErrorIs(t, err, model.ErrInvalidProof)
	assert.Empty(t, rig.minter.Calls())

	// The request is still resolvable by a legitimate retry.
	issued, err := rig.decrypt.HandleCallback(ctx, reqID, 4, rig.proof(reqID, 4))
	require.NoError(t, err)
	assert.True(t, issued)
}

func TestRequestDecryptionAfterMint(t *testing.T) {
	rig := newRig(t, 0)
	ctx := context.Background()
	rig.seedScore(t, 7, 2, 1, 0)

	reqID, err := rig.decrypt.RequestDecryption(ctx, 7)
	require.NoError(t, err)
	_, err = rig.decrypt.HandleCallback(ctx, reqID, 4, rig.proof(reqID, 4))
	require.NoError(t, err)

	before := rig.oracle.submissions()
	_, err = rig.decrypt.RequestDecryption(ctx, 7)
	assert.ErrorIs(t, err, model.ErrAlreadyMinted)
	// No new request reached the oracle.
	assert.Equal(t, before, rig.oracle.submissions())
}

func TestMintFailureLeavesRequestPending(t *testing.T) {
	rig := newRig(t, 0)
	ctx := context.Background()
	rig.seedScore(t, 7, 2, 1, 0)

	reqID, err := rig.decrypt.RequestDecryption(ctx, 7)
	require.NoError(t, err)

	rig.minter.Err = context.DeadlineExceeded
	_, err = rig.decrypt.HandleCallback(ctx, reqID, 4, rig.proof(reqID, 4))
	require.Error(t, err)

	st, err := rig.rawStore.Reputations().Get(ctx, 7)
	require.NoError(t, err)
	assert.False(t, st.MintedBadge)

	// Retry after the minter recovers.
	rig.minter.Err = nil
	issued, err := rig.decrypt.HandleCallback(ctx, reqID, 4, rig.proof(reqID, 4))
	require.NoError(t, err)
	assert.True(t, issued)
	assert.Len(t, rig.minter.Calls(), 1)
}

func TestExpiredRequestFailsClosed(t *testing.T) {
	rig := newRig(t, time.Minute)
	ctx := context.Background()
	rig.seedScore(t, 7, 2, 1, 0)

	stale := &model.DecryptionRequest{
		RequestID:   77,
		UserID:      7,
		RequestedAt: time.Now().UTC().Add(-2 * time.Minute),
	}
	require.NoError(t, rig.rawStore.Requests().Create(ctx, stale))

	_, err := rig.decrypt.HandleCallback(ctx, 77, 4, rig.proof(77, 4))
	assert.ErrorIs(t, err, model.ErrUnknownRequest)
	assert.Empty(t, rig.minter.Calls())
}
