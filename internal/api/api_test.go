package api

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veilrep/repledger/internal/mint"
	"github.com/veilrep/repledger/internal/model"
	"github.com/veilrep/repledger/internal/oracle"
	"github.com/veilrep/repledger/internal/services"
	"github.com/veilrep/repledger/internal/store/memory"
)

// plainArith exercises the handlers without real lattice crypto; payloads
// carry the value as a big-endian uint32.
type plainArith struct{}

const plainCtx = "api-test-context"

func encValue(v uint32) *model.Ciphertext {
	data := make([]byte, 4)
	binary.BigEndian.PutUint32(data, v)
	return &model.Ciphertext{Context: plainCtx, Data: data}
}

func decValue(ct *model.Ciphertext) uint32 { return binary.BigEndian.Uint32(ct.Data) }

func (plainArith) Add(a, b *model.Ciphertext) (*model.Ciphertext, error) {
	return encValue(decValue(a) + decValue(b)), nil
}
func (plainArith) ScalarMul(a *model.Ciphertext, k uint32) (*model.Ciphertext, error) {
	return encValue(decValue(a) * k), nil
}
func (plainArith) EncryptConstant(k uint32) (*model.Ciphertext, error) { return encValue(k), nil }
func (plainArith) Context() string                                     { return plainCtx }

type seqOracle struct{ next atomic.Uint64 }

func (o *seqOracle) SubmitForDecryption(ctx context.Context, _ *model.Ciphertext) (uint64, error) {
	return o.next.Add(1), nil
}

type apiRig struct {
	srv     *httptest.Server
	minter  *mint.Recorder
	signKey ed25519.PrivateKey
}

func newAPIRig(t *testing.T) *apiRig {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	verifier, err := oracle.NewEd25519Verifier(pub)
	require.NoError(t, err)

	st := memory.New()
	locks := services.NewUserLocks()
	minter := mint.NewRecorder()
	ledger := services.NewLedgerService(st, plainArith{}, locks, zerolog.Nop())
	gate := services.NewBadgeGate(minter, zerolog.Nop())
	decrypt := services.NewDecryptionService(st, &seqOracle{}, verifier, gate, locks, 0, zerolog.Nop())

	srv := httptest.NewServer(NewRouter(ledger, decrypt, func() bool { return true }))
	t.Cleanup(srv.Close)
	return &apiRig{srv: srv, minter: minter, signKey: priv}
}

func (r *apiRig) do(t *testing.T, method, path string, body interface{}, out interface{}) int {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, r.srv.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil && resp.StatusCode < 300 {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func (r *apiRig) submit(t *testing.T, userID uint64, posts, replies, likes uint32) uint64 {
	t.Helper()
	var rec model.EncryptedActivity
	code := r.do(t, http.MethodPost, "/api/activities", map[string]interface{}{
		"userId":  userID,
		"posts":   encValue(posts),
		"replies": encValue(replies),
		"likes":   encValue(likes),
	}, &rec)
	require.Equal(t, http.StatusCreated, code)
	return rec.ActivityID
}

func TestHealthEndpoint(t *testing.T) {
	rig := newAPIRig(t)
	var out map[string]interface{}
	code := rig.do(t, http.MethodGet, "/api/health", nil, &out)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", out["status"])
}

func TestSubmitAndFetchActivity(t *testing.T) {
	rig := newAPIRig(t)
	id := rig.submit(t, 7, 2, 1, 0)

	var rec model.EncryptedActivity
	code := rig.do(t, http.MethodGet, fmt.Sprintf("/api/activities/%d", id), nil, &rec)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, uint64(7), rec.UserID)
	assert.Equal(t, uint32(2), decValue(rec.Posts))

	var listing struct {
		Activities []*model.EncryptedActivity `json:"activities"`
		Count      int                        `json:"count"`
	}
	code = rig.do(t, http.MethodGet, "/api/users/7/activities", nil, &listing)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, 1, listing.Count)
}

func TestSubmitRejectsMissingCounters(t *testing.T) {
	rig := newAPIRig(t)
	code := rig.do(t, http.MethodPost, "/api/activities", map[string]interface{}{
		"userId": 7,
		"posts":  encValue(1),
	}, nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestSubmitRejectsForeignContext(t *testing.T) {
	rig := newAPIRig(t)
	foreign := &model.Ciphertext{Context: "other", Data: []byte{1, 2, 3}}
	code := rig.do(t, http.MethodPost, "/api/activities", map[string]interface{}{
		"userId":  7,
		"posts":   foreign,
		"replies": encValue(1),
		"likes":   encValue(1),
	}, nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestComputeAndScoreLookup(t *testing.T) {
	rig := newAPIRig(t)
	id := rig.submit(t, 7, 2, 1, 0) // weighted score 4

	var out struct {
		EncryptedScore *model.Ciphertext `json:"encryptedScore"`
	}
	code := rig.do(t, http.MethodPost, fmt.Sprintf("/api/activities/%d/compute", id), nil, &out)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, uint32(4), decValue(out.EncryptedScore))

	code = rig.do(t, http.MethodGet, "/api/users/7/score", nil, &out)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, uint32(4), decValue(out.EncryptedScore))

	var st model.ReputationState
	code = rig.do(t, http.MethodGet, "/api/users/7/reputation", nil, &st)
	require.Equal(t, http.StatusOK, code)
	assert.False(t, st.MintedBadge)
}

func TestAggregateEndpoint(t *testing.T) {
	rig := newAPIRig(t)
	a := rig.submit(t, 7, 2, 1, 0) // 4
	b := rig.submit(t, 7, 1, 3, 2) // 13

	var out struct {
		EncryptedScore *model.Ciphertext `json:"encryptedScore"`
	}
	code := rig.do(t, http.MethodPost, "/api/users/7/score/aggregate", map[string]interface{}{
		"activityIds": []uint64{a, b},
	}, &out)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, uint32(17), decValue(out.EncryptedScore))

	// Unknown id fails the batch with 404.
	code = rig.do(t, http.MethodPost, "/api/users/7/score/aggregate", map[string]interface{}{
		"activityIds": []uint64{a, 99999},
	}, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestScoreLookupUnknownUser(t *testing.T) {
	rig := newAPIRig(t)
	code := rig.do(t, http.MethodGet, "/api/users/42/score", nil, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestDecryptionProtocolOverHTTP(t *testing.T) {
	rig := newAPIRig(t)
	id := rig.submit(t, 7, 2, 1, 0)

	var out struct {
		EncryptedScore *model.Ciphertext `json:"encryptedScore"`
	}
	code := rig.do(t, http.MethodPost, fmt.Sprintf("/api/activities/%d/compute", id), nil, &out)
	require.Equal(t, http.StatusOK, code)

	var reqOut struct {
		RequestID uint64 `json:"requestId"`
	}
	code = rig.do(t, http.MethodPost, "/api/users/7/decryption-requests", nil, &reqOut)
	require.Equal(t, http.StatusAccepted, code)

	var cbOut struct {
		BadgeIssued bool `json:"badgeIssued"`
	}
	code = rig.do(t, http.MethodPost, "/api/decryption-callbacks", map[string]interface{}{
		"requestId": reqOut.RequestID,
		"cleartext": 4,
		"proof":     oracle.Sign(rig.signKey, reqOut.RequestID, 4),
	}, &cbOut)
	require.Equal(t, http.StatusOK, code)
	assert.True(t, cbOut.BadgeIssued)
	require.Len(t, rig.minter.Calls(), 1)

	// Replay of the consumed request id is rejected.
	code = rig.do(t, http.MethodPost, "/api/decryption-callbacks", map[string]interface{}{
		"requestId": reqOut.RequestID,
		"cleartext": 4,
		"proof":     oracle.Sign(rig.signKey, reqOut.RequestID, 4),
	}, nil)
	assert.Equal(t, http.StatusNotFound, code)

	// Second decryption request after the mint is a conflict.
	code = rig.do(t, http.MethodPost, "/api/users/7/decryption-requests", nil, nil)
	assert.Equal(t, http.StatusConflict, code)
}

func TestCallbackBadProofUnauthorized(t *testing.T) {
	rig := newAPIRig(t)
	id := rig.submit(t, 7, 2, 1, 0)
	code := rig.do(t, http.MethodPost, fmt.Sprintf("/api/activities/%d/compute", id), nil, nil)
	require.Equal(t, http.StatusOK, code)

	var reqOut struct {
		RequestID uint64 `json:"requestId"`
	}
	code = rig.do(t, http.MethodPost, "/api/users/7/decryption-requests", nil, &reqOut)
	require.Equal(t, http.StatusAccepted, code)

	code = rig.do(t, http.MethodPost, "/api/decryption-callbacks", map[string]interface{}{
		"requestId": reqOut.RequestID,
		"cleartext": 400,
		"proof":     oracle.Sign(rig.signKey, reqOut.RequestID, 4),
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Empty(t, rig.minter.Calls())
}

func TestBadPathVariable(t *testing.T) {
	rig := newAPIRig(t)
	// Route pattern only admits digits, so this misses entirely.
	code := rig.do(t, http.MethodGet, "/api/activities/abc", nil, nil)
	assert.Equal(t, http.StatusNotFound, code)
}
