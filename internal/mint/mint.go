// Package mint wraps the external badge-minting capability. The ledger
// guarantees Mint is called at most once per user; the contract behind the
// endpoint is out of scope.
package mint

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
)

// Minter issues a badge credential for a decrypted, proof-validated score.
type Minter interface {
	Mint(ctx context.Context, owner uint64, score uint32) error
}

// HTTPMinter posts mint calls to the credential service.
type HTTPMinter struct {
	client *resty.Client
}

func NewHTTPMinter(baseURL string) *HTTPMinter {
	c := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Content-Type", "application/json").
		SetTimeout(30 * time.Second)
	return &HTTPMinter{client: c}
}

type mintRequest struct {
	Owner uint64 `json:"owner"`
	Score uint32 `json:"score"`
}

func (m *HTTPMinter) Mint(ctx context.Context, owner uint64, score uint32) error {
	resp, err := m.client.R().
		SetContext(ctx).
		SetBody(mintRequest{Owner: owner, Score: score}).
		Post("/api/badges")
	if err != nil {
		return fmt.Errorf("mint badge: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("mint badge: minter returned %s", resp.Status())
	}
	return nil
}

// Call records one observed mint.
type Call struct {
	Owner uint64
	Score uint32
}

// Recorder is an in-process Minter for tests and dev rigs. Err, when set, is
// returned without recording.
type Recorder struct {
	mu    sync.Mutex
	calls []Call
	Err   error
}

func NewRecorder() *Recorder { return &Recorder{} }

func (r *Recorder) Mint(ctx context.Context, owner uint64, score uint32) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.calls = append(r.calls, Call{Owner: owner, Score: score})
	return nil
}

// Calls returns a copy of the observed mint calls.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.calls...)
}
