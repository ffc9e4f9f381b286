// Package oracle holds the decryption-oracle boundary: the outbound
// submission client and the proof verification used to authenticate
// callbacks. The oracle itself is an external collaborator.
package oracle

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/veilrep/repledger/internal/model"
)

// Client submits ciphertexts for out-of-band decryption. The call is
// fire-and-forget from the ledger's perspective: the plaintext arrives later
// through the callback endpoint, correlated by the returned request id.
type Client interface {
	SubmitForDecryption(ctx context.Context, score *model.Ciphertext) (uint64, error)
}

// HTTPClient is the resty-backed Client.
type HTTPClient struct {
	client *resty.Client
}

// NewHTTPClient points the client at the oracle's base URL.
func NewHTTPClient(baseURL string) *HTTPClient {
	c := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Content-Type", "application/json").
		SetTimeout(30 * time.Second)
	return &HTTPClient{client: c}
}

type submitRequest struct {
	Ciphertext *model.Ciphertext `json:"ciphertext"`
}

type submitResponse struct {
	RequestID uint64 `json:"requestId"`
}

// SubmitForDecryption posts the encrypted score and returns the
// oracle-assigned request id.
func (c *HTTPClient) SubmitForDecryption(ctx context.Context, score *model.Ciphertext) (uint64, error) {
	var out submitResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(submitRequest{Ciphertext: score}).
		SetResult(&out).
		Post("/api/decryptions")
	if err != nil {
		return 0, fmt.Errorf("submit for decryption: %w", err)
	}
	if resp.IsError() {
		return 0, fmt.Errorf("submit for decryption: oracle returned %s", resp.Status())
	}
	return out.RequestID, nil
}
