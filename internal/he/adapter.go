// Package he implements the ciphertext arithmetic adapter on top of the
// lattigo BFV scheme. All operations work directly on ciphertexts; nothing in
// this package decrypts an operand (the secret-key side lives in Decrypter and
// is only wired into the dev oracle and test harnesses).
package he

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/tuneinsight/lattigo/v4/bfv"
	"github.com/tuneinsight/lattigo/v4/rlwe"

	"github.com/veilrep/repledger/internal/model"
)

// Arithmetic is the homomorphic capability the ledger aggregates with.
// Implementations never observe plaintext operands.
type Arithmetic interface {
	// Add returns an encryption of a+b.
	Add(a, b *model.Ciphertext) (*model.Ciphertext, error)
	// ScalarMul returns an encryption of a*k for a plaintext weight k.
	ScalarMul(a *model.Ciphertext, k uint32) (*model.Ciphertext, error)
	// EncryptConstant returns a fresh encryption of k.
	EncryptConstant(k uint32) (*model.Ciphertext, error)
	// Context returns the tag identifying this encryption context.
	Context() string
}

// BFV is the lattigo-backed Arithmetic. Scores live in slot 0 and are bounded
// by the plaintext modulus of the parameter set (65537 for the shipped
// presets); weighted sums beyond that wrap.
type BFV struct {
	params    bfv.Parameters
	ctxTag    string
	encoder   bfv.Encoder
	encryptor rlwe.Encryptor
	eval      bfv.Evaluator

	// lattigo encoders and evaluators are not safe for concurrent use
	mu sync.Mutex
}

// NewArithmetic builds the public-key side of the adapter.
func NewArithmetic(params bfv.Parameters, pk *rlwe.PublicKey) (*BFV, error) {
	tag, err := contextTag(params, pk)
	if err != nil {
		return nil, err
	}
	return &BFV{
		params:    params,
		ctxTag:    tag,
		encoder:   bfv.NewEncoder(params),
		encryptor: bfv.NewEncryptor(params, pk),
		eval:      bfv.NewEvaluator(params, rlwe.EvaluationKey{}),
	}, nil
}

func (b *BFV) Context() string { return b.ctxTag }

func (b *BFV) Add(a, c *model.Ciphertext) (*model.Ciphertext, error) {
	ca, err := b.unwrap(a)
	if err != nil {
		return nil, err
	}
	cc, err := b.unwrap(c)
	if err != nil {
		return nil, err
	}
	b.mu.Lock()
	out := b.eval.AddNew(ca, cc)
	b.mu.Unlock()
	return b.wrap(out)
}

func (b *BFV) ScalarMul(a *model.Ciphertext, k uint32) (*model.Ciphertext, error) {
	if k == 0 {
		return b.EncryptConstant(0)
	}
	ca, err := b.unwrap(a)
	if err != nil {
		return nil, err
	}
	b.mu.Lock()
	out := b.eval.MulScalarNew(ca, uint64(k))
	b.mu.Unlock()
	return b.wrap(out)
}

func (b *BFV) EncryptConstant(k uint32) (*model.Ciphertext, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	pt := bfv.NewPlaintext(b.params, b.params.MaxLevel())
	b.encoder.Encode([]uint64{uint64(k)}, pt)
	return b.wrap(b.encryptor.EncryptNew(pt))
}

// unwrap checks the context tag and deserializes. Any mismatch or decode
// failure surfaces as ErrCiphertextFormat; operands are never coerced.
func (b *BFV) unwrap(ct *model.Ciphertext) (*rlwe.Ciphertext, error) {
	if ct == nil || len(ct.Data) == 0 {
		return nil, fmt.Errorf("empty operand: %w", model.ErrCiphertextFormat)
	}
	if ct.Context != b.ctxTag {
		return nil, fmt.Errorf("context %q does not match %q: %w", ct.Context, b.ctxTag, model.ErrCiphertextFormat)
	}
	var inner rlwe.Ciphertext
	if err := inner.UnmarshalBinary(ct.Data); err != nil {
		return nil, fmt.Errorf("decode ciphertext: %w", model.ErrCiphertextFormat)
	}
	return &inner, nil
}

func (b *BFV) wrap(inner *rlwe.Ciphertext) (*model.Ciphertext, error) {
	data, err := inner.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("encode ciphertext: %w", err)
	}
	return &model.Ciphertext{Context: b.ctxTag, Data: data}, nil
}

// contextTag derives a stable tag from the parameter set and public key so
// ciphertexts from a different key or scheme version are detectable.
func contextTag(params bfv.Parameters, pk *rlwe.PublicKey) (string, error) {
	pb, err := params.MarshalBinary()
	if err != nil {
		return "", err
	}
	kb, err := pk.MarshalBinary()
	if err != nil {
		return "", err
	}
	h := sha256.New()
	h.Write([]byte("repledger/bfv/v1"))
	h.Write(pb)
	h.Write(kb)
	return hex.EncodeToString(h.Sum(nil)[:8]), nil
}
