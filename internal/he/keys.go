package he

import (
	"fmt"
	"sync"

	"github.com/tuneinsight/lattigo/v4/bfv"
	"github.com/tuneinsight/lattigo/v4/rlwe"

	"github.com/veilrep/repledger/internal/model"
)

// Parameter presets the service accepts. PN12QP109 keeps ciphertexts small and
// is plenty for additive score folding; PN13QP218 gives extra noise headroom
// for very large batches.
const (
	PresetPN12 = "PN12QP109"
	PresetPN13 = "PN13QP218"
)

// ParamsFromPreset resolves a preset name to BFV parameters.
func ParamsFromPreset(name string) (bfv.Parameters, error) {
	switch name {
	case "", PresetPN12:
		return bfv.NewParametersFromLiteral(bfv.PN12QP109)
	case PresetPN13:
		return bfv.NewParametersFromLiteral(bfv.PN13QP218)
	default:
		return bfv.Parameters{}, fmt.Errorf("unknown BFV preset %q", name)
	}
}

// KeyPair carries serialized BFV keys. The secret key belongs to the
// decryption oracle; the ledger only ever holds the public half.
type KeyPair struct {
	Secret []byte
	Public []byte
}

// GenerateKeys creates a fresh BFV key pair for the given preset.
func GenerateKeys(preset string) (*KeyPair, error) {
	params, err := ParamsFromPreset(preset)
	if err != nil {
		return nil, err
	}
	kgen := bfv.NewKeyGenerator(params)
	sk, pk := kgen.GenKeyPair()
	skb, err := sk.MarshalBinary()
	if err != nil {
		return nil, err
	}
	pkb, err := pk.MarshalBinary()
	if err != nil {
		return nil, err
	}
	return &KeyPair{Secret: skb, Public: pkb}, nil
}

// NewArithmeticFromPublicKey builds the adapter from a serialized public key.
func NewArithmeticFromPublicKey(preset string, pkBytes []byte) (*BFV, error) {
	params, err := ParamsFromPreset(preset)
	if err != nil {
		return nil, err
	}
	var pk rlwe.PublicKey
	if err := pk.UnmarshalBinary(pkBytes); err != nil {
		return nil, fmt.Errorf("decode public key: %w", err)
	}
	return NewArithmetic(params, &pk)
}

// Decrypter is the secret-key side of the scheme. It exists for the dev
// oracle and for test harnesses that verify round-trip properties; the ledger
// process never constructs one.
type Decrypter struct {
	params    bfv.Parameters
	ctxTag    string
	encoder   bfv.Encoder
	decryptor rlwe.Decryptor
	mu        sync.Mutex
}

// NewDecrypter builds a Decrypter from serialized keys. The public key is
// needed only to reproduce the context tag.
func NewDecrypter(preset string, skBytes, pkBytes []byte) (*Decrypter, error) {
	params, err := ParamsFromPreset(preset)
	if err != nil {
		return nil, err
	}
	var sk rlwe.SecretKey
	if err := sk.UnmarshalBinary(skBytes); err != nil {
		return nil, fmt.Errorf("decode secret key: %w", err)
	}
	var pk rlwe.PublicKey
	if err := pk.UnmarshalBinary(pkBytes); err != nil {
		return nil, fmt.Errorf("decode public key: %w", err)
	}
	tag, err := contextTag(params, &pk)
	if err != nil {
		return nil, err
	}
	return &Decrypter{
		params:    params,
		ctxTag:    tag,
		encoder:   bfv.NewEncoder(params),
		decryptor: bfv.NewDecryptor(params, &sk),
	}, nil
}

// Decrypt recovers the plaintext score from slot 0.
func (d *Decrypter) Decrypt(ct *model.Ciphertext) (uint32, error) {
	if ct == nil || len(ct.Data) == 0 {
		return 0, fmt.Errorf("empty ciphertext: %w", model.ErrCiphertextFormat)
	}
	if ct.Context != d.ctxTag {
		return 0, fmt.Errorf("context %q does not match %q: %w", ct.Context, d.ctxTag, model.ErrCiphertextFormat)
	}
	var inner rlwe.Ciphertext
	if err := inner.UnmarshalBinary(ct.Data); err != nil {
		return 0, fmt.Errorf("decode ciphertext: %w", model.ErrCiphertextFormat)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	pt := d.decryptor.DecryptNew(&inner)
	values := d.encoder.DecodeUintNew(pt)
	return uint32(values[0]), nil
}
