package oracle

import (
	"crypto/ed25519"
	"encoding/binary"
	"fmt"

	"github.com/veilrep/repledger/internal/model"
)

// Verifier authenticates decryption callbacks against the oracle's known
// verification key.
type Verifier interface {
	Verify(requestID uint64, cleartext uint32, proof []byte) error
}

// proofMessage is the signed payload: request id (8 bytes BE) followed by the
// cleartext score (4 bytes BE). Binding the id prevents replaying a proof
// against a different request.
func proofMessage(requestID uint64, cleartext uint32) []byte {
	msg := make([]byte, 12)
	binary.BigEndian.PutUint64(msg[:8], requestID)
	binary.BigEndian.PutUint32(msg[8:], cleartext)
	return msg
}

// Ed25519Verifier checks oracle signatures.
type Ed25519Verifier struct {
	key ed25519.PublicKey
}

func NewEd25519Verifier(key ed25519.PublicKey) (*Ed25519Verifier, error) {
	if len(key) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("oracle verify key must be %d bytes, got %d", ed25519.PublicKeySize, len(key))
	}
	return &Ed25519Verifier{key: key}, nil
}

func (v *Ed25519Verifier) Verify(requestID uint64, cleartext uint32, proof []byte) error {
	if len(proof) != ed25519.SignatureSize || !ed25519.Verify(v.key, proofMessage(requestID, cleartext), proof) {
		return model.ErrInvalidProof
	}
	return nil
}

// Sign produces the proof for a decryption result. Used by the dev oracle and
// by test harnesses; the ledger only verifies.
func Sign(key ed25519.PrivateKey, requestID uint64, cleartext uint32) []byte {
	return ed25519.Sign(key, proofMessage(requestID, cleartext))
}
