package model

import "errors"

var (
	// ErrNotFound reports an unknown activity, user, or request reference.
	ErrNotFound = errors.New("not found")

	// ErrCiphertextFormat reports a ciphertext that was not produced by the
	// ledger's encryption context (wrong key or scheme version). Never
	// downgraded to plaintext handling.
	ErrCiphertextFormat = errors.New("ciphertext format error")

	// ErrAlreadyMinted reports a decryption request for a user whose badge
	// has already been issued. Expected and benign.
	ErrAlreadyMinted = errors.New("badge already minted")

	// ErrScoreFrozen reports an aggregation attempt against a post-mint
	// reputation state. The score is immutable once the badge is issued.
	ErrScoreFrozen = errors.New("score frozen after mint")

	// ErrUnknownRequest reports a callback whose request id was never issued
	// or was already resolved. Callbacks fail closed.
	ErrUnknownRequest = errors.New("unknown decryption request")

	// ErrInvalidProof reports a callback whose proof does not authenticate
	// the cleartext for its request id. The request stays pending.
	ErrInvalidProof = errors.New("invalid decryption proof")
)
