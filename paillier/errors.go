package paillier

import "errors"

var (
	// ErrKeyMismatch indicates a ciphertext encrypted under a different
	// public key than the one it is combined with or decrypted by.
	ErrKeyMismatch = errors.New("paillier: key mismatch")

	// ErrMalformedCiphertext indicates a ciphertext outside Z*_{N^2} or an
	// uninitialised ciphertext value.
	ErrMalformedCiphertext = errors.New("paillier: malformed ciphertext")

	// ErrOverflow indicates a plaintext outside the signed encoding window
	// of +-N/3.
	ErrOverflow = errors.New("paillier: encoded value out of range")

	// ErrNotEncodable indicates a NaN or infinite float.
	ErrNotEncodable = errors.New("paillier: value cannot be encoded")
)
