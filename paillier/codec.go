package paillier

import (
	"bytes"
	"fmt"
	"math/big"

	"github.com/fxamacker/cbor/v2"
)

type rawCiphertext struct {
	Key      []byte
	Exponent int
	Value    []byte
}

// MarshalBinary encodes c together with its key fingerprint.
func (c Ciphertext) MarshalBinary() ([]byte, error) {
	if err := c.check(); err != nil {
		return nil, err
	}
	fp := c.key.Fingerprint()
	return cbor.Marshal(rawCiphertext{
		Key:      fp[:],
		Exponent: c.exponent,
		Value:    c.c.Bytes(),
	})
}

// UnmarshalCiphertext decodes a ciphertext produced by MarshalBinary under
// the same key.
func (pk *PublicKey) UnmarshalCiphertext(data []byte) (Ciphertext, error) {
	var raw rawCiphertext
	if err := cbor.Unmarshal(data, &raw); err != nil {
		return Ciphertext{}, fmt.Errorf("%w: %v", ErrMalformedCiphertext, err)
	}
	fp := pk.Fingerprint()
	if !bytes.Equal(raw.Key, fp[:]) {
		return Ciphertext{}, ErrKeyMismatch
	}
	c := Ciphertext{key: pk, c: new(big.Int).SetBytes(raw.Value), exponent: raw.Exponent}
	if err := c.validate(); err != nil {
		return Ciphertext{}, err
	}
	return c, nil
}
