package paillier

import (
	"fmt"
	"math/big"

	"github.com/niclabs/tcpaillier"
	"github.com/zeebo/blake3"
)

// keyShares is the number of tcpaillier key shares making up one secret key.
// The threshold equals the share count, and all shares stay with the
// decryption party.
const keyShares = 2

// PublicKey is the Paillier public key shared by both parties.
type PublicKey struct {
	pk          *tcpaillier.PubKey
	n           *big.Int
	nSquare     *big.Int
	maxInt      *big.Int
	fingerprint [32]byte
}

// SecretKey is the decryption key, held by the decryption party only.
type SecretKey struct {
	pub    *PublicKey
	shares []*tcpaillier.KeyShare
}

// GenerateKey creates a key pair with a modulus of bitSize bits.
func GenerateKey(bitSize int) (*PublicKey, *SecretKey, error) {
	shares, pk, err := tcpaillier.NewKey(bitSize, 1, keyShares, keyShares)
	if err != nil {
		return nil, nil, fmt.Errorf("paillier: generate key: %w", err)
	}
	pub := newPublicKey(pk)
	return pub, &SecretKey{pub: pub, shares: shares}, nil
}

// newPublicKey fills tcpaillier's lazily computed cache before the key is
// shared. The cache is written without a lock on first use, and key shares
// point at the same PubKey.
func newPublicKey(pk *tcpaillier.PubKey) *PublicKey {
	pk.Cache()
	n := new(big.Int).Set(pk.N)
	return &PublicKey{
		pk:          pk,
		n:           n,
		nSquare:     new(big.Int).Mul(n, n),
		maxInt:      new(big.Int).Quo(n, big.NewInt(3)),
		fingerprint: blake3.Sum256(n.Bytes()),
	}
}

// N returns a copy of the modulus.
func (pk *PublicKey) N() *big.Int {
	return new(big.Int).Set(pk.n)
}

// BitLen is the bit length of the modulus.
func (pk *PublicKey) BitLen() int {
	return pk.n.BitLen()
}

// MaxInt is the largest mantissa magnitude that can be encrypted.
func (pk *PublicKey) MaxInt() *big.Int {
	return new(big.Int).Set(pk.maxInt)
}

// Fingerprint identifies the key on the wire.
func (pk *PublicKey) Fingerprint() [32]byte {
	return pk.fingerprint
}

// Equal reports whether pk and other are the same key.
func (pk *PublicKey) Equal(other *PublicKey) bool {
	if pk == nil || other == nil {
		return false
	}
	return pk == other || pk.fingerprint == other.fingerprint
}

// Encrypt encrypts v under pk with fresh randomness.
func (pk *PublicKey) Encrypt(v Encoded) (Ciphertext, error) {
	m, err := pk.toResidue(v.Mantissa)
	if err != nil {
		return Ciphertext{}, err
	}
	c, _, err := pk.pk.Encrypt(m)
	if err != nil {
		return Ciphertext{}, fmt.Errorf("paillier: encrypt: %w", err)
	}
	return Ciphertext{key: pk, c: c, exponent: v.Exponent}, nil
}

// EncryptInt encrypts an integer at exponent 0.
func (pk *PublicKey) EncryptInt(x *big.Int) (Ciphertext, error) {
	return pk.Encrypt(EncodeInt(x))
}

// EncryptInt64 encrypts an integer at exponent 0.
func (pk *PublicKey) EncryptInt64(x int64) (Ciphertext, error) {
	return pk.Encrypt(EncodeInt64(x))
}

// EncryptFloat encrypts f with float64 precision.
func (pk *PublicKey) EncryptFloat(f float64) (Ciphertext, error) {
	v, err := EncodeFloat(f)
	if err != nil {
		return Ciphertext{}, err
	}
	return pk.Encrypt(v)
}

// toResidue maps a signed mantissa into Z_N.
func (pk *PublicKey) toResidue(m *big.Int) (*big.Int, error) {
	if m == nil {
		return nil, fmt.Errorf("%w: nil mantissa", ErrNotEncodable)
	}
	if new(big.Int).Abs(m).Cmp(pk.maxInt) > 0 {
		return nil, ErrOverflow
	}
	return new(big.Int).Mod(m, pk.n), nil
}

// fromResidue maps a residue in Z_N back to its signed mantissa.
func (pk *PublicKey) fromResidue(m *big.Int) (*big.Int, error) {
	if m.Cmp(pk.maxInt) <= 0 {
		return m, nil
	}
	neg := new(big.Int).Sub(m, pk.n)
	if new(big.Int).Neg(neg).Cmp(pk.maxInt) <= 0 {
		return neg, nil
	}
	return nil, ErrOverflow
}

// PublicKey returns the public half of sk.
func (sk *SecretKey) PublicKey() *PublicKey {
	return sk.pub
}

// DecryptEncoded decrypts c to its encoded form.
func (sk *SecretKey) DecryptEncoded(c Ciphertext) (Encoded, error) {
	if err := c.validate(); err != nil {
		return Encoded{}, err
	}
	if !c.key.Equal(sk.pub) {
		return Encoded{}, ErrKeyMismatch
	}
	parts := make([]*tcpaillier.DecryptionShare, len(sk.shares))
	for i, share := range sk.shares {
		part, err := share.PartialDecrypt(c.c)
		if err != nil {
			return Encoded{}, fmt.Errorf("paillier: partial decrypt: %w", err)
		}
		parts[i] = part
	}
	m, err := sk.pub.pk.CombineShares(parts...)
	if err != nil {
		return Encoded{}, fmt.Errorf("paillier: combine shares: %w", err)
	}
	m.Mod(m, sk.pub.n)
	mantissa, err := sk.pub.fromResidue(m)
	if err != nil {
		return Encoded{}, err
	}
	return Encoded{Mantissa: mantissa, Exponent: c.exponent}, nil
}

// Decrypt decrypts c to its exact rational value.
func (sk *SecretKey) Decrypt(c Ciphertext) (*big.Rat, error) {
	v, err := sk.DecryptEncoded(c)
	if err != nil {
		return nil, err
	}
	return v.Rat(), nil
}
