package paillier

import (
	"fmt"
	"math/big"
)

var one = big.NewInt(1)

// Ciphertext is an encrypted fixed-point value. It is immutable: every
// operation returns a new Ciphertext and leaves its receiver untouched, so
// values can be copied and shared freely between goroutines.
type Ciphertext struct {
	key      *PublicKey
	c        *big.Int
	exponent int
}

// Ciphertext returns c itself, so raw ciphertexts and bound protocol
// operands can be used interchangeably.
func (c Ciphertext) Ciphertext() Ciphertext {
	return c
}

// PublicKey is the key c was encrypted under.
func (c Ciphertext) PublicKey() *PublicKey {
	return c.key
}

// Exponent is the public base-16 exponent of the encrypted value.
func (c Ciphertext) Exponent() int {
	return c.exponent
}

// Value returns a copy of the raw ciphertext residue.
func (c Ciphertext) Value() *big.Int {
	if c.c == nil {
		return nil
	}
	return new(big.Int).Set(c.c)
}

func (c Ciphertext) check() error {
	if c.key == nil || c.c == nil {
		return fmt.Errorf("%w: uninitialised", ErrMalformedCiphertext)
	}
	return nil
}

// validate checks that c lies in Z*_{N^2}.
func (c Ciphertext) validate() error {
	if err := c.check(); err != nil {
		return err
	}
	if c.c.Sign() <= 0 || c.c.Cmp(c.key.nSquare) >= 0 {
		return fmt.Errorf("%w: out of range", ErrMalformedCiphertext)
	}
	if new(big.Int).GCD(nil, nil, c.c, c.key.n).Cmp(one) != 0 {
		return fmt.Errorf("%w: not invertible", ErrMalformedCiphertext)
	}
	return nil
}

func (c Ciphertext) compatible(o Ciphertext) error {
	if err := c.check(); err != nil {
		return err
	}
	if err := o.check(); err != nil {
		return err
	}
	if !c.key.Equal(o.key) {
		return ErrKeyMismatch
	}
	return nil
}

// Add returns Enc(x + y).
func (c Ciphertext) Add(o Ciphertext) (Ciphertext, error) {
	if err := c.compatible(o); err != nil {
		return Ciphertext{}, err
	}
	a, b, err := align(c, o)
	if err != nil {
		return Ciphertext{}, err
	}
	sum, err := c.key.pk.Add(a.c, b.c)
	if err != nil {
		return Ciphertext{}, fmt.Errorf("paillier: add: %w", err)
	}
	return Ciphertext{key: c.key, c: sum, exponent: a.exponent}, nil
}

// Sub returns Enc(x - y).
func (c Ciphertext) Sub(o Ciphertext) (Ciphertext, error) {
	neg, err := o.Neg()
	if err != nil {
		return Ciphertext{}, err
	}
	return c.Add(neg)
}

// Neg returns Enc(-x).
func (c Ciphertext) Neg() (Ciphertext, error) {
	return c.MulInt(big.NewInt(-1))
}

// AddInt returns Enc(x + k).
func (c Ciphertext) AddInt(k *big.Int) (Ciphertext, error) {
	return c.AddEncoded(EncodeInt(k))
}

// AddInt64 returns Enc(x + k).
func (c Ciphertext) AddInt64(k int64) (Ciphertext, error) {
	return c.AddEncoded(EncodeInt64(k))
}

// AddEncoded returns Enc(x + v). The scalar is encrypted with randomness 1,
// so the result carries the randomness of c.
func (c Ciphertext) AddEncoded(v Encoded) (Ciphertext, error) {
	if err := c.check(); err != nil {
		return Ciphertext{}, err
	}
	exponent := min(c.exponent, v.Exponent)
	a, err := c.decreaseExponentTo(exponent)
	if err != nil {
		return Ciphertext{}, err
	}
	m, err := c.key.toResidue(v.decreaseExponentTo(exponent).Mantissa)
	if err != nil {
		return Ciphertext{}, err
	}
	enc, err := c.key.pk.EncryptFixed(m, one)
	if err != nil {
		return Ciphertext{}, fmt.Errorf("paillier: encode scalar: %w", err)
	}
	sum, err := c.key.pk.Add(a.c, enc)
	if err != nil {
		return Ciphertext{}, fmt.Errorf("paillier: add scalar: %w", err)
	}
	return Ciphertext{key: c.key, c: sum, exponent: exponent}, nil
}

// MulInt returns Enc(k * x).
func (c Ciphertext) MulInt(k *big.Int) (Ciphertext, error) {
	if err := c.check(); err != nil {
		return Ciphertext{}, err
	}
	alpha := new(big.Int).Mod(k, c.key.n)
	prod, _, err := c.key.pk.Multiply(c.c, alpha)
	if err != nil {
		return Ciphertext{}, fmt.Errorf("paillier: multiply: %w", err)
	}
	return Ciphertext{key: c.key, c: prod, exponent: c.exponent}, nil
}

// MulInt64 returns Enc(k * x).
func (c Ciphertext) MulInt64(k int64) (Ciphertext, error) {
	return c.MulInt(big.NewInt(k))
}

// Mul returns Enc(v * x); exponents add.
func (c Ciphertext) Mul(v Encoded) (Ciphertext, error) {
	prod, err := c.MulInt(v.Mantissa)
	if err != nil {
		return Ciphertext{}, err
	}
	prod.exponent = c.exponent + v.Exponent
	return prod, nil
}

// Halve returns Enc(x/2) when the encrypted mantissa is even, by scaling
// with the inverse of two mod N. An odd mantissa decrypts out of range.
func (c Ciphertext) Halve() (Ciphertext, error) {
	if err := c.check(); err != nil {
		return Ciphertext{}, err
	}
	inv := new(big.Int).Add(c.key.n, one)
	return c.MulInt(inv.Rsh(inv, 1))
}

// Rerandomize returns a fresh encryption of the same value.
func (c Ciphertext) Rerandomize() (Ciphertext, error) {
	if err := c.check(); err != nil {
		return Ciphertext{}, err
	}
	zero, _, err := c.key.pk.Encrypt(new(big.Int))
	if err != nil {
		return Ciphertext{}, fmt.Errorf("paillier: rerandomize: %w", err)
	}
	sum, err := c.key.pk.Add(c.c, zero)
	if err != nil {
		return Ciphertext{}, fmt.Errorf("paillier: rerandomize: %w", err)
	}
	return Ciphertext{key: c.key, c: sum, exponent: c.exponent}, nil
}

// Integral reinterprets the encrypted mantissa as an integer at exponent 0,
// i.e. returns Enc(x * 16^-e) for e <= 0. The scaling factor is positive, so
// sign and zero-ness of x are preserved and any non-zero value has magnitude
// at least one.
func (c Ciphertext) Integral() (Ciphertext, error) {
	a, err := c.decreaseExponentTo(0)
	if err != nil {
		return Ciphertext{}, err
	}
	a.exponent = 0
	return a, nil
}

// decreaseExponentTo rescales c to a smaller exponent without changing its
// value.
func (c Ciphertext) decreaseExponentTo(exponent int) (Ciphertext, error) {
	if err := c.check(); err != nil {
		return Ciphertext{}, err
	}
	if exponent >= c.exponent {
		return c, nil
	}
	scaled, err := c.MulInt(pow16(c.exponent - exponent))
	if err != nil {
		return Ciphertext{}, err
	}
	scaled.exponent = exponent
	return scaled, nil
}

// Align rescales a and b to a common exponent.
func Align(a, b Ciphertext) (Ciphertext, Ciphertext, error) {
	if err := a.compatible(b); err != nil {
		return Ciphertext{}, Ciphertext{}, err
	}
	return align(a, b)
}

func align(a, b Ciphertext) (Ciphertext, Ciphertext, error) {
	exponent := min(a.exponent, b.exponent)
	a, err := a.decreaseExponentTo(exponent)
	if err != nil {
		return Ciphertext{}, Ciphertext{}, err
	}
	b, err = b.decreaseExponentTo(exponent)
	if err != nil {
		return Ciphertext{}, Ciphertext{}, err
	}
	return a, b, nil
}
