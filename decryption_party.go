package smpc

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ontanj/smpc/logging"
	"github.com/ontanj/smpc/paillier"
	"github.com/ontanj/smpc/transport"
)

// DecryptionParty answers oracle calls with the secret key. It keeps no
// state between calls and never returns a plaintext.
type DecryptionParty struct {
	pk             *paillier.PublicKey
	sk             *paillier.SecretKey
	divisionDigits int
	log            logging.Logger
}

// NewDecryptionParty binds sk to an oracle configured by setting.
func NewDecryptionParty(sk *paillier.SecretKey, setting Setting) (*DecryptionParty, error) {
	if sk == nil {
		return nil, errorf("NewDecryptionParty", "%w: nil secret key", ErrInvalidParameter)
	}
	s, err := setting.withDefaults(sk.PublicKey())
	if err != nil {
		return nil, wrap("NewDecryptionParty", err)
	}
	return &DecryptionParty{
		pk:             sk.PublicKey(),
		sk:             sk,
		divisionDigits: s.DivisionDigits,
		log:            logging.ForParty(s.Logger, transport.Decryptor, ""),
	}, nil
}

// PublicKey is the key the oracle decrypts under.
func (d *DecryptionParty) PublicKey() *paillier.PublicKey {
	return d.pk
}

func (d *DecryptionParty) decrypt(ctx context.Context, op string, h paillier.Ciphertext) (paillier.Encoded, error) {
	v, err := d.sk.DecryptEncoded(h)
	if err != nil {
		return paillier.Encoded{}, err
	}
	d.log.Debug(ctx, "oracle decrypt", "op", op, logging.Exponents(h.Exponent()), logging.Redacted("plaintext"))
	return v, nil
}

func (d *DecryptionParty) encryptBit(set bool) (paillier.Ciphertext, error) {
	if set {
		return d.pk.EncryptInt64(1)
	}
	return d.pk.EncryptInt64(0)
}

// Mul re-encrypts the product. A product finer than the division precision
// is rounded to it, so exponents stay bounded across chained
// multiplications of fixed-point values.
func (d *DecryptionParty) Mul(ctx context.Context, h1, h2 paillier.Ciphertext) (paillier.Ciphertext, error) {
	a, err := d.decrypt(ctx, "mul", h1)
	if err != nil {
		return paillier.Ciphertext{}, wrap("oracle.Mul", err)
	}
	b, err := d.decrypt(ctx, "mul", h2)
	if err != nil {
		return paillier.Ciphertext{}, wrap("oracle.Mul", err)
	}
	prod := paillier.Encoded{
		Mantissa: new(big.Int).Mul(a.Mantissa, b.Mantissa),
		Exponent: a.Exponent + b.Exponent,
	}
	if prod.Exponent < -d.divisionDigits {
		prod = paillier.EncodeRat(prod.Rat(), -d.divisionDigits)
	}
	c, err := d.pk.Encrypt(prod)
	return c, wrap("oracle.Mul", err)
}

// TrueDiv checks the divisor before touching the dividend. The quotient is
// rounded to a fixed number of fractional digits so its exponent does not
// depend on the operands.
func (d *DecryptionParty) TrueDiv(ctx context.Context, h1, h2 paillier.Ciphertext) (paillier.Ciphertext, error) {
	b, err := d.decrypt(ctx, "truediv", h2)
	if err != nil {
		return paillier.Ciphertext{}, wrap("oracle.TrueDiv", err)
	}
	if b.Mantissa.Sign() == 0 {
		return paillier.Ciphertext{}, &Error{Op: "oracle.TrueDiv", Err: ErrDivisionByZero}
	}
	a, err := d.decrypt(ctx, "truediv", h1)
	if err != nil {
		return paillier.Ciphertext{}, wrap("oracle.TrueDiv", err)
	}
	q := new(big.Rat).Quo(a.Rat(), b.Rat())
	c, err := d.pk.Encrypt(paillier.EncodeRat(q, -d.divisionDigits))
	return c, wrap("oracle.TrueDiv", err)
}

func (d *DecryptionParty) Optimum(ctx context.Context, h1, h2, h3 paillier.Ciphertext, mode Mode) (alpha, beta paillier.Ciphertext, err error) {
	const op = "oracle.Optimum"
	if !mode.valid() {
		return alpha, beta, errorf(op, "%w: mode %s", ErrInvalidParameter, mode)
	}
	for _, h := range []paillier.Ciphertext{h2, h3} {
		if !d.pk.Equal(h.PublicKey()) {
			return alpha, beta, &Error{Op: op, Err: ErrKeyMismatch}
		}
	}
	diff, err := d.decrypt(ctx, "optimum", h1)
	if err != nil {
		return alpha, beta, wrap(op, err)
	}
	sign := diff.Mantissa.Sign()
	branchA := (mode == Max && sign > 0) || (mode == Min && sign < 0)

	alpha, err = d.encryptBit(branchA)
	if err != nil {
		return paillier.Ciphertext{}, paillier.Ciphertext{}, wrap(op, err)
	}
	selected := h2
	if branchA {
		selected = h3
	}
	beta, err = selected.Rerandomize()
	if err != nil {
		return paillier.Ciphertext{}, paillier.Ciphertext{}, wrap(op, err)
	}
	return alpha, beta, nil
}

// Parity uses the Euclidean remainder, so negative odd values map to one.
func (d *DecryptionParty) Parity(ctx context.Context, h paillier.Ciphertext) (paillier.Ciphertext, error) {
	v, err := d.decrypt(ctx, "parity", h)
	if err != nil {
		return paillier.Ciphertext{}, wrap("oracle.Parity", err)
	}
	if !v.IsInteger() {
		return paillier.Ciphertext{}, errorf("oracle.Parity", "%w: parity of a non-integer", ErrInvalidOperand)
	}
	odd := v.Rat().Num().Bit(0) == 1
	c, err := d.encryptBit(odd)
	return c, wrap("oracle.Parity", err)
}

func (d *DecryptionParty) IsNegative(ctx context.Context, h paillier.Ciphertext) (paillier.Ciphertext, error) {
	v, err := d.decrypt(ctx, "is_negative", h)
	if err != nil {
		return paillier.Ciphertext{}, wrap("oracle.IsNegative", err)
	}
	c, err := d.encryptBit(v.Mantissa.Sign() < 0)
	return c, wrap("oracle.IsNegative", err)
}

func (d *DecryptionParty) String() string {
	return fmt.Sprintf("DecryptionParty(%x)", d.pk.Fingerprint())
}
