package smpc

import (
	"context"
	"fmt"
	"math/big"

	"golang.org/x/sync/errgroup"

	"github.com/ontanj/smpc/logging"
	"github.com/ontanj/smpc/paillier"
	"github.com/ontanj/smpc/transport"
)

// Helper runs the protocols holding only the public key. Blinding factors
// are drawn fresh for every call and never reused.
type Helper struct {
	pk           *paillier.PublicKey
	rng          *Randomness
	blindingBits int
	log          logging.Logger
}

// NewHelper returns a helper for pk configured by setting.
func NewHelper(pk *paillier.PublicKey, setting Setting) (*Helper, error) {
	s, err := setting.withDefaults(pk)
	if err != nil {
		return nil, wrap("NewHelper", err)
	}
	return &Helper{
		pk:           pk,
		rng:          s.randomness(),
		blindingBits: s.BlindingBits,
		log:          logging.ForParty(s.Logger, transport.Helper, ""),
	}, nil
}

// PublicKey is the key all operands must be encrypted under.
func (h *Helper) PublicKey() *paillier.PublicKey {
	return h.pk
}

// BlindingBits is the size of the blinding factors in bits.
func (h *Helper) BlindingBits() int {
	return h.blindingBits
}

func (h *Helper) own(cs ...paillier.Ciphertext) error {
	for _, c := range cs {
		if c.PublicKey() == nil || c.Value() == nil {
			return ErrMalformedCiphertext
		}
		if !h.pk.Equal(c.PublicKey()) {
			return ErrKeyMismatch
		}
	}
	return nil
}

func (h *Helper) trace(ctx context.Context, op string, cs ...paillier.Ciphertext) {
	exps := make([]int, len(cs))
	for i, c := range cs {
		exps[i] = c.Exponent()
	}
	h.log.Debug(ctx, "protocol", "op", op, logging.Exponents(exps...))
}

// oneMinus returns Enc(1 - x).
func oneMinus(c paillier.Ciphertext) (paillier.Ciphertext, error) {
	neg, err := c.Neg()
	if err != nil {
		return paillier.Ciphertext{}, err
	}
	return neg.AddInt64(1)
}

// Mul returns Enc(x1*x2). Both operands are blinded additively; the oracle
// multiplies and the cross terms c1*r2 + c2*r1 + r1*r2 are removed locally.
func (h *Helper) Mul(ctx context.Context, oracle DecryptionRole, c1, c2 paillier.Ciphertext) (paillier.Ciphertext, error) {
	res, err := h.mul(ctx, oracle, c1, c2)
	return res, wrap("Mul", err)
}

func (h *Helper) mul(ctx context.Context, oracle DecryptionRole, c1, c2 paillier.Ciphertext) (paillier.Ciphertext, error) {
	var zero paillier.Ciphertext
	if err := h.own(c1, c2); err != nil {
		return zero, err
	}
	h.trace(ctx, "mul", c1, c2)
	r, err := h.rng.BlindingFactors(h.blindingBits, 2)
	if err != nil {
		return zero, err
	}
	r1, r2 := r[0], r[1]

	h1, err := c1.AddInt(r1)
	if err != nil {
		return zero, err
	}
	h2, err := c2.AddInt(r2)
	if err != nil {
		return zero, err
	}
	blinded, err := oracle.Mul(ctx, h1, h2)
	if err != nil {
		return zero, err
	}

	t1, err := c1.MulInt(new(big.Int).Neg(r2))
	if err != nil {
		return zero, err
	}
	t2, err := c2.MulInt(new(big.Int).Neg(r1))
	if err != nil {
		return zero, err
	}
	res, err := blinded.Add(t1)
	if err != nil {
		return zero, err
	}
	if res, err = res.Add(t2); err != nil {
		return zero, err
	}
	return res.AddInt(new(big.Int).Neg(new(big.Int).Mul(r1, r2)))
}

// TrueDiv returns Enc(x1/x2) rounded to the oracle's division precision.
// The oracle sees (r1*x1 + r1*r2*x2) / (r1*x2) = x1/x2 + r2.
func (h *Helper) TrueDiv(ctx context.Context, oracle DecryptionRole, c1, c2 paillier.Ciphertext) (paillier.Ciphertext, error) {
	res, err := h.trueDiv(ctx, oracle, c1, c2)
	return res, wrap("TrueDiv", err)
}

func (h *Helper) trueDiv(ctx context.Context, oracle DecryptionRole, c1, c2 paillier.Ciphertext) (paillier.Ciphertext, error) {
	var zero paillier.Ciphertext
	if err := h.own(c1, c2); err != nil {
		return zero, err
	}
	h.trace(ctx, "truediv", c1, c2)
	r, err := h.rng.BlindingFactors(h.blindingBits, 2)
	if err != nil {
		return zero, err
	}
	r1, r2 := r[0], r[1]

	a, err := c1.MulInt(r1)
	if err != nil {
		return zero, err
	}
	b, err := c2.MulInt(new(big.Int).Mul(r1, r2))
	if err != nil {
		return zero, err
	}
	h1, err := a.Add(b)
	if err != nil {
		return zero, err
	}
	h2, err := c2.MulInt(r1)
	if err != nil {
		return zero, err
	}
	blinded, err := oracle.TrueDiv(ctx, h1, h2)
	if err != nil {
		return zero, err
	}
	return blinded.AddInt(new(big.Int).Neg(r2))
}

// Optimum returns Enc(max(x1, x2)) or Enc(min(x1, x2)). A fair coin decides
// which operand the oracle sees first, and both are aligned to one exponent
// beforehand so the returned ciphertext's exponent does not reveal which was
// selected.
func (h *Helper) Optimum(ctx context.Context, oracle DecryptionRole, c1, c2 paillier.Ciphertext, mode Mode) (paillier.Ciphertext, error) {
	res, err := h.optimum(ctx, oracle, c1, c2, mode)
	return res, wrap("Optimum", err)
}

// Max returns Enc(max(x1, x2)).
func (h *Helper) Max(ctx context.Context, oracle DecryptionRole, c1, c2 paillier.Ciphertext) (paillier.Ciphertext, error) {
	return h.Optimum(ctx, oracle, c1, c2, Max)
}

// Min returns Enc(min(x1, x2)).
func (h *Helper) Min(ctx context.Context, oracle DecryptionRole, c1, c2 paillier.Ciphertext) (paillier.Ciphertext, error) {
	return h.Optimum(ctx, oracle, c1, c2, Min)
}

func (h *Helper) optimum(ctx context.Context, oracle DecryptionRole, c1, c2 paillier.Ciphertext, mode Mode) (paillier.Ciphertext, error) {
	var zero paillier.Ciphertext
	if !mode.valid() {
		return zero, fmt.Errorf("%w: mode %s", ErrInvalidParameter, mode)
	}
	if err := h.own(c1, c2); err != nil {
		return zero, err
	}
	h.trace(ctx, "optimum", c1, c2)
	c1, c2, err := paillier.Align(c1, c2)
	if err != nil {
		return zero, err
	}
	r, err := h.rng.BlindingFactors(h.blindingBits, 3)
	if err != nil {
		return zero, err
	}
	r1, r2, r3 := r[0], r[1], r[2]
	swap, err := h.rng.Coin()
	if err != nil {
		return zero, err
	}
	ca, cb := c1, c2
	if swap {
		ca, cb = c2, c1
	}

	diff, err := ca.Sub(cb)
	if err != nil {
		return zero, err
	}
	h1, err := diff.MulInt(r1)
	if err != nil {
		return zero, err
	}
	h2, err := ca.AddInt(r2)
	if err != nil {
		return zero, err
	}
	h3, err := cb.AddInt(r3)
	if err != nil {
		return zero, err
	}
	alpha, beta, err := oracle.Optimum(ctx, h1, h2, h3, mode)
	if err != nil {
		return zero, err
	}

	// c1 + c2 - beta + alpha*r3 + (1-alpha)*r2 = c1 + c2 - beta + r2 + alpha*(r3-r2)
	sum, err := c1.Add(c2)
	if err != nil {
		return zero, err
	}
	if sum, err = sum.Sub(beta); err != nil {
		return zero, err
	}
	unblind, err := alpha.MulInt(new(big.Int).Sub(r3, r2))
	if err != nil {
		return zero, err
	}
	if unblind, err = unblind.AddInt(r2); err != nil {
		return zero, err
	}
	return sum.Add(unblind)
}

// Parity returns Enc(x mod 2) with the Euclidean remainder. x must be an
// integer; the parity of x + r flips exactly when r is odd.
func (h *Helper) Parity(ctx context.Context, oracle DecryptionRole, c paillier.Ciphertext) (paillier.Ciphertext, error) {
	res, err := h.parity(ctx, oracle, c)
	return res, wrap("Parity", err)
}

func (h *Helper) parity(ctx context.Context, oracle DecryptionRole, c paillier.Ciphertext) (paillier.Ciphertext, error) {
	var zero paillier.Ciphertext
	if err := h.own(c); err != nil {
		return zero, err
	}
	h.trace(ctx, "parity", c)
	r, err := h.rng.BlindingFactor(h.blindingBits)
	if err != nil {
		return zero, err
	}
	blinded, err := c.AddInt(r)
	if err != nil {
		return zero, err
	}
	alpha, err := oracle.Parity(ctx, blinded)
	if err != nil {
		return zero, err
	}
	if r.Bit(0) == 0 {
		return alpha, nil
	}
	return oneMinus(alpha)
}

// BitDec returns the bit encrypted bits of x, most significant first. x must
// satisfy 0 <= x < 2^bit; higher bits are dropped silently.
func (h *Helper) BitDec(ctx context.Context, oracle DecryptionRole, c paillier.Ciphertext, bit int) ([]paillier.Ciphertext, error) {
	res, err := h.bitDec(ctx, oracle, c, bit)
	return res, wrap("BitDec", err)
}

func (h *Helper) bitDec(ctx context.Context, oracle DecryptionRole, c paillier.Ciphertext, bit int) ([]paillier.Ciphertext, error) {
	if bit < 1 {
		return nil, fmt.Errorf("%w: bit length %d", ErrInvalidParameter, bit)
	}
	if err := h.own(c); err != nil {
		return nil, err
	}
	h.trace(ctx, "bit_dec", c)
	// a positive exponent may leave an odd mantissa on an even value
	if c.Exponent() > 0 {
		var err error
		if c, err = c.Integral(); err != nil {
			return nil, err
		}
	}
	bits := make([]paillier.Ciphertext, bit)
	for i := bit - 1; i >= 0; i-- {
		b, err := h.parity(ctx, oracle, c)
		if err != nil {
			return nil, err
		}
		bits[i] = b
		if i == 0 {
			break
		}
		even, err := c.Sub(b)
		if err != nil {
			return nil, err
		}
		if c, err = even.Halve(); err != nil {
			return nil, err
		}
	}
	return bits, nil
}

// checkBits rejects fixed-point operands of bitwise operations. Values
// other than 0 and 1 at exponent 0 cannot be detected without decryption.
func checkBits(cs ...paillier.Ciphertext) error {
	for _, c := range cs {
		if c.Exponent() != 0 {
			return fmt.Errorf("%w: bit operand at exponent %d", ErrInvalidOperand, c.Exponent())
		}
	}
	return nil
}

// BitAnd returns Enc(b1 AND b2) for bits b1, b2.
func (h *Helper) BitAnd(ctx context.Context, oracle DecryptionRole, c1, c2 paillier.Ciphertext) (paillier.Ciphertext, error) {
	res, err := h.bitAnd(ctx, oracle, c1, c2)
	return res, wrap("BitAnd", err)
}

func (h *Helper) bitAnd(ctx context.Context, oracle DecryptionRole, c1, c2 paillier.Ciphertext) (paillier.Ciphertext, error) {
	if err := checkBits(c1, c2); err != nil {
		return paillier.Ciphertext{}, err
	}
	return h.mul(ctx, oracle, c1, c2)
}

// BitOr returns Enc(b1 + b2 - b1*b2).
func (h *Helper) BitOr(ctx context.Context, oracle DecryptionRole, c1, c2 paillier.Ciphertext) (paillier.Ciphertext, error) {
	res, err := h.bitOr(ctx, oracle, c1, c2)
	return res, wrap("BitOr", err)
}

func (h *Helper) bitOr(ctx context.Context, oracle DecryptionRole, c1, c2 paillier.Ciphertext) (paillier.Ciphertext, error) {
	var zero paillier.Ciphertext
	and, err := h.bitAnd(ctx, oracle, c1, c2)
	if err != nil {
		return zero, err
	}
	sum, err := c1.Add(c2)
	if err != nil {
		return zero, err
	}
	return sum.Sub(and)
}

// BitNot returns Enc(1 - b) without contacting the oracle.
func (h *Helper) BitNot(c paillier.Ciphertext) (paillier.Ciphertext, error) {
	if err := h.own(c); err != nil {
		return paillier.Ciphertext{}, wrap("BitNot", err)
	}
	if err := checkBits(c); err != nil {
		return paillier.Ciphertext{}, wrap("BitNot", err)
	}
	res, err := oneMinus(c)
	return res, wrap("BitNot", err)
}

// BitXor returns Enc(b1 + b2 - 2*b1*b2).
func (h *Helper) BitXor(ctx context.Context, oracle DecryptionRole, c1, c2 paillier.Ciphertext) (paillier.Ciphertext, error) {
	res, err := h.bitXor(ctx, oracle, c1, c2)
	return res, wrap("BitXor", err)
}

func (h *Helper) bitXor(ctx context.Context, oracle DecryptionRole, c1, c2 paillier.Ciphertext) (paillier.Ciphertext, error) {
	var zero paillier.Ciphertext
	and, err := h.bitAnd(ctx, oracle, c1, c2)
	if err != nil {
		return zero, err
	}
	twice, err := and.MulInt64(2)
	if err != nil {
		return zero, err
	}
	sum, err := c1.Add(c2)
	if err != nil {
		return zero, err
	}
	return sum.Sub(twice)
}

// signTest asks the oracle whether r1*sigma*d + offset is negative, with
// offset = sigma*r2 and r1 > r2 > 0, and maps the answer back through sigma.
// d is reinterpreted at exponent 0 first so a non-zero d has magnitude at
// least one and dominates r2.
func (h *Helper) signTest(ctx context.Context, oracle DecryptionRole, d paillier.Ciphertext, negOffset bool) (paillier.Ciphertext, error) {
	var zero paillier.Ciphertext
	sigma, err := h.rng.Sign()
	if err != nil {
		return zero, err
	}
	r1, r2, err := h.rng.OrderedPair(h.blindingBits)
	if err != nil {
		return zero, err
	}
	d, err = d.Integral()
	if err != nil {
		return zero, err
	}
	s := big.NewInt(sigma)
	alpha, err := d.MulInt(new(big.Int).Mul(r1, s))
	if err != nil {
		return zero, err
	}
	offset := new(big.Int).Mul(r2, s)
	if negOffset {
		offset.Neg(offset)
	}
	if alpha, err = alpha.AddInt(offset); err != nil {
		return zero, err
	}
	neg, err := oracle.IsNegative(ctx, alpha)
	if err != nil {
		return zero, err
	}
	if sigma == 1 {
		return neg, nil
	}
	return oneMinus(neg)
}

// Eq returns Enc(1) if x1 == x2, else Enc(0). The oracle only sees the sign
// of r1*sigma*(x1-x2)^2 - sigma*r2.
func (h *Helper) Eq(ctx context.Context, oracle DecryptionRole, c1, c2 paillier.Ciphertext) (paillier.Ciphertext, error) {
	res, err := h.eq(ctx, oracle, c1, c2)
	return res, wrap("Eq", err)
}

func (h *Helper) eq(ctx context.Context, oracle DecryptionRole, c1, c2 paillier.Ciphertext) (paillier.Ciphertext, error) {
	var zero paillier.Ciphertext
	if err := h.own(c1, c2); err != nil {
		return zero, err
	}
	h.trace(ctx, "eq", c1, c2)
	diff, err := c1.Sub(c2)
	if err != nil {
		return zero, err
	}
	// square at exponent 0 so the oracle's product rounding cannot zero it
	if diff, err = diff.Integral(); err != nil {
		return zero, err
	}
	square, err := h.mul(ctx, oracle, diff, diff)
	if err != nil {
		return zero, err
	}
	return h.signTest(ctx, oracle, square, true)
}

// Ne returns Enc(1) if x1 != x2, else Enc(0).
func (h *Helper) Ne(ctx context.Context, oracle DecryptionRole, c1, c2 paillier.Ciphertext) (paillier.Ciphertext, error) {
	eq, err := h.eq(ctx, oracle, c1, c2)
	if err != nil {
		return paillier.Ciphertext{}, wrap("Ne", err)
	}
	res, err := oneMinus(eq)
	return res, wrap("Ne", err)
}

// Gt returns Enc(1) if x1 > x2, else Enc(0).
func (h *Helper) Gt(ctx context.Context, oracle DecryptionRole, c1, c2 paillier.Ciphertext) (paillier.Ciphertext, error) {
	res, err := h.gt(ctx, oracle, c1, c2)
	return res, wrap("Gt", err)
}

func (h *Helper) gt(ctx context.Context, oracle DecryptionRole, c1, c2 paillier.Ciphertext) (paillier.Ciphertext, error) {
	if err := h.own(c1, c2); err != nil {
		return paillier.Ciphertext{}, err
	}
	h.trace(ctx, "gt", c1, c2)
	d, err := c2.Sub(c1)
	if err != nil {
		return paillier.Ciphertext{}, err
	}
	return h.signTest(ctx, oracle, d, false)
}

// Lt returns Enc(1) if x1 < x2, else Enc(0).
func (h *Helper) Lt(ctx context.Context, oracle DecryptionRole, c1, c2 paillier.Ciphertext) (paillier.Ciphertext, error) {
	res, err := h.lt(ctx, oracle, c1, c2)
	return res, wrap("Lt", err)
}

func (h *Helper) lt(ctx context.Context, oracle DecryptionRole, c1, c2 paillier.Ciphertext) (paillier.Ciphertext, error) {
	if err := h.own(c1, c2); err != nil {
		return paillier.Ciphertext{}, err
	}
	h.trace(ctx, "lt", c1, c2)
	d, err := c1.Sub(c2)
	if err != nil {
		return paillier.Ciphertext{}, err
	}
	return h.signTest(ctx, oracle, d, false)
}

// Ge returns Enc(1) if x1 >= x2, else Enc(0).
func (h *Helper) Ge(ctx context.Context, oracle DecryptionRole, c1, c2 paillier.Ciphertext) (paillier.Ciphertext, error) {
	res, err := h.orEq(ctx, oracle, c1, c2, h.gt)
	return res, wrap("Ge", err)
}

// Le returns Enc(1) if x1 <= x2, else Enc(0).
func (h *Helper) Le(ctx context.Context, oracle DecryptionRole, c1, c2 paillier.Ciphertext) (paillier.Ciphertext, error) {
	res, err := h.orEq(ctx, oracle, c1, c2, h.lt)
	return res, wrap("Le", err)
}

type comparison func(ctx context.Context, oracle DecryptionRole, c1, c2 paillier.Ciphertext) (paillier.Ciphertext, error)

// orEq runs eq and strict concurrently and ORs the results.
func (h *Helper) orEq(ctx context.Context, oracle DecryptionRole, c1, c2 paillier.Ciphertext, strict comparison) (paillier.Ciphertext, error) {
	var eq, cmp paillier.Ciphertext
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		eq, err = h.eq(gctx, oracle, c1, c2)
		return err
	})
	g.Go(func() error {
		var err error
		cmp, err = strict(gctx, oracle, c1, c2)
		return err
	})
	if err := g.Wait(); err != nil {
		return paillier.Ciphertext{}, err
	}
	return h.bitOr(ctx, oracle, eq, cmp)
}
