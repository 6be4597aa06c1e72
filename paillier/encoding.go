package paillier

import (
	"fmt"
	"math"
	"math/big"
)

// Base is the radix of the fixed-point encoding: a plaintext is
// Mantissa * Base^Exponent.
const Base = 16

const (
	log2Base      = 4
	floatMantissa = 53
)

var bigBase = big.NewInt(Base)

// Encoded is a signed fixed-point plaintext, Mantissa * 16^Exponent.
type Encoded struct {
	Mantissa *big.Int
	Exponent int
}

// EncodeInt encodes x exactly at exponent 0.
func EncodeInt(x *big.Int) Encoded {
	return Encoded{Mantissa: new(big.Int).Set(x), Exponent: 0}
}

// EncodeInt64 encodes x exactly at exponent 0.
func EncodeInt64(x int64) Encoded {
	return Encoded{Mantissa: big.NewInt(x), Exponent: 0}
}

// EncodeFloat encodes f keeping the 53 bits of a float64 mantissa; the
// exponent is the largest power of 16 that does not drop any of them.
func EncodeFloat(f float64) (Encoded, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Encoded{}, fmt.Errorf("%w: %v", ErrNotEncodable, f)
	}
	_, binExp := math.Frexp(f)
	exponent := floorDiv(binExp-floatMantissa, log2Base)
	r := new(big.Rat).SetFloat64(f)
	return EncodeRat(r, exponent), nil
}

// EncodeRat encodes r at the given exponent, rounding half away from zero.
func EncodeRat(r *big.Rat, exponent int) Encoded {
	scaled := new(big.Rat).Set(r)
	if exponent < 0 {
		scaled.Mul(scaled, new(big.Rat).SetInt(pow16(-exponent)))
	} else if exponent > 0 {
		scaled.Quo(scaled, new(big.Rat).SetInt(pow16(exponent)))
	}
	return Encoded{Mantissa: roundRat(scaled), Exponent: exponent}
}

// Rat returns the exact value of e.
func (e Encoded) Rat() *big.Rat {
	r := new(big.Rat).SetInt(e.Mantissa)
	if e.Exponent > 0 {
		return r.Mul(r, new(big.Rat).SetInt(pow16(e.Exponent)))
	}
	if e.Exponent < 0 {
		return r.Quo(r, new(big.Rat).SetInt(pow16(-e.Exponent)))
	}
	return r
}

// Float64 returns the nearest float64 to e.
func (e Encoded) Float64() float64 {
	f, _ := e.Rat().Float64()
	return f
}

// IsInteger reports whether the encoded value has no fractional part.
func (e Encoded) IsInteger() bool {
	return e.Rat().IsInt()
}

func (e Encoded) String() string {
	return fmt.Sprintf("%s*16^%d", e.Mantissa, e.Exponent)
}

// decreaseExponentTo rescales e to a smaller exponent without loss.
func (e Encoded) decreaseExponentTo(exponent int) Encoded {
	if exponent >= e.Exponent {
		return e
	}
	m := new(big.Int).Mul(e.Mantissa, pow16(e.Exponent-exponent))
	return Encoded{Mantissa: m, Exponent: exponent}
}

func pow16(k int) *big.Int {
	return new(big.Int).Exp(bigBase, big.NewInt(int64(k)), nil)
}

func roundRat(r *big.Rat) *big.Int {
	num := new(big.Int).Abs(r.Num())
	den := r.Denom()
	q, m := new(big.Int).QuoRem(num, den, new(big.Int))
	if m.Lsh(m, 1).Cmp(den) >= 0 {
		q.Add(q, big.NewInt(1))
	}
	if r.Sign() < 0 {
		q.Neg(q)
	}
	return q
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
