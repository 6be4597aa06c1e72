package smpc

import (
	"fmt"
	"io"

	"github.com/ontanj/smpc/logging"
	"github.com/ontanj/smpc/paillier"
)

const (
	// DefaultKeyBits is the modulus size used by Setup.
	DefaultKeyBits = 2048

	// DefaultDivisionDigits is the number of fractional base-16 digits of a
	// quotient, i.e. 128 fractional bits.
	DefaultDivisionDigits = 32

	// MinBlindingBits is the smallest accepted blinding factor size.
	MinBlindingBits = 40
)

// Setting configures both parties. Zero fields fall back to defaults.
type Setting struct {
	KeyBits int // modulus size for Setup

	// BlindingBits sizes blinding factors, drawn from [1, 2^BlindingBits).
	// Defaults to a quarter of the modulus bit length and must lie in
	// [MinBlindingBits, N.BitLen()/3].
	BlindingBits int

	DivisionDigits int // fractional hex digits of TrueDiv results

	Randomness io.Reader // nil means crypto/rand
	Logger     logging.Logger
}

// withDefaults resolves zero fields against pk and validates the result.
func (s Setting) withDefaults(pk *paillier.PublicKey) (Setting, error) {
	if pk == nil {
		return s, fmt.Errorf("%w: nil public key", ErrInvalidParameter)
	}
	bits := pk.BitLen()
	if s.BlindingBits == 0 {
		s.BlindingBits = bits / 4
	}
	if s.DivisionDigits == 0 {
		s.DivisionDigits = DefaultDivisionDigits
	}
	if s.Logger == nil {
		s.Logger = logging.New(nil)
	}
	if s.BlindingBits < MinBlindingBits || s.BlindingBits > bits/3 {
		return s, fmt.Errorf("%w: blinding bits %d outside [%d, %d]",
			ErrInvalidParameter, s.BlindingBits, MinBlindingBits, bits/3)
	}
	// quotients are blinded by up to BlindingBits and scaled by 16^digits
	if s.DivisionDigits < 1 || 4*s.DivisionDigits+s.BlindingBits+2 >= bits {
		return s, fmt.Errorf("%w: division digits %d", ErrInvalidParameter, s.DivisionDigits)
	}
	return s, nil
}

func (s Setting) keyBits() int {
	if s.KeyBits == 0 {
		return DefaultKeyBits
	}
	return s.KeyBits
}

func (s Setting) randomness() *Randomness {
	if r, ok := s.Randomness.(*Randomness); ok {
		return r
	}
	return NewRandomness(s.Randomness)
}
