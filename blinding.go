package smpc

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"sync"

	"github.com/zeebo/blake3"
	"golang.org/x/crypto/blake2b"
)

// Randomness samples blinding factors, sign flags and coins. It is safe for
// concurrent use; draws are serialised so a seeded source yields one
// reproducible stream.
type Randomness struct {
	mu  sync.Mutex
	src io.Reader
}

// NewRandomness samples from src. A nil src means crypto/rand.
func NewRandomness(src io.Reader) *Randomness {
	if src == nil {
		src = rand.Reader
	}
	return &Randomness{src: src}
}

// NewSeededRandomness returns a deterministic source keyed by seed. Use it
// for tests only: anyone knowing the seed can strip every blinding factor.
func NewSeededRandomness(seed []byte) (*Randomness, error) {
	key := blake3.Sum256(seed)
	xof, err := blake2b.NewXOF(blake2b.OutputLengthUnknown, key[:])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRandomnessUnavailable, err)
	}
	return NewRandomness(xof), nil
}

// Read implements io.Reader.
func (r *Randomness) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, err := io.ReadFull(r.src, p)
	if err != nil {
		return n, fmt.Errorf("%w: %v", ErrRandomnessUnavailable, err)
	}
	return n, nil
}

// Int returns a uniform integer in [0, max). Read failures already carry
// ErrRandomnessUnavailable.
func (r *Randomness) Int(max *big.Int) (*big.Int, error) {
	if max.Sign() <= 0 {
		return nil, fmt.Errorf("%w: sampling bound %s", ErrInvalidParameter, max)
	}
	return rand.Int(r, max)
}

// BlindingFactor returns a fresh uniform integer in [1, 2^bits).
func (r *Randomness) BlindingFactor(bits int) (*big.Int, error) {
	if bits < 1 {
		return nil, fmt.Errorf("%w: blinding bits %d", ErrInvalidParameter, bits)
	}
	bound := new(big.Int).Lsh(big.NewInt(1), uint(bits))
	bound.Sub(bound, big.NewInt(1))
	v, err := r.Int(bound)
	if err != nil {
		return nil, err
	}
	return v.Add(v, big.NewInt(1)), nil
}

// BlindingFactors draws n independent factors.
func (r *Randomness) BlindingFactors(bits, n int) ([]*big.Int, error) {
	out := make([]*big.Int, n)
	for i := range out {
		v, err := r.BlindingFactor(bits)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// OrderedPair returns blinding factors with hi > lo >= 1.
func (r *Randomness) OrderedPair(bits int) (hi, lo *big.Int, err error) {
	for {
		a, err := r.BlindingFactor(bits)
		if err != nil {
			return nil, nil, err
		}
		b, err := r.BlindingFactor(bits)
		if err != nil {
			return nil, nil, err
		}
		switch a.Cmp(b) {
		case 1:
			return a, b, nil
		case -1:
			return b, a, nil
		}
	}
}

// Coin returns a fair random bit.
func (r *Randomness) Coin() (bool, error) {
	var b [1]byte
	if _, err := r.Read(b[:]); err != nil {
		return false, err
	}
	return b[0]&1 == 1, nil
}

// Sign returns -1 or +1 with equal probability.
func (r *Randomness) Sign() (int64, error) {
	heads, err := r.Coin()
	if err != nil {
		return 0, err
	}
	if heads {
		return -1, nil
	}
	return 1, nil
}
