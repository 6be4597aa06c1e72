package smpc

import (
	"context"
	"fmt"
	"math/big"

	"golang.org/x/sync/errgroup"

	"github.com/ontanj/smpc/paillier"
)

// BitCompose folds big-endian encrypted bits back into Enc(sum bit_i*2^(k-1-i)).
// It is the local inverse of BitDec.
func BitCompose(bits []paillier.Ciphertext) (paillier.Ciphertext, error) {
	if len(bits) == 0 {
		return paillier.Ciphertext{}, errorf("BitCompose", "%w: no bits", ErrInvalidParameter)
	}
	acc := bits[0]
	for _, b := range bits[1:] {
		doubled, err := acc.MulInt64(2)
		if err != nil {
			return paillier.Ciphertext{}, wrap("BitCompose", err)
		}
		if acc, err = doubled.Add(b); err != nil {
			return paillier.Ciphertext{}, wrap("BitCompose", err)
		}
	}
	return acc, nil
}

// SumVector returns the encrypted sum of cs.
func SumVector(cs []paillier.Ciphertext) (paillier.Ciphertext, error) {
	if len(cs) == 0 {
		return paillier.Ciphertext{}, errorf("SumVector", "%w: empty vector", ErrInvalidParameter)
	}
	sum := cs[0]
	for _, c := range cs[1:] {
		var err error
		if sum, err = sum.Add(c); err != nil {
			return paillier.Ciphertext{}, wrap("SumVector", err)
		}
	}
	return sum, nil
}

// ScaleVector multiplies every element of cs by the plaintext k.
func ScaleVector(cs []paillier.Ciphertext, k *big.Int) ([]paillier.Ciphertext, error) {
	out := make([]paillier.Ciphertext, len(cs))
	for i, c := range cs {
		var err error
		if out[i], err = c.MulInt(k); err != nil {
			return nil, wrap("ScaleVector", err)
		}
	}
	return out, nil
}

// MulVector returns the element-wise encrypted product of a and b. Each
// product is an independent Mul and they run concurrently.
func (h *Helper) MulVector(ctx context.Context, oracle DecryptionRole, a, b []paillier.Ciphertext) ([]paillier.Ciphertext, error) {
	if len(a) != len(b) {
		return nil, errorf("MulVector", "%w: lengths %d and %d", ErrInvalidParameter, len(a), len(b))
	}
	out := make([]paillier.Ciphertext, len(a))
	g, gctx := errgroup.WithContext(ctx)
	for i := range a {
		i := i
		g.Go(func() error {
			var err error
			out[i], err = h.mul(gctx, oracle, a[i], b[i])
			if err != nil {
				return fmt.Errorf("element %d: %w", i, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, wrap("MulVector", err)
	}
	return out, nil
}

// InnerProduct returns Enc(sum a_i*b_i).
func (h *Helper) InnerProduct(ctx context.Context, oracle DecryptionRole, a, b []paillier.Ciphertext) (paillier.Ciphertext, error) {
	prods, err := h.MulVector(ctx, oracle, a, b)
	if err != nil {
		return paillier.Ciphertext{}, wrap("InnerProduct", err)
	}
	return SumVector(prods)
}
