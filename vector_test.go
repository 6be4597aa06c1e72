package smpc

import (
	"context"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ontanj/smpc/paillier"
)

func (f *fixture) ints(t *testing.T, xs ...int64) []paillier.Ciphertext {
	t.Helper()
	out := make([]paillier.Ciphertext, len(xs))
	for i, x := range xs {
		out[i] = f.int(t, x)
	}
	return out
}

func TestMulVectorAndInnerProduct(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.ints(t, 1, -2, 3, 0, 7)
	b := f.ints(t, 4, 5, -6, 9, 1)

	prods, err := f.helper.MulVector(ctx, f.oracle, a, b)
	require.NoError(t, err)
	want := []int64{4, -10, -18, 0, 7}
	for i, p := range prods {
		assert.Equal(t, want[i], f.decryptInt(t, p), "element %d", i)
	}

	dot, err := f.helper.InnerProduct(ctx, f.oracle, a, b)
	require.NoError(t, err)
	assert.Equal(t, int64(-17), f.decryptInt(t, dot))

	_, err = f.helper.MulVector(ctx, f.oracle, a, b[:2])
	require.ErrorIs(t, err, ErrInvalidParameter)
}

func TestMulVectorReportsFailingElement(t *testing.T) {
	f := newFixture(t)
	foreign, err := otherPK.EncryptInt64(1)
	require.NoError(t, err)

	a := f.ints(t, 1, 2)
	b := []paillier.Ciphertext{f.int(t, 3), foreign}
	_, err = f.helper.MulVector(context.Background(), f.oracle, a, b)
	require.ErrorIs(t, err, ErrKeyMismatch)
	assert.Contains(t, err.Error(), "element 1")
}

func TestSumAndScaleVector(t *testing.T) {
	f := newFixture(t)
	cs := f.ints(t, 2, 3, -4)

	sum, err := SumVector(cs)
	require.NoError(t, err)
	assert.Equal(t, int64(1), f.decryptInt(t, sum))

	scaled, err := ScaleVector(cs, big.NewInt(-3))
	require.NoError(t, err)
	assert.Equal(t, int64(12), f.decryptInt(t, scaled[2]))

	_, err = SumVector(nil)
	require.ErrorIs(t, err, ErrInvalidParameter)
}

func TestBitCompose(t *testing.T) {
	f := newFixture(t)

	c, err := BitCompose(f.ints(t, 1, 0, 1, 1))
	require.NoError(t, err)
	assert.Equal(t, int64(11), f.decryptInt(t, c))

	_, err = BitCompose(nil)
	require.ErrorIs(t, err, ErrInvalidParameter)
}
