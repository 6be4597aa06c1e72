package smpc

import (
	"context"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ontanj/smpc/paillier"
)

func TestOracleMul(t *testing.T) {
	f := newFixture(t)

	res, err := f.oracle.Mul(context.Background(), f.float(t, 1.5), f.int(t, -4))
	require.NoError(t, err)
	require.Zero(t, big.NewRat(-6, 1).Cmp(f.decrypt(t, res)))
}

func TestOracleMulRoundsDeepExponents(t *testing.T) {
	f := newFixture(t)

	third := paillier.EncodeRat(big.NewRat(1, 3), -20)
	c, err := f.pk.Encrypt(third)
	require.NoError(t, err)

	res, err := f.oracle.Mul(context.Background(), c, c)
	require.NoError(t, err)
	assert.Equal(t, -DefaultDivisionDigits, res.Exponent())
	want := paillier.EncodeRat(new(big.Rat).Mul(third.Rat(), third.Rat()), -DefaultDivisionDigits)
	require.Zero(t, want.Rat().Cmp(f.decrypt(t, res)))

	shallow, err := f.oracle.Mul(context.Background(), f.float(t, 1.5), f.float(t, 1.5))
	require.NoError(t, err)
	assert.Equal(t, -26, shallow.Exponent())
}

func TestOracleTrueDiv(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.oracle.TrueDiv(ctx, f.int(t, 1), f.int(t, 3))
	require.NoError(t, err)
	assert.Equal(t, -DefaultDivisionDigits, res.Exponent())
	assert.InDelta(t, 1.0/3.0, f.decryptFloat(t, res), 1e-15)

	_, err = f.oracle.TrueDiv(ctx, f.int(t, 1), f.int(t, 0))
	require.ErrorIs(t, err, ErrDivisionByZero)
}

func TestOracleOptimum(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	h2, h3 := f.int(t, 20), f.int(t, 30)

	cases := []struct {
		diff  int64
		mode  Mode
		alpha int64
		beta  int64
	}{
		{5, Max, 1, 30},
		{-5, Max, 0, 20},
		{0, Max, 0, 20},
		{-5, Min, 1, 30},
		{5, Min, 0, 20},
		{0, Min, 0, 20},
	}
	for _, tc := range cases {
		alpha, beta, err := f.oracle.Optimum(ctx, f.int(t, tc.diff), h2, h3, tc.mode)
		require.NoError(t, err)
		assert.Equal(t, tc.alpha, f.decryptInt(t, alpha), "%d %s", tc.diff, tc.mode)
		assert.Equal(t, tc.beta, f.decryptInt(t, beta), "%d %s", tc.diff, tc.mode)
		// beta is re-randomised so it cannot be matched against h2 or h3
		assert.NotEqual(t, 0, beta.Value().Cmp(h2.Value()))
		assert.NotEqual(t, 0, beta.Value().Cmp(h3.Value()))
	}
}

func TestOracleOptimumRejectsForeignPassThrough(t *testing.T) {
	f := newFixture(t)
	foreign, err := otherPK.EncryptInt64(1)
	require.NoError(t, err)

	_, _, err = f.oracle.Optimum(context.Background(), f.int(t, 1), f.int(t, 2), foreign, Max)
	require.ErrorIs(t, err, ErrKeyMismatch)
}

func TestOracleParityAndSign(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, x := range []int64{-3, -2, 0, 1, 8} {
		par, err := f.oracle.Parity(ctx, f.int(t, x))
		require.NoError(t, err)
		assert.Equal(t, bit(x%2 != 0), f.decryptInt(t, par), "parity(%d)", x)

		neg, err := f.oracle.IsNegative(ctx, f.int(t, x))
		require.NoError(t, err)
		assert.Equal(t, bit(x < 0), f.decryptInt(t, neg), "negative(%d)", x)
	}

	_, err := f.oracle.Parity(ctx, f.float(t, 0.25))
	require.ErrorIs(t, err, ErrInvalidOperand)
}

func TestOracleRejectsForeignKey(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	foreign, err := otherPK.EncryptInt64(2)
	require.NoError(t, err)

	_, err = f.oracle.Mul(ctx, foreign, f.int(t, 1))
	require.ErrorIs(t, err, ErrKeyMismatch)
	_, err = f.oracle.IsNegative(ctx, foreign)
	require.ErrorIs(t, err, ErrKeyMismatch)
	_, err = f.oracle.Parity(ctx, paillier.Ciphertext{})
	require.ErrorIs(t, err, ErrMalformedCiphertext)
}

func TestNewDecryptionPartyRejectsNilKey(t *testing.T) {
	_, err := NewDecryptionParty(nil, Setting{})
	require.ErrorIs(t, err, ErrInvalidParameter)
}
