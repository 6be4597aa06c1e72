package smpc

import (
	"context"
	"testing"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ontanj/smpc/logging"
	"github.com/ontanj/smpc/paillier"
	"github.com/ontanj/smpc/transport"
	"github.com/ontanj/smpc/transport/mocknet"
)

// serve starts a ServeDecryption loop for f's oracle and returns a remote
// oracle talking to it. The loop stops at test cleanup.
func serve(t *testing.T, f *fixture) (*RemoteOracle, *mocknet.Endpoint) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	helperEp, decryptorEp := mocknet.New().Pair()
	done := make(chan error, 1)
	go func() {
		done <- ServeDecryption(ctx, decryptorEp, f.pk, f.oracle, logging.Discard())
	}()
	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-done)
	})
	return NewRemoteOracle(helperEp, f.pk, logging.Discard()), helperEp
}

func TestRemoteOracleScenario(t *testing.T) {
	f := newFixture(t)
	remote, _ := serve(t, f)
	runScenario(t, NewProtocol(f.helper, remote), f.sk)
}

func TestRemoteOracleFixedPoint(t *testing.T) {
	f := newFixture(t)
	remote, _ := serve(t, f)
	ctx := context.Background()

	q, err := f.helper.TrueDiv(ctx, remote, f.float(t, 2.5), f.float(t, -0.75))
	require.NoError(t, err)
	assert.InDelta(t, 2.5/-0.75, f.decryptFloat(t, q), 1e-10)

	ge, err := f.helper.Ge(ctx, remote, f.float(t, 0.1), f.float(t, 0.1))
	require.NoError(t, err)
	assert.Equal(t, int64(1), f.decryptInt(t, ge))
}

func TestRemoteOracleErrors(t *testing.T) {
	f := newFixture(t)
	remote, _ := serve(t, f)
	ctx := context.Background()

	_, err := f.helper.TrueDiv(ctx, remote, f.int(t, 1), f.int(t, 0))
	require.ErrorIs(t, err, ErrDivisionByZero)

	_, err = f.helper.Parity(ctx, remote, f.float(t, 0.5))
	require.ErrorIs(t, err, ErrInvalidOperand)

	_, _, err = remote.Optimum(ctx, f.int(t, 1), f.int(t, 2), f.int(t, 3), Mode(7))
	require.ErrorIs(t, err, ErrInvalidParameter)

	// the loop keeps serving after failed requests
	prod, err := f.helper.Mul(ctx, remote, f.int(t, 6), f.int(t, 7))
	require.NoError(t, err)
	assert.Equal(t, int64(42), f.decryptInt(t, prod))
}

func TestRemoteOracleRejectsForeignCiphertext(t *testing.T) {
	f := newFixture(t)
	remote, _ := serve(t, f)
	foreign, err := otherPK.EncryptInt64(1)
	require.NoError(t, err)

	_, err = remote.IsNegative(context.Background(), foreign)
	require.ErrorIs(t, err, ErrKeyMismatch)
}

func TestRemoteOracleRejectsMismatchedReply(t *testing.T) {
	f := newFixture(t)
	helperEp, decryptorEp := mocknet.New().Pair()
	remote := NewRemoteOracle(helperEp, f.pk, logging.Discard())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	go func() {
		if _, err := decryptorEp.Receive(ctx, transport.Helper); err != nil {
			return
		}
		id := uuid.New()
		reply, _ := cbor.Marshal(oracleResponse{ID: id[:], Code: codeOK})
		_ = decryptorEp.Send(ctx, transport.Helper, reply)
	}()

	_, err := remote.Parity(ctx, f.int(t, 3))
	require.ErrorIs(t, err, ErrProtocol)
}

func TestRemoteOracleDropsAbandonedReplies(t *testing.T) {
	f := newFixture(t)
	helperEp, decryptorEp := mocknet.New().Pair()
	remote := NewRemoteOracle(helperEp, f.pk, logging.Discard())

	// first call gives up before the server answers
	short, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := remote.IsNegative(short, f.int(t, -1))
	require.ErrorIs(t, err, context.DeadlineExceeded)

	ctx, stop := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- ServeDecryption(ctx, decryptorEp, f.pk, f.oracle, logging.Discard())
	}()
	defer func() {
		stop()
		require.NoError(t, <-done)
	}()

	res, err := remote.IsNegative(context.Background(), f.int(t, 5))
	require.NoError(t, err)
	assert.Equal(t, int64(0), f.decryptInt(t, res))
}

func TestServeAnswersGarbageWithProtocolError(t *testing.T) {
	f := newFixture(t)
	helperEp, decryptorEp := mocknet.New().Pair()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- ServeDecryption(ctx, decryptorEp, f.pk, f.oracle, logging.Discard())
	}()
	defer func() {
		cancel()
		require.NoError(t, <-done)
	}()

	require.NoError(t, helperEp.Send(ctx, transport.Decryptor, []byte{0xff, 0x00}))
	msg, err := helperEp.Receive(ctx, transport.Decryptor)
	require.NoError(t, err)
	var resp oracleResponse
	require.NoError(t, cbor.Unmarshal(msg, &resp))
	assert.Equal(t, codeProtocol, resp.Code)

	id := uuid.New()
	req, err := cbor.Marshal(oracleRequest{ID: id[:], Op: opCode(99)})
	require.NoError(t, err)
	require.NoError(t, helperEp.Send(ctx, transport.Decryptor, req))
	msg, err = helperEp.Receive(ctx, transport.Decryptor)
	require.NoError(t, err)
	require.NoError(t, cbor.Unmarshal(msg, &resp))
	assert.Equal(t, id[:], resp.ID)
	assert.Equal(t, codeProtocol, resp.Code)
}

func TestErrorCodesRoundTrip(t *testing.T) {
	for _, ce := range codeErrors {
		err := codeError(errorCode(&Error{Op: "x", Err: ce.err}), "detail")
		assert.ErrorIs(t, err, ce.err)
	}
	assert.Equal(t, codeInternal, errorCode(assert.AnError))
	assert.ErrorIs(t, codeError(codeInternal, "boom"), ErrProtocol)
}

func TestMarshalledCiphertextsDecodeUnderSameKey(t *testing.T) {
	f := newFixture(t)
	raw, err := marshalAll([]paillier.Ciphertext{f.int(t, 9), f.float(t, -0.5)})
	require.NoError(t, err)

	cs, err := unmarshalAll(f.pk, raw, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(9), f.decryptInt(t, cs[0]))
	assert.Equal(t, -0.5, f.decryptFloat(t, cs[1]))

	_, err = unmarshalAll(otherPK, raw, 2)
	require.ErrorIs(t, err, ErrKeyMismatch)
	_, err = unmarshalAll(f.pk, raw, 3)
	require.ErrorIs(t, err, ErrProtocol)
}
