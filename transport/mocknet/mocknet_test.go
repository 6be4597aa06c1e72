package mocknet

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ontanj/smpc/transport"
)

func TestPairSequenceAndOrdering(t *testing.T) {
	helper, decryptor := New().Pair()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	const rounds = 5
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for i := 0; i < rounds; i++ {
			if err := helper.Send(ctx, transport.Decryptor, []byte{byte(i)}); err != nil {
				t.Errorf("helper send %d: %v", i, err)
				return
			}
			got, err := helper.Receive(ctx, transport.Decryptor)
			if err != nil {
				t.Errorf("helper receive %d: %v", i, err)
				return
			}
			if len(got) != 1 || got[0] != byte(i+1) {
				t.Errorf("helper receive %d got %v", i, got)
				return
			}
		}
	}()

	go func() {
		defer wg.Done()
		for i := 0; i < rounds; i++ {
			got, err := decryptor.Receive(ctx, transport.Helper)
			if err != nil {
				t.Errorf("decryptor receive %d: %v", i, err)
				return
			}
			if len(got) != 1 || got[0] != byte(i) {
				t.Errorf("decryptor receive %d got %v", i, got)
				return
			}
			if err := decryptor.Send(ctx, transport.Helper, []byte{byte(i + 1)}); err != nil {
				t.Errorf("decryptor send %d: %v", i, err)
				return
			}
		}
	}()

	wg.Wait()
}

func TestBufferedSendsArriveInOrder(t *testing.T) {
	helper, decryptor := New().Pair()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	go func() {
		for i := 0; i < 3; i++ {
			_ = helper.Send(ctx, transport.Decryptor, []byte{byte(i)})
		}
	}()
	for i := 0; i < 3; i++ {
		got, err := decryptor.Receive(ctx, transport.Helper)
		require.NoError(t, err)
		assert.Equal(t, []byte{byte(i)}, got)
	}
}

func TestSendCopiesPayload(t *testing.T) {
	helper, decryptor := New().Pair()
	ctx := context.Background()

	msg := []byte("abc")
	require.NoError(t, helper.Send(ctx, transport.Decryptor, msg))
	msg[0] = 'x'

	got, err := decryptor.Receive(ctx, transport.Helper)
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), got)
}

func TestRejectsSelfAndUnknownPeers(t *testing.T) {
	helper, _ := New().Pair()
	ctx := context.Background()

	require.Error(t, helper.Send(ctx, transport.Helper, nil))
	_, err := helper.Receive(ctx, transport.RoleID(7))
	require.Error(t, err)
}

func TestReceiveHonoursCancellation(t *testing.T) {
	helper, _ := New().Pair()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := helper.Receive(ctx, transport.Decryptor)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPairEndpointsFacePeers(t *testing.T) {
	helper, decryptor := New().Pair()

	assert.Equal(t, transport.Decryptor, helper.peer)
	assert.Equal(t, transport.Helper, decryptor.peer)
	assert.Equal(t, transport.Helper, transport.Decryptor.Peer())
	assert.Equal(t, transport.Decryptor, transport.Helper.Peer())
}
