// Package mocknet is an in-memory Transport connecting the helper and the
// decryption party inside one process.
package mocknet

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ontanj/smpc/transport"
)

// Net holds the queued messages of every endpoint created from it.
type Net struct {
	mu sync.Mutex
	q  map[queueKey]chan []byte
}

func New() *Net { return &Net{q: make(map[queueKey]chan []byte)} }

type queueKey struct {
	from transport.RoleID
	to   transport.RoleID
	seq  uint64
}

func (n *Net) slot(key queueKey) chan []byte {
	n.mu.Lock()
	defer n.mu.Unlock()
	ch := n.q[key]
	if ch == nil {
		ch = make(chan []byte, 1)
		n.q[key] = ch
	}
	return ch
}

func (n *Net) deliver(ctx context.Context, key queueKey, payload []byte) error {
	ch := n.slot(key)
	msg := append([]byte(nil), payload...)
	select {
	case ch <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (n *Net) await(ctx context.Context, key queueKey) ([]byte, error) {
	ch := n.slot(key)
	select {
	case msg := <-ch:
		n.mu.Lock()
		delete(n.q, key)
		n.mu.Unlock()
		return msg, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Endpoint is one party's view of a Net.
type Endpoint struct {
	net  *Net
	self transport.RoleID
	peer transport.RoleID

	// send and recv serialise the sequence counters per direction.
	send    sync.Mutex
	sendSeq uint64
	recv    sync.Mutex
	recvSeq uint64
}

// Endpoint returns the endpoint of self talking to peer.
func (n *Net) Endpoint(self, peer transport.RoleID) *Endpoint {
	return &Endpoint{net: n, self: self, peer: peer}
}

// Pair returns connected endpoints for the helper and the decryption party.
func (n *Net) Pair() (helper, decryptor *Endpoint) {
	return n.Endpoint(transport.Helper, transport.Helper.Peer()),
		n.Endpoint(transport.Decryptor, transport.Decryptor.Peer())
}

func (e *Endpoint) checkPeer(role transport.RoleID) error {
	if role == e.self {
		return errors.New("mocknet: message to self")
	}
	if role != e.peer {
		return fmt.Errorf("mocknet: unknown peer %s", role)
	}
	return nil
}

func (e *Endpoint) Send(ctx context.Context, to transport.RoleID, msg []byte) error {
	if err := e.checkPeer(to); err != nil {
		return err
	}
	e.send.Lock()
	defer e.send.Unlock()

	if err := e.net.deliver(ctx, queueKey{from: e.self, to: to, seq: e.sendSeq}, msg); err != nil {
		return err
	}
	e.sendSeq++
	return nil
}

func (e *Endpoint) Receive(ctx context.Context, from transport.RoleID) ([]byte, error) {
	if err := e.checkPeer(from); err != nil {
		return nil, err
	}
	e.recv.Lock()
	defer e.recv.Unlock()

	msg, err := e.net.await(ctx, queueKey{from: from, to: e.self, seq: e.recvSeq})
	if err != nil {
		return nil, err
	}
	e.recvSeq++
	return msg, nil
}

var _ transport.Transport = (*Endpoint)(nil)
