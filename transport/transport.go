// Package transport defines the message contract between the helper and the
// decryption party.
package transport

import "context"

// RoleID identifies a party on the wire.
type RoleID uint32

const (
	// Helper is the party holding only the public key.
	Helper RoleID = iota
	// Decryptor is the party holding the secret key.
	Decryptor
)

func (r RoleID) String() string {
	switch r {
	case Helper:
		return "helper"
	case Decryptor:
		return "decryptor"
	}
	return "unknown"
}

// Peer returns the other party of the two-party setting.
func (r RoleID) Peer() RoleID {
	if r == Helper {
		return Decryptor
	}
	return Helper
}

// Transport delivers opaque messages between the two parties. Messages from
// one sender to one receiver arrive in the order they were sent.
//
// Implementations must be safe for concurrent use by multiple goroutines and
// should honour ctx cancellation on both Send and Receive.
type Transport interface {
	Send(ctx context.Context, to RoleID, msg []byte) error
	Receive(ctx context.Context, from RoleID) ([]byte, error)
}
