package smpc

import (
	"context"
	"fmt"

	"github.com/ontanj/smpc/paillier"
)

// Mode selects the extremum computed by Optimum.
type Mode uint8

const (
	Max Mode = iota
	Min
)

func (m Mode) String() string {
	switch m {
	case Max:
		return "max"
	case Min:
		return "min"
	}
	return fmt.Sprintf("Mode(%d)", uint8(m))
}

func (m Mode) valid() bool { return m == Max || m == Min }

// DecryptionRole is the oracle side of every protocol. Implementations hold
// the secret key, see only blinded ciphertexts and return ciphertexts.
type DecryptionRole interface {
	// Mul returns Enc(a*b) for h1 = Enc(a), h2 = Enc(b).
	Mul(ctx context.Context, h1, h2 paillier.Ciphertext) (paillier.Ciphertext, error)
	// TrueDiv returns Enc(a/b), or ErrDivisionByZero when b = 0.
	TrueDiv(ctx context.Context, h1, h2 paillier.Ciphertext) (paillier.Ciphertext, error)
	// Optimum decrypts h1 only. Under Max a positive h1 selects h3, under Min
	// a negative one does; alpha encrypts 1 in that case and 0 otherwise.
	// beta is the selected ciphertext, re-randomised but not decrypted.
	Optimum(ctx context.Context, h1, h2, h3 paillier.Ciphertext, mode Mode) (alpha, beta paillier.Ciphertext, err error)
	// Parity returns Enc(a mod 2) for an integral a.
	Parity(ctx context.Context, h paillier.Ciphertext) (paillier.Ciphertext, error)
	// IsNegative returns Enc(1) if a < 0, else Enc(0).
	IsNegative(ctx context.Context, h paillier.Ciphertext) (paillier.Ciphertext, error)
}

// HelperRole orchestrates the protocols holding only the public key. Every
// call that takes an oracle makes exactly one round trip per sub-protocol.
type HelperRole interface {
	PublicKey() *paillier.PublicKey

	Mul(ctx context.Context, oracle DecryptionRole, c1, c2 paillier.Ciphertext) (paillier.Ciphertext, error)
	TrueDiv(ctx context.Context, oracle DecryptionRole, c1, c2 paillier.Ciphertext) (paillier.Ciphertext, error)
	Optimum(ctx context.Context, oracle DecryptionRole, c1, c2 paillier.Ciphertext, mode Mode) (paillier.Ciphertext, error)
	Parity(ctx context.Context, oracle DecryptionRole, c paillier.Ciphertext) (paillier.Ciphertext, error)
	BitDec(ctx context.Context, oracle DecryptionRole, c paillier.Ciphertext, bit int) ([]paillier.Ciphertext, error)

	BitAnd(ctx context.Context, oracle DecryptionRole, c1, c2 paillier.Ciphertext) (paillier.Ciphertext, error)
	BitOr(ctx context.Context, oracle DecryptionRole, c1, c2 paillier.Ciphertext) (paillier.Ciphertext, error)
	BitNot(c paillier.Ciphertext) (paillier.Ciphertext, error)
	BitXor(ctx context.Context, oracle DecryptionRole, c1, c2 paillier.Ciphertext) (paillier.Ciphertext, error)

	Eq(ctx context.Context, oracle DecryptionRole, c1, c2 paillier.Ciphertext) (paillier.Ciphertext, error)
	Ne(ctx context.Context, oracle DecryptionRole, c1, c2 paillier.Ciphertext) (paillier.Ciphertext, error)
	Gt(ctx context.Context, oracle DecryptionRole, c1, c2 paillier.Ciphertext) (paillier.Ciphertext, error)
	Ge(ctx context.Context, oracle DecryptionRole, c1, c2 paillier.Ciphertext) (paillier.Ciphertext, error)
	Lt(ctx context.Context, oracle DecryptionRole, c1, c2 paillier.Ciphertext) (paillier.Ciphertext, error)
	Le(ctx context.Context, oracle DecryptionRole, c1, c2 paillier.Ciphertext) (paillier.Ciphertext, error)
}

var (
	_ HelperRole     = (*Helper)(nil)
	_ DecryptionRole = (*DecryptionParty)(nil)
	_ DecryptionRole = (*RemoteOracle)(nil)
)
