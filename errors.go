package smpc

import (
	"errors"
	"fmt"

	"github.com/ontanj/smpc/paillier"
)

var (
	// ErrDivisionByZero indicates a divisor that decrypts to zero.
	ErrDivisionByZero = errors.New("smpc: division by zero")

	// ErrInvalidOperand indicates an operand outside a protocol's domain,
	// e.g. a fixed-point ciphertext passed to a bitwise operation.
	ErrInvalidOperand = errors.New("smpc: invalid operand")

	// ErrRandomnessUnavailable indicates the entropy source failed. There is
	// no fallback source.
	ErrRandomnessUnavailable = errors.New("smpc: randomness unavailable")

	// ErrInvalidParameter indicates an invalid parameter was provided
	ErrInvalidParameter = errors.New("smpc: invalid parameter")

	// ErrProtocol indicates a malformed or mismatched oracle message
	ErrProtocol = errors.New("smpc: protocol failure")
)

// Errors of the underlying scheme, surfaced unchanged.
var (
	ErrKeyMismatch         = paillier.ErrKeyMismatch
	ErrOverflow            = paillier.ErrOverflow
	ErrMalformedCiphertext = paillier.ErrMalformedCiphertext
)

// Error wraps an underlying error with the operation that failed
type Error struct {
	Op  string // Operation that failed
	Err error  // Underlying error
}

func (e *Error) Error() string {
	return fmt.Sprintf("smpc.%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// wrap attaches op to err unless err is nil or already carries an op.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return &Error{Op: op, Err: err}
}

// errorf creates a new Error
func errorf(op string, format string, args ...interface{}) error {
	return &Error{
		Op:  op,
		Err: fmt.Errorf(format, args...),
	}
}
