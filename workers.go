package smpc

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"

	"github.com/ontanj/smpc/logging"
	"github.com/ontanj/smpc/paillier"
	"github.com/ontanj/smpc/transport"
)

type opCode uint8

const (
	opMul opCode = iota + 1
	opTrueDiv
	opOptimum
	opParity
	opIsNegative
)

func (op opCode) String() string {
	switch op {
	case opMul:
		return "mul"
	case opTrueDiv:
		return "truediv"
	case opOptimum:
		return "optimum"
	case opParity:
		return "parity"
	case opIsNegative:
		return "is_negative"
	}
	return fmt.Sprintf("op(%d)", uint8(op))
}

// arity is the number of ciphertexts sent and received for op.
func (op opCode) arity() (args, results int) {
	switch op {
	case opMul, opTrueDiv:
		return 2, 1
	case opOptimum:
		return 3, 2
	case opParity, opIsNegative:
		return 1, 1
	}
	return -1, -1
}

// error codes carried in replies
const (
	codeOK uint8 = iota
	codeDivisionByZero
	codeKeyMismatch
	codeInvalidOperand
	codeOverflow
	codeMalformedCiphertext
	codeInvalidParameter
	codeProtocol
	codeInternal
)

var codeErrors = []struct {
	code uint8
	err  error
}{
	{codeDivisionByZero, ErrDivisionByZero},
	{codeKeyMismatch, ErrKeyMismatch},
	{codeInvalidOperand, ErrInvalidOperand},
	{codeOverflow, ErrOverflow},
	{codeMalformedCiphertext, ErrMalformedCiphertext},
	{codeInvalidParameter, ErrInvalidParameter},
	{codeProtocol, ErrProtocol},
}

func errorCode(err error) uint8 {
	for _, ce := range codeErrors {
		if errors.Is(err, ce.err) {
			return ce.code
		}
	}
	return codeInternal
}

func codeError(code uint8, msg string) error {
	for _, ce := range codeErrors {
		if ce.code == code {
			return fmt.Errorf("%w: remote: %s", ce.err, msg)
		}
	}
	return fmt.Errorf("%w: remote failure: %s", ErrProtocol, msg)
}

type oracleRequest struct {
	ID   []byte
	Op   opCode
	Mode Mode
	Args [][]byte
}

type oracleResponse struct {
	ID      []byte
	Code    uint8
	Message string
	Results [][]byte
}

func marshalAll(cs []paillier.Ciphertext) ([][]byte, error) {
	out := make([][]byte, len(cs))
	for i, c := range cs {
		b, err := c.MarshalBinary()
		if err != nil {
			return nil, err
		}
		out[i] = b
	}
	return out, nil
}

func unmarshalAll(pk *paillier.PublicKey, raw [][]byte, want int) ([]paillier.Ciphertext, error) {
	if len(raw) != want {
		return nil, fmt.Errorf("%w: %d ciphertexts, want %d", ErrProtocol, len(raw), want)
	}
	out := make([]paillier.Ciphertext, len(raw))
	for i, b := range raw {
		c, err := pk.UnmarshalCiphertext(b)
		if err != nil {
			return nil, err
		}
		out[i] = c
	}
	return out, nil
}

// ServeDecryption answers oracle requests from the helper over t until ctx
// is cancelled, then returns nil. Requests are handled one at a time in
// arrival order. Failed requests are answered with an error code; only
// transport failures end the loop.
func ServeDecryption(ctx context.Context, t transport.Transport, pk *paillier.PublicKey, oracle DecryptionRole, log logging.Logger) error {
	log = logging.ForParty(log, transport.Decryptor, "server")
	for {
		msg, err := t.Receive(ctx, transport.Helper)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("smpc: serve: receive: %w", err)
		}
		resp := handleRequest(ctx, pk, oracle, msg)
		if resp.Code != codeOK {
			log.Warn(ctx, "oracle request failed", "code", resp.Code, "error", resp.Message)
		}
		out, err := cbor.Marshal(resp)
		if err != nil {
			return fmt.Errorf("smpc: serve: encode reply: %w", err)
		}
		if err := t.Send(ctx, transport.Helper, out); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("smpc: serve: send: %w", err)
		}
	}
}

func handleRequest(ctx context.Context, pk *paillier.PublicKey, oracle DecryptionRole, msg []byte) oracleResponse {
	var req oracleRequest
	if err := cbor.Unmarshal(msg, &req); err != nil {
		return oracleResponse{Code: codeProtocol, Message: err.Error()}
	}
	results, err := dispatch(ctx, pk, oracle, req)
	if err != nil {
		return oracleResponse{ID: req.ID, Code: errorCode(err), Message: err.Error()}
	}
	raw, err := marshalAll(results)
	if err != nil {
		return oracleResponse{ID: req.ID, Code: errorCode(err), Message: err.Error()}
	}
	return oracleResponse{ID: req.ID, Code: codeOK, Results: raw}
}

func dispatch(ctx context.Context, pk *paillier.PublicKey, oracle DecryptionRole, req oracleRequest) ([]paillier.Ciphertext, error) {
	nargs, _ := req.Op.arity()
	if nargs < 0 {
		return nil, fmt.Errorf("%w: unknown oracle op %s", ErrProtocol, req.Op)
	}
	args, err := unmarshalAll(pk, req.Args, nargs)
	if err != nil {
		return nil, err
	}
	var c paillier.Ciphertext
	switch req.Op {
	case opMul:
		c, err = oracle.Mul(ctx, args[0], args[1])
	case opTrueDiv:
		c, err = oracle.TrueDiv(ctx, args[0], args[1])
	case opOptimum:
		alpha, beta, err := oracle.Optimum(ctx, args[0], args[1], args[2], req.Mode)
		if err != nil {
			return nil, err
		}
		return []paillier.Ciphertext{alpha, beta}, nil
	case opParity:
		c, err = oracle.Parity(ctx, args[0])
	case opIsNegative:
		c, err = oracle.IsNegative(ctx, args[0])
	}
	if err != nil {
		return nil, err
	}
	return []paillier.Ciphertext{c}, nil
}

// RemoteOracle is a DecryptionRole reached through a Transport. Calls are
// serialised: one request is in flight at a time.
type RemoteOracle struct {
	t   transport.Transport
	pk  *paillier.PublicKey
	log logging.Logger

	mu        sync.Mutex
	abandoned map[uuid.UUID]struct{} // requests whose caller gave up
}

// NewRemoteOracle returns a client for a ServeDecryption loop on the other
// end of t.
func NewRemoteOracle(t transport.Transport, pk *paillier.PublicKey, log logging.Logger) *RemoteOracle {
	return &RemoteOracle{
		t:         t,
		pk:        pk,
		log:       logging.ForParty(log, transport.Helper, "remote_oracle"),
		abandoned: make(map[uuid.UUID]struct{}),
	}
}

func (r *RemoteOracle) call(ctx context.Context, op opCode, mode Mode, args ...paillier.Ciphertext) ([]paillier.Ciphertext, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return nil, fmt.Errorf("%w: request id: %v", ErrRandomnessUnavailable, err)
	}
	raw, err := marshalAll(args)
	if err != nil {
		return nil, err
	}
	msg, err := cbor.Marshal(oracleRequest{ID: id[:], Op: op, Mode: mode, Args: raw})
	if err != nil {
		return nil, fmt.Errorf("%w: encode request: %v", ErrProtocol, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.log.Debug(ctx, "oracle call", "op", op.String(), "id", id.String())
	if err := r.t.Send(ctx, transport.Decryptor, msg); err != nil {
		return nil, err
	}
	resp, err := r.await(ctx, id)
	if err != nil {
		return nil, err
	}
	if resp.Code != codeOK {
		return nil, codeError(resp.Code, resp.Message)
	}
	_, nresults := op.arity()
	return unmarshalAll(r.pk, resp.Results, nresults)
}

// await reads replies until the one for id arrives, dropping replies to
// abandoned requests. Cancellation marks id as abandoned.
func (r *RemoteOracle) await(ctx context.Context, id uuid.UUID) (oracleResponse, error) {
	for {
		msg, err := r.t.Receive(ctx, transport.Decryptor)
		if err != nil {
			r.abandoned[id] = struct{}{}
			return oracleResponse{}, err
		}
		var resp oracleResponse
		if err := cbor.Unmarshal(msg, &resp); err != nil {
			return oracleResponse{}, fmt.Errorf("%w: decode reply: %v", ErrProtocol, err)
		}
		got, err := uuid.FromBytes(resp.ID)
		if err != nil {
			return oracleResponse{}, fmt.Errorf("%w: reply id: %v", ErrProtocol, err)
		}
		if got == id {
			return resp, nil
		}
		if _, ok := r.abandoned[got]; ok {
			delete(r.abandoned, got)
			r.log.Debug(ctx, "dropped stale reply", "id", got.String())
			continue
		}
		return oracleResponse{}, fmt.Errorf("%w: reply %s to request %s", ErrProtocol, got, id)
	}
}

func (r *RemoteOracle) Mul(ctx context.Context, h1, h2 paillier.Ciphertext) (paillier.Ciphertext, error) {
	res, err := r.call(ctx, opMul, 0, h1, h2)
	if err != nil {
		return paillier.Ciphertext{}, wrap("remote.Mul", err)
	}
	return res[0], nil
}

func (r *RemoteOracle) TrueDiv(ctx context.Context, h1, h2 paillier.Ciphertext) (paillier.Ciphertext, error) {
	res, err := r.call(ctx, opTrueDiv, 0, h1, h2)
	if err != nil {
		return paillier.Ciphertext{}, wrap("remote.TrueDiv", err)
	}
	return res[0], nil
}

func (r *RemoteOracle) Optimum(ctx context.Context, h1, h2, h3 paillier.Ciphertext, mode Mode) (alpha, beta paillier.Ciphertext, err error) {
	res, err := r.call(ctx, opOptimum, mode, h1, h2, h3)
	if err != nil {
		return alpha, beta, wrap("remote.Optimum", err)
	}
	return res[0], res[1], nil
}

func (r *RemoteOracle) Parity(ctx context.Context, h paillier.Ciphertext) (paillier.Ciphertext, error) {
	res, err := r.call(ctx, opParity, 0, h)
	if err != nil {
		return paillier.Ciphertext{}, wrap("remote.Parity", err)
	}
	return res[0], nil
}

func (r *RemoteOracle) IsNegative(ctx context.Context, h paillier.Ciphertext) (paillier.Ciphertext, error) {
	res, err := r.call(ctx, opIsNegative, 0, h)
	if err != nil {
		return paillier.Ciphertext{}, wrap("remote.IsNegative", err)
	}
	return res[0], nil
}
