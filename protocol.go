package smpc

import (
	"context"

	"github.com/ontanj/smpc/paillier"
)

// Value is anything that resolves to a ciphertext: a paillier.Ciphertext
// or an Operand.
type Value interface {
	Ciphertext() paillier.Ciphertext
}

// Protocol binds a helper to an oracle. It holds no protocol logic.
type Protocol struct {
	helper HelperRole
	oracle DecryptionRole
}

// NewProtocol returns a facade over helper and oracle.
func NewProtocol(helper HelperRole, oracle DecryptionRole) *Protocol {
	return &Protocol{helper: helper, oracle: oracle}
}

// Helper returns the bound helper.
func (p *Protocol) Helper() HelperRole { return p.helper }

// Oracle returns the bound decryption role.
func (p *Protocol) Oracle() DecryptionRole { return p.oracle }

// Encode wraps c as an operand of p.
func (p *Protocol) Encode(c paillier.Ciphertext) Operand {
	return Operand{p: p, c: c}
}

// Encrypt encrypts v under the helper's key and wraps it.
func (p *Protocol) Encrypt(v paillier.Encoded) (Operand, error) {
	if p == nil || p.helper == nil {
		return Operand{}, errorf("Encrypt", "%w: protocol has no helper", ErrInvalidParameter)
	}
	c, err := p.helper.PublicKey().Encrypt(v)
	if err != nil {
		return Operand{}, wrap("Encrypt", err)
	}
	return p.Encode(c), nil
}

// EncryptInt64 encrypts an integer and wraps it.
func (p *Protocol) EncryptInt64(x int64) (Operand, error) {
	return p.Encrypt(paillier.EncodeInt64(x))
}

// EncryptFloat encrypts f and wraps it.
func (p *Protocol) EncryptFloat(f float64) (Operand, error) {
	v, err := paillier.EncodeFloat(f)
	if err != nil {
		return Operand{}, wrap("Encrypt", err)
	}
	return p.Encrypt(v)
}

func (p *Protocol) wrapAll(cs []paillier.Ciphertext) []Operand {
	out := make([]Operand, len(cs))
	for i, c := range cs {
		out[i] = p.Encode(c)
	}
	return out
}

// Operand is a ciphertext bound to a Protocol. Results of its methods are
// bound to the same Protocol and compose directly.
type Operand struct {
	p *Protocol
	c paillier.Ciphertext
}

// Decode returns the wrapped ciphertext.
func (o Operand) Decode() paillier.Ciphertext { return o.c }

// Ciphertext implements Value.
func (o Operand) Ciphertext() paillier.Ciphertext { return o.c }

type binaryOp func(ctx context.Context, oracle DecryptionRole, c1, c2 paillier.Ciphertext) (paillier.Ciphertext, error)

// protocol returns the Protocol o is bound to. The zero Operand is unbound.
func (o Operand) protocol(op string) (*Protocol, error) {
	if o.p == nil || o.p.helper == nil || o.p.oracle == nil {
		return nil, errorf(op, "%w: operand not bound to a protocol", ErrInvalidOperand)
	}
	return o.p, nil
}

// resolve returns the ciphertext behind v, rejecting nil values.
func resolve(op string, v Value) (paillier.Ciphertext, error) {
	switch x := v.(type) {
	case nil:
		return paillier.Ciphertext{}, errorf(op, "%w: nil operand", ErrInvalidOperand)
	case *Operand:
		if x == nil {
			return paillier.Ciphertext{}, errorf(op, "%w: nil operand", ErrInvalidOperand)
		}
	case *paillier.Ciphertext:
		if x == nil {
			return paillier.Ciphertext{}, errorf(op, "%w: nil operand", ErrInvalidOperand)
		}
	}
	return v.Ciphertext(), nil
}

func (o Operand) apply(ctx context.Context, name string, pick func(HelperRole) binaryOp, other Value) (Operand, error) {
	p, err := o.protocol(name)
	if err != nil {
		return Operand{}, err
	}
	c2, err := resolve(name, other)
	if err != nil {
		return Operand{}, err
	}
	c, err := pick(p.helper)(ctx, p.oracle, o.c, c2)
	if err != nil {
		return Operand{}, err
	}
	return p.Encode(c), nil
}

func (o Operand) Mul(ctx context.Context, other Value) (Operand, error) {
	return o.apply(ctx, "Mul", func(h HelperRole) binaryOp { return h.Mul }, other)
}

func (o Operand) Div(ctx context.Context, other Value) (Operand, error) {
	return o.apply(ctx, "TrueDiv", func(h HelperRole) binaryOp { return h.TrueDiv }, other)
}

func (o Operand) Optimum(ctx context.Context, other Value, mode Mode) (Operand, error) {
	return o.apply(ctx, "Optimum", func(h HelperRole) binaryOp {
		return func(ctx context.Context, oracle DecryptionRole, c1, c2 paillier.Ciphertext) (paillier.Ciphertext, error) {
			return h.Optimum(ctx, oracle, c1, c2, mode)
		}
	}, other)
}

func (o Operand) Max(ctx context.Context, other Value) (Operand, error) {
	return o.Optimum(ctx, other, Max)
}

func (o Operand) Min(ctx context.Context, other Value) (Operand, error) {
	return o.Optimum(ctx, other, Min)
}

func (o Operand) Parity(ctx context.Context) (Operand, error) {
	p, err := o.protocol("Parity")
	if err != nil {
		return Operand{}, err
	}
	c, err := p.helper.Parity(ctx, p.oracle, o.c)
	if err != nil {
		return Operand{}, err
	}
	return p.Encode(c), nil
}

// BitDec returns bit operands, most significant first.
func (o Operand) BitDec(ctx context.Context, bit int) ([]Operand, error) {
	p, err := o.protocol("BitDec")
	if err != nil {
		return nil, err
	}
	cs, err := p.helper.BitDec(ctx, p.oracle, o.c, bit)
	if err != nil {
		return nil, err
	}
	return p.wrapAll(cs), nil
}

func (o Operand) And(ctx context.Context, other Value) (Operand, error) {
	return o.apply(ctx, "BitAnd", func(h HelperRole) binaryOp { return h.BitAnd }, other)
}

func (o Operand) Or(ctx context.Context, other Value) (Operand, error) {
	return o.apply(ctx, "BitOr", func(h HelperRole) binaryOp { return h.BitOr }, other)
}

func (o Operand) Not() (Operand, error) {
	p, err := o.protocol("BitNot")
	if err != nil {
		return Operand{}, err
	}
	c, err := p.helper.BitNot(o.c)
	if err != nil {
		return Operand{}, err
	}
	return p.Encode(c), nil
}

func (o Operand) Xor(ctx context.Context, other Value) (Operand, error) {
	return o.apply(ctx, "BitXor", func(h HelperRole) binaryOp { return h.BitXor }, other)
}

// SecureEq and the other Secure comparisons return encrypted bits; they are
// not Go comparisons.
func (o Operand) SecureEq(ctx context.Context, other Value) (Operand, error) {
	return o.apply(ctx, "Eq", func(h HelperRole) binaryOp { return h.Eq }, other)
}

func (o Operand) SecureNe(ctx context.Context, other Value) (Operand, error) {
	return o.apply(ctx, "Ne", func(h HelperRole) binaryOp { return h.Ne }, other)
}

func (o Operand) SecureGt(ctx context.Context, other Value) (Operand, error) {
	return o.apply(ctx, "Gt", func(h HelperRole) binaryOp { return h.Gt }, other)
}

func (o Operand) SecureGe(ctx context.Context, other Value) (Operand, error) {
	return o.apply(ctx, "Ge", func(h HelperRole) binaryOp { return h.Ge }, other)
}

func (o Operand) SecureLt(ctx context.Context, other Value) (Operand, error) {
	return o.apply(ctx, "Lt", func(h HelperRole) binaryOp { return h.Lt }, other)
}

func (o Operand) SecureLe(ctx context.Context, other Value) (Operand, error) {
	return o.apply(ctx, "Le", func(h HelperRole) binaryOp { return h.Le }, other)
}
