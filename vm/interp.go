package vm

import (
	"bytes"
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
)

// ---------------------------------------------------------------------------
// Reference executor
// ---------------------------------------------------------------------------
//
// The canonical covenant VM is an external system; this executor implements
// enough of its semantics to validate compiled bytecode end to end. All
// integer arithmetic wraps modulo 2^256.

// Value is a runtime value on the executor's stack.
type Value interface {
	value() // marker method
	String() string
}

// IntVal is a 256-bit unsigned integer.
type IntVal struct {
	N *big.Int
}

func (IntVal) value() {}

func (v IntVal) String() string { return v.N.String() }

// BytesVal is an immutable byte string.
type BytesVal struct {
	B []byte
}

func (BytesVal) value() {}

func (v BytesVal) String() string { return "0x" + hex.EncodeToString(v.B) }

// VecVal is a vector of values.
type VecVal struct {
	V []Value
}

func (VecVal) value() {}

func (v VecVal) String() string {
	s := "["
	for i, e := range v.V {
		if i > 0 {
			s += " "
		}
		s += e.String()
	}
	return s + "]"
}

// Type tags pushed by the TYPEQ instruction.
const (
	TagInt   = 0
	TagBytes = 1
	TagVec   = 2
)

var intModulus = new(big.Int).Lsh(big.NewInt(1), maxIntBits)

// Machine is one execution of a compiled covenant.
type Machine struct {
	stack []Value
	heap  map[uint16]Value
}

// NewMachine creates an executor with an empty stack and heap.
func NewMachine() *Machine {
	return &Machine{heap: make(map[uint16]Value)}
}

// SetHeap seeds a heap slot before execution. The VM reserves the low slots
// for the spend context; tests and the CLI use this to stand in for it.
func (m *Machine) SetHeap(slot uint16, v Value) {
	m.heap[slot] = v
}

// Run decodes and executes bytecode, returning the value left on top of the
// stack, or nil for a program with no result.
func (m *Machine) Run(code []byte) (Value, error) {
	instrs, err := Decode(code)
	if err != nil {
		return nil, err
	}
	if err := m.exec(instrs); err != nil {
		return nil, err
	}
	if len(m.stack) == 0 {
		return nil, nil
	}
	return m.stack[len(m.stack)-1], nil
}

// exec runs an instruction sequence against the machine state.
func (m *Machine) exec(instrs []Instr) error {
	ip := 0
	for ip < len(instrs) {
		in := instrs[ip]
		ip++
		switch in.Op {
		case OpNoop:

		case OpPushI:
			m.push(IntVal{N: in.Int})
		case OpPushB:
			m.push(BytesVal{B: in.Bytes})

		case OpAdd, OpSub, OpMul, OpDiv, OpRem, OpAnd, OpOr, OpXor, OpShl, OpShr:
			if err := m.arith(in.Op); err != nil {
				return err
			}
		case OpNot:
			x, err := m.popInt()
			if err != nil {
				return err
			}
			r := new(big.Int).Sub(intModulus, big.NewInt(1))
			m.push(IntVal{N: r.Xor(r, x)})
		case OpEql, OpLt, OpGt:
			x, err := m.popInt()
			if err != nil {
				return err
			}
			y, err := m.popInt()
			if err != nil {
				return err
			}
			cmp := x.Cmp(y)
			truth := (in.Op == OpEql && cmp == 0) ||
				(in.Op == OpLt && cmp < 0) ||
				(in.Op == OpGt && cmp > 0)
			m.pushBool(truth)

		case OpItoB:
			x, err := m.popInt()
			if err != nil {
				return err
			}
			var buf [intBytes]byte
			x.FillBytes(buf[:])
			m.push(BytesVal{B: buf[:]})
		case OpBtoI:
			b, err := m.popBytes()
			if err != nil {
				return err
			}
			m.push(IntVal{N: new(big.Int).SetBytes(b)})
		case OpTypeQ:
			v, err := m.pop()
			if err != nil {
				return err
			}
			switch v.(type) {
			case IntVal:
				m.push(IntVal{N: big.NewInt(TagInt)})
			case BytesVal:
				m.push(IntVal{N: big.NewInt(TagBytes)})
			case VecVal:
				m.push(IntVal{N: big.NewInt(TagVec)})
			}
		case OpDup:
			v, err := m.pop()
			if err != nil {
				return err
			}
			m.push(v)
			m.push(v)

		case OpVempty:
			m.push(VecVal{})
		case OpVref, OpVappend, OpVlen, OpVslice, OpVset, OpVpush, OpVcons:
			if err := m.vectorOp(in.Op); err != nil {
				return err
			}
		case OpBempty:
			m.push(BytesVal{})
		case OpBref, OpBappend, OpBlen, OpBslice, OpBset, OpBpush, OpBcons:
			if err := m.bytesOp(in.Op); err != nil {
				return err
			}

		case OpLoad:
			v, ok := m.heap[in.Imm]
			if !ok {
				return fmt.Errorf("vm: load from empty heap slot %d", in.Imm)
			}
			m.push(v)
		case OpStore:
			v, err := m.pop()
			if err != nil {
				return err
			}
			m.heap[in.Imm] = v

		case OpJmp:
			ip += int(in.Imm)
		case OpBez, OpBnz:
			x, err := m.popInt()
			if err != nil {
				return err
			}
			zero := x.Sign() == 0
			if (in.Op == OpBez && zero) || (in.Op == OpBnz && !zero) {
				ip += int(in.Imm)
			}
		case OpLoop:
			body := int(in.Count)
			if ip+body > len(instrs) {
				return fmt.Errorf("vm: loop body of %d instructions overruns program", body)
			}
			for i := 0; i < int(in.Imm); i++ {
				if err := m.exec(instrs[ip : ip+body]); err != nil {
					return err
				}
			}
			ip += body

		case OpHash:
			b, err := m.popBytes()
			if err != nil {
				return err
			}
			if len(b) > int(in.Imm) {
				return fmt.Errorf("vm: hash input of %d bytes exceeds limit %d", len(b), in.Imm)
			}
			sum := sha256.Sum256(b)
			m.push(BytesVal{B: sum[:]})
		case OpSigeok:
			if err := m.sigeok(in.Imm); err != nil {
				return err
			}

		default:
			return fmt.Errorf("vm: unhandled opcode %s", in.Op)
		}
	}
	return nil
}

// arith pops two integers and pushes the wrapped result. The left operand is
// on top of the stack by the compiler's operand-order convention.
func (m *Machine) arith(op Opcode) error {
	x, err := m.popInt()
	if err != nil {
		return err
	}
	y, err := m.popInt()
	if err != nil {
		return err
	}
	r := new(big.Int)
	switch op {
	case OpAdd:
		r.Add(x, y)
	case OpSub:
		r.Sub(x, y)
	case OpMul:
		r.Mul(x, y)
	case OpDiv:
		if y.Sign() == 0 {
			return fmt.Errorf("vm: division by zero")
		}
		r.Div(x, y)
	case OpRem:
		if y.Sign() == 0 {
			return fmt.Errorf("vm: remainder by zero")
		}
		r.Mod(x, y)
	case OpAnd:
		r.And(x, y)
	case OpOr:
		r.Or(x, y)
	case OpXor:
		r.Xor(x, y)
	case OpShl:
		if !y.IsUint64() || y.Uint64() > maxIntBits {
			r.SetInt64(0)
		} else {
			r.Lsh(x, uint(y.Uint64()))
		}
	case OpShr:
		if !y.IsUint64() || y.Uint64() > maxIntBits {
			r.SetInt64(0)
		} else {
			r.Rsh(x, uint(y.Uint64()))
		}
	}
	r.Mod(r, intModulus)
	m.push(IntVal{N: r})
	return nil
}

// vectorOp implements the vector instruction family.
func (m *Machine) vectorOp(op Opcode) error {
	switch op {
	case OpVref:
		v, err := m.popVec()
		if err != nil {
			return err
		}
		i, err := m.popIndex(len(v))
		if err != nil {
			return err
		}
		m.push(v[i])
	case OpVappend:
		a, err := m.popVec()
		if err != nil {
			return err
		}
		b, err := m.popVec()
		if err != nil {
			return err
		}
		out := make([]Value, 0, len(a)+len(b))
		out = append(out, a...)
		out = append(out, b...)
		m.push(VecVal{V: out})
	case OpVlen:
		v, err := m.popVec()
		if err != nil {
			return err
		}
		m.push(IntVal{N: big.NewInt(int64(len(v)))})
	case OpVslice:
		v, err := m.popVec()
		if err != nil {
			return err
		}
		i, err := m.popIndex(len(v) + 1)
		if err != nil {
			return err
		}
		j, err := m.popIndex(len(v) + 1)
		if err != nil {
			return err
		}
		if i > j {
			return fmt.Errorf("vm: slice bounds inverted: %d > %d", i, j)
		}
		m.push(VecVal{V: append([]Value(nil), v[i:j]...)})
	case OpVset:
		v, err := m.popVec()
		if err != nil {
			return err
		}
		i, err := m.popIndex(len(v))
		if err != nil {
			return err
		}
		x, err := m.pop()
		if err != nil {
			return err
		}
		out := append([]Value(nil), v...)
		out[i] = x
		m.push(VecVal{V: out})
	case OpVpush:
		v, err := m.popVec()
		if err != nil {
			return err
		}
		x, err := m.pop()
		if err != nil {
			return err
		}
		m.push(VecVal{V: append(append([]Value(nil), v...), x)})
	case OpVcons:
		x, err := m.pop()
		if err != nil {
			return err
		}
		v, err := m.popVec()
		if err != nil {
			return err
		}
		m.push(VecVal{V: append([]Value{x}, v...)})
	}
	return nil
}

// bytesOp implements the byte-string instruction family, mirroring the
// vector family with integer elements.
func (m *Machine) bytesOp(op Opcode) error {
	switch op {
	case OpBref:
		b, err := m.popBytes()
		if err != nil {
			return err
		}
		i, err := m.popIndex(len(b))
		if err != nil {
			return err
		}
		m.push(IntVal{N: big.NewInt(int64(b[i]))})
	case OpBappend:
		a, err := m.popBytes()
		if err != nil {
			return err
		}
		b, err := m.popBytes()
		if err != nil {
			return err
		}
		m.push(BytesVal{B: append(append([]byte(nil), a...), b...)})
	case OpBlen:
		b, err := m.popBytes()
		if err != nil {
			return err
		}
		m.push(IntVal{N: big.NewInt(int64(len(b)))})
	case OpBslice:
		b, err := m.popBytes()
		if err != nil {
			return err
		}
		i, err := m.popIndex(len(b) + 1)
		if err != nil {
			return err
		}
		j, err := m.popIndex(len(b) + 1)
		if err != nil {
			return err
		}
		if i > j {
			return fmt.Errorf("vm: slice bounds inverted: %d > %d", i, j)
		}
		m.push(BytesVal{B: append([]byte(nil), b[i:j]...)})
	case OpBset:
		b, err := m.popBytes()
		if err != nil {
			return err
		}
		i, err := m.popIndex(len(b))
		if err != nil {
			return err
		}
		x, err := m.popInt()
		if err != nil {
			return err
		}
		if !x.IsUint64() || x.Uint64() > 255 {
			return fmt.Errorf("vm: byte value out of range")
		}
		out := append([]byte(nil), b...)
		out[i] = byte(x.Uint64())
		m.push(BytesVal{B: out})
	case OpBpush:
		b, err := m.popBytes()
		if err != nil {
			return err
		}
		x, err := m.popInt()
		if err != nil {
			return err
		}
		if !x.IsUint64() || x.Uint64() > 255 {
			return fmt.Errorf("vm: byte value out of range")
		}
		m.push(BytesVal{B: append(append([]byte(nil), b...), byte(x.Uint64()))})
	case OpBcons:
		x, err := m.popInt()
		if err != nil {
			return err
		}
		b, err := m.popBytes()
		if err != nil {
			return err
		}
		if !x.IsUint64() || x.Uint64() > 255 {
			return fmt.Errorf("vm: byte value out of range")
		}
		m.push(BytesVal{B: append([]byte{byte(x.Uint64())}, b...)})
	}
	return nil
}

// sigeok pops signature, public key and message and pushes 1 for a valid
// ed25519 signature, 0 otherwise.
func (m *Machine) sigeok(limit uint16) error {
	sig, err := m.popBytes()
	if err != nil {
		return err
	}
	key, err := m.popBytes()
	if err != nil {
		return err
	}
	msg, err := m.popBytes()
	if err != nil {
		return err
	}
	if len(msg) > int(limit) {
		return fmt.Errorf("vm: message of %d bytes exceeds sigeok limit %d", len(msg), limit)
	}
	ok := len(key) == ed25519.PublicKeySize &&
		len(sig) == ed25519.SignatureSize &&
		ed25519.Verify(ed25519.PublicKey(key), msg, sig)
	m.pushBool(ok)
	return nil
}

// ---------------------------------------------------------------------------
// Stack helpers
// ---------------------------------------------------------------------------

func (m *Machine) push(v Value) {
	m.stack = append(m.stack, v)
}

func (m *Machine) pushBool(b bool) {
	if b {
		m.push(IntVal{N: big.NewInt(1)})
	} else {
		m.push(IntVal{N: big.NewInt(0)})
	}
}

func (m *Machine) pop() (Value, error) {
	if len(m.stack) == 0 {
		return nil, fmt.Errorf("vm: stack underflow")
	}
	v := m.stack[len(m.stack)-1]
	m.stack = m.stack[:len(m.stack)-1]
	return v, nil
}

func (m *Machine) popInt() (*big.Int, error) {
	v, err := m.pop()
	if err != nil {
		return nil, err
	}
	iv, ok := v.(IntVal)
	if !ok {
		return nil, fmt.Errorf("vm: expected integer, got %T", v)
	}
	return iv.N, nil
}

func (m *Machine) popBytes() ([]byte, error) {
	v, err := m.pop()
	if err != nil {
		return nil, err
	}
	bv, ok := v.(BytesVal)
	if !ok {
		return nil, fmt.Errorf("vm: expected byte string, got %T", v)
	}
	return bv.B, nil
}

func (m *Machine) popVec() ([]Value, error) {
	v, err := m.pop()
	if err != nil {
		return nil, err
	}
	vv, ok := v.(VecVal)
	if !ok {
		return nil, fmt.Errorf("vm: expected vector, got %T", v)
	}
	return vv.V, nil
}

// popIndex pops an integer and bounds-checks it against n.
func (m *Machine) popIndex(n int) (int, error) {
	x, err := m.popInt()
	if err != nil {
		return 0, err
	}
	if !x.IsInt64() || x.Int64() < 0 || x.Int64() >= int64(n) {
		return 0, fmt.Errorf("vm: index %s out of range [0, %d)", x, n)
	}
	return int(x.Int64()), nil
}

// ValuesEqual reports deep equality of two runtime values.
func ValuesEqual(a, b Value) bool {
	switch a := a.(type) {
	case IntVal:
		b, ok := b.(IntVal)
		return ok && a.N.Cmp(b.N) == 0
	case BytesVal:
		b, ok := b.(BytesVal)
		return ok && bytes.Equal(a.B, b.B)
	case VecVal:
		b, ok := b.(VecVal)
		if !ok || len(a.V) != len(b.V) {
			return false
		}
		for i := range a.V {
			if !ValuesEqual(a.V[i], b.V[i]) {
				return false
			}
		}
		return true
	}
	return false
}
