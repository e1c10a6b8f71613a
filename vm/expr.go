package vm

import "math/big"

// ---------------------------------------------------------------------------
// Low-level IR: the memory-resolved expression tree the compiler serializes
// ---------------------------------------------------------------------------

// Expr is a low-level expression. All variables have been resolved to heap
// slots; only builtin operators, literals and the structured control-flow
// forms remain.
type Expr interface {
	expr() // marker method
}

// IntValue is a 256-bit unsigned integer literal. Values wider than 256 bits
// are a precondition violation on the data model, checked at parse time.
type IntValue struct {
	Value *big.Int
}

func (*IntValue) expr() {}

// BytesValue is a byte-string literal of at most 255 bytes, checked at parse
// time.
type BytesValue struct {
	Value []byte
}

func (*BytesValue) expr() {}

// BuiltInExpr applies a builtin operator to low-level operands.
type BuiltInExpr struct {
	BuiltIn[Expr]
}

func (*BuiltInExpr) expr() {}

// Seq is a sequence of expressions compiled in order.
type Seq struct {
	Exprs []Expr
}

func (*Seq) expr() {}

// LoopExpr repeats its body a fixed number of times.
type LoopExpr struct {
	Count uint16
	Body  Expr
}

func (*LoopExpr) expr() {}

// HashExpr hashes the byte string produced by its operand. Limit caps the
// input length the VM will accept.
type HashExpr struct {
	Limit uint16
	E     Expr
}

func (*HashExpr) expr() {}

// SigeokExpr verifies a signature. The three operands (message, public key,
// signature) are compiled in original order; Limit caps the message length.
type SigeokExpr struct {
	Limit uint16
	Msg   Expr
	Key   Expr
	Sig   Expr
}

func (*SigeokExpr) expr() {}

// NoopExpr compiles to a single no-operation byte.
type NoopExpr struct{}

func (*NoopExpr) expr() {}

// InstrCount returns the number of VM instructions the expression compiles
// to. It walks the tree without compiling it; the loop form encodes this
// count so the interpreter can skip or repeat a body without re-parsing.
func InstrCount(e Expr) int {
	switch e := e.(type) {
	case *IntValue, *BytesValue, *NoopExpr:
		return 1
	case *BuiltInExpr:
		n := 1
		for _, arg := range e.Args {
			n += InstrCount(arg)
		}
		return n
	case *Seq:
		n := 0
		for _, sub := range e.Exprs {
			n += InstrCount(sub)
		}
		return n
	case *LoopExpr:
		return 1 + InstrCount(e.Body)
	case *HashExpr:
		return 1 + InstrCount(e.E)
	case *SigeokExpr:
		return 1 + InstrCount(e.Msg) + InstrCount(e.Key) + InstrCount(e.Sig)
	default:
		panic("vm: unknown expression type")
	}
}
