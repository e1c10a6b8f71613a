package compiler

import (
	"math/big"

	"github.com/chazu/mil/vm"
)

// ---------------------------------------------------------------------------
// AST: surface expression tree for mil
// ---------------------------------------------------------------------------

// Span represents a range in source code.
type Span struct {
	Start Position
	End   Position
}

// MakeSpan creates a span from start and end positions.
func MakeSpan(start, end Position) Span {
	return Span{Start: start, End: end}
}

// Node is the interface implemented by all AST nodes.
type Node interface {
	Span() Span
	node() // marker method
}

// Expr is the interface for expression nodes.
type Expr interface {
	Node
	expr() // marker method
}

// IntLit is an integer literal. The parser guarantees Value fits in 256 bits.
type IntLit struct {
	SpanVal Span
	Value   *big.Int
}

func (n *IntLit) Span() Span { return n.SpanVal }
func (n *IntLit) node()      {}
func (n *IntLit) expr()      {}

// BytesLit is a byte-string literal. The parser guarantees at most 255 bytes.
type BytesLit struct {
	SpanVal Span
	Value   []byte
}

func (n *BytesLit) Span() Span { return n.SpanVal }
func (n *BytesLit) node()      {}
func (n *BytesLit) expr()      {}

// Var is a named variable reference.
type Var struct {
	SpanVal Span
	Name    string
}

func (n *Var) Span() Span { return n.SpanVal }
func (n *Var) node()      {}
func (n *Var) expr()      {}

// SetExpr assigns a new value to an already-bound variable: (set! x e).
type SetExpr struct {
	SpanVal Span
	Name    string
	Value   Expr
}

func (n *SetExpr) Span() Span { return n.SpanVal }
func (n *SetExpr) node()      {}
func (n *SetExpr) expr()      {}

// Binding is one (name expr) pair of a let form.
type Binding struct {
	Name  string
	Value Expr
}

// LetExpr binds names within the scope of its body: (let ((x 1) (y 2)) e...).
type LetExpr struct {
	SpanVal  Span
	Bindings []Binding
	Body     []Expr
}

func (n *LetExpr) Span() Span { return n.SpanVal }
func (n *LetExpr) node()      {}
func (n *LetExpr) expr()      {}

// CallExpr applies a user-defined function to arguments: (my-fn a b).
type CallExpr struct {
	SpanVal Span
	Name    string
	Args    []Expr
}

func (n *CallExpr) Span() Span { return n.SpanVal }
func (n *CallExpr) node()      {}
func (n *CallExpr) expr()      {}

// BuiltInCall applies a builtin operator: (+ a b), (v-ref v i), (load 3).
type BuiltInCall struct {
	SpanVal Span
	vm.BuiltIn[Expr]
}

func (n *BuiltInCall) Span() Span { return n.SpanVal }
func (n *BuiltInCall) node()      {}
func (n *BuiltInCall) expr()      {}

// LoopForm repeats its body a fixed number of times: (loop 3 e).
type LoopForm struct {
	SpanVal Span
	Count   uint16
	Body    Expr
}

func (n *LoopForm) Span() Span { return n.SpanVal }
func (n *LoopForm) node()      {}
func (n *LoopForm) expr()      {}

// HashForm hashes a byte string with a length cap: (hash limit e).
type HashForm struct {
	SpanVal Span
	Limit   uint16
	E       Expr
}

func (n *HashForm) Span() Span { return n.SpanVal }
func (n *HashForm) node()      {}
func (n *HashForm) expr()      {}

// SigeokForm checks a signature: (sigeok limit msg key sig).
type SigeokForm struct {
	SpanVal Span
	Limit   uint16
	Msg     Expr
	Key     Expr
	Sig     Expr
}

func (n *SigeokForm) Span() Span { return n.SpanVal }
func (n *SigeokForm) node()      {}
func (n *SigeokForm) expr()      {}

// NoopForm compiles to a single no-operation instruction: (noop).
type NoopForm struct {
	SpanVal Span
}

func (n *NoopForm) Span() Span { return n.SpanVal }
func (n *NoopForm) node()      {}
func (n *NoopForm) expr()      {}

// ---------------------------------------------------------------------------
// Top-level structure
// ---------------------------------------------------------------------------

// Defn is a user function definition: (fn name (p1 p2) body).
type Defn struct {
	SpanVal Span
	Name    string
	Params  []string
	Body    Expr
}

func (n *Defn) Span() Span { return n.SpanVal }
func (n *Defn) node()      {}

// Program is a complete mil source file: function definitions followed by a
// single root expression.
type Program struct {
	Defns []*Defn
	Root  Expr
}
