package compiler

import (
	"math/big"

	"github.com/chazu/mil/vm"
)

// ---------------------------------------------------------------------------
// Hygienic IR: the unrolled, mangled expression tree
// ---------------------------------------------------------------------------

// VarID is a mangled variable identifier. Every binding in a compiled program
// receives a distinct id, so inlining can never conflate two scopes.
type VarID int32

// UnrolledExpr is an expression with every user function call inlined and
// every variable replaced by its mangled id. Only builtin operators remain as
// call forms.
type UnrolledExpr interface {
	unrolled() // marker method
}

// UInt is an integer literal.
type UInt struct {
	Value *big.Int
}

func (*UInt) unrolled() {}

// UBytes is a byte-string literal.
type UBytes struct {
	Value []byte
}

func (*UBytes) unrolled() {}

// UVar references a mangled variable.
type UVar struct {
	ID VarID
}

func (*UVar) unrolled() {}

// USet assigns to a mangled variable.
type USet struct {
	ID    VarID
	Value UnrolledExpr
}

func (*USet) unrolled() {}

// UBinding is one mangled binding of a let form.
type UBinding struct {
	ID    VarID
	Value UnrolledExpr
}

// ULet binds mangled variables within the scope of its body expressions.
// Inlined function calls also take this shape: one binding per parameter,
// the inlined body as the body.
type ULet struct {
	Bindings []UBinding
	Body     []UnrolledExpr
}

func (*ULet) unrolled() {}

// UBuiltIn applies a builtin operator to unrolled operands.
type UBuiltIn struct {
	vm.BuiltIn[UnrolledExpr]
}

func (*UBuiltIn) unrolled() {}

// ULoop repeats its body a fixed number of times.
type ULoop struct {
	Count uint16
	Body  UnrolledExpr
}

func (*ULoop) unrolled() {}

// UHash hashes a byte string with a length cap.
type UHash struct {
	Limit uint16
	E     UnrolledExpr
}

func (*UHash) unrolled() {}

// USigeok checks a signature.
type USigeok struct {
	Limit uint16
	Msg   UnrolledExpr
	Key   UnrolledExpr
	Sig   UnrolledExpr
}

func (*USigeok) unrolled() {}

// UNoop is the no-operation marker.
type UNoop struct{}

func (*UNoop) unrolled() {}
