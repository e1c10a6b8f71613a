package compiler

import "fmt"

// ---------------------------------------------------------------------------
// Expansion error taxonomy
// ---------------------------------------------------------------------------

// ErrKind classifies an expansion failure. Every kind is terminal: the first
// error anywhere in a subtree aborts the whole expansion.
type ErrKind int

const (
	// ErrUndefinedVar is a variable reference or assignment target with no
	// binding in the active environment.
	ErrUndefinedVar ErrKind = iota
	// ErrUndefinedFn is an application naming a function that was never
	// defined.
	ErrUndefinedFn
	// ErrArity is an application whose argument count does not equal the
	// callee's parameter count.
	ErrArity
	// ErrDuplicateFn is a function name defined more than once.
	ErrDuplicateFn
	// ErrRecursiveFn is a function whose definition calls itself, directly
	// or through other functions. The expander is a straight inliner and
	// rejects such definitions up front.
	ErrRecursiveFn
)

var errKindNames = map[ErrKind]string{
	ErrUndefinedVar: "undefined variable",
	ErrUndefinedFn:  "undefined function",
	ErrArity:        "arity mismatch",
	ErrDuplicateFn:  "duplicate function",
	ErrRecursiveFn:  "recursive function",
}

func (k ErrKind) String() string {
	if name, ok := errKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("ErrKind(%d)", int(k))
}

// Error is a terminal expansion failure.
type Error struct {
	Kind ErrKind
	Pos  Position
	Msg  string
}

func (e *Error) Error() string {
	if e.Pos.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Pos.Line, e.Msg)
	}
	return e.Msg
}

// errorAt builds an Error at a node's position.
func errorAt(kind ErrKind, node Node, format string, args ...interface{}) *Error {
	return &Error{
		Kind: kind,
		Pos:  node.Span().Start,
		Msg:  fmt.Sprintf(format, args...),
	}
}
