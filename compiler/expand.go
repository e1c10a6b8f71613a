package compiler

import (
	"github.com/chazu/mil/vm"
)

// ---------------------------------------------------------------------------
// Expansion & hygiene: inline user functions, mangle every binding
// ---------------------------------------------------------------------------

// ReservedHeapSlots is the number of low heap slots the covenant VM claims
// for the implicit spend context (slots 0 and 1). The mangler hands out ids
// starting at the first free slot so that no user binding can ever collide
// with the context.
const ReservedHeapSlots = 2

// mangler allocates globally unique variable ids for one compilation.
type mangler struct {
	next VarID
}

func newMangler() *mangler {
	return &mangler{next: ReservedHeapSlots}
}

// fresh returns the next unused id.
func (m *mangler) fresh() VarID {
	id := m.next
	m.next++
	return id
}

// env maps surface names to mangled ids. Environments form a parent chain;
// lookup checks the innermost frame first, which is what makes shadowing
// work: a nested binding for the same name wins inside its own subtree and
// the outer binding is visible again outside it.
type env struct {
	parent *env
	vars   map[string]VarID
}

// lookup resolves a name, innermost frame first.
func (e *env) lookup(name string) (VarID, bool) {
	for frame := e; frame != nil; frame = frame.parent {
		if id, ok := frame.vars[name]; ok {
			return id, true
		}
	}
	return 0, false
}

// extend creates a child environment with the given bindings.
func (e *env) extend(vars map[string]VarID) *env {
	return &env{parent: e, vars: vars}
}

// Expander unrolls function calls and mangles variables. The function table
// and the input AST are read-only for the duration of one expansion.
type Expander struct {
	fns     map[string]*Defn
	mangler *mangler
}

// Expand rewrites a surface expression into the hygienic IR, inlining every
// call through the given function definitions. It fails on undefined
// variables and functions, arity mismatches, duplicate definitions, and
// recursive definitions; the first failure aborts the whole expansion.
func Expand(root Expr, defns []*Defn) (UnrolledExpr, error) {
	fns := make(map[string]*Defn, len(defns))
	for _, d := range defns {
		if _, ok := fns[d.Name]; ok {
			return nil, errorAt(ErrDuplicateFn, d, "function %s is defined more than once", d.Name)
		}
		fns[d.Name] = d
	}

	if err := checkCallCycles(fns); err != nil {
		return nil, err
	}

	ex := &Expander{fns: fns, mangler: newMangler()}
	return ex.expand(root, nil)
}

// expand rewrites one expression in the given environment.
func (ex *Expander) expand(e Expr, scope *env) (UnrolledExpr, error) {
	switch e := e.(type) {
	case *IntLit:
		return &UInt{Value: e.Value}, nil

	case *BytesLit:
		return &UBytes{Value: e.Value}, nil

	case *Var:
		id, ok := scope.lookup(e.Name)
		if !ok {
			return nil, errorAt(ErrUndefinedVar, e, "variable %s is not defined", e.Name)
		}
		return &UVar{ID: id}, nil

	case *SetExpr:
		// The target must already be bound; set! never introduces a binding.
		id, ok := scope.lookup(e.Name)
		if !ok {
			return nil, errorAt(ErrUndefinedVar, e, "variable %s is not defined", e.Name)
		}
		value, err := ex.expand(e.Value, scope)
		if err != nil {
			return nil, err
		}
		return &USet{ID: id, Value: value}, nil

	case *BuiltInCall:
		args, err := ex.expandAll(e.Args, scope)
		if err != nil {
			return nil, err
		}
		return &UBuiltIn{BuiltIn: vm.BuiltIn[UnrolledExpr]{Op: e.Op, Args: args, Idx: e.Idx}}, nil

	case *CallExpr:
		return ex.expandCall(e, scope)

	case *LetExpr:
		return ex.expandLet(e, scope)

	case *LoopForm:
		body, err := ex.expand(e.Body, scope)
		if err != nil {
			return nil, err
		}
		return &ULoop{Count: e.Count, Body: body}, nil

	case *HashForm:
		sub, err := ex.expand(e.E, scope)
		if err != nil {
			return nil, err
		}
		return &UHash{Limit: e.Limit, E: sub}, nil

	case *SigeokForm:
		msg, err := ex.expand(e.Msg, scope)
		if err != nil {
			return nil, err
		}
		key, err := ex.expand(e.Key, scope)
		if err != nil {
			return nil, err
		}
		sig, err := ex.expand(e.Sig, scope)
		if err != nil {
			return nil, err
		}
		return &USigeok{Limit: e.Limit, Msg: msg, Key: key, Sig: sig}, nil

	case *NoopForm:
		return &UNoop{}, nil

	default:
		panic("compiler: unknown expression type")
	}
}

// expandAll expands operands in order, short-circuiting on the first error.
func (ex *Expander) expandAll(exprs []Expr, scope *env) ([]UnrolledExpr, error) {
	out := make([]UnrolledExpr, 0, len(exprs))
	for _, e := range exprs {
		u, err := ex.expand(e, scope)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, nil
}

// expandCall inlines a user function application. Arguments are expanded in
// the caller's environment; the body is expanded in a child environment that
// binds each parameter to a fresh id, and the result is wrapped in a let so
// arguments are evaluated before the body runs.
func (ex *Expander) expandCall(call *CallExpr, scope *env) (UnrolledExpr, error) {
	defn, ok := ex.fns[call.Name]
	if !ok {
		return nil, errorAt(ErrUndefinedFn, call, "function %s was called but is not defined", call.Name)
	}
	if len(call.Args) != len(defn.Params) {
		return nil, errorAt(ErrArity, call, "function %s expects %d arguments, %d were supplied",
			call.Name, len(defn.Params), len(call.Args))
	}

	// Arguments never see the callee's parameters.
	args, err := ex.expandAll(call.Args, scope)
	if err != nil {
		return nil, err
	}

	bindings := make([]UBinding, len(defn.Params))
	childVars := make(map[string]VarID, len(defn.Params))
	for i, param := range defn.Params {
		id := ex.mangler.fresh()
		bindings[i] = UBinding{ID: id, Value: args[i]}
		childVars[param] = id
	}

	body, err := ex.expand(defn.Body, scope.extend(childVars))
	if err != nil {
		return nil, err
	}

	return &ULet{Bindings: bindings, Body: []UnrolledExpr{body}}, nil
}

// expandLet mangles a let form. Binding expressions are expanded in the
// outer environment, so bindings cannot see each other; only the body sees
// the new names.
func (ex *Expander) expandLet(let *LetExpr, scope *env) (UnrolledExpr, error) {
	bindings := make([]UBinding, len(let.Bindings))
	childVars := make(map[string]VarID, len(let.Bindings))
	for i, b := range let.Bindings {
		value, err := ex.expand(b.Value, scope)
		if err != nil {
			return nil, err
		}
		id := ex.mangler.fresh()
		bindings[i] = UBinding{ID: id, Value: value}
		childVars[b.Name] = id
	}

	child := scope.extend(childVars)
	body := make([]UnrolledExpr, 0, len(let.Body))
	for _, e := range let.Body {
		u, err := ex.expand(e, child)
		if err != nil {
			return nil, err
		}
		body = append(body, u)
	}

	return &ULet{Bindings: bindings, Body: body}, nil
}

// ---------------------------------------------------------------------------
// Call-cycle detection
// ---------------------------------------------------------------------------

// checkCallCycles rejects function tables whose call graph contains a cycle.
// A straight inliner would otherwise expand such definitions forever.
func checkCallCycles(fns map[string]*Defn) error {
	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)
	state := make(map[string]int, len(fns))

	var visit func(name string) *Error
	visit = func(name string) *Error {
		defn, ok := fns[name]
		if !ok {
			return nil // undefined callees are reported during expansion
		}
		switch state[name] {
		case visiting:
			return errorAt(ErrRecursiveFn, defn,
				"function %s calls itself, directly or through other functions; recursive definitions cannot be inlined", name)
		case done:
			return nil
		}
		state[name] = visiting
		for _, callee := range calledNames(defn.Body, nil) {
			if err := visit(callee); err != nil {
				return err
			}
		}
		state[name] = done
		return nil
	}

	for name := range fns {
		if err := visit(name); err != nil {
			return err
		}
	}
	return nil
}

// calledNames collects the names of all user function applications in an
// expression.
func calledNames(e Expr, acc []string) []string {
	switch e := e.(type) {
	case *CallExpr:
		acc = append(acc, e.Name)
		for _, arg := range e.Args {
			acc = calledNames(arg, acc)
		}
	case *BuiltInCall:
		for _, arg := range e.Args {
			acc = calledNames(arg, acc)
		}
	case *SetExpr:
		acc = calledNames(e.Value, acc)
	case *LetExpr:
		for _, b := range e.Bindings {
			acc = calledNames(b.Value, acc)
		}
		for _, sub := range e.Body {
			acc = calledNames(sub, acc)
		}
	case *LoopForm:
		acc = calledNames(e.Body, acc)
	case *HashForm:
		acc = calledNames(e.E, acc)
	case *SigeokForm:
		acc = calledNames(e.Msg, acc)
		acc = calledNames(e.Key, acc)
		acc = calledNames(e.Sig, acc)
	}
	return acc
}
