package compiler

import (
	"fortio.org/safecast"

	"github.com/chazu/mil/vm"
)

// ---------------------------------------------------------------------------
// Codegen: serialize the low-level IR to covenant bytecode
// ---------------------------------------------------------------------------

// Compile appends the bytecode for a low-level expression to the builder.
// It never rewrites earlier bytes, so compiling subtree by subtree onto a
// shared buffer produces the same bytes as compiling the whole tree at once.
// Encoding is total over well-formed trees: there is no error path.
func Compile(e vm.Expr, b *vm.CodeBuilder) {
	switch e := e.(type) {
	case *vm.IntValue:
		b.EmitPushInt(e.Value)

	case *vm.BytesValue:
		b.EmitPushBytes(e.Value)

	case *vm.BuiltInExpr:
		info := e.Op.Info()
		if info.Indexed {
			b.EmitU16(info.Code, e.Idx)
			return
		}
		// Operands compile in reverse syntactic order. The stack pops
		// last-pushed-first, so the leftmost operand ends up on top and the
		// interpreter sees operands left to right. Getting this wrong flips
		// every subtraction and comparison.
		for i := len(e.Args) - 1; i >= 0; i-- {
			Compile(e.Args[i], b)
		}
		b.Emit(info.Code)

	case *vm.Seq:
		for _, sub := range e.Exprs {
			Compile(sub, b)
		}

	case *vm.LoopExpr:
		b.Emit(vm.OpLoop)
		b.PutU16(e.Count)
		b.PutU16(safecast.MustConvert[uint16](vm.InstrCount(e.Body)))
		Compile(e.Body, b)

	case *vm.HashExpr:
		Compile(e.E, b)
		b.EmitU16(vm.OpHash, e.Limit)

	case *vm.SigeokExpr:
		// Unlike operator applications, the three operands compile in
		// original order.
		Compile(e.Msg, b)
		Compile(e.Key, b)
		Compile(e.Sig, b)
		b.EmitU16(vm.OpSigeok, e.Limit)

	case *vm.NoopExpr:
		b.Emit(vm.OpNoop)

	default:
		panic("compiler: unknown low-level expression type")
	}
}

// Build runs the whole pipeline on mil source: parse, expand, resolve
// memory, compile. It returns the covenant bytecode.
func Build(src string) ([]byte, error) {
	prog, err := Parse(src)
	if err != nil {
		return nil, err
	}
	unrolled, err := Expand(prog.Root, prog.Defns)
	if err != nil {
		return nil, err
	}
	lowered := NewMemoryMap().Lower(unrolled)
	b := vm.NewCodeBuilder()
	Compile(lowered, b)
	return b.Bytes(), nil
}
