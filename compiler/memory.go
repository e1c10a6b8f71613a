package compiler

import (
	"fortio.org/safecast"

	"github.com/chazu/mil/vm"
)

// ---------------------------------------------------------------------------
// Memory resolution: mangled variable ids to fixed heap slots
// ---------------------------------------------------------------------------

// MemoryMap assigns each mangled variable a heap slot and lowers the hygienic
// IR to the low-level expression tree the bytecode compiler serializes.
// Slots start at ReservedHeapSlots and are handed out in order of first
// binding, so the layout is deterministic for a given program.
type MemoryMap struct {
	slots map[VarID]uint16
	next  uint16
}

// NewMemoryMap creates an empty memory map.
func NewMemoryMap() *MemoryMap {
	return &MemoryMap{
		slots: make(map[VarID]uint16),
		next:  ReservedHeapSlots,
	}
}

// slot returns the heap slot for a variable, assigning one on first use.
// Exhausting the 16-bit slot space is a precondition violation, not an error
// path.
func (m *MemoryMap) slot(id VarID) uint16 {
	if pos, ok := m.slots[id]; ok {
		return pos
	}
	pos := m.next
	m.next = safecast.MustConvert[uint16](int(m.next) + 1)
	m.slots[id] = pos
	return pos
}

// Lower rewrites the hygienic IR into the low-level IR: let forms become
// store sequences, variable references become heap loads.
func (m *MemoryMap) Lower(e UnrolledExpr) vm.Expr {
	switch e := e.(type) {
	case *UInt:
		return &vm.IntValue{Value: e.Value}

	case *UBytes:
		return &vm.BytesValue{Value: e.Value}

	case *UVar:
		return &vm.BuiltInExpr{BuiltIn: vm.BuiltIn[vm.Expr]{Op: vm.Load, Idx: m.slot(e.ID)}}

	case *USet:
		return &vm.Seq{Exprs: []vm.Expr{
			m.Lower(e.Value),
			&vm.BuiltInExpr{BuiltIn: vm.BuiltIn[vm.Expr]{Op: vm.Store, Idx: m.slot(e.ID)}},
		}}

	case *ULet:
		// Evaluate and store each binding, then run the body in order.
		exprs := make([]vm.Expr, 0, 2*len(e.Bindings)+len(e.Body))
		for _, b := range e.Bindings {
			exprs = append(exprs,
				m.Lower(b.Value),
				&vm.BuiltInExpr{BuiltIn: vm.BuiltIn[vm.Expr]{Op: vm.Store, Idx: m.slot(b.ID)}})
		}
		for _, sub := range e.Body {
			exprs = append(exprs, m.Lower(sub))
		}
		return &vm.Seq{Exprs: exprs}

	case *UBuiltIn:
		args := make([]vm.Expr, len(e.Args))
		for i, arg := range e.Args {
			args[i] = m.Lower(arg)
		}
		return &vm.BuiltInExpr{BuiltIn: vm.BuiltIn[vm.Expr]{Op: e.Op, Args: args, Idx: e.Idx}}

	case *ULoop:
		return &vm.LoopExpr{Count: e.Count, Body: m.Lower(e.Body)}

	case *UHash:
		return &vm.HashExpr{Limit: e.Limit, E: m.Lower(e.E)}

	case *USigeok:
		return &vm.SigeokExpr{
			Limit: e.Limit,
			Msg:   m.Lower(e.Msg),
			Key:   m.Lower(e.Key),
			Sig:   m.Lower(e.Sig),
		}

	case *UNoop:
		return &vm.NoopExpr{}

	default:
		panic("compiler: unknown unrolled expression type")
	}
}
