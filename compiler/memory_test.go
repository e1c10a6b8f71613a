package compiler

import (
	"math/big"
	"testing"

	"github.com/chazu/mil/vm"
)

func TestSlotAssignmentStable(t *testing.T) {
	m := NewMemoryMap()
	first := m.slot(7)
	if first != ReservedHeapSlots {
		t.Errorf("first slot = %d, want %d", first, ReservedHeapSlots)
	}
	second := m.slot(9)
	if second != ReservedHeapSlots+1 {
		t.Errorf("second slot = %d, want %d", second, ReservedHeapSlots+1)
	}
	if again := m.slot(7); again != first {
		t.Errorf("repeated lookup moved id 7 from slot %d to %d", first, again)
	}
}

func TestLowerVar(t *testing.T) {
	m := NewMemoryMap()
	e := m.Lower(&UVar{ID: 2})
	load, ok := e.(*vm.BuiltInExpr)
	if !ok || load.Op != vm.Load {
		t.Fatalf("variable lowered to %T, want a load", e)
	}
	if load.Idx != ReservedHeapSlots {
		t.Errorf("load slot = %d, want %d", load.Idx, ReservedHeapSlots)
	}
}

func TestLowerSet(t *testing.T) {
	m := NewMemoryMap()
	e := m.Lower(&USet{ID: 2, Value: &UInt{Value: big.NewInt(1)}})
	seq, ok := e.(*vm.Seq)
	if !ok || len(seq.Exprs) != 2 {
		t.Fatalf("assignment lowered to %T, want a two-element sequence", e)
	}
	if _, ok := seq.Exprs[0].(*vm.IntValue); !ok {
		t.Error("assignment value is not compiled first")
	}
	store, ok := seq.Exprs[1].(*vm.BuiltInExpr)
	if !ok || store.Op != vm.Store {
		t.Error("assignment does not end in a store")
	}
}

func TestLowerLet(t *testing.T) {
	m := NewMemoryMap()
	e := m.Lower(&ULet{
		Bindings: []UBinding{
			{ID: 2, Value: &UInt{Value: big.NewInt(1)}},
			{ID: 3, Value: &UInt{Value: big.NewInt(2)}},
		},
		Body: []UnrolledExpr{&UVar{ID: 2}},
	})
	seq, ok := e.(*vm.Seq)
	if !ok {
		t.Fatalf("let lowered to %T, want a sequence", e)
	}
	// value, store, value, store, body.
	if len(seq.Exprs) != 5 {
		t.Fatalf("sequence has %d elements, want 5", len(seq.Exprs))
	}
	store1 := seq.Exprs[1].(*vm.BuiltInExpr)
	store2 := seq.Exprs[3].(*vm.BuiltInExpr)
	if store1.Op != vm.Store || store2.Op != vm.Store {
		t.Fatal("bindings do not lower to stores")
	}
	if store1.Idx == store2.Idx {
		t.Error("two bindings share a heap slot")
	}
	load := seq.Exprs[4].(*vm.BuiltInExpr)
	if load.Op != vm.Load || load.Idx != store1.Idx {
		t.Errorf("body load slot = %d, want the first binding's slot %d", load.Idx, store1.Idx)
	}
}

func TestLowerSpecialForms(t *testing.T) {
	m := NewMemoryMap()

	loop, ok := m.Lower(&ULoop{Count: 3, Body: &UNoop{}}).(*vm.LoopExpr)
	if !ok || loop.Count != 3 {
		t.Error("loop form does not lower to a loop expression")
	}
	hash, ok := m.Lower(&UHash{Limit: 64, E: &UBytes{Value: []byte("m")}}).(*vm.HashExpr)
	if !ok || hash.Limit != 64 {
		t.Error("hash form does not lower to a hash expression")
	}
	sig, ok := m.Lower(&USigeok{
		Limit: 64,
		Msg:   &UBytes{Value: []byte("m")},
		Key:   &UBytes{Value: []byte("k")},
		Sig:   &UBytes{Value: []byte("s")},
	}).(*vm.SigeokExpr)
	if !ok || sig.Limit != 64 {
		t.Error("sigeok form does not lower to a sigeok expression")
	}
}

func TestLowerDeterministic(t *testing.T) {
	build := func() vm.Expr {
		return NewMemoryMap().Lower(&ULet{
			Bindings: []UBinding{
				{ID: 5, Value: &UInt{Value: big.NewInt(1)}},
				{ID: 9, Value: &UInt{Value: big.NewInt(2)}},
			},
			Body: []UnrolledExpr{&UVar{ID: 9}},
		})
	}
	a := vm.NewCodeBuilder()
	Compile(build(), a)
	b := vm.NewCodeBuilder()
	Compile(build(), b)
	if a.String() != b.String() {
		t.Error("lowering the same tree twice produced different bytecode")
	}
}
