package vm

import "testing"

// ---------------------------------------------------------------------------
// Operator table tests
// ---------------------------------------------------------------------------

func TestOpTableComplete(t *testing.T) {
	seen := make(map[string]Op, numOps)
	for op := Op(0); op < numOps; op++ {
		info := opTable[op]
		if info.Name == "" {
			t.Fatalf("operator %d has no table entry", int(op))
		}
		if prev, dup := seen[info.Name]; dup {
			t.Errorf("operators %d and %d share the spelling %q", int(prev), int(op), info.Name)
		}
		seen[info.Name] = op

		if _, ok := info.Code.Info(); !ok {
			t.Errorf("operator %s compiles to opcode 0x%02x, which has no decode entry",
				info.Name, byte(info.Code))
		}
		if info.Indexed && info.Arity != 0 {
			t.Errorf("indexed operator %s must not take expression operands", info.Name)
		}
	}
}

func TestOpArityMatchesStackEffect(t *testing.T) {
	for op := Op(0); op < numOps; op++ {
		info := opTable[op]
		if info.Indexed {
			continue
		}
		decode, _ := info.Code.Info()
		if decode.Pops != info.Arity {
			t.Errorf("%s: operator arity %d, but %s pops %d",
				info.Name, info.Arity, decode.Name, decode.Pops)
		}
	}
}

func TestOpByName(t *testing.T) {
	tests := []struct {
		name string
		op   Op
	}{
		{"+", Add},
		{"-", Sub},
		{"<<", Shl},
		{"v-ref", Vref},
		{"b-concat", Bappend},
		{"typeof", TypeQ},
		{"load", Load},
		{"store", Store},
	}
	for _, tt := range tests {
		op, ok := OpByName(tt.name)
		if !ok {
			t.Errorf("OpByName(%q) not found", tt.name)
			continue
		}
		if op != tt.op {
			t.Errorf("OpByName(%q) = %v, want %v", tt.name, op, tt.op)
		}
	}
}

func TestOpByNameUnknown(t *testing.T) {
	for _, name := range []string{"", "fn", "let", "vref", "frobnicate"} {
		if _, ok := OpByName(name); ok {
			t.Errorf("OpByName(%q) unexpectedly resolved", name)
		}
	}
}

func TestOpString(t *testing.T) {
	if got := Add.String(); got != "+" {
		t.Errorf("Add.String() = %q, want %q", got, "+")
	}
	if got := Op(-1).String(); got != "invalid-op" {
		t.Errorf("Op(-1).String() = %q, want %q", got, "invalid-op")
	}
}

func TestOpcodeWireBytes(t *testing.T) {
	// The wire contract: these byte values address covenants on the chain
	// and must never drift.
	tests := []struct {
		op   Opcode
		b    byte
		name string
	}{
		{OpAdd, 0x10, "ADD"},
		{OpRem, 0x14, "REM"},
		{OpAnd, 0x20, "AND"},
		{OpShr, 0x28, "SHR"},
		{OpHash, 0x30, "HASH"},
		{OpSigeok, 0x32, "SIGEOK"},
		{OpLoad, 0x42, "LOAD"},
		{OpStore, 0x43, "STORE"},
		{OpVref, 0x50, "VREF"},
		{OpVcons, 0x57, "VCONS"},
		{OpBref, 0x70, "BREF"},
		{OpBcons, 0x77, "BCONS"},
		{OpJmp, 0xa0, "JMP"},
		{OpBnz, 0xa2, "BNZ"},
		{OpLoop, 0xb0, "LOOP"},
		{OpItoB, 0xc0, "ITOB"},
		{OpTypeQ, 0xc2, "TYPEQ"},
		{OpNoop, 0x09, "NOOP"},
		{OpPushB, 0xf0, "PUSHB"},
		{OpPushI, 0xf1, "PUSHI"},
		{OpDup, 0xff, "DUP"},
	}
	for _, tt := range tests {
		if byte(tt.op) != tt.b {
			t.Errorf("%s = 0x%02x, want 0x%02x", tt.name, byte(tt.op), tt.b)
		}
		if tt.op.Name() != tt.name {
			t.Errorf("0x%02x.Name() = %q, want %q", tt.b, tt.op.Name(), tt.name)
		}
	}
}

func TestOpcodeNameUnknown(t *testing.T) {
	if got := Opcode(0x00).Name(); got != "UNKNOWN_00" {
		t.Errorf("Opcode(0x00).Name() = %q, want UNKNOWN_00", got)
	}
}
