package compiler

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"math/big"
	"testing"

	"github.com/chazu/mil/vm"
)

func build(t *testing.T, src string) []byte {
	t.Helper()
	code, err := Build(src)
	if err != nil {
		t.Fatalf("build error: %v", err)
	}
	return code
}

// execute builds and runs a program, returning the final stack top.
func execute(t *testing.T, src string) vm.Value {
	t.Helper()
	v, err := vm.NewMachine().Run(build(t, src))
	if err != nil {
		t.Fatalf("execution error: %v", err)
	}
	return v
}

func wantResult(t *testing.T, src string, n int64) {
	t.Helper()
	v := execute(t, src)
	iv, ok := v.(vm.IntVal)
	if !ok {
		t.Fatalf("result = %v (%T), want integer %d", v, v, n)
	}
	if iv.N.Cmp(big.NewInt(n)) != 0 {
		t.Fatalf("result = %s, want %d", iv.N, n)
	}
}

func TestCompileIntegerLiteral(t *testing.T) {
	code := build(t, "5")
	if len(code) != 33 {
		t.Fatalf("encoded length = %d, want 33", len(code))
	}
	if code[0] != byte(vm.OpPushI) {
		t.Errorf("opcode = 0x%02x, want 0x%02x", code[0], byte(vm.OpPushI))
	}
	want := make([]byte, 32)
	want[31] = 5
	if !bytes.Equal(code[1:], want) {
		t.Errorf("immediate = %x, want %x", code[1:], want)
	}
}

func TestCompileBytesLiteral(t *testing.T) {
	code := build(t, `"ab"`)
	want := []byte{byte(vm.OpPushB), 2, 'a', 'b'}
	if !bytes.Equal(code, want) {
		t.Errorf("encoded = %x, want %x", code, want)
	}
}

func TestCompileOperandOrder(t *testing.T) {
	// (- 5 3): the right operand compiles first so the left one is popped
	// first by the machine.
	code := build(t, "(- 5 3)")
	if len(code) != 67 {
		t.Fatalf("encoded length = %d, want 67", len(code))
	}
	if code[0] != byte(vm.OpPushI) || code[32] != 3 {
		t.Errorf("first push = %x..., want the literal 3", code[:33])
	}
	if code[33] != byte(vm.OpPushI) || code[65] != 5 {
		t.Errorf("second push = %x..., want the literal 5", code[33:66])
	}
	if code[66] != byte(vm.OpSub) {
		t.Errorf("last byte = 0x%02x, want SUB", code[66])
	}
	wantResult(t, "(- 5 3)", 2)
}

func TestCompileIndexedBuiltIn(t *testing.T) {
	code := build(t, "(store 7)")
	want := []byte{byte(vm.OpStore), 0x00, 0x07}
	if !bytes.Equal(code, want) {
		t.Errorf("encoded = %x, want %x", code, want)
	}
}

func TestCompileLoopEncoding(t *testing.T) {
	code := build(t, "(loop 3 (noop))")
	want := []byte{byte(vm.OpLoop), 0x00, 0x03, 0x00, 0x01, byte(vm.OpNoop)}
	if !bytes.Equal(code, want) {
		t.Errorf("encoded = %x, want %x", code, want)
	}
}

func TestCompileLoopBodySize(t *testing.T) {
	// The header carries the body's static instruction count.
	code := build(t, "(loop 2 (+ 1 1))")
	instrs, err := vm.Decode(code)
	if err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if instrs[0].Op != vm.OpLoop || instrs[0].Imm != 2 || instrs[0].Count != 3 {
		t.Errorf("loop header = %s, want LOOP 2 3", instrs[0])
	}
}

func TestCompileHashEncoding(t *testing.T) {
	code := build(t, `(hash 255 "ab")`)
	want := []byte{byte(vm.OpPushB), 2, 'a', 'b', byte(vm.OpHash), 0x00, 0xff}
	if !bytes.Equal(code, want) {
		t.Errorf("encoded = %x, want %x", code, want)
	}
}

func TestCompileSigeokOperandOrder(t *testing.T) {
	// Unlike operators, the crypto form compiles msg, key, sig in order.
	code := build(t, `(sigeok 32 "m" "k" "s")`)
	want := []byte{
		byte(vm.OpPushB), 1, 'm',
		byte(vm.OpPushB), 1, 'k',
		byte(vm.OpPushB), 1, 's',
		byte(vm.OpSigeok), 0x00, 0x20,
	}
	if !bytes.Equal(code, want) {
		t.Errorf("encoded = %x, want %x", code, want)
	}
}

func TestCompileDeterministic(t *testing.T) {
	src := `
		(fn weight (v) (* (v-len v) 2))
		(let ((xs (v-push (v-empty) 5)))
			(weight xs))
	`
	a := build(t, src)
	b := build(t, src)
	if !bytes.Equal(a, b) {
		t.Errorf("two builds differ:\n%s\n%s", hex.EncodeToString(a), hex.EncodeToString(b))
	}
}

// ---------------------------------------------------------------------------
// Pipeline tests: compile then execute
// ---------------------------------------------------------------------------

func TestRunArithmetic(t *testing.T) {
	tests := []struct {
		src  string
		want int64
	}{
		{"(+ 2 3)", 5},
		{"(- 5 3)", 2},
		{"(* 6 7)", 42},
		{"(/ 17 5)", 3},
		{"(% 17 5)", 2},
		{"(< 3 4)", 1},
		{"(> 3 4)", 0},
		{"(= 4 4)", 1},
		{"(<< 1 4)", 16},
		{"(>> 16 4)", 1},
	}
	for _, tt := range tests {
		wantResult(t, tt.src, tt.want)
	}
}

func TestRunNestedExpression(t *testing.T) {
	wantResult(t, "(- (* 4 5) (+ 1 2))", 17)
}

func TestRunLet(t *testing.T) {
	wantResult(t, "(let ((x 3) (y 4)) (+ x y))", 7)
}

func TestRunSet(t *testing.T) {
	wantResult(t, "(let ((x 1)) (set! x (+ x 9)) x)", 10)
}

func TestRunShadowing(t *testing.T) {
	wantResult(t, "(let ((x 1)) (+ (let ((x 2)) x) x))", 3)
}

func TestRunFunctionInlining(t *testing.T) {
	wantResult(t, `
		(fn double (n) (+ n n))
		(fn quadruple (n) (double (double n)))
		(quadruple 4)
	`, 16)
}

func TestRunHygiene(t *testing.T) {
	// The callee's parameter must not leak into the caller's scope.
	wantResult(t, `
		(fn add-one (x) (+ x 1))
		(let ((x 10)) (+ (add-one 1) x))
	`, 12)
}

func TestRunLoopAccumulation(t *testing.T) {
	wantResult(t, `
		(let ((acc 0))
			(loop 5 (set! acc (+ acc 2)))
			acc)
	`, 10)
}

func TestRunVectors(t *testing.T) {
	wantResult(t, "(v-len (v-push (v-push (v-empty) 1) 2))", 2)
	wantResult(t, "(v-ref (v-cons 9 (v-empty)) 0)", 9)
	wantResult(t, "(v-ref (v-set (v-push (v-empty) 1) 0 8) 0)", 8)
}

func TestRunBytes(t *testing.T) {
	v := execute(t, `(b-concat "ab" "cd")`)
	bv, ok := v.(vm.BytesVal)
	if !ok || string(bv.B) != "abcd" {
		t.Errorf("result = %v, want abcd", v)
	}
	wantResult(t, `(b-ref "abc" 1)`, 'b')
	wantResult(t, `(b-len (b-slice "hello" 1 3))`, 2)
}

func TestRunHash(t *testing.T) {
	v := execute(t, `(hash 255 "abc")`)
	want := sha256.Sum256([]byte("abc"))
	bv, ok := v.(vm.BytesVal)
	if !ok || !bytes.Equal(bv.B, want[:]) {
		t.Errorf("result = %v, want %x", v, want)
	}
}

func TestRunSigeokRejectsGarbage(t *testing.T) {
	// A malformed key can never verify; the program still runs to completion.
	wantResult(t, `(sigeok 255 "msg" "not a key" "not a signature")`, 0)
}

func TestRunTypeof(t *testing.T) {
	wantResult(t, "(typeof 1)", vm.TagInt)
	wantResult(t, `(typeof "x")`, vm.TagBytes)
	wantResult(t, "(typeof (v-empty))", vm.TagVec)
}

func TestUserBindingsClearReservedSlots(t *testing.T) {
	// Slots 0 and 1 belong to the spend context; compiled programs must
	// leave them untouched.
	code := build(t, "(let ((x 1) (y 2)) (+ x y))")
	instrs, err := vm.Decode(code)
	if err != nil {
		t.Fatalf("decode error: %v", err)
	}
	for _, in := range instrs {
		if (in.Op == vm.OpLoad || in.Op == vm.OpStore) && in.Imm < 2 {
			t.Errorf("instruction %s touches reserved slot %d", in, in.Imm)
		}
	}
}

func TestBuildReportsParseErrors(t *testing.T) {
	if _, err := Build("(+ 1"); err == nil {
		t.Error("expected an error for unbalanced parens")
	}
}

func TestBuildReportsExpansionErrors(t *testing.T) {
	if _, err := Build("(+ x 1)"); err == nil {
		t.Error("expected an error for an unbound variable")
	}
}
