package vm

// ---------------------------------------------------------------------------
// Builtin operator set, shared by every IR phase
// ---------------------------------------------------------------------------

// Op identifies a builtin operator. The same operator set appears in the
// surface AST, the hygienic IR and the low-level IR; only the operand
// representation differs, so the list is defined exactly once, here.
type Op int

const (
	Add Op = iota
	Sub
	Mul
	Div
	Rem

	And
	Or
	Xor
	Not
	Eql
	Lt
	Gt
	Shl
	Shr

	ItoB
	BtoI
	TypeQ
	Dup

	Vref
	Vappend
	Vempty
	Vlen
	Vslice
	Vset
	Vpush
	Vcons

	Bref
	Bappend
	Bempty
	Blen
	Bslice
	Bset
	Bpush
	Bcons

	Load
	Store
	Jmp
	Bez
	Bnz

	numOps // sentinel, keep last
)

// OpInfo describes an operator: its surface spelling, how many expression
// operands it takes, whether it instead carries a 16-bit immediate, and the
// opcode byte it compiles to. The table is the single source of truth for
// parsing, expansion and code generation; the completeness test in
// ops_test.go guarantees no operator is left without an entry.
type OpInfo struct {
	Name    string // surface-language spelling
	Arity   int    // number of expression operands
	Indexed bool   // carries a 16-bit immediate instead of operands
	Code    Opcode // wire opcode
}

var opTable = [numOps]OpInfo{
	Add: {"+", 2, false, OpAdd},
	Sub: {"-", 2, false, OpSub},
	Mul: {"*", 2, false, OpMul},
	Div: {"/", 2, false, OpDiv},
	Rem: {"%", 2, false, OpRem},

	And: {"and", 2, false, OpAnd},
	Or:  {"or", 2, false, OpOr},
	Xor: {"xor", 2, false, OpXor},
	Not: {"not", 1, false, OpNot},
	Eql: {"=", 2, false, OpEql},
	Lt:  {"<", 2, false, OpLt},
	Gt:  {">", 2, false, OpGt},
	Shl: {"<<", 2, false, OpShl},
	Shr: {">>", 2, false, OpShr},

	ItoB:  {"itob", 1, false, OpItoB},
	BtoI:  {"btoi", 1, false, OpBtoI},
	TypeQ: {"typeof", 1, false, OpTypeQ},
	Dup:   {"dup", 1, false, OpDup},

	Vref:    {"v-ref", 2, false, OpVref},
	Vappend: {"v-concat", 2, false, OpVappend},
	Vempty:  {"v-empty", 0, false, OpVempty},
	Vlen:    {"v-len", 1, false, OpVlen},
	Vslice:  {"v-slice", 3, false, OpVslice},
	Vset:    {"v-set", 3, false, OpVset},
	Vpush:   {"v-push", 2, false, OpVpush},
	Vcons:   {"v-cons", 2, false, OpVcons},

	Bref:    {"b-ref", 2, false, OpBref},
	Bappend: {"b-concat", 2, false, OpBappend},
	Bempty:  {"b-empty", 0, false, OpBempty},
	Blen:    {"b-len", 1, false, OpBlen},
	Bslice:  {"b-slice", 3, false, OpBslice},
	Bset:    {"b-set", 3, false, OpBset},
	Bpush:   {"b-push", 2, false, OpBpush},
	Bcons:   {"b-cons", 2, false, OpBcons},

	Load:  {"load", 0, true, OpLoad},
	Store: {"store", 0, true, OpStore},
	Jmp:   {"jmp", 0, true, OpJmp},
	Bez:   {"bez", 0, true, OpBez},
	Bnz:   {"bnz", 0, true, OpBnz},
}

// opsByName maps surface spellings back to operators, built once at init.
var opsByName = func() map[string]Op {
	m := make(map[string]Op, numOps)
	for op := Op(0); op < numOps; op++ {
		m[opTable[op].Name] = op
	}
	return m
}()

// Info returns the metadata for an operator.
func (op Op) Info() OpInfo {
	return opTable[op]
}

// String returns the surface spelling of an operator.
func (op Op) String() string {
	if op < 0 || op >= numOps {
		return "invalid-op"
	}
	return opTable[op].Name
}

// OpByName looks up an operator by its surface spelling.
func OpByName(name string) (Op, bool) {
	op, ok := opsByName[name]
	return op, ok
}

// BuiltIn is a builtin operator application, generic over the operand
// representation E. The surface AST instantiates it with surface expressions,
// the hygienic IR with unrolled expressions and the low-level IR with itself.
// Indexed operators (load, store, jmp, bez, bnz) have no expression operands;
// their operand is the 16-bit immediate in Idx.
type BuiltIn[E any] struct {
	Op   Op
	Args []E
	Idx  uint16
}
