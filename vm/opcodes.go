package vm

import "fmt"

// ---------------------------------------------------------------------------
// Opcode definitions: the MelVM wire contract
// ---------------------------------------------------------------------------

// Opcode is a single MelVM instruction byte. The byte values are the on-chain
// wire contract and must not change.
type Opcode byte

// Arithmetic
const (
	OpAdd Opcode = 0x10 // pop 2, push sum
	OpSub Opcode = 0x11 // pop 2, push difference
	OpMul Opcode = 0x12 // pop 2, push product
	OpDiv Opcode = 0x13 // pop 2, push quotient
	OpRem Opcode = 0x14 // pop 2, push remainder
)

// Logic and comparison
const (
	OpAnd Opcode = 0x20 // bitwise and
	OpOr  Opcode = 0x21 // bitwise or
	OpXor Opcode = 0x22 // bitwise xor
	OpNot Opcode = 0x23 // bitwise complement
	OpEql Opcode = 0x24 // pop 2, push 1 if equal else 0
	OpLt  Opcode = 0x25 // pop 2, push 1 if less-than else 0
	OpGt  Opcode = 0x26 // pop 2, push 1 if greater-than else 0
	OpShl Opcode = 0x27 // shift left
	OpShr Opcode = 0x28 // shift right
)

// Cryptography
const (
	OpHash   Opcode = 0x30 // hash a byte string (16-bit length cap)
	OpSigeok Opcode = 0x32 // signature check (16-bit length cap)
)

// Heap access
const (
	OpLoad  Opcode = 0x42 // push heap slot (16-bit index)
	OpStore Opcode = 0x43 // pop into heap slot (16-bit index)
)

// Vectors
const (
	OpVref    Opcode = 0x50 // index into a vector
	OpVappend Opcode = 0x51 // concatenate two vectors
	OpVempty  Opcode = 0x52 // push the empty vector
	OpVlen    Opcode = 0x53 // vector length
	OpVslice  Opcode = 0x54 // subvector
	OpVset    Opcode = 0x55 // functional update at index
	OpVpush   Opcode = 0x56 // append one element
	OpVcons   Opcode = 0x57 // prepend one element
)

// Byte strings (mirror the vector set)
const (
	OpBref    Opcode = 0x70
	OpBappend Opcode = 0x71
	OpBempty  Opcode = 0x72
	OpBlen    Opcode = 0x73
	OpBslice  Opcode = 0x74
	OpBset    Opcode = 0x75
	OpBpush   Opcode = 0x76
	OpBcons   Opcode = 0x77
)

// Control flow (instruction-indexed, 16-bit relative targets)
const (
	OpJmp  Opcode = 0xa0 // skip forward n instructions
	OpBez  Opcode = 0xa1 // pop, skip n instructions if zero
	OpBnz  Opcode = 0xa2 // pop, skip n instructions if nonzero
	OpLoop Opcode = 0xb0 // repeat the next k instructions n times
)

// Type operations
const (
	OpItoB  Opcode = 0xc0 // integer to byte string
	OpBtoI  Opcode = 0xc1 // byte string to integer
	OpTypeQ Opcode = 0xc2 // type tag of top of stack
)

// Push and miscellaneous
const (
	OpNoop  Opcode = 0x09 // no operation
	OpPushB Opcode = 0xf0 // push byte string (1-byte length + data)
	OpPushI Opcode = 0xf1 // push integer (32-byte big-endian)
	OpDup   Opcode = 0xff // duplicate top of stack
)

// ---------------------------------------------------------------------------
// Opcode metadata
// ---------------------------------------------------------------------------

// ImmKind describes the immediate bytes that follow an opcode in the
// instruction stream.
type ImmKind int

const (
	ImmNone  ImmKind = iota // no immediate
	ImmU16                  // one 16-bit big-endian immediate
	ImmLoop                 // two 16-bit immediates: iteration count, body size
	ImmInt                  // 32-byte big-endian integer
	ImmBytes                // 1-byte length followed by that many bytes
)

// OpcodeInfo holds decoding metadata for an opcode.
type OpcodeInfo struct {
	Name string  // disassembly name
	Imm  ImmKind // immediate encoding
	Pops int     // stack slots consumed (excluding immediates)
}

var opcodeTable = map[Opcode]OpcodeInfo{
	OpAdd: {"ADD", ImmNone, 2},
	OpSub: {"SUB", ImmNone, 2},
	OpMul: {"MUL", ImmNone, 2},
	OpDiv: {"DIV", ImmNone, 2},
	OpRem: {"REM", ImmNone, 2},

	OpAnd: {"AND", ImmNone, 2},
	OpOr:  {"OR", ImmNone, 2},
	OpXor: {"XOR", ImmNone, 2},
	OpNot: {"NOT", ImmNone, 1},
	OpEql: {"EQL", ImmNone, 2},
	OpLt:  {"LT", ImmNone, 2},
	OpGt:  {"GT", ImmNone, 2},
	OpShl: {"SHL", ImmNone, 2},
	OpShr: {"SHR", ImmNone, 2},

	OpHash:   {"HASH", ImmU16, 1},
	OpSigeok: {"SIGEOK", ImmU16, 3},

	OpLoad:  {"LOAD", ImmU16, 0},
	OpStore: {"STORE", ImmU16, 1},

	OpVref:    {"VREF", ImmNone, 2},
	OpVappend: {"VAPPEND", ImmNone, 2},
	OpVempty:  {"VEMPTY", ImmNone, 0},
	OpVlen:    {"VLENGTH", ImmNone, 1},
	OpVslice:  {"VSLICE", ImmNone, 3},
	OpVset:    {"VSET", ImmNone, 3},
	OpVpush:   {"VPUSH", ImmNone, 2},
	OpVcons:   {"VCONS", ImmNone, 2},

	OpBref:    {"BREF", ImmNone, 2},
	OpBappend: {"BAPPEND", ImmNone, 2},
	OpBempty:  {"BEMPTY", ImmNone, 0},
	OpBlen:    {"BLENGTH", ImmNone, 1},
	OpBslice:  {"BSLICE", ImmNone, 3},
	OpBset:    {"BSET", ImmNone, 3},
	OpBpush:   {"BPUSH", ImmNone, 2},
	OpBcons:   {"BCONS", ImmNone, 2},

	OpJmp:  {"JMP", ImmU16, 0},
	OpBez:  {"BEZ", ImmU16, 1},
	OpBnz:  {"BNZ", ImmU16, 1},
	OpLoop: {"LOOP", ImmLoop, 0},

	OpItoB:  {"ITOB", ImmNone, 1},
	OpBtoI:  {"BTOI", ImmNone, 1},
	OpTypeQ: {"TYPEQ", ImmNone, 1},

	OpNoop:  {"NOOP", ImmNone, 0},
	OpPushB: {"PUSHB", ImmBytes, 0},
	OpPushI: {"PUSHI", ImmInt, 0},
	OpDup:   {"DUP", ImmNone, 1},
}

// Info returns the metadata for an opcode.
func (op Opcode) Info() (OpcodeInfo, bool) {
	info, ok := opcodeTable[op]
	return info, ok
}

// Name returns the disassembly name for an opcode.
func (op Opcode) Name() string {
	if info, ok := opcodeTable[op]; ok {
		return info.Name
	}
	return fmt.Sprintf("UNKNOWN_%02X", byte(op))
}

// String implements the Stringer interface.
func (op Opcode) String() string {
	return op.Name()
}
