package vm

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math/big"

	"fortio.org/safecast"
)

// ---------------------------------------------------------------------------
// CodeBuilder: append-only buffer for compiled bytecode
// ---------------------------------------------------------------------------

// intBytes is the fixed width of an encoded integer literal.
const intBytes = 32

// maxIntBits is the largest integer the wire format can carry.
const maxIntBits = intBytes * 8

// CodeBuilder accumulates compiled bytecode. It only ever grows; compiling a
// subtree onto a partially built buffer appends exactly the bytes that
// compiling it onto an empty buffer would produce.
type CodeBuilder struct {
	bytes []byte
}

// NewCodeBuilder creates an empty code builder.
func NewCodeBuilder() *CodeBuilder {
	return &CodeBuilder{
		bytes: make([]byte, 0, 64),
	}
}

// Bytes returns the bytecode built so far.
func (b *CodeBuilder) Bytes() []byte {
	return b.bytes
}

// Len returns the current length in bytes.
func (b *CodeBuilder) Len() int {
	return len(b.bytes)
}

// Emit appends a bare opcode.
func (b *CodeBuilder) Emit(op Opcode) {
	b.bytes = append(b.bytes, byte(op))
}

// EmitU16 appends an opcode followed by a 16-bit big-endian immediate.
func (b *CodeBuilder) EmitU16(op Opcode, imm uint16) {
	b.bytes = append(b.bytes, byte(op), byte(imm>>8), byte(imm))
}

// PutU16 appends a bare 16-bit big-endian value.
func (b *CodeBuilder) PutU16(v uint16) {
	var buf [2]byte
	binary.BigEndian.PutUint16(buf[:], v)
	b.bytes = append(b.bytes, buf[:]...)
}

// EmitPushInt appends a push-integer instruction: the opcode followed by the
// value's 32-byte big-endian representation. Values wider than 256 bits are a
// data-model precondition violation.
func (b *CodeBuilder) EmitPushInt(n *big.Int) {
	if n.Sign() < 0 || n.BitLen() > maxIntBits {
		panic(fmt.Sprintf("vm: integer literal does not fit in %d bits", maxIntBits))
	}
	b.bytes = append(b.bytes, byte(OpPushI))
	var buf [intBytes]byte
	n.FillBytes(buf[:])
	b.bytes = append(b.bytes, buf[:]...)
}

// EmitPushBytes appends a push-bytes instruction: the opcode, a one-byte
// length, then the raw bytes. Strings longer than 255 bytes are a data-model
// precondition violation.
func (b *CodeBuilder) EmitPushBytes(data []byte) {
	n := safecast.MustConvert[uint8](len(data))
	b.bytes = append(b.bytes, byte(OpPushB), n)
	b.bytes = append(b.bytes, data...)
}

// String renders the buffer as lowercase hex, one byte pair per byte.
func (b *CodeBuilder) String() string {
	return hex.EncodeToString(b.bytes)
}
