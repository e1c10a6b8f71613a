package vm

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
)

// ---------------------------------------------------------------------------
// Decoder: bytecode to instruction stream
// ---------------------------------------------------------------------------

// Instr is one decoded VM instruction with its immediates.
type Instr struct {
	Op    Opcode
	Imm   uint16   // 16-bit immediate: heap index, branch offset, limit or loop count
	Count uint16   // loop body size in instructions
	Int   *big.Int // push-integer immediate
	Bytes []byte   // push-bytes immediate
}

// String renders the instruction in disassembly form.
func (in Instr) String() string {
	switch {
	case in.Op == OpPushI:
		return fmt.Sprintf("%s %s", in.Op.Name(), in.Int)
	case in.Op == OpPushB:
		return fmt.Sprintf("%s %s", in.Op.Name(), hex.EncodeToString(in.Bytes))
	case in.Op == OpLoop:
		return fmt.Sprintf("%s %d %d", in.Op.Name(), in.Imm, in.Count)
	default:
		if info, ok := in.Op.Info(); ok && info.Imm == ImmU16 {
			return fmt.Sprintf("%s %d", in.Op.Name(), in.Imm)
		}
		return in.Op.Name()
	}
}

// Decode parses bytecode into its instruction stream. It fails on unknown
// opcodes and truncated immediates.
func Decode(code []byte) ([]Instr, error) {
	var instrs []Instr
	pos := 0
	for pos < len(code) {
		op := Opcode(code[pos])
		info, ok := op.Info()
		if !ok {
			return nil, fmt.Errorf("vm: unknown opcode 0x%02x at offset %d", byte(op), pos)
		}
		pos++

		in := Instr{Op: op}
		switch info.Imm {
		case ImmNone:
		case ImmU16:
			if pos+2 > len(code) {
				return nil, fmt.Errorf("vm: truncated immediate for %s at offset %d", op, pos)
			}
			in.Imm = binary.BigEndian.Uint16(code[pos:])
			pos += 2
		case ImmLoop:
			if pos+4 > len(code) {
				return nil, fmt.Errorf("vm: truncated loop header at offset %d", pos)
			}
			in.Imm = binary.BigEndian.Uint16(code[pos:])
			in.Count = binary.BigEndian.Uint16(code[pos+2:])
			pos += 4
		case ImmInt:
			if pos+intBytes > len(code) {
				return nil, fmt.Errorf("vm: truncated integer literal at offset %d", pos)
			}
			in.Int = new(big.Int).SetBytes(code[pos : pos+intBytes])
			pos += intBytes
		case ImmBytes:
			if pos >= len(code) {
				return nil, fmt.Errorf("vm: truncated byte-string length at offset %d", pos)
			}
			n := int(code[pos])
			pos++
			if pos+n > len(code) {
				return nil, fmt.Errorf("vm: truncated byte string at offset %d", pos)
			}
			in.Bytes = append([]byte(nil), code[pos:pos+n]...)
			pos += n
		}
		instrs = append(instrs, in)
	}
	return instrs, nil
}

// Disassemble renders bytecode as one instruction per line.
func Disassemble(code []byte) (string, error) {
	instrs, err := Decode(code)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	for _, in := range instrs {
		sb.WriteString(in.String())
		sb.WriteByte('\n')
	}
	return sb.String(), nil
}
