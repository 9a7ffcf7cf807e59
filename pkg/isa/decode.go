package isa

import (
	"encoding/binary"
	"fmt"
	"math"
)

// InvalidOpcodeError reports a tag byte that names no defined opcode.
type InvalidOpcodeError struct {
	Offset int  // Byte offset of the tag
	Byte   byte // The offending tag byte
}

func (e *InvalidOpcodeError) Error() string {
	return fmt.Sprintf("invalid opcode 0x%02X at offset %d", e.Byte, e.Offset)
}

// TruncatedError reports an instruction whose declared operand bytes run past
// the end of the buffer.
type TruncatedError struct {
	Offset int    // Byte offset of the tag
	Op     OpCode // The opcode whose operands are missing
	Need   int    // Operand bytes the opcode declares
	Have   int    // Operand bytes remaining in the buffer
}

func (e *TruncatedError) Error() string {
	if e.Op == OpHlt && e.Need == 1 {
		// The tag byte itself is past the end of the buffer.
		return fmt.Sprintf("truncated instruction at offset %d: no tag byte", e.Offset)
	}
	return fmt.Sprintf("truncated %s at offset %d: need %d operand bytes, have %d", e.Op, e.Offset, e.Need, e.Have)
}

// Instruction is the transient decoded form of one instruction. It exists
// only between decode and execution; nothing persists it.
type Instruction struct {
	Op   OpCode
	Flag CmpFlag // Compare instructions only
	Rd   uint8   // First register operand
	Ra   uint8   // Second register operand
	Rb   uint8   // Third register operand
	Imm  uint32  // Raw little-endian immediate bits; meaning fixed by Op
	Size int     // Total encoded length including the tag byte
}

// ImmFloat reinterprets the immediate bits as an IEEE-754 32-bit float.
// Every 4-byte pattern is a valid float, so this never fails.
func (in Instruction) ImmFloat() float32 {
	return math.Float32frombits(in.Imm)
}

// ImmU32 returns the immediate as an unsigned 32-bit integer. Jump targets,
// call indices, and memory offsets read this path, never the float one.
func (in Instruction) ImmU32() uint32 {
	return in.Imm
}

// Decode reads one instruction starting at offset. It consumes exactly the
// tag byte plus the opcode's declared operand bytes; there is no padding and
// no resynchronization after a bad tag.
func Decode(code []byte, offset int) (Instruction, error) {
	if offset < 0 || offset >= len(code) {
		return Instruction{}, &TruncatedError{Offset: offset, Op: OpHlt, Need: 1, Have: 0}
	}

	op := OpCode(code[offset])
	if !op.Valid() {
		return Instruction{}, &InvalidOpcodeError{Offset: offset, Byte: code[offset]}
	}

	info := GetOpcodeInfo(op)
	need := operandLen[info.Layout]
	operands := code[offset+1:]
	if len(operands) < need {
		return Instruction{}, &TruncatedError{Offset: offset, Op: op, Need: need, Have: len(operands)}
	}
	operands = operands[:need]

	in := Instruction{Op: op, Size: 1 + need}

	switch info.Layout {
	case LayoutNone:
		// No operands.

	case LayoutRegImmF:
		in.Rd = operands[0]
		in.Imm = binary.LittleEndian.Uint32(operands[1:5])

	case LayoutRegRegImmF:
		in.Rd = operands[0]
		in.Ra = operands[1]
		in.Imm = binary.LittleEndian.Uint32(operands[2:6])

	case LayoutRegRegReg:
		in.Rd = operands[0]
		in.Ra = operands[1]
		in.Rb = operands[2]

	case LayoutFlagRegImm:
		in.Flag = CmpFlag(operands[0])
		in.Rd = operands[1]
		in.Imm = binary.LittleEndian.Uint32(operands[2:6])

	case LayoutFlagRegReg:
		in.Flag = CmpFlag(operands[0])
		in.Rd = operands[1]
		in.Ra = operands[2]

	case LayoutRegReg:
		in.Rd = operands[0]
		in.Ra = operands[1]

	case LayoutImmU32:
		in.Imm = binary.LittleEndian.Uint32(operands[0:4])

	case LayoutRegImmU32:
		in.Rd = operands[0]
		in.Imm = binary.LittleEndian.Uint32(operands[1:5])

	case LayoutImmU8:
		in.Imm = uint32(operands[0])

	case LayoutReg:
		in.Rd = operands[0]

	case LayoutMem:
		in.Rd = operands[0]
		in.Ra = operands[1]
		in.Imm = binary.LittleEndian.Uint32(operands[2:6])
		in.Rb = operands[6]
	}

	return in, nil
}
