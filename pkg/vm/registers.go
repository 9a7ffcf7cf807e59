// Package vm implements the execution engine: a 255-word register file, a
// flat address space split into a bounded stack and a free-list heap, and the
// fetch-decode-execute loop that gives each opcode its semantics.
package vm

import "math"

// Word is the VM's 4-byte storage cell. It carries no type tag: the same bit
// pattern is a float to arithmetic opcodes and an address or index to control
// flow and memory opcodes. The opcode that reads a cell fixes its meaning.
type Word uint32

// WordFromFloat stores a float's IEEE-754 bit pattern in a word.
func WordFromFloat(f float32) Word {
	return Word(math.Float32bits(f))
}

// Float reinterprets the word as an IEEE-754 32-bit float. All bit patterns
// are valid floats (including NaN and Inf), so this never fails.
func (w Word) Float() float32 {
	return math.Float32frombits(uint32(w))
}

// U32 returns the word's raw unsigned value. Jump targets, pointers, counts,
// and offsets read this path.
func (w Word) U32() uint32 {
	return uint32(w)
}

// NumRegisters is the register count; operand bytes address [0, 255), so
// register 255 does not exist.
const NumRegisters = 255

// Reserved register layout. A program may read any of these; the engine owns
// writes to PC and SP (they are mirrors of loop state, and writing them from
// bytecode does not redirect control).
const (
	// RegEQ holds the 0/1 result of the last compare. It doubles as the
	// guaranteed-zero sentinel for RMem/WMem register offsets: a compare
	// result is never a real offset, so using it means "no register offset".
	RegEQ uint8 = 0

	// RegLoop is reserved for a loop variable by calling convention.
	RegLoop uint8 = 1

	// RegPC mirrors the program counter.
	RegPC uint8 = 2

	// RegSP mirrors the stack pointer (two's-complement -1 when empty).
	RegSP uint8 = 3

	// RegArg0 is the first of NumArgRegisters contiguous argument registers.
	RegArg0 uint8 = 4

	// NumArgRegisters is the size of the argument-passing block. This is an
	// engine configuration constant, not an architectural fact.
	NumArgRegisters = 9

	// NumReserved is the total reserved block; general-purpose registers
	// start here.
	NumReserved = int(RegArg0) + NumArgRegisters
)

// RegisterFile is the fixed array of addressable words used as operand
// storage. Access is bounds-checked; there is no register typing.
type RegisterFile struct {
	regs [NumRegisters]Word
}

// Read returns the word in the given register.
func (r *RegisterFile) Read(idx uint8) (Word, error) {
	if int(idx) >= NumRegisters {
		return 0, &RegisterIndexError{Index: idx}
	}
	return r.regs[idx], nil
}

// Write stores a word into the given register.
func (r *RegisterFile) Write(idx uint8, w Word) error {
	if int(idx) >= NumRegisters {
		return &RegisterIndexError{Index: idx}
	}
	r.regs[idx] = w
	return nil
}
