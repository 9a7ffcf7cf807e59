package vm

import (
	"errors"
	"fmt"
)

// Stack discipline failures. Pushing onto a full stack or popping an empty
// one is reported, never silently corrupting.
var (
	ErrStackOverflow  = errors.New("stack overflow")
	ErrStackUnderflow = errors.New("stack underflow")
)

// RegisterIndexError reports a register operand outside [0, NumRegisters).
type RegisterIndexError struct {
	Index uint8
}

func (e *RegisterIndexError) Error() string {
	return fmt.Sprintf("register index %d out of range (have %d registers)", e.Index, NumRegisters)
}

// MemoryBoundsError reports an effective address outside [0, MemSize).
// The address is widened because base + immediate + offset can overflow u32.
type MemoryBoundsError struct {
	Addr uint64
}

func (e *MemoryBoundsError) Error() string {
	return fmt.Sprintf("memory address %d out of range (memory size %d)", e.Addr, MemSize)
}

// HeapAllocationError reports an allocator failure: no fitting free block,
// a zero-size request, or an invalid/double-freed pointer.
type HeapAllocationError struct {
	Op     string // "alloc", "realloc", or "dealloc"
	Ptr    uint32 // Pointer involved, if any
	Count  uint32 // Word count requested, if any
	Reason string
}

func (e *HeapAllocationError) Error() string {
	return fmt.Sprintf("heap %s (ptr=%d, count=%d): %s", e.Op, e.Ptr, e.Count, e.Reason)
}

// TrapError is the error the engine surfaces to the host: the cause paired
// with the offset of the instruction that raised it. The fetch-execute loop
// halts at the first trap; it never continues in a corrupted state.
type TrapError struct {
	Offset uint32 // Program offset of the faulting instruction
	Err    error
}

func (e *TrapError) Error() string {
	return fmt.Sprintf("trap at offset %d: %v", e.Offset, e.Err)
}

func (e *TrapError) Unwrap() error {
	return e.Err
}
