// Package program implements the bytecode program container: an append-only
// byte buffer indexable by instruction offset, a raw binary file format, and
// a disassembler over the instruction set in pkg/isa.
package program

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"

	"github.com/Barca545/spdr-isa/pkg/isa"
)

// Ext is the conventional file extension for program files. It is not
// enforced anywhere; any path round-trips.
const Ext = ".spdr"

// Program is an ordered, append-only sequence of instruction bytes, addressed
// by a 32-bit offset. Construction is additive; once a program is handed to
// the engine it should be treated as immutable (no opcode mutates code).
type Program struct {
	code []byte
}

// New creates an empty program.
func New() *Program {
	return &Program{code: make([]byte, 0, 64)}
}

// FromBytes creates a program holding a copy of the given bytes.
func FromBytes(b []byte) *Program {
	p := &Program{code: make([]byte, len(b))}
	copy(p.code, b)
	return p
}

// Push appends a single byte.
func (p *Program) Push(b byte) {
	p.code = append(p.code, b)
}

// Append appends the given bytes. There is no bound other than memory.
func (p *Program) Append(b ...byte) {
	p.code = append(p.code, b...)
}

// Prepend splices bytes ahead of offset 0, shifting everything already
// emitted. Absolute jump or call targets computed before a Prepend point at
// the wrong instructions afterwards and must be recomputed by the caller.
func (p *Program) Prepend(b ...byte) {
	p.code = append(append(make([]byte, 0, len(b)+len(p.code)), b...), p.code...)
}

// Emit appends an opcode tag and returns its offset.
func (p *Program) Emit(op isa.OpCode) int {
	offset := len(p.code)
	p.code = append(p.code, byte(op))
	return offset
}

// EmitWithOperands appends an opcode tag followed by operand bytes and
// returns the tag's offset.
func (p *Program) EmitWithOperands(op isa.OpCode, operands ...byte) int {
	offset := len(p.code)
	p.code = append(p.code, byte(op))
	p.code = append(p.code, operands...)
	return offset
}

// At returns the byte at the given offset. Out-of-range access is an error,
// never a default value.
func (p *Program) At(offset uint32) (byte, error) {
	if int(offset) >= len(p.code) {
		return 0, fmt.Errorf("program offset %d out of range (len %d)", offset, len(p.code))
	}
	return p.code[offset], nil
}

// Set overwrites the byte at the given offset. This exists for target
// patching during construction; executed programs are never mutated.
func (p *Program) Set(offset uint32, b byte) error {
	if int(offset) >= len(p.code) {
		return fmt.Errorf("program offset %d out of range (len %d)", offset, len(p.code))
	}
	p.code[offset] = b
	return nil
}

// Len returns the program length in bytes.
func (p *Program) Len() int {
	return len(p.code)
}

// Bytes returns the underlying buffer. The slice aliases the program's
// storage; callers must not grow it.
func (p *Program) Bytes() []byte {
	return p.code
}

// Save writes the program to a file as the raw byte buffer, verbatim. There
// is no header, version tag, or checksum, so a foreign or corrupted file is
// indistinguishable from a real program until it decodes as garbage.
func (p *Program) Save(path string) error {
	if err := os.WriteFile(path, p.code, 0o644); err != nil {
		return fmt.Errorf("save program: %w", err)
	}
	return nil
}

// Load reads a program saved with Save.
func Load(path string) (*Program, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load program: %w", err)
	}
	return &Program{code: b}, nil
}

// FloatImm encodes a float immediate as its little-endian operand bytes.
func FloatImm(f float32) []byte {
	return binary.LittleEndian.AppendUint32(nil, math.Float32bits(f))
}

// U32Imm encodes an address or index immediate as its little-endian operand bytes.
func U32Imm(v uint32) []byte {
	return binary.LittleEndian.AppendUint32(nil, v)
}
