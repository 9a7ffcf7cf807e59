package isa

import "fmt"

// OpCode is a one-byte instruction tag.
// Opcodes are organized into ranges by category for easy identification.
type OpCode byte

const (
	// ========================================================================
	// Control (0x00-0x0F)
	// ========================================================================

	OpHlt  OpCode = 0x00 // Halt execution
	OpNoop OpCode = 0x01 // No operation

	// ========================================================================
	// Data movement (0x10-0x1F)
	// ========================================================================

	OpLoad   OpCode = 0x10 // Load float immediate: Load <rd:u8> <imm:f32>
	OpCopy   OpCode = 0x11 // Copy register to register: Copy <rd:u8> <r0:u8>
	OpMemCpy OpCode = 0x12 // Copy word at address in r0 to address in rd: MemCpy <rd:u8> <r0:u8>

	// ========================================================================
	// Register-immediate arithmetic (0x20-0x2F)
	// Rv* forms compute the reverse operation (immediate op register) because
	// operand order matters for subtraction, division, and exponentiation.
	// ========================================================================

	OpAddRI   OpCode = 0x20 // rd = r0 + imm
	OpSubRI   OpCode = 0x21 // rd = r0 - imm
	OpRvSubRI OpCode = 0x22 // rd = imm - r0
	OpMulRI   OpCode = 0x23 // rd = r0 * imm
	OpDivRI   OpCode = 0x24 // rd = r0 / imm
	OpRvDivRI OpCode = 0x25 // rd = imm / r0
	OpPowRI   OpCode = 0x26 // rd = r0 ^ imm
	OpRvPowRI OpCode = 0x27 // rd = imm ^ r0

	// ========================================================================
	// Register-register arithmetic (0x30-0x3F)
	// ========================================================================

	OpAddRR OpCode = 0x30 // rd = r0 + r1
	OpSubRR OpCode = 0x31 // rd = r0 - r1
	OpMulRR OpCode = 0x32 // rd = r0 * r1
	OpDivRR OpCode = 0x33 // rd = r0 / r1
	OpPowRR OpCode = 0x34 // rd = r0 ^ r1

	// ========================================================================
	// Logic and comparison (0x40-0x4F)
	// ========================================================================

	OpNot   OpCode = 0x40 // rd = bitwise complement of r0's raw word
	OpCmpRI OpCode = 0x41 // EQ = flag-relation(r0, imm): CmpRI <flag:u8> <r0:u8> <imm:f32>
	OpCmpRR OpCode = 0x42 // EQ = flag-relation(r0, r1): CmpRR <flag:u8> <r0:u8> <r1:u8>

	// ========================================================================
	// Control flow (0x50-0x5F)
	// ========================================================================

	OpJmp     OpCode = 0x50 // Unconditional jump: Jmp <target:u32>
	OpJz      OpCode = 0x51 // Jump if register is zero: Jz <r0:u8> <target:u32>
	OpJnz     OpCode = 0x52 // Jump if register is non-zero: Jnz <r0:u8> <target:u32>
	OpCall    OpCode = 0x53 // Push return address, jump: Call <target:u32>
	OpSysCall OpCode = 0x54 // Invoke host function: SysCall <idx:u8>
	OpRet     OpCode = 0x55 // Pop return address, discard args: Ret <argc:u8>

	// ========================================================================
	// Heap (0x60-0x6F)
	// ========================================================================

	OpAlloc   OpCode = 0x60 // rd = pointer to r0 fresh words: Alloc <rd:u8> <r0:u8>
	OpRealloc OpCode = 0x61 // rd = resized allocation at rd for r0 words
	OpDealloc OpCode = 0x62 // Release the allocation pointed to by r0: Dealloc <r0:u8>

	// ========================================================================
	// Memory access (0x70-0x7F)
	// ========================================================================

	OpRMem     OpCode = 0x70 // rd = mem[r0 + imm + r1]: RMem <rd:u8> <r0:u8> <imm:u32> <r1:u8>
	OpWMem     OpCode = 0x71 // mem[rd + imm + r1] = r0: WMem <rd:u8> <r0:u8> <imm:u32> <r1:u8>
	OpWriteStr OpCode = 0x72 // Write r1 words at pointer r0 as a string: WriteStr <r0:u8> <r1:u8>

	// ========================================================================
	// Stack (0x80-0x8F)
	// ========================================================================

	OpPush OpCode = 0x80 // Push register value: Push <r0:u8>
	OpPop  OpCode = 0x81 // Discard top of stack
	OpPopR OpCode = 0x82 // Pop top of stack into register: PopR <r0:u8>
)

// CmpFlag selects which relational test a compare instruction performs.
// The boolean result lands in the EQ register regardless of the relation.
type CmpFlag byte

const (
	FlagEq  CmpFlag = 0 // equal
	FlagGt  CmpFlag = 1 // greater than
	FlagLt  CmpFlag = 2 // less than
	FlagGeq CmpFlag = 3 // greater than or equal
	FlagLeq CmpFlag = 4 // less than or equal
)

// String returns the flag's disassembly name.
func (f CmpFlag) String() string {
	switch f {
	case FlagEq:
		return "Eq"
	case FlagGt:
		return "Gt"
	case FlagLt:
		return "Lt"
	case FlagGeq:
		return "Geq"
	case FlagLeq:
		return "Leq"
	default:
		return fmt.Sprintf("CmpFlag(%d)", byte(f))
	}
}

// Valid reports whether the flag byte names a defined relation.
func (f CmpFlag) Valid() bool {
	return f <= FlagLeq
}

// Layout identifies an opcode's operand encoding family. Every opcode in a
// family consumes exactly the same operand bytes after its tag; decoding is
// strictly sequential with no padding.
type Layout uint8

const (
	LayoutNone       Layout = iota // no operands
	LayoutRegImmF                  // reg, f32 immediate
	LayoutRegRegImmF               // reg, reg, f32 immediate
	LayoutRegRegReg                // reg, reg, reg
	LayoutFlagRegImm               // cmp flag, reg, f32 immediate
	LayoutFlagRegReg               // cmp flag, reg, reg
	LayoutRegReg                   // reg, reg
	LayoutImmU32                   // u32 immediate
	LayoutRegImmU32                // reg, u32 immediate
	LayoutImmU8                    // u8 immediate
	LayoutReg                      // reg
	LayoutMem                      // reg, reg, u32 immediate, reg
)

// operandLen maps each layout to its operand byte count.
var operandLen = [...]int{
	LayoutNone:       0,
	LayoutRegImmF:    5,
	LayoutRegRegImmF: 6,
	LayoutRegRegReg:  3,
	LayoutFlagRegImm: 6,
	LayoutFlagRegReg: 3,
	LayoutRegReg:     2,
	LayoutImmU32:     4,
	LayoutRegImmU32:  5,
	LayoutImmU8:      1,
	LayoutReg:        1,
	LayoutMem:        7,
}

// OpcodeInfo provides metadata about each opcode for decoding and validation.
type OpcodeInfo struct {
	Name   string // Disassembly mnemonic
	Layout Layout // Operand encoding family
}

// opcodeInfoTable maps opcodes to their metadata.
var opcodeInfoTable = map[OpCode]OpcodeInfo{
	// Control
	OpHlt:  {"Hlt", LayoutNone},
	OpNoop: {"Noop", LayoutNone},

	// Data movement
	OpLoad:   {"Load", LayoutRegImmF},
	OpCopy:   {"Copy", LayoutRegReg},
	OpMemCpy: {"MemCpy", LayoutRegReg},

	// Register-immediate arithmetic
	OpAddRI:   {"AddRI", LayoutRegRegImmF},
	OpSubRI:   {"SubRI", LayoutRegRegImmF},
	OpRvSubRI: {"RvSubRI", LayoutRegRegImmF},
	OpMulRI:   {"MulRI", LayoutRegRegImmF},
	OpDivRI:   {"DivRI", LayoutRegRegImmF},
	OpRvDivRI: {"RvDivRI", LayoutRegRegImmF},
	OpPowRI:   {"PowRI", LayoutRegRegImmF},
	OpRvPowRI: {"RvPowRI", LayoutRegRegImmF},

	// Register-register arithmetic
	OpAddRR: {"AddRR", LayoutRegRegReg},
	OpSubRR: {"SubRR", LayoutRegRegReg},
	OpMulRR: {"MulRR", LayoutRegRegReg},
	OpDivRR: {"DivRR", LayoutRegRegReg},
	OpPowRR: {"PowRR", LayoutRegRegReg},

	// Logic and comparison
	OpNot:   {"Not", LayoutRegReg},
	OpCmpRI: {"CmpRI", LayoutFlagRegImm},
	OpCmpRR: {"CmpRR", LayoutFlagRegReg},

	// Control flow
	OpJmp:     {"Jmp", LayoutImmU32},
	OpJz:      {"Jz", LayoutRegImmU32},
	OpJnz:     {"Jnz", LayoutRegImmU32},
	OpCall:    {"Call", LayoutImmU32},
	OpSysCall: {"SysCall", LayoutImmU8},
	OpRet:     {"Ret", LayoutImmU8},

	// Heap
	OpAlloc:   {"Alloc", LayoutRegReg},
	OpRealloc: {"Realloc", LayoutRegReg},
	OpDealloc: {"Dealloc", LayoutReg},

	// Memory access
	OpRMem:     {"RMem", LayoutMem},
	OpWMem:     {"WMem", LayoutMem},
	OpWriteStr: {"WriteStr", LayoutRegReg},

	// Stack
	OpPush: {"Push", LayoutReg},
	OpPop:  {"Pop", LayoutNone},
	OpPopR: {"PopR", LayoutReg},
}

// GetOpcodeInfo returns metadata for an opcode.
// Returns a zero OpcodeInfo with name "UNKNOWN" if the opcode is not defined.
func GetOpcodeInfo(op OpCode) OpcodeInfo {
	if info, ok := opcodeInfoTable[op]; ok {
		return info
	}
	return OpcodeInfo{Name: fmt.Sprintf("UNKNOWN(0x%02X)", byte(op)), Layout: LayoutNone}
}

// Valid reports whether the byte names a defined opcode.
func (op OpCode) Valid() bool {
	_, ok := opcodeInfoTable[op]
	return ok
}

// String returns the opcode's disassembly mnemonic.
func (op OpCode) String() string {
	return GetOpcodeInfo(op).Name
}

// OperandLen returns the number of operand bytes following this opcode's tag.
func (op OpCode) OperandLen() int {
	return operandLen[GetOpcodeInfo(op).Layout]
}

// InstructionLen returns the total encoded length of an instruction (tag + operands).
func (op OpCode) InstructionLen() int {
	return 1 + op.OperandLen()
}

// IsJump returns true if this opcode is one of the jump instructions.
func (op OpCode) IsJump() bool {
	return op >= OpJmp && op <= OpJnz
}

// IsArithmetic returns true for the float arithmetic opcodes.
func (op OpCode) IsArithmetic() bool {
	return op >= OpAddRI && op <= OpPowRR
}

// AllOpcodes returns a slice of every defined opcode.
// Useful for testing that all opcodes have metadata.
func AllOpcodes() []OpCode {
	opcodes := make([]OpCode, 0, len(opcodeInfoTable))
	for op := range opcodeInfoTable {
		opcodes = append(opcodes, op)
	}
	return opcodes
}

// OpcodeCount returns the number of defined opcodes.
func OpcodeCount() int {
	return len(opcodeInfoTable)
}
