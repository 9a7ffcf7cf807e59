package isa

import (
	"strings"
	"testing"
)

func TestAllOpcodesHaveMetadata(t *testing.T) {
	for _, op := range AllOpcodes() {
		info := GetOpcodeInfo(op)
		if info.Name == "" || strings.HasPrefix(info.Name, "UNKNOWN") {
			t.Errorf("opcode 0x%02X has no name", byte(op))
		}
		if !op.Valid() {
			t.Errorf("opcode %s not reported valid", info.Name)
		}
	}
}

func TestOpcodeCount(t *testing.T) {
	if got := OpcodeCount(); got != 36 {
		t.Errorf("OpcodeCount() = %d, want 36", got)
	}
}

func TestUnknownOpcodeInfo(t *testing.T) {
	info := GetOpcodeInfo(OpCode(0xFF))
	if info.Name != "UNKNOWN(0xFF)" {
		t.Errorf("unknown opcode name = %q", info.Name)
	}
	if OpCode(0xFF).Valid() {
		t.Error("0xFF reported as a valid opcode")
	}
}

func TestOperandLengths(t *testing.T) {
	tests := []struct {
		op   OpCode
		want int
	}{
		{OpHlt, 0},
		{OpNoop, 0},
		{OpPop, 0},
		{OpLoad, 5},
		{OpAddRI, 6},
		{OpRvPowRI, 6},
		{OpAddRR, 3},
		{OpPowRR, 3},
		{OpCmpRI, 6},
		{OpCmpRR, 3},
		{OpNot, 2},
		{OpCopy, 2},
		{OpMemCpy, 2},
		{OpJmp, 4},
		{OpJz, 5},
		{OpJnz, 5},
		{OpCall, 4},
		{OpSysCall, 1},
		{OpRet, 1},
		{OpAlloc, 2},
		{OpRealloc, 2},
		{OpDealloc, 1},
		{OpRMem, 7},
		{OpWMem, 7},
		{OpWriteStr, 2},
		{OpPush, 1},
		{OpPopR, 1},
	}
	for _, tt := range tests {
		if got := tt.op.OperandLen(); got != tt.want {
			t.Errorf("%s.OperandLen() = %d, want %d", tt.op, got, tt.want)
		}
		if got := tt.op.InstructionLen(); got != tt.want+1 {
			t.Errorf("%s.InstructionLen() = %d, want %d", tt.op, got, tt.want+1)
		}
	}
}

func TestMnemonics(t *testing.T) {
	tests := []struct {
		op   OpCode
		want string
	}{
		{OpHlt, "Hlt"},
		{OpLoad, "Load"},
		{OpRvSubRI, "RvSubRI"},
		{OpCmpRI, "CmpRI"},
		{OpSysCall, "SysCall"},
		{OpWriteStr, "WriteStr"},
		{OpPopR, "PopR"},
	}
	for _, tt := range tests {
		if got := tt.op.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestCmpFlagString(t *testing.T) {
	tests := []struct {
		flag CmpFlag
		want string
	}{
		{FlagEq, "Eq"},
		{FlagGt, "Gt"},
		{FlagLt, "Lt"},
		{FlagGeq, "Geq"},
		{FlagLeq, "Leq"},
	}
	for _, tt := range tests {
		if got := tt.flag.String(); got != tt.want {
			t.Errorf("CmpFlag.String() = %q, want %q", got, tt.want)
		}
		if !tt.flag.Valid() {
			t.Errorf("flag %s not reported valid", tt.want)
		}
	}
	if CmpFlag(5).Valid() {
		t.Error("flag 5 reported valid")
	}
}

func TestJumpPredicate(t *testing.T) {
	for _, op := range []OpCode{OpJmp, OpJz, OpJnz} {
		if !op.IsJump() {
			t.Errorf("%s.IsJump() = false", op)
		}
	}
	for _, op := range []OpCode{OpHlt, OpLoad, OpCall, OpSysCall, OpPush} {
		if op.IsJump() {
			t.Errorf("%s.IsJump() = true", op)
		}
	}
}
