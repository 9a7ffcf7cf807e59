package vm

import (
	"fmt"
	"io"
	"math"
	"os"

	"github.com/tliron/commonlog"

	"github.com/Barca545/spdr-isa/pkg/isa"
	"github.com/Barca545/spdr-isa/pkg/program"
)

// SysCallFn is a host function invoked by the SysCall opcode. The engine's
// only contract is dispatch by index; argument and return conventions belong
// to the host (by convention, the argument registers and the stack).
type SysCallFn func(vm *VM) error

// VM bundles a program with fresh per-instance register and memory state and
// runs the fetch-decode-execute loop. A VM is single-threaded and owns its
// state exclusively; to run programs concurrently, create one VM each and
// share only the (read-only) program bytes.
type VM struct {
	prog     *program.Program
	regs     RegisterFile
	mem      *AddressSpace
	syscalls map[uint8]SysCallFn
	out      io.Writer
	log      commonlog.Logger

	pc     uint32
	halted bool

	// Trace logs every executed instruction at debug level.
	Trace bool

	// MaxSteps aborts execution after this many instructions when non-zero.
	MaxSteps uint64

	// DeallocNoop degrades the Dealloc opcode to a no-op. Allocations then
	// leak, but allocator state stays consistent.
	DeallocNoop bool
}

// New creates a VM for the given program with empty registers, an empty
// stack, a fully free heap, and no syscalls bound.
func New(p *program.Program) *VM {
	return &VM{
		prog:     p,
		mem:      NewAddressSpace(),
		syscalls: make(map[uint8]SysCallFn),
		out:      os.Stdout,
		log:      commonlog.GetLogger("spdr.vm"),
	}
}

// BindSysCall binds a host function to a syscall index.
func (vm *VM) BindSysCall(idx uint8, fn SysCallFn) {
	vm.syscalls[idx] = fn
}

// SetOutput redirects the WriteStr sink (default os.Stdout).
func (vm *VM) SetOutput(w io.Writer) {
	vm.out = w
}

// Registers exposes the register file, primarily for syscall handlers and
// embedding hosts.
func (vm *VM) Registers() *RegisterFile {
	return &vm.regs
}

// Memory exposes the address space, primarily for syscall handlers and
// embedding hosts.
func (vm *VM) Memory() *AddressSpace {
	return vm.mem
}

// PC returns the current program counter.
func (vm *VM) PC() uint32 {
	return vm.pc
}

// Halted reports whether the VM has executed Hlt or trapped.
func (vm *VM) Halted() bool {
	return vm.halted
}

// Run executes instructions until Hlt or the first fatal error. Errors are
// TrapErrors carrying the offset of the faulting instruction.
func (vm *VM) Run() error {
	for steps := uint64(0); ; steps++ {
		if vm.MaxSteps > 0 && steps >= vm.MaxSteps {
			return vm.trap(fmt.Errorf("instruction budget of %d exceeded", vm.MaxSteps))
		}
		done, err := vm.Step()
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
}

// Step fetches, decodes, and executes one instruction. It returns true once
// the VM has halted. On error the VM also halts; execution never continues
// past a trap.
func (vm *VM) Step() (bool, error) {
	if vm.halted {
		return true, nil
	}

	in, err := isa.Decode(vm.prog.Bytes(), int(vm.pc))
	if err != nil {
		return true, vm.trap(err)
	}

	if vm.Trace {
		vm.log.Debugf("[%04x] %-8s depth=%d", vm.pc, in.Op, vm.mem.StackDepth())
	}

	next := vm.pc + uint32(in.Size)

	switch in.Op {
	case isa.OpHlt:
		vm.halted = true

	case isa.OpNoop:
		// Do nothing.

	case isa.OpLoad:
		if err := vm.regs.Write(in.Rd, Word(in.Imm)); err != nil {
			return true, vm.trap(err)
		}

	case isa.OpCopy:
		v, err := vm.regs.Read(in.Ra)
		if err != nil {
			return true, vm.trap(err)
		}
		if err := vm.regs.Write(in.Rd, v); err != nil {
			return true, vm.trap(err)
		}

	case isa.OpMemCpy:
		dst, err := vm.regs.Read(in.Rd)
		if err != nil {
			return true, vm.trap(err)
		}
		src, err := vm.regs.Read(in.Ra)
		if err != nil {
			return true, vm.trap(err)
		}
		v, err := vm.mem.At(uint64(src.U32()))
		if err != nil {
			return true, vm.trap(err)
		}
		if err := vm.mem.SetAt(uint64(dst.U32()), v); err != nil {
			return true, vm.trap(err)
		}

	case isa.OpAddRI, isa.OpSubRI, isa.OpRvSubRI, isa.OpMulRI,
		isa.OpDivRI, isa.OpRvDivRI, isa.OpPowRI, isa.OpRvPowRI:
		a, err := vm.regs.Read(in.Ra)
		if err != nil {
			return true, vm.trap(err)
		}
		v := arithRI(in.Op, a.Float(), in.ImmFloat())
		if err := vm.regs.Write(in.Rd, WordFromFloat(v)); err != nil {
			return true, vm.trap(err)
		}

	case isa.OpAddRR, isa.OpSubRR, isa.OpMulRR, isa.OpDivRR, isa.OpPowRR:
		a, err := vm.regs.Read(in.Ra)
		if err != nil {
			return true, vm.trap(err)
		}
		b, err := vm.regs.Read(in.Rb)
		if err != nil {
			return true, vm.trap(err)
		}
		v := arithRR(in.Op, a.Float(), b.Float())
		if err := vm.regs.Write(in.Rd, WordFromFloat(v)); err != nil {
			return true, vm.trap(err)
		}

	case isa.OpNot:
		a, err := vm.regs.Read(in.Ra)
		if err != nil {
			return true, vm.trap(err)
		}
		if err := vm.regs.Write(in.Rd, ^a); err != nil {
			return true, vm.trap(err)
		}

	case isa.OpCmpRI:
		if !in.Flag.Valid() {
			return true, vm.trap(fmt.Errorf("invalid compare flag %d", byte(in.Flag)))
		}
		a, err := vm.regs.Read(in.Rd)
		if err != nil {
			return true, vm.trap(err)
		}
		vm.setEQ(compare(in.Flag, a.Float(), in.ImmFloat()))

	case isa.OpCmpRR:
		if !in.Flag.Valid() {
			return true, vm.trap(fmt.Errorf("invalid compare flag %d", byte(in.Flag)))
		}
		a, err := vm.regs.Read(in.Rd)
		if err != nil {
			return true, vm.trap(err)
		}
		b, err := vm.regs.Read(in.Ra)
		if err != nil {
			return true, vm.trap(err)
		}
		vm.setEQ(compare(in.Flag, a.Float(), b.Float()))

	case isa.OpJmp:
		next = in.ImmU32()

	case isa.OpJz, isa.OpJnz:
		cond, err := vm.regs.Read(in.Rd)
		if err != nil {
			return true, vm.trap(err)
		}
		zero := cond.Float() == 0
		if (in.Op == isa.OpJz) == zero {
			next = in.ImmU32()
		}

	case isa.OpCall:
		if err := vm.mem.Push(Word(next)); err != nil {
			return true, vm.trap(err)
		}
		next = in.ImmU32()

	case isa.OpRet:
		ra, err := vm.mem.Pop()
		if err != nil {
			return true, vm.trap(err)
		}
		// Argument cleanup is coupled to the return: discard the
		// instruction's declared count of slots below the return address.
		for n := in.ImmU32(); n > 0; n-- {
			if _, err := vm.mem.Pop(); err != nil {
				return true, vm.trap(err)
			}
		}
		next = ra.U32()

	case isa.OpSysCall:
		idx := uint8(in.ImmU32())
		fn, ok := vm.syscalls[idx]
		if !ok {
			return true, vm.trap(fmt.Errorf("syscall %d: no handler bound", idx))
		}
		if err := fn(vm); err != nil {
			return true, vm.trap(fmt.Errorf("syscall %d: %w", idx, err))
		}

	case isa.OpAlloc:
		count, err := vm.regs.Read(in.Ra)
		if err != nil {
			return true, vm.trap(err)
		}
		ptr, err := vm.mem.Alloc(count.U32())
		if err != nil {
			return true, vm.trap(err)
		}
		if err := vm.regs.Write(in.Rd, Word(ptr)); err != nil {
			return true, vm.trap(err)
		}

	case isa.OpRealloc:
		ptr, err := vm.regs.Read(in.Rd)
		if err != nil {
			return true, vm.trap(err)
		}
		count, err := vm.regs.Read(in.Ra)
		if err != nil {
			return true, vm.trap(err)
		}
		newPtr, err := vm.mem.Realloc(ptr.U32(), count.U32())
		if err != nil {
			return true, vm.trap(err)
		}
		if err := vm.regs.Write(in.Rd, Word(newPtr)); err != nil {
			return true, vm.trap(err)
		}

	case isa.OpDealloc:
		if vm.DeallocNoop {
			break
		}
		ptr, err := vm.regs.Read(in.Rd)
		if err != nil {
			return true, vm.trap(err)
		}
		if err := vm.mem.Dealloc(ptr.U32()); err != nil {
			return true, vm.trap(err)
		}

	case isa.OpRMem:
		addr, err := vm.effectiveAddr(in)
		if err != nil {
			return true, vm.trap(err)
		}
		v, err := vm.mem.At(addr)
		if err != nil {
			return true, vm.trap(err)
		}
		if err := vm.regs.Write(in.Rd, v); err != nil {
			return true, vm.trap(err)
		}

	case isa.OpWMem:
		addr, err := vm.effectiveAddr(in)
		if err != nil {
			return true, vm.trap(err)
		}
		v, err := vm.regs.Read(in.Ra)
		if err != nil {
			return true, vm.trap(err)
		}
		if err := vm.mem.SetAt(addr, v); err != nil {
			return true, vm.trap(err)
		}

	case isa.OpWriteStr:
		if err := vm.writeStr(in.Rd, in.Ra); err != nil {
			return true, vm.trap(err)
		}

	case isa.OpPush:
		v, err := vm.regs.Read(in.Rd)
		if err != nil {
			return true, vm.trap(err)
		}
		if err := vm.mem.Push(v); err != nil {
			return true, vm.trap(err)
		}

	case isa.OpPop:
		if _, err := vm.mem.Pop(); err != nil {
			return true, vm.trap(err)
		}

	case isa.OpPopR:
		v, err := vm.mem.Pop()
		if err != nil {
			return true, vm.trap(err)
		}
		if err := vm.regs.Write(in.Rd, v); err != nil {
			return true, vm.trap(err)
		}
	}

	vm.pc = next
	vm.mirror()
	return vm.halted, nil
}

// effectiveAddr computes base + immediate + register offset for RMem/WMem.
// All three read the u32 interpretation; the sum is widened so an overflowing
// address reports out of bounds instead of wrapping. RegEQ as the offset
// register means "no offset" only by convention of never holding one; the
// addition is unconditional.
func (vm *VM) effectiveAddr(in isa.Instruction) (uint64, error) {
	var baseReg uint8
	if in.Op == isa.OpRMem {
		baseReg = in.Ra
	} else {
		baseReg = in.Rd
	}
	base, err := vm.regs.Read(baseReg)
	if err != nil {
		return 0, err
	}
	off, err := vm.regs.Read(in.Rb)
	if err != nil {
		return 0, err
	}
	return uint64(base.U32()) + uint64(in.ImmU32()) + uint64(off.U32()), nil
}

// writeStr reads length words starting at the pointer register, interprets
// each word's u32 value as a rune, and writes the string to the host sink.
func (vm *VM) writeStr(ptrReg, lenReg uint8) error {
	ptr, err := vm.regs.Read(ptrReg)
	if err != nil {
		return err
	}
	length, err := vm.regs.Read(lenReg)
	if err != nil {
		return err
	}
	runes := make([]rune, 0, length.U32())
	for i := uint64(0); i < uint64(length.U32()); i++ {
		w, err := vm.mem.At(uint64(ptr.U32()) + i)
		if err != nil {
			return err
		}
		runes = append(runes, rune(w.U32()))
	}
	_, err = io.WriteString(vm.out, string(runes))
	return err
}

// setEQ stores a compare result as 0.0 or 1.0 in the EQ register.
func (vm *VM) setEQ(result bool) {
	v := float32(0)
	if result {
		v = 1
	}
	vm.regs.regs[RegEQ] = WordFromFloat(v)
}

// mirror copies loop state into the reserved PC/SP registers so programs can
// observe them. Bytecode writes to these registers never redirect control.
func (vm *VM) mirror() {
	vm.regs.regs[RegPC] = Word(vm.pc)
	vm.regs.regs[RegSP] = Word(uint32(int32(vm.mem.sp)))
}

// trap halts the VM and wraps the cause with the faulting offset.
func (vm *VM) trap(err error) error {
	vm.halted = true
	t := &TrapError{Offset: vm.pc, Err: err}
	vm.log.Errorf("%v", t)
	return t
}

// arithRI evaluates a register-immediate arithmetic opcode. The Rv* forms
// compute immediate-op-register, which differs from the forward forms for
// subtraction, division, and exponentiation.
func arithRI(op isa.OpCode, a, imm float32) float32 {
	switch op {
	case isa.OpAddRI:
		return a + imm
	case isa.OpSubRI:
		return a - imm
	case isa.OpRvSubRI:
		return imm - a
	case isa.OpMulRI:
		return a * imm
	case isa.OpDivRI:
		return a / imm
	case isa.OpRvDivRI:
		return imm / a
	case isa.OpPowRI:
		return float32(math.Pow(float64(a), float64(imm)))
	case isa.OpRvPowRI:
		return float32(math.Pow(float64(imm), float64(a)))
	}
	return 0
}

// arithRR evaluates a register-register arithmetic opcode.
func arithRR(op isa.OpCode, a, b float32) float32 {
	switch op {
	case isa.OpAddRR:
		return a + b
	case isa.OpSubRR:
		return a - b
	case isa.OpMulRR:
		return a * b
	case isa.OpDivRR:
		return a / b
	case isa.OpPowRR:
		return float32(math.Pow(float64(a), float64(b)))
	}
	return 0
}

// compare evaluates the relation selected by the flag.
func compare(flag isa.CmpFlag, a, b float32) bool {
	switch flag {
	case isa.FlagEq:
		return a == b
	case isa.FlagGt:
		return a > b
	case isa.FlagLt:
		return a < b
	case isa.FlagGeq:
		return a >= b
	case isa.FlagLeq:
		return a <= b
	}
	return false
}
