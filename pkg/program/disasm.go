package program

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Barca545/spdr-isa/pkg/isa"
)

// Disassemble decodes the whole buffer end-to-end and renders one line per
// instruction: the mnemonic followed by comma-separated operands, register
// operands prefixed with `$`, immediates rendered as their typed value.
// The pass is read-only and needs no runtime context; a decode failure
// aborts it with the typed error.
func (p *Program) Disassemble() (string, error) {
	var sb strings.Builder
	offset := 0
	for offset < len(p.code) {
		in, err := isa.Decode(p.code, offset)
		if err != nil {
			return "", err
		}
		sb.WriteString(renderInstruction(in))
		sb.WriteByte('\n')
		offset += in.Size
	}
	return sb.String(), nil
}

// ListedInstruction is one decoded instruction in a Listing.
type ListedInstruction struct {
	Offset   uint32   `cbor:"offset"`
	Opcode   uint8    `cbor:"opcode"`
	Mnemonic string   `cbor:"mnemonic"`
	Operands []string `cbor:"operands,omitempty"`
}

// Listing is the structured form of a full disassembly, suitable for
// serialization and tooling interchange.
type Listing struct {
	Instructions []ListedInstruction `cbor:"instructions"`
}

// List decodes the whole buffer into a structured Listing. The text rendered
// from a Listing matches Disassemble line for line.
func (p *Program) List() (*Listing, error) {
	l := &Listing{}
	offset := 0
	for offset < len(p.code) {
		in, err := isa.Decode(p.code, offset)
		if err != nil {
			return nil, err
		}
		l.Instructions = append(l.Instructions, ListedInstruction{
			Offset:   uint32(offset),
			Opcode:   uint8(in.Op),
			Mnemonic: in.Op.String(),
			Operands: renderOperands(in),
		})
		offset += in.Size
	}
	return l, nil
}

// renderInstruction formats one decoded instruction as a disassembly line.
func renderInstruction(in isa.Instruction) string {
	operands := renderOperands(in)
	if len(operands) == 0 {
		return in.Op.String()
	}
	return in.Op.String() + " " + strings.Join(operands, ", ")
}

// renderOperands formats an instruction's operands in encoding order.
func renderOperands(in isa.Instruction) []string {
	switch isa.GetOpcodeInfo(in.Op).Layout {
	case isa.LayoutRegImmF:
		return []string{reg(in.Rd), flt(in.ImmFloat())}
	case isa.LayoutRegRegImmF:
		return []string{reg(in.Rd), reg(in.Ra), flt(in.ImmFloat())}
	case isa.LayoutRegRegReg:
		return []string{reg(in.Rd), reg(in.Ra), reg(in.Rb)}
	case isa.LayoutFlagRegImm:
		return []string{in.Flag.String(), reg(in.Rd), flt(in.ImmFloat())}
	case isa.LayoutFlagRegReg:
		return []string{in.Flag.String(), reg(in.Rd), reg(in.Ra)}
	case isa.LayoutRegReg:
		return []string{reg(in.Rd), reg(in.Ra)}
	case isa.LayoutImmU32:
		return []string{u32(in.ImmU32())}
	case isa.LayoutRegImmU32:
		return []string{reg(in.Rd), u32(in.ImmU32())}
	case isa.LayoutImmU8:
		return []string{u32(in.ImmU32())}
	case isa.LayoutReg:
		return []string{reg(in.Rd)}
	case isa.LayoutMem:
		return []string{reg(in.Rd), reg(in.Ra), u32(in.ImmU32()), reg(in.Rb)}
	default:
		return nil
	}
}

func reg(r uint8) string {
	return fmt.Sprintf("$%d", r)
}

func flt(f float32) string {
	return strconv.FormatFloat(float64(f), 'g', -1, 32)
}

func u32(v uint32) string {
	return strconv.FormatUint(uint64(v), 10)
}
