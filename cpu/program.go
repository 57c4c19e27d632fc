package cpu

import (
	"iter"
)

// Opcode represents a line of assembled code with its source location and
// generated bytes.
type Opcode struct {
	LineNo    int
	Addr      int
	Words     []string
	Data      []byte
	Code      bool   // Data holds instruction words, rather than db/dw data.
	LinkLabel string // Label to link into the low 12 bits of the word.
}

// Program is an assembled listing.
type Program struct {
	Opcodes []Opcode
}

type Debug struct {
	*Opcode
	Index int
}

// Debug finds the opcode that covers a memory address.
func (prog *Program) Debug(addr uint16) (dbg Debug) {
	for n, op := range prog.Opcodes {
		if int(addr) >= op.Addr && int(addr) < op.Addr+len(op.Data) {
			dbg = Debug{
				Opcode: &prog.Opcodes[n],
				Index:  int(addr) - op.Addr,
			}
			break
		}
	}

	return
}

// Binary returns the ROM image of the program, to be loaded at ROM_BASE.
func (prog *Program) Binary() (bin []byte) {
	for _, op := range prog.Opcodes {
		offset := op.Addr - ROM_BASE
		if offset < 0 {
			continue
		}
		if need := offset + len(op.Data); need > len(bin) {
			bin = append(bin, make([]byte, need-len(bin))...)
		}
		copy(bin[offset:], op.Data)
	}

	return
}

// Codes iterates over the instruction words of the program.
func (prog *Program) Codes() iter.Seq2[uint16, Code] {
	return func(yield func(addr uint16, code Code) bool) {
		for _, op := range prog.Opcodes {
			if !op.Code {
				continue
			}
			for n := 0; n+1 < len(op.Data); n += 2 {
				code := Code(uint16(op.Data[n])<<8 | uint16(op.Data[n+1]))
				if !yield(uint16(op.Addr+n), code) {
					return
				}
			}
		}
	}
}

// Disassemble iterates over the instruction words of a ROM image loaded
// at ROM_BASE. A trailing odd byte is not visited.
func Disassemble(rom []byte) iter.Seq2[uint16, Instruction] {
	return func(yield func(addr uint16, inst Instruction) bool) {
		for n := 0; n+1 < len(rom); n += 2 {
			code := Code(uint16(rom[n])<<8 | uint16(rom[n+1]))
			if !yield(uint16(ROM_BASE+n), Decode(code)) {
				return
			}
		}
	}
}
