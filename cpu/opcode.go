package cpu

import (
	"fmt"
)

// Op is a decoded instruction variant.
type Op int

//go:generate go tool stringer -linecomment -type=Op
const (
	OP_UNKNOWN   = Op(0)  // unknown
	OP_SYS       = Op(1)  // sys
	OP_CLS       = Op(2)  // cls
	OP_RET       = Op(3)  // ret
	OP_JP        = Op(4)  // jp
	OP_CALL      = Op(5)  // call
	OP_SE_VX_KK  = Op(6)  // se
	OP_SNE_VX_KK = Op(7)  // sne
	OP_SE_VX_VY  = Op(8)  // se
	OP_LD_VX_KK  = Op(9)  // ld
	OP_ADD_VX_KK = Op(10) // add
	OP_LD_VX_VY  = Op(11) // ld
	OP_OR        = Op(12) // or
	OP_AND       = Op(13) // and
	OP_XOR       = Op(14) // xor
	OP_ADD_VX_VY = Op(15) // add
	OP_SUB       = Op(16) // sub
	OP_SHR       = Op(17) // shr
	OP_SUBN      = Op(18) // subn
	OP_SHL       = Op(19) // shl
	OP_SNE_VX_VY = Op(20) // sne
	OP_LD_I      = Op(21) // ld
	OP_JP_V0     = Op(22) // jp
	OP_RND       = Op(23) // rnd
	OP_DRW       = Op(24) // drw
	OP_SKP       = Op(25) // skp
	OP_SKNP      = Op(26) // sknp
	OP_LD_VX_DT  = Op(27) // ld
	OP_LD_VX_K   = Op(28) // ld
	OP_LD_DT_VX  = Op(29) // ld
	OP_LD_ST_VX  = Op(30) // ld
	OP_ADD_I_VX  = Op(31) // add
	OP_LD_F_VX   = Op(32) // ld
	OP_LD_B_VX   = Op(33) // ld
	OP_LD_MEM_VX = Op(34) // ld
	OP_LD_VX_MEM = Op(35) // ld
	OP_COUNT     = Op(36) // count
)

// Code is a 16-bit big-endian instruction word.
type Code uint16

// X returns the register index in bits 8-11.
func (code Code) X() uint8 {
	return uint8((code >> 8) & 0xf)
}

// Y returns the register index in bits 4-7.
func (code Code) Y() uint8 {
	return uint8((code >> 4) & 0xf)
}

// N returns the low nibble.
func (code Code) N() uint8 {
	return uint8(code & 0xf)
}

// KK returns the low byte.
func (code Code) KK() uint8 {
	return uint8(code & 0xff)
}

// NNN returns the low 12 bits.
func (code Code) NNN() uint16 {
	return uint16(code & 0xfff)
}

// opPattern matches instruction words to instruction variants.
// The first pattern whose masked bits equal Match wins.
var opPattern = [...]struct {
	Mask  uint16
	Match uint16
	Op    Op
}{
	{0xffff, 0x00e0, OP_CLS},
	{0xffff, 0x00ee, OP_RET},
	{0xf000, 0x0000, OP_SYS},
	{0xf000, 0x1000, OP_JP},
	{0xf000, 0x2000, OP_CALL},
	{0xf000, 0x3000, OP_SE_VX_KK},
	{0xf000, 0x4000, OP_SNE_VX_KK},
	{0xf00f, 0x5000, OP_SE_VX_VY},
	{0xf000, 0x6000, OP_LD_VX_KK},
	{0xf000, 0x7000, OP_ADD_VX_KK},
	{0xf00f, 0x8000, OP_LD_VX_VY},
	{0xf00f, 0x8001, OP_OR},
	{0xf00f, 0x8002, OP_AND},
	{0xf00f, 0x8003, OP_XOR},
	{0xf00f, 0x8004, OP_ADD_VX_VY},
	{0xf00f, 0x8005, OP_SUB},
	{0xf00f, 0x8006, OP_SHR},
	{0xf00f, 0x8007, OP_SUBN},
	{0xf00f, 0x800e, OP_SHL},
	{0xf00f, 0x9000, OP_SNE_VX_VY},
	{0xf000, 0xa000, OP_LD_I},
	{0xf000, 0xb000, OP_JP_V0},
	{0xf000, 0xc000, OP_RND},
	{0xf000, 0xd000, OP_DRW},
	{0xf0ff, 0xe09e, OP_SKP},
	{0xf0ff, 0xe0a1, OP_SKNP},
	{0xf0ff, 0xf007, OP_LD_VX_DT},
	{0xf0ff, 0xf00a, OP_LD_VX_K},
	{0xf0ff, 0xf015, OP_LD_DT_VX},
	{0xf0ff, 0xf018, OP_LD_ST_VX},
	{0xf0ff, 0xf01e, OP_ADD_I_VX},
	{0xf0ff, 0xf029, OP_LD_F_VX},
	{0xf0ff, 0xf033, OP_LD_B_VX},
	{0xf0ff, 0xf055, OP_LD_MEM_VX},
	{0xf0ff, 0xf065, OP_LD_VX_MEM},
}

// decodeTable maps every instruction word to its variant.
var decodeTable [1 << 16]Op

func init() {
	for word := range len(decodeTable) {
		for _, pat := range opPattern {
			if uint16(word)&pat.Mask == pat.Match {
				decodeTable[word] = pat.Op
				break
			}
		}
	}
}

// Instruction is a decoded instruction word.
type Instruction struct {
	Op   Op
	Code Code
}

// Decode classifies an instruction word.
func Decode(code Code) Instruction {
	return Instruction{Op: decodeTable[code], Code: code}
}

// String returns the assembly language representation of the instruction.
func (inst Instruction) String() (out string) {
	code := inst.Code
	x, y := code.X(), code.Y()

	switch inst.Op {
	case OP_CLS, OP_RET:
		out = inst.Op.String()
	case OP_SYS, OP_JP, OP_CALL:
		out = fmt.Sprintf("%v 0x%03X", inst.Op, code.NNN())
	case OP_SE_VX_KK, OP_SNE_VX_KK, OP_LD_VX_KK, OP_ADD_VX_KK, OP_RND:
		out = fmt.Sprintf("%v V%X, 0x%02X", inst.Op, x, code.KK())
	case OP_SE_VX_VY, OP_SNE_VX_VY, OP_LD_VX_VY,
		OP_OR, OP_AND, OP_XOR, OP_ADD_VX_VY, OP_SUB, OP_SHR, OP_SUBN, OP_SHL:
		out = fmt.Sprintf("%v V%X, V%X", inst.Op, x, y)
	case OP_LD_I:
		out = fmt.Sprintf("ld I, 0x%03X", code.NNN())
	case OP_JP_V0:
		out = fmt.Sprintf("jp V0, 0x%03X", code.NNN())
	case OP_DRW:
		out = fmt.Sprintf("drw V%X, V%X, %d", x, y, code.N())
	case OP_SKP, OP_SKNP:
		out = fmt.Sprintf("%v V%X", inst.Op, x)
	case OP_LD_VX_DT:
		out = fmt.Sprintf("ld V%X, DT", x)
	case OP_LD_VX_K:
		out = fmt.Sprintf("ld V%X, K", x)
	case OP_LD_DT_VX:
		out = fmt.Sprintf("ld DT, V%X", x)
	case OP_LD_ST_VX:
		out = fmt.Sprintf("ld ST, V%X", x)
	case OP_ADD_I_VX:
		out = fmt.Sprintf("add I, V%X", x)
	case OP_LD_F_VX:
		out = fmt.Sprintf("ld F, V%X", x)
	case OP_LD_B_VX:
		out = fmt.Sprintf("ld B, V%X", x)
	case OP_LD_MEM_VX:
		out = fmt.Sprintf("ld [I], V%X", x)
	case OP_LD_VX_MEM:
		out = fmt.Sprintf("ld V%X, [I]", x)
	default:
		out = fmt.Sprintf("dw 0x%04X", uint16(code))
	}

	return
}
