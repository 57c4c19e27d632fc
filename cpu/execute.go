package cpu

import (
	"errors"
	"log"
	"math/rand/v2"
)

// opHandler executes a decoded instruction. The program counter has
// already been advanced past the instruction. A handler that returns an
// error must not have modified the machine state.
type opHandler func(cpu *Cpu, inst Instruction) error

var opHandlers = [OP_COUNT]opHandler{
	OP_UNKNOWN:   (*Cpu).opUnknown,
	OP_SYS:       (*Cpu).opUnknown,
	OP_CLS:       (*Cpu).opCls,
	OP_RET:       (*Cpu).opRet,
	OP_JP:        (*Cpu).opJp,
	OP_CALL:      (*Cpu).opCall,
	OP_SE_VX_KK:  (*Cpu).opSeVxKk,
	OP_SNE_VX_KK: (*Cpu).opSneVxKk,
	OP_SE_VX_VY:  (*Cpu).opSeVxVy,
	OP_LD_VX_KK:  (*Cpu).opLdVxKk,
	OP_ADD_VX_KK: (*Cpu).opAddVxKk,
	OP_LD_VX_VY:  (*Cpu).opLdVxVy,
	OP_OR:        (*Cpu).opLogic,
	OP_AND:       (*Cpu).opLogic,
	OP_XOR:       (*Cpu).opLogic,
	OP_ADD_VX_VY: (*Cpu).opAddVxVy,
	OP_SUB:       (*Cpu).opSub,
	OP_SHR:       (*Cpu).opShift,
	OP_SUBN:      (*Cpu).opSubn,
	OP_SHL:       (*Cpu).opShift,
	OP_SNE_VX_VY: (*Cpu).opSneVxVy,
	OP_LD_I:      (*Cpu).opLdI,
	OP_JP_V0:     (*Cpu).opJpV0,
	OP_RND:       (*Cpu).opRnd,
	OP_DRW:       (*Cpu).opDrw,
	OP_SKP:       (*Cpu).opSkp,
	OP_SKNP:      (*Cpu).opSknp,
	OP_LD_VX_DT:  (*Cpu).opLdVxDt,
	OP_LD_VX_K:   (*Cpu).opLdVxK,
	OP_LD_DT_VX:  (*Cpu).opLdDtVx,
	OP_LD_ST_VX:  (*Cpu).opLdStVx,
	OP_ADD_I_VX:  (*Cpu).opAddIVx,
	OP_LD_F_VX:   (*Cpu).opLdFVx,
	OP_LD_B_VX:   (*Cpu).opLdBVx,
	OP_LD_MEM_VX: (*Cpu).opLdMemVx,
	OP_LD_VX_MEM: (*Cpu).opLdVxMem,
}

// Execute executes a single instruction word.
//
// The program counter is advanced past the instruction before the
// handler runs. If the instruction faults, the machine state, program
// counter included, is left as it was before the call.
func (cpu *Cpu) Execute(code Code) (err error) {
	defer func() {
		if err != nil {
			err = errors.Join(ErrOpcode(code), err)
		}
	}()

	inst := Decode(code)
	if cpu.Verbose {
		log.Printf("%03x: %v", cpu.Pc, inst)
	}

	pc := cpu.Pc
	cpu.Pc += 2

	err = opHandlers[inst.Op](cpu, inst)
	if err != nil {
		cpu.Pc = pc
		return
	}

	cpu.Ticks++

	return
}

func (cpu *Cpu) skipIf(cond bool) {
	if cond {
		cpu.Pc += 2
	}
}

func (cpu *Cpu) setFlag(cond bool) {
	if cond {
		cpu.V[REGISTER_FLAG] = 1
	} else {
		cpu.V[REGISTER_FLAG] = 0
	}
}

// opUnknown skips instructions this interpreter does not implement,
// including 0nnn machine code calls.
func (cpu *Cpu) opUnknown(inst Instruction) error {
	log.Printf("%03x: %v %04x", cpu.Pc-2, ErrUnknownOpcode, uint16(inst.Code))
	cpu.Unknown++
	return nil
}

// 00E0 - CLS
func (cpu *Cpu) opCls(inst Instruction) error {
	cpu.Display.Clear()
	return nil
}

// 00EE - RET
func (cpu *Cpu) opRet(inst Instruction) error {
	addr, err := cpu.Stack.Pop()
	if err != nil {
		return err
	}
	cpu.Pc = addr
	return nil
}

// 1nnn - JP addr
func (cpu *Cpu) opJp(inst Instruction) error {
	cpu.Pc = inst.Code.NNN()
	return nil
}

// 2nnn - CALL addr
func (cpu *Cpu) opCall(inst Instruction) error {
	err := cpu.Stack.Push(cpu.Pc)
	if err != nil {
		return err
	}
	cpu.Pc = inst.Code.NNN()
	return nil
}

// 3xkk - SE Vx, byte
func (cpu *Cpu) opSeVxKk(inst Instruction) error {
	cpu.skipIf(cpu.V[inst.Code.X()] == inst.Code.KK())
	return nil
}

// 4xkk - SNE Vx, byte
func (cpu *Cpu) opSneVxKk(inst Instruction) error {
	cpu.skipIf(cpu.V[inst.Code.X()] != inst.Code.KK())
	return nil
}

// 5xy0 - SE Vx, Vy
func (cpu *Cpu) opSeVxVy(inst Instruction) error {
	cpu.skipIf(cpu.V[inst.Code.X()] == cpu.V[inst.Code.Y()])
	return nil
}

// 9xy0 - SNE Vx, Vy
func (cpu *Cpu) opSneVxVy(inst Instruction) error {
	cpu.skipIf(cpu.V[inst.Code.X()] != cpu.V[inst.Code.Y()])
	return nil
}

// 6xkk - LD Vx, byte
func (cpu *Cpu) opLdVxKk(inst Instruction) error {
	cpu.V[inst.Code.X()] = inst.Code.KK()
	return nil
}

// 7xkk - ADD Vx, byte; VF is untouched.
func (cpu *Cpu) opAddVxKk(inst Instruction) error {
	cpu.V[inst.Code.X()] += inst.Code.KK()
	return nil
}

// 8xy0 - LD Vx, Vy
func (cpu *Cpu) opLdVxVy(inst Instruction) error {
	cpu.V[inst.Code.X()] = cpu.V[inst.Code.Y()]
	return nil
}

// 8xy1 - OR Vx, Vy
// 8xy2 - AND Vx, Vy
// 8xy3 - XOR Vx, Vy
func (cpu *Cpu) opLogic(inst Instruction) error {
	x, y := inst.Code.X(), inst.Code.Y()
	switch inst.Op {
	case OP_OR:
		cpu.V[x] |= cpu.V[y]
	case OP_AND:
		cpu.V[x] &= cpu.V[y]
	case OP_XOR:
		cpu.V[x] ^= cpu.V[y]
	}
	if cpu.Quirks.LogicResetsVF {
		cpu.V[REGISTER_FLAG] = 0
	}
	return nil
}

// 8xy4 - ADD Vx, Vy; VF = carry.
func (cpu *Cpu) opAddVxVy(inst Instruction) error {
	x, y := inst.Code.X(), inst.Code.Y()
	sum := uint16(cpu.V[x]) + uint16(cpu.V[y])
	cpu.V[x] = uint8(sum)
	cpu.setFlag(sum > 0xff)
	return nil
}

// 8xy5 - SUB Vx, Vy; VF = NOT borrow.
func (cpu *Cpu) opSub(inst Instruction) error {
	x, y := inst.Code.X(), inst.Code.Y()
	a, b := cpu.V[x], cpu.V[y]
	cpu.V[x] = a - b
	cpu.setFlag(a >= b)
	return nil
}

// 8xy7 - SUBN Vx, Vy; VF = NOT borrow.
func (cpu *Cpu) opSubn(inst Instruction) error {
	x, y := inst.Code.X(), inst.Code.Y()
	a, b := cpu.V[x], cpu.V[y]
	cpu.V[x] = b - a
	cpu.setFlag(b >= a)
	return nil
}

// 8xy6 - SHR Vx {, Vy}; VF = bit shifted out.
// 8xyE - SHL Vx {, Vy}; VF = bit shifted out.
func (cpu *Cpu) opShift(inst Instruction) error {
	x := inst.Code.X()
	src := cpu.V[x]
	if cpu.Quirks.ShiftUsesVY {
		src = cpu.V[inst.Code.Y()]
	}

	var out uint8
	if inst.Op == OP_SHR {
		cpu.V[x] = src >> 1
		out = src & 1
	} else {
		cpu.V[x] = src << 1
		out = src >> 7
	}
	cpu.V[REGISTER_FLAG] = out
	return nil
}

// Annn - LD I, addr
func (cpu *Cpu) opLdI(inst Instruction) error {
	cpu.I = inst.Code.NNN()
	return nil
}

// Bnnn - JP V0, addr
func (cpu *Cpu) opJpV0(inst Instruction) error {
	reg := uint8(0)
	if cpu.Quirks.JumpUsesVX {
		reg = inst.Code.X()
	}
	target := inst.Code.NNN() + uint16(cpu.V[reg])
	err := inRange(target, 1)
	if err != nil {
		return err
	}
	cpu.Pc = target
	return nil
}

// Cxkk - RND Vx, byte
func (cpu *Cpu) opRnd(inst Instruction) error {
	var value uint8
	if cpu.Random != nil {
		value = uint8(cpu.Random.Uint32())
	} else {
		value = uint8(rand.Uint32())
	}
	cpu.V[inst.Code.X()] = value & inst.Code.KK()
	return nil
}

// Dxyn - DRW Vx, Vy, nibble; VF = collision.
func (cpu *Cpu) opDrw(inst Instruction) error {
	n := int(inst.Code.N())
	err := inRange(cpu.I, n)
	if err != nil {
		return err
	}
	sprite := cpu.Memory[cpu.I : int(cpu.I)+n]
	collision := cpu.Display.Draw(cpu.V[inst.Code.X()], cpu.V[inst.Code.Y()], sprite)
	cpu.setFlag(collision)
	return nil
}

// Ex9E - SKP Vx
func (cpu *Cpu) opSkp(inst Instruction) error {
	cpu.skipIf(cpu.Keypad.Pressed(cpu.V[inst.Code.X()]))
	return nil
}

// ExA1 - SKNP Vx
func (cpu *Cpu) opSknp(inst Instruction) error {
	cpu.skipIf(!cpu.Keypad.Pressed(cpu.V[inst.Code.X()]))
	return nil
}

// Fx07 - LD Vx, DT
func (cpu *Cpu) opLdVxDt(inst Instruction) error {
	cpu.V[inst.Code.X()] = cpu.Delay
	return nil
}

// Fx0A - LD Vx, K
//
// The instruction repeats, by rewinding the program counter, until a key
// has been both pressed and released.
func (cpu *Cpu) opLdVxK(inst Instruction) error {
	switch cpu.KeyWait.State {
	case KEY_WAIT_CAPTURED:
		if !cpu.Keypad.Pressed(cpu.KeyWait.Key) {
			cpu.KeyWait = KeyWait{}
			return nil
		}
	default:
		key, ok := cpu.Keypad.First()
		if ok {
			cpu.V[inst.Code.X()] = key
			cpu.KeyWait = KeyWait{State: KEY_WAIT_CAPTURED, Key: key}
		} else {
			cpu.KeyWait.State = KEY_WAIT_SCANNING
		}
	}
	cpu.Pc -= 2
	return nil
}

// Fx15 - LD DT, Vx
func (cpu *Cpu) opLdDtVx(inst Instruction) error {
	cpu.Delay = cpu.V[inst.Code.X()]
	return nil
}

// Fx18 - LD ST, Vx
func (cpu *Cpu) opLdStVx(inst Instruction) error {
	cpu.Sound = cpu.V[inst.Code.X()]
	return nil
}

// Fx1E - ADD I, Vx
func (cpu *Cpu) opAddIVx(inst Instruction) error {
	sum := cpu.I + uint16(cpu.V[inst.Code.X()])
	err := inRange(sum, 1)
	if err != nil {
		return err
	}
	cpu.I = sum
	return nil
}

// Fx29 - LD F, Vx
func (cpu *Cpu) opLdFVx(inst Instruction) error {
	cpu.I = FONT_BASE + uint16(cpu.V[inst.Code.X()])*FONT_GLYPH
	return nil
}

// Fx33 - LD B, Vx
func (cpu *Cpu) opLdBVx(inst Instruction) error {
	err := inRange(cpu.I, 3)
	if err != nil {
		return err
	}
	v := cpu.V[inst.Code.X()]
	cpu.Memory[cpu.I+0] = v / 100
	cpu.Memory[cpu.I+1] = (v / 10) % 10
	cpu.Memory[cpu.I+2] = v % 10
	return nil
}

// Fx55 - LD [I], Vx
func (cpu *Cpu) opLdMemVx(inst Instruction) error {
	n := int(inst.Code.X()) + 1
	err := inRange(cpu.I, n)
	if err != nil {
		return err
	}
	copy(cpu.Memory[cpu.I:], cpu.V[:n])
	if cpu.Quirks.LoadStoreIncrementsI {
		cpu.I += uint16(n)
	}
	return nil
}

// Fx65 - LD Vx, [I]
func (cpu *Cpu) opLdVxMem(inst Instruction) error {
	n := int(inst.Code.X()) + 1
	err := inRange(cpu.I, n)
	if err != nil {
		return err
	}
	copy(cpu.V[:n], cpu.Memory[cpu.I:])
	if cpu.Quirks.LoadStoreIncrementsI {
		cpu.I += uint16(n)
	}
	return nil
}
