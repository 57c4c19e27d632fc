// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package emulator

import (
	"fmt"
	"iter"
	"maps"

	"github.com/ezrec/chip8/cpu"
	"github.com/ezrec/chip8/internal"
	"github.com/ezrec/chip8/io"
)

const (
	CYCLES_PER_FRAME = 12 // Default instruction cycles per 60Hz frame.
	FRAME_RATE       = 60 // Timer and display refresh rate, in Hz.
)

var _emulator_defines = map[string]string{
	"SCREEN_WIDTH":  fmt.Sprintf("%v", io.SCREEN_WIDTH),
	"SCREEN_HEIGHT": fmt.Sprintf("%v", io.SCREEN_HEIGHT),
	"KEY_COUNT":     fmt.Sprintf("%v", io.KEY_COUNT),
}

// Emulator state. CPU + program listing + ROM image.
type Emulator struct {
	Verbose  bool         // If set, enables verbose logging.
	*cpu.Cpu              // Reference to the CPU simulation.
	Program  *cpu.Program // Reference to the currently running program listing.

	Rom            io.Rom  // ROM image, used when Program is empty.
	Tape           io.Tape // Scripted keypad input, and trace output.
	CyclesPerFrame int     // Instruction cycles per Frame.
	Frames         int     // Frames since the last reset.

	lines [cpu.MEMORY_SIZE]int // Listing line number by address, built by Reset.
}

// NewEmulator creates a new emulator.
func NewEmulator(quirks cpu.Quirks) (emu *Emulator) {
	emu = &Emulator{
		Cpu:            cpu.NewCpu(quirks),
		Program:        &cpu.Program{},
		CyclesPerFrame: CYCLES_PER_FRAME,
	}

	return
}

// Defines returns an iterator over all of the defines
func (emu *Emulator) Defines() iter.Seq2[string, string] {
	return internal.IterSeq2Concat(maps.All(_emulator_defines),
		emu.Cpu.Defines(),
	)
}

// Reset the machine, and load either the program listing or the ROM image.
func (emu *Emulator) Reset() (err error) {
	emu.Cpu.Verbose = emu.Verbose

	rom := emu.Rom.Data
	if emu.Program != nil && len(emu.Program.Opcodes) != 0 {
		rom = emu.Program.Binary()
	}

	err = emu.Cpu.Load(rom)
	if err != nil {
		return
	}

	emu.indexLines()
	emu.Frames = 0

	return
}

// indexLines maps each address covered by the program listing to its line
// number. Where opcodes overlap the earliest one wins, as in Program.Debug.
func (emu *Emulator) indexLines() {
	clear(emu.lines[:])
	if emu.Program == nil {
		return
	}

	ops := emu.Program.Opcodes
	for n := len(ops) - 1; n >= 0; n-- {
		op := &ops[n]
		for i := range op.Data {
			addr := op.Addr + i
			if addr >= 0 && addr < cpu.MEMORY_SIZE {
				emu.lines[addr] = op.LineNo
			}
		}
	}
}

// Code returns the current instruction code.
func (emu *Emulator) Code() cpu.Code {
	code, _ := emu.Cpu.Fetch()
	return code
}

// LineNo returns the current line number for the executing opcode.
func (emu *Emulator) LineNo() int {
	if int(emu.Cpu.Pc) >= cpu.MEMORY_SIZE {
		return 0
	}

	return emu.lines[emu.Cpu.Pc]
}

// Tick performs a single instruction cycle of the emulator.
// done is set when the program has halted by jumping to itself.
func (emu *Emulator) Tick() (done bool, err error) {
	// Set CPU verbosity
	emu.Cpu.Verbose = emu.Verbose

	pc := emu.Cpu.Pc
	lineno := emu.LineNo()
	defer func() {
		if err != nil {
			err = &ErrRuntime{Pc: pc, LineNo: lineno, Err: err}
		}
	}()

	code, err := emu.Cpu.Fetch()
	if err != nil {
		return
	}

	inst := cpu.Decode(code)
	if inst.Op == cpu.OP_JP && code.NNN() == pc {
		done = true
		return
	}

	err = emu.Tape.Send(fmt.Sprintf("%03x: %04x %v", pc, uint16(code), inst))
	if err != nil {
		return
	}

	err = emu.Cpu.Execute(code)
	return
}

// Frame runs CyclesPerFrame instruction cycles, or until the program
// halts, and then ticks the timers once.
func (emu *Emulator) Frame() (done bool, err error) {
	_, err = emu.Tape.Receive(&emu.Cpu.Keypad)
	if err != nil {
		return
	}

	for range max(emu.CyclesPerFrame, 1) {
		done, err = emu.Tick()
		if err != nil {
			return
		}
		if done {
			break
		}
	}

	emu.Cpu.TickTimers()
	emu.Frames++

	return
}
