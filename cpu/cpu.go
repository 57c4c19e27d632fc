package cpu

import (
	"fmt"
	"iter"
	"log"
	"maps"
	"math/rand/v2"
	"strings"

	"github.com/ezrec/chip8/io"
)

var _cpu_defines = map[string]string{
	"MEMORY_SIZE":  fmt.Sprintf("0x%x", MEMORY_SIZE),
	"ROM_BASE":     fmt.Sprintf("0x%x", ROM_BASE),
	"MAX_ROM_SIZE": fmt.Sprintf("0x%x", MAX_ROM_SIZE),
	"FONT_BASE":    fmt.Sprintf("0x%x", FONT_BASE),
	"FONT_GLYPH":   fmt.Sprintf("%d", FONT_GLYPH),
}

// Cpu is the complete CHIP-8 machine state.
type Cpu struct {
	Verbose bool       // Set to enable verbose logging.
	Quirks  Quirks     // Implementation specific behaviours.
	Random  *rand.Rand // Source for RND; nil uses the global source.

	Memory [MEMORY_SIZE]uint8 // Font, interpreter area, and program.
	Pc     uint16             // Program counter.
	I      uint16             // Index register.
	V      [16]uint8          // General purpose registers; VF is the flag.
	Stack  Stack              // Subroutine return stack.
	Delay  uint8              // Delay timer.
	Sound  uint8              // Sound timer.

	Display io.Display // 64x32 monochrome bitmap.
	Keypad  io.Keypad  // Held keys, written by the host.
	KeyWait KeyWait    // Fx0A progress.

	Ticks   int // Instructions executed since reset.
	Unknown int // Unknown instructions skipped since reset.
}

// NewCpu creates a reset CPU with the given quirks.
func NewCpu(quirks Quirks) (cpu *Cpu) {
	cpu = &Cpu{
		Quirks: quirks,
	}
	cpu.Reset()

	return
}

// Defines for the cpu
func (cpu *Cpu) Defines() iter.Seq2[string, string] {
	return maps.All(_cpu_defines)
}

// Reset the CPU state.
// - Clears memory, registers, stack, timers, display, and keypad.
// - Zeros statistics counters.
// - Installs the font glyphs at FONT_BASE.
// - Sets the program counter to ROM_BASE.
func (cpu *Cpu) Reset() {
	if cpu.Verbose {
		log.Printf("cpu: reset")
	}

	clear(cpu.Memory[:])
	copy(cpu.Memory[FONT_BASE:], Font[:])

	cpu.Pc = ROM_BASE
	cpu.I = 0
	clear(cpu.V[:])
	cpu.Stack.Reset()
	cpu.Delay = 0
	cpu.Sound = 0
	cpu.Display = io.Display{}
	cpu.Keypad.Reset()
	cpu.KeyWait = KeyWait{}
	cpu.Ticks = 0
	cpu.Unknown = 0
}

// Load resets the CPU and copies a ROM image to ROM_BASE.
func (cpu *Cpu) Load(rom []byte) (err error) {
	if len(rom) > MAX_ROM_SIZE {
		err = ErrRomTooLarge
		return
	}

	cpu.Reset()
	copy(cpu.Memory[ROM_BASE:], rom)

	if cpu.Verbose {
		log.Printf("cpu: loaded %d bytes at 0x%03x", len(rom), ROM_BASE)
	}

	return
}

// Fetch reads the instruction word at the program counter.
func (cpu *Cpu) Fetch() (code Code, err error) {
	err = inRange(cpu.Pc, 2)
	if err != nil {
		return
	}

	code = Code(uint16(cpu.Memory[cpu.Pc])<<8 | uint16(cpu.Memory[cpu.Pc+1]))
	return
}

// Tick executes a single instruction cycle.
func (cpu *Cpu) Tick() (err error) {
	code, err := cpu.Fetch()
	if err != nil {
		return
	}

	err = cpu.Execute(code)
	return
}

// TickTimers counts the delay and sound timers down by one; call once
// per 60Hz frame.
func (cpu *Cpu) TickTimers() {
	if cpu.Delay > 0 {
		cpu.Delay--
	}
	if cpu.Sound > 0 {
		cpu.Sound--
	}
}

// Waiting returns true while an Fx0A key wait is in progress.
func (cpu *Cpu) Waiting() bool {
	return cpu.KeyWait.State != KEY_WAIT_IDLE
}

// Sounding returns true while the sound timer is active.
func (cpu *Cpu) Sounding() bool {
	return cpu.Sound > 0
}

// String returns the current CPU state as a string.
func (cpu *Cpu) String() (text string) {
	var sb strings.Builder

	fmt.Fprintf(&sb, "   pc: %03X\n", cpu.Pc)
	fmt.Fprintf(&sb, "    i: %03X\n", cpu.I)
	for n, v := range cpu.V {
		fmt.Fprintf(&sb, "   v%X: %02X\n", n, v)
	}
	fmt.Fprintf(&sb, "   dt: %02X\n", cpu.Delay)
	fmt.Fprintf(&sb, "   st: %02X\n", cpu.Sound)
	if top, ok := cpu.Stack.Peek(); ok {
		fmt.Fprintf(&sb, "stack: %03X (%d)\n", top, cpu.Stack.Depth())
	} else {
		fmt.Fprintf(&sb, "stack: ---\n")
	}
	fmt.Fprintf(&sb, "  key: %v", cpu.KeyWait.State)
	if cpu.KeyWait.State == KEY_WAIT_CAPTURED {
		fmt.Fprintf(&sb, " %X", cpu.KeyWait.Key)
	}
	sb.WriteByte('\n')

	text = sb.String()
	return
}
