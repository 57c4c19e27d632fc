package cpu

import (
	"github.com/ezrec/chip8/io"
)

const (
	MEMORY_SIZE   = io.MEMORY_SIZE  // Addressable memory, in bytes.
	ROM_BASE      = io.ROM_BASE     // Load address of the ROM image.
	MAX_ROM_SIZE  = io.MAX_ROM_SIZE // Largest loadable ROM image.
	FONT_BASE     = 0x000           // Load address of the font glyphs.
	FONT_GLYPH    = 5               // Bytes per font glyph.
	REGISTER_FLAG = 0xf             // Index of the VF flag register.
)

// Font is the hexadecimal digit glyph table, 4x5 pixels per glyph.
var Font = [16 * FONT_GLYPH]uint8{
	0xF0, 0x90, 0x90, 0x90, 0xF0, // 0
	0x20, 0x60, 0x20, 0x20, 0x70, // 1
	0xF0, 0x10, 0xF0, 0x80, 0xF0, // 2
	0xF0, 0x10, 0xF0, 0x10, 0xF0, // 3
	0x90, 0x90, 0xF0, 0x10, 0x10, // 4
	0xF0, 0x80, 0xF0, 0x10, 0xF0, // 5
	0xF0, 0x80, 0xF0, 0x90, 0xF0, // 6
	0xF0, 0x10, 0x20, 0x40, 0x40, // 7
	0xF0, 0x90, 0xF0, 0x90, 0xF0, // 8
	0xF0, 0x90, 0xF0, 0x10, 0xF0, // 9
	0xF0, 0x90, 0xF0, 0x90, 0x90, // A
	0xE0, 0x90, 0xE0, 0x90, 0xE0, // B
	0xF0, 0x80, 0x80, 0x80, 0xF0, // C
	0xE0, 0x90, 0x90, 0x90, 0xE0, // D
	0xF0, 0x80, 0xF0, 0x80, 0xF0, // E
	0xF0, 0x80, 0xF0, 0x80, 0x80, // F
}

// inRange returns an address fault, at the first address outside memory,
// unless [addr, addr+size) is inside memory.
func inRange(addr uint16, size int) error {
	if int(addr)+size > MEMORY_SIZE {
		return ErrAddress(max(int(addr), MEMORY_SIZE))
	}
	return nil
}
