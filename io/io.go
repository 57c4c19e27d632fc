// Package io provides the host facing devices of the CHIP-8 machine:
// the monochrome Display, the hexadecimal Keypad, the Rom image reader,
// and the Tape used for unattended runs. The devices hold plain state;
// the cpu package mutates them per the instruction set, and the host
// reads or writes them between cycles.
package io

const (
	SCREEN_WIDTH  = 64 // Display width in pixels.
	SCREEN_HEIGHT = 32 // Display height in pixels.
	KEY_COUNT     = 16 // Keys on the hexadecimal keypad.

	ROM_BASE     = 0x200                  // Load address of a ROM image.
	MEMORY_SIZE  = 4096                   // Total addressable memory.
	MAX_ROM_SIZE = MEMORY_SIZE - ROM_BASE // Largest ROM that fits in memory.
)
