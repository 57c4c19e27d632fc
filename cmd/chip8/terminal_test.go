package main

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ezrec/chip8/cpu"
	"github.com/ezrec/chip8/emulator"
)

func TestKeyMap(t *testing.T) {
	assert := assert.New(t)

	seen := map[uint8]bool{}
	for _, key := range keyMap {
		seen[key] = true
	}
	assert.Equal(16, len(seen))
}

func TestTerminalHostPollKeys(t *testing.T) {
	assert := assert.New(t)

	emu := emulator.NewEmulator(cpu.DefaultQuirks())
	host := NewTerminalHost(emu)

	host.keys <- 'W'
	host.keys <- '?'
	assert.False(host.pollKeys())
	assert.True(emu.Cpu.Keypad.Pressed(5))

	for range KEY_HOLD_FRAMES - 1 {
		assert.False(host.pollKeys())
		assert.True(emu.Cpu.Keypad.Pressed(5))
	}
	assert.False(host.pollKeys())
	assert.False(emu.Cpu.Keypad.Pressed(5))

	host.keys <- 0x1b
	assert.True(host.pollKeys())
}

func TestTerminalHostNotTerminal(t *testing.T) {
	assert := assert.New(t)

	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	defer w.Close()

	stdin := os.Stdin
	os.Stdin = r
	defer func() { os.Stdin = stdin }()

	emu := emulator.NewEmulator(cpu.DefaultQuirks())
	host := NewTerminalHost(emu)

	err = host.Run(1)
	assert.ErrorIs(err, ErrNotTerminal)
	assert.Equal(0, emu.Frames)

	// Stop after a failed Start does not block.
	host.Stop()
}
