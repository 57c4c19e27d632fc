package main

import (
	"fmt"
	"io"
	"log"

	"github.com/ezrec/chip8/emulator"
)

// runHeadless runs frames as fast as possible, until the program halts,
// the frame limit is reached, or the program waits for a key that no
// input can supply. Then it prints the display to out.
func runHeadless(emu *emulator.Emulator, frames int, out io.Writer) (err error) {
	for frames == 0 || emu.Frames < frames {
		var done bool
		done, err = emu.Frame()
		if err != nil {
			return
		}
		if done {
			break
		}
		if emu.Waiting() && emu.Tape.Exhausted() {
			log.Printf("%03x: waiting for a key, stopping", emu.Cpu.Pc)
			break
		}
	}

	_, err = fmt.Fprint(out, emu.Cpu.Display.String())
	if emu.Verbose {
		log.Printf("%d frames, %d cycles, %d unknown", emu.Frames, emu.Cpu.Ticks, emu.Cpu.Unknown)
	}

	return
}
