// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"slices"
	"strings"

	"github.com/ezrec/chip8/cpu"
	"github.com/ezrec/chip8/emulator"
	"github.com/ezrec/chip8/io"
)

func main() {
	var compile string
	var save string
	var rom string
	var disassemble bool
	var quirks string
	var ipf int
	var frames int
	var screenshot string
	var terminal bool
	var input string
	var output string
	var verbose bool

	flag.StringVar(&compile, "c", "", ".s file to assemble")
	flag.StringVar(&save, "s", "", "Save ROM image to file, do not execute")
	flag.StringVar(&rom, "r", "", ".ch8 ROM image to run")
	flag.BoolVar(&disassemble, "d", false, "Disassemble ROM image, do not execute")
	flag.StringVar(&quirks, "q", cpu.QUIRKS_DEFAULT, "Quirks profile: "+strings.Join(slices.Collect(cpu.QuirksProfiles()), ", "))
	flag.IntVar(&ipf, "ipf", emulator.CYCLES_PER_FRAME, "Instruction cycles per frame")
	flag.IntVar(&frames, "f", 0, "Frame limit (0 runs until halt)")
	flag.StringVar(&screenshot, "bmp", "", "Save a BMP screenshot on exit")
	flag.BoolVar(&terminal, "t", false, "Run in the terminal")
	flag.StringVar(&input, "i", "", "Tape keypad input ('-' for stdin)")
	flag.StringVar(&output, "o", "", "Tape trace output ('-' for stdout)")
	flag.BoolVar(&verbose, "v", false, "Verbose mode")

	flag.Parse()

	if flag.NArg() != 0 {
		log.Fatalf("%v: Unknown arguments: %v", os.Args[0], flag.Args())
	}

	profile, err := cpu.QuirksProfile(quirks)
	if err != nil {
		log.Fatalf("%v: %v", quirks, err)
	}

	emu := emulator.NewEmulator(profile)
	emu.Verbose = verbose
	emu.CyclesPerFrame = ipf

	// Load a ROM image.
	if len(rom) != 0 {
		inf, err := os.Open(rom)
		if err != nil {
			log.Fatalf("%v: %v", rom, err)
		}
		_, err = emu.Rom.ReadFrom(inf)
		inf.Close()
		if err != nil {
			log.Fatalf("%v: %v", rom, err)
		}
	}

	// Assemble a new program.
	if len(compile) != 0 {
		inf, err := os.Open(compile)
		if err != nil {
			log.Fatalf("%v: %v", compile, err)
		}
		defer inf.Close()

		asm := &cpu.Assembler{Verbose: verbose}
		for key, value := range emu.Defines() {
			asm.Predefine(key, value)
		}
		emu.Program, err = asm.Parse(inf)
		if err != nil {
			log.Fatalf("%v: %v", compile, err)
		}
		emu.Rom.Data = emu.Program.Binary()
	}

	if len(emu.Rom.Data) == 0 {
		log.Fatalf("%v: %v", os.Args[0], io.ErrRomEmpty)
	}

	if len(save) != 0 || disassemble {
		if len(save) != 0 {
			ouf, err := os.Create(save)
			if err != nil {
				log.Fatalf("%v: %v", save, err)
			}
			_, err = emu.Rom.WriteTo(ouf)
			if err == nil {
				err = ouf.Close()
			}
			if err != nil {
				log.Fatalf("%v: %v", save, err)
			}
		}
		if disassemble {
			for addr, inst := range cpu.Disassemble(emu.Rom.Data) {
				fmt.Printf("%03x: %04x  %v\n", addr, uint16(inst.Code), inst)
			}
		}
		return
	}

	switch input {
	case "":
	case "-":
		emu.Tape.Input = os.Stdin
	default:
		inf, err := os.Open(input)
		if err != nil {
			log.Fatalf("%v: %v", input, err)
		}
		defer inf.Close()
		emu.Tape.Input = inf
	}

	switch output {
	case "":
	case "-":
		emu.Tape.Output = os.Stdout
	default:
		ouf, err := os.Create(output)
		if err != nil {
			log.Fatalf("%v: %v", output, err)
		}
		defer ouf.Close()
		emu.Tape.Output = ouf
	}

	err = emu.Reset()
	if err != nil {
		log.Fatal(err)
	}

	if terminal {
		host := NewTerminalHost(emu)
		err = host.Run(frames)
	} else {
		err = runHeadless(emu, frames, os.Stdout)
	}
	if err != nil {
		log.Print(emu.Cpu.String())
		log.Fatal(err)
	}

	if len(screenshot) != 0 {
		ouf, err := os.Create(screenshot)
		if err != nil {
			log.Fatalf("%v: %v", screenshot, err)
		}
		err = emu.Cpu.Display.WriteBMP(ouf, 8)
		if err == nil {
			err = ouf.Close()
		}
		if err != nil {
			log.Fatalf("%v: %v", screenshot, err)
		}
	}
}
