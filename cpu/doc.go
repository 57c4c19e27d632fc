// Package cpu implements the CHIP-8 interpreter and its assembler.
//
// The machine has 4096 bytes of memory, sixteen 8-bit registers (V0-VF,
// with VF doubling as the carry/borrow/collision flag), a 16-bit index
// register (I), a 16 slot call stack that nests at most 15 calls, delay
// and sound timers that count down at 60Hz, a 64x32 monochrome display,
// and a 16 key keypad.
//
// A host drives the interpreter by calling Tick once per instruction and
// TickTimers once per 60Hz frame. The display and keypad are plain state
// that the host reads and writes between calls.
//
// The assembler accepts the conventional CHIP-8 mnemonics, with labels,
// equates, macros, and compile-time expression evaluation.
package cpu
