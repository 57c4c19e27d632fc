package io

import (
	"fmt"
	"io"
	"strconv"
)

// Tape provides scripted keypad input and trace output streams for
// unattended runs.
//
// Input is a sequence of frame events, one byte per frame: a hex digit
// holds that key for the frame, and '.' holds no key. Whitespace is
// skipped.
type Tape struct {
	Input  io.Reader
	Output io.Writer

	held      uint8
	hasHeld   bool
	exhausted bool
}

// TAPE_EMPTY_READS is the limit of consecutive empty reads from the input
// stream before Receive gives up with io.ErrNoProgress.
const TAPE_EMPTY_READS = 100

// Receive reads the next frame event from the input stream, and applies it
// to the keypad. ok is false once the input is exhausted, or if there is
// no input stream.
func (tc *Tape) Receive(keypad *Keypad) (ok bool, err error) {
	if tc.Input == nil || tc.exhausted {
		return
	}

	empty := 0
	for {
		var one [1]byte
		n, rerr := tc.Input.Read(one[:])
		if n == 0 {
			if rerr == io.EOF {
				tc.exhausted = true
				tc.release(keypad)
				return
			}
			if rerr != nil {
				err = rerr
				return
			}
			empty++
			if empty >= TAPE_EMPTY_READS {
				err = io.ErrNoProgress
				return
			}
			continue
		}
		empty = 0

		switch c := one[0]; c {
		case ' ', '\t', '\r', '\n':
			continue
		case '.':
			tc.release(keypad)
		default:
			var key uint64
			key, err = strconv.ParseUint(string(c), 16, 4)
			if err != nil {
				err = fmt.Errorf("%w: %q", ErrTapeInput, c)
				return
			}
			tc.release(keypad)
			tc.held = uint8(key)
			tc.hasHeld = true
			keypad.Press(tc.held)
		}

		ok = true
		return
	}
}

// Exhausted returns true when there is no further input: either there is
// no input stream, or it has reached its end.
func (tc *Tape) Exhausted() bool {
	return tc.Input == nil || tc.exhausted
}

func (tc *Tape) release(keypad *Keypad) {
	if tc.hasHeld {
		keypad.Release(tc.held)
		tc.hasHeld = false
	}
}

// Send writes a line of text to the output stream, if there is one.
func (tc *Tape) Send(line string) (err error) {
	if tc.Output == nil {
		return
	}

	_, err = io.WriteString(tc.Output, line+"\n")
	return
}
