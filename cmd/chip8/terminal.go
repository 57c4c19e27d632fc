package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"syscall"
	"time"

	"golang.org/x/term"

	"github.com/ezrec/chip8/emulator"
	"github.com/ezrec/chip8/io"
)

// KEY_HOLD_FRAMES is how long a key stays held after a keystroke, as
// terminals do not report key release.
const KEY_HOLD_FRAMES = 6

// keyMap maps the host keyboard onto the hex keypad.
//
//	1 2 3 4      1 2 3 C
//	q w e r  =>  4 5 6 D
//	a s d f      7 8 9 E
//	z x c v      A 0 B F
var keyMap = map[byte]uint8{
	'1': 0x1, '2': 0x2, '3': 0x3, '4': 0xc,
	'q': 0x4, 'w': 0x5, 'e': 0x6, 'r': 0xd,
	'a': 0x7, 's': 0x8, 'd': 0x9, 'f': 0xe,
	'z': 0xa, 'x': 0x0, 'c': 0xb, 'v': 0xf,
}

// TerminalHost runs the emulator at 60Hz, reading raw stdin for the
// keypad and drawing the display with ANSI escapes.
type TerminalHost struct {
	emu *emulator.Emulator

	keys    chan byte
	stopCh  chan struct{}
	done    chan struct{}
	stopped sync.Once

	fd           int
	nonblockSet  bool
	oldTermState *term.State

	hold     [io.KEY_COUNT]int
	sounding bool
}

// NewTerminalHost creates a terminal host for the emulator.
func NewTerminalHost(emu *emulator.Emulator) *TerminalHost {
	return &TerminalHost{
		emu:    emu,
		keys:   make(chan byte, 64),
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Start puts stdin into raw non-blocking mode and begins reading keys in a
// goroutine. Call Stop() to restore stdin.
func (h *TerminalHost) Start() (err error) {
	h.fd = int(os.Stdin.Fd())

	if !term.IsTerminal(h.fd) {
		close(h.done)
		return ErrNotTerminal
	}

	if width, height, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
		if width < io.SCREEN_WIDTH || height < io.SCREEN_HEIGHT+1 {
			log.Print(f("terminal %dx%d is smaller than the %dx%d display",
				width, height, io.SCREEN_WIDTH, io.SCREEN_HEIGHT+1))
		}
	}

	oldState, err := term.MakeRaw(h.fd)
	if err != nil {
		close(h.done)
		return errors.Join(ErrRawMode, err)
	}
	h.oldTermState = oldState

	if err = syscall.SetNonblock(h.fd, true); err != nil {
		_ = term.Restore(h.fd, h.oldTermState)
		h.oldTermState = nil
		close(h.done)
		return errors.Join(ErrNonblock, err)
	}
	h.nonblockSet = true

	go func() {
		defer close(h.done)
		buf := make([]byte, 1)

		for {
			select {
			case <-h.stopCh:
				return
			default:
			}

			n, err := syscall.Read(h.fd, buf)
			if n > 0 {
				select {
				case h.keys <- buf[0]:
				default:
				}
			}
			if err == syscall.EAGAIN || err == syscall.EWOULDBLOCK {
				time.Sleep(5 * time.Millisecond)
				continue
			}
			if err != nil {
				return
			}
			if n == 0 {
				time.Sleep(5 * time.Millisecond)
			}
		}
	}()

	// Hide the cursor, and clear the screen.
	fmt.Print("\x1b[?25l\x1b[2J")

	return
}

// Stop terminates the stdin reading goroutine and restores the terminal.
func (h *TerminalHost) Stop() {
	h.stopped.Do(func() {
		close(h.stopCh)
	})
	<-h.done
	if h.nonblockSet {
		_ = syscall.SetNonblock(h.fd, false)
		h.nonblockSet = false
	}
	if h.oldTermState != nil {
		_ = term.Restore(h.fd, h.oldTermState)
		h.oldTermState = nil
		fmt.Print("\x1b[?25h\r\n")
	}
}

// Run executes frames at FRAME_RATE until the program halts, the frame
// limit is reached, or ESC or Ctrl-C is pressed.
func (h *TerminalHost) Run(frames int) (err error) {
	err = h.Start()
	if err != nil {
		return
	}
	defer h.Stop()

	ticker := time.NewTicker(time.Second / emulator.FRAME_RATE)
	defer ticker.Stop()

	h.emu.Cpu.Display.Dirty = true
	for frames == 0 || h.emu.Frames < frames {
		if quit := h.pollKeys(); quit {
			return
		}

		var done bool
		done, err = h.emu.Frame()
		if err != nil {
			return
		}

		h.redraw()
		if done {
			return
		}

		<-ticker.C
	}

	return
}

// pollKeys drains pending keystrokes into the keypad, and releases keys
// whose hold time has expired.
func (h *TerminalHost) pollKeys() (quit bool) {
	keypad := &h.emu.Cpu.Keypad

	for key, left := range h.hold {
		if left > 0 {
			h.hold[key]--
			if h.hold[key] == 0 {
				keypad.Release(uint8(key))
			}
		}
	}

	for {
		select {
		case c := <-h.keys:
			switch c {
			case 0x1b, 0x03:
				quit = true
				return
			}
			if c >= 'A' && c <= 'Z' {
				c += 'a' - 'A'
			}
			key, ok := keyMap[c]
			if !ok {
				continue
			}
			keypad.Press(key)
			h.hold[key] = KEY_HOLD_FRAMES
		default:
			return
		}
	}
}

// redraw draws the display when it has changed, and rings the bell when
// the sound timer starts.
func (h *TerminalHost) redraw() {
	display := &h.emu.Cpu.Display

	sounding := h.emu.Sounding()
	if sounding && !h.sounding {
		fmt.Print("\a")
	}
	h.sounding = sounding

	if !display.Dirty {
		return
	}
	display.Redrawn()

	text := strings.ReplaceAll(display.String(), "\n", "\x1b[K\r\n")
	fmt.Print("\x1b[H" + text)
}
