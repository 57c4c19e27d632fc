package main

import (
	"errors"

	"github.com/ezrec/chip8/translate"
)

var f = translate.From

var (
	// Terminal errors
	ErrNotTerminal = errors.New(f("stdin is not a terminal"))
	ErrRawMode     = errors.New(f("terminal raw mode unavailable"))
	ErrNonblock    = errors.New(f("stdin nonblocking mode unavailable"))
)
