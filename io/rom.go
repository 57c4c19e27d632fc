package io

import (
	"io"
)

// Rom is a raw CHIP-8 program image, loaded verbatim at ROM_BASE.
type Rom struct {
	Data []byte
}

var _ io.ReaderFrom = (*Rom)(nil)

// ReadFrom replaces the ROM image with the contents of r.
// The image must be non-empty and no larger than MAX_ROM_SIZE.
func (rom *Rom) ReadFrom(r io.Reader) (n int64, err error) {
	data, err := io.ReadAll(io.LimitReader(r, MAX_ROM_SIZE+1))
	n = int64(len(data))
	if err != nil {
		return
	}

	switch {
	case len(data) == 0:
		err = ErrRomEmpty
		return
	case len(data) > MAX_ROM_SIZE:
		err = ErrRomTooLarge
		return
	}

	rom.Data = data
	return
}

// WriteTo writes the ROM image to w.
func (rom *Rom) WriteTo(w io.Writer) (n int64, err error) {
	nn, err := w.Write(rom.Data)
	n = int64(nn)
	return
}
