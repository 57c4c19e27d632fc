package io

import (
	"image"
	"image/color"
	"io"
	"strings"

	"golang.org/x/image/bmp"
)

// Palette used when rendering the display to an image; index 0 is an
// unlit pixel, index 1 is lit.
var Palette = color.Palette{
	color.RGBA{R: 0x30, G: 0x20, B: 0x19, A: 0xff},
	color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff},
}

// Display is the 64x32 monochrome bitmap. Each pixel is exactly 0 or 1.
type Display struct {
	Pixels [SCREEN_HEIGHT][SCREEN_WIDTH]uint8
	Dirty  bool // Set whenever Pixels changes; cleared by the host.
}

// Clear blanks every pixel and requests a redraw.
func (d *Display) Clear() {
	for y := range d.Pixels {
		clear(d.Pixels[y][:])
	}
	d.Dirty = true
}

// Redrawn acknowledges a redraw request.
func (d *Display) Redrawn() {
	d.Dirty = false
}

// Pixel returns the pixel at (x, y), wrapping both coordinates.
func (d *Display) Pixel(x, y int) uint8 {
	return d.Pixels[wrap(y, SCREEN_HEIGHT)][wrap(x, SCREEN_WIDTH)]
}

// Draw XORs an 8 pixel wide sprite onto the display with its top left
// corner at (x, y). Each byte of sprite is one row, most significant bit
// leftmost. Rows and columns wrap around the display edges.
//
// collision is true when any lit pixel was turned off.
func (d *Display) Draw(x, y uint8, sprite []byte) (collision bool) {
	ox := wrap(int(x), SCREEN_WIDTH)
	oy := wrap(int(y), SCREEN_HEIGHT)

	for r, row := range sprite {
		py := (oy + r) % SCREEN_HEIGHT
		for b := range 8 {
			bit := (row >> (7 - b)) & 1
			if bit == 0 {
				continue
			}
			px := (ox + b) % SCREEN_WIDTH
			if d.Pixels[py][px] == 1 {
				collision = true
			}
			d.Pixels[py][px] ^= 1
		}
	}

	d.Dirty = true

	return
}

// Lit returns the number of lit pixels.
func (d *Display) Lit() (count int) {
	for y := range d.Pixels {
		for _, p := range d.Pixels[y] {
			count += int(p)
		}
	}
	return
}

// String renders the display as text, one line per row.
func (d *Display) String() string {
	var sb strings.Builder
	sb.Grow(SCREEN_HEIGHT * (SCREEN_WIDTH*3 + 1))
	for y := range d.Pixels {
		for _, p := range d.Pixels[y] {
			if p != 0 {
				sb.WriteRune('█')
			} else {
				sb.WriteByte(' ')
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Image renders the display as a paletted image, each pixel scaled to a
// scale x scale block.
func (d *Display) Image(scale int) *image.Paletted {
	if scale < 1 {
		scale = 1
	}

	img := image.NewPaletted(image.Rect(0, 0, SCREEN_WIDTH*scale, SCREEN_HEIGHT*scale), Palette)
	for y := range img.Rect.Dy() {
		row := d.Pixels[y/scale]
		for x := range img.Rect.Dx() {
			img.SetColorIndex(x, y, row[x/scale])
		}
	}

	return img
}

// WriteBMP writes a scaled BMP screenshot of the display.
func (d *Display) WriteBMP(w io.Writer, scale int) error {
	return bmp.Encode(w, d.Image(scale))
}

func wrap(v, n int) int {
	v %= n
	if v < 0 {
		v += n
	}
	return v
}
