// Package colormap turns depth samples into colours using a fixed jet
// palette.
package colormap

import (
	"image"
	"image/color"
	"math"
)

// Size is the number of entries in a Table.
const Size = 256

// Table maps a normalized index to an RGB triple.
type Table [Size][3]uint8

// Jet builds the blue, cyan, green, yellow, red palette.
func Jet() Table {
	var t Table
	for i := range t {
		x := float64(i) / float64(Size-1)
		t[i] = [3]uint8{
			channel(1.5 - math.Abs(4*x-3)),
			channel(1.5 - math.Abs(4*x-2)),
			channel(1.5 - math.Abs(4*x-1)),
		}
	}
	return t
}

func channel(v float64) uint8 {
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	return uint8(math.Round(v * 255))
}

// Color returns entry i as an opaque colour.
func (t *Table) Color(i uint8) color.RGBA {
	e := t[i]
	return color.RGBA{e[0], e[1], e[2], 255}
}

// Index normalizes v from [min, max] into the table range. Values outside
// the range are clamped.
func Index(v, min, max uint16) uint8 {
	if max <= min {
		return 0
	}
	if v <= min {
		return 0
	}
	if v >= max {
		return Size - 1
	}
	return uint8(uint32(v-min) * (Size - 1) / uint32(max-min))
}

// Invalid is the colour of samples without a reading.
var Invalid = color.RGBA{0, 0, 0, 255}

// Colorize maps every depth sample of a rows x cols image through the table.
// Zero samples carry no reading and are painted Invalid.
func (t *Table) Colorize(depth []uint16, rows, cols int, min, max uint16) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, cols, rows))

	for i, d := range depth {
		if i >= rows*cols {
			break
		}
		if d == 0 {
			img.SetRGBA(i%cols, i/cols, Invalid)
			continue
		}
		e := t[Index(d, min, max)]
		img.Pix[i*4+0] = e[0]
		img.Pix[i*4+1] = e[1]
		img.Pix[i*4+2] = e[2]
		img.Pix[i*4+3] = 255
	}

	return img
}
