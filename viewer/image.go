package viewer

import (
	"fmt"
	"image"
	"image/color"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// flipVertical mirrors img top to bottom so frames from a camera mounted on
// its 1/4" hole show upright.
func flipVertical(img *image.RGBA) *image.RGBA {
	bounds := img.Bounds()
	height := bounds.Dy()
	rowLen := bounds.Dx() * 4

	flipped := image.NewRGBA(bounds)
	for y := 0; y < height; y++ {
		src := img.Pix[y*img.Stride : y*img.Stride+rowLen]
		dst := flipped.Pix[(height-1-y)*flipped.Stride:]
		copy(dst[:rowLen], src)
	}

	return flipped
}

// grayToRGBA expands a single channel 8-bit image.
func grayToRGBA(gray []byte, rows, cols int) (*image.RGBA, error) {
	if len(gray) != rows*cols {
		return nil, fmt.Errorf("gray image has %d bytes, expected %d", len(gray), rows*cols)
	}

	img := image.NewRGBA(image.Rect(0, 0, cols, rows))
	for i, v := range gray {
		img.Pix[i*4+0] = v
		img.Pix[i*4+1] = v
		img.Pix[i*4+2] = v
		img.Pix[i*4+3] = 255
	}

	return img, nil
}

// bgrToRGBA converts a packed 3 channel B, G, R image.
func bgrToRGBA(bgr []byte, rows, cols int) (*image.RGBA, error) {
	if len(bgr) != rows*cols*3 {
		return nil, fmt.Errorf("bgr image has %d bytes, expected %d", len(bgr), rows*cols*3)
	}

	img := image.NewRGBA(image.Rect(0, 0, cols, rows))
	for i := 0; i < rows*cols; i++ {
		img.Pix[i*4+0] = bgr[i*3+2]
		img.Pix[i*4+1] = bgr[i*3+1]
		img.Pix[i*4+2] = bgr[i*3+0]
		img.Pix[i*4+3] = 255
	}

	return img, nil
}

var overlayColor = color.RGBA{255, 0, 0, 255}

// drawText writes s with its baseline at (x, y).
func drawText(img *image.RGBA, x, y int, s string) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(overlayColor),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}
