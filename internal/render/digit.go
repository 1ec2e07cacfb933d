// Package render draws MNIST digits as PNG images or terminal text.
package render

import (
	"fmt"
	"image"
	"image/png"
	"io"
	"math"
	"strings"

	"golang.org/x/image/draw"
)

// Side is the width and height of a digit in pixels.
const Side = 28

// shades runs from background to ink.
const shades = " .:-=+*#%@"

// Image converts scaled pixels in [0,1], row-major, into a grayscale image
// with ink drawn dark on a light background.
func Image(pixels []float64) (*image.Gray, error) {
	if len(pixels) != Side*Side {
		return nil, fmt.Errorf("render: got %d pixels, want %d", len(pixels), Side*Side)
	}
	img := image.NewGray(image.Rect(0, 0, Side, Side))
	for i, v := range pixels {
		img.Pix[i] = 255 - uint8(clamp01(v)*255+0.5)
	}
	return img, nil
}

// WritePNG encodes the digit as a PNG, upscaled by scale with
// nearest-neighbour sampling so individual pixels stay crisp.
func WritePNG(w io.Writer, pixels []float64, scale int) error {
	src, err := Image(pixels)
	if err != nil {
		return err
	}
	if scale < 1 {
		scale = 1
	}
	dst := image.NewGray(image.Rect(0, 0, Side*scale, Side*scale))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return png.Encode(w, dst)
}

// WriteASCII prints the digit as Side lines of shade characters under a
// "Label: N" title.
func WriteASCII(w io.Writer, pixels []float64, label int) error {
	if len(pixels) != Side*Side {
		return fmt.Errorf("render: got %d pixels, want %d", len(pixels), Side*Side)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Label: %d\n", label)
	for y := 0; y < Side; y++ {
		for x := 0; x < Side; x++ {
			v := clamp01(pixels[y*Side+x])
			b.WriteByte(shades[int(v*float64(len(shades)-1)+0.5)])
		}
		b.WriteByte('\n')
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// clamp01 maps v into [0,1]. NaN is treated as background.
func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

