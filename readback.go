package dali

import (
	"fmt"
	"image"

	"golang.org/x/image/draw"
)

// toRGBA converts premultiplied float pixels into an image of size.
// Offscreen exports set opaque: alpha is forced to 255 and color is kept
// as is, without un-premultiplying.
func toRGBA(pix []float32, size Size, opaque bool) (*image.RGBA, error) {
	if want := size.Width * size.Height * 4; len(pix) != want {
		return nil, fmt.Errorf("dali: %d values for %s, want %d: %w", len(pix), size, want, ErrReadback)
	}
	img := image.NewRGBA(image.Rect(0, 0, size.Width, size.Height))
	for i := 0; i < len(pix); i += 4 {
		img.Pix[i+0] = toByte(pix[i+0])
		img.Pix[i+1] = toByte(pix[i+1])
		img.Pix[i+2] = toByte(pix[i+2])
		if opaque {
			img.Pix[i+3] = 0xff
		} else {
			img.Pix[i+3] = toByte(pix[i+3])
		}
	}
	return img, nil
}

// toByte maps [0,1] to [0,255] with rounding, clamping out-of-range values.
func toByte(v float32) uint8 {
	switch {
	case v <= 0 || v != v:
		return 0
	case v >= 1:
		return 0xff
	}
	return uint8(v*255 + 0.5)
}

// resize scales src to size with interp.
func resize(src *image.RGBA, size Size, interp draw.Interpolator) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, size.Width, size.Height))
	interp.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst
}
