package imageio

import (
	"image"

	"golang.org/x/image/draw"
)

// ToGray converts img to a tightly packed *image.Gray with origin (0,0).
// Gray images already in that layout are returned as is.
func ToGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok && g.Rect.Min == (image.Point{}) && g.Stride == g.Rect.Dx() {
		return g
	}
	b := img.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	return out
}

// ToNRGBA converts img to straight-alpha RGBA8 with origin (0,0).
func ToNRGBA(img image.Image) *image.NRGBA {
	if n, ok := img.(*image.NRGBA); ok && n.Rect.Min == (image.Point{}) && n.Stride == 4*n.Rect.Dx() {
		return n
	}
	b := img.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	return out
}

// CenterSquare returns the bounds of the centered min(w,h) square of img.
// The offset on the longer axis is (max-min)/2.
func CenterSquare(img image.Image) image.Rectangle {
	b := img.Bounds()
	side := min(b.Dx(), b.Dy())
	x0 := b.Min.X + (b.Dx()-side)/2
	y0 := b.Min.Y + (b.Dy()-side)/2
	return image.Rect(x0, y0, x0+side, y0+side)
}

// Resize scales img to width x height with Catmull-Rom interpolation.
func Resize(img image.Image, width, height int) *image.RGBA {
	return ResizeWith(img, width, height, draw.CatmullRom)
}

// ResizeWith scales img to width x height with interp.
func ResizeWith(img image.Image, width, height int, interp draw.Interpolator) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	interp.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst
}

// SquareGray center-crops img to a square, scales it to size x size and
// converts it to grayscale. This is the import path for masks and
// textures. Images already of the right size skip the resampling.
func SquareGray(img image.Image, size int) *image.Gray {
	r := CenterSquare(img)
	out := image.NewGray(image.Rect(0, 0, size, size))
	if r.Dx() == size {
		draw.Draw(out, out.Bounds(), img, r.Min, draw.Src)
		return out
	}
	draw.CatmullRom.Scale(out, out.Bounds(), img, r, draw.Src, nil)
	return out
}
