package dali

import (
	"encoding/binary"
	"fmt"
	"image"
	"math"

	"golang.org/x/image/draw"

	"github.com/gogpu/dali/gpucore"
	"github.com/gogpu/dali/imageio"
)

// handle is the shared part of every texture handle.
type handle struct {
	pipe   *Pipeline
	id     gpucore.TextureID
	width  int
	height int
	mips   int
}

// Destroy releases the device texture. Destroying twice is a no-op.
func (h *handle) Destroy() {
	if h == nil || h.id == gpucore.InvalidID {
		return
	}
	if h.pipe != nil {
		h.pipe.releaseTexture(h)
	}
	h.id = gpucore.InvalidID
}

// MipLevels returns the number of mip levels of the texture.
func (h *handle) MipLevels() int { return h.mips }

// MaskHandle owns a square single-channel texture defining stipple shapes.
type MaskHandle struct{ handle }

// Size returns the side length in pixels.
func (m *MaskHandle) Size() int { return m.width }

// TextureHandle owns a square single-channel texture sampled inside a
// mask footprint.
type TextureHandle struct{ handle }

// Size returns the side length in pixels.
func (t *TextureHandle) Size() int { return t.width }

// ColormapHandle owns an RGBA texture sampled to color a layer.
type ColormapHandle struct{ handle }

// Bounds returns the colormap dimensions.
func (c *ColormapHandle) Bounds() (width, height int) { return c.width, c.height }

// CropToSquare returns the centered min(w,h) square of img. The offset on
// the longer axis is (max-min)/2. Square images are returned as is.
func CropToSquare(img *image.Gray) *image.Gray {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == h {
		return img
	}
	side := min(w, h)
	x0 := b.Min.X + (w-side)/2
	y0 := b.Min.Y + (h-side)/2
	sub := img.SubImage(image.Rect(x0, y0, x0+side, y0+side)).(*image.Gray)
	out := image.NewGray(image.Rect(0, 0, side, side))
	draw.Copy(out, image.Point{}, sub, sub.Bounds(), draw.Src, nil)
	return out
}

// Mask uploads img as a mask with the full mip chain. Non-square images
// are center-cropped to a square first; color images are converted to
// grayscale.
func (p *Pipeline) Mask(img image.Image) (*MaskHandle, error) {
	g := CropToSquare(imageio.ToGray(img))
	return p.MaskFromPixels(g.Pix, g.Rect.Dx(), g.Rect.Dy(), 0)
}

// MaskFromPixels uploads an 8-bit grayscale buffer of width x height as a
// mask with mipmaps levels; 0 selects the full chain.
func (p *Pipeline) MaskFromPixels(pix []byte, width, height, mipmaps int) (*MaskHandle, error) {
	h, err := p.uploadSquare("mask", pix, width, height, mipmaps)
	if err != nil {
		return nil, err
	}
	return &MaskHandle{handle: *h}, nil
}

// Texture uploads img as a stipple texture. See Mask.
func (p *Pipeline) Texture(img image.Image) (*TextureHandle, error) {
	g := CropToSquare(imageio.ToGray(img))
	return p.TextureFromPixels(g.Pix, g.Rect.Dx(), g.Rect.Dy(), 0)
}

// TextureFromPixels uploads an 8-bit grayscale buffer as a stipple
// texture. See MaskFromPixels.
func (p *Pipeline) TextureFromPixels(pix []byte, width, height, mipmaps int) (*TextureHandle, error) {
	h, err := p.uploadSquare("texture", pix, width, height, mipmaps)
	if err != nil {
		return nil, err
	}
	return &TextureHandle{handle: *h}, nil
}

// Colormap uploads img as a colormap. Colors are taken with straight
// (non-premultiplied) alpha.
func (p *Pipeline) Colormap(img image.Image) (*ColormapHandle, error) {
	n := imageio.ToNRGBA(img)
	return p.ColormapFromPixels(n.Pix, n.Rect.Dx(), n.Rect.Dy())
}

// ColormapFromPixels uploads a straight-alpha RGBA8 buffer as a colormap.
func (p *Pipeline) ColormapFromPixels(pix []byte, width, height int) (*ColormapHandle, error) {
	h, err := p.upload("colormap", gpucore.FormatRGBA8, pix, width, height, 1, gpucore.ColormapSampler)
	if err != nil {
		return nil, err
	}
	return &ColormapHandle{handle: *h}, nil
}

// ColormapFromFloats uploads a straight-alpha RGBA float buffer as a
// colormap.
func (p *Pipeline) ColormapFromFloats(pix []float32, width, height int) (*ColormapHandle, error) {
	buf := make([]byte, 0, len(pix)*4)
	for _, v := range pix {
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(v))
	}
	h, err := p.upload("colormap", gpucore.FormatRGBA32F, buf, width, height, 1, gpucore.ColormapSampler)
	if err != nil {
		return nil, err
	}
	return &ColormapHandle{handle: *h}, nil
}

// uploadSquare crops a grayscale buffer to its centered square and uploads
// it with the mask sampling policy.
func (p *Pipeline) uploadSquare(kind string, pix []byte, width, height, mipmaps int) (*handle, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("dali: create %s %dx%d: %w", kind, width, height, ErrZeroSize)
	}
	if len(pix) < width*height {
		return nil, fmt.Errorf("dali: create %s: %d bytes for %dx%d: %w", kind, len(pix), width, height, ErrPixelBuffer)
	}
	if width != height {
		g := &image.Gray{Pix: pix, Stride: width, Rect: image.Rect(0, 0, width, height)}
		g = CropToSquare(g)
		pix, width, height = g.Pix, g.Rect.Dx(), g.Rect.Dy()
	}
	if mipmaps <= 0 {
		mipmaps = fullMipChain(width, height)
	}
	return p.upload(kind, gpucore.FormatR8, pix, width, height, mipmaps, gpucore.MaskSampler)
}

func (p *Pipeline) upload(kind string, format gpucore.TextureFormat, pix []byte,
	width, height, mipmaps int, sampler gpucore.SamplerDescriptor,
) (*handle, error) {
	if err := p.alive(); err != nil {
		return nil, err
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("dali: create %s %dx%d: %w", kind, width, height, ErrZeroSize)
	}
	if limit := p.dev.Limits().MaxTextureDimension; width > limit || height > limit {
		return nil, fmt.Errorf("dali: create %s %dx%d (limit %d): %w", kind, width, height, limit, ErrTextureTooLarge)
	}
	if need := width * height * format.BytesPerTexel(); len(pix) < need {
		return nil, fmt.Errorf("dali: create %s: %d bytes, need %d: %w", kind, len(pix), need, ErrPixelBuffer)
	}
	mipmaps = min(mipmaps, fullMipChain(width, height))

	id, err := p.dev.CreateTexture(gpucore.TextureDescriptor{
		Label:     kind,
		Width:     width,
		Height:    height,
		Format:    format,
		MipLevels: mipmaps,
		Sampler:   sampler,
	}, pix)
	if err != nil {
		return nil, fmt.Errorf("dali: create %s: %w", kind, err)
	}
	h := &handle{pipe: p, id: id, width: width, height: height, mips: mipmaps}
	p.textures[id] = struct{}{}
	p.logger().Debug("dali: texture uploaded", "kind", kind, "width", width, "height", height, "mips", mipmaps)
	return h, nil
}

// fullMipChain returns 1 + floor(log2(max(w, h))).
func fullMipChain(w, h int) int {
	n := 1
	for s := max(w, h); s > 1; s /= 2 {
		n++
	}
	return n
}

func (p *Pipeline) releaseTexture(h *handle) {
	if _, ok := p.textures[h.id]; !ok {
		return
	}
	delete(p.textures, h.id)
	p.dev.DestroyTexture(h.id)
}

// valid reports whether h is live and belongs to p.
func (p *Pipeline) valid(h *handle) bool {
	if h == nil || h.pipe != p || h.id == gpucore.InvalidID {
		return false
	}
	_, ok := p.textures[h.id]
	return ok
}
