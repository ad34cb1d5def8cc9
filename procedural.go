package dali

import (
	"fmt"
	"math"

	"github.com/gogpu/dali/gpucore"
	"github.com/gogpu/dali/shader"
)

// Extent sizes a procedural colormap either in pixels or relative to the
// pipeline render size.
type Extent struct {
	scale         float32
	width, height int
}

// Pixels is an explicit width x height extent.
func Pixels(width, height int) Extent { return Extent{width: width, height: height} }

// ScaleOf is an extent of s times the render size, rounded to the nearest
// pixel.
func ScaleOf(s float32) Extent { return Extent{scale: s} }

func (e Extent) resolve(render Size) (int, int) {
	if e.width != 0 || e.height != 0 {
		return e.width, e.height
	}
	w := int(math.Round(float64(e.scale) * float64(render.Width)))
	h := int(math.Round(float64(e.scale) * float64(render.Height)))
	return w, h
}

// ColormapFunc builds a colormap by evaluating f at the center of every
// pixel. x and y are normalized to [0,1), row-major from the top-left.
// f returns straight-alpha RGBA.
func (p *Pipeline) ColormapFunc(e Extent, f func(x, y float32) [4]float32) (*ColormapHandle, error) {
	if err := p.alive(); err != nil {
		return nil, err
	}
	w, h := e.resolve(p.renderSize)
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("dali: colormap %dx%d: %w", w, h, ErrZeroSize)
	}
	return p.ColormapFromFloats(EvalColormap(w, h, f), w, h)
}

// EvalColormap evaluates f over a w x h grid of pixel centers and returns
// the RGBA float buffer.
func EvalColormap(w, h int, f func(x, y float32) [4]float32) []float32 {
	pix := make([]float32, 0, w*h*4)
	for j := 0; j < h; j++ {
		y := (float32(j) + 0.5) / float32(h)
		for i := 0; i < w; i++ {
			x := (float32(i) + 0.5) / float32(w)
			c := f(x, y)
			pix = append(pix, c[0], c[1], c[2], c[3])
		}
	}
	return pix
}

// TextureRenderer describes a procedural single-channel texture produced
// by a fragment stage.
type TextureRenderer interface {
	// Fragment returns the WGSL fragment stage. See package shader for the
	// expected signature.
	Fragment() string

	// Size returns the side length of the square texture.
	Size() int

	// Mipmaps returns the number of mip levels; 0 selects the full chain.
	Mipmaps() int

	// Shade evaluates the fragment stage on the host, returning the red
	// channel. Devices that cannot execute WGSL use it.
	Shade(u, v float32) float32
}

// FragmentShaderRenderer is the stock TextureRenderer.
type FragmentShaderRenderer struct {
	fragment string
	size     int
	mipmaps  int
	shade    func(u, v float32) float32
}

var _ TextureRenderer = (*FragmentShaderRenderer)(nil)

// NewFragmentShaderRenderer returns a renderer for fragment at size x size.
// shade may be nil when only hardware devices are used.
func NewFragmentShaderRenderer(fragment string, size, mipmaps int, shade func(u, v float32) float32) *FragmentShaderRenderer {
	return &FragmentShaderRenderer{fragment: fragment, size: size, mipmaps: mipmaps, shade: shade}
}

// DiscRenderer renders a soft-edged disc, a common stipple mask.
func DiscRenderer(size int) *FragmentShaderRenderer {
	return NewFragmentShaderRenderer(shader.DiscFragment(), size, 0, shader.DiscShade)
}

// StripesRenderer renders horizontal stripes, a common stipple texture.
func StripesRenderer(size int) *FragmentShaderRenderer {
	return NewFragmentShaderRenderer(shader.StripesFragment(), size, 0, shader.StripesShade)
}

func (r *FragmentShaderRenderer) Fragment() string { return r.fragment }
func (r *FragmentShaderRenderer) Size() int        { return r.size }
func (r *FragmentShaderRenderer) Mipmaps() int     { return r.mipmaps }

func (r *FragmentShaderRenderer) Shade(u, v float32) float32 {
	if r.shade == nil {
		return 0
	}
	return r.shade(u, v)
}

// RenderMask renders r offscreen and uploads the result as a mask.
func (p *Pipeline) RenderMask(r TextureRenderer) (*MaskHandle, error) {
	h, err := p.renderProcedural("mask", r)
	if err != nil {
		return nil, err
	}
	return &MaskHandle{handle: *h}, nil
}

// RenderTexture renders r offscreen and uploads the result as a texture.
func (p *Pipeline) RenderTexture(r TextureRenderer) (*TextureHandle, error) {
	h, err := p.renderProcedural("texture", r)
	if err != nil {
		return nil, err
	}
	return &TextureHandle{handle: *h}, nil
}

// renderProcedural draws a full-screen quad with the renderer fragment
// stage into a temporary target, reads it back and re-uploads the red
// channel as a mipmapped texture. Render targets cannot carry mip storage,
// hence the second upload.
func (p *Pipeline) renderProcedural(kind string, r TextureRenderer) (*handle, error) {
	if err := p.alive(); err != nil {
		return nil, err
	}
	size := r.Size()
	if size <= 0 {
		return nil, fmt.Errorf("dali: render %s %dx%d: %w", kind, size, size, ErrZeroSize)
	}
	if limit := p.dev.Limits().MaxTextureDimension; size > limit {
		return nil, fmt.Errorf("dali: render %s %d (limit %d): %w", kind, size, limit, ErrTextureTooLarge)
	}

	src := shader.Procedural(r.Fragment())
	label := "procedural-" + kind
	if err := p.check(label, src, shader.ProceduralContract); err != nil {
		return nil, err
	}
	prog, err := p.dev.CreateProgram(gpucore.ProgramDescriptor{
		Label:  label,
		Kind:   gpucore.ProgramProcedural,
		Source: src,
		Shade: func(u, v float32) [4]float32 {
			s := r.Shade(u, v)
			return [4]float32{s, s, s, 1}
		},
	})
	if err != nil {
		return nil, fmt.Errorf("dali: compile %s: %w: %w", label, ErrShaderCompile, err)
	}
	defer p.dev.DestroyProgram(prog)

	target, err := p.dev.CreateTarget(size, size)
	if err != nil {
		return nil, fmt.Errorf("dali: render %s: create target: %w", kind, err)
	}
	defer p.dev.DestroyTarget(target)

	pass, err := p.dev.BeginPass(target, clearColor)
	if err != nil {
		return nil, fmt.Errorf("dali: render %s: %w", kind, err)
	}
	pass.SetProgram(prog)
	if err := pass.Draw(gpucore.InvalidID, gpucore.QuadVertexCount, 1); err != nil {
		_ = pass.End()
		return nil, fmt.Errorf("dali: render %s: draw: %w", kind, err)
	}
	if err := pass.End(); err != nil {
		return nil, fmt.Errorf("dali: render %s: %w", kind, err)
	}

	pix, err := p.dev.ReadPixels(target)
	if err != nil {
		return nil, fmt.Errorf("dali: render %s: read back: %w", kind, err)
	}
	if len(pix) != size*size*4 {
		return nil, fmt.Errorf("dali: render %s: %d values for %dx%d: %w", kind, len(pix), size, size, ErrReadback)
	}
	red := make([]byte, size*size)
	for i := range red {
		red[i] = toByte(pix[i*4])
	}
	mips := r.Mipmaps()
	if mips <= 0 {
		mips = fullMipChain(size, size)
	}
	return p.upload(kind, gpucore.FormatR8, red, size, size, mips, gpucore.MaskSampler)
}
