package dali

import (
	"testing"

	"github.com/gogpu/dali/software"
)

// newTestPipeline returns a pipeline on a fresh software device.
func newTestPipeline(t *testing.T, w, h int, opts ...Option) (*Pipeline, *software.Device) {
	t.Helper()
	dev := software.New()
	p, err := New(dev, append([]Option{WithRenderSize(w, h)}, opts...)...)
	if err != nil {
		t.Fatalf("New() = %v", err)
	}
	t.Cleanup(p.Destroy)
	return p, dev
}

func solidColormap(t *testing.T, p *Pipeline, rgba [4]byte) *ColormapHandle {
	t.Helper()
	c, err := p.ColormapFromPixels(rgba[:], 1, 1)
	if err != nil {
		t.Fatalf("ColormapFromPixels() = %v", err)
	}
	return c
}

func solidMask(t *testing.T, p *Pipeline, size int, v byte) *MaskHandle {
	t.Helper()
	pix := make([]byte, size*size)
	for i := range pix {
		pix[i] = v
	}
	m, err := p.MaskFromPixels(pix, size, size, 0)
	if err != nil {
		t.Fatalf("MaskFromPixels() = %v", err)
	}
	return m
}

// circleMask is a hard disc of radius r centered in a size x size mask.
func circleMask(t *testing.T, p *Pipeline, size int, r float32) *MaskHandle {
	t.Helper()
	pix := make([]byte, size*size)
	c := float32(size) / 2
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			dx, dy := float32(x)+0.5-c, float32(y)+0.5-c
			if dx*dx+dy*dy < r*r {
				pix[y*size+x] = 0xff
			}
		}
	}
	m, err := p.MaskFromPixels(pix, size, size, 0)
	if err != nil {
		t.Fatalf("MaskFromPixels() = %v", err)
	}
	return m
}

// single declares one layer with one batch of stipples.
func single(colormap *ColormapHandle, mask *MaskHandle, stipples ...Stipple) func(*CanvasGate) {
	return func(c *CanvasGate) {
		c.Layer(colormap, func(l *LayerGate) {
			l.Stipple(mask, func(g *StippleGate) {
				for _, s := range stipples {
					g.Draw(s)
				}
			})
		})
	}
}

func absDiff(a, b uint8) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}
