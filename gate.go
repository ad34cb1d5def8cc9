package dali

// CanvasGate collects the layers of one render. It is handed to the
// declaration callback of Render and Preview and consumed right after the
// callback returns.
type CanvasGate struct {
	layers []*LayerGate
}

// Declare runs f against a fresh canvas and returns the populated canvas.
func Declare(f func(*CanvasGate)) *CanvasGate {
	c := &CanvasGate{}
	if f != nil {
		f(c)
	}
	return c
}

// Layer opens a layer bound to colormap, lets f populate it and appends it
// to the canvas. Layers composite in call order.
func (c *CanvasGate) Layer(colormap *ColormapHandle, f func(*LayerGate)) {
	l := &LayerGate{colormap: colormap}
	if f != nil {
		f(l)
	}
	c.layers = append(c.layers, l)
}

// Layers returns the declared layers in order.
func (c *CanvasGate) Layers() []*LayerGate { return c.layers }

// LayerGate is one colormap binding and its ordered instance batches.
type LayerGate struct {
	colormap *ColormapHandle
	batches  []*StippleGate
}

// Colormap returns the layer colormap.
func (l *LayerGate) Colormap() *ColormapHandle { return l.colormap }

// Stipple opens a batch drawing mask, lets f populate it and appends it
// to the layer.
func (l *LayerGate) Stipple(mask *MaskHandle, f func(*StippleGate)) {
	l.batch(mask, nil, f)
}

// StippleWithTexture is Stipple with an additional texture sampled inside
// the mask footprint. Batches with a texture use the textured program.
func (l *LayerGate) StippleWithTexture(mask *MaskHandle, texture *TextureHandle, f func(*StippleGate)) {
	l.batch(mask, texture, f)
}

func (l *LayerGate) batch(mask *MaskHandle, texture *TextureHandle, f func(*StippleGate)) {
	g := &StippleGate{mask: mask, texture: texture}
	if f != nil {
		f(g)
	}
	l.batches = append(l.batches, g)
}

// Batches returns the declared batches in order.
func (l *LayerGate) Batches() []*StippleGate { return l.batches }

// StippleGate accumulates stipples drawn with one mask and optional
// texture. Order is preserved.
type StippleGate struct {
	mask     *MaskHandle
	texture  *TextureHandle
	stipples []Stipple
}

// Draw appends one instance. There is no upper bound; the pipeline splits
// large batches into chunks.
func (g *StippleGate) Draw(s Stipple) {
	g.stipples = append(g.stipples, s)
}

// Len returns the number of drawn instances.
func (g *StippleGate) Len() int { return len(g.stipples) }

// Stipples returns the drawn instances in order.
func (g *StippleGate) Stipples() []Stipple { return g.stipples }

// Mask returns the batch mask.
func (g *StippleGate) Mask() *MaskHandle { return g.mask }

// Texture returns the batch texture, or nil.
func (g *StippleGate) Texture() *TextureHandle { return g.texture }
