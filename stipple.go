package dali

import "github.com/gogpu/dali/gpucore"

// Stipple is one placed instance of a mask: its transform and shading
// parameters. Stipples are values; every With method returns a modified
// copy and leaves the receiver untouched.
//
// The zero value has zero scale and gamma and draws nothing. Start from
// NewStipple or DefaultStipple:
//
//	s := dali.NewStipple().
//	    WithTranslation(0.2, -0.4).
//	    WithScale(0.05, 0.05).
//	    WithRotation(math.Pi / 4)
type Stipple struct {
	translation     [2]float32
	scale           [2]float32
	colormapScale   [2]float32
	rotation        float32
	textureRotation float32
	gamma           float32
}

// DefaultStipple is the identity stipple: centered, unit scale, unit
// colormap scale, no rotation, gamma 1.
var DefaultStipple = Stipple{
	scale:         [2]float32{1, 1},
	colormapScale: [2]float32{1, 1},
	gamma:         1,
}

// NewStipple returns DefaultStipple.
func NewStipple() Stipple { return DefaultStipple }

// WithTranslation sets the canvas-relative center. The canvas spans [-1,1]
// on both axes, y up. Values outside that range are drawn off-canvas.
func (s Stipple) WithTranslation(x, y float32) Stipple {
	s.translation = [2]float32{x, y}
	return s
}

// WithScale sets the half extent of the quad in canvas height units.
// Negative values mirror the mask.
func (s Stipple) WithScale(x, y float32) Stipple {
	s.scale = [2]float32{x, y}
	return s
}

// WithColormapScale scales the colormap lookup coordinates.
func (s Stipple) WithColormapScale(x, y float32) Stipple {
	s.colormapScale = [2]float32{x, y}
	return s
}

// WithRotation sets the quad rotation in radians, counter-clockwise.
func (s Stipple) WithRotation(r float32) Stipple {
	s.rotation = r
	return s
}

// WithTextureRotation sets the rotation of the bound texture in radians,
// independent of the quad rotation. Ignored without a texture.
func (s Stipple) WithTextureRotation(r float32) Stipple {
	s.textureRotation = r
	return s
}

// WithGamma sets the exponent applied to mask coverage.
func (s Stipple) WithGamma(g float32) Stipple {
	s.gamma = g
	return s
}

// Translation returns the center.
func (s Stipple) Translation() (x, y float32) { return s.translation[0], s.translation[1] }

// Scale returns the half extent.
func (s Stipple) Scale() (x, y float32) { return s.scale[0], s.scale[1] }

// ColormapScale returns the colormap coordinate scale.
func (s Stipple) ColormapScale() (x, y float32) { return s.colormapScale[0], s.colormapScale[1] }

// Rotation returns the quad rotation.
func (s Stipple) Rotation() float32 { return s.rotation }

// TextureRotation returns the texture rotation.
func (s Stipple) TextureRotation() float32 { return s.textureRotation }

// Gamma returns the coverage exponent.
func (s Stipple) Gamma() float32 { return s.gamma }

// instance converts s into the record uploaded to the device.
func (s Stipple) instance(textured bool) gpucore.Instance {
	in := gpucore.Instance{
		Translation:   s.translation,
		Scale:         s.scale,
		ColormapScale: s.colormapScale,
		Rotation:      s.rotation,
		Gamma:         s.gamma,
	}
	if textured {
		in.TextureRotation = s.textureRotation
	}
	return in
}

// appendInstances converts stipples in order, reusing dst.
func appendInstances(dst []gpucore.Instance, stipples []Stipple, textured bool) []gpucore.Instance {
	for i := range stipples {
		dst = append(dst, stipples[i].instance(textured))
	}
	return dst
}
