// Package shader holds the WGSL programs of the stipple pipeline and checks
// shader text against the binding contract the pipeline relies on.
//
// Every stipple program binds the uniforms aspect_ratio and
// discard_threshold and the textures source_mask and source_colormap; the
// textured variant also binds source_texture. Vertex stages read the
// per-instance attributes translation, scale, colormap_scale, rotation,
// texture_rotation and gamma at locations 0 to 5.
//
// Procedural texture programs are built by appending a caller fragment
// stage to [ProceduralVertex]. The fragment stage must declare
//
//	@fragment
//	fn fs_main(in: ProceduralOutput) -> @location(0) vec4<f32>
package shader

import (
	_ "embed"
	"math"
)

//go:embed shaders/stipple.wgsl
var stippleSource string

//go:embed shaders/stipple_textured.wgsl
var stippleTexturedSource string

//go:embed shaders/procedural_vs.wgsl
var proceduralVertexSource string

//go:embed shaders/disc_fs.wgsl
var discFragmentSource string

//go:embed shaders/stripes_fs.wgsl
var stripesFragmentSource string

// Entry point names shared by all programs.
const (
	VertexEntry   = "vs_main"
	FragmentEntry = "fs_main"
)

// Stipple returns the plain stipple program (mask x colormap).
func Stipple() string { return stippleSource }

// StippleTextured returns the textured stipple program.
func StippleTextured() string { return stippleTexturedSource }

// ProceduralVertex returns the full-screen quad vertex stage.
func ProceduralVertex() string { return proceduralVertexSource }

// Procedural joins the procedural vertex stage and a fragment stage into
// one module.
func Procedural(fragment string) string {
	return proceduralVertexSource + "\n" + fragment
}

// DiscFragment is a soft disc fragment stage, useful as a stipple mask.
func DiscFragment() string { return discFragmentSource }

// DiscShade evaluates DiscFragment on the host.
func DiscShade(u, v float32) float32 {
	x := float64(u)*2 - 1
	y := float64(v)*2 - 1
	d := math.Hypot(x, y)
	return 1 - smoothstep(0.8, 1.0, d)
}

// StripesFragment is a horizontal stripe fragment stage, useful as a
// stipple texture.
func StripesFragment() string { return stripesFragmentSource }

// StripesShade evaluates StripesFragment on the host.
func StripesShade(_, v float32) float32 {
	return float32(0.5 + 0.5*math.Cos(float64(v)*16*math.Pi))
}

func smoothstep(e0, e1, x float64) float32 {
	t := (x - e0) / (e1 - e0)
	t = math.Max(0, math.Min(1, t))
	return float32(t * t * (3 - 2*t))
}
