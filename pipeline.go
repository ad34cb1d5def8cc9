package dali

import (
	"fmt"
	"image"
	"log/slog"
	"slices"
	"sync/atomic"

	"golang.org/x/image/draw"

	"github.com/gogpu/dali/gpucore"
	"github.com/gogpu/dali/shader"
)

// ChunkSize is the capacity of the instance buffer. Batches with more
// stipples are drawn in ceil(n/ChunkSize) draw calls.
const ChunkSize = 512

// clearColor is transparent black. Blending accumulates, so every target
// is cleared before drawing.
var clearColor = [4]float32{0, 0, 0, 0}

// Size is a width x height in pixels.
type Size struct {
	Width, Height int
}

// IsZero reports whether either dimension is zero or negative.
func (s Size) IsZero() bool { return s.Width <= 0 || s.Height <= 0 }

func (s Size) String() string { return fmt.Sprintf("%dx%d", s.Width, s.Height) }

// FrameStats summarizes the most recent render.
type FrameStats struct {
	Size      Size
	Layers    int
	Batches   int
	Instances int
	DrawCalls int
	Resized   bool
}

// Pipeline owns a device, the compiled stipple programs, the instance
// buffer and a cache of render targets keyed by size. It converts canvas
// declarations into draw calls.
//
// A Pipeline is driven from one goroutine. Starting a render while another
// one is executing returns ErrBusy.
type Pipeline struct {
	dev gpucore.Device

	plain     gpucore.ProgramID
	textured  gpucore.ProgramID
	instances gpucore.BufferID
	records   []gpucore.Instance

	targets  map[Size]gpucore.TargetID
	textures map[gpucore.TextureID]struct{}

	renderSize Size
	discard    float32
	resampler  draw.Interpolator

	log       atomic.Pointer[slog.Logger]
	ownLogger bool

	warnings  []string
	last      FrameStats
	busy      atomic.Bool
	destroyed bool
}

// New compiles the stipple programs on dev and returns a pipeline that
// takes ownership of the device.
func New(dev gpucore.Device, opts ...Option) (*Pipeline, error) {
	if dev == nil {
		return nil, ErrNilDevice
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.renderSize.IsZero() {
		return nil, fmt.Errorf("dali: render size %s: %w", o.renderSize, ErrZeroSize)
	}
	if limit := dev.Limits().MaxTextureDimension; o.renderSize.Width > limit || o.renderSize.Height > limit {
		return nil, fmt.Errorf("dali: render size %s (limit %d): %w", o.renderSize, limit, ErrTextureTooLarge)
	}

	p := &Pipeline{
		dev:        dev,
		targets:    make(map[Size]gpucore.TargetID),
		textures:   make(map[gpucore.TextureID]struct{}),
		renderSize: o.renderSize,
		discard:    o.discard,
		resampler:  o.resampler,
		records:    make([]gpucore.Instance, 0, ChunkSize),
	}
	if o.logger != nil {
		p.log.Store(o.logger)
		p.ownLogger = true
	} else {
		p.log.Store(Logger())
	}
	propagateLogger(dev, p.logger())

	var err error
	if p.plain, err = p.program("stipple", gpucore.ProgramStipple, shader.Stipple(), shader.StippleContract); err != nil {
		return nil, err
	}
	if p.textured, err = p.program("stipple-textured", gpucore.ProgramStippleTextured, shader.StippleTextured(), shader.TexturedContract); err != nil {
		dev.DestroyProgram(p.plain)
		return nil, err
	}
	if p.instances, err = dev.CreateInstanceBuffer(ChunkSize); err != nil {
		dev.DestroyProgram(p.plain)
		dev.DestroyProgram(p.textured)
		return nil, fmt.Errorf("dali: create instance buffer: %w", err)
	}

	track(p)
	p.logger().Info("dali: pipeline created",
		"device", dev.Name(),
		"render_size", p.renderSize.String(),
		"warnings", len(p.warnings))
	return p, nil
}

func (p *Pipeline) program(label string, kind gpucore.ProgramKind, src string, c shader.Contract) (gpucore.ProgramID, error) {
	if err := p.check(label, src, c); err != nil {
		return gpucore.InvalidID, err
	}
	id, err := p.dev.CreateProgram(gpucore.ProgramDescriptor{Label: label, Kind: kind, Source: src})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("dali: compile %s: %w: %w", label, ErrShaderCompile, err)
	}
	return id, nil
}

// check validates src against c, collecting warnings.
func (p *Pipeline) check(label, src string, c shader.Contract) error {
	report, err := shader.Check(label, src, c)
	if err != nil {
		return fmt.Errorf("dali: %w", err)
	}
	for _, w := range report.Warnings {
		p.logger().Warn("dali: shader warning", "program", label, "message", w)
	}
	p.warnings = append(p.warnings, report.Warnings...)
	return nil
}

func (p *Pipeline) logger() *slog.Logger { return p.log.Load() }

// Device returns the device owned by the pipeline.
func (p *Pipeline) Device() gpucore.Device { return p.dev }

// RenderSize returns the internal render resolution.
func (p *Pipeline) RenderSize() Size { return p.renderSize }

// Warnings returns the non-fatal shader diagnostics collected so far.
func (p *Pipeline) Warnings() []string { return slices.Clone(p.warnings) }

// LastFrame returns statistics of the most recent successful render.
func (p *Pipeline) LastFrame() FrameStats { return p.last }

func (p *Pipeline) alive() error {
	if p == nil || p.destroyed {
		return ErrDestroyed
	}
	return nil
}

// Render draws the canvas declared by f at the render size and reads it
// back. The returned image is fully opaque.
func (p *Pipeline) Render(f func(*CanvasGate)) (*image.RGBA, error) {
	return p.RenderSized(Size{}, f)
}

// RenderSized is Render followed by a resize to output with the pipeline
// resampler. A zero output, or one equal to the render size, skips the
// resize.
func (p *Pipeline) RenderSized(output Size, f func(*CanvasGate)) (*image.RGBA, error) {
	if output.IsZero() {
		output = p.renderSize
	}
	pix, stats, err := p.frame(p.renderSize, f)
	if err != nil {
		return nil, err
	}
	img, err := toRGBA(pix, p.renderSize, true)
	if err != nil {
		return nil, err
	}
	if output != p.renderSize {
		img = resize(img, output, p.resampler)
		stats.Resized = true
	}
	p.finish(stats)
	return img, nil
}

// Destroy releases every texture, render target and program, then the
// device. Handles created by the pipeline become invalid. Destroy is
// idempotent.
func (p *Pipeline) Destroy() {
	if p == nil || p.destroyed {
		return
	}
	p.destroyed = true
	untrack(p)

	for id := range p.textures {
		p.dev.DestroyTexture(id)
	}
	for _, id := range p.targets {
		p.dev.DestroyTarget(id)
	}
	p.dev.DestroyProgram(p.plain)
	p.dev.DestroyProgram(p.textured)
	p.dev.DestroyBuffer(p.instances)
	p.logger().Info("dali: pipeline destroyed",
		"textures", len(p.textures),
		"targets", len(p.targets))
	clear(p.textures)
	clear(p.targets)
	p.dev.Destroy()
}

// target returns the cached render target of size, creating it on first
// use. Entries live until Destroy.
func (p *Pipeline) target(size Size) (gpucore.TargetID, error) {
	if id, ok := p.targets[size]; ok {
		return id, nil
	}
	id, err := p.dev.CreateTarget(size.Width, size.Height)
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("dali: create target %s: %w", size, err)
	}
	p.targets[size] = id
	p.logger().Debug("dali: target cache miss", "size", size.String(), "cached", len(p.targets))
	return id, nil
}

// Targets returns the number of cached render targets.
func (p *Pipeline) Targets() int { return len(p.targets) }

func (p *Pipeline) finish(stats FrameStats) {
	p.last = stats
	p.logger().Debug("dali: frame",
		"size", stats.Size.String(),
		"layers", stats.Layers,
		"batches", stats.Batches,
		"instances", stats.Instances,
		"draw_calls", stats.DrawCalls,
		"resized", stats.Resized)
}
