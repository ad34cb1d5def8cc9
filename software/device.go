// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package software implements gpucore.Device on the CPU.
//
// The device executes the stipple shading model of the embedded WGSL
// programs in Go: the same quad transform, mask and texture sampling with
// trilinear filtering, mirrored-repeat colormap lookup, gamma exposure and
// premultiplied (One, OneMinusSrcAlpha) blending into a float32 RGBA
// target. It needs no GPU, so it backs headless rendering and the pixel
// tests of the pipeline.
//
// Procedural programs cannot run WGSL here; they must carry a host
// [gpucore.ShadeFunc].
//
// A draw splits the target rows into bands shaded on a worker pool (see
// [Device.SetWorkers]). Every pixel belongs to one band, so the output is
// the same for any number of workers.
//
// Example:
//
//	dev := software.New()
//	p, err := dali.New(dev, dali.WithRenderSize(1024, 768))
package software

import (
	"fmt"
	"log/slog"
	"runtime"
	"sync/atomic"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/dali/gpucore"
	"github.com/gogpu/dali/internal/image"
	"github.com/gogpu/dali/internal/parallel"
)

// minBandRows is the smallest row band shaded by one worker.
const minBandRows = 16

// DrawCall records one Draw issued against the device.
type DrawCall struct {
	Kind          gpucore.ProgramKind
	VertexCount   int
	InstanceCount int
}

type target struct {
	width, height int
	pixels        []float32
}

type program struct {
	desc gpucore.ProgramDescriptor
}

type instanceBuffer struct {
	records []gpucore.Instance
	used    int
}

// Device is a CPU implementation of gpucore.Device.
type Device struct {
	limits gpucore.Limits
	log    atomic.Pointer[slog.Logger]

	nextID   uint64
	textures map[gpucore.TextureID]*texture
	targets  map[gpucore.TargetID]*target
	programs map[gpucore.ProgramID]*program
	buffers  map[gpucore.BufferID]*instanceBuffer

	calls []DrawCall

	workers int
	pool    *parallel.Pool
}

var _ gpucore.Device = (*Device)(nil)

// New creates a software device with the default WebGPU limits.
func New() *Device {
	return NewWithLimits(gpucore.Limits{
		MaxTextureDimension: int(gputypes.DefaultLimits().MaxTextureDimension2D),
	})
}

// NewWithLimits creates a software device with explicit limits.
func NewWithLimits(limits gpucore.Limits) *Device {
	d := &Device{
		limits:   limits,
		workers:  runtime.GOMAXPROCS(0),
		textures: make(map[gpucore.TextureID]*texture),
		targets:  make(map[gpucore.TargetID]*target),
		programs: make(map[gpucore.ProgramID]*program),
		buffers:  make(map[gpucore.BufferID]*instanceBuffer),
	}
	d.log.Store(slog.New(slog.DiscardHandler))
	return d
}

// SetLogger sets the logger used for resource diagnostics.
func (d *Device) SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(slog.DiscardHandler)
	}
	d.log.Store(l)
}

// SetWorkers sets the number of goroutines that shade the row bands of a
// draw. n <= 1 shades on the calling goroutine. Output does not depend on
// the worker count.
func (d *Device) SetWorkers(n int) {
	d.workers = max(n, 1)
	if d.pool != nil && d.pool.Workers() != d.workers {
		d.pool.Close()
		d.pool = nil
	}
}

// bands splits the rows of t and runs shade on each band, in parallel when
// the device has more than one worker.
func (d *Device) bands(t *target, shade func(b parallel.Band)) {
	bands := parallel.Bands(t.height, d.workers, minBandRows)
	if len(bands) == 0 {
		return
	}
	if len(bands) == 1 {
		shade(bands[0])
		return
	}
	if d.pool == nil {
		d.pool = parallel.NewPool(d.workers)
	}
	jobs := make([]func(), len(bands))
	for i, b := range bands {
		jobs[i] = func() { shade(b) }
	}
	d.pool.Run(jobs)
}

// Name implements gpucore.Device.
func (d *Device) Name() string { return "software" }

// Limits implements gpucore.Device.
func (d *Device) Limits() gpucore.Limits { return d.limits }

func (d *Device) id() uint64 {
	d.nextID++
	return d.nextID
}

func (d *Device) checkSize(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("software: invalid size %dx%d", width, height)
	}
	if width > d.limits.MaxTextureDimension || height > d.limits.MaxTextureDimension {
		return fmt.Errorf("software: size %dx%d exceeds limit %d", width, height, d.limits.MaxTextureDimension)
	}
	return nil
}

// CreateTexture implements gpucore.Device.
func (d *Device) CreateTexture(desc gpucore.TextureDescriptor, pixels []byte) (gpucore.TextureID, error) {
	if err := d.checkSize(desc.Width, desc.Height); err != nil {
		return gpucore.InvalidID, err
	}
	bpt := desc.Format.BytesPerTexel()
	if bpt == 0 {
		return gpucore.InvalidID, fmt.Errorf("software: unsupported format %v", desc.Format)
	}
	if need := desc.Width * desc.Height * bpt; len(pixels) < need {
		return gpucore.InvalidID, fmt.Errorf("software: pixel buffer has %d bytes, need %d", len(pixels), need)
	}

	base := image.Decode(desc.Format, desc.Width, desc.Height, pixels)
	tex := &texture{
		channels: base.Channels,
		levels:   image.GenerateMipmaps(base, desc.MipLevels),
		sampler:  desc.Sampler,
	}
	levels := len(tex.levels)

	id := gpucore.TextureID(d.id())
	d.textures[id] = tex
	d.log.Load().Debug("software: texture created",
		"label", desc.Label, "size", fmt.Sprintf("%dx%d", desc.Width, desc.Height),
		"format", desc.Format.String(), "mips", levels)
	return id, nil
}

// DestroyTexture implements gpucore.Device.
func (d *Device) DestroyTexture(id gpucore.TextureID) { delete(d.textures, id) }

// CreateTarget implements gpucore.Device.
func (d *Device) CreateTarget(width, height int) (gpucore.TargetID, error) {
	if err := d.checkSize(width, height); err != nil {
		return gpucore.InvalidID, err
	}
	id := gpucore.TargetID(d.id())
	d.targets[id] = &target{width: width, height: height, pixels: make([]float32, width*height*4)}
	return id, nil
}

// DestroyTarget implements gpucore.Device.
func (d *Device) DestroyTarget(id gpucore.TargetID) { delete(d.targets, id) }

// CreateProgram implements gpucore.Device.
func (d *Device) CreateProgram(desc gpucore.ProgramDescriptor) (gpucore.ProgramID, error) {
	switch desc.Kind {
	case gpucore.ProgramStipple, gpucore.ProgramStippleTextured:
	case gpucore.ProgramProcedural:
		if desc.Shade == nil {
			return gpucore.InvalidID, fmt.Errorf("software: program %q has no host shade: %w",
				desc.Label, gpucore.ErrUnsupportedProgram)
		}
	default:
		return gpucore.InvalidID, fmt.Errorf("software: program kind %v: %w", desc.Kind, gpucore.ErrUnsupportedProgram)
	}
	id := gpucore.ProgramID(d.id())
	d.programs[id] = &program{desc: desc}
	return id, nil
}

// DestroyProgram implements gpucore.Device.
func (d *Device) DestroyProgram(id gpucore.ProgramID) { delete(d.programs, id) }

// CreateInstanceBuffer implements gpucore.Device.
func (d *Device) CreateInstanceBuffer(capacity int) (gpucore.BufferID, error) {
	if capacity <= 0 {
		return gpucore.InvalidID, fmt.Errorf("software: invalid instance capacity %d", capacity)
	}
	id := gpucore.BufferID(d.id())
	d.buffers[id] = &instanceBuffer{records: make([]gpucore.Instance, capacity)}
	return id, nil
}

// DestroyBuffer implements gpucore.Device.
func (d *Device) DestroyBuffer(id gpucore.BufferID) { delete(d.buffers, id) }

// BeginPass implements gpucore.Device.
func (d *Device) BeginPass(id gpucore.TargetID, clear [4]float32) (gpucore.Pass, error) {
	t, ok := d.targets[id]
	if !ok {
		return nil, fmt.Errorf("software: begin pass on target %d: %w", id, gpucore.ErrUnknownResource)
	}
	for i := 0; i < len(t.pixels); i += 4 {
		copy(t.pixels[i:i+4], clear[:])
	}
	return &pass{dev: d, target: t}, nil
}

// ReadPixels implements gpucore.Device.
func (d *Device) ReadPixels(id gpucore.TargetID) ([]float32, error) {
	t, ok := d.targets[id]
	if !ok {
		return nil, fmt.Errorf("software: read target %d: %w", id, gpucore.ErrUnknownResource)
	}
	out := make([]float32, len(t.pixels))
	copy(out, t.pixels)
	return out, nil
}

// Destroy implements gpucore.Device.
func (d *Device) Destroy() {
	if d.pool != nil {
		d.pool.Close()
		d.pool = nil
	}
	clear(d.textures)
	clear(d.targets)
	clear(d.programs)
	clear(d.buffers)
}

// Calls returns the draws issued since the last ResetCalls.
func (d *Device) Calls() []DrawCall {
	out := make([]DrawCall, len(d.calls))
	copy(out, d.calls)
	return out
}

// ResetCalls clears the draw log.
func (d *Device) ResetCalls() { d.calls = d.calls[:0] }

// Resources returns the number of live textures, targets, programs and buffers.
func (d *Device) Resources() int {
	return len(d.textures) + len(d.targets) + len(d.programs) + len(d.buffers)
}
