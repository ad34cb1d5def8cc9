//go:build !nogpu

package gpu

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/dali/gpucore"
)

// Device errors.
var (
	// ErrDeviceDestroyed is returned when a destroyed device is used.
	ErrDeviceDestroyed = errors.New("gpu: device destroyed")

	// ErrPassActive is returned when a pass is begun while another is open.
	ErrPassActive = errors.New("gpu: a pass is already active")
)

// TargetFormat is the color format of offscreen render targets.
const TargetFormat = gputypes.TextureFormatRGBA16Float

// Uniform buffer layout: aspect_ratio at offset 0, discard_threshold at
// uniformStride, each bound with uniformSize bytes.
const (
	uniformStride = 256
	uniformSize   = 16
)

// Device implements gpucore.Device on a wgpu HAL device and queue.
// Like every gpucore.Device it is driven from a single goroutine.
type Device struct {
	device   hal.Device
	queue    hal.Queue
	instance hal.Instance
	external bool

	name   string
	limits gpucore.Limits
	mem    *memoryManager

	nextID   uint64
	textures map[gpucore.TextureID]*texture
	targets  map[gpucore.TargetID]*target
	programs map[gpucore.ProgramID]*program
	buffers  map[gpucore.BufferID]*instanceBuffer

	layouts  map[gpucore.ProgramKind]hal.BindGroupLayout
	samplers map[gpucore.SamplerDescriptor]hal.Sampler
	uniforms hal.Buffer

	active    *pass
	destroyed bool
}

var _ gpucore.Device = (*Device)(nil)

// Config describes how to wrap a HAL device.
type Config struct {
	// Name identifies the adapter in logs.
	Name string

	// Limits are the adapter limits. Zero means gputypes.DefaultLimits.
	Limits gputypes.Limits

	// MaxMemoryMB is the texture and target budget. Zero means
	// DefaultMaxMemoryMB.
	MaxMemoryMB int

	// External marks a device owned by someone else. Destroy then releases
	// the resources created here but leaves the HAL device alive.
	External bool
}

// NewDevice wraps an open HAL device and queue.
func NewDevice(device hal.Device, queue hal.Queue, cfg Config) (*Device, error) {
	if device == nil || queue == nil {
		return nil, fmt.Errorf("gpu: nil HAL device or queue")
	}
	limits := cfg.Limits
	if limits.MaxTextureDimension2D == 0 {
		limits = gputypes.DefaultLimits()
	}
	name := cfg.Name
	if name == "" {
		name = "wgpu"
	}

	d := &Device{
		device:   device,
		queue:    queue,
		external: cfg.External,
		name:     name,
		limits:   gpucore.Limits{MaxTextureDimension: int(limits.MaxTextureDimension2D)},
		mem:      newMemoryManager(cfg.MaxMemoryMB),
		textures: make(map[gpucore.TextureID]*texture),
		targets:  make(map[gpucore.TargetID]*target),
		programs: make(map[gpucore.ProgramID]*program),
		buffers:  make(map[gpucore.BufferID]*instanceBuffer),
		layouts:  make(map[gpucore.ProgramKind]hal.BindGroupLayout),
		samplers: make(map[gpucore.SamplerDescriptor]hal.Sampler),
	}

	uniforms, err := device.CreateBuffer(&hal.BufferDescriptor{
		Label: "dali_uniforms",
		Size:  uniformStride + uniformSize,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("gpu: create uniform buffer: %w", err)
	}
	d.uniforms = uniforms

	for _, kind := range []gpucore.ProgramKind{gpucore.ProgramStipple, gpucore.ProgramStippleTextured} {
		layout, err := device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
			Label:   "dali_" + kind.String(),
			Entries: layoutEntries(kind),
		})
		if err != nil {
			d.releaseShared()
			return nil, fmt.Errorf("gpu: create %s bind group layout: %w", kind, err)
		}
		d.layouts[kind] = layout
	}

	slogger().Info("gpu: device ready", "name", name, "max_texture", d.limits.MaxTextureDimension)
	return d, nil
}

// SetLogger routes device diagnostics to l.
func (d *Device) SetLogger(l *slog.Logger) { SetLogger(l) }

// Name implements gpucore.Device.
func (d *Device) Name() string { return d.name }

// Limits implements gpucore.Device.
func (d *Device) Limits() gpucore.Limits { return d.limits }

// MemoryStats reports texture and target memory usage.
func (d *Device) MemoryStats() MemoryStats { return d.mem.stats() }

// HalDevice returns the underlying HAL device.
func (d *Device) HalDevice() hal.Device { return d.device }

// HalQueue returns the underlying HAL queue.
func (d *Device) HalQueue() hal.Queue { return d.queue }

func (d *Device) id() uint64 {
	d.nextID++
	return d.nextID
}

func (d *Device) checkSize(width, height int) error {
	if d.destroyed {
		return ErrDeviceDestroyed
	}
	if width <= 0 || height <= 0 {
		return fmt.Errorf("gpu: invalid size %dx%d", width, height)
	}
	if width > d.limits.MaxTextureDimension || height > d.limits.MaxTextureDimension {
		return fmt.Errorf("gpu: size %dx%d exceeds limit %d", width, height, d.limits.MaxTextureDimension)
	}
	return nil
}

// layoutEntries returns the bind group layout of a stipple program kind.
func layoutEntries(kind gpucore.ProgramKind) []gputypes.BindGroupLayoutEntry {
	uniform := func(binding uint32) gputypes.BindGroupLayoutEntry {
		return gputypes.BindGroupLayoutEntry{
			Binding:    binding,
			Visibility: gputypes.ShaderStagesVertexFragment,
			Buffer: &gputypes.BufferBindingLayout{
				Type:           gputypes.BufferBindingTypeUniform,
				MinBindingSize: 4,
			},
		}
	}
	tex := func(binding uint32) gputypes.BindGroupLayoutEntry {
		return gputypes.BindGroupLayoutEntry{
			Binding:    binding,
			Visibility: gputypes.ShaderStageFragment,
			Texture: &gputypes.TextureBindingLayout{
				SampleType:    gputypes.TextureSampleTypeFloat,
				ViewDimension: gputypes.TextureViewDimension2D,
			},
		}
	}
	smp := func(binding uint32) gputypes.BindGroupLayoutEntry {
		return gputypes.BindGroupLayoutEntry{
			Binding:    binding,
			Visibility: gputypes.ShaderStageFragment,
			Sampler:    &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering},
		}
	}

	entries := []gputypes.BindGroupLayoutEntry{
		uniform(0), uniform(1),
		tex(2), smp(3),
		tex(4), smp(5),
	}
	if kind == gpucore.ProgramStippleTextured {
		entries = append(entries, tex(6), smp(7))
	}
	return entries
}

// sampler returns the shared sampler for desc, creating it on first use.
func (d *Device) sampler(desc gpucore.SamplerDescriptor) (hal.Sampler, error) {
	if s, ok := d.samplers[desc]; ok {
		return s, nil
	}
	address := gputypes.AddressModeClampToEdge
	if desc.AddressMode == gpucore.AddressMirrorRepeat {
		address = gputypes.AddressModeMirrorRepeat
	}
	s, err := d.device.CreateSampler(&hal.SamplerDescriptor{
		Label:        "dali_sampler",
		AddressModeU: address,
		AddressModeV: address,
		AddressModeW: address,
		MagFilter:    filterMode(desc.MagFilter),
		MinFilter:    filterMode(desc.MinFilter),
		MipmapFilter: filterMode(desc.MipmapFilter),
		LodMaxClamp:  32,
		Anisotropy:   1,
	})
	if err != nil {
		return nil, fmt.Errorf("gpu: create sampler: %w", err)
	}
	d.samplers[desc] = s
	return s, nil
}

func filterMode(f gpucore.FilterMode) gputypes.FilterMode {
	if f == gpucore.FilterLinear {
		return gputypes.FilterModeLinear
	}
	return gputypes.FilterModeNearest
}

// submit ends encoding, submits the command buffer and waits for the GPU.
func (d *Device) submit(encoder hal.CommandEncoder) error {
	cmd, err := encoder.EndEncoding()
	if err != nil {
		encoder.Destroy()
		return fmt.Errorf("gpu: end encoding: %w", err)
	}
	defer func() {
		d.device.FreeCommandBuffer(cmd)
		encoder.Destroy()
	}()

	if _, err := d.queue.Submit([]hal.CommandBuffer{cmd}); err != nil {
		return fmt.Errorf("gpu: submit: %w", err)
	}
	if err := d.device.WaitIdle(); err != nil {
		return fmt.Errorf("gpu: wait for GPU: %w", err)
	}
	return nil
}

func (d *Device) newEncoder(label string) (hal.CommandEncoder, error) {
	encoder, err := d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: label})
	if err != nil {
		return nil, fmt.Errorf("gpu: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding(label); err != nil {
		encoder.Destroy()
		return nil, fmt.Errorf("gpu: begin encoding: %w", err)
	}
	return encoder, nil
}

func (d *Device) releaseShared() {
	for _, s := range d.samplers {
		d.device.DestroySampler(s)
	}
	clear(d.samplers)
	for _, l := range d.layouts {
		d.device.DestroyBindGroupLayout(l)
	}
	clear(d.layouts)
	if d.uniforms != nil {
		d.device.DestroyBuffer(d.uniforms)
		d.uniforms = nil
	}
}

// Destroy implements gpucore.Device. It is safe to call more than once.
func (d *Device) Destroy() {
	if d.destroyed {
		return
	}
	if d.active != nil {
		d.active.abort()
	}
	for id := range d.textures {
		d.DestroyTexture(id)
	}
	for id := range d.targets {
		d.DestroyTarget(id)
	}
	for id := range d.programs {
		d.DestroyProgram(id)
	}
	for id := range d.buffers {
		d.DestroyBuffer(id)
	}
	d.releaseShared()
	d.destroyed = true

	if !d.external {
		d.device.Destroy()
		if d.instance != nil {
			d.instance.Destroy()
		}
	}
	slogger().Debug("gpu: device destroyed", "name", d.name, "peak", d.mem.stats().String())
}
