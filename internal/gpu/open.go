//go:build !nogpu

package gpu

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	// Platform HAL backends (Vulkan, Metal, DX12, GLES, software).
	_ "github.com/gogpu/wgpu/hal/allbackends"
)

// ErrNoAdapter is returned when a backend exposes no adapters.
var ErrNoAdapter = errors.New("gpu: no GPU adapters found")

// Options configures Open.
type Options struct {
	// Backend names the HAL backend: "vulkan", "metal", "dx12", "gl" or
	// "software". Empty or "auto" picks the best registered backend.
	Backend string

	// PowerPreference selects between discrete and integrated adapters.
	PowerPreference gputypes.PowerPreference

	// MaxMemoryMB is the texture and target budget.
	MaxMemoryMB int
}

// ParseBackend maps a backend name to its variant. auto reports whether
// the caller asked for automatic selection.
func ParseBackend(name string) (variant gputypes.Backend, auto bool, err error) {
	switch strings.ToLower(name) {
	case "", "auto":
		return gputypes.BackendEmpty, true, nil
	case "vulkan", "vk":
		return gputypes.BackendVulkan, false, nil
	case "metal", "mtl":
		return gputypes.BackendMetal, false, nil
	case "dx12", "d3d12":
		return gputypes.BackendDX12, false, nil
	case "gl", "gles", "opengl":
		return gputypes.BackendGL, false, nil
	case "software", "empty":
		return gputypes.BackendEmpty, false, nil
	default:
		return gputypes.BackendEmpty, false, fmt.Errorf("gpu: unknown backend %q", name)
	}
}

// Open creates a device on the backend named by opts.
func Open(opts Options) (*Device, error) {
	variant, auto, err := ParseBackend(opts.Backend)
	if err != nil {
		return nil, err
	}
	var backend hal.Backend
	if auto {
		backend, err = hal.SelectBestBackend()
		if err != nil {
			return nil, fmt.Errorf("gpu: select backend: %w", err)
		}
	} else {
		var ok bool
		backend, ok = hal.GetBackend(variant)
		if !ok {
			return nil, fmt.Errorf("gpu: %s backend not available", variant)
		}
	}
	return OpenBackend(backend, opts)
}

// OpenBackend creates an instance of backend, picks an adapter and opens
// a device on it.
func OpenBackend(backend hal.Backend, opts Options) (*Device, error) {
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, fmt.Errorf("gpu: create instance: %w", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	selected := selectAdapter(adapters, opts.PowerPreference)
	if selected == nil {
		instance.Destroy()
		return nil, ErrNoAdapter
	}

	limits := selected.Capabilities.Limits
	if limits.MaxTextureDimension2D == 0 {
		limits = gputypes.DefaultLimits()
	}
	openDev, err := selected.Adapter.Open(gputypes.Features(0), limits)
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("gpu: open device: %w", err)
	}

	d, err := NewDevice(openDev.Device, openDev.Queue, Config{
		Name:        fmt.Sprintf("%s (%s)", selected.Info.Name, backend.Variant()),
		Limits:      limits,
		MaxMemoryMB: opts.MaxMemoryMB,
	})
	if err != nil {
		openDev.Device.Destroy()
		instance.Destroy()
		return nil, err
	}
	d.instance = instance
	return d, nil
}

// selectAdapter prefers the adapter type matching pref, then any hardware
// GPU, then the first adapter.
func selectAdapter(adapters []hal.ExposedAdapter, pref gputypes.PowerPreference) *hal.ExposedAdapter {
	if len(adapters) == 0 {
		return nil
	}
	want := gputypes.DeviceTypeDiscreteGPU
	if pref == gputypes.PowerPreferenceLowPower {
		want = gputypes.DeviceTypeIntegratedGPU
	}
	for i := range adapters {
		if adapters[i].Info.DeviceType == want {
			return &adapters[i]
		}
	}
	for i := range adapters {
		if t := adapters[i].Info.DeviceType; t == gputypes.DeviceTypeDiscreteGPU || t == gputypes.DeviceTypeIntegratedGPU {
			return &adapters[i]
		}
	}
	return &adapters[0]
}

// FromProvider wraps the HAL device of an external provider, such as a
// gogpu window. The provider keeps ownership of the device. Providers that
// also implement gpucontext.DeviceProvider name the adapter.
func FromProvider(provider any, maxMemoryMB int) (*Device, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, fmt.Errorf("gpu: provider does not expose HAL types")
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("gpu: provider HalDevice is not hal.Device")
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("gpu: provider HalQueue is not hal.Queue")
	}
	name := "provider"
	if dp, ok := provider.(gpucontext.DeviceProvider); ok {
		if info := dp.AdapterInfo(); info.Name != "" {
			name = fmt.Sprintf("%s (%s)", info.Name, info.Type)
		}
	}
	return NewDevice(device, queue, Config{Name: name, MaxMemoryMB: maxMemoryMB, External: true})
}
