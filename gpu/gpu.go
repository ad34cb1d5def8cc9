//go:build !nogpu

// Package gpu opens a hardware device for the dali pipeline.
//
// The device runs the stipple and procedural programs through wgpu/hal on
// Vulkan, Metal, DX12 or GLES, whichever the platform provides. Targets are
// RGBA16Float and textures get CPU-generated mip chains.
//
// Usage:
//
//	dev, err := gpu.Open(gpu.Options{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	p, err := dali.New(dev)
//
// To share a device with a gogpu window, use FromProvider.
package gpu

import (
	"log/slog"

	"github.com/gogpu/gputypes"

	gpuimpl "github.com/gogpu/dali/internal/gpu"
)

// Device is a hardware gpucore.Device.
type Device = gpuimpl.Device

// MemoryStats reports texture and target memory usage.
type MemoryStats = gpuimpl.MemoryStats

// ErrMemoryBudgetExceeded is returned when a texture or target would exceed
// the memory budget.
var ErrMemoryBudgetExceeded = gpuimpl.ErrMemoryBudgetExceeded

// ErrNoAdapter is returned when the selected backend exposes no adapters.
var ErrNoAdapter = gpuimpl.ErrNoAdapter

// Options configures Open.
type Options struct {
	// Backend is "auto" (default), "vulkan", "metal", "dx12", "gl" or
	// "software".
	Backend string

	// LowPower prefers an integrated adapter over a discrete one.
	LowPower bool

	// MaxMemoryMB bounds texture and target memory. Zero means 1 GiB.
	MaxMemoryMB int

	// Logger receives device diagnostics. Nil keeps the current logger.
	Logger *slog.Logger
}

// Open creates a hardware device.
func Open(opts Options) (*Device, error) {
	if opts.Logger != nil {
		gpuimpl.SetLogger(opts.Logger)
	}
	pref := gputypes.PowerPreferenceHighPerformance
	if opts.LowPower {
		pref = gputypes.PowerPreferenceLowPower
	}
	return gpuimpl.Open(gpuimpl.Options{
		Backend:         opts.Backend,
		PowerPreference: pref,
		MaxMemoryMB:     opts.MaxMemoryMB,
	})
}

// FromProvider wraps the device of an external provider such as a gogpu
// window. The provider must expose HalDevice and HalQueue; it keeps
// ownership of the device.
func FromProvider(provider any, maxMemoryMB int) (*Device, error) {
	return gpuimpl.FromProvider(provider, maxMemoryMB)
}

// Backends lists the backend names accepted by Options.Backend.
func Backends() []string {
	return []string{"auto", "vulkan", "metal", "dx12", "gl", "software"}
}

// SetLogger routes device diagnostics to l.
func SetLogger(l *slog.Logger) { gpuimpl.SetLogger(l) }
