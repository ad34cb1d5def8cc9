//go:build !nogpu

// Package gpu implements gpucore.Device on a wgpu HAL device.
//
// It compiles the stipple and procedural WGSL programs into render
// pipelines, uploads masks, textures and colormaps with CPU-generated mip
// chains and renders into RGBA16Float offscreen targets with premultiplied
// (One, OneMinusSrcAlpha) blending. Instance records live in a vertex
// buffer stepped per instance.
//
// # Formats
//
// Masks and textures are R8Unorm. Colormaps arrive as RGBA32F and are
// stored as RGBA16Float, which every adapter can filter. Render targets are
// RGBA16Float and are read back as float32.
//
// # Synchronization
//
// Queue writes are not ordered against commands still being recorded, so a
// pass submits and waits for its recorded draws before an instance buffer
// or the uniforms are overwritten, then resumes with LoadOpLoad. Each
// Pass.End submits and waits.
//
// # Memory
//
// Textures and targets are accounted against a budget (DefaultMaxMemoryMB
// unless configured). Allocations beyond it fail with
// ErrMemoryBudgetExceeded.
package gpu
