//go:build !nogpu

package gpu

import (
	"fmt"
	"unsafe"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/dali/gpucore"
	"github.com/gogpu/dali/internal/image"
)

// copyPitchAlignment is the WebGPU row alignment of texture to buffer copies.
const copyPitchAlignment = 256

// targetBytesPerTexel is the size of one RGBA16Float texel.
const targetBytesPerTexel = 8

// alignedRowBytes returns the padded row pitch of a target row.
func alignedRowBytes(width int) uint32 {
	//nolint:gosec // G115: width validated against device limits
	row := uint32(width * targetBytesPerTexel)
	return (row + copyPitchAlignment - 1) &^ (copyPitchAlignment - 1)
}

// ReadPixels implements gpucore.Device. The target is copied into a
// staging buffer, the queue is drained and the half floats are widened to
// float32 with row padding removed.
func (d *Device) ReadPixels(id gpucore.TargetID) ([]float32, error) {
	if d.destroyed {
		return nil, ErrDeviceDestroyed
	}
	t, ok := d.targets[id]
	if !ok {
		return nil, fmt.Errorf("gpu: read target %d: %w", id, gpucore.ErrUnknownResource)
	}

	pitch := alignedRowBytes(t.width)
	//nolint:gosec // G115: dimensions validated against device limits
	w, h := uint32(t.width), uint32(t.height)
	size := uint64(pitch) * uint64(h)

	staging, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "dali_readback",
		Size:  size,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("gpu: create staging buffer: %w", err)
	}
	defer d.device.DestroyBuffer(staging)

	encoder, err := d.newEncoder("dali_readback")
	if err != nil {
		return nil, err
	}
	// The target leaves the pass as a color attachment; copies need it as a
	// transfer source. No-op on backends without layout tracking.
	encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: t.tex,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageRenderAttachment,
			NewUsage: gputypes.TextureUsageCopySrc,
		},
	}})
	encoder.CopyTextureToBuffer(t.tex, staging, []hal.BufferTextureCopy{{
		BufferLayout: hal.ImageDataLayout{Offset: 0, BytesPerRow: pitch, RowsPerImage: h},
		TextureBase:  hal.ImageCopyTexture{Texture: t.tex, MipLevel: 0, Aspect: gputypes.TextureAspectAll},
		Size:         hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
	}})
	encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: t.tex,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageCopySrc,
			NewUsage: gputypes.TextureUsageRenderAttachment,
		},
	}})
	if err := d.submit(encoder); err != nil {
		return nil, err
	}

	mapping, err := d.device.MapBuffer(staging, 0, size)
	if err != nil {
		return nil, fmt.Errorf("gpu: map staging buffer: %w", err)
	}
	raw := unsafe.Slice((*byte)(mapping.Ptr), size)
	out := unpackRows(raw, t.width, t.height, int(pitch))
	if err := d.device.UnmapBuffer(staging); err != nil {
		return nil, fmt.Errorf("gpu: unmap staging buffer: %w", err)
	}
	return out, nil
}

// unpackRows strips row padding from half-float pixel rows and widens
// them to float32.
func unpackRows(raw []byte, width, height, pitch int) []float32 {
	row := width * targetBytesPerTexel
	out := make([]float32, 0, width*height*4)
	for y := 0; y < height; y++ {
		start := y * pitch
		out = append(out, image.DecodeFloat16(raw[start:start+row])...)
	}
	return out
}
