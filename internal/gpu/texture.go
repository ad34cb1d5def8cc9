//go:build !nogpu

package gpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/dali/gpucore"
	"github.com/gogpu/dali/internal/image"
)

// texture is a sampled texture with its view and shared sampler.
type texture struct {
	tex     hal.Texture
	view    hal.TextureView
	sampler hal.Sampler
	format  gputypes.TextureFormat
	levels  int
}

// target is an offscreen color target.
type target struct {
	tex           hal.Texture
	view          hal.TextureView
	width, height int
}

// halFormat maps an upload format to the stored texture format and its
// bytes per texel.
func halFormat(f gpucore.TextureFormat) (gputypes.TextureFormat, int, error) {
	switch f {
	case gpucore.FormatR8:
		return gputypes.TextureFormatR8Unorm, 1, nil
	case gpucore.FormatRGBA8:
		return gputypes.TextureFormatRGBA8Unorm, 4, nil
	case gpucore.FormatRGBA32F:
		return gputypes.TextureFormatRGBA16Float, 8, nil
	default:
		return gputypes.TextureFormatUndefined, 0, fmt.Errorf("gpu: unsupported format %v", f)
	}
}

// encodeLevel packs a mip level in the stored format.
func encodeLevel(f gputypes.TextureFormat, lv *image.Level) []byte {
	if f == gputypes.TextureFormatRGBA16Float {
		return lv.Float16()
	}
	return lv.Unorm8()
}

// CreateTexture implements gpucore.Device. Mip levels are generated on
// the CPU and uploaded one by one.
func (d *Device) CreateTexture(desc gpucore.TextureDescriptor, pixels []byte) (gpucore.TextureID, error) {
	if err := d.checkSize(desc.Width, desc.Height); err != nil {
		return gpucore.InvalidID, err
	}
	format, bpt, err := halFormat(desc.Format)
	if err != nil {
		return gpucore.InvalidID, err
	}
	if need := desc.Width * desc.Height * desc.Format.BytesPerTexel(); len(pixels) < need {
		return gpucore.InvalidID, fmt.Errorf("gpu: pixel buffer has %d bytes, need %d", len(pixels), need)
	}

	levels := image.GenerateMipmaps(image.Decode(desc.Format, desc.Width, desc.Height, pixels), desc.MipLevels)
	id := d.id()
	if err := d.mem.reserve(id, textureBytes(desc.Width, desc.Height, len(levels), bpt)); err != nil {
		return gpucore.InvalidID, err
	}

	t, err := d.createTexture(desc, format, levels)
	if err != nil {
		d.mem.release(id)
		return gpucore.InvalidID, err
	}
	d.textures[gpucore.TextureID(id)] = t
	slogger().Debug("gpu: texture created",
		"label", desc.Label, "size", fmt.Sprintf("%dx%d", desc.Width, desc.Height),
		"format", format.String(), "mips", len(levels))
	return gpucore.TextureID(id), nil
}

func (d *Device) createTexture(desc gpucore.TextureDescriptor, format gputypes.TextureFormat, levels []image.Level) (*texture, error) {
	sampler, err := d.sampler(desc.Sampler)
	if err != nil {
		return nil, err
	}
	//nolint:gosec // G115: dimensions validated by checkSize
	tex, err := d.device.CreateTexture(&hal.TextureDescriptor{
		Label:         desc.Label,
		Size:          hal.Extent3D{Width: uint32(desc.Width), Height: uint32(desc.Height), DepthOrArrayLayers: 1},
		MipLevelCount: uint32(len(levels)),
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        format,
		Usage:         gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("gpu: create texture: %w", err)
	}

	for i := range levels {
		lv := &levels[i]
		data := encodeLevel(format, lv)
		//nolint:gosec // G115: mip dimensions derive from validated sizes
		err := d.queue.WriteTexture(
			&hal.ImageCopyTexture{Texture: tex, MipLevel: uint32(i), Aspect: gputypes.TextureAspectAll},
			data,
			&hal.ImageDataLayout{BytesPerRow: uint32(len(data) / lv.Height), RowsPerImage: uint32(lv.Height)},
			&hal.Extent3D{Width: uint32(lv.Width), Height: uint32(lv.Height), DepthOrArrayLayers: 1},
		)
		if err != nil {
			d.device.DestroyTexture(tex)
			return nil, fmt.Errorf("gpu: upload mip %d: %w", i, err)
		}
	}

	view, err := d.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:     desc.Label,
		Format:    format,
		Dimension: gputypes.TextureViewDimension2D,
		Aspect:    gputypes.TextureAspectAll,
	})
	if err != nil {
		d.device.DestroyTexture(tex)
		return nil, fmt.Errorf("gpu: create texture view: %w", err)
	}
	return &texture{tex: tex, view: view, sampler: sampler, format: format, levels: len(levels)}, nil
}

// DestroyTexture implements gpucore.Device.
func (d *Device) DestroyTexture(id gpucore.TextureID) {
	t, ok := d.textures[id]
	if !ok {
		return
	}
	delete(d.textures, id)
	d.mem.release(uint64(id))
	d.device.DestroyTextureView(t.view)
	d.device.DestroyTexture(t.tex)
}

// CreateTarget implements gpucore.Device.
func (d *Device) CreateTarget(width, height int) (gpucore.TargetID, error) {
	if err := d.checkSize(width, height); err != nil {
		return gpucore.InvalidID, err
	}
	id := d.id()
	if err := d.mem.reserve(id, textureBytes(width, height, 1, 8)); err != nil {
		return gpucore.InvalidID, err
	}

	//nolint:gosec // G115: dimensions validated by checkSize
	tex, err := d.device.CreateTexture(&hal.TextureDescriptor{
		Label:         "dali_target",
		Size:          hal.Extent3D{Width: uint32(width), Height: uint32(height), DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        TargetFormat,
		Usage:         gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageCopySrc,
	})
	if err != nil {
		d.mem.release(id)
		return gpucore.InvalidID, fmt.Errorf("gpu: create target: %w", err)
	}
	view, err := d.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:     "dali_target",
		Format:    TargetFormat,
		Dimension: gputypes.TextureViewDimension2D,
		Aspect:    gputypes.TextureAspectAll,
	})
	if err != nil {
		d.device.DestroyTexture(tex)
		d.mem.release(id)
		return gpucore.InvalidID, fmt.Errorf("gpu: create target view: %w", err)
	}

	d.targets[gpucore.TargetID(id)] = &target{tex: tex, view: view, width: width, height: height}
	slogger().Debug("gpu: target created", "size", fmt.Sprintf("%dx%d", width, height), "memory", d.mem.stats().String())
	return gpucore.TargetID(id), nil
}

// DestroyTarget implements gpucore.Device.
func (d *Device) DestroyTarget(id gpucore.TargetID) {
	t, ok := d.targets[id]
	if !ok {
		return
	}
	delete(d.targets, id)
	d.mem.release(uint64(id))
	d.device.DestroyTextureView(t.view)
	d.device.DestroyTexture(t.tex)
}
