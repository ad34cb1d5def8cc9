package gpucore

import (
	"encoding/binary"
	"math"
)

// Resource IDs
//
// These opaque IDs represent device resources. Each implementation keeps a
// mapping between IDs and its own backend objects.

// TextureID is an opaque handle to a sampled texture.
type TextureID uint64

// TargetID is an opaque handle to an offscreen render target.
type TargetID uint64

// ProgramID is an opaque handle to a compiled render program.
type ProgramID uint64

// BufferID is an opaque handle to an instance buffer.
type BufferID uint64

// InvalidID is the zero value, representing an invalid/null resource.
const InvalidID = 0

// TextureFormat specifies the texel layout of uploaded pixel data.
type TextureFormat uint8

// Texture formats.
const (
	// FormatR8 is one 8-bit normalized channel. Used for masks and textures.
	FormatR8 TextureFormat = iota + 1

	// FormatRGBA8 is four 8-bit normalized channels.
	FormatRGBA8

	// FormatRGBA32F is four 32-bit float channels. Used for colormaps.
	FormatRGBA32F
)

// String returns a short name of the format.
func (f TextureFormat) String() string {
	switch f {
	case FormatR8:
		return "r8"
	case FormatRGBA8:
		return "rgba8"
	case FormatRGBA32F:
		return "rgba32f"
	default:
		return "unknown"
	}
}

// Channels returns the number of channels per texel.
func (f TextureFormat) Channels() int {
	if f == FormatR8 {
		return 1
	}
	return 4
}

// BytesPerTexel returns the size of one texel in the upload buffer.
func (f TextureFormat) BytesPerTexel() int {
	switch f {
	case FormatR8:
		return 1
	case FormatRGBA8:
		return 4
	case FormatRGBA32F:
		return 16
	default:
		return 0
	}
}

// AddressMode selects how texture coordinates outside [0,1] are resolved.
type AddressMode uint8

// Address modes.
const (
	AddressClampToEdge AddressMode = iota
	AddressMirrorRepeat
)

// FilterMode selects texel interpolation.
type FilterMode uint8

// Filter modes.
const (
	FilterNearest FilterMode = iota
	FilterLinear
)

// SamplerDescriptor fixes the sampling policy of a texture.
type SamplerDescriptor struct {
	AddressMode  AddressMode
	MagFilter    FilterMode
	MinFilter    FilterMode
	MipmapFilter FilterMode
}

// MaskSampler is the policy shared by masks and textures:
// linear-mipmap-linear minification, linear magnification.
var MaskSampler = SamplerDescriptor{
	AddressMode:  AddressClampToEdge,
	MagFilter:    FilterLinear,
	MinFilter:    FilterLinear,
	MipmapFilter: FilterLinear,
}

// ColormapSampler is the colormap policy: mirrored repeat with linear filtering.
var ColormapSampler = SamplerDescriptor{
	AddressMode:  AddressMirrorRepeat,
	MagFilter:    FilterLinear,
	MinFilter:    FilterLinear,
	MipmapFilter: FilterNearest,
}

// TextureDescriptor describes a sampled texture and its initial contents.
type TextureDescriptor struct {
	// Label is an optional debug label.
	Label string

	// Width and Height are the dimensions of mip level 0.
	Width, Height int

	// Format is the layout of the pixel data passed to CreateTexture.
	// RGBA32F data is passed as little-endian float32 bytes.
	Format TextureFormat

	// MipLevels is the number of mip levels to allocate and generate.
	// Zero or one means no mipmaps.
	MipLevels int

	// Sampler is the fixed sampling policy.
	Sampler SamplerDescriptor
}

// ProgramKind selects the shading model of a program.
type ProgramKind uint8

// Program kinds.
const (
	// ProgramStipple shades mask x colormap instances.
	ProgramStipple ProgramKind = iota + 1

	// ProgramStippleTextured additionally modulates by a rotatable texture.
	ProgramStippleTextured

	// ProgramProcedural draws a full-screen quad with a caller fragment stage.
	ProgramProcedural
)

// String returns a short name of the kind.
func (k ProgramKind) String() string {
	switch k {
	case ProgramStipple:
		return "stipple"
	case ProgramStippleTextured:
		return "stipple-textured"
	case ProgramProcedural:
		return "procedural"
	default:
		return "unknown"
	}
}

// ShadeFunc evaluates a procedural fragment stage on the host.
// u and v are normalized pixel-center coordinates in [0,1).
type ShadeFunc func(u, v float32) [4]float32

// ProgramDescriptor describes a render program.
type ProgramDescriptor struct {
	Label string
	Kind  ProgramKind

	// Source is the complete WGSL module with vs_main and fs_main.
	Source string

	// Shade is the host evaluation of a procedural program. Devices that
	// cannot execute WGSL require it for ProgramProcedural.
	Shade ShadeFunc
}

// Uniforms are the scalar inputs shared by every stipple draw.
type Uniforms struct {
	AspectRatio      float32
	DiscardThreshold float32
}

// Bindings are the textures sampled by a stipple draw.
// Texture is InvalidID for the plain program.
type Bindings struct {
	Mask     TextureID
	Texture  TextureID
	Colormap TextureID
}

// QuadVertexCount is the vertex count of the attributeless unit quad
// drawn as a triangle strip.
const QuadVertexCount = 4

// QuadCorners are the unit quad corners in triangle-strip order.
var QuadCorners = [QuadVertexCount][2]float32{
	{-1, -1}, {1, -1}, {-1, 1}, {1, 1},
}

// Instance is one per-instance record consumed by the stipple programs.
type Instance struct {
	Translation     [2]float32
	Scale           [2]float32
	ColormapScale   [2]float32
	Rotation        float32
	TextureRotation float32
	Gamma           float32
}

// InstanceStride is the packed size of one Instance in bytes.
const InstanceStride = 9 * 4

// Attribute byte offsets within an instance record.
const (
	OffsetTranslation     = 0
	OffsetScale           = 8
	OffsetColormapScale   = 16
	OffsetRotation        = 24
	OffsetTextureRotation = 28
	OffsetGamma           = 32
)

// AppendBytes appends the packed little-endian form of the instance to buf.
func (in *Instance) AppendBytes(buf []byte) []byte {
	buf = appendFloat(buf, in.Translation[0])
	buf = appendFloat(buf, in.Translation[1])
	buf = appendFloat(buf, in.Scale[0])
	buf = appendFloat(buf, in.Scale[1])
	buf = appendFloat(buf, in.ColormapScale[0])
	buf = appendFloat(buf, in.ColormapScale[1])
	buf = appendFloat(buf, in.Rotation)
	buf = appendFloat(buf, in.TextureRotation)
	return appendFloat(buf, in.Gamma)
}

// EncodeInstances packs records into buf, reusing its capacity.
func EncodeInstances(buf []byte, records []Instance) []byte {
	buf = buf[:0]
	for i := range records {
		buf = records[i].AppendBytes(buf)
	}
	return buf
}

func appendFloat(buf []byte, v float32) []byte {
	return binary.LittleEndian.AppendUint32(buf, math.Float32bits(v))
}
