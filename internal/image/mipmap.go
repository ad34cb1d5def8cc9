// Package image provides texel buffers and mip chain generation for the
// dali devices.
package image

import (
	"encoding/binary"
	"math"

	"github.com/x448/float16"

	"github.com/gogpu/dali/gpucore"
)

// Level is one mip level stored as float32 channels, row-major.
type Level struct {
	Width, Height int
	Channels      int
	Data          []float32
}

// NewLevel allocates a zeroed level.
func NewLevel(width, height, channels int) Level {
	return Level{
		Width:    width,
		Height:   height,
		Channels: channels,
		Data:     make([]float32, width*height*channels),
	}
}

// Texel returns the channels of pixel (x, y).
func (l *Level) Texel(x, y int) []float32 {
	i := (y*l.Width + x) * l.Channels
	return l.Data[i : i+l.Channels]
}

// MaxLevels returns the length of the full mip chain for a w x h image.
func MaxLevels(w, h int) int {
	n := 1
	for w > 1 || h > 1 {
		w = max(1, w/2)
		h = max(1, h/2)
		n++
	}
	return n
}

// Decode converts upload bytes into normalized float channels.
// RGBA32F data is little-endian float32.
func Decode(format gpucore.TextureFormat, w, h int, pixels []byte) Level {
	lv := NewLevel(w, h, format.Channels())
	switch format {
	case gpucore.FormatR8, gpucore.FormatRGBA8:
		for i := range lv.Data {
			lv.Data[i] = float32(pixels[i]) / 255
		}
	case gpucore.FormatRGBA32F:
		for i := range lv.Data {
			lv.Data[i] = math.Float32frombits(binary.LittleEndian.Uint32(pixels[i*4:]))
		}
	}
	return lv
}

// Downsample produces the next mip level with a 2x2 box filter.
// Odd edges reuse the last row or column.
func Downsample(src Level) Level {
	ch := src.Channels
	dst := NewLevel(max(1, src.Width/2), max(1, src.Height/2), ch)
	for y := 0; y < dst.Height; y++ {
		y0 := min(2*y, src.Height-1)
		y1 := min(2*y+1, src.Height-1)
		for x := 0; x < dst.Width; x++ {
			x0 := min(2*x, src.Width-1)
			x1 := min(2*x+1, src.Width-1)
			for c := 0; c < ch; c++ {
				sum := src.Data[(y0*src.Width+x0)*ch+c] +
					src.Data[(y0*src.Width+x1)*ch+c] +
					src.Data[(y1*src.Width+x0)*ch+c] +
					src.Data[(y1*src.Width+x1)*ch+c]
				dst.Data[(y*dst.Width+x)*ch+c] = sum / 4
			}
		}
	}
	return dst
}

// GenerateMipmaps returns base followed by its downsampled levels, n levels
// in total. n is clamped to [1, MaxLevels].
func GenerateMipmaps(base Level, n int) []Level {
	n = min(max(n, 1), MaxLevels(base.Width, base.Height))
	levels := make([]Level, 1, n)
	levels[0] = base
	for len(levels) < n {
		levels = append(levels, Downsample(levels[len(levels)-1]))
	}
	return levels
}

// Unorm8 encodes the level as 8-bit normalized channels.
func (l *Level) Unorm8() []byte {
	out := make([]byte, len(l.Data))
	for i, v := range l.Data {
		out[i] = unorm8(v)
	}
	return out
}

// Float16 encodes the level as little-endian IEEE 754 half floats.
func (l *Level) Float16() []byte {
	out := make([]byte, 0, 2*len(l.Data))
	for _, v := range l.Data {
		out = binary.LittleEndian.AppendUint16(out, float16.Fromfloat32(v).Bits())
	}
	return out
}

// DecodeFloat16 converts little-endian half floats to float32.
func DecodeFloat16(data []byte) []float32 {
	out := make([]float32, len(data)/2)
	for i := range out {
		out[i] = float16.Frombits(binary.LittleEndian.Uint16(data[2*i:])).Float32()
	}
	return out
}

func unorm8(v float32) byte {
	switch {
	case !(v > 0):
		return 0
	case v >= 1:
		return 255
	default:
		return byte(v*255 + 0.5)
	}
}
