// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package software

import (
	"math"

	"github.com/gogpu/dali/gpucore"
	"github.com/gogpu/dali/internal/image"
)

// texture is a sampled image with its mip chain and fixed sampler.
type texture struct {
	channels int
	levels   []image.Level
	sampler  gpucore.SamplerDescriptor
}

// sample returns the filtered texel at normalized (u, v) and level of detail.
func (t *texture) sample(u, v, lod float32) [4]float32 {
	if lod <= 0 {
		return t.sampleLevel(0, u, v, t.sampler.MagFilter == gpucore.FilterLinear)
	}
	linear := t.sampler.MinFilter == gpucore.FilterLinear
	if len(t.levels) == 1 {
		return t.sampleLevel(0, u, v, linear)
	}
	lod = min(lod, float32(len(t.levels)-1))
	if t.sampler.MipmapFilter != gpucore.FilterLinear {
		return t.sampleLevel(int(lod+0.5), u, v, linear)
	}
	l0 := int(lod)
	frac := lod - float32(l0)
	a := t.sampleLevel(l0, u, v, linear)
	if frac == 0 || l0+1 >= len(t.levels) {
		return a
	}
	b := t.sampleLevel(l0+1, u, v, linear)
	for i := range a {
		a[i] += (b[i] - a[i]) * frac
	}
	return a
}

func (t *texture) sampleLevel(idx int, u, v float32, linear bool) [4]float32 {
	lv := &t.levels[idx]
	x := u*float32(lv.Width) - 0.5
	y := v*float32(lv.Height) - 0.5
	if !linear {
		return t.fetch(lv, int(math.Floor(float64(x+0.5))), int(math.Floor(float64(y+0.5))))
	}
	fx0 := float32(math.Floor(float64(x)))
	fy0 := float32(math.Floor(float64(y)))
	fx := x - fx0
	fy := y - fy0
	x0, y0 := int(fx0), int(fy0)

	c00 := t.fetch(lv, x0, y0)
	c10 := t.fetch(lv, x0+1, y0)
	c01 := t.fetch(lv, x0, y0+1)
	c11 := t.fetch(lv, x0+1, y0+1)
	var out [4]float32
	for i := range out {
		top := c00[i] + (c10[i]-c00[i])*fx
		bottom := c01[i] + (c11[i]-c01[i])*fx
		out[i] = top + (bottom-top)*fy
	}
	return out
}

// fetch reads one texel after resolving the address mode. Single-channel
// textures replicate their value into r, g, b with alpha 1.
func (t *texture) fetch(lv *image.Level, x, y int) [4]float32 {
	x = t.address(x, lv.Width)
	y = t.address(y, lv.Height)
	i := (y*lv.Width + x) * t.channels
	if t.channels == 1 {
		v := lv.Data[i]
		return [4]float32{v, v, v, 1}
	}
	return [4]float32{lv.Data[i], lv.Data[i+1], lv.Data[i+2], lv.Data[i+3]}
}

func (t *texture) address(i, n int) int {
	switch t.sampler.AddressMode {
	case gpucore.AddressMirrorRepeat:
		period := 2 * n
		m := i % period
		if m < 0 {
			m += period
		}
		if m >= n {
			m = period - 1 - m
		}
		return m
	default:
		return min(max(i, 0), n-1)
	}
}
