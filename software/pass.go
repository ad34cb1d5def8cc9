// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package software

import (
	"fmt"
	"math"

	"github.com/gogpu/dali/gpucore"
	"github.com/gogpu/dali/internal/parallel"
)

// pass executes draws immediately against its target.
type pass struct {
	dev      *Device
	target   *target
	program  *program
	bindings gpucore.Bindings
	uniforms gpucore.Uniforms
	ended    bool
}

func (p *pass) SetProgram(id gpucore.ProgramID) { p.program = p.dev.programs[id] }

func (p *pass) SetBindings(b gpucore.Bindings) { p.bindings = b }

func (p *pass) SetUniforms(u gpucore.Uniforms) { p.uniforms = u }

func (p *pass) WriteInstances(id gpucore.BufferID, records []gpucore.Instance) error {
	if p.ended {
		return gpucore.ErrPassEnded
	}
	buf, ok := p.dev.buffers[id]
	if !ok {
		return fmt.Errorf("software: write buffer %d: %w", id, gpucore.ErrUnknownResource)
	}
	if len(records) > len(buf.records) {
		return fmt.Errorf("software: %d records into capacity %d: %w",
			len(records), len(buf.records), gpucore.ErrBufferOverflow)
	}
	buf.used = copy(buf.records, records)
	return nil
}

func (p *pass) Draw(id gpucore.BufferID, vertexCount, instanceCount int) error {
	if p.ended {
		return gpucore.ErrPassEnded
	}
	if p.program == nil {
		return fmt.Errorf("software: draw without program: %w", gpucore.ErrUnknownResource)
	}
	p.dev.calls = append(p.dev.calls, DrawCall{
		Kind:          p.program.desc.Kind,
		VertexCount:   vertexCount,
		InstanceCount: instanceCount,
	})

	if p.program.desc.Kind == gpucore.ProgramProcedural {
		p.dev.bands(p.target, p.drawProcedural)
		return nil
	}

	buf, ok := p.dev.buffers[id]
	if !ok {
		return fmt.Errorf("software: draw from buffer %d: %w", id, gpucore.ErrUnknownResource)
	}
	if instanceCount > buf.used {
		return fmt.Errorf("software: draw %d instances from %d written: %w",
			instanceCount, buf.used, gpucore.ErrBufferOverflow)
	}
	mask, colormap, tex, err := p.resolveBindings()
	if err != nil {
		return err
	}
	// Every pixel belongs to one band, so instances still blend in order.
	records := buf.records[:instanceCount]
	p.dev.bands(p.target, func(b parallel.Band) {
		for i := range records {
			p.drawInstance(&records[i], mask, colormap, tex, b)
		}
	})
	return nil
}

func (p *pass) End() error {
	if p.ended {
		return gpucore.ErrPassEnded
	}
	p.ended = true
	return nil
}

func (p *pass) resolveBindings() (mask, colormap, tex *texture, err error) {
	var ok bool
	if mask, ok = p.dev.textures[p.bindings.Mask]; !ok {
		return nil, nil, nil, fmt.Errorf("software: mask %d: %w", p.bindings.Mask, gpucore.ErrUnknownResource)
	}
	if colormap, ok = p.dev.textures[p.bindings.Colormap]; !ok {
		return nil, nil, nil, fmt.Errorf("software: colormap %d: %w", p.bindings.Colormap, gpucore.ErrUnknownResource)
	}
	if p.program.desc.Kind == gpucore.ProgramStippleTextured {
		if tex, ok = p.dev.textures[p.bindings.Texture]; !ok {
			return nil, nil, nil, fmt.Errorf("software: texture %d: %w", p.bindings.Texture, gpucore.ErrUnknownResource)
		}
	}
	return mask, colormap, tex, nil
}

// blend applies (One, OneMinusSrcAlpha) to one pixel.
func (p *pass) blend(x, y int, src [4]float32) {
	i := (y*p.target.width + x) * 4
	dst := p.target.pixels[i : i+4 : i+4]
	inv := 1 - src[3]
	for c := 0; c < 4; c++ {
		dst[c] = src[c] + dst[c]*inv
	}
}

func (p *pass) drawProcedural(b parallel.Band) {
	t := p.target
	shade := p.program.desc.Shade
	for y := b.Y0; y < b.Y1; y++ {
		v := (float32(y) + 0.5) / float32(t.height)
		for x := 0; x < t.width; x++ {
			u := (float32(x) + 0.5) / float32(t.width)
			p.blend(x, y, shade(u, v))
		}
	}
}

// drawInstance rasterizes the rows of band covered by one instance of the
// unit quad. A pixel is covered when its center maps back inside the quad.
func (p *pass) drawInstance(in *gpucore.Instance, mask, colormap, tex *texture, band parallel.Band) {
	aspect := p.uniforms.AspectRatio
	if aspect <= 0 || in.Scale[0] == 0 || in.Scale[1] == 0 {
		return
	}
	t := p.target
	w, h := float32(t.width), float32(t.height)
	sin, cos := sincos(in.Rotation)

	minX, minY := float32(math.Inf(1)), float32(math.Inf(1))
	maxX, maxY := float32(math.Inf(-1)), float32(math.Inf(-1))
	for _, c := range gpucore.QuadCorners {
		lx, ly := c[0]*in.Scale[0], c[1]*in.Scale[1]
		ox, oy := cos*lx-sin*ly, sin*lx+cos*ly
		px := (in.Translation[0] + ox/aspect + 1) / 2 * w
		py := (1 - (in.Translation[1] + oy)) / 2 * h
		minX, maxX = min(minX, px), max(maxX, px)
		minY, maxY = min(minY, py), max(maxY, py)
	}
	x0 := max(0, int(math.Floor(float64(minX))))
	x1 := min(t.width-1, int(math.Ceil(float64(maxX))))
	y0 := max(band.Y0, int(math.Floor(float64(minY))))
	y1 := min(band.Y1-1, int(math.Ceil(float64(maxY))))
	if x0 > x1 || y0 > y1 {
		return
	}

	maskLOD := lodFor(mask, h, in.Scale)
	var texLOD float32
	var tsin, tcos float32
	if tex != nil {
		texLOD = lodFor(tex, h, in.Scale)
		tsin, tcos = sincos(in.TextureRotation)
	}

	for y := y0; y <= y1; y++ {
		cy := 1 - (float32(y)+0.5)/h*2
		for x := x0; x <= x1; x++ {
			cx := (float32(x)+0.5)/w*2 - 1

			dx := (cx - in.Translation[0]) * aspect
			dy := cy - in.Translation[1]
			qx := (cos*dx + sin*dy) / in.Scale[0]
			qy := (-sin*dx + cos*dy) / in.Scale[1]
			if qx < -1 || qx > 1 || qy < -1 || qy > 1 {
				continue
			}

			coverage := mask.sample(qx*0.5+0.5, 0.5-qy*0.5, maskLOD)[0]
			if tex != nil {
				rx, ry := tcos*qx-tsin*qy, tsin*qx+tcos*qy
				coverage *= tex.sample(rx*0.5+0.5, 0.5-ry*0.5, texLOD)[0]
			}
			color := colormap.sample(
				(cx*0.5+0.5)*in.ColormapScale[0],
				(0.5-cy*0.5)*in.ColormapScale[1], 0)

			alpha := float32(math.Pow(float64(max(coverage, 0)), float64(in.Gamma))) * color[3]
			if alpha <= p.uniforms.DiscardThreshold {
				continue
			}
			p.blend(x, y, [4]float32{color[0] * alpha, color[1] * alpha, color[2] * alpha, alpha})
		}
	}
}

// lodFor estimates the mip level from texels per pixel across the quad.
// The quad spans |scale| * height pixels on both axes.
func lodFor(tex *texture, height float32, scale [2]float32) float32 {
	size := float32(tex.levels[0].Width)
	span := min(abs32(scale[0]), abs32(scale[1])) * height
	if span <= 0 {
		return 0
	}
	rho := size / span
	if rho <= 1 {
		return 0
	}
	return float32(math.Log2(float64(rho)))
}

func sincos(a float32) (float32, float32) {
	s, c := math.Sincos(float64(a))
	return float32(s), float32(c)
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
