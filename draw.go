package dali

import (
	"fmt"

	"github.com/gogpu/dali/gpucore"
)

// frame declares the canvas, draws it into the cached target of size and
// reads the result back as premultiplied RGBA floats.
func (p *Pipeline) frame(size Size, f func(*CanvasGate)) ([]float32, FrameStats, error) {
	stats := FrameStats{Size: size}
	if err := p.alive(); err != nil {
		return nil, stats, err
	}
	if size.IsZero() {
		return nil, stats, fmt.Errorf("dali: render %s: %w", size, ErrZeroSize)
	}
	if !p.busy.CompareAndSwap(false, true) {
		return nil, stats, ErrBusy
	}
	defer p.busy.Store(false)

	canvas := Declare(f)
	if err := p.validate(canvas); err != nil {
		return nil, stats, err
	}

	target, err := p.target(size)
	if err != nil {
		return nil, stats, err
	}
	pass, err := p.dev.BeginPass(target, clearColor)
	if err != nil {
		return nil, stats, fmt.Errorf("dali: begin pass: %w", err)
	}
	pass.SetUniforms(gpucore.Uniforms{
		AspectRatio:      float32(size.Width) / float32(size.Height),
		DiscardThreshold: p.discard,
	})
	if err := p.drawCanvas(pass, canvas, &stats); err != nil {
		_ = pass.End()
		return nil, stats, err
	}
	if err := pass.End(); err != nil {
		return nil, stats, fmt.Errorf("dali: submit: %w", err)
	}

	pix, err := p.dev.ReadPixels(target)
	if err != nil {
		return nil, stats, fmt.Errorf("dali: read back: %w", err)
	}
	return pix, stats, nil
}

// validate rejects canvases that bind nil, destroyed or foreign handles
// before any command is recorded.
func (p *Pipeline) validate(c *CanvasGate) error {
	for i, l := range c.layers {
		if l.colormap == nil || !p.valid(&l.colormap.handle) {
			return fmt.Errorf("dali: layer %d: colormap: %w", i, ErrInvalidHandle)
		}
		for j, b := range l.batches {
			if b.mask == nil || !p.valid(&b.mask.handle) {
				return fmt.Errorf("dali: layer %d batch %d: mask: %w", i, j, ErrInvalidHandle)
			}
			if b.texture != nil && !p.valid(&b.texture.handle) {
				return fmt.Errorf("dali: layer %d batch %d: texture: %w", i, j, ErrInvalidHandle)
			}
		}
	}
	return nil
}

func (p *Pipeline) drawCanvas(pass gpucore.Pass, c *CanvasGate, stats *FrameStats) error {
	for i, l := range c.layers {
		stats.Layers++
		for j, b := range l.batches {
			stats.Batches++
			if err := p.drawBatch(pass, l.colormap.id, b, stats); err != nil {
				return fmt.Errorf("dali: layer %d batch %d: %w", i, j, err)
			}
		}
	}
	return nil
}

// drawBatch binds the batch resources and draws its stipples in chunks of
// ChunkSize through the single instance buffer. Each chunk overwrites the
// buffer from the start.
func (p *Pipeline) drawBatch(pass gpucore.Pass, colormap gpucore.TextureID, b *StippleGate, stats *FrameStats) error {
	textured := b.texture != nil
	bindings := gpucore.Bindings{Mask: b.mask.id, Colormap: colormap}
	program := p.plain
	if textured {
		bindings.Texture = b.texture.id
		program = p.textured
	}
	pass.SetProgram(program)
	pass.SetBindings(bindings)

	p.records = appendInstances(p.records[:0], b.stipples, textured)
	for start := 0; start < len(p.records); start += ChunkSize {
		chunk := p.records[start:min(start+ChunkSize, len(p.records))]
		if err := pass.WriteInstances(p.instances, chunk); err != nil {
			return fmt.Errorf("write instances: %w", err)
		}
		if err := pass.Draw(p.instances, gpucore.QuadVertexCount, len(chunk)); err != nil {
			return fmt.Errorf("draw: %w", err)
		}
		stats.DrawCalls++
	}
	stats.Instances += len(p.records)
	return nil
}

// chunkCount returns the number of draw calls for n instances.
func chunkCount(n int) int {
	return (n + ChunkSize - 1) / ChunkSize
}
