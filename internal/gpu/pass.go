//go:build !nogpu

package gpu

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/dali/gpucore"
)

// groupKey identifies a bind group by layout and bound textures.
type groupKey struct {
	kind     gpucore.ProgramKind
	bindings gpucore.Bindings
}

// pass records draws into one target. Queue writes take effect
// immediately, so recorded draws are flushed before any buffer they read
// is overwritten.
type pass struct {
	dev    *Device
	target *target
	clear  gputypes.Color

	encoder hal.CommandEncoder
	rp      hal.RenderPassEncoder
	pending bool

	program  *program
	bindings gpucore.Bindings
	groups   map[groupKey]hal.BindGroup

	ended bool
}

// BeginPass implements gpucore.Device.
func (d *Device) BeginPass(id gpucore.TargetID, clear [4]float32) (gpucore.Pass, error) {
	if d.destroyed {
		return nil, ErrDeviceDestroyed
	}
	if d.active != nil {
		return nil, ErrPassActive
	}
	t, ok := d.targets[id]
	if !ok {
		return nil, fmt.Errorf("gpu: begin pass on target %d: %w", id, gpucore.ErrUnknownResource)
	}
	p := &pass{
		dev:    d,
		target: t,
		clear: gputypes.Color{
			R: float64(clear[0]), G: float64(clear[1]), B: float64(clear[2]), A: float64(clear[3]),
		},
		groups: make(map[groupKey]hal.BindGroup),
	}
	if err := p.open(gputypes.LoadOpClear); err != nil {
		return nil, err
	}
	d.active = p
	return p, nil
}

// open starts a command encoder and render pass on the target.
func (p *pass) open(load gputypes.LoadOp) error {
	encoder, err := p.dev.newEncoder("dali_pass")
	if err != nil {
		return err
	}
	p.encoder = encoder
	p.rp = encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: "dali_pass",
		ColorAttachments: []hal.RenderPassColorAttachment{{
			View:       p.target.view,
			LoadOp:     load,
			StoreOp:    gputypes.StoreOpStore,
			ClearValue: p.clear,
		}},
	})
	return nil
}

// flush submits the draws recorded so far and reopens the pass, keeping
// the target contents.
func (p *pass) flush() error {
	if !p.pending {
		return nil
	}
	p.rp.End()
	err := p.dev.submit(p.encoder)
	p.encoder, p.rp, p.pending = nil, nil, false
	if err != nil {
		return err
	}
	return p.open(gputypes.LoadOpLoad)
}

func (p *pass) SetProgram(id gpucore.ProgramID) { p.program = p.dev.programs[id] }

func (p *pass) SetBindings(b gpucore.Bindings) { p.bindings = b }

func (p *pass) SetUniforms(u gpucore.Uniforms) {
	if p.ended {
		return
	}
	if err := p.flush(); err != nil {
		slogger().Warn("gpu: flush before uniform update failed", "err", err)
	}
	var aspect, discard [4]byte
	binary.LittleEndian.PutUint32(aspect[:], math.Float32bits(u.AspectRatio))
	binary.LittleEndian.PutUint32(discard[:], math.Float32bits(u.DiscardThreshold))
	if err := p.dev.queue.WriteBuffer(p.dev.uniforms, 0, aspect[:]); err != nil {
		slogger().Warn("gpu: write uniforms failed", "err", err)
	}
	if err := p.dev.queue.WriteBuffer(p.dev.uniforms, uniformStride, discard[:]); err != nil {
		slogger().Warn("gpu: write uniforms failed", "err", err)
	}
}

func (p *pass) WriteInstances(id gpucore.BufferID, records []gpucore.Instance) error {
	if p.ended {
		return gpucore.ErrPassEnded
	}
	buf, ok := p.dev.buffers[id]
	if !ok {
		return fmt.Errorf("gpu: write buffer %d: %w", id, gpucore.ErrUnknownResource)
	}
	if len(records) > buf.capacity {
		return fmt.Errorf("gpu: %d records into capacity %d: %w",
			len(records), buf.capacity, gpucore.ErrBufferOverflow)
	}
	if err := p.flush(); err != nil {
		return err
	}
	buf.scratch = gpucore.EncodeInstances(buf.scratch, records)
	buf.used = len(records)
	if len(buf.scratch) == 0 {
		return nil
	}
	if err := p.dev.queue.WriteBuffer(buf.buf, 0, buf.scratch); err != nil {
		return fmt.Errorf("gpu: write instances: %w", err)
	}
	return nil
}

func (p *pass) Draw(id gpucore.BufferID, vertexCount, instanceCount int) error {
	if p.ended {
		return gpucore.ErrPassEnded
	}
	if p.program == nil {
		return fmt.Errorf("gpu: draw without program: %w", gpucore.ErrUnknownResource)
	}
	if p.rp == nil {
		return fmt.Errorf("gpu: draw after failed flush: %w", gpucore.ErrPassEnded)
	}
	p.rp.SetPipeline(p.program.pipeline)

	if p.program.kind != gpucore.ProgramProcedural {
		buf, ok := p.dev.buffers[id]
		if !ok {
			return fmt.Errorf("gpu: draw from buffer %d: %w", id, gpucore.ErrUnknownResource)
		}
		if instanceCount > buf.used {
			return fmt.Errorf("gpu: draw %d instances from %d written: %w",
				instanceCount, buf.used, gpucore.ErrBufferOverflow)
		}
		group, err := p.bindGroup()
		if err != nil {
			return err
		}
		p.rp.SetBindGroup(0, group, nil)
		p.rp.SetVertexBuffer(0, buf.buf, 0)
	}

	//nolint:gosec // G115: counts bounded by buffer capacity
	p.rp.Draw(uint32(vertexCount), uint32(instanceCount), 0, 0)
	p.pending = true
	return nil
}

// bindGroup returns the bind group for the current program and bindings.
func (p *pass) bindGroup() (hal.BindGroup, error) {
	key := groupKey{kind: p.program.kind, bindings: p.bindings}
	if key.kind != gpucore.ProgramStippleTextured {
		key.bindings.Texture = gpucore.InvalidID
	}
	if g, ok := p.groups[key]; ok {
		return g, nil
	}

	entries := []gputypes.BindGroupEntry{
		{Binding: 0, Resource: gputypes.BufferBinding{Buffer: p.dev.uniforms.NativeHandle(), Offset: 0, Size: uniformSize}},
		{Binding: 1, Resource: gputypes.BufferBinding{Buffer: p.dev.uniforms.NativeHandle(), Offset: uniformStride, Size: uniformSize}},
	}
	slots := []gpucore.TextureID{key.bindings.Mask, key.bindings.Colormap}
	if key.kind == gpucore.ProgramStippleTextured {
		slots = append(slots, key.bindings.Texture)
	}
	for i, tid := range slots {
		t, ok := p.dev.textures[tid]
		if !ok {
			return nil, fmt.Errorf("gpu: bind texture %d: %w", tid, gpucore.ErrUnknownResource)
		}
		//nolint:gosec // G115: at most three slots
		binding := uint32(2 + 2*i)
		entries = append(entries,
			gputypes.BindGroupEntry{Binding: binding, Resource: gputypes.TextureViewBinding{TextureView: t.view.NativeHandle()}},
			gputypes.BindGroupEntry{Binding: binding + 1, Resource: gputypes.SamplerBinding{Sampler: t.sampler.NativeHandle()}},
		)
	}

	g, err := p.dev.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:   "dali_" + key.kind.String(),
		Layout:  p.dev.layouts[key.kind],
		Entries: entries,
	})
	if err != nil {
		return nil, fmt.Errorf("gpu: create bind group: %w", err)
	}
	p.groups[key] = g
	return g, nil
}

func (p *pass) End() error {
	if p.ended {
		return gpucore.ErrPassEnded
	}
	p.ended = true
	if p.rp == nil {
		p.release()
		return fmt.Errorf("gpu: end after failed flush: %w", gpucore.ErrPassEnded)
	}
	p.rp.End()
	err := p.dev.submit(p.encoder)
	p.release()
	return err
}

// abort discards the pass without submitting.
func (p *pass) abort() {
	if p.ended {
		return
	}
	p.ended = true
	if p.rp != nil {
		p.rp.End()
	}
	if p.encoder != nil {
		p.encoder.DiscardEncoding()
		p.encoder.Destroy()
	}
	p.release()
}

func (p *pass) release() {
	for _, g := range p.groups {
		p.dev.device.DestroyBindGroup(g)
	}
	clear(p.groups)
	p.encoder, p.rp = nil, nil
	if p.dev.active == p {
		p.dev.active = nil
	}
}
