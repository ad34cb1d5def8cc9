//go:build !nogpu

package gpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/dali/gpucore"
	"github.com/gogpu/dali/shader"
)

// program is a compiled render pipeline.
type program struct {
	kind     gpucore.ProgramKind
	module   hal.ShaderModule
	layout   hal.PipelineLayout
	pipeline hal.RenderPipeline
}

// instanceLayout is the per-instance vertex buffer read by the stipple
// vertex stages at locations 0 to 5.
var instanceLayout = gputypes.VertexBufferLayout{
	ArrayStride: gpucore.InstanceStride,
	StepMode:    gputypes.VertexStepModeInstance,
	Attributes: []gputypes.VertexAttribute{
		{Format: gputypes.VertexFormatFloat32x2, Offset: gpucore.OffsetTranslation, ShaderLocation: 0},
		{Format: gputypes.VertexFormatFloat32x2, Offset: gpucore.OffsetScale, ShaderLocation: 1},
		{Format: gputypes.VertexFormatFloat32x2, Offset: gpucore.OffsetColormapScale, ShaderLocation: 2},
		{Format: gputypes.VertexFormatFloat32, Offset: gpucore.OffsetRotation, ShaderLocation: 3},
		{Format: gputypes.VertexFormatFloat32, Offset: gpucore.OffsetTextureRotation, ShaderLocation: 4},
		{Format: gputypes.VertexFormatFloat32, Offset: gpucore.OffsetGamma, ShaderLocation: 5},
	},
}

// CreateProgram implements gpucore.Device.
func (d *Device) CreateProgram(desc gpucore.ProgramDescriptor) (gpucore.ProgramID, error) {
	if d.destroyed {
		return gpucore.InvalidID, ErrDeviceDestroyed
	}

	var (
		groups  []hal.BindGroupLayout
		buffers []gputypes.VertexBufferLayout
		blend   *gputypes.BlendState
	)
	switch desc.Kind {
	case gpucore.ProgramStipple, gpucore.ProgramStippleTextured:
		groups = []hal.BindGroupLayout{d.layouts[desc.Kind]}
		buffers = []gputypes.VertexBufferLayout{instanceLayout}
		premultiplied := gputypes.BlendStatePremultiplied()
		blend = &premultiplied
	case gpucore.ProgramProcedural:
	default:
		return gpucore.InvalidID, fmt.Errorf("gpu: program kind %v: %w", desc.Kind, gpucore.ErrUnsupportedProgram)
	}

	module, err := d.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  desc.Label,
		Source: hal.ShaderSource{WGSL: desc.Source},
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("gpu: compile %s: %w", desc.Label, err)
	}

	layout, err := d.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            desc.Label,
		BindGroupLayouts: groups,
	})
	if err != nil {
		d.device.DestroyShaderModule(module)
		return gpucore.InvalidID, fmt.Errorf("gpu: create pipeline layout: %w", err)
	}

	pipeline, err := d.device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  desc.Label,
		Layout: layout,
		Vertex: hal.VertexState{
			Module:     module,
			EntryPoint: shader.VertexEntry,
			Buffers:    buffers,
		},
		Primitive: gputypes.PrimitiveState{
			Topology: gputypes.PrimitiveTopologyTriangleStrip,
			CullMode: gputypes.CullModeNone,
		},
		Multisample: gputypes.DefaultMultisampleState(),
		Fragment: &hal.FragmentState{
			Module:     module,
			EntryPoint: shader.FragmentEntry,
			Targets: []gputypes.ColorTargetState{{
				Format:    TargetFormat,
				Blend:     blend,
				WriteMask: gputypes.ColorWriteMaskAll,
			}},
		},
	})
	if err != nil {
		d.device.DestroyPipelineLayout(layout)
		d.device.DestroyShaderModule(module)
		return gpucore.InvalidID, fmt.Errorf("gpu: create render pipeline %s: %w", desc.Label, err)
	}

	id := gpucore.ProgramID(d.id())
	d.programs[id] = &program{kind: desc.Kind, module: module, layout: layout, pipeline: pipeline}
	slogger().Debug("gpu: program created", "label", desc.Label, "kind", desc.Kind.String())
	return id, nil
}

// DestroyProgram implements gpucore.Device.
func (d *Device) DestroyProgram(id gpucore.ProgramID) {
	p, ok := d.programs[id]
	if !ok {
		return
	}
	delete(d.programs, id)
	d.device.DestroyRenderPipeline(p.pipeline)
	d.device.DestroyPipelineLayout(p.layout)
	d.device.DestroyShaderModule(p.module)
}

// instanceBuffer is a vertex buffer of instance records.
type instanceBuffer struct {
	buf      hal.Buffer
	capacity int
	used     int
	scratch  []byte
}

// CreateInstanceBuffer implements gpucore.Device.
func (d *Device) CreateInstanceBuffer(capacity int) (gpucore.BufferID, error) {
	if d.destroyed {
		return gpucore.InvalidID, ErrDeviceDestroyed
	}
	if capacity <= 0 {
		return gpucore.InvalidID, fmt.Errorf("gpu: invalid instance capacity %d", capacity)
	}
	//nolint:gosec // G115: capacity checked positive
	buf, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "dali_instances",
		Size:  uint64(capacity) * gpucore.InstanceStride,
		Usage: gputypes.BufferUsageVertex | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("gpu: create instance buffer: %w", err)
	}
	id := gpucore.BufferID(d.id())
	d.buffers[id] = &instanceBuffer{
		buf:      buf,
		capacity: capacity,
		scratch:  make([]byte, 0, capacity*gpucore.InstanceStride),
	}
	return id, nil
}

// DestroyBuffer implements gpucore.Device.
func (d *Device) DestroyBuffer(id gpucore.BufferID) {
	b, ok := d.buffers[id]
	if !ok {
		return
	}
	delete(d.buffers, id)
	d.device.DestroyBuffer(b.buf)
}
