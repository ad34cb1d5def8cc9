//go:build !nogpu

package gpu

import (
	"encoding/binary"
	"errors"
	"math"
	"strings"
	"testing"
	"unsafe"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"

	"github.com/gogpu/dali/gpucore"
	"github.com/gogpu/dali/shader"
)

// newNoopDevice opens a device on the noop HAL backend. Commands are
// accepted and discarded, so readback returns zeros.
func newNoopDevice(t *testing.T, maxMB int) *Device {
	t.Helper()
	d, err := OpenBackend(noop.API{}, Options{MaxMemoryMB: maxMB})
	if err != nil {
		t.Fatalf("OpenBackend(noop) = %v", err)
	}
	t.Cleanup(d.Destroy)
	return d
}

func mapFloats(t *testing.T, d *Device, buf hal.Buffer, offset, count int) []float32 {
	t.Helper()
	//nolint:gosec // test sizes are small
	m, err := d.device.MapBuffer(buf, uint64(offset), uint64(count*4))
	if err != nil {
		t.Fatalf("MapBuffer() = %v", err)
	}
	raw := unsafe.Slice((*byte)(m.Ptr), count*4)
	out := make([]float32, count)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	return out
}

func TestOpenBackendNoop(t *testing.T) {
	d := newNoopDevice(t, 0)
	if !strings.Contains(d.Name(), "Noop Adapter") {
		t.Errorf("Name() = %q, want noop adapter name", d.Name())
	}
	if got, want := d.Limits().MaxTextureDimension, int(gputypes.DefaultLimits().MaxTextureDimension2D); got != want {
		t.Errorf("MaxTextureDimension = %d, want %d", got, want)
	}
	if d.HalDevice() == nil || d.HalQueue() == nil {
		t.Error("HAL device or queue is nil")
	}
}

func TestParseBackend(t *testing.T) {
	tests := []struct {
		name    string
		want    gputypes.Backend
		auto    bool
		wantErr bool
	}{
		{"", gputypes.BackendEmpty, true, false},
		{"auto", gputypes.BackendEmpty, true, false},
		{"Vulkan", gputypes.BackendVulkan, false, false},
		{"metal", gputypes.BackendMetal, false, false},
		{"DX12", gputypes.BackendDX12, false, false},
		{"gles", gputypes.BackendGL, false, false},
		{"software", gputypes.BackendEmpty, false, false},
		{"directx9", gputypes.BackendEmpty, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, auto, err := ParseBackend(tt.name)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseBackend(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
			}
			if got != tt.want || auto != tt.auto {
				t.Errorf("ParseBackend(%q) = %v, %v; want %v, %v", tt.name, got, auto, tt.want, tt.auto)
			}
		})
	}
}

func TestSelectAdapter(t *testing.T) {
	adapters := []hal.ExposedAdapter{
		{Info: gputypes.AdapterInfo{Name: "cpu", DeviceType: gputypes.DeviceTypeCPU}},
		{Info: gputypes.AdapterInfo{Name: "igpu", DeviceType: gputypes.DeviceTypeIntegratedGPU}},
		{Info: gputypes.AdapterInfo{Name: "dgpu", DeviceType: gputypes.DeviceTypeDiscreteGPU}},
	}
	tests := []struct {
		name     string
		adapters []hal.ExposedAdapter
		pref     gputypes.PowerPreference
		want     string
	}{
		{"high performance", adapters, gputypes.PowerPreferenceHighPerformance, "dgpu"},
		{"low power", adapters, gputypes.PowerPreferenceLowPower, "igpu"},
		{"no preference", adapters, gputypes.PowerPreferenceNone, "dgpu"},
		{"hardware fallback", adapters[:2], gputypes.PowerPreferenceHighPerformance, "igpu"},
		{"first fallback", adapters[:1], gputypes.PowerPreferenceLowPower, "cpu"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := selectAdapter(tt.adapters, tt.pref)
			if got == nil || got.Info.Name != tt.want {
				t.Errorf("selectAdapter() = %v, want %s", got, tt.want)
			}
		})
	}
	if selectAdapter(nil, gputypes.PowerPreferenceNone) != nil {
		t.Error("selectAdapter(nil) should be nil")
	}
}

type fakeProvider struct {
	device hal.Device
	queue  hal.Queue
}

func (p *fakeProvider) HalDevice() any { return p.device }
func (p *fakeProvider) HalQueue() any  { return p.queue }

func TestFromProvider(t *testing.T) {
	if _, err := FromProvider(struct{}{}, 0); err == nil {
		t.Error("FromProvider(non-provider) should fail")
	}

	inst, _ := noop.API{}.CreateInstance(nil)
	open, err := inst.EnumerateAdapters(nil)[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		t.Fatalf("Open() = %v", err)
	}
	d, err := FromProvider(&fakeProvider{device: open.Device, queue: open.Queue}, 0)
	if err != nil {
		t.Fatalf("FromProvider() = %v", err)
	}
	if d.Name() != "provider" {
		t.Errorf("Name() = %q, want provider", d.Name())
	}
	d.Destroy()
	if _, err := d.CreateTarget(4, 4); !errors.Is(err, ErrDeviceDestroyed) {
		t.Errorf("CreateTarget after Destroy = %v, want ErrDeviceDestroyed", err)
	}
}

func TestHalFormat(t *testing.T) {
	tests := []struct {
		in   gpucore.TextureFormat
		want gputypes.TextureFormat
		bpt  int
	}{
		{gpucore.FormatR8, gputypes.TextureFormatR8Unorm, 1},
		{gpucore.FormatRGBA8, gputypes.TextureFormatRGBA8Unorm, 4},
		{gpucore.FormatRGBA32F, gputypes.TextureFormatRGBA16Float, 8},
	}
	for _, tt := range tests {
		t.Run(tt.in.String(), func(t *testing.T) {
			got, bpt, err := halFormat(tt.in)
			if err != nil {
				t.Fatalf("halFormat() = %v", err)
			}
			if got != tt.want || bpt != tt.bpt {
				t.Errorf("halFormat() = %v, %d; want %v, %d", got, bpt, tt.want, tt.bpt)
			}
		})
	}
	if _, _, err := halFormat(gpucore.TextureFormat(0)); err == nil {
		t.Error("halFormat(0) should fail")
	}
}

func TestCreateTexture(t *testing.T) {
	d := newNoopDevice(t, 0)

	tests := []struct {
		name    string
		desc    gpucore.TextureDescriptor
		pixels  int
		wantErr bool
		bytes   uint64
	}{
		{
			name:   "mask with mips",
			desc:   gpucore.TextureDescriptor{Width: 8, Height: 8, Format: gpucore.FormatR8, MipLevels: 4, Sampler: gpucore.MaskSampler},
			pixels: 64,
			bytes:  64 + 16 + 4 + 1,
		},
		{
			name:   "colormap",
			desc:   gpucore.TextureDescriptor{Width: 2, Height: 2, Format: gpucore.FormatRGBA32F, Sampler: gpucore.ColormapSampler},
			pixels: 2 * 2 * 16,
			bytes:  2 * 2 * 8,
		},
		{
			name:    "short pixel buffer",
			desc:    gpucore.TextureDescriptor{Width: 4, Height: 4, Format: gpucore.FormatRGBA8},
			pixels:  10,
			wantErr: true,
		},
		{
			name:    "zero size",
			desc:    gpucore.TextureDescriptor{Width: 0, Height: 4, Format: gpucore.FormatR8},
			wantErr: true,
		},
		{
			name:    "over limit",
			desc:    gpucore.TextureDescriptor{Width: 1 << 20, Height: 1, Format: gpucore.FormatR8},
			pixels:  1 << 20,
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := d.MemoryStats().UsedBytes
			id, err := d.CreateTexture(tt.desc, make([]byte, tt.pixels))
			if (err != nil) != tt.wantErr {
				t.Fatalf("CreateTexture() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if got := d.MemoryStats().UsedBytes - before; got != tt.bytes {
				t.Errorf("reserved %d bytes, want %d", got, tt.bytes)
			}
			d.DestroyTexture(id)
			d.DestroyTexture(id)
			if got := d.MemoryStats().UsedBytes; got != before {
				t.Errorf("UsedBytes after destroy = %d, want %d", got, before)
			}
		})
	}
}

func TestSamplersShared(t *testing.T) {
	d := newNoopDevice(t, 0)
	desc := gpucore.TextureDescriptor{Width: 1, Height: 1, Format: gpucore.FormatR8, Sampler: gpucore.MaskSampler}
	for range 3 {
		if _, err := d.CreateTexture(desc, []byte{0}); err != nil {
			t.Fatalf("CreateTexture() = %v", err)
		}
	}
	desc.Sampler = gpucore.ColormapSampler
	if _, err := d.CreateTexture(desc, []byte{0}); err != nil {
		t.Fatalf("CreateTexture() = %v", err)
	}
	if len(d.samplers) != 2 {
		t.Errorf("samplers = %d, want 2", len(d.samplers))
	}
}

func TestTargetMemoryBudget(t *testing.T) {
	d := newNoopDevice(t, MinMemoryMB)

	// 2048x2048 RGBA16Float is 32 MiB.
	if _, err := d.CreateTarget(2048, 2048); !errors.Is(err, ErrMemoryBudgetExceeded) {
		t.Fatalf("CreateTarget() = %v, want ErrMemoryBudgetExceeded", err)
	}
	id, err := d.CreateTarget(1024, 1024)
	if err != nil {
		t.Fatalf("CreateTarget() = %v", err)
	}
	if got := d.MemoryStats().UsedBytes; got != 1024*1024*8 {
		t.Errorf("UsedBytes = %d, want %d", got, 1024*1024*8)
	}
	d.DestroyTarget(id)
	if got := d.MemoryStats().Allocations; got != 0 {
		t.Errorf("Allocations = %d, want 0", got)
	}
}

func TestCreateProgram(t *testing.T) {
	d := newNoopDevice(t, 0)
	tests := []struct {
		kind    gpucore.ProgramKind
		src     string
		wantErr error
	}{
		{gpucore.ProgramStipple, shader.Stipple(), nil},
		{gpucore.ProgramStippleTextured, shader.StippleTextured(), nil},
		{gpucore.ProgramProcedural, shader.Procedural(shader.DiscFragment()), nil},
		{gpucore.ProgramKind(0), "", gpucore.ErrUnsupportedProgram},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			id, err := d.CreateProgram(gpucore.ProgramDescriptor{Label: tt.kind.String(), Kind: tt.kind, Source: tt.src})
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("CreateProgram() = %v, want %v", err, tt.wantErr)
			}
			if err == nil {
				d.DestroyProgram(id)
				if _, ok := d.programs[id]; ok {
					t.Error("program still registered after destroy")
				}
			}
		})
	}
}

func TestCreateInstanceBuffer(t *testing.T) {
	d := newNoopDevice(t, 0)
	if _, err := d.CreateInstanceBuffer(0); err == nil {
		t.Error("CreateInstanceBuffer(0) should fail")
	}
	id, err := d.CreateInstanceBuffer(16)
	if err != nil {
		t.Fatalf("CreateInstanceBuffer() = %v", err)
	}
	if got := d.buffers[id].capacity; got != 16 {
		t.Errorf("capacity = %d, want 16", got)
	}
	d.DestroyBuffer(id)
	d.DestroyBuffer(id)
}

// passFixture is a device with a target, both stipple programs, a buffer
// and the three textures a textured draw binds.
type passFixture struct {
	d                       *Device
	target                  gpucore.TargetID
	plain, textured         gpucore.ProgramID
	buf                     gpucore.BufferID
	mask, texture, colormap gpucore.TextureID
}

func newPassFixture(t *testing.T) *passFixture {
	t.Helper()
	d := newNoopDevice(t, 0)
	f := &passFixture{d: d}
	var err error
	if f.target, err = d.CreateTarget(5, 3); err != nil {
		t.Fatalf("CreateTarget() = %v", err)
	}
	if f.plain, err = d.CreateProgram(gpucore.ProgramDescriptor{Kind: gpucore.ProgramStipple, Source: shader.Stipple()}); err != nil {
		t.Fatalf("CreateProgram() = %v", err)
	}
	if f.textured, err = d.CreateProgram(gpucore.ProgramDescriptor{Kind: gpucore.ProgramStippleTextured, Source: shader.StippleTextured()}); err != nil {
		t.Fatalf("CreateProgram() = %v", err)
	}
	if f.buf, err = d.CreateInstanceBuffer(4); err != nil {
		t.Fatalf("CreateInstanceBuffer() = %v", err)
	}
	r8 := gpucore.TextureDescriptor{Width: 2, Height: 2, Format: gpucore.FormatR8, MipLevels: 2, Sampler: gpucore.MaskSampler}
	if f.mask, err = d.CreateTexture(r8, make([]byte, 4)); err != nil {
		t.Fatalf("CreateTexture() = %v", err)
	}
	if f.texture, err = d.CreateTexture(r8, make([]byte, 4)); err != nil {
		t.Fatalf("CreateTexture() = %v", err)
	}
	cm := gpucore.TextureDescriptor{Width: 1, Height: 1, Format: gpucore.FormatRGBA8, Sampler: gpucore.ColormapSampler}
	if f.colormap, err = d.CreateTexture(cm, []byte{255, 0, 0, 255}); err != nil {
		t.Fatalf("CreateTexture() = %v", err)
	}
	return f
}

func TestPassDraws(t *testing.T) {
	f := newPassFixture(t)
	d := f.d

	p, err := d.BeginPass(f.target, [4]float32{0, 0, 0, 1})
	if err != nil {
		t.Fatalf("BeginPass() = %v", err)
	}
	if _, err := d.BeginPass(f.target, [4]float32{}); !errors.Is(err, ErrPassActive) {
		t.Errorf("second BeginPass() = %v, want ErrPassActive", err)
	}

	p.SetUniforms(gpucore.Uniforms{AspectRatio: 1.5, DiscardThreshold: 0.25})
	if got := mapFloats(t, d, d.uniforms, 0, 1)[0]; got != 1.5 {
		t.Errorf("aspect_ratio = %v, want 1.5", got)
	}
	if got := mapFloats(t, d, d.uniforms, uniformStride, 1)[0]; got != 0.25 {
		t.Errorf("discard_threshold = %v, want 0.25", got)
	}

	records := []gpucore.Instance{
		{Translation: [2]float32{0.5, -0.5}, Scale: [2]float32{1, 1}, Gamma: 1},
		{Translation: [2]float32{-1, 1}, Scale: [2]float32{2, 3}, Rotation: 0.5, Gamma: 2.2},
	}
	p.SetProgram(f.plain)
	p.SetBindings(gpucore.Bindings{Mask: f.mask, Colormap: f.colormap})
	if err := p.WriteInstances(f.buf, records); err != nil {
		t.Fatalf("WriteInstances() = %v", err)
	}
	got := mapFloats(t, d, d.buffers[f.buf].buf, 0, 9)
	if got[0] != 0.5 || got[1] != -0.5 || got[8] != 1 {
		t.Errorf("first record = %v", got)
	}
	if err := p.Draw(f.buf, gpucore.QuadVertexCount, 2); err != nil {
		t.Fatalf("Draw() = %v", err)
	}
	if err := p.Draw(f.buf, gpucore.QuadVertexCount, 3); !errors.Is(err, gpucore.ErrBufferOverflow) {
		t.Errorf("Draw() beyond written = %v, want ErrBufferOverflow", err)
	}

	// Overwriting the buffer flushes the pending draw first.
	if err := p.WriteInstances(f.buf, records[1:]); err != nil {
		t.Fatalf("WriteInstances() = %v", err)
	}
	if got := mapFloats(t, d, d.buffers[f.buf].buf, 0, 1)[0]; got != -1 {
		t.Errorf("translation.x after rewrite = %v, want -1", got)
	}

	p.SetProgram(f.textured)
	p.SetBindings(gpucore.Bindings{Mask: f.mask, Texture: f.texture, Colormap: f.colormap})
	if err := p.Draw(f.buf, gpucore.QuadVertexCount, 1); err != nil {
		t.Fatalf("textured Draw() = %v", err)
	}
	p.SetProgram(f.plain)
	if err := p.Draw(f.buf, gpucore.QuadVertexCount, 1); err != nil {
		t.Fatalf("plain Draw() = %v", err)
	}
	if n := len(d.active.groups); n != 2 {
		t.Errorf("bind groups = %d, want 2", n)
	}

	if err := p.WriteInstances(f.buf, make([]gpucore.Instance, 5)); !errors.Is(err, gpucore.ErrBufferOverflow) {
		t.Errorf("WriteInstances() over capacity = %v, want ErrBufferOverflow", err)
	}

	if err := p.End(); err != nil {
		t.Fatalf("End() = %v", err)
	}
	if err := p.End(); !errors.Is(err, gpucore.ErrPassEnded) {
		t.Errorf("second End() = %v, want ErrPassEnded", err)
	}
	if err := p.Draw(f.buf, gpucore.QuadVertexCount, 1); !errors.Is(err, gpucore.ErrPassEnded) {
		t.Errorf("Draw() after End = %v, want ErrPassEnded", err)
	}
	if d.active != nil {
		t.Error("device still has an active pass")
	}
}

func TestPassUnknownResources(t *testing.T) {
	f := newPassFixture(t)
	d := f.d

	if _, err := d.BeginPass(gpucore.TargetID(999), [4]float32{}); !errors.Is(err, gpucore.ErrUnknownResource) {
		t.Errorf("BeginPass(unknown) = %v, want ErrUnknownResource", err)
	}

	p, err := d.BeginPass(f.target, [4]float32{})
	if err != nil {
		t.Fatalf("BeginPass() = %v", err)
	}
	defer p.End()

	if err := p.Draw(f.buf, gpucore.QuadVertexCount, 0); !errors.Is(err, gpucore.ErrUnknownResource) {
		t.Errorf("Draw() without program = %v, want ErrUnknownResource", err)
	}
	if err := p.WriteInstances(gpucore.BufferID(999), nil); !errors.Is(err, gpucore.ErrUnknownResource) {
		t.Errorf("WriteInstances(unknown) = %v, want ErrUnknownResource", err)
	}
	p.SetProgram(f.plain)
	if err := p.Draw(gpucore.BufferID(999), gpucore.QuadVertexCount, 0); !errors.Is(err, gpucore.ErrUnknownResource) {
		t.Errorf("Draw(unknown buffer) = %v, want ErrUnknownResource", err)
	}
	p.SetBindings(gpucore.Bindings{Mask: f.mask, Colormap: gpucore.TextureID(999)})
	if err := p.Draw(f.buf, gpucore.QuadVertexCount, 0); !errors.Is(err, gpucore.ErrUnknownResource) {
		t.Errorf("Draw(unknown colormap) = %v, want ErrUnknownResource", err)
	}
}

func TestProceduralDraw(t *testing.T) {
	d := newNoopDevice(t, 0)
	target, err := d.CreateTarget(4, 4)
	if err != nil {
		t.Fatalf("CreateTarget() = %v", err)
	}
	prog, err := d.CreateProgram(gpucore.ProgramDescriptor{
		Kind:   gpucore.ProgramProcedural,
		Source: shader.Procedural(shader.StripesFragment()),
	})
	if err != nil {
		t.Fatalf("CreateProgram() = %v", err)
	}
	p, err := d.BeginPass(target, [4]float32{})
	if err != nil {
		t.Fatalf("BeginPass() = %v", err)
	}
	p.SetProgram(prog)
	if err := p.Draw(gpucore.InvalidID, gpucore.QuadVertexCount, 1); err != nil {
		t.Fatalf("Draw() = %v", err)
	}
	if err := p.End(); err != nil {
		t.Fatalf("End() = %v", err)
	}
}

func TestReadPixels(t *testing.T) {
	f := newPassFixture(t)
	pix, err := f.d.ReadPixels(f.target)
	if err != nil {
		t.Fatalf("ReadPixels() = %v", err)
	}
	if len(pix) != 5*3*4 {
		t.Fatalf("len = %d, want %d", len(pix), 5*3*4)
	}
	if _, err := f.d.ReadPixels(gpucore.TargetID(999)); !errors.Is(err, gpucore.ErrUnknownResource) {
		t.Errorf("ReadPixels(unknown) = %v, want ErrUnknownResource", err)
	}
}

func TestAlignedRowBytes(t *testing.T) {
	tests := []struct {
		width int
		want  uint32
	}{
		{1, 256},
		{32, 256},
		{33, 512},
		{100, 1024},
	}
	for _, tt := range tests {
		if got := alignedRowBytes(tt.width); got != tt.want {
			t.Errorf("alignedRowBytes(%d) = %d, want %d", tt.width, got, tt.want)
		}
	}
}

func TestUnpackRows(t *testing.T) {
	// Two rows of one texel each, padded to 16 bytes per row.
	// 0x3C00 is 1.0 and 0x3800 is 0.5 in IEEE half precision.
	raw := make([]byte, 32)
	halves := []uint16{0x3C00, 0x3800, 0, 0x3C00}
	for row := range 2 {
		for i, h := range halves {
			binary.LittleEndian.PutUint16(raw[row*16+i*2:], h)
		}
	}
	got := unpackRows(raw, 1, 2, 16)
	want := []float32{1, 0.5, 0, 1, 1, 0.5, 0, 1}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("pix[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestDestroyAbortsPass(t *testing.T) {
	f := newPassFixture(t)
	d := f.d
	p, err := d.BeginPass(f.target, [4]float32{})
	if err != nil {
		t.Fatalf("BeginPass() = %v", err)
	}
	d.Destroy()
	d.Destroy()

	if err := p.End(); !errors.Is(err, gpucore.ErrPassEnded) {
		t.Errorf("End() after Destroy = %v, want ErrPassEnded", err)
	}
	if len(d.textures)+len(d.targets)+len(d.programs)+len(d.buffers) != 0 {
		t.Error("resources left after Destroy")
	}
	if got := d.MemoryStats().UsedBytes; got != 0 {
		t.Errorf("UsedBytes = %d, want 0", got)
	}
	if _, err := d.BeginPass(f.target, [4]float32{}); !errors.Is(err, ErrDeviceDestroyed) {
		t.Errorf("BeginPass() after Destroy = %v, want ErrDeviceDestroyed", err)
	}
}
