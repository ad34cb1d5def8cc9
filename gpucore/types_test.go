package gpucore

import (
	"encoding/binary"
	"math"
	"testing"
)

func TestInstanceLayout(t *testing.T) {
	in := Instance{
		Translation:     [2]float32{0.25, -0.5},
		Scale:           [2]float32{2, 3},
		ColormapScale:   [2]float32{4, 5},
		Rotation:        0.75,
		TextureRotation: 1.5,
		Gamma:           2.2,
	}
	buf := in.AppendBytes(nil)
	if len(buf) != InstanceStride {
		t.Fatalf("len = %d, want %d", len(buf), InstanceStride)
	}

	at := func(off int) float32 {
		return math.Float32frombits(binary.LittleEndian.Uint32(buf[off:]))
	}
	tests := []struct {
		name string
		off  int
		want float32
	}{
		{"translation.x", OffsetTranslation, 0.25},
		{"translation.y", OffsetTranslation + 4, -0.5},
		{"scale.x", OffsetScale, 2},
		{"scale.y", OffsetScale + 4, 3},
		{"colormap_scale.x", OffsetColormapScale, 4},
		{"colormap_scale.y", OffsetColormapScale + 4, 5},
		{"rotation", OffsetRotation, 0.75},
		{"texture_rotation", OffsetTextureRotation, 1.5},
		{"gamma", OffsetGamma, 2.2},
	}
	for _, tt := range tests {
		if got := at(tt.off); got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestEncodeInstancesReusesBuffer(t *testing.T) {
	records := make([]Instance, 3)
	buf := make([]byte, 0, 10*InstanceStride)
	out := EncodeInstances(buf, records)
	if len(out) != 3*InstanceStride {
		t.Fatalf("len = %d, want %d", len(out), 3*InstanceStride)
	}
	if &out[0] != &buf[:1][0] {
		t.Error("EncodeInstances reallocated a buffer with enough capacity")
	}
	out = EncodeInstances(out, records[:1])
	if len(out) != InstanceStride {
		t.Errorf("len after shrink = %d, want %d", len(out), InstanceStride)
	}
}

func TestFormatSizes(t *testing.T) {
	tests := []struct {
		f        TextureFormat
		channels int
		bytes    int
	}{
		{FormatR8, 1, 1},
		{FormatRGBA8, 4, 4},
		{FormatRGBA32F, 4, 16},
	}
	for _, tt := range tests {
		t.Run(tt.f.String(), func(t *testing.T) {
			if got := tt.f.Channels(); got != tt.channels {
				t.Errorf("Channels() = %d, want %d", got, tt.channels)
			}
			if got := tt.f.BytesPerTexel(); got != tt.bytes {
				t.Errorf("BytesPerTexel() = %d, want %d", got, tt.bytes)
			}
		})
	}
}
