package image

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/gogpu/dali/gpucore"
)

func TestMaxLevels(t *testing.T) {
	tests := []struct{ w, h, want int }{
		{1, 1, 1},
		{2, 2, 2},
		{64, 64, 7},
		{64, 16, 7},
		{5, 3, 3},
		{128, 64, 8},
	}
	for _, tt := range tests {
		if got := MaxLevels(tt.w, tt.h); got != tt.want {
			t.Errorf("MaxLevels(%d, %d) = %d, want %d", tt.w, tt.h, got, tt.want)
		}
	}
}

func TestDecode(t *testing.T) {
	lv := Decode(gpucore.FormatR8, 2, 1, []byte{0, 255})
	if lv.Channels != 1 || lv.Data[0] != 0 || lv.Data[1] != 1 {
		t.Errorf("r8 decode = %+v", lv)
	}

	var pix []byte
	for _, v := range []float32{0.25, 0.5, 0.75, 1} {
		pix = binary.LittleEndian.AppendUint32(pix, math.Float32bits(v))
	}
	lv = Decode(gpucore.FormatRGBA32F, 1, 1, pix)
	if got := lv.Texel(0, 0); got[0] != 0.25 || got[3] != 1 {
		t.Errorf("rgba32f texel = %v", got)
	}
}

func TestGenerateMipmaps(t *testing.T) {
	tests := []struct {
		name      string
		w, h, n   int
		wantCount int
		lastW     int
		lastH     int
	}{
		{"single", 16, 16, 0, 1, 16, 16},
		{"three", 16, 16, 3, 3, 4, 4},
		{"clamped", 4, 2, 10, 3, 1, 1},
		{"odd", 5, 3, 3, 3, 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			levels := GenerateMipmaps(NewLevel(tt.w, tt.h, 4), tt.n)
			if len(levels) != tt.wantCount {
				t.Fatalf("levels = %d, want %d", len(levels), tt.wantCount)
			}
			last := levels[len(levels)-1]
			if last.Width != tt.lastW || last.Height != tt.lastH {
				t.Errorf("last level = %dx%d, want %dx%d", last.Width, last.Height, tt.lastW, tt.lastH)
			}
		})
	}
}

func TestDownsampleAverages(t *testing.T) {
	src := NewLevel(2, 2, 1)
	copy(src.Data, []float32{0, 1, 1, 0})
	dst := Downsample(src)
	if dst.Width != 1 || dst.Data[0] != 0.5 {
		t.Errorf("Downsample = %+v, want single 0.5 texel", dst)
	}

	odd := NewLevel(3, 1, 1)
	copy(odd.Data, []float32{1, 1, 0})
	if got := Downsample(odd).Data[0]; got != 1 {
		t.Errorf("odd edge average = %v, want 1", got)
	}
}

func TestUnorm8(t *testing.T) {
	lv := NewLevel(5, 1, 1)
	copy(lv.Data, []float32{-1, 0, 0.5, 1, float32(math.NaN())})
	got := lv.Unorm8()
	want := []byte{0, 0, 128, 255, 0}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Unorm8[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestFloat16RoundTrip(t *testing.T) {
	lv := NewLevel(1, 1, 4)
	copy(lv.Data, []float32{0, 0.5, 1, 2})
	enc := lv.Float16()
	if len(enc) != 8 {
		t.Fatalf("encoded %d bytes, want 8", len(enc))
	}
	dec := DecodeFloat16(enc)
	for i, v := range lv.Data {
		if dec[i] != v {
			t.Errorf("channel %d = %v, want %v", i, dec[i], v)
		}
	}
}
