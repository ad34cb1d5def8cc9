package imageio

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"path/filepath"
	"testing"
)

func testImage(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 16), G: uint8(y * 16), B: 128, A: 255})
		}
	}
	return img
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Format
	}{
		{"png", FormatPNG},
		{".PNG", FormatPNG},
		{"jpg", FormatJPEG},
		{"jpeg", FormatJPEG},
		{"bmp", FormatBMP},
		{".webp", FormatWebP},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("ParseFormat(%q) = %v, %v, want %v", tt.in, got, err, tt.want)
		}
	}
	if _, err := ParseFormat("tga"); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("ParseFormat(tga) error = %v, want ErrUnsupportedFormat", err)
	}
	if _, err := FormatOf("painting"); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("FormatOf without extension error = %v", err)
	}
}

func TestFormatExt(t *testing.T) {
	for f, want := range map[Format]string{FormatPNG: ".png", FormatJPEG: ".jpg", FormatBMP: ".bmp", FormatWebP: ".webp"} {
		if got := f.Ext(); got != want {
			t.Errorf("%v.Ext() = %q, want %q", f, got, want)
		}
	}
}

func TestEncodeDecode(t *testing.T) {
	src := testImage(8, 6)
	for _, f := range []Format{FormatPNG, FormatJPEG, FormatBMP, FormatWebP} {
		t.Run(f.String(), func(t *testing.T) {
			var buf bytes.Buffer
			if err := Encode(&buf, src, f); err != nil {
				t.Fatalf("Encode() = %v", err)
			}
			img, err := LoadBytes(buf.Bytes())
			if err != nil {
				t.Fatalf("LoadBytes() = %v", err)
			}
			if img.Bounds().Dx() != 8 || img.Bounds().Dy() != 6 {
				t.Fatalf("bounds = %v, want 8x6", img.Bounds())
			}
			if f == FormatJPEG {
				return
			}
			got := color.NRGBAModel.Convert(img.At(3, 2)).(color.NRGBA)
			if got != src.NRGBAAt(3, 2) {
				t.Errorf("(3,2) = %v, want %v", got, src.NRGBAAt(3, 2))
			}
		})
	}
}

func TestEncodeUnsupported(t *testing.T) {
	if err := Encode(&bytes.Buffer{}, testImage(1, 1), Format(0)); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("Encode(0) error = %v, want ErrUnsupportedFormat", err)
	}
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.png")
	if err := Save(path, testImage(4, 4)); err != nil {
		t.Fatalf("Save() = %v", err)
	}
	img, err := Load(path)
	if err != nil {
		t.Fatalf("Load() = %v", err)
	}
	if img.Bounds() != image.Rect(0, 0, 4, 4) {
		t.Errorf("bounds = %v", img.Bounds())
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.png")); err == nil {
		t.Error("Load(missing) succeeded")
	}
	if _, err := LoadBytes(nil); !errors.Is(err, ErrEmptyData) {
		t.Errorf("LoadBytes(nil) error = %v, want ErrEmptyData", err)
	}
}

func TestToGray(t *testing.T) {
	g := ToGray(testImage(5, 3))
	if g.Rect != image.Rect(0, 0, 5, 3) || g.Stride != 5 {
		t.Errorf("rect %v stride %d", g.Rect, g.Stride)
	}
	same := image.NewGray(image.Rect(0, 0, 2, 2))
	if ToGray(same) != same {
		t.Error("packed gray image was copied")
	}
	offset := image.NewGray(image.Rect(3, 3, 5, 5))
	offset.SetGray(3, 3, color.Gray{Y: 42})
	if got := ToGray(offset); got.GrayAt(0, 0).Y != 42 {
		t.Errorf("origin not moved: %d", got.GrayAt(0, 0).Y)
	}
}

func TestCenterSquare(t *testing.T) {
	tests := []struct {
		w, h int
		want image.Rectangle
	}{
		{4, 4, image.Rect(0, 0, 4, 4)},
		{10, 4, image.Rect(3, 0, 7, 4)},
		{4, 9, image.Rect(0, 2, 4, 6)},
	}
	for _, tt := range tests {
		if got := CenterSquare(testImage(tt.w, tt.h)); got != tt.want {
			t.Errorf("CenterSquare(%dx%d) = %v, want %v", tt.w, tt.h, got, tt.want)
		}
	}
}

func TestSquareGray(t *testing.T) {
	for _, size := range []int{4, 16} {
		g := SquareGray(testImage(8, 12), size)
		if g.Rect != image.Rect(0, 0, size, size) {
			t.Errorf("SquareGray(%d) bounds = %v", size, g.Rect)
		}
	}
}

func TestResize(t *testing.T) {
	out := Resize(testImage(8, 8), 13, 5)
	if out.Bounds() != image.Rect(0, 0, 13, 5) {
		t.Errorf("bounds = %v, want 13x5", out.Bounds())
	}
}
