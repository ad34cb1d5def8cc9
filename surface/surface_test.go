// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package surface

import (
	"errors"
	"image"
	"testing"

	"github.com/gogpu/gpucontext"
)

func TestEventQuits(t *testing.T) {
	tests := []struct {
		name string
		e    Event
		want bool
	}{
		{"close", Close(), true},
		{"escape release", KeyRelease(gpucontext.KeyEscape), true},
		{"escape press", KeyPress(gpucontext.KeyEscape), false},
		{"other release", KeyRelease(gpucontext.KeySpace), false},
		{"resize", Resize(10, 10), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.e.Quits(); got != tt.want {
				t.Errorf("Quits() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewImageSurfaceInvalidSize(t *testing.T) {
	s := NewImageSurface(0, -3)
	if w, h := s.Size(); w != 1 || h != 1 {
		t.Errorf("Size() = %dx%d, want 1x1", w, h)
	}
}

func TestImageSurfaceEvents(t *testing.T) {
	s := NewImageSurface(100, 50)
	s.Push(KeyPress(gpucontext.KeyA), Resize(200, 80))

	if w, h := s.Size(); w != 200 || h != 80 {
		t.Errorf("Size() after resize = %dx%d, want 200x80", w, h)
	}
	events := s.PollEvents()
	if len(events) != 2 {
		t.Fatalf("PollEvents() returned %d events, want 2", len(events))
	}
	if events[0].Kind != EventKeyPress || events[1].Kind != EventResize {
		t.Errorf("event kinds = %v, %v", events[0].Kind, events[1].Kind)
	}
	if len(s.PollEvents()) != 0 {
		t.Error("queue not drained")
	}
}

func TestImageSurfaceCloseAfter(t *testing.T) {
	s := NewImageSurface(4, 4)
	s.CloseAfter(2)
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))

	_ = s.Present(img)
	if len(s.PollEvents()) != 0 {
		t.Fatal("close queued after first frame")
	}
	img.Pix[0] = 7
	_ = s.Present(img)
	events := s.PollEvents()
	if len(events) != 1 || events[0].Kind != EventClose {
		t.Fatalf("events after second frame = %v, want one close", events)
	}
	if s.Frames() != 2 {
		t.Errorf("Frames() = %d, want 2", s.Frames())
	}
	img.Pix[0] = 9
	if got := s.Frame().Pix[0]; got != 7 {
		t.Errorf("stored frame aliases the input: Pix[0] = %d, want 7", got)
	}
}

type recordingEvents struct {
	gpucontext.NullEventSource
	press   func(gpucontext.Key, gpucontext.Modifiers)
	release func(gpucontext.Key, gpucontext.Modifiers)
	resize  func(int, int)
}

func (r *recordingEvents) OnKeyPress(f func(gpucontext.Key, gpucontext.Modifiers))   { r.press = f }
func (r *recordingEvents) OnKeyRelease(f func(gpucontext.Key, gpucontext.Modifiers)) { r.release = f }
func (r *recordingEvents) OnResize(f func(int, int))                                 { r.resize = f }

func TestWindowAdapter(t *testing.T) {
	events := &recordingEvents{}
	var presented int
	w := NewWindow(gpucontext.NullWindowProvider{W: 400, H: 300, SF: 2}, events, func(*image.RGBA) error {
		presented++
		return nil
	})

	if gw, gh := w.Size(); gw != 800 || gh != 600 {
		t.Errorf("Size() = %dx%d, want 800x600", gw, gh)
	}

	events.press(gpucontext.KeyEscape, 0)
	events.resize(500, 250)
	events.release(gpucontext.KeyEscape, 0)
	w.RequestClose()

	got := w.PollEvents()
	if len(got) != 4 {
		t.Fatalf("PollEvents() returned %d events, want 4", len(got))
	}
	if got[1].Width != 1000 || got[1].Height != 500 {
		t.Errorf("resize = %dx%d, want 1000x500", got[1].Width, got[1].Height)
	}
	if !got[2].Quits() || !got[3].Quits() {
		t.Error("escape release and close should quit")
	}

	if err := w.Present(image.NewRGBA(image.Rect(0, 0, 1, 1))); err != nil {
		t.Fatalf("Present: %v", err)
	}
	if presented != 1 {
		t.Errorf("present calls = %d, want 1", presented)
	}
}

func TestWindowWithoutPresenter(t *testing.T) {
	w := NewWindow(gpucontext.NullWindowProvider{W: 1, H: 1}, nil, nil)
	if err := w.Present(image.NewRGBA(image.Rect(0, 0, 1, 1))); !errors.Is(err, ErrNoPresenter) {
		t.Errorf("Present() error = %v, want ErrNoPresenter", err)
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	if _, err := r.New(1, 1); !errors.Is(err, ErrNoBackendAvailable) {
		t.Errorf("empty registry error = %v", err)
	}
	r.Register("low", 1, func(w, h int) (Surface, error) { return NewImageSurface(w, h), nil }, nil)
	r.Register("off", 50, nil, func() bool { return false })
	r.Register("high", 5, func(w, h int) (Surface, error) { return NewImageSurface(w*2, h), nil }, nil)

	if names := r.List(); len(names) != 3 || names[0] != "off" || names[1] != "high" {
		t.Errorf("List() = %v", names)
	}
	s, err := r.New(3, 3)
	if err != nil {
		t.Fatal(err)
	}
	if w, _ := s.Size(); w != 6 {
		t.Errorf("New picked wrong backend, width %d", w)
	}
	var unavailable *BackendUnavailableError
	if _, err := r.NewByName("off", 1, 1); !errors.As(err, &unavailable) {
		t.Errorf("NewByName(off) error = %v", err)
	}
	var notFound *BackendNotFoundError
	if _, err := r.NewByName("nope", 1, 1); !errors.As(err, &notFound) {
		t.Errorf("NewByName(nope) error = %v", err)
	}
}

func TestDefaultImageBackend(t *testing.T) {
	s, err := NewByName("image", 8, 6)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := s.(*ImageSurface); !ok {
		t.Errorf("image backend returned %T", s)
	}
}
