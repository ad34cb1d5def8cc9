// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package surface

import (
	"errors"
	"image"
	"math"
	"sync"

	"github.com/gogpu/gpucontext"
)

// ErrNoPresenter is returned by Window.Present without a present function.
var ErrNoPresenter = errors.New("surface: window has no present function")

// PresentFunc hands a finished frame to the host window.
type PresentFunc func(img *image.RGBA) error

// Window adapts a host window to Surface. Size comes from the
// WindowProvider scaled to physical pixels; key and resize events are
// collected from the EventSource callbacks and drained by PollEvents.
//
// gpucontext has no close callback, so hosts call RequestClose from their
// close handler.
type Window struct {
	provider gpucontext.WindowProvider
	present  PresentFunc

	mu    sync.Mutex
	queue []Event
}

// NewWindow registers callbacks on events and returns the adapter.
// events may be nil when the host delivers no input.
func NewWindow(provider gpucontext.WindowProvider, events gpucontext.EventSource, present PresentFunc) *Window {
	w := &Window{provider: provider, present: present}
	if events == nil {
		return w
	}
	events.OnKeyPress(func(k gpucontext.Key, m gpucontext.Modifiers) {
		w.push(Event{Kind: EventKeyPress, Key: k, Mods: m})
	})
	events.OnKeyRelease(func(k gpucontext.Key, m gpucontext.Modifiers) {
		w.push(Event{Kind: EventKeyRelease, Key: k, Mods: m})
	})
	events.OnResize(func(width, height int) {
		sf := w.scale()
		w.push(Resize(physical(width, sf), physical(height, sf)))
	})
	return w
}

func (w *Window) push(e Event) {
	w.mu.Lock()
	w.queue = append(w.queue, e)
	w.mu.Unlock()
}

// RequestClose queues a close event.
func (w *Window) RequestClose() { w.push(Close()) }

func (w *Window) scale() float64 {
	sf := w.provider.ScaleFactor()
	if sf <= 0 {
		return 1
	}
	return sf
}

func physical(v int, sf float64) int {
	return int(math.Round(float64(v) * sf))
}

// Size returns the window size in physical pixels.
func (w *Window) Size() (int, int) {
	lw, lh := w.provider.Size()
	sf := w.scale()
	return physical(lw, sf), physical(lh, sf)
}

// PollEvents drains the queued events.
func (w *Window) PollEvents() []Event {
	w.mu.Lock()
	defer w.mu.Unlock()
	events := w.queue
	w.queue = nil
	return events
}

// Present passes img to the present function and requests a redraw.
func (w *Window) Present(img *image.RGBA) error {
	if w.present == nil {
		return ErrNoPresenter
	}
	if err := w.present(img); err != nil {
		return err
	}
	w.provider.RequestRedraw()
	return nil
}

var (
	_ Surface = (*Window)(nil)
	_ Surface = (*ImageSurface)(nil)
)
