// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package surface

import (
	"fmt"
	"image"

	"github.com/gogpu/gpucontext"
)

// Surface is the presentation target of the preview loop.
//
// A Surface is driven from the goroutine that created it; windowing layers
// require it.
type Surface interface {
	// Size returns the drawable size in physical pixels.
	Size() (width, height int)

	// PollEvents returns the events queued since the previous call.
	PollEvents() []Event

	// Present displays a frame. img holds premultiplied RGBA and has the
	// size reported by Size when the frame started.
	Present(img *image.RGBA) error
}

// EventKind identifies an input or window event.
type EventKind uint8

// Event kinds.
const (
	// EventClose is sent when the window is closed.
	EventClose EventKind = iota + 1

	// EventKeyPress is sent when a key goes down.
	EventKeyPress

	// EventKeyRelease is sent when a key goes up.
	EventKeyRelease

	// EventResize is sent when the drawable size changes.
	EventResize
)

func (k EventKind) String() string {
	switch k {
	case EventClose:
		return "close"
	case EventKeyPress:
		return "key-press"
	case EventKeyRelease:
		return "key-release"
	case EventResize:
		return "resize"
	default:
		return fmt.Sprintf("EventKind(%d)", uint8(k))
	}
}

// Event is one polled event. Key and Mods are set for key events; Width
// and Height for resize events.
type Event struct {
	Kind   EventKind
	Key    gpucontext.Key
	Mods   gpucontext.Modifiers
	Width  int
	Height int
}

// Close returns a close event.
func Close() Event { return Event{Kind: EventClose} }

// KeyPress returns a key press event.
func KeyPress(k gpucontext.Key) Event { return Event{Kind: EventKeyPress, Key: k} }

// KeyRelease returns a key release event.
func KeyRelease(k gpucontext.Key) Event { return Event{Kind: EventKeyRelease, Key: k} }

// Resize returns a resize event.
func Resize(width, height int) Event { return Event{Kind: EventResize, Width: width, Height: height} }

// Quits reports whether e ends a preview loop: a close event or the release
// of Escape.
func (e Event) Quits() bool {
	return e.Kind == EventClose || (e.Kind == EventKeyRelease && e.Key == gpucontext.KeyEscape)
}
