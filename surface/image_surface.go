// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package surface

import (
	"image"
	"sync"
)

// ImageSurface is a headless Surface that keeps the last presented frame
// in memory. Events are scripted with Push and CloseAfter.
//
// Example:
//
//	s := surface.NewImageSurface(800, 600)
//	s.CloseAfter(10)
//	err := pipeline.Preview(s, declare)
//	frame := s.Frame()
type ImageSurface struct {
	mu         sync.Mutex
	width      int
	height     int
	queue      []Event
	frame      *image.RGBA
	frames     int
	closeAfter int
}

// NewImageSurface creates a headless surface of width x height.
// Dimensions are clamped to at least 1.
func NewImageSurface(width, height int) *ImageSurface {
	return &ImageSurface{width: max(width, 1), height: max(height, 1)}
}

// Size returns the current size.
func (s *ImageSurface) Size() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.width, s.height
}

// Push queues events for the next PollEvents. Resize events take effect
// when they are queued.
func (s *ImageSurface) Push(events ...Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range events {
		if e.Kind == EventResize && e.Width > 0 && e.Height > 0 {
			s.width, s.height = e.Width, e.Height
		}
		s.queue = append(s.queue, e)
	}
}

// CloseAfter queues a close event once n frames have been presented.
// n <= 0 disables it.
func (s *ImageSurface) CloseAfter(n int) {
	s.mu.Lock()
	s.closeAfter = n
	s.mu.Unlock()
}

// PollEvents drains the event queue.
func (s *ImageSurface) PollEvents() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	events := s.queue
	s.queue = nil
	return events
}

// Present stores a copy of img as the current frame.
func (s *ImageSurface) Present(img *image.RGBA) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := image.NewRGBA(img.Rect)
	copy(cp.Pix, img.Pix)
	s.frame = cp
	s.frames++
	if s.closeAfter > 0 && s.frames == s.closeAfter {
		s.queue = append(s.queue, Close())
	}
	return nil
}

// Frame returns the last presented frame, or nil.
func (s *ImageSurface) Frame() *image.RGBA {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frame
}

// Frames returns the number of presented frames.
func (s *ImageSurface) Frames() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames
}
