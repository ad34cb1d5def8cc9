package dali

import (
	"errors"

	"github.com/gogpu/dali/shader"
)

// Errors returned by the pipeline. Failures are wrapped with context, so
// test them with errors.Is.
var (
	// ErrNilDevice is returned by New when no device is given.
	ErrNilDevice = errors.New("dali: nil device")

	// ErrZeroSize is returned when an image, colormap or render size has a
	// zero dimension.
	ErrZeroSize = errors.New("dali: zero size")

	// ErrTextureTooLarge is returned when a dimension exceeds the device limit.
	ErrTextureTooLarge = errors.New("dali: texture exceeds device limit")

	// ErrPixelBuffer is returned when a pixel buffer is shorter than its
	// declared dimensions require.
	ErrPixelBuffer = errors.New("dali: pixel buffer too short")

	// ErrInvalidHandle is returned when a declaration binds a nil,
	// destroyed or foreign handle.
	ErrInvalidHandle = errors.New("dali: invalid handle")

	// ErrShaderCompile wraps every shader compilation failure.
	ErrShaderCompile = shader.ErrCompile

	// ErrReadback is returned when read-back pixels do not match the
	// target size.
	ErrReadback = errors.New("dali: read-back size mismatch")

	// ErrBusy is returned when a render starts while another is executing.
	ErrBusy = errors.New("dali: pipeline busy")

	// ErrDestroyed is returned by every operation after Destroy.
	ErrDestroyed = errors.New("dali: pipeline destroyed")
)
