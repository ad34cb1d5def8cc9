package dali

import (
	"log/slog"

	"golang.org/x/image/draw"
)

// Option configures a Pipeline during creation.
//
// Example:
//
//	p, err := dali.New(dev,
//	    dali.WithRenderSize(4096, 3072),
//	    dali.WithResampler(draw.BiLinear),
//	)
type Option func(*options)

type options struct {
	renderSize Size
	discard    float32
	resampler  draw.Interpolator
	logger     *slog.Logger
}

// DefaultRenderSize is the render size used when WithRenderSize is not given.
var DefaultRenderSize = Size{Width: 1024, Height: 1024}

func defaultOptions() options {
	return options{
		renderSize: DefaultRenderSize,
		discard:    0,
		resampler:  draw.CatmullRom,
	}
}

// WithRenderSize sets the internal render resolution used by Render and by
// ScaleOf colormaps.
func WithRenderSize(width, height int) Option {
	return func(o *options) {
		o.renderSize = Size{Width: width, Height: height}
	}
}

// WithDiscardThreshold sets the discard_threshold uniform. Fragments whose
// alpha does not exceed it are dropped. The default 0 keeps every
// fragment that contributes.
func WithDiscardThreshold(t float32) Option {
	return func(o *options) {
		o.discard = t
	}
}

// WithResampler sets the interpolator used when the output size differs
// from the render size. The default is draw.CatmullRom.
func WithResampler(i draw.Interpolator) Option {
	return func(o *options) {
		if i != nil {
			o.resampler = i
		}
	}
}

// WithLogger gives the pipeline its own logger instead of the package
// logger configured by SetLogger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}
