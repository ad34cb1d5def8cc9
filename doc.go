// Package dali renders layered stipple paintings.
//
// # Overview
//
// A painting is declared per render as a canvas of layers. Each layer binds
// a colormap and holds ordered batches; each batch places many instances
// ("stipples") of one mask, optionally modulated by a texture. The
// pipeline turns the declaration into instanced draw calls on a
// gpucore.Device, either a GPU (package gpu) or the CPU reference device
// (package software).
//
// # Quick Start
//
//	dev, err := gpu.Open(gpu.Options{})
//	if err != nil {
//	    dev = software.New()
//	}
//	p, err := dali.New(dev, dali.WithRenderSize(2048, 2048))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer p.Destroy()
//
//	mask, _ := p.RenderMask(dali.DiscRenderer(256))
//	colors, _ := p.ColormapFunc(dali.ScaleOf(0.25), func(x, y float32) [4]float32 {
//	    return [4]float32{x, y, 0.5, 1}
//	})
//
//	img, err := p.RenderSized(dali.Size{Width: 1024, Height: 1024}, func(c *dali.CanvasGate) {
//	    c.Layer(colors, func(l *dali.LayerGate) {
//	        l.Stipple(mask, func(s *dali.StippleGate) {
//	            s.Draw(dali.NewStipple().WithScale(0.1, 0.1))
//	        })
//	    })
//	})
//
// # Coordinate System
//
// Stipple translations are in normalized device coordinates: the canvas
// spans [-1,1] on both axes with y up. Scales are relative to the canvas
// height; the aspect ratio is applied to x so stipples keep their shape on
// non-square canvases.
//
// # Compositing
//
// Shaders output premultiplied color and the pipeline blends with
// (One, OneMinusSrcAlpha). Targets are cleared to transparent black.
// Offscreen renders force alpha to 255 without un-premultiplying, so
// exported files match the preview.
//
// # Resources
//
// Handles are owned by the caller and borrowed by declarations. Render
// targets are cached per size for the lifetime of the pipeline.
// Pipeline.Destroy releases everything, including the device.
package dali
