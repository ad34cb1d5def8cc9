package main

import (
	"flag"
	"fmt"
	"image"
	"log"
	"math"
	"math/rand/v2"
	"os"

	"github.com/dustin/go-humanize"

	"github.com/gogpu/dali"
	"github.com/gogpu/dali/gpu"
	"github.com/gogpu/dali/gpucore"
	"github.com/gogpu/dali/imageio"
	"github.com/gogpu/dali/software"
	"github.com/gogpu/dali/surface"
)

func renderFlags(fs *flag.FlagSet, f *Config) {
	fs.StringVar(&f.Device, "device", "", "software, gpu, or a GPU backend name: "+fmt.Sprint(gpu.Backends()))
	fs.IntVar(&f.Width, "width", 0, "render width (default 900)")
	fs.IntVar(&f.Height, "height", 0, "render height (default 900)")
	fs.StringVar(&f.Colormap, "colormap", "", "colormap image (default: procedural)")
	fs.IntVar(&f.Passes, "passes", 0, "stipple passes over the canvas (default 48)")
	fs.Uint64Var(&f.Seed, "seed", 0, "random seed (default 1)")
	fs.IntVar(&f.MemoryMB, "memory", 0, "GPU memory budget in MiB (default 1024)")
}

func runRender(args []string) {
	cfg, _ := parseConfig("render", args, func(fs *flag.FlagSet, f *Config) {
		renderFlags(fs, f)
		fs.IntVar(&f.OutWidth, "out-width", 0, "output width (default render width)")
		fs.IntVar(&f.OutHeight, "out-height", 0, "output height (default render height)")
		fs.StringVar(&f.Output, "out", "", "output file; format by extension (default dali.png)")
	})

	p := newPipeline(cfg)
	defer p.Destroy()
	art, err := newPainting(p, cfg)
	if err != nil {
		log.Fatalf("render: %v", err)
	}

	img, err := p.RenderSized(dali.Size{Width: cfg.OutWidth, Height: cfg.OutHeight}, art.declare)
	if err != nil {
		log.Fatalf("render: %v", err)
	}
	size, err := save(cfg.Output, img)
	if err != nil {
		log.Fatalf("render: %v", err)
	}
	st := p.LastFrame()
	log.Printf("rendered %s on %s: %d instances in %d draw calls, saved %s (%s)",
		st.Size, p.Device().Name(), st.Instances, st.DrawCalls, cfg.Output,
		humanize.Bytes(uint64(size)))
}

// save writes img to path and returns the size of the written file.
func save(path string, img image.Image) (int64, error) {
	if err := imageio.Save(path, img); err != nil {
		return 0, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

func runPreview(args []string) {
	var out string
	cfg, _ := parseConfig("preview", args, func(fs *flag.FlagSet, f *Config) {
		renderFlags(fs, f)
		fs.IntVar(&f.Frames, "frames", 0, "close the image surface after n frames (default 60)")
		fs.StringVar(&f.Surface, "surface", "", "surface backend: "+fmt.Sprint(surface.List()))
		fs.StringVar(&out, "out", "", "save the last presented frame")
	})
	frames := cfg.Frames
	if frames <= 0 {
		frames = 60
	}

	s, err := surface.NewByName(cfg.Surface, cfg.Width, cfg.Height)
	if err != nil {
		log.Fatalf("preview: %v", err)
	}
	img, headless := s.(*surface.ImageSurface)
	if headless {
		img.CloseAfter(frames)
	}

	p := newPipeline(cfg)
	defer p.Destroy()
	art, err := newPainting(p, cfg)
	if err != nil {
		log.Fatalf("preview: %v", err)
	}
	if err := p.Preview(s, art.declare); err != nil {
		log.Fatalf("preview: %v", err)
	}
	if !headless {
		return
	}
	log.Printf("previewed %d frames on %s", img.Frames(), p.Device().Name())
	if out != "" && img.Frame() != nil {
		if err := imageio.Save(out, img.Frame()); err != nil {
			log.Fatalf("preview: %v", err)
		}
	}
}

// newPipeline opens the configured device and wraps it in a pipeline.
func newPipeline(cfg Config) *dali.Pipeline {
	var dev gpucore.Device
	switch cfg.Device {
	case "software", "cpu":
		dev = software.New()
	default:
		backend := cfg.Device
		if backend == "gpu" {
			backend = "auto"
		}
		d, err := gpu.Open(gpu.Options{Backend: backend, MaxMemoryMB: cfg.MemoryMB, Logger: dali.Logger()})
		if err != nil {
			log.Fatalf("open %s device: %v", cfg.Device, err)
		}
		dev = d
	}
	p, err := dali.New(dev, dali.WithRenderSize(cfg.Width, cfg.Height))
	if err != nil {
		dev.Destroy()
		log.Fatalf("create pipeline: %v", err)
	}
	for _, w := range p.Warnings() {
		log.Printf("warning: %s", w)
	}
	return p
}

// painting is the demo canvas: passes of large soft discs stretched along
// the colormap, then small striped discs.
type painting struct {
	colormap *dali.ColormapHandle
	disc     *dali.MaskHandle
	stripes  *dali.TextureHandle
	passes   int
	seed     uint64
}

func newPainting(p *dali.Pipeline, cfg Config) (*painting, error) {
	art := &painting{passes: cfg.Passes, seed: cfg.Seed}
	var err error
	if cfg.Colormap != "" {
		img, err := imageio.Load(cfg.Colormap)
		if err != nil {
			return nil, err
		}
		if art.colormap, err = p.Colormap(img); err != nil {
			return nil, err
		}
	} else if art.colormap, err = p.ColormapFunc(dali.ScaleOf(0.25), dusk); err != nil {
		return nil, err
	}
	if art.disc, err = p.RenderMask(dali.DiscRenderer(256)); err != nil {
		return nil, err
	}
	if art.stripes, err = p.RenderTexture(dali.StripesRenderer(256)); err != nil {
		return nil, err
	}
	return art, nil
}

// dusk is a vertical gradient from deep blue to orange with a warm band
// near the horizon.
func dusk(x, y float32) [4]float32 {
	band := float32(math.Exp(-math.Pow(float64(y-0.7)*6, 2)))
	return [4]float32{
		0.1 + 0.8*y + 0.1*band,
		0.1 + 0.3*y + 0.3*band*x,
		0.4 - 0.3*y,
		1,
	}
}

// declare draws the same painting on every call for a given seed.
func (art *painting) declare(c *dali.CanvasGate) {
	rng := rand.New(rand.NewPCG(art.seed, art.seed^0x9e3779b97f4a7c15))
	pos := func() (float32, float32) {
		return rng.Float32()*2 - 1, rng.Float32()*2 - 1
	}
	tilt := func() float32 {
		return (rng.Float32()*0.1 - 0.05) * 2 * math.Pi
	}

	c.Layer(art.colormap, func(l *dali.LayerGate) {
		for range art.passes {
			l.Stipple(art.disc, func(s *dali.StippleGate) {
				for range 10 {
					s.Draw(dali.NewStipple().
						WithScale(0.275, 0.275).
						WithColormapScale(0.04, 2).
						WithTranslation(pos()).
						WithRotation(tilt()).
						WithGamma(0.8))
				}
			})
			l.StippleWithTexture(art.disc, art.stripes, func(s *dali.StippleGate) {
				for range 20 {
					s.Draw(dali.NewStipple().
						WithScale(0.05, 0.05).
						WithColormapScale(0.8, 0.8).
						WithTranslation(pos()).
						WithRotation(tilt()).
						WithTextureRotation(rng.Float32() * 2 * math.Pi).
						WithGamma(0.9))
				}
			})
		}
	})
}
