package dali

import (
	"fmt"
	"time"

	"github.com/gogpu/dali/surface"
)

// hiddenPoll is the wait between event polls while the surface has no
// area, such as a minimized window.
const hiddenPoll = 16 * time.Millisecond

// Preview renders the canvas declared by f into s until a close event or
// the release of Escape. f runs once per frame, so animated declarations
// see every frame. Each frame renders at the current surface size;
// resizes only add entries to the target cache.
//
// While the surface reports a zero size nothing is declared, rendered or
// presented; the loop keeps polling events.
//
// Frames keep their alpha channel: presented pixels are premultiplied.
func (p *Pipeline) Preview(s surface.Surface, f func(*CanvasGate)) error {
	if err := p.alive(); err != nil {
		return err
	}
	for frame := 0; ; frame++ {
		for _, e := range s.PollEvents() {
			if e.Quits() {
				p.logger().Debug("dali: preview stopped", "event", e.Kind.String(), "frames", frame)
				return nil
			}
		}

		w, h := s.Size()
		size := Size{Width: w, Height: h}
		if size.IsZero() {
			time.Sleep(hiddenPoll)
			continue
		}
		pix, stats, err := p.frame(size, f)
		if err != nil {
			return fmt.Errorf("dali: preview frame %d: %w", frame, err)
		}
		img, err := toRGBA(pix, size, false)
		if err != nil {
			return err
		}
		if err := s.Present(img); err != nil {
			return fmt.Errorf("dali: present frame %d: %w", frame, err)
		}
		p.finish(stats)
	}
}
