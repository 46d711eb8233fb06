// Package humanize randomizes click positions and pacing so interaction with
// the remote page does not follow a fixed pattern.
package humanize

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"NotebookSync/internal/poll"
	"NotebookSync/internal/ports"
)

// ErrBoundingBoxUnavailable is returned when the target reports no geometry.
var ErrBoundingBoxUnavailable = errors.New("bounding box unavailable")

// Point is an offset relative to an element's top-left corner.
type Point struct {
	X float64
	Y float64
}

// RandomPointIn samples a point uniformly by area from a disk centred on box.
// A non-positive radius falls back to half of the shorter side.
func RandomPointIn(rng *rand.Rand, box ports.Rect, radius float64) Point {
	cx, cy := box.Width/2, box.Height/2
	if radius <= 0 {
		radius = math.Min(box.Width, box.Height) / 2
	}

	angle := rng.Float64() * 2 * math.Pi
	r := radius * math.Sqrt(rng.Float64())

	return Point{
		X: cx + r*math.Cos(angle),
		Y: cy + r*math.Sin(angle),
	}
}

// Options tunes the clicker.
type Options struct {
	DelayMin       time.Duration
	DelayMax       time.Duration
	Radius         float64
	VisibleTimeout time.Duration
}

// Clicker clicks elements at randomized points after a randomized pause.
type Clicker struct {
	rng  *rand.Rand
	opts Options
}

// NewClicker builds a clicker; a nil rng is seeded from the clock.
func NewClicker(opts Options, rng *rand.Rand) *Clicker {
	if rng == nil {
		rng = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x9e3779b97f4a7c15))
	}
	if opts.DelayMax < opts.DelayMin {
		opts.DelayMax = opts.DelayMin
	}
	return &Clicker{rng: rng, opts: opts}
}

// Delay draws a pre-interaction pause uniformly from [DelayMin, DelayMax].
func (c *Clicker) Delay() time.Duration {
	span := c.opts.DelayMax - c.opts.DelayMin
	if span <= 0 {
		return c.opts.DelayMin
	}
	return c.opts.DelayMin + time.Duration(c.rng.Int64N(int64(span)+1))
}

// Pause sleeps for a randomized interaction delay.
func (c *Clicker) Pause(ctx context.Context) error {
	return poll.Sleep(ctx, c.Delay())
}

// Click pauses, waits for el to become visible and clicks a random point inside it.
func (c *Clicker) Click(ctx context.Context, el ports.Element) error {
	if err := c.Pause(ctx); err != nil {
		return err
	}

	if c.opts.VisibleTimeout > 0 {
		if err := el.WaitFor(ports.StateVisible, c.opts.VisibleTimeout); err != nil {
			return fmt.Errorf("wait visible: %w", err)
		}
	}

	box, err := el.BoundingBox()
	if err != nil {
		return fmt.Errorf("read bounding box: %w", err)
	}
	if box == nil || box.Width <= 0 || box.Height <= 0 {
		return ErrBoundingBoxUnavailable
	}

	p := RandomPointIn(c.rng, *box, c.opts.Radius)
	if err := el.ClickAt(p.X, p.Y); err != nil {
		return fmt.Errorf("click at (%.1f, %.1f): %w", p.X, p.Y, err)
	}
	return nil
}
