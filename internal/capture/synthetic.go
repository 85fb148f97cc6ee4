package capture

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"math/rand"
	"sync/atomic"
	"time"

	"dualcam/internal/frame"

	"go.uber.org/zap"
)

// Options configures a synthetic camera
type Options struct {
	Source   frame.Source
	Width    int
	Height   int
	FPS      int
	DropRate float64 // Probability in [0, 1) that a tick delivers nothing
	Seed     int64
}

// Stats counts deliveries of one camera
type Stats struct {
	Delivered uint64
	Dropped   uint64
}

// Camera produces moving test-pattern frames at a fixed rate, standing in
// for a hardware capture session
type Camera struct {
	opts   Options
	rng    *rand.Rand
	logger *zap.Logger

	running   atomic.Bool
	frameSeq  atomic.Uint64
	delivered atomic.Uint64
	dropped   atomic.Uint64
}

// NewCamera validates opts and creates a stopped camera
func NewCamera(opts Options, logger *zap.Logger) (*Camera, error) {
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, fmt.Errorf("capture: invalid frame size %dx%d", opts.Width, opts.Height)
	}
	if opts.FPS <= 0 {
		return nil, fmt.Errorf("capture: invalid fps %d", opts.FPS)
	}
	if opts.DropRate < 0 || opts.DropRate >= 1 {
		return nil, fmt.Errorf("capture: drop rate %v outside [0, 1)", opts.DropRate)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Camera{
		opts:   opts,
		rng:    rand.New(rand.NewSource(opts.Seed)),
		logger: logger.Named("capture").With(zap.String("source", string(opts.Source))),
	}, nil
}

// Run delivers frames to deliver until ctx is done. Timestamps are measured
// from the start of Run. Deliveries are sequential.
func (c *Camera) Run(ctx context.Context, deliver func(*frame.Frame)) error {
	if !c.running.CompareAndSwap(false, true) {
		return fmt.Errorf("capture: %s camera already running", c.opts.Source)
	}
	defer c.running.Store(false)

	ticker := time.NewTicker(time.Second / time.Duration(c.opts.FPS))
	defer ticker.Stop()

	start := time.Now()
	c.logger.Info("capture started", zap.Int("fps", c.opts.FPS))

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("capture stopped",
				zap.Uint64("delivered", c.delivered.Load()),
				zap.Uint64("dropped", c.dropped.Load()),
			)
			return nil
		case <-ticker.C:
			seq := c.frameSeq.Add(1)
			if c.opts.DropRate > 0 && c.rng.Float64() < c.opts.DropRate {
				c.dropped.Add(1)
				continue
			}
			deliver(frame.New(c.pattern(seq), time.Since(start), c.opts.Source))
			c.delivered.Add(1)
		}
	}
}

// IsRunning reports whether Run is active
func (c *Camera) IsRunning() bool {
	return c.running.Load()
}

// Stats returns delivery counters
func (c *Camera) Stats() Stats {
	return Stats{Delivered: c.delivered.Load(), Dropped: c.dropped.Load()}
}

// pattern draws a tinted background with a bar that moves every frame.
// Frames are freshly allocated since consumers may retain them.
func (c *Camera) pattern(seq uint64) *image.RGBA {
	w, h := c.opts.Width, c.opts.Height
	img := image.NewRGBA(image.Rect(0, 0, w, h))

	bg := color.RGBA{40, 40, 160, 255}
	if c.opts.Source == frame.SourceFront {
		bg = color.RGBA{160, 60, 40, 255}
	}
	barW := w / 16
	if barW < 1 {
		barW = 1
	}
	barX := int(seq*uint64(barW)) % w

	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+w*4]
		for x := 0; x < w; x++ {
			px := bg
			if x >= barX && x < barX+barW {
				px = color.RGBA{240, 240, 240, 255}
			}
			row[x*4], row[x*4+1], row[x*4+2], row[x*4+3] = px.R, px.G, px.B, px.A
		}
	}
	return img
}
