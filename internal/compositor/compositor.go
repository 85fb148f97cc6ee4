package compositor

import (
	"errors"
	"fmt"
	"sync/atomic"

	"dualcam/internal/bufferpool"
	"dualcam/internal/composite"
	"dualcam/internal/frame"
	"dualcam/internal/lifecycle"
	"dualcam/internal/orient"
	"dualcam/internal/render"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Config is fixed for the lifetime of a Compositor.
// Build a new Compositor to change any of it.
type Config struct {
	Width        int
	Height       int
	Orientation  frame.Orientation
	OrientInputs bool   // Rotate/mirror inputs before compositing
	Interpolator string // bilinear (default), catmullrom or nearest

	Layout string // stacked (default) or pip
	PiP    composite.PiPOptions

	MinBuffers int
	Burst      int
	MaxBuffers int
	Allocator  bufferpool.Allocator
}

// Stats is a snapshot of compositor activity
type Stats struct {
	State           lifecycle.State
	Session         uuid.UUID
	Composed        uint64
	Degraded        uint64 // Outputs built from a single camera
	CacheFallbacks  uint64 // Outputs that used the cached front frame
	DroppedNoInput  uint64
	DroppedShutdown uint64
	DroppedBuffer   uint64 // Pool exhausted or drained
	Pool            bufferpool.Stats
	Render          render.Stats
}

// Compositor merges front and back camera frames into pooled output frames.
// Composite may be called concurrently, typically once per camera delivery.
type Compositor struct {
	cfg    Config
	size   composite.Size
	layout composite.Layout
	pool   *bufferpool.Pool
	render *render.Context
	life   *lifecycle.Controller
	logger *zap.Logger

	composed        atomic.Uint64
	degraded        atomic.Uint64
	cacheFallbacks  atomic.Uint64
	droppedNoInput  atomic.Uint64
	droppedShutdown atomic.Uint64
	droppedBuffer   atomic.Uint64
}

// New validates cfg and builds a compositor in the idle state
func New(cfg Config, logger *zap.Logger) (*Compositor, error) {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("compositor: invalid output size %dx%d", cfg.Width, cfg.Height)
	}
	if cfg.Orientation == "" {
		cfg.Orientation = frame.OrientationUnknown
	}
	if _, err := frame.ParseOrientation(string(cfg.Orientation)); err != nil {
		return nil, fmt.Errorf("compositor: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	layout, err := composite.NewLayout(cfg.Layout, cfg.PiP)
	if err != nil {
		return nil, fmt.Errorf("compositor: %w", err)
	}
	rc, err := render.NewContext(cfg.Interpolator)
	if err != nil {
		return nil, fmt.Errorf("compositor: %w", err)
	}
	pool, err := bufferpool.New(bufferpool.Options{
		Width:      cfg.Width,
		Height:     cfg.Height,
		MinBuffers: cfg.MinBuffers,
		Burst:      cfg.Burst,
		MaxBuffers: cfg.MaxBuffers,
		Allocator:  cfg.Allocator,
	})
	if err != nil {
		return nil, fmt.Errorf("compositor: %w", err)
	}

	c := &Compositor{
		cfg:    cfg,
		size:   composite.Size{W: cfg.Width, H: cfg.Height},
		layout: layout,
		pool:   pool,
		render: rc,
		life:   lifecycle.NewController(),
		logger: logger.Named("compositor"),
	}

	c.logger.Info("compositor ready",
		zap.Int("width", cfg.Width),
		zap.Int("height", cfg.Height),
		zap.String("orientation", string(cfg.Orientation)),
		zap.String("layout", layout.Name()),
		zap.Int("retained_buffers", pool.Retained()),
	)
	return c, nil
}

// Composite merges the given frames into a new output frame.
//
// Either frame may be nil. On success the caller owns the returned buffer and
// should Release it once consumed. On failure the buffer is nil and the error
// is one of frame.ErrNoInput, lifecycle.ErrIncompleteInput,
// bufferpool.ErrExhausted or bufferpool.ErrDrained; the caller drops the frame.
func (c *Compositor) Composite(front, back *frame.Frame) (*bufferpool.Buffer, error) {
	in, err := c.life.Resolve(front, back)
	if err != nil {
		c.drop(err)
		return nil, err
	}

	frontImg, backImg := in.Front.Img(), in.Back.Img()
	if c.cfg.OrientInputs {
		frontImg = orient.Orient(frontImg, c.cfg.Orientation, in.Front.IsFront())
		if in.Back == in.Front {
			backImg = frontImg
		} else {
			backImg = orient.Orient(backImg, c.cfg.Orientation, in.Back.IsFront())
		}
	}

	scene, err := c.layout.Scene(c.size, frontImg, backImg)
	if err != nil {
		c.drop(err)
		return nil, err
	}

	buf, err := c.pool.Acquire()
	if err != nil {
		c.drop(err)
		return nil, err
	}

	if err := c.render.Render(buf.Image, scene); err != nil {
		buf.Release()
		c.logger.Error("render failed", zap.Error(err))
		return nil, fmt.Errorf("compositor: %w", err)
	}

	c.composed.Add(1)
	if in.Degraded {
		c.degraded.Add(1)
	}
	if in.FrontFromCache {
		c.cacheFallbacks.Add(1)
	}
	return buf, nil
}

func (c *Compositor) drop(err error) {
	switch {
	case errors.Is(err, frame.ErrNoInput):
		c.droppedNoInput.Add(1)
	case errors.Is(err, lifecycle.ErrIncompleteInput):
		c.droppedShutdown.Add(1)
	case errors.Is(err, bufferpool.ErrExhausted), errors.Is(err, bufferpool.ErrDrained):
		c.droppedBuffer.Add(1)
	}
	if ce := c.logger.Check(zap.DebugLevel, "frame dropped"); ce != nil {
		ce.Write(zap.Error(err))
	}
}

// BeginRecording starts a recording session. Cached frames from any earlier
// session are discarded and single-camera fallback is allowed again.
func (c *Compositor) BeginRecording() {
	c.life.BeginRecording()
	c.logger.Info("recording started", zap.Stringer("session", c.life.Session()))
}

// Reset enters the shutdown phase: from now on only calls carrying both
// frames produce output. Call it before finalizing a recording.
func (c *Compositor) Reset() {
	c.life.Reset()
	c.logger.Info("recording shutting down", zap.Stringer("session", c.life.Session()))
}

// FlushPipeline blocks until every render submitted before it has finished.
// It is a barrier to use before telling the writer that recording stopped.
func (c *Compositor) FlushPipeline() {
	c.render.Flush()
	c.logger.Debug("pipeline flushed")
}

// Close drains the buffer pool. It must only be called after the last
// Composite call has returned; later calls fail with bufferpool.ErrDrained.
func (c *Compositor) Close() {
	c.pool.Drain()
	s := c.Stats()
	c.logger.Info("compositor closed",
		zap.Uint64("composed", s.Composed),
		zap.Uint64("dropped_no_input", s.DroppedNoInput),
		zap.Uint64("dropped_shutdown", s.DroppedShutdown),
		zap.Uint64("dropped_buffer", s.DroppedBuffer),
		zap.Uint64("buffers_allocated", s.Pool.Allocated),
	)
}

// State returns the lifecycle state
func (c *Compositor) State() lifecycle.State {
	return c.life.State()
}

// Session returns the current recording session id
func (c *Compositor) Session() uuid.UUID {
	return c.life.Session()
}

// Size returns the output dimensions
func (c *Compositor) Size() (width, height int) {
	return c.size.W, c.size.H
}

// Layout returns the active layout
func (c *Compositor) Layout() composite.Layout {
	return c.layout
}

// Stats returns a snapshot of compositor counters
func (c *Compositor) Stats() Stats {
	return Stats{
		State:           c.life.State(),
		Session:         c.life.Session(),
		Composed:        c.composed.Load(),
		Degraded:        c.degraded.Load(),
		CacheFallbacks:  c.cacheFallbacks.Load(),
		DroppedNoInput:  c.droppedNoInput.Load(),
		DroppedShutdown: c.droppedShutdown.Load(),
		DroppedBuffer:   c.droppedBuffer.Load(),
		Pool:            c.pool.Stats(),
		Render:          c.render.Stats(),
	}
}
