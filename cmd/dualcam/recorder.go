package main

import (
	"context"
	"fmt"
	"image/jpeg"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"dualcam/internal/bufferpool"
	"dualcam/internal/capture"
	"dualcam/internal/compositor"
	"dualcam/internal/frame"
	"dualcam/internal/stream"
	"dualcam/internal/ws"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const statusInterval = time.Second

// tailFor is how long both cameras keep delivering after Reset: two frames
func tailFor(fps int) time.Duration {
	if fps <= 0 {
		return 0
	}
	return 2 * time.Second / time.Duration(fps)
}

// recorder runs one recording session: two cameras feed the compositor and
// composited frames go to the preview and, optionally, JPEG files
type recorder struct {
	comp    *compositor.Compositor
	front   *capture.Camera
	back    *capture.Camera
	preview *stream.Preview
	hub     *ws.Hub
	logger  *zap.Logger

	duration time.Duration
	tail     time.Duration // Both cameras keep delivering this long after Reset
	outDir   string
	quality  int

	latestFront atomic.Pointer[frame.Frame]
	written     atomic.Uint64
}

func (r *recorder) onFront(f *frame.Frame) {
	r.latestFront.Store(f)
}

// onBack composes the back frame with the front frame delivered since the
// previous back frame, if any
func (r *recorder) onBack(f *frame.Frame, out chan<- *bufferpool.Buffer) {
	buf, err := r.comp.Composite(r.latestFront.Swap(nil), f)
	if err != nil {
		return
	}
	select {
	case out <- buf:
	default:
		// Sink is behind, skip frame
		buf.Release()
	}
}

// Run records until the configured duration elapses or ctx is done, then
// shuts the compositor down in order
func (r *recorder) Run(ctx context.Context) error {
	runCtx, cancel := ctx, context.CancelFunc(func() {})
	if r.duration > 0 {
		runCtx, cancel = context.WithTimeout(ctx, r.duration)
	}
	defer cancel()

	if r.outDir != "" {
		if err := os.MkdirAll(r.outDir, 0o755); err != nil {
			return fmt.Errorf("recorder: %w", err)
		}
	}

	r.comp.BeginRecording()
	out := make(chan *bufferpool.Buffer, bufferpool.MinInFlight)

	// Producers keep delivering past runCtx until after Reset
	prodCtx, stopProducers := context.WithCancel(context.Background())
	defer stopProducers()
	var producers errgroup.Group
	producers.Go(func() error { return r.front.Run(prodCtx, r.onFront) })
	producers.Go(func() error {
		return r.back.Run(prodCtx, func(f *frame.Frame) { r.onBack(f, out) })
	})

	sinkDone := make(chan struct{})
	var sink errgroup.Group
	sink.Go(func() error { return r.drain(out) })
	sink.Go(func() error {
		r.reportStatus(sinkDone)
		return nil
	})

	<-runCtx.Done()

	r.comp.Reset()
	select {
	case <-time.After(r.tail):
	case <-ctx.Done():
	}
	stopProducers()
	perr := producers.Wait()

	r.comp.FlushPipeline()
	close(out)
	close(sinkDone)
	serr := sink.Wait()

	r.comp.Close()
	r.hub.Broadcast(ws.NewStatusMessage(r.comp.Stats()))

	r.logger.Info("recording finished",
		zap.Stringer("session", r.comp.Session()),
		zap.Uint64("written", r.written.Load()),
		zap.Uint64("front_delivered", r.front.Stats().Delivered),
		zap.Uint64("back_delivered", r.back.Stats().Delivered),
	)
	if perr != nil {
		return perr
	}
	return serr
}

// drain consumes composited buffers until out is closed. Every buffer is
// released, including after a write error.
func (r *recorder) drain(out <-chan *bufferpool.Buffer) error {
	var firstErr error
	var seq uint64
	for buf := range out {
		seq++
		if firstErr == nil {
			firstErr = r.consume(buf, seq)
		}
		buf.Release()
	}
	return firstErr
}

func (r *recorder) consume(buf *bufferpool.Buffer, seq uint64) error {
	label := fmt.Sprintf("%s #%d", r.comp.State(), seq)
	if err := r.preview.Publish(buf.Image, label); err != nil {
		return err
	}
	if r.outDir == "" {
		return nil
	}

	path := filepath.Join(r.outDir, fmt.Sprintf("frame-%06d.jpg", seq))
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("recorder: %w", err)
	}
	if err := jpeg.Encode(f, buf.Image, &jpeg.Options{Quality: r.quality}); err != nil {
		f.Close()
		return fmt.Errorf("recorder: encode %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("recorder: %w", err)
	}
	r.written.Add(1)
	return nil
}

func (r *recorder) reportStatus(done <-chan struct{}) {
	ticker := time.NewTicker(statusInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			r.hub.Broadcast(ws.NewStatusMessage(r.comp.Stats()))
		}
	}
}
