package stream

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"net/http"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// DefaultQuality is used when NewPreview is given an out of range quality
const DefaultQuality = 80

// Preview serves the latest composited frame as an MJPEG stream
type Preview struct {
	quality int
	logger  *zap.Logger

	clients   map[chan []byte]bool
	clientsMu sync.RWMutex

	currentFrame []byte
	frameMu      sync.RWMutex

	frameSeq atomic.Uint64
}

// NewPreview creates a preview encoding JPEGs at the given quality (1-100)
func NewPreview(quality int, logger *zap.Logger) *Preview {
	if quality < 1 || quality > 100 {
		quality = DefaultQuality
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Preview{
		quality: quality,
		logger:  logger.Named("preview"),
		clients: make(map[chan []byte]bool),
	}
}

// Publish encodes img, optionally labelled, and broadcasts it to clients.
// The pixels are copied before Publish returns so img may be reused.
func (p *Preview) Publish(img image.Image, label string) error {
	bounds := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)

	if label != "" {
		drawLabel(rgba, 8, 8, label, color.RGBA{255, 255, 255, 255})
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, rgba, &jpeg.Options{Quality: p.quality}); err != nil {
		return fmt.Errorf("preview: encode: %w", err)
	}
	p.updateFrame(buf.Bytes())
	return nil
}

func (p *Preview) updateFrame(frame []byte) {
	seq := p.frameSeq.Add(1)

	p.frameMu.Lock()
	p.currentFrame = frame
	p.frameMu.Unlock()

	p.clientsMu.RLock()
	for ch := range p.clients {
		select {
		case ch <- frame:
		default:
			// Client is slow, skip frame
		}
	}
	p.clientsMu.RUnlock()

	if seq%100 == 0 {
		p.logger.Debug("preview frames published", zap.Uint64("seq", seq))
	}
}

// CurrentFrame returns the latest JPEG, or nil before the first Publish
func (p *Preview) CurrentFrame() []byte {
	p.frameMu.RLock()
	defer p.frameMu.RUnlock()
	return p.currentFrame
}

// FrameSeq returns the number of frames published so far
func (p *Preview) FrameSeq() uint64 {
	return p.frameSeq.Load()
}

// ClientCount returns the number of connected stream clients
func (p *Preview) ClientCount() int {
	p.clientsMu.RLock()
	defer p.clientsMu.RUnlock()
	return len(p.clients)
}

// ServeHTTP streams frames to a client until it disconnects
func (p *Preview) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	clientCh := make(chan []byte, 5)
	// New clients see the latest frame straight away
	if frame := p.CurrentFrame(); frame != nil {
		clientCh <- frame
	}

	p.clientsMu.Lock()
	p.clients[clientCh] = true
	p.clientsMu.Unlock()

	defer func() {
		p.clientsMu.Lock()
		delete(p.clients, clientCh)
		p.clientsMu.Unlock()
	}()

	p.logger.Info("client connected", zap.String("remote", r.RemoteAddr))

	for {
		select {
		case <-r.Context().Done():
			p.logger.Info("client disconnected", zap.String("remote", r.RemoteAddr))
			return
		case frame := <-clientCh:
			fmt.Fprintf(w, "--frame\r\n")
			fmt.Fprintf(w, "Content-Type: image/jpeg\r\n")
			fmt.Fprintf(w, "Content-Length: %d\r\n\r\n", len(frame))
			if _, err := w.Write(frame); err != nil {
				return
			}
			fmt.Fprintf(w, "\r\n")
			flusher.Flush()
		}
	}
}

// drawLabel draws text on a translucent box with its top-left corner near (x, y)
func drawLabel(img *image.RGBA, x, y int, label string, c color.RGBA) {
	bg := image.NewUniform(color.RGBA{0, 0, 0, 180})
	textWidth := font.MeasureString(basicfont.Face7x13, label).Ceil()
	box := image.Rect(x-2, y-2, x+textWidth+2, y+12).Intersect(img.Bounds())
	draw.Draw(img, box, bg, image.Point{}, draw.Over)

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y + 10)},
	}
	d.DrawString(label)
}

// SnapshotHandler serves the latest preview frame as a single JPEG
type SnapshotHandler struct {
	preview *Preview
}

// NewSnapshotHandler creates a new snapshot handler
func NewSnapshotHandler(preview *Preview) *SnapshotHandler {
	return &SnapshotHandler{preview: preview}
}

// ServeHTTP serves a single JPEG snapshot
func (h *SnapshotHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	frame := h.preview.CurrentFrame()
	if frame == nil {
		http.Error(w, "No frame available", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Content-Length", fmt.Sprintf("%d", len(frame)))
	w.Write(frame)
}
