package bufferpool

import (
	"errors"
	"fmt"
	"image"
	"sync"
)

// MinInFlight is the smallest number of buffers a pool keeps available.
// Three buffers absorb producer/consumer jitter without stalling capture.
const MinInFlight = 3

var (
	// ErrExhausted is returned when a new buffer cannot be allocated
	ErrExhausted = errors.New("bufferpool: allocation failed")
	// ErrDrained is returned by Acquire after Drain
	ErrDrained = errors.New("bufferpool: pool drained")
)

// Allocator creates a new output image of the given dimensions
type Allocator func(width, height int) (*image.RGBA, error)

// Options configures a Pool
type Options struct {
	Width      int
	Height     int
	MinBuffers int       // Preallocated buffers, never below MinInFlight
	Burst      int       // Idle buffers retained above MinBuffers
	MaxBuffers int       // Hard cap on live buffers (0 = unlimited)
	Allocator  Allocator // Defaults to image.NewRGBA
}

// Stats is a snapshot of pool bookkeeping
type Stats struct {
	Allocated uint64 // Buffers ever allocated
	Recycled  uint64 // Acquisitions served from the idle list
	Failures  uint64 // Acquisitions that returned an error
	Idle      int    // Buffers waiting in the pool
	InFlight  int    // Buffers currently owned by callers
	Drained   bool
}

// Pool recycles fixed-size RGBA output buffers
type Pool struct {
	width     int
	height    int
	retain    int
	max       int
	allocator Allocator

	mu       sync.Mutex
	idle     []*Buffer
	inFlight int
	drained  bool
	// pending counts allocations that reserved a slot but have not finished yet
	pending   int
	allocated uint64
	recycled  uint64
	failures  uint64
}

// Buffer is an output frame handed out by a Pool.
// The holder owns Image until Release is called.
type Buffer struct {
	Image *image.RGBA

	pool     *Pool
	released bool
}

func defaultAllocator(width, height int) (*image.RGBA, error) {
	return image.NewRGBA(image.Rect(0, 0, width, height)), nil
}

// New creates a pool and preallocates MinBuffers buffers
func New(opts Options) (*Pool, error) {
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, fmt.Errorf("bufferpool: invalid dimensions %dx%d", opts.Width, opts.Height)
	}
	if opts.MinBuffers < MinInFlight {
		opts.MinBuffers = MinInFlight
	}
	if opts.Burst < 0 {
		opts.Burst = 0
	}
	if opts.MaxBuffers > 0 && opts.MaxBuffers < opts.MinBuffers {
		return nil, fmt.Errorf("bufferpool: max buffers %d below minimum %d", opts.MaxBuffers, opts.MinBuffers)
	}
	if opts.Allocator == nil {
		opts.Allocator = defaultAllocator
	}

	p := &Pool{
		width:     opts.Width,
		height:    opts.Height,
		retain:    opts.MinBuffers + opts.Burst,
		max:       opts.MaxBuffers,
		allocator: opts.Allocator,
		idle:      make([]*Buffer, 0, opts.MinBuffers+opts.Burst),
	}

	for i := 0; i < opts.MinBuffers; i++ {
		img, err := p.allocate()
		if err != nil {
			return nil, fmt.Errorf("bufferpool: preallocating buffer %d: %w", i, err)
		}
		p.idle = append(p.idle, &Buffer{Image: img, pool: p})
		p.allocated++
	}

	return p, nil
}

// Acquire returns a recycled buffer, or allocates a new one when none is idle
func (p *Pool) Acquire() (*Buffer, error) {
	p.mu.Lock()
	if p.drained {
		p.failures++
		p.mu.Unlock()
		return nil, ErrDrained
	}

	if n := len(p.idle); n > 0 {
		buf := p.idle[n-1]
		p.idle[n-1] = nil
		p.idle = p.idle[:n-1]
		buf.released = false
		p.inFlight++
		p.recycled++
		p.mu.Unlock()
		return buf, nil
	}

	if p.max > 0 && p.inFlight+p.pending >= p.max {
		p.failures++
		p.mu.Unlock()
		return nil, ErrExhausted
	}
	p.pending++
	p.mu.Unlock()

	img, err := p.allocate()

	p.mu.Lock()
	defer p.mu.Unlock()
	p.pending--
	if err != nil {
		p.failures++
		return nil, err
	}
	if p.drained {
		p.failures++
		return nil, ErrDrained
	}
	p.inFlight++
	p.allocated++
	return &Buffer{Image: img, pool: p}, nil
}

// allocate runs the allocator without holding the pool lock, turning a nil
// result or a panic into ErrExhausted
func (p *Pool) allocate() (img *image.RGBA, err error) {
	defer func() {
		if r := recover(); r != nil {
			img, err = nil, fmt.Errorf("%w: %v", ErrExhausted, r)
		}
	}()

	img, err = p.allocator(p.width, p.height)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExhausted, err)
	}
	if img == nil {
		return nil, ErrExhausted
	}
	return img, nil
}

// Release hands the buffer back to its pool. Calling it twice is a no-op.
func (b *Buffer) Release() {
	if b == nil || b.pool == nil {
		return
	}
	b.pool.put(b)
}

func (p *Pool) put(b *Buffer) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if b.released {
		return
	}
	b.released = true
	p.inFlight--

	if p.drained || len(p.idle) >= p.retain {
		// Dropped: the garbage collector reclaims the pixels
		b.Image = nil
		return
	}
	p.idle = append(p.idle, b)
}

// Drain releases every idle buffer. Acquire fails with ErrDrained afterwards.
// Buffers still held by callers are discarded when released.
func (p *Pool) Drain() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i := range p.idle {
		p.idle[i].Image = nil
		p.idle[i] = nil
	}
	p.idle = p.idle[:0]
	p.drained = true
}

// Stats returns a snapshot of pool counters
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	return Stats{
		Allocated: p.allocated,
		Recycled:  p.recycled,
		Failures:  p.failures,
		Idle:      len(p.idle),
		InFlight:  p.inFlight,
		Drained:   p.drained,
	}
}

// Size returns the pixel dimensions of pooled buffers
func (p *Pool) Size() (width, height int) {
	return p.width, p.height
}

// Retained returns the maximum number of idle buffers kept for reuse
func (p *Pool) Retained() int {
	return p.retain
}
