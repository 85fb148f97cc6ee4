package lifecycle

import (
	"image"
	"sync"
	"testing"
	"time"

	"dualcam/internal/frame"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFrame(src frame.Source, ts time.Duration) *frame.Frame {
	return frame.New(image.NewRGBA(image.Rect(0, 0, 4, 4)), ts, src)
}

func TestInitialStateIsIdle(t *testing.T) {
	c := NewController()
	assert.Equal(t, StateIdle, c.State())
	assert.Equal(t, uuid.Nil, c.Session())
	assert.Equal(t, "idle", c.State().String())
}

func TestTransitions(t *testing.T) {
	c := NewController()

	c.BeginRecording()
	assert.Equal(t, StateActive, c.State())
	first := c.Session()
	assert.NotEqual(t, uuid.Nil, first)

	c.Reset()
	assert.Equal(t, StateShuttingDown, c.State())
	assert.Equal(t, "shutting_down", c.State().String())

	c.BeginRecording()
	assert.Equal(t, StateActive, c.State())
	assert.NotEqual(t, first, c.Session(), "each recording gets a new session")
}

func TestNoInputInEveryState(t *testing.T) {
	c := NewController()
	_, err := c.Resolve(nil, nil)
	assert.ErrorIs(t, err, frame.ErrNoInput)

	c.BeginRecording()
	c.Resolve(newFrame(frame.SourceFront, 0), nil)
	_, err = c.Resolve(nil, nil)
	assert.ErrorIs(t, err, frame.ErrNoInput, "cache does not count as input")

	c.Reset()
	_, err = c.Resolve(nil, nil)
	assert.ErrorIs(t, err, frame.ErrNoInput)
}

func TestActiveBothPresentUpdatesCache(t *testing.T) {
	c := NewController()
	c.BeginRecording()

	f, b := newFrame(frame.SourceFront, 1), newFrame(frame.SourceBack, 1)
	in, err := c.Resolve(f, b)
	require.NoError(t, err)
	assert.Same(t, f, in.Front)
	assert.Same(t, b, in.Back)
	assert.False(t, in.Degraded)
	assert.False(t, in.FrontFromCache)
	assert.True(t, c.HasCachedFront())
}

func TestActiveMissingFrontUsesCache(t *testing.T) {
	c := NewController()
	c.BeginRecording()

	f := newFrame(frame.SourceFront, 1)
	_, err := c.Resolve(f, newFrame(frame.SourceBack, 1))
	require.NoError(t, err)

	b2 := newFrame(frame.SourceBack, 2)
	in, err := c.Resolve(nil, b2)
	require.NoError(t, err)
	assert.Same(t, f, in.Front)
	assert.Same(t, b2, in.Back)
	assert.True(t, in.FrontFromCache)
	assert.False(t, in.Degraded)
}

func TestActiveSingleInputDegrades(t *testing.T) {
	c := NewController()
	c.BeginRecording()

	b := newFrame(frame.SourceBack, 1)
	in, err := c.Resolve(nil, b)
	require.NoError(t, err)
	assert.Same(t, b, in.Front)
	assert.Same(t, b, in.Back)
	assert.True(t, in.Degraded)

	f := newFrame(frame.SourceFront, 2)
	in, err = c.Resolve(f, nil)
	require.NoError(t, err)
	assert.Same(t, f, in.Front)
	assert.Same(t, f, in.Back)
	assert.True(t, in.Degraded)
}

func TestShuttingDownRequiresBothFrames(t *testing.T) {
	c := NewController()
	c.BeginRecording()
	_, err := c.Resolve(newFrame(frame.SourceFront, 1), newFrame(frame.SourceBack, 1))
	require.NoError(t, err)

	c.Reset()
	assert.False(t, c.HasCachedFront())

	_, err = c.Resolve(nil, newFrame(frame.SourceBack, 2))
	assert.ErrorIs(t, err, ErrIncompleteInput)
	_, err = c.Resolve(newFrame(frame.SourceFront, 2), nil)
	assert.ErrorIs(t, err, ErrIncompleteInput)

	f, b := newFrame(frame.SourceFront, 3), newFrame(frame.SourceBack, 3)
	in, err := c.Resolve(f, b)
	require.NoError(t, err)
	assert.Same(t, f, in.Front)
	assert.Same(t, b, in.Back)
	assert.False(t, c.HasCachedFront(), "shutdown never repopulates the cache")
}

func TestCacheNotReusedAcrossReset(t *testing.T) {
	c := NewController()
	c.BeginRecording()
	f := newFrame(frame.SourceFront, 1)
	_, err := c.Resolve(f, newFrame(frame.SourceBack, 1))
	require.NoError(t, err)

	c.Reset()
	c.BeginRecording()

	b2 := newFrame(frame.SourceBack, 2)
	in, err := c.Resolve(nil, b2)
	require.NoError(t, err)
	assert.False(t, in.FrontFromCache)
	assert.NotSame(t, f, in.Front)
	assert.Same(t, b2, in.Front)
}

func TestIdleDoesNotCache(t *testing.T) {
	c := NewController()
	_, err := c.Resolve(newFrame(frame.SourceFront, 1), newFrame(frame.SourceBack, 1))
	require.NoError(t, err)
	assert.False(t, c.HasCachedFront())

	b := newFrame(frame.SourceBack, 2)
	in, err := c.Resolve(nil, b)
	require.NoError(t, err)
	assert.Same(t, b, in.Front)
	assert.Equal(t, StateIdle, in.State)
}

func TestConcurrentResolveAndTransitions(t *testing.T) {
	c := NewController()
	c.BeginRecording()

	var wg sync.WaitGroup
	stop := make(chan struct{})

	producer := func(src frame.Source) {
		defer wg.Done()
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			var f, b *frame.Frame
			if src == frame.SourceFront {
				f = newFrame(src, time.Duration(i))
			} else {
				b = newFrame(src, time.Duration(i))
			}
			in, err := c.Resolve(f, b)
			if err != nil {
				assert.ErrorIs(t, err, ErrIncompleteInput)
				continue
			}
			if in.Front == nil || in.Back == nil {
				t.Errorf("resolved inputs missing a role: %+v", in)
				return
			}
		}
	}

	wg.Add(2)
	go producer(frame.SourceFront)
	go producer(frame.SourceBack)

	for i := 0; i < 200; i++ {
		c.Reset()
		c.BeginRecording()
	}
	close(stop)
	wg.Wait()
}
