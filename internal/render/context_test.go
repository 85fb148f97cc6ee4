package render

import (
	"image"
	"image/color"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	red  = color.RGBA{255, 0, 0, 255}
	blue = color.RGBA{0, 0, 255, 255}
)

func solid(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img
}

func TestToImageRectFlipsY(t *testing.T) {
	// Top half in scene space is the upper rows in image space.
	r := ToImageRect(Rect{X: 0, Y: 50, W: 40, H: 50}, 100)
	assert.Equal(t, image.Rect(0, 0, 40, 50), r)

	r = ToImageRect(Rect{X: 10, Y: 0, W: 20, H: 30}, 100)
	assert.Equal(t, image.Rect(10, 70, 30, 100), r)
}

func TestRenderBackgroundOnly(t *testing.T) {
	ctx, err := NewContext("")
	require.NoError(t, err)

	dst := solid(4, 4, red)
	require.NoError(t, ctx.Render(dst, Scene{Width: 4, Height: 4}))

	assert.Equal(t, color.RGBA{0, 0, 0, 255}, dst.RGBAAt(0, 0))
	assert.Equal(t, color.RGBA{0, 0, 0, 255}, dst.RGBAAt(3, 3))
	assert.Equal(t, uint64(1), ctx.Stats().Renders)
}

func TestRenderLayersClipped(t *testing.T) {
	ctx, err := NewContext("nearest")
	require.NoError(t, err)

	dst := image.NewRGBA(image.Rect(0, 0, 10, 10))
	scene := Scene{
		Width:      10,
		Height:     10,
		Background: color.Black,
		Layers: []Layer{
			// Source overflows its clip, only the top half is painted.
			{Src: solid(2, 2, red), Dest: Rect{X: -5, Y: 0, W: 20, H: 20}, Clip: Rect{X: 0, Y: 5, W: 10, H: 5}},
			{Src: solid(2, 2, blue), Dest: Rect{X: 0, Y: 0, W: 4, H: 4}, Clip: Rect{X: 0, Y: 0, W: 4, H: 4}},
		},
	}
	require.NoError(t, ctx.Render(dst, scene))

	assert.Equal(t, red, dst.RGBAAt(5, 0))
	assert.Equal(t, red, dst.RGBAAt(9, 4))
	assert.Equal(t, color.RGBA{0, 0, 0, 255}, dst.RGBAAt(5, 5))
	// Blue sits at the bottom-left in image space.
	assert.Equal(t, blue, dst.RGBAAt(0, 9))
	assert.Equal(t, blue, dst.RGBAAt(3, 6))
	assert.Equal(t, color.RGBA{0, 0, 0, 255}, dst.RGBAAt(4, 9))
}

func TestRenderRejectsMismatchedDestination(t *testing.T) {
	ctx, err := NewContext("")
	require.NoError(t, err)

	err = ctx.Render(image.NewRGBA(image.Rect(0, 0, 3, 3)), Scene{Width: 4, Height: 4})
	assert.Error(t, err)
	assert.Error(t, ctx.Render(nil, Scene{Width: 1, Height: 1}))
	assert.Equal(t, uint64(0), ctx.Stats().Renders)
}

func TestUnknownInterpolator(t *testing.T) {
	_, err := NewContext("lanczos")
	assert.Error(t, err)
}

func TestFlushIsBarrier(t *testing.T) {
	ctx, err := NewContext("")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			dst := image.NewRGBA(image.Rect(0, 0, 16, 16))
			scene := Scene{
				Width:  16,
				Height: 16,
				Layers: []Layer{{Src: solid(4, 4, red), Dest: Rect{W: 16, H: 16}, Clip: Rect{W: 16, H: 16}}},
			}
			assert.NoError(t, ctx.Render(dst, scene))
		}()
	}
	wg.Wait()
	ctx.Flush()

	s := ctx.Stats()
	assert.Equal(t, uint64(8), s.Renders)
	assert.Equal(t, uint64(1), s.Flushes)
}
