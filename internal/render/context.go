package render

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"sync"
	"sync/atomic"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

// Rect is a rectangle in scene space.
// Scene space has its origin at the bottom-left of the output and y grows upward.
type Rect struct {
	X, Y, W, H float64
}

// MaxX returns the right edge
func (r Rect) MaxX() float64 { return r.X + r.W }

// MaxY returns the top edge
func (r Rect) MaxY() float64 { return r.Y + r.H }

// Empty reports whether the rectangle covers no area
func (r Rect) Empty() bool { return r.W <= 0 || r.H <= 0 }

// Layer places one source image in the scene.
// Dest is where the whole (scaled) source lands; only the part inside Clip is drawn.
type Layer struct {
	Src  image.Image
	Dest Rect
	Clip Rect
}

// Scene is a full description of one output frame
type Scene struct {
	Width      int
	Height     int
	Background color.Color
	Layers     []Layer // Drawn in order, later layers over earlier ones
}

// Stats reports render context activity
type Stats struct {
	Renders uint64
	Flushes uint64
}

// Context owns the single rendering context used by a compositor.
// At most one render is in flight at a time; Render and Flush serialize on it.
type Context struct {
	mu      sync.Mutex
	interp  draw.Interpolator
	scratch *image.RGBA

	renders atomic.Uint64
	flushes atomic.Uint64
}

// NewContext creates a render context using the named interpolator
// ("bilinear", "catmullrom" or "nearest"; empty means bilinear)
func NewContext(interpolator string) (*Context, error) {
	interp, err := parseInterpolator(interpolator)
	if err != nil {
		return nil, err
	}
	return &Context{
		interp:  interp,
		scratch: image.NewRGBA(image.Rect(0, 0, 1, 1)),
	}, nil
}

func parseInterpolator(name string) (draw.Interpolator, error) {
	switch name {
	case "", "bilinear":
		return draw.ApproxBiLinear, nil
	case "catmullrom":
		return draw.CatmullRom, nil
	case "nearest":
		return draw.NearestNeighbor, nil
	default:
		return nil, fmt.Errorf("render: unknown interpolator %q", name)
	}
}

// Render rasterizes the scene into dst synchronously
func (c *Context) Render(dst *image.RGBA, scene Scene) error {
	if dst == nil {
		return fmt.Errorf("render: nil destination")
	}
	b := dst.Bounds()
	if b.Dx() != scene.Width || b.Dy() != scene.Height {
		return fmt.Errorf("render: destination %dx%d does not match scene %dx%d",
			b.Dx(), b.Dy(), scene.Width, scene.Height)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.rasterize(dst, scene)
	c.renders.Add(1)
	return nil
}

// Flush renders an empty scene into a scratch buffer and discards it.
// It returns once every render submitted before it has completed.
func (c *Context) Flush() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.rasterize(c.scratch, Scene{Width: 1, Height: 1, Background: color.Transparent})
	c.flushes.Add(1)
}

// Stats returns render counters
func (c *Context) Stats() Stats {
	return Stats{
		Renders: c.renders.Load(),
		Flushes: c.flushes.Load(),
	}
}

func (c *Context) rasterize(dst *image.RGBA, scene Scene) {
	bounds := dst.Bounds()

	bg := scene.Background
	if bg == nil {
		bg = color.Black
	}
	draw.Draw(dst, bounds, image.NewUniform(bg), image.Point{}, draw.Src)

	for _, layer := range scene.Layers {
		if layer.Src == nil || layer.Dest.Empty() {
			continue
		}
		sb := layer.Src.Bounds()
		if sb.Empty() {
			continue
		}

		clip := ToImageRect(layer.Clip, scene.Height).Add(bounds.Min).Intersect(bounds)
		if clip.Empty() {
			continue
		}
		sub := dst.SubImage(clip).(*image.RGBA)

		sx := layer.Dest.W / float64(sb.Dx())
		sy := layer.Dest.H / float64(sb.Dy())
		x0 := float64(bounds.Min.X) + layer.Dest.X
		y0 := float64(bounds.Min.Y) + float64(scene.Height) - layer.Dest.MaxY()

		s2d := f64.Aff3{
			sx, 0, x0 - sx*float64(sb.Min.X),
			0, sy, y0 - sy*float64(sb.Min.Y),
		}
		c.interp.Transform(sub, s2d, layer.Src, sb, draw.Over, nil)
	}
}

// ToImageRect converts a scene rectangle to image space (top-left origin,
// y down) for an output of the given height, rounding edges to whole pixels
func ToImageRect(r Rect, height int) image.Rectangle {
	h := float64(height)
	return image.Rect(
		int(math.Round(r.X)),
		int(math.Round(h-r.MaxY())),
		int(math.Round(r.MaxX())),
		int(math.Round(h-r.Y)),
	)
}
