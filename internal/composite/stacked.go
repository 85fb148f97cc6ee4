package composite

import (
	"image"

	"dualcam/internal/render"
)

// Stacked splits the output into two equal bands: back camera on top,
// front camera at the bottom
type Stacked struct{}

// Name returns "stacked"
func (Stacked) Name() string { return LayoutStacked }

// Regions returns the top (back) and bottom (front) halves in scene space
func (Stacked) Regions(out Size) (top, bottom render.Rect) {
	half := float64(out.H) / 2
	top = render.Rect{X: 0, Y: half, W: float64(out.W), H: half}
	bottom = render.Rect{X: 0, Y: 0, W: float64(out.W), H: half}
	return top, bottom
}

// Scene places back in the top band and front in the bottom band
func (s Stacked) Scene(out Size, front, back image.Image) (render.Scene, error) {
	front, back, err := fillRoles(front, back)
	if err != nil {
		return render.Scene{}, err
	}

	top, bottom := s.Regions(out)
	backPlacement := AspectFill(SizeOf(back), top)
	frontPlacement := AspectFill(SizeOf(front), bottom)

	return newScene(out,
		backPlacement.Layer(back),
		frontPlacement.Layer(front),
	), nil
}
