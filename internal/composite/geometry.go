package composite

import (
	"image"
	"math"

	"dualcam/internal/render"
)

// Size is an output or source size in pixels
type Size struct {
	W, H int
}

// SizeOf returns the size of an image's bounds
func SizeOf(img image.Image) Size {
	b := img.Bounds()
	return Size{W: b.Dx(), H: b.Dy()}
}

// Placement is the result of fitting a source into a target rectangle
type Placement struct {
	Scale float64
	Dest  render.Rect // Where the scaled source lands, may overflow Clip
	Clip  render.Rect // The target rectangle
}

// AspectFill scales src to fully cover target, preserving aspect ratio.
// The scaled image is centered on the target and the overflow is cropped
// away by the clip; the result never letterboxes.
func AspectFill(src Size, target render.Rect) Placement {
	if src.W <= 0 || src.H <= 0 || target.Empty() {
		return Placement{Clip: target}
	}

	scale := math.Max(target.W/float64(src.W), target.H/float64(src.H))
	w := float64(src.W) * scale
	h := float64(src.H) * scale

	return Placement{
		Scale: scale,
		Dest: render.Rect{
			X: target.X + (target.W-w)/2,
			Y: target.Y + (target.H-h)/2,
			W: w,
			H: h,
		},
		Clip: target,
	}
}

// Layer turns a placement into a render layer for img
func (p Placement) Layer(img image.Image) render.Layer {
	return render.Layer{Src: img, Dest: p.Dest, Clip: p.Clip}
}
