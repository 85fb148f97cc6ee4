package composite

import (
	"fmt"
	"image"

	"dualcam/internal/render"
)

// PiPPadding is the inset of the picture-in-picture window from each adjacent edge
const PiPPadding = 20.0

// DefaultPiPSize is the inset window's share of each output dimension
const DefaultPiPSize = 0.25

// Corner selects where the picture-in-picture window sits
type Corner string

const (
	CornerTopLeft     Corner = "top_left"
	CornerTopRight    Corner = "top_right"
	CornerBottomLeft  Corner = "bottom_left"
	CornerBottomRight Corner = "bottom_right"
)

// PiPOptions configures the picture-in-picture layout.
// Zero values select the defaults (0.25, top right).
type PiPOptions struct {
	Size   float64
	Corner Corner
}

// PictureInPicture shows the back camera full frame with the front camera
// inset in a corner
type PictureInPicture struct {
	size   float64
	corner Corner
}

// NewPictureInPicture validates options and builds the layout
func NewPictureInPicture(opts PiPOptions) (*PictureInPicture, error) {
	if opts.Size == 0 {
		opts.Size = DefaultPiPSize
	}
	if opts.Size <= 0 || opts.Size > 1 {
		return nil, fmt.Errorf("composite: pip size %v outside (0,1]", opts.Size)
	}
	switch opts.Corner {
	case "":
		opts.Corner = CornerTopRight
	case CornerTopLeft, CornerTopRight, CornerBottomLeft, CornerBottomRight:
	default:
		return nil, fmt.Errorf("composite: unknown pip corner %q", opts.Corner)
	}
	return &PictureInPicture{size: opts.Size, corner: opts.Corner}, nil
}

// Name returns "pip"
func (p *PictureInPicture) Name() string { return LayoutPiP }

// Inset returns the scene-space rectangle of the inset window
func (p *PictureInPicture) Inset(out Size) render.Rect {
	w := p.size * float64(out.W)
	h := p.size * float64(out.H)

	var x, y float64
	switch p.corner {
	case CornerTopLeft:
		x, y = PiPPadding, float64(out.H)-h-PiPPadding
	case CornerBottomLeft:
		x, y = PiPPadding, PiPPadding
	case CornerBottomRight:
		x, y = float64(out.W)-w-PiPPadding, PiPPadding
	default:
		x, y = float64(out.W)-w-PiPPadding, float64(out.H)-h-PiPPadding
	}
	return render.Rect{X: x, Y: y, W: w, H: h}
}

// Scene fills the output with back and draws front in the inset window
func (p *PictureInPicture) Scene(out Size, front, back image.Image) (render.Scene, error) {
	front, back, err := fillRoles(front, back)
	if err != nil {
		return render.Scene{}, err
	}

	full := render.Rect{W: float64(out.W), H: float64(out.H)}
	backPlacement := AspectFill(SizeOf(back), full)
	frontPlacement := AspectFill(SizeOf(front), p.Inset(out))

	return newScene(out,
		backPlacement.Layer(back),
		frontPlacement.Layer(front),
	), nil
}
