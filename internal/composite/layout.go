package composite

import (
	"fmt"
	"image"
	"image/color"

	"dualcam/internal/frame"
	"dualcam/internal/render"
)

// Layout names accepted by NewLayout
const (
	LayoutStacked = "stacked"
	LayoutPiP     = "pip"
)

// Background is painted under every layout
var Background = color.RGBA{0, 0, 0, 255}

// Layout turns a pair of camera images into a scene for one output frame.
// Either image may be nil; when only one is present it fills both roles.
type Layout interface {
	Name() string
	Scene(out Size, front, back image.Image) (render.Scene, error)
}

// NewLayout resolves a layout by name
func NewLayout(name string, pip PiPOptions) (Layout, error) {
	switch name {
	case "", LayoutStacked:
		return Stacked{}, nil
	case LayoutPiP:
		return NewPictureInPicture(pip)
	default:
		return nil, fmt.Errorf("composite: unknown layout %q", name)
	}
}

// fillRoles applies single-camera degradation
func fillRoles(front, back image.Image) (image.Image, image.Image, error) {
	switch {
	case front == nil && back == nil:
		return nil, nil, frame.ErrNoInput
	case front == nil:
		return back, back, nil
	case back == nil:
		return front, front, nil
	default:
		return front, back, nil
	}
}

func newScene(out Size, layers ...render.Layer) render.Scene {
	return render.Scene{
		Width:      out.W,
		Height:     out.H,
		Background: Background,
		Layers:     layers,
	}
}
