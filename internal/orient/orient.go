package orient

import (
	"image"

	"dualcam/internal/frame"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

// Orient rotates and mirrors a camera image for the compositor's orientation.
//
// Portrait-family orientations rotate the landscape-native sensor buffer 90°
// clockwise. Front camera images are then mirrored horizontally (selfie
// convention). The input is never modified; when no transform applies it is
// returned as is.
func Orient(img image.Image, o frame.Orientation, isFront bool) image.Image {
	if img == nil {
		return nil
	}
	rotate := o.IsPortraitFamily()
	if !rotate && !isFront {
		return img
	}

	sb := img.Bounds()
	w, h := float64(sb.Dx()), float64(sb.Dy())
	ox, oy := float64(sb.Min.X), float64(sb.Min.Y)

	var (
		dst *image.RGBA
		s2d f64.Aff3
	)
	switch {
	case rotate && isFront:
		// Rotate then mirror collapses to a transpose.
		dst = image.NewRGBA(image.Rect(0, 0, sb.Dy(), sb.Dx()))
		s2d = f64.Aff3{
			0, 1, -oy,
			1, 0, -ox,
		}
	case rotate:
		// (x, y) -> (h - y, x)
		dst = image.NewRGBA(image.Rect(0, 0, sb.Dy(), sb.Dx()))
		s2d = f64.Aff3{
			0, -1, h + oy,
			1, 0, -ox,
		}
	default:
		// (x, y) -> (w - x, y)
		dst = image.NewRGBA(image.Rect(0, 0, sb.Dx(), sb.Dy()))
		s2d = f64.Aff3{
			-1, 0, w + ox,
			0, 1, -oy,
		}
	}

	draw.NearestNeighbor.Transform(dst, s2d, img, sb, draw.Src, nil)
	return dst
}

// Frame applies Orient to a frame, keeping its timestamp and source
func Frame(f *frame.Frame, o frame.Orientation) *frame.Frame {
	if f == nil {
		return nil
	}
	return &frame.Frame{
		Image:     Orient(f.Image, o, f.IsFront()),
		Timestamp: f.Timestamp,
		Source:    f.Source,
	}
}
