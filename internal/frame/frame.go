package frame

import (
	"errors"
	"fmt"
	"image"
	"time"
)

// ErrNoInput means neither camera supplied a frame
var ErrNoInput = errors.New("no input frames")

// Source identifies which physical camera produced a frame
type Source string

const (
	SourceFront Source = "front"
	SourceBack  Source = "back"
)

// Frame is one timestamped image from a camera stream.
// The compositor borrows it for a single composite call and never writes to Image.
type Frame struct {
	Image     image.Image   // Pixel buffer as delivered by capture
	Timestamp time.Duration // Presentation timestamp (passed through untouched)
	Source    Source        // front or back
}

// New creates a frame for the given source
func New(img image.Image, ts time.Duration, src Source) *Frame {
	return &Frame{
		Image:     img,
		Timestamp: ts,
		Source:    src,
	}
}

// IsFront reports whether the frame came from the front-facing camera
func (f *Frame) IsFront() bool {
	return f != nil && f.Source == SourceFront
}

// Img returns the frame image, or nil for a nil frame
func (f *Frame) Img() image.Image {
	if f == nil {
		return nil
	}
	return f.Image
}

// Orientation is the device orientation captured when a compositor is built
type Orientation string

const (
	OrientationPortrait           Orientation = "portrait"
	OrientationPortraitUpsideDown Orientation = "portrait_upside_down"
	OrientationLandscapeLeft      Orientation = "landscape_left"
	OrientationLandscapeRight     Orientation = "landscape_right"
	OrientationFaceUp             Orientation = "face_up"
	OrientationFaceDown           Orientation = "face_down"
	OrientationUnknown            Orientation = "unknown"
)

// IsPortraitFamily reports whether sensor buffers must be rotated to portrait.
// Face up, face down and unknown default to portrait.
func (o Orientation) IsPortraitFamily() bool {
	switch o {
	case OrientationLandscapeLeft, OrientationLandscapeRight:
		return false
	default:
		return true
	}
}

// ParseOrientation converts a configuration value to an Orientation
func ParseOrientation(s string) (Orientation, error) {
	switch o := Orientation(s); o {
	case OrientationPortrait, OrientationPortraitUpsideDown,
		OrientationLandscapeLeft, OrientationLandscapeRight,
		OrientationFaceUp, OrientationFaceDown, OrientationUnknown:
		return o, nil
	case "":
		return OrientationUnknown, nil
	default:
		return "", fmt.Errorf("unknown orientation %q", s)
	}
}
