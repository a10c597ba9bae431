// Package detect provides object detectors that label sampled video frames.
package detect

import (
	"context"

	"github.com/hyperjump/vidsense/internal/media"
)

// Box is an axis-aligned bounding box in detector input pixels.
type Box struct {
	X1, Y1, X2, Y2 float64
}

// Area returns the box area, or 0 for a degenerate box.
func (b Box) Area() float64 {
	w, h := b.X2-b.X1, b.Y2-b.Y1
	if w <= 0 || h <= 0 {
		return 0
	}
	return w * h
}

// Detection is one labeled object in a frame.
type Detection struct {
	Label      string
	Confidence float64
	Box        Box
}

// Detector labels objects in a frame. An empty result is valid.
type Detector interface {
	Detect(ctx context.Context, frame *media.Frame) ([]Detection, error)
	Close() error
}
