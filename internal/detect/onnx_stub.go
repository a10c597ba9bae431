//go:build !cgo
// +build !cgo

package detect

import (
	"context"

	"github.com/hyperjump/vidsense/internal/media"
	"github.com/hyperjump/vidsense/internal/onnxrt"
)

// ONNXOptions configures an ONNXDetector.
type ONNXOptions struct {
	ModelPath           string
	LibraryPath         string
	InputName           string
	OutputName          string
	Width               int
	Height              int
	Anchors             int
	Labels              []string
	ConfidenceThreshold float64
	IOUThreshold        float64
}

// ONNXDetector stub type when built without CGO (see onnx.go for real implementation).
type ONNXDetector struct{}

// NewONNXDetector returns an error when built without CGO (ONNX not available).
func NewONNXDetector(_ ONNXOptions) (*ONNXDetector, error) {
	return nil, onnxrt.ErrUnavailable
}

// Detect is unreachable without CGO.
func (d *ONNXDetector) Detect(context.Context, *media.Frame) ([]Detection, error) {
	return nil, onnxrt.ErrUnavailable
}

// Close is a no-op without CGO.
func (d *ONNXDetector) Close() error { return nil }
