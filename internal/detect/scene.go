package detect

import (
	"context"
	"fmt"

	"github.com/hyperjump/vidsense/internal/media"
)

// Scene labels produced by SceneDetector.
const (
	LabelBrightScene   = "bright-scene"
	LabelWellLitScene  = "well-lit-scene"
	LabelLowLightScene = "low-light-scene"
	LabelLandscape     = "landscape"
	LabelPortrait      = "portrait"
)

// SceneDetector is a model-free detector that labels each frame with its brightness class and orientation.
type SceneDetector struct{}

// NewSceneDetector returns a SceneDetector.
func NewSceneDetector() *SceneDetector {
	return &SceneDetector{}
}

// Detect returns exactly two detections: brightness then orientation.
func (d *SceneDetector) Detect(ctx context.Context, frame *media.Frame) ([]Detection, error) {
	if frame == nil || len(frame.Pix) == 0 {
		return nil, fmt.Errorf("empty frame")
	}
	var sum uint64
	for _, p := range frame.Pix {
		sum += uint64(p)
	}
	brightness := float64(sum) / float64(len(frame.Pix))

	var light string
	switch {
	case brightness > 180:
		light = LabelBrightScene
	case brightness > 120:
		light = LabelWellLitScene
	default:
		light = LabelLowLightScene
	}

	w, h := frame.SourceWidth, frame.SourceHeight
	if w == 0 || h == 0 {
		w, h = frame.Width, frame.Height
	}
	orientation := LabelPortrait
	if w > h {
		orientation = LabelLandscape
	}

	full := Box{X2: float64(frame.Width), Y2: float64(frame.Height)}
	return []Detection{
		{Label: light, Confidence: 1, Box: full},
		{Label: orientation, Confidence: 1, Box: full},
	}, nil
}

// Close is a no-op for SceneDetector.
func (d *SceneDetector) Close() error {
	return nil
}
