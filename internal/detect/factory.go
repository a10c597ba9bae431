package detect

import (
	"fmt"

	"github.com/hyperjump/vidsense/internal/config"
)

// New builds the detector selected by cfg. Frames reach it at frameWidth x frameHeight.
func New(cfg config.DetectorConfig, onnxLibraryPath string, frameWidth, frameHeight int) (Detector, error) {
	switch cfg.Type {
	case config.DetectorScene:
		return NewSceneDetector(), nil
	case config.DetectorONNX:
		d, err := NewONNXDetector(ONNXOptions{
			ModelPath:           cfg.ModelPath,
			LibraryPath:         onnxLibraryPath,
			InputName:           cfg.InputName,
			OutputName:          cfg.OutputName,
			Width:               frameWidth,
			Height:              frameHeight,
			Anchors:             cfg.Anchors,
			Labels:              cfg.Labels,
			ConfidenceThreshold: cfg.ConfidenceThreshold,
			IOUThreshold:        cfg.IOUThreshold,
		})
		if err != nil {
			return nil, err
		}
		return d, nil
	default:
		return nil, fmt.Errorf("unknown detector type %q", cfg.Type)
	}
}
