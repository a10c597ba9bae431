package embedding

import (
	"fmt"
	"os"

	"github.com/hyperjump/vidsense/internal/config"
)

// NewEncoder builds the encoder selected by cfg, wrapped in an LRU cache when CacheSize is positive.
// The hash encoder is never cached. Callers treat a construction error as fatal.
func NewEncoder(cfg config.EncoderConfig, onnxLibraryPath string) (Encoder, error) {
	var enc Encoder
	switch cfg.Type {
	case config.EncoderHash:
		return NewHashEncoder(cfg.Dimensions), nil
	case config.EncoderONNX:
		e, err := NewONNXEncoder(cfg.ModelPath, onnxLibraryPath, cfg.OutputName, cfg.Dimensions, cfg.MaxTokens)
		if err != nil {
			return nil, err
		}
		enc = e
	case config.EncoderOpenAI:
		e, err := NewOpenAIEncoder(os.Getenv(cfg.APIKeyEnv), cfg.BaseURL, cfg.Model, cfg.Dimensions)
		if err != nil {
			return nil, err
		}
		enc = e
	default:
		return nil, fmt.Errorf("unknown encoder type %q", cfg.Type)
	}

	if cfg.CacheSize <= 0 {
		return enc, nil
	}
	cached, err := NewCachedEncoder(enc, cfg.CacheSize)
	if err != nil {
		_ = enc.Close()
		return nil, err
	}
	return cached, nil
}
