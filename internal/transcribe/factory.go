package transcribe

import (
	"fmt"
	"os"

	"github.com/hyperjump/vidsense/internal/config"
)

// New builds the transcriber selected by cfg.
func New(cfg config.TranscriberConfig) (Transcriber, error) {
	switch cfg.Type {
	case config.TranscriberPlaceholder:
		return NewPlaceholderTranscriber(), nil
	case config.TranscriberOpenAI:
		t, err := NewWhisperTranscriber(os.Getenv(cfg.APIKeyEnv), cfg.BaseURL, cfg.Model, cfg.Language)
		if err != nil {
			return nil, err
		}
		return t, nil
	default:
		return nil, fmt.Errorf("unknown transcriber type %q", cfg.Type)
	}
}
