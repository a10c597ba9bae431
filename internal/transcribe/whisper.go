package transcribe

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/hyperjump/vidsense/internal/media"
)

// WhisperTranscriber uses an OpenAI-compatible transcription endpoint with segment timestamps.
type WhisperTranscriber struct {
	client   *openai.Client
	model    string
	language string
}

// NewWhisperTranscriber creates a transcriber. baseURL may be empty for the default endpoint.
func NewWhisperTranscriber(apiKey, baseURL, model, language string) (*WhisperTranscriber, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("whisper transcriber requires an API key")
	}
	if model == "" {
		model = openai.Whisper1
	}
	clientConfig := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		clientConfig.BaseURL = baseURL
	}
	return &WhisperTranscriber{
		client:   openai.NewClientWithConfig(clientConfig),
		model:    model,
		language: language,
	}, nil
}

// Transcribe uploads audio as WAV and maps the verbose response segments.
func (w *WhisperTranscriber) Transcribe(ctx context.Context, audio *media.Audio) ([]Segment, error) {
	if audio == nil || len(audio.Samples) == 0 {
		return nil, nil
	}
	resp, err := w.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    w.model,
		FilePath: "audio.wav",
		Reader:   bytes.NewReader(audio.WAV()),
		Language: w.language,
		Format:   openai.AudioResponseFormatVerboseJSON,
	})
	if err != nil {
		return nil, fmt.Errorf("transcription request failed: %w", err)
	}

	segments := make([]Segment, 0, len(resp.Segments))
	for _, s := range resp.Segments {
		end := s.End
		segments = append(segments, Segment{Text: strings.TrimSpace(s.Text), Start: s.Start, End: &end})
	}
	if len(segments) == 0 {
		if text := strings.TrimSpace(resp.Text); text != "" {
			end := resp.Duration
			if end <= 0 {
				end = audio.Duration()
			}
			segments = append(segments, Segment{Text: text, Start: 0, End: &end})
		}
	}
	return segments, nil
}
