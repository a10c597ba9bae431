package models

import "fmt"

// Modality identifies which event log an embedding was derived from.
type Modality string

const (
	ModalityVideo Modality = "video"
	ModalityAudio Modality = "audio"
)

// Modalities lists all modalities in generation order.
var Modalities = []Modality{ModalityVideo, ModalityAudio}

// ParseModality converts s to a Modality. The empty string is not a valid modality.
func ParseModality(s string) (Modality, error) {
	switch Modality(s) {
	case ModalityVideo, ModalityAudio:
		return Modality(s), nil
	default:
		return "", fmt.Errorf("unknown modality %q (supported: video, audio)", s)
	}
}

// EmbeddingRecord is one encoded event descriptor ready to be stored.
type EmbeddingRecord struct {
	Modality Modality
	FileName string
	Vector   []float32
}

// RawEmbedding is a stored embedding row before its vector bytes are decoded.
type RawEmbedding struct {
	Modality Modality
	FileName string
	Blob     []byte
}

// Match is a single retrieval hit.
type Match struct {
	Modality Modality `json:"modality"`
	FileName string   `json:"file_name"`
	Score    float64  `json:"score"`
	Rank     int      `json:"rank"`
}
