// Package storage defines the persistence interfaces for media events and embeddings.
package storage

import (
	"context"
	"errors"

	"github.com/hyperjump/vidsense/internal/models"
)

// ErrUnknownModality is returned when a modality has no backing table.
var ErrUnknownModality = errors.New("unknown modality")

// EventStore is the append-only log of video and audio events.
type EventStore interface {
	InsertVideoEvents(ctx context.Context, events []*models.VideoEvent) error
	InsertAudioEvents(ctx context.Context, events []*models.AudioEvent) error

	// Descriptors returns every (file_name, descriptor) row for the modality in insertion order.
	Descriptors(ctx context.Context, modality models.Modality) ([]*models.Descriptor, error)

	ListVideoEvents(ctx context.Context, fileName string, offset, limit int) ([]*models.VideoEvent, error)
	ListAudioEvents(ctx context.Context, fileName string, offset, limit int) ([]*models.AudioEvent, error)
	CountVideoEvents(ctx context.Context) (int64, error)
	CountAudioEvents(ctx context.Context) (int64, error)
	HasEvents(ctx context.Context, fileName string) (bool, error)

	Ping(ctx context.Context) error
	Close() error
}

// VectorStore is the append-only log of (modality, file_name, vector) records.
type VectorStore interface {
	InsertEmbeddings(ctx context.Context, records []*models.EmbeddingRecord) error
	// ScanEmbeddings streams raw records in insertion order. An empty modality scans the whole store.
	ScanEmbeddings(ctx context.Context, modality models.Modality, fn func(*models.RawEmbedding) error) error
	CountEmbeddings(ctx context.Context, modality models.Modality) (int64, error)
	// ClearEmbeddings removes stored vectors for an operator-requested rebuild. An empty modality clears everything.
	ClearEmbeddings(ctx context.Context, modality models.Modality) error

	Ping(ctx context.Context) error
	Close() error
}
