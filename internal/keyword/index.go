// Package keyword provides keyword search over stored media events.
package keyword

import (
	"context"

	"github.com/hyperjump/vidsense/internal/models"
)

// SearchOptions optional parameters for keyword search. Nil means use defaults.
type SearchOptions struct {
	// PhraseBoost multiplies the score when query terms appear adjacent in the event text.
	// Values > 1 boost transcripts that contain the query as a phrase (e.g. 1.5). Use 1.0 for no boost.
	PhraseBoost float64
	// Fuzziness is the maximum Levenshtein edit distance for fuzzy matching (1 or 2).
	// Default is 2 when the query asks for fuzzy matching.
	Fuzziness int
}

// Index defines keyword indexing and search over events.
type Index interface {
	IndexVideoEvents(ctx context.Context, events []*models.VideoEvent) error
	IndexAudioEvents(ctx context.Context, events []*models.AudioEvent) error
	Search(ctx context.Context, q *models.KeywordQuery, opts *SearchOptions) ([]*models.KeywordHit, error)
	// DocCount returns the total number of events in the index.
	DocCount() (uint64, error)
	Close() error
}

// EventSource lists stored events page by page.
type EventSource interface {
	ListVideoEvents(ctx context.Context, fileName string, offset, limit int) ([]*models.VideoEvent, error)
	ListAudioEvents(ctx context.Context, fileName string, offset, limit int) ([]*models.AudioEvent, error)
}
