// Package embeddings derives vectors from stored event descriptors and answers similarity queries over them.
package embeddings

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/vidsense/internal/embedding"
	"github.com/hyperjump/vidsense/internal/models"
	"github.com/hyperjump/vidsense/internal/storage"
	"github.com/hyperjump/vidsense/internal/vector"
)

// Generator writes one embedding per event descriptor and ranks stored embeddings against queries.
type Generator struct {
	events  storage.EventStore
	encoder embedding.Encoder
	vectors storage.VectorStore
	logger  *zap.Logger
}

// Option configures a Generator.
type Option func(*Generator)

// WithLogger sets a logger for generation progress and skipped records.
func WithLogger(l *zap.Logger) Option {
	return func(g *Generator) { g.logger = l }
}

// NewGenerator creates a generator over the given stores and encoder.
func NewGenerator(events storage.EventStore, encoder embedding.Encoder, vectors storage.VectorStore, opts ...Option) *Generator {
	g := &Generator{events: events, encoder: encoder, vectors: vectors}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate embeds video descriptors then audio descriptors. A failure stops the run and is returned
// along with the counts written so far.
func (g *Generator) Generate(ctx context.Context) (*models.GenerateReport, error) {
	report := &models.GenerateReport{Counts: make(map[models.Modality]int, len(models.Modalities))}
	for _, m := range models.Modalities {
		n, err := g.GenerateModality(ctx, m)
		if err != nil {
			return report, err
		}
		report.Counts[m] = n
	}
	return report, nil
}

// GenerateModality embeds every descriptor of modality m, one record per event row, and writes them
// in a single transaction. Any encoder error or dimension mismatch aborts before anything is written.
func (g *Generator) GenerateModality(ctx context.Context, m models.Modality) (int, error) {
	descriptors, err := g.events.Descriptors(ctx, m)
	if err != nil {
		return 0, fmt.Errorf("read %s descriptors: %w", m, err)
	}
	if g.logger != nil {
		g.logger.Debug("generating embeddings", zap.String("modality", string(m)), zap.Int("descriptors", len(descriptors)))
	}

	dim := g.encoder.Dimensions()
	records := make([]*models.EmbeddingRecord, 0, len(descriptors))
	for i, d := range descriptors {
		vec, err := g.encoder.Embed(ctx, d.Text)
		if err != nil {
			return 0, fmt.Errorf("encode %s descriptor %d of %s: %w", m, i, d.FileName, err)
		}
		if len(vec) != dim {
			return 0, fmt.Errorf("%w: encoder returned %d values, expected %d", vector.ErrDimensionMismatch, len(vec), dim)
		}
		records = append(records, &models.EmbeddingRecord{Modality: m, FileName: d.FileName, Vector: vec})
	}

	if err := g.vectors.InsertEmbeddings(ctx, records); err != nil {
		return 0, fmt.Errorf("store %s embeddings: %w", m, err)
	}
	if g.logger != nil {
		g.logger.Info("embeddings generated", zap.String("modality", string(m)), zap.Int("count", len(records)))
	}
	return len(records), nil
}

// Retrieve ranks every stored embedding against query and returns the top k matches.
func (g *Generator) Retrieve(ctx context.Context, query string, topK int) ([]*models.Match, error) {
	matches, _, err := g.RetrieveModality(ctx, query, topK, "")
	return matches, err
}

// RetrieveModality is Retrieve restricted to one modality; an empty modality scans the whole store.
// It also returns how many corrupt stored records were skipped.
// topK <= 0 yields an empty result without encoding the query.
func (g *Generator) RetrieveModality(ctx context.Context, query string, topK int, m models.Modality) ([]*models.Match, int, error) {
	if topK <= 0 {
		return []*models.Match{}, 0, nil
	}
	q, err := g.encoder.Embed(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("encode query: %w", err)
	}
	dim := g.encoder.Dimensions()
	if len(q) != dim {
		return nil, 0, fmt.Errorf("%w: query has %d values, expected %d", vector.ErrDimensionMismatch, len(q), dim)
	}

	idx, err := vector.NewIndex(dim)
	if err != nil {
		return nil, 0, err
	}
	skipped := 0
	err = g.vectors.ScanEmbeddings(ctx, m, func(r *models.RawEmbedding) error {
		vec, err := vector.Decode(r.Blob, dim)
		if errors.Is(err, vector.ErrCorruptVector) {
			skipped++
			if g.logger != nil {
				g.logger.Warn("skipping corrupt stored vector",
					zap.String("modality", string(r.Modality)), zap.String("file", r.FileName), zap.Error(err))
			}
			return nil
		}
		if err != nil {
			return err
		}
		return idx.Add(vector.Entry{Modality: r.Modality, FileName: r.FileName, Vector: vec})
	})
	if err != nil {
		return nil, skipped, fmt.Errorf("scan embeddings: %w", err)
	}
	matches, err := idx.Search(q, topK)
	return matches, skipped, err
}

// Reset removes stored embeddings for m, or all when m is empty, so Generate can rebuild them.
func (g *Generator) Reset(ctx context.Context, m models.Modality) error {
	return g.vectors.ClearEmbeddings(ctx, m)
}
