package vector

import (
	"fmt"
	"sort"
	"sync"

	"github.com/hyperjump/vidsense/internal/models"
)

// Entry is one vector held by an Index.
type Entry struct {
	Modality models.Modality
	FileName string
	Vector   []float32
}

// Index is an in-memory exact vector index using brute-force cosine scoring.
// Search order is deterministic: equal scores keep insertion order.
type Index struct {
	dimensions int
	entries    []Entry
	mu         sync.RWMutex
}

// NewIndex creates an exact index for vectors of the given dimension.
func NewIndex(dimensions int) (*Index, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	return &Index{dimensions: dimensions}, nil
}

// Add appends a copy of e. The vector must have the index dimension.
func (x *Index) Add(e Entry) error {
	if len(e.Vector) != x.dimensions {
		return fmt.Errorf("%w: got %d, expected %d", ErrDimensionMismatch, len(e.Vector), x.dimensions)
	}
	vec := make([]float32, x.dimensions)
	copy(vec, e.Vector)
	e.Vector = vec
	x.mu.Lock()
	x.entries = append(x.entries, e)
	x.mu.Unlock()
	return nil
}

// Search returns the min(k, Size()) entries most similar to query, by non-increasing cosine score.
// k <= 0 yields an empty result.
func (x *Index) Search(query []float32, k int) ([]*models.Match, error) {
	if len(query) != x.dimensions {
		return nil, fmt.Errorf("%w: query has %d, expected %d", ErrDimensionMismatch, len(query), x.dimensions)
	}
	if k <= 0 {
		return []*models.Match{}, nil
	}
	x.mu.RLock()
	defer x.mu.RUnlock()
	scores := make([]*models.Match, len(x.entries))
	for i, e := range x.entries {
		scores[i] = &models.Match{Modality: e.Modality, FileName: e.FileName, Score: Cosine(query, e.Vector)}
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].Score > scores[j].Score })
	if k > len(scores) {
		k = len(scores)
	}
	result := scores[:k]
	for i, m := range result {
		m.Rank = i + 1
	}
	return result, nil
}

// Size returns the number of vectors in the index.
func (x *Index) Size() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.entries)
}
