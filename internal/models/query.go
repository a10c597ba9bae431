package models

import (
	"fmt"
	"strings"
)

// RetrieveQuery is a similarity retrieval request.
type RetrieveQuery struct {
	Query    string `json:"query"`
	TopK     int    `json:"top_k"`
	Modality string `json:"modality,omitempty"` // empty scans the whole store
}

// Validate checks the modality and clamps TopK to maxTopK.
// A TopK of zero or less is valid and yields no results.
func (q *RetrieveQuery) Validate(maxTopK int) error {
	if q.Modality != "" {
		if _, err := ParseModality(q.Modality); err != nil {
			return err
		}
	}
	if maxTopK > 0 && q.TopK > maxTopK {
		q.TopK = maxTopK
	}
	return nil
}

// RetrieveResponse is the response for a retrieval request.
type RetrieveResponse struct {
	Query     string   `json:"query"`
	TopK      int      `json:"top_k"`
	Matches   []*Match `json:"matches"`
	Skipped   int      `json:"skipped_records,omitempty"` // corrupt stored vectors left out of ranking
	QueryTime int64    `json:"query_time_ms"`
}

// KeywordQuery is a keyword search over event descriptors.
type KeywordQuery struct {
	Term     string `json:"term"`
	Limit    int    `json:"limit,omitempty"`
	Fuzzy    bool   `json:"fuzzy,omitempty"`
	Modality string `json:"modality,omitempty"`
	FileName string `json:"file,omitempty"`
}

// Validate ensures the term is present, checks the modality filter, and normalizes the limit.
func (q *KeywordQuery) Validate() error {
	if strings.TrimSpace(q.Term) == "" {
		return fmt.Errorf("term cannot be empty")
	}
	if q.Modality != "" {
		if _, err := ParseModality(q.Modality); err != nil {
			return err
		}
	}
	if q.Limit <= 0 {
		q.Limit = 10
	}
	if q.Limit > 100 {
		q.Limit = 100
	}
	return nil
}

// KeywordHit is one keyword search match over a stored event.
type KeywordHit struct {
	ID        string   `json:"id"`
	Modality  Modality `json:"modality"`
	FileName  string   `json:"file_name"`
	Text      string   `json:"text"`
	Frame     *int     `json:"frame,omitempty"`
	Timestamp *float64 `json:"timestamp,omitempty"`
	Start     *float64 `json:"start,omitempty"`
	End       *float64 `json:"end,omitempty"`
	Score     float64  `json:"score"`
}

// KeywordResponse is the response for a keyword search.
type KeywordResponse struct {
	Term      string        `json:"term"`
	Hits      []*KeywordHit `json:"hits"`
	Total     int           `json:"total"`
	QueryTime int64         `json:"query_time_ms"`
}
