package keyword

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/blevesearch/bleve/v2"
	keywordanalyzer "github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	blevequery "github.com/blevesearch/bleve/v2/search/query"
	"github.com/hyperjump/vidsense/internal/fileid"
	"github.com/hyperjump/vidsense/internal/models"
)

const (
	fieldModality  = "modality"
	fieldFileName  = "file_name"
	fieldText      = "text"
	fieldFrame     = "frame"
	fieldTimestamp = "timestamp"
	fieldStart     = "start"
	fieldEnd       = "end"

	defaultFuzziness = 2
	reindexPageSize  = 500
)

// EventIndex implements Index using Bleve.
type EventIndex struct {
	index bleve.Index
}

var _ Index = (*EventIndex)(nil)

// NewEventIndex creates or opens a Bleve index at path. An empty path gives an in-memory index.
// If you change the index mapping in code, remove the index directory and run a reindex.
func NewEventIndex(path string) (*EventIndex, error) {
	im := newEventMapping()

	if path == "" {
		index, err := bleve.NewMemOnly(im)
		if err != nil {
			return nil, fmt.Errorf("failed to create in-memory Bleve index: %w", err)
		}
		return &EventIndex{index: index}, nil
	}

	if _, err := os.Stat(path); err == nil {
		index, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("failed to open Bleve index: %w", openErr)
		}
		return &EventIndex{index: index}, nil
	}

	index, err := bleve.New(path, im)
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return &EventIndex{index: index}, nil
}

func newEventMapping() *mapping.IndexMappingImpl {
	im := bleve.NewIndexMapping()

	docMapping := bleve.NewDocumentMapping()
	// Standard analyzer (lowercase + tokenize, no stemming) so "person" only matches "person".
	textFieldMapping := bleve.NewTextFieldMapping()
	textFieldMapping.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt(fieldText, textFieldMapping)

	exact := bleve.NewTextFieldMapping()
	exact.Analyzer = keywordanalyzer.Name
	docMapping.AddFieldMappingsAt(fieldModality, exact)
	docMapping.AddFieldMappingsAt(fieldFileName, exact)

	for _, f := range []string{fieldFrame, fieldTimestamp, fieldStart, fieldEnd} {
		docMapping.AddFieldMappingsAt(f, bleve.NewNumericFieldMapping())
	}

	im.AddDocumentMapping("event", docMapping)
	im.DefaultType = "event"
	im.DefaultMapping = docMapping
	return im
}

// IndexVideoEvents indexes detections in one batch. Re-indexing the same events overwrites them.
func (x *EventIndex) IndexVideoEvents(ctx context.Context, events []*models.VideoEvent) error {
	return x.indexVideo(ctx, events, make(map[string]int))
}

// IndexAudioEvents indexes transcript segments in one batch. Re-indexing the same events overwrites them.
func (x *EventIndex) IndexAudioEvents(ctx context.Context, events []*models.AudioEvent) error {
	return x.indexAudio(ctx, events, make(map[string]int))
}

// seen counts repeats of the same (file, frame, label) so two detections of one label in a frame get distinct IDs.
func (x *EventIndex) indexVideo(ctx context.Context, events []*models.VideoEvent, seen map[string]int) error {
	if len(events) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	batch := x.index.NewBatch()
	for _, e := range events {
		frame := strconv.Itoa(e.Frame)
		key := e.FileName + "\x00" + frame + "\x00" + e.ObjectName
		n := seen[key]
		seen[key] = n + 1

		doc := map[string]interface{}{
			fieldModality: string(models.ModalityVideo),
			fieldFileName: e.FileName,
			fieldText:     e.ObjectName,
			fieldFrame:    float64(e.Frame),
		}
		if e.Timestamp != nil {
			doc[fieldTimestamp] = *e.Timestamp
		}
		id := fileid.EventDocID(string(models.ModalityVideo), e.FileName, frame, e.ObjectName, strconv.Itoa(n))
		if err := batch.Index(id, doc); err != nil {
			return fmt.Errorf("failed to add video event to batch: %w", err)
		}
	}
	if err := x.index.Batch(batch); err != nil {
		return fmt.Errorf("failed to index video events: %w", err)
	}
	return nil
}

func (x *EventIndex) indexAudio(ctx context.Context, events []*models.AudioEvent, seen map[string]int) error {
	if len(events) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	batch := x.index.NewBatch()
	for _, e := range events {
		start := strconv.FormatFloat(e.Start, 'g', -1, 64)
		end := strconv.FormatFloat(e.End, 'g', -1, 64)
		key := e.FileName + "\x00" + start + "\x00" + end
		n := seen[key]
		seen[key] = n + 1

		doc := map[string]interface{}{
			fieldModality: string(models.ModalityAudio),
			fieldFileName: e.FileName,
			fieldText:     e.Transcript,
			fieldStart:    e.Start,
			fieldEnd:      e.End,
		}
		id := fileid.EventDocID(string(models.ModalityAudio), e.FileName, start, end, strconv.Itoa(n))
		if err := batch.Index(id, doc); err != nil {
			return fmt.Errorf("failed to add audio event to batch: %w", err)
		}
	}
	if err := x.index.Batch(batch); err != nil {
		return fmt.Errorf("failed to index audio events: %w", err)
	}
	return nil
}

// Reindex pages through every stored event in src and indexes it. It returns the number of events indexed.
func (x *EventIndex) Reindex(ctx context.Context, src EventSource) (int, error) {
	total := 0

	seen := make(map[string]int)
	for offset := 0; ; offset += reindexPageSize {
		page, err := src.ListVideoEvents(ctx, "", offset, reindexPageSize)
		if err != nil {
			return total, fmt.Errorf("failed to list video events: %w", err)
		}
		if err := x.indexVideo(ctx, page, seen); err != nil {
			return total, err
		}
		total += len(page)
		if len(page) < reindexPageSize {
			break
		}
	}

	seen = make(map[string]int)
	for offset := 0; ; offset += reindexPageSize {
		page, err := src.ListAudioEvents(ctx, "", offset, reindexPageSize)
		if err != nil {
			return total, fmt.Errorf("failed to list audio events: %w", err)
		}
		if err := x.indexAudio(ctx, page, seen); err != nil {
			return total, err
		}
		total += len(page)
		if len(page) < reindexPageSize {
			break
		}
	}
	return total, nil
}

// Search matches q.Term against event text, optionally restricted to one modality and file.
// Multi-term queries favour events matching more of the terms, and with opts.PhraseBoost > 1
// events containing the terms as a phrase are boosted.
func (x *EventIndex) Search(ctx context.Context, q *models.KeywordQuery, opts *SearchOptions) ([]*models.KeywordHit, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	phraseBoost := 1.0
	fuzziness := defaultFuzziness
	if opts != nil {
		if opts.PhraseBoost > 0 {
			phraseBoost = opts.PhraseBoost
		}
		if opts.Fuzziness > 0 {
			fuzziness = opts.Fuzziness
		}
	}

	terms := tokenizeQuery(q.Term)
	reqSize := q.Limit
	if len(terms) > 1 {
		// Rescoring can reorder, so fetch a wider window before truncating.
		reqSize = q.Limit * 2
		if reqSize < 50 {
			reqSize = 50
		}
	}

	var textQuery blevequery.Query
	if q.Fuzzy {
		textQuery = buildFuzzyQuery(terms, q.Term, fuzziness)
	} else {
		mq := bleve.NewMatchQuery(q.Term)
		mq.SetField(fieldText)
		textQuery = mq
	}

	req := bleve.NewSearchRequest(withFilters(textQuery, q))
	req.Size = reqSize
	req.Fields = []string{"*"}
	results, err := x.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("Bleve search failed: %w", err)
	}

	hits := make([]*models.KeywordHit, 0, len(results.Hits))
	for _, h := range results.Hits {
		hit := hitFromFields(h.ID, h.Fields)
		hit.Score = h.Score
		hits = append(hits, hit)
	}

	if len(terms) > 1 {
		coverage := x.termCoverage(ctx, terms, q, reqSize, fuzziness)
		var phrases map[string]bool
		if phraseBoost > 1.0 {
			phrases = x.phraseMatches(ctx, q, reqSize)
		}
		for _, hit := range hits {
			// (matched/total)^2 so events matching all terms outrank partial matches
			matched := coverage[hit.ID]
			if matched == 0 {
				matched = 1
			}
			c := float64(matched) / float64(len(terms))
			hit.Score *= c * c
			if phrases[hit.ID] {
				hit.Score *= phraseBoost
			}
		}
		sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	}

	if len(hits) > q.Limit {
		hits = hits[:q.Limit]
	}
	return hits, nil
}

// withFilters restricts textQuery to the modality and file named in q, if any.
func withFilters(textQuery blevequery.Query, q *models.KeywordQuery) blevequery.Query {
	conjuncts := []blevequery.Query{textQuery}
	if q.Modality != "" {
		tq := bleve.NewTermQuery(q.Modality)
		tq.SetField(fieldModality)
		conjuncts = append(conjuncts, tq)
	}
	if q.FileName != "" {
		tq := bleve.NewTermQuery(q.FileName)
		tq.SetField(fieldFileName)
		conjuncts = append(conjuncts, tq)
	}
	if len(conjuncts) == 1 {
		return textQuery
	}
	return bleve.NewConjunctionQuery(conjuncts...)
}

// tokenizeQuery splits query into lowercase terms on anything that is not a letter or digit.
func tokenizeQuery(query string) []string {
	return strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

// buildFuzzyQuery creates a disjunction of FuzzyQueries on the text field, one per term.
func buildFuzzyQuery(terms []string, raw string, fuzziness int) blevequery.Query {
	if len(terms) == 0 {
		mq := bleve.NewMatchQuery(raw)
		mq.SetField(fieldText)
		return mq
	}
	queries := make([]blevequery.Query, 0, len(terms))
	for _, term := range terms {
		fq := bleve.NewFuzzyQuery(term)
		fq.SetFuzziness(fuzziness)
		fq.SetField(fieldText)
		queries = append(queries, fq)
	}
	if len(queries) == 1 {
		return queries[0]
	}
	return bleve.NewDisjunctionQuery(queries...)
}

// termCoverage counts how many query terms each matching event contains.
func (x *EventIndex) termCoverage(ctx context.Context, terms []string, q *models.KeywordQuery, reqSize, fuzziness int) map[string]int {
	coverage := make(map[string]int)
	for _, term := range terms {
		var tq blevequery.Query
		if q.Fuzzy {
			fq := bleve.NewFuzzyQuery(term)
			fq.SetFuzziness(fuzziness)
			fq.SetField(fieldText)
			tq = fq
		} else {
			mq := bleve.NewMatchQuery(term)
			mq.SetField(fieldText)
			tq = mq
		}
		req := bleve.NewSearchRequest(withFilters(tq, q))
		req.Size = reqSize
		results, err := x.index.SearchInContext(ctx, req)
		if err != nil {
			continue
		}
		for _, hit := range results.Hits {
			coverage[hit.ID]++
		}
	}
	return coverage
}

// phraseMatches finds events whose text contains the query terms adjacently.
func (x *EventIndex) phraseMatches(ctx context.Context, q *models.KeywordQuery, reqSize int) map[string]bool {
	matches := make(map[string]bool)
	pq := bleve.NewMatchPhraseQuery(q.Term)
	pq.SetField(fieldText)
	req := bleve.NewSearchRequest(withFilters(pq, q))
	req.Size = reqSize
	results, err := x.index.SearchInContext(ctx, req)
	if err != nil {
		return matches
	}
	for _, hit := range results.Hits {
		matches[hit.ID] = true
	}
	return matches
}

func hitFromFields(id string, fields map[string]interface{}) *models.KeywordHit {
	hit := &models.KeywordHit{ID: id}
	if s, ok := fields[fieldModality].(string); ok {
		hit.Modality = models.Modality(s)
	}
	if s, ok := fields[fieldFileName].(string); ok {
		hit.FileName = s
	}
	if s, ok := fields[fieldText].(string); ok {
		hit.Text = s
	}
	if f, ok := fields[fieldFrame].(float64); ok {
		frame := int(f)
		hit.Frame = &frame
	}
	hit.Timestamp = floatField(fields, fieldTimestamp)
	hit.Start = floatField(fields, fieldStart)
	hit.End = floatField(fields, fieldEnd)
	return hit
}

func floatField(fields map[string]interface{}, name string) *float64 {
	f, ok := fields[name].(float64)
	if !ok {
		return nil
	}
	return &f
}

// Close closes the Bleve index.
func (x *EventIndex) Close() error {
	return x.index.Close()
}

// DocCount returns the total number of events in the index.
func (x *EventIndex) DocCount() (uint64, error) {
	return x.index.DocCount()
}
