// Package cli provides output writers for the vidsense CLI.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hyperjump/vidsense/internal/models"
	"github.com/hyperjump/vidsense/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

const rule = "─────────────────────────────────────────────────────────"

// ParseOutputFormat maps a flag value to an OutputFormat. Unknown values fall back to text.
func ParseOutputFormat(s string) OutputFormat {
	if strings.EqualFold(s, string(OutputJSON)) {
		return OutputJSON
	}
	return OutputText
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteRetrieveResults writes similarity matches to w in the given format.
func WriteRetrieveResults(w io.Writer, response *models.RetrieveResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, response)
	}
	fmt.Fprintf(w, "\nFound %d matches for %q in %dms (top_k=%d)\n", len(response.Matches), response.Query, response.QueryTime, response.TopK)
	if response.Skipped > 0 {
		fmt.Fprintf(w, "Skipped %d corrupt stored vectors\n", response.Skipped)
	}
	fmt.Fprintln(w)
	for _, m := range response.Matches {
		fmt.Fprintln(w, rule)
		fmt.Fprintf(w, "Rank: %d | Score: %.4f | %s | %s\n", m.Rank, m.Score, m.Modality, m.FileName)
	}
	return nil
}

// WriteKeywordResults writes keyword hits to w in the given format.
func WriteKeywordResults(w io.Writer, response *models.KeywordResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, response)
	}
	fmt.Fprintf(w, "\nFound %d events matching %q in %dms\n\n", response.Total, response.Term, response.QueryTime)
	for i, h := range response.Hits {
		fmt.Fprintln(w, rule)
		fmt.Fprintf(w, "[%s] Rank: %d | Score: %.4f | %s @ %s\n", h.Modality, i+1, h.Score, h.FileName, hitPosition(h))
		fmt.Fprintf(w, "%s\n", TruncateWords(h.Text, 40))
	}
	return nil
}

func hitPosition(h *models.KeywordHit) string {
	switch {
	case h.Start != nil && h.End != nil:
		return fmt.Sprintf("%.2fs-%.2fs", *h.Start, *h.End)
	case h.Timestamp != nil:
		return fmt.Sprintf("%.2fs", *h.Timestamp)
	case h.Frame != nil:
		return fmt.Sprintf("frame %d", *h.Frame)
	default:
		return "?"
	}
}

// WriteRunReport writes an extraction run summary to w in the given format.
func WriteRunReport(w io.Writer, report *models.RunReport, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, report)
	}
	fmt.Fprintf(w, "Run %s: %d processed, %d failed, %d skipped (%d video events, %d audio events)\n",
		report.RunID, report.Processed, report.Failed, report.Skipped, report.VideoEvents, report.AudioEvents)
	for _, f := range report.Files {
		line := fmt.Sprintf("  %-8s %s", f.Status, f.FileName)
		if f.Status == models.FileDone {
			line += fmt.Sprintf(" fps=%.2f stride=%d frames=%d video=%d audio=%d", f.FPS, f.Stride, f.SampledFrames, f.VideoEvents, f.AudioEvents)
			if f.FPSFallback {
				line += " (fps fallback)"
			}
			if f.SkippedFrames > 0 {
				line += fmt.Sprintf(" skipped_frames=%d", f.SkippedFrames)
			}
			if f.AudioSkipped {
				line += " (audio skipped)"
			}
		}
		if f.Error != "" {
			line += ": " + utils.Truncate(f.Error, 200)
		}
		fmt.Fprintln(w, line)
	}
	return nil
}

// WriteGenerateReport writes embedding counts to w in the given format.
func WriteGenerateReport(w io.Writer, report *models.GenerateReport, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, report)
	}
	total := 0
	for _, m := range models.Modalities {
		n, ok := report.Counts[m]
		if !ok {
			continue
		}
		total += n
		fmt.Fprintf(w, "%s: %d embeddings\n", m, n)
	}
	fmt.Fprintf(w, "total: %d embeddings\n", total)
	return nil
}

// WriteVideoEvents writes video events to w in the given format.
func WriteVideoEvents(w io.Writer, events []*models.VideoEvent, format OutputFormat) error {
	if format == OutputJSON {
		if events == nil {
			events = []*models.VideoEvent{}
		}
		return writeJSON(w, events)
	}
	for _, e := range events {
		ts := "-"
		if e.Timestamp != nil {
			ts = fmt.Sprintf("%.2fs", *e.Timestamp)
		}
		fmt.Fprintf(w, "%s\tframe %d\t%s\t%s\n", e.FileName, e.Frame, ts, e.ObjectName)
	}
	return nil
}

// WriteAudioEvents writes audio events to w in the given format.
func WriteAudioEvents(w io.Writer, events []*models.AudioEvent, format OutputFormat) error {
	if format == OutputJSON {
		if events == nil {
			events = []*models.AudioEvent{}
		}
		return writeJSON(w, events)
	}
	for _, e := range events {
		fmt.Fprintf(w, "%s\t%.2fs-%.2fs\t%s\n", e.FileName, e.Start, e.End, utils.Truncate(e.Transcript, 120))
	}
	return nil
}

// TruncateWords returns up to maxWords from the space-separated string.
func TruncateWords(s string, maxWords int) string {
	words := strings.Fields(s)
	if len(words) <= maxWords {
		return s
	}
	return strings.Join(words[:maxWords], " ") + "..."
}
