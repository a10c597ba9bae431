package models

import "time"

// FileStatus is the terminal state of one file in an extraction run.
type FileStatus string

const (
	FileDone    FileStatus = "done"
	FileFailed  FileStatus = "failed"
	FileSkipped FileStatus = "skipped"
)

// FileReport summarizes the extraction of a single media file.
type FileReport struct {
	FileName      string        `json:"file_name"`
	Path          string        `json:"path"`
	Status        FileStatus    `json:"status"`
	FPS           float64       `json:"fps"`
	FPSFallback   bool          `json:"fps_fallback,omitempty"`
	Stride        int           `json:"stride"`
	SampledFrames int           `json:"sampled_frames"`
	SkippedFrames int           `json:"skipped_frames"`
	Malformed     int           `json:"malformed_detections,omitempty"`
	VideoEvents   int           `json:"video_events"`
	AudioEvents   int           `json:"audio_events"`
	DroppedSegs   int           `json:"dropped_segments"`
	AudioSkipped  bool          `json:"audio_skipped,omitempty"`
	Error         string        `json:"error,omitempty"`
	Elapsed       time.Duration `json:"elapsed_ns"`
}

// RunReport summarizes an extraction run over many files.
type RunReport struct {
	RunID       string        `json:"run_id"`
	Files       []*FileReport `json:"files"`
	Processed   int           `json:"processed"`
	Failed      int           `json:"failed"`
	Skipped     int           `json:"skipped"`
	VideoEvents int           `json:"video_events"`
	AudioEvents int           `json:"audio_events"`
}

// Add records a file report and updates the run totals.
func (r *RunReport) Add(fr *FileReport) {
	r.Files = append(r.Files, fr)
	switch fr.Status {
	case FileDone:
		r.Processed++
	case FileFailed:
		r.Failed++
	case FileSkipped:
		r.Skipped++
	}
	r.VideoEvents += fr.VideoEvents
	r.AudioEvents += fr.AudioEvents
}

// GenerateReport counts the embeddings written per modality.
type GenerateReport struct {
	Counts map[Modality]int `json:"counts"`
}
