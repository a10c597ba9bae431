// Package models defines core data structures for media events, embeddings, and retrieval results.
package models

// VideoEvent is one detected object instance at a sampled frame.
type VideoEvent struct {
	FileName   string   `json:"file_name" db:"file_name"`
	ObjectName string   `json:"object_name" db:"object_name"`
	Frame      int      `json:"frame" db:"frame"`
	Timestamp  *float64 `json:"timestamp" db:"timestamp"` // seconds; a NULL column reads back as nil
}

// AudioEvent is one transcribed speech segment.
type AudioEvent struct {
	FileName   string  `json:"file_name" db:"file_name"`
	Transcript string  `json:"transcript" db:"transcript"`
	Start      float64 `json:"start" db:"start"`
	End        float64 `json:"end" db:"end"`
}

// Descriptor is the descriptive text of one stored event together with its source file.
// For video events Text is the object name, for audio events the transcript.
type Descriptor struct {
	FileName string
	Text     string
}
