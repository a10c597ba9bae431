package storage

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/hyperjump/vidsense/internal/models"
)

const eventSchema = `
	CREATE TABLE IF NOT EXISTS video_events (
		file_name TEXT NOT NULL,
		object_name TEXT NOT NULL,
		frame INTEGER NOT NULL,
		"timestamp" REAL
	);

	CREATE INDEX IF NOT EXISTS idx_video_events_file_name ON video_events(file_name);

	CREATE TABLE IF NOT EXISTS audio_events (
		file_name TEXT NOT NULL,
		transcript TEXT NOT NULL,
		"start" REAL NOT NULL,
		"end" REAL NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_audio_events_file_name ON audio_events(file_name);
	`

// SQLiteEventStore implements EventStore using SQLite.
type SQLiteEventStore struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteEventStore opens or creates the event database at dbPath.
func NewSQLiteEventStore(dbPath string) (*SQLiteEventStore, error) {
	db, err := openSQLite(dbPath, eventSchema)
	if err != nil {
		return nil, err
	}
	return &SQLiteEventStore{db: db}, nil
}

// InsertVideoEvents appends events in a single transaction.
func (s *SQLiteEventStore) InsertVideoEvents(ctx context.Context, events []*models.VideoEvent) error {
	if len(events) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO video_events (file_name, object_name, frame, "timestamp") VALUES (?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, ev := range events {
		if _, err := stmt.ExecContext(ctx, ev.FileName, ev.ObjectName, ev.Frame, nullableFloat(ev.Timestamp)); err != nil {
			return fmt.Errorf("insert video event: %w", err)
		}
	}
	return tx.Commit()
}

// InsertAudioEvents appends events in a single transaction.
func (s *SQLiteEventStore) InsertAudioEvents(ctx context.Context, events []*models.AudioEvent) error {
	if len(events) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO audio_events (file_name, transcript, "start", "end") VALUES (?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, ev := range events {
		if _, err := stmt.ExecContext(ctx, ev.FileName, ev.Transcript, ev.Start, ev.End); err != nil {
			return fmt.Errorf("insert audio event: %w", err)
		}
	}
	return tx.Commit()
}

// Descriptors returns the descriptive text of every event of the modality, ordered by insertion.
func (s *SQLiteEventStore) Descriptors(ctx context.Context, modality models.Modality) ([]*models.Descriptor, error) {
	var query string
	switch modality {
	case models.ModalityVideo:
		query = `SELECT file_name, object_name FROM video_events ORDER BY rowid`
	case models.ModalityAudio:
		query = `SELECT file_name, transcript FROM audio_events ORDER BY rowid`
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownModality, modality)
	}

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Descriptor
	for rows.Next() {
		var d models.Descriptor
		if err := rows.Scan(&d.FileName, &d.Text); err != nil {
			return nil, err
		}
		out = append(out, &d)
	}
	return out, rows.Err()
}

// ListVideoEvents returns video events in insertion order, optionally restricted to one file.
// A non-positive limit returns all remaining rows.
func (s *SQLiteEventStore) ListVideoEvents(ctx context.Context, fileName string, offset, limit int) ([]*models.VideoEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT file_name, object_name, frame, "timestamp" FROM video_events
		 WHERE (? = '' OR file_name = ?) ORDER BY rowid LIMIT ? OFFSET ?`,
		fileName, fileName, sqlLimit(limit), offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.VideoEvent
	for rows.Next() {
		var ev models.VideoEvent
		var ts sql.NullFloat64
		if err := rows.Scan(&ev.FileName, &ev.ObjectName, &ev.Frame, &ts); err != nil {
			return nil, err
		}
		if ts.Valid {
			v := ts.Float64
			ev.Timestamp = &v
		}
		out = append(out, &ev)
	}
	return out, rows.Err()
}

// ListAudioEvents returns audio events in insertion order, optionally restricted to one file.
func (s *SQLiteEventStore) ListAudioEvents(ctx context.Context, fileName string, offset, limit int) ([]*models.AudioEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT file_name, transcript, "start", "end" FROM audio_events
		 WHERE (? = '' OR file_name = ?) ORDER BY rowid LIMIT ? OFFSET ?`,
		fileName, fileName, sqlLimit(limit), offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.AudioEvent
	for rows.Next() {
		var ev models.AudioEvent
		if err := rows.Scan(&ev.FileName, &ev.Transcript, &ev.Start, &ev.End); err != nil {
			return nil, err
		}
		out = append(out, &ev)
	}
	return out, rows.Err()
}

// CountVideoEvents returns the total number of video events.
func (s *SQLiteEventStore) CountVideoEvents(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM video_events`).Scan(&count)
	return count, err
}

// CountAudioEvents returns the total number of audio events.
func (s *SQLiteEventStore) CountAudioEvents(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM audio_events`).Scan(&count)
	return count, err
}

// HasEvents reports whether any event of either modality references fileName.
func (s *SQLiteEventStore) HasEvents(ctx context.Context, fileName string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM video_events WHERE file_name = ?)
		     OR EXISTS(SELECT 1 FROM audio_events WHERE file_name = ?)`,
		fileName, fileName,
	).Scan(&exists)
	return exists, err
}

// Ping checks that the database is reachable.
func (s *SQLiteEventStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteEventStore) Close() error {
	return s.db.Close()
}

func sqlLimit(limit int) int {
	if limit <= 0 {
		return -1
	}
	return limit
}
