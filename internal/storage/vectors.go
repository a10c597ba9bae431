package storage

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/hyperjump/vidsense/internal/models"
	"github.com/hyperjump/vidsense/internal/vector"
)

const vectorSchema = `
	CREATE TABLE IF NOT EXISTS embeddings (
		modality TEXT NOT NULL,
		file_name TEXT NOT NULL,
		vector BLOB NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_embeddings_modality ON embeddings(modality);
	`

// SQLiteVectorStore implements VectorStore using SQLite with vectors stored as little-endian float32 blobs.
type SQLiteVectorStore struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteVectorStore opens or creates the vector database at dbPath.
// It may share a file with the event store.
func NewSQLiteVectorStore(dbPath string) (*SQLiteVectorStore, error) {
	db, err := openSQLite(dbPath, vectorSchema)
	if err != nil {
		return nil, err
	}
	return &SQLiteVectorStore{db: db}, nil
}

// InsertEmbeddings appends all records in one transaction; on any failure nothing is written.
func (s *SQLiteVectorStore) InsertEmbeddings(ctx context.Context, records []*models.EmbeddingRecord) error {
	if len(records) == 0 {
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
		`INSERT INTO embeddings (modality, file_name, vector) VALUES (?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.ExecContext(ctx, string(r.Modality), r.FileName, vector.Encode(r.Vector)); err != nil {
			return fmt.Errorf("insert embedding: %w", err)
		}
	}
	return tx.Commit()
}

// ScanEmbeddings calls fn for every stored record in insertion order. Returning an error from fn stops the scan.
func (s *SQLiteVectorStore) ScanEmbeddings(ctx context.Context, modality models.Modality, fn func(*models.RawEmbedding) error) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT modality, file_name, vector FROM embeddings
		 WHERE (? = '' OR modality = ?) ORDER BY rowid`,
		string(modality), string(modality),
	)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var r models.RawEmbedding
		var m string
		if err := rows.Scan(&m, &r.FileName, &r.Blob); err != nil {
			return err
		}
		r.Modality = models.Modality(m)
		if err := fn(&r); err != nil {
			return err
		}
	}
	return rows.Err()
}

// CountEmbeddings returns the number of stored records for the modality, or all records when modality is empty.
func (s *SQLiteVectorStore) CountEmbeddings(ctx context.Context, modality models.Modality) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM embeddings WHERE (? = '' OR modality = ?)`,
		string(modality), string(modality),
	).Scan(&count)
	return count, err
}

// ClearEmbeddings deletes stored records for the modality, or all records when modality is empty.
func (s *SQLiteVectorStore) ClearEmbeddings(ctx context.Context, modality models.Modality) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM embeddings WHERE (? = '' OR modality = ?)`,
		string(modality), string(modality),
	)
	return err
}

// Ping checks that the database is reachable.
func (s *SQLiteVectorStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteVectorStore) Close() error {
	return s.db.Close()
}
