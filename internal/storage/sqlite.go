package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/bunkatsu/internal/models"
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS sources (
		locator TEXT PRIMARY KEY,
		document_type TEXT NOT NULL,
		text_hash TEXT NOT NULL,
		chunk_count INTEGER NOT NULL,
		ingested_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS chunks (
		id TEXT PRIMARY KEY,
		source_locator TEXT NOT NULL,
		ordinal INTEGER NOT NULL,
		text TEXT NOT NULL,
		overlap_length INTEGER NOT NULL DEFAULT 0,
		section_id TEXT,
		section_title TEXT,
		density_type TEXT NOT NULL,
		density_score REAL NOT NULL,
		keywords TEXT,
		key_phrases TEXT,
		references_to TEXT,
		hard_cut INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL,
		FOREIGN KEY (source_locator) REFERENCES sources(locator) ON DELETE CASCADE
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_chunks_source_ordinal ON chunks(source_locator, ordinal);
	CREATE INDEX IF NOT EXISTS idx_chunks_section ON chunks(section_id);
	`
	_, err := db.Exec(schema)
	return err
}

const chunkColumns = `id, source_locator, ordinal, text, overlap_length, section_id, section_title,
	density_type, density_score, keywords, key_phrases, references_to, hard_cut, created_at`

// ReplaceSource deletes the previous chunks of the source and inserts the new set in one transaction.
func (s *SQLiteStorage) ReplaceSource(ctx context.Context, src *models.Source, chunks []*models.Chunk) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	src.IngestedAt = now
	src.ChunkCount = len(chunks)

	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE source_locator = ?`, src.Locator); err != nil {
		return fmt.Errorf("failed to delete old chunks: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO sources (locator, document_type, text_hash, chunk_count, ingested_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(locator) DO UPDATE SET
		   document_type = excluded.document_type,
		   text_hash = excluded.text_hash,
		   chunk_count = excluded.chunk_count,
		   ingested_at = excluded.ingested_at`,
		src.Locator, string(src.DocumentType), src.TextHash, src.ChunkCount, src.IngestedAt,
	); err != nil {
		return fmt.Errorf("failed to upsert source: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO chunks (`+chunkColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, c := range chunks {
		c.CreatedAt = now
		keywords, phrases, refs, err := marshalLists(c)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx,
			c.ID, src.Locator, c.Ordinal, c.Text, c.OverlapLength, c.SectionID, c.SectionTitle,
			string(c.DensityType), c.DensityScore, keywords, phrases, refs, c.HardCut, c.CreatedAt,
		); err != nil {
			return fmt.Errorf("failed to insert chunk %d: %w", c.Ordinal, err)
		}
	}
	return tx.Commit()
}

func marshalLists(c *models.Chunk) (string, string, string, error) {
	var out [3]string
	for i, list := range [][]string{c.Keywords, c.KeyPhrases, c.ReferencesTo} {
		if list == nil {
			list = []string{}
		}
		b, err := json.Marshal(list)
		if err != nil {
			return "", "", "", fmt.Errorf("failed to marshal chunk lists: %w", err)
		}
		out[i] = string(b)
	}
	return out[0], out[1], out[2], nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanChunk(row rowScanner) (*models.Chunk, error) {
	var c models.Chunk
	var sectionID, sectionTitle, keywords, phrases, refs sql.NullString
	var densityType string
	if err := row.Scan(&c.ID, &c.SourceLocator, &c.Ordinal, &c.Text, &c.OverlapLength, &sectionID, &sectionTitle,
		&densityType, &c.DensityScore, &keywords, &phrases, &refs, &c.HardCut, &c.CreatedAt); err != nil {
		return nil, err
	}
	c.SectionID = sectionID.String
	c.SectionTitle = sectionTitle.String
	c.DensityType = models.DensityCategory(densityType)
	for _, f := range []struct {
		raw sql.NullString
		dst *[]string
	}{{keywords, &c.Keywords}, {phrases, &c.KeyPhrases}, {refs, &c.ReferencesTo}} {
		if f.raw.String == "" {
			continue
		}
		if err := json.Unmarshal([]byte(f.raw.String), f.dst); err != nil {
			return nil, fmt.Errorf("failed to unmarshal chunk lists: %w", err)
		}
	}
	return &c, nil
}

func scanChunks(rows *sql.Rows) ([]*models.Chunk, error) {
	defer rows.Close()
	var chunks []*models.Chunk
	for rows.Next() {
		c, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

// GetSource returns a source by locator.
func (s *SQLiteStorage) GetSource(ctx context.Context, locator string) (*models.Source, error) {
	var src models.Source
	var docType string
	err := s.db.QueryRowContext(ctx,
		`SELECT locator, document_type, text_hash, chunk_count, ingested_at FROM sources WHERE locator = ?`, locator,
	).Scan(&src.Locator, &docType, &src.TextHash, &src.ChunkCount, &src.IngestedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("source %s: %w", locator, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	src.DocumentType = models.DocumentType(docType)
	return &src, nil
}

// ListSources returns sources ordered by locator with offset and limit.
func (s *SQLiteStorage) ListSources(ctx context.Context, offset, limit int) ([]*models.Source, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT locator, document_type, text_hash, chunk_count, ingested_at
		 FROM sources ORDER BY locator LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sources []*models.Source
	for rows.Next() {
		var src models.Source
		var docType string
		if err := rows.Scan(&src.Locator, &docType, &src.TextHash, &src.ChunkCount, &src.IngestedAt); err != nil {
			return nil, err
		}
		src.DocumentType = models.DocumentType(docType)
		sources = append(sources, &src)
	}
	return sources, rows.Err()
}

// DeleteSource removes a source and, by cascade, its chunks.
func (s *SQLiteStorage) DeleteSource(ctx context.Context, locator string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sources WHERE locator = ?`, locator)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("source %s: %w", locator, ErrNotFound)
	}
	return nil
}

// GetChunk returns a chunk by ID.
func (s *SQLiteStorage) GetChunk(ctx context.Context, id string) (*models.Chunk, error) {
	c, err := scanChunk(s.db.QueryRowContext(ctx, `SELECT `+chunkColumns+` FROM chunks WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("chunk %s: %w", id, ErrNotFound)
	}
	return c, err
}

// GetChunks returns the existing chunks among ids, in input order.
func (s *SQLiteStorage) GetChunks(ctx context.Context, ids []string) ([]*models.Chunk, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	rows, err := s.db.QueryContext(ctx, `SELECT `+chunkColumns+` FROM chunks WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, err
	}
	found, err := scanChunks(rows)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*models.Chunk, len(found))
	for _, c := range found {
		byID[c.ID] = c
	}
	out := make([]*models.Chunk, 0, len(found))
	for _, id := range ids {
		if c, ok := byID[id]; ok {
			out = append(out, c)
			delete(byID, id)
		}
	}
	return out, nil
}

// GetChunksBySource returns all chunks of a source ordered by ordinal.
func (s *SQLiteStorage) GetChunksBySource(ctx context.Context, locator string) ([]*models.Chunk, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+chunkColumns+` FROM chunks WHERE source_locator = ? ORDER BY ordinal`, locator)
	if err != nil {
		return nil, err
	}
	return scanChunks(rows)
}

// AllChunks streams every chunk, grouped by source.
func (s *SQLiteStorage) AllChunks(ctx context.Context, fn func(source string, chunks []*models.Chunk) error) error {
	rows, err := s.db.QueryContext(ctx, `SELECT `+chunkColumns+` FROM chunks ORDER BY source_locator, ordinal`)
	if err != nil {
		return err
	}
	defer rows.Close()

	var current string
	var group []*models.Chunk
	for rows.Next() {
		c, err := scanChunk(rows)
		if err != nil {
			return err
		}
		if c.SourceLocator != current && len(group) > 0 {
			if err := fn(current, group); err != nil {
				return err
			}
			group = nil
		}
		current = c.SourceLocator
		group = append(group, c)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if len(group) > 0 {
		return fn(current, group)
	}
	return nil
}

// CountSources returns the total number of sources.
func (s *SQLiteStorage) CountSources(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sources`).Scan(&count)
	return count, err
}

// CountChunks returns the total number of chunks.
func (s *SQLiteStorage) CountChunks(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&count)
	return count, err
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
