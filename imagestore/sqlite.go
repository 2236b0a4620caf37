package imagestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // pure Go driver
)

const schema = `
CREATE TABLE IF NOT EXISTS images (
	handle TEXT PRIMARY KEY,
	mime TEXT NOT NULL,
	data BLOB NOT NULL,
	created_at INTEGER NOT NULL
)`

// SQLiteStore persists images in a SQLite database so handles survive restarts.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLite opens (creating if needed) the database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("sqlite image store requires a database path")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("create image store directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open image store: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping image store: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create images table: %w", err)
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

func (s *SQLiteStore) Store(ctx context.Context, data []byte, mime string) (string, error) {
	mime, err := prepare(data, mime)
	if err != nil {
		return "", err
	}
	handle := newHandle(mime)
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO images (handle, mime, data, created_at) VALUES (?, ?, ?, ?)`,
		handle, mime, data, s.now().Unix())
	if err != nil {
		return "", fmt.Errorf("insert image: %w", err)
	}
	return handle, nil
}

func (s *SQLiteStore) Fetch(ctx context.Context, handle string) ([]byte, string, error) {
	if err := checkHandle(handle); err != nil {
		return nil, "", err
	}
	var (
		mime string
		data []byte
	)
	err := s.db.QueryRowContext(ctx, `SELECT mime, data FROM images WHERE handle = ?`, handle).Scan(&mime, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", notFound(handle)
	}
	if err != nil {
		return nil, "", fmt.Errorf("query image: %w", err)
	}
	return data, mime, nil
}

// Prune deletes images stored before cutoff and reports how many were removed.
func (s *SQLiteStore) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM images WHERE created_at < ?`, cutoff.Unix())
	if err != nil {
		return 0, fmt.Errorf("prune images: %w", err)
	}
	return res.RowsAffected()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
