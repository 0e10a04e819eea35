package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	errs "github.com/matzehuels/novella/pkg/errors"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS projects (
	name       TEXT PRIMARY KEY,
	data       BLOB NOT NULL,
	updated_at INTEGER NOT NULL
)`

// SQLiteStore keeps projects in one table of a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path. The special
// path ":memory:" opens a private in-memory database.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errs.New(errs.ErrCodeInvalidInput, "sqlite path is required")
	}
	dsn := path
	if path != ":memory:" {
		dsn = filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeStorage, err, "open sqlite db")
	}
	// One connection keeps ":memory:" databases shared and writes serialized.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, errs.Wrap(errs.ErrCodeStorage, err, "ping sqlite db")
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, errs.Wrap(errs.ErrCodeStorage, err, "create schema")
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Load(ctx context.Context, name string) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM projects WHERE name = ?`, name).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, projectNotFound(name)
	}
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeStorage, err, "load project")
	}
	return data, nil
}

func (s *SQLiteStore) Save(ctx context.Context, name string, data []byte) error {
	if err := errs.ValidateProjectName(name); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO projects (name, data, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		name, data, time.Now().UnixMilli())
	if err != nil {
		return errs.Wrap(errs.ErrCodeStorage, err, "save project")
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, name string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE name = ?`, name); err != nil {
		return errs.Wrap(errs.ErrCodeStorage, err, "delete project")
	}
	return nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, length(data), updated_at FROM projects ORDER BY name`)
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeStorage, err, "list projects")
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e       Entry
			updated int64
		)
		if err := rows.Scan(&e.Name, &e.Size, &updated); err != nil {
			return nil, fmt.Errorf("scan project row: %w", err)
		}
		e.UpdatedAt = time.UnixMilli(updated)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Wrap(errs.ErrCodeStorage, err, "list projects")
	}
	return out, nil
}

func (s *SQLiteStore) Backend() string { return "sqlite" }

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

var _ Store = (*SQLiteStore)(nil)
