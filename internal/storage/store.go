// Package storage is the upload storage collaborator: file bytes on disk,
// metadata in SQLite.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/goliatone/go-boarding/pkg/field"
)

// ErrNotFound is returned for unknown file ids.
var ErrNotFound = errors.New("storage: file not found")

const schema = `CREATE TABLE IF NOT EXISTS files (
  id TEXT PRIMARY KEY,
  folder TEXT NOT NULL,
  name TEXT NOT NULL,
  size_in_bytes INTEGER NOT NULL,
  path TEXT NOT NULL,
  created_at INTEGER NOT NULL
)`

// File is the stored metadata of an upload.
type File struct {
	ID          string
	Folder      string
	Name        string
	SizeInBytes int64
	Path        string
	CreatedAt   time.Time
}

// Store persists uploads.
type Store struct {
	db         *sql.DB
	dir        string
	publicPath string
	now        func() time.Time
}

// Open opens the metadata database at dbPath and stores bytes under dir.
// References point at <publicPath>/<id>.
func Open(dbPath, dir, publicPath string) (*Store, error) {
	if strings.TrimSpace(dbPath) == "" || strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("storage: database path and directory are required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create %s: %w", dir, err)
	}
	if parent := filepath.Dir(dbPath); parent != "" {
		if err := os.MkdirAll(parent, 0o755); err != nil {
			return nil, fmt.Errorf("storage: create %s: %w", parent, err)
		}
	}
	dsn := filepath.Clean(dbPath) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("storage: open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("storage: ping sqlite db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("storage: migrate: %w", err)
	}
	return &Store{
		db:         db,
		dir:        dir,
		publicPath: strings.TrimRight(publicPath, "/"),
		now:        time.Now,
	}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Put writes r under folder and records its metadata. The returned reference
// carries the measured size.
func (s *Store) Put(ctx context.Context, folder, name string, r io.Reader, _ int64) (field.FileRef, error) {
	if err := ctx.Err(); err != nil {
		return field.FileRef{}, err
	}
	folder = cleanFolder(folder)
	name = filepath.Base(strings.TrimSpace(name))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return field.FileRef{}, fmt.Errorf("storage: file name is required")
	}

	id := uuid.NewString()
	rel := path.Join(folder, id+strings.ToLower(filepath.Ext(name)))
	target := filepath.Join(s.dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return field.FileRef{}, fmt.Errorf("storage: create folder: %w", err)
	}

	written, err := writeAtomic(target, r)
	if err != nil {
		return field.FileRef{}, err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO files (id, folder, name, size_in_bytes, path, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, folder, name, written, rel, s.now().UTC().UnixMilli(),
	)
	if err != nil {
		_ = os.Remove(target)
		return field.FileRef{}, fmt.Errorf("storage: insert %s: %w", id, err)
	}
	return field.FileRef{
		ID:          id,
		Name:        name,
		SizeInBytes: written,
		PublicURL:   s.publicPath + "/" + id,
		PrivateURL:  rel,
	}, nil
}

func writeAtomic(target string, r io.Reader) (int64, error) {
	tmp, err := os.CreateTemp(filepath.Dir(target), ".upload-*")
	if err != nil {
		return 0, fmt.Errorf("storage: temp file: %w", err)
	}
	written, err := io.Copy(tmp, r)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmp.Name())
		return 0, fmt.Errorf("storage: write: %w", err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		_ = os.Remove(tmp.Name())
		return 0, fmt.Errorf("storage: rename: %w", err)
	}
	return written, nil
}

// Get returns the metadata of id.
func (s *Store) Get(ctx context.Context, id string) (File, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, folder, name, size_in_bytes, path, created_at FROM files WHERE id = ?`, id)
	var f File
	var created int64
	if err := row.Scan(&f.ID, &f.Folder, &f.Name, &f.SizeInBytes, &f.Path, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return File{}, ErrNotFound
		}
		return File{}, fmt.Errorf("storage: get %s: %w", id, err)
	}
	f.CreatedAt = time.UnixMilli(created).UTC()
	return f, nil
}

// Open returns the bytes of id. Callers close the reader.
func (s *Store) Open(ctx context.Context, id string) (io.ReadCloser, File, error) {
	f, err := s.Get(ctx, id)
	if err != nil {
		return nil, File{}, err
	}
	rc, err := os.Open(filepath.Join(s.dir, filepath.FromSlash(f.Path)))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, File{}, ErrNotFound
		}
		return nil, File{}, fmt.Errorf("storage: open %s: %w", id, err)
	}
	return rc, f, nil
}

// Delete removes the bytes and metadata of id.
func (s *Store) Delete(ctx context.Context, id string) error {
	f, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM files WHERE id = ?`, id); err != nil {
		return fmt.Errorf("storage: delete %s: %w", id, err)
	}
	if err := os.Remove(filepath.Join(s.dir, filepath.FromSlash(f.Path))); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("storage: remove %s: %w", id, err)
	}
	return nil
}

// cleanFolder keeps folder inside the storage directory.
func cleanFolder(folder string) string {
	folder = path.Clean("/" + strings.ReplaceAll(folder, "\\", "/"))
	folder = strings.TrimPrefix(folder, "/")
	if folder == "" || folder == "." {
		return "misc"
	}
	return folder
}
