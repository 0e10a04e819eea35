package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	errs "github.com/matzehuels/novella/pkg/errors"
)

// FileStore stores each project as <dir>/<name>.json.
type FileStore struct {
	mu      sync.RWMutex
	baseDir string
}

// NewFileStore creates a file store rooted at baseDir.
// If baseDir is empty, defaults to ~/.local/share/novella/projects/.
func NewFileStore(baseDir string) (*FileStore, error) {
	if baseDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home dir: %w", err)
		}
		baseDir = filepath.Join(home, ".local", "share", "novella", "projects")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, errs.Wrap(errs.ErrCodeStorage, err, "create project dir")
	}
	return &FileStore{baseDir: baseDir}, nil
}

func (s *FileStore) projectPath(name string) (string, error) {
	if err := errs.ValidateProjectName(name); err != nil {
		return "", err
	}
	return filepath.Join(s.baseDir, name+".json"), nil
}

func (s *FileStore) Load(ctx context.Context, name string) ([]byte, error) {
	path, err := s.projectPath(name)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, projectNotFound(name)
		}
		return nil, errs.Wrap(errs.ErrCodeStorage, err, "read project file")
	}
	return data, nil
}

// Save writes through a temporary file and renames it into place so a
// crash never leaves a half-written project behind.
func (s *FileStore) Save(ctx context.Context, name string, data []byte) error {
	path, err := s.projectPath(name)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(s.baseDir, "."+name+"-*.tmp")
	if err != nil {
		return errs.Wrap(errs.ErrCodeStorage, err, "create temp file")
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errs.Wrap(errs.ErrCodeStorage, err, "write project file")
	}
	if err := tmp.Close(); err != nil {
		return errs.Wrap(errs.ErrCodeStorage, err, "write project file")
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return errs.Wrap(errs.ErrCodeStorage, err, "replace project file")
	}
	return nil
}

func (s *FileStore) Delete(ctx context.Context, name string) error {
	path, err := s.projectPath(name)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errs.Wrap(errs.ErrCodeStorage, err, "remove project file")
	}
	return nil
}

func (s *FileStore) List(ctx context.Context) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	dirEntries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeStorage, err, "read project dir")
	}
	var out []Entry
	for _, de := range dirEntries {
		name := de.Name()
		if de.IsDir() || filepath.Ext(name) != ".json" || strings.HasPrefix(name, ".") {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		out = append(out, Entry{
			Name:      strings.TrimSuffix(name, ".json"),
			Size:      int(info.Size()),
			UpdatedAt: info.ModTime(),
		})
	}
	sortEntries(out)
	return out, nil
}

func (s *FileStore) Backend() string { return "file" }
func (s *FileStore) Close() error    { return nil }

// Path returns the base directory for project files.
func (s *FileStore) Path() string {
	return s.baseDir
}

// ProjectPath returns the file a project is stored in.
func (s *FileStore) ProjectPath(name string) (string, error) {
	return s.projectPath(name)
}

var _ Store = (*FileStore)(nil)
