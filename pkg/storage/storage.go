// Package storage persists serialized projects under a name.
//
// A [Store] holds opaque document bytes produced by [io.Marshal]; it never
// inspects them. The editor session writes through a Store after every
// successful mutation, so backends should treat Save as a whole-document
// replace.
//
// Backends are chosen by URL with [Open]:
//
//	""                      memory (nothing survives the process)
//	/path/to/dir, file://   one JSON file per project
//	sqlite:///path/to.db    a single table in a SQLite database
//	redis://host:6379/0     one hash per project
//	mongodb://host/db       one document per project
//
// Network backends (Redis, MongoDB) retry transient failures with
// [cache.RetryWithBackoff]. Connection failures they give up on match
// [cache.ErrNetwork] with errors.Is.
//
// [io.Marshal]: github.com/matzehuels/novella/pkg/io.Marshal
package storage

import (
	"context"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	errs "github.com/matzehuels/novella/pkg/errors"
)

// DefaultProject is the project name used when none is given. It matches the
// key the browser editor kept its scenes under.
const DefaultProject = "novella-scenes"

// Entry describes one stored project.
type Entry struct {
	Name      string    `json:"name"`
	Size      int       `json:"size"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store is a named blob store for project documents.
type Store interface {
	// Load returns the stored bytes. A missing project is an
	// errs.ErrCodeProjectNotFound error.
	Load(ctx context.Context, name string) ([]byte, error)
	// Save replaces the stored bytes.
	Save(ctx context.Context, name string, data []byte) error
	// Delete removes a project. Deleting a missing project is not an error.
	Delete(ctx context.Context, name string) error
	// List returns all projects sorted by name.
	List(ctx context.Context) ([]Entry, error)
	// Backend names the implementation ("memory", "file", ...).
	Backend() string
	Close() error
}

// Open returns the store addressed by rawURL.
func Open(ctx context.Context, rawURL string) (Store, error) {
	if rawURL == "" || rawURL == "memory:" || rawURL == "memory://" {
		return NewMemoryStore(), nil
	}
	scheme, rest, ok := strings.Cut(rawURL, "://")
	if !ok {
		return NewFileStore(rawURL)
	}
	switch scheme {
	case "file":
		return NewFileStore(rest)
	case "sqlite":
		return OpenSQLite(rest)
	case "redis", "rediss":
		return OpenRedis(ctx, rawURL)
	case "mongodb", "mongodb+srv":
		u, err := url.Parse(rawURL)
		if err != nil {
			return nil, errs.Wrap(errs.ErrCodeInvalidInput, err, "parse storage url")
		}
		db := strings.Trim(u.Path, "/")
		return OpenMongo(ctx, rawURL, db)
	default:
		return nil, errs.New(errs.ErrCodeUnsupported, "unsupported storage scheme %q", scheme)
	}
}

func projectNotFound(name string) error {
	return errs.New(errs.ErrCodeProjectNotFound, "project %q not found", name)
}

// =============================================================================
// Memory
// =============================================================================

// MemoryStore keeps projects in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
}

type memoryEntry struct {
	data    []byte
	updated time.Time
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryEntry)}
}

func (s *MemoryStore) Load(ctx context.Context, name string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[name]
	if !ok {
		return nil, projectNotFound(name)
	}
	return append([]byte(nil), e.data...), nil
}

func (s *MemoryStore) Save(ctx context.Context, name string, data []byte) error {
	if err := errs.ValidateProjectName(name); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[name] = memoryEntry{data: append([]byte(nil), data...), updated: time.Now()}
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, name)
	return nil
}

func (s *MemoryStore) List(ctx context.Context) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Entry, 0, len(s.entries))
	for name, e := range s.entries {
		out = append(out, Entry{Name: name, Size: len(e.data), UpdatedAt: e.updated})
	}
	sortEntries(out)
	return out, nil
}

func (s *MemoryStore) Backend() string { return "memory" }
func (s *MemoryStore) Close() error    { return nil }

func sortEntries(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
}

var _ Store = (*MemoryStore)(nil)
