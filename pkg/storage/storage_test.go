package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/matzehuels/novella/pkg/cache"
	errs "github.com/matzehuels/novella/pkg/errors"
)

// exerciseStore runs the behavior every backend must share.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	if _, err := s.Load(ctx, "missing"); !errs.Is(err, errs.ErrCodeProjectNotFound) {
		t.Fatalf("Load(missing) error = %v, want PROJECT_NOT_FOUND", err)
	}

	if err := s.Save(ctx, "demo", []byte(`{"scenes":[]}`)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := s.Save(ctx, "demo", []byte(`{"scenes":[{}]}`)); err != nil {
		t.Fatalf("Save (replace): %v", err)
	}
	data, err := s.Load(ctx, "demo")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if string(data) != `{"scenes":[{}]}` {
		t.Errorf("Load = %s, want replaced document", data)
	}

	if err := s.Save(ctx, "alpha", []byte(`[]`)); err != nil {
		t.Fatalf("Save alpha: %v", err)
	}
	entries, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 2 || entries[0].Name != "alpha" || entries[1].Name != "demo" {
		t.Fatalf("List = %+v, want [alpha demo]", entries)
	}
	if entries[1].Size != len(`{"scenes":[{}]}`) {
		t.Errorf("demo size = %d", entries[1].Size)
	}

	if err := s.Delete(ctx, "demo"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Delete(ctx, "demo"); err != nil {
		t.Errorf("second Delete: %v", err)
	}
	if _, err := s.Load(ctx, "demo"); !errs.Is(err, errs.ErrCodeProjectNotFound) {
		t.Errorf("Load after Delete error = %v", err)
	}

	if err := s.Save(ctx, "../escape", []byte(`[]`)); !errs.Is(err, errs.ErrCodeInvalidName) {
		t.Errorf("Save(../escape) error = %v, want INVALID_NAME", err)
	}
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestMemoryStoreCopiesData(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	buf := []byte(`[]`)
	_ = s.Save(ctx, "p", buf)
	buf[0] = 'x'
	got, _ := s.Load(ctx, "p")
	if string(got) != `[]` {
		t.Errorf("stored data aliased caller buffer: %s", got)
	}
}

func TestFileStore(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	if s.Path() != dir {
		t.Errorf("Path = %q, want %q", s.Path(), dir)
	}
	exerciseStore(t, s)
}

func TestFileStoreIgnoresForeignFiles(t *testing.T) {
	dir := t.TempDir()
	s, _ := NewFileStore(dir)
	_ = os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644)
	_ = os.WriteFile(filepath.Join(dir, ".demo-1.tmp"), []byte("x"), 0o644)
	_ = os.Mkdir(filepath.Join(dir, "sub.json"), 0o755)

	entries, err := s.List(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("List = %+v, want none", entries)
	}
}

func TestSQLiteStore(t *testing.T) {
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "novella.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer s.Close()
	exerciseStore(t, s)
}

func TestSQLiteStoreInMemory(t *testing.T) {
	s, err := OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer s.Close()
	exerciseStore(t, s)
}

func TestSQLiteStoreReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "novella.db")
	ctx := context.Background()

	s, err := OpenSQLite(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Save(ctx, "demo", []byte(`[]`)); err != nil {
		t.Fatal(err)
	}
	s.Close()

	s, err = OpenSQLite(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	if data, err := s.Load(ctx, "demo"); err != nil || string(data) != `[]` {
		t.Errorf("Load after reopen = %s, %v", data, err)
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	tests := []struct {
		name    string
		url     string
		backend string
		code    errs.Code
	}{
		{name: "empty", url: "", backend: "memory"},
		{name: "memory", url: "memory://", backend: "memory"},
		{name: "bare path", url: filepath.Join(dir, "a"), backend: "file"},
		{name: "file url", url: "file://" + filepath.Join(dir, "b"), backend: "file"},
		{name: "sqlite url", url: "sqlite://" + filepath.Join(dir, "c.db"), backend: "sqlite"},
		{name: "unknown scheme", url: "ftp://host/x", code: errs.ErrCodeUnsupported},
		{name: "bad redis url", url: "redis://host:notaport/x", code: errs.ErrCodeInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Open(ctx, tt.url)
			if tt.code != "" {
				if !errs.Is(err, tt.code) {
					t.Fatalf("Open(%q) error = %v, want %s", tt.url, err, tt.code)
				}
				return
			}
			if err != nil {
				t.Fatalf("Open(%q): %v", tt.url, err)
			}
			defer s.Close()
			if s.Backend() != tt.backend {
				t.Errorf("Backend = %q, want %q", s.Backend(), tt.backend)
			}
		})
	}
}

func TestOpenUnreachableIsNetworkError(t *testing.T) {
	if testing.Short() {
		t.Skip("dials local ports")
	}
	tests := []struct {
		name string
		url  string
	}{
		{"redis", "redis://127.0.0.1:1/0"},
		{"mongodb", "mongodb://127.0.0.1:1/novella?serverSelectionTimeoutMS=300&connectTimeoutMS=300"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			s, err := Open(ctx, tt.url)
			if err == nil {
				s.Close()
				t.Fatalf("Open(%q) succeeded, want a connection failure", tt.url)
			}
			if !errors.Is(err, cache.ErrNetwork) {
				t.Errorf("error = %v, want ErrNetwork", err)
			}
			if !errs.Is(err, errs.ErrCodeStorage) {
				t.Errorf("error = %v, want STORAGE_ERROR", err)
			}
		})
	}
}
