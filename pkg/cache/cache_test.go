package cache

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

var errMissing = errors.New("missing")

func TestNullCache(t *testing.T) {
	ctx := context.Background()
	c := NewNullCache()
	defer c.Close()

	// Get always returns miss
	data, hit, err := c.Get(ctx, "key")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if hit {
		t.Error("NullCache.Get should always return miss")
	}
	if data != nil {
		t.Error("NullCache.Get should return nil data")
	}

	// Set does nothing (no error)
	if err := c.Set(ctx, "key", []byte("value"), time.Hour); err != nil {
		t.Errorf("Set error: %v", err)
	}

	// Still a miss after Set
	_, hit, _ = c.Get(ctx, "key")
	if hit {
		t.Error("NullCache should not store data")
	}

	// Delete does nothing (no error)
	if err := c.Delete(ctx, "key"); err != nil {
		t.Errorf("Delete error: %v", err)
	}
}

func TestHash(t *testing.T) {
	// Test determinism
	h1 := Hash([]byte("hello"))
	h2 := Hash([]byte("hello"))
	if h1 != h2 {
		t.Error("Hash should be deterministic")
	}

	// Test different inputs produce different hashes
	h3 := Hash([]byte("world"))
	if h1 == h3 {
		t.Error("Different inputs should produce different hashes")
	}

	// Test hash length (SHA-256 produces 64 hex chars)
	if len(h1) != 64 {
		t.Errorf("Hash length should be 64, got %d", len(h1))
	}
}

func TestDefaultKeyer(t *testing.T) {
	k := NewDefaultKeyer()

	ak1 := k.ArtifactKey("hash123", ArtifactKeyOpts{Title: "A"})
	ak2 := k.ArtifactKey("hash123", ArtifactKeyOpts{Title: "B"})
	if ak1 == ak2 {
		t.Error("Different ArtifactKeyOpts should produce different keys")
	}
	if ak1 != k.ArtifactKey("hash123", ArtifactKeyOpts{Title: "A"}) {
		t.Error("ArtifactKey should be deterministic")
	}
	if !strings.HasPrefix(ak1, "artifact:") {
		t.Errorf("ArtifactKey unexpected: %s", ak1)
	}

	mk1 := k.MapKey("hash123", MapKeyOpts{Format: "svg"})
	mk2 := k.MapKey("hash123", MapKeyOpts{Format: "dot"})
	if mk1 == mk2 {
		t.Error("Different MapKeyOpts should produce different keys")
	}
	if mk1 == k.MapKey("other", MapKeyOpts{Format: "svg"}) {
		t.Error("Different project hashes should produce different keys")
	}
}

func TestScopedKeyer(t *testing.T) {
	inner := NewDefaultKeyer()
	scoped := NewScopedKeyer(inner, "project:demo:")

	key := scoped.MapKey("h", MapKeyOpts{Format: "svg"})
	if key != "project:demo:"+inner.MapKey("h", MapKeyOpts{Format: "svg"}) {
		t.Errorf("ScopedKeyer MapKey unexpected: %s", key)
	}
}

func TestScopedKeyerNilInner(t *testing.T) {
	// Should use DefaultKeyer when inner is nil
	scoped := NewScopedKeyer(nil, "prefix:")
	key := scoped.ArtifactKey("h", ArtifactKeyOpts{})
	if !strings.HasPrefix(key, "prefix:artifact:") {
		t.Errorf("Unexpected key with nil inner: %s", key)
	}
}

func TestNetwork(t *testing.T) {
	if Network(nil) != nil {
		t.Error("Network(nil) should return nil")
	}
	cause := errors.New("dial tcp: connection refused")
	err := Network(cause)
	if !errors.Is(err, ErrNetwork) || !errors.Is(err, cause) {
		t.Errorf("Network(%v) = %v, want to match ErrNetwork and the cause", cause, err)
	}
	if !errors.Is(Retryable(err), ErrNetwork) {
		t.Error("Retryable should keep ErrNetwork reachable")
	}
}

func TestProjectKeyer(t *testing.T) {
	demo := NewProjectKeyer("demo")
	other := NewProjectKeyer("demo2")
	opts := MapKeyOpts{Format: "svg"}

	if key := demo.MapKey("h", opts); !strings.HasPrefix(key, ProjectScope("demo")) {
		t.Errorf("MapKey = %s, want prefix %s", key, ProjectScope("demo"))
	}
	if strings.HasPrefix(other.MapKey("h", opts), ProjectScope("demo")) {
		t.Error("demo2 keys should not fall under the demo scope")
	}
}

func TestFileCacheClearPrefix(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	demo, other := NewProjectKeyer("demo"), NewProjectKeyer("other")
	keys := []string{
		demo.MapKey("h", MapKeyOpts{Format: "svg"}),
		demo.ArtifactKey("h", ArtifactKeyOpts{}),
		other.MapKey("h", MapKeyOpts{Format: "svg"}),
	}
	for _, k := range keys {
		if err := c.Set(ctx, k, []byte(k), 0); err != nil {
			t.Fatal(err)
		}
	}

	n, err := c.ClearPrefix(ctx, ProjectScope("demo"))
	if err != nil {
		t.Fatalf("ClearPrefix: %v", err)
	}
	if n != 2 {
		t.Errorf("ClearPrefix removed %d, want 2", n)
	}
	for i, k := range keys {
		_, hit, _ := c.Get(ctx, k)
		if want := i == 2; hit != want {
			t.Errorf("Get(%s) hit = %v, want %v", k, hit, want)
		}
	}
}

func TestFileCache(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}
	defer c.Close()

	if _, hit, _ := c.Get(ctx, "k"); hit {
		t.Error("empty cache returned a hit")
	}
	if err := c.Set(ctx, "k", []byte("v"), time.Hour); err != nil {
		t.Fatalf("Set: %v", err)
	}
	data, hit, err := c.Get(ctx, "k")
	if err != nil || !hit || string(data) != "v" {
		t.Errorf("Get = %q, %v, %v", data, hit, err)
	}

	_ = c.Set(ctx, "expired", []byte("x"), time.Nanosecond)
	time.Sleep(2 * time.Millisecond)
	if _, hit, _ := c.Get(ctx, "expired"); hit {
		t.Error("expired entry returned a hit")
	}

	_ = c.Set(ctx, "other", []byte("y"), 0)
	n, err := c.Clear()
	if err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if n != 2 {
		t.Errorf("Clear() = %d, want 2", n)
	}
	if _, hit, _ := c.Get(ctx, "k"); hit {
		t.Error("entry survived Clear")
	}
}

func TestFetch(t *testing.T) {
	ctx := context.Background()
	c, _ := NewFileCache(t.TempDir())

	calls := 0
	compute := func() ([]byte, error) {
		calls++
		return []byte("svg"), nil
	}
	for i := 0; i < 2; i++ {
		data, hit, err := Fetch(ctx, c, "map:k", time.Hour, compute)
		if err != nil || string(data) != "svg" {
			t.Fatalf("Fetch = %q, %v", data, err)
		}
		if hit != (i == 1) {
			t.Errorf("call %d: hit = %v", i, hit)
		}
	}
	if calls != 1 {
		t.Errorf("compute called %d times, want 1", calls)
	}

	if _, _, err := Fetch(ctx, NewNullCache(), "x", 0, func() ([]byte, error) { return nil, errMissing }); err != errMissing {
		t.Errorf("Fetch error = %v, want errMissing", err)
	}
	if data, _, _ := Fetch(ctx, nil, "x", 0, compute); string(data) != "svg" {
		t.Error("Fetch with nil cache did not compute")
	}
}

func TestKeyKind(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"map:ab12", "map"},
		{"artifact:ff00", "artifact"},
		{"project:demo:map:ab12", "map"},
		{"plain", "unknown"},
	}
	for _, tt := range tests {
		if got := keyKind(tt.key); got != tt.want {
			t.Errorf("keyKind(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}

func TestRetryableError(t *testing.T) {
	// Retryable(nil) returns nil
	if Retryable(nil) != nil {
		t.Error("Retryable(nil) should return nil")
	}

	// Non-nil error is wrapped
	err := Retryable(ErrNetwork)
	if err == nil {
		t.Fatal("Retryable should return wrapped error")
	}
	if !IsRetryable(err) {
		t.Error("IsRetryable should return true for wrapped error")
	}

	// Error message is preserved
	if err.Error() != ErrNetwork.Error() {
		t.Errorf("Error message should be preserved: %s", err.Error())
	}

	// Non-wrapped errors are not retryable
	if IsRetryable(errMissing) {
		t.Error("IsRetryable should return false for unwrapped error")
	}
}

func TestRetryWithBackoff(t *testing.T) {
	ctx := context.Background()

	// Success on first try
	calls := 0
	err := RetryWithBackoff(ctx, func() error {
		calls++
		return nil
	})
	if err != nil {
		t.Errorf("Should succeed: %v", err)
	}
	if calls != 1 {
		t.Errorf("Should call once: %d", calls)
	}

	// Non-retryable error stops immediately
	calls = 0
	err = RetryWithBackoff(ctx, func() error {
		calls++
		return errMissing
	})
	if err != errMissing {
		t.Errorf("Should return non-retryable error: %v", err)
	}
	if calls != 1 {
		t.Errorf("Should not retry non-retryable error: %d", calls)
	}

	// Retryable error triggers retries
	calls = 0
	err = RetryWithBackoff(ctx, func() error {
		calls++
		if calls < 2 {
			return Retryable(ErrNetwork)
		}
		return nil
	})
	if err != nil {
		t.Errorf("Should succeed after retry: %v", err)
	}
	if calls != 2 {
		t.Errorf("Should retry once: %d", calls)
	}
}

func TestRetryWithBackoffContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel() // Cancel immediately

	err := RetryWithBackoff(ctx, func() error {
		return Retryable(ErrNetwork)
	})
	if err != context.Canceled {
		t.Errorf("Should return context error: %v", err)
	}
}
