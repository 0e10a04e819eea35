// Package observability provides hooks for metrics and tracing.
//
// Libraries emit events through hook interfaces without depending on any
// metrics backend. The defaults are no-ops; the `novella serve` command
// registers Prometheus-backed implementations at startup.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetEditorHooks(metrics)
//	    observability.SetExportHooks(metrics)
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	start := time.Now()
//	err := store.Save(ctx, name, data)
//	observability.Editor().OnAutosave(ctx, store.Backend(), len(data), time.Since(start), err)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Editor Hooks
// =============================================================================

// EditorHooks receives events from editing sessions.
type EditorHooks interface {
	// OnLoad records a project being opened. version names the document
	// shape that was read.
	OnLoad(ctx context.Context, version string, scenes int, err error)

	// OnMutation records one store operation, successful or not.
	OnMutation(ctx context.Context, op string, duration time.Duration, err error)

	// OnAutosave records the write that follows a successful mutation.
	OnAutosave(ctx context.Context, backend string, size int, duration time.Duration, err error)
}

// =============================================================================
// Export Hooks
// =============================================================================

// ExportHooks receives events from artifact rendering.
type ExportHooks interface {
	OnExportStart(ctx context.Context, format string)
	OnExportComplete(ctx context.Context, format string, size int, duration time.Duration, err error)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, keyType string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, keyType string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopEditorHooks is a no-op implementation of EditorHooks.
type NoopEditorHooks struct{}

func (NoopEditorHooks) OnLoad(context.Context, string, int, error)                       {}
func (NoopEditorHooks) OnMutation(context.Context, string, time.Duration, error)         {}
func (NoopEditorHooks) OnAutosave(context.Context, string, int, time.Duration, error)    {}

// NoopExportHooks is a no-op implementation of ExportHooks.
type NoopExportHooks struct{}

func (NoopExportHooks) OnExportStart(context.Context, string)                              {}
func (NoopExportHooks) OnExportComplete(context.Context, string, int, time.Duration, error) {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	editorHooks EditorHooks = NoopEditorHooks{}
	exportHooks ExportHooks = NoopExportHooks{}
	cacheHooks  CacheHooks  = NoopCacheHooks{}
	hooksMu     sync.RWMutex
)

// SetEditorHooks registers custom editor hooks.
// This should be called once at application startup.
func SetEditorHooks(h EditorHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		editorHooks = h
	}
}

// SetExportHooks registers custom export hooks.
func SetExportHooks(h ExportHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		exportHooks = h
	}
}

// SetCacheHooks registers custom cache hooks.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// Editor returns the registered editor hooks.
func Editor() EditorHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return editorHooks
}

// Export returns the registered export hooks.
func Export() ExportHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return exportHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	editorHooks = NoopEditorHooks{}
	exportHooks = NoopExportHooks{}
	cacheHooks = NoopCacheHooks{}
}
