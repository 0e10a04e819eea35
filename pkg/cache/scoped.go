package cache

// ScopedKeyer wraps a Keyer with a prefix so several projects can share one
// backend without their entries colliding.
//
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "project:demo:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// ProjectScope returns the key prefix for one project's entries. Project
// names cannot contain ':', so no scope is a prefix of another.
func ProjectScope(project string) string {
	return "project:" + project + ":"
}

// NewProjectKeyer scopes the default keyer to a project, so its entries can
// be dropped with [Clearer.ClearPrefix] and [ProjectScope].
func NewProjectKeyer(project string) Keyer {
	return NewScopedKeyer(nil, ProjectScope(project))
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// ArtifactKey generates a prefixed key for HTML exports.
func (k *ScopedKeyer) ArtifactKey(projectHash string, opts ArtifactKeyOpts) string {
	return k.prefix + k.inner.ArtifactKey(projectHash, opts)
}

// MapKey generates a prefixed key for story maps.
func (k *ScopedKeyer) MapKey(projectHash string, opts MapKeyOpts) string {
	return k.prefix + k.inner.MapKey(projectHash, opts)
}
