package cache

// ArtifactKeyOpts are the export options that change an HTML artifact.
type ArtifactKeyOpts struct {
	Title string `json:"title,omitempty"`
	Lang  string `json:"lang,omitempty"`
	Start string `json:"start,omitempty"`
}

// MapKeyOpts are the options that change a story map.
type MapKeyOpts struct {
	Format   string `json:"format"`
	Detailed bool   `json:"detailed,omitempty"`
}

// Keyer derives cache keys from a project hash and render options.
type Keyer interface {
	ArtifactKey(projectHash string, opts ArtifactKeyOpts) string
	MapKey(projectHash string, opts MapKeyOpts) string
}

// DefaultKeyer builds keys of the form "kind:sha256(hash, opts)".
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// ArtifactKey returns the key of an HTML export.
func (DefaultKeyer) ArtifactKey(projectHash string, opts ArtifactKeyOpts) string {
	return hashKey("artifact", projectHash, opts)
}

// MapKey returns the key of a rendered story map.
func (DefaultKeyer) MapKey(projectHash string, opts MapKeyOpts) string {
	return hashKey("map", projectHash, opts)
}
