package cache

// ScopedKeyer wraps a Keyer with a prefix for namespace isolation.
// The HTTP API scopes keys per client so one client can purge its own
// entries without touching anyone else's.
//
// Example usage:
//
//	// Per-client keys
//	clientKeyer := NewScopedKeyer(NewDefaultKeyer(), "client:abc123:")
//
//	// Shared keys for the CLI
//	keyer := NewDefaultKeyer()
type ScopedKeyer struct {
	inner  Keyer
	prefix string
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

// Prefix returns the scope prefix.
func (k *ScopedKeyer) Prefix() string { return k.prefix }

// RunKey generates a prefixed key for generation results.
func (k *ScopedKeyer) RunKey(optionsHash string) string {
	return k.prefix + k.inner.RunKey(optionsHash)
}

// ArtifactKey generates a prefixed key for artifact caching.
func (k *ScopedKeyer) ArtifactKey(runHash string, opts ArtifactKeyOpts) string {
	return k.prefix + k.inner.ArtifactKey(runHash, opts)
}
