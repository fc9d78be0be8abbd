package cache

// ScopedKeyer prefixes every key of an inner [Keyer], giving tenants or
// studies separate namespaces in a shared backend.
//
// Example:
//
//	// Keys private to one study in a shared Redis
//	keyer := cache.NewScopedKeyer(nil, "study:oai:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer wraps inner with a prefix. A nil inner uses the default
// keyer.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

// DocumentKey returns the inner document key with the scope prefix.
func (k *ScopedKeyer) DocumentKey(contentHash string, opts DocumentKeyOpts) string {
	return k.prefix + k.inner.DocumentKey(contentHash, opts)
}

// ReportKey returns the inner report key with the scope prefix.
func (k *ScopedKeyer) ReportKey(batchHash string, opts ReportKeyOpts) string {
	return k.prefix + k.inner.ReportKey(batchHash, opts)
}
