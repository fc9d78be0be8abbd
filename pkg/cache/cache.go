// Package cache provides the byte caches behind the decode pipeline.
//
// Rasterizing a mask document is deterministic in its content and decode
// settings, so results are cached across runs: keyed by content hash, stored
// as opaque bytes. Three backends exist - [FileCache] for CLI runs,
// [RedisCache] for shared deployments and [NullCache] to disable caching.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// Entry lifetimes. Mask documents are immutable snapshots, so their rasters
// stay valid for a long time; run reports depend on the batch composition
// and age out faster.
const (
	TTLDocument = 30 * 24 * time.Hour
	TTLReport   = 7 * 24 * time.Hour
)

// Cache stores opaque byte values under string keys with a TTL. A zero TTL
// means no expiration. Implementations must treat a missing key as a miss,
// not an error.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// DocumentKeyOpts distinguishes rasters produced under different decode
// settings: the same file decoded strictly or with hole filling is a
// different cache entry.
type DocumentKeyOpts struct {
	Strict    bool `json:"strict"`
	FillHoles bool `json:"fill_holes"`
}

// ReportKeyOpts distinguishes run reports produced under different
// measurement settings.
type ReportKeyOpts struct {
	Source    string `json:"source"`
	Strict    bool   `json:"strict"`
	FillHoles bool   `json:"fill_holes"`
}

// Keyer generates cache keys for pipeline stages. Implementations must be
// deterministic: equal inputs yield equal keys.
type Keyer interface {
	// DocumentKey keys one document's rasterized planes by its content hash.
	DocumentKey(contentHash string, opts DocumentKeyOpts) string
	// ReportKey keys a batch run's volume report by the hash of its inputs.
	ReportKey(batchHash string, opts ReportKeyOpts) string
}

// DefaultKeyer is the standard key scheme: `<kind>:<sha256 of inputs>`.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the standard keyer.
func NewDefaultKeyer() Keyer { return &DefaultKeyer{} }

// DocumentKey implements [Keyer].
func (k *DefaultKeyer) DocumentKey(contentHash string, opts DocumentKeyOpts) string {
	return hashKey("doc", contentHash, opts)
}

// ReportKey implements [Keyer].
func (k *DefaultKeyer) ReportKey(batchHash string, opts ReportKeyOpts) string {
	return hashKey("report", batchHash, opts)
}

// hashKey builds `prefix:hash(parts...)`. The full SHA-256 keeps unrelated
// inputs from colliding.
func hashKey(prefix string, parts ...any) string {
	data, _ := json.Marshal(parts)
	sum := sha256.Sum256(data)
	return fmt.Sprintf("%s:%s", prefix, hex.EncodeToString(sum[:]))
}

// Hash returns the SHA-256 of data as a 64-character hex string. Pipeline
// stages use it to fingerprint document contents for cache keys.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// NullCache never stores anything: every read misses, every write succeeds.
// It backs runs with caching disabled and keeps tests hermetic.
type NullCache struct{}

// NewNullCache returns the no-op cache.
func NewNullCache() Cache { return &NullCache{} }

// Get always misses.
func (c *NullCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return nil, false, nil
}

// Set discards the value.
func (c *NullCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return nil
}

// Delete does nothing.
func (c *NullCache) Delete(ctx context.Context, key string) error { return nil }

// Close does nothing.
func (c *NullCache) Close() error { return nil }

var _ Cache = (*NullCache)(nil)
