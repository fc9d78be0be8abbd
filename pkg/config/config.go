// Package config loads the TOML configuration that calibrates and wires the
// maskstack tools. Voxel sizes are never hard-coded at measurement sites:
// every scan protocol ("source") maps to its calibration here.
package config

import (
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"

	pkgerrors "github.com/matzehuels/maskstack/pkg/errors"
	"github.com/matzehuels/maskstack/pkg/volume"
)

// Defaults applied when no configuration file overrides them.
const (
	DefaultCacheBackend = "file"
	DefaultRedisAddr    = "localhost:6379"
	DefaultDatabase     = "maskstack"
	DefaultCollection   = "runs"
	DefaultServeAddr    = ":8639"
)

// Config is the root of the TOML file.
type Config struct {
	Decode  Decode            `toml:"decode"`
	Sources map[string]Source `toml:"sources"`
	Cache   Cache             `toml:"cache"`
	Store   Store             `toml:"store"`
	Serve   Serve             `toml:"serve"`
}

// Decode selects decoder behavior for every run.
type Decode struct {
	// Strict fails a document on the first malformed construct instead of
	// keeping the slices decoded before it.
	Strict bool `toml:"strict"`
	// FillHoles applies hole-filling to every rasterized slice.
	FillHoles bool `toml:"fill_holes"`
}

// Source is one scan protocol's voxel calibration, in millimeters.
type Source struct {
	InPlane   [2]float64 `toml:"in_plane"`
	Thickness float64    `toml:"thickness"`
}

// Cache selects the cache backend.
type Cache struct {
	// Backend is one of "file", "redis" or "none".
	Backend string `toml:"backend"`
	// Dir is the file backend's directory; empty means the user cache dir.
	Dir string `toml:"dir"`
	// RedisAddr is the redis backend's host:port.
	RedisAddr string `toml:"redis_addr"`
}

// Store configures the optional MongoDB run store. An empty URI disables it.
type Store struct {
	URI        string `toml:"uri"`
	Database   string `toml:"database"`
	Collection string `toml:"collection"`
}

// Serve configures the HTTP API.
type Serve struct {
	Addr string `toml:"addr"`
}

// Default returns the built-in configuration: permissive decoding with hole
// filling, the file cache, no store, and the two calibrated protocols this
// tooling ships with (IWFS and DESS knee MRI).
func Default() *Config {
	return &Config{
		Decode: Decode{Strict: false, FillHoles: true},
		Sources: map[string]Source{
			"iwfs": {InPlane: [2]float64{0.357, 0.511}, Thickness: 3.0},
			"dess": {InPlane: [2]float64{0.365, 0.456}, Thickness: 0.7},
		},
		Cache: Cache{Backend: DefaultCacheBackend, RedisAddr: DefaultRedisAddr},
		Store: Store{Database: DefaultDatabase, Collection: DefaultCollection},
		Serve: Serve{Addr: DefaultServeAddr},
	}
}

// Load reads the configuration at path layered over [Default]. An empty path
// falls back to [DefaultPath] when that file exists, and to the defaults
// alone when it does not; an explicit path must exist.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
	case os.IsNotExist(err) && !explicit:
		return Default(), nil
	case os.IsNotExist(err):
		return nil, pkgerrors.Wrap(pkgerrors.ErrCodeFileNotFound, err, "config file %s not found", path)
	default:
		return nil, pkgerrors.Wrap(pkgerrors.ErrCodeInvalidConfig, err, "read config %s", path)
	}

	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.ErrCodeInvalidConfig, err, "parse config %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DefaultPath returns the per-user configuration file location,
// `<user config dir>/maskstack/config.toml`.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.ErrCodeInvalidConfig, err, "resolve user config dir")
	}
	return filepath.Join(dir, "maskstack", "config.toml"), nil
}

// Validate checks cross-field constraints: a known cache backend, valid
// source names and positive voxel calibrations.
func (c *Config) Validate() error {
	switch c.Cache.Backend {
	case "file", "redis", "none":
	default:
		return pkgerrors.New(pkgerrors.ErrCodeInvalidConfig,
			"cache backend %q must be file, redis or none", c.Cache.Backend)
	}

	for _, name := range slices.Sorted(maps.Keys(c.Sources)) {
		if err := pkgerrors.ValidateSourceName(name); err != nil {
			return err
		}
		if _, err := c.Sources[name].Size().Scalar(); err != nil {
			return pkgerrors.Wrap(pkgerrors.ErrCodeInvalidConfig, err, "source %q", name)
		}
	}
	return nil
}

// Size converts the calibration to a measurable voxel size.
func (s Source) Size() volume.Size {
	return volume.Size{InPlane: s.InPlane, Thickness: s.Thickness}
}

// VoxelSize resolves a source name to its calibration. Unknown names fail
// with a message listing the configured sources.
func (c *Config) VoxelSize(source string) (volume.Size, error) {
	src, ok := c.Sources[strings.ToLower(source)]
	if !ok {
		return volume.Size{}, pkgerrors.New(pkgerrors.ErrCodeSourceNotFound,
			"unknown source %q, configured sources: %s", source, strings.Join(slices.Sorted(maps.Keys(c.Sources)), ", "))
	}
	return src.Size(), nil
}
