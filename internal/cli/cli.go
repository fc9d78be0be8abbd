package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/maskstack/pkg/buildinfo"
	"github.com/matzehuels/maskstack/pkg/cache"
	"github.com/matzehuels/maskstack/pkg/config"
	pkgerrors "github.com/matzehuels/maskstack/pkg/errors"
	"github.com/matzehuels/maskstack/pkg/pipeline"
	"github.com/matzehuels/maskstack/pkg/store"
	"github.com/matzehuels/maskstack/pkg/volume"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "maskstack"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
	Config *config.Config

	configPath string
}

// New creates a new CLI instance with a default logger and the built-in
// configuration. The configuration is reloaded from disk when the root
// command runs, honoring --config.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		Config: config.Default(),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "Maskstack measures anatomy volumes from segmentation masks",
		Long: `Maskstack decodes run-length encoded segmentation mask documents, rebuilds
the binary rasters they describe, and measures per-patient per-visit volumes
in cubic millimeters. Reports can be exported as JSON, compared across
cohorts, persisted to MongoDB, and served over HTTP.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(c.configPath)
			if err != nil {
				return err
			}
			c.Config = cfg
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default: $XDG_CONFIG_HOME/maskstack/config.toml)")

	// Register all subcommands
	root.AddCommand(c.decodeCommand())
	root.AddCommand(c.volumeCommand())
	root.AddCommand(c.compareCommand())
	root.AddCommand(c.treeCommand())
	root.AddCommand(c.runsCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner backed by the configured cache.
func (c *CLI) newRunner(ctx context.Context, noCache bool) (*pipeline.Runner, error) {
	cch, err := c.newCache(ctx, noCache)
	if err != nil {
		return nil, err
	}
	return pipeline.NewRunner(cch, nil, c.Logger), nil
}

// newCache builds the configured cache backend. --no-cache overrides the
// configuration and selects the null backend.
func (c *CLI) newCache(ctx context.Context, noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	switch c.Config.Cache.Backend {
	case "none":
		return cache.NewNullCache(), nil
	case "redis":
		return cache.NewRedisCache(ctx, c.Config.Cache.RedisAddr)
	default:
		dir, err := c.cacheFileDir()
		if err != nil {
			return cache.NewNullCache(), nil
		}
		return cache.NewFileCache(dir)
	}
}

// cacheFileDir resolves the file cache directory: the configured one, or the
// XDG default.
func (c *CLI) cacheFileDir() (string, error) {
	if c.Config.Cache.Dir != "" {
		return c.Config.Cache.Dir, nil
	}
	return cacheDir()
}

// =============================================================================
// Store Factory
// =============================================================================

// newStore opens the configured report store. Commands that need one fail
// fast when no store is configured.
func (c *CLI) newStore(ctx context.Context) (store.Store, error) {
	if c.Config.Store.URI == "" {
		return nil, pkgerrors.New(pkgerrors.ErrCodeInvalidConfig, "no report store configured: set store.uri in the config file")
	}
	return store.NewMongoStore(ctx, c.Config.Store.URI, c.Config.Store.Database, c.Config.Store.Collection)
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/maskstack/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// =============================================================================
// Options Helpers
// =============================================================================

// baseOptions builds pipeline options from the loaded configuration.
func (c *CLI) baseOptions() pipeline.Options {
	return pipeline.Options{
		Strict:    c.Config.Decode.Strict,
		FillHoles: c.Config.Decode.FillHoles,
		Logger:    c.Logger,
	}
}

// resolveVoxel resolves the measurement calibration from --source or
// --voxel-size. Exactly one of the two must be given.
func (c *CLI) resolveVoxel(source, voxelSize string) (string, volume.Size, error) {
	switch {
	case source != "" && voxelSize != "":
		return "", volume.Size{}, pkgerrors.New(pkgerrors.ErrCodeInvalidInput, "use either --source or --voxel-size, not both")
	case voxelSize != "":
		size, err := parseVoxelSize(voxelSize)
		return "custom", size, err
	case source != "":
		size, err := c.Config.VoxelSize(source)
		return strings.ToLower(source), size, err
	default:
		return "", volume.Size{}, pkgerrors.New(pkgerrors.ErrCodeInvalidInput, "a calibration is required: pass --source or --voxel-size")
	}
}

// parseVoxelSize parses "x,y,z" millimeter dimensions into a voxel size.
func parseVoxelSize(s string) (volume.Size, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return volume.Size{}, pkgerrors.New(pkgerrors.ErrCodeInvalidVoxel, "voxel size %q: want three comma-separated dimensions, e.g. 0.357,0.511,3.0", s)
	}
	var dims [3]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return volume.Size{}, pkgerrors.New(pkgerrors.ErrCodeInvalidVoxel, "voxel size %q: dimension %d is not a number", s, i+1)
		}
		dims[i] = v
	}
	return volume.Size{InPlane: [2]float64{dims[0], dims[1]}, Thickness: dims[2]}, nil
}
