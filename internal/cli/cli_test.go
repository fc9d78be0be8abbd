package cli

import (
	"context"
	"io"
	"testing"

	"github.com/matzehuels/maskstack/pkg/cache"
	pkgerrors "github.com/matzehuels/maskstack/pkg/errors"
	"github.com/matzehuels/maskstack/pkg/volume"
)

// testCLI returns a CLI with a silent logger and default configuration.
func testCLI() *CLI {
	return New(io.Discard, LogInfo)
}

func TestRootCommandRegistersSubcommands(t *testing.T) {
	root := testCLI().RootCommand()

	if root.Use != appName {
		t.Errorf("root.Use = %q, want %q", root.Use, appName)
	}

	want := []string{"decode", "volume", "compare", "tree", "runs", "serve", "cache", "completion"}
	for _, name := range want {
		found := false
		for _, sub := range root.Commands() {
			if sub.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("root command is missing subcommand %q", name)
		}
	}
}

func TestParseVoxelSize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  volume.Size
	}{
		{
			name:  "plain dimensions",
			input: "0.357,0.511,3.0",
			want:  volume.Size{InPlane: [2]float64{0.357, 0.511}, Thickness: 3.0},
		},
		{
			name:  "spaces around dimensions",
			input: " 1 , 2 , 3 ",
			want:  volume.Size{InPlane: [2]float64{1, 2}, Thickness: 3},
		},
		{
			name:  "integer dimensions",
			input: "1,1,1",
			want:  volume.Size{InPlane: [2]float64{1, 1}, Thickness: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseVoxelSize(tt.input)
			if err != nil {
				t.Fatalf("parseVoxelSize(%q) error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("parseVoxelSize(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseVoxelSizeErrors(t *testing.T) {
	inputs := []string{"", "1,2", "1,2,3,4", "a,2,3", "1,2,x"}

	for _, input := range inputs {
		_, err := parseVoxelSize(input)
		if err == nil {
			t.Errorf("parseVoxelSize(%q) should fail", input)
			continue
		}
		if !pkgerrors.Is(err, pkgerrors.ErrCodeInvalidVoxel) {
			t.Errorf("parseVoxelSize(%q) code = %v, want %v", input, pkgerrors.GetCode(err), pkgerrors.ErrCodeInvalidVoxel)
		}
	}
}

func TestResolveVoxelFromSource(t *testing.T) {
	c := testCLI()

	source, size, err := c.resolveVoxel("IWFS", "")
	if err != nil {
		t.Fatalf("resolveVoxel() error: %v", err)
	}
	if source != "iwfs" {
		t.Errorf("source = %q, want %q", source, "iwfs")
	}
	if size.Thickness != 3.0 {
		t.Errorf("size.Thickness = %v, want %v", size.Thickness, 3.0)
	}
}

func TestResolveVoxelFromSize(t *testing.T) {
	c := testCLI()

	source, size, err := c.resolveVoxel("", "1,2,3")
	if err != nil {
		t.Fatalf("resolveVoxel() error: %v", err)
	}
	if source != "custom" {
		t.Errorf("source = %q, want %q", source, "custom")
	}
	want := volume.Size{InPlane: [2]float64{1, 2}, Thickness: 3}
	if size != want {
		t.Errorf("size = %+v, want %+v", size, want)
	}
}

func TestResolveVoxelErrors(t *testing.T) {
	c := testCLI()

	tests := []struct {
		name      string
		source    string
		voxelSize string
		wantCode  pkgerrors.Code
	}{
		{name: "both given", source: "iwfs", voxelSize: "1,2,3", wantCode: pkgerrors.ErrCodeInvalidInput},
		{name: "neither given", source: "", voxelSize: "", wantCode: pkgerrors.ErrCodeInvalidInput},
		{name: "unknown source", source: "ultrasound", voxelSize: "", wantCode: pkgerrors.ErrCodeSourceNotFound},
		{name: "bad voxel size", source: "", voxelSize: "1,2", wantCode: pkgerrors.ErrCodeInvalidVoxel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := c.resolveVoxel(tt.source, tt.voxelSize)
			if err == nil {
				t.Fatal("resolveVoxel() should fail")
			}
			if !pkgerrors.Is(err, tt.wantCode) {
				t.Errorf("code = %v, want %v", pkgerrors.GetCode(err), tt.wantCode)
			}
		})
	}
}

func TestNewCacheNone(t *testing.T) {
	c := testCLI()
	c.Config.Cache.Backend = "none"

	cch, err := c.newCache(context.Background(), false)
	if err != nil {
		t.Fatalf("newCache() error: %v", err)
	}
	defer cch.Close()

	if _, ok := cch.(*cache.NullCache); !ok {
		t.Errorf("backend none should build a *cache.NullCache, got %T", cch)
	}
}

func TestNewCacheFile(t *testing.T) {
	c := testCLI()
	c.Config.Cache.Backend = "file"
	c.Config.Cache.Dir = t.TempDir()

	cch, err := c.newCache(context.Background(), false)
	if err != nil {
		t.Fatalf("newCache() error: %v", err)
	}
	defer cch.Close()

	if _, ok := cch.(*cache.FileCache); !ok {
		t.Errorf("backend file should build a *cache.FileCache, got %T", cch)
	}
}

func TestNewCacheNoCacheOverride(t *testing.T) {
	c := testCLI()
	c.Config.Cache.Backend = "file"
	c.Config.Cache.Dir = t.TempDir()

	cch, err := c.newCache(context.Background(), true)
	if err != nil {
		t.Fatalf("newCache() error: %v", err)
	}
	defer cch.Close()

	if _, ok := cch.(*cache.NullCache); !ok {
		t.Errorf("--no-cache should override the backend with a *cache.NullCache, got %T", cch)
	}
}

func TestBaseOptions(t *testing.T) {
	c := testCLI()
	c.Config.Decode.Strict = true
	c.Config.Decode.FillHoles = false

	opts := c.baseOptions()
	if !opts.Strict {
		t.Error("opts.Strict should mirror the configuration")
	}
	if opts.FillHoles {
		t.Error("opts.FillHoles should mirror the configuration")
	}
	if opts.Logger == nil {
		t.Error("opts.Logger should be set")
	}
}

func TestNewStoreUnconfigured(t *testing.T) {
	c := testCLI()
	c.Config.Store.URI = ""

	_, err := c.newStore(context.Background())
	if err == nil {
		t.Fatal("newStore() should fail without a configured URI")
	}
	if !pkgerrors.Is(err, pkgerrors.ErrCodeInvalidConfig) {
		t.Errorf("code = %v, want %v", pkgerrors.GetCode(err), pkgerrors.ErrCodeInvalidConfig)
	}
}
