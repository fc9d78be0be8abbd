// Package pkg provides the core libraries for maskstack volume measurement.
//
// # Overview
//
// Maskstack decodes run-length encoded segmentation mask documents, rebuilds
// the binary rasters they describe, assembles them into a patient → visit →
// slice cohort, and measures physically calibrated volumes in cubic
// millimeters. The pkg directory is organized into four main areas:
//
//  1. Domain logic (mask decoding, rasters, cohorts, volumetrics)
//  2. Orchestration (pipeline: decode → rasterize → aggregate → measure)
//  3. Infrastructure (cache, store, config, errors, observability)
//  4. Exchange (io report format, render/tree visualization)
//
// # Architecture
//
// The typical data flow through maskstack:
//
//	Mask document (.txt)
//	         ↓
//	    [mask] package (header + slice blocks → coordinate runs)
//	         ↓
//	    [raster] package (runs → binary bitmaps, hole filling)
//	         ↓
//	    [cohort] package (patient → visit → slice tree, stacking)
//	         ↓
//	    [volume] package (voxel-calibrated measurement)
//	         ↓
//	    JSON report / MongoDB store / HTTP API
//
// # Quick Start
//
// Measure a directory of mask documents:
//
//	import (
//	    "context"
//
//	    "github.com/matzehuels/maskstack/pkg/cache"
//	    "github.com/matzehuels/maskstack/pkg/pipeline"
//	    "github.com/matzehuels/maskstack/pkg/volume"
//	)
//
//	runner := pipeline.NewRunner(cache.NewNullCache(), nil, nil)
//	defer runner.Close()
//
//	rep, err := runner.ReportForDir(context.Background(), "./cohort", pipeline.Options{
//	    Source:    "iwfs",
//	    Voxel:     volume.Size{InPlane: [2]float64{0.357, 0.511}, Thickness: 3.0},
//	    FillHoles: true,
//	})
//
// # Main Packages
//
// ## Domain
//
// [mask] - The document decoder: nine fixed header lines followed by slice
// blocks of coordinate runs. Strict mode fails on the first malformed
// construct; permissive mode keeps the slices decoded so far and records
// where and why scanning halted.
//
// [raster] - Binary rasters rebuilt from coordinate runs: fixed-size bitmaps,
// equally-shaped stacks, border flood-fill hole filling, grayscale
// thresholding for externally supplied planes, and the run-length marshaling
// the cache uses.
//
// [cohort] - The patient → visit → slice hierarchy: merging partial trees,
// stacking a visit's slices in numeric order, case-name placement, and
// cross-cohort combination (absolute difference, ratio) with missing
// patients as first-class results.
//
// [volume] - Voxel calibration (in-plane spacing × slice thickness) and the
// volume of a bitmap, a stack, or a whole tree.
//
// ## Orchestration
//
// [pipeline] - The complete measurement pipeline used by the CLI: content
// hash keyed raster caching, per-document failure isolation in batch runs,
// report assembly. A single [pipeline.Runner] serves both one-shot and batch
// use.
//
// ## Infrastructure
//
// [cache] - Content-addressed result cache with file (XDG directory,
// sha256-sharded, TTL metadata), Redis, and null backends.
//
// [store] - Optional run report persistence: MongoDB implementation and an
// in-memory store for tests and preloaded serving.
//
// [config] - TOML configuration: decode defaults, named acquisition
// calibrations (iwfs, dess), cache backend, store connection, serve address.
//
// [errors] - Coded errors with wrapping; every failure surface names a
// machine-checkable code.
//
// [observability] - Pipeline and cache hook interfaces, no-op by default;
// the CLI's progress display is one consumer.
//
// ## Exchange
//
// [io] - The JSON report format exchanged between volume and compare runs,
// persisted by the store, and served by the HTTP API.
//
// [render/tree] - Cohort hierarchy visualization: deterministic DOT, with
// SVG and PNG rendering via Graphviz.
//
// # Testing
//
// Run tests:
//
//	go test ./pkg/...          # All tests
//	go test ./pkg/mask/...     # Specific package
//	go test -run Example       # Examples only
//
// [mask]: https://pkg.go.dev/github.com/matzehuels/maskstack/pkg/mask
// [raster]: https://pkg.go.dev/github.com/matzehuels/maskstack/pkg/raster
// [cohort]: https://pkg.go.dev/github.com/matzehuels/maskstack/pkg/cohort
// [volume]: https://pkg.go.dev/github.com/matzehuels/maskstack/pkg/volume
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/maskstack/pkg/pipeline
// [pipeline.Runner]: https://pkg.go.dev/github.com/matzehuels/maskstack/pkg/pipeline#Runner
// [cache]: https://pkg.go.dev/github.com/matzehuels/maskstack/pkg/cache
// [store]: https://pkg.go.dev/github.com/matzehuels/maskstack/pkg/store
// [config]: https://pkg.go.dev/github.com/matzehuels/maskstack/pkg/config
// [errors]: https://pkg.go.dev/github.com/matzehuels/maskstack/pkg/errors
// [observability]: https://pkg.go.dev/github.com/matzehuels/maskstack/pkg/observability
// [io]: https://pkg.go.dev/github.com/matzehuels/maskstack/pkg/io
// [render/tree]: https://pkg.go.dev/github.com/matzehuels/maskstack/pkg/render/tree
package pkg
