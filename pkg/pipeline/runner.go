package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/maskstack/pkg/cache"
	"github.com/matzehuels/maskstack/pkg/cohort"
	pkgerrors "github.com/matzehuels/maskstack/pkg/errors"
	"github.com/matzehuels/maskstack/pkg/mask"
	"github.com/matzehuels/maskstack/pkg/observability"
	"github.com/matzehuels/maskstack/pkg/raster"
	"github.com/matzehuels/maskstack/pkg/volume"
)

// Runner encapsulates pipeline execution with caching.
// Both CLI and API can use this to avoid duplicating caching logic.
//
// The Runner is stateless except for the cache and logger - it doesn't
// store pipeline results. Multiple goroutines can safely use the same
// Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Execute runs the complete decode → rasterize → measure pipeline on a
// single document with caching.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	name, content, err := loadInput(opts)
	if err != nil {
		return nil, err
	}

	result := newResult(opts)

	// Stage 1: Decode
	decodeStart := time.Now()
	doc, err := r.DecodeDocument(ctx, name, content, opts)
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	result.Stats.DecodeTime = time.Since(decodeStart)
	result.Stats.Slices = len(doc.Slices)
	result.Stats.Runs = doc.RunCount()
	if doc.Halt != nil {
		result.fail(name, StageDecode, doc.Halt, len(doc.Slices))
		r.Logger.Warn("partial decode",
			"case", doc.Header.CaseName,
			"slices", len(doc.Slices),
			"err", doc.Halt)
	}

	r.Logger.Info("decoded document",
		"case", doc.Header.CaseName,
		"slices", len(doc.Slices),
		"runs", result.Stats.Runs,
		"stop", doc.Stop,
		"duration", result.Stats.DecodeTime)

	// Stage 2: Rasterize
	rasterStart := time.Now()
	planes, clip, hit, err := r.RasterizeWithCacheInfo(ctx, content, doc, opts)
	if err != nil {
		return nil, fmt.Errorf("rasterize: %w", err)
	}
	result.Stats.RasterTime = time.Since(rasterStart)
	result.Stats.Clip = clip
	result.countDocumentCache(hit)
	for _, bm := range planes {
		result.Stats.OnCells += bm.OnCount()
	}
	if len(planes) > 0 {
		result.Stats.Documents = 1
	}

	r.Logger.Info("rasterized document",
		"planes", len(planes),
		"cache_hit", hit,
		"duration", result.Stats.RasterTime)

	// Place into the hierarchy
	patient, visit, err := cohort.CasePlacement(doc.Header.CaseName)
	if err != nil {
		return nil, fmt.Errorf("place %q: %w", doc.Header.CaseName, err)
	}
	tree := cohort.Tree{}
	for number, bm := range planes {
		tree.Put(patient, visit, number, bm)
	}
	result.Tree = tree

	// Stage 3: Measure
	measureStart := time.Now()
	vols, err := r.Measure(ctx, tree, opts)
	if err != nil {
		return nil, fmt.Errorf("measure: %w", err)
	}
	result.Stats.MeasureTime = time.Since(measureStart)
	if vs := vols[patient]; len(vs) > 0 {
		result.Measurements = append(result.Measurements, Measurement{
			Patient: patient,
			Visit:   visit,
			Slices:  len(planes),
			Volume:  vs[0],
		})
	}

	r.Logger.Info("measured volumes",
		"patient", patient,
		"visit", visit,
		"duration", result.Stats.MeasureTime)

	return result, nil
}

// DecodeDocument parses one mask document. name identifies the document in
// logs and instrumentation only; it does not affect decoding.
func (r *Runner) DecodeDocument(ctx context.Context, name string, content []byte, opts Options) (*mask.Document, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateForDecode(); err != nil {
		return nil, err
	}

	observability.Pipeline().OnDecodeStart(ctx, name)
	start := time.Now()
	doc, err := mask.Decode(bytes.NewReader(content), opts.DecodeOptions())
	sliceCount := 0
	if doc != nil {
		sliceCount = len(doc.Slices)
	}
	observability.Pipeline().OnDecodeComplete(ctx, name, sliceCount, time.Since(start), err)
	return doc, err
}

// Rasterize paints a decoded document's slices onto bitmaps, filling
// interior holes when options ask for it. No caching is involved.
func (r *Runner) Rasterize(doc *mask.Document, opts Options) (map[int]*raster.Bitmap, raster.ClipStats, error) {
	r.applyLogger(&opts)
	opts.SetRasterDefaults()

	planes, clip, err := raster.Rasterize(doc)
	if err != nil {
		return nil, raster.ClipStats{}, err
	}
	if opts.FillHoles {
		for number, bm := range planes {
			planes[number] = raster.FillHoles(bm)
		}
	}
	if !clip.Empty() {
		opts.Logger.Warn("corrected out-of-bounds coordinates",
			"case", doc.Header.CaseName,
			"skipped_rows", clip.SkippedRows,
			"clipped_runs", clip.ClippedRuns)
	}
	return planes, clip, nil
}

// RasterizeWithCacheInfo rasterizes with caching and returns cache hit info.
// The cache key derives from the document content hash plus the settings
// that shape the planes, so strict and filled variants are cached apart.
// Clip statistics are only observed when the planes are computed fresh.
func (r *Runner) RasterizeWithCacheInfo(ctx context.Context, content []byte, doc *mask.Document, opts Options) (map[int]*raster.Bitmap, raster.ClipStats, bool, error) {
	r.applyLogger(&opts)
	opts.SetRasterDefaults()

	cacheKey := r.Keyer.DocumentKey(cache.Hash(content), opts.DocumentKeyOpts())

	// Try cache first (unless refresh requested)
	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
			planes, err := raster.DecodePlanes(data)
			if err == nil {
				observability.Cache().OnCacheHit(ctx, "document")
				return planes, raster.ClipStats{}, true, nil
			}
			// Corrupt entry: fall through and recompute.
		}
		observability.Cache().OnCacheMiss(ctx, "document")
	}

	observability.Pipeline().OnRasterStart(ctx, doc.Header.CaseName, len(doc.Slices))
	start := time.Now()
	planes, clip, err := r.Rasterize(doc, opts)
	observability.Pipeline().OnRasterComplete(ctx, doc.Header.CaseName, time.Since(start), err)
	if err != nil {
		return nil, raster.ClipStats{}, false, err
	}

	// Cache the result
	if data, err := raster.EncodePlanes(planes); err == nil {
		if r.Cache.Set(ctx, cacheKey, data, cache.TTLDocument) == nil {
			observability.Cache().OnCacheSet(ctx, "document", len(data))
		}
	}

	return planes, clip, false, nil
}

// Measure converts an assembled tree into per-patient volumes, sorted visit
// order. Measurement here is all-or-nothing: a stacking or calibration
// failure returns an error and no partial volumes. Batch runs measure per
// visit instead, so one bad visit cannot abort its siblings.
func (r *Runner) Measure(ctx context.Context, tree cohort.Tree, opts Options) (cohort.Volumes, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateForMeasure(); err != nil {
		return nil, err
	}

	observability.Pipeline().OnMeasureStart(ctx, len(tree))
	start := time.Now()
	vols, err := volume.VisitVolumes(tree, opts.Voxel)
	visitCount := 0
	for _, vs := range vols {
		visitCount += len(vs)
	}
	observability.Pipeline().OnMeasureComplete(ctx, visitCount, time.Since(start), err)
	return vols, err
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}

// newResult starts a result carrying the run identity and the settings that
// shaped it.
func newResult(opts Options) *Result {
	return &Result{
		RunID:     uuid.NewString(),
		Source:    opts.Source,
		Voxel:     opts.Voxel,
		Strict:    opts.Strict,
		FillHoles: opts.FillHoles,
		CreatedAt: time.Now().UTC(),
	}
}

func (res *Result) fail(path, stage string, err error, slices int) {
	res.Failures = append(res.Failures, DocumentFailure{
		Path:   path,
		Stage:  stage,
		Reason: err.Error(),
		Slices: slices,
	})
}

func (res *Result) countDocumentCache(hit bool) {
	if hit {
		res.CacheInfo.DocumentHits++
	} else {
		res.CacheInfo.DocumentMisses++
	}
}

// loadInput materializes the document text for a single-document run.
func loadInput(opts Options) (string, []byte, error) {
	if opts.Path != "" {
		content, err := readDocument(opts.Path, opts.MaxDocumentBytes)
		if err != nil {
			return "", nil, err
		}
		return opts.Path, content, nil
	}
	if opts.Content == "" {
		return "", nil, pkgerrors.New(pkgerrors.ErrCodeInvalidInput, "path or content is required")
	}
	return "inline", []byte(opts.Content), nil
}
