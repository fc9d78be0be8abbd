// Package pipeline provides the core volumetrics pipeline for Maskstack.
//
// This package implements the complete decode → rasterize → measure pipeline
// that can be used by CLI, API, and worker components. By centralizing this
// logic, we ensure consistent behavior across all entry points and avoid code
// duplication.
//
// # Architecture
//
// The pipeline consists of three stages:
//
//  1. Decode: Parse mask documents into slices of coordinate runs
//  2. Rasterize: Paint runs onto bitmaps, optionally filling interior holes
//  3. Measure: Stack each visit and convert on-cell counts into volumes
//
// Each stage can be run independently or as part of the complete pipeline.
//
// # Usage
//
// Create a Runner and execute the pipeline on one document:
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	opts := pipeline.Options{
//	    Path:      "masks/9001695_V01_LEFT.txt",
//	    Source:    "iwfs",
//	    Voxel:     cfg.Sources["iwfs"].Size(),
//	    FillHoles: true,
//	}
//	result, err := runner.Execute(ctx, opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(result.Measurements)
//
// Process a whole directory of documents as one run:
//
//	result, err := runner.RunDir(ctx, "masks/", opts)
//
// Run individual stages:
//
//	// Decode only
//	doc, err := runner.DecodeDocument(ctx, path, content, opts)
//
//	// Rasterize an already decoded document
//	planes, clip, err := runner.Rasterize(doc, opts)
//
//	// Measure an assembled tree
//	vols, err := runner.Measure(ctx, tree, opts)
package pipeline

import (
	"io"
	"maps"
	"path/filepath"
	"slices"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/maskstack/pkg/cache"
	"github.com/matzehuels/maskstack/pkg/cohort"
	pkgerrors "github.com/matzehuels/maskstack/pkg/errors"
	maskio "github.com/matzehuels/maskstack/pkg/io"
	"github.com/matzehuels/maskstack/pkg/mask"
	"github.com/matzehuels/maskstack/pkg/raster"
	"github.com/matzehuels/maskstack/pkg/volume"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI, API, and Worker
// =============================================================================

const (
	// DefaultThreshold is the cutoff for binarizing external grayscale
	// planes: a pixel is "on" when strictly above it. 127 splits an 8-bit
	// range the way the historical tooling split normalized scores at 0.5.
	DefaultThreshold = byte(127)

	// DefaultMaxDocumentBytes caps how large a single mask document may be.
	// Real documents are a few hundred kilobytes; the cap guards batch runs
	// against stray files.
	DefaultMaxDocumentBytes = int64(16 << 20)

	// DefaultPattern is the glob documents are enumerated by in batch runs.
	DefaultPattern = "*.txt"
)

// Stage names used in failure records.
const (
	StageRead    = "read"
	StageDecode  = "decode"
	StageRaster  = "raster"
	StagePlace   = "place"
	StageMeasure = "measure"
)

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for the volumetrics pipeline.
// This struct supports JSON serialization for API requests.
type Options struct {
	// Decode options
	Path             string `json:"path,omitempty"`    // document file (or directory for batch runs)
	Content          string `json:"content,omitempty"` // raw document text, used when Path is empty
	Strict           bool   `json:"strict,omitempty"`
	MaxDocumentBytes int64  `json:"max_document_bytes,omitempty"`

	// Raster options
	FillHoles bool `json:"fill_holes,omitempty"`
	Threshold byte `json:"threshold,omitempty"` // binarization cutoff for external planes

	// Measure options
	Source string      `json:"source,omitempty"` // calibration label recorded in reports
	Voxel  volume.Size `json:"voxel,omitempty"`  // resolved calibration

	// Batch options
	Pattern string `json:"pattern,omitempty"`
	Refresh bool   `json:"refresh,omitempty"` // bypass cache reads

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool `json:"-"`
}

// Measurement is one measured visit: the volume of the stacked slices of one
// patient's acquisition.
type Measurement struct {
	Patient string  `json:"patient"`
	Visit   string  `json:"visit"`
	Slices  int     `json:"slices"`
	Volume  float64 `json:"volume_mm3"`
}

// DocumentFailure records a document (or visit) that could not be processed.
// Failures never abort sibling documents in a batch; they are collected and
// reported alongside what succeeded.
type DocumentFailure struct {
	Path   string `json:"path"`
	Stage  string `json:"stage"`
	Reason string `json:"reason"`

	// Slices is how many slices were decoded before the failure, for
	// permissive-mode partial decodes.
	Slices int `json:"slices,omitempty"`
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// RunID uniquely identifies this run.
	RunID string

	// Source and Voxel echo the calibration the volumes were measured with,
	// Strict and FillHoles the decode settings that produced them.
	Source    string
	Voxel     volume.Size
	Strict    bool
	FillHoles bool

	// CreatedAt is when the run started.
	CreatedAt time.Time

	// Tree is the assembled patient → visit → slice hierarchy.
	Tree cohort.Tree

	// Measurements holds one entry per measured visit, sorted by patient
	// then visit.
	Measurements []Measurement

	// Failures lists documents and visits that could not be processed.
	Failures []DocumentFailure

	// Stats contains timing and size information.
	Stats Stats

	// CacheInfo tracks which stages hit the cache.
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	Documents   int // documents that contributed slices to the tree
	Slices      int
	Runs        int
	OnCells     int
	Clip        raster.ClipStats
	DecodeTime  time.Duration
	RasterTime  time.Duration
	MeasureTime time.Duration
}

// CacheInfo tracks cache hits for each pipeline stage.
type CacheInfo struct {
	DocumentHits   int  // rasterized documents served from cache
	DocumentMisses int  // rasterized documents computed fresh
	ReportHit      bool // whether a whole batch report came from cache
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults checks required fields and applies defaults for the
// full pipeline. This method is idempotent - calling it multiple times has
// the same effect as calling it once.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if err := o.ValidateForDecode(); err != nil {
		return err
	}
	o.SetRasterDefaults()
	if err := o.ValidateForMeasure(); err != nil {
		return err
	}
	if o.Pattern == "" {
		o.Pattern = DefaultPattern
	}
	if _, err := filepath.Match(o.Pattern, ""); err != nil {
		return pkgerrors.Wrap(pkgerrors.ErrCodeInvalidInput, err, "invalid pattern %q", o.Pattern)
	}
	o.validated = true
	return nil
}

// ValidateForDecode checks decode limits and applies defaults. Whether a
// document is supplied by path, inline content, or batch input is checked
// where the document is loaded, not here.
func (o *Options) ValidateForDecode() error {
	if o.MaxDocumentBytes < 0 {
		return pkgerrors.New(pkgerrors.ErrCodeInvalidInput, "document byte cap must be positive, got %d", o.MaxDocumentBytes)
	}

	// Decode defaults
	if o.MaxDocumentBytes == 0 {
		o.MaxDocumentBytes = DefaultMaxDocumentBytes
	}

	// Logger default
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}

	return nil
}

// SetRasterDefaults sets default values for rasterization.
func (o *Options) SetRasterDefaults() {
	if o.Threshold == 0 {
		o.Threshold = DefaultThreshold
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// ValidateForMeasure checks that a usable voxel calibration is set.
// The pipeline does not resolve calibration sources itself; callers resolve
// the Source label against their configuration and fill in Voxel.
func (o *Options) ValidateForMeasure() error {
	if _, err := o.Voxel.Scalar(); err != nil {
		return pkgerrors.Wrap(pkgerrors.ErrCodeInvalidVoxel, err,
			"voxel calibration is required (resolve a source or set voxel)")
	}
	return nil
}

// DecodeOptions returns the mask decoding options.
func (o *Options) DecodeOptions() mask.Options {
	return mask.Options{Strict: o.Strict}
}

// DocumentKeyOpts returns cache key options for rasterized documents.
func (o *Options) DocumentKeyOpts() cache.DocumentKeyOpts {
	return cache.DocumentKeyOpts{
		Strict:    o.Strict,
		FillHoles: o.FillHoles,
	}
}

// ReportKeyOpts returns cache key options for batch reports.
func (o *Options) ReportKeyOpts() cache.ReportKeyOpts {
	return cache.ReportKeyOpts{
		Source:    o.Source,
		Strict:    o.Strict,
		FillHoles: o.FillHoles,
	}
}

// =============================================================================
// Result Methods
// =============================================================================

// Volumes groups the measured volumes per patient, in sorted visit order.
// This is the shape cohort comparison consumes.
func (res *Result) Volumes() cohort.Volumes {
	vols := make(cohort.Volumes)
	for _, m := range res.Measurements {
		vols[m.Patient] = append(vols[m.Patient], m.Volume)
	}
	return vols
}

// Report assembles the run into its exchange document.
func (res *Result) Report() *maskio.Report {
	rep := &maskio.Report{
		RunID:     res.RunID,
		Source:    res.Source,
		CreatedAt: res.CreatedAt,
		Voxel:     res.Voxel,
		Strict:    res.Strict,
		FillHoles: res.FillHoles,
	}

	byPatient := make(map[string][]maskio.Visit)
	for _, m := range res.Measurements {
		byPatient[m.Patient] = append(byPatient[m.Patient], maskio.Visit{
			Name:   m.Visit,
			Slices: m.Slices,
			Volume: m.Volume,
		})
	}
	for _, patient := range slices.Sorted(maps.Keys(byPatient)) {
		rep.Patients = append(rep.Patients, maskio.Patient{ID: patient, Visits: byPatient[patient]})
	}

	for _, f := range res.Failures {
		rep.Failures = append(rep.Failures, maskio.Failure{
			Path:   f.Path,
			Reason: f.Stage + ": " + f.Reason,
		})
	}
	return rep
}
