package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/matzehuels/maskstack/pkg/cache"
	"github.com/matzehuels/maskstack/pkg/cohort"
	pkgerrors "github.com/matzehuels/maskstack/pkg/errors"
	maskio "github.com/matzehuels/maskstack/pkg/io"
	"github.com/matzehuels/maskstack/pkg/observability"
	"github.com/matzehuels/maskstack/pkg/volume"
)

// Input is one in-memory document for a batch run.
type Input struct {
	Name    string
	Content []byte
}

// Run executes the full pipeline over a set of documents as one run.
//
// A failure in one document is recorded in the result and never aborts the
// others: decoding, rasterization, placement, and per-visit measurement each
// skip to the next unit of work on error. The context is checked between
// documents, so a cancelled batch stops at a document boundary.
func (r *Runner) Run(ctx context.Context, inputs []Input, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	result := newResult(opts)
	tree, err := r.placeDocuments(ctx, result, inputs, opts)
	if err != nil {
		return nil, err
	}

	result.Tree = tree
	r.measureVisits(ctx, result, tree, opts)

	opts.Logger.Info("run complete",
		"run_id", result.RunID,
		"documents", result.Stats.Documents,
		"patients", len(tree),
		"visits", len(result.Measurements),
		"failures", len(result.Failures),
		"cache_hits", result.CacheInfo.DocumentHits)

	return result, nil
}

// BuildTree decodes, rasterizes, and places every input into a cohort tree
// without measuring anything. It is the structural half of Run: per-document
// failures are returned alongside the tree and never abort siblings, and no
// voxel calibration is needed.
func (r *Runner) BuildTree(ctx context.Context, inputs []Input, opts Options) (cohort.Tree, []DocumentFailure, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateForDecode(); err != nil {
		return nil, nil, fmt.Errorf("invalid options: %w", err)
	}
	opts.SetRasterDefaults()

	result := newResult(opts)
	tree, err := r.placeDocuments(ctx, result, inputs, opts)
	if err != nil {
		return nil, nil, err
	}
	return tree, result.Failures, nil
}

// placeDocuments runs the per-document half of the pipeline: decode,
// rasterize, and place by case name, merging the fragments into one tree.
// Failures and stage stats accumulate on result; only context cancellation
// stops the loop.
func (r *Runner) placeDocuments(ctx context.Context, result *Result, inputs []Input, opts Options) (cohort.Tree, error) {
	tree := cohort.Tree{}

	for _, in := range inputs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		decodeStart := time.Now()
		doc, err := r.DecodeDocument(ctx, in.Name, in.Content, opts)
		result.Stats.DecodeTime += time.Since(decodeStart)
		if err != nil {
			result.fail(in.Name, StageDecode, err, 0)
			opts.Logger.Warn("skipping document", "path", in.Name, "stage", StageDecode, "err", err)
			continue
		}
		if doc.Halt != nil {
			result.fail(in.Name, StageDecode, doc.Halt, len(doc.Slices))
			opts.Logger.Warn("partial decode", "path", in.Name, "slices", len(doc.Slices), "err", doc.Halt)
		}
		result.Stats.Slices += len(doc.Slices)
		result.Stats.Runs += doc.RunCount()

		rasterStart := time.Now()
		planes, clip, hit, err := r.RasterizeWithCacheInfo(ctx, in.Content, doc, opts)
		result.Stats.RasterTime += time.Since(rasterStart)
		if err != nil {
			result.fail(in.Name, StageRaster, err, len(doc.Slices))
			opts.Logger.Warn("skipping document", "path", in.Name, "stage", StageRaster, "err", err)
			continue
		}
		result.countDocumentCache(hit)
		result.Stats.Clip.Add(clip)
		for _, bm := range planes {
			result.Stats.OnCells += bm.OnCount()
		}

		patient, visit, err := cohort.CasePlacement(doc.Header.CaseName)
		if err != nil {
			result.fail(in.Name, StagePlace, err, len(doc.Slices))
			opts.Logger.Warn("skipping document", "path", in.Name, "stage", StagePlace, "err", err)
			continue
		}

		fragment := cohort.Tree{}
		for number, bm := range planes {
			fragment.Put(patient, visit, number, bm)
		}
		tree = cohort.Merge(tree, fragment)
		if len(planes) > 0 {
			result.Stats.Documents++
		}
	}

	return tree, nil
}

// measureVisits measures every visit in the tree, recording failures per
// visit instead of aborting the run.
func (r *Runner) measureVisits(ctx context.Context, result *Result, tree cohort.Tree, opts Options) {
	measureStart := time.Now()
	observability.Pipeline().OnMeasureStart(ctx, len(tree))

	for _, patient := range tree.Patients() {
		visits := tree[patient]
		for _, name := range visits.Names() {
			stack, err := cohort.StackVisit(visits[name])
			if err != nil {
				result.fail(patient+"/"+name, StageMeasure, err, 0)
				opts.Logger.Warn("skipping visit", "patient", patient, "visit", name, "err", err)
				continue
			}
			v, err := volume.OfStack(stack, opts.Voxel)
			if err != nil {
				result.fail(patient+"/"+name, StageMeasure, err, stack.Len())
				continue
			}
			result.Measurements = append(result.Measurements, Measurement{
				Patient: patient,
				Visit:   name,
				Slices:  stack.Len(),
				Volume:  v,
			})
		}
	}

	result.Stats.MeasureTime = time.Since(measureStart)
	observability.Pipeline().OnMeasureComplete(ctx, len(result.Measurements), result.Stats.MeasureTime, nil)
}

// RunDir executes the pipeline over every document under dir matching the
// configured pattern. Unreadable files become failure records, like any
// other per-document problem; an empty match is an error.
func (r *Runner) RunDir(ctx context.Context, dir string, opts Options) (*Result, error) {
	opts.Path = dir
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	inputs, readFailures, err := loadBatch(dir, opts)
	if err != nil {
		return nil, err
	}

	result, err := r.Run(ctx, inputs, opts)
	if err != nil {
		return nil, err
	}
	result.Failures = append(readFailures, result.Failures...)
	return result, nil
}

// ReportForDirWithCacheInfo builds the exchange report for a batch directory
// with caching, and reports whether it was served from cache.
//
// The report key derives from the content hashes of all matched documents
// plus the measurement settings, so editing any document, adding one, or
// changing the calibration produces a fresh report. A cached report is the
// same run re-served: it keeps its original run ID and creation time.
func (r *Runner) ReportForDirWithCacheInfo(ctx context.Context, dir string, opts Options) (*maskio.Report, bool, error) {
	opts.Path = dir
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, false, fmt.Errorf("invalid options: %w", err)
	}

	inputs, readFailures, err := loadBatch(dir, opts)
	if err != nil {
		return nil, false, err
	}

	cacheKey := r.Keyer.ReportKey(batchHash(inputs), opts.ReportKeyOpts())

	// Try cache first (unless refresh requested)
	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
			rep, err := maskio.ReadJSON(bytes.NewReader(data))
			if err == nil {
				observability.Cache().OnCacheHit(ctx, "report")
				return rep, true, nil
			}
		}
		observability.Cache().OnCacheMiss(ctx, "report")
	}

	result, err := r.Run(ctx, inputs, opts)
	if err != nil {
		return nil, false, err
	}
	result.Failures = append(readFailures, result.Failures...)

	rep := result.Report()
	var buf bytes.Buffer
	if err := maskio.WriteJSON(rep, &buf); err == nil {
		if r.Cache.Set(ctx, cacheKey, buf.Bytes(), cache.TTLReport) == nil {
			observability.Cache().OnCacheSet(ctx, "report", buf.Len())
		}
	}

	return rep, false, nil
}

// ReportForDir is a convenience wrapper that calls ReportForDirWithCacheInfo
// and discards the cache hit info.
func (r *Runner) ReportForDir(ctx context.Context, dir string, opts Options) (*maskio.Report, error) {
	rep, _, err := r.ReportForDirWithCacheInfo(ctx, dir, opts)
	return rep, err
}

// loadBatch enumerates and reads the batch documents. Unreadable files are
// returned as failures rather than errors; no matches at all is an error.
func loadBatch(dir string, opts Options) ([]Input, []DocumentFailure, error) {
	pattern := filepath.Join(dir, opts.Pattern)
	paths, err := filepath.Glob(pattern)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.ErrCodeInvalidInput, err, "invalid pattern %q", opts.Pattern)
	}
	if len(paths) == 0 {
		return nil, nil, pkgerrors.New(pkgerrors.ErrCodeFileNotFound, "no documents matching %s", pattern)
	}

	inputs := make([]Input, 0, len(paths))
	var failures []DocumentFailure
	for _, path := range paths {
		content, err := readDocument(path, opts.MaxDocumentBytes)
		if err != nil {
			failures = append(failures, DocumentFailure{Path: path, Stage: StageRead, Reason: err.Error()})
			continue
		}
		inputs = append(inputs, Input{Name: path, Content: content})
	}
	return inputs, failures, nil
}

// readDocument reads one document, refusing files over the size cap.
func readDocument(path string, maxBytes int64) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, pkgerrors.Wrap(pkgerrors.ErrCodeFileNotFound, err, "document %s", path)
		}
		return nil, pkgerrors.Wrap(pkgerrors.ErrCodeInternal, err, "stat %s", path)
	}
	if info.Size() > maxBytes {
		return nil, pkgerrors.New(pkgerrors.ErrCodeInvalidInput,
			"document %s is %d bytes, cap is %d", path, info.Size(), maxBytes)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.ErrCodeInternal, err, "read %s", path)
	}
	return content, nil
}

// batchHash derives a stable content hash for a document batch: the sorted
// (base name, content hash) pairs hashed together. Order of enumeration does
// not matter; content and membership do.
func batchHash(inputs []Input) string {
	type entry struct {
		Name string `json:"name"`
		Hash string `json:"hash"`
	}
	entries := make([]entry, len(inputs))
	for i, in := range inputs {
		entries[i] = entry{Name: filepath.Base(in.Name), Hash: cache.Hash(in.Content)}
	}
	slices.SortFunc(entries, func(a, b entry) int { return strings.Compare(a.Name, b.Name) })
	data, _ := json.Marshal(entries)
	return cache.Hash(data)
}
