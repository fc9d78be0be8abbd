package store

import (
	"context"
	"slices"
	"strings"
	"sync"

	pkgerrors "github.com/matzehuels/maskstack/pkg/errors"
	maskio "github.com/matzehuels/maskstack/pkg/io"
	"github.com/matzehuels/maskstack/pkg/observability"
)

// memCollection names the in-memory backend in store hook events.
const memCollection = "memory"

// MemStore is an in-process run store. It backs tests and store-less
// serving; nothing survives the process.
type MemStore struct {
	mu   sync.RWMutex
	runs map[string]*maskio.Report
}

// NewMemStore returns an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{runs: make(map[string]*maskio.Report)}
}

// cloneReport copies a report deeply enough that callers and the store
// never share patient or failure slices.
func cloneReport(rep *maskio.Report) *maskio.Report {
	cp := *rep
	cp.Patients = make([]maskio.Patient, len(rep.Patients))
	for i, p := range rep.Patients {
		cp.Patients[i] = maskio.Patient{ID: p.ID, Visits: slices.Clone(p.Visits)}
	}
	cp.Failures = slices.Clone(rep.Failures)
	return &cp
}

// SaveRun stores a copy of the report under its run ID.
func (s *MemStore) SaveRun(ctx context.Context, rep *maskio.Report) error {
	if rep == nil || rep.RunID == "" {
		return pkgerrors.New(pkgerrors.ErrCodeInvalidInput, "report with a run id is required")
	}
	if err := rep.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	s.runs[rep.RunID] = cloneReport(rep)
	s.mu.Unlock()

	observability.Store().OnSave(ctx, memCollection, rep.RunID)
	return nil
}

// GetRun returns a copy of the report stored under runID.
func (s *MemStore) GetRun(ctx context.Context, runID string) (*maskio.Report, error) {
	s.mu.RLock()
	rep, ok := s.runs[runID]
	s.mu.RUnlock()

	observability.Store().OnLoad(ctx, memCollection, runID, ok)
	if !ok {
		return nil, pkgerrors.New(pkgerrors.ErrCodeReportNotFound, "run %s not found", runID)
	}
	return cloneReport(rep), nil
}

// ListRuns returns run summaries sorted by creation time, newest first.
// Ties fall back to run ID so the order is deterministic.
func (s *MemStore) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	s.mu.RLock()
	summaries := make([]RunSummary, 0, len(s.runs))
	for _, rep := range s.runs {
		summaries = append(summaries, RunSummary{
			RunID:     rep.RunID,
			Source:    rep.Source,
			CreatedAt: rep.CreatedAt,
			Patients:  len(rep.Patients),
		})
	}
	s.mu.RUnlock()

	slices.SortFunc(summaries, func(a, b RunSummary) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.RunID, b.RunID)
	})
	if len(summaries) > limit {
		summaries = summaries[:limit]
	}
	return summaries, nil
}

// DeleteRun removes the run stored under runID.
func (s *MemStore) DeleteRun(ctx context.Context, runID string) error {
	s.mu.Lock()
	_, ok := s.runs[runID]
	delete(s.runs, runID)
	s.mu.Unlock()

	if !ok {
		return pkgerrors.New(pkgerrors.ErrCodeReportNotFound, "run %s not found", runID)
	}
	return nil
}

// Close is a no-op for the in-memory backend.
func (s *MemStore) Close(context.Context) error { return nil }

var _ Store = (*MemStore)(nil)
