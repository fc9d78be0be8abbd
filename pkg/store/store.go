// Package store persists run reports so volumes can be compared across
// invocations and served over the HTTP API.
//
// This package defines the Store interface for report persistence backends
// and ships two implementations:
//   - MongoStore: one document per run in a MongoDB collection, keyed by
//     run_id (the production backend)
//   - MemStore: an in-process map for tests and store-less serving
//
// # Usage
//
// Open a store:
//
//	st, err := store.NewMongoStore(ctx, cfg.Store.URI, cfg.Store.Database, cfg.Store.Collection)
//	if err != nil {
//	    return err
//	}
//	defer st.Close(ctx)
//
// Persist and retrieve runs:
//
//	if err := st.SaveRun(ctx, result.Report()); err != nil {
//	    return err
//	}
//	rep, err := st.GetRun(ctx, runID)
//	if pkgerrors.Is(err, pkgerrors.ErrCodeReportNotFound) {
//	    // No such run.
//	}
//
// All backends report through the same error codes: REPORT_NOT_FOUND for
// absent runs, STORE_ERROR for backend failures, and the report's own
// validation errors on save.
package store

import (
	"context"
	"time"

	maskio "github.com/matzehuels/maskstack/pkg/io"
)

// DefaultListLimit caps ListRuns when the caller passes no limit.
const DefaultListLimit = 50

// RunSummary is the listing row for a stored run.
type RunSummary struct {
	RunID     string    `json:"run_id" bson:"run_id"`
	Source    string    `json:"source" bson:"source"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	Patients  int       `json:"patients" bson:"patients"`
}

// Store is the interface for run report persistence backends.
type Store interface {
	// SaveRun persists a report, replacing any stored run with the same ID.
	// The report is validated before it is written.
	SaveRun(ctx context.Context, rep *maskio.Report) error

	// GetRun retrieves a report by run ID.
	// Returns a REPORT_NOT_FOUND error when no such run exists.
	GetRun(ctx context.Context, runID string) (*maskio.Report, error)

	// ListRuns returns summaries of stored runs, newest first. A limit of
	// zero or less applies DefaultListLimit.
	ListRuns(ctx context.Context, limit int) ([]RunSummary, error)

	// DeleteRun removes a stored run.
	// Returns a REPORT_NOT_FOUND error when no such run exists.
	DeleteRun(ctx context.Context, runID string) error

	// Close releases backend resources.
	Close(ctx context.Context) error
}
