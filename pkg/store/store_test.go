package store

import (
	"context"
	"testing"
	"time"

	pkgerrors "github.com/matzehuels/maskstack/pkg/errors"
	maskio "github.com/matzehuels/maskstack/pkg/io"
	"github.com/matzehuels/maskstack/pkg/observability"
	"github.com/matzehuels/maskstack/pkg/volume"
)

func sampleRun(runID string, created time.Time) *maskio.Report {
	return &maskio.Report{
		RunID:     runID,
		Source:    "iwfs",
		CreatedAt: created,
		Voxel:     volume.FromScalar(2.0),
		Patients: []maskio.Patient{
			{ID: "9001695", Visits: []maskio.Visit{
				{Name: "V00", Slices: 40, Volume: 1823.5},
				{Name: "V01", Slices: 41, Volume: 1799.2},
			}},
			{ID: "9002430", Visits: []maskio.Visit{
				{Name: "V00", Slices: 38, Volume: 1544.8},
			}},
		},
	}
}

func TestMemStoreSaveGet(t *testing.T) {
	st := NewMemStore()
	ctx := context.Background()
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	if err := st.SaveRun(ctx, sampleRun("run-1", created)); err != nil {
		t.Fatalf("SaveRun() error = %v", err)
	}

	rep, err := st.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetRun() error = %v", err)
	}
	if rep.RunID != "run-1" || rep.Source != "iwfs" {
		t.Errorf("loaded run = %s/%s, want run-1/iwfs", rep.RunID, rep.Source)
	}
	if len(rep.Patients) != 2 || rep.Patients[0].Visits[1].Volume != 1799.2 {
		t.Errorf("Patients = %+v, want sample content", rep.Patients)
	}
}

func TestMemStoreGetMissing(t *testing.T) {
	st := NewMemStore()

	_, err := st.GetRun(context.Background(), "absent")
	if err == nil {
		t.Fatal("GetRun() error = nil, want not found")
	}
	if !pkgerrors.Is(err, pkgerrors.ErrCodeReportNotFound) {
		t.Errorf("error code = %s, want %s", pkgerrors.GetCode(err), pkgerrors.ErrCodeReportNotFound)
	}
}

func TestMemStoreSaveReplaces(t *testing.T) {
	st := NewMemStore()
	ctx := context.Background()
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	if err := st.SaveRun(ctx, sampleRun("run-1", created)); err != nil {
		t.Fatalf("first SaveRun() error = %v", err)
	}

	updated := sampleRun("run-1", created)
	updated.Patients = updated.Patients[:1]
	if err := st.SaveRun(ctx, updated); err != nil {
		t.Fatalf("second SaveRun() error = %v", err)
	}

	rep, err := st.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetRun() error = %v", err)
	}
	if len(rep.Patients) != 1 {
		t.Errorf("Patients = %d, want replacement with 1", len(rep.Patients))
	}

	runs, err := st.ListRuns(ctx, 0)
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	if len(runs) != 1 {
		t.Errorf("ListRuns() = %+v, want a single run after upsert", runs)
	}
}

func TestMemStoreSaveInvalid(t *testing.T) {
	st := NewMemStore()
	ctx := context.Background()

	if err := st.SaveRun(ctx, &maskio.Report{}); !pkgerrors.Is(err, pkgerrors.ErrCodeInvalidInput) {
		t.Errorf("missing run id error code = %s, want %s", pkgerrors.GetCode(err), pkgerrors.ErrCodeInvalidInput)
	}

	dup := sampleRun("run-1", time.Now())
	dup.Patients = append(dup.Patients, maskio.Patient{ID: "9001695"})
	if err := st.SaveRun(ctx, dup); !pkgerrors.Is(err, pkgerrors.ErrCodeInvalidInput) {
		t.Errorf("duplicate patient error code = %s, want %s", pkgerrors.GetCode(err), pkgerrors.ErrCodeInvalidInput)
	}
}

func TestMemStoreListRunsNewestFirst(t *testing.T) {
	st := NewMemStore()
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	for i, id := range []string{"run-a", "run-b", "run-c"} {
		if err := st.SaveRun(ctx, sampleRun(id, base.Add(time.Duration(i)*time.Hour))); err != nil {
			t.Fatalf("SaveRun(%s) error = %v", id, err)
		}
	}

	runs, err := st.ListRuns(ctx, 0)
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("ListRuns() = %d runs, want 3", len(runs))
	}
	if runs[0].RunID != "run-c" || runs[2].RunID != "run-a" {
		t.Errorf("order = %s, %s, %s, want newest first", runs[0].RunID, runs[1].RunID, runs[2].RunID)
	}
	if runs[0].Patients != 2 {
		t.Errorf("Patients = %d, want 2", runs[0].Patients)
	}

	limited, err := st.ListRuns(ctx, 2)
	if err != nil {
		t.Fatalf("ListRuns(2) error = %v", err)
	}
	if len(limited) != 2 || limited[0].RunID != "run-c" {
		t.Errorf("limited = %+v, want two newest", limited)
	}
}

func TestMemStoreDelete(t *testing.T) {
	st := NewMemStore()
	ctx := context.Background()

	if err := st.SaveRun(ctx, sampleRun("run-1", time.Now())); err != nil {
		t.Fatalf("SaveRun() error = %v", err)
	}
	if err := st.DeleteRun(ctx, "run-1"); err != nil {
		t.Fatalf("DeleteRun() error = %v", err)
	}
	if _, err := st.GetRun(ctx, "run-1"); !pkgerrors.Is(err, pkgerrors.ErrCodeReportNotFound) {
		t.Errorf("GetRun() after delete error code = %s, want %s", pkgerrors.GetCode(err), pkgerrors.ErrCodeReportNotFound)
	}
	if err := st.DeleteRun(ctx, "run-1"); !pkgerrors.Is(err, pkgerrors.ErrCodeReportNotFound) {
		t.Errorf("second DeleteRun() error code = %s, want %s", pkgerrors.GetCode(err), pkgerrors.ErrCodeReportNotFound)
	}
}

func TestMemStoreCopiesReports(t *testing.T) {
	st := NewMemStore()
	ctx := context.Background()

	original := sampleRun("run-1", time.Now())
	if err := st.SaveRun(ctx, original); err != nil {
		t.Fatalf("SaveRun() error = %v", err)
	}
	original.Patients[0].Visits[0].Volume = -999

	rep, err := st.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetRun() error = %v", err)
	}
	if rep.Patients[0].Visits[0].Volume != 1823.5 {
		t.Errorf("stored volume = %v, want 1823.5 unaffected by caller mutation", rep.Patients[0].Visits[0].Volume)
	}

	rep.Patients[0].ID = "mutated"
	again, err := st.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("second GetRun() error = %v", err)
	}
	if again.Patients[0].ID != "9001695" {
		t.Errorf("stored patient = %s, want 9001695 unaffected by reader mutation", again.Patients[0].ID)
	}
}

type recordingStoreHooks struct {
	observability.NoopStoreHooks
	saves  []string
	loads  []string
	founds []bool
}

func (h *recordingStoreHooks) OnSave(_ context.Context, _, runID string) {
	h.saves = append(h.saves, runID)
}

func (h *recordingStoreHooks) OnLoad(_ context.Context, _, runID string, found bool) {
	h.loads = append(h.loads, runID)
	h.founds = append(h.founds, found)
}

func TestMemStoreFiresHooks(t *testing.T) {
	hooks := &recordingStoreHooks{}
	observability.SetStoreHooks(hooks)
	defer observability.Reset()

	st := NewMemStore()
	ctx := context.Background()

	if err := st.SaveRun(ctx, sampleRun("run-1", time.Now())); err != nil {
		t.Fatalf("SaveRun() error = %v", err)
	}
	if _, err := st.GetRun(ctx, "run-1"); err != nil {
		t.Fatalf("GetRun() error = %v", err)
	}
	if _, err := st.GetRun(ctx, "absent"); err == nil {
		t.Fatal("GetRun(absent) error = nil, want not found")
	}

	if len(hooks.saves) != 1 || hooks.saves[0] != "run-1" {
		t.Errorf("saves = %v, want [run-1]", hooks.saves)
	}
	if len(hooks.loads) != 2 || !hooks.founds[0] || hooks.founds[1] {
		t.Errorf("loads = %v founds = %v, want run-1 found and absent missed", hooks.loads, hooks.founds)
	}
}
