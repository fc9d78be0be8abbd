package io

import (
	"bytes"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/matzehuels/maskstack/pkg/cohort"
	pkgerrors "github.com/matzehuels/maskstack/pkg/errors"
	"github.com/matzehuels/maskstack/pkg/volume"
)

func sampleReport() *Report {
	return &Report{
		RunID:     "run-1",
		Source:    "iwfs",
		CreatedAt: time.Date(2026, 8, 22, 10, 15, 0, 0, time.UTC),
		Voxel:     volume.Size{InPlane: [2]float64{0.357, 0.511}, Thickness: 3.0},
		FillHoles: true,
		Patients: []Patient{
			{ID: "9001695", Visits: []Visit{
				{Name: "V01", Slices: 14, Volume: 1523.4},
				{Name: "V03", Slices: 13, Volume: 1498.2},
			}},
			{ID: "9002430", Visits: []Visit{
				{Name: "V01", Slices: 15, Volume: 1701.0},
			}},
		},
		Failures: []Failure{{Path: "masks/broken.txt", Reason: "line 3: image width \"x\" is not an integer"}},
	}
}

func TestRoundTrip(t *testing.T) {
	rep := sampleReport()

	var buf bytes.Buffer
	if err := WriteJSON(rep, &buf); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}

	got, err := ReadJSON(&buf)
	if err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	if !reflect.DeepEqual(got, rep) {
		t.Errorf("round trip mismatch:\ngot  %+v\nwant %+v", got, rep)
	}
}

func TestExportImportFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.json")
	rep := sampleReport()

	if err := ExportJSON(rep, path); err != nil {
		t.Fatalf("ExportJSON() error = %v", err)
	}
	got, err := ImportJSON(path)
	if err != nil {
		t.Fatalf("ImportJSON() error = %v", err)
	}
	if got.RunID != rep.RunID || len(got.Patients) != len(rep.Patients) {
		t.Errorf("ImportJSON() = %+v, want %+v", got, rep)
	}
}

func TestImportJSON_MissingFile(t *testing.T) {
	_, err := ImportJSON(filepath.Join(t.TempDir(), "absent.json"))
	if !pkgerrors.Is(err, pkgerrors.ErrCodeFileNotFound) {
		t.Errorf("ImportJSON() error = %v, want code %s", err, pkgerrors.ErrCodeFileNotFound)
	}
}

func TestReadJSON_Invalid(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"malformed json", `{"patients": [`},
		{"missing patient id", `{"run_id":"r","patients":[{"id":"","visits":[]}]}`},
		{"duplicate patient", `{"run_id":"r","patients":[{"id":"p1"},{"id":"p1"}]}`},
		{"missing visit name", `{"run_id":"r","patients":[{"id":"p1","visits":[{"name":"","volume_mm3":1}]}]}`},
		{"duplicate visit", `{"run_id":"r","patients":[{"id":"p1","visits":[{"name":"V01","volume_mm3":1},{"name":"V01","volume_mm3":2}]}]}`},
		{"negative volume", `{"run_id":"r","patients":[{"id":"p1","visits":[{"name":"V01","volume_mm3":-4}]}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadJSON(strings.NewReader(tt.in))
			if !pkgerrors.Is(err, pkgerrors.ErrCodeInvalidInput) {
				t.Errorf("ReadJSON(%q) error = %v, want code %s", tt.in, err, pkgerrors.ErrCodeInvalidInput)
			}
		})
	}
}

func TestReport_Volumes(t *testing.T) {
	got := sampleReport().Volumes()
	want := cohort.Volumes{
		"9001695": {1523.4, 1498.2},
		"9002430": {1701.0},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Volumes() = %v, want %v", got, want)
	}
}
