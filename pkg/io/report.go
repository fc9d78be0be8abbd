package io

import (
	"time"

	"github.com/matzehuels/maskstack/pkg/cohort"
	pkgerrors "github.com/matzehuels/maskstack/pkg/errors"
	"github.com/matzehuels/maskstack/pkg/volume"
)

// Report is the result document for one volumetrics run. It is the unit of
// exchange between the pipeline, the report store, the HTTP API, and cohort
// comparison.
type Report struct {
	RunID     string      `json:"run_id" bson:"run_id"`
	Source    string      `json:"source" bson:"source"`
	CreatedAt time.Time   `json:"created_at" bson:"created_at"`
	Voxel     volume.Size `json:"voxel" bson:"voxel"`
	Strict    bool        `json:"strict" bson:"strict"`
	FillHoles bool        `json:"fill_holes" bson:"fill_holes"`
	Patients  []Patient   `json:"patients" bson:"patients"`
	Failures  []Failure   `json:"failures,omitempty" bson:"failures,omitempty"`
}

// Patient groups the measured visits of one subject.
type Patient struct {
	ID     string  `json:"id" bson:"id"`
	Visits []Visit `json:"visits" bson:"visits"`
}

// Visit is one measured acquisition: the visit name, how many mask slices
// contributed, and the resulting volume in cubic millimetres.
type Visit struct {
	Name   string  `json:"name" bson:"name"`
	Slices int     `json:"slices" bson:"slices"`
	Volume float64 `json:"volume_mm3" bson:"volume_mm3"`
}

// Failure records a document that could not be processed during a run.
type Failure struct {
	Path   string `json:"path" bson:"path"`
	Reason string `json:"reason" bson:"reason"`
}

// Volumes flattens the patient entries into per-patient volume lists, in the
// order the visits appear in the report. This is the shape cohort comparison
// consumes.
func (r *Report) Volumes() cohort.Volumes {
	vols := make(cohort.Volumes, len(r.Patients))
	for _, p := range r.Patients {
		vs := make([]float64, len(p.Visits))
		for i, v := range p.Visits {
			vs[i] = v.Volume
		}
		vols[p.ID] = vs
	}
	return vols
}

// Validate checks the structural constraints of a report: every patient has
// a unique, non-empty ID, visit names are unique within a patient, and no
// volume is negative.
func (r *Report) Validate() error {
	seen := make(map[string]struct{}, len(r.Patients))
	for i, p := range r.Patients {
		if p.ID == "" {
			return pkgerrors.New(pkgerrors.ErrCodeInvalidInput, "patient %d: missing id", i)
		}
		if _, dup := seen[p.ID]; dup {
			return pkgerrors.New(pkgerrors.ErrCodeInvalidInput, "patient %s: duplicate id", p.ID)
		}
		seen[p.ID] = struct{}{}

		names := make(map[string]struct{}, len(p.Visits))
		for _, v := range p.Visits {
			if v.Name == "" {
				return pkgerrors.New(pkgerrors.ErrCodeInvalidInput, "patient %s: visit with missing name", p.ID)
			}
			if _, dup := names[v.Name]; dup {
				return pkgerrors.New(pkgerrors.ErrCodeInvalidInput, "patient %s: duplicate visit %s", p.ID, v.Name)
			}
			names[v.Name] = struct{}{}
			if v.Volume < 0 {
				return pkgerrors.New(pkgerrors.ErrCodeInvalidInput, "patient %s visit %s: negative volume %g", p.ID, v.Name, v.Volume)
			}
		}
	}
	return nil
}
