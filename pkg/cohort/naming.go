package cohort

import (
	"fmt"
	"strconv"
	"strings"

	pkgerrors "github.com/matzehuels/maskstack/pkg/errors"
)

// DefaultVisit is the visit implied by two-part series keys that omit one.
const DefaultVisit = "V00"

// Series identifies one slice within the cohort hierarchy.
type Series struct {
	Patient string `json:"patient"`
	Visit   string `json:"visit"`
	Slice   int    `json:"slice"`
}

// Key formats the series in the canonical `{patient}_{visit}_{slice}` form.
func (s Series) Key() string {
	return fmt.Sprintf("%s_%s_%d", s.Patient, s.Visit, s.Slice)
}

// ParseSeriesKey parses `{patient}_{visit}_{slice}` or the two-part
// `{patient}_{slice}` form, which implies [DefaultVisit]. Extensions must be
// stripped by the caller. Nonconforming keys fail with
// [pkgerrors.ErrCodeInvalidName].
func ParseSeriesKey(key string) (Series, error) {
	parts := strings.Split(key, "_")

	var s Series
	switch len(parts) {
	case 2:
		s = Series{Patient: parts[0], Visit: DefaultVisit}
	case 3:
		s = Series{Patient: parts[0], Visit: parts[1]}
	default:
		return Series{}, pkgerrors.New(pkgerrors.ErrCodeInvalidName,
			"series key %q has %d parts, want patient_visit_slice or patient_slice", key, len(parts))
	}

	if s.Patient == "" || s.Visit == "" {
		return Series{}, pkgerrors.New(pkgerrors.ErrCodeInvalidName, "series key %q has an empty component", key)
	}
	number, err := strconv.Atoi(parts[len(parts)-1])
	if err != nil {
		return Series{}, pkgerrors.New(pkgerrors.ErrCodeInvalidName,
			"series key %q slice %q is not an integer", key, parts[len(parts)-1])
	}
	s.Slice = number
	return s, nil
}

// CasePlacement extracts the tree placement for a whole document from its
// case name, e.g. "9001695_V01_LEFT" places under patient 9001695, visit V01.
// A name without a visit component places under [DefaultVisit]. Trailing
// components (laterality) do not affect placement; cohorts mixing
// lateralities belong in separate batches.
func CasePlacement(caseName string) (patient, visit string, err error) {
	parts := strings.Split(caseName, "_")
	patient = parts[0]
	if patient == "" {
		return "", "", pkgerrors.New(pkgerrors.ErrCodeInvalidName, "case name %q has no patient component", caseName)
	}
	if len(parts) == 1 {
		return patient, DefaultVisit, nil
	}
	visit = parts[1]
	if visit == "" {
		return "", "", pkgerrors.New(pkgerrors.ErrCodeInvalidName, "case name %q has an empty visit component", caseName)
	}
	return patient, visit, nil
}
