package cohort

import (
	"maps"
	"math"
	"slices"
)

// CombineFunc merges one patient's measurement from each cohort into a
// single value.
type CombineFunc func(left, right float64) float64

// AbsDiff returns the absolute difference between the two measurements.
func AbsDiff(left, right float64) float64 { return math.Abs(left - right) }

// Ratio divides left by right. A zero denominator yields IEEE infinity, not
// an error; downstream reporting renders it as such.
func Ratio(left, right float64) float64 { return left / right }

// CombineOptions adjust how [Combine] treats incomplete cohorts.
type CombineOptions struct {
	// ZeroMissingRight substitutes 0 for patients absent from the right
	// cohort instead of reporting them, producing a value for every patient
	// of the left cohort. Lesion follow-ups use this: no recorded lesion
	// volume at a later visit means zero, not unknown.
	ZeroMissingRight bool `json:"zero_missing_right"`
}

// PatientValue is one combined measurement.
type PatientValue struct {
	Patient string  `json:"patient"`
	Value   float64 `json:"value"`
}

// CombineResult holds combined values and the patients that could not be
// combined. Missing patients are first-class results, never errors: the
// caller decides whether an incomplete cohort is acceptable.
type CombineResult struct {
	// Values lists one combined measurement per patient, sorted by patient.
	Values []PatientValue `json:"values"`
	// MissingLeft lists patients of the right cohort absent from the left,
	// sorted.
	MissingLeft []string `json:"missing_left,omitempty"`
	// MissingRight lists patients of the left cohort absent from the right,
	// sorted. Empty when ZeroMissingRight is set.
	MissingRight []string `json:"missing_right,omitempty"`
}

// Combine applies op to the first recorded volume of every patient present
// in both cohorts. Patients present on one side only are reported in the
// missing lists (or zero-substituted, per opts). A patient with an empty
// volume list counts as absent from that side.
func Combine(left, right Volumes, op CombineFunc, opts CombineOptions) *CombineResult {
	res := &CombineResult{}

	for _, patient := range slices.Sorted(maps.Keys(left)) {
		lv, ok := first(left, patient)
		if !ok {
			continue // no recorded volume, reported from the right pass below
		}
		rv, ok := first(right, patient)
		switch {
		case ok:
			res.Values = append(res.Values, PatientValue{Patient: patient, Value: op(lv, rv)})
		case opts.ZeroMissingRight:
			res.Values = append(res.Values, PatientValue{Patient: patient, Value: op(lv, 0)})
		default:
			res.MissingRight = append(res.MissingRight, patient)
		}
	}

	for _, patient := range slices.Sorted(maps.Keys(right)) {
		if _, ok := first(right, patient); !ok {
			continue
		}
		if _, ok := first(left, patient); !ok {
			res.MissingLeft = append(res.MissingLeft, patient)
		}
	}

	return res
}

// SetDifference returns the patients of a that are absent from b, sorted.
func SetDifference(a, b Volumes) []string {
	var missing []string
	for patient := range a {
		if _, ok := b[patient]; !ok {
			missing = append(missing, patient)
		}
	}
	slices.Sort(missing)
	return missing
}

func first(v Volumes, patient string) (float64, bool) {
	vols, ok := v[patient]
	if !ok || len(vols) == 0 {
		return 0, false
	}
	return vols[0], true
}
