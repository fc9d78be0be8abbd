package cohort

import (
	"math"
	"testing"
)

func TestCombine_AbsDiff(t *testing.T) {
	left := Volumes{"A": {100.0}}
	right := Volumes{"A": {60.0}}

	res := Combine(left, right, AbsDiff, CombineOptions{})

	if len(res.Values) != 1 {
		t.Fatalf("Values has %d entries, want 1", len(res.Values))
	}
	if got := res.Values[0]; got.Patient != "A" || got.Value != 40.0 {
		t.Errorf("Combine() = %+v, want {A 40}", got)
	}
	if len(res.MissingLeft) != 0 || len(res.MissingRight) != 0 {
		t.Errorf("missing lists = %v / %v, want empty", res.MissingLeft, res.MissingRight)
	}
}

func TestCombine_UsesFirstVolumeOnly(t *testing.T) {
	left := Volumes{"A": {100.0, 500.0}}
	right := Volumes{"A": {60.0, 1.0}}

	res := Combine(left, right, AbsDiff, CombineOptions{})
	if got := res.Values[0].Value; got != 40.0 {
		t.Errorf("Combine() = %v, want 40 (first volume of each side)", got)
	}
}

func TestCombine_ReportsMissingBothSides(t *testing.T) {
	left := Volumes{"A": {10}, "B": {20}, "D": {5}}
	right := Volumes{"A": {1}, "C": {30}}

	res := Combine(left, right, AbsDiff, CombineOptions{})

	if len(res.Values) != 1 || res.Values[0].Patient != "A" {
		t.Errorf("Values = %+v, want only patient A combined", res.Values)
	}
	wantRight := []string{"B", "D"}
	if len(res.MissingRight) != 2 || res.MissingRight[0] != wantRight[0] || res.MissingRight[1] != wantRight[1] {
		t.Errorf("MissingRight = %v, want %v (sorted)", res.MissingRight, wantRight)
	}
	if len(res.MissingLeft) != 1 || res.MissingLeft[0] != "C" {
		t.Errorf("MissingLeft = %v, want [C]", res.MissingLeft)
	}
}

func TestCombine_ZeroMissingRight(t *testing.T) {
	left := Volumes{"A": {100}, "B": {25}}
	right := Volumes{"A": {60}}

	res := Combine(left, right, AbsDiff, CombineOptions{ZeroMissingRight: true})

	if len(res.Values) != 2 {
		t.Fatalf("Values has %d entries, want 2 (missing right side substituted)", len(res.Values))
	}
	if res.Values[1].Patient != "B" || res.Values[1].Value != 25.0 {
		t.Errorf("Values[1] = %+v, want {B 25} (|25 - 0|)", res.Values[1])
	}
	if len(res.MissingRight) != 0 {
		t.Errorf("MissingRight = %v, want empty under zero substitution", res.MissingRight)
	}
}

func TestCombine_RatioZeroDenominator(t *testing.T) {
	left := Volumes{"A": {10}}
	right := Volumes{"A": {0}}

	res := Combine(left, right, Ratio, CombineOptions{})
	if got := res.Values[0].Value; !math.IsInf(got, 1) {
		t.Errorf("Ratio(10, 0) = %v, want +Inf", got)
	}
}

func TestCombine_EmptyVolumeListCountsAsAbsent(t *testing.T) {
	left := Volumes{"A": {}}
	right := Volumes{"A": {60}}

	res := Combine(left, right, AbsDiff, CombineOptions{})
	if len(res.Values) != 0 {
		t.Errorf("Values = %+v, want none (left has no recorded volume)", res.Values)
	}
	if len(res.MissingLeft) != 1 || res.MissingLeft[0] != "A" {
		t.Errorf("MissingLeft = %v, want [A]", res.MissingLeft)
	}
}

func TestCombine_ValuesSortedByPatient(t *testing.T) {
	left := Volumes{"C": {3}, "A": {1}, "B": {2}}
	right := Volumes{"A": {1}, "B": {1}, "C": {1}}

	res := Combine(left, right, AbsDiff, CombineOptions{})
	want := []string{"A", "B", "C"}
	for i, pv := range res.Values {
		if pv.Patient != want[i] {
			t.Errorf("Values[%d].Patient = %s, want %s", i, pv.Patient, want[i])
		}
	}
}

func TestSetDifference(t *testing.T) {
	a := Volumes{"A": {1}, "B": {2}, "C": {3}}
	b := Volumes{"B": {9}}

	got := SetDifference(a, b)
	want := []string{"A", "C"}
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("SetDifference() = %v, want %v", got, want)
	}

	if diff := SetDifference(b, a); len(diff) != 0 {
		t.Errorf("SetDifference(b, a) = %v, want empty", diff)
	}
}

func TestAbsDiff(t *testing.T) {
	if got := AbsDiff(60, 100); got != 40 {
		t.Errorf("AbsDiff(60, 100) = %v, want 40", got)
	}
}
