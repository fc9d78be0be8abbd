package cohort

import (
	"testing"

	pkgerrors "github.com/matzehuels/maskstack/pkg/errors"
)

func TestParseSeriesKey(t *testing.T) {
	tests := []struct {
		key  string
		want Series
	}{
		{"9001695_V01_34", Series{Patient: "9001695", Visit: "V01", Slice: 34}},
		{"9001695_34", Series{Patient: "9001695", Visit: "V00", Slice: 34}},
		{"p12_V06_120", Series{Patient: "p12", Visit: "V06", Slice: 120}},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got, err := ParseSeriesKey(tt.key)
			if err != nil {
				t.Fatalf("ParseSeriesKey(%q) error = %v", tt.key, err)
			}
			if got != tt.want {
				t.Errorf("ParseSeriesKey(%q) = %+v, want %+v", tt.key, got, tt.want)
			}
		})
	}
}

func TestParseSeriesKey_Invalid(t *testing.T) {
	keys := []string{
		"",
		"justpatient",
		"a_b_c_d",
		"9001695_V01_abc",
		"9001695_xyz",
		"_V01_34",
		"9001695__34",
	}

	for _, key := range keys {
		t.Run(key, func(t *testing.T) {
			_, err := ParseSeriesKey(key)
			if err == nil {
				t.Fatalf("ParseSeriesKey(%q) error = nil, want invalid name", key)
			}
			if !pkgerrors.Is(err, pkgerrors.ErrCodeInvalidName) {
				t.Errorf("error code = %v, want %v", pkgerrors.GetCode(err), pkgerrors.ErrCodeInvalidName)
			}
		})
	}
}

func TestSeriesKeyRoundTrip(t *testing.T) {
	s := Series{Patient: "9001695", Visit: "V03", Slice: 47}
	got, err := ParseSeriesKey(s.Key())
	if err != nil {
		t.Fatalf("ParseSeriesKey(Key()) error = %v", err)
	}
	if got != s {
		t.Errorf("round trip = %+v, want %+v", got, s)
	}
}

func TestCasePlacement(t *testing.T) {
	tests := []struct {
		caseName    string
		wantPatient string
		wantVisit   string
	}{
		{"9001695_V01_LEFT", "9001695", "V01"},
		{"9001695_V01", "9001695", "V01"},
		{"9001695", "9001695", "V00"},
	}

	for _, tt := range tests {
		t.Run(tt.caseName, func(t *testing.T) {
			patient, visit, err := CasePlacement(tt.caseName)
			if err != nil {
				t.Fatalf("CasePlacement(%q) error = %v", tt.caseName, err)
			}
			if patient != tt.wantPatient || visit != tt.wantVisit {
				t.Errorf("CasePlacement(%q) = (%q, %q), want (%q, %q)",
					tt.caseName, patient, visit, tt.wantPatient, tt.wantVisit)
			}
		})
	}
}

func TestCasePlacement_Invalid(t *testing.T) {
	for _, caseName := range []string{"", "_V01_LEFT", "9001695__LEFT"} {
		t.Run(caseName, func(t *testing.T) {
			_, _, err := CasePlacement(caseName)
			if !pkgerrors.Is(err, pkgerrors.ErrCodeInvalidName) {
				t.Errorf("CasePlacement(%q) error = %v, want code %v", caseName, err, pkgerrors.ErrCodeInvalidName)
			}
		})
	}
}
