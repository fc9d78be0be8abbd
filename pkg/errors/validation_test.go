package errors

import (
	"testing"
)

func TestValidateSourceName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid simple", "iwfs", false},
		{"valid with dash", "dess-sag", false},
		{"valid with underscore", "dess_we", false},
		{"valid with digits", "iwfs2", false},

		{"empty", "", true},
		{"too long", string(make([]byte, 100)), true},
		{"uppercase", "IWFS", true},
		{"with dot", "iwfs.sag", true},
		{"with slash", "iwfs/sag", true},
		{"with space", "iwfs sag", true},
		{"control char", "iwfs\x01", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSourceName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateSourceName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateReportName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid simple", "preds-iwfs", false},
		{"valid with extension", "bml.json", false},
		{"valid with underscore", "preds_dess", false},

		{"empty", "", true},
		{"too long", string(make([]byte, 300)), true},
		{"path traversal ..", "foo..bar", true},
		{"path separator", "foo/bar", true},
		{"null byte", "foo\x00bar", true},
		{"backslash", "foo\\bar", true},
		{"control char", "foo\x01bar", true},
		{"newline", "foo\nbar", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateReportName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateReportName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestErrorCodesAreUnique(t *testing.T) {
	codes := []Code{
		ErrCodeInvalidInput,
		ErrCodeInvalidFormat,
		ErrCodeInvalidShape,
		ErrCodeInvalidVoxel,
		ErrCodeInvalidName,
		ErrCodeInvalidConfig,
		ErrCodeInvalidPath,
		ErrCodeNotFound,
		ErrCodeSourceNotFound,
		ErrCodeFileNotFound,
		ErrCodeReportNotFound,
		ErrCodeNetwork,
		ErrCodeTimeout,
		ErrCodeStore,
		ErrCodeInternal,
		ErrCodeUnsupported,
	}

	seen := make(map[Code]bool)
	for _, code := range codes {
		if seen[code] {
			t.Errorf("Duplicate error code: %s", code)
		}
		seen[code] = true
	}
}
