package io

import (
	"encoding/json"
	"io"
	"os"

	pkgerrors "github.com/matzehuels/maskstack/pkg/errors"
)

// ReadJSON decodes a JSON report from r.
//
// The input must follow the format described in the package documentation.
// ReadJSON returns an error if:
//   - The JSON is malformed or invalid
//   - A patient has a missing or duplicate ID
//   - A visit name repeats within a patient
//   - A volume is negative
//
// Errors are wrapped with context describing which patient or visit caused
// the problem. Use the errors package codes to check for specific failures.
//
// The returned report is independent of r and can be modified safely after
// ReadJSON returns. ReadJSON does not close r.
func ReadJSON(r io.Reader) (*Report, error) {
	var rep Report
	if err := json.NewDecoder(r).Decode(&rep); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.ErrCodeInvalidInput, err, "decode report")
	}
	if err := rep.Validate(); err != nil {
		return nil, err
	}
	return &rep, nil
}

// ImportJSON reads a JSON file at path and returns the decoded report.
//
// ImportJSON opens the file, decodes it using [ReadJSON], and closes the
// file. If the file does not exist the error carries the file-not-found
// code; decoding failures return the same validation errors as [ReadJSON].
func ImportJSON(path string) (*Report, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, pkgerrors.Wrap(pkgerrors.ErrCodeFileNotFound, err, "open %s", path)
		}
		return nil, pkgerrors.Wrap(pkgerrors.ErrCodeInternal, err, "open %s", path)
	}
	defer f.Close()
	return ReadJSON(f)
}
