package mask

import "fmt"

// Header holds the document metadata parsed from the nine fixed header
// lines. It is immutable after parsing.
type Header struct {
	// CaseName is the full case identifier, e.g. "9001695_V01_LEFT".
	CaseName string `json:"case_name"`

	// CasePrefix is the patient part of the case name, e.g. "9001695".
	CasePrefix string `json:"case_prefix"`

	// Direction is the laterality, "LEFT" or "RIGHT".
	Direction string `json:"direction"`

	// Width and Height are the declared raster dimensions in pixels.
	Width  int `json:"width"`
	Height int `json:"height"`

	// StartSlice and EndSlice delimit the slice numbers the document
	// claims to contain. EndSlice is inclusive and never below StartSlice.
	StartSlice int `json:"start_slice"`
	EndSlice   int `json:"end_slice"`
}

// Run is one horizontal span of "on" cells on a raster row. Coordinates are
// already corrected: Y carries the fixed row offset, X1 and X2 are 0-based
// and inclusive. A Run is never mutated after creation.
//
// A run whose X1 exceeds X2 covers no cells; the rasterizer renders it as
// empty rather than rejecting the slice.
type Run struct {
	Y  int `json:"y"`
	X1 int `json:"x1"`
	X2 int `json:"x2"`
}

// Slice is one decoded slice block: its number and the runs of its
// coordinate block in input order.
type Slice struct {
	Number int   `json:"number"`
	Runs   []Run `json:"runs"`
}

// StopReason records why slice scanning ended.
type StopReason int

const (
	// StopEndSlice means the declared end slice was reached.
	StopEndSlice StopReason = iota

	// StopRegionBoundary means the second-region sentinel was reached.
	StopRegionBoundary

	// StopEndOfInput means the input was exhausted.
	StopEndOfInput

	// StopMalformed means a format error halted permissive-mode scanning.
	// The error itself is kept in [Document.Halt].
	StopMalformed
)

// String returns the stop reason as a short lowercase word.
func (s StopReason) String() string {
	switch s {
	case StopEndSlice:
		return "end-slice"
	case StopRegionBoundary:
		return "region-boundary"
	case StopEndOfInput:
		return "end-of-input"
	case StopMalformed:
		return "malformed"
	default:
		return fmt.Sprintf("StopReason(%d)", int(s))
	}
}

// Document is a fully decoded mask document.
type Document struct {
	Header Header `json:"header"`

	// Slices holds the decoded slices in first-seen order. A slice number
	// appearing twice keeps its position; the later block's runs win.
	Slices []Slice `json:"slices"`

	// Stop records why scanning ended.
	Stop StopReason `json:"stop"`

	// Halt carries the format error that ended a permissive-mode decode,
	// or nil for a clean stop. Strict mode returns the error instead.
	Halt *FormatError `json:"halt,omitempty"`

	// LinesConsumed is the number of input lines the decoder read,
	// including the header.
	LinesConsumed int `json:"lines_consumed"`
}

// Slice returns the decoded slice with the given number, if present.
func (d *Document) Slice(number int) (Slice, bool) {
	for _, sl := range d.Slices {
		if sl.Number == number {
			return sl, true
		}
	}
	return Slice{}, false
}

// RunCount returns the total number of runs across all slices.
func (d *Document) RunCount() int {
	n := 0
	for _, sl := range d.Slices {
		n += len(sl.Runs)
	}
	return n
}

// FormatError describes a malformed construct in a mask document.
type FormatError struct {
	// Line is the 1-based input line the error was detected on. Zero when
	// the input ended before the construct was complete.
	Line int `json:"line"`

	// Msg describes the problem.
	Msg string `json:"msg"`
}

// Error implements the error interface.
func (e *FormatError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
	}
	return e.Msg
}

func formatErrorf(line int, format string, args ...any) *FormatError {
	return &FormatError{Line: line, Msg: fmt.Sprintf(format, args...)}
}
