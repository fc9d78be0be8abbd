package mask

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const (
	// headerLineCount is the number of fixed header lines.
	headerLineCount = 9

	// rowOffset is subtracted from every raw row value: rows are written
	// 1-based against a canvas four rows taller than the raster.
	rowOffset = 3

	// regionSentinel introduces the second anatomical region. Everything
	// from this line on belongs to that region and is not decoded.
	regionSentinel = "Tibia"

	openBlock  = "{"
	closeBlock = "}"
)

// Options control document decoding.
type Options struct {
	// Strict makes any format error after the header a returned error.
	// The default permissive mode mirrors the historical tooling: decoding
	// halts at the first malformed construct, keeps the slices decoded so
	// far, and records the failure in [Document.Halt].
	Strict bool
}

// Outcome is the tagged result of scanning for the next slice block.
type Outcome int

const (
	// OutcomeDecoded means a slice block was decoded.
	OutcomeDecoded Outcome = iota

	// OutcomeRegionBoundary means the second-region sentinel was read.
	OutcomeRegionBoundary

	// OutcomeEndOfInput means the input ended before a block started.
	OutcomeEndOfInput
)

// String returns the outcome as a short lowercase word.
func (o Outcome) String() string {
	switch o {
	case OutcomeDecoded:
		return "decoded"
	case OutcomeRegionBoundary:
		return "region-boundary"
	case OutcomeEndOfInput:
		return "end-of-input"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// cursor walks a line slice front to back. Lines already taken are never
// revisited; how far the cursor advanced is an explicit, observable value
// rather than a side effect on shared state.
type cursor struct {
	lines []string
	pos   int
}

// next returns the next line with surrounding whitespace trimmed, its
// 1-based line number, and whether a line was available.
func (c *cursor) next() (string, int, bool) {
	if c.pos >= len(c.lines) {
		return "", 0, false
	}
	line := strings.TrimSpace(c.lines[c.pos])
	c.pos++
	return line, c.pos, true
}

// consumed returns how many lines the cursor has taken.
func (c *cursor) consumed() int { return c.pos }

// Decode parses a complete mask document from r.
//
// Header errors are returned in both modes. After the header, format errors
// follow [Options.Strict]: strict mode returns the error, permissive mode
// stops scanning and records it in [Document.Halt] alongside every slice
// decoded up to that point.
func Decode(r io.Reader, opts Options) (*Document, error) {
	lines, err := readLines(r)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}

	cur := &cursor{lines: lines}
	hdr, ferr := parseHeader(cur)
	if ferr != nil {
		return nil, ferr
	}

	doc := &Document{Header: hdr}
	index := make(map[int]int)

scan:
	for {
		sl, outcome, ferr := nextSlice(cur)
		switch {
		case ferr != nil:
			if opts.Strict {
				return nil, ferr
			}
			doc.Stop = StopMalformed
			doc.Halt = ferr
			break scan

		case outcome == OutcomeRegionBoundary:
			doc.Stop = StopRegionBoundary
			break scan

		case outcome == OutcomeEndOfInput:
			doc.Stop = StopEndOfInput
			break scan

		default:
			// Duplicate slice numbers keep their first position; the
			// later block's runs win.
			if i, ok := index[sl.Number]; ok {
				doc.Slices[i] = sl
			} else {
				index[sl.Number] = len(doc.Slices)
				doc.Slices = append(doc.Slices, sl)
			}
			if sl.Number >= hdr.EndSlice {
				doc.Stop = StopEndSlice
				break scan
			}
		}
	}

	doc.LinesConsumed = cur.consumed()
	return doc, nil
}

// parseHeader consumes the nine fixed header lines.
func parseHeader(cur *cursor) (Header, *FormatError) {
	var (
		vals  [headerLineCount]string
		nums  [headerLineCount]int
		taken int
	)
	for i := 0; i < headerLineCount; i++ {
		line, n, ok := cur.next()
		if !ok {
			return Header{}, formatErrorf(0, "header truncated: got %d of %d lines", taken, headerLineCount)
		}
		vals[i], nums[i] = line, n
		taken++
	}

	width, ferr := headerInt(vals[4], nums[4], "image width")
	if ferr != nil {
		return Header{}, ferr
	}
	height, ferr := headerInt(vals[5], nums[5], "image height")
	if ferr != nil {
		return Header{}, ferr
	}
	start, ferr := headerInt(vals[6], nums[6], "start slice")
	if ferr != nil {
		return Header{}, ferr
	}
	end, ferr := headerInt(vals[7], nums[7], "end slice")
	if ferr != nil {
		return Header{}, ferr
	}

	if width <= 0 {
		return Header{}, formatErrorf(nums[4], "image width must be positive, got %d", width)
	}
	if height <= 0 {
		return Header{}, formatErrorf(nums[5], "image height must be positive, got %d", height)
	}
	if end < start {
		return Header{}, formatErrorf(nums[7], "end slice %d precedes start slice %d", end, start)
	}

	// vals[3] is unused by the format; vals[8] names the first region
	// (typically "Femur") and is consumed without validation.
	return Header{
		CaseName:   vals[0],
		CasePrefix: vals[1],
		Direction:  vals[2],
		Width:      width,
		Height:     height,
		StartSlice: start,
		EndSlice:   end,
	}, nil
}

func headerInt(val string, line int, name string) (int, *FormatError) {
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, formatErrorf(line, "%s %q is not an integer", name, val)
	}
	return n, nil
}

// nextSlice scans one slice block from the cursor.
//
// The first line is either the region sentinel, a slice number, or garbage.
// After the number, lines are discarded until the opening bracket - it is
// not necessarily the immediate next line. Input ending before the bracket
// is an end of input, not an error; input ending inside the coordinate
// block closes the block implicitly.
func nextSlice(cur *cursor) (Slice, Outcome, *FormatError) {
	line, lineNo, ok := cur.next()
	if !ok {
		return Slice{}, OutcomeEndOfInput, nil
	}
	if line == regionSentinel {
		return Slice{}, OutcomeRegionBoundary, nil
	}

	number, err := strconv.Atoi(line)
	if err != nil {
		return Slice{}, 0, formatErrorf(lineNo, "slice header %q is not an integer", line)
	}

	for {
		l, _, ok := cur.next()
		if !ok {
			return Slice{}, OutcomeEndOfInput, nil
		}
		if l == openBlock {
			break
		}
	}

	var runs []Run
	for {
		l, n, ok := cur.next()
		if !ok || l == closeBlock {
			break
		}
		rs, ferr := decodeRuns(l, n)
		if ferr != nil {
			return Slice{}, 0, ferr
		}
		runs = append(runs, rs...)
	}

	return Slice{Number: number, Runs: runs}, OutcomeDecoded, nil
}

// decodeRuns decodes one coordinate line: a row value followed by zero or
// more "<start>.<end>" column spans. The returned runs all share the same
// corrected row.
func decodeRuns(line string, lineNo int) ([]Run, *FormatError) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil, formatErrorf(lineNo, "empty coordinate line")
	}

	y, err := strconv.Atoi(fields[0])
	if err != nil {
		return nil, formatErrorf(lineNo, "row %q is not an integer", fields[0])
	}

	runs := make([]Run, 0, len(fields)-1)
	for _, tok := range fields[1:] {
		if strings.Count(tok, ".") != 1 {
			return nil, formatErrorf(lineNo, "span %q must contain exactly one period", tok)
		}
		a, b, _ := strings.Cut(tok, ".")
		x1, err := strconv.Atoi(a)
		if err != nil {
			return nil, formatErrorf(lineNo, "span start %q is not an integer", a)
		}
		x2, err := strconv.Atoi(b)
		if err != nil {
			return nil, formatErrorf(lineNo, "span end %q is not an integer", b)
		}
		runs = append(runs, Run{Y: y - rowOffset, X1: x1 - 1, X2: x2 - 1})
	}
	return runs, nil
}

func readLines(r io.Reader) ([]string, error) {
	var lines []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}
