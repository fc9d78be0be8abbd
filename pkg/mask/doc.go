// Package mask decodes the proprietary line-oriented text format used to
// exchange anatomical segmentation outlines.
//
// # Format
//
// A mask document is UTF-8 text. It opens with exactly nine header lines:
//
//	9001695_V01_LEFT     case name
//	9001695              case prefix
//	LEFT                 laterality
//	...                  (ignored)
//	448                  image width
//	444                  image height
//	34                   start slice
//	47                   end slice (inclusive)
//	Femur                region label (consumed, not validated)
//
// The header is followed by slice blocks. Each block starts with a line
// holding the slice number, then an opening "{" (not necessarily on the
// very next line), then coordinate lines, then a closing "}":
//
//	34
//	{
//	150 197.210 215.221
//	151 196.223
//	}
//
// A coordinate line is a row value followed by one or more column spans,
// each span written as "<start>.<end>". Row values are 1-based on a canvas
// four rows taller than the raster, so the decoded row is the raw value
// minus 3; span bounds are 1-based inclusive and are shifted to 0-based.
//
// Documents carry a second anatomical region after the first, introduced by
// the sentinel line "Tibia". The decoder recognizes the sentinel and stops;
// the second region is never parsed (see [Outcome]).
//
// # Decoding
//
// Use [Decode] to parse a full document:
//
//	doc, err := mask.Decode(f, mask.Options{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, sl := range doc.Slices {
//	    fmt.Println(sl.Number, len(sl.Runs))
//	}
//
// # Strict and permissive modes
//
// Historical documents sometimes end in trailing content that does not
// parse as a slice header. In the default permissive mode the decoder
// stops at the first malformed construct after the header, keeps every
// slice decoded so far, and records the failure in [Document.Halt] - it is
// reported, never swallowed. Strict mode ([Options.Strict]) turns the same
// condition into a returned error. Header errors are always fatal: without
// dimensions there is nothing to decode against.
package mask
