// Package render provides visualization rendering for measured cohorts.
//
// # Overview
//
// This package groups the renderers that turn maskstack's data structures
// into pictures. It currently provides one:
//
//   - Cohort hierarchy diagrams (in [tree] subpackage)
//
// # Cohort Diagrams
//
// The [tree] subpackage renders a patient → visit hierarchy as a directed
// graph: one node per patient with its visits underneath, slice counts in
// the visit labels. DOT output is deterministic (sorted keys), so diagrams
// of the same cohort diff cleanly.
//
//	dot := tree.ToDOT(t, tree.Options{})
//	svg, err := tree.RenderSVG(ctx, dot)
//	png, err := tree.RenderPNG(ctx, dot)
//
// SVG and PNG rendering run Graphviz in-process via goccy/go-graphviz; no
// external binary is required.
//
// [tree]: github.com/matzehuels/maskstack/pkg/render/tree
package render
