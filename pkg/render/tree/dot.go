package tree

import (
	"bytes"
	"fmt"

	"github.com/matzehuels/maskstack/pkg/cohort"
)

// Options configures hierarchy rendering.
type Options struct {
	// Detailed includes the slice number range in visit labels.
	// When false, only the visit name and slice count are shown.
	Detailed bool
}

// ToDOT converts a cohort tree to Graphviz DOT format: patients on the first
// rank, their visits below, with slice counts in the visit labels. Output is
// deterministic; patients and visits appear in sorted order. The resulting
// DOT string can be rendered using [RenderSVG] or [RenderPNG].
func ToDOT(t cohort.Tree, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph cohort {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=24, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  ranksep=0.5;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")

	for _, patient := range t.Patients() {
		fmt.Fprintf(&buf, "  %q [label=%q, style=\"bold,filled\", fillcolor=lightgrey];\n", patient, patient)
		for _, visit := range t[patient].Names() {
			id := patient + "/" + visit
			label := fmtVisitLabel(visit, t[patient][visit], opts.Detailed)
			fmt.Fprintf(&buf, "  %q [label=%q];\n", id, label)
		}
	}

	buf.WriteString("\n")
	for _, patient := range t.Patients() {
		for _, visit := range t[patient].Names() {
			fmt.Fprintf(&buf, "  %q -> %q;\n", patient, patient+"/"+visit)
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

func fmtVisitLabel(visit string, s cohort.Slices, detailed bool) string {
	label := fmt.Sprintf("%s\n%d slices", visit, len(s))
	if !detailed || len(s) == 0 {
		return label
	}

	nums := s.Numbers()
	return fmt.Sprintf("%s %d-%d", label, nums[0], nums[len(nums)-1])
}
