package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	maskio "github.com/matzehuels/maskstack/pkg/io"
	"github.com/matzehuels/maskstack/pkg/observability"
	"github.com/matzehuels/maskstack/pkg/pipeline"
	"github.com/matzehuels/maskstack/pkg/store"
)

// =============================================================================
// Batch Progress - Live display for directory runs
// =============================================================================

// Messages fed into the progress model by the pipeline hooks.
type (
	docStartedMsg struct{ name string }
	docDecodedMsg struct {
		name   string
		slices int
		err    error
	}
	rasterCachedMsg   struct{ hit bool }
	measureStartedMsg struct{ patients int }
	runFinishedMsg    struct {
		rep      *maskio.Report
		cacheHit bool
		err      error
	}
)

// progressHooks forwards pipeline and cache events into a bubbletea program.
type progressHooks struct {
	observability.NoopPipelineHooks
	observability.NoopCacheHooks
	send func(tea.Msg)
}

func (h progressHooks) OnDecodeStart(_ context.Context, name string) {
	h.send(docStartedMsg{name: name})
}

func (h progressHooks) OnDecodeComplete(_ context.Context, name string, sliceCount int, _ time.Duration, err error) {
	h.send(docDecodedMsg{name: name, slices: sliceCount, err: err})
}

func (h progressHooks) OnCacheHit(_ context.Context, keyType string) {
	if keyType == "document" {
		h.send(rasterCachedMsg{hit: true})
	}
}

func (h progressHooks) OnCacheMiss(_ context.Context, keyType string) {
	if keyType == "document" {
		h.send(rasterCachedMsg{hit: false})
	}
}

func (h progressHooks) OnMeasureStart(_ context.Context, patientCount int) {
	h.send(measureStartedMsg{patients: patientCount})
}

// batchProgressModel is the bubbletea model for live batch run progress.
type batchProgressModel struct {
	dir    string
	total  int
	cancel context.CancelFunc

	decoded   int
	failed    int
	cached    int
	computed  int
	current   string
	measuring bool
	patients  int
	cancelled bool

	final runFinishedMsg
	done  bool
}

func (m batchProgressModel) Init() tea.Cmd {
	return nil
}

func (m batchProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			// Stop the pipeline; the final message still arrives and quits.
			m.cancelled = true
			if m.cancel != nil {
				m.cancel()
			}
		}
	case docStartedMsg:
		m.current = msg.name
	case docDecodedMsg:
		if msg.err != nil {
			m.failed++
		} else {
			m.decoded++
		}
	case rasterCachedMsg:
		if msg.hit {
			m.cached++
		} else {
			m.computed++
		}
	case measureStartedMsg:
		m.measuring = true
		m.patients = msg.patients
		m.current = ""
	case runFinishedMsg:
		m.final = msg
		m.done = true
		return m, tea.Quit
	}
	return m, nil
}

func (m batchProgressModel) View() string {
	if m.done {
		return ""
	}

	var b strings.Builder
	b.WriteString(StyleTitle.Render("Measuring " + m.dir))
	b.WriteString("\n\n")

	processed := m.decoded + m.failed
	line := fmt.Sprintf("%d/%d documents", processed, m.total)
	if m.cached > 0 {
		line += fmt.Sprintf(" · %d cached", m.cached)
	}
	if m.failed > 0 {
		line += " · " + StyleWarning.Render(fmt.Sprintf("%d failed", m.failed))
	}
	b.WriteString("  " + StyleDim.Render(line))
	b.WriteString("\n")

	switch {
	case m.measuring:
		b.WriteString("  " + StyleHighlight.Render(fmt.Sprintf("Measuring %d patients...", m.patients)))
	case m.current != "":
		b.WriteString("  " + StyleDim.Render(filepath.Base(m.current)))
	}

	b.WriteString("\n\n")
	if m.cancelled {
		b.WriteString("  " + StyleWarning.Render("Cancelling..."))
	} else {
		b.WriteString("  " + StyleDim.Render("q to cancel"))
	}
	b.WriteString("\n")

	return b.String()
}

// runBatchWithProgress runs the batch pipeline behind a live progress view.
// Pipeline hooks stream decode and cache events into the model while the run
// executes on a separate goroutine.
func (c *CLI) runBatchWithProgress(ctx context.Context, runner *pipeline.Runner, dir string, opts pipeline.Options) (*maskio.Report, bool, error) {
	pattern := opts.Pattern
	if pattern == "" {
		pattern = pipeline.DefaultPattern
	}
	matches, _ := filepath.Glob(filepath.Join(dir, pattern))

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	model := batchProgressModel{dir: dir, total: len(matches), cancel: cancel}
	prog := tea.NewProgram(model, tea.WithOutput(os.Stderr), tea.WithContext(ctx))

	observability.SetPipelineHooks(progressHooks{send: prog.Send})
	observability.SetCacheHooks(progressHooks{send: prog.Send})
	defer observability.Reset()

	go func() {
		rep, cacheHit, err := runner.ReportForDirWithCacheInfo(runCtx, dir, opts)
		prog.Send(runFinishedMsg{rep: rep, cacheHit: cacheHit, err: err})
	}()

	out, err := prog.Run()
	if err != nil {
		if ctx.Err() != nil {
			return nil, false, ctx.Err()
		}
		return nil, false, err
	}

	final := out.(batchProgressModel).final
	return final.rep, final.cacheHit, final.err
}

// =============================================================================
// Report Display
// =============================================================================

// printReport prints a run report: identity line, per-visit volume table,
// and any recorded failures.
func printReport(rep *maskio.Report, cacheHit bool) {
	printSuccess("Run %s", rep.RunID)
	printDetail("source %s · voxel %g × %g × %g mm · created %s",
		rep.Source,
		rep.Voxel.InPlane[0], rep.Voxel.InPlane[1], rep.Voxel.Thickness,
		rep.CreatedAt.Format(time.RFC3339))

	if len(rep.Patients) == 0 {
		printWarning("No measurable visits")
	} else {
		fmt.Println(reportTable(rep))
	}

	for _, f := range rep.Failures {
		printWarning("%s: %s", f.Path, f.Reason)
	}

	slices, visits := 0, 0
	for _, p := range rep.Patients {
		for _, v := range p.Visits {
			visits++
			slices += v.Slices
		}
	}
	printStats(0, slices, visits, cacheHit)
}

// reportTable renders the per-visit volumes as a bordered table.
func reportTable(rep *maskio.Report) string {
	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)

	rows := [][]string{}
	for _, p := range rep.Patients {
		for i, v := range p.Visits {
			id := p.ID
			if i > 0 {
				id = "" // repeat patients only on their first visit row
			}
			rows = append(rows, []string{id, v.Name, strconv.Itoa(v.Slices), formatVolume(v.Volume)})
		}
	}

	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("Patient", "Visit", "Slices", "Volume").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			if col == 3 {
				return lipgloss.NewStyle().Foreground(colorCyan)
			}
			return lipgloss.NewStyle().Foreground(colorWhite)
		}).
		Render()
}

// =============================================================================
// Runs Display
// =============================================================================

// runsTable renders stored run summaries as a bordered table.
func runsTable(runs []store.RunSummary) string {
	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)

	rows := make([][]string, len(runs))
	for i, r := range runs {
		rows[i] = []string{r.RunID, r.Source, formatRelativeTime(r.CreatedAt), strconv.Itoa(r.Patients)}
	}

	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("Run", "Source", "Created", "Patients").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			if col == 0 {
				return lipgloss.NewStyle().Foreground(colorCyan)
			}
			return lipgloss.NewStyle().Foreground(colorWhite)
		}).
		Render()
}

// =============================================================================
// Helpers
// =============================================================================

// formatRelativeTime renders a timestamp as a short relative age.
func formatRelativeTime(t time.Time) string {
	diff := time.Since(t)
	switch {
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	case diff < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(diff.Hours()/24))
	default:
		return t.Format("Jan 2, 2006")
	}
}
