package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/matzehuels/maskstack/pkg/cohort"
	pkgerrors "github.com/matzehuels/maskstack/pkg/errors"
	"github.com/matzehuels/maskstack/pkg/pipeline"
	"github.com/matzehuels/maskstack/pkg/render/tree"
)

// treeFormats are the supported tree output formats.
var treeFormats = map[string]bool{"dot": true, "svg": true, "png": true}

// treeCommand creates the tree command for rendering a cohort hierarchy.
func (c *CLI) treeCommand() *cobra.Command {
	var (
		format   string
		output   string
		pattern  string
		detailed bool
		refresh  bool
		noCache  bool
	)

	cmd := &cobra.Command{
		Use:   "tree <directory>",
		Short: "Render the patient/visit hierarchy of a batch",
		Long: `Render the patient/visit hierarchy assembled from a batch directory.

Documents are decoded and grouped the same way a volume run groups them,
but nothing is measured: the output is a picture of the cohort structure,
one node per patient with its visits underneath.

Formats: svg (default), png, dot.

Examples:
  maskstack tree ./cohort
  maskstack tree ./cohort --format png -o cohort.png
  maskstack tree ./cohort --detailed`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := c.baseOptions()
			opts.Refresh = refresh
			opts.Pattern = pattern
			return c.runTree(cmd.Context(), args[0], opts, format, output, detailed, noCache)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "svg", "output format: svg, png or dot")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (derived from the directory name if empty)")
	cmd.Flags().StringVar(&pattern, "pattern", "", "glob for batch documents (default *.txt)")
	cmd.Flags().BoolVar(&detailed, "detailed", false, "include slice ranges in visit labels")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "bypass cached rasters")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")

	return cmd
}

// runTree assembles the cohort tree and renders it.
func (c *CLI) runTree(ctx context.Context, dir string, opts pipeline.Options, format, output string, detailed, noCache bool) error {
	if !treeFormats[format] {
		return pkgerrors.New(pkgerrors.ErrCodeUnsupported, "unknown format %q: want svg, png or dot", format)
	}

	runner, err := c.newRunner(ctx, noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Assembling cohort from %s...", dir))
	spinner.Start()

	t, err := c.assembleTree(ctx, runner, dir, opts)
	if err != nil {
		spinner.StopWithError("Assembly failed")
		return err
	}

	dot := tree.ToDOT(t, tree.Options{Detailed: detailed})

	var data []byte
	switch format {
	case "dot":
		data = []byte(dot)
	case "svg":
		data, err = tree.RenderSVG(ctx, dot)
	case "png":
		data, err = tree.RenderPNG(ctx, dot)
	}
	if err != nil {
		spinner.StopWithError("Render failed")
		return fmt.Errorf("render tree: %w", err)
	}
	spinner.Stop()

	outputPath := output
	if outputPath == "" {
		outputPath = filepath.Base(filepath.Clean(dir)) + "." + format
	}
	out, err := openOutput(outputPath)
	if err != nil {
		return err
	}
	defer out.Close()
	if _, err := out.Write(data); err != nil {
		return err
	}

	visits := 0
	for _, patient := range t.Patients() {
		visits += len(t[patient])
	}

	printSuccess("Rendered cohort tree")
	printKeyValue("Patients", fmt.Sprintf("%d", len(t)))
	printKeyValue("Visits", fmt.Sprintf("%d", visits))
	printFile(outputPath)
	return nil
}

// assembleTree decodes every matching document under dir into a cohort tree.
// Failing documents are logged and skipped, like in batch measurement runs.
func (c *CLI) assembleTree(ctx context.Context, runner *pipeline.Runner, dir string, opts pipeline.Options) (cohort.Tree, error) {
	logger := loggerFromContext(ctx)

	pattern := opts.Pattern
	if pattern == "" {
		pattern = pipeline.DefaultPattern
	}

	paths, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.ErrCodeInvalidInput, err, "invalid pattern %q", pattern)
	}
	if len(paths) == 0 {
		return nil, pkgerrors.New(pkgerrors.ErrCodeFileNotFound, "no documents matching %s", filepath.Join(dir, pattern))
	}

	prog := newProgress(logger)
	inputs := make([]pipeline.Input, 0, len(paths))
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		content, err := os.ReadFile(path)
		if err != nil {
			logger.Warn("skipping document", "path", path, "err", err)
			continue
		}
		inputs = append(inputs, pipeline.Input{Name: path, Content: content})
	}

	t, _, err := runner.BuildTree(ctx, inputs, opts)
	if err != nil {
		return nil, err
	}
	if len(t) == 0 {
		return nil, pkgerrors.New(pkgerrors.ErrCodeInvalidInput, "no documents could be placed in a cohort")
	}
	prog.done(fmt.Sprintf("Assembled %d patients from %d documents", len(t), len(paths)))
	return t, nil
}
