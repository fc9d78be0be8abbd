package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	pkgerrors "github.com/matzehuels/maskstack/pkg/errors"
	"github.com/matzehuels/maskstack/pkg/mask"
	"github.com/matzehuels/maskstack/pkg/pipeline"
)

// decodeCommand creates the decode command for inspecting a single document.
func (c *CLI) decodeCommand() *cobra.Command {
	var (
		output  string
		jsonOut bool
		strict  bool
		fill    bool
		refresh bool
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "decode <document.txt>",
		Short: "Decode a mask document and show its structure",
		Long: `Decode a run-length encoded mask document and show what it contains.

The document is parsed, its slices are rasterized, and a structural summary
is printed: grid size, slice count, run count, and how many cells are set.
Rasters are cached, so decoding the same document twice is cheap.

Use --json to dump the full decoded document instead of the summary.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := c.baseOptions()
			if cmd.Flags().Changed("strict") {
				opts.Strict = strict
			}
			if cmd.Flags().Changed("fill") {
				opts.FillHoles = fill
			}
			opts.Refresh = refresh
			return c.runDecode(cmd.Context(), args[0], opts, jsonOut, output, noCache)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file for --json (stdout if empty)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "dump the decoded document as JSON")
	cmd.Flags().BoolVar(&strict, "strict", false, "fail on the first malformed construct")
	cmd.Flags().BoolVar(&fill, "fill", true, "fill enclosed holes in each slice (--fill=false for lesion masks)")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "bypass cached rasters")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")

	return cmd
}

// runDecode decodes and rasterizes one document, then reports on it.
func (c *CLI) runDecode(ctx context.Context, path string, opts pipeline.Options, jsonOut bool, output string, noCache bool) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.ErrCodeFileNotFound, err, "read document %s", path)
	}

	runner, err := c.newRunner(ctx, noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	name := filepath.Base(path)
	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Decoding %s...", name))
	spinner.Start()

	doc, err := runner.DecodeDocument(ctx, name, content, opts)
	if err != nil {
		spinner.StopWithError("Decode failed")
		return err
	}

	planes, clip, cacheHit, err := runner.RasterizeWithCacheInfo(ctx, content, doc, opts)
	if err != nil {
		spinner.StopWithError("Rasterization failed")
		return err
	}
	spinner.Stop()

	if jsonOut {
		return writeJSONOutput(doc, output, c.Logger)
	}

	onCells := 0
	for _, bm := range planes {
		onCells += bm.OnCount()
	}

	printSuccess("Decoded %s", doc.Header.CaseName)
	printKeyValue("Direction", doc.Header.Direction)
	printKeyValue("Grid", fmt.Sprintf("%d x %d", doc.Header.Width, doc.Header.Height))
	printKeyValue("Slices", fmt.Sprintf("%d (declared %d to %d)", len(doc.Slices), doc.Header.StartSlice, doc.Header.EndSlice))
	printKeyValue("Runs", strconv.Itoa(doc.RunCount()))
	printKeyValue("On cells", strconv.Itoa(onCells))
	printKeyValue("Stop", doc.Stop.String())

	if doc.Stop == mask.StopMalformed && doc.Halt != nil {
		printWarning("Decode halted at line %d: %s", doc.Halt.Line, doc.Halt.Msg)
	}
	if !clip.Empty() {
		printWarning("Corrected coordinates: %d rows skipped, %d runs clipped", clip.SkippedRows, clip.ClippedRuns)
	}

	printStats(1, len(doc.Slices), 0, cacheHit)
	printNextStep("Measure its volume", fmt.Sprintf("%s volume %s --source iwfs", appName, path))
	return nil
}
