package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	pkgerrors "github.com/matzehuels/maskstack/pkg/errors"
	maskio "github.com/matzehuels/maskstack/pkg/io"
	"github.com/matzehuels/maskstack/pkg/pipeline"
)

// volumeOutput bundles the output-side flags of the volume command.
type volumeOutput struct {
	path     string // JSON report file, empty for none
	save     bool   // persist the report to the configured store
	progress bool   // live progress display for batch runs
	noCache  bool
}

// volumeCommand creates the volume command, the main entry point of the tool.
func (c *CLI) volumeCommand() *cobra.Command {
	var (
		source    string
		voxelSize string
		pattern   string
		strict    bool
		fill      bool
		refresh   bool
		out       volumeOutput
	)

	cmd := &cobra.Command{
		Use:   "volume <document.txt|directory>",
		Short: "Measure visit volumes for a document or a batch directory",
		Long: `Measure anatomy volumes from segmentation mask documents.

Given a single document, the volume command decodes it, stacks its slices,
and prints the measured volume. Given a directory, every matching document
is processed into one run: documents are grouped into a patient/visit
hierarchy and each visit is measured separately. A failing document never
aborts its siblings; failures are listed at the end of the report.

Volumes are calibrated by the voxel size of the acquisition protocol. Name
a configured protocol with --source, or pass explicit millimeter dimensions
with --voxel-size.

Examples:
  maskstack volume scan.txt --source iwfs
  maskstack volume ./cohort --source dess -o report.json
  maskstack volume ./cohort --voxel-size 0.357,0.511,3.0 --save`,
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
			opts.Pattern = pattern

			src, voxel, err := c.resolveVoxel(source, voxelSize)
			if err != nil {
				return err
			}
			opts.Source = src
			opts.Voxel = voxel

			return c.runVolume(cmd.Context(), args[0], opts, out)
		},
	}

	cmd.Flags().StringVarP(&source, "source", "s", "", "configured acquisition protocol (e.g. iwfs, dess)")
	cmd.Flags().StringVar(&voxelSize, "voxel-size", "", "explicit voxel dimensions in mm: x,y,z")
	cmd.Flags().StringVarP(&out.path, "output", "o", "", "write the JSON report to this file")
	cmd.Flags().StringVar(&pattern, "pattern", "", "glob for batch documents (default *.txt)")
	cmd.Flags().BoolVar(&out.save, "save", false, "persist the report to the configured store")
	cmd.Flags().BoolVar(&out.progress, "progress", false, "show live progress for batch runs")
	cmd.Flags().BoolVar(&strict, "strict", false, "fail documents on the first malformed construct")
	cmd.Flags().BoolVar(&fill, "fill", true, "fill enclosed holes in each slice (--fill=false for lesion masks)")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "bypass cached rasters and reports")
	cmd.Flags().BoolVar(&out.noCache, "no-cache", false, "disable caching")

	return cmd
}

// runVolume measures a single document or a batch directory and reports.
func (c *CLI) runVolume(ctx context.Context, input string, opts pipeline.Options, out volumeOutput) error {
	info, err := os.Stat(input)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.ErrCodeFileNotFound, err, "stat %s", input)
	}

	runner, err := c.newRunner(ctx, out.noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	var (
		rep      *maskio.Report
		cacheHit bool
	)
	if info.IsDir() {
		rep, cacheHit, err = c.runBatch(ctx, runner, input, opts, out.progress)
	} else {
		rep, err = c.runSingle(ctx, runner, input, opts)
	}
	if err != nil {
		return err
	}

	printReport(rep, cacheHit)

	if out.path != "" {
		if err := maskio.ExportJSON(rep, out.path); err != nil {
			return err
		}
		printFile(out.path)
	}
	if out.save {
		return c.saveReport(ctx, rep)
	}
	return nil
}

// runSingle measures one document.
func (c *CLI) runSingle(ctx context.Context, runner *pipeline.Runner, path string, opts pipeline.Options) (*maskio.Report, error) {
	opts.Path = path

	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Measuring %s...", path))
	spinner.Start()

	result, err := runner.Execute(ctx, opts)
	if err != nil {
		spinner.StopWithError("Measurement failed")
		return nil, err
	}
	spinner.Stop()

	return result.Report(), nil
}

// runBatch measures a directory of documents as one run.
func (c *CLI) runBatch(ctx context.Context, runner *pipeline.Runner, dir string, opts pipeline.Options, progress bool) (*maskio.Report, bool, error) {
	if progress {
		return c.runBatchWithProgress(ctx, runner, dir, opts)
	}

	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Measuring documents in %s...", dir))
	spinner.Start()

	rep, cacheHit, err := runner.ReportForDirWithCacheInfo(ctx, dir, opts)
	if err != nil {
		spinner.StopWithError("Run failed")
		return nil, false, err
	}
	spinner.Stop()

	return rep, cacheHit, nil
}

// saveReport persists a run report to the configured store.
func (c *CLI) saveReport(ctx context.Context, rep *maskio.Report) error {
	st, err := c.newStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close(ctx)

	if err := st.SaveRun(ctx, rep); err != nil {
		return err
	}
	printSuccess("Saved run %s", rep.RunID)
	printNextStep("Inspect it", fmt.Sprintf("%s runs show %s", appName, rep.RunID))
	return nil
}
