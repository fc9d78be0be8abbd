package cli

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/maskstack/internal/api"
	pkgerrors "github.com/matzehuels/maskstack/pkg/errors"
	maskio "github.com/matzehuels/maskstack/pkg/io"
	"github.com/matzehuels/maskstack/pkg/store"
)

// serveCommand creates the serve command for the HTTP API.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr    string
		reports []string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve run reports over HTTP",
		Long: `Serve run reports over a JSON HTTP API.

With a store configured, the API serves the runs persisted there. Without
one, report files given via --report are loaded into an in-memory store,
keyed by their run IDs. The server shuts down cleanly on interrupt.

Routes:
  GET /healthz
  GET /api/v1/reports
  GET /api/v1/reports/{run}
  GET /api/v1/reports/{run}/patients/{patient}
  GET /api/v1/compare?left=...&right=...

Examples:
  maskstack serve
  maskstack serve --addr :9000 --report baseline.json --report followup.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context(), addr, reports)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	cmd.Flags().StringArrayVar(&reports, "report", nil, "report file to preload into an in-memory store (repeatable)")

	return cmd
}

// runServe builds the backing store and runs the HTTP server until the
// context is cancelled.
func (c *CLI) runServe(ctx context.Context, addr string, reports []string) error {
	if addr == "" {
		addr = c.Config.Serve.Addr
	}

	st, err := c.serveStore(ctx, reports)
	if err != nil {
		return err
	}
	defer st.Close(context.Background())

	srv := api.New(st, c.Logger)
	return srv.ListenAndServe(ctx, addr)
}

// serveStore selects the API's backing store: the configured MongoDB store,
// or an in-memory store fed by --report files.
func (c *CLI) serveStore(ctx context.Context, reports []string) (store.Store, error) {
	if c.Config.Store.URI != "" {
		if len(reports) > 0 {
			return nil, pkgerrors.New(pkgerrors.ErrCodeInvalidConfig, "--report preloads need an in-memory store; unset store.uri to use them")
		}
		return store.NewMongoStore(ctx, c.Config.Store.URI, c.Config.Store.Database, c.Config.Store.Collection)
	}

	mem := store.NewMemStore()
	for _, path := range reports {
		rep, err := maskio.ImportJSON(path)
		if err != nil {
			return nil, err
		}
		if rep.RunID == "" {
			rep.RunID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		}
		if err := mem.SaveRun(ctx, rep); err != nil {
			return nil, err
		}
		c.Logger.Info("preloaded report", "run_id", rep.RunID, "path", path)
	}
	if len(reports) == 0 {
		c.Logger.Warn("no store configured and no reports preloaded; the API starts empty")
	}
	return mem, nil
}
