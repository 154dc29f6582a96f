package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapflow/internal/api"
	"github.com/leapstack-labs/leapflow/pkg/plan"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	VarFlags
	Addr string
}

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	opts := &ServeOptions{}

	cmd := &cobra.Command{
		Use:   "serve <file.flow>",
		Short: "Serve pipeline metadata and run history over HTTP",
		Long: `Start a read-only JSON API for one pipeline. The file is recompiled
on every plan and graph request, so edits show up without a restart.
Run history comes from the state store; nothing is ever executed.

Endpoints under /api/v1: health, plan, graph, runs, runs/{id}.`,
		Example: `  # Serve on the default port
  leapflow serve nightly.flow

  # Custom address
  leapflow serve nightly.flow --addr :8080`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, args[0], opts)
		},
	}

	addVarFlags(cmd, &opts.VarFlags)
	cmd.Flags().StringVar(&opts.Addr, "addr", ":4040", "Listen address")

	return cmd
}

func runServe(cmd *cobra.Command, path string, opts *ServeOptions) error {
	cc := NewCommandContext(cmd)

	profile, err := cc.Cfg.ActiveProfile()
	if err != nil {
		return err
	}
	vars, err := buildVars(profile, &opts.VarFlags)
	if err != nil {
		return err
	}

	// A broken pipeline still serves; the plan endpoint reports the
	// compile error until the file is fixed.
	if _, _, err := compilePipeline(path, vars); err != nil {
		cc.Renderer.Warning(fmt.Sprintf("pipeline does not compile yet: %v", err))
	}

	store, err := openStore(cc.Cfg, cc.Logger)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	srv := api.NewServer(api.Config{
		Addr:     opts.Addr,
		Pipeline: path,
		Compile: func() (*plan.Plan, error) {
			p, _, err := compilePipeline(path, vars)
			return p, err
		},
		Store:  store,
		Logger: cc.Logger,
	})

	cc.Renderer.Success(fmt.Sprintf("Serving %s on %s", path, opts.Addr))
	cc.Renderer.Muted("Press Ctrl+C to stop.")

	return srv.ListenAndServe(cmd.Context())
}
