package commands

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/leapflow/internal/cli/output"
	"github.com/leapstack-labs/leapflow/internal/config"
	"github.com/leapstack-labs/leapflow/internal/state"
	"github.com/leapstack-labs/leapflow/pkg/connector"
	"github.com/leapstack-labs/leapflow/pkg/plan"
	"github.com/leapstack-labs/leapflow/pkg/subst"
	"github.com/leapstack-labs/leapflow/pkg/token"
	"github.com/leapstack-labs/leapflow/pkg/value"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
}

// NewCommandContext assembles the dependencies the root command stored
// on the context plus a renderer bound to the command's writers.
func NewCommandContext(cmd *cobra.Command) *CommandContext {
	cfg := config.FromContext(cmd.Context())
	logger := config.GetLogger(cmd.Context())
	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.Output))

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Renderer: r,
	}
}

// VarFlags holds the variable-binding flags shared by compile commands.
type VarFlags struct {
	Vars     []string // --var name=value, repeatable
	VarsFile string   // --vars-file path
}

func addVarFlags(cmd *cobra.Command, flags *VarFlags) {
	cmd.Flags().StringArrayVar(&flags.Vars, "var", nil, "Set a variable (name=value, repeatable)")
	cmd.Flags().StringVar(&flags.VarsFile, "vars-file", "", "YAML file with variable bindings")
}

// buildVars layers variable bindings: profile < vars file < --var.
func buildVars(profile config.Profile, flags *VarFlags) (subst.Vars, error) {
	vars := profile.Vars()

	if flags.VarsFile != "" {
		data, err := os.ReadFile(flags.VarsFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read vars file: %w", err)
		}
		var raw map[string]any
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse vars file %s: %w", flags.VarsFile, err)
		}
		for name, v := range raw {
			vars[name] = value.FromAny(v)
		}
	}

	for _, kv := range flags.Vars {
		name, raw, ok := strings.Cut(kv, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid --var %q (expected name=value)", kv)
		}
		vars[name] = subst.Literal(raw)
	}

	return vars, nil
}

// loadPipeline reads a pipeline file.
func loadPipeline(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read pipeline: %w", err)
	}
	return string(data), nil
}

// compilePipeline reads and compiles a pipeline file. The source is
// returned alongside the plan so callers can point diagnostics into it.
func compilePipeline(path string, vars subst.Vars) (*plan.Plan, string, error) {
	src, err := loadPipeline(path)
	if err != nil {
		return nil, "", err
	}
	p, err := plan.Compile(src, vars)
	if err != nil {
		return nil, src, err
	}
	return p, src, nil
}

// openStore opens (and migrates) the run-history store at the
// configured state path.
func openStore(cfg *config.Config, logger *slog.Logger) (state.Store, error) {
	statePath := cfg.StatePath
	if statePath == "" {
		statePath = config.DefaultStateFile
	}
	if dir := filepath.Dir(statePath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create state directory: %w", err)
		}
	}

	store := state.NewSQLiteStore(logger)
	if err := store.Open(statePath); err != nil {
		return nil, err
	}
	if err := store.Migrate(); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}

// resolveConnectorConfig picks the profile connector a command talks
// to: the explicit flag, else default_connector, else the profile's
// only connector.
func resolveConnectorConfig(cfg *config.Config, explicit string) (string, connector.Config, error) {
	profile, err := cfg.ActiveProfile()
	if err != nil {
		return "", connector.Config{}, err
	}

	name := explicit
	if name == "" {
		name = cfg.DefaultConnector
	}
	if name == "" {
		switch len(profile.Connectors) {
		case 0:
			return "", connector.Config{}, fmt.Errorf("the active profile defines no connectors; add one to %s", config.ConfigFileName)
		case 1:
			for n := range profile.Connectors {
				name = n
			}
		default:
			return "", connector.Config{}, fmt.Errorf("the active profile defines %d connectors; set default_connector in %s or pass --connector",
				len(profile.Connectors), config.ConfigFileName)
		}
	}

	cc, err := profile.Connector(name)
	if err != nil {
		return "", connector.Config{}, err
	}
	return name, cc, nil
}

// positioned is implemented by every compiler error that carries a
// source location.
type positioned interface {
	error
	Position() token.Position
}

// renderDiagnostic prints err, with the offending source line and a
// caret when the error carries a position.
func renderDiagnostic(r *output.Renderer, src string, err error) {
	styles := r.Styles()
	r.Printf("%s %v\n", styles.Error.Render("error:"), err)

	var pe positioned
	if !errors.As(err, &pe) {
		return
	}
	pos := pe.Position()
	line := sourceLine(src, pos.Line)
	if line == "" {
		return
	}
	r.Printf("  %s\n", line)
	if pos.Column > 0 && pos.Column <= len(line)+1 {
		r.Printf("  %s%s\n", strings.Repeat(" ", pos.Column-1), styles.Error.Render("^"))
	}
}

func sourceLine(src string, n int) string {
	lines := strings.Split(src, "\n")
	if n < 1 || n > len(lines) {
		return ""
	}
	return strings.TrimRight(lines[n-1], "\r")
}
