package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/leapstack-labs/leapflow/internal/config"
	"github.com/spf13/cobra"
)

// NewInitCommand creates the init command.
func NewInitCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new Leapflow project",
		Long: `Initialize a new Leapflow project.

This creates a small runnable starter:
  - leapflow.yaml with a dev profile and a local DuckDB connector
  - pipelines/nightly.flow, a sample pipeline over the bundled data
  - data/events.csv, the sample data it loads

Existing files are never touched unless --force is given.`,
		Example: `  # Initialize in the current directory
  leapflow init

  # Initialize in a new directory
  leapflow init my-project

  # Overwrite an existing configuration
  leapflow init --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			cc := NewCommandContext(cmd)
			return runInit(cc, dir, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing files")

	return cmd
}

func runInit(cc *CommandContext, dir string, force bool) error {
	if dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	configPath := filepath.Join(dir, config.ConfigFileName)
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("%s already exists. Use --force to overwrite", config.ConfigFileName)
	}

	if err := copyTemplate("project", dir, force); err != nil {
		return fmt.Errorf("failed to initialize project: %w", err)
	}

	r := cc.Renderer
	files, _ := listTemplateFiles("project")
	for _, f := range files {
		r.StatusLine(f, "success", "")
	}

	r.Println("")
	r.Success("Leapflow project initialized!")
	r.Println("")
	r.Println("Next steps:")
	r.Println("  leapflow plan pipelines/nightly.flow   Preview the execution plan")
	r.Println("  leapflow run pipelines/nightly.flow    Execute it against the dev profile")
	r.Println("  leapflow query tables                  Inspect the tables it built")

	return nil
}
