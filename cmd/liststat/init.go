package main

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nao1215/liststat/internal/config"
	"github.com/spf13/cobra"
)

//go:embed templates/liststat.yaml
var configTemplate embed.FS

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a new liststat configuration file",
		Long: `Initialize creates a new .liststat configuration file in the current directory.

The generated file includes:
- Commented defaults for timeouts, concurrency and headers
- Commented examples for list-specific settings
- The page layout markers for archive mirrors

Examples:
  # Create .liststat in current directory
  liststat init

  # Create config file at a specific path
  liststat init -o myconfig.yaml

  # Force overwrite existing file
  liststat init -f`,
		RunE: runInitCmd,
	}

	cmd.Flags().StringP("output", "o", config.DefaultConfigFile,
		"Output file path for the configuration")
	cmd.Flags().BoolP("force", "f", false,
		"Overwrite existing configuration file")

	return cmd
}

// runInitCmd executes the init command.
func runInitCmd(cmd *cobra.Command, _ []string) error {
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}

	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}

	if !force {
		if _, err := os.Stat(outputPath); err == nil {
			return fmt.Errorf("configuration file already exists: %s (use -f to overwrite)", outputPath)
		}
	}

	content, err := configTemplate.ReadFile("templates/liststat.yaml")
	if err != nil {
		return fmt.Errorf("failed to read config template: %w", err)
	}

	dir := filepath.Dir(outputPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	if err := os.WriteFile(outputPath, content, 0o600); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created configuration file: %s\n", outputPath)
	fmt.Fprintln(out, "\nEdit this file to configure list-specific settings such as:")
	fmt.Fprintln(out, "  - Request timeouts and concurrency")
	fmt.Fprintln(out, "  - Custom headers and User-Agent")
	fmt.Fprintln(out, "  - Page layout markers for archive mirrors")

	return nil
}
