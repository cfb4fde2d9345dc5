package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/kateleext/openai-deep-research-mcp/internal/config"
	"github.com/kateleext/openai-deep-research-mcp/internal/research"
	"github.com/kateleext/openai-deep-research-mcp/internal/wizard"
)

func newInitCommand() *cobra.Command {
	var interactive bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a project configuration",
		Long: `Initialize a deep-research-mcp project configuration.

Creates a .deep-research.yaml holding the provider settings and, when an
API key is entered, a .env holding the key.

Use --interactive to run a guided wizard that collects the provider kind,
API key, default model, and audit preference. Without it, a commented
default configuration is written.

If no directory is specified, the current directory is used.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return initCommandE(cmd, args, interactive)
		},
	}

	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Run the guided setup wizard")

	return cmd
}

func initCommandE(cmd *cobra.Command, args []string, interactive bool) error {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}

	// Create the target directory if it doesn't exist
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	spec := &wizard.SetupSpec{Provider: research.KindResponses}
	if interactive {
		s, err := wizard.RunSetupWizard(cmd.InOrStdin(), cmd.OutOrStdout())
		if err != nil {
			return err
		}
		spec = s
	}

	content, err := wizard.GenerateConfigYAML(spec)
	if err != nil {
		return fmt.Errorf("failed to generate %s: %w", config.ConfigFileName, err)
	}

	// Existing files are never overwritten; rerunning init is safe.
	var written, kept []string
	configPath := filepath.Join(dir, config.ConfigFileName)
	if _, err := os.Stat(configPath); err == nil {
		kept = append(kept, configPath)
	} else {
		if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", config.ConfigFileName, err)
		}
		written = append(written, configPath)
	}

	if env := wizard.GenerateEnv(spec); env != "" {
		envPath := filepath.Join(dir, ".env")
		if _, err := os.Stat(envPath); err == nil {
			kept = append(kept, envPath)
		} else {
			if err := os.WriteFile(envPath, []byte(env), 0o600); err != nil {
				return fmt.Errorf("failed to write .env: %w", err)
			}
			written = append(written, envPath)
		}
	}

	// Print summary
	fmt.Fprintln(cmd.OutOrStdout(), "Initialized deep-research-mcp configuration:") //nolint:errcheck
	for _, p := range written {
		fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", p) //nolint:errcheck
	}
	for _, p := range kept {
		fmt.Fprintf(cmd.OutOrStdout(), "  %s (exists, kept)\n", p) //nolint:errcheck
	}
	if spec.APIKey == "" && spec.Provider != research.KindManual {
		fmt.Fprintln(cmd.OutOrStdout(), "\nSet OPENAI_API_KEY in the environment or a .env file before serving.") //nolint:errcheck
	}

	return nil
}
