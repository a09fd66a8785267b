package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lucasnoah/issuepilot/internal/prompts"
)

var templatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "Manage prompt templates",
}

var templatesInstallCmd = &cobra.Command{
	Use:   "install",
	Short: "Write the built-in templates to ~/.pilot/templates for editing",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := prompts.InstallBuiltins(); err != nil {
			return fmt.Errorf("install templates: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "templates installed (existing files untouched)")
		return nil
	},
}

func init() {
	templatesCmd.AddCommand(templatesInstallCmd)
}
