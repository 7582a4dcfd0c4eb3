package cmd

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pawtrait",
		Short: "Pet photo art studio with AI-generated stylized portraits",
		Long: `Pawtrait turns a pet photo into stylized AI artwork.

It serves the creation wizard (upload, style choice, preview, mocked checkout)
over HTTP and ships small utilities for inspecting the style catalog and
producing social-media exports locally.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
		},
	}

	// Add subcommands
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newStylesCmd())
	cmd.AddCommand(newExportCmd())

	return cmd
}
