package cmd

import (
	"fmt"

	"github.com/pawtrait-studio/pawtrait/internal/styles"
	"github.com/spf13/cobra"
)

func newStylesCmd() *cobra.Command {
	var showPrompts bool

	cmd := &cobra.Command{
		Use:   "styles",
		Short: "List the art style catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := styles.Load()
			if err != nil {
				return err
			}

			for _, s := range catalog.All() {
				fmt.Printf("%-12s %s: %s\n", s.ID, s.Title, s.Tagline)
				if showPrompts {
					for i, p := range s.Prompts {
						fmt.Printf("    variant %d: %s\n", i+1, p)
					}
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&showPrompts, "prompts", false, "Include the generation prompts for each style")

	return cmd
}
