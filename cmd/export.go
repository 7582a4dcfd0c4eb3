package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pawtrait-studio/pawtrait/internal/export"
	"github.com/spf13/cobra"
)

func newExportCmd() *cobra.Command {
	var outDir string

	cmd := &cobra.Command{
		Use:   "export <image>",
		Short: "Produce the social pack (post and story crops) for an image file",
		Long: `Renders the two fixed-aspect social variants of an artwork:
a 1080x1080 centered square post and a 1080x1920 centered 9:16 story.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read image: %w", err)
			}

			pack, err := export.SocialPack(data)
			if err != nil {
				return err
			}

			base := strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
			postPath := filepath.Join(outDir, base+"-post.jpg")
			storyPath := filepath.Join(outDir, base+"-story.jpg")

			if err := os.WriteFile(postPath, pack.Post, 0644); err != nil {
				return fmt.Errorf("failed to write post variant: %w", err)
			}
			if err := os.WriteFile(storyPath, pack.Story, 0644); err != nil {
				return fmt.Errorf("failed to write story variant: %w", err)
			}

			fmt.Println("Wrote", postPath)
			fmt.Println("Wrote", storyPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "Output directory")

	return cmd
}
