package cmd

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func NewRootCmd() *cobra.Command {
	var (
		configPath string
		verbose    bool
	)

	cmd := &cobra.Command{
		Use:   "stampmaker",
		Short: "Batch character sticker generation with generative image models",
		Long: `Stampmaker generates a set of character stickers from reference photos,
a style preset and a list of short captions, one image per caption.

It can run batches from the terminal or serve the same workflow as a JSON API.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()

			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		},
	}

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default ./stampmaker.yaml if present)")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	// Add subcommands
	cmd.AddCommand(newServeCmd(&configPath))
	cmd.AddCommand(newGenerateCmd(&configPath))
	cmd.AddCommand(newSuggestCmd(&configPath))
	cmd.AddCommand(newKeyCmd(&configPath))
	cmd.AddCommand(newStylesCmd())

	return cmd
}
