package cmd

import (
	"fmt"

	"github.com/lehigh-university-libraries/stampmaker/internal/models"
	"github.com/spf13/cobra"
)

func newStylesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "styles",
		Short: "List the style presets",
		RunE: func(cmd *cobra.Command, args []string) error {
			styles := models.Styles()
			rows := make([][]string, 0, len(styles))
			for _, s := range styles {
				key := s.Key
				if key == models.DefaultStyleKey {
					key += " *"
				}
				rows = append(rows, []string{key, s.Label, s.Descriptor})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Key", "Label", "Descriptor"}, rows, nil))
			return nil
		},
	}
}
