package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lehigh-university-libraries/stampmaker/internal/readiness"
	"github.com/spf13/cobra"
)

func newKeyCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "key",
		Short: "Inspect or select the API key",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show where the API key comes from and whether generation can start",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), *configPath, nil)
			if err != nil {
				return err
			}

			envStatus := "missing"
			if a.env.Present() {
				envStatus = "set"
			}
			keyFile := "disabled"
			if a.host != nil {
				keyFile = a.host.Path
				if ok, err := a.host.HasSelectedKey(cmd.Context()); err == nil && ok {
					keyFile += " (selected)"
				}
			}

			rows := [][]string{
				{"Provider", a.cfg.Provider},
				{"Environment", strings.Join(a.env.Names, ", ") + ": " + envStatus},
				{"Key file", keyFile},
				{"State", string(a.probe.State())},
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Key", "Value"}, rows, nil))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "select",
		Short: "Prompt for an API key and store it in the key file",
		Long: `Prompts on the terminal for an API key with billing enabled and stores
it with 0600 permissions. A running server picks it up on POST /api/key/check.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), *configPath, nil)
			if err != nil {
				return err
			}
			if err := a.probe.RequestSelection(cmd.Context()); err != nil {
				if errors.Is(err, readiness.ErrNoHost) {
					return fmt.Errorf("%w: set key_file in the config", err)
				}
				return err
			}
			// selection is not confirmed; re-read what the host now holds
			fmt.Fprintf(cmd.OutOrStdout(), "Key state: %s\n", a.probe.Check(cmd.Context()))
			return nil
		},
	})

	return cmd
}
