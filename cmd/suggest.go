package cmd

import (
	"fmt"
	"strconv"

	"github.com/lehigh-university-libraries/stampmaker/internal/models"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newSuggestCmd(configPath *string) *cobra.Command {
	var (
		size     int
		topic    string
		style    string
		password string
		asYAML   bool
	)

	cmd := &cobra.Command{
		Use:   "suggest",
		Short: "Suggest sticker captions",
		Long: `Asks the text model for one short caption per slot of the batch.

With --yaml the result is printed as a batch file for "stampmaker generate -f".`,
		Example: `  stampmaker suggest -n 8 --topic "猫好きの友達へ"
  stampmaker suggest -n 16 --yaml > batch.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, *configPath, nil)
			if err != nil {
				return err
			}

			sess := a.studio.NewSession("cli")
			if size > 0 {
				if err := sess.SetBatchSize(size); err != nil {
					return err
				}
			}
			if style != "" {
				if err := sess.SetStyle(style); err != nil {
					return err
				}
			}
			sess.SetSharedPrompt(topic)
			sess.SetPassword(accessPassword(password))

			captions, err := a.studio.Suggest(ctx, sess)
			if err != nil {
				return remediation(err)
			}

			out := cmd.OutOrStdout()
			if asYAML {
				b := batchFile{Style: sess.Style().Key, Prompt: topic, Stamps: sess.Items()}
				data, err := yaml.Marshal(b)
				if err != nil {
					return fmt.Errorf("failed to marshal batch file: %w", err)
				}
				_, err = out.Write(data)
				return err
			}

			rows := make([][]string, len(captions))
			for i, c := range captions {
				rows[i] = []string{strconv.Itoa(i + 1), c}
			}
			fmt.Fprintln(out, renderTable([]string{"#", "Caption"}, rows, []columnAlignment{alignRight, alignLeft}))
			return nil
		},
	}

	cmd.Flags().IntVarP(&size, "size", "n", 0, "Number of captions (a configured batch size)")
	cmd.Flags().StringVarP(&topic, "topic", "t", "", "Theme for the set (default from config)")
	cmd.Flags().StringVarP(&style, "style", "s", models.DefaultStyleKey, "Style key written to --yaml output")
	cmd.Flags().StringVar(&password, "password", "", "Access password (default env "+passwordEnv+")")
	cmd.Flags().BoolVar(&asYAML, "yaml", false, "Print a batch file instead of a table")

	return cmd
}
