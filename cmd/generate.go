package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/lehigh-university-libraries/stampmaker/internal/batch"
	"github.com/lehigh-university-libraries/stampmaker/internal/config"
	"github.com/lehigh-university-libraries/stampmaker/internal/export"
	"github.com/lehigh-university-libraries/stampmaker/internal/imagecodec"
	"github.com/lehigh-university-libraries/stampmaker/internal/models"
	"github.com/lehigh-university-libraries/stampmaker/internal/studio"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

type generateOptions struct {
	captions        []string
	batchPath       string
	suggest         bool
	size            int
	references      []string
	style           string
	prompt          string
	password        string
	outDir          string
	continueOnError bool
}

func newGenerateCmd(configPath *string) *cobra.Command {
	opts := &generateOptions{}

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a set of stickers",
		Long: `Generates one sticker per caption, strictly in order, and writes the
images plus a manifest.yaml to the output directory.

Captions come from --caption flags, a YAML batch file, or --suggest. Items
are attempted one at a time; by default the run stops at the first failure.`,
		Example: `  # Two stickers from a reference photo
  stampmaker generate -r me.png -c "ありがとう" -c "おつかれさま" --password linklelab

  # A batch file, continuing past failed items
  stampmaker generate -f batch.yaml --continue-on-error

  # Let the model suggest 16 captions about cats
  stampmaker generate --suggest -n 16 -p "猫" -s pixel`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, *configPath, opts)
		},
	}

	cmd.Flags().StringArrayVarP(&opts.captions, "caption", "c", nil, "Sticker caption (repeatable)")
	cmd.Flags().StringVarP(&opts.batchPath, "file", "f", "", "YAML batch file with style, prompt, references and stamps")
	cmd.Flags().BoolVar(&opts.suggest, "suggest", false, "Fill captions with model suggestions first")
	cmd.Flags().IntVarP(&opts.size, "size", "n", 0, "Batch size (default from config, 8)")
	cmd.Flags().StringArrayVarP(&opts.references, "ref", "r", nil, "Reference image path (repeatable, max 3)")
	cmd.Flags().StringVarP(&opts.style, "style", "s", "", "Style key (see `stampmaker styles`)")
	cmd.Flags().StringVarP(&opts.prompt, "prompt", "p", "", "Shared character prompt, also the suggestion topic")
	cmd.Flags().StringVar(&opts.password, "password", "", "Access password (default env "+passwordEnv+")")
	cmd.Flags().StringVarP(&opts.outDir, "out", "o", "stamps", "Output directory")
	cmd.Flags().BoolVar(&opts.continueOnError, "continue-on-error", false, "Skip failed items instead of stopping")

	return cmd
}

func runGenerate(cmd *cobra.Command, configPath string, opts *generateOptions) error {
	ctx := cmd.Context()

	a, err := newApp(ctx, configPath, func(cfg *config.Config) {
		if opts.continueOnError {
			cfg.Policies.Failure = config.FailureContinue
		}
	})
	if err != nil {
		return err
	}

	sess := a.studio.NewSession("cli")
	if err := fillSession(sess, opts); err != nil {
		return err
	}

	if opts.suggest {
		captions, err := a.studio.Suggest(ctx, sess)
		if err != nil {
			return remediation(err)
		}
		slog.Info("Using suggested captions", "count", len(captions))
	}

	if err := a.ensureKey(ctx); err != nil {
		return err
	}

	obs := newProgressObserver(cmd)
	outcome, runErr := a.studio.Generate(ctx, sess, obs)
	obs.finish()

	if outcome == nil {
		return remediation(runErr)
	}

	stamps := sess.Stamps()
	if len(stamps) > 0 {
		manifest, err := export.WriteDir(opts.outDir, sess.Style().Key, stamps)
		if err != nil {
			return errors.Join(runErr, err)
		}
		printManifest(cmd, manifest, opts.outDir)
	}

	for _, f := range outcome.Failures {
		fmt.Fprintln(cmd.ErrOrStderr(), studio.Message(f))
	}
	if runErr != nil {
		return fmt.Errorf("batch %s after %d of %d stamps: %w", outcome.Status, outcome.Progress.Completed, outcome.Progress.Total, runErr)
	}
	return nil
}

// fillSession applies the batch file first, then flags
func fillSession(sess *studio.Session, opts *generateOptions) error {
	if opts.size > 0 {
		if err := sess.SetBatchSize(opts.size); err != nil {
			return err
		}
	}

	style := opts.style
	prompt := opts.prompt
	refs := opts.references
	var items []models.StampRequest

	if opts.batchPath != "" {
		b, err := loadBatchFile(opts.batchPath)
		if err != nil {
			return err
		}
		if style == "" {
			style = b.Style
		}
		if prompt == "" {
			prompt = b.Prompt
		}
		refs = append(b.References, refs...)
		items = append(items, b.Stamps...)
	}
	for _, c := range opts.captions {
		items = append(items, models.StampRequest{Text: c})
	}

	if style != "" {
		if err := sess.SetStyle(style); err != nil {
			return err
		}
	}
	if len(items) > 0 {
		sess.SetItems(items)
	}
	sess.SetSharedPrompt(prompt)
	sess.SetPassword(accessPassword(opts.password))

	files := make([]imagecodec.File, len(refs))
	for i, r := range refs {
		files[i] = imagecodec.PathFile(r)
	}
	if dropped := sess.AddReferences(files...); dropped > 0 {
		slog.Warn("Too many reference images, extra ones ignored", "dropped", dropped)
	}
	return nil
}

// passwordEnv supplies --password when the flag is not given
const passwordEnv = "STAMPMAKER_ACCESS_PASSWORD"

// accessPassword falls back to the environment, read after .env is loaded
func accessPassword(flag string) string {
	if flag != "" {
		return flag
	}
	return os.Getenv(passwordEnv)
}

// remediation adds the user-facing message to err
func remediation(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", studio.Message(err), err)
}

func printManifest(cmd *cobra.Command, m *export.Manifest, dir string) {
	rows := make([][]string, 0, len(m.Stamps))
	for i, s := range m.Stamps {
		rows = append(rows, []string{strconv.Itoa(i + 1), s.Caption, s.File})
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"#", "Caption", "File"}, rows, []columnAlignment{alignRight, alignLeft, alignLeft}))
	fmt.Fprintf(cmd.OutOrStdout(), "\nStamps saved to: %s\n", dir)
}

// progressObserver draws a bar on a terminal and logs otherwise
type progressObserver struct {
	batch.Hooks
	bar *progressbar.ProgressBar
}

func newProgressObserver(cmd *cobra.Command) *progressObserver {
	o := &progressObserver{}
	out := cmd.ErrOrStderr()
	interactive := isTerminal(out)

	o.Hooks = batch.Hooks{
		Progress: func(p models.Progress) {
			if !interactive {
				slog.Info("Progress", "completed", p.Completed, "total", p.Total)
				return
			}
			if o.bar == nil {
				o.bar = progressbar.NewOptions(p.Total,
					progressbar.OptionSetWriter(out),
					progressbar.OptionSetDescription("Generating stamps"),
					progressbar.OptionShowCount(),
					progressbar.OptionSetPredictTime(false),
					progressbar.OptionClearOnFinish(),
				)
			}
			_ = o.bar.Set(p.Completed)
			if p.Done() {
				_ = o.bar.Finish()
			}
		},
		Stamp: func(s models.GeneratedStamp) {
			if o.bar != nil {
				o.bar.Describe(s.Caption)
			}
		},
	}
	return o
}

func (o *progressObserver) finish() {
	if o.bar != nil {
		_ = o.bar.Finish()
	}
}
