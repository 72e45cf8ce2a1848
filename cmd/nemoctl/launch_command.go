package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"nemoctl/internal/jobs"
	"nemoctl/internal/launch"
	"nemoctl/internal/logging"
	"nemoctl/internal/overrides"
	"nemoctl/internal/services/ngc"
	"nemoctl/internal/shellutil"
)

func newLaunchCommand(ctx *commandContext) *cobra.Command {
	var (
		gpus       int
		runName    string
		sourceLang string
		targetLang string
		setFlags   []string
		dryRun     bool
	)

	cmd := &cobra.Command{
		Use:   "launch [WANDB_API_KEY]",
		Short: "Submit a NeMo NMT training job to the NGC batch cluster",
		Long: `Renders the container setup script and training command, then submits
it with ngc batch run. The Weights & Biases API key may be passed as the
positional argument, set in the configuration file, or exported as
WANDB_API_KEY.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			extra, err := overrides.Parse(setFlags)
			if err != nil {
				return err
			}

			req := launch.TrainingRequest{
				GPUs:           gpus,
				RunName:        runName,
				SourceLanguage: sourceLang,
				TargetLanguage: targetLang,
				Extra:          extra,
			}
			if len(args) == 1 {
				req.WandbAPIKey = args[0]
			}

			plan, err := launch.PlanTraining(cfg, req)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if dryRun {
				client, err := ctx.ngcClient()
				if err != nil {
					return err
				}
				words := append([]string{cfg.NGCBinary()}, client.SubmitArgs(ngc.Submission{
					JobName:     plan.RunName,
					CommandLine: plan.CommandLine,
				})...)
				fmt.Fprintf(out, "Run name: %s\n", plan.RunName)
				fmt.Fprintln(out, shellutil.Join(words))
				return nil
			}

			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			return ctx.withSubmitLock(func() error {
				client, err := ctx.ngcClient()
				if err != nil {
					return err
				}
				store, err := ctx.openStore()
				if err != nil {
					return err
				}
				defer store.Close()

				info, err := client.Submit(cmd.Context(), ngc.Submission{
					JobName:     plan.RunName,
					CommandLine: plan.CommandLine,
				})
				if err != nil {
					return fmt.Errorf("submit training job: %w", err)
				}

				job, err := store.Record(cmd.Context(), plan.RunName, info.ID, jobs.KindTraining)
				if err != nil {
					return fmt.Errorf("record job: %w", err)
				}
				job.CommandLine = plan.CommandLine
				if info.Status != "" {
					job.ApplyNGCStatus(info.Status, job.CreatedAt)
				}
				if err := store.Update(cmd.Context(), job); err != nil {
					return fmt.Errorf("record job: %w", err)
				}

				logger.Info("training job submitted",
					logging.String("run_name", plan.RunName),
					logging.String("ngc_job_id", info.ID),
					logging.String(logging.FieldComponent, "launch"),
					logging.String(logging.FieldEventType, "job_submitted"),
				)

				fmt.Fprintln(out, renderTable(
					[]string{"ID", "Run Name", "NGC Job", "Status"},
					[][]string{{
						fmt.Sprintf("%d", job.ID),
						job.RunName,
						job.NGCJobID,
						string(job.Status),
					}},
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft},
					shouldColorize(out),
				))
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&gpus, "gpus", 0, "GPUs per job (defaults to configuration)")
	cmd.Flags().StringVar(&runName, "run-name", "", "Explicit run name (default derives from prefix and language pair)")
	cmd.Flags().StringVar(&sourceLang, "source", "", "Source language tag (defaults to configuration)")
	cmd.Flags().StringVar(&targetLang, "target", "", "Target language tag (defaults to configuration)")
	cmd.Flags().StringArrayVar(&setFlags, "set", nil, "Additional hydra override as key=value (repeatable)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Render the submission without calling ngc")

	return cmd
}
