package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"nemoctl/internal/jobs"
	"nemoctl/internal/services/nemo"
	"nemoctl/internal/shellutil"
)

func newInferCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "infer",
		Short: "Local inference against NeMo models",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(newInferPunctuateCommand(ctx))

	return cmd
}

func newInferPunctuateCommand(ctx *commandContext) *cobra.Command {
	var (
		inputPath    string
		outputPath   string
		labelsPath   string
		modelPath    string
		pretrained   string
		maxSeqLength int
		step         int
		margin       int
		batchSize    int
		dryRun       bool
	)

	cmd := &cobra.Command{
		Use:   "punctuate",
		Short: "Restore punctuation and capitalization in a local text file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			req := nemo.FromConfig(cfg)
			req.InputPath = inputPath
			req.OutputPath = outputPath
			req.LabelsPath = labelsPath
			if cmd.Flags().Changed("model-path") {
				req.ModelPath = modelPath
				req.PretrainedModel = ""
			}
			if cmd.Flags().Changed("pretrained") {
				req.PretrainedModel = pretrained
				req.ModelPath = ""
			}
			if cmd.Flags().Changed("max-seq-length") {
				req.MaxSeqLength = maxSeqLength
			}
			if cmd.Flags().Changed("step") {
				req.Step = step
			}
			if cmd.Flags().Changed("margin") {
				req.Margin = margin
			}
			if cmd.Flags().Changed("batch-size") {
				req.BatchSize = batchSize
			}

			runner, err := nemo.NewRunner(cfg)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if dryRun {
				if err := req.Validate(); err != nil {
					return err
				}
				words := append([]string{cfg.PythonBinary()}, runner.Args(req)...)
				fmt.Fprintln(out, shellutil.Join(words))
				return nil
			}

			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			runName := inferRunName(req)
			job, err := store.Record(cmd.Context(), runName, "", jobs.KindInference)
			if err != nil {
				return fmt.Errorf("record job: %w", err)
			}
			job.CommandLine = shellutil.Join(append([]string{cfg.PythonBinary()}, runner.Args(req)...))
			job.Status = jobs.StatusRunning
			if err := store.Update(cmd.Context(), job); err != nil {
				return fmt.Errorf("record job: %w", err)
			}

			runErr := runner.Run(cmd.Context(), req, logger)
			if err := finishInferenceJob(cmd.Context(), store, job, runErr); err != nil {
				return err
			}

			fmt.Fprintf(out, "Wrote %s\n", req.OutputPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&inputPath, "input", "i", "", "Input text file (required)")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output text file (required)")
	cmd.Flags().StringVar(&labelsPath, "labels", "", "Optional output labels file")
	cmd.Flags().StringVar(&modelPath, "model-path", "", "Path to a local .nemo checkpoint")
	cmd.Flags().StringVar(&pretrained, "pretrained", "", "Pretrained model name from NGC")
	cmd.Flags().IntVar(&maxSeqLength, "max-seq-length", 0, "Maximum segment length in subtokens")
	cmd.Flags().IntVar(&step, "step", 0, "Stride between segments in subtokens")
	cmd.Flags().IntVar(&margin, "margin", 0, "Subtokens near segment edges excluded from predictions")
	cmd.Flags().IntVar(&batchSize, "batch-size", 0, "Inference batch size")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the inference command without running it")
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("output")

	return cmd
}

// finishInferenceJob records the run outcome on the job row. A failed
// bookkeeping write must not swallow the run error itself.
func finishInferenceJob(ctx context.Context, store *jobs.Store, job *jobs.Job, runErr error) error {
	now := time.Now()
	if runErr != nil {
		job.SetFailed(runErr.Error(), now)
	} else {
		job.Status = jobs.StatusFinished
		ts := now.UTC()
		job.CompletedAt = &ts
	}
	if err := store.Update(ctx, job); err != nil {
		return errors.Join(runErr, fmt.Errorf("record outcome: %w", err))
	}
	return runErr
}

func inferRunName(req nemo.Request) string {
	base := req.InputPath
	if idx := strings.LastIndexAny(base, "/\\"); idx >= 0 {
		base = base[idx+1:]
	}
	return "punct-" + base
}
