package main

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"nemoctl/internal/jobs"
	"nemoctl/internal/logging"
	"nemoctl/internal/tracker"
)

func newJobsCommand(ctx *commandContext) *cobra.Command {
	jobsCmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect and maintain tracked jobs",
	}

	jobsCmd.AddCommand(newJobsListCommand(ctx))
	jobsCmd.AddCommand(newJobsShowCommand(ctx))
	jobsCmd.AddCommand(newJobsSyncCommand(ctx))
	jobsCmd.AddCommand(newJobsWatchCommand(ctx))
	jobsCmd.AddCommand(newJobsClearCommand(ctx))
	jobsCmd.AddCommand(newJobsRemoveCommand(ctx))
	jobsCmd.AddCommand(newJobsHealthCommand(ctx))

	return jobsCmd
}

func newJobsListCommand(ctx *commandContext) *cobra.Command {
	var statusFilter string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tracked jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			var filters []jobs.Status
			if trimmed := strings.TrimSpace(statusFilter); trimmed != "" {
				status, ok := jobs.ParseStatus(trimmed)
				if !ok {
					return fmt.Errorf("unknown status %q (known: %s)", trimmed, knownStatuses())
				}
				filters = append(filters, status)
			}

			list, err := store.List(cmd.Context(), filters...)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(list) == 0 {
				fmt.Fprintln(out, "No jobs tracked")
				return nil
			}

			rows := make([][]string, 0, len(list))
			for _, job := range list {
				rows = append(rows, []string{
					strconv.FormatInt(job.ID, 10),
					job.RunName,
					string(job.Kind),
					job.NGCJobID,
					string(job.Status),
					formatTimestamp(job.CreatedAt),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"ID", "Run Name", "Kind", "NGC Job", "Status", "Created"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
				shouldColorize(out),
			))
			return nil
		},
	}

	cmd.Flags().StringVar(&statusFilter, "status", "", "Only show jobs in this status")
	return cmd
}

func newJobsShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show JOB_ID",
		Short: "Show one tracked job in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseJobID(args[0])
			if err != nil {
				return err
			}
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			job, err := store.GetByID(cmd.Context(), id)
			if err != nil {
				return err
			}
			if job == nil {
				return fmt.Errorf("job %d not found", id)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "ID:          %d\n", job.ID)
			fmt.Fprintf(out, "Run name:    %s\n", job.RunName)
			fmt.Fprintf(out, "Kind:        %s\n", job.Kind)
			fmt.Fprintf(out, "Status:      %s\n", job.Status)
			if job.NGCJobID != "" {
				fmt.Fprintf(out, "NGC job:     %s\n", job.NGCJobID)
			}
			if job.NGCStatus != "" {
				fmt.Fprintf(out, "NGC status:  %s\n", job.NGCStatus)
			}
			fmt.Fprintf(out, "Terminal:    %s\n", yesNo(job.IsTerminal()))
			fmt.Fprintf(out, "Created:     %s\n", formatTimestamp(job.CreatedAt))
			fmt.Fprintf(out, "Updated:     %s\n", formatTimestamp(job.UpdatedAt))
			if job.CompletedAt != nil {
				fmt.Fprintf(out, "Completed:   %s\n", formatTimestamp(*job.CompletedAt))
			}
			if job.ErrorMessage != "" {
				fmt.Fprintf(out, "Error:       %s\n", job.ErrorMessage)
			}
			if job.CommandLine != "" {
				fmt.Fprintf(out, "Command:     %s\n", job.CommandLine)
			}
			return nil
		},
	}
}

func newJobsSyncCommand(ctx *commandContext) *cobra.Command {
	var follow bool

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Refresh non-terminal jobs from the NGC cluster",
		RunE: func(cmd *cobra.Command, args []string) error {
			tr, store, err := buildTracker(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			if follow {
				return followSync(cmd, tr)
			}

			changed, err := tr.SyncOnce(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %d job(s)\n", changed)
			return nil
		},
	}

	cmd.Flags().BoolVar(&follow, "follow", false, "Keep polling on the configured interval until interrupted")
	return cmd
}

func followSync(cmd *cobra.Command, tr *tracker.Tracker) error {
	runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := tr.Start(runCtx); err != nil {
		return err
	}
	defer tr.Stop()

	fmt.Fprintln(cmd.OutOrStdout(), "Polling for job updates (Ctrl-C to stop)")
	<-runCtx.Done()
	return nil
}

func newJobsWatchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "watch JOB_ID",
		Short: "Poll a job until it reaches a terminal state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseJobID(args[0])
			if err != nil {
				return err
			}
			tr, store, err := buildTracker(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			out := cmd.OutOrStdout()
			var lastStatus jobs.Status
			final, err := tr.Watch(cmd.Context(), id, func(job *jobs.Job) {
				if job.Status == lastStatus {
					return
				}
				lastStatus = job.Status
				fmt.Fprintf(out, "%s  %s\n", formatTimestamp(time.Now()), job.Status)
			})
			if err != nil {
				return err
			}
			if final.Status != jobs.StatusFinished {
				return fmt.Errorf("job %d ended %s", final.ID, final.Status)
			}
			return nil
		},
	}
}

func newJobsClearCommand(ctx *commandContext) *cobra.Command {
	var clearAll bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove finished, failed, and killed jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			var removed int64
			if clearAll {
				removed, err = store.ClearAll(cmd.Context())
			} else {
				removed, err = store.ClearTerminal(cmd.Context())
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d job(s)\n", removed)
			return nil
		},
	}

	cmd.Flags().BoolVar(&clearAll, "all", false, "Remove every job regardless of state")
	return cmd
}

func newJobsRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove JOB_ID",
		Short: "Remove one tracked job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseJobID(args[0])
			if err != nil {
				return err
			}
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			ok, err := store.Remove(cmd.Context(), id)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("job %d not found", id)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed job %d\n", id)
			return nil
		},
	}
}

func newJobsHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Summarize tracked job counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			health, err := store.Health(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Database: %s\n", store.Path())
			fmt.Fprintln(out, renderTable(
				[]string{"Total", "Waiting", "Running", "Finished", "Failed", "Killed"},
				[][]string{{
					strconv.Itoa(health.Total),
					strconv.Itoa(health.Waiting),
					strconv.Itoa(health.Running),
					strconv.Itoa(health.Finished),
					strconv.Itoa(health.Failed),
					strconv.Itoa(health.Killed),
				}},
				[]columnAlignment{alignRight, alignRight, alignRight, alignRight, alignRight, alignRight},
				shouldColorize(out),
			))
			return nil
		},
	}
}

func buildTracker(ctx *commandContext) (*tracker.Tracker, *jobs.Store, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	store, err := ctx.openStore()
	if err != nil {
		return nil, nil, err
	}
	client, err := ctx.ngcClient()
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	logger, err := ctx.ensureLogger()
	if err != nil {
		logger = logging.NewNop()
	}
	tr, err := tracker.New(cfg, store, client, logger)
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	return tr, store, nil
}

func parseJobID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid job id %q", raw)
	}
	return id, nil
}

func knownStatuses() string {
	all := jobs.AllStatuses()
	parts := make([]string, 0, len(all))
	for _, status := range all {
		parts = append(parts, string(status))
	}
	return strings.Join(parts, ", ")
}

func formatTimestamp(ts time.Time) string {
	if ts.IsZero() {
		return "-"
	}
	return ts.Local().Format("2006-01-02 15:04:05")
}
