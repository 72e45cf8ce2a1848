package tracker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"nemoctl/internal/config"
	"nemoctl/internal/jobs"
	"nemoctl/internal/logging"
	"nemoctl/internal/services/ngc"
)

// StatusClient fetches the current cluster state for a job.
type StatusClient interface {
	JobInfo(ctx context.Context, id string) (ngc.JobInfo, error)
}

// Tracker periodically refreshes non-terminal jobs from the NGC cluster
// until they settle into a terminal state.
type Tracker struct {
	store  *jobs.Store
	client StatusClient
	logger *slog.Logger

	pollInterval       time.Duration
	errorRetryInterval time.Duration

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New constructs a Tracker from configuration.
func New(cfg *config.Config, store *jobs.Store, client StatusClient, logger *slog.Logger) (*Tracker, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if store == nil {
		return nil, errors.New("store is required")
	}
	if client == nil {
		return nil, errors.New("status client is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Tracker{
		store:              store,
		client:             client,
		logger:             logging.NewComponentLogger(logger, "tracker"),
		pollInterval:       time.Duration(cfg.Workflow.PollInterval) * time.Second,
		errorRetryInterval: time.Duration(cfg.Workflow.ErrorRetryInterval) * time.Second,
	}, nil
}

// Start begins background polling.
func (t *Tracker) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running {
		return errors.New("tracker already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	t.cancel = cancel
	t.running = true
	t.wg.Add(1)
	go t.run(runCtx)
	return nil
}

// Stop terminates background polling and waits for completion.
func (t *Tracker) Stop() {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return
	}
	cancel := t.cancel
	t.running = false
	t.cancel = nil
	t.mu.Unlock()

	cancel()
	t.wg.Wait()
}

func (t *Tracker) run(ctx context.Context) {
	defer t.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		refreshed, err := t.SyncOnce(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			t.logger.Error("job refresh failed",
				logging.Error(err),
				logging.String(logging.FieldEventType, "job_refresh_failed"),
				logging.String(logging.FieldErrorHint, "check ngc CLI availability and credentials"),
			)
			if !t.sleep(ctx, t.errorRetryInterval) {
				return
			}
			continue
		}
		if refreshed > 0 {
			t.logger.Debug("jobs refreshed",
				logging.Int("count", refreshed),
				logging.String(logging.FieldEventType, "jobs_refreshed"),
			)
		}
		if !t.sleep(ctx, t.pollInterval) {
			return
		}
	}
}

func (t *Tracker) sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}

// SyncOnce refreshes every non-terminal cluster job once and returns the
// number of jobs whose status changed.
func (t *Tracker) SyncOnce(ctx context.Context) (int, error) {
	active, err := t.store.Active(ctx)
	if err != nil {
		return 0, err
	}

	changed := 0
	for _, job := range active {
		if job.Kind != jobs.KindTraining || job.NGCJobID == "" {
			continue
		}
		select {
		case <-ctx.Done():
			return changed, ctx.Err()
		default:
		}

		info, err := t.client.JobInfo(ctx, job.NGCJobID)
		if err != nil {
			t.logger.Warn("job status query failed",
				logging.String("ngc_job_id", job.NGCJobID),
				logging.Error(err),
				logging.String(logging.FieldEventType, "status_query_failed"),
			)
			continue
		}
		if info.Status == "" {
			continue
		}

		beforeStatus, beforeRaw := job.Status, job.NGCStatus
		job.ApplyNGCStatus(info.Status, time.Now())
		if job.Status == beforeStatus && job.NGCStatus == beforeRaw {
			continue
		}
		if err := t.store.Update(ctx, job); err != nil {
			return changed, err
		}
		changed++
		t.logger.Info("job status updated",
			logging.String("run_name", job.RunName),
			logging.String("ngc_job_id", job.NGCJobID),
			logging.String("status", string(job.Status)),
			logging.String(logging.FieldEventType, "job_status_updated"),
		)
	}
	return changed, nil
}

// Watch polls a single job until it reaches a terminal state or the
// context is canceled, invoking onUpdate after each refresh.
func (t *Tracker) Watch(ctx context.Context, jobID int64, onUpdate func(*jobs.Job)) (*jobs.Job, error) {
	for {
		job, err := t.store.GetByID(ctx, jobID)
		if err != nil {
			return nil, err
		}
		if job == nil {
			return nil, errors.New("job not found")
		}

		if job.NGCJobID != "" && !job.IsTerminal() {
			info, err := t.client.JobInfo(ctx, job.NGCJobID)
			if err == nil && info.Status != "" {
				beforeStatus, beforeRaw := job.Status, job.NGCStatus
				job.ApplyNGCStatus(info.Status, time.Now())
				if job.Status != beforeStatus || job.NGCStatus != beforeRaw {
					if err := t.store.Update(ctx, job); err != nil {
						return nil, err
					}
				}
			}
		}

		if onUpdate != nil {
			onUpdate(job)
		}
		if job.IsTerminal() {
			return job, nil
		}
		if !t.sleep(ctx, t.pollInterval) {
			return job, ctx.Err()
		}
	}
}
