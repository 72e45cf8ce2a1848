package tracker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"nemoctl/internal/jobs"
	"nemoctl/internal/logging"
	"nemoctl/internal/services/ngc"
	"nemoctl/internal/testsupport"
	"nemoctl/internal/tracker"
)

type fakeStatusClient struct {
	mu       sync.Mutex
	statuses map[string][]string
	errs     map[string]error
	calls    map[string]int
}

func newFakeStatusClient() *fakeStatusClient {
	return &fakeStatusClient{
		statuses: make(map[string][]string),
		errs:     make(map[string]error),
		calls:    make(map[string]int),
	}
}

func (f *fakeStatusClient) JobInfo(_ context.Context, id string) (ngc.JobInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[id]++
	if err, ok := f.errs[id]; ok {
		return ngc.JobInfo{}, err
	}
	seq := f.statuses[id]
	if len(seq) == 0 {
		return ngc.JobInfo{ID: id}, nil
	}
	status := seq[0]
	if len(seq) > 1 {
		f.statuses[id] = seq[1:]
	}
	return ngc.JobInfo{ID: id, Status: status}, nil
}

func TestSyncOnceAdvancesJobLifecycle(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	client := newFakeStatusClient()
	client.statuses["100"] = []string{"RUNNING"}
	client.statuses["200"] = []string{"FINISHED_SUCCESS"}

	tr, err := tracker.New(cfg, store, client, logging.NewNop())
	if err != nil {
		t.Fatalf("tracker.New: %v", err)
	}

	ctx := context.Background()
	testsupport.NewJob(t, store, "run-a", "100")
	testsupport.NewJob(t, store, "run-b", "200")

	changed, err := tr.SyncOnce(ctx)
	if err != nil {
		t.Fatalf("SyncOnce: %v", err)
	}
	if changed != 2 {
		t.Fatalf("expected 2 changed jobs, got %d", changed)
	}

	active, err := store.Active(ctx)
	if err != nil {
		t.Fatalf("Active: %v", err)
	}
	if len(active) != 1 || active[0].Status != jobs.StatusRunning {
		t.Fatalf("expected one running job, got %#v", active)
	}
}

func TestSyncOnceSkipsTerminalAndLocalJobs(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	client := newFakeStatusClient()

	tr, err := tracker.New(cfg, store, client, logging.NewNop())
	if err != nil {
		t.Fatalf("tracker.New: %v", err)
	}

	ctx := context.Background()
	done := testsupport.NewJob(t, store, "done", "300")
	done.ApplyNGCStatus("FINISHED_SUCCESS", time.Now())
	if err := store.Update(ctx, done); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if _, err := store.Record(ctx, "local-infer", "", jobs.KindInference); err != nil {
		t.Fatalf("Record: %v", err)
	}

	if _, err := tr.SyncOnce(ctx); err != nil {
		t.Fatalf("SyncOnce: %v", err)
	}
	if client.calls["300"] != 0 {
		t.Fatal("terminal job should not be queried")
	}
	if len(client.calls) != 0 {
		t.Fatalf("expected no cluster queries, got %#v", client.calls)
	}
}

func TestSyncOnceStableAcrossStatusCase(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	client := newFakeStatusClient()
	client.statuses["700"] = []string{"running"}

	tr, err := tracker.New(cfg, store, client, logging.NewNop())
	if err != nil {
		t.Fatalf("tracker.New: %v", err)
	}

	ctx := context.Background()
	testsupport.NewJob(t, store, "lowercase", "700")

	changed, err := tr.SyncOnce(ctx)
	if err != nil {
		t.Fatalf("SyncOnce: %v", err)
	}
	if changed != 1 {
		t.Fatalf("expected 1 changed job on first sync, got %d", changed)
	}

	changed, err = tr.SyncOnce(ctx)
	if err != nil {
		t.Fatalf("SyncOnce: %v", err)
	}
	if changed != 0 {
		t.Fatalf("unchanged lowercase status should not rewrite the row, got %d changes", changed)
	}
}

func TestSyncOnceContinuesPastQueryErrors(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	client := newFakeStatusClient()
	client.errs["400"] = errors.New("ngc unavailable")
	client.statuses["500"] = []string{"RUNNING"}

	tr, err := tracker.New(cfg, store, client, logging.NewNop())
	if err != nil {
		t.Fatalf("tracker.New: %v", err)
	}

	ctx := context.Background()
	testsupport.NewJob(t, store, "bad", "400")
	good := testsupport.NewJob(t, store, "good", "500")

	changed, err := tr.SyncOnce(ctx)
	if err != nil {
		t.Fatalf("SyncOnce: %v", err)
	}
	if changed != 1 {
		t.Fatalf("expected 1 changed job, got %d", changed)
	}

	fetched, err := store.GetByID(ctx, good.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if fetched.Status != jobs.StatusRunning {
		t.Fatalf("expected running, got %q", fetched.Status)
	}
}

func TestWatchStopsAtTerminalState(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Workflow.PollInterval = 0
	store := testsupport.MustOpenStore(t, cfg)
	client := newFakeStatusClient()
	client.statuses["600"] = []string{"QUEUED", "RUNNING", "FINISHED_SUCCESS"}

	tr, err := tracker.New(cfg, store, client, logging.NewNop())
	if err != nil {
		t.Fatalf("tracker.New: %v", err)
	}

	job := testsupport.NewJob(t, store, "watched", "600")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var seen []jobs.Status
	final, err := tr.Watch(ctx, job.ID, func(j *jobs.Job) {
		seen = append(seen, j.Status)
	})
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	if final.Status != jobs.StatusFinished {
		t.Fatalf("expected finished, got %q", final.Status)
	}
	if len(seen) < 3 {
		t.Fatalf("expected at least 3 updates, got %v", seen)
	}
}

func TestStartStop(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Workflow.PollInterval = 1
	store := testsupport.MustOpenStore(t, cfg)
	client := newFakeStatusClient()

	tr, err := tracker.New(cfg, store, client, logging.NewNop())
	if err != nil {
		t.Fatalf("tracker.New: %v", err)
	}

	ctx := context.Background()
	if err := tr.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := tr.Start(ctx); err == nil {
		t.Fatal("expected error starting twice")
	}
	tr.Stop()
	tr.Stop()
}
