package testsupport

import (
	"context"
	"testing"

	"nemoctl/internal/config"
	"nemoctl/internal/jobs"
)

// MustOpenStore opens a jobs.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *jobs.Store {
	t.Helper()

	store, err := jobs.Open(cfg)
	if err != nil {
		t.Fatalf("jobs.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewJob records a submitted training job for tests using the provided store.
func NewJob(t testing.TB, store *jobs.Store, runName, ngcJobID string) *jobs.Job {
	t.Helper()

	job, err := store.Record(context.Background(), runName, ngcJobID, jobs.KindTraining)
	if err != nil {
		t.Fatalf("store.Record: %v", err)
	}
	return job
}
