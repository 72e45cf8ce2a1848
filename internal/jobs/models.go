package jobs

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a tracked job.
type Status string

const (
	StatusSubmitted Status = "submitted"
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusFinished  Status = "finished"
	StatusFailed    Status = "failed"
	StatusKilled    Status = "killed"
)

// Kind distinguishes cluster training jobs from local inference runs.
type Kind string

const (
	KindTraining  Kind = "training"
	KindInference Kind = "inference"
)

var allStatuses = []Status{
	StatusSubmitted,
	StatusQueued,
	StatusRunning,
	StatusFinished,
	StatusFailed,
	StatusKilled,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

var terminalStatuses = map[Status]struct{}{
	StatusFinished: {},
	StatusFailed:   {},
	StatusKilled:   {},
}

// Job represents one tracked unit of work persisted in SQLite.
type Job struct {
	ID           int64
	RunName      string
	NGCJobID     string
	Kind         Kind
	Status       Status
	NGCStatus    string
	CommandLine  string
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	CompletedAt  *time.Time
}

// HealthSummary describes aggregated job counts per key lifecycle states.
type HealthSummary struct {
	Total    int
	Waiting  int
	Running  int
	Finished int
	Failed   int
	Killed   int
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsTerminal reports whether the job has reached a final state.
func (j Job) IsTerminal() bool {
	return IsTerminalStatus(j.Status)
}

// IsTerminalStatus reports whether a status is final.
func IsTerminalStatus(status Status) bool {
	_, ok := terminalStatuses[status]
	return ok
}

// StatusFromNGC maps an NGC batch job state onto the local lifecycle.
// Unknown states leave submitted jobs queued rather than guessing.
func StatusFromNGC(ngcStatus string) Status {
	switch strings.ToUpper(strings.TrimSpace(ngcStatus)) {
	case "CREATED", "QUEUED", "STARTING", "PENDING", "PREEMPTED", "RESUMING":
		return StatusQueued
	case "RUNNING":
		return StatusRunning
	case "FINISHED_SUCCESS":
		return StatusFinished
	case "FAILED", "FAILED_RUN_LIMIT_EXCEEDED", "TASK_LOST", "INFINITY_POOL_MISSING":
		return StatusFailed
	case "KILLED_BY_USER", "KILLED_BY_ADMIN", "KILLED_BY_SYSTEM", "CANCELED":
		return StatusKilled
	default:
		return StatusQueued
	}
}

// ApplyNGCStatus records the raw cluster state and advances the local status.
// Completion time is stamped the first time a terminal state is observed.
func (j *Job) ApplyNGCStatus(ngcStatus string, now time.Time) {
	j.NGCStatus = strings.ToUpper(strings.TrimSpace(ngcStatus))
	j.Status = StatusFromNGC(ngcStatus)
	if j.IsTerminal() && j.CompletedAt == nil {
		ts := now.UTC()
		j.CompletedAt = &ts
	}
}

// SetFailed marks the job as failed with the given error message.
func (j *Job) SetFailed(message string, now time.Time) {
	j.Status = StatusFailed
	j.ErrorMessage = message
	if j.CompletedAt == nil {
		ts := now.UTC()
		j.CompletedAt = &ts
	}
}
