package domain

import (
	"fmt"
	"time"
)

// JobStatus is the wire-exact status tag for a SyncJob.
type JobStatus string

const (
	JobStatusCreated    JobStatus = "created"
	JobStatusPending    JobStatus = "pending"
	JobStatusRunning    JobStatus = "running"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusCancelling JobStatus = "cancelling"
	JobStatusCancelled  JobStatus = "cancelled"
)

// allowedJobTransitions is the monotone state machine from spec §4.10:
//
//	created → pending → running → completed
//	                        ↓
//	                     failed
//	                        ↓
//	               cancelling → cancelled
//
// Any transition not present here is a fatal state error.
var allowedJobTransitions = map[JobStatus]map[JobStatus]bool{
	JobStatusCreated:    {JobStatusPending: true},
	JobStatusPending:    {JobStatusRunning: true},
	JobStatusRunning:    {JobStatusCompleted: true, JobStatusFailed: true, JobStatusCancelling: true},
	JobStatusCancelling: {JobStatusCancelled: true},
}

// CanTransition reports whether (from, to) is in the allowed transition
// set.
func CanTransition(from, to JobStatus) bool {
	next, ok := allowedJobTransitions[from]
	if !ok {
		return false
	}
	return next[to]
}

// ErrInvalidTransition is returned by SyncJob.Transition for any pair not
// in the allowed set.
type ErrInvalidTransition struct {
	From, To JobStatus
}

func (e ErrInvalidTransition) Error() string {
	return fmt.Sprintf("invalid sync job transition %s -> %s", e.From, e.To)
}

// JobConfig controls destination filtering, handler toggles, and
// behavior flags for one job execution.
type JobConfig struct {
	DestinationSlotIDs  []string
	SkipContentHandlers []string
	SkipHash            bool
	SkipUpdates         bool
	FullSync            bool
}

// JobStats are the per-type counters accumulated by the EntityTracker
// over the course of a job.
type JobStats struct {
	Inserted map[string]int64
	Updated  map[string]int64
	Deleted  map[string]int64
	Kept     map[string]int64
	Skipped  map[string]int64
}

// SyncJob is one execution of a Sync.
type SyncJob struct {
	ID             string
	SyncID         string
	OrganizationID string
	Status         JobStatus
	Config         JobConfig
	Stats          JobStats
	ErrorKind      string
	ErrorMessage   string
	StartedAt      *time.Time
	FinishedAt     *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Transition moves the job to the requested status, or returns
// ErrInvalidTransition if (Status, to) is not in the allowed set.
func (j *SyncJob) Transition(to JobStatus) error {
	if !CanTransition(j.Status, to) {
		return ErrInvalidTransition{From: j.Status, To: to}
	}
	j.Status = to
	return nil
}

// IsTerminal reports whether the job is in one of its terminal states.
func (j SyncJob) IsTerminal() bool {
	switch j.Status {
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	default:
		return false
	}
}

// IsRunning reports whether a job in this status counts as "the" running
// job for its sync, for the scheduler's one-job-at-a-time gate.
func (j SyncJob) IsRunning() bool {
	return j.Status == JobStatusRunning || j.Status == JobStatusCancelling
}
