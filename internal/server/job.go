package server

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cwbudde/bfgsmin/internal/store"
)

// JobState represents the current state of a job
type JobState string

const (
	StatePending   JobState = "pending"
	StateRunning   JobState = "running"
	StateCompleted JobState = "completed"
	StateFailed    JobState = "failed"
	StateCancelled JobState = "cancelled"
)

// RunConfig is an alias to avoid duplication with store.RunConfig
type RunConfig = store.RunConfig

// Job represents one solve run owned by the server. The manager hands out
// copies; all mutation goes through UpdateJob under the manager lock.
type Job struct {
	ID         string     `json:"id"`
	State      JobState   `json:"state"`
	Config     RunConfig  `json:"config"`
	X          []float64  `json:"x,omitempty"`
	Value      float64    `json:"value"`
	Status     int        `json:"status"`
	StatusText string     `json:"statusText,omitempty"`
	Iterations int        `json:"iterations"`
	StartTime  time.Time  `json:"startTime"`
	EndTime    *time.Time `json:"endTime,omitempty"`
	Error      string     `json:"error,omitempty"`
}

// snapshot returns a deep copy safe to read after the manager lock is
// released, while the worker keeps mutating the stored job.
func (j *Job) snapshot() *Job {
	c := *j
	if j.X != nil {
		c.X = append([]float64(nil), j.X...)
	}
	if j.EndTime != nil {
		t := *j.EndTime
		c.EndTime = &t
	}
	return &c
}

// JobManager manages the lifecycle of jobs
type JobManager struct {
	mu          sync.RWMutex
	jobs        map[string]*Job
	cancels     map[string]context.CancelFunc
	broadcaster *EventBroadcaster
}

// NewJobManager creates a new JobManager
func NewJobManager() *JobManager {
	return &JobManager{
		jobs:        make(map[string]*Job),
		cancels:     make(map[string]context.CancelFunc),
		broadcaster: NewEventBroadcaster(),
	}
}

// CreateJob creates a new job with the given configuration
func (jm *JobManager) CreateJob(config RunConfig) *Job {
	jm.mu.Lock()
	defer jm.mu.Unlock()

	job := &Job{
		ID:        uuid.New().String(),
		State:     StatePending,
		Config:    config,
		StartTime: time.Now(),
	}

	jm.jobs[job.ID] = job
	return job.snapshot()
}

// GetJob retrieves a copy of a job by ID.
func (jm *JobManager) GetJob(id string) (*Job, bool) {
	jm.mu.RLock()
	defer jm.mu.RUnlock()

	job, exists := jm.jobs[id]
	if !exists {
		return nil, false
	}
	return job.snapshot(), true
}

// ListJobs returns copies of all jobs.
func (jm *JobManager) ListJobs() []*Job {
	jm.mu.RLock()
	defer jm.mu.RUnlock()

	jobs := make([]*Job, 0, len(jm.jobs))
	for _, job := range jm.jobs {
		jobs = append(jobs, job.snapshot())
	}
	return jobs
}

// UpdateJob atomically updates a job using the provided function
func (jm *JobManager) UpdateJob(id string, updateFn func(*Job)) error {
	jm.mu.Lock()
	defer jm.mu.Unlock()

	job, exists := jm.jobs[id]
	if !exists {
		return fmt.Errorf("job not found: %s", id)
	}

	updateFn(job)
	return nil
}

// RegisterCancel associates a cancel function with a running job.
func (jm *JobManager) RegisterCancel(id string, cancel context.CancelFunc) {
	jm.mu.Lock()
	defer jm.mu.Unlock()
	jm.cancels[id] = cancel
}

// CancelJob cancels a running job. It reports whether a cancelable job
// with this ID existed.
func (jm *JobManager) CancelJob(id string) bool {
	jm.mu.Lock()
	cancel, exists := jm.cancels[id]
	if exists {
		delete(jm.cancels, id)
	}
	jm.mu.Unlock()

	if exists {
		cancel()
	}
	return exists
}

// ClearCancel releases the cancel function of a finished job. Safe to call
// for jobs that were never registered or already cancelled.
func (jm *JobManager) ClearCancel(id string) {
	jm.mu.Lock()
	cancel, exists := jm.cancels[id]
	if exists {
		delete(jm.cancels, id)
	}
	jm.mu.Unlock()

	if exists {
		cancel()
	}
}

// GetRunningJobs returns copies of all jobs currently in the running state.
func (jm *JobManager) GetRunningJobs() []*Job {
	jm.mu.RLock()
	defer jm.mu.RUnlock()

	runningJobs := make([]*Job, 0)
	for _, job := range jm.jobs {
		if job.State == StateRunning {
			runningJobs = append(runningJobs, job.snapshot())
		}
	}
	return runningJobs
}
