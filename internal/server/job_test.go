package server

import (
	"context"
	"testing"
)

func TestJobManagerCreateAndGet(t *testing.T) {
	jm := NewJobManager()

	job := jm.CreateJob(RunConfig{Problem: "parabola"})
	if job.ID == "" {
		t.Fatal("Job ID should not be empty")
	}
	if job.State != StatePending {
		t.Errorf("Expected pending state, got %s", job.State)
	}

	got, exists := jm.GetJob(job.ID)
	if !exists {
		t.Fatal("Job not found after creation")
	}
	if got.Config.Problem != "parabola" {
		t.Errorf("Config.Problem = %q, want parabola", got.Config.Problem)
	}
}

func TestJobManagerUniqueIDs(t *testing.T) {
	jm := NewJobManager()

	a := jm.CreateJob(RunConfig{Problem: "sphere"})
	b := jm.CreateJob(RunConfig{Problem: "sphere"})
	if a.ID == b.ID {
		t.Errorf("Jobs share ID %s", a.ID)
	}
	if len(jm.ListJobs()) != 2 {
		t.Errorf("Expected 2 jobs, got %d", len(jm.ListJobs()))
	}
}

func TestJobManagerUpdate(t *testing.T) {
	jm := NewJobManager()
	job := jm.CreateJob(RunConfig{Problem: "sphere"})

	err := jm.UpdateJob(job.ID, func(j *Job) {
		j.State = StateRunning
		j.Iterations = 5
	})
	if err != nil {
		t.Fatalf("UpdateJob failed: %v", err)
	}

	got, _ := jm.GetJob(job.ID)
	if got.State != StateRunning || got.Iterations != 5 {
		t.Errorf("Update not applied: %+v", got)
	}

	if err := jm.UpdateJob("missing", func(j *Job) {}); err == nil {
		t.Error("Expected error for unknown job")
	}
}

func TestJobManagerReturnsCopies(t *testing.T) {
	jm := NewJobManager()
	created := jm.CreateJob(RunConfig{Problem: "sphere"})

	// Writes to a returned job must not reach the stored one.
	created.State = StateFailed
	created.Iterations = 99

	got, _ := jm.GetJob(created.ID)
	if got.State != StatePending || got.Iterations != 0 {
		t.Errorf("Stored job mutated through returned copy: %+v", got)
	}

	jm.UpdateJob(created.ID, func(j *Job) { j.X = []float64{1, 2} })
	got, _ = jm.GetJob(created.ID)
	got.X[0] = 42
	again, _ := jm.GetJob(created.ID)
	if again.X[0] != 1 {
		t.Errorf("Stored X mutated through returned copy: %v", again.X)
	}

	for _, j := range jm.ListJobs() {
		j.State = StateFailed
	}
	got, _ = jm.GetJob(created.ID)
	if got.State != StatePending {
		t.Errorf("Stored job mutated through listing: %s", got.State)
	}
}

func TestJobManagerCancel(t *testing.T) {
	jm := NewJobManager()
	job := jm.CreateJob(RunConfig{Problem: "sphere"})

	ctx, cancel := context.WithCancel(context.Background())
	jm.RegisterCancel(job.ID, cancel)

	if !jm.CancelJob(job.ID) {
		t.Fatal("CancelJob reported no cancelable job")
	}
	select {
	case <-ctx.Done():
	default:
		t.Error("Context not cancelled")
	}

	// Second cancel finds nothing.
	if jm.CancelJob(job.ID) {
		t.Error("Expected second cancel to report false")
	}
}

func TestGetRunningJobs(t *testing.T) {
	jm := NewJobManager()
	a := jm.CreateJob(RunConfig{Problem: "sphere"})
	jm.CreateJob(RunConfig{Problem: "sphere"})

	jm.UpdateJob(a.ID, func(j *Job) { j.State = StateRunning })

	running := jm.GetRunningJobs()
	if len(running) != 1 || running[0].ID != a.ID {
		t.Errorf("GetRunningJobs = %+v, want only %s", running, a.ID)
	}
}
