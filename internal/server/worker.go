package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cwbudde/bfgsmin/internal/bfgs"
	"github.com/cwbudde/bfgsmin/internal/problems"
	"github.com/cwbudde/bfgsmin/internal/store"
)

// runJob executes a solve job in the background. If recordStore is not
// nil, the per-iteration trace and the final record are persisted there.
func runJob(ctx context.Context, jm *JobManager, recordStore store.Store, baseDir, jobID string) error {
	defer jm.ClearCancel(jobID)

	job, exists := jm.GetJob(jobID)
	if !exists {
		return fmt.Errorf("job not found: %s", jobID)
	}

	err := jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateRunning
	})
	if err != nil {
		return err
	}

	slog.Info("Starting job", "job_id", jobID, "problem", job.Config.ProblemLabel())

	objective, dim, defaultX0, err := resolveObjective(job.Config)
	if err != nil {
		markJobFailed(jm, jobID, err)
		return err
	}

	x0 := defaultX0
	if len(job.Config.X0) > 0 {
		if len(job.Config.X0) != dim {
			err := fmt.Errorf("x0 has %d entries, objective %q needs %d",
				len(job.Config.X0), job.Config.ProblemLabel(), dim)
			markJobFailed(jm, jobID, err)
			return err
		}
		x0 = job.Config.X0
	}

	opts := optionsFromConfig(job.Config)
	if err := opts.Validate(); err != nil {
		markJobFailed(jm, jobID, err)
		return err
	}

	var trace *store.TraceWriter
	if recordStore != nil {
		trace, err = store.NewTraceWriter(baseDir, jobID)
		if err != nil {
			slog.Warn("Trace disabled for job", "job_id", jobID, "error", err)
			trace = nil
		} else {
			defer trace.Close()
		}
	}

	// The observer runs synchronously inside the solve loop: it updates
	// the job, appends to the trace and fans the record out to SSE clients.
	obs := bfgs.ObserverFunc(func(rec bfgs.ProgressRecord) {
		jm.UpdateJob(jobID, func(j *Job) {
			j.Value = rec.Value
			j.Iterations = rec.Iter
		})

		entry := store.NewTraceEntry(rec)
		if trace != nil {
			if err := trace.Write(entry); err != nil {
				slog.Warn("Failed to write trace entry", "job_id", jobID, "error", err)
			}
		}

		jm.broadcaster.Broadcast(ProgressEvent{
			JobID:       jobID,
			State:       StateRunning,
			Iteration:   rec.Iter,
			Value:       rec.Value,
			ValueChange: entry.ValueChange,
			GradNorm:    rec.GradNorm,
			Backtracks:  rec.Backtracks,
			Timestamp:   time.Now(),
		})
	})

	start := time.Now()
	res, err := bfgs.SolveObserved(ctx, objective, x0, opts, obs)
	elapsed := time.Since(start)

	if err != nil {
		if errors.Is(err, context.Canceled) {
			markJobCancelled(jm, jobID)
			return err
		}
		markJobFailed(jm, jobID, err)
		return err
	}

	// Release the cancel function before the job becomes observable as
	// completed, so a cancel request cannot race a finished run.
	jm.ClearCancel(jobID)

	endTime := time.Now()
	err = jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateCompleted
		j.X = res.X
		j.Value = res.Value
		j.Status = int(res.Status)
		j.StatusText = res.Status.String()
		j.Iterations = res.Iters
		j.EndTime = &endTime
	})
	if err != nil {
		return err
	}

	slog.Info("Job completed",
		"job_id", jobID,
		"elapsed", elapsed,
		"status", res.Status.String(),
		"iterations", res.Iters,
		"value", res.Value,
	)

	if recordStore != nil {
		record := &store.SolveRecord{
			RunID:      jobID,
			Config:     job.Config,
			X:          res.X,
			Value:      res.Value,
			Status:     int(res.Status),
			StatusText: res.Status.String(),
			Iterations: res.Iters,
			StartTime:  start,
			EndTime:    endTime,
		}
		if err := recordStore.SaveRecord(jobID, record); err != nil {
			slog.Warn("Failed to persist solve record", "job_id", jobID, "error", err)
		}
	}

	// Final completion event for stream clients
	jm.broadcaster.Broadcast(ProgressEvent{
		JobID:     jobID,
		State:     StateCompleted,
		Iteration: res.Iters,
		Value:     res.Value,
		Timestamp: time.Now(),
	})

	return nil
}

// resolveObjective maps a run configuration to the objective it describes,
// either an inline quadratic or a named built-in problem, together with the
// dimension and a default starting point.
func resolveObjective(config RunConfig) (bfgs.Objective, int, []float64, error) {
	if q := config.Quadratic; q != nil {
		if err := q.Validate(); err != nil {
			return nil, 0, nil, err
		}
		d := len(q.B)
		// Zero start unless the submitter gave one.
		return problems.NewQuadratic(q.A, q.B), d, make([]float64, d), nil
	}

	problem, err := problems.Get(config.Problem)
	if err != nil {
		return nil, 0, nil, err
	}
	return problem.Objective, problem.Dim, problem.X0, nil
}

// optionsFromConfig maps a run configuration onto solver options, filling
// unset fields from the defaults.
func optionsFromConfig(config RunConfig) bfgs.Options {
	opts := bfgs.DefaultOptions()
	if config.MaxIter > 0 {
		opts.MaxIter = config.MaxIter
	}
	if config.TolX > 0 {
		opts.TolX = config.TolX
	}
	if config.TolFun > 0 {
		opts.TolFun = config.TolFun
	}
	if config.Backtrack > 0 {
		opts.Backtrack = config.Backtrack
	}
	return opts
}

// markJobFailed marks a job as failed with an error message
func markJobFailed(jm *JobManager, jobID string, err error) {
	endTime := time.Now()
	jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateFailed
		j.Error = err.Error()
		j.EndTime = &endTime
	})
	slog.Error("Job failed", "job_id", jobID, "error", err)
}

// markJobCancelled marks a job as cancelled
func markJobCancelled(jm *JobManager, jobID string) {
	endTime := time.Now()
	jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateCancelled
		j.EndTime = &endTime
	})
	slog.Info("Job cancelled", "job_id", jobID)
}
