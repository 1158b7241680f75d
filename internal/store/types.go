package store

import (
	"strconv"
	"time"
)

// RunConfig holds the configuration of a solve run. It mirrors the solver
// options plus the problem selection, kept as a plain serializable struct
// so the server and CLI can share it without import cycles. The objective
// is either a named built-in problem or an inline quadratic; Problem may
// be empty when Quadratic is set.
type RunConfig struct {
	Problem   string         `json:"problem,omitempty"`
	Quadratic *QuadraticSpec `json:"quadratic,omitempty"`
	X0        []float64      `json:"x0,omitempty"`
	MaxIter   int            `json:"maxiter"`
	TolX      float64        `json:"tolx"`
	TolFun    float64        `json:"tolfun"`
	Backtrack float64        `json:"backtrack"`
}

// QuadraticSpec describes an inline quadratic objective
// f(x) = 0.5*x'Ax - b'x submitted with a job instead of a problem name.
// A is given by rows and must be symmetric.
type QuadraticSpec struct {
	A [][]float64 `json:"a"`
	B []float64   `json:"b"`
}

// Validate checks the spec for shape errors before any solve is started.
func (q *QuadraticSpec) Validate() error {
	d := len(q.B)
	if d == 0 {
		return &ValidationError{Field: "quadratic.b", Reason: "cannot be empty"}
	}
	if len(q.A) != d {
		return &ValidationError{Field: "quadratic.a", Reason: "row count must match len(b)"}
	}
	for i, row := range q.A {
		if len(row) != d {
			return &ValidationError{
				Field:  "quadratic.a",
				Reason: "row " + strconv.Itoa(i) + " length must match len(b)",
			}
		}
	}
	for i := range q.A {
		for j := i + 1; j < d; j++ {
			if q.A[i][j] != q.A[j][i] {
				return &ValidationError{Field: "quadratic.a", Reason: "matrix must be symmetric"}
			}
		}
	}
	return nil
}

// ProblemLabel returns the problem name, or a placeholder for runs that
// submitted an inline quadratic instead of a named problem.
func (c *RunConfig) ProblemLabel() string {
	if c.Problem != "" {
		return c.Problem
	}
	if c.Quadratic != nil {
		return "quadratic (inline)"
	}
	return ""
}

// SolveRecord is the persisted outcome of one solve run.
type SolveRecord struct {
	// RunID is the unique identifier of the run.
	RunID string `json:"runId"`

	// Config is the configuration the run was started with.
	Config RunConfig `json:"config"`

	// X is the final parameter vector.
	X []float64 `json:"x"`

	// Value is the objective value at X.
	Value float64 `json:"value"`

	// Status is the numeric exit status (0 not converged, 1 converged,
	// 2 step underflow) and StatusText its name.
	Status     int    `json:"status"`
	StatusText string `json:"statusText"`

	// Iterations is the number of outer iterations performed.
	Iterations int `json:"iterations"`

	// StartTime and EndTime bracket the run.
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`
}

// RunInfo contains run metadata without the parameter vector, used for
// listing runs cheaply.
type RunInfo struct {
	RunID      string    `json:"runId"`
	Problem    string    `json:"problem"`
	Value      float64   `json:"value"`
	Status     int       `json:"status"`
	StatusText string    `json:"statusText"`
	Iterations int       `json:"iterations"`
	EndTime    time.Time `json:"endTime"`
}

// ToInfo converts a full SolveRecord to its listing metadata.
func (r *SolveRecord) ToInfo() RunInfo {
	return RunInfo{
		RunID:      r.RunID,
		Problem:    r.Config.ProblemLabel(),
		Value:      r.Value,
		Status:     r.Status,
		StatusText: r.StatusText,
		Iterations: r.Iterations,
		EndTime:    r.EndTime,
	}
}

// Validate checks that the record carries the fields every consumer relies on.
func (r *SolveRecord) Validate() error {
	if r.RunID == "" {
		return &ValidationError{Field: "RunID", Reason: "cannot be empty"}
	}
	if len(r.X) == 0 {
		return &ValidationError{Field: "X", Reason: "cannot be empty"}
	}
	if r.Status < 0 || r.Status > 2 {
		return &ValidationError{Field: "Status", Reason: "must be 0, 1 or 2"}
	}
	if r.Iterations < 0 {
		return &ValidationError{Field: "Iterations", Reason: "cannot be negative"}
	}
	if r.Config.Problem == "" && r.Config.Quadratic == nil {
		return &ValidationError{Field: "Config.Problem", Reason: "cannot be empty"}
	}
	return nil
}

// ValidationError represents a record validation error.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation error: " + e.Field + " " + e.Reason
}
