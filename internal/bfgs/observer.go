package bfgs

import (
	"fmt"
	"io"
)

// ProgressRecord describes the state of the solver after one iteration.
// Iteration 0 is the initial point, before any step has been taken.
type ProgressRecord struct {
	// Iter is the iteration index, starting at 0 for the initial point.
	Iter int `json:"iter"`

	// Value is the objective value at the current point.
	Value float64 `json:"value"`

	// ValueChange is Value minus the previous iteration's value.
	// It is NaN for iteration 0.
	ValueChange float64 `json:"valueChange"`

	// GradNorm is the infinity norm of the current gradient.
	GradNorm float64 `json:"gradNorm"`

	// Backtracks counts the line-search shrink steps taken this iteration.
	Backtracks int `json:"backtracks"`
}

// Observer receives one ProgressRecord per solver iteration. Observers are
// called synchronously from the solve loop and should return quickly.
type Observer interface {
	Observe(rec ProgressRecord)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(rec ProgressRecord)

func (f ObserverFunc) Observe(rec ProgressRecord) { f(rec) }

// ConsoleObserver renders progress records as a fixed-width table. The
// header is printed before the first row.
type ConsoleObserver struct {
	W io.Writer

	headerDone bool
}

func (c *ConsoleObserver) Observe(rec ProgressRecord) {
	if !c.headerDone {
		fmt.Fprintf(c.W, "%8s %16s %16s %16s %12s\n",
			"Iters", "Fval", "Fval.ch", "1st-ord norm", "backtracks")
		c.headerDone = true
	}
	fmt.Fprintf(c.W, "%8d %16.6e %16.6e %16.6e %12d\n",
		rec.Iter, rec.Value, rec.ValueChange, rec.GradNorm, rec.Backtracks)
}

// Summary prints the terminal exit status line.
func (c *ConsoleObserver) Summary(status ExitStatus) {
	fmt.Fprintf(c.W, "Exit status: %d (%s)\n", int(status), status)
}
