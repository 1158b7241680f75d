// Package bfgs implements an unconstrained minimizer for smooth
// differentiable functions using the BFGS quasi-Newton method with a
// backtracking line search.
//
// The solver maintains a dense approximation H of the objective's Hessian
// (not its inverse), obtains a Newton-like direction by solving H·p = g,
// accepts steps by geometric backtracking on the objective value, and
// refreshes H with the direct secant (BFGS) update after every accepted
// step. All solve state is local to one call; concurrent solves are safe
// as long as the objective itself is reentrant.
package bfgs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// stepFloor is the smallest line-search scale tried before the search
// gives up and the solve terminates with StepUnderflow.
const stepFloor = 1e-12

// ErrInvalidObjective is returned when the supplied objective cannot be
// evaluated as required, before any iteration is performed.
var ErrInvalidObjective = errors.New("objective is not evaluable")

// Result is the outcome of a solve. X and Value describe the last accepted
// point, which is the starting point when no iteration improved on it.
type Result struct {
	// X is the final parameter vector.
	X []float64
	// Value is the objective value at X.
	Value float64
	// Status is the terminal reason code.
	Status ExitStatus
	// Iters is the number of outer iterations performed.
	Iters int
	// ValueEvals counts value-only oracle evaluations (line-search trials).
	ValueEvals int
	// GradEvals counts value-and-gradient oracle evaluations.
	GradEvals int
}

// Solve minimizes obj starting from x0. Progress output is controlled by
// opts.Display and written to stdout.
//
// An iterate whose gradient is exactly zero is reported as Converged
// immediately rather than running the line search, which could only
// underflow at a stationary point. Objectives returning NaN or Inf are
// undefined behavior; see Objective.
func Solve(obj Objective, x0 []float64, opts Options) (Result, error) {
	return SolveContext(context.Background(), obj, x0, opts)
}

// SolveContext is Solve with cooperative cancellation. The context is
// checked once per iteration; on cancellation the last accepted point is
// returned together with the context error.
func SolveContext(ctx context.Context, obj Objective, x0 []float64, opts Options) (Result, error) {
	console := &ConsoleObserver{W: os.Stdout}
	var obs Observer
	if opts.Display >= DisplayIter {
		obs = console
	}
	res, err := SolveObserved(ctx, obj, x0, opts, obs)
	if err == nil && opts.Display >= DisplayFinal {
		console.Summary(res.Status)
	}
	return res, err
}

// SolveObserved runs the solver with an injected observer instead of the
// console reporting selected by opts.Display. A nil observer disables
// progress notification entirely.
func SolveObserved(ctx context.Context, obj Objective, x0 []float64, opts Options, obs Observer) (Result, error) {
	if err := checkObjective(obj); err != nil {
		return Result{}, err
	}
	if len(x0) == 0 {
		return Result{}, fmt.Errorf("starting point must have dimension >= 1")
	}
	for i, v := range x0 {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Result{}, fmt.Errorf("starting point component %d is not finite: %g", i, v)
		}
	}
	if err := opts.Validate(); err != nil {
		return Result{}, fmt.Errorf("invalid options: %w", err)
	}

	d := len(x0)
	x := append([]float64(nil), x0...)
	value, g := obj.EvaluateWithGradient(x)

	res := Result{GradEvals: 1}
	h := identity(d)
	status := NotConverged

	emit(obs, ProgressRecord{
		Iter:        0,
		Value:       value,
		ValueChange: math.NaN(),
		GradNorm:    floats.Norm(g, math.Inf(1)),
	})

	xPrev := make([]float64, d)
	gPrev := make([]float64, d)
	p := make([]float64, d)
	cx := make([]float64, d)

	iters := 0
	for status == NotConverged && iters < opts.MaxIter {
		if err := ctx.Err(); err != nil {
			res.X, res.Value, res.Status, res.Iters = x, value, status, iters
			return res, err
		}

		iters++
		copy(xPrev, x)
		copy(gPrev, g)
		valuePrev := value

		// An exactly stationary point admits no descent direction; the
		// line search below could only underflow. Stop here instead.
		if floats.Norm(g, math.Inf(1)) == 0 {
			status = Converged
			emit(obs, ProgressRecord{Iter: iters, Value: value, ValueChange: 0, GradNorm: 0})
			break
		}

		solveDirection(h, g, p, d)

		// Full Newton-like step.
		for i := range cx {
			cx[i] = x[i] - p[i]
		}
		cvalue, cgrad := obj.EvaluateWithGradient(cx)
		res.GradEvals++

		backtracks := 0
		if cvalue < value {
			copy(x, cx)
			value = cvalue
			g = cgrad
		} else {
			// Geometric backtracking with value-only trials; the
			// gradient is only computed once a trial is accepted.
			eta := 1.0
			for cvalue >= value && eta > stepFloor {
				backtracks++
				eta *= opts.Backtrack
				for i := range cx {
					cx[i] = x[i] - eta*p[i]
				}
				cvalue = obj.Evaluate(cx)
				res.ValueEvals++
			}
			if cvalue < value {
				copy(x, cx)
				value = cvalue
				// The trial value is reused; the oracle contract
				// guarantees a repeat evaluation would agree.
				_, g = obj.EvaluateWithGradient(x)
				res.GradEvals++
			} else {
				status = StepUnderflow
				slog.Debug("line search underflow", "iter", iters, "value", value, "backtracks", backtracks)
			}
		}

		if status == NotConverged {
			updateHessian(h, x, xPrev, g, gPrev)
			if math.Abs(value-valuePrev) < opts.TolFun &&
				floats.Distance(x, xPrev, math.Inf(1)) < opts.TolX {
				status = Converged
			}
		}

		emit(obs, ProgressRecord{
			Iter:        iters,
			Value:       value,
			ValueChange: value - valuePrev,
			GradNorm:    floats.Norm(g, math.Inf(1)),
			Backtracks:  backtracks,
		})
	}

	res.X, res.Value, res.Status, res.Iters = x, value, status, iters
	slog.Debug("solve finished",
		"status", status.String(),
		"iters", iters,
		"value", value,
		"grad_evals", res.GradEvals,
		"value_evals", res.ValueEvals,
	)
	return res, nil
}

// checkObjective rejects oracles that cannot be invoked in both modes.
func checkObjective(obj Objective) error {
	if obj == nil {
		return fmt.Errorf("%w: objective is nil", ErrInvalidObjective)
	}
	if fn, ok := obj.(Func); ok {
		if fn.F == nil {
			return fmt.Errorf("%w: Func.F is nil", ErrInvalidObjective)
		}
		if fn.Grad == nil {
			return fmt.Errorf("%w: Func.Grad is nil", ErrInvalidObjective)
		}
	}
	return nil
}

func emit(obs Observer, rec ProgressRecord) {
	if obs != nil {
		obs.Observe(rec)
	}
}

// solveDirection computes p from H·p = g via a Cholesky factorization.
// The update safeguard keeps H positive definite, so the factorization is
// expected to succeed; if rounding still destroys definiteness, H is reset
// to the identity and the direction falls back to steepest descent.
func solveDirection(h *mat.SymDense, g, p []float64, d int) {
	var chol mat.Cholesky
	if !chol.Factorize(h) {
		slog.Debug("curvature matrix lost definiteness, resetting to identity")
		reset := identity(d)
		h.CopySym(reset)
		copy(p, g)
		return
	}
	pv := mat.NewVecDense(d, p)
	if err := chol.SolveVecTo(pv, mat.NewVecDense(d, g)); err != nil {
		reset := identity(d)
		h.CopySym(reset)
		copy(p, g)
	}
}

// updateHessian applies the direct secant update
//
//	H ← H + (y·yᵀ)/(yᵀ·dx) − (H·dx)(H·dx)ᵀ/(dxᵀ·H·dx)
//
// with dx = x − xPrev and y = g − gPrev. The update is skipped when the
// curvature condition yᵀ·dx > 0 fails or either denominator is not a
// positive finite number, which keeps H positive definite on non-convex
// objectives. It reports whether the update was applied.
func updateHessian(h *mat.SymDense, x, xPrev, g, gPrev []float64) bool {
	d := len(x)
	dx := make([]float64, d)
	y := make([]float64, d)
	for i := range dx {
		dx[i] = x[i] - xPrev[i]
		y[i] = g[i] - gPrev[i]
	}

	yTdx := floats.Dot(y, dx)

	hdx := make([]float64, d)
	hdxVec := mat.NewVecDense(d, hdx)
	hdxVec.MulVec(h, mat.NewVecDense(d, dx))
	dxHdx := floats.Dot(dx, hdx)

	if !(yTdx > 0) || !(dxHdx > 0) || math.IsInf(yTdx, 0) || math.IsInf(dxHdx, 0) {
		slog.Debug("secant update skipped", "y_dx", yTdx, "dx_h_dx", dxHdx)
		return false
	}

	h.SymRankOne(h, 1/yTdx, mat.NewVecDense(d, y))
	h.SymRankOne(h, -1/dxHdx, hdxVec)
	return true
}

func identity(d int) *mat.SymDense {
	h := mat.NewSymDense(d, nil)
	for i := 0; i < d; i++ {
		h.SetSym(i, i, 1)
	}
	return h
}
