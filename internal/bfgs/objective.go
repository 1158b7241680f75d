package bfgs

// Objective is the oracle the solver minimizes. Implementations must be
// deterministic and side-effect free: both methods evaluated at the same
// point must return the same value. Line-search trials only need the value,
// so Evaluate is expected to be the cheap path while EvaluateWithGradient
// may be considerably more expensive.
//
// The solver never retains the input slice across calls, and implementations
// must return a gradient slice the solver may keep until the next gradient
// evaluation. Returning NaN or Inf from either method is undefined behavior.
type Objective interface {
	// Evaluate returns the objective value at x.
	Evaluate(x []float64) float64

	// EvaluateWithGradient returns the objective value and its gradient
	// at x. The gradient must have len(x) elements.
	EvaluateWithGradient(x []float64) (float64, []float64)
}

// Func adapts plain functions to the Objective interface. Both F and Grad
// must be set; Solve rejects a Func with a missing field before iterating.
type Func struct {
	F    func(x []float64) float64
	Grad func(x []float64) []float64
}

func (f Func) Evaluate(x []float64) float64 {
	return f.F(x)
}

func (f Func) EvaluateWithGradient(x []float64) (float64, []float64) {
	return f.F(x), f.Grad(x)
}
