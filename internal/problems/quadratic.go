package problems

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/cwbudde/bfgsmin/internal/bfgs"
)

// quadraticObjective is f(x) = 0.5*x'Ax - b'x with gradient Ax - b.
// A must be symmetric; it is positive definite for a convex instance.
type quadraticObjective struct {
	a *mat.SymDense
	b []float64
}

// NewQuadratic builds a quadratic objective from the rows of a symmetric
// matrix A and a vector b. The minimizer of a convex instance is the
// solution of Ax = b. Panics if the rows are ragged or b does not match.
func NewQuadratic(rows [][]float64, b []float64) bfgs.Objective {
	d := len(b)
	if len(rows) != d {
		panic(fmt.Sprintf("quadratic: %d rows for dimension %d", len(rows), d))
	}
	a := mat.NewSymDense(d, nil)
	for i, row := range rows {
		if len(row) != d {
			panic(fmt.Sprintf("quadratic: row %d has %d entries, want %d", i, len(row), d))
		}
		for j := i; j < d; j++ {
			a.SetSym(i, j, row[j])
		}
	}
	return &quadraticObjective{a: a, b: append([]float64(nil), b...)}
}

func (q *quadraticObjective) Evaluate(x []float64) float64 {
	d := len(q.b)
	ax := mat.NewVecDense(d, nil)
	ax.MulVec(q.a, mat.NewVecDense(d, x))

	var f float64
	for i := 0; i < d; i++ {
		f += 0.5*x[i]*ax.AtVec(i) - q.b[i]*x[i]
	}
	return f
}

func (q *quadraticObjective) EvaluateWithGradient(x []float64) (float64, []float64) {
	d := len(q.b)
	g := make([]float64, d)
	gv := mat.NewVecDense(d, g)
	gv.MulVec(q.a, mat.NewVecDense(d, x))

	var f float64
	for i := 0; i < d; i++ {
		f += 0.5*x[i]*g[i] - q.b[i]*x[i]
		g[i] -= q.b[i]
	}
	return f, g
}
