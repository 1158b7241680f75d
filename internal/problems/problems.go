// Package problems provides named differentiable test objectives for the
// CLI, the serve mode and benchmarks. Every problem carries an analytic
// gradient; the solver performs no finite differencing.
package problems

import (
	"fmt"
	"sort"

	"github.com/cwbudde/bfgsmin/internal/bfgs"
)

// Problem is a named objective with a suggested starting point.
type Problem struct {
	Name      string
	Dim       int
	X0        []float64
	Objective bfgs.Objective
}

var registry = map[string]Problem{}

func register(p Problem) {
	registry[p.Name] = p
}

// Get returns the problem registered under name.
func Get(name string) (Problem, error) {
	p, ok := registry[name]
	if !ok {
		return Problem{}, fmt.Errorf("unknown problem %q (available: %v)", name, Names())
	}
	return p, nil
}

// Names lists all registered problem names, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func init() {
	register(Problem{
		Name:      "quadratic",
		Dim:       2,
		X0:        []float64{0, 0},
		Objective: NewQuadratic([][]float64{{1, 0}, {0, 1}}, []float64{3, -1}),
	})

	register(Problem{
		Name: "sphere",
		Dim:  3,
		X0:   []float64{2, -3, 4},
		Objective: bfgs.Func{
			F: func(x []float64) float64 {
				var sum float64
				for _, v := range x {
					sum += v * v
				}
				return sum
			},
			Grad: func(x []float64) []float64 {
				g := make([]float64, len(x))
				for i, v := range x {
					g[i] = 2 * v
				}
				return g
			},
		},
	})

	// Rosenbrock valley, the standard ill-conditioned test case.
	// f(x,y) = 100(y-x^2)^2 + (1-x)^2, global minimum at (1,1).
	register(Problem{
		Name: "rosenbrock",
		Dim:  2,
		X0:   []float64{-1.2, 1},
		Objective: bfgs.Func{
			F: func(x []float64) float64 {
				t0 := x[1] - x[0]*x[0]
				t1 := 1 - x[0]
				return 100*t0*t0 + t1*t1
			},
			Grad: func(x []float64) []float64 {
				t0 := x[1] - x[0]*x[0]
				t1 := 1 - x[0]
				return []float64{-400*t0*x[0] - 2*t1, 200 * t0}
			},
		},
	})

	register(Problem{
		Name: "parabola",
		Dim:  1,
		X0:   []float64{0},
		Objective: bfgs.Func{
			F: func(x []float64) float64 {
				d := x[0] - 3
				return d * d
			},
			Grad: func(x []float64) []float64 {
				return []float64{2 * (x[0] - 3)}
			},
		},
	})
}
