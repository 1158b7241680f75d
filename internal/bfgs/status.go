package bfgs

// ExitStatus is the terminal reason code of a solve. It is set exactly once
// per run; NotConverged at exit means the iteration budget ran out, which is
// a normal outcome rather than an error.
type ExitStatus int

const (
	// NotConverged means the iteration budget was exhausted before the
	// convergence test was satisfied.
	NotConverged ExitStatus = iota
	// Converged means both the value-change and step-size tolerances
	// were satisfied simultaneously.
	Converged
	// StepUnderflow means the line search could not find any step scale
	// above the floor that decreases the objective.
	StepUnderflow
)

func (s ExitStatus) String() string {
	switch s {
	case NotConverged:
		return "NotConverged"
	case Converged:
		return "Converged"
	case StepUnderflow:
		return "StepUnderflow"
	}
	return "UnknownStatus"
}
