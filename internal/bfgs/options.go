package bfgs

import "fmt"

// Display controls how much progress output a solve produces.
type Display int

const (
	// DisplaySilent produces no output.
	DisplaySilent Display = iota
	// DisplayFinal prints only the terminal exit status.
	DisplayFinal
	// DisplayIter prints a table row for every iteration plus the
	// terminal exit status.
	DisplayIter
)

func (d Display) String() string {
	switch d {
	case DisplaySilent:
		return "silent"
	case DisplayFinal:
		return "final"
	case DisplayIter:
		return "iter"
	}
	return fmt.Sprintf("Display(%d)", int(d))
}

// ParseDisplay converts a config or flag string to a Display level.
func ParseDisplay(s string) (Display, error) {
	switch s {
	case "silent", "":
		return DisplaySilent, nil
	case "final":
		return DisplayFinal, nil
	case "iter":
		return DisplayIter, nil
	}
	return DisplaySilent, fmt.Errorf("unknown display level %q (want silent, final or iter)", s)
}

// Options configures a single solve. The zero value is not usable; start
// from DefaultOptions and override fields as needed.
type Options struct {
	// MaxIter is the hard cap on outer iterations. Zero is allowed and
	// means the solver returns the starting point untouched.
	MaxIter int

	// TolX is the step-size convergence threshold (infinity norm).
	TolX float64

	// TolFun is the objective-value-change convergence threshold.
	TolFun float64

	// Backtrack is the per-trial shrink factor of the line search,
	// strictly between 0 and 1.
	Backtrack float64

	// Display selects the verbosity of console progress reporting.
	Display Display
}

// DefaultOptions returns the validated defaults applied when the caller
// does not specify its own configuration.
func DefaultOptions() Options {
	return Options{
		MaxIter:   400,
		TolX:      1e-6,
		TolFun:    1e-6,
		Backtrack: 0.5,
		Display:   DisplaySilent,
	}
}

// Validate reports the first option outside its allowed range.
func (o Options) Validate() error {
	if o.MaxIter < 0 {
		return fmt.Errorf("maxiter must be non-negative, got %d", o.MaxIter)
	}
	if !(o.TolX > 0) {
		return fmt.Errorf("tolx must be positive, got %g", o.TolX)
	}
	if !(o.TolFun > 0) {
		return fmt.Errorf("tolfun must be positive, got %g", o.TolFun)
	}
	if !(o.Backtrack > 0 && o.Backtrack < 1) {
		return fmt.Errorf("backtrack must be in (0,1), got %g", o.Backtrack)
	}
	if o.Display < DisplaySilent || o.Display > DisplayIter {
		return fmt.Errorf("invalid display level %d", int(o.Display))
	}
	return nil
}
