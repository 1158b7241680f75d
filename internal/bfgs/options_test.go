package bfgs

import "testing"

func TestDefaultOptionsValid(t *testing.T) {
	if err := DefaultOptions().Validate(); err != nil {
		t.Fatalf("Default options failed validation: %v", err)
	}
}

func TestOptionsValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Options)
		ok     bool
	}{
		{"defaults", func(o *Options) {}, true},
		{"zero maxiter", func(o *Options) { o.MaxIter = 0 }, true},
		{"negative maxiter", func(o *Options) { o.MaxIter = -1 }, false},
		{"zero tolx", func(o *Options) { o.TolX = 0 }, false},
		{"negative tolfun", func(o *Options) { o.TolFun = -1e-6 }, false},
		{"backtrack zero", func(o *Options) { o.Backtrack = 0 }, false},
		{"backtrack one", func(o *Options) { o.Backtrack = 1 }, false},
		{"display out of range", func(o *Options) { o.Display = Display(7) }, false},
	}

	for _, tc := range cases {
		opts := DefaultOptions()
		tc.mutate(&opts)
		err := opts.Validate()
		if tc.ok && err != nil {
			t.Errorf("%s: unexpected error %v", tc.name, err)
		}
		if !tc.ok && err == nil {
			t.Errorf("%s: expected validation error", tc.name)
		}
	}
}

func TestParseDisplay(t *testing.T) {
	for s, want := range map[string]Display{
		"silent": DisplaySilent,
		"":       DisplaySilent,
		"final":  DisplayFinal,
		"iter":   DisplayIter,
	} {
		got, err := ParseDisplay(s)
		if err != nil {
			t.Errorf("ParseDisplay(%q) failed: %v", s, err)
		}
		if got != want {
			t.Errorf("ParseDisplay(%q) = %s, want %s", s, got, want)
		}
	}

	if _, err := ParseDisplay("loud"); err == nil {
		t.Error("Expected error for unknown display level")
	}
}

func TestExitStatusString(t *testing.T) {
	for status, want := range map[ExitStatus]string{
		NotConverged:  "NotConverged",
		Converged:     "Converged",
		StepUnderflow: "StepUnderflow",
		ExitStatus(9): "UnknownStatus",
	} {
		if got := status.String(); got != want {
			t.Errorf("ExitStatus(%d).String() = %q, want %q", int(status), got, want)
		}
	}
}
