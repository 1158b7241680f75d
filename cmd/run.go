package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/cwbudde/bfgsmin/internal/bfgs"
	"github.com/cwbudde/bfgsmin/internal/problems"
	"github.com/cwbudde/bfgsmin/internal/store"
)

var (
	problemName string
	x0Flag      string
	traceDir    string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a single solve",
	Long: `Minimizes a named problem from a starting point and prints the result.
With --display iter the per-iteration progress table is printed; with
--trace-dir the run is persisted for later inspection via 'runs'.`,
	RunE: runSolve,
}

func init() {
	defaults := bfgs.DefaultOptions()

	runCmd.Flags().StringVar(&problemName, "problem", "", "Problem name (required, see 'bfgsmin problems')")
	runCmd.Flags().StringVar(&x0Flag, "x0", "", "Starting point as comma-separated floats (default: problem's suggested start)")
	runCmd.Flags().Int("maxiter", defaults.MaxIter, "Maximum iterations")
	runCmd.Flags().Float64("tolx", defaults.TolX, "Step-size convergence threshold (infinity norm)")
	runCmd.Flags().Float64("tolfun", defaults.TolFun, "Objective-value-change convergence threshold")
	runCmd.Flags().Float64("backtrack", defaults.Backtrack, "Line-search shrink factor in (0,1)")
	runCmd.Flags().String("display", defaults.Display.String(), "Progress verbosity: silent, final or iter")
	runCmd.Flags().StringVar(&traceDir, "trace-dir", "", "Persist the run record and trace under this directory")

	runCmd.MarkFlagRequired("problem")
	rootCmd.AddCommand(runCmd)
}

func runSolve(cmd *cobra.Command, args []string) error {
	problem, err := problems.Get(problemName)
	if err != nil {
		return err
	}

	x0 := problem.X0
	if x0Flag != "" {
		x0, err = parseVector(x0Flag)
		if err != nil {
			return fmt.Errorf("invalid --x0: %w", err)
		}
		if len(x0) != problem.Dim {
			return fmt.Errorf("--x0 has %d entries, problem %q needs %d", len(x0), problem.Name, problem.Dim)
		}
	}

	opts, err := resolveOptions(cmd)
	if err != nil {
		return err
	}

	slog.Info("Starting solve", "problem", problem.Name, "dim", problem.Dim, "maxiter", opts.MaxIter)

	var observers []bfgs.Observer

	console := &bfgs.ConsoleObserver{W: os.Stdout}
	if opts.Display >= bfgs.DisplayIter {
		observers = append(observers, console)
	}

	var trace *store.TraceWriter
	runID := ""
	if traceDir != "" {
		runID = uuid.New().String()
		trace, err = store.NewTraceWriter(traceDir, runID)
		if err != nil {
			return fmt.Errorf("failed to open trace: %w", err)
		}
		defer trace.Close()
		observers = append(observers, bfgs.ObserverFunc(func(rec bfgs.ProgressRecord) {
			if err := trace.Write(store.NewTraceEntry(rec)); err != nil {
				slog.Warn("Failed to write trace entry", "error", err)
			}
		}))
	}

	obs := bfgs.ObserverFunc(func(rec bfgs.ProgressRecord) {
		for _, o := range observers {
			o.Observe(rec)
		}
	})

	start := time.Now()
	res, err := bfgs.SolveObserved(context.Background(), problem.Objective, x0, opts, obs)
	elapsed := time.Since(start)
	if err != nil {
		return err
	}

	if opts.Display >= bfgs.DisplayFinal {
		console.Summary(res.Status)
	}

	slog.Info("Solve complete",
		"status", res.Status.String(),
		"iterations", res.Iters,
		"value", res.Value,
		"grad_evals", res.GradEvals,
		"value_evals", res.ValueEvals,
		"elapsed", elapsed,
	)

	if traceDir != "" {
		record := &store.SolveRecord{
			RunID: runID,
			Config: store.RunConfig{
				Problem:   problem.Name,
				X0:        x0,
				MaxIter:   opts.MaxIter,
				TolX:      opts.TolX,
				TolFun:    opts.TolFun,
				Backtrack: opts.Backtrack,
			},
			X:          res.X,
			Value:      res.Value,
			Status:     int(res.Status),
			StatusText: res.Status.String(),
			Iterations: res.Iters,
			StartTime:  start,
			EndTime:    time.Now(),
		}
		st, err := store.NewFSStore(traceDir)
		if err != nil {
			return fmt.Errorf("failed to open store: %w", err)
		}
		if err := st.SaveRecord(runID, record); err != nil {
			return fmt.Errorf("failed to save run record: %w", err)
		}
		fmt.Printf("Saved run %s under %s\n", runID, traceDir)
	}

	fmt.Printf("%s after %d iteration(s): f = %.10g at x = %s\n",
		res.Status, res.Iters, res.Value, formatVector(res.X))

	return nil
}

// parseVector parses "1.5,-2,0.25" into a float slice.
func parseVector(s string) ([]float64, error) {
	parts := strings.Split(s, ",")
	v := make([]float64, 0, len(parts))
	for _, part := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, fmt.Errorf("component %q: %w", part, err)
		}
		v = append(v, f)
	}
	return v, nil
}

func formatVector(v []float64) string {
	parts := make([]string, len(v))
	for i, f := range v {
		parts[i] = strconv.FormatFloat(f, 'g', 8, 64)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
