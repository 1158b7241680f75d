package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/cwbudde/bfgsmin/internal/store"
)

var (
	runsDataDir   string
	keepLast      int
	olderThanDays int
	forceClean    bool
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Manage persisted solve runs",
	Long: `Manage solve runs persisted by 'run --trace-dir' or the server,
including listing, inspecting traces and cleaning old runs.`,
}

var listRunsCmd = &cobra.Command{
	Use:   "list",
	Short: "List all persisted runs",
	RunE:  runListRuns,
}

var showRunCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show the record and iteration trace of a run",
	Args:  cobra.ExactArgs(1),
	RunE:  runShowRun,
}

var cleanRunsCmd = &cobra.Command{
	Use:   "clean",
	Short: "Clean old runs",
	Long: `Delete old runs based on a retention policy. Specify how many runs
to keep or delete runs older than N days.`,
	RunE: runCleanRuns,
}

func init() {
	rootCmd.AddCommand(runsCmd)

	runsCmd.AddCommand(listRunsCmd)
	runsCmd.AddCommand(showRunCmd)
	runsCmd.AddCommand(cleanRunsCmd)

	runsCmd.PersistentFlags().StringVar(&runsDataDir, "data-dir", "./data", "Base directory for run storage")

	cleanRunsCmd.Flags().IntVar(&keepLast, "keep-last", 0, "Keep only the last N runs (0 = keep all)")
	cleanRunsCmd.Flags().IntVar(&olderThanDays, "older-than", 0, "Delete runs older than N days (0 = no age limit)")
	cleanRunsCmd.Flags().BoolVarP(&forceClean, "force", "f", false, "Skip confirmation prompt")
}

func runListRuns(cmd *cobra.Command, args []string) error {
	st, err := store.NewFSStore(runsDataDir)
	if err != nil {
		return fmt.Errorf("failed to open run store: %w", err)
	}

	infos, err := st.ListRecords()
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	if len(infos) == 0 {
		fmt.Println("No runs found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RUN ID\tFINISHED\tPROBLEM\tITERS\tVALUE\tEXIT\tSIZE")

	for _, info := range infos {
		runDir := filepath.Join(runsDataDir, "runs", info.RunID)
		sizeStr := "unknown"
		if size, err := getDirSize(runDir); err == nil {
			sizeStr = formatBytes(size)
		}

		displayID := info.RunID
		if len(displayID) > 12 {
			displayID = displayID[:12] + "..."
		}

		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%.6g\t%s\t%s\n",
			displayID,
			info.EndTime.Format("2006-01-02 15:04:05"),
			info.Problem,
			info.Iterations,
			info.Value,
			info.StatusText,
			sizeStr,
		)
	}

	w.Flush()
	fmt.Printf("\nTotal runs: %d\n", len(infos))
	return nil
}

func runShowRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st, err := store.NewFSStore(runsDataDir)
	if err != nil {
		return fmt.Errorf("failed to open run store: %w", err)
	}

	record, err := st.LoadRecord(runID)
	if err != nil {
		return err
	}

	fmt.Printf("Run: %s\n", record.RunID)
	fmt.Printf("Problem: %s\n", record.Config.Problem)
	fmt.Printf("Exit: %d (%s) after %d iteration(s)\n", record.Status, record.StatusText, record.Iterations)
	fmt.Printf("f = %.10g at x = %s\n", record.Value, formatVector(record.X))
	fmt.Printf("Elapsed: %s\n", record.EndTime.Sub(record.StartTime).Round(time.Millisecond))

	tr, err := store.NewTraceReader(runsDataDir, runID)
	if err != nil {
		// A record without a trace is fine; just report the summary.
		return nil
	}
	defer tr.Close()

	entries, err := tr.ReadAll()
	if err != nil {
		return fmt.Errorf("failed to read trace: %w", err)
	}

	fmt.Println()
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ITER\tVALUE\tCHANGE\tGRAD NORM\tBACKTRACKS")
	for _, e := range entries {
		change := ""
		if e.ValueChange != nil {
			change = fmt.Sprintf("%.6e", *e.ValueChange)
		}
		fmt.Fprintf(w, "%d\t%.6e\t%s\t%.6e\t%d\n",
			e.Iteration, e.Value, change, e.GradNorm, e.Backtracks)
	}
	return w.Flush()
}

func runCleanRuns(cmd *cobra.Command, args []string) error {
	if keepLast == 0 && olderThanDays == 0 {
		return fmt.Errorf("must specify either --keep-last or --older-than")
	}

	st, err := store.NewFSStore(runsDataDir)
	if err != nil {
		return fmt.Errorf("failed to open run store: %w", err)
	}

	infos, err := st.ListRecords()
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	if len(infos) == 0 {
		fmt.Println("No runs to clean.")
		return nil
	}

	toDelete := selectRunsForDeletion(infos, keepLast, olderThanDays)
	if len(toDelete) == 0 {
		fmt.Println("No runs match deletion criteria.")
		return nil
	}

	fmt.Printf("Found %d run(s) to delete:\n", len(toDelete))
	for _, info := range toDelete {
		displayID := info.RunID
		if len(displayID) > 12 {
			displayID = displayID[:12] + "..."
		}
		fmt.Printf("  - %s (%s, %s)\n",
			displayID, info.Problem, info.EndTime.Format("2006-01-02 15:04:05"))
	}

	if !forceClean {
		fmt.Print("\nProceed with deletion? [y/N]: ")
		var response string
		fmt.Scanln(&response)
		if response != "y" && response != "Y" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	deleted := 0
	failed := 0
	for _, info := range toDelete {
		if err := st.DeleteRecord(info.RunID); err != nil {
			slog.Error("Failed to delete run", "run_id", info.RunID, "error", err)
			failed++
		} else {
			slog.Info("Deleted run", "run_id", info.RunID)
			deleted++
		}
	}

	fmt.Printf("\nDeleted %d run(s), %d failed.\n", deleted, failed)
	return nil
}

// selectRunsForDeletion applies the retention policy to the run listing.
func selectRunsForDeletion(infos []store.RunInfo, keepLast, olderThanDays int) []store.RunInfo {
	var toDelete []store.RunInfo
	seen := make(map[string]bool)

	if olderThanDays > 0 {
		cutoff := time.Now().AddDate(0, 0, -olderThanDays)
		for _, info := range infos {
			if info.EndTime.Before(cutoff) {
				toDelete = append(toDelete, info)
				seen[info.RunID] = true
			}
		}
	}

	if keepLast > 0 && len(infos) > keepLast {
		sorted := make([]store.RunInfo, len(infos))
		copy(sorted, infos)
		sort.Slice(sorted, func(i, j int) bool {
			return sorted[i].EndTime.Before(sorted[j].EndTime)
		})

		for _, info := range sorted[:len(sorted)-keepLast] {
			if !seen[info.RunID] {
				toDelete = append(toDelete, info)
				seen[info.RunID] = true
			}
		}
	}

	return toDelete
}

// getDirSize calculates the total size of a directory
func getDirSize(path string) (int64, error) {
	var size int64
	err := filepath.Walk(path, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			size += info.Size()
		}
		return nil
	})
	return size, err
}

// formatBytes formats bytes as human-readable string
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
