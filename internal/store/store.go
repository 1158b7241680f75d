package store

// Store defines the interface for solve-run persistence.
// Implementations must be safe for concurrent use.
//
// Error handling conventions:
//   - Return nil error on success
//   - Return ErrNotFound if the run doesn't exist (for Load/Delete)
//   - Wrap underlying errors with context using fmt.Errorf("context: %w", err)
type Store interface {
	// SaveRecord atomically saves the result record for a run.
	// An existing record for the same runID is overwritten.
	SaveRecord(runID string, record *SolveRecord) error

	// LoadRecord retrieves the result record for a run.
	// Returns ErrNotFound if no record exists for runID.
	LoadRecord(runID string) (*SolveRecord, error)

	// ListRecords returns metadata for all persisted runs.
	ListRecords() ([]RunInfo, error)

	// DeleteRecord removes the record and the iteration trace of a run.
	// Returns ErrNotFound if no record exists for runID.
	DeleteRecord(runID string) error
}

// ErrNotFound is returned when a requested run does not exist.
// Use errors.Is(err, ErrNotFound) to check for this error.
var ErrNotFound = &NotFoundError{}

// NotFoundError represents a missing run error.
type NotFoundError struct {
	RunID string
}

func (e *NotFoundError) Error() string {
	if e.RunID != "" {
		return "run not found: " + e.RunID
	}
	return "run not found"
}

func (e *NotFoundError) Is(target error) bool {
	_, ok := target.(*NotFoundError)
	return ok
}
