package recorder

import "time"

// RunEvent holds the outcome of one ingestion run.
type RunEvent struct {
	RunID         string
	Mode          string // "incremental" or "backfill"
	Window        string
	Partition     string
	State         string // final state, "done" or "failed"
	FailedAt      string // state the run failed in, empty on success
	URI           string
	Error         string
	Rows          int
	Symbols       int
	FailedSymbols int
	// LoadedSymbols counts symbols that contributed at least one row.
	LoadedSymbols int
	StartedAt     time.Time
	FinishedAt    time.Time
}

// Duration is the wall time of the run.
func (e *RunEvent) Duration() time.Duration { return e.FinishedAt.Sub(e.StartedAt) }

// SymbolEvent records one symbol's fetch within a run.
type SymbolEvent struct {
	RunID  string
	Symbol string
	Rows   int
	Error  string
}

// Recorder persists run history for later inspection.
type Recorder interface {
	RecordRun(evt *RunEvent) error
	RecordSymbols(evts []SymbolEvent) error
	RecentRuns(limit int) ([]RunEvent, error)
	Close() error
}
