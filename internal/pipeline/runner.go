package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"PriceLakehouse/internal/collector"
	"PriceLakehouse/internal/logger"
	"PriceLakehouse/internal/model"
	"PriceLakehouse/internal/notifier"
	"PriceLakehouse/internal/recorder"
	"PriceLakehouse/internal/snapshot"
	"PriceLakehouse/internal/warehouse"
)

// State is a step of a run. A run moves start → extracted → stored →
// loaded → done, or to failed from any step.
type State string

const (
	StateStart     State = "start"
	StateExtracted State = "extracted"
	StateStored    State = "stored"
	StateLoaded    State = "loaded"
	StateDone      State = "done"
	StateFailed    State = "failed"
)

var (
	// ErrEmptyDataset means no symbol contributed rows.
	ErrEmptyDataset = errors.New("empty dataset: no symbol returned data")
	// ErrNoArtifact means the snapshot writer reported success without a URI.
	ErrNoArtifact = errors.New("snapshot writer returned no artifact uri")
)

// Extractor fetches and combines the rows of every symbol.
type Extractor interface {
	Extract(ctx context.Context, symbols []string, w model.Window) (model.Dataset, []collector.Result)
}

// Runner sequences one ingestion run: extract, store the snapshot, load it.
type Runner struct {
	Extractor Extractor
	Writer    snapshot.Writer
	Loader    warehouse.Loader
	Recorder  recorder.Recorder
	Notifier  notifier.Notifier
	Symbols   []string

	Now   func() time.Time
	NewID func() string
}

// Outcome is the result of one run.
type Outcome struct {
	RunID     string
	Window    model.Window
	Partition string
	State     State
	// FailedAt is the last state reached before failing.
	FailedAt   State
	URI        string
	Rows       int
	Results    []collector.Result
	Err        error
	StartedAt  time.Time
	FinishedAt time.Time
}

func (o Outcome) OK() bool { return o.State == StateDone }

// ExitCode is 0 for a run that reached done and 1 otherwise.
func (o Outcome) ExitCode() int {
	if o.OK() {
		return 0
	}
	return 1
}

func (r *Runner) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

// Run executes one run over w. It never panics on collaborator failure; the
// outcome carries the state reached and the error.
func (r *Runner) Run(ctx context.Context, w model.Window) Outcome {
	newID := r.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	started := r.now()
	out := Outcome{
		RunID:     newID(),
		Window:    w,
		Partition: model.PartitionKey(started),
		State:     StateStart,
		StartedAt: started,
	}
	logger.Infof("run %s: %s, partition %s, %d symbols", out.RunID, w, out.Partition, len(r.Symbols))

	r.advance(ctx, &out)

	out.FinishedAt = r.now()
	if out.OK() {
		logger.Infof("run %s done: %d rows loaded from %s", out.RunID, out.Rows, out.URI)
	} else {
		logger.Errorf("run %s failed in state %s: %v", out.RunID, out.FailedAt, out.Err)
	}
	r.report(ctx, &out)
	return out
}

func (r *Runner) fail(out *Outcome, err error) {
	out.FailedAt = out.State
	out.State = StateFailed
	out.Err = err
}

func (r *Runner) advance(ctx context.Context, out *Outcome) {
	if err := out.Window.Validate(); err != nil {
		r.fail(out, fmt.Errorf("window: %w", err))
		return
	}

	// start → extracted
	ds, results := r.Extractor.Extract(ctx, r.Symbols, out.Window)
	out.Results = results
	if ds.Empty() {
		err := ErrEmptyDataset
		if len(r.Symbols) == 0 {
			err = fmt.Errorf("%w: no symbols configured", ErrEmptyDataset)
		} else if ferr := collector.FailureError(results); ferr != nil {
			err = fmt.Errorf("%w: %w", ErrEmptyDataset, ferr)
		}
		r.fail(out, err)
		return
	}
	out.Rows = ds.Len()
	out.State = StateExtracted

	// extracted → stored
	uri, err := r.Writer.Store(ctx, ds.Rows, out.Partition)
	if err != nil {
		r.fail(out, fmt.Errorf("store snapshot: %w", err))
		return
	}
	if uri == "" {
		r.fail(out, ErrNoArtifact)
		return
	}
	out.URI = uri
	out.State = StateStored

	// stored → loaded
	if err := r.Loader.Load(ctx, uri); err != nil {
		logger.Warnf("snapshot %s was stored but not loaded; reload it with `ingest load -uri %s`", uri, uri)
		r.fail(out, fmt.Errorf("load warehouse: %w", err))
		return
	}
	out.State = StateLoaded

	// loaded → done
	out.State = StateDone
}

// report records the run and notifies. Failures here are logged only.
func (r *Runner) report(ctx context.Context, out *Outcome) {
	evt := out.Event()
	if r.Recorder != nil {
		if err := r.Recorder.RecordRun(evt); err != nil {
			logger.Errorf("record run %s: %v", out.RunID, err)
		}
		if err := r.Recorder.RecordSymbols(out.SymbolEvents()); err != nil {
			logger.Errorf("record symbols of run %s: %v", out.RunID, err)
		}
	}
	if r.Notifier != nil {
		if err := r.Notifier.Send(ctx, notifier.FormatRunReport(evt, collector.Failures(out.Results))); err != nil {
			logger.Errorf("send run report: %v", err)
		}
	}
}

// Event converts the outcome into a run history record.
func (o Outcome) Event() *recorder.RunEvent {
	evt := &recorder.RunEvent{
		RunID:         o.RunID,
		Mode:          string(o.Window.Mode),
		Window:        o.Window.String(),
		Partition:     o.Partition,
		State:         string(o.State),
		URI:           o.URI,
		Rows:          o.Rows,
		Symbols:       len(o.Results),
		FailedSymbols: len(collector.Failures(o.Results)),
		LoadedSymbols: len(collector.Succeeded(o.Results)),
		StartedAt:     o.StartedAt,
		FinishedAt:    o.FinishedAt,
	}
	if o.State == StateFailed {
		evt.FailedAt = string(o.FailedAt)
	}
	if o.Err != nil {
		evt.Error = o.Err.Error()
	}
	return evt
}

// SymbolEvents lists each symbol's fetch result for run history.
func (o Outcome) SymbolEvents() []recorder.SymbolEvent {
	evts := make([]recorder.SymbolEvent, 0, len(o.Results))
	for _, res := range o.Results {
		e := recorder.SymbolEvent{RunID: o.RunID, Symbol: res.Symbol, Rows: len(res.Rows)}
		if res.Err != nil {
			e.Error = res.Err.Error()
		}
		evts = append(evts, e)
	}
	return evts
}
