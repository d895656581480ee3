// Package reconcile turns fetched job snapshots into table and chart updates.
//
// An Engine owns the last successfully rendered state (ViewState) and the
// long-lived chart. Each tick fetches once, aggregates, re-renders the table
// unconditionally and mutates the chart in place. Failed fetches leave the
// state untouched and replace the table with a single notice row.
//
// Two drivers are supported:
//
//   - Tick runs fetch and reconcile synchronously on the caller's goroutine.
//   - Begin / Complete split the tick around an asynchronous fetch, as the TUI
//     does with a tea.Cmd.
//
// At most one tick is in flight unless Config.AllowOverlap is set. A Begin
// refused because a tick is outstanding marks the engine dirty, and the
// completing tick reports FollowUp so the driver runs exactly one more.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vanderheijden86/qdash/internal/datasource"
	"github.com/vanderheijden86/qdash/internal/logging"
	"github.com/vanderheijden86/qdash/pkg/analysis"
	"github.com/vanderheijden86/qdash/pkg/metrics"
	"github.com/vanderheijden86/qdash/pkg/model"
)

// Outcome classifies how a tick ended.
type Outcome int

const (
	// Applied means a new snapshot was rendered and stored.
	Applied Outcome = iota
	// Failed means the fetch or a sink failed; the view kept its last state.
	Failed
	// Skipped means Begin was refused because another tick was in flight.
	Skipped
	// Stale means the result arrived after a newer one and was discarded.
	Stale
)

func (o Outcome) String() string {
	switch o {
	case Applied:
		return metrics.OutcomeApplied
	case Failed:
		return metrics.OutcomeFailed
	case Skipped:
		return metrics.OutcomeSkipped
	case Stale:
		return metrics.OutcomeStale
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Result describes one completed tick.
type Result struct {
	Seq     uint64
	Outcome Outcome
	Jobs    int
	// Changed reports whether the snapshot differed from the previous one.
	// It is informational only; rendering never short-circuits on it.
	Changed bool
	Err     error
	// FollowUp is set when a refresh was requested while this tick ran. The
	// driver should start exactly one more tick.
	FollowUp bool
	Duration time.Duration
}

// ViewState is the last successfully rendered snapshot.
type ViewState struct {
	Snapshot     model.JobSnapshot
	Distribution model.StatusDistribution
	Seq          uint64
	AppliedAt    time.Time
}

// RenderError wraps a panic raised by a sink.
type RenderError struct {
	Sink  string
	Cause error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render %s: %v", e.Sink, e.Cause)
}

func (e *RenderError) Unwrap() error { return e.Cause }

// ErrBusy is returned by Tick when another tick is in flight.
var ErrBusy = errors.New("tick already in flight")

// Config tunes an Engine.
type Config struct {
	// AllowOverlap lets Begin start a tick while another is in flight. Results
	// older than the last applied one are discarded.
	AllowOverlap bool
	Logger       logrus.FieldLogger
	Metrics      *metrics.Collectors
	// Now overrides the clock, for tests.
	Now func() time.Time
}

// Engine reconciles snapshots into a TableSink and a ChartSink. Begin and
// the read accessors may be called from any goroutine. Complete and Tick
// call the sinks and belong to the goroutine that owns them.
type Engine struct {
	fetcher datasource.Fetcher
	table   TableSink
	charts  ChartSink
	cfg     Config
	log     logrus.FieldLogger

	mu          sync.Mutex
	chart       Chart
	state       ViewState
	hasState    bool
	nextSeq     uint64
	lastApplied uint64
	inFlight    int
	dirty       bool
	started     map[uint64]time.Time

	lastErr      error
	lastErrAt    time.Time
	failureCount int
}

// New creates an Engine. fetcher may be nil when only Begin/Complete are used.
func New(fetcher datasource.Fetcher, table TableSink, charts ChartSink, cfg Config) *Engine {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	log := cfg.Logger
	if log == nil {
		log = logging.Discard()
	}
	return &Engine{
		fetcher: fetcher,
		table:   table,
		charts:  charts,
		cfg:     cfg,
		log:     log.WithField("component", "engine"),
		started: make(map[uint64]time.Time),
	}
}

// Begin reserves a sequence number for a new tick. It returns false, and
// marks the engine dirty, when a tick is already in flight and overlap is
// not allowed.
func (e *Engine) Begin() (uint64, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.inFlight > 0 && !e.cfg.AllowOverlap {
		e.dirty = true
		e.cfg.Metrics.TickOutcome(metrics.OutcomeSkipped)
		e.log.WithField("in_flight", e.inFlight).Debug("tick_coalesced")
		return 0, false
	}
	e.nextSeq++
	e.inFlight++
	e.started[e.nextSeq] = e.cfg.Now()
	e.log.WithField("seq", e.nextSeq).Debug("tick_start")
	return e.nextSeq, true
}

// Complete applies the outcome of the fetch started by Begin(seq).
func (e *Engine) Complete(seq uint64, snapshot model.JobSnapshot, fetchErr error) Result {
	e.mu.Lock()
	defer e.mu.Unlock()

	res := Result{Seq: seq}
	if startedAt, ok := e.started[seq]; ok {
		res.Duration = e.cfg.Now().Sub(startedAt)
		delete(e.started, seq)
	}
	if e.inFlight > 0 {
		e.inFlight--
	}
	if e.inFlight == 0 && e.dirty {
		e.dirty = false
		res.FollowUp = true
	}

	if seq <= e.lastApplied {
		res.Outcome = Stale
		e.finish(&res)
		return res
	}
	e.lastApplied = seq

	if fetchErr != nil {
		e.applyFailure(&res, fetchErr)
		e.finish(&res)
		return res
	}

	e.applySnapshot(&res, snapshot)
	e.finish(&res)
	return res
}

// Tick runs one synchronous fetch-aggregate-render cycle. It returns a
// Skipped result with ErrBusy when a tick is already in flight.
func (e *Engine) Tick(ctx context.Context) Result {
	seq, ok := e.Begin()
	if !ok {
		return Result{Outcome: Skipped, Err: ErrBusy}
	}
	if e.fetcher == nil {
		return e.Complete(seq, nil, &datasource.FetchError{Kind: datasource.Unreachable, Err: errors.New("no fetcher configured")})
	}
	snapshot, err := SafeFetch(ctx, e.fetcher)
	return e.Complete(seq, snapshot, err)
}

// SafeFetch calls f.FetchSnapshot, reporting a panic as an Unreachable
// fetch error so the caller can still Complete its sequence.
func SafeFetch(ctx context.Context, f datasource.Fetcher) (snapshot model.JobSnapshot, err error) {
	defer func() {
		if r := recover(); r != nil {
			snapshot = nil
			err = &datasource.FetchError{Kind: datasource.Unreachable, Err: fmt.Errorf("fetcher panic: %v", r)}
		}
	}()
	return f.FetchSnapshot(ctx)
}

func (e *Engine) applyFailure(res *Result, fetchErr error) {
	res.Outcome = Failed
	res.Err = fetchErr

	kind := "unknown"
	var fe *datasource.FetchError
	if errors.As(fetchErr, &fe) {
		kind = fe.Kind.String()
	}
	e.cfg.Metrics.FetchError(kind)

	e.lastErr = fetchErr
	e.lastErrAt = e.cfg.Now()
	e.failureCount++

	if err := e.safeRender("table", func() {
		e.table.ShowNotice(Notice{Text: FailureText, Err: fetchErr})
	}); err != nil {
		e.log.WithError(err).Error("render_panic")
	}
}

func (e *Engine) applySnapshot(res *Result, snapshot model.JobSnapshot) {
	defer metrics.Timer(metrics.Render)()

	dist := analysis.Aggregate(snapshot)
	res.Jobs = snapshot.Len()
	res.Changed = !e.hasState || !sameSnapshot(e.state.Snapshot, snapshot)

	rows := Rows(snapshot)
	if err := e.safeRender("table", func() { e.table.RenderRows(rows) }); err != nil {
		e.renderFailed(res, err)
		return
	}

	data := NewChartData(dist)
	if err := e.safeRender("chart", func() {
		if e.chart == nil {
			e.chart = e.charts.NewChart(data)
			return
		}
		e.chart.Update(data)
	}); err != nil {
		e.renderFailed(res, err)
		if nerr := e.safeRender("table", func() {
			e.table.ShowNotice(Notice{Text: FailureText, Err: err})
		}); nerr != nil {
			e.log.WithError(nerr).Error("render_panic")
		}
		return
	}

	now := e.cfg.Now()
	e.state = ViewState{
		Snapshot:     snapshot.Clone(),
		Distribution: dist,
		Seq:          res.Seq,
		AppliedAt:    now,
	}
	e.hasState = true
	e.lastErr = nil
	e.failureCount = 0
	res.Outcome = Applied
	e.cfg.Metrics.SnapshotApplied(dist, now)
}

func (e *Engine) renderFailed(res *Result, err error) {
	res.Outcome = Failed
	res.Err = err
	e.lastErr = err
	e.lastErrAt = e.cfg.Now()
	e.failureCount++
	e.log.WithError(err).Error("render_panic")
}

func (e *Engine) finish(res *Result) {
	e.cfg.Metrics.TickOutcome(res.Outcome.String())
	fields := logrus.Fields{
		"seq":       res.Seq,
		"outcome":   res.Outcome.String(),
		"jobs":      res.Jobs,
		"changed":   res.Changed,
		"follow_up": res.FollowUp,
		"duration":  res.Duration.String(),
	}
	switch res.Outcome {
	case Applied:
		e.log.WithFields(fields).Info("snapshot_applied")
	case Failed:
		e.log.WithFields(fields).WithError(res.Err).Warn("tick_failed")
	default:
		e.log.WithFields(fields).Debug("tick_discarded")
	}
}

// safeRender runs fn, converting a panic into a *RenderError.
func (e *Engine) safeRender(sink string, fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &RenderError{Sink: sink, Cause: fmt.Errorf("panic: %v\n%s", r, debug.Stack())}
		}
	}()
	fn()
	return nil
}

func sameSnapshot(a, b model.JobSnapshot) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// State returns the last successfully rendered state. ok is false before the
// first success.
func (e *Engine) State() (ViewState, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	st := e.state
	st.Snapshot = st.Snapshot.Clone()
	return st, e.hasState
}

// AppliedAt returns when the last snapshot was applied, zero if none.
func (e *Engine) AppliedAt() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.AppliedAt
}

// LastFailure returns when the most recent failure happened and its error.
// Both are cleared by the next applied snapshot.
func (e *Engine) LastFailure() (time.Time, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.lastErr == nil {
		return time.Time{}, nil
	}
	return e.lastErrAt, e.lastErr
}

// ConsecutiveFailures counts failed ticks since the last applied snapshot.
func (e *Engine) ConsecutiveFailures() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.failureCount
}

// InFlight reports whether a tick is outstanding.
func (e *Engine) InFlight() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.inFlight > 0
}

// HasChart reports whether the chart has been created.
func (e *Engine) HasChart() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.chart != nil
}
