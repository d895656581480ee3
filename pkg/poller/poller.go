// Package poller drives a reconcile.Engine from a single loop goroutine for
// headless use (plain watch mode, snapshot command, metrics-only daemons).
//
// Ticks happen once at Start, on every TriggerRefresh, after each
// ScheduleRefresh delay, on every signal from an optional change channel
// (the file watcher) and, when Interval > 0, on a fixed interval. Requests
// that arrive while a tick runs collapse into one follow-up tick.
package poller

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vanderheijden86/qdash/internal/logging"
	"github.com/vanderheijden86/qdash/pkg/reconcile"
)

// State represents the poller's lifecycle state.
type State int

const (
	// StateIdle means the loop is waiting for the next trigger.
	StateIdle State = iota
	// StateTicking means a tick is running.
	StateTicking
	// StateStopped means Stop was called; the poller cannot be restarted.
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateTicking:
		return "ticking"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// ErrStopped is returned by Start after Stop.
var ErrStopped = errors.New("poller has been stopped")

// Ticker is the part of reconcile.Engine the poller drives.
type Ticker interface {
	Tick(ctx context.Context) reconcile.Result
}

// Config configures a Poller.
type Config struct {
	Engine Ticker
	// Interval enables continuous polling when > 0.
	Interval time.Duration
	// Changes, when set, triggers a tick per receive. Typically a
	// watcher.Watcher's Changed channel.
	Changes <-chan struct{}
	// OnResult is called on the loop goroutine after each tick.
	OnResult func(reconcile.Result)
	Logger   logrus.FieldLogger
}

// Poller runs engine ticks on one goroutine.
type Poller struct {
	engine   Ticker
	interval time.Duration
	changes  <-chan struct{}
	onResult func(reconcile.Result)
	log      logrus.FieldLogger

	refreshCh chan struct{}

	mu      sync.Mutex
	state   State
	started bool
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	timers  map[*time.Timer]struct{}
	ticks   int64
}

// New creates a poller. Start must be called to begin ticking.
func New(cfg Config) (*Poller, error) {
	if cfg.Engine == nil {
		return nil, errors.New("poller: engine is required")
	}
	if cfg.Interval < 0 {
		return nil, fmt.Errorf("poller: negative interval %s", cfg.Interval)
	}
	log := cfg.Logger
	if log == nil {
		log = logging.Discard()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Poller{
		engine:    cfg.Engine,
		interval:  cfg.Interval,
		changes:   cfg.Changes,
		onResult:  cfg.OnResult,
		log:       log.WithField("component", "poller"),
		refreshCh: make(chan struct{}, 1),
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
		timers:    make(map[*time.Timer]struct{}),
	}, nil
}

// Start launches the loop and runs the startup tick. Start is idempotent.
func (p *Poller) Start() error {
	p.mu.Lock()
	if p.state == StateStopped {
		p.mu.Unlock()
		return ErrStopped
	}
	if p.started {
		p.mu.Unlock()
		return nil
	}
	p.started = true
	p.mu.Unlock()

	p.log.WithField("interval", p.interval.String()).Info("poller_start")
	go p.loop()
	return nil
}

// Stop cancels any in-flight fetch, drops pending scheduled refreshes and
// waits for the loop to exit. Stop is idempotent.
func (p *Poller) Stop() {
	p.mu.Lock()
	if p.state == StateStopped {
		p.mu.Unlock()
		return
	}
	p.state = StateStopped
	wasStarted := p.started
	for t := range p.timers {
		t.Stop()
	}
	p.timers = nil
	p.mu.Unlock()

	p.cancel()
	if wasStarted {
		select {
		case <-p.done:
		case <-time.After(5 * time.Second):
			p.log.Warn("shutdown_timeout")
		}
	}
	p.log.Info("poller_stop")
}

// Run starts the poller and blocks until ctx is done, then stops it.
func (p *Poller) Run(ctx context.Context) error {
	if err := p.Start(); err != nil {
		return err
	}
	select {
	case <-ctx.Done():
	case <-p.done:
	}
	p.Stop()
	return nil
}

// TriggerRefresh requests a tick as soon as the loop is free. Multiple
// requests made while a tick runs collapse into one.
func (p *Poller) TriggerRefresh() {
	p.mu.Lock()
	stopped := p.state == StateStopped
	p.mu.Unlock()
	if stopped {
		return
	}
	select {
	case p.refreshCh <- struct{}{}:
	default:
		p.log.Debug("refresh_coalesced")
	}
}

// ScheduleRefresh requests one tick after delay.
func (p *Poller) ScheduleRefresh(delay time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == StateStopped {
		return
	}
	var t *time.Timer
	t = time.AfterFunc(delay, func() {
		p.mu.Lock()
		if p.timers != nil {
			delete(p.timers, t)
		}
		p.mu.Unlock()
		p.TriggerRefresh()
	})
	p.timers[t] = struct{}{}
}

// State returns the current lifecycle state.
func (p *Poller) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Ticks returns how many ticks have run.
func (p *Poller) Ticks() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ticks
}

// Done is closed when the loop exits.
func (p *Poller) Done() <-chan struct{} {
	return p.done
}

func (p *Poller) loop() {
	defer close(p.done)

	var tickC <-chan time.Time
	if p.interval > 0 {
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()
		tickC = ticker.C
	}

	p.tick()
	for {
		select {
		case <-p.ctx.Done():
			return
		case <-tickC:
			p.tick()
		case <-p.refreshCh:
			p.tick()
		case _, ok := <-p.changes:
			if !ok {
				p.changes = nil
				continue
			}
			p.log.Debug("source_changed")
			p.tick()
		}
	}
}

func (p *Poller) tick() {
	p.mu.Lock()
	if p.state == StateStopped {
		p.mu.Unlock()
		return
	}
	p.state = StateTicking
	p.mu.Unlock()

	// A panicking tick is logged and dropped; the loop keeps serving triggers.
	defer func() {
		if r := recover(); r != nil {
			p.log.WithFields(logrus.Fields{
				"panic": fmt.Sprintf("%v", r),
				"stack": string(debug.Stack()),
			}).Error("poll_tick_panic")
			p.mu.Lock()
			if p.state != StateStopped {
				p.state = StateIdle
			}
			p.mu.Unlock()
		}
	}()

	for {
		res := p.engine.Tick(p.ctx)

		p.mu.Lock()
		p.ticks++
		if p.state != StateStopped {
			p.state = StateIdle
		}
		p.mu.Unlock()

		if p.onResult != nil {
			p.onResult(res)
		}
		if !res.FollowUp || p.ctx.Err() != nil {
			return
		}
	}
}
