// Package submit creates jobs on the remote queue and schedules the single
// follow-up refresh that makes the new job visible.
package submit

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vanderheijden86/qdash/internal/logging"
	"github.com/vanderheijden86/qdash/pkg/model"
)

// FailureText is shown in the blocking notice when a submission fails.
const FailureText = "Failed to submit job. Please check the server connection."

// DefaultRefreshDelay is the wait between a successful submission and the
// follow-up poll.
const DefaultRefreshDelay = time.Second

// ErrInFlight is returned when Submit is called while another submission is
// still running.
var ErrInFlight = errors.New("a submission is already in progress")

// Submitter performs one creation request.
type Submitter interface {
	Submit(ctx context.Context, kind model.JobKind) error
}

// Hooks connect the trigger to the UI. Any hook may be nil.
type Hooks struct {
	// Busy is called with true before the request and false after it.
	Busy func(busy bool)
	// Failed is called once per failed submission.
	Failed func(err error)
	// Refresh is called exactly once, RefreshDelay after each success.
	Refresh func()
}

// Config configures a Trigger.
type Config struct {
	Submitter    Submitter
	Hooks        Hooks
	RefreshDelay time.Duration
	Logger       logrus.FieldLogger
	// AfterFunc schedules the refresh. Defaults to time.AfterFunc.
	AfterFunc func(d time.Duration, f func()) *time.Timer
}

// Trigger serializes submissions and schedules refreshes.
type Trigger struct {
	sub       Submitter
	hooks     Hooks
	delay     time.Duration
	log       logrus.FieldLogger
	afterFunc func(d time.Duration, f func()) *time.Timer

	mu      sync.Mutex
	busy    bool
	pending map[*pendingRefresh]struct{}
}

// pendingRefresh is one scheduled refresh. It leaves Trigger.pending when it
// fires or is cancelled.
type pendingRefresh struct {
	timer *time.Timer
}

// New creates a Trigger. A zero RefreshDelay uses DefaultRefreshDelay; pass
// a negative delay to refresh immediately.
func New(cfg Config) *Trigger {
	delay := cfg.RefreshDelay
	if delay == 0 {
		delay = DefaultRefreshDelay
	}
	if delay < 0 {
		delay = 0
	}
	log := cfg.Logger
	if log == nil {
		log = logging.Discard()
	}
	after := cfg.AfterFunc
	if after == nil {
		after = time.AfterFunc
	}
	return &Trigger{
		sub:       cfg.Submitter,
		hooks:     cfg.Hooks,
		delay:     delay,
		log:       log.WithField("component", "submit"),
		afterFunc: after,
	}
}

// Submit sends one creation request for kind. On success it schedules one
// refresh; on failure it reports through Hooks.Failed and returns the error.
// It never retries and never touches view state directly.
func (t *Trigger) Submit(ctx context.Context, kind model.JobKind) error {
	t.mu.Lock()
	if t.busy {
		t.mu.Unlock()
		return ErrInFlight
	}
	t.busy = true
	t.mu.Unlock()

	t.setBusy(true)
	err := t.sub.Submit(ctx, kind)
	t.mu.Lock()
	t.busy = false
	t.mu.Unlock()
	t.setBusy(false)

	log := t.log.WithField("kind", kind)
	if err != nil {
		log.WithError(err).Warn("submit_failed")
		if t.hooks.Failed != nil {
			t.hooks.Failed(err)
		}
		return err
	}

	log.WithField("refresh_in", t.delay.String()).Info("submit_ok")
	t.scheduleRefresh()
	return nil
}

// Busy reports whether a submission is in flight.
func (t *Trigger) Busy() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.busy
}

// Cancel drops refreshes that have not fired yet.
func (t *Trigger) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for p := range t.pending {
		if p.timer != nil {
			p.timer.Stop()
		}
	}
	t.pending = nil
}

func (t *Trigger) setBusy(b bool) {
	if t.hooks.Busy != nil {
		t.hooks.Busy(b)
	}
}

func (t *Trigger) scheduleRefresh() {
	if t.hooks.Refresh == nil {
		return
	}
	p := &pendingRefresh{}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.pending == nil {
		t.pending = make(map[*pendingRefresh]struct{})
	}
	t.pending[p] = struct{}{}
	p.timer = t.afterFunc(t.delay, func() {
		t.mu.Lock()
		_, live := t.pending[p]
		delete(t.pending, p)
		t.mu.Unlock()
		if live {
			t.hooks.Refresh()
		}
	})
}
