package poller

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/vanderheijden86/qdash/pkg/model"
	"github.com/vanderheijden86/qdash/pkg/reconcile"
)

type countingTicker struct {
	calls atomic.Int64
	block chan struct{}
	ticks chan struct{}
}

func newCountingTicker() *countingTicker {
	return &countingTicker{ticks: make(chan struct{}, 64)}
}

func (c *countingTicker) Tick(ctx context.Context) reconcile.Result {
	c.calls.Add(1)
	if c.block != nil {
		select {
		case <-c.block:
		case <-ctx.Done():
		}
	}
	c.ticks <- struct{}{}
	return reconcile.Result{Outcome: reconcile.Applied}
}

func waitTicks(t *testing.T, c *countingTicker, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-c.ticks:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for tick %d of %d", i+1, n)
		}
	}
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Error("expected error without engine")
	}
	if _, err := New(Config{Engine: newCountingTicker(), Interval: -time.Second}); err == nil {
		t.Error("expected error for negative interval")
	}
}

func TestPoller_StartupTickOnly(t *testing.T) {
	c := newCountingTicker()
	p, err := New(Config{Engine: c})
	if err != nil {
		t.Fatal(err)
	}
	if err := p.Start(); err != nil {
		t.Fatal(err)
	}
	if err := p.Start(); err != nil {
		t.Fatalf("second Start should be a no-op: %v", err)
	}
	waitTicks(t, c, 1)

	time.Sleep(50 * time.Millisecond)
	p.Stop()
	if got := c.calls.Load(); got != 1 {
		t.Errorf("expected only the startup tick, got %d", got)
	}
}

func TestPoller_TriggerAndSchedule(t *testing.T) {
	c := newCountingTicker()
	p, _ := New(Config{Engine: c})
	if err := p.Start(); err != nil {
		t.Fatal(err)
	}
	defer p.Stop()
	waitTicks(t, c, 1)

	p.TriggerRefresh()
	waitTicks(t, c, 1)

	start := time.Now()
	p.ScheduleRefresh(30 * time.Millisecond)
	waitTicks(t, c, 1)
	if time.Since(start) < 30*time.Millisecond {
		t.Error("scheduled refresh fired early")
	}
}

type panickyTicker struct {
	*countingTicker
}

func (p panickyTicker) Tick(ctx context.Context) reconcile.Result {
	if p.calls.Add(1) == 1 {
		panic("tick exploded")
	}
	p.ticks <- struct{}{}
	return reconcile.Result{Outcome: reconcile.Applied}
}

func TestPoller_SurvivesPanickingTick(t *testing.T) {
	c := newCountingTicker()
	p, _ := New(Config{Engine: panickyTicker{c}})
	if err := p.Start(); err != nil {
		t.Fatal(err)
	}
	defer p.Stop()

	// Wait for the startup tick to panic before triggering.
	deadline := time.Now().Add(2 * time.Second)
	for c.calls.Load() < 1 || p.State() != StateIdle {
		if time.Now().After(deadline) {
			t.Fatal("startup tick never ran")
		}
		time.Sleep(time.Millisecond)
	}

	p.TriggerRefresh()
	waitTicks(t, c, 1)
	select {
	case <-p.Done():
		t.Fatal("loop exited after a panicking tick")
	default:
	}
	if p.State() == StateStopped {
		t.Error("poller stopped after a panicking tick")
	}
}

func TestPoller_Interval(t *testing.T) {
	c := newCountingTicker()
	p, _ := New(Config{Engine: c, Interval: 10 * time.Millisecond})
	if err := p.Start(); err != nil {
		t.Fatal(err)
	}
	defer p.Stop()
	waitTicks(t, c, 4)
}

func TestPoller_CoalescesTriggersDuringTick(t *testing.T) {
	c := newCountingTicker()
	c.block = make(chan struct{})
	p, _ := New(Config{Engine: c})
	if err := p.Start(); err != nil {
		t.Fatal(err)
	}
	defer p.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for p.State() != StateTicking {
		if time.Now().After(deadline) {
			t.Fatal("poller never started ticking")
		}
		time.Sleep(time.Millisecond)
	}
	for i := 0; i < 5; i++ {
		p.TriggerRefresh()
	}
	close(c.block)

	waitTicks(t, c, 2)
	time.Sleep(50 * time.Millisecond)
	if got := c.calls.Load(); got != 2 {
		t.Errorf("expected startup tick plus one coalesced follow-up, got %d", got)
	}
}

func TestPoller_ChangesChannel(t *testing.T) {
	c := newCountingTicker()
	changes := make(chan struct{})
	p, _ := New(Config{Engine: c, Changes: changes})
	if err := p.Start(); err != nil {
		t.Fatal(err)
	}
	defer p.Stop()
	waitTicks(t, c, 1)

	changes <- struct{}{}
	waitTicks(t, c, 1)

	close(changes)
	p.TriggerRefresh()
	waitTicks(t, c, 1)
}

func TestPoller_StopCancelsInFlight(t *testing.T) {
	c := newCountingTicker()
	c.block = make(chan struct{})
	p, _ := New(Config{Engine: c})
	if err := p.Start(); err != nil {
		t.Fatal(err)
	}

	stopped := make(chan struct{})
	go func() {
		p.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not cancel the blocked tick")
	}

	if p.State() != StateStopped {
		t.Errorf("state=%s", p.State())
	}
	if err := p.Start(); !errors.Is(err, ErrStopped) {
		t.Errorf("Start after Stop = %v", err)
	}
	p.Stop()
	p.TriggerRefresh()
	p.ScheduleRefresh(time.Millisecond)
}

func TestPoller_RunWithEngine(t *testing.T) {
	snap := model.JobSnapshot{{JobID: "a", Status: model.StatusCompleted}}
	var mu sync.Mutex
	var results []reconcile.Result

	engine := reconcile.New(fetchFunc(func(context.Context) (model.JobSnapshot, error) { return snap, nil }),
		nopTable{}, nopCharts{}, reconcile.Config{})
	p, _ := New(Config{Engine: engine, OnResult: func(r reconcile.Result) {
		mu.Lock()
		results = append(results, r)
		mu.Unlock()
	}})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for p.Ticks() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("no tick ran")
		}
		time.Sleep(time.Millisecond)
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatal(err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(results) == 0 || results[0].Outcome != reconcile.Applied || results[0].Jobs != 1 {
		t.Errorf("results=%+v", results)
	}
}

type fetchFunc func(context.Context) (model.JobSnapshot, error)

func (f fetchFunc) FetchSnapshot(ctx context.Context) (model.JobSnapshot, error) { return f(ctx) }

type nopTable struct{}

func (nopTable) RenderRows([]reconcile.TableRow) {}
func (nopTable) ShowNotice(reconcile.Notice)     {}

type nopCharts struct{}

func (nopCharts) NewChart(reconcile.ChartData) reconcile.Chart { return nopChart{} }

type nopChart struct{}

func (nopChart) Update(reconcile.ChartData) {}
