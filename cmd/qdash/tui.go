package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/vanderheijden86/qdash/internal/datasource"
	"github.com/vanderheijden86/qdash/internal/metricsserver"
	"github.com/vanderheijden86/qdash/pkg/config"
	"github.com/vanderheijden86/qdash/pkg/reconcile"
	"github.com/vanderheijden86/qdash/pkg/submit"
	"github.com/vanderheijden86/qdash/pkg/ui"
	"github.com/vanderheijden86/qdash/pkg/watcher"
)

func runTUI(cmd *cobra.Command, a *app) error {
	fetcher, err := a.fetcher()
	if err != nil {
		return err
	}
	sub, err := a.submitter()
	if err != nil {
		return err
	}

	a.redirectDebug()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	changes, stopWatch := a.watchSource()
	defer stopWatch()

	var p *tea.Program
	var uiSub ui.Submitter
	if sub != nil {
		trigger := submit.New(submit.Config{
			Submitter:    sub,
			Hooks:        ui.SubmitHooks(func(msg tea.Msg) { p.Send(msg) }),
			RefreshDelay: a.cfg.RefreshDelay.Std(),
			Logger:       a.log,
		})
		defer trigger.Cancel()
		uiSub = trigger
	}

	m := ui.NewModel(ui.Options{
		Fetcher:      fetcher,
		Submitter:    uiSub,
		Source:       a.src.String(),
		PollInterval: a.cfg.PollInterval.Std(),
		Changes:      changes,
		Legend:       a.cfg.UI.LegendEnabled(),
		ExportDir:    exportDir(),
		Theme:        ui.ForMode(lipgloss.DefaultRenderer(), a.cfg.UI.Theme),
		Engine:       reconcile.Config{Logger: a.log, Metrics: a.metrics},
		Context:      ctx,
	})

	p = tea.NewProgram(m, tea.WithAltScreen(), tea.WithoutSignalHandler())

	g, gctx := errgroup.WithContext(ctx)
	a.serveMetrics(gctx, g, m.Engine())
	g.Go(func() error {
		defer cancel()
		return runTUIProgram(gctx, p)
	})
	return g.Wait()
}

// runTUIProgram runs p until the user quits, ctx ends, or a signal arrives.
// A second signal, or five seconds without a clean exit, kills the program.
func runTUIProgram(ctx context.Context, p *tea.Program) error {
	runDone := make(chan struct{})
	defer close(runDone)

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-runDone:
			return
		case <-sigCh:
		case <-ctx.Done():
		}

		p.Quit()

		select {
		case <-runDone:
			return
		case <-sigCh:
		case <-time.After(5 * time.Second):
		}

		p.Kill()
	}()

	// Optional auto-quit for automated tests: set QDASH_TUI_AUTOCLOSE_MS.
	if v := os.Getenv("QDASH_TUI_AUTOCLOSE_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			go func() {
				timer := time.NewTimer(time.Duration(ms) * time.Millisecond)
				defer timer.Stop()
				select {
				case <-runDone:
				case <-timer.C:
					p.Quit()
				}
			}()
		}
	}

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) {
		return nil
	}
	return err
}

// watchSource starts a file watcher for file sources. The returned channel
// is nil for HTTP sources.
func (a *app) watchSource() (<-chan struct{}, func()) {
	if a.src.Type != datasource.SourceTypeFile {
		return nil, func() {}
	}
	w, err := watcher.New(a.src.Path, watcher.WithOnError(func(err error) {
		a.log.WithError(err).Warn("watch_error")
	}))
	if err == nil {
		err = w.Start()
	}
	if err != nil {
		a.log.WithError(err).Warn("watch_unavailable")
		return nil, func() {}
	}
	a.log.WithField("polling", w.IsPolling()).Debug("watch_start")
	return w.Changed(), w.Stop
}

// serveMetrics adds the metrics endpoint to g when an address is configured.
func (a *app) serveMetrics(ctx context.Context, g *errgroup.Group, engine *reconcile.Engine) {
	addr := a.cfg.Metrics.Addr
	if addr == "" {
		return
	}
	handler := metricsserver.NewRouter(a.metrics, engine.AppliedAt, a.log)
	g.Go(func() error {
		a.log.WithField("addr", addr).Info("metrics_listen")
		return metricsserver.Run(ctx, addr, handler)
	})
}

func exportDir() string {
	if dir := config.StateDir(); dir != "" {
		return dir
	}
	return "."
}
