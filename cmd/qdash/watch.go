package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/vanderheijden86/qdash/pkg/poller"
	"github.com/vanderheijden86/qdash/pkg/reconcile"
	"github.com/vanderheijden86/qdash/pkg/ui"
)

func watchCmd(flags *globalFlags) *cobra.Command {
	var plain bool
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Poll the job queue and print each render.",
		Long: `watch runs the same poll loop as the dashboard. With --plain, or when
stdout is not a terminal, every render is printed as a text table followed
by the status distribution.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			interactive := !plain && term.IsTerminal(int(os.Stdout.Fd()))
			a, err := newApp(cmd, flags, !interactive, false)
			if err != nil {
				return err
			}
			defer a.Close()
			if interactive {
				return runTUI(cmd, a)
			}
			return runWatch(cmd, a)
		},
	}
	cmd.Flags().BoolVar(&plain, "plain", false, "Print plain text instead of starting the dashboard")
	return cmd
}

// runWatch drives the engine with the headless poller. Without a poll
// interval or a watched file there is nothing to wait for, so it renders once
// and returns.
func runWatch(cmd *cobra.Command, a *app) error {
	fetcher, err := a.fetcher()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	engine := reconcile.New(fetcher, ui.NewPlainTable(out), ui.NewPlainChartSink(out), reconcile.Config{
		Logger:  a.log,
		Metrics: a.metrics,
	})

	changes, stopWatch := a.watchSource()
	defer stopWatch()

	if a.cfg.PollInterval <= 0 && changes == nil && a.cfg.Metrics.Addr == "" {
		res := engine.Tick(cmd.Context())
		if res.Outcome == reconcile.Failed {
			return fmt.Errorf("fetch failed: %w", res.Err)
		}
		return nil
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p, err := poller.New(poller.Config{
		Engine:   engine,
		Interval: a.cfg.PollInterval.Std(),
		Changes:  changes,
		Logger:   a.log,
	})
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	a.serveMetrics(gctx, g, engine)
	g.Go(func() error {
		return p.Run(gctx)
	})
	return g.Wait()
}
