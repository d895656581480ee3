package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/vanderheijden86/qdash/pkg/model"
	"github.com/vanderheijden86/qdash/pkg/reconcile"
	"github.com/vanderheijden86/qdash/pkg/submit"
	"github.com/vanderheijden86/qdash/pkg/ui"
)

func submitCmd(flags *globalFlags) *cobra.Command {
	var show bool
	cmd := &cobra.Command{
		Use:   "submit [completed|queued|rejected]",
		Short: "Submit one test job to the queue.",
		Long: `submit asks the job queue to create one job of the given kind. Without
an argument an interactive picker is shown. With --show the queue is polled
once after the refresh delay and printed.`,
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"completed", "queued", "rejected"},
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				kind model.JobKind
				err  error
			)
			if len(args) == 1 {
				kind, err = model.ParseJobKind(args[0])
			} else {
				kind, err = pickJobKind()
			}
			if err != nil {
				return err
			}

			a, err := newApp(cmd, flags, true, false)
			if err != nil {
				return err
			}
			defer a.Close()

			sub, err := a.submitter()
			if err != nil {
				return err
			}
			if sub == nil {
				return fmt.Errorf("%s does not accept job submissions", a.src)
			}

			refreshed := make(chan struct{}, 1)
			trigger := submit.New(submit.Config{
				Submitter:    sub,
				RefreshDelay: a.cfg.RefreshDelay.Std(),
				Logger:       a.log,
				Hooks: submit.Hooks{
					Refresh: func() { refreshed <- struct{}{} },
				},
			})
			defer trigger.Cancel()

			if err := trigger.Submit(cmd.Context(), kind); err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), submit.FailureText)
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Submitted %s job to %s\n", kind, a.src)
			if !show {
				return nil
			}
			return showAfterRefresh(cmd, a, refreshed)
		},
	}
	cmd.Flags().BoolVar(&show, "show", false, "Poll and print the queue after the refresh delay")
	return cmd
}

func showAfterRefresh(cmd *cobra.Command, a *app, refreshed <-chan struct{}) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), a.cfg.RefreshDelay.Std()+a.cfg.HTTPTimeout.Std()+time.Second)
	defer cancel()
	select {
	case <-refreshed:
	case <-ctx.Done():
		return ctx.Err()
	}

	fetcher, err := a.fetcher()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	engine := reconcile.New(fetcher, ui.NewPlainTable(out), ui.NewPlainChartSink(out), reconcile.Config{Logger: a.log})
	if res := engine.Tick(ctx); res.Outcome == reconcile.Failed {
		return fmt.Errorf("fetch failed: %w", res.Err)
	}
	return nil
}

func pickJobKind() (model.JobKind, error) {
	var kind model.JobKind
	options := make([]huh.Option[model.JobKind], 0, len(model.AllJobKinds()))
	for _, k := range model.AllJobKinds() {
		options = append(options, huh.NewOption(string(k.Status()), k))
	}
	err := huh.NewSelect[model.JobKind]().
		Title("Which kind of job should be submitted?").
		Options(options...).
		Value(&kind).
		Run()
	if errors.Is(err, huh.ErrUserAborted) {
		return "", errors.New("submission cancelled")
	}
	return kind, err
}
