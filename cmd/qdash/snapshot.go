package main

import (
	"fmt"
	"io"
	"time"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/vanderheijden86/qdash/pkg/analysis"
	"github.com/vanderheijden86/qdash/pkg/metrics"
	"github.com/vanderheijden86/qdash/pkg/model"
	"github.com/vanderheijden86/qdash/pkg/reconcile"
	"github.com/vanderheijden86/qdash/pkg/ui"
)

// robotSnapshot is the machine-readable output of `qdash snapshot --json`.
type robotSnapshot struct {
	GeneratedAt  time.Time             `json:"generated_at"`
	Source       string                `json:"source"`
	Jobs         model.JobSnapshot     `json:"jobs"`
	Distribution []robotSlice          `json:"distribution"`
	Total        int                   `json:"total"`
	Error        string                `json:"error,omitempty"`
	Timings      []metrics.TimingStats `json:"timings,omitempty"`
}

type robotSlice struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
	Color  string `json:"color"`
}

func buildRobotSnapshot(source string, snap model.JobSnapshot, now time.Time) robotSnapshot {
	data := reconcile.NewChartData(analysis.Aggregate(snap))
	out := robotSnapshot{
		GeneratedAt:  now.UTC(),
		Source:       source,
		Jobs:         snap,
		Distribution: make([]robotSlice, data.Len()),
		Total:        data.Total(),
	}
	if out.Jobs == nil {
		out.Jobs = model.JobSnapshot{}
	}
	for i := range data.Labels {
		out.Distribution[i] = robotSlice{Status: data.Labels[i], Count: data.Values[i], Color: data.Colors[i]}
	}
	return out
}

func writeRobotJSON(w io.Writer, v robotSnapshot) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func snapshotCmd(flags *globalFlags) *cobra.Command {
	var (
		asJSON  bool
		timings bool
	)
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Fetch the job queue once and print it.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, flags, true, asJSON)
			if err != nil {
				return err
			}
			defer a.Close()

			fetcher, err := a.fetcher()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if !asJSON {
				engine := reconcile.New(fetcher, ui.NewPlainTable(out), ui.NewPlainChartSink(out), reconcile.Config{Logger: a.log})
				if res := engine.Tick(cmd.Context()); res.Outcome == reconcile.Failed {
					return fmt.Errorf("fetch failed: %w", res.Err)
				}
				return nil
			}

			if timings {
				metrics.SetEnabled(true)
			}
			snap, fetchErr := fetcher.FetchSnapshot(cmd.Context())
			robot := buildRobotSnapshot(a.src.String(), snap, time.Now())
			if fetchErr != nil {
				robot.Error = fetchErr.Error()
			}
			if timings {
				robot.Timings = metrics.AllTimingStats()
			}
			if err := writeRobotJSON(out, robot); err != nil {
				return err
			}
			if fetchErr != nil {
				return fmt.Errorf("fetch failed: %w", fetchErr)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print machine-readable JSON")
	cmd.Flags().BoolVar(&timings, "timings", false, "Include fetch and aggregate timings in JSON output")
	return cmd
}
