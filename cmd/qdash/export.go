package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/vanderheijden86/qdash/pkg/analysis"
	"github.com/vanderheijden86/qdash/pkg/export"
	"github.com/vanderheijden86/qdash/pkg/reconcile"
)

func exportChartCmd(flags *globalFlags) *cobra.Command {
	var (
		format string
		title  string
	)
	cmd := &cobra.Command{
		Use:   "export-chart <path>",
		Short: "Fetch the job queue once and save the status donut as SVG or PNG.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, flags, true, false)
			if err != nil {
				return err
			}
			defer a.Close()

			fetcher, err := a.fetcher()
			if err != nil {
				return err
			}
			snap, err := fetcher.FetchSnapshot(cmd.Context())
			if err != nil {
				return fmt.Errorf("%s: %w", reconcile.FailureText, err)
			}

			path, err := export.SaveChartSnapshot(export.ChartSnapshotOptions{
				Path:        args[0],
				Format:      format,
				Title:       title,
				Source:      a.src.String(),
				Data:        reconcile.NewChartData(analysis.Aggregate(snap)),
				Legend:      a.cfg.UI.LegendEnabled(),
				GeneratedAt: time.Now(),
			})
			if err != nil {
				return err
			}
			a.log.WithField("path", path).Info("chart_exported")
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "", "Image format: svg or png (default from the file extension)")
	cmd.Flags().StringVar(&title, "title", "", "Chart title")
	return cmd
}
