package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/vanderheijden86/qdash/internal/datasource"
	"github.com/vanderheijden86/qdash/internal/logging"
	"github.com/vanderheijden86/qdash/pkg/config"
	"github.com/vanderheijden86/qdash/pkg/debug"
	"github.com/vanderheijden86/qdash/pkg/metrics"
)

// globalFlags are shared by every subcommand. Only flags the user set
// override the config file and environment.
type globalFlags struct {
	configPath   string
	source       string
	pollInterval time.Duration
	httpTimeout  time.Duration
	logFile      string
	logFormat    string
	logLevel     string
	metricsAddr  string
	noLegend     bool
	debug        bool
}

func rootCmd() *cobra.Command {
	flags := &globalFlags{}
	cmd := &cobra.Command{
		Use:   "qdash",
		Short: "qdash shows a live dashboard of a quantum job queue.",
		Long: `qdash polls a job queue, renders its jobs as a table and a status donut,
and submits test jobs. Without a subcommand it starts the interactive
dashboard, or the plain-text watcher when stdout is not a terminal.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			interactive := term.IsTerminal(int(os.Stdout.Fd()))
			a, err := newApp(cmd, flags, !interactive, false)
			if err != nil {
				return err
			}
			defer a.Close()
			if !interactive {
				return runWatch(cmd, a)
			}
			return runTUI(cmd, a)
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "Config file (default $XDG_CONFIG_HOME/qdash/config.yaml)")
	pf.StringVarP(&flags.source, "source", "s", "", "Job queue base URL or file:// path")
	pf.DurationVar(&flags.pollInterval, "poll-interval", 0, "Poll continuously at this interval (0 polls only on demand)")
	pf.DurationVar(&flags.httpTimeout, "http-timeout", 0, "Timeout for each request to the job queue")
	pf.StringVar(&flags.logFile, "log-file", "", "Write structured events to this file")
	pf.StringVar(&flags.logFormat, "log-format", "", "Event log format: text or json")
	pf.StringVar(&flags.logLevel, "log-level", "", "Event log level")
	pf.StringVar(&flags.metricsAddr, "metrics-addr", "", "Serve /metrics and /healthz on this address")
	pf.BoolVar(&flags.noLegend, "no-legend", false, "Hide the chart legend")
	pf.BoolVar(&flags.debug, "debug", false, "Write debug messages (same as QDASH_DEBUG=1)")

	cmd.AddCommand(
		watchCmd(flags),
		snapshotCmd(flags),
		submitCmd(flags),
		exportChartCmd(flags),
		configCmd(flags),
		versionCmd(),
	)
	return cmd
}

// loadConfig layers defaults, the config file, QDASH_* variables and
// explicitly set flags, in that order.
func loadConfig(cmd *cobra.Command, flags *globalFlags) (config.Config, error) {
	if flags.debug {
		debug.SetEnabled(true)
	}
	path := flags.configPath
	if path == "" {
		path = config.ConfigPath()
	}

	var (
		cfg config.Config
		err error
	)
	if path == "" {
		cfg, err = config.Load()
	} else {
		cfg, err = config.LoadFrom(path)
	}
	if err != nil {
		return cfg, err
	}
	debug.Log("config loaded from %q", path)

	fs := cmd.Flags()
	if fs.Changed("source") {
		cfg.Source = flags.source
	}
	if fs.Changed("poll-interval") {
		cfg.PollInterval = config.Duration(flags.pollInterval)
	}
	if fs.Changed("http-timeout") {
		cfg.HTTPTimeout = config.Duration(flags.httpTimeout)
	}
	if fs.Changed("log-file") {
		cfg.Log.File = flags.logFile
	}
	if fs.Changed("log-format") {
		cfg.Log.Format = flags.logFormat
	}
	if fs.Changed("log-level") {
		cfg.Log.Level = flags.logLevel
	}
	if fs.Changed("metrics-addr") {
		cfg.Metrics.Addr = flags.metricsAddr
	}
	if flags.noLegend {
		legend := false
		cfg.UI.ChartLegend = &legend
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// app is the wiring shared by the commands: resolved config, source, event
// logger and optional Prometheus collectors.
type app struct {
	cfg     config.Config
	src     datasource.DataSource
	log     *logrus.Logger
	closer  io.Closer
	metrics *metrics.Collectors
}

// newApp resolves configuration and opens the event log. toStderr sends
// events to stderr when no log file is configured; headless commands use it,
// the TUI does not. robot forces JSON events.
func newApp(cmd *cobra.Command, flags *globalFlags, toStderr, robot bool) (*app, error) {
	cfg, err := loadConfig(cmd, flags)
	if err != nil {
		return nil, err
	}
	src, err := datasource.ParseSource(cfg.Source)
	if err != nil {
		return nil, err
	}
	logger, closer, err := logging.New(cfg.Log, toStderr, robot)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, src: src, log: logger, closer: closer}
	if cfg.Metrics.Addr != "" {
		a.metrics = metrics.NewCollectors()
	}
	logger.WithFields(logrus.Fields{
		"source":        src.String(),
		"poll_interval": cfg.PollInterval.Std().String(),
		"metrics_addr":  cfg.Metrics.Addr,
	}).Info("startup")
	return a, nil
}

func (a *app) options() datasource.Options {
	return datasource.Options{
		Timeout: a.cfg.HTTPTimeout.Std(),
		Logger:  a.log,
		Metrics: a.metrics,
	}
}

func (a *app) fetcher() (datasource.Fetcher, error) {
	return datasource.NewFetcher(a.src, a.options())
}

// submitter returns nil without error for sources that cannot accept
// submissions.
func (a *app) submitter() (*datasource.Submitter, error) {
	s, err := datasource.NewSubmitter(a.src, a.options())
	if errors.Is(err, datasource.ErrSubmitUnsupported) {
		return nil, nil
	}
	return s, err
}

// redirectDebug sends debug messages to the event log so they never paint
// over the alternate screen.
func (a *app) redirectDebug() {
	debug.SetOutput(a.log.Out)
}

func (a *app) Close() {
	if a.closer != nil {
		_ = a.closer.Close()
	}
}
