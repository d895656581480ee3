// Package logging builds the structured event logger shared by the engine,
// poller, submit trigger and fetchers.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/vanderheijden86/qdash/pkg/config"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New returns a logger configured from cfg. The TUI owns the terminal, so
// unless cfg.File is set (or toStderr is true) events are discarded. json
// forces the JSON formatter regardless of cfg.Format, as robot output does.
// The returned Closer must be closed on shutdown.
func New(cfg config.LogConfig, toStderr, json bool) (*log.Logger, io.Closer, error) {
	logger := log.New()

	level := log.InfoLevel
	if cfg.Level != "" {
		parsed, err := log.ParseLevel(cfg.Level)
		if err != nil {
			return nil, nil, fmt.Errorf("log level: %w", err)
		}
		level = parsed
	}
	logger.SetLevel(level)

	if json || strings.EqualFold(cfg.Format, "json") {
		logger.SetFormatter(&log.JSONFormatter{
			FieldMap: log.FieldMap{log.FieldKeyMsg: "event"},
		})
	} else {
		logger.SetFormatter(&log.TextFormatter{FullTimestamp: true, DisableColors: cfg.File != ""})
	}

	var closer io.Closer = nopCloser{}
	switch {
	case cfg.File != "":
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
			return nil, nil, fmt.Errorf("creating log directory: %w", err)
		}
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("opening log file: %w", err)
		}
		logger.SetOutput(f)
		closer = f
	case toStderr:
		logger.SetOutput(os.Stderr)
	default:
		logger.SetOutput(io.Discard)
	}

	return logger, closer, nil
}

// Discard returns a logger that drops everything, for tests and library
// callers that pass no logger.
func Discard() *log.Logger {
	logger := log.New()
	logger.SetOutput(io.Discard)
	return logger
}
