// Package datasource talks to the remote job queue. It resolves the
// configured source, fetches job snapshots from it and posts job-creation
// requests. Every failure surfaces as a typed error so callers can recover
// at the component boundary.
package datasource

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vanderheijden86/qdash/internal/logging"
	"github.com/vanderheijden86/qdash/pkg/metrics"
	"github.com/vanderheijden86/qdash/pkg/model"
)

// SourceType identifies where snapshots come from.
type SourceType string

const (
	// SourceTypeHTTP is a job queue server reached over HTTP(S).
	SourceTypeHTTP SourceType = "http"
	// SourceTypeFile is a local JSON file holding one job array.
	SourceTypeFile SourceType = "file"
)

// JobsPath is the job-list endpoint relative to the base URL.
const JobsPath = "/get_jobs"

// DataSource is a resolved snapshot source.
type DataSource struct {
	Type SourceType `json:"type"`
	// BaseURL is set for HTTP sources, without a trailing slash.
	BaseURL string `json:"base_url,omitempty"`
	// Path is set for file sources.
	Path string `json:"path,omitempty"`
}

// String returns the form the source was configured with.
func (s DataSource) String() string {
	if s.Type == SourceTypeFile {
		return "file://" + s.Path
	}
	return s.BaseURL
}

// ParseSource resolves a configured source string. Bare host:port values are
// treated as http, file:// URLs and plain filesystem paths ending in .json as
// file sources.
func ParseSource(raw string) (DataSource, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DataSource{}, fmt.Errorf("empty source")
	}

	if strings.HasPrefix(raw, "file://") {
		path := strings.TrimPrefix(raw, "file://")
		if path == "" {
			return DataSource{}, fmt.Errorf("file source %q has no path", raw)
		}
		return DataSource{Type: SourceTypeFile, Path: filepath.Clean(path)}, nil
	}
	if !strings.Contains(raw, "://") && strings.HasSuffix(strings.ToLower(raw), ".json") {
		return DataSource{Type: SourceTypeFile, Path: filepath.Clean(raw)}, nil
	}

	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return DataSource{}, fmt.Errorf("invalid source %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return DataSource{}, fmt.Errorf("unsupported source scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return DataSource{}, fmt.Errorf("source %q has no host", raw)
	}
	u.RawQuery = ""
	u.Fragment = ""
	return DataSource{Type: SourceTypeHTTP, BaseURL: strings.TrimRight(u.String(), "/")}, nil
}

// Fetcher produces one job snapshot per call. Errors are always *FetchError.
type Fetcher interface {
	FetchSnapshot(ctx context.Context) (model.JobSnapshot, error)
}

// Options configures fetchers and submitters built by NewFetcher and
// NewSubmitter.
type Options struct {
	// Timeout bounds each request. Zero means DefaultTimeout.
	Timeout time.Duration
	// Client overrides the HTTP client, mainly for tests.
	Client *http.Client
	// Logger receives structured events. Nil discards them.
	Logger logrus.FieldLogger
	// Metrics records fetch durations and submission results. May be nil.
	Metrics *metrics.Collectors
}

// DefaultTimeout bounds requests when Options.Timeout is zero.
const DefaultTimeout = 10 * time.Second

func (o Options) httpClient() *http.Client {
	if o.Client != nil {
		return o.Client
	}
	timeout := o.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

func (o Options) logger() logrus.FieldLogger {
	if o.Logger != nil {
		return o.Logger
	}
	return logging.Discard()
}

// NewFetcher returns the Fetcher for src.
func NewFetcher(src DataSource, opts Options) (Fetcher, error) {
	switch src.Type {
	case SourceTypeHTTP:
		return NewHTTPFetcher(src.BaseURL, opts), nil
	case SourceTypeFile:
		return NewFileFetcher(src.Path, opts), nil
	default:
		return nil, fmt.Errorf("unknown source type %q", src.Type)
	}
}
