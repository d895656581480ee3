package datasource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vanderheijden86/qdash/pkg/metrics"
	"github.com/vanderheijden86/qdash/pkg/model"
)

// maxBodyBytes caps how much of a job-list response is read.
const maxBodyBytes = 32 << 20

// HTTPFetcher fetches snapshots from GET <base>/get_jobs.
type HTTPFetcher struct {
	baseURL string
	client  *http.Client
	log     logrus.FieldLogger
	metrics *metrics.Collectors
}

// NewHTTPFetcher creates a fetcher for the job queue at baseURL.
func NewHTTPFetcher(baseURL string, opts Options) *HTTPFetcher {
	return &HTTPFetcher{
		baseURL: baseURL,
		client:  opts.httpClient(),
		log:     opts.logger().WithField("component", "fetcher"),
		metrics: opts.Metrics,
	}
}

// URL returns the job-list endpoint this fetcher polls.
func (f *HTTPFetcher) URL() string {
	return f.baseURL + JobsPath
}

// FetchSnapshot performs exactly one request. There are no retries.
func (f *HTTPFetcher) FetchSnapshot(ctx context.Context) (model.JobSnapshot, error) {
	defer metrics.Timer(metrics.Fetch)()
	start := time.Now()
	defer func() { f.metrics.FetchDuration(time.Since(start)) }()

	endpoint := f.URL()
	unreachable := func(status int, err error) error {
		f.log.WithFields(logrus.Fields{"url": endpoint, "status": status}).WithError(err).Warn("fetch_failed")
		return &FetchError{Kind: Unreachable, Source: endpoint, StatusCode: status, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, unreachable(0, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, unreachable(0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, unreachable(resp.StatusCode, fmt.Errorf("unexpected status %s", resp.Status))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return nil, unreachable(0, fmt.Errorf("reading body: %w", err))
	}
	if len(body) > maxBodyBytes {
		return nil, f.malformed(endpoint, errors.New("response body too large"))
	}

	snapshot, err := DecodeSnapshot(body)
	if err != nil {
		return nil, f.malformed(endpoint, err)
	}
	f.log.WithFields(logrus.Fields{"url": endpoint, "jobs": len(snapshot)}).Debug("fetch_ok")
	return snapshot, nil
}

func (f *HTTPFetcher) malformed(endpoint string, err error) error {
	f.log.WithField("url", endpoint).WithError(err).Warn("fetch_malformed")
	return &FetchError{Kind: Malformed, Source: endpoint, Err: err}
}
