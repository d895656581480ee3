package datasource

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/vanderheijden86/qdash/pkg/metrics"
	"github.com/vanderheijden86/qdash/pkg/model"
)

// SubmitPath returns the creation endpoint for kind.
func SubmitPath(kind model.JobKind) string {
	switch kind {
	case model.KindQueued:
		return "/submit_queued_job"
	case model.KindRejected:
		return "/submit_rejected_job"
	default:
		return "/submit_job"
	}
}

// Submitter posts job-creation requests. The response body is ignored; any
// 2xx acknowledges the submission.
type Submitter struct {
	baseURL string
	client  *http.Client
	log     logrus.FieldLogger
	metrics *metrics.Collectors
}

// NewSubmitter creates a submitter for the job queue at src. File sources
// cannot accept submissions.
func NewSubmitter(src DataSource, opts Options) (*Submitter, error) {
	if src.Type != SourceTypeHTTP {
		return nil, fmt.Errorf("%s: %w", src, ErrSubmitUnsupported)
	}
	return &Submitter{
		baseURL: src.BaseURL,
		client:  opts.httpClient(),
		log:     opts.logger().WithField("component", "submitter"),
		metrics: opts.Metrics,
	}, nil
}

// Submit sends one creation request for kind. Errors are *SubmissionError.
func (s *Submitter) Submit(ctx context.Context, kind model.JobKind) error {
	defer metrics.Timer(metrics.Submit)()

	endpoint := s.baseURL + SubmitPath(kind)
	requestID := uuid.NewString()
	log := s.log.WithFields(logrus.Fields{"kind": kind, "url": endpoint, "request_id": requestID})

	fail := func(status int, err error) error {
		s.metrics.Submission(kind, "error")
		log.WithField("status", status).WithError(err).Warn("submit_failed")
		return &SubmissionError{Kind: kind, Endpoint: endpoint, StatusCode: status, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader("{}"))
	if err != nil {
		return fail(0, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", requestID)

	resp, err := s.client.Do(req)
	if err != nil {
		return fail(0, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fail(resp.StatusCode, fmt.Errorf("unexpected status %s", resp.Status))
	}

	s.metrics.Submission(kind, "ok")
	log.Info("submit_ok")
	return nil
}
