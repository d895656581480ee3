package datasource

import (
	"errors"
	"fmt"

	"github.com/vanderheijden86/qdash/pkg/model"
)

// ErrSubmitUnsupported is returned by NewSubmitter for file sources.
var ErrSubmitUnsupported = errors.New("source does not accept job submissions")

// FetchErrorKind classifies snapshot failures.
type FetchErrorKind int

const (
	// Unreachable covers transport failures, timeouts and non-2xx responses.
	Unreachable FetchErrorKind = iota
	// Malformed means the body was not a valid job array.
	Malformed
)

func (k FetchErrorKind) String() string {
	switch k {
	case Unreachable:
		return "unreachable"
	case Malformed:
		return "malformed"
	default:
		return fmt.Sprintf("FetchErrorKind(%d)", int(k))
	}
}

// FetchError is returned by every Fetcher on failure.
type FetchError struct {
	Kind   FetchErrorKind
	Source string
	// StatusCode is the HTTP status for non-2xx responses, zero otherwise.
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: %s: HTTP %d", e.Source, e.Kind, e.StatusCode)
	}
	if e.Err == nil {
		return fmt.Sprintf("fetch %s: %s", e.Source, e.Kind)
	}
	return fmt.Sprintf("fetch %s: %s: %v", e.Source, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// SubmissionError is returned when a job-creation request fails.
type SubmissionError struct {
	Kind       model.JobKind
	Endpoint   string
	StatusCode int
	Err        error
}

func (e *SubmissionError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("submit %s job to %s: HTTP %d", e.Kind, e.Endpoint, e.StatusCode)
	}
	return fmt.Sprintf("submit %s job to %s: %v", e.Kind, e.Endpoint, e.Err)
}

func (e *SubmissionError) Unwrap() error { return e.Err }
