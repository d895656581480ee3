package datasource

import (
	"context"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/vanderheijden86/qdash/pkg/metrics"
	"github.com/vanderheijden86/qdash/pkg/model"
)

// FileFetcher reads snapshots from a local JSON file, for offline replay and
// demos. The file is re-read on every call.
type FileFetcher struct {
	path string
	log  logrus.FieldLogger
}

// NewFileFetcher creates a fetcher reading path.
func NewFileFetcher(path string, opts Options) *FileFetcher {
	return &FileFetcher{
		path: path,
		log:  opts.logger().WithField("component", "fetcher"),
	}
}

// Path returns the file being read.
func (f *FileFetcher) Path() string {
	return f.path
}

// FetchSnapshot reads and decodes the file.
func (f *FileFetcher) FetchSnapshot(ctx context.Context) (model.JobSnapshot, error) {
	defer metrics.Timer(metrics.Fetch)()

	if err := ctx.Err(); err != nil {
		return nil, &FetchError{Kind: Unreachable, Source: f.path, Err: err}
	}

	data, err := os.ReadFile(f.path)
	if err != nil {
		f.log.WithField("path", f.path).WithError(err).Warn("fetch_failed")
		return nil, &FetchError{Kind: Unreachable, Source: f.path, Err: err}
	}

	snapshot, err := DecodeSnapshot(data)
	if err != nil {
		f.log.WithField("path", f.path).WithError(err).Warn("fetch_malformed")
		return nil, &FetchError{Kind: Malformed, Source: f.path, Err: err}
	}
	return snapshot, nil
}
