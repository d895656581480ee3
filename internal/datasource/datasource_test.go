package datasource

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/vanderheijden86/qdash/pkg/model"
)

const threeJobs = `[
  {"job_id":"a","status":"Completed","backend":"ibmq_qasm_simulator","qubits":5,"shots":1024,"submission_time":"2024-05-01 10:00:00"},
  {"job_id":"b","status":"Queued","backend":"ibmq_qasm_simulator","qubits":3,"shots":512,"submission_time":"2024-05-01 10:01:00"},
  {"job_id":"c","status":"Completed","backend":"ibmq_lima","qubits":2,"shots":100,"submission_time":"2024-05-01 10:02:00"}
]`

func newJobsServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	r := chi.NewRouter()
	r.Get(JobsPath, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func requireFetchKind(t *testing.T, err error, want FetchErrorKind) *FetchError {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", want)
	}
	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected *FetchError, got %T: %v", err, err)
	}
	if fe.Kind != want {
		t.Fatalf("expected kind %s, got %s (%v)", want, fe.Kind, err)
	}
	return fe
}

func TestParseSource(t *testing.T) {
	tests := []struct {
		raw     string
		want    DataSource
		wantErr bool
	}{
		{raw: "http://localhost:5000", want: DataSource{Type: SourceTypeHTTP, BaseURL: "http://localhost:5000"}},
		{raw: "https://q.example.com/api/", want: DataSource{Type: SourceTypeHTTP, BaseURL: "https://q.example.com/api"}},
		{raw: "localhost:5000", want: DataSource{Type: SourceTypeHTTP, BaseURL: "http://localhost:5000"}},
		{raw: "file:///tmp/jobs.json", want: DataSource{Type: SourceTypeFile, Path: "/tmp/jobs.json"}},
		{raw: "testdata/jobs.json", want: DataSource{Type: SourceTypeFile, Path: "testdata/jobs.json"}},
		{raw: "", wantErr: true},
		{raw: "ftp://example.com", wantErr: true},
		{raw: "file://", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseSource(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestHTTPFetcher_Success(t *testing.T) {
	srv := newJobsServer(t, http.StatusOK, threeJobs)
	f := NewHTTPFetcher(srv.URL, Options{})

	snap, err := f.FetchSnapshot(context.Background())
	if err != nil {
		t.Fatalf("FetchSnapshot: %v", err)
	}
	if snap.Len() != 3 {
		t.Fatalf("expected 3 jobs, got %d", snap.Len())
	}
	if snap[0].JobID != "a" || snap[1].JobID != "b" || snap[2].JobID != "c" {
		t.Errorf("source order not preserved: %v", snap)
	}
	if snap[1].Status != model.StatusQueued || snap[0].Shots != 1024 {
		t.Errorf("fields not decoded: %+v", snap[1])
	}
}

func TestHTTPFetcher_EmptyArray(t *testing.T) {
	srv := newJobsServer(t, http.StatusOK, "[]")
	snap, err := NewHTTPFetcher(srv.URL, Options{}).FetchSnapshot(context.Background())
	if err != nil {
		t.Fatalf("FetchSnapshot: %v", err)
	}
	if !snap.IsEmpty() {
		t.Errorf("expected empty snapshot, got %d jobs", snap.Len())
	}
}

func TestHTTPFetcher_UnknownStatusAccepted(t *testing.T) {
	srv := newJobsServer(t, http.StatusOK, `[{"job_id":"p","status":"Pending","backend":"x","qubits":1,"shots":1,"submission_time":"t"}]`)
	snap, err := NewHTTPFetcher(srv.URL, Options{}).FetchSnapshot(context.Background())
	if err != nil {
		t.Fatalf("unknown status must not be rejected: %v", err)
	}
	if snap[0].Status != "Pending" {
		t.Errorf("status=%q", snap[0].Status)
	}
}

func TestDecodeSnapshot_EmptyStatusKept(t *testing.T) {
	body := `[
  {"job_id":"a","status":"","backend":"x","qubits":1,"shots":1,"submission_time":"t"},
  {"job_id":"","status":"Completed","backend":"x","qubits":1,"shots":1,"submission_time":"t"},
  {"job_id":"c","status":"","backend":"x","qubits":1,"shots":1,"submission_time":"t"}
]`
	snap, err := DecodeSnapshot([]byte(body))
	if err != nil {
		t.Fatalf("empty strings must not make the snapshot malformed: %v", err)
	}
	if snap.Len() != 3 {
		t.Fatalf("expected 3 jobs, got %d", snap.Len())
	}

	var dist model.StatusDistribution
	for _, j := range snap {
		dist.Add(j.Status)
	}
	if got := dist.Count(""); got != 2 {
		t.Errorf("empty status slice count=%d, want 2", got)
	}
	if got := dist.Count(model.StatusCompleted); got != 1 {
		t.Errorf("Completed count=%d, want 1", got)
	}
}

func TestHTTPFetcher_Non2xxIsUnreachable(t *testing.T) {
	srv := newJobsServer(t, http.StatusInternalServerError, "boom")
	_, err := NewHTTPFetcher(srv.URL, Options{}).FetchSnapshot(context.Background())
	fe := requireFetchKind(t, err, Unreachable)
	if fe.StatusCode != http.StatusInternalServerError {
		t.Errorf("status code=%d", fe.StatusCode)
	}
}

func TestHTTPFetcher_ConnectionRefusedIsUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewHTTPFetcher(url, Options{}).FetchSnapshot(context.Background())
	requireFetchKind(t, err, Unreachable)
}

func TestHTTPFetcher_TimeoutIsUnreachable(t *testing.T) {
	release := make(chan struct{})
	r := chi.NewRouter()
	r.Get(JobsPath, func(w http.ResponseWriter, req *http.Request) {
		select {
		case <-release:
		case <-req.Context().Done():
		}
	})
	srv := httptest.NewServer(r)
	defer srv.Close()
	defer close(release)

	f := NewHTTPFetcher(srv.URL, Options{Timeout: 50 * time.Millisecond})
	_, err := f.FetchSnapshot(context.Background())
	requireFetchKind(t, err, Unreachable)
}

func TestHTTPFetcher_Malformed(t *testing.T) {
	bodies := map[string]string{
		"not json":         "<html>oops</html>",
		"object":           `{"jobs":[]}`,
		"wrong type":       `[{"job_id":"a","status":"Completed","backend":"x","qubits":"five","shots":1,"submission_time":"t"}]`,
		"missing field":    `[{"job_id":"a","status":"Completed","backend":"x","qubits":5,"submission_time":"t"}]`,
		"negative shots":   `[{"job_id":"a","status":"Completed","backend":"x","qubits":5,"shots":-1,"submission_time":"t"}]`,
		"null record":      `[null]`,
		"one bad of three": `[{"job_id":"a","status":"Completed","backend":"x","qubits":1,"shots":1,"submission_time":"t"},{"job_id":"b"},{"job_id":"c","status":"Queued","backend":"x","qubits":1,"shots":1,"submission_time":"t"}]`,
	}
	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			srv := newJobsServer(t, http.StatusOK, body)
			snap, err := NewHTTPFetcher(srv.URL, Options{}).FetchSnapshot(context.Background())
			requireFetchKind(t, err, Malformed)
			if snap != nil {
				t.Errorf("expected no partial snapshot, got %d jobs", snap.Len())
			}
		})
	}
}

func TestFileFetcher(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "jobs.json")
	f := NewFileFetcher(path, Options{})

	_, err := f.FetchSnapshot(context.Background())
	requireFetchKind(t, err, Unreachable)

	if err := os.WriteFile(path, []byte(threeJobs), 0o644); err != nil {
		t.Fatal(err)
	}
	snap, err := f.FetchSnapshot(context.Background())
	if err != nil {
		t.Fatalf("FetchSnapshot: %v", err)
	}
	if snap.Len() != 3 {
		t.Errorf("expected 3 jobs, got %d", snap.Len())
	}

	if err := os.WriteFile(path, []byte("{"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err = f.FetchSnapshot(context.Background())
	requireFetchKind(t, err, Malformed)
}

func TestNewFetcher(t *testing.T) {
	f, err := NewFetcher(DataSource{Type: SourceTypeFile, Path: "x.json"}, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := f.(*FileFetcher); !ok {
		t.Errorf("expected *FileFetcher, got %T", f)
	}
	if _, err := NewFetcher(DataSource{Type: "carrier-pigeon"}, Options{}); err == nil {
		t.Error("expected error for unknown source type")
	}
}

type submitRecorder struct {
	mu       sync.Mutex
	paths    []string
	headers  []http.Header
	failWith int
}

func (s *submitRecorder) handler(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.paths = append(s.paths, r.URL.Path)
	s.headers = append(s.headers, r.Header.Clone())
	fail := s.failWith
	s.mu.Unlock()
	if fail != 0 {
		w.WriteHeader(fail)
		return
	}
	w.WriteHeader(http.StatusCreated)
	_, _ = w.Write([]byte(`{"job_id":"new"}`))
}

func newSubmitServer(t *testing.T, rec *submitRecorder) *httptest.Server {
	t.Helper()
	r := chi.NewRouter()
	r.Post("/submit_job", rec.handler)
	r.Post("/submit_queued_job", rec.handler)
	r.Post("/submit_rejected_job", rec.handler)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func TestSubmitter_Endpoints(t *testing.T) {
	rec := &submitRecorder{}
	srv := newSubmitServer(t, rec)

	sub, err := NewSubmitter(DataSource{Type: SourceTypeHTTP, BaseURL: srv.URL}, Options{})
	if err != nil {
		t.Fatal(err)
	}
	for _, kind := range model.AllJobKinds() {
		if err := sub.Submit(context.Background(), kind); err != nil {
			t.Fatalf("Submit(%s): %v", kind, err)
		}
	}

	want := []string{"/submit_job", "/submit_queued_job", "/submit_rejected_job"}
	if len(rec.paths) != len(want) {
		t.Fatalf("expected %d requests, got %v", len(want), rec.paths)
	}
	for i := range want {
		if rec.paths[i] != want[i] {
			t.Errorf("request %d went to %s, want %s", i, rec.paths[i], want[i])
		}
		if ct := rec.headers[i].Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type=%q", ct)
		}
		if _, err := uuid.Parse(rec.headers[i].Get("X-Request-ID")); err != nil {
			t.Errorf("X-Request-ID is not a uuid: %v", err)
		}
	}
}

func TestSubmitter_Failure(t *testing.T) {
	rec := &submitRecorder{failWith: http.StatusServiceUnavailable}
	srv := newSubmitServer(t, rec)

	sub, err := NewSubmitter(DataSource{Type: SourceTypeHTTP, BaseURL: srv.URL}, Options{})
	if err != nil {
		t.Fatal(err)
	}
	err = sub.Submit(context.Background(), model.KindRejected)
	var se *SubmissionError
	if !errors.As(err, &se) {
		t.Fatalf("expected *SubmissionError, got %T: %v", err, err)
	}
	if se.StatusCode != http.StatusServiceUnavailable || se.Kind != model.KindRejected {
		t.Errorf("unexpected error fields: %+v", se)
	}
}

func TestNewSubmitter_FileSourceRejected(t *testing.T) {
	if _, err := NewSubmitter(DataSource{Type: SourceTypeFile, Path: "jobs.json"}, Options{}); !errors.Is(err, ErrSubmitUnsupported) {
		t.Error("file sources should not accept submissions")
	}
}
