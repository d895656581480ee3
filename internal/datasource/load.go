package datasource

import (
	"bytes"
	"fmt"

	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/qdash/pkg/model"
)

// wireJob mirrors model.Job with pointer fields so absent keys can be told
// apart from zero values.
type wireJob struct {
	JobID          *string `json:"job_id"`
	Status         *string `json:"status"`
	Backend        *string `json:"backend"`
	Qubits         *int    `json:"qubits"`
	Shots          *int    `json:"shots"`
	SubmissionTime *string `json:"submission_time"`
}

func (w wireJob) toJob(index int) (model.Job, error) {
	missing := func(field string) error {
		return fmt.Errorf("job %d: missing field %q", index, field)
	}
	switch {
	case w.JobID == nil:
		return model.Job{}, missing("job_id")
	case w.Status == nil:
		return model.Job{}, missing("status")
	case w.Backend == nil:
		return model.Job{}, missing("backend")
	case w.Qubits == nil:
		return model.Job{}, missing("qubits")
	case w.Shots == nil:
		return model.Job{}, missing("shots")
	case w.SubmissionTime == nil:
		return model.Job{}, missing("submission_time")
	}
	job := model.Job{
		JobID:          *w.JobID,
		Status:         model.Status(*w.Status),
		Backend:        *w.Backend,
		Qubits:         *w.Qubits,
		Shots:          *w.Shots,
		SubmissionTime: *w.SubmissionTime,
	}
	if err := job.Validate(); err != nil {
		return model.Job{}, fmt.Errorf("job %d: %w", index, err)
	}
	return job, nil
}

// DecodeSnapshot parses a JSON array of job records. One bad record fails
// the whole snapshot.
func DecodeSnapshot(data []byte) (model.JobSnapshot, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, fmt.Errorf("expected a JSON array of jobs")
	}

	var raw []wireJob
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, fmt.Errorf("decoding jobs: %w", err)
	}

	snapshot := make(model.JobSnapshot, 0, len(raw))
	for i, w := range raw {
		job, err := w.toJob(i)
		if err != nil {
			return nil, err
		}
		snapshot = append(snapshot, job)
	}
	return snapshot, nil
}
