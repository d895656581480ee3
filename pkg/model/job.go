// Package model defines the job queue records observed by qdash.
package model

import (
	"fmt"
	"strings"
)

// Status is the categorical state of a job. It is an open enum: the remote
// queue may report values qdash has never seen, and those are kept verbatim.
type Status string

const (
	StatusCompleted Status = "Completed"
	StatusQueued    Status = "Queued"
	StatusRejected  Status = "Rejected"
)

// IsKnown reports whether s is one of the statuses qdash has a dedicated
// color and style for.
func (s Status) IsKnown() bool {
	switch s {
	case StatusCompleted, StatusQueued, StatusRejected:
		return true
	default:
		return false
	}
}

// Class returns the per-status style class, e.g. "status-completed".
// Unknown statuses get a class derived the same way.
func (s Status) Class() string {
	return "status-" + strings.ToLower(string(s))
}

// Job is an immutable record of one job as observed at fetch time.
type Job struct {
	JobID          string `json:"job_id"`
	Status         Status `json:"status"`
	Backend        string `json:"backend"`
	Qubits         int    `json:"qubits"`
	Shots          int    `json:"shots"`
	SubmissionTime string `json:"submission_time"` // Pre-formatted by the source; never parsed
}

// Validate checks the invariants every fetched record must hold. Empty
// strings are legal values; an empty status is shown and counted verbatim.
func (j Job) Validate() error {
	if j.Qubits < 0 {
		return fmt.Errorf("job %s: qubits must be non-negative, got %d", j.JobID, j.Qubits)
	}
	if j.Shots < 0 {
		return fmt.Errorf("job %s: shots must be non-negative, got %d", j.JobID, j.Shots)
	}
	return nil
}

// JobSnapshot is the full job list returned by one fetch, in source order.
// Nothing in qdash reorders it.
type JobSnapshot []Job

// Len returns the number of jobs in the snapshot.
func (s JobSnapshot) Len() int {
	return len(s)
}

// IsEmpty returns true if the snapshot has no jobs.
func (s JobSnapshot) IsEmpty() bool {
	return len(s) == 0
}

// Clone returns a copy that shares no backing array with s.
func (s JobSnapshot) Clone() JobSnapshot {
	if s == nil {
		return nil
	}
	out := make(JobSnapshot, len(s))
	copy(out, s)
	return out
}

// JobKind selects which remote creation endpoint a submission goes to.
type JobKind string

const (
	KindCompleted JobKind = "completed"
	KindQueued    JobKind = "queued"
	KindRejected  JobKind = "rejected"
)

// AllJobKinds lists the kinds in menu order.
func AllJobKinds() []JobKind {
	return []JobKind{KindCompleted, KindQueued, KindRejected}
}

// ParseJobKind accepts a kind name or its status spelling, case-insensitively.
func ParseJobKind(raw string) (JobKind, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "completed", "complete", "c":
		return KindCompleted, nil
	case "queued", "queue", "q":
		return KindQueued, nil
	case "rejected", "reject", "r":
		return KindRejected, nil
	default:
		return "", fmt.Errorf("unknown job kind %q (want completed, queued or rejected)", raw)
	}
}

// Status returns the status a job created with this kind starts in.
func (k JobKind) Status() Status {
	switch k {
	case KindQueued:
		return StatusQueued
	case KindRejected:
		return StatusRejected
	default:
		return StatusCompleted
	}
}

func (k JobKind) String() string {
	return string(k)
}
