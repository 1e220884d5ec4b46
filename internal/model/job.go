package model

import "time"

// JobStatus is the lifecycle state of a batch job.
type JobStatus string

const (
	JobStatusCreated   JobStatus = "created"
	JobStatusSubmitted JobStatus = "submitted"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// Terminal reports whether no further transitions are possible.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// CanTransition reports whether a job may move from s to next. Jobs move
// created -> submitted -> completed, and may fail from any non-terminal
// state.
func (s JobStatus) CanTransition(next JobStatus) bool {
	switch s {
	case JobStatusCreated:
		return next == JobStatusSubmitted || next == JobStatusFailed
	case JobStatusSubmitted:
		return next == JobStatusCompleted || next == JobStatusFailed
	}
	return false
}

// BatchJob records one submitted batch for resumption and auditing.
type BatchJob struct {
	ID            string    `json:"id"`
	Provider      string    `json:"provider"`
	Status        JobStatus `json:"status"`
	RemoteID      string    `json:"remote_id,omitempty"`
	InputFile     string    `json:"input_file"`
	InputFileID   string    `json:"input_file_id,omitempty"`
	OutputFile    string    `json:"output_file,omitempty"`
	TaskCount     int       `json:"task_count"`
	ResponseCount int       `json:"response_count"`
	Error         string    `json:"error,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
