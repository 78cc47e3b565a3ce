package domain

import "time"

// JobStatus captures lifecycle state for a host job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "PENDING"
	JobStatusRunning   JobStatus = "RUNNING"
	JobStatusCompleted JobStatus = "COMPLETED"
	JobStatusFailed    JobStatus = "FAILED"
)

// Job mirrors a persisted host job.
type Job struct {
	ID             string     `json:"id"`
	Operation      string     `json:"operation"`
	SpaceID        string     `json:"space_id"`
	WorkbookID     string     `json:"workbook_id"`
	Status         JobStatus  `json:"status"`
	Progress       int        `json:"progress"`
	Info           *string    `json:"info,omitempty"`
	OutcomeMessage *string    `json:"outcome_message,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
}

// JobContext is what a job-ready event carries.
type JobContext struct {
	JobID      string `json:"jobId"`
	WorkbookID string `json:"workbookId"`
	SpaceID    string `json:"spaceId"`
}

// JobOutcome is the final, user visible result of a job.
type JobOutcome struct {
	Message string `json:"message"`
}

// JobUpdate is the payload of ack, progress, complete and fail calls.
type JobUpdate struct {
	Progress *int        `json:"progress,omitempty"`
	Info     string      `json:"info,omitempty"`
	Outcome  *JobOutcome `json:"outcome,omitempty"`
}
