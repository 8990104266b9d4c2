package model

import "time"

// Job represents a background job in the system
type Job struct {
	ID          string           `json:"id"`
	Type        string           `json:"type"` // "project" or "video"
	Status      JobStatus        `json:"status"`
	Progress    int              `json:"progress"`
	CurrentStep string           `json:"currentStep,omitempty"`
	Steps       []GenerationStep `json:"steps,omitempty"`
	Error       *string          `json:"error,omitempty"`
	Payload     []byte           `json:"payload,omitempty"`
	Result      []byte           `json:"result,omitempty"`
	CreatedAt   time.Time        `json:"createdAt"`
	StartedAt   *time.Time       `json:"startedAt,omitempty"`
	CompletedAt *time.Time       `json:"completedAt,omitempty"`
}

// IsFinished reports whether the job reached a terminal status.
func (j *Job) IsFinished() bool {
	switch j.Status {
	case JobStatusSucceeded, JobStatusFailed, JobStatusCanceled:
		return true
	}
	return false
}

// Job types
const (
	JobTypeProject = "project"
	JobTypeVideo   = "video"
)

// ProjectJobPayload contains the data for a project job
type ProjectJobPayload struct {
	Request ProjectStartRequest `json:"request"`
	UserID  string              `json:"userId,omitempty"`
}

// VideoJobPayload contains the data for a queued video job
type VideoJobPayload struct {
	Request VideoGenerateRequest `json:"request"`
	UserID  string               `json:"userId,omitempty"`
}
