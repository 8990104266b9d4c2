package model

import "time"

type EventType string

const (
	EventProgress EventType = "progress"
	EventStep     EventType = "step"
	EventComplete EventType = "complete"
	EventError    EventType = "error"
	// EventSnapshot is sent once to a subscriber right after it connects
	EventSnapshot EventType = "snapshot"
	EventPing     EventType = "ping"
	EventPong     EventType = "pong"
)

// JobEvent is the single frame shape pushed to job subscribers. Only the
// fields relevant to Type are set.
type JobEvent struct {
	Type        EventType       `json:"type"`
	JobID       string          `json:"jobId,omitempty"`
	Progress    *int            `json:"progress,omitempty"`
	Status      JobStatus       `json:"status,omitempty"`
	CurrentStep string          `json:"currentStep,omitempty"`
	Index       *int            `json:"index,omitempty"`
	Step        *GenerationStep `json:"step,omitempty"`
	Result      interface{}     `json:"result,omitempty"`
	Error       *EventFailure   `json:"error,omitempty"`
	At          time.Time       `json:"at"`
}

type EventFailure struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
