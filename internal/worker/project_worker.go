package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	log "github.com/sirupsen/logrus"

	"github.com/wildmind/studio-api/internal/model"
	"github.com/wildmind/studio-api/internal/service"
	"github.com/wildmind/studio-api/internal/websocket"
)

// Broadcaster publishes job events to WebSocket subscribers
type Broadcaster interface {
	BroadcastProgress(jobID string, progress int, status model.JobStatus, step string)
	BroadcastStep(jobID string, index int, step model.GenerationStep)
	BroadcastComplete(jobID string, result interface{})
	BroadcastError(jobID string, code, message string)
}

var _ Broadcaster = (*websocket.Hub)(nil)

// ProjectWorker processes project generation jobs
type ProjectWorker struct {
	jobs   *service.JobService
	runner *service.ShotRunner
	hub    Broadcaster
	logger *log.Entry
}

// NewProjectWorker creates a new project worker
func NewProjectWorker(jobs *service.JobService, runner *service.ShotRunner, hub Broadcaster) *ProjectWorker {
	return &ProjectWorker{
		jobs:   jobs,
		runner: runner,
		hub:    hub,
		logger: log.WithField("component", "ProjectWorker"),
	}
}

type taskEnvelope struct {
	JobID   string          `json:"jobId"`
	Payload json.RawMessage `json:"payload"`
}

func decodeTask(t *asynq.Task, payload interface{}) (string, error) {
	var env taskEnvelope
	if err := json.Unmarshal(t.Payload(), &env); err != nil {
		return "", fmt.Errorf("failed to unmarshal task payload: %w", err)
	}
	if err := json.Unmarshal(env.Payload, payload); err != nil {
		return env.JobID, fmt.Errorf("failed to unmarshal job payload: %w", err)
	}
	return env.JobID, nil
}

// ProcessTask handles project task processing
func (w *ProjectWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload model.ProjectJobPayload
	jobID, err := decodeTask(t, &payload)
	if err != nil {
		if jobID != "" {
			w.failJob(jobID, "Invalid payload", nil)
		}
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	logger := w.logger.WithField("jobId", jobID)

	job, err := w.jobs.MarkRunning(ctx, jobID)
	if err != nil {
		return err
	}
	if job.Status == model.JobStatusCanceled {
		logger.Info("Job canceled before start")
		return nil
	}

	logger.Info("Starting project job")
	w.hub.BroadcastProgress(jobID, 0, model.JobStatusRunning, "Starting generation")

	result, err := w.runner.Run(ctx, &payload.Request, func(index int, step model.GenerationStep) {
		progress, uerr := w.jobs.UpdateStep(ctx, jobID, index, step)
		if uerr != nil {
			logger.WithError(uerr).Warn("Failed to update step")
		}
		w.hub.BroadcastStep(jobID, index, step)
		w.hub.BroadcastProgress(jobID, progress, model.JobStatusRunning, step.Title)
	})

	var steps []model.GenerationStep
	if result != nil {
		steps = result.Steps
	}

	switch {
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		if w.isCanceled(jobID) {
			logger.Info("Project job canceled")
			return nil
		}
		// the runner leaves unfinished steps as they were when ctx ended
		for _, i := range model.FailUnfinished(steps, "Job interrupted") {
			w.hub.BroadcastStep(jobID, i, steps[i])
		}
		w.failJob(jobID, "Job interrupted", steps)
		return err

	case err != nil:
		w.failJob(jobID, err.Error(), steps)
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	if result.Set.Failed {
		w.failJob(jobID, "No shot could be generated", result.Steps)
		logger.WithField("setId", result.Set.ID).Warn("Project job finished without images")
		return nil
	}

	if err := w.jobs.CompleteJob(ctx, jobID, result.Set); err != nil {
		w.failJob(jobID, "Failed to save result", result.Steps)
		return err
	}

	w.hub.BroadcastComplete(jobID, result.Set)
	logger.WithField("setId", result.Set.ID).Infof("Project job completed with %d images", len(result.Set.GeneratedImages))
	return nil
}

func (w *ProjectWorker) isCanceled(jobID string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	job, err := w.jobs.GetJob(ctx, jobID)
	return err == nil && job.Status == model.JobStatusCanceled
}

// failJob runs on a fresh context since the task context may already be done.
func (w *ProjectWorker) failJob(jobID, errMsg string, steps []model.GenerationStep) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := w.jobs.FailJob(ctx, jobID, errMsg, steps); err != nil {
		w.logger.WithError(err).Errorf("Failed to mark job %s as failed", jobID)
	}
	w.hub.BroadcastError(jobID, "GENERATION_FAILED", errMsg)
}
