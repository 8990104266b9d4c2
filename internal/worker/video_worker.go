package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	log "github.com/sirupsen/logrus"

	"github.com/wildmind/studio-api/internal/model"
	"github.com/wildmind/studio-api/internal/service"
)

// VideoWorker runs the full submit, poll and download flow for queued videos
type VideoWorker struct {
	jobs   *service.JobService
	videos *service.VideoService
	hub    Broadcaster
	logger *log.Entry
}

// NewVideoWorker creates a new video worker
func NewVideoWorker(jobs *service.JobService, videos *service.VideoService, hub Broadcaster) *VideoWorker {
	return &VideoWorker{
		jobs:   jobs,
		videos: videos,
		hub:    hub,
		logger: log.WithField("component", "VideoWorker"),
	}
}

// ProcessTask handles video task processing
func (w *VideoWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload model.VideoJobPayload
	jobID, err := decodeTask(t, &payload)
	if err != nil {
		if jobID != "" {
			w.failJob(jobID, "Invalid payload")
		}
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	logger := w.logger.WithField("jobId", jobID)

	job, err := w.jobs.MarkRunning(ctx, jobID)
	if err != nil {
		return err
	}
	if job.Status == model.JobStatusCanceled {
		return nil
	}

	w.updateProgress(ctx, jobID, 5, "Submitting video task...")

	maxAttempts := w.videos.MaxAttempts()
	result, err := w.videos.Generate(ctx, &payload.Request, func(attempt int, status model.VideoTaskStatus) {
		progress := 10 + attempt*80/maxAttempts
		w.updateProgress(ctx, jobID, progress, fmt.Sprintf("Video %s", status))
	})
	if err != nil {
		if ctx.Err() != nil {
			if w.isCanceled(jobID) {
				logger.Info("Video job canceled")
				return nil
			}
			w.failJob(jobID, "Job interrupted")
			return err
		}
		code := "VIDEO_FAILED"
		if errors.Is(err, service.ErrPollExhausted) {
			code = "VIDEO_TIMEOUT"
		}
		w.failJobWithCode(jobID, code, err.Error())
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	if err := w.jobs.CompleteJob(ctx, jobID, result); err != nil {
		w.failJob(jobID, "Failed to save result")
		return err
	}

	w.hub.BroadcastComplete(jobID, result)
	logger.WithField("fileId", result.FileID).Info("Video job completed")
	return nil
}

func (w *VideoWorker) isCanceled(jobID string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	job, err := w.jobs.GetJob(ctx, jobID)
	return err == nil && job.Status == model.JobStatusCanceled
}

func (w *VideoWorker) updateProgress(ctx context.Context, jobID string, progress int, step string) {
	if err := w.jobs.UpdateProgress(ctx, jobID, progress, step); err != nil {
		w.logger.WithError(err).Warn("Failed to update progress")
	}
	w.hub.BroadcastProgress(jobID, progress, model.JobStatusRunning, step)
}

func (w *VideoWorker) failJob(jobID, errMsg string) {
	w.failJobWithCode(jobID, "VIDEO_FAILED", errMsg)
}

func (w *VideoWorker) failJobWithCode(jobID, code, errMsg string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := w.jobs.FailJob(ctx, jobID, errMsg, nil); err != nil {
		w.logger.WithError(err).Errorf("Failed to mark job %s as failed", jobID)
	}
	w.hub.BroadcastError(jobID, code, errMsg)
}
