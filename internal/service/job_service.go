package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/wildmind/studio-api/internal/model"
)

const (
	TaskTypeProject = "project:generate"
	TaskTypeVideo   = "video:generate"

	QueueProjects = "projects"
	QueueVideos   = "videos"

	jobTTL = 24 * time.Hour

	// WATCH retries before a contended job update gives up
	maxUpdateAttempts = 10
)

// JobService handles job records and queueing for project and video runs
type JobService struct {
	redis       *redis.Client
	asynqClient *asynq.Client
	inspector   *asynq.Inspector
	logger      *log.Entry
}

func NewJobService(redisClient *redis.Client, asynqClient *asynq.Client, inspector *asynq.Inspector) *JobService {
	return &JobService{
		redis:       redisClient,
		asynqClient: asynqClient,
		inspector:   inspector,
		logger:      log.WithField("component", "JobService"),
	}
}

// StartProject validates and queues a new project run
func (s *JobService) StartProject(ctx context.Context, req *model.ProjectStartRequest, userID string) (*model.ProjectStartResponse, error) {
	if err := ValidateProject(req); err != nil {
		return nil, err
	}

	steps := model.NewSteps(req.Category)
	job, err := s.enqueue(ctx, model.JobTypeProject, TaskTypeProject, QueueProjects, steps, &model.ProjectJobPayload{
		Request: *req,
		UserID:  userID,
	})
	if err != nil {
		return nil, err
	}

	return &model.ProjectStartResponse{
		JobID:     job.ID,
		Status:    job.Status,
		Steps:     len(steps),
		CreatedAt: job.CreatedAt,
	}, nil
}

// StartVideo queues a full submit, poll and download video flow
func (s *JobService) StartVideo(ctx context.Context, req *model.VideoGenerateRequest, userID string) (*model.VideoStartResponse, error) {
	if _, err := BuildVideoRequest(req); err != nil {
		return nil, err
	}

	job, err := s.enqueue(ctx, model.JobTypeVideo, TaskTypeVideo, QueueVideos, nil, &model.VideoJobPayload{
		Request: *req,
		UserID:  userID,
	})
	if err != nil {
		return nil, err
	}

	return &model.VideoStartResponse{
		JobID:     job.ID,
		Status:    job.Status,
		CreatedAt: job.CreatedAt,
	}, nil
}

func (s *JobService) enqueue(ctx context.Context, jobType, taskType, queue string, steps []model.GenerationStep, payload interface{}) (*model.Job, error) {
	jobID := uuid.New().String()

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	job := &model.Job{
		ID:        jobID,
		Type:      jobType,
		Status:    model.JobStatusQueued,
		Steps:     steps,
		Payload:   payloadBytes,
		CreatedAt: time.Now(),
	}

	if err := s.saveJob(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to save job: %w", err)
	}

	task, err := newJobTask(taskType, jobID, payloadBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	_, err = s.asynqClient.EnqueueContext(ctx, task,
		asynq.TaskID(jobID),
		asynq.Queue(queue),
		asynq.MaxRetry(0),
		asynq.Retention(jobTTL),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue task: %w", err)
	}

	s.logger.WithFields(log.Fields{"jobId": jobID, "type": jobType}).Info("job queued")
	return job, nil
}

// GetStatus returns the current status of a job with its steps
func (s *JobService) GetStatus(ctx context.Context, jobID string) (*model.ProjectStatusResponse, error) {
	job, err := s.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}

	resp := &model.ProjectStatusResponse{
		JobID:       job.ID,
		Status:      job.Status,
		Progress:    job.Progress,
		CurrentStep: job.CurrentStep,
		Steps:       job.Steps,
		Error:       job.Error,
		CreatedAt:   job.CreatedAt,
		StartedAt:   job.StartedAt,
		CompletedAt: job.CompletedAt,
	}
	if resp.Steps == nil {
		resp.Steps = []model.GenerationStep{}
	}

	if job.Type == model.JobTypeProject && len(job.Result) > 0 {
		var ref struct {
			ID string `json:"id"`
		}
		if json.Unmarshal(job.Result, &ref) == nil {
			resp.SetID = ref.ID
		}
	}

	return resp, nil
}

// GetProjectResult returns the GeneratedSet of a finished project job
func (s *JobService) GetProjectResult(ctx context.Context, jobID string) (*model.GeneratedSet, error) {
	var set model.GeneratedSet
	if err := s.getResult(ctx, jobID, &set); err != nil {
		return nil, err
	}
	return &set, nil
}

// GetVideoResult returns the result of a finished video job
func (s *JobService) GetVideoResult(ctx context.Context, jobID string) (*model.VideoResult, error) {
	var result model.VideoResult
	if err := s.getResult(ctx, jobID, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (s *JobService) getResult(ctx context.Context, jobID string, out interface{}) error {
	job, err := s.GetJob(ctx, jobID)
	if err != nil {
		return err
	}

	if job.Status != model.JobStatusSucceeded || len(job.Result) == 0 {
		return ErrJobNotCompleted
	}

	if err := json.Unmarshal(job.Result, out); err != nil {
		return fmt.Errorf("failed to unmarshal result: %w", err)
	}
	return nil
}

// Cancel marks a job canceled and stops its task. A running worker sees its
// context cancelled and stops before the next step.
func (s *JobService) Cancel(ctx context.Context, jobID string) (*model.CancelResponse, error) {
	job, err := s.updateJob(ctx, jobID, func(job *model.Job) (bool, error) {
		if job.IsFinished() {
			return false, ErrJobAlreadyFinished
		}
		job.Status = model.JobStatusCanceled
		now := time.Now()
		job.CompletedAt = &now
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	if s.inspector != nil {
		queue := QueueProjects
		if job.Type == model.JobTypeVideo {
			queue = QueueVideos
		}
		if err := s.inspector.DeleteTask(queue, jobID); err != nil && !errors.Is(err, asynq.ErrTaskNotFound) {
			s.logger.WithError(err).Debugf("task %s not deletable, cancelling processing", jobID)
		}
		if err := s.inspector.CancelProcessing(jobID); err != nil {
			s.logger.WithError(err).Warnf("failed to signal cancel for %s", jobID)
		}
	}

	return &model.CancelResponse{
		Success: true,
		JobID:   jobID,
		Status:  model.JobStatusCanceled,
	}, nil
}

// MarkRunning moves a queued job to running (called by worker)
func (s *JobService) MarkRunning(ctx context.Context, jobID string) (*model.Job, error) {
	return s.updateJob(ctx, jobID, func(job *model.Job) (bool, error) {
		if job.IsFinished() {
			return false, nil
		}
		now := time.Now()
		job.Status = model.JobStatusRunning
		job.StartedAt = &now
		return true, nil
	})
}

// UpdateStep stores one step transition and derives progress from the
// number of terminal steps (called by worker)
func (s *JobService) UpdateStep(ctx context.Context, jobID string, index int, step model.GenerationStep) (int, error) {
	job, err := s.updateJob(ctx, jobID, func(job *model.Job) (bool, error) {
		if job.IsFinished() {
			return false, nil
		}
		if index < 0 || index >= len(job.Steps) {
			return false, fmt.Errorf("step index %d out of range", index)
		}

		job.Steps[index] = step
		job.CurrentStep = step.Title

		done := 0
		for _, st := range job.Steps {
			if st.Status.IsTerminal() {
				done++
			}
		}
		// the last few percent are left for persistence
		job.Progress = done * 95 / len(job.Steps)

		if job.Status == model.JobStatusQueued {
			now := time.Now()
			job.Status = model.JobStatusRunning
			job.StartedAt = &now
		}
		return true, nil
	})
	if err != nil {
		return 0, err
	}
	return job.Progress, nil
}

// UpdateProgress updates job progress (called by worker)
func (s *JobService) UpdateProgress(ctx context.Context, jobID string, progress int, step string) error {
	_, err := s.updateJob(ctx, jobID, func(job *model.Job) (bool, error) {
		if job.IsFinished() {
			return false, nil
		}

		job.Progress = progress
		job.CurrentStep = step

		if job.Status == model.JobStatusQueued {
			job.Status = model.JobStatusRunning
			now := time.Now()
			job.StartedAt = &now
		}
		return true, nil
	})
	return err
}

// CompleteJob marks job as succeeded (called by worker)
func (s *JobService) CompleteJob(ctx context.Context, jobID string, result interface{}) error {
	resultBytes, err := json.Marshal(result)
	if err != nil {
		return err
	}

	_, err = s.updateJob(ctx, jobID, func(job *model.Job) (bool, error) {
		if job.IsFinished() {
			return false, nil
		}
		job.Status = model.JobStatusSucceeded
		job.Progress = 100
		job.Result = resultBytes
		now := time.Now()
		job.CompletedAt = &now
		return true, nil
	})
	return err
}

// FailJob marks job as failed and records the steps as they ended
// (called by worker)
func (s *JobService) FailJob(ctx context.Context, jobID string, errMsg string, steps []model.GenerationStep) error {
	_, err := s.updateJob(ctx, jobID, func(job *model.Job) (bool, error) {
		if job.IsFinished() {
			return false, nil
		}
		job.Status = model.JobStatusFailed
		job.Error = &errMsg
		if steps != nil {
			job.Steps = steps
		}
		now := time.Now()
		job.CompletedAt = &now
		return true, nil
	})
	return err
}

// updateJob applies fn to the stored job inside a WATCH transaction, so a
// write based on a stale read is retried against the fresh record instead
// of overwriting it. fn reports whether the job changed. The returned job
// is the record as stored after the update.
func (s *JobService) updateJob(ctx context.Context, jobID string, fn func(job *model.Job) (bool, error)) (*model.Job, error) {
	key := jobKey(jobID)
	var job *model.Job

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return ErrJobNotFound
		}
		if err != nil {
			return err
		}

		job = &model.Job{}
		if err := json.Unmarshal(data, job); err != nil {
			return err
		}

		changed, err := fn(job)
		if err != nil || !changed {
			return err
		}

		encoded, err := json.Marshal(job)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, encoded, jobTTL)
			return nil
		})
		return err
	}

	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		err := s.redis.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return job, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrJobConflict, jobID)
}

// GetJob loads a job record
func (s *JobService) GetJob(ctx context.Context, jobID string) (*model.Job, error) {
	data, err := s.redis.Get(ctx, jobKey(jobID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrJobNotFound
		}
		return nil, err
	}

	var job model.Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, err
	}

	return &job, nil
}

func (s *JobService) saveJob(ctx context.Context, job *model.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return s.redis.Set(ctx, jobKey(job.ID), data, jobTTL).Err()
}

func jobKey(jobID string) string {
	return fmt.Sprintf("job:%s", jobID)
}

func newJobTask(taskType, jobID string, payload []byte) (*asynq.Task, error) {
	taskPayload := map[string]interface{}{
		"jobId":   jobID,
		"payload": json.RawMessage(payload),
	}
	data, err := json.Marshal(taskPayload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(taskType, data), nil
}
