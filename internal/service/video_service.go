package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/wildmind/studio-api/internal/client"
	"github.com/wildmind/studio-api/internal/metrics"
	"github.com/wildmind/studio-api/internal/model"
	"github.com/wildmind/studio-api/internal/storage"
)

const (
	DefaultPollInterval    = 5 * time.Second
	DefaultMaxPollAttempts = 60

	defaultVideoDuration = 6
	maxCameraMovements   = 3
)

// PollObserver is told about every status answer while polling
type PollObserver func(attempt int, status model.VideoTaskStatus)

// VideoService drives the submit, poll and download video protocol
type VideoService struct {
	provider    client.VideoProvider
	rehoster    AssetRehoster
	interval    time.Duration
	maxAttempts int
	metrics     *metrics.Metrics
	logger      *log.Entry

	sleep func(ctx context.Context, d time.Duration) error
}

func NewVideoService(provider client.VideoProvider, rehoster AssetRehoster, interval time.Duration, maxAttempts int, m *metrics.Metrics) *VideoService {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxPollAttempts
	}
	return &VideoService{
		provider:    provider,
		rehoster:    rehoster,
		interval:    interval,
		maxAttempts: maxAttempts,
		metrics:     m,
		logger:      log.WithField("component", "VideoService"),
		sleep:       sleepContext,
	}
}

// BuildVideoRequest turns an API request into the provider payload, applying
// the model catalog constraints.
func BuildVideoRequest(req *model.VideoGenerateRequest) (*client.VideoRequest, error) {
	modelID := req.Model
	if modelID == "" {
		modelID = model.DefaultVideoModel
	}
	vm, ok := model.FindVideoModel(modelID)
	if !ok {
		return nil, fmt.Errorf("%w: unknown video model %q", ErrInvalidModel, modelID)
	}

	prompt := strings.TrimSpace(req.Prompt)
	if len([]rune(prompt)) < MinPromptLength {
		return nil, ErrPromptTooShort
	}

	duration := req.Duration
	if duration == 0 {
		duration = defaultVideoDuration
	}
	if !containsInt(vm.SupportedDurations, duration) {
		return nil, fmt.Errorf("%w: %s supports durations %v", ErrInvalidModel, vm.ID, vm.SupportedDurations)
	}

	resolution := model.VideoResolution(vm.ID, req.Quality)
	if resolution == "1080P" && duration > 6 {
		return nil, fmt.Errorf("%w: 1080P is limited to 6 second clips", ErrInvalidModel)
	}

	if len(req.CameraMovements) > 0 {
		if !vm.SupportsCameraMovements {
			return nil, fmt.Errorf("%w: %s does not support camera movements", ErrInvalidModel, vm.ID)
		}
		instructions, err := cameraInstruction(req.CameraMovements)
		if err != nil {
			return nil, err
		}
		prompt = instructions + " " + prompt
	}

	out := &client.VideoRequest{
		Model:           vm.ID,
		Prompt:          prompt,
		Duration:        duration,
		Resolution:      resolution,
		PromptOptimizer: req.PromptOptimizer == nil || *req.PromptOptimizer,
	}

	if req.AspectRatio != "" && vm.ID != model.VideoModelS2V {
		out.AspectRatio = req.AspectRatio
	}

	if req.FirstFrameImage != "" {
		if !vm.SupportsFirstFrameImage {
			return nil, fmt.Errorf("%w: %s does not accept a first frame image", ErrInvalidModel, vm.ID)
		}
		out.FirstFrameImage = req.FirstFrameImage
	}
	if vm.ID == model.VideoModelI2VDirector && out.FirstFrameImage == "" {
		return nil, fmt.Errorf("%w: %s requires a first frame image", ErrInvalidModel, vm.ID)
	}

	if req.SubjectReference != "" {
		if !vm.SupportsSubjectReference {
			return nil, fmt.Errorf("%w: %s does not accept a subject reference", ErrInvalidModel, vm.ID)
		}
		out.SubjectReference = []client.SubjectReference{{Type: "character", Image: []string{req.SubjectReference}}}
	}
	if vm.SupportsSubjectReference && len(out.SubjectReference) == 0 {
		return nil, fmt.Errorf("%w: %s requires a subject reference", ErrInvalidModel, vm.ID)
	}

	return out, nil
}

func cameraInstruction(ids []string) (string, error) {
	if len(ids) > maxCameraMovements {
		return "", fmt.Errorf("%w: at most %d camera movements", ErrInvalidModel, maxCameraMovements)
	}
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		found := false
		for _, cm := range model.CameraMovements {
			if cm.ID == id {
				parts = append(parts, strings.Trim(cm.Instruction, "[]"))
				found = true
				break
			}
		}
		if !found {
			return "", fmt.Errorf("%w: unknown camera movement %q", ErrInvalidModel, id)
		}
	}
	return "[" + strings.Join(parts, ",") + "]", nil
}

// Submit starts a video task and returns its task id
func (s *VideoService) Submit(ctx context.Context, req *model.VideoGenerateRequest) (string, error) {
	payload, err := BuildVideoRequest(req)
	if err != nil {
		return "", err
	}

	taskID, err := s.provider.SubmitVideo(ctx, payload)
	if err != nil {
		return "", fmt.Errorf("video submit failed: %w", err)
	}

	s.logger.WithFields(log.Fields{"taskId": taskID, "model": payload.Model, "resolution": payload.Resolution}).Info("video task submitted")
	return taskID, nil
}

// Status performs a single status query
func (s *VideoService) Status(ctx context.Context, taskID string) (*model.VideoStatusResponse, error) {
	st, err := s.provider.QueryVideo(ctx, taskID)
	if err != nil {
		return nil, err
	}
	return &model.VideoStatusResponse{
		Status: model.VideoTaskStatus(st.Status),
		FileID: st.FileID,
	}, nil
}

// PollStatus queries the task once per interval until it succeeds, fails or
// the attempt limit is reached. Query errors count as attempts.
func (s *VideoService) PollStatus(ctx context.Context, taskID string, observe PollObserver) (string, error) {
	logger := s.logger.WithField("taskId", taskID)

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		st, err := s.provider.QueryVideo(ctx, taskID)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			s.countPoll("error")
			logger.WithError(err).Warnf("status query %d/%d failed", attempt, s.maxAttempts)

		case model.VideoTaskStatus(st.Status) == model.VideoStatusSuccess:
			s.countPoll("success")
			if observe != nil {
				observe(attempt, model.VideoStatusSuccess)
			}
			if st.FileID == "" {
				return "", fmt.Errorf("%w: success without file_id", ErrVideoFailed)
			}
			logger.Infof("video ready after %d attempts", attempt)
			return st.FileID, nil

		case model.VideoTaskStatus(st.Status) == model.VideoStatusFail:
			s.countPoll("fail")
			if observe != nil {
				observe(attempt, model.VideoStatusFail)
			}
			return "", ErrVideoFailed

		default:
			s.countPoll("pending")
			if observe != nil {
				observe(attempt, model.VideoTaskStatus(st.Status))
			}
			logger.Debugf("status %s (%d/%d)", st.Status, attempt, s.maxAttempts)
		}

		if attempt < s.maxAttempts {
			if err := s.sleep(ctx, s.interval); err != nil {
				return "", err
			}
		}
	}

	return "", fmt.Errorf("%w after %d attempts", ErrPollExhausted, s.maxAttempts)
}

// Download resolves a file id and re-hosts the video. The provider URL is
// returned when re-hosting fails.
func (s *VideoService) Download(ctx context.Context, fileID string) (*model.VideoDownloadResponse, bool, error) {
	url, err := s.provider.RetrieveFile(ctx, fileID)
	if err != nil {
		return nil, false, fmt.Errorf("video retrieve failed: %w", err)
	}

	if s.rehoster == nil {
		return &model.VideoDownloadResponse{VideoURLs: []string{url}}, false, nil
	}

	owned, err := s.rehoster.Rehost(ctx, url, storage.FolderGeneratedVideos, fmt.Sprintf("video_%s.mp4", fileID))
	if err != nil {
		s.logger.WithError(err).Warnf("keeping provider url for file %s", fileID)
		return &model.VideoDownloadResponse{VideoURLs: []string{url}}, false, nil
	}
	return &model.VideoDownloadResponse{VideoURLs: []string{owned}}, true, nil
}

// Generate runs the whole flow: submit, poll, then download.
func (s *VideoService) Generate(ctx context.Context, req *model.VideoGenerateRequest, observe PollObserver) (*model.VideoResult, error) {
	taskID, err := s.Submit(ctx, req)
	if err != nil {
		return nil, err
	}

	fileID, err := s.PollStatus(ctx, taskID, observe)
	if err != nil {
		return nil, err
	}

	dl, stored, err := s.Download(ctx, fileID)
	if err != nil {
		return nil, err
	}

	return &model.VideoResult{
		TaskID:    taskID,
		FileID:    fileID,
		VideoURLs: dl.VideoURLs,
		Stored:    stored,
	}, nil
}

func (s *VideoService) countPoll(result string) {
	if s.metrics != nil {
		s.metrics.PollAttemptsTotal.WithLabelValues(result).Inc()
	}
}

func containsInt(values []int, v int) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}

// MaxAttempts returns the polling attempt limit.
func (s *VideoService) MaxAttempts() int {
	return s.maxAttempts
}
