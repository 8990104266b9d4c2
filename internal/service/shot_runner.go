package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/wildmind/studio-api/internal/client"
	"github.com/wildmind/studio-api/internal/metrics"
	"github.com/wildmind/studio-api/internal/model"
	"github.com/wildmind/studio-api/internal/storage"
	"github.com/wildmind/studio-api/internal/store"
)

const (
	MinPromptLength = 10
	MaxPromptLength = 500

	DefaultStepDelay = 3 * time.Second
)

// StepObserver receives a copy of a step every time it changes
type StepObserver func(index int, step model.GenerationStep)

// RunResult is the outcome of one project run
type RunResult struct {
	Steps []model.GenerationStep
	Set   *model.GeneratedSet
}

// ShotRunner generates the fixed shot list of a project one step at a time
type ShotRunner struct {
	generator client.ImageGenerator
	rehoster  AssetRehoster
	sets      store.SetRepository
	delay     time.Duration
	metrics   *metrics.Metrics
	logger    *log.Entry

	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time
}

// ShotRunnerOption customizes a ShotRunner
type ShotRunnerOption func(*ShotRunner)

// WithSleep replaces the inter-step wait.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) ShotRunnerOption {
	return func(r *ShotRunner) { r.sleep = fn }
}

// WithClock replaces the time source used for timestamps.
func WithClock(fn func() time.Time) ShotRunnerOption {
	return func(r *ShotRunner) { r.now = fn }
}

func NewShotRunner(generator client.ImageGenerator, rehoster AssetRehoster, sets store.SetRepository, delay time.Duration, m *metrics.Metrics, opts ...ShotRunnerOption) *ShotRunner {
	if delay < 0 {
		delay = DefaultStepDelay
	}
	r := &ShotRunner{
		generator: generator,
		rehoster:  rehoster,
		sets:      sets,
		delay:     delay,
		metrics:   m,
		logger:    log.WithField("component", "ShotRunner"),
		sleep:     sleepContext,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ValidateProject checks the inputs a run needs before any network call.
func ValidateProject(req *model.ProjectStartRequest) error {
	n := utf8.RuneCountInString(strings.TrimSpace(req.UserPrompt))
	if n < MinPromptLength {
		return ErrPromptTooShort
	}
	if n > MaxPromptLength {
		return ErrPromptTooLong
	}
	if strings.TrimSpace(req.OriginalImage) == "" {
		return ErrMissingReference
	}
	valid := false
	for _, c := range model.ValidCategories {
		if req.Category == c {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("%w: %q", ErrInvalidCategory, req.Category)
	}
	if req.Model != "" && req.Model != client.FluxModelPro && req.Model != client.FluxModelMax {
		return fmt.Errorf("%w: %q", ErrInvalidModel, req.Model)
	}
	return nil
}

// Run generates every shot in order, then persists one GeneratedSet holding
// the completed shots. A cancelled ctx stops the run without persisting.
func (r *ShotRunner) Run(ctx context.Context, req *model.ProjectStartRequest, onStep StepObserver) (result *RunResult, err error) {
	if err := ValidateProject(req); err != nil {
		return nil, err
	}
	if onStep == nil {
		onStep = func(int, model.GenerationStep) {}
	}

	steps := model.NewSteps(req.Category)
	result = &RunResult{Steps: steps}

	logger := r.logger.WithFields(log.Fields{"category": req.Category, "itemType": req.ItemType})

	defer func() {
		if rec := recover(); rec != nil {
			logger.Errorf("run panicked: %v", rec)
			err = fmt.Errorf("%w: %v", ErrRunAborted, rec)
		}
		if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			r.abortSteps(steps, err, onStep)
		}
	}()

	images := make([]model.GeneratedImage, 0, len(steps))
	allOwned := true

	for i := range steps {
		if err := ctx.Err(); err != nil {
			logger.Info("run cancelled before step ", steps[i].ID)
			return result, err
		}

		step := &steps[i]
		step.Status = model.StepGenerating
		step.Prompt = BuildShotPrompt(PromptInput{
			Shot:           step.Type,
			Category:       req.Category,
			ItemType:       req.ItemType,
			Description:    req.UserPrompt,
			Dimensions:     req.Dimensions,
			BrandAesthetic: req.BrandAesthetic,
			HasModelImage:  req.ModelImage != "",
		})
		onStep(i, *step)

		url, owned, genErr := r.generate(ctx, logger, req, step)
		if ctx.Err() != nil {
			logger.Infof("run cancelled during step %s", step.ID)
			return result, ctx.Err()
		}

		if genErr != nil {
			step.Status = model.StepError
			step.Error = genErr.Error()
			logger.WithError(genErr).Warnf("step %s (%s) failed", step.ID, step.Type)
			r.countShot(step.Type, "error")
		} else {
			step.Status = model.StepComplete
			step.ImageURL = url
			allOwned = allOwned && owned
			images = append(images, model.GeneratedImage{
				ID:          uuid.New().String(),
				URL:         url,
				Prompt:      step.Prompt,
				Type:        step.Type,
				Description: step.Description,
			})
			logger.Infof("step %s (%s) complete", step.ID, step.Type)
			r.countShot(step.Type, "complete")
		}
		onStep(i, *step)

		if i < len(steps)-1 {
			if err := r.sleep(ctx, r.delay); err != nil {
				return result, err
			}
		}
	}

	if err := ctx.Err(); err != nil {
		return result, err
	}

	set := &model.GeneratedSet{
		Category:         req.Category,
		OriginalImage:    req.OriginalImage,
		UserPrompt:       req.UserPrompt,
		ItemType:         req.ItemType,
		Dimensions:       req.Dimensions,
		ModelImage:       req.ModelImage,
		GeneratedImages:  images,
		Model:            modelOrDefault(req.Model),
		Timestamp:        r.now().UTC(),
		StoredInFirebase: len(images) > 0 && allOwned,
		Failed:           len(images) == 0,
	}
	if err := r.sets.Save(ctx, set); err != nil {
		return result, fmt.Errorf("failed to persist generated set: %w", err)
	}
	result.Set = set

	kind := "complete"
	switch {
	case len(images) == 0:
		kind = "failed"
	case len(images) < len(steps):
		kind = "partial"
	}
	if r.metrics != nil {
		r.metrics.SetsPersistedTotal.WithLabelValues(kind).Inc()
	}
	logger.WithField("setId", set.ID).Infof("run finished: %d/%d shots", len(images), len(steps))

	return result, nil
}

// generate runs one shot and returns the image URL and whether it lives in
// owned storage.
func (r *ShotRunner) generate(ctx context.Context, logger *log.Entry, req *model.ProjectStartRequest, step *model.GenerationStep) (string, bool, error) {
	fluxReq := &client.FluxRequest{
		Model:            req.Model,
		Prompt:           step.Prompt,
		InputImage:       req.OriginalImage,
		AspectRatio:      "1:1",
		OutputFormat:     "png",
		PromptUpsampling: true,
		SafetyTolerance:  2,
	}
	if step.Type.IsModelShot() && req.ModelImage != "" {
		fluxReq.ModelReferenceImage = req.ModelImage
	}

	gen, err := r.generator.Generate(ctx, fluxReq)
	if err != nil {
		return "", false, err
	}

	if r.rehoster == nil {
		return gen.URL, false, nil
	}
	name := fmt.Sprintf("%s-%s.jpg", req.Category, step.Type)
	owned, err := r.rehoster.Rehost(ctx, gen.URL, storage.FolderGeneratedImages, name)
	if err != nil {
		logger.WithError(err).Warnf("keeping provider url for step %s", step.ID)
		return gen.URL, false, nil
	}
	return owned, true, nil
}

// abortSteps moves every non-terminal step to error.
func (r *ShotRunner) abortSteps(steps []model.GenerationStep, cause error, onStep StepObserver) {
	for _, i := range model.FailUnfinished(steps, cause.Error()) {
		onStep(i, steps[i])
	}
}

func (r *ShotRunner) countShot(shot model.ShotType, status string) {
	if r.metrics != nil {
		r.metrics.ShotsTotal.WithLabelValues(string(shot), status).Inc()
	}
}

func modelOrDefault(m string) string {
	if m == "" {
		return client.FluxModelPro
	}
	return m
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
