package service

import "errors"

var (
	ErrJobNotFound        = errors.New("job not found")
	ErrJobNotCompleted    = errors.New("job not completed")
	ErrJobAlreadyFinished = errors.New("job already finished")
	ErrJobConflict        = errors.New("job record kept changing during update")

	ErrPromptTooShort   = errors.New("prompt must be at least 10 characters")
	ErrPromptTooLong    = errors.New("prompt exceeds maximum length")
	ErrMissingReference = errors.New("reference image is required")
	ErrInvalidCategory  = errors.New("invalid category")
	ErrRunAborted       = errors.New("generation run aborted")

	ErrVideoFailed   = errors.New("video generation failed")
	ErrPollExhausted = errors.New("video status polling exhausted")
	ErrInvalidModel  = errors.New("unsupported model option")

	ErrHostNotAllowed  = errors.New("host not allowed")
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrFileTooLarge    = errors.New("file too large")
)
