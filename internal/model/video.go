package model

import (
	"strings"
	"time"
)

// VideoModel describes a provider video model. The catalog is read-only.
type VideoModel struct {
	ID                       string   `json:"id"`
	Name                     string   `json:"name"`
	Description              string   `json:"description"`
	Type                     string   `json:"type"`
	MaxDuration              int      `json:"maxDuration"`
	SupportedResolutions     []string `json:"supportedResolutions"`
	SupportedAspectRatios    []string `json:"supportedAspectRatios"`
	SupportedDurations       []int    `json:"supportedDurations"`
	SupportsFirstFrameImage  bool     `json:"supportsFirstFrameImage"`
	SupportsCameraMovements  bool     `json:"supportsCameraMovements"`
	SupportsSubjectReference bool     `json:"supportsSubjectReference"`
}

const (
	VideoModelHailuo02     = "MiniMax-Hailuo-02"
	VideoModelT2VDirector  = "T2V-01-Director"
	VideoModelI2VDirector  = "I2V-01-Director"
	VideoModelS2V          = "S2V-01"
	DefaultVideoModel      = VideoModelHailuo02
	DefaultVideoResolution = "768P"
)

var videoAspectRatios = []string{"1:1", "16:9", "9:16"}

var videoCatalog = []VideoModel{
	{
		ID:                      VideoModelHailuo02,
		Name:                    "MiniMax Hailuo 02",
		Description:             "High-quality video generation, 1080P, up to 10s",
		Type:                    "text-to-video",
		MaxDuration:             10,
		SupportedResolutions:    []string{"768P", "1080P"},
		SupportedAspectRatios:   videoAspectRatios,
		SupportedDurations:      []int{6, 10},
		SupportsFirstFrameImage: true,
	},
	{
		ID:                      VideoModelT2VDirector,
		Name:                    "T2V-01 Director",
		Description:             "Text to video with precise camera control, 25FPS",
		Type:                    "text-to-video",
		MaxDuration:             6,
		SupportedResolutions:    []string{"720P"},
		SupportedAspectRatios:   videoAspectRatios,
		SupportedDurations:      []int{6},
		SupportsCameraMovements: true,
	},
	{
		ID:                      VideoModelI2VDirector,
		Name:                    "I2V-01 Director",
		Description:             "Image to video with precise camera control, 25FPS",
		Type:                    "image-to-video",
		MaxDuration:             6,
		SupportedResolutions:    []string{"720P"},
		SupportedAspectRatios:   videoAspectRatios,
		SupportedDurations:      []int{6},
		SupportsFirstFrameImage: true,
		SupportsCameraMovements: true,
	},
	{
		ID:                       VideoModelS2V,
		Name:                     "S2V-01",
		Description:              "Subject reference video generation, 25FPS",
		Type:                     "subject-reference",
		MaxDuration:              6,
		SupportedResolutions:     []string{"768P", "1080P"},
		SupportedAspectRatios:    videoAspectRatios,
		SupportedDurations:       []int{6},
		SupportsSubjectReference: true,
	},
}

// VideoModels returns a copy of the catalog.
func VideoModels() []VideoModel {
	out := make([]VideoModel, len(videoCatalog))
	copy(out, videoCatalog)
	return out
}

// FindVideoModel looks a model up by id.
func FindVideoModel(id string) (VideoModel, bool) {
	for _, m := range videoCatalog {
		if m.ID == id {
			return m, true
		}
	}
	return VideoModel{}, false
}

// VideoResolution maps a quality preset to the resolution string sent upstream.
func VideoResolution(modelID, quality string) string {
	switch modelID {
	case VideoModelHailuo02, VideoModelS2V:
		switch strings.TrimSpace(quality) {
		case string(QualityFullHD), "Full HD", string(Quality2K), "1080P":
			return "1080P"
		}
		return "768P"
	case VideoModelT2VDirector, VideoModelI2VDirector:
		return "768P"
	}
	return DefaultVideoResolution
}

// CameraMovement is a bracketed instruction understood by Director models
type CameraMovement struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Instruction string `json:"instruction"`
}

var CameraMovements = []CameraMovement{
	{"truck-left", "Truck Left", "[Truck left]"},
	{"truck-right", "Truck Right", "[Truck right]"},
	{"pan-left", "Pan Left", "[Pan left]"},
	{"pan-right", "Pan Right", "[Pan right]"},
	{"push-in", "Push In", "[Push in]"},
	{"pull-out", "Pull Out", "[Pull out]"},
	{"pedestal-up", "Pedestal Up", "[Pedestal up]"},
	{"pedestal-down", "Pedestal Down", "[Pedestal down]"},
	{"tilt-up", "Tilt Up", "[Tilt up]"},
	{"tilt-down", "Tilt Down", "[Tilt down]"},
	{"zoom-in", "Zoom In", "[Zoom in]"},
	{"zoom-out", "Zoom Out", "[Zoom out]"},
	{"shake", "Shake", "[Shake]"},
	{"tracking", "Tracking Shot", "[Tracking shot]"},
	{"static", "Static Shot", "[Static shot]"},
}

// VideoGenerateRequest is the body of POST /api/video/generate
type VideoGenerateRequest struct {
	Model            string   `json:"model" validate:"omitempty,oneof=MiniMax-Hailuo-02 T2V-01-Director I2V-01-Director S2V-01"`
	Prompt           string   `json:"prompt" validate:"required,min=10,max=2000"`
	Duration         int      `json:"duration,omitempty" validate:"omitempty,min=1,max=10"`
	Quality          string   `json:"quality,omitempty"`
	AspectRatio      string   `json:"aspectRatio,omitempty" validate:"omitempty,oneof=1:1 16:9 9:16"`
	PromptOptimizer  *bool    `json:"promptOptimizer,omitempty"`
	FirstFrameImage  string   `json:"firstFrameImage,omitempty"`
	SubjectReference string   `json:"subjectReference,omitempty"`
	CameraMovements  []string `json:"cameraMovements,omitempty"`
}

// VideoGenerateResponse carries the provider task id
type VideoGenerateResponse struct {
	TaskID string `json:"task_id"`
}

// VideoStatusRequest is the body of POST /api/video/status
type VideoStatusRequest struct {
	TaskID string `json:"task_id" validate:"required"`
}

// VideoStatusResponse reports one poll
type VideoStatusResponse struct {
	Status VideoTaskStatus `json:"status"`
	FileID string          `json:"file_id,omitempty"`
}

// VideoDownloadRequest is the body of POST /api/video/download
type VideoDownloadRequest struct {
	FileID string `json:"file_id" validate:"required"`
}

// VideoDownloadResponse lists playable URLs
type VideoDownloadResponse struct {
	VideoURLs []string `json:"video_urls"`
}

// VideoResult is the result of a queued video job
type VideoResult struct {
	TaskID    string   `json:"taskId"`
	FileID    string   `json:"fileId"`
	VideoURLs []string `json:"videoUrls"`
	Stored    bool     `json:"stored"`
}

// VideoStartResponse is returned when a full video job is queued
type VideoStartResponse struct {
	JobID     string    `json:"jobId"`
	Status    JobStatus `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}
