package model

import "time"

// Image backend model names and their route keys
var ImageBackendModels = map[string]string{
	"Stable XL":                   "stable-xl",
	"Flux.1 Dev":                  "flux-dev",
	"Stable Diffusion 3.5 Large":  "stable-large",
	"Stable Diffusion 3.5 Medium": "stable-medium",
	"Stable Turbo":                "stable-turbo",
}

const DefaultImageBackendModel = "Stable Turbo"

// ImageBackendKey resolves a display name, falling back to Stable Turbo.
func ImageBackendKey(name string) string {
	if key, ok := ImageBackendModels[name]; ok {
		return key
	}
	return ImageBackendModels[DefaultImageBackendModel]
}

// ImageGenerateRequest is the body of POST /api/images/generate
type ImageGenerateRequest struct {
	Prompt      string `json:"prompt" validate:"required,min=10,max=1000"`
	Model       string `json:"model,omitempty"`
	AspectRatio string `json:"aspectRatio,omitempty" validate:"omitempty,oneof=1:1 16:9 9:16 3:4 4:3"`
	Quality     string `json:"quality,omitempty"`
	NumImages   int    `json:"numImages,omitempty" validate:"omitempty,min=1,max=4"`
}

// ImageGenerateResponse lists stored image URLs
type ImageGenerateResponse struct {
	Images     []string   `json:"images"`
	Model      string     `json:"model"`
	Dimensions Dimensions `json:"dimensions"`
}

// MusicGenerateRequest is the body of POST /api/music/generate
type MusicGenerateRequest struct {
	Prompt     string `json:"prompt" validate:"required,min=10,max=300"`
	Lyrics     string `json:"lyrics" validate:"required,min=10,max=600"`
	SampleRate int    `json:"sampleRate,omitempty" validate:"omitempty,oneof=16000 24000 32000 44100"`
	Bitrate    int    `json:"bitrate,omitempty" validate:"omitempty,oneof=32000 64000 128000 256000"`
	Format     string `json:"format,omitempty" validate:"omitempty,oneof=mp3 wav pcm"`
}

// MusicGenerateResponse points at the stored audio
type MusicGenerateResponse struct {
	AudioURL  string    `json:"audioUrl"`
	Format    string    `json:"format"`
	SizeBytes int       `json:"sizeBytes"`
	CreatedAt time.Time `json:"createdAt"`
}

// UploadResponse is returned after a reference image upload
type UploadResponse struct {
	URL         string    `json:"url"`
	Key         string    `json:"key"`
	ContentType string    `json:"contentType"`
	Size        int64     `json:"size"`
	UploadedAt  time.Time `json:"uploadedAt"`
}

// LibraryListResponse wraps a page of sets
type LibraryListResponse struct {
	Sets  []GeneratedSet `json:"sets"`
	Count int            `json:"count"`
}

// DeleteSetResponse reports the outcome of a set deletion
type DeleteSetResponse struct {
	Success       bool     `json:"success"`
	ID            string   `json:"id"`
	BlobsDeleted  int      `json:"blobsDeleted"`
	BlobsFailed   int      `json:"blobsFailed"`
	FailedBlobURL []string `json:"failedBlobUrls,omitempty"`
}

// CleanupResponse reports how many placeholder sets were removed
type CleanupResponse struct {
	Removed []string `json:"removed"`
	Count   int      `json:"count"`
}

// MigrationResponse reports a legacy URL migration pass
type MigrationResponse struct {
	Migrated int `json:"migrated"`
	Failed   int `json:"failed"`
	Skipped  int `json:"skipped"`
}
