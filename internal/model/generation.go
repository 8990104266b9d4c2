package model

import (
	"strconv"
	"time"
)

// GenerationStep is one unit of work inside a project run
type GenerationStep struct {
	ID          string     `json:"id"`
	Type        ShotType   `json:"type"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      StepStatus `json:"status"`
	ImageURL    string     `json:"imageUrl,omitempty"`
	Prompt      string     `json:"prompt,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// GeneratedImage is one stored asset of a GeneratedSet
type GeneratedImage struct {
	ID          string   `json:"id"`
	URL         string   `json:"url"`
	Prompt      string   `json:"prompt"`
	Type        ShotType `json:"type"`
	Description string   `json:"description"`
}

// GeneratedSet is the persisted record of one project
type GeneratedSet struct {
	ID              string           `json:"id"`
	Category        Category         `json:"category"`
	OriginalImage   string           `json:"originalImage"`
	UserPrompt      string           `json:"userPrompt"`
	ItemType        string           `json:"itemType"`
	Dimensions      string           `json:"dimensions,omitempty"`
	ModelImage      string           `json:"modelImage,omitempty"`
	GeneratedImages []GeneratedImage `json:"generatedImages"`
	Model           string           `json:"model"`
	Timestamp       time.Time        `json:"timestamp"`
	// StoredInFirebase keeps its historical JSON name; it marks sets whose
	// assets all live in owned storage.
	StoredInFirebase bool `json:"storedInFirebase"`
	Failed           bool `json:"failed,omitempty"`
}

// ImageURLs returns every generated image URL.
func (s *GeneratedSet) ImageURLs() []string {
	urls := make([]string, 0, len(s.GeneratedImages))
	for _, img := range s.GeneratedImages {
		urls = append(urls, img.URL)
	}
	return urls
}

type shotCopy struct {
	title       string
	description string
}

var jewelryShots = map[ShotType]shotCopy{
	ShotClassic:   {"Model - Classic Elegance", "Professional model wearing the jewelry with elegant pose and studio lighting"},
	ShotProfile:   {"Model - Profile Showcase", "Side profile view of model highlighting jewelry details and craftsmanship"},
	ShotLifestyle: {"Model - Lifestyle Portrait", "Natural lifestyle shot with model in beautiful setting wearing the jewelry"},
	ShotFestive:   {"Product - Clean Studio", "Professional product photography with clean background and perfect lighting"},
	ShotArtistic:  {"Product - Artistic Detail", "Dramatic close-up product shot with artistic lighting and composition"},
}

var fashionShots = map[ShotType]shotCopy{
	ShotClassic:   {"Model - Fashion Portrait", "Professional model wearing/using the fashion item with elegant styling"},
	ShotProfile:   {"Model - Style Showcase", "Dynamic pose showcasing the fashion item in action or detailed view"},
	ShotLifestyle: {"Model - Lifestyle Scene", "Natural lifestyle shot with model in real-world setting using the fashion item"},
	ShotFestive:   {"Product - Cinematic Studio", "High-end cinematic product photography with dramatic lighting and composition"},
	ShotArtistic:  {"Product - Editorial Style", "Editorial fashion photography with artistic styling and premium presentation"},
}

// NewSteps returns the pending step list for a category in ShotOrder.
// Every category other than jewelry shares the fashion copy.
func NewSteps(category Category) []GenerationStep {
	copies := fashionShots
	if category == CategoryJewelry {
		copies = jewelryShots
	}

	steps := make([]GenerationStep, 0, len(ShotOrder))
	for i, shot := range ShotOrder {
		c := copies[shot]
		steps = append(steps, GenerationStep{
			ID:          strconv.Itoa(i + 1),
			Type:        shot,
			Title:       c.title,
			Description: c.description,
			Status:      StepPending,
		})
	}
	return steps
}

// FailUnfinished moves every step that is not complete or error to error
// with reason and returns the indexes it changed.
func FailUnfinished(steps []GenerationStep, reason string) []int {
	var changed []int
	for i := range steps {
		if steps[i].Status.IsTerminal() {
			continue
		}
		steps[i].Status = StepError
		steps[i].Error = reason
		changed = append(changed, i)
	}
	return changed
}

// ProjectStartRequest is the body of POST /api/projects/start
type ProjectStartRequest struct {
	Category       Category       `json:"category" validate:"required,oneof=jewelry fashion home"`
	OriginalImage  string         `json:"originalImage" validate:"required,url"`
	UserPrompt     string         `json:"userPrompt" validate:"required,min=10,max=500"`
	ItemType       string         `json:"itemType" validate:"required,max=60"`
	Dimensions     string         `json:"dimensions,omitempty" validate:"max=60"`
	ModelImage     string         `json:"modelImage,omitempty" validate:"omitempty,url"`
	Model          string         `json:"model,omitempty" validate:"omitempty,oneof=flux-kontext-pro flux-kontext-max"`
	BrandAesthetic BrandAesthetic `json:"brandAesthetic,omitempty" validate:"omitempty,oneof=luxury casual"`
}

// ProjectStartResponse is returned when a project job is queued
type ProjectStartResponse struct {
	JobID     string    `json:"jobId"`
	Status    JobStatus `json:"status"`
	Steps     int       `json:"steps"`
	CreatedAt time.Time `json:"createdAt"`
}

// ProjectStatusResponse reports a project job with its steps
type ProjectStatusResponse struct {
	JobID       string           `json:"jobId"`
	Status      JobStatus        `json:"status"`
	Progress    int              `json:"progress"`
	CurrentStep string           `json:"currentStep,omitempty"`
	Steps       []GenerationStep `json:"steps"`
	SetID       string           `json:"setId,omitempty"`
	Error       *string          `json:"error,omitempty"`
	CreatedAt   time.Time        `json:"createdAt"`
	StartedAt   *time.Time       `json:"startedAt,omitempty"`
	CompletedAt *time.Time       `json:"completedAt,omitempty"`
}

// CancelResponse is returned by cancel endpoints
type CancelResponse struct {
	Success bool      `json:"success"`
	JobID   string    `json:"jobId"`
	Status  JobStatus `json:"status"`
}
