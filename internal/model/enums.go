package model

// Category is the product family a project belongs to
type Category string

const (
	CategoryJewelry Category = "jewelry"
	CategoryFashion Category = "fashion"
	CategoryHome    Category = "home"
)

var ValidCategories = []Category{CategoryJewelry, CategoryFashion, CategoryHome}

// ShotType identifies one of the fixed shots of a project
type ShotType string

const (
	ShotClassic   ShotType = "classic"
	ShotProfile   ShotType = "profile"
	ShotLifestyle ShotType = "lifestyle"
	ShotFestive   ShotType = "festive"
	ShotArtistic  ShotType = "artistic"
)

// ShotOrder is the declaration order shots are generated in.
var ShotOrder = []ShotType{ShotClassic, ShotProfile, ShotLifestyle, ShotFestive, ShotArtistic}

// IsModelShot reports whether the shot features a human model.
func (s ShotType) IsModelShot() bool {
	return s == ShotClassic || s == ShotProfile || s == ShotLifestyle
}

// StepStatus is the lifecycle state of a GenerationStep
type StepStatus string

const (
	StepPending    StepStatus = "pending"
	StepGenerating StepStatus = "generating"
	StepComplete   StepStatus = "complete"
	StepError      StepStatus = "error"
)

// IsTerminal reports whether no further transition is expected.
func (s StepStatus) IsTerminal() bool {
	return s == StepComplete || s == StepError
}

// Job status
type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusSucceeded JobStatus = "succeeded"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCanceled  JobStatus = "canceled"
)

// BrandAesthetic tunes lighting and background wording
type BrandAesthetic string

const (
	AestheticLuxury BrandAesthetic = "luxury"
	AestheticCasual BrandAesthetic = "casual"
)

// Quality presets shared by image and video settings
type Quality string

const (
	QualitySD     Quality = "SD"
	QualityHD     Quality = "HD"
	QualityFullHD Quality = "FullHD"
	Quality2K     Quality = "2K"
	Quality4K     Quality = "4K"
)

// Video task status as reported by the provider
type VideoTaskStatus string

const (
	VideoStatusQueueing   VideoTaskStatus = "Queueing"
	VideoStatusPreparing  VideoTaskStatus = "Preparing"
	VideoStatusProcessing VideoTaskStatus = "Processing"
	VideoStatusSuccess    VideoTaskStatus = "Success"
	VideoStatusFail       VideoTaskStatus = "Fail"
)
