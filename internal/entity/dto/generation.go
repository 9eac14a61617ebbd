package dto

import (
	"time"

	"leelaaverse/internal/entity/common"
)

// GenerateImageRequest is the payload for starting an image generation.
type GenerateImageRequest struct {
	Prompt            string  `json:"prompt" binding:"required,max=2000"`
	SelectedModel     string  `json:"selectedModel"`
	AspectRatio       string  `json:"aspectRatio"`
	NumInferenceSteps int     `json:"numInferenceSteps" binding:"gte=0"`
	GuidanceScale     float64 `json:"guidanceScale" binding:"gte=0"`
	ClientID          string  `json:"clientId,omitempty" binding:"max=64"`
}

// GenerateImageResponse is returned once the job is accepted by the provider.
type GenerateImageResponse struct {
	Success        bool   `json:"success"`
	RequestID      string `json:"requestId"`
	AIGenerationID uint   `json:"aiGenerationId"`
	EstimatedTime  int    `json:"estimatedTime"`
	Status         string `json:"status"`
}

// GenerationStatusResponse reports the current phase of a job.
type GenerationStatusResponse struct {
	Success       bool     `json:"success"`
	Status        string   `json:"status"`
	ImageURL      string   `json:"imageUrl,omitempty"`
	Seed          *int64   `json:"seed,omitempty"`
	Prompt        string   `json:"prompt,omitempty"`
	QueuePosition *int     `json:"queuePosition,omitempty"`
	Logs          []string `json:"logs,omitempty"`
	Error         string   `json:"error,omitempty"`
	PostID        *uint    `json:"postId,omitempty"`
}

// GenerationItem is the history view of a generation record.
type GenerationItem struct {
	ID                uint       `json:"id"`
	RequestID         string     `json:"requestId"`
	Provider          string     `json:"provider"`
	Model             string     `json:"model"`
	Prompt            string     `json:"prompt"`
	AspectRatio       string     `json:"aspectRatio,omitempty"`
	NumInferenceSteps int        `json:"numInferenceSteps,omitempty"`
	GuidanceScale     float64    `json:"guidanceScale,omitempty"`
	Status            string     `json:"status"`
	ImageURL          string     `json:"imageUrl,omitempty"`
	Seed              *int64     `json:"seed,omitempty"`
	Error             string     `json:"error,omitempty"`
	PostID            *uint      `json:"postId,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
	CompletedAt       *time.Time `json:"completedAt,omitempty"`
}

// GenerationQuery lists a user's generation history.
type GenerationQuery struct {
	common.BaseParams
	Status string `json:"status" form:"status" query:"status"`
	UserID uint   `json:"-" form:"-" query:"-"`
}

// GenerationListResponse is the response for listing generations.
type GenerationListResponse struct {
	Success     bool             `json:"success"`
	Generations []GenerationItem `json:"generations"`
	Pagination  Pagination       `json:"pagination"`
}

// ModelInfo describes a selectable generation model.
type ModelInfo struct {
	ID                 string   `json:"id"`
	Name               string   `json:"name"`
	Provider           string   `json:"provider"`
	DefaultSteps       int      `json:"defaultSteps"`
	MaxSteps           int      `json:"maxSteps"`
	DefaultGuidance    float64  `json:"defaultGuidance"`
	AspectRatios       []string `json:"aspectRatios"`
	EstimatedSeconds   int      `json:"estimatedSeconds"`
	SupportsGuidance   bool     `json:"supportsGuidance"`
	CompletesImmediate bool     `json:"completesImmediately"`
}

// ModelListResponse is the response for listing models.
type ModelListResponse struct {
	Success bool        `json:"success"`
	Models  []ModelInfo `json:"models"`
}
