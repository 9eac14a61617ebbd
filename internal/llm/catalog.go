package llm

import (
	"fmt"
	"strings"
)

const (
	DefaultModel = "flux-schnell"

	minGuidance = 1.0
	maxGuidance = 20.0

	falFallbackImageSize = "square_hd"
)

// ModelSpec describes one selectable model and its parameter bounds.
type ModelSpec struct {
	ID               string  `json:"id"`
	Name             string  `json:"name"`
	Description      string  `json:"description,omitempty"`
	Provider         string  `json:"provider"`
	Endpoint         string  `json:"-"`
	DefaultSteps     int     `json:"defaultSteps"`
	MaxSteps         int     `json:"maxSteps"`
	DefaultGuidance  float64 `json:"defaultGuidance"`
	SupportsGuidance bool    `json:"supportsGuidance"`
	EstimatedSeconds int     `json:"estimatedSeconds"`
	Synchronous      bool    `json:"synchronous"`
}

var falModels = []ModelSpec{
	{
		ID:               "flux-schnell",
		Name:             "FLUX.1 [schnell]",
		Description:      "快速出图, 最多 12 步",
		Provider:         ProviderFal,
		Endpoint:         "fal-ai/flux/schnell",
		DefaultSteps:     4,
		MaxSteps:         12,
		DefaultGuidance:  3.5,
		SupportsGuidance: true,
		EstimatedSeconds: 10,
	},
	{
		ID:               "flux-dev",
		Name:             "FLUX.1 [dev]",
		Description:      "高质量出图",
		Provider:         ProviderFal,
		Endpoint:         "fal-ai/flux/dev",
		DefaultSteps:     28,
		MaxSteps:         50,
		DefaultGuidance:  3.5,
		SupportsGuidance: true,
		EstimatedSeconds: 30,
	},
}

var volcengineModels = []ModelSpec{
	{
		ID:               "seedream-4",
		Name:             "Doubao Seedream 4.0",
		Description:      "火山引擎图像生成模型",
		Provider:         ProviderVolcengine,
		Endpoint:         "doubao-seedream-4-0-250828",
		EstimatedSeconds: 20,
		Synchronous:      true,
	},
}

// FAL image_size tokens
var falImageSizes = map[string]string{
	"1:1":  "square_hd",
	"4:3":  "landscape_4_3",
	"3:4":  "portrait_4_3",
	"16:9": "landscape_16_9",
	"9:16": "portrait_16_9",
}

// AspectRatios lists the supported aspect ratios in display order.
func AspectRatios() []string {
	return []string{"1:1", "4:3", "3:4", "16:9", "9:16"}
}

// FalImageSize maps an aspect ratio to the FAL size token. Unknown ratios fall back to square_hd.
func FalImageSize(aspectRatio string) string {
	if size, ok := falImageSizes[strings.TrimSpace(aspectRatio)]; ok {
		return size
	}
	return falFallbackImageSize
}

// ClampSteps returns the model default for non-positive values and caps the rest at MaxSteps.
func (m ModelSpec) ClampSteps(steps int) int {
	if steps <= 0 {
		return m.DefaultSteps
	}
	if m.MaxSteps > 0 && steps > m.MaxSteps {
		return m.MaxSteps
	}
	return steps
}

// ClampGuidance keeps guidance inside [1, 20]; zero means the model default.
func (m ModelSpec) ClampGuidance(guidance float64) float64 {
	if !m.SupportsGuidance {
		return 0
	}
	if guidance <= 0 {
		guidance = m.DefaultGuidance
	}
	if guidance < minGuidance {
		return minGuidance
	}
	if guidance > maxGuidance {
		return maxGuidance
	}
	return guidance
}

func normaliseAspectRatio(aspectRatio string) string {
	trimmed := strings.TrimSpace(aspectRatio)
	if _, ok := falImageSizes[trimmed]; ok {
		return trimmed
	}
	return "1:1"
}

func lookupModel(models []ModelSpec, id string) (ModelSpec, error) {
	id = strings.TrimSpace(id)
	for _, m := range models {
		if m.ID == id {
			return m, nil
		}
	}
	return ModelSpec{}, fmt.Errorf("%w: %q", ErrUnsupportedModel, id)
}
