package llm

import (
	"context"
)

// Phase is the normalised lifecycle of a provider job.
type Phase string

const (
	PhaseQueued     Phase = "queued"
	PhaseProcessing Phase = "processing"
	PhaseCompleted  Phase = "completed"
	PhaseFailed     Phase = "failed"
)

// Terminal reports whether no further status change is expected.
func (p Phase) Terminal() bool {
	return p == PhaseCompleted || p == PhaseFailed
}

// Parameters are the generation parameters after clamping, exactly as sent to the provider.
type Parameters struct {
	AspectRatio       string
	ImageSize         string
	NumInferenceSteps int
	GuidanceScale     float64
}

// SubmitRequest describes a text-to-image job.
type SubmitRequest struct {
	Prompt      string
	Model       string
	AspectRatio string
	Steps       int
	Guidance    float64
}

// SubmitResult is returned once the provider accepted a job.
// Result is set only by synchronous drivers that finish inline.
type SubmitResult struct {
	JobID      string
	Provider   string
	Model      string
	Parameters Parameters
	Result     *Result
}

// StatusResult is a snapshot of a running job.
type StatusResult struct {
	Phase         Phase
	QueuePosition *int
	Logs          []string
	Error         string
}

// Result is the output of a completed job.
type Result struct {
	AssetURL string
	Seed     *int64
	Prompt   string
}

// Provider is a generation backend. Model selectors are the catalogue ids (e.g. flux-schnell).
type Provider interface {
	ID() string
	Models() []ModelSpec
	Submit(ctx context.Context, request SubmitRequest) (*SubmitResult, error)
	Status(ctx context.Context, model, jobID string) (*StatusResult, error)
	Result(ctx context.Context, model, jobID string) (*Result, error)
}
