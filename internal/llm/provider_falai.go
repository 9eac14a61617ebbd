package llm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"leelaaverse/internal/config"
	"leelaaverse/internal/metrics"

	"github.com/goccy/go-json"
	"github.com/sirupsen/logrus"
)

const (
	ProviderFal = "fal"

	falDefaultQueueBaseURL = "https://queue.fal.run"
	falMaxResponseBytes    = 4 << 20
)

// FalAI drives the fal.ai queue API: submit, then status and result by request id.
type FalAI struct {
	apiKey     string
	baseURL    string
	webhookURL string
	httpClient *http.Client
	models     []ModelSpec
	breaker    *breaker
}

func NewFalAI(cfg config.Config) (*FalAI, error) {
	apiKey := strings.TrimSpace(cfg.FalAPIKey)
	if apiKey == "" {
		return nil, errors.New("fal.ai api key is not configured")
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.FalQueueBaseURL), "/")
	if baseURL == "" {
		baseURL = falDefaultQueueBaseURL
	}
	timeout := cfg.ProviderTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &FalAI{
		apiKey:     apiKey,
		baseURL:    baseURL,
		webhookURL: strings.TrimSpace(cfg.FalWebhookURL),
		httpClient: &http.Client{Timeout: timeout},
		models:     append([]ModelSpec(nil), falModels...),
		breaker: newBreaker("fal", BreakerConfig{
			FailureRatio: cfg.BreakerFailureRatio,
			MinRequests:  cfg.BreakerMinRequests,
			OpenTimeout:  cfg.BreakerOpenTimeout,
		}),
	}, nil
}

func (f *FalAI) ID() string {
	return ProviderFal
}

// CircuitState reports the breaker state guarding queue calls.
func (f *FalAI) CircuitState() string {
	return f.breaker.state()
}

func (f *FalAI) Models() []ModelSpec {
	return f.models
}

func (f *FalAI) Submit(ctx context.Context, request SubmitRequest) (*SubmitResult, error) {
	if f == nil {
		return nil, errors.New("fal.ai provider not initialised")
	}
	prompt := strings.TrimSpace(request.Prompt)
	if prompt == "" {
		return nil, ErrPromptRequired
	}
	spec, err := lookupModel(f.models, request.Model)
	if err != nil {
		return nil, err
	}

	params := Parameters{
		AspectRatio:       normaliseAspectRatio(request.AspectRatio),
		ImageSize:         FalImageSize(request.AspectRatio),
		NumInferenceSteps: spec.ClampSteps(request.Steps),
		GuidanceScale:     spec.ClampGuidance(request.Guidance),
	}

	input := map[string]any{
		"prompt":                prompt,
		"image_size":            params.ImageSize,
		"num_inference_steps":   params.NumInferenceSteps,
		"num_images":            1,
		"enable_safety_checker": true,
	}
	if spec.SupportsGuidance {
		input["guidance_scale"] = params.GuidanceScale
	}

	log := providerLogger(ctx, f.ID(), spec.ID, "")
	log.WithFields(logrus.Fields{
		"prompt_preview": logSnippet(prompt),
		"image_size":     params.ImageSize,
		"steps":          params.NumInferenceSteps,
		"requested":      request.Steps,
	}).Info("falai_submit_start")

	submitURL := f.baseURL + "/" + spec.Endpoint
	if f.webhookURL != "" {
		submitURL += "?fal_webhook=" + url.QueryEscape(f.webhookURL)
	}

	body, err := f.do(ctx, "submit", http.MethodPost, submitURL, input)
	if err != nil {
		metrics.GenerationSubmissions.WithLabelValues(f.ID(), spec.ID, submitOutcome(err)).Inc()
		return nil, err
	}

	var submission falSubmissionResponse
	if err := json.Unmarshal(body, &submission); err != nil {
		return nil, newProviderError(f.ID(), "submit", http.StatusOK, body, fmt.Errorf("decode submission: %w", err))
	}
	if strings.TrimSpace(submission.RequestID) == "" {
		return nil, newProviderError(f.ID(), "submit", http.StatusOK, body, errors.New("request id missing"))
	}

	metrics.GenerationSubmissions.WithLabelValues(f.ID(), spec.ID, "accepted").Inc()
	log.WithField("job_id", submission.RequestID).Info("falai_submit_accepted")

	return &SubmitResult{
		JobID:      submission.RequestID,
		Provider:   f.ID(),
		Model:      spec.ID,
		Parameters: params,
	}, nil
}

func (f *FalAI) Status(ctx context.Context, model, jobID string) (*StatusResult, error) {
	spec, err := lookupModel(f.models, model)
	if err != nil {
		return nil, err
	}
	statusURL := fmt.Sprintf("%s/%s/requests/%s/status?logs=1", f.baseURL, falAppPath(spec.Endpoint), url.PathEscape(jobID))

	body, err := f.do(ctx, "status", http.MethodGet, statusURL, nil)
	if err != nil {
		return nil, err
	}

	var status falStatusResponse
	if err := json.Unmarshal(body, &status); err != nil {
		return nil, newProviderError(f.ID(), "status", http.StatusOK, body, fmt.Errorf("decode status: %w", err))
	}

	phase := MapPhase(strings.TrimSpace(status.Status))
	// 失败的任务在队列里同样是 COMPLETED, 只多一个 error 字段
	if phase == PhaseCompleted && status.Error != nil && strings.TrimSpace(status.Error.Message) != "" {
		phase = PhaseFailed
	}
	metrics.GenerationPolls.WithLabelValues(f.ID(), string(phase)).Inc()
	providerLogger(ctx, f.ID(), spec.ID, jobID).WithFields(logrus.Fields{
		"raw_status": status.Status,
		"phase":      phase,
	}).Debug("falai_status")

	result := &StatusResult{
		Phase:         phase,
		QueuePosition: status.QueuePosition,
		Logs:          status.messages(),
	}
	if status.Error != nil {
		result.Error = status.Error.Message
	}
	return result, nil
}

func (f *FalAI) Result(ctx context.Context, model, jobID string) (*Result, error) {
	spec, err := lookupModel(f.models, model)
	if err != nil {
		return nil, err
	}
	resultURL := fmt.Sprintf("%s/%s/requests/%s", f.baseURL, falAppPath(spec.Endpoint), url.PathEscape(jobID))

	body, err := f.do(ctx, "result", http.MethodGet, resultURL, nil)
	if err != nil {
		return nil, err
	}

	var envelope falGenerationEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, newProviderError(f.ID(), "result", http.StatusOK, body, fmt.Errorf("decode result: %w", err))
	}
	envelope.mergeInner()
	if envelope.Error != nil && envelope.Error.Message != "" {
		return nil, newProviderError(f.ID(), "result", http.StatusOK, body, fmt.Errorf("%w: %s", ErrJobRejected, envelope.Error.Message))
	}
	return envelope.toResult()
}

// do 执行一次请求, 经过熔断器并记录耗时
func (f *FalAI) do(ctx context.Context, op, method, endpoint string, payload any) ([]byte, error) {
	started := time.Now()
	body, err := f.breaker.execute(func() ([]byte, error) {
		var reader io.Reader
		if payload != nil {
			bs, err := json.Marshal(payload)
			if err != nil {
				return nil, fmt.Errorf("fal.ai marshal request: %w", err)
			}
			reader = bytes.NewReader(bs)
		}

		req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
		if err != nil {
			return nil, fmt.Errorf("fal.ai create request: %w", err)
		}
		req.Header.Set("Authorization", "Key "+f.apiKey)
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := f.httpClient.Do(req)
		if err != nil {
			return nil, newProviderError(f.ID(), op, 0, nil, err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, falMaxResponseBytes))
		if err != nil {
			return nil, newProviderError(f.ID(), op, resp.StatusCode, nil, fmt.Errorf("read response: %w", err))
		}
		if resp.StatusCode >= 400 {
			return nil, newProviderError(f.ID(), op, resp.StatusCode, body, nil)
		}
		return body, nil
	})
	metrics.RecordProviderCall(f.ID(), op, err, time.Since(started))
	if err != nil {
		providerLogger(ctx, f.ID(), "", "").WithError(err).WithField("op", op).Warn("falai_request_failed")
	}
	return body, err
}

func submitOutcome(err error) string {
	var perr *ProviderError
	if errors.As(err, &perr) && perr.clientError() {
		return "rejected"
	}
	return "error"
}

// falAppPath returns the owner/app part of an endpoint: fal-ai/flux/schnell -> fal-ai/flux.
func falAppPath(endpoint string) string {
	parts := strings.Split(strings.Trim(endpoint, "/"), "/")
	if len(parts) <= 2 {
		return strings.Join(parts, "/")
	}
	return parts[0] + "/" + parts[1]
}

type falSubmissionResponse struct {
	RequestID   string `json:"request_id"`
	Status      string `json:"status"`
	StatusURL   string `json:"status_url"`
	ResponseURL string `json:"response_url"`
	CancelURL   string `json:"cancel_url"`
}

type falStatusResponse struct {
	Status        string         `json:"status"`
	QueuePosition *int           `json:"queue_position"`
	Logs          []falLogEntry  `json:"logs"`
	Error         *falAPIError   `json:"error"`
	Metrics       map[string]any `json:"metrics"`
}

type falLogEntry struct {
	Message   string `json:"message"`
	Level     string `json:"level"`
	Timestamp string `json:"timestamp"`
}

func (s falStatusResponse) messages() []string {
	if len(s.Logs) == 0 {
		return nil
	}
	out := make([]string, 0, len(s.Logs))
	for _, entry := range s.Logs {
		if msg := strings.TrimSpace(entry.Message); msg != "" {
			out = append(out, msg)
		}
	}
	return out
}

type falImagePayload struct {
	URL         string `json:"url"`
	ImageURL    string `json:"image_url"`
	ContentType string `json:"content_type"`
}

func (p *falImagePayload) UnmarshalJSON(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	if data[0] == '"' {
		var u string
		if err := json.Unmarshal(data, &u); err != nil {
			return err
		}
		p.URL = u
		return nil
	}

	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		return err
	}
	if v, ok := payload["url"].(string); ok {
		p.URL = v
	}
	if v, ok := payload["image_url"].(string); ok {
		if p.URL == "" {
			p.URL = v
		}
		p.ImageURL = v
	}
	if v, ok := payload["signed_url"].(string); ok && p.URL == "" {
		p.URL = v
	}
	if v, ok := payload["content_type"].(string); ok {
		p.ContentType = v
	}
	return nil
}

func (p falImagePayload) firstURL() string {
	if strings.TrimSpace(p.URL) != "" {
		return strings.TrimSpace(p.URL)
	}
	return strings.TrimSpace(p.ImageURL)
}

type falGenerationEnvelope struct {
	RequestID string            `json:"request_id"`
	Status    string            `json:"status"`
	Images    []falImagePayload `json:"images"`
	Output    []falImagePayload `json:"output"`
	Seed      *int64            `json:"seed"`
	Prompt    string            `json:"prompt"`
	Error     *falAPIError      `json:"error"`
	Response  *falInnerResponse `json:"response"`
}

type falInnerResponse struct {
	Status string            `json:"status"`
	Images []falImagePayload `json:"images"`
	Output []falImagePayload `json:"output"`
	Seed   *int64            `json:"seed"`
	Prompt string            `json:"prompt"`
	Error  *falAPIError      `json:"error"`
}

func (e *falGenerationEnvelope) mergeInner() {
	if e == nil || e.Response == nil {
		return
	}
	inner := e.Response
	if inner.Status != "" {
		e.Status = inner.Status
	}
	if e.Error == nil && inner.Error != nil {
		e.Error = inner.Error
	}
	if e.Seed == nil {
		e.Seed = inner.Seed
	}
	if e.Prompt == "" {
		e.Prompt = inner.Prompt
	}
	e.Images = append(e.Images, inner.Images...)
	e.Output = append(e.Output, inner.Output...)
}

func (e *falGenerationEnvelope) toResult() (*Result, error) {
	for _, group := range [][]falImagePayload{e.Images, e.Output} {
		for _, img := range group {
			if u := img.firstURL(); u != "" {
				return &Result{AssetURL: u, Seed: e.Seed, Prompt: e.Prompt}, nil
			}
		}
	}
	if e.Status != "" && MapPhase(e.Status) != PhaseCompleted {
		return nil, ErrResultNotReady
	}
	return nil, ErrNoImages
}

// falAPIError accepts both {"message": "..."} and a bare string.
type falAPIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *falAPIError) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &e.Message)
	}
	type plain falAPIError
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*e = falAPIError(p)
	return nil
}
