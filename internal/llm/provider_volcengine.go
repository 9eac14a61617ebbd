package llm

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"leelaaverse/internal/config"
	"leelaaverse/internal/metrics"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const ProviderVolcengine = "volcengine"

// Volcengine generates inline. Submit blocks until the image exists and returns it with the job id.
type Volcengine struct {
	generate volcengineGenerateFunc
	models   []ModelSpec
	timeout  time.Duration

	mu      sync.RWMutex
	results map[string]*Result
}

func NewVolcengine(cfg config.Config) (*Volcengine, error) {
	apiKey := strings.TrimSpace(cfg.VolcengineAPIKey)
	if apiKey == "" {
		return nil, errors.New("volcengine api key is not configured")
	}
	return newVolcengine(generateImageByVolcengineProtocol(apiKey), cfg.ProviderTimeout), nil
}

func newVolcengine(generate volcengineGenerateFunc, timeout time.Duration) *Volcengine {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	// 同步生成比排队接口慢
	timeout *= 4
	return &Volcengine{
		generate: generate,
		models:   append([]ModelSpec(nil), volcengineModels...),
		timeout:  timeout,
		results:  make(map[string]*Result),
	}
}

func (v *Volcengine) ID() string {
	return ProviderVolcengine
}

func (v *Volcengine) Models() []ModelSpec {
	return v.models
}

func (v *Volcengine) Submit(ctx context.Context, request SubmitRequest) (*SubmitResult, error) {
	prompt := strings.TrimSpace(request.Prompt)
	if prompt == "" {
		return nil, ErrPromptRequired
	}
	spec, err := lookupModel(v.models, request.Model)
	if err != nil {
		return nil, err
	}

	params := Parameters{
		AspectRatio: normaliseAspectRatio(request.AspectRatio),
		ImageSize:   volcengineSize(request.AspectRatio),
	}

	log := providerLogger(ctx, v.ID(), spec.ID, "")
	log.WithFields(logrus.Fields{
		"prompt_preview": logSnippet(prompt),
		"size":           params.ImageSize,
	}).Info("volcengine_generate_start")

	genCtx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	started := time.Now()
	imageURL, err := v.generate(genCtx, spec.Endpoint, prompt, params.ImageSize)
	metrics.RecordProviderCall(v.ID(), "generate", err, time.Since(started))
	if err != nil {
		metrics.GenerationSubmissions.WithLabelValues(v.ID(), spec.ID, "error").Inc()
		log.WithError(err).Warn("volcengine_generate_failed")
		if errors.Is(err, ErrNoImages) {
			return nil, &ProviderError{Provider: v.ID(), Op: "generate", Err: err}
		}
		return nil, &ProviderError{Provider: v.ID(), Op: "generate", Body: err.Error(), Err: err}
	}
	metrics.GenerationSubmissions.WithLabelValues(v.ID(), spec.ID, "accepted").Inc()

	jobID := uuid.NewString()
	result := &Result{AssetURL: imageURL, Prompt: prompt}

	v.mu.Lock()
	v.results[jobID] = result
	v.mu.Unlock()

	return &SubmitResult{
		JobID:      jobID,
		Provider:   v.ID(),
		Model:      spec.ID,
		Parameters: params,
		Result:     result,
	}, nil
}

// Status 同步任务提交即完成; 未知 id 视为失败(进程重启后结果已丢失)
func (v *Volcengine) Status(_ context.Context, model, jobID string) (*StatusResult, error) {
	if _, err := lookupModel(v.models, model); err != nil {
		return nil, err
	}
	v.mu.RLock()
	_, ok := v.results[jobID]
	v.mu.RUnlock()
	if !ok {
		return &StatusResult{Phase: PhaseFailed, Error: "generation result is no longer available"}, nil
	}
	return &StatusResult{Phase: PhaseCompleted}, nil
}

func (v *Volcengine) Result(_ context.Context, model, jobID string) (*Result, error) {
	if _, err := lookupModel(v.models, model); err != nil {
		return nil, err
	}
	v.mu.RLock()
	result, ok := v.results[jobID]
	v.mu.RUnlock()
	if !ok {
		return nil, ErrResultNotReady
	}
	return result, nil
}

// Forget drops a cached inline result once it has been persisted.
func (v *Volcengine) Forget(jobID string) {
	v.mu.Lock()
	delete(v.results, jobID)
	v.mu.Unlock()
}
