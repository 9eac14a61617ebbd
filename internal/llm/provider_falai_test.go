package llm

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"leelaaverse/internal/config"

	"github.com/goccy/go-json"
)

type falCapturedInput struct {
	Prompt            string  `json:"prompt"`
	ImageSize         string  `json:"image_size"`
	NumInferenceSteps int     `json:"num_inference_steps"`
	GuidanceScale     float64 `json:"guidance_scale"`
	NumImages         int     `json:"num_images"`
}

func newTestFal(t *testing.T, handler http.HandlerFunc) *FalAI {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	fal, err := NewFalAI(config.Config{
		FalAPIKey:           "test-key",
		FalQueueBaseURL:     srv.URL,
		ProviderTimeout:     5 * time.Second,
		BreakerFailureRatio: 0.5,
		BreakerMinRequests:  2,
		BreakerOpenTimeout:  time.Minute,
	})
	if err != nil {
		t.Fatalf("NewFalAI: %v", err)
	}
	return fal
}

func TestFalSubmitClampsStepsAndMapsSize(t *testing.T) {
	var captured falCapturedInput
	var path, auth string
	fal := newTestFal(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		auth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &captured); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"request_id":"req-123","status":"IN_QUEUE"}`))
	})

	res, err := fal.Submit(context.Background(), SubmitRequest{
		Prompt:      "A cat in space",
		Model:       "flux-schnell",
		AspectRatio: "21:9",
		Steps:       50,
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if path != "/fal-ai/flux/schnell" {
		t.Errorf("path = %q", path)
	}
	if auth != "Key test-key" {
		t.Errorf("authorization = %q", auth)
	}
	if captured.NumInferenceSteps != 12 {
		t.Errorf("provider received steps %d, want 12", captured.NumInferenceSteps)
	}
	if captured.ImageSize != "square_hd" {
		t.Errorf("image_size = %q, want square_hd", captured.ImageSize)
	}
	if captured.GuidanceScale != 3.5 {
		t.Errorf("guidance = %v, want default 3.5", captured.GuidanceScale)
	}
	if captured.Prompt != "A cat in space" || captured.NumImages != 1 {
		t.Errorf("unexpected input %+v", captured)
	}
	if res.JobID != "req-123" || res.Parameters.NumInferenceSteps != 12 || res.Provider != ProviderFal {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestFalSubmitValidation(t *testing.T) {
	var calls int32
	fal := newTestFal(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = w.Write([]byte(`{"request_id":"x"}`))
	})

	tests := []struct {
		name    string
		request SubmitRequest
		want    error
	}{
		{name: "empty prompt", request: SubmitRequest{Prompt: "   ", Model: "flux-dev"}, want: ErrPromptRequired},
		{name: "unknown model", request: SubmitRequest{Prompt: "hi", Model: "sdxl"}, want: ErrUnsupportedModel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := fal.Submit(context.Background(), tt.request)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}
	if calls != 0 {
		t.Fatalf("provider called %d times for invalid requests", calls)
	}
}

func TestFalSubmitProviderErrorCarriesBody(t *testing.T) {
	fal := newTestFal(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"detail":"prompt rejected"}`))
	})

	_, err := fal.Submit(context.Background(), SubmitRequest{Prompt: "x", Model: "flux-dev"})
	var perr *ProviderError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ProviderError, got %v", err)
	}
	if perr.StatusCode != http.StatusUnprocessableEntity || !strings.Contains(perr.Body, "prompt rejected") {
		t.Fatalf("unexpected provider error %+v", perr)
	}
}

func TestFalStatusAndResult(t *testing.T) {
	fal := newTestFal(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/fal-ai/flux/requests/job-1/status":
			if r.URL.Query().Get("logs") != "1" {
				t.Errorf("logs query missing")
			}
			_, _ = w.Write([]byte(`{"status":"IN_QUEUE","queue_position":3,"logs":[{"message":"waiting"}]}`))
		case "/fal-ai/flux/requests/job-2/status":
			_, _ = w.Write([]byte(`{"status":"COMPLETED","logs":[]}`))
		case "/fal-ai/flux/requests/job-2":
			_, _ = w.Write([]byte(`{"images":[{"url":"https://cdn.fal.media/out.png","content_type":"image/png"}],"seed":42,"prompt":"A cat in space"}`))
		default:
			http.NotFound(w, r)
		}
	})
	ctx := context.Background()

	queued, err := fal.Status(ctx, "flux-schnell", "job-1")
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if queued.Phase != PhaseQueued || queued.QueuePosition == nil || *queued.QueuePosition != 3 {
		t.Fatalf("unexpected queued status %+v", queued)
	}
	if len(queued.Logs) != 1 || queued.Logs[0] != "waiting" {
		t.Fatalf("logs = %v", queued.Logs)
	}

	done, err := fal.Status(ctx, "flux-dev", "job-2")
	if err != nil || done.Phase != PhaseCompleted {
		t.Fatalf("completed status = %+v, err %v", done, err)
	}

	result, err := fal.Result(ctx, "flux-dev", "job-2")
	if err != nil {
		t.Fatalf("Result: %v", err)
	}
	if result.AssetURL != "https://cdn.fal.media/out.png" || result.Seed == nil || *result.Seed != 42 {
		t.Fatalf("unexpected result %+v", result)
	}

	if _, err := fal.Status(ctx, "flux-dev", "missing"); err == nil {
		t.Fatal("expected error for unknown job")
	}
}

func TestFalBreakerOpensOnServerErrors(t *testing.T) {
	var calls int32
	fal := newTestFal(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := fal.Status(ctx, "flux-schnell", "job")
		var perr *ProviderError
		if !errors.As(err, &perr) || perr.StatusCode != http.StatusBadGateway {
			t.Fatalf("call %d: err = %v", i, err)
		}
	}

	_, err := fal.Status(ctx, "flux-schnell", "job")
	if !errors.Is(err, ErrProviderUnavailable) {
		t.Fatalf("err = %v, want ErrProviderUnavailable", err)
	}
	if calls != 2 {
		t.Fatalf("provider called %d times, want 2", calls)
	}
	if state := NewRegistry(fal).Health()[ProviderFal]; state != CircuitOpen {
		t.Fatalf("registry health = %q, want %q", state, CircuitOpen)
	}
}

func TestFalBreakerIgnoresClientErrors(t *testing.T) {
	fal := newTestFal(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	for i := 0; i < 5; i++ {
		_, err := fal.Status(context.Background(), "flux-schnell", "job")
		if errors.Is(err, ErrProviderUnavailable) {
			t.Fatalf("breaker opened on 404 at call %d", i)
		}
	}
	if fal.CircuitState() != "closed" {
		t.Fatalf("circuit state = %q", fal.CircuitState())
	}
}

func TestFalWebhookQueryParam(t *testing.T) {
	var webhook string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		webhook = r.URL.Query().Get("fal_webhook")
		_, _ = w.Write([]byte(`{"request_id":"req-w"}`))
	}))
	defer srv.Close()

	fal, err := NewFalAI(config.Config{
		FalAPIKey:       "k",
		FalQueueBaseURL: srv.URL,
		FalWebhookURL:   "https://api.example.com/api/webhooks/fal?token=s3cret",
	})
	if err != nil {
		t.Fatalf("NewFalAI: %v", err)
	}
	if _, err := fal.Submit(context.Background(), SubmitRequest{Prompt: "x", Model: "flux-schnell"}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if webhook != "https://api.example.com/api/webhooks/fal?token=s3cret" {
		t.Fatalf("fal_webhook = %q", webhook)
	}
}

func TestFalAppPath(t *testing.T) {
	tests := map[string]string{
		"fal-ai/flux/schnell":     "fal-ai/flux",
		"fal-ai/flux/dev":         "fal-ai/flux",
		"fal-ai/flux-pro":         "fal-ai/flux-pro",
		"/fal-ai/hunyuan/v3/t2i/": "fal-ai/hunyuan",
	}
	for in, want := range tests {
		if got := falAppPath(in); got != want {
			t.Errorf("falAppPath(%q) = %q, want %q", in, got, want)
		}
	}
}
