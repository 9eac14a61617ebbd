package llm

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestFalImageSize(t *testing.T) {
	tests := []struct {
		aspect string
		want   string
	}{
		{"1:1", "square_hd"},
		{"4:3", "landscape_4_3"},
		{"3:4", "portrait_4_3"},
		{"16:9", "landscape_16_9"},
		{"9:16", "portrait_16_9"},
		{" 16:9 ", "landscape_16_9"},
		{"21:9", "square_hd"},
		{"", "square_hd"},
		{"banana", "square_hd"},
	}
	for _, tt := range tests {
		if got := FalImageSize(tt.aspect); got != tt.want {
			t.Errorf("FalImageSize(%q) = %q, want %q", tt.aspect, got, tt.want)
		}
	}
}

func TestModelClamps(t *testing.T) {
	schnell, err := lookupModel(falModels, "flux-schnell")
	if err != nil {
		t.Fatal(err)
	}
	dev, err := lookupModel(falModels, "flux-dev")
	if err != nil {
		t.Fatal(err)
	}

	stepTests := []struct {
		name  string
		spec  ModelSpec
		steps int
		want  int
	}{
		{"schnell default", schnell, 0, 4},
		{"schnell negative", schnell, -3, 4},
		{"schnell capped", schnell, 50, 12},
		{"schnell kept", schnell, 8, 8},
		{"dev default", dev, 0, 28},
		{"dev capped", dev, 80, 50},
	}
	for _, tt := range stepTests {
		if got := tt.spec.ClampSteps(tt.steps); got != tt.want {
			t.Errorf("%s: ClampSteps(%d) = %d, want %d", tt.name, tt.steps, got, tt.want)
		}
	}

	guidanceTests := []struct {
		in   float64
		want float64
	}{
		{0, 3.5},
		{0.5, 1},
		{7.5, 7.5},
		{35, 20},
	}
	for _, tt := range guidanceTests {
		if got := dev.ClampGuidance(tt.in); got != tt.want {
			t.Errorf("ClampGuidance(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestMapPhase(t *testing.T) {
	tests := map[string]Phase{
		"IN_QUEUE":    PhaseQueued,
		"IN_PROGRESS": PhaseProcessing,
		"COMPLETED":   PhaseCompleted,
		"FAILED":      PhaseFailed,
		"ERROR":       PhaseFailed,
		"CANCELLED":   PhaseFailed,
		"whatever":    PhaseProcessing,
	}
	for in, want := range tests {
		if got := MapPhase(in); got != want {
			t.Errorf("MapPhase(%q) = %q, want %q", in, got, want)
		}
	}
	if !PhaseFailed.Terminal() || PhaseQueued.Terminal() {
		t.Fatal("unexpected Terminal result")
	}
}

func TestRegistryResolve(t *testing.T) {
	volc := newVolcengine(func(ctx context.Context, model, prompt, size string) (string, error) {
		return "https://ark.example.com/1.png", nil
	}, time.Second)
	fal := &FalAI{models: falModels}
	reg := NewRegistry(fal, volc, nil)

	p, spec, err := reg.Resolve("")
	if err != nil || p.ID() != ProviderFal || spec.ID != DefaultModel {
		t.Fatalf("default resolve = %v %+v %v", p, spec, err)
	}
	p, spec, err = reg.Resolve("seedream-4")
	if err != nil || p.ID() != ProviderVolcengine || !spec.Synchronous {
		t.Fatalf("seedream resolve = %v %+v %v", p, spec, err)
	}
	if _, _, err := reg.Resolve("midjourney"); !errors.Is(err, ErrUnsupportedModel) {
		t.Fatalf("err = %v, want ErrUnsupportedModel", err)
	}
	if got := len(reg.Models()); got != 3 {
		t.Fatalf("models = %d, want 3", got)
	}
	if _, ok := reg.Provider(ProviderVolcengine); !ok {
		t.Fatal("volcengine provider not registered")
	}
}

func TestVolcengineSubmitInline(t *testing.T) {
	var gotSize, gotModel string
	volc := newVolcengine(func(ctx context.Context, model, prompt, size string) (string, error) {
		gotModel, gotSize = model, size
		return "https://ark.example.com/cat.png", nil
	}, time.Second)

	res, err := volc.Submit(context.Background(), SubmitRequest{Prompt: "A cat", Model: "seedream-4", AspectRatio: "16:9"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if gotModel != "doubao-seedream-4-0-250828" || gotSize != "2560x1440" {
		t.Fatalf("generator got model=%q size=%q", gotModel, gotSize)
	}
	if res.Result == nil || res.Result.AssetURL != "https://ark.example.com/cat.png" || res.JobID == "" {
		t.Fatalf("unexpected submit result %+v", res)
	}

	status, err := volc.Status(context.Background(), "seedream-4", res.JobID)
	if err != nil || status.Phase != PhaseCompleted {
		t.Fatalf("status = %+v err %v", status, err)
	}
	volc.Forget(res.JobID)
	status, _ = volc.Status(context.Background(), "seedream-4", res.JobID)
	if status.Phase != PhaseFailed {
		t.Fatalf("forgotten job phase = %q", status.Phase)
	}
}

func TestVolcengineSubmitFailure(t *testing.T) {
	volc := newVolcengine(func(ctx context.Context, model, prompt, size string) (string, error) {
		return "", errors.New("InvalidParameter: prompt too long")
	}, time.Second)

	_, err := volc.Submit(context.Background(), SubmitRequest{Prompt: "x", Model: "seedream-4"})
	var perr *ProviderError
	if !errors.As(err, &perr) || perr.Body == "" {
		t.Fatalf("expected ProviderError with body, got %v", err)
	}
	if _, err := volc.Submit(context.Background(), SubmitRequest{Model: "seedream-4"}); !errors.Is(err, ErrPromptRequired) {
		t.Fatalf("err = %v, want ErrPromptRequired", err)
	}
}

func TestParseFalWebhook(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		phase   Phase
		url     string
		errText string
		wantErr bool
	}{
		{
			name:  "ok",
			body:  `{"request_id":"r1","status":"OK","payload":{"images":[{"url":"https://cdn/x.png"}],"seed":7}}`,
			phase: PhaseCompleted,
			url:   "https://cdn/x.png",
		},
		{
			name:    "error",
			body:    `{"request_id":"r2","status":"ERROR","error":"Invalid status code: 422","payload":{"detail":"bad"}}`,
			phase:   PhaseFailed,
			errText: "Invalid status code: 422",
		},
		{
			name:    "ok without images",
			body:    `{"request_id":"r3","status":"OK","payload":{"images":[]}}`,
			phase:   PhaseFailed,
			errText: ErrNoImages.Error(),
		},
		{name: "missing id", body: `{"status":"OK"}`, wantErr: true},
		{name: "garbage", body: `not json`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event, err := ParseFalWebhook([]byte(tt.body))
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseFalWebhook: %v", err)
			}
			if event.Phase != tt.phase {
				t.Fatalf("phase = %q, want %q", event.Phase, tt.phase)
			}
			if tt.url != "" && (event.Result == nil || event.Result.AssetURL != tt.url) {
				t.Fatalf("result = %+v", event.Result)
			}
			if tt.errText != "" && event.Error != tt.errText {
				t.Fatalf("error = %q, want %q", event.Error, tt.errText)
			}
		})
	}
}
