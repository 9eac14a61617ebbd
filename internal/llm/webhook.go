package llm

import (
	"errors"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
)

// WebhookEvent is a provider push notification about a finished job.
type WebhookEvent struct {
	JobID  string
	Phase  Phase
	Result *Result
	Error  string
}

type falWebhookPayload struct {
	RequestID        string          `json:"request_id"`
	GatewayRequestID string          `json:"gateway_request_id"`
	Status           string          `json:"status"`
	Error            string          `json:"error"`
	PayloadError     string          `json:"payload_error"`
	Payload          json.RawMessage `json:"payload"`
}

// ParseFalWebhook decodes a fal.ai webhook body. Status OK carries the same payload as the result endpoint.
func ParseFalWebhook(body []byte) (*WebhookEvent, error) {
	var hook falWebhookPayload
	if err := json.Unmarshal(body, &hook); err != nil {
		return nil, fmt.Errorf("decode fal webhook: %w", err)
	}
	jobID := strings.TrimSpace(hook.RequestID)
	if jobID == "" {
		jobID = strings.TrimSpace(hook.GatewayRequestID)
	}
	if jobID == "" {
		return nil, errors.New("fal webhook without request id")
	}

	event := &WebhookEvent{JobID: jobID}
	if !strings.EqualFold(strings.TrimSpace(hook.Status), "OK") {
		event.Phase = PhaseFailed
		event.Error = firstNonEmpty(hook.Error, hook.PayloadError, "generation failed")
		return event, nil
	}

	var envelope falGenerationEnvelope
	if len(hook.Payload) > 0 {
		if err := json.Unmarshal(hook.Payload, &envelope); err != nil {
			return nil, fmt.Errorf("decode fal webhook payload: %w", err)
		}
	}
	envelope.mergeInner()
	result, err := envelope.toResult()
	if err != nil {
		event.Phase = PhaseFailed
		event.Error = firstNonEmpty(hook.PayloadError, err.Error())
		return event, nil
	}
	event.Phase = PhaseCompleted
	event.Result = result
	return event, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
