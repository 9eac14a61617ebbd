package llm

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrPromptRequired      = errors.New("prompt is required")
	ErrUnsupportedModel    = errors.New("unsupported model")
	ErrProviderUnavailable = errors.New("generation provider temporarily unavailable")
	ErrResultNotReady      = errors.New("generation result is not ready")
	ErrNoImages            = errors.New("provider response did not include images")
	// ErrJobRejected 任务已结束但 provider 报告了错误, 不会再有结果
	ErrJobRejected = errors.New("generation rejected by provider")
)

// ProviderError wraps a failed call to a generation provider. Body carries the raw response for diagnostics.
type ProviderError struct {
	Provider   string
	Op         string
	StatusCode int
	Body       string
	Err        error
}

func (e *ProviderError) Error() string {
	var b strings.Builder
	b.WriteString(e.Provider)
	if e.Op != "" {
		b.WriteString(" ")
		b.WriteString(e.Op)
	}
	if e.StatusCode > 0 {
		fmt.Fprintf(&b, " http %d", e.StatusCode)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	} else if e.Body != "" {
		b.WriteString(": ")
		b.WriteString(logSnippet(e.Body))
	}
	return b.String()
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// clientError 表示请求本身有问题 (4xx)，不应计入熔断失败
func (e *ProviderError) clientError() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500 && e.StatusCode != 408 && e.StatusCode != 429
}

// RejectionMessage reports whether err means the job can never produce a result,
// i.e. the provider answered with a client error (4xx other than 408/429) or
// an error envelope. The returned message is what gets stored on the record.
func RejectionMessage(err error) (string, bool) {
	var perr *ProviderError
	if !errors.As(err, &perr) {
		return "", false
	}
	if errors.Is(perr.Err, ErrJobRejected) {
		msg := strings.TrimPrefix(perr.Err.Error(), ErrJobRejected.Error())
		return firstNonEmpty(strings.TrimPrefix(msg, ":"), ErrJobRejected.Error()), true
	}
	if perr.clientError() {
		return firstNonEmpty(perr.Body, perr.Error()), true
	}
	return "", false
}

func newProviderError(provider, op string, status int, body []byte, err error) *ProviderError {
	return &ProviderError{
		Provider:   provider,
		Op:         op,
		StatusCode: status,
		Body:       strings.TrimSpace(string(body)),
		Err:        err,
	}
}
