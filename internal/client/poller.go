package client

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"leelaaverse/internal/entity/dto"

	"github.com/sirupsen/logrus"
)

var (
	// ErrGenerationFailed is returned when the job ends in the failed state.
	ErrGenerationFailed = errors.New("generation failed")
	// ErrPollTimeout is returned when the attempt cap is reached before a terminal state.
	ErrPollTimeout = errors.New("polling exceeded maximum attempts")
)

// PollConfig contains configuration for polling a generation.
type PollConfig struct {
	Interval    time.Duration
	MaxAttempts int
}

// DefaultPollConfig polls every 2 seconds, at most 60 times.
var DefaultPollConfig = PollConfig{
	Interval:    2 * time.Second,
	MaxAttempts: 60,
}

// StatusFetcher is the part of Client the poller needs.
type StatusFetcher interface {
	GenerationStatus(ctx context.Context, requestID string) (*dto.GenerationStatusResponse, error)
}

// Poller waits for a generation to reach a terminal state.
type Poller struct {
	fetcher StatusFetcher
	config  PollConfig

	// OnPhase 每次轮询后回调, 用于更新界面状态
	OnPhase func(attempt int, status *dto.GenerationStatusResponse)
}

func NewPoller(fetcher StatusFetcher, config PollConfig) *Poller {
	if config.Interval <= 0 {
		config.Interval = DefaultPollConfig.Interval
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = DefaultPollConfig.MaxAttempts
	}
	return &Poller{fetcher: fetcher, config: config}
}

// Wait polls until completed, failed, the attempt cap or ctx cancellation.
// A failed job returns the last status together with ErrGenerationFailed.
// Transport errors, 5xx, 408 and 429 are retried; other API errors end the wait.
func (p *Poller) Wait(ctx context.Context, requestID string) (*dto.GenerationStatusResponse, error) {
	if strings.TrimSpace(requestID) == "" {
		return nil, errors.New("request id is required")
	}

	ticker := time.NewTicker(p.config.Interval)
	defer ticker.Stop()

	attempts := 0

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()

		case <-ticker.C:
			attempts++

			status, err := p.fetcher.GenerationStatus(ctx, requestID)
			if err != nil {
				logrus.WithFields(logrus.Fields{
					"request_id": requestID,
					"attempt":    attempts,
				}).WithError(err).Warn("poller: status error")
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				if !retryable(err) {
					return nil, err
				}
				// 网络抖动和 5xx 只算一次尝试, 次数用完才放弃
				if attempts >= p.config.MaxAttempts {
					return nil, fmt.Errorf("%w: last error: %v", ErrPollTimeout, err)
				}
				continue
			}

			logrus.WithFields(logrus.Fields{
				"request_id": requestID,
				"status":     status.Status,
				"attempt":    attempts,
			}).Debug("poller: status")

			if p.OnPhase != nil {
				p.OnPhase(attempts, status)
			}

			switch status.Status {
			case "completed":
				return status, nil
			case "failed":
				msg := strings.TrimSpace(status.Error)
				if msg == "" {
					return status, ErrGenerationFailed
				}
				return status, fmt.Errorf("%w: %s", ErrGenerationFailed, msg)
			}

			if attempts >= p.config.MaxAttempts {
				return status, ErrPollTimeout
			}
		}
	}
}

func retryable(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return true
	}
	switch {
	case apiErr.StatusCode >= 500:
		return true
	case apiErr.StatusCode == 408, apiErr.StatusCode == 429:
		return true
	}
	return false
}
