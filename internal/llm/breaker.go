package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"leelaaverse/internal/metrics"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker/v2"
)

// BreakerConfig 熔断参数
type BreakerConfig struct {
	FailureRatio float64
	MinRequests  uint32
	OpenTimeout  time.Duration
}

var DefaultBreakerConfig = BreakerConfig{
	FailureRatio: 0.6,
	MinRequests:  5,
	OpenTimeout:  30 * time.Second,
}

// breaker guards outbound provider calls and fails fast while the provider is down.
type breaker struct {
	name string
	cb   *gobreaker.CircuitBreaker[[]byte]
}

func newBreaker(name string, cfg BreakerConfig) *breaker {
	if cfg.FailureRatio <= 0 || cfg.FailureRatio > 1 {
		cfg.FailureRatio = DefaultBreakerConfig.FailureRatio
	}
	if cfg.MinRequests == 0 {
		cfg.MinRequests = DefaultBreakerConfig.MinRequests
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = DefaultBreakerConfig.OpenTimeout
	}

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logrus.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("provider circuit breaker state changed")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
		},
		IsSuccessful: isBreakerSuccess,
	}

	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)
	return &breaker{name: name, cb: gobreaker.NewCircuitBreaker[[]byte](settings)}
}

// execute runs fn through the breaker. An open circuit yields ErrProviderUnavailable.
func (b *breaker) execute(fn func() ([]byte, error)) ([]byte, error) {
	if b == nil {
		return fn()
	}

	body, err := b.cb.Execute(fn)
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.CircuitBreakerRequests.WithLabelValues(b.name, "rejected").Inc()
		return nil, fmt.Errorf("%w: %s circuit %s", ErrProviderUnavailable, b.name, b.cb.State().String())
	case err != nil && !isBreakerSuccess(err):
		metrics.CircuitBreakerRequests.WithLabelValues(b.name, "failure").Inc()
	default:
		metrics.CircuitBreakerRequests.WithLabelValues(b.name, "success").Inc()
	}
	return body, err
}

// CircuitOpen is the state string reported while a breaker rejects calls.
var CircuitOpen = gobreaker.StateOpen.String()

func (b *breaker) state() string {
	if b == nil {
		return gobreaker.StateClosed.String()
	}
	return b.cb.State().String()
}

// 4xx 与调用方取消都说明服务端是健康的
func isBreakerSuccess(err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return true
	}
	var perr *ProviderError
	if errors.As(err, &perr) {
		return perr.clientError()
	}
	return false
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
