package llm

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	"DailyDigest/internal/config"
	"DailyDigest/internal/logging"
	"DailyDigest/internal/ports"
)

// Breaker guards an oracle with a circuit breaker so an outage fails fast
// instead of spending the whole classification matrix on timeouts.
type Breaker struct {
	next ports.InferenceOracle
	cb   *gobreaker.CircuitBreaker
}

var _ ports.InferenceOracle = (*Breaker)(nil)

// NewBreaker wraps next using the breaker settings from configuration.
func NewBreaker(next ports.InferenceOracle, cfg config.BreakerConfig, logger *slog.Logger) *Breaker {
	if logger == nil {
		logger = logging.Discard()
	}
	minRequests := cfg.MinRequests
	threshold := cfg.FailureThreshold

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "oracle",
		MaxRequests: cfg.MaxRequests,
		Interval:    time.Duration(cfg.IntervalSeconds) * time.Second,
		Timeout:     time.Duration(cfg.TimeoutSeconds) * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < minRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= threshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
		IsSuccessful: func(err error) bool {
			// Caller cancellation says nothing about oracle health.
			return err == nil || errors.Is(err, context.Canceled)
		},
	})

	return &Breaker{next: next, cb: cb}
}

// Run forwards to the wrapped oracle unless the breaker is open.
func (b *Breaker) Run(ctx context.Context, req ports.InferenceRequest) (string, error) {
	out, err := b.cb.Execute(func() (interface{}, error) {
		return b.next.Run(ctx, req)
	})
	if err != nil {
		return "", err
	}
	return out.(string), nil
}

// State exposes the breaker state.
func (b *Breaker) State() gobreaker.State {
	return b.cb.State()
}
