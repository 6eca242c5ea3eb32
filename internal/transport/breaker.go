package transport

import (
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/sabarim/starmf/internal/errs"
)

// newBreaker opens after Threshold consecutive transient failures, stays open
// for CoolDown and then lets a single trial call through.
func newBreaker(cfg BreakerConfig, logger *zap.Logger, metrics *Metrics) *gobreaker.CircuitBreaker {
	threshold := cfg.Threshold
	if threshold == 0 {
		threshold = 5
	}
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "order-entry",
		MaxRequests: 1,
		Timeout:     cfg.CoolDown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		// only failures of the remote side count against the circuit
		IsSuccessful: func(err error) bool {
			return err == nil || !errs.IsRetryable(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.BreakerState.Set(float64(to))
			logger.Warn("circuit breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
}
