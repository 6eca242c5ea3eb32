package transport

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/cockroachdb/errors"
)

// Policy bounds retries of transient failures. Attempt n (from 0) waits
// BaseDelay * 2^n before the next try, capped at MaxDelay.
type Policy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// DefaultPolicy is three retries starting at one second.
func DefaultPolicy() Policy {
	return Policy{MaxRetries: 3, BaseDelay: time.Second, MaxDelay: 30 * time.Second}
}

func (p Policy) backOff() backoff.BackOff {
	max := p.MaxDelay
	if max <= 0 {
		max = backoff.DefaultMaxInterval
	}
	return &backoff.ExponentialBackOff{
		InitialInterval:     p.BaseDelay,
		RandomizationFactor: 0,
		Multiplier:          2,
		MaxInterval:         max,
	}
}

// retry runs op at most MaxRetries+1 times. op marks a failure as final by
// returning backoff.Permanent.
func (p Policy) retry(ctx context.Context, op backoff.Operation[[]byte], notify backoff.Notify) ([]byte, error) {
	retries := p.MaxRetries
	if retries < 0 {
		retries = 0
	}
	body, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(p.backOff()),
		backoff.WithMaxTries(uint(retries+1)),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(notify),
	)
	var permanent *backoff.PermanentError
	if errors.As(err, &permanent) {
		err = permanent.Unwrap()
	}
	return body, err
}
