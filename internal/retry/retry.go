// Package retry wraps calls to external services in a bounded exponential
// backoff policy.
package retry

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy bounds how often and how long an operation is retried
type Policy struct {
	MaxRetries      uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxElapsed      time.Duration
}

// DefaultPolicy retries three times starting at half a second
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries:      3,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     10 * time.Second,
		MaxElapsed:      2 * time.Minute,
	}
}

// NoRetry runs the operation exactly once
func NoRetry() Policy {
	return Policy{}
}

func (p Policy) backOff(ctx context.Context) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		exp.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		exp.MaxInterval = p.MaxInterval
	}
	exp.MaxElapsedTime = p.MaxElapsed
	exp.Reset()
	return backoff.WithContext(backoff.WithMaxRetries(exp, p.MaxRetries), ctx)
}

// Do runs op until it succeeds, returns a permanent error, or the policy is
// exhausted. The returned error is the last one op produced, unwrapped from
// any Permanent marker.
func (p Policy) Do(ctx context.Context, op func() error) error {
	return p.Notify(ctx, op, nil)
}

// Notify is Do with a callback invoked before every retry
func (p Policy) Notify(ctx context.Context, op func() error, notify func(err error, wait time.Duration)) error {
	err := backoff.RetryNotify(op, p.backOff(ctx), notify)
	if err == nil {
		return nil
	}
	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		return perm.Err
	}
	return err
}

// Permanent marks err as not worth retrying
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return backoff.Permanent(err)
}

// IsTransientStatus reports whether an HTTP status is worth retrying:
// rate limiting and server-side failures.
func IsTransientStatus(code int) bool {
	return code == http.StatusTooManyRequests || (code >= 500 && code <= 599)
}
