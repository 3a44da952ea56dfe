package s3util

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
)

// maxRetryDelay caps the exponential backoff between attempts.
const maxRetryDelay = 5 * time.Second

// permanentError marks a failure that re-invoking the operation cannot fix.
type permanentError struct {
	err error
}

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent wraps err so WithRetry stops immediately instead of retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// WithRetry invokes op up to maxAttempts times with capped exponential
// backoff between attempts. The operation is the whole unit of retry and
// must be safe to re-run from scratch: no partial side effects may survive
// a failed attempt.
//
// Retrying stops early when ctx is cancelled or op returns a Permanent
// error. The returned error is the last attempt's, unwrapped from any
// Permanent marker.
func WithRetry(ctx context.Context, maxAttempts int, backoff time.Duration, op func(ctx context.Context) error) error {
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err = op(ctx)
		if err == nil {
			return nil
		}

		var perm *permanentError
		if errors.As(err, &perm) {
			return perm.err
		}
		if ctx.Err() != nil {
			return err
		}
		if attempt == maxAttempts {
			break
		}

		delay := backoff << (attempt - 1)
		if delay > maxRetryDelay {
			delay = maxRetryDelay
		}
		log.Warn().
			Err(err).
			Int("attempt", attempt).
			Int("max_attempts", maxAttempts).
			Dur("delay", delay).
			Msg("Operation failed, retrying")

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return err
		}
	}
	return err
}
