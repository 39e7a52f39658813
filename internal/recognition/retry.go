package recognition

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RecognizeWithRetry wraps Recognize in a bounded exponential-backoff
// retry: at most cfg.MaxAttempts calls, delays of unit, 2×unit, 4×unit…
// Only retriable errors are retried; a non-retriable error or exhaustion
// of the attempt budget surfaces the last error. This automatic layer is
// internal to one submission and distinct from the user-facing manual
// retry, which re-enters the whole submission.
func (c *Client) RecognizeWithRetry(ctx context.Context, audio []byte) (*Result, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.cfg.BackoffUnit
	bo.Multiplier = 2
	bo.RandomizationFactor = 0
	bo.MaxInterval = 5 * time.Minute
	bo.MaxElapsedTime = 0

	maxRetries := uint64(0)
	if c.cfg.MaxAttempts > 1 {
		maxRetries = uint64(c.cfg.MaxAttempts - 1)
	}

	var result *Result
	operation := func() error {
		res, err := c.Recognize(ctx, audio)
		if err != nil {
			if !IsRetriable(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		result = res
		return nil
	}

	notify := func(err error, next time.Duration) {
		c.metrics.AutomaticRetries.Inc()
		c.log.Info().Err(err).Dur("backoff", next).Msg("Retrying provider call")
	}

	err := backoff.RetryNotify(
		operation,
		backoff.WithContext(backoff.WithMaxRetries(bo, maxRetries), ctx),
		notify,
	)
	if err != nil {
		return nil, err
	}
	return result, nil
}
