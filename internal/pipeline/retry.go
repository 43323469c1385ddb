package pipeline

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"github.com/tphakala/skyarchive/internal/conf"
	"github.com/tphakala/skyarchive/internal/errors"
	"github.com/tphakala/skyarchive/internal/logger"
)

// Retry policy used when the archive settings leave it unset.
var defaultRetry = conf.RetrySettings{
	MaxAttempts:  5,
	InitialDelay: 500 * time.Millisecond,
	MaxDelay:     30 * time.Second,
	Multiplier:   2,
}

func (r *Runner) retryPolicy() conf.RetrySettings {
	p := r.settings.Archive.Retry
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = defaultRetry.MaxAttempts
	}
	if p.InitialDelay <= 0 {
		p.InitialDelay = defaultRetry.InitialDelay
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = defaultRetry.MaxDelay
	}
	if p.Multiplier < 1 {
		p.Multiplier = defaultRetry.Multiplier
	}
	return p
}

// backoffDelay is the wait before retry attempt n (from zero): exponential
// growth with ±10% jitter, capped at MaxDelay.
func backoffDelay(p conf.RetrySettings, attempt int) time.Duration {
	backoff := float64(p.InitialDelay) * math.Pow(p.Multiplier, float64(attempt))
	backoff *= 0.9 + 0.2*rand.Float64()
	if backoff > float64(p.MaxDelay) {
		backoff = float64(p.MaxDelay)
	}
	return time.Duration(backoff)
}

// withRetry runs fn until it succeeds, fails with anything other than an
// archive-unavailable error, or exhausts the policy. The last error is
// returned wrapped with the attempt count.
func (r *Runner) withRetry(ctx context.Context, operation string, fn func() error) error {
	policy := r.retryPolicy()
	for attempt := 0; ; attempt++ {
		err := fn()
		if err == nil || !errors.IsCategory(err, errors.CategoryArchiveUnavailable) {
			return err
		}
		if attempt+1 >= policy.MaxAttempts {
			return errors.New(err).
				Component("pipeline").
				Category(errors.CategoryArchiveUnavailable).
				Context("operation", operation).
				Context("attempts", attempt+1).
				Build()
		}

		delay := backoffDelay(policy, attempt)
		r.recorder.RecordRetry(operation)
		r.log.Warn("archive unavailable, retrying",
			logger.String("operation", operation),
			logger.Int("attempt", attempt+1),
			logger.Duration("delay", delay),
			logger.Error(err))
		if err := r.sleep(ctx, delay); err != nil {
			return errors.New(err).
				Component("pipeline").
				Category(errors.CategoryCancellation).
				Context("operation", operation).
				Build()
		}
	}
}
