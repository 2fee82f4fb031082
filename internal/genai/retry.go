package genai

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/PavoWillow/wine-data-toolkit/pkg/logging"
)

// RetryPolicy bounds repeated generation attempts. Delays double per
// attempt; a Retry-After hint from the backend overrides the computed
// delay for that wait.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultRetryPolicy retries twice after the initial attempt.
var DefaultRetryPolicy = RetryPolicy{
	MaxAttempts: 3,
	BaseDelay:   2 * time.Second,
	MaxDelay:    60 * time.Second,
}

// WithDefaults fills zero fields from DefaultRetryPolicy.
func (p RetryPolicy) WithDefaults() RetryPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultRetryPolicy.MaxAttempts
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = DefaultRetryPolicy.BaseDelay
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = DefaultRetryPolicy.MaxDelay
	}
	return p
}

// retrier drives attempts against a Generator. sleep is swappable so
// tests run without real waits.
type retrier struct {
	policy RetryPolicy
	next   Generator
	sleep  func(ctx context.Context, d time.Duration) error
}

// WithRetry wraps gen so transient failures are retried per policy.
// Client errors and context cancellation fail immediately.
func WithRetry(gen Generator, policy RetryPolicy) Generator {
	return &retrier{
		policy: policy.WithDefaults(),
		next:   gen,
		sleep:  sleepCtx,
	}
}

func (r *retrier) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error) {
	logger := logging.L(ctx)

	var lastErr error
	for attempt := 0; attempt < r.policy.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		start := time.Now()
		resp, err := r.next.Generate(ctx, req)
		if err == nil {
			return resp, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}

		lastErr = err
		var apiErr *APIError
		if errors.As(err, &apiErr) && !apiErr.Retryable() {
			logger.Debug("generation_failed_permanent",
				zap.String("kind", string(apiErr.Kind)),
				zap.Error(err),
			)
			return nil, err
		}

		logger.Debug("generation_attempt_failed",
			zap.Int("attempt", attempt+1),
			zap.Int("max_attempts", r.policy.MaxAttempts),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err),
		)

		if attempt == r.policy.MaxAttempts-1 {
			break
		}

		delay := r.delayFor(attempt, err)
		logger.Info("generation_retry_backoff",
			zap.Duration("delay", delay),
			zap.Int("next_attempt", attempt+2),
		)
		if err := r.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}

	logger.Warn("generation_retries_exhausted",
		zap.Int("attempts", r.policy.MaxAttempts),
		zap.Error(lastErr),
	)
	return nil, lastErr
}

// delayFor doubles the base delay per attempt; a backend Retry-After
// hint wins when present.
func (r *retrier) delayFor(attempt int, err error) time.Duration {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.RetryAfter > 0 {
		if apiErr.RetryAfter > r.policy.MaxDelay {
			return r.policy.MaxDelay
		}
		return apiErr.RetryAfter
	}

	delay := r.policy.BaseDelay << uint(attempt)
	if delay > r.policy.MaxDelay || delay <= 0 {
		delay = r.policy.MaxDelay
	}
	return delay
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
