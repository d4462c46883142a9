package datasource

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-datacompare/pkg/logging"
	"github.com/ekaya-inc/ekaya-datacompare/pkg/retry"
)

// Ping verifies a database source is reachable, retrying transient failures.
// Each attempt is bounded by opts.ConnectTimeout when set.
func Ping(ctx context.Context, opts Options, location string, ping func(ctx context.Context) error) error {
	logger := opts.logger()

	cfg := retry.DefaultConfig()
	if opts.Retry != nil {
		copied := *opts.Retry
		cfg = &copied
	}
	cfg.OnRetry = func(attempt int, err error, wait time.Duration) {
		logger.Warn("Source not reachable, retrying",
			logging.Source("source", location),
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			logging.Err(err))
	}

	err := retry.Do(ctx, cfg, func() error {
		attemptCtx := ctx
		if opts.ConnectTimeout > 0 {
			var cancel context.CancelFunc
			attemptCtx, cancel = context.WithTimeout(ctx, opts.ConnectTimeout)
			defer cancel()
		}
		err := ping(attemptCtx)
		if err != nil && ctx.Err() == nil && attemptCtx.Err() != nil {
			return connectTimeoutError{err: err}
		}
		return err
	})
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("connect to %s: %w", logging.SanitizeConnectionString(location), ctxErr)
	}
	if err != nil {
		return fmt.Errorf("connect to %s: %s", logging.SanitizeConnectionString(location), logging.SanitizeError(err))
	}
	return nil
}

// connectTimeoutError marks an attempt that hit the per-attempt deadline while the
// caller's context is still live. It hides the context error so the attempt is retried.
type connectTimeoutError struct{ err error }

func (e connectTimeoutError) Error() string     { return "connect timeout: " + e.err.Error() }
func (e connectTimeoutError) IsRetryable() bool { return true }
