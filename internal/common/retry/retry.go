// internal/common/retry/retry.go
package retry

import (
	"context"
	"fmt"
	"time"

	stderrors "application-intake/internal/common/errors"
	"application-intake/internal/common/logger"
)

// Policy is a bounded exponential-backoff retry policy for one collaborator.
type Policy struct {
	MaxAttempts  int
	InitialDelay time.Duration
}

// DefaultPolicy returns the standard transient-error budget.
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: 3, InitialDelay: 500 * time.Millisecond}
}

// Do executes operation under the policy. Only errors classified as retryable
// are attempted again; verdict failures, malformed input and state conflicts
// surface on the first attempt. The backoff doubles between attempts and the
// loop stops early when ctx is done.
func Do(ctx context.Context, p Policy, log logger.Logger, operationName string, operation func() error) error {
	var err error
	delay := p.InitialDelay

	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	for i := 0; i < attempts; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if !stderrors.IsRetryable(err) {
			return err
		}

		if i < attempts-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName), map[string]interface{}{
				"error":       err.Error(),
				"attempt":     i + 1,
				"maxAttempts": attempts,
				"nextRetryIn": delay.String(),
			})

			select {
			case <-ctx.Done():
				return fmt.Errorf("%s canceled while waiting to retry: %w", operationName, err)
			case <-time.After(delay):
			}
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, attempts, err)
}

// Connect retries operation unconditionally, for startup connections where
// every failure is transient by definition.
func Connect(operation func() error, maxRetries int, initialDelay time.Duration, log logger.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName), map[string]interface{}{
				"error":       err.Error(),
				"attempt":     i + 1,
				"maxRetries":  maxRetries,
				"nextRetryIn": delay.String(),
			})
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}
