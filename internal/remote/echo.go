package remote

import (
	"context"
	"time"

	"github.com/halim714/markpress/pkg/interfaces"
)

// ReadAfterWrite reads a path the caller just wrote. Freshly committed
// content can report missing for a short window before the hosted API
// catches up, so NOT_FOUND is treated as retryable here, bounded by the
// policy. Any other failure is returned as-is.
func ReadAfterWrite(ctx context.Context, store interfaces.RemoteStore, path string, policy RetryPolicy) (*interfaces.RemoteFile, error) {
	if policy.MaxAttempts <= 0 {
		policy = DefaultRetryPolicy()
	}

	var lastErr error
	for attempt := 0; attempt < policy.MaxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(policy.Delay(attempt - 1)):
			}
		}

		file, err := store.Read(ctx, path)
		if err == nil {
			return file, nil
		}
		if !IsNotFound(err) && !IsTransient(err) {
			return nil, err
		}
		lastErr = err
	}
	return nil, &TransientError{Path: path, Attempts: policy.MaxAttempts, Cause: lastErr}
}
