package jobcontext

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

type contextKey string

var (
	keyJobID    contextKey = "job_id"
	keyJobEvent contextKey = "job_event"
	keyWorkerID contextKey = "worker_id"
)

// JobBegin derives a bounded context for one job execution and tags it with
// job metadata for logging.
func JobBegin(parent context.Context, jobID uuid.UUID, event string, workerID int, timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(parent, timeout)
	ctx = context.WithValue(ctx, keyJobID, jobID)
	ctx = context.WithValue(ctx, keyJobEvent, event)
	ctx = context.WithValue(ctx, keyWorkerID, workerID)
	return ctx, cancel
}

// GetJobID extracts the job ID from context
func GetJobID(ctx context.Context) (uuid.UUID, bool) {
	jobID, ok := ctx.Value(keyJobID).(uuid.UUID)
	return jobID, ok
}

// GetWorkerID extracts the worker ID from context, or -1 when absent
func GetWorkerID(ctx context.Context) int {
	workerID, ok := ctx.Value(keyWorkerID).(int)
	if !ok {
		return -1
	}
	return workerID
}

// IsRetryableError reports whether a job failure is worth another attempt.
// Transient transport and provider conditions are retryable; malformed input
// and client-side rejections are not.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}

	errStr := strings.ToLower(err.Error())

	// Context errors (timeout, cancelled)
	if strings.Contains(errStr, "context deadline exceeded") ||
		strings.Contains(errStr, "context canceled") {
		return true
	}

	// Network errors
	if strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "network unreachable") ||
		strings.Contains(errStr, "no such host") ||
		strings.Contains(errStr, "i/o timeout") {
		return true
	}

	// Database deadlock/lock errors (Postgres)
	if strings.Contains(errStr, "deadlock") ||
		strings.Contains(errStr, "40001") ||
		strings.Contains(errStr, "40p01") {
		return true
	}

	// Provider rate limiting
	if strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "too many requests") ||
		strings.Contains(errStr, "status 429") {
		return true
	}

	// Server errors (5xx)
	if strings.Contains(errStr, "status 5") ||
		strings.Contains(errStr, "internal server error") ||
		strings.Contains(errStr, "service unavailable") ||
		strings.Contains(errStr, "bad gateway") {
		return true
	}

	return false
}

// CalculateBackoff returns 2^attempt * baseDelay, capped at 60 seconds
func CalculateBackoff(attempt int, baseDelay time.Duration) time.Duration {
	if attempt < 0 {
		attempt = 0
	}

	backoff := time.Duration(1<<uint(attempt)) * baseDelay

	maxBackoff := 60 * time.Second
	if backoff > maxBackoff {
		backoff = maxBackoff
	}

	return backoff
}
