package completion

import (
	"context"
	"errors"
	"log"
	"net"
	"time"
)

const defaultRetryBaseDelay = 300 * time.Millisecond

type retryingClient struct {
	base        Client
	maxAttempts int
	baseDelay   time.Duration
}

// WithRetry wraps a client with bounded exponential backoff. Only
// rate-limit and availability failures are retried; schema and auth
// failures pass through immediately.
func WithRetry(base Client, maxAttempts int) Client {
	if base == nil {
		return nil
	}
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &retryingClient{
		base:        base,
		maxAttempts: maxAttempts,
		baseDelay:   defaultRetryBaseDelay,
	}
}

func (r *retryingClient) Complete(ctx context.Context, req Request) (Response, error) {
	var lastErr error
	delay := r.baseDelay

	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		resp, err := r.base.Complete(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !shouldRetry(err) || attempt == r.maxAttempts {
			return Response{}, err
		}

		log.Printf("completion retry attempt=%d delay=%s error=%v", attempt, delay, err)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return Response{}, ctx.Err()
		}
		delay *= 2
	}
	return Response{}, lastErr
}

func shouldRetry(err error) bool {
	if err == nil {
		return false
	}
	var cerr *Error
	if errors.As(err, &cerr) {
		return cerr.Retryable()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return false
}
