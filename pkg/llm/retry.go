package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"syscall"
	"time"
)

const maxBackoff = 30 * time.Second

// retryClient retries temporary failures with exponential backoff.
type retryClient struct {
	inner      Client
	maxRetries int
	baseDelay  time.Duration
}

func wrapWithRetry(client Client, maxRetries int) Client {
	if maxRetries <= 1 {
		return client
	}
	return &retryClient{inner: client, maxRetries: maxRetries, baseDelay: 500 * time.Millisecond}
}

func (r *retryClient) Generate(ctx context.Context, req *Request) (*Response, error) {
	var lastErr error
	for attempt := range r.maxRetries {
		resp, err := r.inner.Generate(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !isRetryable(err) || attempt == r.maxRetries-1 {
			break
		}

		delay := r.backoff(attempt)
		slog.Warn("llm request failed, retrying",
			"provider", r.inner.Provider(),
			"attempt", attempt+1,
			"delay", delay,
			"error", err,
		)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	if !isRetryable(lastErr) {
		return nil, lastErr
	}
	return nil, fmt.Errorf("max retries (%d) exceeded: %w", r.maxRetries, lastErr)
}

func (r *retryClient) Provider() Provider { return r.inner.Provider() }
func (r *retryClient) Close() error       { return r.inner.Close() }

func (r *retryClient) backoff(attempt int) time.Duration {
	d := r.baseDelay << attempt
	if d <= 0 || d > maxBackoff {
		return maxBackoff
	}
	return d
}

// isRetryable reports rate limits, server errors, timeouts and dropped
// connections.
func isRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Temporary()
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED)
}
