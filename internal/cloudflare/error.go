package cloudflare

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

// APIError is a non-2xx answer from Cloudflare. RetryAfter is zero when the
// server did not suggest a delay.
type APIError struct {
	StatusCode int
	RetryAfter time.Duration
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("cloudflare: unexpected status %d", e.StatusCode)
	}
	return fmt.Sprintf("cloudflare: status %d: %s", e.StatusCode, e.Message)
}

// HTTPStatus satisfies the retry executor's status probe.
func (e *APIError) HTTPStatus() int { return e.StatusCode }

// RetryDelay satisfies the retry executor's Retry-After probe.
func (e *APIError) RetryDelay() time.Duration { return e.RetryAfter }

func newAPIError(resp *http.Response) *APIError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	return &APIError{
		StatusCode: resp.StatusCode,
		RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		Message:    string(body),
	}
}

// parseRetryAfter handles both delay-seconds and HTTP-date forms.
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(value); err == nil && seconds >= 0 {
		return time.Duration(seconds) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}
