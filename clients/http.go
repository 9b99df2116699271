// Package clients wraps the third-party HTTP APIs the pipeline consumes:
// Google Directions, Google Places and the OpenAI chat completion endpoint.
package clients

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"
)

// StatusError is returned when a service answers with a non-2xx status or a
// non-OK application status.
type StatusError struct {
	Service    string
	StatusCode int
	Status     string
	Body       string
}

func (e *StatusError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s: status %s", e.Service, e.Status)
	}
	if e.Body != "" {
		return fmt.Sprintf("%s: HTTP %d: %s", e.Service, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("%s: HTTP %d", e.Service, e.StatusCode)
}

// IsTransient reports whether err is worth retrying: rate limiting, server
// side failures, timeouts and connection problems.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode == http.StatusTooManyRequests || se.StatusCode >= 500
	}

	var ne net.Error
	if errors.As(err, &ne) {
		return true
	}
	var ue *url.Error
	return errors.As(err, &ue)
}

func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

// getJSON issues a GET and decodes a 2xx JSON body into out.
func getJSON(ctx context.Context, c *http.Client, service, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", service, err)
	}
	req.Header.Set("Accept", "application/json")
	return doJSON(c, service, req, out)
}

func doJSON(c *http.Client, service string, req *http.Request, out any) error {
	resp, err := c.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", service, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{Service: service, StatusCode: resp.StatusCode, Body: string(body)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", service, err)
	}
	return nil
}
