// Package delivery posts signed messages to the network's two redundant endpoints.
//
// Deliver makes one attempt against the primary endpoint and, on any failure (network error,
// non-2xx status or timeout), one attempt against the secondary endpoint. Attempts are sequential
// and each gets its own full timeout. There is no further retry and no backoff.
package delivery

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/information-sharing-networks/codi-gateway/internal/logger"
)

// maxResponseSize bounds how much of a response body is read.
const maxResponseSize = 1 << 20

const (
	EndpointPrimary   = "primary"
	EndpointSecondary = "secondary"
)

// Response is a successful (2xx) reply.
type Response struct {
	Endpoint   string
	StatusCode int
	Body       []byte
}

// AttemptError describes a failed attempt against one endpoint.
type AttemptError struct {
	Endpoint   string
	URL        string
	StatusCode int
	timeout    bool
	err        error
}

func (e *AttemptError) Error() string {
	switch {
	case e.timeout:
		return fmt.Sprintf("request to %s timed out", e.URL)
	case e.StatusCode != 0:
		return fmt.Sprintf("request to %s failed with status %d", e.URL, e.StatusCode)
	default:
		return fmt.Sprintf("request to %s failed: %v", e.URL, e.err)
	}
}

func (e *AttemptError) Unwrap() error { return e.err }

// Timeout reports whether the attempt ran out of time.
func (e *AttemptError) Timeout() bool { return e.timeout }

// Error is returned when both attempts failed.
type Error struct {
	Primary   *AttemptError
	Secondary *AttemptError
}

func (e *Error) Error() string {
	return fmt.Sprintf("Both requests failed. Primary error: %s, Secondary error: %s", e.Primary.Error(), e.Secondary.Error())
}

// Timeout reports whether both attempts timed out.
func (e *Error) Timeout() bool {
	return e.Primary.Timeout() && e.Secondary.Timeout()
}

// Unwrap returns both attempt errors.
func (e *Error) Unwrap() []error {
	return []error{e.Primary, e.Secondary}
}

// Client delivers payloads with fallback.
type Client struct {
	httpClient *http.Client
}

// NewClient returns a Client. Per-attempt timeouts are applied with contexts, so httpClient
// should not set its own Timeout; nil uses a default client.
func NewClient(httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{httpClient: httpClient}
}

// Deliver posts payload to primaryURL and falls back to secondaryURL.
//
// Each attempt runs with its own timeout. Cancellation of ctx does not stop an attempt that has
// started or prevent the secondary attempt; ctx is used for its values (the request logger).
func (c *Client) Deliver(ctx context.Context, primaryURL, secondaryURL string, payload []byte, timeout time.Duration) (*Response, error) {
	reqLogger := logger.ContextRequestLogger(ctx)

	resp, primaryErr := c.attempt(ctx, EndpointPrimary, primaryURL, payload, timeout)
	if primaryErr == nil {
		return resp, nil
	}

	reqLogger.Warn("primary endpoint failed, trying secondary",
		slog.String("error", primaryErr.Error()),
		slog.Bool("timeout", primaryErr.Timeout()),
	)

	resp, secondaryErr := c.attempt(ctx, EndpointSecondary, secondaryURL, payload, timeout)
	if secondaryErr == nil {
		return resp, nil
	}

	return nil, &Error{Primary: primaryErr, Secondary: secondaryErr}
}

func (c *Client) attempt(ctx context.Context, endpoint, url string, payload []byte, timeout time.Duration) (*Response, *AttemptError) {
	attemptCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	fail := func(statusCode int, err error) *AttemptError {
		return &AttemptError{
			Endpoint:   endpoint,
			URL:        url,
			StatusCode: statusCode,
			timeout:    isTimeout(err) || errors.Is(attemptCtx.Err(), context.DeadlineExceeded),
			err:        err,
		}
	}

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fail(0, fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	// #nosec G704 -- endpoints come from server configuration
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fail(0, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fail(0, fmt.Errorf("failed to read response: %w", err))
	}

	logger.ContextRequestLogger(ctx).Debug("network request completed",
		slog.String("endpoint", endpoint),
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fail(resp.StatusCode, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, truncate(body, 200)))
	}

	return &Response{Endpoint: endpoint, StatusCode: resp.StatusCode, Body: body}, nil
}

func isTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
