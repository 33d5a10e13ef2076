// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Configuration constants for the GameSage API client.
const (
	// DefaultBaseURL is the base URL of a locally running backend.
	DefaultBaseURL = "http://localhost:8000"

	// DefaultTimeout bounds a single non-streaming request attempt.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxRetries is the attempt ceiling for transient failures.
	DefaultMaxRetries = 3

	// DefaultRetryBaseDelay is the base unit of the linear backoff; the
	// wait before attempt n+1 is DefaultRetryBaseDelay * n.
	DefaultRetryBaseDelay = 1 * time.Second

	// DefaultRatePerSec caps outbound requests per second.
	DefaultRatePerSec = 4

	// MaxResponseSize is the maximum allowed response body size.
	// SECURITY: Response size limit prevents memory exhaustion.
	MaxResponseSize = 10 * 1024 * 1024 // 10MB limit
)

var (
	// sharedHTTPClient serves all JSON endpoints. Per-attempt timeouts are
	// enforced through request contexts, not this client.
	// PERFORMANCE: Connection pooling reduces TCP handshake overhead.
	sharedHTTPClient = &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		},
	}

	// sharedStreamingClient serves the SSE endpoint. No timeout: a stream
	// lives as long as the model keeps generating, cancellation is
	// context-controlled.
	sharedStreamingClient = &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		},
	}
)

// Error variables for common client errors.
var (
	// ErrNoCallback indicates ChatStream was called without a delta callback.
	ErrNoCallback = errors.New("streaming requires a delta callback")

	// ErrEmptyMessage indicates a chat request with no message text.
	ErrEmptyMessage = errors.New("message must not be empty")
)

// =============================================================================
// FAILURE CLASSIFICATION
// =============================================================================

// APIError is the uniform classified failure all client operations return.
// Status 0 means the failure happened below HTTP (network error, timeout);
// 4xx failures are permanent and never retried; 5xx failures are transient
// and surface only after the retry ceiling is exhausted.
type APIError struct {
	Status    int    // HTTP status, 0 for network/timeout
	Message   string // human-readable description, server-provided when available
	Raw       []byte // raw response body, nil for network failures
	Transient bool   // eligible for retry
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("backend request failed: %s", e.Message)
	}
	return fmt.Sprintf("backend error (HTTP %d): %s", e.Status, e.Message)
}

// IsTransient reports whether err is a retryable classified failure.
func IsTransient(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Transient
}

// apiErrorResponse is the structured error payload some endpoints return.
// FastAPI-style backends use "detail"; others use a nested "error" object.
type apiErrorResponse struct {
	Detail string `json:"detail"`
	Error  struct {
		Message string `json:"message"`
	} `json:"error"`
	Message string `json:"message"`
}

// classifyStatus converts a non-2xx HTTP response into an *APIError,
// extracting the server-provided message when the body parses.
func classifyStatus(status int, body []byte) *APIError {
	apiErr := &APIError{
		Status:    status,
		Raw:       body,
		Transient: status >= 500,
	}

	var parsed apiErrorResponse
	if err := json.Unmarshal(body, &parsed); err == nil {
		switch {
		case parsed.Detail != "":
			apiErr.Message = parsed.Detail
		case parsed.Error.Message != "":
			apiErr.Message = parsed.Error.Message
		case parsed.Message != "":
			apiErr.Message = parsed.Message
		}
	}

	if apiErr.Message == "" {
		if status >= 500 {
			apiErr.Message = "server error"
		} else {
			apiErr.Message = strings.TrimSpace(string(body))
			if apiErr.Message == "" {
				apiErr.Message = http.StatusText(status)
			}
		}
	}

	return apiErr
}

// =============================================================================
// CLIENT
// =============================================================================

// Config carries the injectable knobs of the request pipeline. The zero
// value is not usable; start from DefaultConfig.
type Config struct {
	BaseURL        string
	Timeout        time.Duration // per-attempt timeout for non-streaming calls
	MaxRetries     int           // attempt ceiling, minimum 1
	RetryBaseDelay time.Duration // linear backoff base unit
	RatePerSec     float64       // outbound request rate cap, 0 disables
	Pacing         PacingConfig
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() Config {
	return Config{
		BaseURL:        DefaultBaseURL,
		Timeout:        DefaultTimeout,
		MaxRetries:     DefaultMaxRetries,
		RetryBaseDelay: DefaultRetryBaseDelay,
		RatePerSec:     DefaultRatePerSec,
		Pacing:         DefaultPacingConfig(),
	}
}

// Client is a GameSage API client. It is safe for concurrent use; each
// logical call owns its own pacing queue and cancellation token, so
// in-flight requests never share mutable state.
type Client struct {
	baseURL        string
	timeout        time.Duration
	maxRetries     int
	retryBaseDelay time.Duration
	pacing         PacingConfig

	authToken string
	userID    string

	limiter      *rate.Limiter
	httpClient   *http.Client
	streamClient *http.Client
}

// NewClient creates a client from cfg, falling back to defaults for any
// zero-valued field.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxRetries < 1 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.RetryBaseDelay <= 0 {
		cfg.RetryBaseDelay = DefaultRetryBaseDelay
	}
	cfg.Pacing = cfg.Pacing.withDefaults()

	var limiter *rate.Limiter
	if cfg.RatePerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), int(cfg.RatePerSec)+1)
	}

	return &Client{
		baseURL:        strings.TrimSuffix(cfg.BaseURL, "/"),
		timeout:        cfg.Timeout,
		maxRetries:     cfg.MaxRetries,
		retryBaseDelay: cfg.RetryBaseDelay,
		pacing:         cfg.Pacing,
		limiter:        limiter,
		httpClient:     sharedHTTPClient,
		streamClient:   sharedStreamingClient,
	}
}

// SetAuth stores the session token and user id returned by Login. The token
// is sent as a bearer Authorization header on subsequent requests.
func (c *Client) SetAuth(token, userID string) {
	c.authToken = token
	c.userID = userID
}

// UserID returns the authenticated user id, or "default" before login,
// matching the backend's anonymous-user convention.
func (c *Client) UserID() string {
	if c.userID == "" {
		return "default"
	}
	return c.userID
}

// BaseURL returns the configured backend base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// waitLimiter blocks until the rate limiter admits the request.
func (c *Client) waitLimiter(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

// =============================================================================
// TRANSPORT LAYER
// =============================================================================

// request describes one HTTP exchange. The byte body makes attempts
// replayable, which the retry layer depends on.
type request struct {
	method      string
	path        string
	body        []byte
	contentType string
	stream      bool          // use the untimed streaming client
	timeout     time.Duration // 0 means the client default (ignored for streams)
}

// send performs exactly one network attempt. It returns the raw response
// whenever the connection completes, regardless of HTTP status; status
// interpretation belongs to the retry layer. Timeouts and connection
// failures come back as transient *APIError values with status 0, except
// cancellation of the caller's context, which passes through untouched so
// upper layers can tell a user abort from a network fault.
func (c *Client) send(ctx context.Context, req *request) (*http.Response, error) {
	cancel := func() {}
	if !req.stream {
		timeout := req.timeout
		if timeout <= 0 {
			timeout = c.timeout
		}
		ctx, cancel = context.WithTimeout(ctx, timeout)
	}

	var bodyReader io.Reader
	if req.body != nil {
		bodyReader = bytes.NewReader(req.body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, c.baseURL+req.path, bodyReader)
	if err != nil {
		cancel()
		return nil, &APIError{Message: err.Error()}
	}

	contentType := req.contentType
	if contentType == "" {
		contentType = "application/json"
	}
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("User-Agent", "gamesage-tui/0.1.0")
	if c.authToken != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.authToken)
	}
	if req.stream {
		httpReq.Header.Set("Accept", "text/event-stream")
		httpReq.Header.Set("Cache-Control", "no-cache")
	}

	client := c.httpClient
	if req.stream {
		client = c.streamClient
	}

	log.Printf("API request: %s %s", req.method, req.path)
	start := time.Now()
	resp, err := client.Do(httpReq)
	if err != nil {
		cancel()
		// Caller-initiated cancellation is not a transport failure.
		if ctx.Err() == context.Canceled {
			return nil, ctx.Err()
		}
		return nil, &APIError{
			Message:   fmt.Sprintf("connection failed: %v", err),
			Transient: true,
		}
	}
	log.Printf("API response: %d (%v)", resp.StatusCode, time.Since(start).Round(time.Millisecond))

	// Tie the timeout timer teardown to body close so it never leaks.
	resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

// cancelOnClose releases the per-attempt context when the response body is
// closed, so no timeout timers leak past the exchange.
type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}

// =============================================================================
// RETRY LAYER
// =============================================================================

// doWithRetry drives the transport up to the attempt ceiling. Transient
// failures (network, timeout, 5xx) wait base*attempt between tries;
// permanent failures (4xx) and caller cancellation return immediately.
// This is the sole retry authority in the client: nothing above it retries.
func (c *Client) doWithRetry(ctx context.Context, req *request) (*http.Response, error) {
	var lastErr error

	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		if attempt > 1 {
			delay := c.retryBaseDelay * time.Duration(attempt-1)
			log.Printf("retrying %s %s in %v (attempt %d/%d)", req.method, req.path, delay, attempt, c.maxRetries)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		resp, err := c.send(ctx, req)
		if err != nil {
			if !IsTransient(err) {
				return nil, err
			}
			lastErr = err
			continue
		}

		if resp.StatusCode < 400 {
			return resp, nil
		}

		body, readErr := readResponse(resp)
		resp.Body.Close()
		if readErr != nil {
			lastErr = &APIError{Message: readErr.Error(), Transient: true}
			continue
		}

		apiErr := classifyStatus(resp.StatusCode, body)
		if !apiErr.Transient {
			return nil, apiErr
		}
		lastErr = apiErr
	}

	if lastErr == nil {
		lastErr = &APIError{Message: "max retries exceeded", Transient: true}
	}
	return nil, lastErr
}

// doJSON runs a request through the retry layer and decodes the JSON
// response body into out.
func (c *Client) doJSON(ctx context.Context, req *request, out any) error {
	if err := c.waitLimiter(ctx); err != nil {
		return err
	}

	resp, err := c.doWithRetry(ctx, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := readResponse(resp)
	if err != nil {
		return &APIError{Message: err.Error()}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &APIError{Message: fmt.Sprintf("malformed response: %v", err), Raw: body}
	}
	return nil
}

// readResponse reads a response body with a size cap.
// SECURITY: Response size limit prevents memory exhaustion.
func readResponse(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(body)) == MaxResponseSize {
		return nil, fmt.Errorf("response exceeded maximum size of %d bytes", MaxResponseSize)
	}
	return body, nil
}
