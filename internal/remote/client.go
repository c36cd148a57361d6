// Package remote is the typed client for the dispatch sync backend. The backend
// exposes two procedures: getAll returns every synced collection and sync
// persists any subset of them.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"haulr-dispatch/internal/models"
)

// Client is the remote procedure surface the reconciler depends on
type Client interface {
	GetAll(ctx context.Context) (*models.Snapshot, error)
	Sync(ctx context.Context, req models.SyncRequest) (*models.SyncAck, error)
}

var _ Client = (*HTTPClient)(nil)

// ErrUnavailable marks failures that may clear up on their own: the backend
// could not be reached, answered 5xx or 429, or sent an unreadable body
var ErrUnavailable = errors.New("backend unavailable")

// StatusError is returned for non-2xx responses
type StatusError struct {
	Path   string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("api %s returned status %d: %s", e.Path, e.Status, e.Body)
	}
	return fmt.Sprintf("api %s returned status %d", e.Path, e.Status)
}

// Unwrap is ErrUnavailable for server-side and throttling statuses only. A 4xx
// rejection is the client's problem and retrying later will not fix it.
func (e *StatusError) Unwrap() error {
	if e.retryable() {
		return ErrUnavailable
	}
	return nil
}

func (e *StatusError) retryable() bool {
	return e.Status >= 500 || e.Status == http.StatusTooManyRequests
}

const (
	defaultUserAgent = "dispatchctl/0.1"
	requestTimeout   = 10 * time.Second
	maxAttempts      = 3
	baseBackoff      = 250 * time.Millisecond
	maxBackoff       = 2 * time.Second
)

// HTTPClient talks to the sync backend over HTTP/JSON
type HTTPClient struct {
	baseURL   *url.URL
	http      *http.Client
	userAgent string
	attempts  int
	backoff   time.Duration

	mu    sync.RWMutex
	token string
}

// Option customizes an HTTPClient
type Option func(*HTTPClient)

// WithToken sets the bearer token sent with every request
func WithToken(token string) Option {
	return func(c *HTTPClient) { c.token = token }
}

// WithTimeout overrides the per-attempt timeout
func WithTimeout(d time.Duration) Option {
	return func(c *HTTPClient) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithRetry overrides the attempt count and the first backoff step
func WithRetry(attempts int, backoff time.Duration) Option {
	return func(c *HTTPClient) {
		if attempts > 0 {
			c.attempts = attempts
		}
		if backoff >= 0 {
			c.backoff = backoff
		}
	}
}

// NewClient builds an HTTPClient for the backend at serverURL
func NewClient(serverURL string, opts ...Option) (*HTTPClient, error) {
	base, err := parseBaseURL(serverURL)
	if err != nil {
		return nil, err
	}
	c := &HTTPClient{
		baseURL:   base,
		http:      &http.Client{Timeout: requestTimeout},
		userAgent: defaultUserAgent,
		attempts:  maxAttempts,
		backoff:   baseBackoff,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// SetToken replaces the bearer token, e.g. after Login
func (c *HTTPClient) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

func (c *HTTPClient) bearer() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// GetAll fetches every synced collection
func (c *HTTPClient) GetAll(ctx context.Context) (*models.Snapshot, error) {
	var snap models.Snapshot
	if err := c.do(ctx, http.MethodGet, "/api/getAll", nil, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// Sync persists the collections present in req. Absent collections are left
// untouched by the backend.
func (c *HTTPClient) Sync(ctx context.Context, req models.SyncRequest) (*models.SyncAck, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode sync request: %w", err)
	}
	var ack models.SyncAck
	if err := c.do(ctx, http.MethodPost, "/api/sync", body, &ack); err != nil {
		return nil, err
	}
	return &ack, nil
}

// LoginResponse is returned by the backend on login. Driver is set for driver logins.
type LoginResponse struct {
	OK     bool           `json:"ok"`
	Token  string         `json:"token,omitempty"`
	Driver *models.Driver `json:"driver,omitempty"`
	Role   string         `json:"role,omitempty"`
	UserID string         `json:"userId,omitempty"`
	Name   string         `json:"name,omitempty"`
}

// LoginRequest carries driver credentials, a QR token, or dispatcher email and password
type LoginRequest struct {
	Username string `json:"username,omitempty"`
	Pin      string `json:"pin,omitempty"`
	QRToken  string `json:"qrToken,omitempty"`
	Email    string `json:"email,omitempty"`
	Password string `json:"password,omitempty"`
}

// Login exchanges credentials for a token and stores it on the client
func (c *HTTPClient) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode login request: %w", err)
	}
	var resp LoginResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", body, &resp); err != nil {
		return nil, err
	}
	if resp.OK && resp.Token != "" {
		c.SetToken(resp.Token)
	}
	return &resp, nil
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body []byte, out interface{}) error {
	var lastErr error
	for attempt := 0; attempt < c.attempts; attempt++ {
		if attempt > 0 {
			wait := calculateBackoff(attempt, c.backoff)
			select {
			case <-ctx.Done():
				return fmt.Errorf("%w: %v", ErrUnavailable, ctx.Err())
			case <-time.After(wait):
			}
		}

		err := c.once(ctx, method, path, body, out)
		if err == nil {
			return nil
		}
		lastErr = err

		var statusErr *StatusError
		if errors.As(err, &statusErr) && !statusErr.retryable() {
			return err
		}
		if ctx.Err() != nil {
			break
		}
	}
	return lastErr
}

func (c *HTTPClient) once(ctx context.Context, method, path string, body []byte, out interface{}) error {
	endpoint := c.baseURL.ResolveReference(&url.URL{Path: path})

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.bearer(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: execute request: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{Path: path, Status: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}
	return nil
}

// calculateBackoff doubles base for every failed attempt, capped at maxBackoff
func calculateBackoff(attempt int, base time.Duration) time.Duration {
	if attempt <= 0 {
		return 0
	}
	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= maxBackoff {
			return maxBackoff
		}
	}
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

func parseBaseURL(raw string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, fmt.Errorf("server url is empty")
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("server url %q has no host", raw)
	}
	u.Path = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
