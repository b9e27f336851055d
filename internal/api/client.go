package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sctracker/killfeed/pkg/core"
)

// DefaultKillsPath is the collector endpoint kills are posted to.
const DefaultKillsPath = "/api/kills"

var (
	// ErrClient marks a 4xx answer. Resubmitting the same payload will not help.
	ErrClient = errors.New("collector rejected submission")
	// ErrServer marks a 5xx answer.
	ErrServer = errors.New("collector server error")
	// ErrUnexpected marks an informational or unfollowed redirect answer.
	ErrUnexpected = errors.New("unexpected collector status")
)

// Outcome classifies a collector answer.
type Outcome string

const (
	OutcomeCreated     Outcome = "created"
	OutcomeDuplicate   Outcome = "duplicate"
	OutcomeNotLogged   Outcome = "not_logged"
	OutcomeAccepted    Outcome = "accepted"
	OutcomeClientError Outcome = "client_error"
	OutcomeRetryable   Outcome = "retryable"
	OutcomeUnexpected  Outcome = "unexpected_status"
)

// Final reports whether no further attempt should be made.
func (o Outcome) Final() bool {
	return o != OutcomeRetryable
}

// Success reports whether the collector has the record, or chose not to keep it.
func (o Outcome) Success() bool {
	switch o {
	case OutcomeCreated, OutcomeDuplicate, OutcomeNotLogged, OutcomeAccepted:
		return true
	default:
		return false
	}
}

// Classify maps a status code and server message to an Outcome.
func Classify(status int, message string) Outcome {
	lower := strings.ToLower(message)
	switch {
	case status == http.StatusCreated && strings.Contains(lower, "duplicate"):
		return OutcomeDuplicate
	case status == http.StatusCreated:
		return OutcomeCreated
	case status == http.StatusOK && strings.Contains(lower, "not logged"):
		return OutcomeNotLogged
	case status >= 200 && status < 300:
		return OutcomeAccepted
	case status >= 400 && status < 500:
		return OutcomeClientError
	case status >= 500 && status < 600:
		return OutcomeRetryable
	default:
		// 1xx, a redirect the client did not follow, or garbage. A retry
		// would get the same answer.
		return OutcomeUnexpected
	}
}

// Response is a classified collector answer.
type Response struct {
	StatusCode int
	Message    string
	Outcome    Outcome
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-request connect and response timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithKillsPath overrides DefaultKillsPath.
func WithKillsPath(path string) Option {
	return func(c *Client) {
		if path != "" {
			c.killsPath = "/" + strings.TrimLeft(path, "/")
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// Client handles communication with the kill collector.
type Client struct {
	baseURL    string
	apiKey     string
	killsPath  string
	httpClient *http.Client
}

// New creates a new API client.
func New(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		killsPath:  DefaultKillsPath,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Healthcheck checks if the collector is reachable.
func (c *Client) Healthcheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthcheck", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("healthcheck request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("healthcheck returned status %d", resp.StatusCode)
	}
	return nil
}

// SubmitKill posts one payload. The Response is classified even when an
// error is returned; a transport failure yields OutcomeRetryable.
func (c *Client) SubmitKill(ctx context.Context, p core.Payload) (Response, error) {
	body, err := json.Marshal(p)
	if err != nil {
		return Response{Outcome: OutcomeClientError}, fmt.Errorf("encoding payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+c.killsPath, bytes.NewReader(body))
	if err != nil {
		return Response{Outcome: OutcomeClientError}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Response{Outcome: OutcomeRetryable}, fmt.Errorf("submit request failed: %w", err)
	}
	defer resp.Body.Close()

	r := Response{
		StatusCode: resp.StatusCode,
		Message:    readMessage(resp.Body),
	}
	r.Outcome = Classify(r.StatusCode, r.Message)

	switch r.Outcome {
	case OutcomeClientError:
		return r, fmt.Errorf("%w: status %d: %s", ErrClient, r.StatusCode, r.Message)
	case OutcomeRetryable:
		return r, fmt.Errorf("%w: status %d: %s", ErrServer, r.StatusCode, r.Message)
	case OutcomeUnexpected:
		return r, fmt.Errorf("%w: status %d: %s", ErrUnexpected, r.StatusCode, r.Message)
	}
	return r, nil
}

// readMessage extracts {"message": ...} from a response body, or falls back
// to the raw text.
func readMessage(body io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil {
		return ""
	}
	var msg struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &msg) == nil && msg.Message != "" {
		return msg.Message
	}
	return strings.TrimSpace(string(raw))
}
