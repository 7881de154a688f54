package fal

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
	"time"

	"vidsound/internal/infra"
)

// ErrMissingAPIKey indicates that the client was configured without credentials.
var ErrMissingAPIKey = errors.New("fal: api key is required")

// QueueStatus enumerates the statuses reported by the fal queue.
type QueueStatus string

const (
	StatusInQueue    QueueStatus = "IN_QUEUE"
	StatusInProgress QueueStatus = "IN_PROGRESS"
	StatusCompleted  QueueStatus = "COMPLETED"
)

// Options configures the fal.ai client.
type Options struct {
	APIKey         string
	QueueBaseURL   string
	RestBaseURL    string
	PollInterval   time.Duration
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
}

// Client talks to the fal.ai queue and storage REST APIs.
type Client struct {
	apiKey       string
	queueBaseURL string
	restBaseURL  string
	pollInterval time.Duration
	httpClient   *http.Client
	logger       *infra.Logger
}

// Submission is the queue's answer to an accepted request.
type Submission struct {
	RequestID   string `json:"request_id"`
	ResponseURL string `json:"response_url"`
	StatusURL   string `json:"status_url"`
	CancelURL   string `json:"cancel_url"`
}

// LogEntry is one log line attached to a status response.
type LogEntry struct {
	Message   string `json:"message"`
	Level     string `json:"level,omitempty"`
	Source    string `json:"source,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

// StatusResponse is the body of a status poll.
type StatusResponse struct {
	Status        QueueStatus `json:"status"`
	QueuePosition *int        `json:"queue_position,omitempty"`
	ResponseURL   string      `json:"response_url,omitempty"`
	Logs          []LogEntry  `json:"logs,omitempty"`
	Error         string      `json:"error,omitempty"`
	ErrorType     string      `json:"error_type,omitempty"`
}

// APIError is returned for non-2xx responses. Body holds the raw response so
// it can be surfaced to callers as diagnostics.
type APIError struct {
	StatusCode int
	Body       []byte
}

func (e *APIError) Error() string {
	msg := strings.TrimSpace(string(e.Body))
	var detail struct {
		Detail  any    `json:"detail"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(e.Body, &detail); err == nil {
		switch {
		case detail.Message != "":
			msg = detail.Message
		case detail.Detail != nil:
			if s, ok := detail.Detail.(string); ok {
				msg = s
			} else if b, err := json.Marshal(detail.Detail); err == nil {
				msg = string(b)
			}
		}
	}
	if len(msg) > 300 {
		msg = msg[:300] + "..."
	}
	if msg == "" {
		return fmt.Sprintf("fal: status %d", e.StatusCode)
	}
	return fmt.Sprintf("fal: status %d: %s", e.StatusCode, msg)
}

// Diagnostic returns the response body as JSON, quoting it when it is not JSON already.
func (e *APIError) Diagnostic() json.RawMessage {
	if json.Valid(e.Body) {
		return json.RawMessage(e.Body)
	}
	quoted, _ := json.Marshal(strings.TrimSpace(string(e.Body)))
	return quoted
}

// JobFailedError reports a job the queue marked as failed.
type JobFailedError struct {
	RequestID string
	Message   string
	Type      string
}

func (e *JobFailedError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("fal: request %s failed: %s (%s)", e.RequestID, e.Message, e.Type)
	}
	return fmt.Sprintf("fal: request %s failed: %s", e.RequestID, e.Message)
}

// NewClient constructs a client with sane defaults and injected dependencies.
func NewClient(opts Options) (*Client, error) {
	apiKey := strings.TrimSpace(opts.APIKey)
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	queueBaseURL := strings.TrimRight(opts.QueueBaseURL, "/")
	if queueBaseURL == "" {
		queueBaseURL = "https://queue.fal.run"
	}
	restBaseURL := strings.TrimRight(opts.RestBaseURL, "/")
	if restBaseURL == "" {
		restBaseURL = "https://rest.alpha.fal.ai"
	}
	pollInterval := opts.PollInterval
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	return &Client{
		apiKey:       apiKey,
		queueBaseURL: queueBaseURL,
		restBaseURL:  restBaseURL,
		pollInterval: pollInterval,
		httpClient:   httpClient,
		logger:       infra.OrDiscard(opts.Logger),
	}, nil
}

// Submit enqueues input for the model endpoint (for example "fal-ai/thinksound").
func (c *Client) Submit(ctx context.Context, endpoint string, input any) (*Submission, error) {
	endpoint = strings.Trim(strings.TrimSpace(endpoint), "/")
	if endpoint == "" {
		return nil, errors.New("fal: endpoint is required")
	}
	body, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("fal: encode request: %w", err)
	}

	var sub Submission
	if err := c.doJSON(ctx, http.MethodPost, c.queueBaseURL+"/"+endpoint, body, &sub); err != nil {
		return nil, err
	}
	if sub.RequestID == "" {
		return nil, errors.New("fal: submission returned no request id")
	}
	if sub.StatusURL == "" {
		sub.StatusURL = fmt.Sprintf("%s/%s/requests/%s/status", c.queueBaseURL, appPath(endpoint), url.PathEscape(sub.RequestID))
	}
	if sub.ResponseURL == "" {
		sub.ResponseURL = fmt.Sprintf("%s/%s/requests/%s", c.queueBaseURL, appPath(endpoint), url.PathEscape(sub.RequestID))
	}
	c.logger.Debug().
		Str("endpoint", endpoint).
		Str("request_id", sub.RequestID).
		Msg("fal: request queued")
	return &sub, nil
}

// Status polls the status of a submission.
func (c *Client) Status(ctx context.Context, sub *Submission, withLogs bool) (*StatusResponse, error) {
	target, err := url.Parse(sub.StatusURL)
	if err != nil {
		return nil, fmt.Errorf("fal: invalid status url: %w", err)
	}
	if withLogs {
		q := target.Query()
		q.Set("logs", "1")
		target.RawQuery = q.Encode()
	}
	var status StatusResponse
	if err := c.doJSON(ctx, http.MethodGet, target.String(), nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// Result fetches the terminal payload of a completed submission.
func (c *Client) Result(ctx context.Context, sub *Submission) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := c.doJSON(ctx, http.MethodGet, sub.ResponseURL, nil, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// Await polls until the submission completes and returns its payload.
// onStatus sees every status response in order.
func (c *Client) Await(ctx context.Context, sub *Submission, onStatus func(StatusResponse)) (json.RawMessage, error) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		status, err := c.Status(ctx, sub, true)
		if err != nil {
			return nil, err
		}
		if onStatus != nil {
			onStatus(*status)
		}
		if status.Status == StatusCompleted {
			if status.Error != "" {
				return nil, &JobFailedError{RequestID: sub.RequestID, Message: status.Error, Type: status.ErrorType}
			}
			if status.ResponseURL != "" {
				sub.ResponseURL = status.ResponseURL
			}
			return c.Result(ctx, sub)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *Client) doJSON(ctx context.Context, method, endpoint string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("fal: build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Key "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("fal: http request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("fal: read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Body: raw}
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("fal: decode response: %w", err)
	}
	return nil
}

// appPath reduces "owner/app/sub/path" to "owner/app", which is how the
// queue addresses requests.
func appPath(endpoint string) string {
	parts := strings.Split(endpoint, "/")
	if len(parts) <= 2 {
		return endpoint
	}
	return parts[0] + "/" + parts[1]
}
