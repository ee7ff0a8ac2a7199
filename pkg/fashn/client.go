package fashn

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

	"github.com/tryonstudio/tryon-backend/pkg/config"
	pkgerrors "github.com/tryonstudio/tryon-backend/pkg/errors"
)

const (
	defaultBaseURL             = "https://api.fashn.ai"
	defaultSubmitPath          = "/v1/run"
	defaultStatusPath          = "/v1/run"
	requestBodyReadLimit int64 = 1024
)

var (
	errAPIKeyRequired = errors.New("fashn api key is required")
)

// Run statuses reported by the provider.
const (
	RunStatusPending    = "pending"
	RunStatusProcessing = "processing"
	RunStatusCompleted  = "completed"
	RunStatusFailed     = "failed"
)

// Client wraps the hosted try-on generation API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	submitPath string
	statusPath string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the configured provider base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// NewClient builds the provider client from configuration.
func NewClient(cfg config.FashnConfig, opts ...Option) (*Client, error) {
	trimmedKey := strings.TrimSpace(cfg.APIKey)
	if trimmedKey == "" {
		return nil, errAPIKeyRequired
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	client := &Client{
		apiKey:     trimmedKey,
		baseURL:    strings.TrimSpace(cfg.BaseURL),
		submitPath: strings.TrimSpace(cfg.SubmitPath),
		statusPath: strings.TrimSpace(cfg.StatusPath),
		httpClient: &http.Client{Timeout: timeout},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: timeout}
	}
	if client.baseURL == "" {
		client.baseURL = defaultBaseURL
	}
	if client.submitPath == "" {
		client.submitPath = defaultSubmitPath
	}
	if client.statusPath == "" {
		client.statusPath = defaultStatusPath
	}

	return client, nil
}

// SubmitRequest describes the payload sent to the provider's run endpoint.
// Category carries the provider's vocabulary, not the gallery enum.
type SubmitRequest struct {
	ModelImage   string `json:"model_image"`
	GarmentImage string `json:"garment_image"`
	Category     string `json:"category"`
	Mode         string `json:"performance_mode,omitempty"`
	NumSamples   int    `json:"num_samples,omitempty"`
	Seed         int64  `json:"seed,omitempty"`
}

// RunStatus is the normalized status payload for a submitted run.
type RunStatus struct {
	ID     string   `json:"id"`
	Status string   `json:"status"`
	Output []string `json:"output"`
	Error  string   `json:"error"`
}

// Terminal reports whether the run reached a final state.
func (s RunStatus) Terminal() bool {
	return s.Status == RunStatusCompleted || s.Status == RunStatusFailed
}

// Submit starts a generation run and returns the provider task ID.
// HTTP 429 maps to a rate-limit error so callers can surface it distinctly.
func (c *Client) Submit(ctx context.Context, req SubmitRequest) (string, error) {
	if c == nil {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "fashn client not configured")
	}
	if strings.TrimSpace(req.ModelImage) == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "model image URL is required")
	}
	if strings.TrimSpace(req.GarmentImage) == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "garment image URL is required")
	}
	if strings.TrimSpace(req.Category) == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "category is required")
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal run request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.buildURL(c.submitPath), bytes.NewReader(payload))
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build run request")
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute run request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusTooManyRequests {
		msg := readErrorMessage(resp.Body)
		return "", pkgerrors.Wrap(pkgerrors.CodeRateLimit, fmt.Errorf("status %d: %s", resp.StatusCode, msg), "provider rate limited")
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		msg := readErrorMessage(resp.Body)
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, msg), "run request failed")
	}

	var apiResp struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode run response")
	}
	if strings.TrimSpace(apiResp.ID) == "" {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "provider accepted the run without a task ID")
	}

	return apiResp.ID, nil
}

// Status fetches the current state of a previously submitted run.
func (c *Client) Status(ctx context.Context, taskID string) (*RunStatus, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "fashn client not configured")
	}
	trimmed := strings.TrimSpace(taskID)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "task ID is required")
	}

	endpoint := fmt.Sprintf("%s/%s", c.buildURL(c.statusPath), url.PathEscape(trimmed))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build status request")
	}

	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute status request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg := readErrorMessage(resp.Body)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, msg), "status request failed")
	}

	var apiResp RunStatus
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode status response")
	}
	apiResp.Status = strings.ToLower(strings.TrimSpace(apiResp.Status))

	return &apiResp, nil
}

func (c *Client) buildURL(path string) string {
	trimmed := strings.TrimRight(c.baseURL, "/")
	path = strings.TrimLeft(path, "/")
	return fmt.Sprintf("%s/%s", trimmed, path)
}

func readErrorMessage(body io.Reader) string {
	raw, _ := io.ReadAll(io.LimitReader(body, requestBodyReadLimit))
	trimmed := strings.TrimSpace(string(raw))

	var apiErr struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal([]byte(trimmed), &apiErr); err == nil && apiErr.Message != "" {
		return apiErr.Message
	}

	return trimmed
}
