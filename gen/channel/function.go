// Package channel implements the remote invocation paths of the generation
// pipeline: the primary function-execution channel, the secondary REST
// channel with its short-lived bearer tokens, and the session client used by
// the availability prober. Every call is a single blocking HTTP exchange;
// transport failures surface as Go errors for the dispatcher to absorb.
package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/rowanvale/copysmith/gen/dispatch"
)

const defaultTimeout = 120 * time.Second

// FunctionChannel invokes a serverless function on the backend platform and
// waits synchronously for its result. The function proxies the request to the
// model provider; this client never talks to the provider directly.
type FunctionChannel struct {
	endpoint   string // platform base URL, e.g. https://cloud.example.com/v1
	projectID  string
	functionID string
	apiKey     string
	client     *http.Client
	logger     *zap.Logger
}

// FunctionConfig carries the settings for one function channel.
type FunctionConfig struct {
	Endpoint   string
	ProjectID  string
	FunctionID string
	APIKey     string
	Timeout    time.Duration
}

// NewFunctionChannel creates a channel for one function ID.
func NewFunctionChannel(cfg FunctionConfig, logger *zap.Logger) *FunctionChannel {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	return &FunctionChannel{
		endpoint:   cfg.Endpoint,
		projectID:  cfg.ProjectID,
		functionID: cfg.FunctionID,
		apiKey:     cfg.APIKey,
		client:     &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Name identifies the channel in logs and metrics.
func (c *FunctionChannel) Name() string {
	return "function:" + c.functionID
}

// executionRequest is the platform's synchronous execution envelope.
type executionRequest struct {
	Body   string `json:"body"`
	Async  bool   `json:"async"`
	Path   string `json:"path"`
	Method string `json:"method"`
}

// executionResponse is the platform's view of a finished execution.
type executionResponse struct {
	Status             string `json:"status"`
	ResponseStatusCode int    `json:"responseStatusCode"`
	ResponseBody       string `json:"responseBody"`
}

// Execute posts payload to the function and returns the execution outcome.
// The outer HTTP call reaching the platform but the execution itself failing
// is reported through Execution.Status/StatusCode, not as a Go error.
func (c *FunctionChannel) Execute(ctx context.Context, payload []byte) (*dispatch.Execution, error) {
	body, err := json.Marshal(executionRequest{
		Body:   string(payload),
		Async:  false,
		Path:   "/",
		Method: http.MethodPost,
	})
	if err != nil {
		return nil, fmt.Errorf("encode execution request: %w", err)
	}

	url := fmt.Sprintf("%s/functions/%s/executions", c.endpoint, c.functionID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build execution request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Project", c.projectID)
	if c.apiKey != "" {
		req.Header.Set("X-Key", c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute function %s: %w", c.functionID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("function %s: platform returned %d", c.functionID, resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read execution response: %w", err)
	}

	var exec executionResponse
	if err := json.Unmarshal(raw, &exec); err != nil {
		return nil, fmt.Errorf("decode execution response: %w", err)
	}

	c.logger.Debug("function execution finished",
		zap.String("function", c.functionID),
		zap.String("status", exec.Status),
		zap.Int("response_status", exec.ResponseStatusCode),
	)

	return &dispatch.Execution{
		StatusCode: exec.ResponseStatusCode,
		Body:       exec.ResponseBody,
		Status:     exec.Status,
	}, nil
}
