package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/rowanvale/copysmith/gen/dispatch"
)

// TokenSource supplies a short-lived bearer token on demand. Tokens are
// obtained fresh per call; the channel never caches them.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// RESTChannel is the secondary generation path: it calls the product's web
// API directly with a bearer token, bypassing the execution platform. Two
// endpoints are tried in order; they accept the same logical request but
// answer with different envelopes.
type RESTChannel struct {
	baseURL string
	tokens  TokenSource
	client  *http.Client
	logger  *zap.Logger
}

// RESTConfig carries the settings for the REST channel.
type RESTConfig struct {
	BaseURL string
	Timeout time.Duration
}

// NewRESTChannel creates the secondary channel.
func NewRESTChannel(cfg RESTConfig, tokens TokenSource, logger *zap.Logger) *RESTChannel {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	return &RESTChannel{
		baseURL: cfg.BaseURL,
		tokens:  tokens,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// Name identifies the channel in logs and metrics.
func (c *RESTChannel) Name() string {
	return "rest"
}

// toolsGenerateRequest is the /api/tools/generate payload.
type toolsGenerateRequest struct {
	Tool    string      `json:"tool"`
	Input   string      `json:"input"`
	Options restOptions `json:"options"`
}

type restOptions struct {
	Tone     string `json:"tone"`
	Language string `json:"language"`
}

// toolsGenerateResponse is the /api/tools/generate envelope.
type toolsGenerateResponse struct {
	Success bool   `json:"success"`
	Output  string `json:"output"`
}

// generateRequest is the simpler /api/generate payload; modifiers are
// top-level here, not nested.
type generateRequest struct {
	Tool     string `json:"tool"`
	Input    string `json:"input"`
	Tone     string `json:"tone"`
	Language string `json:"language"`
}

// generateResponse is the /api/generate envelope.
type generateResponse struct {
	Result string `json:"result"`
	Model  string `json:"model"`
}

// Generate obtains a fresh token, then tries /api/tools/generate and, if that
// yields nothing, /api/generate. Either endpoint producing text is a success.
func (c *RESTChannel) Generate(ctx context.Context, req dispatch.TextRequest) (*dispatch.TextResult, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("obtain bearer token: %w", err)
	}

	var tools toolsGenerateResponse
	err = c.post(ctx, token, "/api/tools/generate", toolsGenerateRequest{
		Tool:  req.Tool,
		Input: req.Input,
		Options: restOptions{
			Tone:     req.Tone,
			Language: req.Language,
		},
	}, &tools)
	if err == nil && tools.Success && tools.Output != "" {
		return &dispatch.TextResult{Text: tools.Output, Model: "claude"}, nil
	}
	if err != nil {
		c.logger.Debug("tools/generate endpoint failed", zap.Error(err))
	}

	var simple generateResponse
	err = c.post(ctx, token, "/api/generate", generateRequest{
		Tool:     req.Tool,
		Input:    req.Input,
		Tone:     req.Tone,
		Language: req.Language,
	}, &simple)
	if err != nil {
		return nil, fmt.Errorf("generate endpoint: %w", err)
	}
	if simple.Result == "" {
		return nil, fmt.Errorf("generate endpoint returned no result")
	}

	model := simple.Model
	if model == "" {
		model = "claude"
	}
	return &dispatch.TextResult{Text: simple.Result, Model: model}, nil
}

// post sends one JSON request with bearer auth and decodes the JSON reply.
func (c *RESTChannel) post(ctx context.Context, token, path string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s returned %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
