package channel

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// SessionClient talks to the platform's account surface: a credential check
// for the availability prober and minting of short-lived JWTs for the REST
// channel. The session secret is an opaque externally-managed credential;
// this client only reads it.
type SessionClient struct {
	endpoint  string
	projectID string
	session   string
	client    *http.Client
}

// SessionConfig carries the settings for the session client.
type SessionConfig struct {
	Endpoint  string
	ProjectID string
	Session   string
	Timeout   time.Duration
}

// NewSessionClient creates a session client.
func NewSessionClient(cfg SessionConfig) *SessionClient {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &SessionClient{
		endpoint:  cfg.Endpoint,
		projectID: cfg.ProjectID,
		session:   cfg.Session,
		client:    &http.Client{Timeout: timeout},
	}
}

// Check performs the lightweight "who am I" call. Any failure means the
// remote service should be considered unreachable.
func (c *SessionClient) Check(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/account", nil)
	if err != nil {
		return fmt.Errorf("build account request: %w", err)
	}
	c.decorate(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("account check: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("account check returned %d", resp.StatusCode)
	}
	return nil
}

// jwtResponse is the token minting envelope.
type jwtResponse struct {
	JWT string `json:"jwt"`
}

// Token mints a fresh short-lived JWT for bearer auth against the REST
// channel. Implements TokenSource; tokens are never cached here.
func (c *SessionClient) Token(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/account/jwts", nil)
	if err != nil {
		return "", fmt.Errorf("build jwt request: %w", err)
	}
	c.decorate(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("mint jwt: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("mint jwt returned %d", resp.StatusCode)
	}

	var out jwtResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode jwt response: %w", err)
	}
	if out.JWT == "" {
		return "", fmt.Errorf("mint jwt returned empty token")
	}
	return out.JWT, nil
}

func (c *SessionClient) decorate(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Project", c.projectID)
	if c.session != "" {
		req.Header.Set("X-Session", c.session)
	}
}
