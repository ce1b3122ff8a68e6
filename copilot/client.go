// Package copilot wraps the backing client used to talk to GitHub Copilot.
//
// Copilot does not accept the device-flow GitHub token directly on its
// model API. The backing client first exchanges it (read from the
// process environment, like the official clients do) for a short-lived
// session token via the internal token endpoint, then calls the model
// listing API with that session. Start/ListModels/Stop are all bounded
// by the caller's context; none of them is guaranteed to be prompt on
// its own, which is why callers race them against explicit timeouts.
package copilot

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"lynkd/config"
)

const (
	defaultAPIBase  = "https://api.githubcopilot.com"
	defaultTokenURL = "https://api.github.com/copilot_internal/v2/token"
	editorVersion   = "lynkd/0.1.0"
)

// ModelPolicy carries the org/user policy state for one model.
// State "disabled" means the model is administratively blocked.
type ModelPolicy struct {
	State string `json:"state"`
}

// Model is one entry of the Copilot model listing response.
type Model struct {
	ID                        string       `json:"id"`
	Name                      string       `json:"name"`
	Vendor                    string       `json:"vendor"`
	Policy                    *ModelPolicy `json:"policy,omitempty"`
	SupportedReasoningEfforts []string     `json:"supported_reasoning_efforts,omitempty"`
}

// Disabled reports whether policy explicitly blocks the model.
// Absent policy info is not denial.
func (m Model) Disabled() bool {
	return m.Policy != nil && m.Policy.State == "disabled"
}

type sessionToken struct {
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expires_at"`
}

type modelsResponse struct {
	Data []Model `json:"data"`
}

// Client is the auxiliary Copilot client. Zero value is not usable;
// construct with NewClient and call Start before ListModels.
type Client struct {
	apiBase    string
	tokenURL   string
	httpClient *http.Client
	session    string
	started    bool
}

// Option overrides a client default (used by tests to point at fakes).
type Option func(*Client)

func WithAPIBase(base string) Option       { return func(c *Client) { c.apiBase = base } }
func WithTokenURL(url string) Option       { return func(c *Client) { c.tokenURL = url } }
func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.httpClient = h } }

// NewClient creates an unstarted Copilot client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		apiBase:    defaultAPIBase,
		tokenURL:   defaultTokenURL,
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start reads the GitHub token from the environment and exchanges it for
// a Copilot session token.
func (c *Client) Start(ctx context.Context) error {
	ghToken := os.Getenv(TokenEnvVar)
	if ghToken == "" {
		return fmt.Errorf("%s is not set", TokenEnvVar)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.tokenURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "token "+ghToken)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Editor-Version", editorVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("copilot token exchange failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("copilot token exchange returned status %d: %s", resp.StatusCode, body)
	}

	var session sessionToken
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return fmt.Errorf("failed to decode copilot session token: %w", err)
	}
	if session.Token == "" {
		return fmt.Errorf("copilot token exchange returned an empty token")
	}

	c.session = session.Token
	c.started = true

	if config.DebugLog != nil {
		config.DebugLog.Printf("[Copilot] Session established")
	}

	return nil
}

// ListModels fetches the dynamic model listing. The client must have been
// started first.
func (c *Client) ListModels(ctx context.Context) ([]Model, error) {
	if !c.started {
		return nil, fmt.Errorf("copilot client not started")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiBase+"/models", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.session)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Editor-Version", editorVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("copilot model listing failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("copilot model listing returned status %d: %s", resp.StatusCode, body)
	}

	var models modelsResponse
	if err := json.NewDecoder(resp.Body).Decode(&models); err != nil {
		return nil, fmt.Errorf("failed to decode copilot models: %w", err)
	}

	return models.Data, nil
}

// Stop discards the session. Safe to call on a client that never started
// or already stopped; callers invoke it best-effort during cleanup.
func (c *Client) Stop() error {
	c.session = ""
	c.started = false
	c.httpClient.CloseIdleConnections()
	return nil
}
