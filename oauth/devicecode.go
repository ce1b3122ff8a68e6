package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	transport "github.com/mark3labs/mcp-go/client/transport"

	"lynkd/config"
	"lynkd/connection"
)

const (
	githubDeviceCodeURL = "https://github.com/login/device/code"
	githubTokenURL      = "https://github.com/login/oauth/access_token"

	// Public client id of the Copilot integration; device flows carry no
	// client secret.
	copilotClientID = "Iv1.b507a08c87ecfe98"

	deviceGrantType = "urn:ietf:params:oauth:grant-type:device_code"
)

// DeviceAuthorization is the payload surfaced to the user while the
// device flow waits for confirmation.
type DeviceAuthorization struct {
	DeviceCode      string `json:"device_code"`
	UserCode        string `json:"user_code"`
	VerificationURI string `json:"verification_uri"`
	ExpiresIn       int    `json:"expires_in"`
	Interval        int    `json:"interval"`
}

// DeviceFlow drives one device-code authorization attempt.
type DeviceFlow struct {
	deviceCodeURL string
	tokenURL      string
	clientID      string
	scopes        string
	httpClient    *http.Client
}

// DeviceOption overrides a flow default (used by tests).
type DeviceOption func(*DeviceFlow)

func WithDeviceCodeURL(u string) DeviceOption  { return func(f *DeviceFlow) { f.deviceCodeURL = u } }
func WithDeviceTokenURL(u string) DeviceOption { return func(f *DeviceFlow) { f.tokenURL = u } }
func WithDeviceHTTPClient(c *http.Client) DeviceOption {
	return func(f *DeviceFlow) { f.httpClient = c }
}

// NewDeviceFlow creates a flow against the GitHub Copilot endpoints.
func NewDeviceFlow(opts ...DeviceOption) *DeviceFlow {
	f := &DeviceFlow{
		deviceCodeURL: githubDeviceCodeURL,
		tokenURL:      githubTokenURL,
		clientID:      copilotClientID,
		scopes:        "read:user",
		httpClient:    http.DefaultClient,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// RequestCode asks the provider for a device code and user code, and
// copies the user code to the clipboard. Clipboard failures are
// non-fatal: the code is displayed on screen either way.
func (f *DeviceFlow) RequestCode(ctx context.Context) (*DeviceAuthorization, error) {
	form := url.Values{}
	form.Set("client_id", f.clientID)
	form.Set("scope", f.scopes)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.deviceCodeURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("device code request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("device code request returned status %d: %s", resp.StatusCode, detail)
	}

	var auth DeviceAuthorization
	if err := json.NewDecoder(resp.Body).Decode(&auth); err != nil {
		return nil, fmt.Errorf("failed to decode device code response: %w", err)
	}
	if auth.DeviceCode == "" || auth.UserCode == "" {
		return nil, fmt.Errorf("device code response was incomplete")
	}
	if auth.Interval <= 0 {
		auth.Interval = 5
	}

	if err := clipboard.WriteAll(auth.UserCode); err != nil && config.DebugLog != nil {
		config.DebugLog.Printf("[OAuth] Could not copy user code to clipboard: %v", err)
	}

	return &auth, nil
}

// Await polls the token endpoint until the user confirms the code, the
// budget elapses, or ctx is cancelled. The interval honors slow_down
// responses. Timeout is reported as ErrOAuthTimedOut; cancellation
// propagates the context error.
func (f *DeviceFlow) Await(ctx context.Context, auth *DeviceAuthorization, budget time.Duration) (*transport.Token, error) {
	ctx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	interval := time.Duration(auth.Interval) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, connection.ErrOAuthTimedOut
			}
			return nil, ctx.Err()
		case <-ticker.C:
		}

		token, retry, err := f.pollOnce(ctx, auth.DeviceCode)
		switch {
		case err != nil:
			return nil, err
		case token != nil:
			return token, nil
		case retry > 0:
			// Provider asked us to slow down.
			interval = retry
			ticker.Reset(interval)
		}
	}
}

// pollOnce performs one token poll. Returns (token, 0, nil) on success,
// (nil, newInterval, nil) when the provider asked to slow down,
// (nil, 0, nil) while authorization is still pending.
func (f *DeviceFlow) pollOnce(ctx context.Context, deviceCode string) (*transport.Token, time.Duration, error) {
	form := url.Values{}
	form.Set("client_id", f.clientID)
	form.Set("device_code", deviceCode)
	form.Set("grant_type", deviceGrantType)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		// Cancellation during the request shows up here.
		if ctx.Err() != nil {
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, 0, connection.ErrOAuthTimedOut
			}
			return nil, 0, ctx.Err()
		}
		return nil, 0, fmt.Errorf("token poll failed: %w", err)
	}
	defer resp.Body.Close()

	var payload struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		TokenType    string `json:"token_type"`
		Scope        string `json:"scope"`
		ExpiresIn    int64  `json:"expires_in"`
		Error        string `json:"error"`
		Interval     int    `json:"interval"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, 0, fmt.Errorf("failed to decode token poll response: %w", err)
	}

	switch payload.Error {
	case "":
		if payload.AccessToken == "" {
			return nil, 0, fmt.Errorf("%w: token poll returned no token", connection.ErrOAuthExchangeFailed)
		}
		return tokenFromResponse(payload.AccessToken, payload.RefreshToken, payload.TokenType, payload.Scope, payload.ExpiresIn), 0, nil
	case "authorization_pending":
		return nil, 0, nil
	case "slow_down":
		next := payload.Interval
		if next <= 0 {
			next = 10
		}
		return nil, time.Duration(next) * time.Second, nil
	case "expired_token":
		return nil, 0, connection.ErrOAuthTimedOut
	case "access_denied":
		return nil, 0, fmt.Errorf("%w: access denied by user", connection.ErrOAuthExchangeFailed)
	default:
		return nil, 0, fmt.Errorf("%w: %s", connection.ErrOAuthExchangeFailed, payload.Error)
	}
}
