// Package oauth implements the two authorization variants LYNKD supports:
// browser-redirect (open an authorize URL, paste back one code) and the
// device-code flow (display a short user code, poll for confirmation).
// Both produce transport.Token values that the config token stores
// persist; this package never writes tokens to disk itself.
package oauth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	transport "github.com/mark3labs/mcp-go/client/transport"

	"lynkd/connection"
)

// BrowserFlow drives one browser-redirect authorization attempt against a
// subscription back-end. Create a fresh flow per attempt; the PKCE
// verifier and state nonce are single-use.
type BrowserFlow struct {
	endpoints  connection.OAuthEndpoints
	httpClient *http.Client
	verifier   string
	state      string
}

// NewBrowserFlow creates a flow for the given sub-provider tag.
func NewBrowserFlow(subProvider string) (*BrowserFlow, error) {
	endpoints, ok := connection.OAuthEndpointsFor(subProvider)
	if !ok {
		return nil, fmt.Errorf("unknown OAuth back-end: %s", subProvider)
	}

	verifier, err := newCodeVerifier()
	if err != nil {
		return nil, err
	}

	return &BrowserFlow{
		endpoints:  endpoints,
		httpClient: http.DefaultClient,
		verifier:   verifier,
		state:      uuid.New().String(),
	}, nil
}

// SetHTTPClient overrides the HTTP client (tests point this at fakes).
func (f *BrowserFlow) SetHTTPClient(c *http.Client) { f.httpClient = c }

// SetTokenURL overrides the exchange endpoint (tests only).
func (f *BrowserFlow) SetTokenURL(u string) { f.endpoints.TokenURL = u }

// AuthorizeURL builds the URL the user's browser should visit.
func (f *BrowserFlow) AuthorizeURL() string {
	q := url.Values{}
	q.Set("code", "true")
	q.Set("client_id", f.endpoints.ClientID)
	q.Set("response_type", "code")
	q.Set("redirect_uri", f.endpoints.RedirectURI)
	q.Set("scope", strings.Join(f.endpoints.Scopes, " "))
	q.Set("code_challenge", codeChallenge(f.verifier))
	q.Set("code_challenge_method", "S256")
	q.Set("state", f.state)

	return f.endpoints.AuthorizeURL + "?" + q.Encode()
}

// Open launches the browser at the authorize URL.
func (f *BrowserFlow) Open() error {
	return OpenBrowser(f.AuthorizeURL())
}

// ExchangeCode trades the pasted authorization code for a token pair.
// The back-end appends the state to the displayed code as "code#state";
// both forms are accepted, and a mismatched state is rejected.
func (f *BrowserFlow) ExchangeCode(ctx context.Context, code string) (*transport.Token, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, fmt.Errorf("%w: empty authorization code", connection.ErrOAuthExchangeFailed)
	}

	if rawCode, state, found := strings.Cut(code, "#"); found {
		if state != f.state {
			return nil, fmt.Errorf("%w: state mismatch", connection.ErrOAuthExchangeFailed)
		}
		code = rawCode
	}

	body, err := json.Marshal(map[string]string{
		"grant_type":    "authorization_code",
		"code":          code,
		"state":         f.state,
		"client_id":     f.endpoints.ClientID,
		"redirect_uri":  f.endpoints.RedirectURI,
		"code_verifier": f.verifier,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.endpoints.TokenURL, strings.NewReader(string(body)))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", connection.ErrOAuthExchangeFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: status %d: %s", connection.ErrOAuthExchangeFailed, resp.StatusCode, detail)
	}

	var payload struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		TokenType    string `json:"token_type"`
		ExpiresIn    int64  `json:"expires_in"`
		Scope        string `json:"scope"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: %v", connection.ErrOAuthExchangeFailed, err)
	}
	if payload.AccessToken == "" {
		return nil, fmt.Errorf("%w: response carried no access token", connection.ErrOAuthExchangeFailed)
	}

	return tokenFromResponse(payload.AccessToken, payload.RefreshToken, payload.TokenType, payload.Scope, payload.ExpiresIn), nil
}

func tokenFromResponse(access, refresh, tokenType, scope string, expiresIn int64) *transport.Token {
	if tokenType == "" {
		tokenType = "Bearer"
	}
	token := &transport.Token{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    tokenType,
		Scope:        scope,
		ExpiresIn:    expiresIn,
	}
	if expiresIn > 0 {
		token.ExpiresAt = time.Now().Add(time.Duration(expiresIn) * time.Second)
	}
	return token
}

func newCodeVerifier() (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to generate PKCE verifier: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

func codeChallenge(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
