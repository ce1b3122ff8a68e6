package driver

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/samber/lo"

	"lynkd/config"
	"lynkd/connection"
)

// probeBody is the smallest request the message endpoints accept enough
// of to evaluate authentication. The request is allowed to be
// semantically wrong (unknown model, missing fields): any status outside
// 401/403 proves the endpoint routed and answered, which is all the
// probe classifies.
const probeBody = `{"model":"lynkd-probe","max_tokens":1,"messages":[{"role":"user","content":"ping"}]}`

// challengeMarkers identify bot-challenge interstitials served before
// auth is evaluated. A 403 carrying one of these means the endpoint is
// reachable; the challenge is not a credential verdict. Best-effort
// heuristic: non-Cloudflare WAFs may classify differently.
var challengeMarkers = []string{
	"cloudflare",
	"just a moment",
	"cf-ray",
	"challenge-platform",
}

// httpDoer lets tests substitute the transport.
type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

var probeClient httpDoer = http.DefaultClient

// Probe issues a single bounded-timeout inference request to classify
// whether a credential/endpoint pair is reachable and authorized.
// Idempotent: no observable side effect beyond the outbound call, and
// the deadline timer is released on every path.
func Probe(ctx context.Context, req TestRequest, budget time.Duration) connection.ValidationResult {
	profile := connection.ProfileFor(req.SubProvider)
	endpoint := connection.EffectiveEndpoint(req.Endpoint, profile)

	ctx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(probeBody))
	if err != nil {
		return connection.Invalid(connection.NewTransportError(endpoint, err).Error())
	}
	httpReq.Header.Set("Content-Type", "application/json")

	credential := req.Credential
	if profile.AuthScheme != "" {
		credential = profile.AuthScheme + " " + credential
	}
	httpReq.Header.Set(profile.AuthHeader, credential)
	for k, v := range profile.ExtraHeaders {
		httpReq.Header.Set(k, v)
	}

	resp, err := probeClient.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return connection.Invalid(connection.ErrConnectionTimeout.Error())
		}
		return connection.Invalid(connection.NewTransportError(endpoint, err).Error())
	}
	defer resp.Body.Close()

	if config.DebugLog != nil {
		config.DebugLog.Printf("[Probe] %s answered %d", endpoint, resp.StatusCode)
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return connection.Invalid(connection.ErrInvalidCredential.Error())

	case http.StatusForbidden:
		if isBotChallenge(resp.Body) {
			// Challenges fire before auth is evaluated, so the
			// endpoint itself is reachable.
			return connection.Valid()
		}
		return connection.Invalid(connection.ErrInvalidCredential.Error())

	default:
		// Any other status means network and routing are sound.
		// Request-shape errors are not this engine's concern.
		return connection.Valid()
	}
}

func isBotChallenge(body io.Reader) bool {
	raw, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil {
		return false
	}
	lower := strings.ToLower(string(raw))
	return lo.SomeBy(challengeMarkers, func(marker string) bool {
		return strings.Contains(lower, marker)
	})
}
