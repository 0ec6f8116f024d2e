// Package oauthdep wires a depcoord.Coordinator to OAuth2 access tokens,
// the running example the design spec uses throughout ("a shared dependency
// such as a refreshable OAuth token"). It is grounded on the refresh
// pattern in luci-luci-go's auth/internal/user.go (refreshToken,
// processProviderReply): clear the cached token's expiry to force a real
// refresh, exchange it through an oauth2.Config-bound TokenSource, and
// classify the result as a success, a cancellation, or a failure. When there
// is no refresh token to exchange, the token is minted through the client
// credentials grant instead.
package oauthdep

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/pumped-fn/depcoord"
)

// Token is the dependency type coordinated by a Coordinator built with
// NewRefreshFunc. It is always handled as a pointer so that a Coordinator
// over it is a Coordinator[*Token].
type Token = oauth2.Token

// NewHTTPClient returns the http.Client used to perform the token exchange
// itself. It layers retryablehttp's exponential-backoff retry policy over
// go-cleanhttp's pooled, non-DefaultTransport-sharing transport — the same
// pairing the rest of the pack reaches for when a component needs a
// resilient outbound client without pulling in a full SDK.
func NewHTTPClient(log hclog.Logger) *http.Client {
	client := retryablehttp.NewClient()
	client.HTTPClient = cleanhttp.DefaultPooledClient()
	client.Logger = nil
	client.RequestLogHook = func(_ retryablehttp.Logger, req *http.Request, attempt int) {
		if attempt > 0 {
			log.Debug("retrying token exchange request", "attempt", attempt, "url", req.URL.String())
		}
	}
	return client.StandardClient()
}

// NewRefreshFunc builds a depcoord.RefreshFunc that mints a new access token
// through cfg, suitable for depcoord.New[*Token](nil, oauthdep.NewRefreshFunc(cfg, httpClient, log)).
// A prior token that carries a refresh token is exchanged through
// cfg.TokenSource; otherwise (no prior token, or one without a refresh
// token) a token is requested with the client credentials grant using cfg's
// client ID, secret, token URL and scopes.
//
// Every triggering is tagged with a request ID (github.com/google/uuid) so a
// single refresh attempt can be correlated across the "starting"/"succeeded"
// or "failed" log lines even when several Coordinators share one logger.
func NewRefreshFunc(cfg *oauth2.Config, httpClient *http.Client, log hclog.Logger) depcoord.RefreshFunc[*Token] {
	log = log.Named("oauthdep")

	return func(rctx depcoord.RefreshContext[*Token]) depcoord.RefreshOutcome[*Token] {
		requestID := uuid.NewString()
		ctx := rctx.Ctx
		if httpClient != nil {
			ctx = context.WithValue(ctx, oauth2.HTTPClient, httpClient)
		}

		base := &oauth2.Token{}
		if prior, ok := rctx.Reason.PriorDependency(); ok && prior != nil {
			cloned := *prior
			base = &cloned
		}
		// Force the token source to actually hit the network instead of
		// handing back the same cached value (luci's refreshToken: "Clear
		// expiration time to force token refresh. Do not use 0 since it
		// means that token never expires.").
		base.Expiry = time.Unix(1, 0)

		log.Debug("requesting new access token", "request_id", requestID)
		var minted *oauth2.Token
		var err error
		if base.RefreshToken == "" {
			cc := &clientcredentials.Config{
				ClientID:     cfg.ClientID,
				ClientSecret: cfg.ClientSecret,
				TokenURL:     cfg.Endpoint.TokenURL,
				Scopes:       cfg.Scopes,
				AuthStyle:    cfg.Endpoint.AuthStyle,
			}
			minted, err = cc.Token(ctx)
		} else {
			minted, err = cfg.TokenSource(ctx, base).Token()
		}
		switch {
		case err == nil:
			log.Info("minted access token", "request_id", requestID, "expiry", minted.Expiry)
			return depcoord.RefreshSuccess(minted)
		case errors.Is(ctx.Err(), context.Canceled), errors.Is(ctx.Err(), context.DeadlineExceeded):
			log.Debug("token exchange cancelled", "request_id", requestID)
			return depcoord.RefreshCancelled[*Token](true)
		default:
			log.Warn("token exchange failed", "request_id", requestID, "error", err)
			return depcoord.RefreshFailure[*Token](err)
		}
	}
}

// RoundTripper authorizes outbound requests through a Coordinator, treating
// a 401 response as the task-level signal that the carried token went stale
// mid-flight (depcoord.NeedsRefresh) rather than as a hard failure. next
// performs the actual network call; NewRoundTripper substitutes a pooled
// cleanhttp transport when it is given a nil next.
type RoundTripper struct {
	coordinator *depcoord.Coordinator[*Token]
	next        http.RoundTripper
}

// NewRoundTripper wraps next so every request it carries is first
// authorized with a token obtained from coordinator.
func NewRoundTripper(coordinator *depcoord.Coordinator[*Token], next http.RoundTripper) *RoundTripper {
	if next == nil {
		next = cleanhttp.DefaultPooledTransport()
	}
	return &RoundTripper{coordinator: coordinator, next: next}
}

// RoundTrip implements http.RoundTripper. On a 401 it reports NeedsRefresh
// to the coordinator and — per depcoord.Run — is retried at most once
// against whatever token the resulting refresh produces.
func (rt *RoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	outcome := depcoord.Run(rt.coordinator, req.Context(), func(tok *Token) depcoord.TaskOutcome[*http.Response] {
		authorized := req.Clone(req.Context())
		tok.SetAuthHeader(authorized)

		resp, err := rt.next.RoundTrip(authorized)
		if err != nil {
			return depcoord.TaskFailure[*http.Response](err)
		}
		if resp.StatusCode == http.StatusUnauthorized {
			resp.Body.Close()
			return depcoord.NeedsRefresh[*http.Response]()
		}
		return depcoord.TaskSuccess(resp)
	})

	switch {
	case outcome.IsSuccess():
		resp, _ := outcome.Success()
		return resp, nil
	case outcome.IsCancelled():
		return nil, req.Context().Err()
	default:
		err, _, _ := outcome.Failure()
		return nil, err
	}
}
