// Package auth is the bridge to the federated identity provider.
//
// SIGN-IN FLOW OVERVIEW:
//  1. Browser visits /auth/google/login → redirected to Google
//  2. Google calls back /auth/google/callback with a code
//  3. GoogleProvider.Exchange trades the code for tokens and decodes the
//     ID token into a FederatedIdentity
//  4. The sign-in service posts that identity to the backend API, which
//     verifies it and answers with the canonical User
//  5. The session manager stores the User and notifies subscribers
//
// On logout the manager calls GoogleProvider.Detach inside its transition
// and revokes the detached token once the local session is cleared.
package auth

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"

	"github.com/RRiik-tech/HomeRenovationHub-sub001/internal/session"
)

// GoogleRevokeURL is Google's OAuth 2.0 token revocation endpoint.
const GoogleRevokeURL = "https://oauth2.googleapis.com/revoke"

var (
	_ session.IdentityProvider = (*GoogleProvider)(nil)
	_ session.Detacher         = (*GoogleProvider)(nil)
)

// GoogleProvider wraps golang.org/x/oauth2 for the Authorization Code flow
// against Google (the identity provider behind Firebase Authentication).
//
// It remembers the token from the last successful Exchange so SignOut can
// revoke it. The token lives in memory only; after a restart SignOut has
// nothing to revoke and succeeds as a no-op.
type GoogleProvider struct {
	config     *oauth2.Config
	revokeURL  string
	httpClient *http.Client

	mu    sync.Mutex
	token *oauth2.Token
}

// ProviderOption customises a GoogleProvider.
type ProviderOption func(*GoogleProvider)

// WithEndpoint points the provider at a different authorization server
// (an emulator, or a test server).
func WithEndpoint(ep oauth2.Endpoint) ProviderOption {
	return func(p *GoogleProvider) { p.config.Endpoint = ep }
}

// WithRevokeURL overrides the revocation endpoint.
func WithRevokeURL(u string) ProviderOption {
	return func(p *GoogleProvider) { p.revokeURL = u }
}

// WithHTTPClient sets the client used for token exchange and revocation.
func WithHTTPClient(c *http.Client) ProviderOption {
	return func(p *GoogleProvider) { p.httpClient = c }
}

// NewGoogleProvider creates a provider for the given OAuth client.
//
// Scopes: "openid" makes Google return an ID token; "email" and "profile"
// put the address, name and picture into it.
func NewGoogleProvider(clientID, clientSecret, callbackURL string, opts ...ProviderOption) *GoogleProvider {
	p := &GoogleProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  callbackURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     endpoints.Google,
		},
		revokeURL:  GoogleRevokeURL,
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// AuthURL returns the URL to send the browser to. state must be echoed back
// on the callback; the handler compares it with the value in its cookie.
func (p *GoogleProvider) AuthURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange completes the flow: it trades the authorization code for tokens
// and decodes the ID token into a FederatedIdentity.
func (p *GoogleProvider) Exchange(ctx context.Context, code string) (*FederatedIdentity, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)

	tok, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("auth: exchanging OAuth code: %w", err)
	}

	rawIDToken, _ := tok.Extra("id_token").(string)
	if rawIDToken == "" {
		return nil, fmt.Errorf("auth: token response has no id_token")
	}

	identity, err := ParseIDToken(rawIDToken)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.token = tok
	p.mu.Unlock()

	return identity, nil
}

// SignOut revokes the held token at the provider.
func (p *GoogleProvider) SignOut(ctx context.Context) error {
	return p.Detach()(ctx)
}

// Detach forgets the held token at once and returns the call that revokes
// it. A token stored by a later Exchange is not touched by that call, so a
// slow logout cannot end a newer sign-in. Revoking the refresh token (when
// there is one) also invalidates its access tokens.
func (p *GoogleProvider) Detach() func(ctx context.Context) error {
	p.mu.Lock()
	tok := p.token
	p.token = nil
	p.mu.Unlock()

	return func(ctx context.Context) error {
		if tok == nil {
			return nil
		}
		return p.revoke(ctx, tok)
	}
}

func (p *GoogleProvider) revoke(ctx context.Context, tok *oauth2.Token) error {
	value := tok.RefreshToken
	if value == "" {
		value = tok.AccessToken
	}

	form := url.Values{"token": {value}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.revokeURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("auth: building revoke request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("auth: revoking token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("auth: revoke endpoint returned status %d", resp.StatusCode)
	}
	return nil
}
