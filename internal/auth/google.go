package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

// GoogleIssuer is the OIDC issuer for Google accounts.
const GoogleIssuer = "https://accounts.google.com"

// GoogleIdentity is the subset of Google profile claims the account service
// consumes.
type GoogleIdentity struct {
	Subject       string
	Email         string
	EmailVerified bool
	GivenName     string
	FamilyName    string
}

// GoogleVerifierOptions configures the verifier.
type GoogleVerifierOptions struct {
	HTTPClient *http.Client
	Timeout    time.Duration
}

// GoogleVerifier validates Google ID tokens against the Google OIDC issuer.
// It is optional: when no client id is configured the google sign-in endpoint
// trusts the asserted profile fields instead.
type GoogleVerifier struct {
	provider *oidc.Provider
	verifier *oidc.IDTokenVerifier
	timeout  time.Duration
}

// NewGoogleVerifier performs OIDC discovery for the Google issuer and returns
// a verifier bound to the given OAuth client id.
func NewGoogleVerifier(ctx context.Context, clientID string, opts GoogleVerifierOptions) (*GoogleVerifier, error) {
	if strings.TrimSpace(clientID) == "" {
		return nil, errors.New("google verifier: client id is required")
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	if opts.HTTPClient != nil {
		ctx = oidc.ClientContext(ctx, opts.HTTPClient)
	}

	discoveryCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	provider, err := oidc.NewProvider(discoveryCtx, GoogleIssuer)
	if err != nil {
		return nil, fmt.Errorf("google verifier: discovery failed: %w", err)
	}

	return &GoogleVerifier{
		provider: provider,
		verifier: provider.Verifier(&oidc.Config{ClientID: clientID}),
		timeout:  timeout,
	}, nil
}

// VerifyIDToken validates a raw ID token and extracts the profile claims.
func (g *GoogleVerifier) VerifyIDToken(ctx context.Context, rawToken string) (*GoogleIdentity, error) {
	if strings.TrimSpace(rawToken) == "" {
		return nil, errors.New("google verifier: id token is required")
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	token, err := g.verifier.Verify(ctx, rawToken)
	if err != nil {
		return nil, fmt.Errorf("google verifier: verify id token: %w", err)
	}

	var claims struct {
		Email         string `json:"email"`
		EmailVerified bool   `json:"email_verified"`
		GivenName     string `json:"given_name"`
		FamilyName    string `json:"family_name"`
	}
	if err := token.Claims(&claims); err != nil {
		return nil, fmt.Errorf("google verifier: decode claims: %w", err)
	}

	return &GoogleIdentity{
		Subject:       token.Subject,
		Email:         claims.Email,
		EmailVerified: claims.EmailVerified,
		GivenName:     claims.GivenName,
		FamilyName:    claims.FamilyName,
	}, nil
}

// UserInfo fetches the profile via the userinfo endpoint using a bearer
// access token. Used when the client has an access token but no ID token.
func (g *GoogleVerifier) UserInfo(ctx context.Context, accessToken string) (*GoogleIdentity, error) {
	if strings.TrimSpace(accessToken) == "" {
		return nil, errors.New("google verifier: access token is required")
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	source := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"})
	info, err := g.provider.UserInfo(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("google verifier: userinfo: %w", err)
	}

	var claims struct {
		GivenName  string `json:"given_name"`
		FamilyName string `json:"family_name"`
	}
	if err := info.Claims(&claims); err != nil {
		return nil, fmt.Errorf("google verifier: decode userinfo claims: %w", err)
	}

	return &GoogleIdentity{
		Subject:       info.Subject,
		Email:         info.Email,
		EmailVerified: info.EmailVerified,
		GivenName:     claims.GivenName,
		FamilyName:    claims.FamilyName,
	}, nil
}
