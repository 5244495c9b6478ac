package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/patrickmn/go-cache"
	"golang.org/x/oauth2"
)

// DefaultGoogleIssuer is Google's OpenID Connect issuer.
const DefaultGoogleIssuer = "https://accounts.google.com"

// StateTTL bounds the time between GoogleStart and the callback.
const StateTTL = 10 * time.Minute

// Google sign-in errors.
var (
	ErrGoogleDisabled  = errors.New("google sign-in is not configured")
	ErrInvalidState    = errors.New("unknown or expired oauth state")
	ErrMissingIDToken  = errors.New("token response carries no id_token")
	ErrUnverifiedEmail = errors.New("google account email is not verified")
)

// GoogleConfig configures Google sign-in. An empty ClientID disables it.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Issuer       string
}

// Enabled reports whether a client ID is configured.
func (c GoogleConfig) Enabled() bool {
	return c.ClientID != ""
}

// GoogleIdentity is the verified content of an ID token.
type GoogleIdentity struct {
	Subject       string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
}

// Google runs the authorization code flow against an OIDC provider.
type Google struct {
	oauth    *oauth2.Config
	verifier *oidc.IDTokenVerifier
	states   *cache.Cache
}

// NewGoogle discovers the provider configuration at cfg.Issuer.
func NewGoogle(ctx context.Context, cfg GoogleConfig) (*Google, error) {
	if !cfg.Enabled() {
		return nil, ErrGoogleDisabled
	}
	issuer := cfg.Issuer
	if issuer == "" {
		issuer = DefaultGoogleIssuer
	}
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("discovering oidc provider %s: %w", issuer, err)
	}
	return newGoogle(cfg, provider.Endpoint(), provider.Verifier(&oidc.Config{ClientID: cfg.ClientID})), nil
}

func newGoogle(cfg GoogleConfig, endpoint oauth2.Endpoint, verifier *oidc.IDTokenVerifier) *Google {
	return &Google{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     endpoint,
			Scopes:       []string{oidc.ScopeOpenID, "email", "profile"},
		},
		verifier: verifier,
		states:   cache.New(StateTTL, 2*StateTTL),
	}
}

// Start issues a fresh state and returns the provider consent URL.
func (g *Google) Start() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating oauth state: %w", err)
	}
	state := base64.RawURLEncoding.EncodeToString(buf)
	g.states.Set(state, struct{}{}, cache.DefaultExpiration)
	return g.oauth.AuthCodeURL(state), nil
}

// Callback consumes state, exchanges code and verifies the returned ID
// token. A state can be used once. Identities whose email the provider has
// not verified are rejected with ErrUnverifiedEmail.
func (g *Google) Callback(ctx context.Context, state, code string) (*GoogleIdentity, error) {
	if _, ok := g.states.Get(state); !ok || state == "" {
		return nil, ErrInvalidState
	}
	g.states.Delete(state)

	token, err := g.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchanging oauth code: %w", err)
	}
	raw, ok := token.Extra("id_token").(string)
	if !ok || raw == "" {
		return nil, ErrMissingIDToken
	}
	idToken, err := g.verifier.Verify(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("verifying id token: %w", err)
	}
	var id GoogleIdentity
	if err := idToken.Claims(&id); err != nil {
		return nil, fmt.Errorf("decoding id token claims: %w", err)
	}
	if id.Subject == "" {
		id.Subject = idToken.Subject
	}
	if id.Email == "" {
		return nil, fmt.Errorf("id token of %s carries no email", id.Subject)
	}
	if !id.EmailVerified {
		return nil, fmt.Errorf("%w: %s", ErrUnverifiedEmail, id.Email)
	}
	return &id, nil
}
