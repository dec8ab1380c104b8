// Package google talks to Google's OAuth2 token and userinfo endpoints.
package google

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/coreos/go-oidc/v3/oidc"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/oauth2"
)

const tracerName = "authgate/internal/google"

var (
	ErrTokenExchange   = errors.New("google token exchange failed")
	ErrProfileFetch    = errors.New("google userinfo request failed")
	ErrUnverifiedEmail = errors.New("email not verified")
)

type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	AuthURL      string
	TokenURL     string
	UserInfoURL  string
}

// Profile is the subset of the userinfo response the callback needs.
type Profile struct {
	ExternalID    string `json:"sub"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Picture       string `json:"picture"`
}

type Client struct {
	oauth      *oauth2.Config
	provider   *oidc.Provider
	httpClient *http.Client
}

// NewClient builds a client from static endpoint configuration. No discovery
// request is made.
func NewClient(ctx context.Context, cfg Config, httpClient *http.Client) (*Client, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.RedirectURI == "" {
		return nil, errors.New("google oauth config missing required fields")
	}
	if cfg.TokenURL == "" || cfg.UserInfoURL == "" {
		return nil, errors.New("google oauth config missing endpoint urls")
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	providerCfg := &oidc.ProviderConfig{
		AuthURL:     cfg.AuthURL,
		TokenURL:    cfg.TokenURL,
		UserInfoURL: cfg.UserInfoURL,
	}

	return &Client{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.AuthURL,
				TokenURL:  cfg.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
			Scopes: []string{oidc.ScopeOpenID, "profile", "email"},
		},
		provider:   providerCfg.NewProvider(ctx),
		httpClient: httpClient,
	}, nil
}

// AuthCodeURL returns the consent page URL the browser is sent to.
func (c *Client) AuthCodeURL() string {
	return c.oauth.AuthCodeURL("", oauth2.AccessTypeOnline)
}

// ExchangeCode trades a single-use authorization code for an access token.
// Every failure, including a response without access_token, wraps
// ErrTokenExchange.
func (c *Client) ExchangeCode(ctx context.Context, code string) (string, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "google.ExchangeCode")
	defer span.End()

	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	token, err := c.oauth.Exchange(ctx, code)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "token exchange failed")
		return "", fmt.Errorf("%w: %w", ErrTokenExchange, err)
	}
	if token.AccessToken == "" {
		span.SetStatus(codes.Error, "no access token")
		return "", fmt.Errorf("%w: no access token in response", ErrTokenExchange)
	}

	return token.AccessToken, nil
}

// FetchProfile reads the userinfo of the token's owner. A profile whose
// email is not verified is rejected with ErrUnverifiedEmail.
func (c *Client) FetchProfile(ctx context.Context, accessToken string) (*Profile, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "google.FetchProfile")
	defer span.End()

	ctx = oidc.ClientContext(ctx, c.httpClient)
	info, err := c.provider.UserInfo(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
	}))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "userinfo failed")
		return nil, fmt.Errorf("%w: %w", ErrProfileFetch, err)
	}

	var claims struct {
		Name    string `json:"name"`
		Picture string `json:"picture"`
	}
	if err := info.Claims(&claims); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("%w: failed to parse claims: %w", ErrProfileFetch, err)
	}

	// email_verified may arrive as a string; go-oidc normalises it.
	profile := Profile{
		ExternalID:    info.Subject,
		Name:          claims.Name,
		Email:         info.Email,
		EmailVerified: info.EmailVerified,
		Picture:       claims.Picture,
	}

	span.SetAttributes(attribute.Bool("google.email_verified", profile.EmailVerified))
	if !profile.EmailVerified {
		return nil, ErrUnverifiedEmail
	}

	return &profile, nil
}
