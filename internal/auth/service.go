// Package auth implements the Google sign-in callback: it turns an
// authorization code into a signed session token and a front-end redirect.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"authgate/internal/google"
	"authgate/internal/user"
	"authgate/pkg/logger"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
)

const (
	instrumentationName = "authgate/internal/auth"
	tokenQueryParam     = "google_token"
)

type ProviderClient interface {
	AuthCodeURL() string
	ExchangeCode(ctx context.Context, code string) (string, error)
	FetchProfile(ctx context.Context, accessToken string) (*google.Profile, error)
}

type IdentityResolver interface {
	FindOrCreate(ctx context.Context, profile *google.Profile) (*user.User, error)
}

type CredentialIssuer interface {
	Issue(u *user.User) (string, error)
}

type Service struct {
	provider    ProviderClient
	resolver    IdentityResolver
	issuer      CredentialIssuer
	ledger      CodeLedger
	frontendURL *url.URL
	logger      logger.Logger
	outcomes    metric.Int64Counter
}

type Option func(*Service)

// WithCodeLedger refuses authorization codes that were already presented.
func WithCodeLedger(l CodeLedger) Option {
	return func(s *Service) {
		s.ledger = l
	}
}

func NewService(
	provider ProviderClient,
	resolver IdentityResolver,
	issuer CredentialIssuer,
	frontendRedirectURI string,
	log logger.Logger,
	opts ...Option,
) (*Service, error) {
	frontendURL, err := url.Parse(frontendRedirectURI)
	if err != nil || frontendURL.Scheme == "" || frontendURL.Host == "" {
		return nil, fmt.Errorf("invalid frontend redirect uri %q", frontendRedirectURI)
	}

	outcomes, err := otel.Meter(instrumentationName).Int64Counter(
		"auth.google.callback",
		metric.WithDescription("Google callback outcomes by result kind"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create callback counter: %w", err)
	}

	s := &Service{
		provider:    provider,
		resolver:    resolver,
		issuer:      issuer,
		frontendURL: frontendURL,
		logger:      log,
		outcomes:    outcomes,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// LoginURL is the Google consent page that starts the flow.
func (s *Service) LoginURL() string {
	return s.provider.AuthCodeURL()
}

// Callback runs the whole exchange for one authorization code and returns
// the front-end URL carrying the session token. Any failure is an *Error;
// nothing is retried.
func (s *Service) Callback(ctx context.Context, code string) (redirectURL string, err error) {
	ctx, span := otel.Tracer(instrumentationName).Start(ctx, "auth.GoogleCallback")
	defer func() {
		result := "success"
		if err != nil {
			result = string(KindOf(err))
			span.RecordError(err)
			span.SetStatus(codes.Error, result)
		}
		s.outcomes.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
		span.End()
	}()

	if code == "" {
		return "", newError(KindValidation, ErrCodeRequired)
	}

	if s.ledger != nil {
		fresh, err := s.ledger.Claim(ctx, code)
		if err != nil {
			return "", newError(KindInternal, err)
		}
		if !fresh {
			return "", newError(KindValidation, ErrCodeReused)
		}
	}

	accessToken, err := s.provider.ExchangeCode(ctx, code)
	if err != nil {
		return "", newError(KindTokenExchange, err)
	}

	profile, err := s.provider.FetchProfile(ctx, accessToken)
	if err != nil {
		if errors.Is(err, google.ErrUnverifiedEmail) {
			return "", newError(KindUnverified, err)
		}
		return "", newError(KindProfile, err)
	}

	u, err := s.resolver.FindOrCreate(ctx, profile)
	if err != nil {
		return "", newError(KindPersistence, err)
	}
	span.SetAttributes(attribute.Int64("user.id", u.ID))

	token, err := s.issuer.Issue(u)
	if err != nil {
		return "", newError(KindSigning, err)
	}

	s.logger.Info("google login succeeded",
		logger.Field{Key: "user_id", Value: u.ID},
		logger.Field{Key: "role", Value: u.Role},
	)
	return s.redirectURL(token), nil
}

func (s *Service) redirectURL(token string) string {
	target := *s.frontendURL
	q := target.Query()
	q.Set(tokenQueryParam, token)
	target.RawQuery = q.Encode()
	return target.String()
}
