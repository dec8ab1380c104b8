package google_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"authgate/internal/google"
	"authgate/internal/google/googletest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T, srv *googletest.Server) *google.Client {
	t.Helper()
	client, err := google.NewClient(context.Background(), google.Config{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURI:  "http://localhost:8080/auth/google/callback",
		AuthURL:      srv.AuthURL(),
		TokenURL:     srv.TokenURL(),
		UserInfoURL:  srv.UserInfoURL(),
	}, &http.Client{Timeout: 5 * time.Second})
	require.NoError(t, err)
	return client
}

func TestNewClient_RequiresCredentials(t *testing.T) {
	_, err := google.NewClient(context.Background(), google.Config{
		ClientID:    "client-id",
		TokenURL:    "http://example.com/token",
		UserInfoURL: "http://example.com/userinfo",
	}, nil)
	assert.Error(t, err)
}

func TestExchangeCode(t *testing.T) {
	srv := googletest.NewServer()
	defer srv.Close()
	client := newClient(t, srv)

	t.Run("posts form and returns access token", func(t *testing.T) {
		srv.AddCode("valid123", "tok")

		token, err := client.ExchangeCode(context.Background(), "valid123")
		require.NoError(t, err)
		assert.Equal(t, "tok", token)

		requests := srv.TokenRequests()
		require.NotEmpty(t, requests)
		form := requests[len(requests)-1]
		assert.Equal(t, "valid123", form.Get("code"))
		assert.Equal(t, "client-id", form.Get("client_id"))
		assert.Equal(t, "client-secret", form.Get("client_secret"))
		assert.Equal(t, "http://localhost:8080/auth/google/callback", form.Get("redirect_uri"))
		assert.Equal(t, "authorization_code", form.Get("grant_type"))
	})

	t.Run("empty response is a token exchange error", func(t *testing.T) {
		srv.AddCode("empty", "")

		_, err := client.ExchangeCode(context.Background(), "empty")
		assert.ErrorIs(t, err, google.ErrTokenExchange)
	})

	t.Run("provider rejection is a token exchange error", func(t *testing.T) {
		_, err := client.ExchangeCode(context.Background(), "unknown")
		assert.ErrorIs(t, err, google.ErrTokenExchange)
	})

	assert.Empty(t, srv.UserInfoAuthHeaders())
}

func TestExchangeCode_NetworkFailure(t *testing.T) {
	srv := googletest.NewServer()
	client := newClient(t, srv)
	srv.Close()

	_, err := client.ExchangeCode(context.Background(), "valid123")
	assert.ErrorIs(t, err, google.ErrTokenExchange)
}

func TestFetchProfile(t *testing.T) {
	srv := googletest.NewServer()
	defer srv.Close()
	client := newClient(t, srv)

	t.Run("verified profile", func(t *testing.T) {
		srv.AddProfile("tok", map[string]any{
			"sub":            "g-1",
			"email":          "a@b.com",
			"email_verified": true,
			"name":           "Ann",
			"picture":        "https://example.com/ann.png",
		})

		profile, err := client.FetchProfile(context.Background(), "tok")
		require.NoError(t, err)
		assert.Equal(t, &google.Profile{
			ExternalID:    "g-1",
			Name:          "Ann",
			Email:         "a@b.com",
			EmailVerified: true,
			Picture:       "https://example.com/ann.png",
		}, profile)

		headers := srv.UserInfoAuthHeaders()
		assert.Equal(t, "Bearer tok", headers[len(headers)-1])
	})

	t.Run("string email_verified is accepted", func(t *testing.T) {
		srv.AddProfile("tok-str", map[string]any{
			"sub":            "g-2",
			"email":          "c@d.com",
			"email_verified": "true",
		})

		profile, err := client.FetchProfile(context.Background(), "tok-str")
		require.NoError(t, err)
		assert.True(t, profile.EmailVerified)
		assert.Empty(t, profile.Picture)
	})

	t.Run("unverified email is rejected", func(t *testing.T) {
		srv.AddProfile("tok-unverified", map[string]any{
			"sub":            "g-3",
			"email":          "e@f.com",
			"email_verified": false,
		})

		profile, err := client.FetchProfile(context.Background(), "tok-unverified")
		assert.Nil(t, profile)
		assert.ErrorIs(t, err, google.ErrUnverifiedEmail)
	})

	t.Run("rejected token is a fetch error", func(t *testing.T) {
		_, err := client.FetchProfile(context.Background(), "nope")
		assert.ErrorIs(t, err, google.ErrProfileFetch)
	})
}

func TestAuthCodeURL(t *testing.T) {
	srv := googletest.NewServer()
	defer srv.Close()
	client := newClient(t, srv)

	authURL := client.AuthCodeURL()
	assert.Contains(t, authURL, srv.AuthURL())
	assert.Contains(t, authURL, "client_id=client-id")
	assert.Contains(t, authURL, "response_type=code")
	assert.Contains(t, authURL, "scope=openid+profile+email")
}
