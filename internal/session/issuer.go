package session

import (
	"errors"
	"fmt"
	"time"

	"authgate/internal/user"

	"github.com/golang-jwt/jwt/v5"
)

const DefaultTTL = 24 * time.Hour

var (
	ErrSigning      = errors.New("session token signing failed")
	ErrInvalidToken = errors.New("invalid session token")
)

// Claims is the payload the front-end reads from the session token.
type Claims struct {
	UserID  int64  `json:"id,string"`
	Role    string `json:"role"`
	Name    string `json:"name"`
	Color   string `json:"color"`
	Picture string `json:"picture"`
	jwt.RegisteredClaims
}

type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewIssuer(secret string, ttl time.Duration) (*Issuer, error) {
	if secret == "" {
		return nil, fmt.Errorf("%w: empty secret", ErrSigning)
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Issuer{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// Issue signs a fresh HS256 token for u. Tokens are never stored.
func (i *Issuer) Issue(u *user.User) (string, error) {
	if u == nil {
		return "", fmt.Errorf("%w: nil user", ErrSigning)
	}

	now := i.now()
	claims := &Claims{
		UserID:  u.ID,
		Role:    u.Role,
		Name:    u.DisplayName(),
		Color:   u.Color,
		Picture: u.Picture,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrSigning, err)
	}
	return signed, nil
}

// Parse verifies a token issued by this issuer. The callback flow never
// calls it; it exists for consumers sharing the secret.
func (i *Issuer) Parse(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return i.secret, nil
	}, jwt.WithTimeFunc(i.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
