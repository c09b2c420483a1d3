// Package auth issues and verifies the HS256 tokens handed out when an account is created.
package auth

import (
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/jomilojuokuwobi72-oss/WorldMap/internal/domain"
)

const (
	defaultIssuer = "worldmap"
	defaultTTL    = 24 * time.Hour
)

var (
	ErrMissingToken = fmt.Errorf("missing authentication token: %w", domain.ErrUnauthorized)
	ErrExpiredToken = fmt.Errorf("token has expired: %w", domain.ErrUnauthorized)
	ErrInvalidToken = fmt.Errorf("invalid token: %w", domain.ErrUnauthorized)
)

// Claims carries the identity a token was issued for. Subject is the user id.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Identity returns the identity encoded in the claims.
func (c *Claims) Identity() domain.Identity {
	return domain.Identity{UserID: c.Subject, Email: c.Email}
}

// Issuer signs and verifies tokens with one shared secret.
type Issuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer builds an Issuer. An empty secret is replaced by random bytes,
// so tokens stop verifying across restarts; development only.
func NewIssuer(secret string, ttl time.Duration) (*Issuer, error) {
	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("generate jwt secret: %w", err)
		}
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Issuer{secret: key, issuer: defaultIssuer, ttl: ttl, now: time.Now}, nil
}

// Issue signs a token for id.
func (i *Issuer) Issue(id domain.Identity) (string, error) {
	now := i.now()
	claims := Claims{
		Email: id.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			Issuer:    i.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify parses a raw or "Bearer "-prefixed token and returns its claims.
func (i *Issuer) Verify(raw string) (*Claims, error) {
	raw = strings.TrimSpace(raw)
	if scheme, rest, ok := strings.Cut(raw, " "); ok && strings.EqualFold(scheme, "Bearer") {
		raw = strings.TrimSpace(rest)
	} else if strings.EqualFold(raw, "Bearer") {
		raw = ""
	}
	if raw == "" {
		return nil, ErrMissingToken
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(i.issuer),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
