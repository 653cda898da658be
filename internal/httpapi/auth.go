package httpapi

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// DefaultTokenTTL is the lifetime of tokens issued without an explicit one
	DefaultTokenTTL = 24 * time.Hour

	// TokenIssuer is the iss claim of every token; others are rejected
	TokenIssuer = "lpar-forwarder"
)

var (
	// ErrEmptyClientID is returned when a token is requested without a client
	ErrEmptyClientID = errors.New("client ID cannot be empty")
	// ErrMissingToken is returned when no token was presented
	ErrMissingToken = errors.New("token cannot be empty")
	// ErrInvalidToken wraps every verification failure
	ErrInvalidToken = errors.New("invalid token")
)

// Claims are the claims of a status API token. The subject is the client
// ID; Admin unlocks the /api/v1/admin routes.
type Claims struct {
	Admin bool `json:"admin,omitempty"`
	jwt.RegisteredClaims
}

// ClientID returns the client the token was issued to
func (c *Claims) ClientID() string {
	return c.Subject
}

// Tokens issues and verifies HS256 tokens signed with one shared secret
type Tokens struct {
	secret []byte
	ttl    time.Duration
}

// NewTokens returns a Tokens for secret. A ttl <= 0 means DefaultTokenTTL.
func NewTokens(secret string, ttl time.Duration) *Tokens {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &Tokens{secret: []byte(secret), ttl: ttl}
}

// Issue signs a token for clientID and returns it with its expiry
func (t *Tokens) Issue(clientID string, admin bool) (string, time.Time, error) {
	if clientID == "" {
		return "", time.Time{}, ErrEmptyClientID
	}

	now := time.Now()
	expiresAt := now.Add(t.ttl)
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		Admin: admin,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    TokenIssuer,
			Subject:   clientID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token for %s: %w", clientID, err)
	}
	return signed, expiresAt, nil
}

// Verify checks the signature, issuer and expiry of raw, which may carry a
// "Bearer " prefix
func (t *Tokens) Verify(raw string) (*Claims, error) {
	raw = strings.TrimSpace(strings.TrimPrefix(raw, "Bearer "))
	if raw == "" {
		return nil, ErrMissingToken
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, t.key,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(TokenIssuer),
		jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: no client ID", ErrInvalidToken)
	}
	return claims, nil
}

func (t *Tokens) key(*jwt.Token) (any, error) {
	return t.secret, nil
}
