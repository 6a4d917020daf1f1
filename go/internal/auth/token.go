package auth

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"
)

var (
	// ErrMissingToken is returned when a request carries no token
	ErrMissingToken = errors.New("authentication error: no token provided")
	// ErrInvalidToken is returned when the token is malformed or badly signed
	ErrInvalidToken = errors.New("authentication error: invalid token")
	// ErrExpiredToken is returned when the token has expired
	ErrExpiredToken = errors.New("authentication error: token has expired")
	// ErrMissingUsername is returned when issuing a token without a username
	ErrMissingUsername = errors.New("username is required")
)

// Config holds token settings
type Config struct {
	SecretKey string
	TokenTTL  time.Duration
	Issuer    string
}

// DefaultConfig returns a 24h token configuration.
// The secret must be overridden outside development.
func DefaultConfig() Config {
	return Config{
		SecretKey: "change-me-in-production",
		TokenTTL:  24 * time.Hour,
		Issuer:    "rpsls",
	}
}

// Claims identifies a player
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// TokenManager issues and verifies player tokens
type TokenManager struct {
	config Config
	clock  clockwork.Clock
}

// NewTokenManager creates a TokenManager; a nil clock uses the real clock
func NewTokenManager(config Config, clock clockwork.Clock) *TokenManager {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &TokenManager{
		config: config,
		clock:  clock,
	}
}

// Issue signs a token for username
func (m *TokenManager) Issue(username string) (string, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return "", ErrMissingUsername
	}

	now := m.clock.Now()
	claims := Claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.config.Issuer,
			Subject:   username,
			ExpiresAt: jwt.NewNumericDate(now.Add(m.config.TokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(m.config.SecretKey))
}

// Verify validates tokenString and returns its claims
func (m *TokenManager) Verify(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrMissingToken
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(m.config.SecretKey), nil
	}, jwt.WithTimeFunc(m.clock.Now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Username == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// TTL returns the configured token lifetime
func (m *TokenManager) TTL() time.Duration {
	return m.config.TokenTTL
}

// TokenFromRequest extracts a token from the "token" query parameter or a
// bearer Authorization header. Browsers cannot set headers on websocket
// upgrades, hence the query parameter.
func TokenFromRequest(r *http.Request) (string, error) {
	if token := r.URL.Query().Get("token"); token != "" {
		return token, nil
	}

	header := r.Header.Get("Authorization")
	if header == "" {
		return "", ErrMissingToken
	}

	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", ErrInvalidToken
	}
	return strings.TrimSpace(token), nil
}
