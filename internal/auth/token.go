package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/tenantry/tenantry/internal/config"
)

// TokenService issues and validates the short-lived JWT access tokens that
// accompany a session. The JWT is a convenience for stateless claims
// transport; authorization state (expiry, revocation) lives on the session
// row, referenced here by the token hash.
type TokenService struct {
	cfg config.AccessTokenConfig
}

// TokenClaims are the claims carried by an access token
type TokenClaims struct {
	jwt.RegisteredClaims
	UserID      string `json:"user_id"`
	SessionHash string `json:"session_hash,omitempty"`
}

// NewTokenService creates a new TokenService
func NewTokenService(cfg config.AccessTokenConfig) (*TokenService, error) {
	if cfg.Secret == "" {
		return nil, fmt.Errorf("access token secret is not configured")
	}
	return &TokenService{cfg: cfg}, nil
}

// GenerateAccessToken signs an access token for the given user and session.
// sessionHash is the stored hash of the session token, never the plaintext.
func (s *TokenService) GenerateAccessToken(userID, username, sessionHash string) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(s.cfg.TTL)

	claims := TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			Issuer:    s.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		UserID:      userID,
		SessionHash: sessionHash,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign access token: %w", err)
	}

	return signed, expiresAt, nil
}

// ValidateAccessToken parses and validates an access token
func (s *TokenService) ValidateAccessToken(tokenString string) (*TokenClaims, error) {
	claims := &TokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.cfg.Secret), nil
	}, jwt.WithIssuer(s.cfg.Issuer), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("invalid access token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid access token")
	}
	return claims, nil
}
