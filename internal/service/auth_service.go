package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Common auth errors.
var (
	ErrSecretRequired  = errors.New("JWT secret is required")
	ErrLearnerRequired = errors.New("learner id is required")
)

// TokenType distinguishes learner stream tokens from observer tokens.
type TokenType string

const (
	TokenTypeLearner  TokenType = "learner"
	TokenTypeObserver TokenType = "observer"
)

// Claims extends JWT standard claims with lesson-specific fields.
type Claims struct {
	jwt.RegisteredClaims
	TokenType TokenType `json:"token_type"`
	LearnerID string    `json:"learner_id"`
	// SessionID binds the token to one lesson session.
	SessionID string `json:"session_id"`
}

// AuthService issues and validates the credentials appended to the lesson stream URL.
type AuthService struct {
	secret []byte
	expiry time.Duration
}

// NewAuthService creates a new AuthService.
func NewAuthService(secret string, expiry time.Duration) (*AuthService, error) {
	if secret == "" {
		return nil, ErrSecretRequired
	}
	if expiry <= 0 {
		expiry = 24 * time.Hour
	}
	return &AuthService{secret: []byte(secret), expiry: expiry}, nil
}

// IssuedToken is a signed credential and the session it is bound to.
type IssuedToken struct {
	Token     string    `json:"token"`
	SessionID string    `json:"session_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// GenerateToken signs a token of the given type for learnerID. An empty
// sessionID starts a new session.
func (s *AuthService) GenerateToken(tokenType TokenType, learnerID, sessionID string) (*IssuedToken, error) {
	if learnerID == "" {
		return nil, ErrLearnerRequired
	}
	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	now := time.Now()
	expiresAt := now.Add(s.expiry)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   learnerID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		TokenType: tokenType,
		LearnerID: learnerID,
		SessionID: sessionID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	return &IssuedToken{Token: signed, SessionID: sessionID, ExpiresAt: expiresAt.UTC()}, nil
}

// ValidateToken parses and validates a JWT, returning the claims.
func (s *AuthService) ValidateToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}

	return claims, nil
}
