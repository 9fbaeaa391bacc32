package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token lifetimes. Access and refresh follow the grant design; consent
// tokens only need to outlive the preview they approve.
const (
	AccessTokenTTL  = 24 * time.Hour
	RefreshTokenTTL = 30 * 24 * time.Hour
	ConsentTokenTTL = 15 * time.Minute
	SessionTokenTTL = 7 * 24 * time.Hour
)

// Token type discriminators baked into the claims.
const (
	TokenTypeAccess  = "oauth_access_token"
	TokenTypeRefresh = "oauth_refresh_token"
	TokenTypeSession = "session"

	ConsentPurpose = "consent"
)

var ErrInvalidToken = errors.New("invalid token")

// AgentClaims are the claims carried by agent-facing access and refresh
// tokens. Possession of a valid signature equals authority within scope.
type AgentClaims struct {
	UserID    string   `json:"user_id"`
	ClientID  string   `json:"client_id"`
	Scopes    []string `json:"scopes,omitempty"`
	TokenType string   `json:"type"`
	jwt.RegisteredClaims
}

// HasScope reports whether the token grants the named scope.
func (c *AgentClaims) HasScope(scope string) bool {
	for _, s := range c.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// ConsentClaims bind a consent token to one specific preview, proving that
// this preview, not just "a" payment, was approved after being shown.
type ConsentClaims struct {
	PreviewID string `json:"preview_id"`
	UserID    string `json:"user_id"`
	Purpose   string `json:"purpose"`
	jwt.RegisteredClaims
}

// SessionClaims are the interactive banking-session claims set at login.
type SessionClaims struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	TokenType string `json:"type"`
	jwt.RegisteredClaims
}

// TokenCodec signs and verifies every token the core issues. One code path
// for reading: verify-or-reject, never an unsigned-decode fallback.
type TokenCodec interface {
	SignAccess(userID uuid.UUID, clientID string, scopes []string) (string, error)
	SignRefresh(userID uuid.UUID, clientID string) (string, error)
	SignConsent(previewID, userID uuid.UUID) (string, error)
	SignSession(userID uuid.UUID, email string) (string, error)

	VerifyAgent(token string) (*AgentClaims, error)
	VerifyConsent(token string) (*ConsentClaims, error)
	VerifySession(token string) (*SessionClaims, error)
}

type tokenCodec struct {
	secret []byte
	issuer string
}

func NewTokenCodec(secret string) TokenCodec {
	return &tokenCodec{secret: []byte(secret), issuer: "voxbank-core"}
}

func (c *tokenCodec) registered(ttl time.Duration, subject string) jwt.RegisteredClaims {
	now := time.Now()
	return jwt.RegisteredClaims{
		Issuer:    c.issuer,
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		ID:        uuid.NewString(),
	}
}

func (c *tokenCodec) sign(claims jwt.Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

func (c *tokenCodec) SignAccess(userID uuid.UUID, clientID string, scopes []string) (string, error) {
	return c.sign(&AgentClaims{
		UserID:           userID.String(),
		ClientID:         clientID,
		Scopes:           scopes,
		TokenType:        TokenTypeAccess,
		RegisteredClaims: c.registered(AccessTokenTTL, userID.String()),
	})
}

func (c *tokenCodec) SignRefresh(userID uuid.UUID, clientID string) (string, error) {
	return c.sign(&AgentClaims{
		UserID:           userID.String(),
		ClientID:         clientID,
		TokenType:        TokenTypeRefresh,
		RegisteredClaims: c.registered(RefreshTokenTTL, userID.String()),
	})
}

func (c *tokenCodec) SignConsent(previewID, userID uuid.UUID) (string, error) {
	return c.sign(&ConsentClaims{
		PreviewID:        previewID.String(),
		UserID:           userID.String(),
		Purpose:          ConsentPurpose,
		RegisteredClaims: c.registered(ConsentTokenTTL, userID.String()),
	})
}

func (c *tokenCodec) SignSession(userID uuid.UUID, email string) (string, error) {
	return c.sign(&SessionClaims{
		UserID:           userID.String(),
		Email:            email,
		TokenType:        TokenTypeSession,
		RegisteredClaims: c.registered(SessionTokenTTL, userID.String()),
	})
}

// parse rejects anything but HS256 so an alg-downgraded or unsigned token
// can never pass as verified.
func (c *tokenCodec) parse(tokenString string, claims jwt.Claims) error {
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return c.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return ErrInvalidToken
	}
	return nil
}

func (c *tokenCodec) VerifyAgent(tokenString string) (*AgentClaims, error) {
	claims := &AgentClaims{}
	if err := c.parse(tokenString, claims); err != nil {
		return nil, err
	}
	if claims.TokenType != TokenTypeAccess && claims.TokenType != TokenTypeRefresh {
		return nil, fmt.Errorf("%w: unexpected token type %q", ErrInvalidToken, claims.TokenType)
	}
	if _, err := uuid.Parse(claims.UserID); err != nil {
		return nil, fmt.Errorf("%w: malformed user id", ErrInvalidToken)
	}
	return claims, nil
}

func (c *tokenCodec) VerifyConsent(tokenString string) (*ConsentClaims, error) {
	claims := &ConsentClaims{}
	if err := c.parse(tokenString, claims); err != nil {
		return nil, err
	}
	if claims.Purpose != ConsentPurpose {
		return nil, fmt.Errorf("%w: not a consent token", ErrInvalidToken)
	}
	return claims, nil
}

func (c *tokenCodec) VerifySession(tokenString string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	if err := c.parse(tokenString, claims); err != nil {
		return nil, err
	}
	if claims.TokenType != TokenTypeSession {
		return nil, fmt.Errorf("%w: not a session token", ErrInvalidToken)
	}
	return claims, nil
}
