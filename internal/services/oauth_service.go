package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"voxbank/internal/common"
	"voxbank/internal/models"
	"voxbank/internal/repositories"

	"github.com/google/uuid"
)

// GrantTTL is how long an authorization code stays exchangeable.
const GrantTTL = 10 * time.Minute

// OAuthConfig describes the single registered agent client. There is no
// dynamic client registration; the redirect URI must match exactly.
type OAuthConfig struct {
	ClientID    string
	RedirectURI string
}

// IssueResult is returned from a successful authorization.
type IssueResult struct {
	Code  string
	State string
}

// OAuthService implements the authorization grant state machine:
// NONE -> CODE_ISSUED -> EXCHANGED.
type OAuthService interface {
	// Issue validates the request against the registered client and persists
	// a one-time authorization code for an authenticated user.
	Issue(ctx context.Context, userID uuid.UUID, clientID, redirectURI, scope, state string, codeChallenge, codeChallengeMethod *string) (*IssueResult, error)

	// Exchange consumes the code exactly once and mints scoped tokens.
	Exchange(ctx context.Context, req *models.TokenRequest) (*models.TokenResponse, error)

	// Revoke always reports success per RFC 7009. Tokens are stateless, so
	// there is no durable blacklist: revoked tokens expire naturally. Known
	// limitation of this design.
	Revoke(ctx context.Context, token string) error
}

type oauthService struct {
	grantRepo repositories.GrantRepository
	codec     TokenCodec
	config    OAuthConfig
}

func NewOAuthService(grantRepo repositories.GrantRepository, codec TokenCodec, config OAuthConfig) OAuthService {
	return &oauthService{grantRepo: grantRepo, codec: codec, config: config}
}

func (s *oauthService) Issue(ctx context.Context, userID uuid.UUID, clientID, redirectURI, scope, state string, codeChallenge, codeChallengeMethod *string) (*IssueResult, error) {
	if clientID != s.config.ClientID {
		return nil, common.ErrInvalidClient
	}
	if redirectURI != s.config.RedirectURI {
		return nil, common.ErrInvalidRedirect
	}

	var scopes []string
	for _, sc := range strings.Fields(scope) {
		if models.IsValidScope(sc) {
			scopes = append(scopes, sc)
		}
	}
	if len(scopes) == 0 {
		return nil, common.ErrInvalidScope
	}

	code, err := generateOpaqueCode()
	if err != nil {
		return nil, fmt.Errorf("failed to generate authorization code: %w", err)
	}

	grant := &models.AuthorizationGrant{
		ID:                  uuid.New(),
		UserID:              userID,
		ClientID:            clientID,
		AuthorizationCode:   code,
		Scopes:              scopes,
		RedirectURI:         redirectURI,
		CodeChallenge:       codeChallenge,
		CodeChallengeMethod: codeChallengeMethod,
		ExpiresAt:           time.Now().Add(GrantTTL),
	}
	if err := s.grantRepo.Create(ctx, grant); err != nil {
		return nil, fmt.Errorf("failed to persist authorization grant: %w", err)
	}

	return &IssueResult{Code: code, State: state}, nil
}

func (s *oauthService) Exchange(ctx context.Context, req *models.TokenRequest) (*models.TokenResponse, error) {
	if req.GrantType != "authorization_code" {
		return nil, fmt.Errorf("%w: unsupported grant type %q", common.ErrInvalidGrant, req.GrantType)
	}
	if req.ClientID != s.config.ClientID {
		return nil, common.ErrInvalidClient
	}
	if req.RedirectURI != s.config.RedirectURI {
		return nil, fmt.Errorf("%w: redirect uri mismatch", common.ErrInvalidGrant)
	}
	if req.Code == "" {
		return nil, fmt.Errorf("%w: authorization code is required", common.ErrInvalidGrant)
	}

	grant, err := s.grantRepo.GetByCode(ctx, req.Code)
	if errors.Is(err, common.ErrNotFound) {
		return nil, fmt.Errorf("%w: code not found", common.ErrInvalidGrant)
	}
	if err != nil {
		return nil, err
	}

	if time.Now().After(grant.ExpiresAt) {
		return nil, fmt.Errorf("%w: %w", common.ErrInvalidGrant, common.ErrExpired)
	}

	if grant.CodeChallenge != nil {
		if err := verifyPKCE(*grant.CodeChallenge, grant.CodeChallengeMethod, req.CodeVerifier); err != nil {
			return nil, err
		}
	}

	// The used flip is the one-time consumption point. A replay reaches here
	// and fails with ErrAlreadyUsed, distinct from code-not-found.
	if err := s.grantRepo.MarkUsed(ctx, grant.ID); err != nil {
		if errors.Is(err, common.ErrAlreadyUsed) {
			return nil, fmt.Errorf("%w: %w", common.ErrInvalidGrant, common.ErrAlreadyUsed)
		}
		return nil, err
	}

	accessToken, err := s.codec.SignAccess(grant.UserID, grant.ClientID, grant.Scopes)
	if err != nil {
		return nil, err
	}
	refreshToken, err := s.codec.SignRefresh(grant.UserID, grant.ClientID)
	if err != nil {
		return nil, err
	}

	return &models.TokenResponse{
		AccessToken:  accessToken,
		TokenType:    "Bearer",
		ExpiresIn:    int(AccessTokenTTL.Seconds()),
		RefreshToken: refreshToken,
		Scope:        strings.Join(grant.Scopes, " "),
	}, nil
}

func (s *oauthService) Revoke(ctx context.Context, token string) error {
	if _, err := s.codec.VerifyAgent(token); err != nil {
		// Invalid or expired tokens still revoke successfully (RFC 7009).
		log.Printf("revoke called with invalid token: %v", err)
	}
	return nil
}

func verifyPKCE(challenge string, method *string, verifier string) error {
	if verifier == "" {
		return fmt.Errorf("%w: code verifier is required", common.ErrInvalidGrant)
	}

	expected := verifier
	if method == nil || *method == "S256" {
		sum := sha256.Sum256([]byte(verifier))
		expected = base64.RawURLEncoding.EncodeToString(sum[:])
	}

	if subtle.ConstantTimeCompare([]byte(expected), []byte(challenge)) != 1 {
		return fmt.Errorf("%w: code verifier mismatch", common.ErrInvalidGrant)
	}
	return nil
}

func generateOpaqueCode() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
