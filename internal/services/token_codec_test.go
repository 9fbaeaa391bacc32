package services

import (
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-at-least-32-bytes-long!!"

func TestAccessTokenRoundTrip(t *testing.T) {
	codec := NewTokenCodec(testSecret)
	userID := uuid.New()
	scopes := []string{"payments", "read_balance"}

	token, err := codec.SignAccess(userID, "ai-agent", scopes)
	require.NoError(t, err)

	claims, err := codec.VerifyAgent(token)
	require.NoError(t, err)
	assert.Equal(t, userID.String(), claims.UserID)
	assert.Equal(t, "ai-agent", claims.ClientID)
	assert.Equal(t, TokenTypeAccess, claims.TokenType)
	assert.True(t, claims.HasScope("payments"))
	assert.False(t, claims.HasScope("read_transactions"))
}

func TestRefreshTokenCarriesNoScopes(t *testing.T) {
	codec := NewTokenCodec(testSecret)

	token, err := codec.SignRefresh(uuid.New(), "ai-agent")
	require.NoError(t, err)

	claims, err := codec.VerifyAgent(token)
	require.NoError(t, err)
	assert.Equal(t, TokenTypeRefresh, claims.TokenType)
	assert.Empty(t, claims.Scopes)
}

func TestConsentTokenBoundToPreview(t *testing.T) {
	codec := NewTokenCodec(testSecret)
	previewID := uuid.New()
	userID := uuid.New()

	token, err := codec.SignConsent(previewID, userID)
	require.NoError(t, err)

	claims, err := codec.VerifyConsent(token)
	require.NoError(t, err)
	assert.Equal(t, previewID.String(), claims.PreviewID)
	assert.Equal(t, userID.String(), claims.UserID)
	assert.Equal(t, ConsentPurpose, claims.Purpose)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	token, err := NewTokenCodec(testSecret).SignAccess(uuid.New(), "ai-agent", nil)
	require.NoError(t, err)

	_, err = NewTokenCodec("a-completely-different-secret-value").VerifyAgent(token)
	assert.Error(t, err)
}

func TestVerifyRejectsTamperedToken(t *testing.T) {
	codec := NewTokenCodec(testSecret)
	token, err := codec.SignAccess(uuid.New(), "ai-agent", []string{"payments"})
	require.NoError(t, err)

	tampered := token[:len(token)-4] + "AAAA"
	_, err = codec.VerifyAgent(tampered)
	assert.Error(t, err)
}

func TestVerifyRejectsUnexpectedAlgorithm(t *testing.T) {
	codec := NewTokenCodec(testSecret)

	// alg=none must never verify, regardless of the claims inside.
	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, &AgentClaims{
		UserID:    uuid.NewString(),
		ClientID:  "ai-agent",
		TokenType: TokenTypeAccess,
	})
	raw, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = codec.VerifyAgent(raw)
	assert.Error(t, err)
}

func TestConsentTokenIsNotAnAccessToken(t *testing.T) {
	codec := NewTokenCodec(testSecret)

	token, err := codec.SignConsent(uuid.New(), uuid.New())
	require.NoError(t, err)

	_, err = codec.VerifyAgent(token)
	assert.Error(t, err)
}
