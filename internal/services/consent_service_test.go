package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"voxbank/internal/models"
)

func hashPIN(t *testing.T, pin string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func TestSetPIN_ValidatesFormat(t *testing.T) {
	svc := NewConsentService(&MockConsentRepository{}, NewTokenCodec(testSecret))
	ctx := context.Background()
	userID := uuid.New()

	assert.Error(t, svc.SetPIN(ctx, userID, "12"))
	assert.Error(t, svc.SetPIN(ctx, userID, "123456789"))
	assert.Error(t, svc.SetPIN(ctx, userID, "12a4"))
}

func TestVerifyPIN_SuccessMintsConsentToken(t *testing.T) {
	repo := &MockConsentRepository{}
	codec := NewTokenCodec(testSecret)
	svc := NewConsentService(repo, codec)
	ctx := context.Background()
	userID := uuid.New()
	previewID := uuid.New()

	repo.On("GetPIN", ctx, userID).Return(&models.UserPIN{
		UserID:  userID,
		PINHash: hashPIN(t, "4321"),
	}, nil)

	token, err := svc.VerifyPIN(ctx, userID, previewID, "4321")
	require.NoError(t, err)

	claims, err := codec.VerifyConsent(token)
	require.NoError(t, err)
	assert.Equal(t, previewID.String(), claims.PreviewID)
	assert.Equal(t, userID.String(), claims.UserID)
}

func TestVerifyPIN_WrongPINCountsAttempt(t *testing.T) {
	repo := &MockConsentRepository{}
	svc := NewConsentService(repo, NewTokenCodec(testSecret))
	ctx := context.Background()
	userID := uuid.New()

	repo.On("GetPIN", ctx, userID).Return(&models.UserPIN{
		UserID:         userID,
		PINHash:        hashPIN(t, "4321"),
		FailedAttempts: 1,
	}, nil)
	repo.On("RecordPINAttempt", ctx, userID, 2, (*time.Time)(nil)).Return(nil)

	_, err := svc.VerifyPIN(ctx, userID, uuid.New(), "0000")
	assert.ErrorIs(t, err, ErrPINMismatch)
	repo.AssertExpectations(t)
}

func TestVerifyPIN_LocksAfterMaxFailures(t *testing.T) {
	repo := &MockConsentRepository{}
	svc := NewConsentService(repo, NewTokenCodec(testSecret))
	ctx := context.Background()
	userID := uuid.New()

	repo.On("GetPIN", ctx, userID).Return(&models.UserPIN{
		UserID:         userID,
		PINHash:        hashPIN(t, "4321"),
		FailedAttempts: 4,
	}, nil)
	repo.On("RecordPINAttempt", ctx, userID, 5, mock.AnythingOfType("*time.Time")).Return(nil)

	_, err := svc.VerifyPIN(ctx, userID, uuid.New(), "0000")
	assert.ErrorIs(t, err, ErrPINLocked)
}

func TestVerifyPIN_RejectsWhileLocked(t *testing.T) {
	repo := &MockConsentRepository{}
	svc := NewConsentService(repo, NewTokenCodec(testSecret))
	ctx := context.Background()
	userID := uuid.New()
	until := time.Now().Add(10 * time.Minute)

	repo.On("GetPIN", ctx, userID).Return(&models.UserPIN{
		UserID:      userID,
		PINHash:     hashPIN(t, "4321"),
		LockedUntil: &until,
	}, nil)

	_, err := svc.VerifyPIN(ctx, userID, uuid.New(), "4321")
	assert.ErrorIs(t, err, ErrPINLocked)
}

func TestVerifyVoice_MatchAboveThreshold(t *testing.T) {
	repo := &MockConsentRepository{}
	codec := NewTokenCodec(testSecret)
	svc := NewConsentService(repo, codec)
	ctx := context.Background()
	userID := uuid.New()
	previewID := uuid.New()

	repo.On("GetVoiceProfile", ctx, userID).Return(&models.VoiceProfile{
		UserID:    userID,
		Embedding: []float64{1, 0, 0.5},
	}, nil)

	// Identical vector: similarity 1.0.
	token, err := svc.VerifyVoice(ctx, userID, previewID, []float64{1, 0, 0.5})
	require.NoError(t, err)

	claims, err := codec.VerifyConsent(token)
	require.NoError(t, err)
	assert.Equal(t, previewID.String(), claims.PreviewID)
}

func TestVerifyVoice_RejectsDissimilarSample(t *testing.T) {
	repo := &MockConsentRepository{}
	svc := NewConsentService(repo, NewTokenCodec(testSecret))
	ctx := context.Background()
	userID := uuid.New()

	repo.On("GetVoiceProfile", ctx, userID).Return(&models.VoiceProfile{
		UserID:    userID,
		Embedding: []float64{1, 0, 0},
	}, nil)

	// Orthogonal vector: similarity 0.
	_, err := svc.VerifyVoice(ctx, userID, uuid.New(), []float64{0, 1, 0})
	assert.ErrorIs(t, err, ErrVoiceNoMatch)
}

func TestCosineSimilarity_LengthMismatch(t *testing.T) {
	_, err := cosineSimilarity([]float64{1, 2}, []float64{1, 2, 3})
	assert.Error(t, err)
}
