package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"voxbank/internal/common"
	"voxbank/internal/repositories"
)

const (
	pinMaxFailedAttempts = 5
	pinLockoutDuration   = 15 * time.Minute

	// voiceMatchThreshold is the minimum cosine similarity between the
	// enrolled embedding and the probe for a voice match.
	voiceMatchThreshold = 0.75
)

var (
	ErrPINLocked    = errors.New("pin locked after too many failed attempts")
	ErrPINMismatch  = errors.New("pin does not match")
	ErrVoiceNoMatch = errors.New("voice sample does not match enrolled profile")
)

// ConsentService is the human-factor verifier. A successful verification
// mints a consent token bound to one preview; the pipeline accepts nothing
// else as proof of consent.
type ConsentService interface {
	SetPIN(ctx context.Context, userID uuid.UUID, pin string) error
	// VerifyPIN checks the PIN and, on success, returns a consent token for
	// the given preview. Failed attempts count toward a temporary lockout.
	VerifyPIN(ctx context.Context, userID, previewID uuid.UUID, pin string) (string, error)

	EnrollVoice(ctx context.Context, userID uuid.UUID, embedding []float64) error
	VerifyVoice(ctx context.Context, userID, previewID uuid.UUID, embedding []float64) (string, error)
}

type consentService struct {
	consents repositories.ConsentRepository
	codec    TokenCodec
}

func NewConsentService(consents repositories.ConsentRepository, codec TokenCodec) ConsentService {
	return &consentService{consents: consents, codec: codec}
}

func (s *consentService) SetPIN(ctx context.Context, userID uuid.UUID, pin string) error {
	if len(pin) < 4 || len(pin) > 8 {
		return fmt.Errorf("%w: pin must be 4 to 8 digits", common.ErrInvalidState)
	}
	for _, r := range pin {
		if r < '0' || r > '9' {
			return fmt.Errorf("%w: pin must contain only digits", common.ErrInvalidState)
		}
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash pin: %w", err)
	}
	return s.consents.UpsertPIN(ctx, userID, string(hash))
}

func (s *consentService) VerifyPIN(ctx context.Context, userID, previewID uuid.UUID, pin string) (string, error) {
	record, err := s.consents.GetPIN(ctx, userID)
	if err != nil {
		return "", err
	}
	if record.LockedUntil != nil && time.Now().Before(*record.LockedUntil) {
		return "", ErrPINLocked
	}

	if err := bcrypt.CompareHashAndPassword([]byte(record.PINHash), []byte(pin)); err != nil {
		failed := record.FailedAttempts + 1
		var lockedUntil *time.Time
		if failed >= pinMaxFailedAttempts {
			t := time.Now().Add(pinLockoutDuration)
			lockedUntil = &t
		}
		if recErr := s.consents.RecordPINAttempt(ctx, userID, failed, lockedUntil); recErr != nil {
			return "", recErr
		}
		if lockedUntil != nil {
			return "", ErrPINLocked
		}
		return "", ErrPINMismatch
	}

	if record.FailedAttempts > 0 || record.LockedUntil != nil {
		if err := s.consents.RecordPINAttempt(ctx, userID, 0, nil); err != nil {
			return "", err
		}
	}
	return s.codec.SignConsent(previewID, userID)
}

func (s *consentService) EnrollVoice(ctx context.Context, userID uuid.UUID, embedding []float64) error {
	if len(embedding) == 0 {
		return fmt.Errorf("%w: embedding is empty", common.ErrInvalidState)
	}
	return s.consents.UpsertVoiceProfile(ctx, userID, embedding)
}

func (s *consentService) VerifyVoice(ctx context.Context, userID, previewID uuid.UUID, embedding []float64) (string, error) {
	profile, err := s.consents.GetVoiceProfile(ctx, userID)
	if err != nil {
		return "", err
	}
	similarity, err := cosineSimilarity(profile.Embedding, embedding)
	if err != nil {
		return "", err
	}
	if similarity < voiceMatchThreshold {
		return "", ErrVoiceNoMatch
	}
	return s.codec.SignConsent(previewID, userID)
}

func cosineSimilarity(a, b []float64) (float64, error) {
	if len(a) == 0 || len(a) != len(b) {
		return 0, fmt.Errorf("%w: embedding lengths differ", common.ErrInvalidState)
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0, fmt.Errorf("%w: zero-magnitude embedding", common.ErrInvalidState)
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}
