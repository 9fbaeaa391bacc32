package models

import (
	"time"

	"github.com/google/uuid"
)

// UserPIN stores the bcrypt hash of the user's transaction PIN. The PIN is a
// server-verified consent factor; the plaintext never leaves the verify call.
type UserPIN struct {
	ID             uuid.UUID `json:"id" db:"id"`
	UserID         uuid.UUID `json:"user_id" db:"user_id"`
	PINHash        string    `json:"-" db:"pin_hash"`
	FailedAttempts int       `json:"failed_attempts" db:"failed_attempts"`
	LockedUntil    *time.Time `json:"locked_until" db:"locked_until"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// VoiceProfile stores the enrolled voice embedding used for biometric
// consent verification.
type VoiceProfile struct {
	ID        uuid.UUID `json:"id" db:"id"`
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	Embedding []float64 `json:"-" db:"embedding"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
