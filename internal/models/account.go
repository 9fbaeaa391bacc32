package models

import (
	"time"

	"github.com/google/uuid"
)

// Account is a bank account owned by a single user. Balance is mutated only
// by the ledger repository, always inside one storage transaction.
type Account struct {
	ID            uuid.UUID `json:"id" db:"id"`
	UserID        uuid.UUID `json:"user_id" db:"user_id"`
	AccountNumber string    `json:"account_number" db:"account_number"`
	Type          string    `json:"type" db:"type"`
	Balance       float64   `json:"balance" db:"balance"`
	Currency      string    `json:"currency" db:"currency"`
	Status        string    `json:"status" db:"status"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

const (
	AccountStatusActive = "ACTIVE"
	AccountStatusFrozen = "FROZEN"
	AccountStatusClosed = "CLOSED"

	AccountTypeSavings = "SAVINGS"
	AccountTypeCurrent = "CURRENT"
)

// Beneficiary is a saved payee for account-to-account payments.
type Beneficiary struct {
	ID            uuid.UUID `json:"id" db:"id"`
	UserID        uuid.UUID `json:"user_id" db:"user_id"`
	Name          string    `json:"name" db:"name"`
	AccountNumber string    `json:"account_number" db:"account_number"`
	IFSCCode      string    `json:"ifsc_code" db:"ifsc_code"`
	Nickname      *string   `json:"nickname" db:"nickname"`
	IsActive      bool      `json:"is_active" db:"is_active"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// Biller is a registered bill issuer (electricity, water, mobile, ...).
type Biller struct {
	ID        uuid.UUID `json:"id" db:"id"`
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	BillType  string    `json:"bill_type" db:"bill_type"`
	Name      string    `json:"name" db:"name"`
	// ConsumerNumber identifies the user's account with the biller.
	ConsumerNumber string    `json:"consumer_number" db:"consumer_number"`
	IsActive       bool      `json:"is_active" db:"is_active"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}
