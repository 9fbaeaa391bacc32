package models

import (
	"time"

	"github.com/google/uuid"
)

// Preview statuses. EXECUTED is terminal regardless of expiry.
const (
	PreviewStatusPending   = "PENDING"
	PreviewStatusConfirmed = "CONFIRMED"
	PreviewStatusExecuted  = "EXECUTED"
	PreviewStatusExpired   = "EXPIRED"
	PreviewStatusCancelled = "CANCELLED"
)

// RulesResult is the outcome of the business-rule evaluation for a preview.
// Reasons are human-readable because the agent relays them verbatim.
type RulesResult struct {
	Allowed bool     `json:"allowed"`
	Reasons []string `json:"reasons"`
}

// PaymentPreview is a computed, rule-checked but not-yet-committed payment.
// Its id is the idempotency anchor: at most one ledger entry may ever
// reference it.
type PaymentPreview struct {
	ID               uuid.UUID   `json:"id" db:"id"`
	UserID           uuid.UUID   `json:"user_id" db:"user_id"`
	FromAccountID    uuid.UUID   `json:"from_account_id" db:"from_account_id"`
	BeneficiaryID    uuid.UUID   `json:"beneficiary_id" db:"beneficiary_id"`
	Method           string      `json:"method" db:"method"`
	RequestedAmount  float64     `json:"requested_amount" db:"requested_amount"`
	Charges          float64     `json:"charges" db:"charges"`
	FinalDebitAmount float64     `json:"final_debit_amount" db:"final_debit_amount"`
	RulesResult      RulesResult `json:"rules_result" db:"rules_result"`
	Status           string      `json:"status" db:"status"`
	ConsentToken     *string     `json:"-" db:"consent_token"`
	ExpiresAt        time.Time   `json:"expires_at" db:"expires_at"`
	CreatedAt        time.Time   `json:"created_at" db:"created_at"`
}

// Payment methods supported by the fee table.
const (
	MethodUPI  = "UPI"
	MethodIMPS = "IMPS"
	MethodNEFT = "NEFT"
)

// BillPreview mirrors PaymentPreview for bill payments. Bill fields replace
// the beneficiary reference.
type BillPreview struct {
	ID               uuid.UUID   `json:"id" db:"id"`
	UserID           uuid.UUID   `json:"user_id" db:"user_id"`
	FromAccountID    uuid.UUID   `json:"from_account_id" db:"from_account_id"`
	BillType         string      `json:"bill_type" db:"bill_type"`
	BillerName       string      `json:"biller_name" db:"biller_name"`
	ConsumerNumber   string      `json:"consumer_number" db:"consumer_number"`
	RequestedAmount  float64     `json:"requested_amount" db:"requested_amount"`
	Charges          float64     `json:"charges" db:"charges"`
	FinalDebitAmount float64     `json:"final_debit_amount" db:"final_debit_amount"`
	RulesResult      RulesResult `json:"rules_result" db:"rules_result"`
	Status           string      `json:"status" db:"status"`
	ConsentToken     *string     `json:"-" db:"consent_token"`
	ExpiresAt        time.Time   `json:"expires_at" db:"expires_at"`
	CreatedAt        time.Time   `json:"created_at" db:"created_at"`
}
