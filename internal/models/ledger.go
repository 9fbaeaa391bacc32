package models

import (
	"time"

	"github.com/google/uuid"
)

// Ledger entry statuses.
const (
	TxnStatusSuccess = "SUCCESS"
	TxnStatusFailed  = "FAILED"
)

// Channel/initiator constants recorded on agent-driven entries.
const (
	InitiatedByVoiceAI = "VOICE_AI"
	ChannelVoiceAgent  = "VOICE_AGENT"
)

// Transaction is the immutable ledger record of a payment. It is created
// exactly once per preview, inside the same storage transaction as the
// balance decrement; payment_preview_id carries a UNIQUE constraint.
type Transaction struct {
	ID               uuid.UUID `json:"id" db:"id"`
	UserID           uuid.UUID `json:"user_id" db:"user_id"`
	FromAccountID    uuid.UUID `json:"from_account_id" db:"from_account_id"`
	BeneficiaryID    uuid.UUID `json:"beneficiary_id" db:"beneficiary_id"`
	PaymentPreviewID uuid.UUID `json:"payment_preview_id" db:"payment_preview_id"`
	Method           string    `json:"method" db:"method"`
	Amount           float64   `json:"amount" db:"amount"`
	Status           string    `json:"status" db:"status"`
	BankReferenceID  string    `json:"bank_reference_id" db:"bank_reference_id"`
	InitiatedBy      string    `json:"initiated_by" db:"initiated_by"`
	Channel          string    `json:"channel" db:"channel"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
}

// BillPayment is the ledger record for an executed bill preview.
type BillPayment struct {
	ID              uuid.UUID `json:"id" db:"id"`
	UserID          uuid.UUID `json:"user_id" db:"user_id"`
	FromAccountID   uuid.UUID `json:"from_account_id" db:"from_account_id"`
	BillPreviewID   uuid.UUID `json:"bill_preview_id" db:"bill_preview_id"`
	BillType        string    `json:"bill_type" db:"bill_type"`
	BillerName      string    `json:"biller_name" db:"biller_name"`
	ConsumerNumber  string    `json:"consumer_number" db:"consumer_number"`
	Amount          float64   `json:"amount" db:"amount"`
	Status          string    `json:"status" db:"status"`
	BankReferenceID string    `json:"bank_reference_id" db:"bank_reference_id"`
	InitiatedBy     string    `json:"initiated_by" db:"initiated_by"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}
