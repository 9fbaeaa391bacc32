package models

import (
	"time"

	"github.com/google/uuid"
)

// JSONB represents a PostgreSQL JSONB column.
type JSONB map[string]interface{}

// AgentAuditLog records one agent decision, keyed by a trace id that flows
// through the whole request. Writes are upsert-by-trace-id so a single trace
// accumulates input, intent and result as the request progresses.
type AgentAuditLog struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	TraceID   string     `json:"trace_id" db:"trace_id"`
	UserID    uuid.UUID  `json:"user_id" db:"user_id"`
	Action    string     `json:"action" db:"action"`
	Input     string     `json:"input" db:"input"`
	Intent    JSONB      `json:"intent" db:"intent"`
	Result    JSONB      `json:"result" db:"result"`
	PreviewID *uuid.UUID `json:"preview_id" db:"preview_id"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
}

// Audit action constants.
const (
	ActionMakePayment   = "MAKE_PAYMENT"
	ActionPayBill       = "PAY_BILL"
	ActionCheckBalance  = "CHECK_BALANCE"
	ActionListTxns      = "SHOW_TRANSACTIONS"
	ActionAuthorize     = "OAUTH_AUTHORIZE"
	ActionTokenExchange = "OAUTH_TOKEN_EXCHANGE"
	ActionRevoke        = "OAUTH_REVOKE"
	ActionConsent       = "CONSENT"
)

// AuditLogFilters narrows audit queries.
type AuditLogFilters struct {
	UserID    *uuid.UUID `json:"user_id"`
	Action    *string    `json:"action"`
	StartDate *time.Time `json:"start_date"`
	EndDate   *time.Time `json:"end_date"`
	Limit     int        `json:"limit"`
	Offset    int        `json:"offset"`
}
