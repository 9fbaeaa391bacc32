package models

import (
	"time"

	"github.com/google/uuid"
)

// AuthorizationGrant is a one-time authorization code issued to the agent
// client after an interactive login. Used transitions false->true exactly
// once at exchange time; a second exchange must fail distinctly from a code
// that never existed.
type AuthorizationGrant struct {
	ID                  uuid.UUID `json:"id" db:"id"`
	UserID              uuid.UUID `json:"user_id" db:"user_id"`
	ClientID            string    `json:"client_id" db:"client_id"`
	AuthorizationCode   string    `json:"-" db:"authorization_code"`
	Scopes              []string  `json:"scopes" db:"-"`
	RedirectURI         string    `json:"redirect_uri" db:"redirect_uri"`
	CodeChallenge       *string   `json:"-" db:"code_challenge"`
	CodeChallengeMethod *string   `json:"-" db:"code_challenge_method"`
	ExpiresAt           time.Time `json:"expires_at" db:"expires_at"`
	Used                bool      `json:"used" db:"used"`
	CreatedAt           time.Time `json:"created_at" db:"created_at"`
}

// Valid scopes for the agent client, fixed enum.
const (
	ScopePayments          = "payments"
	ScopeReadBalance       = "read_balance"
	ScopeReadTransactions  = "read_transactions"
	ScopeReadBeneficiaries = "read_beneficiaries"
)

var ValidScopes = []string{ScopePayments, ScopeReadBalance, ScopeReadTransactions, ScopeReadBeneficiaries}

// IsValidScope reports whether s belongs to the fixed scope enum.
func IsValidScope(s string) bool {
	for _, v := range ValidScopes {
		if v == s {
			return true
		}
	}
	return false
}
