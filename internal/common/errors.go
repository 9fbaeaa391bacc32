package common

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the consent-and-execution core. Handlers map these to
// HTTP status codes. Expired is distinct from not-found so a caller can
// tell "never existed" from "timed out".
var (
	ErrNotFound            = errors.New("resource not found")
	ErrExpired             = errors.New("resource expired")
	ErrInvalidState        = errors.New("resource is not in the expected state")
	ErrAlreadyUsed         = errors.New("authorization code already used")
	ErrInvalidGrant        = errors.New("invalid grant")
	ErrInvalidClient       = errors.New("invalid client")
	ErrInvalidRedirect     = errors.New("invalid redirect uri")
	ErrInvalidScope        = errors.New("invalid scope")
	ErrInvalidConsent      = errors.New("invalid consent token")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrRateLimited         = errors.New("rate limit exceeded")
	ErrAlreadyExecuted     = errors.New("preview already executed")
	ErrInsufficientBalance = errors.New("insufficient balance")
)

// BusinessRuleError carries the human-readable reasons a business rule or
// fraud check rejected a request. The agent relays these verbatim, so they
// must read as an explanation, not an error code.
type BusinessRuleError struct {
	Reasons []string
}

func (e *BusinessRuleError) Error() string {
	return fmt.Sprintf("business rule violation: %s", strings.Join(e.Reasons, "; "))
}

// NewBusinessRuleError builds a BusinessRuleError from reasons.
func NewBusinessRuleError(reasons ...string) *BusinessRuleError {
	return &BusinessRuleError{Reasons: reasons}
}

// AsBusinessRuleError unwraps err into a BusinessRuleError if it is one.
func AsBusinessRuleError(err error) (*BusinessRuleError, bool) {
	var bre *BusinessRuleError
	ok := errors.As(err, &bre)
	return bre, ok
}
