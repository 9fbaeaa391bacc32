package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"voxbank/internal/models"
	"voxbank/internal/ratelimit"

	"github.com/google/uuid"
)

// Fraud heuristic thresholds. A rule list, not a model; every reason is
// surfaced verbatim to the end user. The amount ceiling sits above the
// per-transaction rule limit: an over-limit request still reaches the preview
// layer and is persisted there as a disallowed preview, while the fraud gate
// only stops amounts no legitimate request could carry.
const (
	fraudAmountCeiling    = 2 * PerTransactionLimit
	fraudReplayWindow     = 2 * time.Minute
	fraudReplayMaxIntents = 5
)

// FraudResult is the outcome of the heuristic evaluation.
type FraudResult struct {
	IsFraudulent bool     `json:"is_fraudulent"`
	Reasons      []string `json:"reasons"`
}

type FraudService interface {
	Evaluate(ctx context.Context, userID uuid.UUID, action string, metadata models.JSONB) (*FraudResult, error)
}

type fraudService struct {
	limiter ratelimit.RateLimiter
	audit   AuditService
}

func NewFraudService(limiter ratelimit.RateLimiter, audit AuditService) FraudService {
	return &fraudService{limiter: limiter, audit: audit}
}

func (s *fraudService) Evaluate(ctx context.Context, userID uuid.UUID, action string, metadata models.JSONB) (*FraudResult, error) {
	var reasons []string

	if action == models.ActionMakePayment || action == models.ActionPayBill {
		if raw, ok := metadata["amount"]; ok {
			if amount, ok := toFloat(raw); ok {
				if amount > fraudAmountCeiling {
					reasons = append(reasons, fmt.Sprintf("Payment amount exceeds normal threshold of ₹%.0f", fraudAmountCeiling))
				}
				if amount <= 0 {
					reasons = append(reasons, "Invalid payment amount")
				}
			}
		}

		burst, err := s.limiter.Check(ctx, userID, ratelimit.ClassBurst)
		if err != nil {
			return nil, err
		}
		if !burst.Allowed {
			reasons = append(reasons, "Too many payment requests in short time. Please wait a moment.")
		}

		// Replay/automation heuristic: repeated payment intents in a short
		// trailing window. Audit lookups are best-effort here.
		recent, err := s.audit.CountRecentByAction(ctx, userID, models.ActionMakePayment, fraudReplayWindow)
		if err != nil {
			log.Printf("fraud check: audit lookup failed for user %s: %v", userID, err)
		} else if recent >= fraudReplayMaxIntents {
			reasons = append(reasons, "Too many payment attempts in a short time")
		}
	} else {
		general, err := s.limiter.Check(ctx, userID, ratelimit.ClassCommand)
		if err != nil {
			return nil, err
		}
		if !general.Allowed {
			reasons = append(reasons, "Too many requests. Please slow down.")
		}
	}

	return &FraudResult{IsFraudulent: len(reasons) > 0, Reasons: reasons}, nil
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
