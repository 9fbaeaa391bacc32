package services

import (
	"math"

	"voxbank/internal/models"
)

// Deterministic fee table. UPI is free; IMPS and NEFT charge a flat fee only
// above the free threshold. Rules apply equally to all users.
const (
	feeFreeThreshold = 10000.0
	feeIMPS          = 5.0
	feeNEFT          = 2.5

	// PerTransactionLimit is the business-rule ceiling for a single payment.
	PerTransactionLimit = 50000.0
	// DailyLimit is documented in the transparent rules; per-day aggregation
	// is not enforced by this pipeline.
	DailyLimit = 100000.0
)

// CalculateCharges returns the fee for a payment method and amount.
func CalculateCharges(method string, requestedAmount float64) float64 {
	if requestedAmount <= feeFreeThreshold {
		return 0
	}
	switch method {
	case models.MethodIMPS:
		return feeIMPS
	case models.MethodNEFT:
		return feeNEFT
	default: // UPI and anything unrecognized is free
		return 0
	}
}

// Round2 rounds a rupee amount to two decimals (paise).
func Round2(amount float64) float64 {
	return math.Round(amount*100) / 100
}
