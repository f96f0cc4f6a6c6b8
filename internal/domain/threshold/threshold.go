package threshold

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lendhub/loan-engine/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Common errors
var (
	ErrInvalidAmount        = errors.New("amount must be positive")
	ErrInsufficientCapacity = errors.New("insufficient remaining capacity for month")
	ErrReleaseExceedsUsage  = errors.New("release exceeds disbursed amount for month")
)

var hundred = decimal.NewFromInt(100)

// MonthlyThreshold is the liquidity cap for one calendar month.
// Invariant: remaining = max − disbursed, remaining ≥ 0.
type MonthlyThreshold struct {
	Month           int             `json:"month"`
	Year            int             `json:"year"`
	MaxLoanAmount   decimal.Decimal `json:"max_loan_amount"`
	TotalDisbursed  decimal.Decimal `json:"total_disbursed"`
	RemainingAmount decimal.Decimal `json:"remaining_amount"`
	Version         int             `json:"version"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// NewMonthlyThreshold creates an untouched cap for (month, year)
func NewMonthlyThreshold(month, year int, maxAmount decimal.Decimal) (*MonthlyThreshold, error) {
	if maxAmount.LessThanOrEqual(decimal.Zero) {
		return nil, ErrInvalidAmount
	}

	now := time.Now()
	return &MonthlyThreshold{
		Month:           month,
		Year:            year,
		MaxLoanAmount:   maxAmount,
		TotalDisbursed:  decimal.Zero,
		RemainingAmount: maxAmount,
		Version:         1,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// Fits reports whether the amount fits in the month's remaining capacity
func (t *MonthlyThreshold) Fits(amount decimal.Decimal) bool {
	return t.RemainingAmount.GreaterThanOrEqual(amount)
}

// Reserve consumes capacity for an allocation
func (t *MonthlyThreshold) Reserve(amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidAmount
	}
	if !t.Fits(amount) {
		return ErrInsufficientCapacity
	}

	t.TotalDisbursed = t.TotalDisbursed.Add(amount)
	t.RemainingAmount = t.MaxLoanAmount.Sub(t.TotalDisbursed)
	t.UpdatedAt = time.Now()
	t.Version++
	return nil
}

// Release returns capacity previously reserved in this month
func (t *MonthlyThreshold) Release(amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidAmount
	}
	if t.TotalDisbursed.LessThan(amount) {
		return ErrReleaseExceedsUsage
	}

	t.TotalDisbursed = t.TotalDisbursed.Sub(amount)
	t.RemainingAmount = t.MaxLoanAmount.Sub(t.TotalDisbursed)
	t.UpdatedAt = time.Now()
	t.Version++
	return nil
}

// UtilizationPct returns disbursed capacity as a percentage of the cap
func (t *MonthlyThreshold) UtilizationPct() decimal.Decimal {
	if t.MaxLoanAmount.IsZero() {
		return decimal.Zero
	}
	return t.TotalDisbursed.Mul(hundred).DivRound(t.MaxLoanAmount, 2)
}

// Allocation reserves threshold capacity for an approved loan application.
// An allocation parked in a future month carries status Queued until the
// monthly rollover promotes it.
type Allocation struct {
	ID            uuid.UUID               `json:"id"`
	ApplicationID uuid.UUID               `json:"application_id"`
	Amount        decimal.Decimal         `json:"amount"`
	Month         int                     `json:"month"`
	Year          int                     `json:"year"`
	Status        shared.AllocationStatus `json:"status"`
	ApprovedAt    time.Time               `json:"approved_at"`
	CreatedAt     time.Time               `json:"created_at"`
	UpdatedAt     time.Time               `json:"updated_at"`
}
