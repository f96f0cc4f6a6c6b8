// Package amortization provides the pure numeric core of the loan engine:
// EMI, full reducing-balance schedules, penalties, and early-repayment
// economics. Nothing here touches storage or the clock; every function is
// deterministic over its inputs.
package amortization

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ErrInvalidParameters indicates numeric input outside the accepted range
var ErrInvalidParameters = errors.New("invalid amortization parameters")

const (
	// MaxTermMonths is the longest supported loan term (30 years)
	MaxTermMonths = 360
)

var (
	one           = decimal.NewFromInt(1)
	hundred       = decimal.NewFromInt(100)
	twelveHundred = decimal.NewFromInt(1200)
)

// Calculator computes reducing-balance loan figures. The principal ceiling
// is institution configuration, not a property of the math.
type Calculator struct {
	principalCeiling decimal.Decimal
}

// NewCalculator creates a calculator with the configured principal ceiling
func NewCalculator(principalCeiling decimal.Decimal) *Calculator {
	return &Calculator{principalCeiling: principalCeiling}
}

// ScheduleRow is one installment of an amortization schedule
type ScheduleRow struct {
	Installment         int             `json:"installment"`
	DueDate             time.Time       `json:"due_date"`
	OpeningBalance      decimal.Decimal `json:"opening_balance"`
	EMI                 decimal.Decimal `json:"emi"`
	InterestAmount      decimal.Decimal `json:"interest_amount"`
	PrincipalAmount     decimal.Decimal `json:"principal_amount"`
	ClosingBalance      decimal.Decimal `json:"closing_balance"`
	CumulativeInterest  decimal.Decimal `json:"cumulative_interest"`
	CumulativePrincipal decimal.Decimal `json:"cumulative_principal"`
}

// EarlyRepaymentResult describes the economics of a lump-sum prepayment
type EarlyRepaymentResult struct {
	InterestSaved  decimal.Decimal `json:"interest_saved"`
	NewOutstanding decimal.Decimal `json:"new_outstanding"`
	NewEMI         decimal.Decimal `json:"new_emi"`
	FullyPaid      bool            `json:"fully_paid"`
}

func (c *Calculator) validate(principal, annualRatePct decimal.Decimal, termMonths int) error {
	if principal.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("%w: principal must be positive", ErrInvalidParameters)
	}
	if annualRatePct.IsNegative() {
		return fmt.Errorf("%w: rate cannot be negative", ErrInvalidParameters)
	}
	if annualRatePct.GreaterThan(hundred) {
		return fmt.Errorf("%w: rate cannot exceed 100%%", ErrInvalidParameters)
	}
	if termMonths <= 0 {
		return fmt.Errorf("%w: term must be positive", ErrInvalidParameters)
	}
	if termMonths > MaxTermMonths {
		return fmt.Errorf("%w: term cannot exceed %d months", ErrInvalidParameters, MaxTermMonths)
	}
	if c.principalCeiling.IsPositive() && principal.GreaterThan(c.principalCeiling) {
		return fmt.Errorf("%w: principal exceeds ceiling %s", ErrInvalidParameters, c.principalCeiling.StringFixed(2))
	}
	return nil
}

// monthlyRate converts an annual percentage rate to a monthly fraction
func monthlyRate(annualRatePct decimal.Decimal) decimal.Decimal {
	return annualRatePct.Div(twelveHundred)
}

// EMI computes the equal monthly installment under reducing-balance
// amortization: P·r·(1+r)^n / ((1+r)^n − 1). A zero rate degenerates to
// a straight principal split.
func (c *Calculator) EMI(principal, annualRatePct decimal.Decimal, termMonths int) (decimal.Decimal, error) {
	if err := c.validate(principal, annualRatePct, termMonths); err != nil {
		return decimal.Zero, err
	}

	n := decimal.NewFromInt(int64(termMonths))
	if annualRatePct.IsZero() {
		return principal.DivRound(n, 2), nil
	}

	r := monthlyRate(annualRatePct)
	factor := one.Add(r).Pow(n)
	emi := principal.Mul(r).Mul(factor).Div(factor.Sub(one))
	return emi.Round(2), nil
}

// Schedule generates the full installment schedule starting one month after
// startDate. The final row is force-balanced: its principal equals the
// remaining opening balance so the schedule's principal column sums exactly
// to the loan principal, absorbing per-row rounding drift.
func (c *Calculator) Schedule(principal, annualRatePct decimal.Decimal, termMonths int, startDate time.Time) ([]ScheduleRow, error) {
	emi, err := c.EMI(principal, annualRatePct, termMonths)
	if err != nil {
		return nil, err
	}

	r := monthlyRate(annualRatePct)
	rows := make([]ScheduleRow, 0, termMonths)
	opening := principal
	cumInterest := decimal.Zero
	cumPrincipal := decimal.Zero

	for i := 1; i <= termMonths; i++ {
		interest := opening.Mul(r).Round(2)
		principalPart := emi.Sub(interest)
		rowEMI := emi

		if i == termMonths {
			principalPart = opening
			rowEMI = principalPart.Add(interest)
		}

		closing := opening.Sub(principalPart)
		cumInterest = cumInterest.Add(interest)
		cumPrincipal = cumPrincipal.Add(principalPart)

		rows = append(rows, ScheduleRow{
			Installment:         i,
			DueDate:             startDate.AddDate(0, i, 0),
			OpeningBalance:      opening,
			EMI:                 rowEMI,
			InterestAmount:      interest,
			PrincipalAmount:     principalPart,
			ClosingBalance:      closing,
			CumulativeInterest:  cumInterest,
			CumulativePrincipal: cumPrincipal,
		})

		opening = closing
	}

	return rows, nil
}

// TotalInterest computes the interest paid over the full schedule
func (c *Calculator) TotalInterest(principal, annualRatePct decimal.Decimal, termMonths int) (decimal.Decimal, error) {
	rows, err := c.Schedule(principal, annualRatePct, termMonths, time.Time{})
	if err != nil {
		return decimal.Zero, err
	}
	return rows[len(rows)-1].CumulativeInterest, nil
}

// Penalty computes a simple daily penalty on an overdue amount. Any
// non-positive input yields zero rather than an error: a loan with nothing
// overdue simply attracts no penalty.
func Penalty(overdueAmount decimal.Decimal, daysOverdue int, dailyRatePct decimal.Decimal) decimal.Decimal {
	if overdueAmount.LessThanOrEqual(decimal.Zero) || daysOverdue <= 0 || dailyRatePct.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}

	days := decimal.NewFromInt(int64(daysOverdue))
	return overdueAmount.Mul(dailyRatePct.Div(hundred)).Mul(days).Round(2)
}

// EarlyRepayment compares total interest over the remaining term before and
// after applying repayAmount against principal.
func (c *Calculator) EarlyRepayment(outstanding, annualRatePct decimal.Decimal, remainingTerm int, repayAmount decimal.Decimal) (*EarlyRepaymentResult, error) {
	if repayAmount.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("%w: repayment amount must be positive", ErrInvalidParameters)
	}

	interestBefore, err := c.TotalInterest(outstanding, annualRatePct, remainingTerm)
	if err != nil {
		return nil, err
	}

	newOutstanding := outstanding.Sub(repayAmount)
	if newOutstanding.LessThanOrEqual(decimal.Zero) {
		return &EarlyRepaymentResult{
			InterestSaved:  interestBefore,
			NewOutstanding: decimal.Zero,
			NewEMI:         decimal.Zero,
			FullyPaid:      true,
		}, nil
	}

	interestAfter, err := c.TotalInterest(newOutstanding, annualRatePct, remainingTerm)
	if err != nil {
		return nil, err
	}

	newEMI, err := c.EMI(newOutstanding, annualRatePct, remainingTerm)
	if err != nil {
		return nil, err
	}

	return &EarlyRepaymentResult{
		InterestSaved:  interestBefore.Sub(interestAfter),
		NewOutstanding: newOutstanding,
		NewEMI:         newEMI,
		FullyPaid:      false,
	}, nil
}
