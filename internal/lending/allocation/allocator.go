// Package allocation implements the fixed payment waterfall: penalty, then
// interest, then principal. The order is a regulatory rule and is not
// configurable per call.
package allocation

import (
	"errors"

	"github.com/shopspring/decimal"
)

var ErrNegativeInput = errors.New("allocation inputs cannot be negative")

// Allocation is the split of a single payment across the waterfall.
// PenaltyPaid + InterestPaid + PrincipalPaid + Remainder == payment amount.
type Allocation struct {
	PenaltyPaid   decimal.Decimal `json:"penalty_paid"`
	InterestPaid  decimal.Decimal `json:"interest_paid"`
	PrincipalPaid decimal.Decimal `json:"principal_paid"`

	// Remainder is whatever the dues did not absorb. The caller decides its
	// fate (reject as overpayment, refund, or credit); it is never dropped.
	Remainder decimal.Decimal `json:"remainder"`
}

// Allocated returns the portion of the payment consumed by dues
func (a Allocation) Allocated() decimal.Decimal {
	return a.PenaltyPaid.Add(a.InterestPaid).Add(a.PrincipalPaid)
}

// Allocate splits a payment against the current dues in waterfall order.
// Each component is capped at its due; the split never exceeds the payment.
func Allocate(paymentAmount, penaltyDue, interestDue, principalDue decimal.Decimal) (Allocation, error) {
	if paymentAmount.IsNegative() || penaltyDue.IsNegative() || interestDue.IsNegative() || principalDue.IsNegative() {
		return Allocation{}, ErrNegativeInput
	}

	remainder := paymentAmount

	penaltyPaid := decimal.Min(remainder, penaltyDue)
	remainder = remainder.Sub(penaltyPaid)

	interestPaid := decimal.Min(remainder, interestDue)
	remainder = remainder.Sub(interestPaid)

	principalPaid := decimal.Min(remainder, principalDue)
	remainder = remainder.Sub(principalPaid)

	return Allocation{
		PenaltyPaid:   penaltyPaid,
		InterestPaid:  interestPaid,
		PrincipalPaid: principalPaid,
		Remainder:     remainder,
	}, nil
}
