// Package repayment applies payment events to a loan aggregate: interest
// accrual, waterfall allocation, schedule walking, and closure. It mutates
// only the objects handed to it; persistence and locking belong to the
// caller's transaction.
package repayment

import (
	"time"

	"github.com/lendhub/loan-engine/internal/domain/loan"
	"github.com/lendhub/loan-engine/internal/domain/shared"
	"github.com/lendhub/loan-engine/internal/lending/allocation"
	"github.com/shopspring/decimal"
)

var (
	hundred    = decimal.NewFromInt(100)
	daysInYear = decimal.NewFromInt(365)
)

// Processor applies payments to loans under the fixed waterfall
type Processor struct{}

// NewProcessor creates a repayment processor
func NewProcessor() *Processor {
	return &Processor{}
}

// Result captures the outcome of one applied payment
type Result struct {
	Allocation       allocation.Allocation
	AccruedInterest  decimal.Decimal
	RemainingBalance decimal.Decimal
	Closed           bool
	NextPaymentDate  *time.Time
	NextPaymentDue   decimal.Decimal
}

// accruedInterest computes day-count interest on the remaining principal
// since the last payment (or disbursement for a fresh loan).
func (p *Processor) accruedInterest(l *loan.Loan, at time.Time) decimal.Decimal {
	var since time.Time
	switch {
	case l.LastPaymentDate != nil:
		since = *l.LastPaymentDate
	case l.DisbursedAt != nil:
		since = *l.DisbursedAt
	default:
		return decimal.Zero
	}

	days := int(at.Sub(since).Hours() / 24)
	if days <= 0 {
		return decimal.Zero
	}

	dailyRate := l.AnnualRatePct.Div(hundred).Div(daysInYear)
	return l.RemainingPrincipal().Mul(dailyRate).Mul(decimal.NewFromInt(int64(days))).Round(2)
}

// Apply processes a single payment event against the loan and its open
// schedule items. Items must be sorted by due date, oldest first.
//
// A payment whose waterfall remainder is non-zero would exceed the full
// payoff amount; it is rejected with ErrOverpayment before any mutation so
// no funds are ever silently dropped.
func (p *Processor) Apply(l *loan.Loan, items []*loan.ScheduleItem, amount decimal.Decimal, at time.Time) (*Result, error) {
	if !l.Status.Payable() {
		return nil, shared.ErrInvalidLoanState
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, shared.ErrInvalidAmount
	}

	accrued := p.accruedInterest(l, at)
	penaltyDue := l.PenaltyDue()
	principalDue := l.RemainingPrincipal()

	// Interest owed can never exceed the contract's unpaid scheduled
	// interest; day-count accrual on a delinquent loan is charged through
	// penalties, not through the interest column.
	scheduledInterest := l.TotalRepayable.Sub(l.Principal).Sub(l.PenaltyAmount)
	unpaidScheduled := scheduledInterest.Sub(l.InterestPaid)
	interestDue := decimal.Min(l.InterestAccrued.Add(accrued), unpaidScheduled)

	alloc, err := allocation.Allocate(amount, penaltyDue, interestDue, principalDue)
	if err != nil {
		return nil, err
	}

	// A remainder beyond the current dues is credited against the
	// not-yet-accrued scheduled interest, i.e. toward full payoff. Only a
	// payment exceeding the full payoff amount is rejected.
	if alloc.Remainder.IsPositive() {
		payoffGap := unpaidScheduled.Sub(interestDue)
		extra := decimal.Min(alloc.Remainder, payoffGap)
		alloc.InterestPaid = alloc.InterestPaid.Add(extra)
		alloc.Remainder = alloc.Remainder.Sub(extra)
		if alloc.Remainder.IsPositive() {
			return nil, shared.ErrOverpayment
		}
		interestDue = interestDue.Add(extra)
	}

	l.InterestAccrued = interestDue.Sub(alloc.InterestPaid)

	closed, err := l.ApplyPayment(alloc.PenaltyPaid, alloc.InterestPaid, alloc.PrincipalPaid, at)
	if err != nil {
		return nil, err
	}

	p.walkSchedule(items, alloc.PrincipalPaid.Add(alloc.InterestPaid), closed)

	result := &Result{
		Allocation:       alloc,
		AccruedInterest:  accrued,
		RemainingBalance: l.Outstanding,
		Closed:           closed,
		NextPaymentDue:   decimal.Zero,
	}

	if !closed {
		p.updateArrears(l, items, at)
		result.NextPaymentDate = l.NextPaymentDate
		if next := nextOpenItem(items); next != nil {
			result.NextPaymentDue = next.Remaining()
		}
	}

	return result, nil
}

// walkSchedule spreads the paid principal and interest across open
// installments oldest-first until the pool is exhausted. On closure any
// residual open items are swept to Paid; the final payment covered them
// within the closure tolerance.
func (p *Processor) walkSchedule(items []*loan.ScheduleItem, pool decimal.Decimal, closed bool) {
	for _, item := range items {
		if !item.Open() {
			continue
		}
		if pool.IsPositive() {
			pool = pool.Sub(item.Apply(pool))
			continue
		}
		if closed {
			item.Apply(item.Remaining())
		}
	}
}

// updateArrears recomputes the next due date and overdue position from the
// schedule after a partial payment.
func (p *Processor) updateArrears(l *loan.Loan, items []*loan.ScheduleItem, at time.Time) {
	next := nextOpenItem(items)
	if next == nil {
		return
	}

	due := next.DueDate
	l.NextPaymentDate = &due

	if !due.Before(at) {
		l.DaysInArrears = 0
		l.ArrearsAmount = decimal.Zero
		return
	}

	l.DaysInArrears = int(at.Sub(due).Hours() / 24)
	arrears := decimal.Zero
	for _, item := range items {
		if item.Open() && item.DueDate.Before(at) {
			arrears = arrears.Add(item.Remaining())
		}
	}
	l.ArrearsAmount = arrears
}

func nextOpenItem(items []*loan.ScheduleItem) *loan.ScheduleItem {
	for _, item := range items {
		if item.Open() {
			return item
		}
	}
	return nil
}
