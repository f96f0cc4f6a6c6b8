package loan

import (
	"time"

	"github.com/google/uuid"
	"github.com/lendhub/loan-engine/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// ScheduleItem is one installment of a loan's amortization schedule.
type ScheduleItem struct {
	ID              uuid.UUID                 `json:"id"`
	LoanID          uuid.UUID                 `json:"loan_id"`
	InstallmentNo   int                       `json:"installment_no"`
	DueDate         time.Time                 `json:"due_date"`
	PrincipalAmount decimal.Decimal           `json:"principal_amount"`
	InterestAmount  decimal.Decimal           `json:"interest_amount"`
	PaidAmount      decimal.Decimal           `json:"paid_amount"`
	Status          shared.ScheduleItemStatus `json:"status"`
	CreatedAt       time.Time                 `json:"created_at"`
	UpdatedAt       time.Time                 `json:"updated_at"`
}

// TotalDue returns the installment's scheduled principal plus interest.
func (s *ScheduleItem) TotalDue() decimal.Decimal {
	return s.PrincipalAmount.Add(s.InterestAmount)
}

// Remaining returns the unpaid portion of the installment.
func (s *ScheduleItem) Remaining() decimal.Decimal {
	return s.TotalDue().Sub(s.PaidAmount)
}

// Open reports whether the installment still accepts payment.
func (s *ScheduleItem) Open() bool {
	return s.Status == shared.ScheduleItemStatusPending || s.Status == shared.ScheduleItemStatusPartiallyPaid
}

// Apply consumes up to the installment's remaining due from the given amount,
// flipping the item to Paid when fully covered. Returns the amount consumed.
func (s *ScheduleItem) Apply(amount decimal.Decimal) decimal.Decimal {
	if !s.Open() || amount.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}

	remaining := s.Remaining()
	applied := decimal.Min(amount, remaining)

	s.PaidAmount = s.PaidAmount.Add(applied)
	if s.PaidAmount.GreaterThanOrEqual(s.TotalDue()) {
		s.Status = shared.ScheduleItemStatusPaid
	} else {
		s.Status = shared.ScheduleItemStatusPartiallyPaid
	}
	s.UpdatedAt = time.Now()

	return applied
}
