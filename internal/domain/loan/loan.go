package loan

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lendhub/loan-engine/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Common errors
var (
	ErrNotPayable       = errors.New("loan is not in a payable state")
	ErrAlreadyClosed    = errors.New("loan is already closed")
	ErrNegativeBalance  = errors.New("loan balance would go negative")
	ErrInvalidPrincipal = errors.New("principal must be positive")
)

// ClosureEpsilon is the rounding tolerance under which an outstanding
// balance counts as fully repaid.
var ClosureEpsilon = decimal.NewFromFloat(0.01)

// Loan is the aggregate root for a disbursed loan contract.
// All currency fields are 2dp fixed-point amounts.
type Loan struct {
	ID              uuid.UUID             `json:"id"`
	MemberID        uuid.UUID             `json:"member_id"`
	ApplicationID   uuid.UUID             `json:"application_id"`
	SerialNumber    string                `json:"serial_number,omitempty"`
	Principal       decimal.Decimal       `json:"principal"`
	AnnualRatePct   decimal.Decimal       `json:"annual_rate_pct"`
	TermMonths      int                   `json:"term_months"`
	EMI             decimal.Decimal       `json:"emi"`
	TotalRepayable  decimal.Decimal       `json:"total_repayable"`
	Outstanding     decimal.Decimal       `json:"outstanding_balance"`
	PrincipalPaid   decimal.Decimal       `json:"principal_paid"`
	InterestPaid    decimal.Decimal       `json:"interest_paid"`
	PenaltyPaid     decimal.Decimal       `json:"penalty_paid"`
	PenaltyAmount   decimal.Decimal       `json:"penalty_amount"`
	InterestAccrued decimal.Decimal       `json:"interest_accrued"`
	Classification  shared.Classification `json:"classification"`
	DaysInArrears   int                   `json:"days_in_arrears"`
	ArrearsAmount   decimal.Decimal       `json:"arrears_amount"`
	Status          shared.LoanStatus     `json:"status"`
	DisbursedAt     *time.Time            `json:"disbursed_at,omitempty"`
	NextPaymentDate *time.Time            `json:"next_payment_date,omitempty"`
	LastPaymentDate *time.Time            `json:"last_payment_date,omitempty"`
	Version         int                   `json:"version"` // For optimistic locking
	CreatedAt       time.Time             `json:"created_at"`
	UpdatedAt       time.Time             `json:"updated_at"`
}

// NewLoan creates a disbursed loan from already-validated amortization figures.
// totalRepayable must equal the sum of all scheduled principal and interest.
func NewLoan(memberID, applicationID uuid.UUID, principal, annualRatePct decimal.Decimal, termMonths int, emi, totalRepayable decimal.Decimal, disbursedAt, firstDueDate time.Time) (*Loan, error) {
	if principal.LessThanOrEqual(decimal.Zero) {
		return nil, ErrInvalidPrincipal
	}

	now := time.Now()
	return &Loan{
		ID:              uuid.New(),
		MemberID:        memberID,
		ApplicationID:   applicationID,
		Principal:       principal,
		AnnualRatePct:   annualRatePct,
		TermMonths:      termMonths,
		EMI:             emi,
		TotalRepayable:  totalRepayable,
		Outstanding:     totalRepayable,
		PrincipalPaid:   decimal.Zero,
		InterestPaid:    decimal.Zero,
		PenaltyPaid:     decimal.Zero,
		PenaltyAmount:   decimal.Zero,
		InterestAccrued: decimal.Zero,
		Classification:  shared.ClassificationPerforming,
		ArrearsAmount:   decimal.Zero,
		Status:          shared.LoanStatusDisbursed,
		DisbursedAt:     &disbursedAt,
		NextPaymentDate: &firstDueDate,
		Version:         1,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// RemainingPrincipal returns the principal portion still owed.
func (l *Loan) RemainingPrincipal() decimal.Decimal {
	return l.Principal.Sub(l.PrincipalPaid)
}

// PenaltyDue returns the unpaid penalty balance.
func (l *Loan) PenaltyDue() decimal.Decimal {
	return l.PenaltyAmount.Sub(l.PenaltyPaid)
}

// RecomputeOutstanding restores the balance invariant:
// outstanding = totalRepayable − principalPaid − interestPaid − penaltyPaid.
// Penalties enter totalRepayable when applied, so the invariant holds with
// or without penalties and outstanding never goes negative on valid input.
func (l *Loan) RecomputeOutstanding() {
	l.Outstanding = l.TotalRepayable.Sub(l.PrincipalPaid).Sub(l.InterestPaid).Sub(l.PenaltyPaid)
}

// ApplyPayment credits an allocation split against the loan balances and
// closes the loan when the outstanding balance falls within ClosureEpsilon.
// Returns true when the payment closed the loan.
func (l *Loan) ApplyPayment(penaltyPaid, interestPaid, principalPaid decimal.Decimal, paidAt time.Time) (bool, error) {
	if !l.Status.Payable() {
		return false, ErrNotPayable
	}

	l.PenaltyPaid = l.PenaltyPaid.Add(penaltyPaid)
	l.InterestPaid = l.InterestPaid.Add(interestPaid)
	l.PrincipalPaid = l.PrincipalPaid.Add(principalPaid)
	l.RecomputeOutstanding()

	if l.Outstanding.IsNegative() {
		return false, ErrNegativeBalance
	}

	l.LastPaymentDate = &paidAt
	l.UpdatedAt = time.Now()
	l.Version++

	if l.Outstanding.LessThanOrEqual(ClosureEpsilon) {
		l.close()
		return true, nil
	}

	l.Status = shared.LoanStatusActive
	return false, nil
}

// ApplyPenalty adds an assessed penalty to both the penalty balance and the
// total repayable, so the outstanding balance grows by the same amount.
func (l *Loan) ApplyPenalty(amount decimal.Decimal) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return
	}

	l.PenaltyAmount = l.PenaltyAmount.Add(amount)
	l.TotalRepayable = l.TotalRepayable.Add(amount)
	l.RecomputeOutstanding()
	l.UpdatedAt = time.Now()
	l.Version++
}

// MarkArrears records the current overdue position on the loan.
func (l *Loan) MarkArrears(days int, amount decimal.Decimal, classification shared.Classification) {
	l.DaysInArrears = days
	l.ArrearsAmount = amount
	l.Classification = classification
	l.UpdatedAt = time.Now()
	l.Version++
}

// close clamps the residual rounding remainder to zero and closes the loan.
func (l *Loan) close() {
	l.Outstanding = decimal.Zero
	l.Status = shared.LoanStatusClosed
	l.Classification = shared.ClassificationClosed
	l.DaysInArrears = 0
	l.ArrearsAmount = decimal.Zero
	l.NextPaymentDate = nil
}
