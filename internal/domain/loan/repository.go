package loan

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository defines loan persistence operations
type Repository interface {
	Create(ctx context.Context, l *Loan) error
	GetByID(ctx context.Context, id uuid.UUID) (*Loan, error)
	Update(ctx context.Context, l *Loan) error

	// LockForUpdate acquires a pessimistic lock on the loan row. Repayment
	// processing and the delinquency batch both take this lock, which is
	// what serializes them per loan.
	LockForUpdate(ctx context.Context, id uuid.UUID) (*Loan, error)

	// ListOverdue returns active loans whose next payment date is in the past.
	ListOverdue(ctx context.Context, limit int) ([]*Loan, error)

	CreateScheduleItems(ctx context.Context, items []*ScheduleItem) error
	GetScheduleItems(ctx context.Context, loanID uuid.UUID) ([]*ScheduleItem, error)

	// LockScheduleItems loads a loan's open installments in due-date order
	// under the enclosing transaction's lock.
	LockScheduleItems(ctx context.Context, loanID uuid.UUID) ([]*ScheduleItem, error)
	UpdateScheduleItem(ctx context.Context, item *ScheduleItem) error

	WithTx(tx pgx.Tx) Repository
}

// ErrLoanNotFound indicates missing loan
type ErrLoanNotFound struct {
	LoanID uuid.UUID
}

func (e ErrLoanNotFound) Error() string {
	return "loan not found: " + e.LoanID.String()
}

// ErrConcurrentModification indicates optimistic lock failure
type ErrConcurrentModification struct {
	LoanID uuid.UUID
}

func (e ErrConcurrentModification) Error() string {
	return "concurrent modification detected for loan: " + e.LoanID.String()
}
