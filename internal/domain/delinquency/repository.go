package delinquency

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository manages the append-only delinquency history. Uniqueness on
// (loan_id, check_date) makes the daily run naturally idempotent: a second
// invocation on the same calendar day reports the loan as already checked.
type Repository interface {
	Create(ctx context.Context, record *Record) error
	ExistsForDate(ctx context.Context, loanID uuid.UUID, checkDate time.Time) (bool, error)
	GetByLoanID(ctx context.Context, loanID uuid.UUID, limit, offset int) ([]*Record, error)
	GetLatest(ctx context.Context, loanID uuid.UUID) (*Record, error)
}

// ErrDuplicateRecord indicates the loan was already checked on this date
type ErrDuplicateRecord struct {
	LoanID uuid.UUID
}

func (e ErrDuplicateRecord) Error() string {
	return "delinquency record already exists for loan on this date: " + e.LoanID.String()
}

// ErrRecordNotFound indicates no history for the loan
type ErrRecordNotFound struct {
	LoanID uuid.UUID
}

func (e ErrRecordNotFound) Error() string {
	return "no delinquency records for loan: " + e.LoanID.String()
}
