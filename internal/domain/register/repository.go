package register

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository defines loan register persistence. The register is append-only;
// entries are never updated or deleted.
type Repository interface {
	// NextSequence returns the next gapless sequence for the year. It must
	// be called inside a transaction: the implementation serializes callers
	// with a database-level lock keyed by year, so the guarantee holds
	// across process instances.
	NextSequence(ctx context.Context, year int) (int, error)

	Create(ctx context.Context, e *Entry) error
	GetByLoanID(ctx context.Context, loanID uuid.UUID) (*Entry, error)
	ListByYear(ctx context.Context, year int) ([]*Entry, error)
	StatsByYear(ctx context.Context, year int) (*YearStats, error)

	WithTx(tx pgx.Tx) Repository
}

// ErrAlreadyRegistered indicates the loan already holds a serial number
type ErrAlreadyRegistered struct {
	LoanID uuid.UUID
}

func (e ErrAlreadyRegistered) Error() string {
	return "loan already registered: " + e.LoanID.String()
}

// ErrEntryNotFound indicates missing register entry
type ErrEntryNotFound struct {
	LoanID uuid.UUID
}

func (e ErrEntryNotFound) Error() string {
	return "register entry not found for loan: " + e.LoanID.String()
}
