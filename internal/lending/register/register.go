// Package register assigns gapless yearly serial numbers to disbursed
// loans and serves the append-only audit view built on them.
package register

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	domain "github.com/lendhub/loan-engine/internal/domain/register"
	"github.com/lendhub/loan-engine/internal/platform/persistence"
)

// TxRunner runs a function inside one database transaction.
type TxRunner interface {
	ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) error
}

var _ TxRunner = (*persistence.PostgresDB)(nil)

// Register issues loan serial numbers and answers export queries
type Register struct {
	db      TxRunner
	entries domain.Repository
	now     func() time.Time
	logger  *slog.Logger
}

// NewRegister creates a loan register
func NewRegister(db TxRunner, entries domain.Repository, now func() time.Time, logger *slog.Logger) *Register {
	if now == nil {
		now = time.Now
	}
	return &Register{
		db:      db,
		entries: entries,
		now:     now,
		logger:  logger,
	}
}

// Register assigns the loan its serial number for the current year. The
// sequence is drawn under a database lock keyed by year, so serials stay
// unique and gapless across concurrent registrations and across process
// instances. Registering the same loan twice fails with AlreadyRegistered.
func (r *Register) Register(ctx context.Context, loanID uuid.UUID) (*domain.Entry, error) {
	now := r.now()
	var entry *domain.Entry

	err := r.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		repo := r.entries.WithTx(tx)

		_, err := repo.GetByLoanID(ctx, loanID)
		if err == nil {
			return domain.ErrAlreadyRegistered{LoanID: loanID}
		}
		var notFound domain.ErrEntryNotFound
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to check existing registration: %w", err)
		}

		seq, err := repo.NextSequence(ctx, now.Year())
		if err != nil {
			return fmt.Errorf("failed to draw sequence for %d: %w", now.Year(), err)
		}

		entry = &domain.Entry{
			ID:           uuid.New(),
			LoanID:       loanID,
			Year:         now.Year(),
			Sequence:     seq,
			SerialNumber: domain.FormatSerial(now.Year(), seq),
			RegisteredAt: now,
		}
		return repo.Create(ctx, entry)
	})
	if err != nil {
		return nil, err
	}

	r.logger.Info("Loan registered", "loan_id", loanID, "serial_number", entry.SerialNumber)
	return entry, nil
}

// Entry returns the register entry for a loan.
func (r *Register) Entry(ctx context.Context, loanID uuid.UUID) (*domain.Entry, error) {
	return r.entries.GetByLoanID(ctx, loanID)
}

// Entries lists a year's register in serial order.
func (r *Register) Entries(ctx context.Context, year int) ([]*domain.Entry, error) {
	return r.entries.ListByYear(ctx, year)
}

// Stats summarizes a year's register, counts joined against loan status.
func (r *Register) Stats(ctx context.Context, year int) (*domain.YearStats, error) {
	return r.entries.StatsByYear(ctx, year)
}
