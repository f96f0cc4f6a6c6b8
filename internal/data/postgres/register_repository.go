package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/lendhub/loan-engine/internal/domain/register"
	"github.com/lendhub/loan-engine/internal/platform/persistence"
)

// Namespace for the per-year advisory lock, keeps register locks from
// colliding with other advisory lock users on the same database.
const registerLockNamespace = 4217

// RegisterRepository implements the register.Repository interface for PostgreSQL
type RegisterRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewRegisterRepository creates a new PostgreSQL loan register repository
func NewRegisterRepository(logger *slog.Logger, db *persistence.PostgresDB) register.Repository {
	return &RegisterRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction, allowing for atomic
// operations across multiple repository calls.
func (r *RegisterRepository) WithTx(tx pgx.Tx) register.Repository {
	return &RegisterRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// NextSequence returns the next gapless sequence for the year. Callers are
// serialized per year with a transaction-scoped advisory lock, which is
// released on commit or rollback. A rolled-back registration therefore
// never burns a sequence number.
func (r *RegisterRepository) NextSequence(ctx context.Context, year int) (int, error) {
	_, err := r.querier.Exec(ctx, `SELECT pg_advisory_xact_lock($1, $2)`, registerLockNamespace, year)
	if err != nil {
		r.logger.Error("Failed to acquire register lock", "year", year, "error", err)
		return 0, fmt.Errorf("failed to acquire register lock: %w", err)
	}

	var next int
	query := `SELECT COALESCE(MAX(sequence), 0) + 1 FROM loan_register WHERE year = $1`
	if err := r.querier.QueryRow(ctx, query, year).Scan(&next); err != nil {
		r.logger.Error("Failed to compute next register sequence", "year", year, "error", err)
		return 0, fmt.Errorf("failed to compute next register sequence: %w", err)
	}

	return next, nil
}

// Create appends an entry to the register
func (r *RegisterRepository) Create(ctx context.Context, e *register.Entry) error {
	query := `
		INSERT INTO loan_register (id, loan_id, year, sequence, serial_number, registered_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.querier.Exec(ctx, query,
		e.ID, e.LoanID, e.Year, e.Sequence, e.SerialNumber, e.RegisteredAt,
	)
	if err != nil {
		r.logger.Error("Failed to create register entry", "loan_id", e.LoanID.String(), "error", err)
		return fmt.Errorf("failed to create register entry: %w", err)
	}

	return nil
}

// GetByLoanID retrieves the register entry for a loan
func (r *RegisterRepository) GetByLoanID(ctx context.Context, loanID uuid.UUID) (*register.Entry, error) {
	query := `
		SELECT id, loan_id, year, sequence, serial_number, registered_at
		FROM loan_register WHERE loan_id = $1
	`

	var e register.Entry
	err := r.querier.QueryRow(ctx, query, loanID).Scan(
		&e.ID, &e.LoanID, &e.Year, &e.Sequence, &e.SerialNumber, &e.RegisteredAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, register.ErrEntryNotFound{LoanID: loanID}
		}
		r.logger.Error("Failed to get register entry", "loan_id", loanID.String(), "error", err)
		return nil, fmt.Errorf("failed to get register entry: %w", err)
	}

	return &e, nil
}

// ListByYear returns the year's register entries in sequence order
func (r *RegisterRepository) ListByYear(ctx context.Context, year int) ([]*register.Entry, error) {
	query := `
		SELECT id, loan_id, year, sequence, serial_number, registered_at
		FROM loan_register
		WHERE year = $1
		ORDER BY sequence ASC
	`

	rows, err := r.querier.Query(ctx, query, year)
	if err != nil {
		r.logger.Error("Failed to list register entries", "year", year, "error", err)
		return nil, fmt.Errorf("failed to list register entries: %w", err)
	}
	defer rows.Close()

	var entries []*register.Entry
	for rows.Next() {
		var e register.Entry
		err := rows.Scan(&e.ID, &e.LoanID, &e.Year, &e.Sequence, &e.SerialNumber, &e.RegisteredAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan register entry: %w", err)
		}
		entries = append(entries, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over register entries: %w", err)
	}

	return entries, nil
}

// StatsByYear summarizes a year's register entries grouped by loan status
func (r *RegisterRepository) StatsByYear(ctx context.Context, year int) (*register.YearStats, error) {
	query := `
		SELECT l.status, COUNT(*)
		FROM loan_register r
		JOIN loans l ON l.id = r.loan_id
		WHERE r.year = $1
		GROUP BY l.status
	`

	rows, err := r.querier.Query(ctx, query, year)
	if err != nil {
		r.logger.Error("Failed to get register stats", "year", year, "error", err)
		return nil, fmt.Errorf("failed to get register stats: %w", err)
	}
	defer rows.Close()

	stats := &register.YearStats{
		Year:     year,
		ByStatus: make(map[string]int),
	}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan register stats: %w", err)
		}
		stats.ByStatus[status] = count
		stats.TotalLoans += count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over register stats: %w", err)
	}

	return stats, nil
}
