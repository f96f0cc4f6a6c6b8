package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/lendhub/loan-engine/internal/domain/loan"
	"github.com/lendhub/loan-engine/internal/platform/persistence"
)

const loanColumns = `id, member_id, application_id, serial_number, principal, annual_rate_pct,
		term_months, emi, total_repayable, outstanding_balance, principal_paid, interest_paid,
		penalty_paid, penalty_amount, interest_accrued, classification, days_in_arrears,
		arrears_amount, status, disbursed_at, next_payment_date, last_payment_date,
		version, created_at, updated_at`

// LoanRepository implements the loan.Repository interface for PostgreSQL
type LoanRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewLoanRepository creates a new PostgreSQL loan repository
func NewLoanRepository(logger *slog.Logger, db *persistence.PostgresDB) loan.Repository {
	return &LoanRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction, allowing for atomic
// operations across multiple repository calls.
func (r *LoanRepository) WithTx(tx pgx.Tx) loan.Repository {
	return &LoanRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stores a new loan
func (r *LoanRepository) Create(ctx context.Context, l *loan.Loan) error {
	query := `
		INSERT INTO loans (` + loanColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25)
	`

	_, err := r.querier.Exec(ctx, query,
		l.ID, l.MemberID, l.ApplicationID, nullableString(l.SerialNumber),
		l.Principal, l.AnnualRatePct, l.TermMonths, l.EMI, l.TotalRepayable,
		l.Outstanding, l.PrincipalPaid, l.InterestPaid, l.PenaltyPaid,
		l.PenaltyAmount, l.InterestAccrued, l.Classification, l.DaysInArrears,
		l.ArrearsAmount, l.Status, l.DisbursedAt, l.NextPaymentDate,
		l.LastPaymentDate, l.Version, l.CreatedAt, l.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create loan", "id", l.ID.String(), "error", err)
		return fmt.Errorf("failed to create loan: %w", err)
	}

	return nil
}

// GetByID retrieves a loan by its ID
func (r *LoanRepository) GetByID(ctx context.Context, id uuid.UUID) (*loan.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans WHERE id = $1`
	return r.queryLoan(ctx, query, id)
}

// LockForUpdate obtains a pessimistic lock on the loan row and returns its
// current state. Repayment processing and the delinquency batch both take
// this lock, which serializes them per loan.
func (r *LoanRepository) LockForUpdate(ctx context.Context, id uuid.UUID) (*loan.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans WHERE id = $1 FOR UPDATE`
	return r.queryLoan(ctx, query, id)
}

func (r *LoanRepository) queryLoan(ctx context.Context, query string, id uuid.UUID) (*loan.Loan, error) {
	var l loan.Loan
	var serial *string

	err := r.querier.QueryRow(ctx, query, id).Scan(
		&l.ID, &l.MemberID, &l.ApplicationID, &serial,
		&l.Principal, &l.AnnualRatePct, &l.TermMonths, &l.EMI, &l.TotalRepayable,
		&l.Outstanding, &l.PrincipalPaid, &l.InterestPaid, &l.PenaltyPaid,
		&l.PenaltyAmount, &l.InterestAccrued, &l.Classification, &l.DaysInArrears,
		&l.ArrearsAmount, &l.Status, &l.DisbursedAt, &l.NextPaymentDate,
		&l.LastPaymentDate, &l.Version, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, loan.ErrLoanNotFound{LoanID: id}
		}
		r.logger.Error("Failed to get loan", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get loan: %w", err)
	}

	if serial != nil {
		l.SerialNumber = *serial
	}
	return &l, nil
}

// Update persists loan state using optimistic locking.
// Returns ErrConcurrentModification if the loan changed between read and update.
func (r *LoanRepository) Update(ctx context.Context, l *loan.Loan) error {
	query := `
		UPDATE loans
		SET serial_number = $1, total_repayable = $2, outstanding_balance = $3,
			principal_paid = $4, interest_paid = $5, penalty_paid = $6,
			penalty_amount = $7, interest_accrued = $8, classification = $9,
			days_in_arrears = $10, arrears_amount = $11, status = $12,
			next_payment_date = $13, last_payment_date = $14, version = $15, updated_at = $16
		WHERE id = $17 AND version = $18
	`

	result, err := r.querier.Exec(ctx, query,
		nullableString(l.SerialNumber), l.TotalRepayable, l.Outstanding,
		l.PrincipalPaid, l.InterestPaid, l.PenaltyPaid,
		l.PenaltyAmount, l.InterestAccrued, l.Classification,
		l.DaysInArrears, l.ArrearsAmount, l.Status,
		l.NextPaymentDate, l.LastPaymentDate, l.Version, l.UpdatedAt,
		l.ID, l.Version-1, // Check previous version for optimistic locking
	)
	if err != nil {
		r.logger.Error("Failed to update loan", "id", l.ID.String(), "error", err)
		return fmt.Errorf("failed to update loan: %w", err)
	}

	if result.RowsAffected() == 0 {
		return loan.ErrConcurrentModification{LoanID: l.ID}
	}

	return nil
}

// ListOverdue returns active loans whose next payment date has passed,
// oldest due date first. This feeds the daily delinquency batch.
func (r *LoanRepository) ListOverdue(ctx context.Context, limit int) ([]*loan.Loan, error) {
	query := `
		SELECT ` + loanColumns + `
		FROM loans
		WHERE status IN ('DISBURSED', 'ACTIVE') AND next_payment_date < NOW()
		ORDER BY next_payment_date ASC
		LIMIT $1
	`

	rows, err := r.querier.Query(ctx, query, limit)
	if err != nil {
		r.logger.Error("Failed to list overdue loans", "error", err)
		return nil, fmt.Errorf("failed to list overdue loans: %w", err)
	}
	defer rows.Close()

	var loans []*loan.Loan
	for rows.Next() {
		var l loan.Loan
		var serial *string
		err := rows.Scan(
			&l.ID, &l.MemberID, &l.ApplicationID, &serial,
			&l.Principal, &l.AnnualRatePct, &l.TermMonths, &l.EMI, &l.TotalRepayable,
			&l.Outstanding, &l.PrincipalPaid, &l.InterestPaid, &l.PenaltyPaid,
			&l.PenaltyAmount, &l.InterestAccrued, &l.Classification, &l.DaysInArrears,
			&l.ArrearsAmount, &l.Status, &l.DisbursedAt, &l.NextPaymentDate,
			&l.LastPaymentDate, &l.Version, &l.CreatedAt, &l.UpdatedAt,
		)
		if err != nil {
			r.logger.Error("Failed to scan overdue loan", "error", err)
			return nil, fmt.Errorf("failed to scan overdue loan: %w", err)
		}
		if serial != nil {
			l.SerialNumber = *serial
		}
		loans = append(loans, &l)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over overdue loans: %w", err)
	}

	return loans, nil
}

// CreateScheduleItems bulk-inserts a loan's amortization schedule
func (r *LoanRepository) CreateScheduleItems(ctx context.Context, items []*loan.ScheduleItem) error {
	query := `
		INSERT INTO schedule_items (id, loan_id, installment_no, due_date, principal_amount,
			interest_amount, paid_amount, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	for _, item := range items {
		_, err := r.querier.Exec(ctx, query,
			item.ID, item.LoanID, item.InstallmentNo, item.DueDate,
			item.PrincipalAmount, item.InterestAmount, item.PaidAmount,
			item.Status, item.CreatedAt, item.UpdatedAt,
		)
		if err != nil {
			r.logger.Error("Failed to create schedule item",
				"loan_id", item.LoanID.String(),
				"installment", item.InstallmentNo,
				"error", err,
			)
			return fmt.Errorf("failed to create schedule item %d: %w", item.InstallmentNo, err)
		}
	}

	return nil
}

// GetScheduleItems returns a loan's full schedule in installment order
func (r *LoanRepository) GetScheduleItems(ctx context.Context, loanID uuid.UUID) ([]*loan.ScheduleItem, error) {
	return r.queryScheduleItems(ctx, loanID, false)
}

// LockScheduleItems loads a loan's schedule in due-date order under the
// enclosing transaction's lock.
func (r *LoanRepository) LockScheduleItems(ctx context.Context, loanID uuid.UUID) ([]*loan.ScheduleItem, error) {
	return r.queryScheduleItems(ctx, loanID, true)
}

func (r *LoanRepository) queryScheduleItems(ctx context.Context, loanID uuid.UUID, lock bool) ([]*loan.ScheduleItem, error) {
	query := `
		SELECT id, loan_id, installment_no, due_date, principal_amount,
			interest_amount, paid_amount, status, created_at, updated_at
		FROM schedule_items
		WHERE loan_id = $1
		ORDER BY due_date ASC
	`
	if lock {
		query += ` FOR UPDATE`
	}

	rows, err := r.querier.Query(ctx, query, loanID)
	if err != nil {
		r.logger.Error("Failed to get schedule items", "loan_id", loanID.String(), "error", err)
		return nil, fmt.Errorf("failed to get schedule items: %w", err)
	}
	defer rows.Close()

	var items []*loan.ScheduleItem
	for rows.Next() {
		var item loan.ScheduleItem
		err := rows.Scan(
			&item.ID, &item.LoanID, &item.InstallmentNo, &item.DueDate,
			&item.PrincipalAmount, &item.InterestAmount, &item.PaidAmount,
			&item.Status, &item.CreatedAt, &item.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan schedule item: %w", err)
		}
		items = append(items, &item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over schedule items: %w", err)
	}

	return items, nil
}

// UpdateScheduleItem persists one installment's paid amount and status
func (r *LoanRepository) UpdateScheduleItem(ctx context.Context, item *loan.ScheduleItem) error {
	query := `
		UPDATE schedule_items
		SET paid_amount = $1, status = $2, updated_at = $3
		WHERE id = $4
	`

	result, err := r.querier.Exec(ctx, query, item.PaidAmount, item.Status, item.UpdatedAt, item.ID)
	if err != nil {
		r.logger.Error("Failed to update schedule item", "id", item.ID.String(), "error", err)
		return fmt.Errorf("failed to update schedule item: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("schedule item %s not found", item.ID)
	}

	return nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
