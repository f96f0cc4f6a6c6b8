package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/lendhub/loan-engine/internal/domain/threshold"
	"github.com/lendhub/loan-engine/internal/platform/persistence"
)

// ThresholdRepository implements the threshold.Repository interface for PostgreSQL
type ThresholdRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewThresholdRepository creates a new PostgreSQL threshold repository
func NewThresholdRepository(logger *slog.Logger, db *persistence.PostgresDB) threshold.Repository {
	return &ThresholdRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction, allowing for atomic
// operations across multiple repository calls.
func (r *ThresholdRepository) WithTx(tx pgx.Tx) threshold.Repository {
	return &ThresholdRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// CreateThreshold stores a monthly liquidity cap
func (r *ThresholdRepository) CreateThreshold(ctx context.Context, t *threshold.MonthlyThreshold) error {
	query := `
		INSERT INTO monthly_thresholds (month, year, max_loan_amount, total_disbursed,
			remaining_amount, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.querier.Exec(ctx, query,
		t.Month, t.Year, t.MaxLoanAmount, t.TotalDisbursed,
		t.RemainingAmount, t.Version, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create threshold", "month", t.Month, "year", t.Year, "error", err)
		return fmt.Errorf("failed to create threshold: %w", err)
	}

	return nil
}

// GetThreshold retrieves the cap for a calendar month
func (r *ThresholdRepository) GetThreshold(ctx context.Context, month, year int) (*threshold.MonthlyThreshold, error) {
	query := `
		SELECT month, year, max_loan_amount, total_disbursed, remaining_amount, version, created_at, updated_at
		FROM monthly_thresholds WHERE month = $1 AND year = $2
	`
	return r.queryThreshold(ctx, query, month, year)
}

// LockThresholdForUpdate serializes concurrent reservations against the
// single (month, year) row.
func (r *ThresholdRepository) LockThresholdForUpdate(ctx context.Context, month, year int) (*threshold.MonthlyThreshold, error) {
	query := `
		SELECT month, year, max_loan_amount, total_disbursed, remaining_amount, version, created_at, updated_at
		FROM monthly_thresholds WHERE month = $1 AND year = $2 FOR UPDATE
	`
	return r.queryThreshold(ctx, query, month, year)
}

func (r *ThresholdRepository) queryThreshold(ctx context.Context, query string, month, year int) (*threshold.MonthlyThreshold, error) {
	var t threshold.MonthlyThreshold
	err := r.querier.QueryRow(ctx, query, month, year).Scan(
		&t.Month, &t.Year, &t.MaxLoanAmount, &t.TotalDisbursed,
		&t.RemainingAmount, &t.Version, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, threshold.ErrThresholdNotFound{Month: month, Year: year}
		}
		r.logger.Error("Failed to get threshold", "month", month, "year", year, "error", err)
		return nil, fmt.Errorf("failed to get threshold: %w", err)
	}

	return &t, nil
}

// UpdateThreshold persists reservation changes using optimistic locking
func (r *ThresholdRepository) UpdateThreshold(ctx context.Context, t *threshold.MonthlyThreshold) error {
	query := `
		UPDATE monthly_thresholds
		SET max_loan_amount = $1, total_disbursed = $2, remaining_amount = $3, version = $4, updated_at = $5
		WHERE month = $6 AND year = $7 AND version = $8
	`

	result, err := r.querier.Exec(ctx, query,
		t.MaxLoanAmount, t.TotalDisbursed, t.RemainingAmount, t.Version, t.UpdatedAt,
		t.Month, t.Year, t.Version-1, // Check previous version for optimistic locking
	)
	if err != nil {
		r.logger.Error("Failed to update threshold", "month", t.Month, "year", t.Year, "error", err)
		return fmt.Errorf("failed to update threshold: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("concurrent modification detected for threshold %d/%d", t.Month, t.Year)
	}

	return nil
}

// CreateAllocation stores a capacity reservation for an approved application
func (r *ThresholdRepository) CreateAllocation(ctx context.Context, a *threshold.Allocation) error {
	query := `
		INSERT INTO threshold_allocations (id, application_id, amount, month, year,
			status, approved_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.querier.Exec(ctx, query,
		a.ID, a.ApplicationID, a.Amount, a.Month, a.Year,
		a.Status, a.ApprovedAt, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create allocation", "application_id", a.ApplicationID.String(), "error", err)
		return fmt.Errorf("failed to create allocation: %w", err)
	}

	return nil
}

// GetAllocationByApplication retrieves the reservation for an application
func (r *ThresholdRepository) GetAllocationByApplication(ctx context.Context, applicationID uuid.UUID) (*threshold.Allocation, error) {
	query := `
		SELECT id, application_id, amount, month, year, status, approved_at, created_at, updated_at
		FROM threshold_allocations WHERE application_id = $1
	`

	var a threshold.Allocation
	err := r.querier.QueryRow(ctx, query, applicationID).Scan(
		&a.ID, &a.ApplicationID, &a.Amount, &a.Month, &a.Year,
		&a.Status, &a.ApprovedAt, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, threshold.ErrAllocationNotFound{ApplicationID: applicationID}
		}
		r.logger.Error("Failed to get allocation", "application_id", applicationID.String(), "error", err)
		return nil, fmt.Errorf("failed to get allocation: %w", err)
	}

	return &a, nil
}

// UpdateAllocation persists allocation status and month changes
func (r *ThresholdRepository) UpdateAllocation(ctx context.Context, a *threshold.Allocation) error {
	query := `
		UPDATE threshold_allocations
		SET amount = $1, month = $2, year = $3, status = $4, updated_at = $5
		WHERE id = $6
	`

	result, err := r.querier.Exec(ctx, query,
		a.Amount, a.Month, a.Year, a.Status, a.UpdatedAt, a.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update allocation", "id", a.ID.String(), "error", err)
		return fmt.Errorf("failed to update allocation: %w", err)
	}

	if result.RowsAffected() == 0 {
		return threshold.ErrAllocationNotFound{ApplicationID: a.ApplicationID}
	}

	return nil
}

// ListQueued returns all queued allocations in approval order, oldest first,
// so the monthly rollover promotes first-come-first-served.
func (r *ThresholdRepository) ListQueued(ctx context.Context) ([]*threshold.Allocation, error) {
	query := `
		SELECT id, application_id, amount, month, year, status, approved_at, created_at, updated_at
		FROM threshold_allocations
		WHERE status = 'QUEUED'
		ORDER BY approved_at ASC
	`

	rows, err := r.querier.Query(ctx, query)
	if err != nil {
		r.logger.Error("Failed to list queued allocations", "error", err)
		return nil, fmt.Errorf("failed to list queued allocations: %w", err)
	}
	defer rows.Close()

	var allocations []*threshold.Allocation
	for rows.Next() {
		var a threshold.Allocation
		err := rows.Scan(
			&a.ID, &a.ApplicationID, &a.Amount, &a.Month, &a.Year,
			&a.Status, &a.ApprovedAt, &a.CreatedAt, &a.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan allocation: %w", err)
		}
		allocations = append(allocations, &a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over queued allocations: %w", err)
	}

	return allocations, nil
}
