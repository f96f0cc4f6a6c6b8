package threshold

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository defines threshold and allocation persistence operations
type Repository interface {
	CreateThreshold(ctx context.Context, t *MonthlyThreshold) error
	GetThreshold(ctx context.Context, month, year int) (*MonthlyThreshold, error)

	// LockThresholdForUpdate serializes concurrent reservations against the
	// single (month, year) row.
	LockThresholdForUpdate(ctx context.Context, month, year int) (*MonthlyThreshold, error)
	UpdateThreshold(ctx context.Context, t *MonthlyThreshold) error

	CreateAllocation(ctx context.Context, a *Allocation) error
	GetAllocationByApplication(ctx context.Context, applicationID uuid.UUID) (*Allocation, error)
	UpdateAllocation(ctx context.Context, a *Allocation) error

	// ListQueued returns all queued allocations in approval order, oldest
	// first, so the monthly rollover promotes first-come-first-served.
	ListQueued(ctx context.Context) ([]*Allocation, error)

	WithTx(tx pgx.Tx) Repository
}

// ErrThresholdNotFound indicates no cap configured for the month
type ErrThresholdNotFound struct {
	Month int
	Year  int
}

func (e ErrThresholdNotFound) Error() string {
	return fmt.Sprintf("no threshold configured for %d/%d", e.Month, e.Year)
}

// ErrAllocationNotFound indicates missing allocation
type ErrAllocationNotFound struct {
	ApplicationID uuid.UUID
}

func (e ErrAllocationNotFound) Error() string {
	return "threshold allocation not found for application: " + e.ApplicationID.String()
}
