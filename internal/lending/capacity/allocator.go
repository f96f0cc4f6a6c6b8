// Package capacity reserves loan amounts against per-month disbursement
// caps. Demand that does not fit the current month is parked in the first
// future month with room and promoted by the monthly rollover,
// first-come-first-served on approval time.
package capacity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/lendhub/loan-engine/internal/domain/shared"
	"github.com/lendhub/loan-engine/internal/domain/threshold"
	"github.com/lendhub/loan-engine/internal/platform/persistence"
	"github.com/shopspring/decimal"
)

// ErrThresholdExceeded indicates no month within the search horizon has
// capacity for the requested amount.
var ErrThresholdExceeded = errors.New("no month within horizon has capacity for amount")

// ErrAllocationDisbursed indicates the allocation has already funded a loan
// and its capacity can no longer be returned.
var ErrAllocationDisbursed = errors.New("allocation already disbursed")

// SearchHorizonMonths bounds the forward search for a month with capacity.
const SearchHorizonMonths = 12

var (
	warningUtilization  = decimal.NewFromInt(75)
	criticalUtilization = decimal.NewFromInt(90)
)

// TxRunner runs a function inside one database transaction.
type TxRunner interface {
	ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) error
}

var _ TxRunner = (*persistence.PostgresDB)(nil)

// AlertPublisher dispatches capacity utilization alerts, fire and forget.
type AlertPublisher interface {
	PublishCapacityAlert(ctx context.Context, alert *shared.CapacityAlert) error
}

// Allocator manages monthly threshold reservations
type Allocator struct {
	db         TxRunner
	thresholds threshold.Repository
	alerts     AlertPublisher
	now        func() time.Time
	logger     *slog.Logger
}

// NewAllocator creates a threshold allocator. The clock is injectable for
// rollover tests.
func NewAllocator(db TxRunner, thresholds threshold.Repository, alerts AlertPublisher, now func() time.Time, logger *slog.Logger) *Allocator {
	if now == nil {
		now = time.Now
	}
	return &Allocator{
		db:         db,
		thresholds: thresholds,
		alerts:     alerts,
		now:        now,
		logger:     logger,
	}
}

// CheckResult reports where a requested amount can be accommodated.
type CheckResult struct {
	Fits      bool            `json:"fits"`
	Month     int             `json:"month"`
	Year      int             `json:"year"`
	Deferred  bool            `json:"deferred"`
	Remaining decimal.Decimal `json:"remaining"`
}

// Check reports whether the amount fits the given month and, when it does
// not, searches forward up to SearchHorizonMonths for the first month with
// room. Read-only; nothing is reserved.
func (a *Allocator) Check(ctx context.Context, amount decimal.Decimal, month, year int) (*CheckResult, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, threshold.ErrInvalidAmount
	}

	for offset := 0; offset <= SearchHorizonMonths; offset++ {
		m, y := addMonths(month, year, offset)
		t, err := a.thresholds.GetThreshold(ctx, m, y)
		if err != nil {
			var notFound threshold.ErrThresholdNotFound
			if errors.As(err, &notFound) {
				continue
			}
			return nil, fmt.Errorf("failed to load threshold %d/%d: %w", m, y, err)
		}
		if t.Fits(amount) {
			return &CheckResult{
				Fits:      true,
				Month:     m,
				Year:      y,
				Deferred:  offset > 0,
				Remaining: t.RemainingAmount,
			}, nil
		}
	}

	return &CheckResult{Fits: false}, nil
}

// Allocate reserves the amount for an approved application, preferring the
// current month and otherwise parking the allocation as Queued in the first
// future month with capacity. Returns ErrThresholdExceeded when no month
// within the horizon has room.
func (a *Allocator) Allocate(ctx context.Context, applicationID uuid.UUID, amount decimal.Decimal, approvedAt time.Time) (*threshold.Allocation, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, threshold.ErrInvalidAmount
	}

	now := a.now()
	var alloc *threshold.Allocation

	err := a.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		repo := a.thresholds.WithTx(tx)

		for offset := 0; offset <= SearchHorizonMonths; offset++ {
			m, y := addMonths(int(now.Month()), now.Year(), offset)

			t, err := repo.LockThresholdForUpdate(ctx, m, y)
			if err != nil {
				var notFound threshold.ErrThresholdNotFound
				if errors.As(err, &notFound) {
					continue
				}
				return fmt.Errorf("failed to lock threshold %d/%d: %w", m, y, err)
			}
			if !t.Fits(amount) {
				continue
			}

			if err := t.Reserve(amount); err != nil {
				return err
			}
			if err := repo.UpdateThreshold(ctx, t); err != nil {
				return fmt.Errorf("failed to update threshold %d/%d: %w", m, y, err)
			}

			status := shared.AllocationStatusReadyForDisbursement
			if offset > 0 {
				status = shared.AllocationStatusQueued
			}
			alloc = &threshold.Allocation{
				ID:            uuid.New(),
				ApplicationID: applicationID,
				Amount:        amount,
				Month:         m,
				Year:          y,
				Status:        status,
				ApprovedAt:    approvedAt,
				CreatedAt:     now,
				UpdatedAt:     now,
			}
			if err := repo.CreateAllocation(ctx, alloc); err != nil {
				return fmt.Errorf("failed to create allocation: %w", err)
			}

			a.publishUtilizationAlert(ctx, t)
			return nil
		}

		return ErrThresholdExceeded
	})
	if err != nil {
		return nil, err
	}

	a.logger.Info("Threshold capacity allocated",
		"application_id", applicationID,
		"amount", amount,
		"month", alloc.Month,
		"year", alloc.Year,
		"status", alloc.Status)

	return alloc, nil
}

// Release returns previously reserved capacity, used when an application
// is rejected or withdrawn before disbursement.
func (a *Allocator) Release(ctx context.Context, applicationID uuid.UUID) error {
	err := a.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		repo := a.thresholds.WithTx(tx)

		alloc, err := repo.GetAllocationByApplication(ctx, applicationID)
		if err != nil {
			return err
		}
		if alloc.Status == shared.AllocationStatusReleased {
			return nil
		}
		if alloc.Status == shared.AllocationStatusDisbursed {
			return ErrAllocationDisbursed
		}

		t, err := repo.LockThresholdForUpdate(ctx, alloc.Month, alloc.Year)
		if err != nil {
			return fmt.Errorf("failed to lock threshold %d/%d: %w", alloc.Month, alloc.Year, err)
		}
		if err := t.Release(alloc.Amount); err != nil {
			return err
		}
		if err := repo.UpdateThreshold(ctx, t); err != nil {
			return fmt.Errorf("failed to update threshold: %w", err)
		}

		alloc.Status = shared.AllocationStatusReleased
		alloc.UpdatedAt = a.now()
		return repo.UpdateAllocation(ctx, alloc)
	})
	if err != nil {
		return err
	}

	a.logger.Info("Threshold capacity released", "application_id", applicationID)
	return nil
}

// MonthlyRollover promotes queued allocations into the current month,
// oldest approval first. A queued allocation whose amount fits the current
// month moves its reservation there and becomes ReadyForDisbursement; the
// rest stay parked where they are.
func (a *Allocator) MonthlyRollover(ctx context.Context) (int, error) {
	now := a.now()
	month, year := int(now.Month()), now.Year()
	promoted := 0

	err := a.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		repo := a.thresholds.WithTx(tx)

		current, err := repo.LockThresholdForUpdate(ctx, month, year)
		if err != nil {
			return fmt.Errorf("failed to lock current threshold %d/%d: %w", month, year, err)
		}

		queued, err := repo.ListQueued(ctx)
		if err != nil {
			return fmt.Errorf("failed to list queued allocations: %w", err)
		}

		for _, alloc := range queued {
			if !current.Fits(alloc.Amount) {
				continue
			}

			if alloc.Month != month || alloc.Year != year {
				parked, err := repo.LockThresholdForUpdate(ctx, alloc.Month, alloc.Year)
				if err != nil {
					return fmt.Errorf("failed to lock parked threshold %d/%d: %w", alloc.Month, alloc.Year, err)
				}
				if err := parked.Release(alloc.Amount); err != nil {
					return err
				}
				if err := repo.UpdateThreshold(ctx, parked); err != nil {
					return fmt.Errorf("failed to update parked threshold: %w", err)
				}
				if err := current.Reserve(alloc.Amount); err != nil {
					return err
				}
			}

			alloc.Month = month
			alloc.Year = year
			alloc.Status = shared.AllocationStatusReadyForDisbursement
			alloc.UpdatedAt = now
			if err := repo.UpdateAllocation(ctx, alloc); err != nil {
				return fmt.Errorf("failed to promote allocation %s: %w", alloc.ID, err)
			}
			promoted++
		}

		if promoted > 0 {
			if err := repo.UpdateThreshold(ctx, current); err != nil {
				return fmt.Errorf("failed to update current threshold: %w", err)
			}
			a.publishUtilizationAlert(ctx, current)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	a.logger.Info("Monthly rollover completed", "month", month, "year", year, "promoted", promoted)
	return promoted, nil
}

// publishUtilizationAlert fires a WARNING at 75 percent utilization and a
// CRITICAL at 90. Alert delivery failures are logged, never propagated.
func (a *Allocator) publishUtilizationAlert(ctx context.Context, t *threshold.MonthlyThreshold) {
	if a.alerts == nil {
		return
	}

	utilization := t.UtilizationPct()
	level := shared.CapacityAlertNone
	switch {
	case utilization.GreaterThanOrEqual(criticalUtilization):
		level = shared.CapacityAlertCritical
	case utilization.GreaterThanOrEqual(warningUtilization):
		level = shared.CapacityAlertWarning
	default:
		return
	}

	alert := &shared.CapacityAlert{
		Month:       t.Month,
		Year:        t.Year,
		Level:       level,
		Utilization: utilization,
		CreatedAt:   a.now(),
	}
	if err := a.alerts.PublishCapacityAlert(ctx, alert); err != nil {
		a.logger.Error("Failed to publish capacity alert", "month", t.Month, "year", t.Year, "error", err)
	}
}

func addMonths(month, year, offset int) (int, int) {
	m := month - 1 + offset
	return m%12 + 1, year + m/12
}
