package capacity

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/lendhub/loan-engine/internal/domain/shared"
	"github.com/lendhub/loan-engine/internal/domain/threshold"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTxRunner struct{}

func (fakeTxRunner) ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	return fn(nil)
}

// memThresholdRepo is an in-memory threshold store keyed by (month, year)
type memThresholdRepo struct {
	thresholds  map[[2]int]*threshold.MonthlyThreshold
	allocations []*threshold.Allocation
}

func newMemThresholdRepo() *memThresholdRepo {
	return &memThresholdRepo{thresholds: make(map[[2]int]*threshold.MonthlyThreshold)}
}

func (r *memThresholdRepo) addThreshold(t *testing.T, month, year int, maxAmount int64) *threshold.MonthlyThreshold {
	t.Helper()
	th, err := threshold.NewMonthlyThreshold(month, year, decimal.NewFromInt(maxAmount))
	require.NoError(t, err)
	r.thresholds[[2]int{month, year}] = th
	return th
}

func (r *memThresholdRepo) CreateThreshold(ctx context.Context, t *threshold.MonthlyThreshold) error {
	r.thresholds[[2]int{t.Month, t.Year}] = t
	return nil
}

func (r *memThresholdRepo) GetThreshold(ctx context.Context, month, year int) (*threshold.MonthlyThreshold, error) {
	th, ok := r.thresholds[[2]int{month, year}]
	if !ok {
		return nil, threshold.ErrThresholdNotFound{Month: month, Year: year}
	}
	return th, nil
}

func (r *memThresholdRepo) LockThresholdForUpdate(ctx context.Context, month, year int) (*threshold.MonthlyThreshold, error) {
	return r.GetThreshold(ctx, month, year)
}

func (r *memThresholdRepo) UpdateThreshold(ctx context.Context, t *threshold.MonthlyThreshold) error {
	r.thresholds[[2]int{t.Month, t.Year}] = t
	return nil
}

func (r *memThresholdRepo) CreateAllocation(ctx context.Context, a *threshold.Allocation) error {
	r.allocations = append(r.allocations, a)
	return nil
}

func (r *memThresholdRepo) GetAllocationByApplication(ctx context.Context, applicationID uuid.UUID) (*threshold.Allocation, error) {
	for _, a := range r.allocations {
		if a.ApplicationID == applicationID {
			return a, nil
		}
	}
	return nil, threshold.ErrAllocationNotFound{ApplicationID: applicationID}
}

func (r *memThresholdRepo) UpdateAllocation(ctx context.Context, a *threshold.Allocation) error {
	return nil
}

func (r *memThresholdRepo) ListQueued(ctx context.Context) ([]*threshold.Allocation, error) {
	var queued []*threshold.Allocation
	for _, a := range r.allocations {
		if a.Status == shared.AllocationStatusQueued {
			queued = append(queued, a)
		}
	}
	// approval order, oldest first
	for i := 1; i < len(queued); i++ {
		for j := i; j > 0 && queued[j].ApprovedAt.Before(queued[j-1].ApprovedAt); j-- {
			queued[j], queued[j-1] = queued[j-1], queued[j]
		}
	}
	return queued, nil
}

func (r *memThresholdRepo) WithTx(tx pgx.Tx) threshold.Repository {
	return r
}

type capturingAlerts struct {
	alerts []*shared.CapacityAlert
}

func (c *capturingAlerts) PublishCapacityAlert(ctx context.Context, alert *shared.CapacityAlert) error {
	c.alerts = append(c.alerts, alert)
	return nil
}

var testNow = time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC)

func newTestAllocator(repo *memThresholdRepo, alerts AlertPublisher) *Allocator {
	return NewAllocator(fakeTxRunner{}, repo, alerts, func() time.Time { return testNow }, slog.Default())
}

func TestAllocator_Check(t *testing.T) {
	ctx := context.Background()
	repo := newMemThresholdRepo()
	march := repo.addThreshold(t, 3, 2026, 1_000_000)
	repo.addThreshold(t, 4, 2026, 1_000_000)
	require.NoError(t, march.Reserve(decimal.NewFromInt(950_000)))

	alloc := newTestAllocator(repo, nil)

	t.Run("FitsCurrentMonth", func(t *testing.T) {
		res, err := alloc.Check(ctx, decimal.NewFromInt(50_000), 3, 2026)
		require.NoError(t, err)
		assert.True(t, res.Fits)
		assert.Equal(t, 3, res.Month)
		assert.False(t, res.Deferred)
	})

	t.Run("DeferredToNextMonth", func(t *testing.T) {
		res, err := alloc.Check(ctx, decimal.NewFromInt(200_000), 3, 2026)
		require.NoError(t, err)
		assert.True(t, res.Fits)
		assert.Equal(t, 4, res.Month)
		assert.True(t, res.Deferred)
	})

	t.Run("NothingWithinHorizon", func(t *testing.T) {
		res, err := alloc.Check(ctx, decimal.NewFromInt(5_000_000), 3, 2026)
		require.NoError(t, err)
		assert.False(t, res.Fits)
	})

	t.Run("InvalidAmount", func(t *testing.T) {
		_, err := alloc.Check(ctx, decimal.Zero, 3, 2026)
		assert.ErrorIs(t, err, threshold.ErrInvalidAmount)
	})
}

func TestAllocator_Allocate(t *testing.T) {
	ctx := context.Background()

	t.Run("CurrentMonthReadyForDisbursement", func(t *testing.T) {
		repo := newMemThresholdRepo()
		repo.addThreshold(t, 3, 2026, 1_000_000)
		alloc := newTestAllocator(repo, nil)

		a, err := alloc.Allocate(ctx, uuid.New(), decimal.NewFromInt(400_000), testNow)
		require.NoError(t, err)
		assert.Equal(t, shared.AllocationStatusReadyForDisbursement, a.Status)
		assert.Equal(t, 3, a.Month)

		th, _ := repo.GetThreshold(ctx, 3, 2026)
		assert.True(t, th.RemainingAmount.Equal(decimal.NewFromInt(600_000)))
	})

	t.Run("QueuedToFutureMonth", func(t *testing.T) {
		repo := newMemThresholdRepo()
		march := repo.addThreshold(t, 3, 2026, 1_000_000)
		repo.addThreshold(t, 4, 2026, 1_000_000)
		require.NoError(t, march.Reserve(decimal.NewFromInt(900_000)))
		alloc := newTestAllocator(repo, nil)

		a, err := alloc.Allocate(ctx, uuid.New(), decimal.NewFromInt(300_000), testNow)
		require.NoError(t, err)
		assert.Equal(t, shared.AllocationStatusQueued, a.Status)
		assert.Equal(t, 4, a.Month)

		april, _ := repo.GetThreshold(ctx, 4, 2026)
		assert.True(t, april.RemainingAmount.Equal(decimal.NewFromInt(700_000)))
		// current month untouched
		assert.True(t, march.RemainingAmount.Equal(decimal.NewFromInt(100_000)))
	})

	t.Run("ThresholdExceeded", func(t *testing.T) {
		repo := newMemThresholdRepo()
		repo.addThreshold(t, 3, 2026, 100_000)
		alloc := newTestAllocator(repo, nil)

		_, err := alloc.Allocate(ctx, uuid.New(), decimal.NewFromInt(300_000), testNow)
		assert.ErrorIs(t, err, ErrThresholdExceeded)
	})

	t.Run("YearBoundarySearch", func(t *testing.T) {
		repo := newMemThresholdRepo()
		repo.addThreshold(t, 1, 2027, 1_000_000)
		alloc := newTestAllocator(repo, nil)

		a, err := alloc.Allocate(ctx, uuid.New(), decimal.NewFromInt(250_000), testNow)
		require.NoError(t, err)
		assert.Equal(t, 1, a.Month)
		assert.Equal(t, 2027, a.Year)
		assert.Equal(t, shared.AllocationStatusQueued, a.Status)
	})
}

func TestAllocator_Release(t *testing.T) {
	ctx := context.Background()
	repo := newMemThresholdRepo()
	repo.addThreshold(t, 3, 2026, 1_000_000)
	alloc := newTestAllocator(repo, nil)

	applicationID := uuid.New()
	_, err := alloc.Allocate(ctx, applicationID, decimal.NewFromInt(400_000), testNow)
	require.NoError(t, err)

	require.NoError(t, alloc.Release(ctx, applicationID))

	th, _ := repo.GetThreshold(ctx, 3, 2026)
	assert.True(t, th.RemainingAmount.Equal(decimal.NewFromInt(1_000_000)))
	assert.True(t, th.TotalDisbursed.IsZero())

	// releasing twice is a no-op
	require.NoError(t, alloc.Release(ctx, applicationID))
	assert.True(t, th.TotalDisbursed.IsZero())
}

func TestAllocator_ReleaseDisbursed(t *testing.T) {
	ctx := context.Background()
	repo := newMemThresholdRepo()
	th := repo.addThreshold(t, 3, 2026, 1_000_000)
	alloc := newTestAllocator(repo, nil)

	applicationID := uuid.New()
	_, err := alloc.Allocate(ctx, applicationID, decimal.NewFromInt(400_000), testNow)
	require.NoError(t, err)
	repo.allocations[0].Status = shared.AllocationStatusDisbursed

	err = alloc.Release(ctx, applicationID)
	assert.ErrorIs(t, err, ErrAllocationDisbursed)
	assert.True(t, th.TotalDisbursed.Equal(decimal.NewFromInt(400_000)))
}

func TestAllocator_MonthlyRollover(t *testing.T) {
	ctx := context.Background()
	repo := newMemThresholdRepo()
	march := repo.addThreshold(t, 3, 2026, 500_000)
	april := repo.addThreshold(t, 4, 2026, 1_000_000)

	// two queued allocations parked in April, approved out of insertion order
	older := &threshold.Allocation{
		ID: uuid.New(), ApplicationID: uuid.New(),
		Amount: decimal.NewFromInt(300_000), Month: 4, Year: 2026,
		Status: shared.AllocationStatusQueued, ApprovedAt: testNow.AddDate(0, 0, -10),
	}
	newer := &threshold.Allocation{
		ID: uuid.New(), ApplicationID: uuid.New(),
		Amount: decimal.NewFromInt(300_000), Month: 4, Year: 2026,
		Status: shared.AllocationStatusQueued, ApprovedAt: testNow.AddDate(0, 0, -2),
	}
	repo.allocations = append(repo.allocations, newer, older)
	require.NoError(t, april.Reserve(decimal.NewFromInt(600_000)))

	alloc := newTestAllocator(repo, nil)

	promoted, err := alloc.MonthlyRollover(ctx)
	require.NoError(t, err)

	// only the older one fits the current month's 500k cap
	assert.Equal(t, 1, promoted)
	assert.Equal(t, shared.AllocationStatusReadyForDisbursement, older.Status)
	assert.Equal(t, 3, older.Month)
	assert.Equal(t, shared.AllocationStatusQueued, newer.Status)
	assert.Equal(t, 4, newer.Month)

	assert.True(t, march.RemainingAmount.Equal(decimal.NewFromInt(200_000)))
	assert.True(t, april.TotalDisbursed.Equal(decimal.NewFromInt(300_000)))
}

func TestAllocator_UtilizationAlerts(t *testing.T) {
	ctx := context.Background()

	testCases := []struct {
		name      string
		amount    int64
		wantLevel shared.CapacityAlertLevel
		wantAlert bool
	}{
		{"BelowWarning", 500_000, shared.CapacityAlertNone, false},
		{"Warning", 750_000, shared.CapacityAlertWarning, true},
		{"Critical", 900_000, shared.CapacityAlertCritical, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			repo := newMemThresholdRepo()
			repo.addThreshold(t, 3, 2026, 1_000_000)
			alerts := &capturingAlerts{}
			alloc := newTestAllocator(repo, alerts)

			_, err := alloc.Allocate(ctx, uuid.New(), decimal.NewFromInt(tc.amount), testNow)
			require.NoError(t, err)

			if !tc.wantAlert {
				assert.Empty(t, alerts.alerts)
				return
			}
			require.Len(t, alerts.alerts, 1)
			assert.Equal(t, tc.wantLevel, alerts.alerts[0].Level)
			assert.Equal(t, 3, alerts.alerts[0].Month)
		})
	}
}
