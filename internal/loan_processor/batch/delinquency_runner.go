package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	history "github.com/lendhub/loan-engine/internal/domain/delinquency"
	"github.com/lendhub/loan-engine/internal/domain/loan"
	"github.com/lendhub/loan-engine/internal/domain/shared"
	"github.com/lendhub/loan-engine/internal/lending/delinquency"
	"github.com/panjf2000/ants/v2"
)

// TxRunner runs a function inside a database transaction
type TxRunner interface {
	ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) error
}

// Notifier publishes delinquency notifications to members
type Notifier interface {
	PublishNotification(ctx context.Context, n *shared.Notification) error
}

// RunSummary aggregates one sweep over the overdue book
type RunSummary struct {
	Checked               int
	Penalized             int
	ClassificationChanges int
	NotificationsSent     int
	Skipped               int
	Failed                int
}

// DelinquencyRunner sweeps overdue loans once per day: it applies penalties,
// reclassifies, appends history records, and queues member notifications.
// Loans are fanned out over a worker pool; each loan is processed in its own
// transaction under the same row lock repayments take, so a concurrent
// repayment and the sweep never interleave on one loan.
type DelinquencyRunner struct {
	db          TxRunner
	loanRepo    loan.Repository
	historyRepo history.Repository
	engine      *delinquency.Engine
	notifier    Notifier
	pool        *ants.Pool
	batchSize   int
	logger      *slog.Logger
}

type RunnerConfig struct {
	PoolSize  int
	BatchSize int
}

func NewDelinquencyRunner(
	db TxRunner,
	loanRepo loan.Repository,
	historyRepo history.Repository,
	engine *delinquency.Engine,
	notifier Notifier,
	cfg RunnerConfig,
	logger *slog.Logger,
) (*DelinquencyRunner, error) {
	pool, err := ants.NewPool(cfg.PoolSize)
	if err != nil {
		return nil, err
	}

	return &DelinquencyRunner{
		db:          db,
		loanRepo:    loanRepo,
		historyRepo: historyRepo,
		engine:      engine,
		notifier:    notifier,
		pool:        pool,
		batchSize:   cfg.BatchSize,
		logger:      logger,
	}, nil
}

// Run sweeps all overdue loans for the given check date
func (r *DelinquencyRunner) Run(ctx context.Context, now time.Time) (*RunSummary, error) {
	checkDate := truncateToDay(now)

	overdue, err := r.loanRepo.ListOverdue(ctx, r.batchSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list overdue loans: %w", err)
	}

	r.logger.Info("Delinquency sweep starting", "check_date", checkDate.Format("2006-01-02"), "overdue_loans", len(overdue))

	summary := &RunSummary{}
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, l := range overdue {
		loanID := l.ID
		wg.Add(1)
		submitErr := r.pool.Submit(func() {
			defer wg.Done()

			record, err := r.checkLoan(ctx, loanID, now, checkDate)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				r.logger.Error("Delinquency check failed", "loan_id", loanID.String(), "error", err)
				summary.Failed++
				return
			}
			if record == nil {
				summary.Skipped++
				return
			}
			summary.Checked++
			if record.PenaltyApplied.IsPositive() {
				summary.Penalized++
			}
			if record.ClassificationChanged {
				summary.ClassificationChanges++
			}
			if record.NotificationType != shared.NotificationNone {
				summary.NotificationsSent++
			}
		})
		if submitErr != nil {
			wg.Done()
			r.logger.Error("Failed to submit loan to delinquency pool", "loan_id", loanID.String(), "error", submitErr)
			mu.Lock()
			summary.Failed++
			mu.Unlock()
		}
	}

	wg.Wait()

	r.logger.Info("Delinquency sweep finished",
		"checked", summary.Checked,
		"penalized", summary.Penalized,
		"reclassified", summary.ClassificationChanges,
		"notifications", summary.NotificationsSent,
		"skipped", summary.Skipped,
		"failed", summary.Failed,
	)
	return summary, nil
}

// errAlreadyChecked aborts a check transaction when another sweep already
// recorded this loan for the same check date.
var errAlreadyChecked = errors.New("loan already checked today")

// checkLoan assesses one loan inside its own transaction. A nil record with
// nil error means the loan needed no check today.
func (r *DelinquencyRunner) checkLoan(ctx context.Context, loanID uuid.UUID, now, checkDate time.Time) (*history.Record, error) {
	var record *history.Record
	var memberID uuid.UUID
	err := r.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		repo := r.loanRepo.WithTx(tx)

		l, err := repo.LockForUpdate(ctx, loanID)
		if err != nil {
			return err
		}
		if !l.Status.Payable() {
			// Closed between listing and locking
			return nil
		}

		// The idempotency check runs under the row lock: a concurrent
		// sweep serializes on LockForUpdate and sees the record the
		// winner inserted, so the penalty cannot be applied twice.
		exists, err := r.historyRepo.ExistsForDate(ctx, loanID, checkDate)
		if err != nil {
			return fmt.Errorf("history check for loan %s failed: %w", loanID.String(), err)
		}
		if exists {
			return errAlreadyChecked
		}

		items, err := repo.LockScheduleItems(ctx, loanID)
		if err != nil {
			return err
		}

		assessment := r.engine.Assess(l, items, now)
		if assessment.DaysOverdue == 0 {
			// A repayment landed between listing and locking
			return nil
		}

		record = r.engine.Apply(l, assessment, checkDate)
		memberID = l.MemberID

		// The history insert happens before commit, still under the row
		// lock; the unique (loan_id, check_date) index absorbs any race
		// left with sweeps that do not take the lock.
		if err := r.historyRepo.Create(ctx, record); err != nil {
			var dup history.ErrDuplicateRecord
			if errors.As(err, &dup) {
				return errAlreadyChecked
			}
			return fmt.Errorf("failed to append delinquency record for loan %s: %w", loanID.String(), err)
		}

		return repo.Update(ctx, l)
	})
	if errors.Is(err, errAlreadyChecked) {
		r.logger.Debug("Loan already checked today", "loan_id", loanID.String())
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, nil
	}

	r.notify(ctx, memberID, record)
	return record, nil
}

// notify publishes the member notification for a delinquency record.
// Publish failures are logged, not returned: the check itself is committed.
func (r *DelinquencyRunner) notify(ctx context.Context, memberID uuid.UUID, record *history.Record) {
	if record.NotificationType == shared.NotificationNone || r.notifier == nil {
		return
	}

	n := &shared.Notification{
		LoanID:      record.LoanID,
		MemberID:    memberID,
		Type:        record.NotificationType,
		DaysOverdue: record.DaysOverdue,
		Message: fmt.Sprintf("Loan %s is %d day(s) overdue with %s outstanding on overdue installments",
			record.LoanID.String(), record.DaysOverdue, record.OverdueAmount.StringFixed(2)),
		CreatedAt: time.Now(),
	}

	if err := r.notifier.PublishNotification(ctx, n); err != nil {
		r.logger.Error("Failed to publish delinquency notification",
			"loan_id", record.LoanID.String(),
			"type", string(record.NotificationType),
			"error", err,
		)
	}
}

// Shutdown releases the worker pool
func (r *DelinquencyRunner) Shutdown() {
	r.logger.Info("Shutting down delinquency runner", "running_workers", r.pool.Running())
	r.pool.Release()
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
