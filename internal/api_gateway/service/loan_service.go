package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/lendhub/loan-engine/internal/domain/loan"
	regdomain "github.com/lendhub/loan-engine/internal/domain/register"
	"github.com/lendhub/loan-engine/internal/domain/shared"
	"github.com/lendhub/loan-engine/internal/domain/threshold"
	"github.com/lendhub/loan-engine/internal/lending/amortization"
	"github.com/shopspring/decimal"
)

var (
	// ErrAllocationNotReady indicates the application's threshold allocation
	// is queued for a future month or was already released.
	ErrAllocationNotReady = errors.New("threshold allocation is not ready for disbursement")

	// ErrAllocationAmountMismatch indicates the requested principal differs
	// from the reserved allocation amount.
	ErrAllocationAmountMismatch = errors.New("principal does not match the reserved allocation amount")
)

// TxRunner abstracts the transactional database handle
type TxRunner interface {
	ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) error
}

// LoanServiceImpl implements the LoanService interface
type LoanServiceImpl struct {
	db            TxRunner
	loanRepo      loan.Repository
	thresholdRepo threshold.Repository
	registerRepo  regdomain.Repository
	calculator    *amortization.Calculator
	now           func() time.Time
	logger        *slog.Logger
}

// NewLoanService creates a new loan service
func NewLoanService(
	logger *slog.Logger,
	db TxRunner,
	loanRepo loan.Repository,
	thresholdRepo threshold.Repository,
	registerRepo regdomain.Repository,
	calculator *amortization.Calculator,
	now func() time.Time,
) LoanService {
	if now == nil {
		now = time.Now
	}
	return &LoanServiceImpl{
		db:            db,
		loanRepo:      loanRepo,
		thresholdRepo: thresholdRepo,
		registerRepo:  registerRepo,
		calculator:    calculator,
		now:           now,
		logger:        logger,
	}
}

// PreviewSchedule computes the EMI and full amortization schedule without
// persisting anything
func (s *LoanServiceImpl) PreviewSchedule(principal, annualRatePct decimal.Decimal, termMonths int, startDate time.Time) (decimal.Decimal, []amortization.ScheduleRow, error) {
	emi, err := s.calculator.EMI(principal, annualRatePct, termMonths)
	if err != nil {
		return decimal.Zero, nil, err
	}

	rows, err := s.calculator.Schedule(principal, annualRatePct, termMonths, startDate)
	if err != nil {
		return decimal.Zero, nil, err
	}

	return emi, rows, nil
}

// QuoteEarlyRepayment prices a lump-sum prepayment against a live loan.
// The quote is computed from the remaining principal and open installments;
// nothing is mutated.
func (s *LoanServiceImpl) QuoteEarlyRepayment(ctx context.Context, loanID uuid.UUID, amount decimal.Decimal) (*amortization.EarlyRepaymentResult, error) {
	l, err := s.loanRepo.GetByID(ctx, loanID)
	if err != nil {
		return nil, err
	}
	if !l.Status.Payable() {
		return nil, shared.ErrInvalidLoanState
	}

	items, err := s.loanRepo.GetScheduleItems(ctx, loanID)
	if err != nil {
		return nil, err
	}

	remainingTerm := 0
	for _, item := range items {
		if item.Status != shared.ScheduleItemStatusPaid {
			remainingTerm++
		}
	}
	if remainingTerm == 0 {
		return nil, shared.ErrInvalidLoanState
	}

	return s.calculator.EarlyRepayment(l.RemainingPrincipal(), l.AnnualRatePct, remainingTerm, amount)
}

// Disburse creates the loan aggregate in one transaction: it consumes
// threshold capacity for the disbursement month, persists the loan and its
// amortization schedule, and assigns the yearly register serial.
//
// An application that already holds a ReadyForDisbursement allocation reuses
// it; otherwise capacity is reserved against the current month on the spot.
func (s *LoanServiceImpl) Disburse(ctx context.Context, params DisburseParams) (*loan.Loan, error) {
	disbursedAt := params.DisbursedAt
	if disbursedAt.IsZero() {
		disbursedAt = s.now()
	}

	emi, err := s.calculator.EMI(params.Principal, params.AnnualRatePct, params.TermMonths)
	if err != nil {
		return nil, err
	}
	rows, err := s.calculator.Schedule(params.Principal, params.AnnualRatePct, params.TermMonths, disbursedAt)
	if err != nil {
		return nil, err
	}

	last := rows[len(rows)-1]
	totalRepayable := last.CumulativePrincipal.Add(last.CumulativeInterest)
	firstDueDate := rows[0].DueDate

	var created *loan.Loan

	err = s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		if err := s.consumeCapacity(ctx, tx, params, disbursedAt); err != nil {
			return err
		}

		l, err := loan.NewLoan(params.MemberID, params.ApplicationID, params.Principal, params.AnnualRatePct, params.TermMonths, emi, totalRepayable, disbursedAt, firstDueDate)
		if err != nil {
			return err
		}

		registers := s.registerRepo.WithTx(tx)
		year := disbursedAt.Year()
		seq, err := registers.NextSequence(ctx, year)
		if err != nil {
			return fmt.Errorf("failed to reserve register sequence for %d: %w", year, err)
		}
		l.SerialNumber = regdomain.FormatSerial(year, seq)

		loans := s.loanRepo.WithTx(tx)
		if err := loans.Create(ctx, l); err != nil {
			return fmt.Errorf("failed to create loan: %w", err)
		}

		items := make([]*loan.ScheduleItem, 0, len(rows))
		itemNow := s.now()
		for _, row := range rows {
			items = append(items, &loan.ScheduleItem{
				ID:              uuid.New(),
				LoanID:          l.ID,
				InstallmentNo:   row.Installment,
				DueDate:         row.DueDate,
				PrincipalAmount: row.PrincipalAmount,
				InterestAmount:  row.InterestAmount,
				PaidAmount:      decimal.Zero,
				Status:          shared.ScheduleItemStatusPending,
				CreatedAt:       itemNow,
				UpdatedAt:       itemNow,
			})
		}
		if err := loans.CreateScheduleItems(ctx, items); err != nil {
			return fmt.Errorf("failed to create schedule items: %w", err)
		}

		entry := &regdomain.Entry{
			ID:           uuid.New(),
			LoanID:       l.ID,
			Year:         year,
			Sequence:     seq,
			SerialNumber: l.SerialNumber,
			RegisteredAt: itemNow,
		}
		if err := registers.Create(ctx, entry); err != nil {
			return fmt.Errorf("failed to create register entry: %w", err)
		}

		created = l
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Loan disbursed",
		"loan_id", created.ID,
		"member_id", created.MemberID,
		"principal", created.Principal,
		"serial_number", created.SerialNumber,
	)

	return created, nil
}

// consumeCapacity consumes threshold capacity for the disbursement. An
// existing ReadyForDisbursement allocation already holds the reservation;
// otherwise the current month's threshold is charged directly.
func (s *LoanServiceImpl) consumeCapacity(ctx context.Context, tx pgx.Tx, params DisburseParams, disbursedAt time.Time) error {
	thresholds := s.thresholdRepo.WithTx(tx)

	alloc, err := thresholds.GetAllocationByApplication(ctx, params.ApplicationID)
	if err == nil {
		if alloc.Status != shared.AllocationStatusReadyForDisbursement {
			return ErrAllocationNotReady
		}
		if !alloc.Amount.Equal(params.Principal) {
			return ErrAllocationAmountMismatch
		}
		// Marking the allocation disbursed retires it; a second disbursement
		// attempt for the same application fails the status check above.
		alloc.Status = shared.AllocationStatusDisbursed
		alloc.UpdatedAt = s.now()
		return thresholds.UpdateAllocation(ctx, alloc)
	}

	var notFound threshold.ErrAllocationNotFound
	if !errors.As(err, &notFound) {
		return fmt.Errorf("failed to load allocation: %w", err)
	}

	month, year := int(disbursedAt.Month()), disbursedAt.Year()
	t, err := thresholds.LockThresholdForUpdate(ctx, month, year)
	if err != nil {
		return fmt.Errorf("failed to lock threshold %d/%d: %w", month, year, err)
	}
	if err := t.Reserve(params.Principal); err != nil {
		return err
	}
	if err := thresholds.UpdateThreshold(ctx, t); err != nil {
		return fmt.Errorf("failed to update threshold %d/%d: %w", month, year, err)
	}

	now := s.now()
	return thresholds.CreateAllocation(ctx, &threshold.Allocation{
		ID:            uuid.New(),
		ApplicationID: params.ApplicationID,
		Amount:        params.Principal,
		Month:         month,
		Year:          year,
		Status:        shared.AllocationStatusDisbursed,
		ApprovedAt:    disbursedAt,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
}

// GetLoanByID retrieves a loan by its ID, returns ErrLoanNotFound if not found
func (s *LoanServiceImpl) GetLoanByID(ctx context.Context, id uuid.UUID) (*loan.Loan, error) {
	return s.loanRepo.GetByID(ctx, id)
}

// GetSchedule retrieves the installment schedule for a loan
func (s *LoanServiceImpl) GetSchedule(ctx context.Context, loanID uuid.UUID) ([]*loan.ScheduleItem, error) {
	if _, err := s.loanRepo.GetByID(ctx, loanID); err != nil {
		return nil, err
	}
	return s.loanRepo.GetScheduleItems(ctx, loanID)
}
