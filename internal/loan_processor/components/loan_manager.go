package components

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/lendhub/loan-engine/internal/domain/loan"
	"github.com/lendhub/loan-engine/internal/domain/shared"
	"github.com/lendhub/loan-engine/internal/lending/repayment"
	"github.com/lendhub/loan-engine/internal/loan_processor/service"
)

// LoanManagerImpl implements the LoanManager interface
type LoanManagerImpl struct {
	loanRepo  loan.Repository
	processor *repayment.Processor
	logger    *slog.Logger
}

// NewLoanManager creates a new LoanManagerImpl
func NewLoanManager(loanRepo loan.Repository, processor *repayment.Processor, logger *slog.Logger) service.LoanManager {
	return &LoanManagerImpl{
		loanRepo:  loanRepo,
		processor: processor,
		logger:    logger,
	}
}

// LockAndApplyRepayment locks the loan and its schedule, runs the repayment
// waterfall against them, and persists the resulting loan position.
func (m *LoanManagerImpl) LockAndApplyRepayment(ctx context.Context, tx pgx.Tx, request *shared.RepaymentRequest) (*service.RepaymentOutcome, error) {
	logger := m.logger
	if request.CorrelationID != "" {
		logger = m.logger.With("correlation_id", request.CorrelationID)
	}

	// Use the repository with the transaction
	loanRepoTx := m.loanRepo.WithTx(tx)

	// Lock the loan for update
	lockedLoan, err := loanRepoTx.LockForUpdate(ctx, request.LoanID)
	if err != nil {
		if errors.Is(err, loan.ErrLoanNotFound{LoanID: request.LoanID}) {
			logger.Warn("Loan not found for lock", "repayment_id", request.RepaymentID.String(), "loan_id", request.LoanID.String(), "original_error", err)
			return nil, err
		}
		logger.Error("Failed to lock loan", "repayment_id", request.RepaymentID.String(), "loan_id", request.LoanID.String(), "error", err)
		return nil, fmt.Errorf("failed to lock loan %s: %w", request.LoanID.String(), err)
	}
	logger.Info("Loan locked", "repayment_id", request.RepaymentID.String(), "loan_id", lockedLoan.ID.String(), "outstanding", lockedLoan.Outstanding, "ver", lockedLoan.Version)

	// Load the schedule under the same lock
	items, err := loanRepoTx.LockScheduleItems(ctx, request.LoanID)
	if err != nil {
		logger.Error("Failed to lock schedule items", "repayment_id", request.RepaymentID.String(), "loan_id", request.LoanID.String(), "error", err)
		return nil, fmt.Errorf("failed to lock schedule for loan %s: %w", request.LoanID.String(), err)
	}

	// Run the waterfall
	result, err := m.processor.Apply(lockedLoan, items, request.Amount, request.Timestamp)
	if err != nil {
		logger.Warn("Repayment rejected by waterfall", "repayment_id", request.RepaymentID.String(), "loan_id", request.LoanID.String(), "error", err)
		return nil, err
	}
	logger.Info("Repayment applied in memory",
		"repayment_id", request.RepaymentID.String(),
		"remaining_balance", result.RemainingBalance,
		"closed", result.Closed,
		"new_ver", lockedLoan.Version,
	)

	// Persist loan changes
	if err = loanRepoTx.Update(ctx, lockedLoan); err != nil {
		if errors.Is(err, loan.ErrConcurrentModification{LoanID: lockedLoan.ID}) {
			logger.Warn("Concurrent modification on loan update", "repayment_id", request.RepaymentID.String(), "loan_id", lockedLoan.ID.String())
		} else {
			logger.Error("Failed to update loan in DB", "repayment_id", request.RepaymentID.String(), "loan_id", lockedLoan.ID.String(), "error", err)
		}
		return nil, err
	}

	// Persist every installment the waterfall touched
	for _, item := range items {
		if err = loanRepoTx.UpdateScheduleItem(ctx, item); err != nil {
			logger.Error("Failed to update schedule item",
				"repayment_id", request.RepaymentID.String(),
				"installment", item.InstallmentNo,
				"error", err,
			)
			return nil, err
		}
	}
	logger.Info("Loan updated in DB", "repayment_id", request.RepaymentID.String(), "loan_id", lockedLoan.ID.String())

	return &service.RepaymentOutcome{Loan: lockedLoan, Result: result}, nil
}
