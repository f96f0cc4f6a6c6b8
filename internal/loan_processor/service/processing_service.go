package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/lendhub/loan-engine/internal/domain/loan"
	"github.com/lendhub/loan-engine/internal/domain/shared"
	"github.com/lendhub/loan-engine/internal/platform/persistence"
)

type ProcessingServiceImpl struct {
	pgDB            *persistence.PostgresDB
	validator       RepaymentValidator
	loanManager     LoanManager
	outboxManager   OutboxManager
	failureRecorder FailureRecorder
	logger          *slog.Logger
}

func NewProcessingService(
	pgDB *persistence.PostgresDB,
	validator RepaymentValidator,
	loanManager LoanManager,
	outboxManager OutboxManager,
	failureRecorder FailureRecorder,
	logger *slog.Logger,
) ProcessingService {
	return &ProcessingServiceImpl{
		pgDB:            pgDB,
		validator:       validator,
		loanManager:     loanManager,
		outboxManager:   outboxManager,
		failureRecorder: failureRecorder,
		logger:          logger,
	}
}

// ProcessRepayment handles the core logic for processing a repayment.
// Business failures are recorded as failed receipts and acknowledged;
// infrastructure errors propagate so the consumer retries the message.
func (s *ProcessingServiceImpl) ProcessRepayment(ctx context.Context, request *shared.RepaymentRequest) error {
	logger := s.logger
	if request.CorrelationID != "" {
		logger = s.logger.With("correlation_id", request.CorrelationID)
	}

	logger.Info("Processing repayment", "repayment_id", request.RepaymentID.String(), "loan_id", request.LoanID.String())

	// 1. Validate the repayment
	if err := s.validator.Validate(ctx, request); err != nil {
		logger.Error("Repayment validation failed", "repayment_id", request.RepaymentID.String(), "error", err)

		if recordErr := s.failureRecorder.RecordFailure(ctx, request, string(shared.FailureReasonInvalidAmount)); recordErr != nil {
			logger.Error("Failed to record repayment failure", "repayment_id", request.RepaymentID.String(), "error", recordErr)
		}

		return nil // Return nil to Kafka consumer to acknowledge the message
	}

	// 2. Check idempotency
	skip, err := s.validator.CheckIdempotency(ctx, request)
	if err != nil {
		return err // Let Kafka retry
	}
	if skip {
		return nil // Already processed, return success
	}

	// 3. Begin database transaction
	var tx pgx.Tx
	tx, err = s.pgDB.Pool().Begin(ctx)
	if err != nil {
		logger.Error("Failed to begin database transaction", "repayment_id", request.RepaymentID.String(), "error", err)
		return fmt.Errorf("failed to begin DB transaction for %s: %w", request.RepaymentID.String(), err)
	}
	defer func() {
		if p := recover(); p != nil {
			logger.Error("Panic recovered, rolling back transaction", "panic", p, "repayment_id", request.RepaymentID.String())
			_ = tx.Rollback(ctx)
			panic(p) // Re-panic
		} else if err != nil {
			logger.Error("Error occurred, rolling back transaction", "error", err, "repayment_id", request.RepaymentID.String())
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				logger.Error("Failed to rollback transaction after error", "rollback_error", rbErr, "original_error", err, "repayment_id", request.RepaymentID.String())
			}
		}
	}()

	// 4. Lock the loan and run the repayment waterfall
	outcome, err := s.loanManager.LockAndApplyRepayment(ctx, tx, request)
	if err != nil {
		// Handle specific business errors
		if errors.Is(err, loan.ErrLoanNotFound{LoanID: request.LoanID}) {
			if recordErr := s.failureRecorder.RecordFailure(ctx, request, string(shared.FailureReasonLoanNotFound)); recordErr != nil {
				logger.Error("Failed to record loan not found failure", "repayment_id", request.RepaymentID.String(), "error", recordErr)
			}
			return nil // Return nil to Kafka consumer
		} else if errors.Is(err, shared.ErrInvalidLoanState) {
			if recordErr := s.failureRecorder.RecordFailure(ctx, request, string(shared.FailureReasonInvalidLoanState)); recordErr != nil {
				logger.Error("Failed to record invalid loan state failure", "repayment_id", request.RepaymentID.String(), "error", recordErr)
			}
			return nil // Return nil to Kafka consumer
		} else if errors.Is(err, shared.ErrInvalidAmount) {
			if recordErr := s.failureRecorder.RecordFailure(ctx, request, string(shared.FailureReasonInvalidAmount)); recordErr != nil {
				logger.Error("Failed to record invalid amount failure", "repayment_id", request.RepaymentID.String(), "error", recordErr)
			}
			return nil // Return nil to Kafka consumer
		} else if errors.Is(err, shared.ErrOverpayment) {
			if recordErr := s.failureRecorder.RecordFailure(ctx, request, string(shared.FailureReasonOverpayment)); recordErr != nil {
				logger.Error("Failed to record overpayment failure", "repayment_id", request.RepaymentID.String(), "error", recordErr)
			}
			return nil // Return nil to Kafka consumer
		}

		// For other errors, let them propagate for retry
		return err
	}

	// 5. Create outbox entry
	if err = s.outboxManager.CreateOutboxEntry(ctx, tx, request, outcome); err != nil {
		return err // Let the defer handle rollback
	}

	// 6. Commit transaction
	if err = tx.Commit(ctx); err != nil {
		logger.Error("Failed to commit database transaction",
			"repayment_id", request.RepaymentID.String(),
			"loan_id", request.LoanID.String(),
			"error", err,
		)
		return fmt.Errorf("failed to commit DB transaction for repayment %s: %w", request.RepaymentID.String(), err)
	}

	logger.Info("Repayment committed",
		"repayment_id", request.RepaymentID.String(),
		"loan_id", request.LoanID.String(),
		"remaining_balance", outcome.Result.RemainingBalance,
		"closed", outcome.Result.Closed,
	)
	return nil // SUCCESS!
}
