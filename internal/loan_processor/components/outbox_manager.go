package components

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/lendhub/loan-engine/internal/domain/outbox"
	"github.com/lendhub/loan-engine/internal/domain/receipt"
	"github.com/lendhub/loan-engine/internal/domain/shared"
	"github.com/lendhub/loan-engine/internal/loan_processor/service"
)

type OutboxManagerImpl struct {
	outboxRepo outbox.Repository
	logger     *slog.Logger
}

func NewOutboxManager(outboxRepo outbox.Repository, logger *slog.Logger) service.OutboxManager {
	return &OutboxManagerImpl{
		outboxRepo: outboxRepo,
		logger:     logger,
	}
}

// CreateOutboxEntry creates an outbox entry carrying the repayment receipt
func (m *OutboxManagerImpl) CreateOutboxEntry(ctx context.Context, tx pgx.Tx, request *shared.RepaymentRequest, outcome *service.RepaymentOutcome) error {
	logger := m.logger
	if request.CorrelationID != "" {
		logger = m.logger.With("correlation_id", request.CorrelationID)
	}

	outboxRepoTx := m.outboxRepo.WithTx(tx)

	result := outcome.Result
	receiptForOutbox := &receipt.Receipt{
		RepaymentID:      request.RepaymentID,
		LoanID:           request.LoanID,
		Amount:           request.Amount,
		PenaltyPaid:      result.Allocation.PenaltyPaid,
		InterestPaid:     result.Allocation.InterestPaid,
		PrincipalPaid:    result.Allocation.PrincipalPaid,
		RemainingBalance: result.RemainingBalance,
		LoanClosed:       result.Closed,
		NextPaymentDate:  result.NextPaymentDate,
		NextPaymentDue:   result.NextPaymentDue,
		Method:           request.Method,
		Reference:        request.Reference,
		CorrelationID:    request.CorrelationID,
		Status:           shared.ReceiptStatusProcessing,
		CreatedAt:        request.Timestamp,
		// ProcessedAt is set by the poller
	}

	outboxMessage, err := outbox.NewMessage(receiptForOutbox)
	if err != nil {
		logger.Error("Failed to create new outbox message (marshal payload)",
			"repayment_id", request.RepaymentID.String(),
			"error", err,
		)
		return fmt.Errorf("failed to create outbox message payload for repayment %s: %w", request.RepaymentID.String(), err)
	}

	if err = outboxRepoTx.Create(ctx, outboxMessage); err != nil {
		logger.Error("Failed to create outbox message",
			"repayment_id", request.RepaymentID.String(),
			"loan_id", request.LoanID.String(),
			"error", err,
		)
		return fmt.Errorf("failed to create outbox message for repayment %s: %w", request.RepaymentID.String(), err)
	}
	logger.Info("Outbox message created successfully",
		"repayment_id", request.RepaymentID.String(),
		"outbox_id", outboxMessage.ID,
	)

	return nil
}
