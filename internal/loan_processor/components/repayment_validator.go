package components

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lendhub/loan-engine/internal/domain/receipt"
	"github.com/lendhub/loan-engine/internal/domain/shared"
	"github.com/lendhub/loan-engine/internal/loan_processor/service"
	"github.com/shopspring/decimal"
)

type RepaymentValidatorImpl struct {
	receiptRepo receipt.Repository
	logger      *slog.Logger
}

func NewRepaymentValidator(receiptRepo receipt.Repository, logger *slog.Logger) service.RepaymentValidator {
	return &RepaymentValidatorImpl{
		receiptRepo: receiptRepo,
		logger:      logger,
	}
}

// Validate checks repayment request validity
func (v *RepaymentValidatorImpl) Validate(ctx context.Context, request *shared.RepaymentRequest) error {
	logger := v.logger
	if request.CorrelationID != "" {
		logger = v.logger.With("correlation_id", request.CorrelationID)
	}

	if request.Amount.LessThanOrEqual(decimal.Zero) {
		logger.Error("Invalid amount", "repayment_id", request.RepaymentID.String(), "amount", request.Amount)
		return fmt.Errorf("%w: %s", shared.ErrInvalidAmount, request.Amount)
	}

	return nil
}

// CheckIdempotency checks if the repayment was already processed
func (v *RepaymentValidatorImpl) CheckIdempotency(ctx context.Context, request *shared.RepaymentRequest) (bool, error) {
	logger := v.logger
	if request.CorrelationID != "" {
		logger = v.logger.With("correlation_id", request.CorrelationID)
	}

	existingReceipt, err := v.receiptRepo.GetByRepaymentID(ctx, request.RepaymentID)
	if err != nil && !errors.Is(err, receipt.ErrReceiptNotFound{RepaymentID: request.RepaymentID}) {
		logger.Error("Failed to check receipts for idempotency", "repayment_id", request.RepaymentID.String(), "error", err)
		return false, fmt.Errorf("idempotency check failed for repayment %s: %w", request.RepaymentID.String(), err)
	}

	if existingReceipt != nil {
		if existingReceipt.Status == shared.ReceiptStatusCompleted || existingReceipt.Status == shared.ReceiptStatusFailed {
			logger.Info("Repayment already processed (idempotency)", "repayment_id", request.RepaymentID.String(), "status", existingReceipt.Status)
			return true, nil // Skip processing
		}
		logger.Info("Repayment found with non-terminal status, proceeding", "repayment_id", request.RepaymentID.String(), "status", existingReceipt.Status)
	}

	return false, nil // Continue processing
}
