package components

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/lendhub/loan-engine/internal/domain/receipt"
	"github.com/lendhub/loan-engine/internal/domain/shared"
	"github.com/lendhub/loan-engine/internal/loan_processor/service"
)

type FailureRecorderImpl struct {
	receiptRepo receipt.Repository
	logger      *slog.Logger
}

func NewFailureRecorder(receiptRepo receipt.Repository, logger *slog.Logger) service.FailureRecorder {
	return &FailureRecorderImpl{
		receiptRepo: receiptRepo,
		logger:      logger,
	}
}

// RecordFailure records a failed repayment as a receipt
func (r *FailureRecorderImpl) RecordFailure(ctx context.Context, request *shared.RepaymentRequest, failureReason string) error {
	logger := r.logger
	if request.CorrelationID != "" {
		logger = r.logger.With("correlation_id", request.CorrelationID)
	}

	logger.Info("Recording failed repayment", "repayment_id", request.RepaymentID.String(), "reason", failureReason)

	now := time.Now()
	failedReceipt := &receipt.Receipt{
		RepaymentID:   request.RepaymentID,
		LoanID:        request.LoanID,
		Amount:        request.Amount,
		Method:        request.Method,
		Reference:     request.Reference,
		CorrelationID: request.CorrelationID,
		Status:        shared.ReceiptStatusFailed,
		FailureReason: failureReason,
		CreatedAt:     request.Timestamp,
		ProcessedAt:   &now,
	}

	existingReceipt, err := r.receiptRepo.GetByRepaymentID(ctx, request.RepaymentID)
	if err != nil && !errors.Is(err, receipt.ErrReceiptNotFound{RepaymentID: request.RepaymentID}) {
		logger.Error("Failed to get existing receipt for failed repayment", "repayment_id", request.RepaymentID.String(), "error", err)
	}

	if existingReceipt != nil {
		if existingReceipt.Status != shared.ReceiptStatusFailed {
			logger.Info("Updating existing receipt to FAILED", "repayment_id", request.RepaymentID.String())
			updateErr := r.receiptRepo.UpdateStatus(ctx, request.RepaymentID, shared.ReceiptStatusFailed, failureReason)
			if updateErr != nil {
				logger.Error("Failed to update receipt to FAILED", "repayment_id", request.RepaymentID.String(), "error", updateErr)
				return updateErr
			}
			logger.Info("Successfully updated receipt to FAILED", "repayment_id", request.RepaymentID.String())
			return nil
		}
		logger.Info("Receipt already marked as FAILED", "repayment_id", request.RepaymentID.String())
		return nil
	}

	logger.Info("Creating new FAILED receipt", "repayment_id", request.RepaymentID.String())
	createErr := r.receiptRepo.Create(ctx, failedReceipt)
	if createErr != nil {
		logger.Error("Failed to create FAILED receipt", "repayment_id", request.RepaymentID.String(), "error", createErr)
		return createErr
	}
	logger.Info("Successfully created FAILED receipt", "repayment_id", request.RepaymentID.String())
	return nil
}
