package outbox_poller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lendhub/loan-engine/internal/domain/outbox"
	"github.com/lendhub/loan-engine/internal/domain/receipt"
	"github.com/lendhub/loan-engine/internal/domain/shared"
)

// ReceiptPublisher publishes outbox messages to the receipts ledger
type ReceiptPublisher interface {
	PublishReceipt(ctx context.Context, message *outbox.Message) error
}

// ReceiptPublisherImpl implements ReceiptPublisher
type ReceiptPublisherImpl struct {
	outboxRepo  outbox.Repository
	receiptRepo receipt.Repository
	logger      *slog.Logger
}

// NewReceiptPublisher creates a new publisher
func NewReceiptPublisher(
	outboxRepo outbox.Repository,
	receiptRepo receipt.Repository,
	logger *slog.Logger,
) ReceiptPublisher {
	return &ReceiptPublisherImpl{
		outboxRepo:  outboxRepo,
		receiptRepo: receiptRepo,
		logger:      logger,
	}
}

// PublishReceipt writes the receipt carried by the outbox message to MongoDB
// and marks the message processed.
func (p *ReceiptPublisherImpl) PublishReceipt(ctx context.Context, message *outbox.Message) error {
	var receiptToPublish receipt.Receipt
	if err := json.Unmarshal(message.Payload, &receiptToPublish); err != nil {
		p.logger.Error("Failed to unmarshal receipt from outbox payload",
			"outbox_id", message.ID, "repayment_id", message.RepaymentID, "error", err,
		)
		if updateErr := p.outboxRepo.UpdateStatus(ctx, message.ID, shared.OutboxStatusFailedToPublish); updateErr != nil {
			p.logger.Error("Also failed to update outbox status to FAILED_TO_PUBLISH after unmarshal error", "outbox_id", message.ID, "update_error", updateErr)
		}
		return fmt.Errorf("unmarshal payload for outbox %d failed: %w", message.ID, err)
	}

	// Add correlation ID to logger
	logger := p.logger
	if receiptToPublish.CorrelationID != "" {
		logger = p.logger.With("correlation_id", receiptToPublish.CorrelationID)
	}

	logger.Info("Attempting to publish outbox message to receipts", "outbox_id", message.ID, "repayment_id", message.RepaymentID)

	receiptToPublish.Status = shared.ReceiptStatusCompleted
	now := time.Now().UTC()
	receiptToPublish.ProcessedAt = &now

	existingReceipt, err := p.receiptRepo.GetByRepaymentID(ctx, receiptToPublish.RepaymentID)
	if err != nil && !errors.Is(err, receipt.ErrReceiptNotFound{RepaymentID: receiptToPublish.RepaymentID}) {
		logger.Error("Failed to check existing receipt before publishing", "repayment_id", receiptToPublish.RepaymentID, "error", err)
		return fmt.Errorf("failed to check existing receipt %s: %w", receiptToPublish.RepaymentID, err)
	}

	if existingReceipt != nil {
		if existingReceipt.Status == shared.ReceiptStatusCompleted {
			logger.Info("Receipt already COMPLETED", "repayment_id", receiptToPublish.RepaymentID)
		} else {
			// Update existing receipt status
			err = p.receiptRepo.UpdateStatus(ctx, receiptToPublish.RepaymentID, shared.ReceiptStatusCompleted, "") // Empty reason for success
			if err != nil {
				logger.Error("Failed to update existing receipt to COMPLETED", "repayment_id", receiptToPublish.RepaymentID, "error", err)
				return fmt.Errorf("failed to update receipt %s to COMPLETED: %w", receiptToPublish.RepaymentID, err)
			}
			logger.Info("Updated existing receipt to COMPLETED", "repayment_id", receiptToPublish.RepaymentID)
		}
	} else {
		// Create new receipt
		err = p.receiptRepo.Create(ctx, &receiptToPublish) // receiptToPublish already has status=COMPLETED and ProcessedAt set
		if err != nil {
			logger.Error("Failed to create receipt in MongoDB", "repayment_id", receiptToPublish.RepaymentID, "error", err)
			return fmt.Errorf("failed to create receipt %s: %w", receiptToPublish.RepaymentID, err)
		}
		logger.Info("Successfully created receipt in MongoDB", "repayment_id", receiptToPublish.RepaymentID)
	}

	// Mark outbox message as processed
	if err := p.outboxRepo.UpdateStatus(ctx, message.ID, shared.OutboxStatusProcessed); err != nil {
		logger.Error("Failed to update outbox message status to PROCESSED",
			"outbox_id", message.ID, "repayment_id", message.RepaymentID, "error", err,
		)
		return fmt.Errorf("receipt write for %s OK, but failed to mark outbox %d as PROCESSED: %w", message.RepaymentID, message.ID, err)
	}

	logger.Info("Outbox message successfully processed and marked as PROCESSED", "outbox_id", message.ID, "repayment_id", message.RepaymentID)
	return nil
}
