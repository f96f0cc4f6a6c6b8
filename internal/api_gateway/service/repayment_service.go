package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/lendhub/loan-engine/internal/domain/receipt"
	"github.com/lendhub/loan-engine/internal/domain/shared"
	"github.com/lendhub/loan-engine/internal/platform/messaging/producers"
)

// RepaymentServiceImpl implements the RepaymentService interface
type RepaymentServiceImpl struct {
	receiptRepo receipt.Repository
	producer    producers.MessagePublisher
	logger      *slog.Logger
}

// NewRepaymentService creates a new repayment service
func NewRepaymentService(logger *slog.Logger, receiptRepo receipt.Repository, producer producers.MessagePublisher) RepaymentService {
	return &RepaymentServiceImpl{
		receiptRepo: receiptRepo,
		producer:    producer,
		logger:      logger,
	}
}

// SubmitRepayment enqueues a repayment for processing, supporting idempotency
// via the caller-supplied payment reference.
// Returns repayment ID, existing receipt (if found via reference), and any error
func (s *RepaymentServiceImpl) SubmitRepayment(ctx context.Context, repaymentRequest *shared.RepaymentRequest) (string, *receipt.Receipt, error) {
	reference := repaymentRequest.Reference

	if reference != "" {
		existingReceipt, err := s.receiptRepo.GetByReference(ctx, reference)
		if err != nil {
			s.logger.Error("Failed to check for existing repayment with reference",
				"reference", reference,
				"error", err,
			)
			return "", nil, err
		}

		if existingReceipt != nil {
			s.logger.Info("Found existing repayment with reference",
				"reference", reference,
				"repayment_id", existingReceipt.RepaymentID,
				"status", string(existingReceipt.Status),
			)
			return existingReceipt.RepaymentID.String(), existingReceipt, nil
		}
	}

	key := repaymentRequest.LoanID.String()
	if err := s.producer.Publish(ctx, key, repaymentRequest); err != nil {
		s.logger.Error("Failed to publish repayment request",
			"loan_id", repaymentRequest.LoanID,
			"amount", repaymentRequest.Amount,
			"error", err,
		)
		return "", nil, err
	}

	s.logger.Info("Repayment request published",
		"repayment_id", repaymentRequest.RepaymentID,
		"loan_id", repaymentRequest.LoanID,
		"amount", repaymentRequest.Amount,
		"method", repaymentRequest.Method,
	)

	return repaymentRequest.RepaymentID.String(), nil, nil
}

// GetReceipt retrieves a repayment receipt by its repayment ID. Returns nil if not found
func (s *RepaymentServiceImpl) GetReceipt(ctx context.Context, repaymentID uuid.UUID) (*receipt.Receipt, error) {
	res, err := s.receiptRepo.GetByRepaymentID(ctx, repaymentID)
	if err != nil {
		var errReceiptNotFound receipt.ErrReceiptNotFound
		if errors.As(err, &errReceiptNotFound) {
			s.logger.Info("Receipt not found", "repayment_id", repaymentID.String())
			return nil, nil
		}
		s.logger.Error("Failed to get receipt by ID", "repayment_id", repaymentID.String(), "error", err)
		return nil, err
	}
	return res, nil
}

// GetReceiptsByLoanID retrieves paginated repayment history for a loan
// Returns receipts, total count, and any error
func (s *RepaymentServiceImpl) GetReceiptsByLoanID(ctx context.Context, loanID uuid.UUID, page, perPage int) ([]*receipt.Receipt, int64, error) {
	offset := (page - 1) * perPage

	receipts, err := s.receiptRepo.GetByLoanID(ctx, loanID, perPage, offset)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.receiptRepo.CountByLoanID(ctx, loanID)
	if err != nil {
		return nil, 0, err
	}

	return receipts, total, nil
}
