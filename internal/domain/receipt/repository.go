package receipt

import (
	"context"

	"github.com/google/uuid"
	"github.com/lendhub/loan-engine/internal/domain/shared"
)

// Repository manages repayment receipt persistence
type Repository interface {
	Create(ctx context.Context, r *Receipt) error
	GetByRepaymentID(ctx context.Context, repaymentID uuid.UUID) (*Receipt, error)

	// GetByReference looks a receipt up by the caller-supplied payment
	// reference. Returns nil when no receipt exists, enabling idempotent
	// repayment submission.
	GetByReference(ctx context.Context, reference string) (*Receipt, error)

	GetByLoanID(ctx context.Context, loanID uuid.UUID, limit, offset int) ([]*Receipt, error)
	CountByLoanID(ctx context.Context, loanID uuid.UUID) (int64, error)
	UpdateStatus(ctx context.Context, repaymentID uuid.UUID, status shared.ReceiptStatus, reason string) error
}

// ErrReceiptNotFound indicates missing receipt
type ErrReceiptNotFound struct {
	RepaymentID uuid.UUID
}

func (e ErrReceiptNotFound) Error() string {
	return "receipt not found: " + e.RepaymentID.String()
}

// ErrDuplicateReceipt indicates repayment uniqueness violation
type ErrDuplicateReceipt struct {
	RepaymentID uuid.UUID
}

func (e ErrDuplicateReceipt) Error() string {
	return "duplicate receipt: " + e.RepaymentID.String()
}
