package service

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/lendhub/loan-engine/internal/domain/loan"
	"github.com/lendhub/loan-engine/internal/domain/shared"
	"github.com/lendhub/loan-engine/internal/lending/repayment"
)

// ProcessingService defines the interface for processing repayment requests.
type ProcessingService interface {
	ProcessRepayment(ctx context.Context, request *shared.RepaymentRequest) error
}

// RepaymentValidator validates repayment requests before processing
type RepaymentValidator interface {
	Validate(ctx context.Context, request *shared.RepaymentRequest) error
	CheckIdempotency(ctx context.Context, request *shared.RepaymentRequest) (bool, error)
}

// RepaymentOutcome is the post-waterfall state the outbox entry is built from
type RepaymentOutcome struct {
	Loan   *loan.Loan
	Result *repayment.Result
}

// LoanManager handles loan-related operations during repayment processing
type LoanManager interface {
	LockAndApplyRepayment(ctx context.Context, tx pgx.Tx, request *shared.RepaymentRequest) (*RepaymentOutcome, error)
}

// OutboxManager handles the creation of outbox entries for processed repayments
type OutboxManager interface {
	CreateOutboxEntry(ctx context.Context, tx pgx.Tx, request *shared.RepaymentRequest, outcome *RepaymentOutcome) error
}

// FailureRecorder handles recording failed repayments
type FailureRecorder interface {
	RecordFailure(ctx context.Context, request *shared.RepaymentRequest, failureReason string) error
}
