package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/lendhub/loan-engine/internal/domain/loan"
	"github.com/lendhub/loan-engine/internal/domain/member"
	regdomain "github.com/lendhub/loan-engine/internal/domain/register"
	"github.com/lendhub/loan-engine/internal/domain/receipt"
	"github.com/lendhub/loan-engine/internal/domain/shared"
	"github.com/lendhub/loan-engine/internal/domain/threshold"
	"github.com/lendhub/loan-engine/internal/lending/amortization"
	"github.com/lendhub/loan-engine/internal/lending/capacity"
	"github.com/shopspring/decimal"
)

// MemberService defines the interface for member operations
type MemberService interface {
	// CreateMember creates a new member with an opening equity balance
	CreateMember(ctx context.Context, name, memberNumber string, equity decimal.Decimal) (*member.Member, error)

	// GetMemberByID retrieves a member by its ID
	// Returns ErrMemberNotFound if the member doesn't exist
	GetMemberByID(ctx context.Context, id uuid.UUID) (*member.Member, error)
}

// LoanService defines the interface for loan lifecycle operations
type LoanService interface {
	// PreviewSchedule computes an amortization schedule without persisting anything
	PreviewSchedule(principal, annualRatePct decimal.Decimal, termMonths int, startDate time.Time) (decimal.Decimal, []amortization.ScheduleRow, error)

	// QuoteEarlyRepayment prices a lump-sum prepayment against a live loan
	QuoteEarlyRepayment(ctx context.Context, loanID uuid.UUID, amount decimal.Decimal) (*amortization.EarlyRepaymentResult, error)

	// Disburse creates the loan, its schedule, and its register serial,
	// consuming threshold capacity, all within one database transaction
	Disburse(ctx context.Context, params DisburseParams) (*loan.Loan, error)

	// GetLoanByID retrieves a loan by its ID
	// Returns ErrLoanNotFound if the loan doesn't exist
	GetLoanByID(ctx context.Context, id uuid.UUID) (*loan.Loan, error)

	// GetSchedule retrieves the installment schedule for a loan
	GetSchedule(ctx context.Context, loanID uuid.UUID) ([]*loan.ScheduleItem, error)
}

// DisburseParams carries the approved application figures into Disburse
type DisburseParams struct {
	MemberID      uuid.UUID
	ApplicationID uuid.UUID
	Principal     decimal.Decimal
	AnnualRatePct decimal.Decimal
	TermMonths    int
	DisbursedAt   time.Time
}

// RepaymentService defines the interface for repayment operations
type RepaymentService interface {
	// SubmitRepayment enqueues a repayment for processing with idempotency support
	// Returns repayment ID, existing receipt (if found via payment reference), and any error
	SubmitRepayment(ctx context.Context, repaymentRequest *shared.RepaymentRequest) (string, *receipt.Receipt, error)

	// GetReceipt retrieves a repayment receipt by its repayment ID
	// Returns nil if the receipt is not found
	GetReceipt(ctx context.Context, repaymentID uuid.UUID) (*receipt.Receipt, error)

	// GetReceiptsByLoanID retrieves paginated repayment history for a loan
	// Returns receipts, total count of all receipts, and any error
	GetReceiptsByLoanID(ctx context.Context, loanID uuid.UUID, page, perPage int) ([]*receipt.Receipt, int64, error)
}

// GuarantorService defines the interface for guarantor equity operations.
// Satisfied by guarantee.Ledger.
type GuarantorService interface {
	CheckEligibility(ctx context.Context, memberID uuid.UUID, amount decimal.Decimal) (bool, error)
	AddGuarantor(ctx context.Context, memberID, applicationID uuid.UUID, amount decimal.Decimal) (*member.Guarantor, error)
	Lock(ctx context.Context, guarantorID uuid.UUID) error
	Unlock(ctx context.Context, guarantorID uuid.UUID) error
	RemoveGuarantor(ctx context.Context, guarantorID uuid.UUID) error
}

// ThresholdService defines the interface for monthly capacity operations.
// Satisfied by capacity.Allocator.
type ThresholdService interface {
	Check(ctx context.Context, amount decimal.Decimal, month, year int) (*capacity.CheckResult, error)
	Allocate(ctx context.Context, applicationID uuid.UUID, amount decimal.Decimal, approvedAt time.Time) (*threshold.Allocation, error)
	Release(ctx context.Context, applicationID uuid.UUID) error
}

// RegisterService defines the interface for loan register queries.
// Satisfied by register.Register.
type RegisterService interface {
	Entry(ctx context.Context, loanID uuid.UUID) (*regdomain.Entry, error)
	Entries(ctx context.Context, year int) ([]*regdomain.Entry, error)
	Stats(ctx context.Context, year int) (*regdomain.YearStats, error)
}
