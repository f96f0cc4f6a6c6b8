package receipt

import (
	"time"

	"github.com/google/uuid"
	"github.com/lendhub/loan-engine/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Receipt is the immutable record of one repayment event: the amount, its
// waterfall split, and the loan position it left behind.
type Receipt struct {
	RepaymentID      uuid.UUID            `json:"repayment_id" bson:"repayment_id"`
	LoanID           uuid.UUID            `json:"loan_id" bson:"loan_id"`
	Amount           decimal.Decimal      `json:"amount" bson:"amount"`
	PenaltyPaid      decimal.Decimal      `json:"penalty_paid" bson:"penalty_paid"`
	InterestPaid     decimal.Decimal      `json:"interest_paid" bson:"interest_paid"`
	PrincipalPaid    decimal.Decimal      `json:"principal_paid" bson:"principal_paid"`
	RemainingBalance decimal.Decimal      `json:"remaining_balance" bson:"remaining_balance"`
	LoanClosed       bool                 `json:"loan_closed" bson:"loan_closed"`
	NextPaymentDate  *time.Time           `json:"next_payment_date,omitempty" bson:"next_payment_date,omitempty"`
	NextPaymentDue   decimal.Decimal      `json:"next_payment_due" bson:"next_payment_due"`
	Method           string               `json:"method" bson:"method"`
	Reference        string               `json:"reference,omitempty" bson:"reference,omitempty"`
	CorrelationID    string               `json:"correlation_id,omitempty" bson:"correlation_id,omitempty"`
	Status           shared.ReceiptStatus `json:"status" bson:"status"`
	FailureReason    string               `json:"failure_reason,omitempty" bson:"failure_reason,omitempty"`
	CreatedAt        time.Time            `json:"created_at" bson:"created_at"`
	ProcessedAt      *time.Time           `json:"processed_at,omitempty" bson:"processed_at,omitempty"`
}
