package shared

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAmount    = errors.New("payment amount must be positive")
	ErrInvalidLoanState = errors.New("loan is not in a payable state")
	ErrOverpayment      = errors.New("payment exceeds full payoff amount")
)

// RepaymentRequest defines a Kafka message for repayment processing
type RepaymentRequest struct {
	RepaymentID   uuid.UUID       `json:"repayment_id"`
	LoanID        uuid.UUID       `json:"loan_id"`
	Amount        decimal.Decimal `json:"amount"` // Currency amount, 2dp fixed point
	Method        string          `json:"method"`
	Reference     string          `json:"reference,omitempty"`
	CorrelationID string          `json:"correlation_id"`
	Timestamp     time.Time       `json:"timestamp"`
}

// Notification defines a fire-and-forget message on the notification topic
type Notification struct {
	LoanID      uuid.UUID        `json:"loan_id,omitempty"`
	MemberID    uuid.UUID        `json:"member_id,omitempty"`
	Type        NotificationType `json:"type"`
	DaysOverdue int              `json:"days_overdue,omitempty"`
	Message     string           `json:"message"`
	CreatedAt   time.Time        `json:"created_at"`
}

// CapacityAlert defines a threshold utilization alert message
type CapacityAlert struct {
	Month       int                `json:"month"`
	Year        int                `json:"year"`
	Level       CapacityAlertLevel `json:"level"`
	Utilization decimal.Decimal    `json:"utilization_pct"`
	CreatedAt   time.Time          `json:"created_at"`
}
