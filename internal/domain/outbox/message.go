package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/lendhub/loan-engine/internal/domain/receipt"
	"github.com/lendhub/loan-engine/internal/domain/shared"
)

// Message stores a repayment receipt for reliable publishing to the
// receipts ledger
type Message struct {
	ID            int64               `json:"id"`
	RepaymentID   uuid.UUID           `json:"repayment_id"`
	LoanID        uuid.UUID           `json:"loan_id"`
	Payload       json.RawMessage     `json:"payload"`
	Status        shared.OutboxStatus `json:"status"`
	Attempts      int                 `json:"attempts"`
	CreatedAt     time.Time           `json:"created_at"`
	LastAttemptAt *time.Time          `json:"last_attempt_at,omitempty"`
}

func NewMessage(r *receipt.Receipt) (*Message, error) {
	payload, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}

	return &Message{
		RepaymentID: r.RepaymentID,
		LoanID:      r.LoanID,
		Payload:     payload,
		Status:      shared.OutboxStatusPending,
		Attempts:    0,
		CreatedAt:   time.Now(),
	}, nil
}

func (m *Message) IncrementAttempts() {
	m.Attempts++
	now := time.Now()
	m.LastAttemptAt = &now
}

func (m *Message) MarkAsProcessed() {
	m.Status = shared.OutboxStatusProcessed
	now := time.Now()
	m.LastAttemptAt = &now
}

func (m *Message) MarkAsFailed() {
	m.Status = shared.OutboxStatusFailedToPublish
	now := time.Now()
	m.LastAttemptAt = &now
}

// GetReceipt extracts the receipt from the payload
func (m *Message) GetReceipt() (*receipt.Receipt, error) {
	var r receipt.Receipt
	if err := json.Unmarshal(m.Payload, &r); err != nil {
		return nil, err
	}
	return &r, nil
}
