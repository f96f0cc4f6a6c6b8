package member

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lendhub/loan-engine/internal/domain/shared"
	"github.com/shopspring/decimal"
)

var (
	ErrNothingLocked         = errors.New("no equity locked for this guarantor")
	ErrGuarantorNotRemovable = errors.New("guarantor with approved consent or locked equity cannot be removed")
)

// Guarantor links a member to a loan application they guarantee.
// LockedEquity mirrors the amount locked on the member for this guarantee
// and is mutated only in matched lock/unlock pairs.
type Guarantor struct {
	ID              uuid.UUID            `json:"id"`
	MemberID        uuid.UUID            `json:"member_id"`
	ApplicationID   uuid.UUID            `json:"application_id"`
	GuaranteeAmount decimal.Decimal      `json:"guarantee_amount"`
	ConsentStatus   shared.ConsentStatus `json:"consent_status"`
	LockedEquity    decimal.Decimal      `json:"locked_equity"`
	CreatedAt       time.Time            `json:"created_at"`
	UpdatedAt       time.Time            `json:"updated_at"`
}

// NewGuarantor creates a pending guarantor for a loan application
func NewGuarantor(memberID, applicationID uuid.UUID, amount decimal.Decimal) (*Guarantor, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, ErrInvalidAmount
	}

	return &Guarantor{
		ID:              uuid.New(),
		MemberID:        memberID,
		ApplicationID:   applicationID,
		GuaranteeAmount: amount,
		ConsentStatus:   shared.ConsentStatusPending,
		LockedEquity:    decimal.Zero,
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
	}, nil
}

// Removable reports whether the guarantor may be detached from its application
func (g *Guarantor) Removable() bool {
	return g.ConsentStatus != shared.ConsentStatusApproved && g.LockedEquity.IsZero()
}
