package member

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Common errors
var (
	ErrInsufficientEquity = errors.New("insufficient free equity for guarantee")
	ErrInvalidAmount      = errors.New("amount must be positive")
	ErrEmptyName          = errors.New("member name cannot be empty")
)

// Member holds a cooperative member's equity position. Free plus locked
// equity is conserved across every lock/unlock pair.
type Member struct {
	ID           uuid.UUID       `json:"id"`
	Name         string          `json:"name"`
	MemberNumber string          `json:"member_number"`
	FreeEquity   decimal.Decimal `json:"free_equity"`
	LockedEquity decimal.Decimal `json:"locked_equity"`
	Version      int             `json:"version"` // For optimistic locking
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// NewMember creates a member with an opening equity balance
func NewMember(name, memberNumber string, equity decimal.Decimal) (*Member, error) {
	if name == "" {
		return nil, ErrEmptyName
	}
	if equity.IsNegative() {
		return nil, ErrInvalidAmount
	}

	return &Member{
		ID:           uuid.New(),
		Name:         name,
		MemberNumber: memberNumber,
		FreeEquity:   equity,
		LockedEquity: decimal.Zero,
		Version:      1,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}, nil
}

// CanGuarantee reports whether the member's free equity fully covers the
// guarantee amount. Partial coverage does not qualify.
func (m *Member) CanGuarantee(amount decimal.Decimal) bool {
	return m.FreeEquity.GreaterThanOrEqual(amount)
}

// LockEquity moves the amount from free to locked equity
func (m *Member) LockEquity(amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidAmount
	}
	if m.FreeEquity.LessThan(amount) {
		return ErrInsufficientEquity
	}

	m.FreeEquity = m.FreeEquity.Sub(amount)
	m.LockedEquity = m.LockedEquity.Add(amount)
	m.UpdatedAt = time.Now()
	m.Version++
	return nil
}

// UnlockEquity moves the amount from locked back to free equity
func (m *Member) UnlockEquity(amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidAmount
	}
	if m.LockedEquity.LessThan(amount) {
		return ErrInvalidAmount
	}

	m.LockedEquity = m.LockedEquity.Sub(amount)
	m.FreeEquity = m.FreeEquity.Add(amount)
	m.UpdatedAt = time.Now()
	m.Version++
	return nil
}

// TotalEquity returns free plus locked equity
func (m *Member) TotalEquity() decimal.Decimal {
	return m.FreeEquity.Add(m.LockedEquity)
}
