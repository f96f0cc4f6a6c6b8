// Package guarantee manages member equity locked against loan guarantees.
// Every lock has a matching unlock; free plus locked equity on a member is
// conserved across any sequence of operations.
package guarantee

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/lendhub/loan-engine/internal/domain/member"
	"github.com/lendhub/loan-engine/internal/domain/shared"
	"github.com/lendhub/loan-engine/internal/platform/persistence"
	"github.com/shopspring/decimal"
)

// TxRunner runs a function inside one database transaction.
// *persistence.PostgresDB satisfies it.
type TxRunner interface {
	ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) error
}

var _ TxRunner = (*persistence.PostgresDB)(nil)

// Ledger provides equity guarantee operations over the member store
type Ledger struct {
	db      TxRunner
	members member.Repository
	logger  *slog.Logger
}

// NewLedger creates a guarantee ledger
func NewLedger(db TxRunner, members member.Repository, logger *slog.Logger) *Ledger {
	return &Ledger{
		db:      db,
		members: members,
		logger:  logger,
	}
}

// CheckEligibility reports whether a member's free equity fully covers the
// guarantee amount. Coverage below 100 percent does not qualify.
func (l *Ledger) CheckEligibility(ctx context.Context, memberID uuid.UUID, amount decimal.Decimal) (bool, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return false, member.ErrInvalidAmount
	}

	m, err := l.members.GetMemberByID(ctx, memberID)
	if err != nil {
		return false, fmt.Errorf("failed to load member: %w", err)
	}

	return m.CanGuarantee(amount), nil
}

// AddGuarantor attaches a member as a pending guarantor on a loan
// application after an eligibility check.
func (l *Ledger) AddGuarantor(ctx context.Context, memberID, applicationID uuid.UUID, amount decimal.Decimal) (*member.Guarantor, error) {
	g, err := member.NewGuarantor(memberID, applicationID, amount)
	if err != nil {
		return nil, err
	}

	err = l.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		repo := l.members.WithTx(tx)

		m, err := repo.LockMemberForUpdate(ctx, memberID)
		if err != nil {
			return fmt.Errorf("failed to lock member: %w", err)
		}
		if !m.CanGuarantee(amount) {
			return member.ErrInsufficientEquity
		}

		return repo.CreateGuarantor(ctx, g)
	})
	if err != nil {
		return nil, err
	}

	l.logger.Info("Guarantor added",
		"guarantor_id", g.ID,
		"member_id", memberID,
		"application_id", applicationID,
		"amount", amount)

	return g, nil
}

// Lock moves the guarantor's guarantee amount from the member's free
// equity to locked equity and marks the consent approved. The member row
// is pinned for the whole read-modify-write so concurrent guarantees by
// the same member cannot overdraw free equity.
func (l *Ledger) Lock(ctx context.Context, guarantorID uuid.UUID) error {
	err := l.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		repo := l.members.WithTx(tx)

		g, err := repo.GetGuarantorByID(ctx, guarantorID)
		if err != nil {
			return err
		}
		if g.LockedEquity.IsPositive() {
			// already locked for this guarantee; idempotent no-op
			return nil
		}

		m, err := repo.LockMemberForUpdate(ctx, g.MemberID)
		if err != nil {
			return fmt.Errorf("failed to lock member: %w", err)
		}
		if err := m.LockEquity(g.GuaranteeAmount); err != nil {
			return err
		}

		g.LockedEquity = g.GuaranteeAmount
		g.ConsentStatus = shared.ConsentStatusApproved

		if err := repo.UpdateMember(ctx, m); err != nil {
			return fmt.Errorf("failed to update member equity: %w", err)
		}
		return repo.UpdateGuarantor(ctx, g)
	})
	if err != nil {
		return err
	}

	l.logger.Info("Equity locked for guarantee", "guarantor_id", guarantorID)
	return nil
}

// Unlock releases exactly the equity previously locked for the guarantor,
// typically when the guaranteed loan closes or the application is rejected.
func (l *Ledger) Unlock(ctx context.Context, guarantorID uuid.UUID) error {
	err := l.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		repo := l.members.WithTx(tx)

		g, err := repo.GetGuarantorByID(ctx, guarantorID)
		if err != nil {
			return err
		}
		if g.LockedEquity.IsZero() {
			return member.ErrNothingLocked
		}

		m, err := repo.LockMemberForUpdate(ctx, g.MemberID)
		if err != nil {
			return fmt.Errorf("failed to lock member: %w", err)
		}
		if err := m.UnlockEquity(g.LockedEquity); err != nil {
			return err
		}

		g.LockedEquity = decimal.Zero

		if err := repo.UpdateMember(ctx, m); err != nil {
			return fmt.Errorf("failed to update member equity: %w", err)
		}
		return repo.UpdateGuarantor(ctx, g)
	})
	if err != nil {
		return err
	}

	l.logger.Info("Equity unlocked", "guarantor_id", guarantorID)
	return nil
}

// UnlockAllForApplication releases every guarantor on an application, used
// when the guaranteed loan is closed. Guarantors with nothing locked are
// skipped.
func (l *Ledger) UnlockAllForApplication(ctx context.Context, applicationID uuid.UUID) error {
	guarantors, err := l.members.GetGuarantorsByApplication(ctx, applicationID)
	if err != nil {
		return fmt.Errorf("failed to list guarantors: %w", err)
	}

	for _, g := range guarantors {
		if g.LockedEquity.IsZero() {
			continue
		}
		if err := l.Unlock(ctx, g.ID); err != nil {
			return fmt.Errorf("failed to unlock guarantor %s: %w", g.ID, err)
		}
	}
	return nil
}

// RemoveGuarantor detaches a guarantor from its application. Removal is
// refused while consent is approved or equity remains locked.
func (l *Ledger) RemoveGuarantor(ctx context.Context, guarantorID uuid.UUID) error {
	return l.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		repo := l.members.WithTx(tx)

		g, err := repo.GetGuarantorByID(ctx, guarantorID)
		if err != nil {
			return err
		}
		if !g.Removable() {
			return member.ErrGuarantorNotRemovable
		}

		return repo.DeleteGuarantor(ctx, guarantorID)
	})
}
