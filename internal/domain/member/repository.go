package member

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository defines member and guarantor persistence operations
type Repository interface {
	CreateMember(ctx context.Context, m *Member) error
	GetMemberByID(ctx context.Context, id uuid.UUID) (*Member, error)

	// LockMemberForUpdate pins the member row so equity lock/unlock runs as
	// a single read-modify-write even when a member guarantees several
	// loans concurrently.
	LockMemberForUpdate(ctx context.Context, id uuid.UUID) (*Member, error)
	UpdateMember(ctx context.Context, m *Member) error

	CreateGuarantor(ctx context.Context, g *Guarantor) error
	GetGuarantorByID(ctx context.Context, id uuid.UUID) (*Guarantor, error)
	GetGuarantorsByApplication(ctx context.Context, applicationID uuid.UUID) ([]*Guarantor, error)
	UpdateGuarantor(ctx context.Context, g *Guarantor) error
	DeleteGuarantor(ctx context.Context, id uuid.UUID) error

	WithTx(tx pgx.Tx) Repository
}

// ErrMemberNotFound indicates missing member
type ErrMemberNotFound struct {
	MemberID uuid.UUID
}

func (e ErrMemberNotFound) Error() string {
	return "member not found: " + e.MemberID.String()
}

// ErrGuarantorNotFound indicates missing guarantor
type ErrGuarantorNotFound struct {
	GuarantorID uuid.UUID
}

func (e ErrGuarantorNotFound) Error() string {
	return "guarantor not found: " + e.GuarantorID.String()
}
