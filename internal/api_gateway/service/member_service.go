package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/lendhub/loan-engine/internal/domain/member"
	"github.com/shopspring/decimal"
)

// MemberServiceImpl implements the MemberService interface
type MemberServiceImpl struct {
	memberRepo member.Repository
}

// NewMemberService creates a new member service
func NewMemberService(memberRepo member.Repository) MemberService {
	return &MemberServiceImpl{
		memberRepo: memberRepo,
	}
}

// CreateMember creates a new member with an opening equity balance
func (s *MemberServiceImpl) CreateMember(ctx context.Context, name, memberNumber string, equity decimal.Decimal) (*member.Member, error) {
	m, err := member.NewMember(name, memberNumber, equity)
	if err != nil {
		return nil, err
	}

	if err := s.memberRepo.CreateMember(ctx, m); err != nil {
		return nil, err
	}

	return m, nil
}

// GetMemberByID retrieves a member by its ID, returns ErrMemberNotFound if not found
func (s *MemberServiceImpl) GetMemberByID(ctx context.Context, id uuid.UUID) (*member.Member, error) {
	return s.memberRepo.GetMemberByID(ctx, id)
}
