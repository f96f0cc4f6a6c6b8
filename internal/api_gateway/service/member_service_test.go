package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/lendhub/loan-engine/internal/domain/member"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockMemberRepository struct {
	mock.Mock
}

func (m *MockMemberRepository) CreateMember(ctx context.Context, mem *member.Member) error {
	args := m.Called(ctx, mem)
	return args.Error(0)
}

func (m *MockMemberRepository) GetMemberByID(ctx context.Context, id uuid.UUID) (*member.Member, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*member.Member), args.Error(1)
}

func (m *MockMemberRepository) LockMemberForUpdate(ctx context.Context, id uuid.UUID) (*member.Member, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*member.Member), args.Error(1)
}

func (m *MockMemberRepository) UpdateMember(ctx context.Context, mem *member.Member) error {
	args := m.Called(ctx, mem)
	return args.Error(0)
}

func (m *MockMemberRepository) CreateGuarantor(ctx context.Context, g *member.Guarantor) error {
	args := m.Called(ctx, g)
	return args.Error(0)
}

func (m *MockMemberRepository) GetGuarantorByID(ctx context.Context, id uuid.UUID) (*member.Guarantor, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*member.Guarantor), args.Error(1)
}

func (m *MockMemberRepository) GetGuarantorsByApplication(ctx context.Context, applicationID uuid.UUID) ([]*member.Guarantor, error) {
	args := m.Called(ctx, applicationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*member.Guarantor), args.Error(1)
}

func (m *MockMemberRepository) UpdateGuarantor(ctx context.Context, g *member.Guarantor) error {
	args := m.Called(ctx, g)
	return args.Error(0)
}

func (m *MockMemberRepository) DeleteGuarantor(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockMemberRepository) WithTx(tx pgx.Tx) member.Repository {
	args := m.Called(tx)
	return args.Get(0).(member.Repository)
}

func TestMemberServiceImpl_CreateMember(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		mockRepo := new(MockMemberRepository)
		service := NewMemberService(mockRepo)

		mockRepo.On("CreateMember", ctx, mock.MatchedBy(func(m *member.Member) bool {
			return m.Name == "Asha Mwangi" &&
				m.MemberNumber == "MBR-0042" &&
				m.FreeEquity.Equal(decimal.NewFromInt(25000)) &&
				m.LockedEquity.IsZero()
		})).Return(nil).Once()

		m, err := service.CreateMember(ctx, "Asha Mwangi", "MBR-0042", decimal.NewFromInt(25000))

		assert.NoError(t, err)
		assert.NotNil(t, m)
		assert.Equal(t, "Asha Mwangi", m.Name)
		assert.True(t, m.FreeEquity.Equal(decimal.NewFromInt(25000)))
		mockRepo.AssertExpectations(t)
	})

	t.Run("EmptyName", func(t *testing.T) {
		mockRepo := new(MockMemberRepository)
		service := NewMemberService(mockRepo)

		m, err := service.CreateMember(ctx, "", "MBR-0042", decimal.NewFromInt(25000))

		assert.Error(t, err)
		assert.ErrorIs(t, err, member.ErrEmptyName)
		assert.Nil(t, m)
		mockRepo.AssertNotCalled(t, "CreateMember", mock.Anything, mock.Anything)
	})

	t.Run("NegativeEquity", func(t *testing.T) {
		mockRepo := new(MockMemberRepository)
		service := NewMemberService(mockRepo)

		m, err := service.CreateMember(ctx, "Asha Mwangi", "MBR-0042", decimal.NewFromInt(-1))

		assert.Error(t, err)
		assert.ErrorIs(t, err, member.ErrInvalidAmount)
		assert.Nil(t, m)
		mockRepo.AssertNotCalled(t, "CreateMember", mock.Anything, mock.Anything)
	})

	t.Run("RepositoryError", func(t *testing.T) {
		mockRepo := new(MockMemberRepository)
		service := NewMemberService(mockRepo)
		dbError := errors.New("db insert error")

		mockRepo.On("CreateMember", ctx, mock.AnythingOfType("*member.Member")).Return(dbError).Once()

		m, err := service.CreateMember(ctx, "Asha Mwangi", "MBR-0042", decimal.NewFromInt(25000))

		assert.Error(t, err)
		assert.Equal(t, dbError, err)
		assert.Nil(t, m)
		mockRepo.AssertExpectations(t)
	})
}

func TestMemberServiceImpl_GetMemberByID(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		mockRepo := new(MockMemberRepository)
		service := NewMemberService(mockRepo)
		memberID := uuid.New()
		expectedMember := &member.Member{
			ID:           memberID,
			Name:         "Asha Mwangi",
			MemberNumber: "MBR-0042",
			FreeEquity:   decimal.NewFromInt(25000),
			LockedEquity: decimal.Zero,
		}

		mockRepo.On("GetMemberByID", ctx, memberID).Return(expectedMember, nil).Once()

		m, err := service.GetMemberByID(ctx, memberID)

		assert.NoError(t, err)
		assert.Equal(t, expectedMember, m)
		mockRepo.AssertExpectations(t)
	})

	t.Run("NotFound", func(t *testing.T) {
		mockRepo := new(MockMemberRepository)
		service := NewMemberService(mockRepo)
		memberID := uuid.New()

		mockRepo.On("GetMemberByID", ctx, memberID).Return(nil, member.ErrMemberNotFound{MemberID: memberID}).Once()

		m, err := service.GetMemberByID(ctx, memberID)

		assert.Error(t, err)
		assert.Nil(t, m)
		var notFound member.ErrMemberNotFound
		assert.ErrorAs(t, err, &notFound)
		mockRepo.AssertExpectations(t)
	})
}

var _ member.Repository = (*MockMemberRepository)(nil)
