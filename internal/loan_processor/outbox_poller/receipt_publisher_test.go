package outbox_poller

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/lendhub/loan-engine/internal/domain/outbox"
	"github.com/lendhub/loan-engine/internal/domain/receipt"
	"github.com/lendhub/loan-engine/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockOutboxRepo for testing
type MockOutboxRepo struct {
	mock.Mock
}

func (m *MockOutboxRepo) Create(ctx context.Context, message *outbox.Message) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}

func (m *MockOutboxRepo) GetPending(ctx context.Context, limit int) ([]*outbox.Message, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*outbox.Message), args.Error(1)
}

func (m *MockOutboxRepo) UpdateStatus(ctx context.Context, id int64, status shared.OutboxStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockOutboxRepo) IncrementAttempts(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockOutboxRepo) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockOutboxRepo) GetByRepaymentID(ctx context.Context, repaymentID uuid.UUID) (*outbox.Message, error) {
	args := m.Called(ctx, repaymentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*outbox.Message), args.Error(1)
}

func (m *MockOutboxRepo) WithTx(tx pgx.Tx) outbox.Repository {
	args := m.Called(tx)
	return args.Get(0).(outbox.Repository)
}

// MockReceiptRepo for testing
type MockReceiptRepo struct {
	mock.Mock
}

func (m *MockReceiptRepo) Create(ctx context.Context, r *receipt.Receipt) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}

func (m *MockReceiptRepo) GetByRepaymentID(ctx context.Context, repaymentID uuid.UUID) (*receipt.Receipt, error) {
	args := m.Called(ctx, repaymentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*receipt.Receipt), args.Error(1)
}

func (m *MockReceiptRepo) GetByReference(ctx context.Context, reference string) (*receipt.Receipt, error) {
	args := m.Called(ctx, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*receipt.Receipt), args.Error(1)
}

func (m *MockReceiptRepo) GetByLoanID(ctx context.Context, loanID uuid.UUID, limit, offset int) ([]*receipt.Receipt, error) {
	args := m.Called(ctx, loanID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*receipt.Receipt), args.Error(1)
}

func (m *MockReceiptRepo) CountByLoanID(ctx context.Context, loanID uuid.UUID) (int64, error) {
	args := m.Called(ctx, loanID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockReceiptRepo) UpdateStatus(ctx context.Context, repaymentID uuid.UUID, status shared.ReceiptStatus, reason string) error {
	args := m.Called(ctx, repaymentID, status, reason)
	return args.Error(0)
}

func TestReceiptPublisher_PublishReceipt(t *testing.T) {
	mockOutboxRepo := &MockOutboxRepo{}
	mockReceiptRepo := &MockReceiptRepo{}
	logger := slog.Default()

	publisher := NewReceiptPublisher(mockOutboxRepo, mockReceiptRepo, logger)

	repaymentID := uuid.New()
	loanID := uuid.New()
	rc := &receipt.Receipt{
		RepaymentID:      repaymentID,
		LoanID:           loanID,
		Amount:           decimal.NewFromFloat(8884.88),
		InterestPaid:     decimal.NewFromFloat(1019.18),
		PrincipalPaid:    decimal.NewFromFloat(7865.70),
		RemainingBalance: decimal.NewFromFloat(97733.65),
		Method:           "BANK_TRANSFER",
		Reference:        "ref-001",
		CorrelationID:    "corr1",
		Status:           shared.ReceiptStatusProcessing,
	}

	receiptJSON, err := json.Marshal(rc)
	assert.NoError(t, err)

	message := &outbox.Message{
		ID:          1,
		RepaymentID: repaymentID,
		LoanID:      loanID,
		Status:      shared.OutboxStatusPending,
		Payload:     receiptJSON,
		Attempts:    0,
		CreatedAt:   time.Now(),
	}

	tests := []struct {
		name          string
		message       *outbox.Message
		setupMocks    func()
		expectedError error
	}{
		{
			name:    "successful publish - no existing receipt",
			message: message,
			setupMocks: func() {
				mockReceiptRepo.On("GetByRepaymentID", mock.Anything, repaymentID).Return(nil, receipt.ErrReceiptNotFound{RepaymentID: repaymentID}).Once()

				mockReceiptRepo.On("Create", mock.Anything, mock.MatchedBy(func(r *receipt.Receipt) bool {
					return r.RepaymentID == repaymentID &&
						r.Status == shared.ReceiptStatusCompleted &&
						r.ProcessedAt != nil
				})).Return(nil).Once()

				mockOutboxRepo.On("UpdateStatus", mock.Anything, int64(1), shared.OutboxStatusProcessed).Return(nil).Once()
			},
			expectedError: nil,
		},
		{
			name:    "successful publish - existing receipt still processing",
			message: message,
			setupMocks: func() {
				existingReceipt := &receipt.Receipt{
					RepaymentID: repaymentID,
					Status:      shared.ReceiptStatusProcessing,
				}
				mockReceiptRepo.On("GetByRepaymentID", mock.Anything, repaymentID).Return(existingReceipt, nil).Once()

				mockReceiptRepo.On("UpdateStatus", mock.Anything, repaymentID, shared.ReceiptStatusCompleted, "").Return(nil).Once()

				mockOutboxRepo.On("UpdateStatus", mock.Anything, int64(1), shared.OutboxStatusProcessed).Return(nil).Once()
			},
			expectedError: nil,
		},
		{
			name:    "successful publish - receipt already completed",
			message: message,
			setupMocks: func() {
				existingReceipt := &receipt.Receipt{
					RepaymentID: repaymentID,
					Status:      shared.ReceiptStatusCompleted,
				}
				mockReceiptRepo.On("GetByRepaymentID", mock.Anything, repaymentID).Return(existingReceipt, nil).Once()

				mockOutboxRepo.On("UpdateStatus", mock.Anything, int64(1), shared.OutboxStatusProcessed).Return(nil).Once()
			},
			expectedError: nil,
		},
		{
			name: "error unmarshalling payload",
			message: &outbox.Message{
				ID:          1,
				RepaymentID: repaymentID,
				LoanID:      loanID,
				Status:      shared.OutboxStatusPending,
				Payload:     []byte("invalid json"),
				Attempts:    0,
				CreatedAt:   time.Now(),
			},
			setupMocks: func() {
				mockOutboxRepo.On("UpdateStatus", mock.Anything, int64(1), shared.OutboxStatusFailedToPublish).Return(nil).Once()
			},
			expectedError: errors.New("unmarshal payload"),
		},
		{
			name:    "error creating receipt",
			message: message,
			setupMocks: func() {
				mockReceiptRepo.On("GetByRepaymentID", mock.Anything, repaymentID).Return(nil, receipt.ErrReceiptNotFound{RepaymentID: repaymentID}).Once()

				mockReceiptRepo.On("Create", mock.Anything, mock.Anything).Return(errors.New("db error")).Once()
			},
			expectedError: errors.New("failed to create receipt"),
		},
		{
			name:    "error updating outbox status",
			message: message,
			setupMocks: func() {
				mockReceiptRepo.On("GetByRepaymentID", mock.Anything, repaymentID).Return(nil, receipt.ErrReceiptNotFound{RepaymentID: repaymentID}).Once()

				mockReceiptRepo.On("Create", mock.Anything, mock.Anything).Return(nil).Once()

				mockOutboxRepo.On("UpdateStatus", mock.Anything, int64(1), shared.OutboxStatusProcessed).Return(errors.New("db error")).Once()
			},
			expectedError: errors.New("failed to mark outbox"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockOutboxRepo = &MockOutboxRepo{}
			mockReceiptRepo = &MockReceiptRepo{}
			publisher = NewReceiptPublisher(mockOutboxRepo, mockReceiptRepo, logger)

			tt.setupMocks()
			ctx := context.Background()

			err := publisher.PublishReceipt(ctx, tt.message)

			if tt.expectedError != nil {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedError.Error())
			} else {
				assert.NoError(t, err)
			}

			mockOutboxRepo.AssertExpectations(t)
			mockReceiptRepo.AssertExpectations(t)
		})
	}
}
