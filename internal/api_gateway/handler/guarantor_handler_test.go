package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lendhub/loan-engine/internal/api_gateway/service"
	"github.com/lendhub/loan-engine/internal/domain/member"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockGuarantorService struct {
	mock.Mock
}

func (m *MockGuarantorService) CheckEligibility(ctx context.Context, memberID uuid.UUID, amount decimal.Decimal) (bool, error) {
	args := m.Called(ctx, memberID, amount)
	return args.Bool(0), args.Error(1)
}

func (m *MockGuarantorService) AddGuarantor(ctx context.Context, memberID, applicationID uuid.UUID, amount decimal.Decimal) (*member.Guarantor, error) {
	args := m.Called(ctx, memberID, applicationID, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*member.Guarantor), args.Error(1)
}

func (m *MockGuarantorService) Lock(ctx context.Context, guarantorID uuid.UUID) error {
	args := m.Called(ctx, guarantorID)
	return args.Error(0)
}

func (m *MockGuarantorService) Unlock(ctx context.Context, guarantorID uuid.UUID) error {
	args := m.Called(ctx, guarantorID)
	return args.Error(0)
}

func (m *MockGuarantorService) RemoveGuarantor(ctx context.Context, guarantorID uuid.UUID) error {
	args := m.Called(ctx, guarantorID)
	return args.Error(0)
}

func TestGuarantorHandler_CheckEligibility(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	gin.SetMode(gin.TestMode)

	t.Run("Eligible", func(t *testing.T) {
		mockService := new(MockGuarantorService)
		handler := NewGuarantorHandler(logger, mockService)

		memberID := uuid.New()
		mockService.On("CheckEligibility", mock.Anything, memberID, mock.MatchedBy(func(d decimal.Decimal) bool {
			return d.Equal(decimal.NewFromInt(5000))
		})).Return(true, nil)

		router := gin.Default()
		router.POST("/guarantors/eligibility-check", handler.CheckEligibility)

		reqBody := EligibilityCheckRequest{MemberID: memberID.String(), Amount: "5000"}
		jsonBody, _ := json.Marshal(reqBody)

		req, _ := http.NewRequest(http.MethodPost, "/guarantors/eligibility-check", bytes.NewBuffer(jsonBody))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)

		var topLevelResponse Response
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &topLevelResponse))

		data, ok := topLevelResponse.Data.(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, true, data["eligible"])

		mockService.AssertExpectations(t)
	})

	t.Run("MemberNotFound", func(t *testing.T) {
		mockService := new(MockGuarantorService)
		handler := NewGuarantorHandler(logger, mockService)

		memberID := uuid.New()
		mockService.On("CheckEligibility", mock.Anything, memberID, mock.Anything).
			Return(false, member.ErrMemberNotFound{MemberID: memberID})

		router := gin.Default()
		router.POST("/guarantors/eligibility-check", handler.CheckEligibility)

		reqBody := EligibilityCheckRequest{MemberID: memberID.String(), Amount: "5000"}
		jsonBody, _ := json.Marshal(reqBody)

		req, _ := http.NewRequest(http.MethodPost, "/guarantors/eligibility-check", bytes.NewBuffer(jsonBody))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusNotFound, rr.Code)
		mockService.AssertExpectations(t)
	})
}

func TestGuarantorHandler_Add(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	gin.SetMode(gin.TestMode)

	t.Run("Success", func(t *testing.T) {
		mockService := new(MockGuarantorService)
		handler := NewGuarantorHandler(logger, mockService)

		memberID := uuid.New()
		applicationID := uuid.New()
		g, err := member.NewGuarantor(memberID, applicationID, decimal.NewFromInt(5000))
		require.NoError(t, err)

		mockService.On("AddGuarantor", mock.Anything, memberID, applicationID, mock.Anything).Return(g, nil)

		router := gin.Default()
		router.POST("/guarantors", handler.Add)

		reqBody := AddGuarantorRequest{
			MemberID:      memberID.String(),
			ApplicationID: applicationID.String(),
			Amount:        "5000",
		}
		jsonBody, _ := json.Marshal(reqBody)

		req, _ := http.NewRequest(http.MethodPost, "/guarantors", bytes.NewBuffer(jsonBody))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusCreated, rr.Code)

		var topLevelResponse Response
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &topLevelResponse))

		var responseBody GuarantorResponse
		dataBytes, _ := json.Marshal(topLevelResponse.Data)
		require.NoError(t, json.Unmarshal(dataBytes, &responseBody))

		assert.Equal(t, g.ID.String(), responseBody.ID)
		assert.Equal(t, "5000.00", responseBody.GuaranteeAmount)
		assert.Equal(t, "PENDING", responseBody.ConsentStatus)
		assert.Equal(t, "0.00", responseBody.LockedEquity)

		mockService.AssertExpectations(t)
	})

	t.Run("InsufficientEquity", func(t *testing.T) {
		mockService := new(MockGuarantorService)
		handler := NewGuarantorHandler(logger, mockService)

		mockService.On("AddGuarantor", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(nil, member.ErrInsufficientEquity)

		router := gin.Default()
		router.POST("/guarantors", handler.Add)

		reqBody := AddGuarantorRequest{
			MemberID:      uuid.New().String(),
			ApplicationID: uuid.New().String(),
			Amount:        "5000",
		}
		jsonBody, _ := json.Marshal(reqBody)

		req, _ := http.NewRequest(http.MethodPost, "/guarantors", bytes.NewBuffer(jsonBody))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusConflict, rr.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("InvalidAmount", func(t *testing.T) {
		mockService := new(MockGuarantorService)
		handler := NewGuarantorHandler(logger, mockService)

		router := gin.Default()
		router.POST("/guarantors", handler.Add)

		reqBody := AddGuarantorRequest{
			MemberID:      uuid.New().String(),
			ApplicationID: uuid.New().String(),
			Amount:        "lots",
		}
		jsonBody, _ := json.Marshal(reqBody)

		req, _ := http.NewRequest(http.MethodPost, "/guarantors", bytes.NewBuffer(jsonBody))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		mockService.AssertNotCalled(t, "AddGuarantor", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestGuarantorHandler_LockUnlock(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	gin.SetMode(gin.TestMode)

	t.Run("LockSuccess", func(t *testing.T) {
		mockService := new(MockGuarantorService)
		handler := NewGuarantorHandler(logger, mockService)

		guarantorID := uuid.New()
		mockService.On("Lock", mock.Anything, guarantorID).Return(nil)

		router := gin.Default()
		router.POST("/guarantors/:id/lock", handler.Lock)

		req, _ := http.NewRequest(http.MethodPost, "/guarantors/"+guarantorID.String()+"/lock", nil)
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("LockInsufficientEquity", func(t *testing.T) {
		mockService := new(MockGuarantorService)
		handler := NewGuarantorHandler(logger, mockService)

		guarantorID := uuid.New()
		mockService.On("Lock", mock.Anything, guarantorID).Return(member.ErrInsufficientEquity)

		router := gin.Default()
		router.POST("/guarantors/:id/lock", handler.Lock)

		req, _ := http.NewRequest(http.MethodPost, "/guarantors/"+guarantorID.String()+"/lock", nil)
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusConflict, rr.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("UnlockNothingLocked", func(t *testing.T) {
		mockService := new(MockGuarantorService)
		handler := NewGuarantorHandler(logger, mockService)

		guarantorID := uuid.New()
		mockService.On("Unlock", mock.Anything, guarantorID).Return(member.ErrNothingLocked)

		router := gin.Default()
		router.POST("/guarantors/:id/unlock", handler.Unlock)

		req, _ := http.NewRequest(http.MethodPost, "/guarantors/"+guarantorID.String()+"/unlock", nil)
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusConflict, rr.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("GuarantorNotFound", func(t *testing.T) {
		mockService := new(MockGuarantorService)
		handler := NewGuarantorHandler(logger, mockService)

		guarantorID := uuid.New()
		mockService.On("Lock", mock.Anything, guarantorID).
			Return(member.ErrGuarantorNotFound{GuarantorID: guarantorID})

		router := gin.Default()
		router.POST("/guarantors/:id/lock", handler.Lock)

		req, _ := http.NewRequest(http.MethodPost, "/guarantors/"+guarantorID.String()+"/lock", nil)
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusNotFound, rr.Code)
		mockService.AssertExpectations(t)
	})
}

func TestGuarantorHandler_Remove(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	gin.SetMode(gin.TestMode)

	t.Run("Success", func(t *testing.T) {
		mockService := new(MockGuarantorService)
		handler := NewGuarantorHandler(logger, mockService)

		guarantorID := uuid.New()
		mockService.On("RemoveGuarantor", mock.Anything, guarantorID).Return(nil)

		router := gin.Default()
		router.DELETE("/guarantors/:id", handler.Remove)

		req, _ := http.NewRequest(http.MethodDelete, "/guarantors/"+guarantorID.String(), nil)
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusNoContent, rr.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("NotRemovable", func(t *testing.T) {
		mockService := new(MockGuarantorService)
		handler := NewGuarantorHandler(logger, mockService)

		guarantorID := uuid.New()
		mockService.On("RemoveGuarantor", mock.Anything, guarantorID).
			Return(member.ErrGuarantorNotRemovable)

		router := gin.Default()
		router.DELETE("/guarantors/:id", handler.Remove)

		req, _ := http.NewRequest(http.MethodDelete, "/guarantors/"+guarantorID.String(), nil)
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusConflict, rr.Code)
		mockService.AssertExpectations(t)
	})
}

var _ service.GuarantorService = (*MockGuarantorService)(nil)
