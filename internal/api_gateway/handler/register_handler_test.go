package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lendhub/loan-engine/internal/api_gateway/service"
	regdomain "github.com/lendhub/loan-engine/internal/domain/register"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockRegisterService struct {
	mock.Mock
}

func (m *MockRegisterService) Entry(ctx context.Context, loanID uuid.UUID) (*regdomain.Entry, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*regdomain.Entry), args.Error(1)
}

func (m *MockRegisterService) Entries(ctx context.Context, year int) ([]*regdomain.Entry, error) {
	args := m.Called(ctx, year)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*regdomain.Entry), args.Error(1)
}

func (m *MockRegisterService) Stats(ctx context.Context, year int) (*regdomain.YearStats, error) {
	args := m.Called(ctx, year)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*regdomain.YearStats), args.Error(1)
}

func testEntry(year, sequence int) *regdomain.Entry {
	return &regdomain.Entry{
		ID:           uuid.New(),
		LoanID:       uuid.New(),
		Year:         year,
		Sequence:     sequence,
		SerialNumber: regdomain.FormatSerial(year, sequence),
		RegisteredAt: time.Date(year, 3, 14, 10, 0, 0, 0, time.UTC),
	}
}

func TestRegisterHandler_GetByLoanID(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	gin.SetMode(gin.TestMode)

	t.Run("Success", func(t *testing.T) {
		mockService := new(MockRegisterService)
		handler := NewRegisterHandler(logger, mockService)

		entry := testEntry(2026, 42)
		mockService.On("Entry", mock.Anything, entry.LoanID).Return(entry, nil)

		router := gin.Default()
		router.GET("/loans/:id/register-entry", handler.GetByLoanID)

		req, _ := http.NewRequest(http.MethodGet, "/loans/"+entry.LoanID.String()+"/register-entry", nil)
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)

		var topLevelResponse Response
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &topLevelResponse))

		var responseBody RegisterEntryResponse
		dataBytes, _ := json.Marshal(topLevelResponse.Data)
		require.NoError(t, json.Unmarshal(dataBytes, &responseBody))

		assert.Equal(t, entry.LoanID.String(), responseBody.LoanID)
		assert.Equal(t, "LH/2026/042", responseBody.SerialNumber)
		assert.Equal(t, 42, responseBody.Sequence)

		mockService.AssertExpectations(t)
	})

	t.Run("NotRegistered", func(t *testing.T) {
		mockService := new(MockRegisterService)
		handler := NewRegisterHandler(logger, mockService)

		loanID := uuid.New()
		mockService.On("Entry", mock.Anything, loanID).
			Return(nil, regdomain.ErrEntryNotFound{LoanID: loanID})

		router := gin.Default()
		router.GET("/loans/:id/register-entry", handler.GetByLoanID)

		req, _ := http.NewRequest(http.MethodGet, "/loans/"+loanID.String()+"/register-entry", nil)
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusNotFound, rr.Code)
		mockService.AssertExpectations(t)
	})
}

func TestRegisterHandler_ListByYear(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	gin.SetMode(gin.TestMode)

	t.Run("Success", func(t *testing.T) {
		mockService := new(MockRegisterService)
		handler := NewRegisterHandler(logger, mockService)

		entries := []*regdomain.Entry{testEntry(2026, 1), testEntry(2026, 2)}
		mockService.On("Entries", mock.Anything, 2026).Return(entries, nil)

		router := gin.Default()
		router.GET("/register/:year", handler.ListByYear)

		req, _ := http.NewRequest(http.MethodGet, "/register/2026", nil)
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)

		var topLevelResponse Response
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &topLevelResponse))

		var responseBody []RegisterEntryResponse
		dataBytes, _ := json.Marshal(topLevelResponse.Data)
		require.NoError(t, json.Unmarshal(dataBytes, &responseBody))

		require.Len(t, responseBody, 2)
		assert.Equal(t, "LH/2026/001", responseBody[0].SerialNumber)
		assert.Equal(t, "LH/2026/002", responseBody[1].SerialNumber)

		mockService.AssertExpectations(t)
	})

	t.Run("InvalidYear", func(t *testing.T) {
		mockService := new(MockRegisterService)
		handler := NewRegisterHandler(logger, mockService)

		router := gin.Default()
		router.GET("/register/:year", handler.ListByYear)

		req, _ := http.NewRequest(http.MethodGet, "/register/yesterday", nil)
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		mockService.AssertNotCalled(t, "Entries", mock.Anything, mock.Anything)
	})
}

func TestRegisterHandler_Stats(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	gin.SetMode(gin.TestMode)

	t.Run("Success", func(t *testing.T) {
		mockService := new(MockRegisterService)
		handler := NewRegisterHandler(logger, mockService)

		mockService.On("Stats", mock.Anything, 2026).Return(&regdomain.YearStats{
			Year:       2026,
			TotalLoans: 7,
			ByStatus:   map[string]int{"ACTIVE": 5, "CLOSED": 2},
		}, nil)

		router := gin.Default()
		router.GET("/register/:year/stats", handler.Stats)

		req, _ := http.NewRequest(http.MethodGet, "/register/2026/stats", nil)
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)

		var topLevelResponse Response
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &topLevelResponse))

		var responseBody RegisterStatsResponse
		dataBytes, _ := json.Marshal(topLevelResponse.Data)
		require.NoError(t, json.Unmarshal(dataBytes, &responseBody))

		assert.Equal(t, 2026, responseBody.Year)
		assert.Equal(t, 7, responseBody.TotalLoans)
		assert.Equal(t, 5, responseBody.ByStatus["ACTIVE"])

		mockService.AssertExpectations(t)
	})

	t.Run("ServiceError", func(t *testing.T) {
		mockService := new(MockRegisterService)
		handler := NewRegisterHandler(logger, mockService)

		mockService.On("Stats", mock.Anything, 2026).Return(nil, assert.AnError)

		router := gin.Default()
		router.GET("/register/:year/stats", handler.Stats)

		req, _ := http.NewRequest(http.MethodGet, "/register/2026/stats", nil)
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		mockService.AssertExpectations(t)
	})
}

var _ service.RegisterService = (*MockRegisterService)(nil)
