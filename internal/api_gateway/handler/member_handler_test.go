package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lendhub/loan-engine/internal/api_gateway/service"
	"github.com/lendhub/loan-engine/internal/domain/member"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockMemberService struct {
	mock.Mock
}

func (m *MockMemberService) CreateMember(ctx context.Context, name, memberNumber string, equity decimal.Decimal) (*member.Member, error) {
	args := m.Called(ctx, name, memberNumber, equity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*member.Member), args.Error(1)
}

func (m *MockMemberService) GetMemberByID(ctx context.Context, id uuid.UUID) (*member.Member, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*member.Member), args.Error(1)
}

func setupTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.Default()
	return r
}

func TestMemberHandler_Create(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	t.Run("Success", func(t *testing.T) {
		mockService := new(MockMemberService)
		handler := NewMemberHandler(logger, mockService)

		memberID := uuid.New()
		now := time.Now()
		expectedMember := &member.Member{
			ID:           memberID,
			Name:         "Asha Mwangi",
			MemberNumber: "MBR-0042",
			FreeEquity:   decimal.NewFromInt(25000),
			LockedEquity: decimal.Zero,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		mockService.On("CreateMember", mock.Anything, "Asha Mwangi", "MBR-0042", mock.MatchedBy(func(d decimal.Decimal) bool {
			return d.Equal(decimal.NewFromInt(25000))
		})).Return(expectedMember, nil)

		router := setupTestRouter()
		router.POST("/members", handler.Create)

		reqBody := CreateMemberRequest{
			Name:         "Asha Mwangi",
			MemberNumber: "MBR-0042",
			Equity:       "25000",
		}
		jsonBody, _ := json.Marshal(reqBody)

		req, _ := http.NewRequest(http.MethodPost, "/members", bytes.NewBuffer(jsonBody))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusCreated, rr.Code)

		var topLevelResponse Response
		err := json.Unmarshal(rr.Body.Bytes(), &topLevelResponse)
		assert.NoError(t, err, "Failed to unmarshal top-level response")

		require.NotNil(t, topLevelResponse.Data, "'data' field should not be nil")

		var responseBody MemberResponse
		dataBytes, marshalErr := json.Marshal(topLevelResponse.Data)
		require.NoError(t, marshalErr)
		require.NoError(t, json.Unmarshal(dataBytes, &responseBody))

		assert.Equal(t, expectedMember.ID.String(), responseBody.ID)
		assert.Equal(t, expectedMember.Name, responseBody.Name)
		assert.Equal(t, expectedMember.MemberNumber, responseBody.MemberNumber)
		assert.Equal(t, "25000.00", responseBody.FreeEquity)
		assert.Equal(t, "0.00", responseBody.LockedEquity)
		assert.Equal(t, "25000.00", responseBody.TotalEquity)

		mockService.AssertExpectations(t)
	})

	t.Run("InvalidRequestBody", func(t *testing.T) {
		mockService := new(MockMemberService)
		handler := NewMemberHandler(logger, mockService)

		router := setupTestRouter()
		router.POST("/members", handler.Create)

		req, _ := http.NewRequest(http.MethodPost, "/members", bytes.NewBufferString(`{"invalid`)) // Malformed JSON
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		mockService.AssertExpectations(t) // Ensure no service methods were called
	})

	t.Run("InvalidEquityAmount", func(t *testing.T) {
		mockService := new(MockMemberService)
		handler := NewMemberHandler(logger, mockService)

		router := setupTestRouter()
		router.POST("/members", handler.Create)

		reqBody := CreateMemberRequest{
			Name:         "Asha Mwangi",
			MemberNumber: "MBR-0042",
			Equity:       "not-a-number",
		}
		jsonBody, _ := json.Marshal(reqBody)

		req, _ := http.NewRequest(http.MethodPost, "/members", bytes.NewBuffer(jsonBody))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		mockService.AssertNotCalled(t, "CreateMember", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("ServiceError", func(t *testing.T) {
		mockService := new(MockMemberService)
		handler := NewMemberHandler(logger, mockService)

		mockService.On("CreateMember", mock.Anything, "Asha Mwangi", "MBR-0042", mock.Anything).
			Return(nil, errors.New("db insert error"))

		router := setupTestRouter()
		router.POST("/members", handler.Create)

		reqBody := CreateMemberRequest{
			Name:         "Asha Mwangi",
			MemberNumber: "MBR-0042",
			Equity:       "25000",
		}
		jsonBody, _ := json.Marshal(reqBody)

		req, _ := http.NewRequest(http.MethodPost, "/members", bytes.NewBuffer(jsonBody))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		mockService.AssertExpectations(t)
	})
}

func TestMemberHandler_GetByID(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	t.Run("Success", func(t *testing.T) {
		mockService := new(MockMemberService)
		handler := NewMemberHandler(logger, mockService)

		memberID := uuid.New()
		now := time.Now()
		expectedMember := &member.Member{
			ID:           memberID,
			Name:         "Asha Mwangi",
			MemberNumber: "MBR-0042",
			FreeEquity:   decimal.NewFromInt(20000),
			LockedEquity: decimal.NewFromInt(5000),
			CreatedAt:    now,
			UpdatedAt:    now,
		}

		mockService.On("GetMemberByID", mock.Anything, memberID).Return(expectedMember, nil)

		router := setupTestRouter()
		router.GET("/members/:id", handler.GetByID)

		req, _ := http.NewRequest(http.MethodGet, "/members/"+memberID.String(), nil)
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)

		var topLevelResponse Response
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &topLevelResponse))
		require.NotNil(t, topLevelResponse.Data)

		var responseBody MemberResponse
		dataBytes, _ := json.Marshal(topLevelResponse.Data)
		require.NoError(t, json.Unmarshal(dataBytes, &responseBody))

		assert.Equal(t, memberID.String(), responseBody.ID)
		assert.Equal(t, "20000.00", responseBody.FreeEquity)
		assert.Equal(t, "5000.00", responseBody.LockedEquity)
		assert.Equal(t, "25000.00", responseBody.TotalEquity)

		mockService.AssertExpectations(t)
	})

	t.Run("InvalidUUID", func(t *testing.T) {
		mockService := new(MockMemberService)
		handler := NewMemberHandler(logger, mockService)

		router := setupTestRouter()
		router.GET("/members/:id", handler.GetByID)

		req, _ := http.NewRequest(http.MethodGet, "/members/not-a-uuid", nil)
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("MemberNotFound", func(t *testing.T) {
		mockService := new(MockMemberService)
		handler := NewMemberHandler(logger, mockService)

		memberID := uuid.New()
		mockService.On("GetMemberByID", mock.Anything, memberID).
			Return(nil, member.ErrMemberNotFound{MemberID: memberID})

		router := setupTestRouter()
		router.GET("/members/:id", handler.GetByID)

		req, _ := http.NewRequest(http.MethodGet, "/members/"+memberID.String(), nil)
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusNotFound, rr.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("ServiceError", func(t *testing.T) {
		mockService := new(MockMemberService)
		handler := NewMemberHandler(logger, mockService)

		memberID := uuid.New()
		mockService.On("GetMemberByID", mock.Anything, memberID).
			Return(nil, errors.New("db query error"))

		router := setupTestRouter()
		router.GET("/members/:id", handler.GetByID)

		req, _ := http.NewRequest(http.MethodGet, "/members/"+memberID.String(), nil)
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		mockService.AssertExpectations(t)
	})
}

var _ service.MemberService = (*MockMemberService)(nil)
