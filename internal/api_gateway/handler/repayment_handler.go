package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lendhub/loan-engine/internal/api_gateway/middleware"
	"github.com/lendhub/loan-engine/internal/api_gateway/service"
	"github.com/lendhub/loan-engine/internal/domain/receipt"
	"github.com/lendhub/loan-engine/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// RepaymentHandler handles HTTP requests for repayment operations
type RepaymentHandler struct {
	repaymentService service.RepaymentService
	logger           *slog.Logger
}

// NewRepaymentHandler creates a new repayment handler
func NewRepaymentHandler(logger *slog.Logger, repaymentService service.RepaymentService) *RepaymentHandler {
	return &RepaymentHandler{
		repaymentService: repaymentService,
		logger:           logger,
	}
}

// Create submits a repayment for asynchronous processing with idempotency
// support via the payment reference
func (h *RepaymentHandler) Create(c *gin.Context) {
	var req CreateRepaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	loanID, err := uuid.Parse(req.LoanID)
	if err != nil {
		h.logger.Error("Invalid loan ID", "loan_id", req.LoanID, "error", err)
		RespondBadRequest(c, "Invalid loan ID")
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || amount.LessThanOrEqual(decimal.Zero) {
		h.logger.Error("Invalid repayment amount", "amount", req.Amount)
		RespondBadRequest(c, "Invalid repayment amount")
		return
	}

	repaymentRequest := &shared.RepaymentRequest{
		RepaymentID:   uuid.New(),
		LoanID:        loanID,
		Amount:        amount,
		Method:        req.Method,
		Reference:     req.Reference,
		CorrelationID: middleware.GetCorrelationID(c),
		Timestamp:     time.Now(),
	}

	repaymentID, existingReceipt, err := h.repaymentService.SubmitRepayment(c.Request.Context(), repaymentRequest)
	if err != nil {
		h.logger.Error("Failed to submit repayment", "error", err)
		RespondInternalError(c)
		return
	}
	if existingReceipt != nil {
		RespondOK(c, mapReceiptToResponse(existingReceipt))
		return
	}

	RespondAccepted(c, gin.H{
		"repayment_id": repaymentID,
		"status":       "PROCESSING",
	})
}

// GetByID retrieves a repayment receipt by its ID, returns 404 if not found
func (h *RepaymentHandler) GetByID(c *gin.Context) {
	idParam := c.Param("id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		h.logger.Error("Invalid repayment ID", "id", idParam, "error", err)
		RespondBadRequest(c, "Invalid repayment ID")
		return
	}

	res, err := h.repaymentService.GetReceipt(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("Failed to get receipt", "id", idParam, "error", err)
		RespondInternalError(c)
		return
	}

	if res == nil {
		RespondNotFound(c, "Receipt not found")
		return
	}

	RespondOK(c, mapReceiptToResponse(res))
}

// GetByLoanID retrieves paginated repayment history for a loan
func (h *RepaymentHandler) GetByLoanID(c *gin.Context) {
	loanIDParam := c.Param("id")
	loanID, err := uuid.Parse(loanIDParam)
	if err != nil {
		h.logger.Error("Invalid loan ID", "loan_id", loanIDParam, "error", err)
		RespondBadRequest(c, "Invalid loan ID")
		return
	}

	var pagination PaginationParams
	if err := c.ShouldBindQuery(&pagination); err != nil {
		h.logger.Error("Invalid pagination parameters", "error", err)
		RespondBadRequest(c, "Invalid pagination parameters")
		return
	}

	receipts, total, err := h.repaymentService.GetReceiptsByLoanID(
		c.Request.Context(),
		loanID,
		pagination.Page,
		pagination.PerPage,
	)
	if err != nil {
		h.logger.Error("Failed to get receipts", "loan_id", loanIDParam, "error", err)
		RespondInternalError(c)
		return
	}

	var responses []ReceiptResponse
	for _, res := range receipts {
		responses = append(responses, mapReceiptToResponse(res))
	}

	RespondWithPaginatedData(c, http.StatusOK, responses, pagination.Page, pagination.PerPage, int(total))
}

// mapReceiptToResponse maps a repayment receipt to a receipt response DTO
func mapReceiptToResponse(res *receipt.Receipt) ReceiptResponse {
	response := ReceiptResponse{
		RepaymentID:      res.RepaymentID.String(),
		LoanID:           res.LoanID.String(),
		Amount:           res.Amount.StringFixed(2),
		PenaltyPaid:      res.PenaltyPaid.StringFixed(2),
		InterestPaid:     res.InterestPaid.StringFixed(2),
		PrincipalPaid:    res.PrincipalPaid.StringFixed(2),
		RemainingBalance: res.RemainingBalance.StringFixed(2),
		LoanClosed:       res.LoanClosed,
		NextPaymentDue:   res.NextPaymentDue.StringFixed(2),
		Method:           res.Method,
		Reference:        res.Reference,
		Status:           string(res.Status),
		FailureReason:    res.FailureReason,
		CreatedAt:        res.CreatedAt.Format(time.RFC3339),
	}

	if res.NextPaymentDate != nil {
		response.NextPaymentDate = res.NextPaymentDate.Format(time.RFC3339)
	}
	if res.ProcessedAt != nil {
		response.ProcessedAt = res.ProcessedAt.Format(time.RFC3339)
	}

	return response
}
