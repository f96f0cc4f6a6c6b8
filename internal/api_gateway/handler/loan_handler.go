package handler

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lendhub/loan-engine/internal/api_gateway/service"
	"github.com/lendhub/loan-engine/internal/domain/loan"
	"github.com/lendhub/loan-engine/internal/domain/shared"
	"github.com/lendhub/loan-engine/internal/lending/amortization"
	"github.com/lendhub/loan-engine/internal/lending/capacity"
	"github.com/shopspring/decimal"
)

// LoanHandler handles HTTP requests for loan lifecycle operations
type LoanHandler struct {
	loanService service.LoanService
	logger      *slog.Logger
}

// NewLoanHandler creates a new loan handler
func NewLoanHandler(logger *slog.Logger, loanService service.LoanService) *LoanHandler {
	return &LoanHandler{
		loanService: loanService,
		logger:      logger,
	}
}

// PreviewSchedule computes the EMI and amortization schedule for the given
// parameters without creating anything
func (h *LoanHandler) PreviewSchedule(c *gin.Context) {
	var req SchedulePreviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	principal, err := decimal.NewFromString(req.Principal)
	if err != nil {
		RespondBadRequest(c, "Invalid principal amount")
		return
	}
	rate, err := decimal.NewFromString(req.AnnualRatePct)
	if err != nil {
		RespondBadRequest(c, "Invalid annual rate")
		return
	}

	startDate := time.Now()
	if req.StartDate != "" {
		startDate, err = time.Parse("2006-01-02", req.StartDate)
		if err != nil {
			RespondBadRequest(c, "Invalid start date, expected YYYY-MM-DD")
			return
		}
	}

	emi, rows, err := h.loanService.PreviewSchedule(principal, rate, req.TermMonths, startDate)
	if err != nil {
		if errors.Is(err, amortization.ErrInvalidParameters) {
			RespondBadRequest(c, err.Error())
			return
		}
		h.logger.Error("Failed to compute schedule preview", "error", err)
		RespondInternalError(c)
		return
	}

	response := SchedulePreviewResponse{
		EMI:      emi.StringFixed(2),
		Schedule: make([]ScheduleRowResponse, 0, len(rows)),
	}
	for _, row := range rows {
		response.Schedule = append(response.Schedule, mapScheduleRowToResponse(row))
	}

	RespondOK(c, response)
}

// Disburse creates a loan with its schedule and register serial, consuming
// monthly threshold capacity
func (h *LoanHandler) Disburse(c *gin.Context) {
	var req DisburseLoanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	memberID, err := uuid.Parse(req.MemberID)
	if err != nil {
		RespondBadRequest(c, "Invalid member ID")
		return
	}
	applicationID, err := uuid.Parse(req.ApplicationID)
	if err != nil {
		RespondBadRequest(c, "Invalid application ID")
		return
	}
	principal, err := decimal.NewFromString(req.Principal)
	if err != nil {
		RespondBadRequest(c, "Invalid principal amount")
		return
	}
	rate, err := decimal.NewFromString(req.AnnualRatePct)
	if err != nil {
		RespondBadRequest(c, "Invalid annual rate")
		return
	}

	l, err := h.loanService.Disburse(c.Request.Context(), service.DisburseParams{
		MemberID:      memberID,
		ApplicationID: applicationID,
		Principal:     principal,
		AnnualRatePct: rate,
		TermMonths:    req.TermMonths,
	})
	if err != nil {
		switch {
		case errors.Is(err, amortization.ErrInvalidParameters):
			RespondBadRequest(c, err.Error())
		case errors.Is(err, capacity.ErrThresholdExceeded),
			errors.Is(err, service.ErrAllocationNotReady),
			errors.Is(err, service.ErrAllocationAmountMismatch):
			RespondConflict(c, err.Error())
		default:
			h.logger.Error("Failed to disburse loan", "application_id", req.ApplicationID, "error", err)
			RespondInternalError(c)
		}
		return
	}

	RespondCreated(c, mapLoanToResponse(l))
}

// GetByID retrieves a loan by its ID, returning 404 if not found
func (h *LoanHandler) GetByID(c *gin.Context) {
	idParam := c.Param("id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		h.logger.Error("Invalid loan ID", "id", idParam, "error", err)
		RespondBadRequest(c, "Invalid loan ID")
		return
	}

	l, err := h.loanService.GetLoanByID(c.Request.Context(), id)
	if err != nil {
		var loanNotFound loan.ErrLoanNotFound
		if errors.As(err, &loanNotFound) {
			RespondNotFound(c, "Loan not found")
			return
		}
		h.logger.Error("Failed to get loan", "id", idParam, "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, mapLoanToResponse(l))
}

// GetSchedule retrieves the persisted installment schedule for a loan
func (h *LoanHandler) GetSchedule(c *gin.Context) {
	idParam := c.Param("id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		h.logger.Error("Invalid loan ID", "id", idParam, "error", err)
		RespondBadRequest(c, "Invalid loan ID")
		return
	}

	items, err := h.loanService.GetSchedule(c.Request.Context(), id)
	if err != nil {
		var loanNotFound loan.ErrLoanNotFound
		if errors.As(err, &loanNotFound) {
			RespondNotFound(c, "Loan not found")
			return
		}
		h.logger.Error("Failed to get schedule", "loan_id", idParam, "error", err)
		RespondInternalError(c)
		return
	}

	response := make([]ScheduleItemResponse, 0, len(items))
	for _, item := range items {
		response = append(response, ScheduleItemResponse{
			ID:              item.ID.String(),
			InstallmentNo:   item.InstallmentNo,
			DueDate:         item.DueDate.Format("2006-01-02"),
			PrincipalAmount: item.PrincipalAmount.StringFixed(2),
			InterestAmount:  item.InterestAmount.StringFixed(2),
			PaidAmount:      item.PaidAmount.StringFixed(2),
			Status:          string(item.Status),
		})
	}

	RespondOK(c, response)
}

// QuoteEarlyRepayment prices a lump-sum prepayment against a live loan
func (h *LoanHandler) QuoteEarlyRepayment(c *gin.Context) {
	idParam := c.Param("id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		h.logger.Error("Invalid loan ID", "id", idParam, "error", err)
		RespondBadRequest(c, "Invalid loan ID")
		return
	}

	var req EarlyRepaymentQuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		RespondBadRequest(c, "Invalid repayment amount")
		return
	}

	quote, err := h.loanService.QuoteEarlyRepayment(c.Request.Context(), id, amount)
	if err != nil {
		var loanNotFound loan.ErrLoanNotFound
		switch {
		case errors.As(err, &loanNotFound):
			RespondNotFound(c, "Loan not found")
		case errors.Is(err, shared.ErrInvalidLoanState):
			RespondConflict(c, "Loan is not in a payable state")
		case errors.Is(err, amortization.ErrInvalidParameters):
			RespondBadRequest(c, err.Error())
		default:
			h.logger.Error("Failed to quote early repayment", "loan_id", idParam, "error", err)
			RespondInternalError(c)
		}
		return
	}

	RespondOK(c, EarlyRepaymentQuoteResponse{
		InterestSaved:  quote.InterestSaved.StringFixed(2),
		NewOutstanding: quote.NewOutstanding.StringFixed(2),
		NewEMI:         quote.NewEMI.StringFixed(2),
		FullyPaid:      quote.FullyPaid,
	})
}

// mapLoanToResponse maps a loan entity to a loan response DTO
func mapLoanToResponse(l *loan.Loan) LoanResponse {
	response := LoanResponse{
		ID:             l.ID.String(),
		MemberID:       l.MemberID.String(),
		ApplicationID:  l.ApplicationID.String(),
		SerialNumber:   l.SerialNumber,
		Principal:      l.Principal.StringFixed(2),
		AnnualRatePct:  l.AnnualRatePct.String(),
		TermMonths:     l.TermMonths,
		EMI:            l.EMI.StringFixed(2),
		TotalRepayable: l.TotalRepayable.StringFixed(2),
		Outstanding:    l.Outstanding.StringFixed(2),
		PrincipalPaid:  l.PrincipalPaid.StringFixed(2),
		InterestPaid:   l.InterestPaid.StringFixed(2),
		PenaltyPaid:    l.PenaltyPaid.StringFixed(2),
		Classification: string(l.Classification),
		DaysInArrears:  l.DaysInArrears,
		ArrearsAmount:  l.ArrearsAmount.StringFixed(2),
		Status:         string(l.Status),
		CreatedAt:      l.CreatedAt.Format(time.RFC3339),
	}

	if l.DisbursedAt != nil {
		response.DisbursedAt = l.DisbursedAt.Format(time.RFC3339)
	}
	if l.NextPaymentDate != nil {
		response.NextPaymentDate = l.NextPaymentDate.Format(time.RFC3339)
	}
	if l.LastPaymentDate != nil {
		response.LastPaymentDate = l.LastPaymentDate.Format(time.RFC3339)
	}

	return response
}

// mapScheduleRowToResponse maps a computed schedule row to its response DTO
func mapScheduleRowToResponse(row amortization.ScheduleRow) ScheduleRowResponse {
	return ScheduleRowResponse{
		Installment:         row.Installment,
		DueDate:             row.DueDate.Format("2006-01-02"),
		OpeningBalance:      row.OpeningBalance.StringFixed(2),
		EMI:                 row.EMI.StringFixed(2),
		InterestAmount:      row.InterestAmount.StringFixed(2),
		PrincipalAmount:     row.PrincipalAmount.StringFixed(2),
		ClosingBalance:      row.ClosingBalance.StringFixed(2),
		CumulativeInterest:  row.CumulativeInterest.StringFixed(2),
		CumulativePrincipal: row.CumulativePrincipal.StringFixed(2),
	}
}
