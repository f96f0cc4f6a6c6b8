package handler

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lendhub/loan-engine/internal/api_gateway/service"
	"github.com/lendhub/loan-engine/internal/domain/threshold"
	"github.com/lendhub/loan-engine/internal/lending/capacity"
	"github.com/shopspring/decimal"
)

// ThresholdHandler handles HTTP requests for monthly capacity operations
type ThresholdHandler struct {
	thresholdService service.ThresholdService
	logger           *slog.Logger
}

// NewThresholdHandler creates a new threshold handler
func NewThresholdHandler(logger *slog.Logger, thresholdService service.ThresholdService) *ThresholdHandler {
	return &ThresholdHandler{
		thresholdService: thresholdService,
		logger:           logger,
	}
}

// Check reports whether an amount fits the given month's capacity, searching
// forward when it does not. Nothing is reserved.
func (h *ThresholdHandler) Check(c *gin.Context) {
	var params ThresholdCheckParams
	if err := c.ShouldBindQuery(&params); err != nil {
		h.logger.Error("Invalid query parameters", "error", err)
		RespondBadRequest(c, "Invalid query parameters: "+err.Error())
		return
	}

	amount, err := decimal.NewFromString(params.Amount)
	if err != nil {
		RespondBadRequest(c, "Invalid amount")
		return
	}

	month, year := params.Month, params.Year
	if month == 0 || year == 0 {
		now := time.Now()
		month, year = int(now.Month()), now.Year()
	}

	result, err := h.thresholdService.Check(c.Request.Context(), amount, month, year)
	if err != nil {
		if errors.Is(err, threshold.ErrInvalidAmount) {
			RespondBadRequest(c, err.Error())
			return
		}
		h.logger.Error("Failed to check threshold capacity", "month", month, "year", year, "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, ThresholdCheckResponse{
		Fits:      result.Fits,
		Month:     result.Month,
		Year:      result.Year,
		Deferred:  result.Deferred,
		Remaining: result.Remaining.StringFixed(2),
	})
}

// Allocate reserves capacity for an approved application, queuing it in a
// future month when the current month is full
func (h *ThresholdHandler) Allocate(c *gin.Context) {
	var req AllocateCapacityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	applicationID, err := uuid.Parse(req.ApplicationID)
	if err != nil {
		RespondBadRequest(c, "Invalid application ID")
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		RespondBadRequest(c, "Invalid amount")
		return
	}

	alloc, err := h.thresholdService.Allocate(c.Request.Context(), applicationID, amount, time.Now())
	if err != nil {
		switch {
		case errors.Is(err, threshold.ErrInvalidAmount):
			RespondBadRequest(c, err.Error())
		case errors.Is(err, capacity.ErrThresholdExceeded):
			RespondConflict(c, "No month within the allocation horizon has capacity")
		default:
			h.logger.Error("Failed to allocate capacity", "application_id", req.ApplicationID, "error", err)
			RespondInternalError(c)
		}
		return
	}

	RespondCreated(c, mapAllocationToResponse(alloc))
}

// Release returns reserved capacity when an application is rejected or
// withdrawn before disbursement
func (h *ThresholdHandler) Release(c *gin.Context) {
	idParam := c.Param("application_id")
	applicationID, err := uuid.Parse(idParam)
	if err != nil {
		h.logger.Error("Invalid application ID", "application_id", idParam, "error", err)
		RespondBadRequest(c, "Invalid application ID")
		return
	}

	if err := h.thresholdService.Release(c.Request.Context(), applicationID); err != nil {
		var allocNotFound threshold.ErrAllocationNotFound
		if errors.As(err, &allocNotFound) {
			RespondNotFound(c, "Allocation not found")
			return
		}
		h.logger.Error("Failed to release capacity", "application_id", idParam, "error", err)
		RespondInternalError(c)
		return
	}

	RespondNoContent(c)
}

// mapAllocationToResponse maps an allocation to its response DTO
func mapAllocationToResponse(a *threshold.Allocation) AllocationResponse {
	return AllocationResponse{
		ID:            a.ID.String(),
		ApplicationID: a.ApplicationID.String(),
		Amount:        a.Amount.StringFixed(2),
		Month:         a.Month,
		Year:          a.Year,
		Status:        string(a.Status),
		ApprovedAt:    a.ApprovedAt.Format(time.RFC3339),
	}
}
