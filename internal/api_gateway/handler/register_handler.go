package handler

import (
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lendhub/loan-engine/internal/api_gateway/service"
	regdomain "github.com/lendhub/loan-engine/internal/domain/register"
)

// RegisterHandler handles HTTP requests for loan register queries
type RegisterHandler struct {
	registerService service.RegisterService
	logger          *slog.Logger
}

// NewRegisterHandler creates a new register handler
func NewRegisterHandler(logger *slog.Logger, registerService service.RegisterService) *RegisterHandler {
	return &RegisterHandler{
		registerService: registerService,
		logger:          logger,
	}
}

// GetByLoanID retrieves the register entry for a loan, returns 404 if the
// loan was never registered
func (h *RegisterHandler) GetByLoanID(c *gin.Context) {
	idParam := c.Param("id")
	loanID, err := uuid.Parse(idParam)
	if err != nil {
		h.logger.Error("Invalid loan ID", "loan_id", idParam, "error", err)
		RespondBadRequest(c, "Invalid loan ID")
		return
	}

	entry, err := h.registerService.Entry(c.Request.Context(), loanID)
	if err != nil {
		var entryNotFound regdomain.ErrEntryNotFound
		if errors.As(err, &entryNotFound) {
			RespondNotFound(c, "Register entry not found")
			return
		}
		h.logger.Error("Failed to get register entry", "loan_id", idParam, "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, mapEntryToResponse(entry))
}

// ListByYear retrieves all register entries for a year in sequence order
func (h *RegisterHandler) ListByYear(c *gin.Context) {
	year, ok := h.parseYear(c)
	if !ok {
		return
	}

	entries, err := h.registerService.Entries(c.Request.Context(), year)
	if err != nil {
		h.logger.Error("Failed to list register entries", "year", year, "error", err)
		RespondInternalError(c)
		return
	}

	responses := make([]RegisterEntryResponse, 0, len(entries))
	for _, entry := range entries {
		responses = append(responses, mapEntryToResponse(entry))
	}

	RespondOK(c, responses)
}

// Stats retrieves yearly register statistics broken down by loan status
func (h *RegisterHandler) Stats(c *gin.Context) {
	year, ok := h.parseYear(c)
	if !ok {
		return
	}

	stats, err := h.registerService.Stats(c.Request.Context(), year)
	if err != nil {
		h.logger.Error("Failed to get register stats", "year", year, "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, RegisterStatsResponse{
		Year:       stats.Year,
		TotalLoans: stats.TotalLoans,
		ByStatus:   stats.ByStatus,
	})
}

func (h *RegisterHandler) parseYear(c *gin.Context) (int, bool) {
	yearParam := c.Param("year")
	year, err := strconv.Atoi(yearParam)
	if err != nil || year < 2000 || year > 2200 {
		h.logger.Error("Invalid register year", "year", yearParam)
		RespondBadRequest(c, "Invalid year")
		return 0, false
	}
	return year, true
}

// mapEntryToResponse maps a register entry to its response DTO
func mapEntryToResponse(entry *regdomain.Entry) RegisterEntryResponse {
	return RegisterEntryResponse{
		ID:           entry.ID.String(),
		LoanID:       entry.LoanID.String(),
		Year:         entry.Year,
		Sequence:     entry.Sequence,
		SerialNumber: entry.SerialNumber,
		RegisteredAt: entry.RegisteredAt.Format(time.RFC3339),
	}
}
