package handler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lendhub/loan-engine/internal/api_gateway/service"
	"github.com/lendhub/loan-engine/internal/domain/member"
	"github.com/shopspring/decimal"
)

// GuarantorHandler handles HTTP requests for guarantor equity operations
type GuarantorHandler struct {
	guarantorService service.GuarantorService
	logger           *slog.Logger
}

// NewGuarantorHandler creates a new guarantor handler
func NewGuarantorHandler(logger *slog.Logger, guarantorService service.GuarantorService) *GuarantorHandler {
	return &GuarantorHandler{
		guarantorService: guarantorService,
		logger:           logger,
	}
}

// CheckEligibility reports whether a member's free equity fully covers the
// requested guarantee amount
func (h *GuarantorHandler) CheckEligibility(c *gin.Context) {
	var req EligibilityCheckRequest
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
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		RespondBadRequest(c, "Invalid guarantee amount")
		return
	}

	eligible, err := h.guarantorService.CheckEligibility(c.Request.Context(), memberID, amount)
	if err != nil {
		var memberNotFound member.ErrMemberNotFound
		switch {
		case errors.As(err, &memberNotFound):
			RespondNotFound(c, "Member not found")
		case errors.Is(err, member.ErrInvalidAmount):
			RespondBadRequest(c, err.Error())
		default:
			h.logger.Error("Failed to check eligibility", "member_id", req.MemberID, "error", err)
			RespondInternalError(c)
		}
		return
	}

	RespondOK(c, gin.H{"eligible": eligible})
}

// Add attaches a guarantor with pending consent to a loan application
func (h *GuarantorHandler) Add(c *gin.Context) {
	var req AddGuarantorRequest
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
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		RespondBadRequest(c, "Invalid guarantee amount")
		return
	}

	g, err := h.guarantorService.AddGuarantor(c.Request.Context(), memberID, applicationID, amount)
	if err != nil {
		var memberNotFound member.ErrMemberNotFound
		switch {
		case errors.As(err, &memberNotFound):
			RespondNotFound(c, "Member not found")
		case errors.Is(err, member.ErrInsufficientEquity):
			RespondConflict(c, "Member has insufficient free equity for this guarantee")
		case errors.Is(err, member.ErrInvalidAmount):
			RespondBadRequest(c, err.Error())
		default:
			h.logger.Error("Failed to add guarantor", "member_id", req.MemberID, "error", err)
			RespondInternalError(c)
		}
		return
	}

	RespondCreated(c, mapGuarantorToResponse(g))
}

// Lock locks the guarantor's equity and approves their consent
func (h *GuarantorHandler) Lock(c *gin.Context) {
	h.transition(c, "lock", h.guarantorService.Lock)
}

// Unlock releases the guarantor's locked equity back to free equity
func (h *GuarantorHandler) Unlock(c *gin.Context) {
	h.transition(c, "unlock", h.guarantorService.Unlock)
}

// Remove detaches a guarantor that holds no locked equity
func (h *GuarantorHandler) Remove(c *gin.Context) {
	idParam := c.Param("id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		h.logger.Error("Invalid guarantor ID", "id", idParam, "error", err)
		RespondBadRequest(c, "Invalid guarantor ID")
		return
	}

	if err := h.guarantorService.RemoveGuarantor(c.Request.Context(), id); err != nil {
		var guarantorNotFound member.ErrGuarantorNotFound
		switch {
		case errors.As(err, &guarantorNotFound):
			RespondNotFound(c, "Guarantor not found")
		case errors.Is(err, member.ErrGuarantorNotRemovable):
			RespondConflict(c, "Guarantor with approved consent or locked equity cannot be removed")
		default:
			h.logger.Error("Failed to remove guarantor", "id", idParam, "error", err)
			RespondInternalError(c)
		}
		return
	}

	RespondNoContent(c)
}

// transition runs a lock or unlock state change against a guarantor ID
func (h *GuarantorHandler) transition(c *gin.Context, op string, fn func(ctx context.Context, guarantorID uuid.UUID) error) {
	idParam := c.Param("id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		h.logger.Error("Invalid guarantor ID", "id", idParam, "error", err)
		RespondBadRequest(c, "Invalid guarantor ID")
		return
	}

	if err := fn(c.Request.Context(), id); err != nil {
		var guarantorNotFound member.ErrGuarantorNotFound
		var memberNotFound member.ErrMemberNotFound
		switch {
		case errors.As(err, &guarantorNotFound):
			RespondNotFound(c, "Guarantor not found")
		case errors.As(err, &memberNotFound):
			RespondNotFound(c, "Member not found")
		case errors.Is(err, member.ErrInsufficientEquity):
			RespondConflict(c, "Member has insufficient free equity for this guarantee")
		case errors.Is(err, member.ErrNothingLocked):
			RespondConflict(c, "No equity locked for this guarantor")
		default:
			h.logger.Error("Failed to "+op+" guarantor equity", "id", idParam, "error", err)
			RespondInternalError(c)
		}
		return
	}

	RespondOK(c, gin.H{"status": "ok"})
}

// mapGuarantorToResponse maps a guarantor entity to a guarantor response DTO
func mapGuarantorToResponse(g *member.Guarantor) GuarantorResponse {
	return GuarantorResponse{
		ID:              g.ID.String(),
		MemberID:        g.MemberID.String(),
		ApplicationID:   g.ApplicationID.String(),
		GuaranteeAmount: g.GuaranteeAmount.StringFixed(2),
		ConsentStatus:   string(g.ConsentStatus),
		LockedEquity:    g.LockedEquity.StringFixed(2),
		CreatedAt:       g.CreatedAt.Format(time.RFC3339),
	}
}
