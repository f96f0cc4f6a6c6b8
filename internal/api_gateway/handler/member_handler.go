package handler

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lendhub/loan-engine/internal/api_gateway/service"
	"github.com/lendhub/loan-engine/internal/domain/member"
	"github.com/shopspring/decimal"
)

// MemberHandler handles HTTP requests for member operations
type MemberHandler struct {
	memberService service.MemberService
	logger        *slog.Logger
}

// NewMemberHandler creates a new member handler
func NewMemberHandler(logger *slog.Logger, memberService service.MemberService) *MemberHandler {
	return &MemberHandler{
		memberService: memberService,
		logger:        logger,
	}
}

// Create handles registration of a new member with an opening equity balance
func (h *MemberHandler) Create(c *gin.Context) {
	var req CreateMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	equity, err := decimal.NewFromString(req.Equity)
	if err != nil || equity.IsNegative() {
		h.logger.Error("Invalid equity amount", "equity", req.Equity)
		RespondBadRequest(c, "Invalid equity amount")
		return
	}

	m, err := h.memberService.CreateMember(c.Request.Context(), req.Name, req.MemberNumber, equity)
	if err != nil {
		if errors.Is(err, member.ErrEmptyName) || errors.Is(err, member.ErrInvalidAmount) {
			RespondBadRequest(c, err.Error())
			return
		}
		h.logger.Error("Failed to create member", "error", err)
		RespondInternalError(c)
		return
	}

	response := mapMemberToResponse(m)
	RespondCreated(c, response)
}

// GetByID retrieves a member by its ID, returning 404 if not found
func (h *MemberHandler) GetByID(c *gin.Context) {
	idParam := c.Param("id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		h.logger.Error("Invalid member ID", "id", idParam, "error", err)
		RespondBadRequest(c, "Invalid member ID")
		return
	}

	m, err := h.memberService.GetMemberByID(c.Request.Context(), id)
	if err != nil {
		var memberNotFound member.ErrMemberNotFound
		if errors.As(err, &memberNotFound) {
			RespondNotFound(c, "Member not found")
			return
		}
		h.logger.Error("Failed to get member", "id", idParam, "error", err)
		RespondInternalError(c)
		return
	}

	response := mapMemberToResponse(m)
	RespondOK(c, response)
}

// mapMemberToResponse maps a member entity to a member response DTO
func mapMemberToResponse(m *member.Member) MemberResponse {
	return MemberResponse{
		ID:           m.ID.String(),
		Name:         m.Name,
		MemberNumber: m.MemberNumber,
		FreeEquity:   m.FreeEquity.StringFixed(2),
		LockedEquity: m.LockedEquity.StringFixed(2),
		TotalEquity:  m.TotalEquity().StringFixed(2),
		CreatedAt:    m.CreatedAt.Format(time.RFC3339),
		UpdatedAt:    m.UpdatedAt.Format(time.RFC3339),
	}
}
