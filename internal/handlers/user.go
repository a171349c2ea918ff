package handlers

import (
	"net/http"

	"betting-pool/internal/models"
	"betting-pool/internal/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// UserHandler handles user-related endpoints
type UserHandler struct {
	userService   *services.UserService
	ledgerService *services.LedgerService
	log           *zap.Logger
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(userService *services.UserService, ledgerService *services.LedgerService, log *zap.Logger) *UserHandler {
	return &UserHandler{
		userService:   userService,
		ledgerService: ledgerService,
		log:           log,
	}
}

// GetProfile returns the current user's profile
func (h *UserHandler) GetProfile(c *gin.Context) {
	user, err := h.userService.GetUser(c.Request.Context(), actorFrom(c).UserID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user})
}

// UpdateProfile changes the current user's display name
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	var req models.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "name is required")
		return
	}

	user, err := h.userService.UpdateProfile(c.Request.Context(), actorFrom(c).UserID, req.Name)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user})
}

// GetPaymentHistory returns the current user's ledger, newest first
func (h *UserHandler) GetPaymentHistory(c *gin.Context) {
	limit, offset := pagination(c)
	page, err := h.ledgerService.GetLedger(c.Request.Context(), actorFrom(c).UserID, limit, offset)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    page.Entries,
		"total":   page.Total,
		"limit":   page.Limit,
		"offset":  page.Offset,
	})
}

// GetParticipations lists the bets the current user has a stake in
func (h *UserHandler) GetParticipations(c *gin.Context) {
	participations, err := h.userService.GetUserParticipations(c.Request.Context(), actorFrom(c).UserID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": participations})
}
