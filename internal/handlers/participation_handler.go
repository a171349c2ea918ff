package handlers

import (
	"net/http"

	"betting-pool/internal/models"
	"betting-pool/internal/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ParticipationHandler struct {
	participation *services.ParticipationService
	log           *zap.Logger
}

func NewParticipationHandler(participation *services.ParticipationService, log *zap.Logger) *ParticipationHandler {
	return &ParticipationHandler{participation: participation, log: log}
}

// GetParticipation returns the caller's stake on a bet
func (h *ParticipationHandler) GetParticipation(c *gin.Context) {
	id, ok := parseBetID(c)
	if !ok {
		return
	}

	p, err := h.participation.GetParticipation(c.Request.Context(), id, actorFrom(c).UserID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": p})
}

// Participate places the caller's stake
func (h *ParticipationHandler) Participate(c *gin.Context) {
	id, ok := parseBetID(c)
	if !ok {
		return
	}

	var req models.ParticipationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "option_id and amount are required")
		return
	}

	p, err := h.participation.Participate(c.Request.Context(), id, actorFrom(c).UserID, req.OptionID, req.Amount)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "data": p})
}

// EditParticipation amends the caller's stake
func (h *ParticipationHandler) EditParticipation(c *gin.Context) {
	id, ok := parseBetID(c)
	if !ok {
		return
	}

	var req models.ParticipationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "option_id and amount are required")
		return
	}

	p, err := h.participation.EditParticipation(c.Request.Context(), id, actorFrom(c).UserID, req.OptionID, req.Amount)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": p})
}
