package handlers

import (
	"net/http"

	"betting-pool/internal/models"
	"betting-pool/internal/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type BetHandler struct {
	bets       *services.BetService
	pool       *services.PoolService
	settlement *services.SettlementService
	log        *zap.Logger
}

func NewBetHandler(bets *services.BetService, pool *services.PoolService, settlement *services.SettlementService, log *zap.Logger) *BetHandler {
	return &BetHandler{bets: bets, pool: pool, settlement: settlement, log: log}
}

// ListBets returns bets, newest first
func (h *BetHandler) ListBets(c *gin.Context) {
	limit, offset := pagination(c)
	page, err := h.bets.ListBets(c.Request.Context(), models.BetStatus(c.Query("status")), limit, offset)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    page.Bets,
		"total":   page.Total,
		"limit":   page.Limit,
		"offset":  page.Offset,
	})
}

// GetBet returns one bet with its current pool
func (h *BetHandler) GetBet(c *gin.Context) {
	id, ok := parseBetID(c)
	if !ok {
		return
	}

	bet, err := h.bets.GetBet(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	stats, err := h.pool.GetPoolStats(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"bet":  bet,
			"pool": stats,
		},
	})
}

// GetPoolStats returns the pool breakdown of a bet
func (h *BetHandler) GetPoolStats(c *gin.Context) {
	id, ok := parseBetID(c)
	if !ok {
		return
	}

	stats, err := h.pool.GetPoolStats(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": stats})
}

// CreateBet creates a bet (admin)
func (h *BetHandler) CreateBet(c *gin.Context) {
	var req models.CreateBetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	bet, err := h.bets.CreateBet(c.Request.Context(), actorFrom(c), req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "data": bet})
}

// UpdateBet edits title, description or status (admin)
func (h *BetHandler) UpdateBet(c *gin.Context) {
	id, ok := parseBetID(c)
	if !ok {
		return
	}

	var req models.UpdateBetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	bet, err := h.bets.UpdateBet(c.Request.Context(), actorFrom(c), id, req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": bet})
}

// UpdateCommission changes the commission rate (admin)
func (h *BetHandler) UpdateCommission(c *gin.Context) {
	id, ok := parseBetID(c)
	if !ok {
		return
	}

	var req models.UpdateCommissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	bet, err := h.bets.UpdateCommission(c.Request.Context(), actorFrom(c), id, req.CommissionRate)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": bet})
}

// CompleteBet settles a bet with the winning option (admin)
func (h *BetHandler) CompleteBet(c *gin.Context) {
	id, ok := parseBetID(c)
	if !ok {
		return
	}

	var req models.CompleteBetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "winning_option_id is required")
		return
	}

	result, err := h.settlement.Settle(c.Request.Context(), actorFrom(c), id, req.WinningOptionID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": result})
}

// DeleteBet removes a bet without participations (admin)
func (h *BetHandler) DeleteBet(c *gin.Context) {
	id, ok := parseBetID(c)
	if !ok {
		return
	}

	if err := h.bets.DeleteBet(c.Request.Context(), actorFrom(c), id); err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
