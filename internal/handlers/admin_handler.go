package handlers

import (
	"net/http"
	"strconv"
	"time"

	"betting-pool/internal/models"
	"betting-pool/internal/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AdminHandler handles admin-related HTTP requests
type AdminHandler struct {
	adminService          *services.AdminService
	ledgerService         *services.LedgerService
	reconciliationService *services.ReconciliationService
	log                   *zap.Logger
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(adminService *services.AdminService, ledgerService *services.LedgerService,
	reconciliationService *services.ReconciliationService, log *zap.Logger) *AdminHandler {
	return &AdminHandler{
		adminService:          adminService,
		ledgerService:         ledgerService,
		reconciliationService: reconciliationService,
		log:                   log,
	}
}

// GetStats returns platform totals. ?days= sets the recent window (default 7).
func (h *AdminHandler) GetStats(c *gin.Context) {
	days, err := strconv.Atoi(c.DefaultQuery("days", "7"))
	if err != nil || days < 0 {
		badRequest(c, "Invalid days")
		return
	}

	since := time.Now().AddDate(0, 0, -days)
	stats, err := h.adminService.GetPlatformStats(c.Request.Context(), actorFrom(c), since)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": stats})
}

// GetAnalytics returns monthly trends. ?months= sets the window (default 6).
func (h *AdminHandler) GetAnalytics(c *gin.Context) {
	months, err := strconv.Atoi(c.DefaultQuery("months", "6"))
	if err != nil || months < 1 {
		badRequest(c, "Invalid months")
		return
	}

	analytics, err := h.adminService.GetAnalytics(c.Request.Context(), actorFrom(c), months)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": analytics})
}

// ListUsers returns users matching ?search=
func (h *AdminHandler) ListUsers(c *gin.Context) {
	limit, offset := pagination(c)
	page, err := h.adminService.ListUsers(c.Request.Context(), actorFrom(c), c.Query("search"), limit, offset)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    page.Users,
		"total":   page.Total,
		"limit":   page.Limit,
		"offset":  page.Offset,
	})
}

// DeactivateUser blocks a user from further activity
func (h *AdminHandler) DeactivateUser(c *gin.Context) {
	if err := h.adminService.DeactivateUser(c.Request.Context(), actorFrom(c), c.Param("id")); err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// AdjustBalance credits or debits a user's balance
func (h *AdminHandler) AdjustBalance(c *gin.Context) {
	var req models.AdjustBalanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "type (credit or debit), amount and description are required")
		return
	}

	result, err := h.ledgerService.AdjustBalance(c.Request.Context(), actorFrom(c), c.Param("id"), services.AdjustBalanceInput{
		Type:        req.Type,
		Amount:      req.Amount,
		Description: req.Description,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"balance_before": result.BalanceBefore,
			"balance_after":  result.BalanceAfter,
			"entry":          result.Entry,
		},
	})
}

// Reconcile runs the ledger audit on demand
func (h *AdminHandler) Reconcile(c *gin.Context) {
	report, err := h.reconciliationService.RunAsAdmin(c.Request.Context(), actorFrom(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"ok":      report.OK(),
		"data":    report,
	})
}

// GetAdminLogs returns the admin audit trail
func (h *AdminHandler) GetAdminLogs(c *gin.Context) {
	limit, offset := pagination(c)
	logs, err := h.adminService.GetAdminLogs(c.Request.Context(), actorFrom(c), limit, offset)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    logs,
		"limit":   limit,
		"offset":  offset,
	})
}
