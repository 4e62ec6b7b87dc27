package handlers

import (
	"net/http"
	"strconv"

	"referral-ledger/internal/auth"
	"referral-ledger/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type AdminHandler struct {
	adminService      *services.AdminService
	withdrawalService *services.WithdrawalService
	referralService   *services.ReferralService
}

func NewAdminHandler(
	adminService *services.AdminService,
	withdrawalService *services.WithdrawalService,
	referralService *services.ReferralService,
) *AdminHandler {
	return &AdminHandler{
		adminService:      adminService,
		withdrawalService: withdrawalService,
		referralService:   referralService,
	}
}

// GetStats returns the ledger totals
func (h *AdminHandler) GetStats(c *gin.Context) {
	stats, err := h.adminService.Stats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    stats,
	})
}

// GetPendingWithdrawals returns the requests waiting on a decision
func (h *AdminHandler) GetPendingWithdrawals(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	pending, err := h.adminService.PendingWithdrawals(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    pending,
		"count":   len(pending),
	})
}

// ResolveWithdrawal approves or rejects a pending request
func (h *AdminHandler) ResolveWithdrawal(c *gin.Context) {
	requestID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request ID"})
		return
	}

	var req ResolveWithdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	ctx := c.Request.Context()
	withdrawal, err := h.withdrawalService.ResolveWithdrawal(ctx, requestID, req.status())
	if err != nil {
		respondError(c, err)
		return
	}

	h.adminService.LogAdminAction(ctx, auth.GetAdminActor(c), "RESOLVE_WITHDRAWAL", "withdrawal_request",
		requestID.String(), map[string]interface{}{
			"decision":   withdrawal.Status,
			"account_id": withdrawal.AccountID,
			"amount":     withdrawal.Amount,
			"refunded":   withdrawal.Refunded,
		})

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    withdrawal,
	})
}

// InvalidateReferral marks a referral as fraudulent
func (h *AdminHandler) InvalidateReferral(c *gin.Context) {
	referredID := c.Param("referred_id")

	ctx := c.Request.Context()
	edge, err := h.referralService.InvalidateReferral(ctx, referredID)
	if err != nil {
		respondError(c, err)
		return
	}

	h.adminService.LogAdminAction(ctx, auth.GetAdminActor(c), "INVALIDATE_REFERRAL", "referral_edge",
		referredID, map[string]interface{}{
			"referrer_id": edge.ReferrerID,
		})

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    edge,
	})
}

// GetAdminLogs returns admin activity logs
func (h *AdminHandler) GetAdminLogs(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	logs, err := h.adminService.GetAdminLogs(c.Request.Context(), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch logs"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    logs,
		"count":   len(logs),
	})
}
