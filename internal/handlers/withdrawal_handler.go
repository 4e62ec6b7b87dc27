package handlers

import (
	"net/http"
	"strconv"

	"referral-ledger/internal/auth"
	"referral-ledger/internal/services"

	"github.com/gin-gonic/gin"
)

type WithdrawalHandler struct {
	withdrawalService *services.WithdrawalService
}

func NewWithdrawalHandler(withdrawalService *services.WithdrawalService) *WithdrawalHandler {
	return &WithdrawalHandler{
		withdrawalService: withdrawalService,
	}
}

// RequestWithdrawal files a withdrawal of the fixed amount to the given payout target
func (h *WithdrawalHandler) RequestWithdrawal(c *gin.Context) {
	accountID, exists := auth.GetAccountID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req WithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	withdrawal, err := h.withdrawalService.RequestWithdrawal(c.Request.Context(), accountID, req.PayoutTarget)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    withdrawal,
	})
}

// GetHistory returns the caller's recent withdrawal requests
func (h *WithdrawalHandler) GetHistory(c *gin.Context) {
	accountID, exists := auth.GetAccountID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	history, err := h.withdrawalService.History(c.Request.Context(), accountID, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    history,
		"count":   len(history),
	})
}

// GetLimits returns the configured withdrawal bounds
func (h *WithdrawalHandler) GetLimits(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    h.withdrawalService.Limits(),
	})
}
