package handlers

import (
	"net/http"

	"referral-ledger/internal/auth"
	"referral-ledger/internal/services"

	"github.com/gin-gonic/gin"
)

type ReferralHandler struct {
	referralService *services.ReferralService
}

func NewReferralHandler(referralService *services.ReferralService) *ReferralHandler {
	return &ReferralHandler{
		referralService: referralService,
	}
}

// GetReferrals returns the referrals the caller brought in
func (h *ReferralHandler) GetReferrals(c *gin.Context) {
	accountID, exists := auth.GetAccountID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	edges, err := h.referralService.ListReferrals(c.Request.Context(), accountID)
	if err != nil {
		respondError(c, err)
		return
	}

	valid := 0
	for _, e := range edges {
		if e.Valid {
			valid++
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    edges,
		"count":   len(edges),
		"valid":   valid,
	})
}
