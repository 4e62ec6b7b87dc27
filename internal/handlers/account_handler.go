package handlers

import (
	"errors"
	"log"
	"net/http"

	"referral-ledger/internal/auth"
	"referral-ledger/internal/services"

	"github.com/gin-gonic/gin"
)

type AccountHandler struct {
	accountService    *services.AccountService
	referralService   *services.ReferralService
	deviceService     *services.DeviceService
	withdrawalService *services.WithdrawalService
	identity          *auth.InitDataVerifier
	surfaceUnknownRef bool
}

func NewAccountHandler(
	accountService *services.AccountService,
	referralService *services.ReferralService,
	deviceService *services.DeviceService,
	withdrawalService *services.WithdrawalService,
	identity *auth.InitDataVerifier,
	surfaceUnknownRef bool,
) *AccountHandler {
	return &AccountHandler{
		accountService:    accountService,
		referralService:   referralService,
		deviceService:     deviceService,
		withdrawalService: withdrawalService,
		identity:          identity,
		surfaceUnknownRef: surfaceUnknownRef,
	}
}

// Open registers the user on first contact, applies the referral that brought
// them in and hands back a session token. The account is the one named by the
// signed launch credentials; a bare uid is only trusted when no verifier is set.
func (h *AccountHandler) Open(c *gin.Context) {
	var req OpenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	req.normalize()

	if h.identity != nil {
		signedID, err := h.identity.Verify(req.InitData)
		if err != nil {
			log.Printf("[AccountHandler] Rejected open from %s: %v", c.ClientIP(), err)
			c.JSON(http.StatusUnauthorized, gin.H{"error": auth.ErrInvalidInitData.Error()})
			return
		}
		if req.UID != "" && req.UID != signedID {
			c.JSON(http.StatusForbidden, gin.H{"error": "uid does not match launch credentials"})
			return
		}
		req.UID = signedID
	}

	if req.UID == "" {
		respondError(c, services.ErrMissingField)
		return
	}

	ctx := c.Request.Context()
	account, created, err := h.accountService.GetOrCreate(ctx, req.UID)
	if err != nil {
		respondError(c, err)
		return
	}
	h.accountService.TouchLastSeen(ctx, req.UID)

	referral := gin.H{"applied": false}
	if created && req.Ref != "" {
		if _, err := h.referralService.ClaimReferral(ctx, req.UID, req.Ref, req.Fingerprint); err != nil {
			if reason := h.referralReason(err); reason != "" {
				referral["reason"] = reason
			}
		} else {
			referral["applied"] = true
		}
	}

	verification := gin.H{"required": false}
	if req.Fingerprint != "" {
		challenge, err := h.deviceService.RegisterDevice(ctx, req.UID, req.Fingerprint)
		if err != nil {
			respondError(c, err)
			return
		}
		if challenge != nil {
			verification = gin.H{"required": true, "expires_at": challenge.ExpiresAt}
		}
	}

	// Referral or device changes may have touched the row
	if refreshed, err := h.accountService.Get(ctx, req.UID); err == nil {
		account = refreshed
	}

	token, err := auth.GenerateToken(req.UID)
	if err != nil {
		log.Printf("[AccountHandler] Failed to issue token for %s: %v", req.UID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to issue session token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"account":      account,
			"created":      created,
			"token":        token,
			"limits":       h.withdrawalService.Limits(),
			"referral":     referral,
			"verification": verification,
		},
	})
}

// referralReason decides what the user is told about a failed referral claim.
func (h *AccountHandler) referralReason(err error) string {
	switch services.KindOf(err) {
	case services.KindStorage:
		log.Printf("[AccountHandler] Referral claim failed: %v", err)
		return "unavailable"
	case services.KindPolicy:
		if errors.Is(err, services.ErrUnknownReferrer) && !h.surfaceUnknownRef {
			return ""
		}
	}
	return err.Error()
}

// GetAccount returns the caller's account
func (h *AccountHandler) GetAccount(c *gin.Context) {
	accountID, exists := auth.GetAccountID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	account, err := h.accountService.Get(c.Request.Context(), accountID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    account,
	})
}

// GetBalance returns the caller's balance in minor units
func (h *AccountHandler) GetBalance(c *gin.Context) {
	accountID, exists := auth.GetAccountID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	account, err := h.accountService.Get(c.Request.Context(), accountID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"balance":         account.Balance,
			"total_referrals": account.TotalReferrals,
		},
	})
}
