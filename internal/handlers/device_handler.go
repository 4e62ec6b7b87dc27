package handlers

import (
	"net/http"

	"referral-ledger/internal/auth"
	"referral-ledger/internal/services"

	"github.com/gin-gonic/gin"
)

type DeviceHandler struct {
	deviceService *services.DeviceService
}

func NewDeviceHandler(deviceService *services.DeviceService) *DeviceHandler {
	return &DeviceHandler{
		deviceService: deviceService,
	}
}

// RegisterDevice records the caller's device and starts verification if needed.
// The code itself is delivered out of band.
func (h *DeviceHandler) RegisterDevice(c *gin.Context) {
	accountID, exists := auth.GetAccountID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req RegisterDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	challenge, err := h.deviceService.RegisterDevice(c.Request.Context(), accountID, req.Fingerprint)
	if err != nil {
		respondError(c, err)
		return
	}

	data := gin.H{"verification_required": challenge != nil}
	if challenge != nil {
		data["expires_at"] = challenge.ExpiresAt
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    data,
	})
}

// VerifyDevice checks the code the user received
func (h *DeviceHandler) VerifyDevice(c *gin.Context) {
	accountID, exists := auth.GetAccountID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req VerifyDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	account, err := h.deviceService.Verify(c.Request.Context(), accountID, req.Fingerprint, req.Code)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Device verified",
		"data":    account,
	})
}
