package handlers

import (
	"net/http"
	"time"

	"referral-ledger/internal/auth"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handlers groups every HTTP handler the server mounts
type Handlers struct {
	Account    *AccountHandler
	Referral   *ReferralHandler
	Device     *DeviceHandler
	Withdrawal *WithdrawalHandler
	Admin      *AdminHandler
}

// RegisterRoutes mounts the public, user and admin routes on router
func RegisterRoutes(router *gin.Engine, h *Handlers, adminSecret string) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Public routes
	router.POST("/api/open", h.Account.Open)
	router.GET("/api/withdraw/limits", h.Withdrawal.GetLimits)

	// API routes (protected)
	api := router.Group("/api")
	api.Use(auth.AuthMiddleware())
	{
		api.GET("/account", h.Account.GetAccount)
		api.GET("/balance", h.Account.GetBalance)
		api.GET("/referrals", h.Referral.GetReferrals)

		api.POST("/device", h.Device.RegisterDevice)
		api.POST("/device/verify", h.Device.VerifyDevice)

		api.POST("/withdraw", h.Withdrawal.RequestWithdrawal)
		api.GET("/withdrawals", h.Withdrawal.GetHistory)
	}

	// Admin routes
	admin := router.Group("/api/admin")
	admin.Use(auth.AdminMiddleware(adminSecret))
	{
		admin.GET("/stats", h.Admin.GetStats)
		admin.GET("/logs", h.Admin.GetAdminLogs)
		admin.GET("/withdrawals/pending", h.Admin.GetPendingWithdrawals)
		admin.POST("/withdrawals/:id/resolve", h.Admin.ResolveWithdrawal)
		admin.POST("/referrals/:referred_id/invalidate", h.Admin.InvalidateReferral)
	}
}
