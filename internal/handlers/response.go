package handlers

import (
	"errors"
	"log"
	"net/http"

	"referral-ledger/internal/services"

	"github.com/gin-gonic/gin"
)

// respondError maps a ledger error onto an HTTP status. Storage failures are
// logged and reported without detail.
func respondError(c *gin.Context, err error) {
	kind := services.KindOf(err)

	status := http.StatusInternalServerError
	switch kind {
	case services.KindValidation:
		status = http.StatusBadRequest
	case services.KindNotFound:
		status = http.StatusNotFound
	case services.KindPolicy:
		status = http.StatusConflict
		if errors.Is(err, services.ErrInsufficientBalance) || errors.Is(err, services.ErrDailyLimitExceeded) {
			status = http.StatusUnprocessableEntity
		}
	}

	if kind == services.KindStorage {
		log.Printf("[Handler] %s %s failed: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(status, gin.H{"error": "Internal error, please retry", "kind": kind.String()})
		return
	}

	c.JSON(status, gin.H{"error": err.Error(), "kind": kind.String()})
}

func respondBindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "kind": services.KindValidation.String()})
}
