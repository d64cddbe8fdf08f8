package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetVAPIDPublicKey returns the VAPID public key so the client can subscribe to bed alerts.
// Push is optional; without keys the endpoint answers 503 and clients hide the feature.
func (h *Handler) GetVAPIDPublicKey(c *gin.Context) {
	if h.webpush == nil || h.webpush.VAPIDPublicKey == "" || h.notifier == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "push notifications are not configured", "push_enabled": false})
		return
	}

	c.JSON(http.StatusOK, gin.H{"public_key": h.webpush.VAPIDPublicKey, "push_enabled": true})
}
