package handler

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/aman-churiwal/gatekeeper/internal/apperror"
	"github.com/aman-churiwal/gatekeeper/internal/middleware"
	"github.com/gin-gonic/gin"
)

type WebhookHandler struct{}

func NewWebhookHandler() *WebhookHandler {
	return &WebhookHandler{}
}

type paymentEvent struct {
	OrderID string `json:"order_id"`
	Event   string `json:"event"`
}

// Handles POST /api/webhooks/payment. The signature was already verified by
// RequireWebhookSignature.
func (h *WebhookHandler) Payment(c *gin.Context) {
	raw, _ := c.Get(middleware.RawBodyKey)
	payload, _ := raw.([]byte)

	var event paymentEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		fail(c, apperror.BadRequest("Malformed webhook payload").Wrap(err))
		return
	}
	if strings.TrimSpace(event.OrderID) == "" {
		fail(c, apperror.BadRequest("order_id is required").WithCode("MISSING_ORDER_ID"))
		return
	}

	log.Printf("[%s] payment webhook %q for order %s", c.GetString("request_id"), event.Event, event.OrderID)

	respond(c, http.StatusOK, gin.H{"received": true, "order_id": event.OrderID})
}
