package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rentamate/booking-backend/internal/models"
	"github.com/rentamate/booking-backend/internal/services"
	"github.com/rentamate/booking-backend/internal/utils"
	"github.com/sirupsen/logrus"
)

// maxWebhookBody matches the payload ceiling Stripe documents for event deliveries
const maxWebhookBody = 65536

// PaymentEventHandler processes a verified-or-not payment provider delivery
type PaymentEventHandler interface {
	HandleEvent(ctx context.Context, payload []byte, signatureHeader string, meta services.RequestMeta) (models.PaymentEventOutcome, error)
}

// WebhookHandler receives payment provider callbacks
type WebhookHandler struct {
	reconciler PaymentEventHandler
	logger     *logrus.Logger
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(reconciler PaymentEventHandler, logger *logrus.Logger) *WebhookHandler {
	return &WebhookHandler{
		reconciler: reconciler,
		logger:     logger,
	}
}

// StripeWebhook handles POST /api/v1/webhooks/stripe.
// Any 2xx tells Stripe to stop redelivering, so only retryable failures return 5xx.
func (h *WebhookHandler) StripeWebhook(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody)
	payload, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   string(services.KindMalformedEvent),
			Message: "Unable to read request body",
			Code:    "MALFORMED_EVENT",
		})
		return
	}

	meta := services.RequestMeta{
		IPAddress: utils.GetRealIP(c),
		UserAgent: utils.GetUserAgent(c),
	}

	outcome, err := h.reconciler.HandleEvent(c.Request.Context(), payload, c.GetHeader("Stripe-Signature"), meta)
	if err != nil {
		if statusFor(err) < http.StatusInternalServerError {
			h.logger.WithError(err).WithField("ip", meta.IPAddress).Warn("Rejected payment webhook")
		}
		writeServiceError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"received": true,
		"outcome":  outcome,
	})
}
