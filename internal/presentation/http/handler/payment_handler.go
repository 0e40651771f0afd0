package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/sangkips/dinein-api/internal/application/service"
	"github.com/sangkips/dinein-api/internal/presentation/http/dto/request"
	"github.com/sangkips/dinein-api/pkg/apperror"
)

// PaymentReconciler applies payment notifications to orders
type PaymentReconciler interface {
	HandleNotification(ctx context.Context, n service.PaymentNotification) (service.ReconcileResult, error)
}

// PaymentHandler handles payment processor webhooks. Responses use the
// {ok, message|status|error} shape the processor expects, not the API
// envelope.
type PaymentHandler struct {
	reconciler PaymentReconciler
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(reconciler PaymentReconciler) *PaymentHandler {
	return &PaymentHandler{reconciler: reconciler}
}

// Webhook handles a payment notification. Transient problems are
// acknowledged with 200 so the processor does not storm retries; only
// malformed input (400) and fatal errors (500) are not.
func (h *PaymentHandler) Webhook(c *gin.Context) {
	n := parseNotification(c)

	res, err := h.reconciler.HandleNotification(c.Request.Context(), n)
	if err != nil {
		code := http.StatusInternalServerError
		if apperror.IsAppError(err) && apperror.GetAppError(err).Code < 500 {
			code = apperror.GetAppError(err).Code
		}
		c.JSON(code, gin.H{"ok": false, "error": err.Error()})
		return
	}

	if res.Outcome.IsPaid() {
		c.JSON(http.StatusOK, gin.H{"ok": true, "status": "paid"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "message": res.Outcome.Message()})
}

// WebhookRecovery converts panics on the webhook route into a 500 with the
// panic message
func WebhookRecovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		log.Error().Interface("panic", recovered).Str("path", c.Request.URL.Path).Msg("payment webhook panicked")
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"ok":    false,
			"error": fmt.Sprint(recovered),
		})
	})
}

// parseNotification reads the JSON body and falls back to the query string
// (type or topic, data.id or id) for fields the body does not carry
func parseNotification(c *gin.Context) service.PaymentNotification {
	var req request.PaymentNotificationRequest

	body, err := io.ReadAll(c.Request.Body)
	if err == nil && len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			log.Debug().Err(err).Msg("unparsable payment notification body")
		}
	}

	n := service.PaymentNotification{
		Type:      firstNonEmpty(req.Type, req.Topic, c.Query("type"), c.Query("topic")),
		PaymentID: firstNonEmpty(string(req.Data.ID), c.Query("data.id"), c.Query("id")),
	}
	return n
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
