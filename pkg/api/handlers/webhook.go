package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jordanlanch/leadsync/pkg/models"
	"github.com/labstack/echo/v4"
)

const maxWebhookBody = 1 << 20

// WebhookReceiver queues an inbound CRM payload
type WebhookReceiver interface {
	Receive(ctx context.Context, payload map[string]any) models.WebhookResponse
}

// WebhookHandler handles the inbound CRM lead webhook
type WebhookHandler struct {
	receiver WebhookReceiver
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(receiver WebhookReceiver) *WebhookHandler {
	return &WebhookHandler{receiver: receiver}
}

// ReceiveLead godoc
// @Summary Receive a CRM lead webhook
// @Description Logs the payload and queues it for lead sync. Always answers 200; the outcome is in status.
// @Tags Webhooks
// @Accept json
// @Accept x-www-form-urlencoded
// @Produce json
// @Success 200 {object} models.WebhookResponse
// @Router /webhooks/crm/leads [post]
func (h *WebhookHandler) ReceiveLead(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 30*time.Second)
	defer cancel()

	payload := readPayload(c)
	return c.JSON(http.StatusOK, h.receiver.Receive(ctx, payload))
}

// readPayload decodes a JSON object body, then falls back to form fields.
// Anything else yields an empty payload.
func readPayload(c echo.Context) map[string]any {
	req := c.Request()
	body, err := io.ReadAll(io.LimitReader(req.Body, maxWebhookBody))
	if err != nil {
		c.Logger().Warnf("failed to read webhook body: %v", err)
		return map[string]any{}
	}

	var payload map[string]any
	if len(bytes.TrimSpace(body)) > 0 && json.Unmarshal(body, &payload) == nil && payload != nil {
		return payload
	}

	req.Body = io.NopCloser(bytes.NewReader(body))
	ct := req.Header.Get(echo.HeaderContentType)
	if !strings.HasPrefix(ct, echo.MIMEApplicationForm) && !strings.HasPrefix(ct, echo.MIMEMultipartForm) {
		return map[string]any{}
	}
	form, err := c.FormParams()
	if err != nil {
		return map[string]any{}
	}
	payload = make(map[string]any, len(form))
	for k, v := range form {
		if len(v) == 1 {
			payload[k] = v[0]
		} else {
			payload[k] = v
		}
	}
	return payload
}
