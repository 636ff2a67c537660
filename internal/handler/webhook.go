package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/gabegon8910/server-donation-tool/internal/service"
)

type WebhookHandler struct {
	webhooks *service.Webhooks
}

func NewWebhookHandler(webhooks *service.Webhooks) *WebhookHandler {
	return &WebhookHandler{webhooks: webhooks}
}

// HandleEvent acknowledges a provider delivery. Only the event id is taken
// from the payload; the event itself is re-fetched from the provider, which
// makes spoofed deliveries harmless.
func (h *WebhookHandler) HandleEvent(c echo.Context) error {
	ctx := c.Request().Context()

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.NoContent(http.StatusBadRequest)
	}

	var event struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &event); err != nil || event.ID == "" {
		return c.NoContent(http.StatusBadRequest)
	}

	if err := h.webhooks.Handle(ctx, event.ID); err != nil {
		// Non-2xx makes the provider redeliver; processing is idempotent.
		return httpError(err)
	}

	return c.NoContent(http.StatusOK)
}
