package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/gabegon8910/server-donation-tool/internal/config"
	"github.com/gabegon8910/server-donation-tool/internal/middleware"
	"github.com/gabegon8910/server-donation-tool/internal/model"
	"github.com/gabegon8910/server-donation-tool/internal/service"
)

type SubscriptionHandler struct {
	subscriptions *service.Subscriptions
	catalogue     *config.Catalogue
}

func NewSubscriptionHandler(subscriptions *service.Subscriptions, catalogue *config.Catalogue) *SubscriptionHandler {
	return &SubscriptionHandler{
		subscriptions: subscriptions,
		catalogue:     catalogue,
	}
}

type subscribeRequest struct {
	PackageID int `json:"package_id"`
}

type subscribeResponse struct {
	SubscriptionID string `json:"subscription_id"`
	ApprovalURL    string `json:"approval_url"`
}

type subscriptionViewResponse struct {
	ID          string          `json:"id"`
	State       string          `json:"state"`
	PackageID   int             `json:"package_id"`
	PackageName string          `json:"package_name"`
	AbortLink   string          `json:"abort_link,omitempty"`
	History     []orderResponse `json:"history"`
}

func (h *SubscriptionHandler) Subscribe(c echo.Context) error {
	ctx := c.Request().Context()

	user, ok := middleware.UserFrom(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized)
	}

	var req subscribeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}

	pkg, err := h.catalogue.Resolve(req.PackageID)
	if err != nil {
		return httpError(err)
	}
	if !pkg.Subscribable {
		return echo.NewHTTPError(http.StatusBadRequest, "package is not subscribable")
	}

	pending, err := h.subscriptions.Subscribe(ctx, pkg, user)
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, subscribeResponse{
		SubscriptionID: pending.Subscription.ID.String(),
		ApprovalURL:    pending.ApprovalURL,
	})
}

func (h *SubscriptionHandler) View(c echo.Context) error {
	ctx := c.Request().Context()

	user, ok := middleware.UserFrom(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized)
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid subscription id")
	}

	view, err := h.subscriptions.ViewSubscription(ctx, id, user)
	if err != nil {
		return httpError(err)
	}

	resp := subscriptionViewResponse{
		ID:          view.Subscription.ID.String(),
		State:       string(view.Subscription.State),
		PackageID:   view.Package.ID,
		PackageName: view.Package.Name,
		History:     make([]orderResponse, len(view.History)),
	}
	// Only still-pending agreements carry an abort link.
	if view.Subscription.State == model.SubscriptionPending {
		if link, err := view.Subscription.AbortLink(); err == nil {
			// Routes are mounted under /api.
			resp.AbortLink = "/api" + link
		}
	}
	for i, order := range view.History {
		resp.History[i] = toOrderResponse(order)
	}

	return c.JSON(http.StatusOK, resp)
}

// Abort abandons a pending, never-approved agreement. The path matches the
// abort link handed out by the subscription view.
func (h *SubscriptionHandler) Abort(c echo.Context) error {
	ctx := c.Request().Context()

	user, ok := middleware.UserFrom(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized)
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid subscription id")
	}

	if err := h.subscriptions.Abort(ctx, id, user); err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, map[string]string{
		"status": "aborted",
	})
}

func (h *SubscriptionHandler) Cancel(c echo.Context) error {
	ctx := c.Request().Context()

	user, ok := middleware.UserFrom(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized)
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid subscription id")
	}

	if err := h.subscriptions.Cancel(ctx, id, user); err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, map[string]string{
		"status": "cancelled",
	})
}
