package handler

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/gabegon8910/server-donation-tool/internal/config"
	"github.com/gabegon8910/server-donation-tool/internal/middleware"
	"github.com/gabegon8910/server-donation-tool/internal/model"
	"github.com/gabegon8910/server-donation-tool/internal/service"
)

type DonationHandler struct {
	donations *service.Donations
	catalogue *config.Catalogue
}

func NewDonationHandler(donations *service.Donations, catalogue *config.Catalogue) *DonationHandler {
	return &DonationHandler{
		donations: donations,
		catalogue: catalogue,
	}
}

type donateRequest struct {
	PackageID     int    `json:"package_id"`
	CustomMessage string `json:"custom_message"`
}

type donateResponse struct {
	OrderID     string `json:"order_id"`
	ApprovalURL string `json:"approval_url"`
}

type orderResponse struct {
	ID            string     `json:"id"`
	Created       time.Time  `json:"created"`
	PackageID     int        `json:"package_id"`
	Status        string     `json:"status"`
	CustomMessage string     `json:"custom_message,omitempty"`
	RedeemedAt    *time.Time `json:"redeemed_at,omitempty"`
}

func toOrderResponse(order *model.Order) orderResponse {
	return orderResponse{
		ID:            order.ID.String(),
		Created:       order.Created,
		PackageID:     order.Reference.Package.ID,
		Status:        string(order.Status),
		CustomMessage: order.CustomMessage,
		RedeemedAt:    order.RedeemedAt,
	}
}

func (h *DonationHandler) Donate(c echo.Context) error {
	ctx := c.Request().Context()

	user, ok := middleware.UserFrom(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized)
	}

	var req donateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}

	pkg, err := h.catalogue.Resolve(req.PackageID)
	if err != nil {
		return httpError(err)
	}

	checkout, err := h.donations.InitiateCheckout(ctx, pkg, user, req.CustomMessage)
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, donateResponse{
		OrderID:     checkout.Order.ID.String(),
		ApprovalURL: checkout.ApprovalURL,
	})
}

// HandleSuccess is where the provider redirects the donor after approval.
func (h *DonationHandler) HandleSuccess(c echo.Context) error {
	ctx := c.Request().Context()

	providerOrderID := c.QueryParam("token")
	if providerOrderID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing order token")
	}

	order, err := h.donations.CapturePayment(ctx, providerOrderID)
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, toOrderResponse(order))
}

func (h *DonationHandler) GetOrder(c echo.Context) error {
	ctx := c.Request().Context()

	user, ok := middleware.UserFrom(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized)
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid order id")
	}

	order, err := h.donations.GetOrder(ctx, id, user)
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, toOrderResponse(order))
}
