package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/gabegon8910/server-donation-tool/internal/model"
)

// httpError maps domain errors onto status codes. Not-found and ownership
// failures look identical, invalid lifecycle calls are conflicts, provider
// failures surface as a retryable bad gateway.
func httpError(err error) error {
	switch {
	case errors.Is(err, model.ErrOrderNotFound),
		errors.Is(err, model.ErrSubscriptionNotFound),
		errors.Is(err, model.ErrPlanNotFound),
		errors.Is(err, model.ErrPackageNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, model.ErrOrderNoPaymentIntent),
		errors.Is(err, model.ErrOrderPaymentAlreadyBound),
		errors.Is(err, model.ErrSubscriptionNotPending):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, model.ErrGateway):
		return echo.NewHTTPError(http.StatusBadGateway, "payment provider unavailable, try again later")
	default:
		return err
	}
}
