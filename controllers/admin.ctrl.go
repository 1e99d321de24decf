package controllers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/quantdesk/usdthub/lib/responses"
	"github.com/quantdesk/usdthub/lib/service"
)

// AdminController : Admin order operations, guarded by the admin token.
type AdminController struct {
	svc *service.PaymentService
}

func NewAdminController(svc *service.PaymentService) *AdminController {
	return &AdminController{svc: svc}
}

// CancelOrder : Cancel any user's pending order.
func (controller *AdminController) CancelOrder(c echo.Context) error {
	order, err := controller.svc.FindOrderByRefAny(c.Request().Context(), c.Param("order_ref"))
	if errors.Is(err, service.ErrOrderNotFound) {
		return c.JSON(http.StatusNotFound, responses.OrderNotFoundError)
	}
	if err != nil {
		return err
	}
	err = controller.svc.CancelOrder(c.Request().Context(), order)
	if errors.Is(err, service.ErrNotCancellable) {
		return c.JSON(http.StatusBadRequest, responses.OrderNotCancellableError)
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newOrderResponse(order))
}
