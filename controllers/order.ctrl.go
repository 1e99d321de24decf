package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/quantdesk/usdthub/db/models"
	"github.com/quantdesk/usdthub/lib/responses"
	"github.com/quantdesk/usdthub/lib/service"
)

// OrderController : Payment order controller struct
type OrderController struct {
	svc *service.PaymentService
}

func NewOrderController(svc *service.PaymentService) *OrderController {
	return &OrderController{svc: svc}
}

type CreateOrderRequestBody struct {
	Plan string `json:"plan" validate:"required"`
}

type Order struct {
	OrderRef       string          `json:"order_id"`
	Plan           string          `json:"plan"`
	Chain          string          `json:"chain"`
	Address        string          `json:"address"`
	ExpectedAmount decimal.Decimal `json:"expected_amount"`
	ObservedAmount decimal.Decimal `json:"observed_amount"`
	Status         string          `json:"status"`
	TxReference    string          `json:"tx_reference,omitempty"`
	Confirmations  int64           `json:"confirmations"`
	PaidAt         *time.Time      `json:"paid_at,omitempty"`
	ConfirmedAt    *time.Time      `json:"confirmed_at,omitempty"`
	ExpiresAt      time.Time       `json:"expires_at"`
	CreatedAt      time.Time       `json:"created_at"`
}

type GetOrdersResponseBody struct {
	Orders []Order `json:"orders"`
}

func newOrderResponse(order *models.Order) *Order {
	response := &Order{
		OrderRef:       order.OrderRef,
		Plan:           order.Plan,
		Chain:          order.Chain,
		Address:        order.Address,
		ExpectedAmount: order.ExpectedAmount,
		ObservedAmount: order.ObservedAmount,
		Status:         order.Status,
		TxReference:    order.TxReference,
		Confirmations:  order.Confirmations,
		ExpiresAt:      order.ExpiresAt,
		CreatedAt:      order.CreatedAt,
	}
	if !order.PaidAt.IsZero() {
		paidAt := order.PaidAt.Time
		response.PaidAt = &paidAt
	}
	if !order.ConfirmedAt.IsZero() {
		confirmedAt := order.ConfirmedAt.Time
		response.ConfirmedAt = &confirmedAt
	}
	return response
}

// CreateOrder : Create a payment order for a membership plan. A fresh
// deposit address is allocated for the order.
func (controller *OrderController) CreateOrder(c echo.Context) error {
	userID := c.Get("UserID").(int64)

	var body CreateOrderRequestBody
	if err := c.Bind(&body); err != nil {
		c.Logger().Errorf("Failed to load create order request body: %v", err)
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}
	if err := c.Validate(&body); err != nil {
		c.Logger().Errorf("Invalid create order request body: %v", err)
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}

	order, err := controller.svc.CreateOrder(c.Request().Context(), userID, body.Plan)
	switch {
	case errors.Is(err, service.ErrInvalidPlan):
		return c.JSON(http.StatusBadRequest, responses.InvalidPlanError)
	case errors.Is(err, service.ErrPaymentsDisabled):
		return c.JSON(http.StatusBadRequest, responses.PaymentsDisabledError)
	case err != nil:
		c.Logger().Errorf("Failed to create order: user_id:%v error: %v", userID, err)
		return c.JSON(http.StatusInternalServerError, responses.AllocationError)
	}
	return c.JSON(http.StatusOK, newOrderResponse(order))
}

// GetOrders : Returns the authenticated user's payment orders.
func (controller *OrderController) GetOrders(c echo.Context) error {
	userID := c.Get("UserID").(int64)

	orders, err := controller.svc.OrdersFor(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	response := make([]Order, len(orders))
	for i := range orders {
		response[i] = *newOrderResponse(&orders[i])
	}
	return c.JSON(http.StatusOK, &GetOrdersResponseBody{Orders: response})
}

// GetOrder : Returns one order, reconciling it against the chain first
// unless refresh=false. A slow oracle returns the last persisted state.
func (controller *OrderController) GetOrder(c echo.Context) error {
	userID := c.Get("UserID").(int64)

	order, err := controller.svc.FindOrderByRef(c.Request().Context(), userID, c.Param("order_ref"))
	if errors.Is(err, service.ErrOrderNotFound) {
		return c.JSON(http.StatusNotFound, responses.OrderNotFoundError)
	}
	if err != nil {
		return err
	}

	if c.QueryParam("refresh") != "false" {
		order, err = controller.svc.RefreshOrder(c.Request().Context(), order)
		if err != nil {
			return err
		}
	}
	return c.JSON(http.StatusOK, newOrderResponse(order))
}

// RefreshOrder : Trigger one on-demand reconciliation pass for the order.
func (controller *OrderController) RefreshOrder(c echo.Context) error {
	userID := c.Get("UserID").(int64)

	order, err := controller.svc.FindOrderByRef(c.Request().Context(), userID, c.Param("order_ref"))
	if errors.Is(err, service.ErrOrderNotFound) {
		return c.JSON(http.StatusNotFound, responses.OrderNotFoundError)
	}
	if err != nil {
		return err
	}
	order, err = controller.svc.RefreshOrder(c.Request().Context(), order)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newOrderResponse(order))
}

// CancelOrder : Cancel a still-pending order.
func (controller *OrderController) CancelOrder(c echo.Context) error {
	userID := c.Get("UserID").(int64)

	order, err := controller.svc.FindOrderByRef(c.Request().Context(), userID, c.Param("order_ref"))
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
