package controllers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/quantdesk/usdthub/lib/responses"
	"github.com/quantdesk/usdthub/lib/service"
)

// AuthController : Auth controller struct
type AuthController struct {
	svc *service.PaymentService
}

func NewAuthController(svc *service.PaymentService) *AuthController {
	return &AuthController{svc: svc}
}

type AuthRequestBody struct {
	Login    string `json:"login" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type AuthResponseBody struct {
	AccessToken string `json:"access_token"`
}

// Auth : Exchange login credentials for a bearer token.
func (controller *AuthController) Auth(c echo.Context) error {
	var body AuthRequestBody
	if err := c.Bind(&body); err != nil {
		c.Logger().Errorf("Failed to load auth request body: %v", err)
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}
	if err := c.Validate(&body); err != nil {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}

	accessToken, err := controller.svc.GenerateToken(c.Request().Context(), body.Login, body.Password)
	if errors.Is(err, service.ErrAccountDeactivated) {
		return c.JSON(http.StatusUnauthorized, responses.AccountDeactivatedError)
	}
	if err != nil {
		return c.JSON(http.StatusUnauthorized, responses.BadAuthError)
	}
	return c.JSON(http.StatusOK, &AuthResponseBody{AccessToken: accessToken})
}
