package controllers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/quantdesk/usdthub/lib/responses"
	"github.com/quantdesk/usdthub/lib/service"
)

// CreateUserController : Create user controller struct
type CreateUserController struct {
	svc *service.PaymentService
}

func NewCreateUserController(svc *service.PaymentService) *CreateUserController {
	return &CreateUserController{svc: svc}
}

type CreateUserRequestBody struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

type CreateUserResponseBody struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

// CreateUser : Provision an account. Login and password are generated when
// not provided; the plain text password appears only in this response.
func (controller *CreateUserController) CreateUser(c echo.Context) error {
	var body CreateUserRequestBody
	if err := c.Bind(&body); err != nil {
		c.Logger().Errorf("Failed to load create user request body: %v", err)
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}

	user, err := controller.svc.CreateUser(c.Request().Context(), body.Login, body.Password)
	if err != nil {
		c.Logger().Errorf("Failed to create user: %v", err)
		return c.JSON(http.StatusInternalServerError, responses.GeneralServerError)
	}
	return c.JSON(http.StatusOK, &CreateUserResponseBody{
		Login:    user.Login,
		Password: user.Password,
	})
}
