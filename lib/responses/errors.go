package responses

import (
	"net/http"

	"github.com/getsentry/sentry-go"
	sentryecho "github.com/getsentry/sentry-go/echo"
	"github.com/labstack/echo/v4"
)

type ErrorResponse struct {
	Error          bool   `json:"error"`
	Code           int    `json:"code"`
	Message        string `json:"message"`
	HttpStatusCode int    `json:"-"`
}

var GeneralServerError = ErrorResponse{
	Error:          true,
	Code:           6,
	Message:        "Something went wrong. Please try again later",
	HttpStatusCode: 500,
}

var BadArgumentsError = ErrorResponse{
	Error:          true,
	Code:           8,
	Message:        "Bad arguments",
	HttpStatusCode: 400,
}

var BadAuthError = ErrorResponse{
	Error:          true,
	Code:           1,
	Message:        "bad auth",
	HttpStatusCode: 401,
}

var InvalidPlanError = ErrorResponse{
	Error:          true,
	Code:           2,
	Message:        "unknown membership plan",
	HttpStatusCode: 400,
}

var PaymentsDisabledError = ErrorResponse{
	Error:          true,
	Code:           2,
	Message:        "on-chain payments are currently disabled",
	HttpStatusCode: 400,
}

var OrderNotFoundError = ErrorResponse{
	Error:          true,
	Code:           4,
	Message:        "order not found",
	HttpStatusCode: 404,
}

var OrderNotCancellableError = ErrorResponse{
	Error:          true,
	Code:           2,
	Message:        "order can no longer be cancelled",
	HttpStatusCode: 400,
}

var AllocationError = ErrorResponse{
	Error:          true,
	Code:           6,
	Message:        "could not allocate a deposit address. Please try again later",
	HttpStatusCode: 500,
}

var AccountDeactivatedError = ErrorResponse{
	Error:          true,
	Code:           1,
	Message:        "Account has been suspended. Please contact support for further assistance.",
	HttpStatusCode: 401,
}

// isErrAllowedForSentry filters auth failures out of exception tracking.
func isErrAllowedForSentry(err error) bool {
	he, ok := err.(*echo.HTTPError)
	if !ok {
		return true
	}
	m, ok := he.Message.(echo.Map)
	if !ok {
		return true
	}
	code, ok := m["code"].(int)
	return !ok || code != BadAuthError.Code
}

func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	c.Logger().Error(err)
	if hub := sentryecho.GetHubFromContext(c); hub != nil && isErrAllowedForSentry(err) {
		hub.WithScope(func(scope *sentry.Scope) {
			scope.SetExtra("UserID", c.Get("UserID"))
			hub.CaptureException(err)
		})
	}
	if he, ok := err.(*echo.HTTPError); ok {
		c.JSON(he.Code, he.Message)
	} else {
		c.JSON(http.StatusInternalServerError, GeneralServerError)
	}
}
