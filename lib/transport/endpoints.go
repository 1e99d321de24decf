package transport

import (
	"github.com/labstack/echo/v4"

	"github.com/quantdesk/usdthub/controllers"
	"github.com/quantdesk/usdthub/lib/service"
)

func RegisterEndpoints(svc *service.PaymentService, e *echo.Echo, secured *echo.Group, securedWithStrictRateLimit *echo.Group, strictRateLimitMiddleware echo.MiddlewareFunc, adminMw echo.MiddlewareFunc, logMw echo.MiddlewareFunc) {
	e.GET("/healthz", controllers.NewHealthController().Check)
	e.POST("/auth", controllers.NewAuthController(svc).Auth, strictRateLimitMiddleware)
	if svc.Config.AllowAccountCreation {
		e.POST("/v2/admin/users", controllers.NewCreateUserController(svc).CreateUser, strictRateLimitMiddleware, adminMw, logMw)
	}

	orderCtrl := controllers.NewOrderController(svc)

	secured.GET("/v2/plans", controllers.NewPlansController(svc).GetPlans, CreateCacheClient().Middleware(), logMw)
	securedWithStrictRateLimit.POST("/v2/orders", orderCtrl.CreateOrder, logMw)
	secured.GET("/v2/orders", orderCtrl.GetOrders, logMw)
	secured.GET("/v2/orders/:order_ref", orderCtrl.GetOrder, logMw)
	securedWithStrictRateLimit.POST("/v2/orders/:order_ref/refresh", orderCtrl.RefreshOrder, logMw)
	securedWithStrictRateLimit.POST("/v2/orders/:order_ref/cancel", orderCtrl.CancelOrder, logMw)

	e.POST("/v2/admin/orders/:order_ref/cancel", controllers.NewAdminController(svc).CancelOrder, strictRateLimitMiddleware, adminMw, logMw)
}
