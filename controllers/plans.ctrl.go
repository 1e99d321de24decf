package controllers

import (
	"net/http"
	"sort"

	"github.com/labstack/echo/v4"

	"github.com/quantdesk/usdthub/lib/service"
)

// PlansController : Membership plan catalog controller struct
type PlansController struct {
	svc *service.PaymentService
}

func NewPlansController(svc *service.PaymentService) *PlansController {
	return &PlansController{svc: svc}
}

type GetPlansResponseBody struct {
	Plans []service.Plan `json:"plans"`
}

// GetPlans : Returns the purchasable membership plans.
func (controller *PlansController) GetPlans(c echo.Context) error {
	plans := make([]service.Plan, 0, len(controller.svc.Plans))
	for _, plan := range controller.svc.Plans {
		plans = append(plans, plan)
	}
	sort.Slice(plans, func(i, j int) bool {
		return plans[i].Price.LessThan(plans[j].Price)
	})
	return c.JSON(http.StatusOK, &GetPlansResponseBody{Plans: plans})
}
