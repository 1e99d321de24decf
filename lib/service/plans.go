package service

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/quantdesk/usdthub/common"
)

// Plan is one purchasable membership tier. Price is the USDT amount due,
// Credits the grant applied on settlement, VIPDays the membership extension
// (0 for lifetime).
type Plan struct {
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Credits  int64           `json:"credits"`
	VIPDays  int64           `json:"vip_days"`
	Lifetime bool            `json:"lifetime"`
}

// MembershipPlans builds the plan catalog from the configured prices.
// A malformed price is a configuration error surfaced at startup.
func (c *Config) MembershipPlans() (map[string]Plan, error) {
	catalog := map[string]Plan{}
	for _, entry := range []struct {
		name     string
		price    string
		credits  int64
		vipDays  int64
		lifetime bool
	}{
		{common.PlanMonthly, c.PlanMonthlyPrice, c.PlanMonthlyCredits, 30, false},
		{common.PlanYearly, c.PlanYearlyPrice, c.PlanYearlyCredits, 365, false},
		{common.PlanLifetime, c.PlanLifetimePrice, c.PlanLifetimeCredits, 0, true},
	} {
		price, err := decimal.NewFromString(entry.price)
		if err != nil {
			return nil, fmt.Errorf("invalid price %q for plan %s: %w", entry.price, entry.name, err)
		}
		if !price.IsPositive() {
			return nil, fmt.Errorf("price for plan %s must be positive, got %s", entry.name, price)
		}
		catalog[entry.name] = Plan{
			Name:     entry.name,
			Price:    price,
			Credits:  entry.credits,
			VIPDays:  entry.vipDays,
			Lifetime: entry.lifetime,
		}
	}
	return catalog, nil
}

// PlanFor resolves a plan by name.
func (svc *PaymentService) PlanFor(name string) (Plan, bool) {
	plan, ok := svc.Plans[name]
	return plan, ok
}
