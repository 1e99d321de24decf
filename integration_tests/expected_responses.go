package integration_tests

import (
	"time"

	"github.com/shopspring/decimal"
)

type ExpectedCreateUserRequestBody struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

type ExpectedCreateUserResponseBody struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

type ExpectedAuthRequestBody struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

type ExpectedAuthResponseBody struct {
	AccessToken string `json:"access_token"`
}

type ExpectedCreateOrderRequestBody struct {
	Plan string `json:"plan"`
}

type ExpectedOrderResponseBody struct {
	OrderID        string          `json:"order_id"`
	Plan           string          `json:"plan"`
	Chain          string          `json:"chain"`
	Address        string          `json:"address"`
	ExpectedAmount decimal.Decimal `json:"expected_amount"`
	ObservedAmount decimal.Decimal `json:"observed_amount"`
	Status         string          `json:"status"`
	TxReference    string          `json:"tx_reference"`
	Confirmations  int64           `json:"confirmations"`
	PaidAt         *time.Time      `json:"paid_at"`
	ConfirmedAt    *time.Time      `json:"confirmed_at"`
	ExpiresAt      time.Time       `json:"expires_at"`
	CreatedAt      time.Time       `json:"created_at"`
}

type ExpectedGetOrdersResponseBody struct {
	Orders []ExpectedOrderResponseBody `json:"orders"`
}

type ExpectedPlanResponseBody struct {
	Name    string          `json:"name"`
	Price   decimal.Decimal `json:"price"`
	Credits int64           `json:"credits"`
	VIPDays int64           `json:"vip_days"`
}
