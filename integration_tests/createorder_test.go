package integration_tests

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"github.com/quantdesk/usdthub/common"
	"github.com/quantdesk/usdthub/controllers"
	"github.com/quantdesk/usdthub/lib/responses"
	"github.com/quantdesk/usdthub/lib/service"
	"github.com/quantdesk/usdthub/wallet"
)

type CreateOrderTestSuite struct {
	TestSuite
	service    *service.PaymentService
	oracle     *MockOracle
	userTokens []string
}

func (suite *CreateOrderTestSuite) SetupSuite() {
	oracle := newMockOracle()
	svc, err := PaymentTestServiceInit(oracle)
	if err != nil {
		log.Fatalf("Error initializing test service: %v", err)
	}
	suite.service = svc
	suite.oracle = oracle
	_, userTokens, err := createUsers(svc, 2)
	if err != nil {
		log.Fatalf("Error creating test users: %v", err)
	}
	suite.userTokens = userTokens

	suite.echo = newTestEcho()
	suite.useAuthMiddleware(svc)
	orderCtrl := controllers.NewOrderController(svc)
	suite.echo.POST("/v2/orders", orderCtrl.CreateOrder)
	suite.echo.GET("/v2/orders", orderCtrl.GetOrders)
	suite.echo.GET("/v2/orders/:order_ref", orderCtrl.GetOrder)
}

func (suite *CreateOrderTestSuite) TearDownTest() {
	assert.NoError(suite.T(), clearTable(suite.service, "transfer_anomalies"))
	assert.NoError(suite.T(), clearTable(suite.service, "credit_entries"))
	assert.NoError(suite.T(), clearTable(suite.service, "orders"))
}

func (suite *CreateOrderTestSuite) TestCreateOrder() {
	order := suite.createOrderReq(common.PlanMonthly, suite.userTokens[0])
	assert.Equal(suite.T(), common.OrderStatusPending, order.Status)
	assert.Equal(suite.T(), common.PlanMonthly, order.Plan)
	assert.Equal(suite.T(), common.ChainTRC20, order.Chain)
	assert.True(suite.T(), order.ExpectedAmount.Equal(decimal.RequireFromString("19.90")))
	assert.True(suite.T(), order.ObservedAmount.IsZero())
	assert.True(suite.T(), wallet.ValidAddress(order.Address))
	assert.NotEmpty(suite.T(), order.OrderID)
	assert.True(suite.T(), order.ExpiresAt.After(order.CreatedAt))
}

func (suite *CreateOrderTestSuite) TestConcurrentOrdersGetDistinctAddresses() {
	seen := map[string]bool{}
	for i := 0; i < 5; i++ {
		order := suite.createOrderReq(common.PlanMonthly, suite.userTokens[i%2])
		assert.False(suite.T(), seen[order.Address], "address %s allocated twice", order.Address)
		seen[order.Address] = true
	}
}

func (suite *CreateOrderTestSuite) TestCreateOrderUnknownPlan() {
	errResp := suite.createOrderReqError("weekly", suite.userTokens[0])
	assert.Equal(suite.T(), responses.InvalidPlanError.Message, errResp.Message)
}

func (suite *CreateOrderTestSuite) TestCreateOrderMissingPlan() {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v2/orders", nil)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Add("Authorization", fmt.Sprintf("Bearer %s", suite.userTokens[0]))
	suite.echo.ServeHTTP(rec, req)
	assert.Equal(suite.T(), http.StatusBadRequest, rec.Code)
}

func (suite *CreateOrderTestSuite) TestGetOrders() {
	first := suite.createOrderReq(common.PlanMonthly, suite.userTokens[0])
	second := suite.createOrderReq(common.PlanYearly, suite.userTokens[0])
	// a second user's orders must not leak into the listing
	suite.createOrderReq(common.PlanMonthly, suite.userTokens[1])

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v2/orders", nil)
	req.Header.Add("Authorization", fmt.Sprintf("Bearer %s", suite.userTokens[0]))
	suite.echo.ServeHTTP(rec, req)
	assert.Equal(suite.T(), http.StatusOK, rec.Code)
	listResponse := &ExpectedGetOrdersResponseBody{}
	assert.NoError(suite.T(), json.NewDecoder(rec.Body).Decode(listResponse))
	assert.Len(suite.T(), listResponse.Orders, 2)
	// newest first
	assert.Equal(suite.T(), second.OrderID, listResponse.Orders[0].OrderID)
	assert.Equal(suite.T(), first.OrderID, listResponse.Orders[1].OrderID)
}

func (suite *CreateOrderTestSuite) TestGetOrderScopedToOwner() {
	order := suite.createOrderReq(common.PlanMonthly, suite.userTokens[0])

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v2/orders/"+order.OrderID, nil)
	req.Header.Add("Authorization", fmt.Sprintf("Bearer %s", suite.userTokens[1]))
	suite.echo.ServeHTTP(rec, req)
	assert.Equal(suite.T(), http.StatusNotFound, rec.Code)
}

func (suite *CreateOrderTestSuite) TestGetOrderNotFound() {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v2/orders/ord_does-not-exist", nil)
	req.Header.Add("Authorization", fmt.Sprintf("Bearer %s", suite.userTokens[0]))
	suite.echo.ServeHTTP(rec, req)
	assert.Equal(suite.T(), http.StatusNotFound, rec.Code)
}

func (suite *CreateOrderTestSuite) TestCreateOrderWhenPaymentsDisabled() {
	suite.service.Config.PayEnabled = false
	defer func() { suite.service.Config.PayEnabled = true }()

	errResp := suite.createOrderReqError(common.PlanMonthly, suite.userTokens[0])
	assert.Equal(suite.T(), responses.PaymentsDisabledError.Message, errResp.Message)
}

func (suite *CreateOrderTestSuite) TearDownSuite() {
	assert.NoError(suite.T(), clearTable(suite.service, "users"))
}

func TestCreateOrderSuite(t *testing.T) {
	suite.Run(t, new(CreateOrderTestSuite))
}
