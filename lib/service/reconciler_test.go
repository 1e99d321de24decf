package service

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/quantdesk/usdthub/db/models"
	"github.com/quantdesk/usdthub/tron"
)

func testService(toleranceBps int64) *PaymentService {
	return &PaymentService{Config: &Config{ToleranceBps: toleranceBps}}
}

func testOrder(expected string) *models.Order {
	return &models.Order{
		ExpectedAmount: decimal.RequireFromString(expected),
		CreatedAt:      time.Now().Add(-10 * time.Minute),
	}
}

func TestToleratedAmount(t *testing.T) {
	svc := testService(100)
	expected := decimal.RequireFromString("19.90")
	assert.True(t, svc.toleratedAmount(expected).Equal(decimal.RequireFromString("19.701")))

	strict := testService(0)
	assert.True(t, strict.toleratedAmount(expected).Equal(expected))
}

func TestMatchTransferExactAmount(t *testing.T) {
	svc := testService(100)
	order := testOrder("19.90")

	match, rest, stale := svc.matchTransfer(order, []tron.Transfer{
		{TxID: "tx-1", Amount: decimal.RequireFromString("19.90"), Timestamp: time.Now().UnixMilli()},
	})
	assert.NotNil(t, match)
	assert.Equal(t, "tx-1", match.TxID)
	assert.Empty(t, rest)
	assert.Empty(t, stale)
}

func TestMatchTransferWithinTolerance(t *testing.T) {
	svc := testService(100)
	order := testOrder("19.90")

	match, _, _ := svc.matchTransfer(order, []tron.Transfer{
		{TxID: "tx-1", Amount: decimal.RequireFromString("19.75"), Timestamp: time.Now().UnixMilli()},
	})
	assert.NotNil(t, match)
}

func TestMatchTransferBelowTolerance(t *testing.T) {
	svc := testService(100)
	order := testOrder("19.90")

	match, rest, _ := svc.matchTransfer(order, []tron.Transfer{
		{TxID: "tx-1", Amount: decimal.RequireFromString("19.50"), Timestamp: time.Now().UnixMilli()},
	})
	assert.Nil(t, match)
	assert.Len(t, rest, 1)
}

func TestMatchTransferNoAccumulation(t *testing.T) {
	svc := testService(100)
	order := testOrder("19.90")
	now := time.Now().UnixMilli()

	// Two transfers that only sum to the expected amount never match.
	match, rest, _ := svc.matchTransfer(order, []tron.Transfer{
		{TxID: "tx-1", Amount: decimal.RequireFromString("10.00"), Timestamp: now},
		{TxID: "tx-2", Amount: decimal.RequireFromString("9.90"), Timestamp: now + 1},
	})
	assert.Nil(t, match)
	assert.Len(t, rest, 2)
}

func TestMatchTransferFirstSeenWins(t *testing.T) {
	svc := testService(100)
	order := testOrder("19.90")
	now := time.Now().UnixMilli()

	// Given out of order: the earlier block must win regardless of input
	// order, and the later satisfying transfer is surplus.
	match, rest, _ := svc.matchTransfer(order, []tron.Transfer{
		{TxID: "tx-later", Amount: decimal.RequireFromString("25.00"), BlockNumber: 200, Timestamp: now + 5000},
		{TxID: "tx-earlier", Amount: decimal.RequireFromString("19.90"), BlockNumber: 100, Timestamp: now},
	})
	assert.NotNil(t, match)
	assert.Equal(t, "tx-earlier", match.TxID)
	assert.Len(t, rest, 1)
	assert.Equal(t, "tx-later", rest[0].TxID)
}

func TestMatchTransferIgnoresOlderThanOrder(t *testing.T) {
	svc := testService(100)
	order := testOrder("19.90")

	// A transfer well before the order existed cannot settle it, but it is
	// surfaced as stale instead of silently dropped.
	old := order.CreatedAt.Add(-time.Hour).UnixMilli()
	match, rest, stale := svc.matchTransfer(order, []tron.Transfer{
		{TxID: "tx-old", Amount: decimal.RequireFromString("19.90"), Timestamp: old},
	})
	assert.Nil(t, match)
	assert.Empty(t, rest)
	assert.Len(t, stale, 1)
	assert.Equal(t, "tx-old", stale[0].TxID)
}

func TestMatchTransferGraceWindow(t *testing.T) {
	svc := testService(100)
	order := testOrder("19.90")

	// Block timestamps can trail order creation slightly; within the grace
	// window the transfer still counts.
	justBefore := order.CreatedAt.Add(-30 * time.Second).UnixMilli()
	match, _, stale := svc.matchTransfer(order, []tron.Transfer{
		{TxID: "tx-1", Amount: decimal.RequireFromString("19.90"), Timestamp: justBefore},
	})
	assert.NotNil(t, match)
	assert.Empty(t, stale)
}

func TestMembershipPlans(t *testing.T) {
	cfg := &Config{
		PlanMonthlyPrice:    "19.90",
		PlanMonthlyCredits:  1000,
		PlanYearlyPrice:     "199.00",
		PlanYearlyCredits:   15000,
		PlanLifetimePrice:   "499.00",
		PlanLifetimeCredits: 60000,
	}
	plans, err := cfg.MembershipPlans()
	assert.NoError(t, err)
	assert.Len(t, plans, 3)
	assert.Equal(t, int64(30), plans["monthly"].VIPDays)
	assert.Equal(t, int64(365), plans["yearly"].VIPDays)
	assert.True(t, plans["lifetime"].Lifetime)
	assert.True(t, plans["monthly"].Price.Equal(decimal.RequireFromString("19.90")))
}

func TestMembershipPlansRejectsBadPrice(t *testing.T) {
	cfg := &Config{
		PlanMonthlyPrice:  "not-a-number",
		PlanYearlyPrice:   "199.00",
		PlanLifetimePrice: "499.00",
	}
	_, err := cfg.MembershipPlans()
	assert.Error(t, err)

	cfg.PlanMonthlyPrice = "0"
	_, err = cfg.MembershipPlans()
	assert.Error(t, err)
}
