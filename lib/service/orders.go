package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"

	"github.com/quantdesk/usdthub/common"
	"github.com/quantdesk/usdthub/db/models"
)

// NextDerivationIndex atomically draws the next index from the durable
// sequence. Two concurrent order creations can never receive the same
// index, and therefore never the same address.
func (svc *PaymentService) NextDerivationIndex(ctx context.Context) (int64, error) {
	var index int64
	err := svc.DB.NewRaw("SELECT nextval('order_derivation_index_seq')").Scan(ctx, &index)
	if err != nil {
		return 0, fmt.Errorf("drawing derivation index: %w", err)
	}
	return index, nil
}

// CreateOrder allocates a fresh deposit address and persists a pending
// order. The expected amount is fixed from the plan price at this moment
// and never re-evaluated, so the user is not chasing a moving target while
// paying.
func (svc *PaymentService) CreateOrder(ctx context.Context, userId int64, planName string) (*models.Order, error) {
	if !svc.Config.PayEnabled {
		return nil, ErrPaymentsDisabled
	}
	plan, ok := svc.PlanFor(planName)
	if !ok {
		return nil, ErrInvalidPlan
	}

	index, err := svc.NextDerivationIndex(ctx)
	if err != nil {
		return nil, err
	}
	address, err := svc.Allocator.Derive(uint32(index))
	if err != nil {
		// Index was drawn but never used; the gap in the sequence is
		// harmless, uniqueness is all that matters.
		return nil, fmt.Errorf("deriving address for index %d: %w", index, err)
	}

	now := time.Now()
	order := &models.Order{
		OrderRef:        "ord_" + uuid.NewString(),
		UserID:          userId,
		Plan:            plan.Name,
		Chain:           common.ChainTRC20,
		DerivationIndex: index,
		Address:         address,
		ExpectedAmount:  plan.Price,
		ObservedAmount:  decimal.Zero,
		Status:          common.OrderStatusPending,
		ExpiresAt:       now.Add(time.Duration(svc.Config.OrderExpiryMinutes) * time.Minute),
	}
	if _, err := svc.DB.NewInsert().Model(order).Exec(ctx); err != nil {
		return nil, err
	}
	svc.Logger.Infof("Created order %s user_id:%d plan:%s address:%s amount:%s", order.OrderRef, userId, plan.Name, address, plan.Price)
	return order, nil
}

func (svc *PaymentService) FindOrder(ctx context.Context, orderId int64) (*models.Order, error) {
	var order models.Order
	err := svc.DB.NewSelect().Model(&order).Where("id = ?", orderId).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// FindOrderByRef scopes the lookup to the owning user: an order reference
// is not a capability.
func (svc *PaymentService) FindOrderByRef(ctx context.Context, userId int64, ref string) (*models.Order, error) {
	var order models.Order
	err := svc.DB.NewSelect().Model(&order).Where("order_ref = ? AND user_id = ?", ref, userId).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// FindOrderByRefAny is the admin variant without the owner scope.
func (svc *PaymentService) FindOrderByRefAny(ctx context.Context, ref string) (*models.Order, error) {
	var order models.Order
	err := svc.DB.NewSelect().Model(&order).Where("order_ref = ?", ref).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (svc *PaymentService) OrdersFor(ctx context.Context, userId int64) ([]models.Order, error) {
	orders := []models.Order{}
	err := svc.DB.NewSelect().Model(&orders).Where("user_id = ?", userId).OrderExpr("id DESC").Scan(ctx)
	return orders, err
}

// CancelOrder retires a pending order. The conditional write makes sure a
// concurrently detected payment wins over the cancellation.
func (svc *PaymentService) CancelOrder(ctx context.Context, order *models.Order) error {
	res, err := svc.DB.NewUpdate().
		Model(order).
		Set("status = ?", common.OrderStatusCancelled).
		Where("id = ? AND status = ?", order.ID, common.OrderStatusPending).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotCancellable
	}
	order.Status = common.OrderStatusCancelled
	svc.Logger.Infof("Cancelled order %s", order.OrderRef)
	return nil
}

// transitionOrder performs a compare-and-set status transition and reports
// whether this caller won it. Concurrent sweeps and user refreshes race on
// these writes; exactly one of them observes rows == 1.
func (svc *PaymentService) transitionOrder(ctx context.Context, db bun.IDB, order *models.Order, fromStatus string, apply func(*bun.UpdateQuery) *bun.UpdateQuery) (bool, error) {
	query := db.NewUpdate().
		Model(order).
		Where("id = ? AND status = ?", order.ID, fromStatus)
	res, err := apply(query).Exec(ctx)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}
