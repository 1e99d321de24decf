package service

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/quantdesk/usdthub/common"
	"github.com/quantdesk/usdthub/db/models"
	"github.com/quantdesk/usdthub/tron"
)

// ConfirmAndSettle moves a paid order to confirmed and applies the account
// effect, exactly once. The status compare-and-set and the ledger writes
// share one transaction, so a crash can never leave a confirmed order
// uncredited, and two racing reconciliations can never credit twice.
func (svc *PaymentService) ConfirmAndSettle(ctx context.Context, order *models.Order, transfer *tron.Transfer) error {
	plan, ok := svc.PlanFor(order.Plan)
	if !ok {
		return fmt.Errorf("order %s references unknown plan %q", order.OrderRef, order.Plan)
	}

	err := svc.DB.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		won, err := svc.transitionOrder(ctx, tx, order, common.OrderStatusPaid, func(q *bun.UpdateQuery) *bun.UpdateQuery {
			return q.Set("status = ?", common.OrderStatusConfirmed).
				Set("settlement_applied = TRUE").
				Set("observed_amount = GREATEST(observed_amount, ?)", transfer.Amount).
				Set("confirmations = ?", transfer.Confirmations).
				Set("confirmed_at = now()").
				Set("updated_at = now()").
				Where("settlement_applied = FALSE")
		})
		if err != nil {
			return err
		}
		if !won {
			// Someone else confirmed (or the order moved elsewhere); the
			// settlement belongs to the winner.
			return nil
		}
		if err := svc.applySettlement(ctx, tx, order, plan); err != nil {
			return err
		}
		order.Status = common.OrderStatusConfirmed
		order.SettlementApplied = true
		return nil
	})
	if err != nil {
		return err
	}
	if order.Status == common.OrderStatusConfirmed {
		svc.Logger.Infof("Confirmed order %s tx:%s plan:%s user_id:%d", order.OrderRef, order.TxReference, order.Plan, order.UserID)
	}
	return nil
}

// applySettlement grants the plan's credits and membership window. The
// credit entry's unique order id is a second line of defense; if it ever
// fires the surrounding transaction rolls the status flip back too.
func (svc *PaymentService) applySettlement(ctx context.Context, tx bun.Tx, order *models.Order, plan Plan) error {
	userUpdate := tx.NewUpdate().
		Model((*models.User)(nil)).
		Set("credits = credits + ?", plan.Credits).
		Set("updated_at = now()").
		Where("id = ?", order.UserID)
	if plan.Lifetime {
		userUpdate = userUpdate.Set("vip_lifetime = TRUE")
	} else {
		// VIP time stacks on whatever is left instead of overwriting it.
		userUpdate = userUpdate.Set("vip_until = GREATEST(COALESCE(vip_until, now()), now()) + make_interval(days => ?)", plan.VIPDays)
	}
	res, err := userUpdate.Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("settlement for order %s: user %d not found", order.OrderRef, order.UserID)
	}

	entry := models.CreditEntry{
		UserID:    order.UserID,
		OrderID:   order.ID,
		EntryType: common.CreditEntryTypeMembership,
		Plan:      plan.Name,
		Credits:   plan.Credits,
		VIPDays:   plan.VIPDays,
	}
	_, err = tx.NewInsert().Model(&entry).Exec(ctx)
	return err
}
