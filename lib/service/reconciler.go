package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"

	"github.com/quantdesk/usdthub/common"
	"github.com/quantdesk/usdthub/db/models"
	"github.com/quantdesk/usdthub/tron"
)

// matchGraceBefore tolerates indexer timestamps slightly older than the
// order: a transfer broadcast right at creation can carry an earlier block
// timestamp.
const matchGraceBefore = time.Minute

// ReconcileAll runs one sweep over every order the chain can still move.
// Each order reconciles independently; concurrency is bounded so a large
// backlog does not hammer the oracle's rate limits.
func (svc *PaymentService) ReconcileAll(ctx context.Context) error {
	openOrders := []models.Order{}
	err := svc.DB.NewSelect().
		Model(&openOrders).
		Where("status IN (?)", bun.In([]string{common.OrderStatusPending, common.OrderStatusPaid})).
		OrderExpr("id ASC").
		Scan(ctx)
	if err != nil {
		return err
	}
	if len(openOrders) == 0 {
		return nil
	}
	svc.Logger.Infof("Reconciling %d open orders", len(openOrders))

	semaphore := make(chan struct{}, svc.Config.ReconcilerMaxConcurrency)
	var wg sync.WaitGroup
	for i := range openOrders {
		order := openOrders[i]
		wg.Add(1)
		semaphore <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-semaphore }()
			orderCtx, cancel := context.WithTimeout(ctx, time.Duration(svc.Config.OracleTimeout)*time.Second)
			defer cancel()
			if err := svc.ReconcileOrder(orderCtx, &order); err != nil {
				svc.Logger.Errorf("Error reconciling order %s: %v", order.OrderRef, err)
			}
		}()
	}
	wg.Wait()
	return nil
}

// ReconcileOrder matches observed chain activity against one order and
// advances its state machine. It is safe to call concurrently from the
// periodic sweep and from user-triggered refreshes: every transition is a
// conditional write, and re-running on a settled order is a no-op.
func (svc *PaymentService) ReconcileOrder(ctx context.Context, order *models.Order) error {
	switch order.Status {
	case common.OrderStatusConfirmed, common.OrderStatusCancelled, common.OrderStatusFailed:
		return nil
	case common.OrderStatusExpired:
		// Nothing to advance, but a payment arriving after expiry is worth
		// a manual look. It never revives the order.
		return svc.recordLateTransfers(ctx, order)
	}

	// Lazy expiry so an on-demand refresh of a stale order does not have to
	// wait for the sweeper.
	if order.Status == common.OrderStatusPending && time.Now().After(order.ExpiresAt) {
		won, err := svc.transitionOrder(ctx, svc.DB, order, common.OrderStatusPending, func(q *bun.UpdateQuery) *bun.UpdateQuery {
			return q.Set("status = ?", common.OrderStatusExpired).Set("updated_at = now()")
		})
		if err != nil {
			return err
		}
		if won {
			order.Status = common.OrderStatusExpired
			svc.Logger.Infof("Expired order %s", order.OrderRef)
		}
		return nil
	}

	transfers, err := svc.Oracle.ListTransfers(ctx, order.Address)
	if err != nil {
		if tron.IsBadAddress(err) {
			// The oracle can never answer for this address; the order can
			// never settle and needs manual intervention.
			return svc.failOrder(ctx, order, "oracle rejected deposit address: "+err.Error())
		}
		// Transient or operational failure (timeout, rate limit, bad API
		// key). An oracle problem is never information about the order:
		// it just sits still and the next sweep retries.
		return err
	}

	if order.Status == common.OrderStatusPending {
		if err := svc.reconcilePending(ctx, order, transfers); err != nil {
			return err
		}
	}
	if order.Status == common.OrderStatusPaid {
		if err := svc.reconcilePaid(ctx, order, transfers); err != nil {
			return err
		}
	}
	return nil
}

// RefreshOrder is the user-triggered reconciliation pass. A slow oracle
// only costs freshness, never correctness: on timeout the caller gets the
// last persisted state back.
func (svc *PaymentService) RefreshOrder(ctx context.Context, order *models.Order) (*models.Order, error) {
	refreshCtx, cancel := context.WithTimeout(ctx, time.Duration(svc.Config.RefreshTimeout)*time.Second)
	defer cancel()
	if err := svc.ReconcileOrder(refreshCtx, order); err != nil {
		svc.Logger.Warnf("Refresh of order %s returned stale state: %v", order.OrderRef, err)
	}
	return svc.FindOrder(ctx, order.ID)
}

// toleratedAmount is the smallest transfer that still settles the order.
func (svc *PaymentService) toleratedAmount(expected decimal.Decimal) decimal.Decimal {
	tolerance := decimal.NewFromInt(svc.Config.ToleranceBps).Div(decimal.NewFromInt(10000))
	return expected.Mul(decimal.NewFromInt(1).Sub(tolerance))
}

// matchTransfer finds the earliest transfer satisfying the tolerated
// amount. First seen wins: later matching transfers never replace the
// recorded one. Transfers from before the order's match window cannot
// settle it and come back as stale.
func (svc *PaymentService) matchTransfer(order *models.Order, transfers []tron.Transfer) (match *tron.Transfer, rest, stale []tron.Transfer) {
	sorted := make([]tron.Transfer, len(transfers))
	copy(sorted, transfers)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].BlockNumber != sorted[j].BlockNumber {
			return sorted[i].BlockNumber < sorted[j].BlockNumber
		}
		return sorted[i].Timestamp < sorted[j].Timestamp
	})

	minAmount := svc.toleratedAmount(order.ExpectedAmount)
	notBefore := order.CreatedAt.Add(-matchGraceBefore).UnixMilli()
	for i := range sorted {
		t := sorted[i]
		if t.Timestamp > 0 && t.Timestamp < notBefore {
			stale = append(stale, t)
			continue
		}
		if match == nil && t.Amount.GreaterThanOrEqual(minAmount) {
			match = &sorted[i]
			continue
		}
		rest = append(rest, t)
	}
	return match, rest, stale
}

func (svc *PaymentService) reconcilePending(ctx context.Context, order *models.Order, transfers []tron.Transfer) error {
	if len(transfers) == 0 {
		return nil
	}
	match, rest, stale := svc.matchTransfer(order, transfers)
	// A transfer predating the order still sits at an address only this
	// order owns; it never settles the order but must surface for review.
	for _, t := range stale {
		if err := svc.recordAnomaly(ctx, order, t, common.AnomalyKindStaleTransfer, "transfer predates the order match window"); err != nil {
			return err
		}
	}
	if match == nil {
		// Chain activity without a satisfying amount: underpayments are
		// flagged for manual review, the order stays pending.
		for _, t := range rest {
			if err := svc.recordAnomaly(ctx, order, t, common.AnomalyKindUnderpayment, "amount below tolerated minimum"); err != nil {
				return err
			}
		}
		return nil
	}

	won, err := svc.transitionOrder(ctx, svc.DB, order, common.OrderStatusPending, func(q *bun.UpdateQuery) *bun.UpdateQuery {
		return q.Set("status = ?", common.OrderStatusPaid).
			Set("tx_reference = ?", match.TxID).
			Set("observed_amount = GREATEST(observed_amount, ?)", match.Amount).
			Set("confirmations = ?", match.Confirmations).
			Set("paid_at = now()").
			Set("updated_at = now()")
	})
	if err != nil {
		return err
	}
	if !won {
		// Another pass got here first; re-read and let the paid branch
		// continue from the persisted truth.
		fresh, err := svc.FindOrder(ctx, order.ID)
		if err != nil {
			return err
		}
		*order = *fresh
		return nil
	}

	order.Status = common.OrderStatusPaid
	order.TxReference = match.TxID
	order.ObservedAmount = decimal.Max(order.ObservedAmount, match.Amount)
	order.Confirmations = match.Confirmations
	svc.Logger.Infof("Order %s paid by tx %s amount:%s confirmations:%d", order.OrderRef, match.TxID, match.Amount, match.Confirmations)

	if match.Amount.GreaterThan(order.ExpectedAmount) {
		if err := svc.recordAnomaly(ctx, order, *match, common.AnomalyKindOverpayment, "amount exceeds expected, excess requires manual review"); err != nil {
			return err
		}
	}
	for _, t := range rest {
		if err := svc.recordAnomaly(ctx, order, t, common.AnomalyKindExtraTransfer, "additional transfer at an already matched address"); err != nil {
			return err
		}
	}
	return nil
}

func (svc *PaymentService) reconcilePaid(ctx context.Context, order *models.Order, transfers []tron.Transfer) error {
	var matched *tron.Transfer
	for i := range transfers {
		if transfers[i].TxID == order.TxReference {
			matched = &transfers[i]
			break
		}
	}
	if matched == nil {
		// The recorded transfer has vanished from the indexer's view. That
		// is either a reorg or an indexer hiccup; require a second
		// independent read before declaring the order failed.
		gone, err := svc.confirmTransferGone(ctx, order)
		if err != nil || !gone {
			return err
		}
		return svc.failOrder(ctx, order, "matched transfer no longer visible on chain")
	}

	if matched.Confirmations < svc.Config.ConfirmationDepth {
		// Keep the persisted view fresh while waiting for depth. Observed
		// amount only ever grows.
		_, err := svc.transitionOrder(ctx, svc.DB, order, common.OrderStatusPaid, func(q *bun.UpdateQuery) *bun.UpdateQuery {
			return q.Set("observed_amount = GREATEST(observed_amount, ?)", matched.Amount).
				Set("confirmations = ?", matched.Confirmations).
				Set("updated_at = now()")
		})
		return err
	}

	return svc.ConfirmAndSettle(ctx, order, matched)
}

func (svc *PaymentService) confirmTransferGone(ctx context.Context, order *models.Order) (bool, error) {
	transfers, err := svc.Oracle.ListTransfers(ctx, order.Address)
	if err != nil {
		// Inconclusive; do nothing this round.
		return false, err
	}
	for _, t := range transfers {
		if t.TxID == order.TxReference {
			return false, nil
		}
	}
	return true, nil
}

// failOrder is the operational fallback for unrecoverable conditions. A
// failed order is terminal and needs manual intervention; it is never
// silently retried into confirmed.
func (svc *PaymentService) failOrder(ctx context.Context, order *models.Order, reason string) error {
	won, err := svc.transitionOrder(ctx, svc.DB, order, order.Status, func(q *bun.UpdateQuery) *bun.UpdateQuery {
		return q.Set("status = ?", common.OrderStatusFailed).Set("updated_at = now()")
	})
	if err != nil {
		return err
	}
	if won {
		svc.Logger.Errorf("Order %s failed: %s", order.OrderRef, reason)
		order.Status = common.OrderStatusFailed
	}
	return nil
}

func (svc *PaymentService) recordLateTransfers(ctx context.Context, order *models.Order) error {
	transfers, err := svc.Oracle.ListTransfers(ctx, order.Address)
	if err != nil {
		if tron.IsTransient(err) {
			return err
		}
		return nil
	}
	for _, t := range transfers {
		if err := svc.recordAnomaly(ctx, order, t, common.AnomalyKindLateTransfer, "transfer arrived after order expiry"); err != nil {
			return err
		}
	}
	return nil
}

// recordAnomaly stores a transfer for manual review. The insert is
// idempotent across reconciliation passes.
func (svc *PaymentService) recordAnomaly(ctx context.Context, order *models.Order, transfer tron.Transfer, kind, detail string) error {
	anomaly := &models.TransferAnomaly{
		OrderID:     order.ID,
		TxReference: transfer.TxID,
		Kind:        kind,
		Amount:      transfer.Amount,
		Detail:      detail,
	}
	_, err := svc.DB.NewInsert().Model(anomaly).On("CONFLICT DO NOTHING").Exec(ctx)
	if err == nil {
		svc.Logger.Warnf("Recorded %s anomaly on order %s tx:%s amount:%s", kind, order.OrderRef, transfer.TxID, transfer.Amount)
	}
	return err
}
