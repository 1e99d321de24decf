package service

import (
	"context"
	"time"

	"github.com/quantdesk/usdthub/common"
	"github.com/quantdesk/usdthub/db/models"
)

// ExpirePendingOrders retires every pending order whose window has passed.
// The status condition in the write means the sweeper can never clobber an
// order a concurrent reconciliation just marked paid, even when this scan
// read it as pending moments earlier.
func (svc *PaymentService) ExpirePendingOrders(ctx context.Context) (int64, error) {
	res, err := svc.DB.NewUpdate().
		Model((*models.Order)(nil)).
		Set("status = ?", common.OrderStatusExpired).
		Set("updated_at = now()").
		Where("status = ? AND expires_at < ?", common.OrderStatusPending, time.Now()).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
