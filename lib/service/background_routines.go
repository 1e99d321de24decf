package service

import (
	"context"
	"time"
)

// StartReconcilerRoutine periodically sweeps all open orders against the
// chain. It runs until the context is cancelled.
func (svc *PaymentService) StartReconcilerRoutine(ctx context.Context) error {
	ticker := time.NewTicker(time.Duration(svc.Config.ReconcilerInterval) * time.Second)
	defer ticker.Stop()
	for {
		if err := svc.ReconcileAll(ctx); err != nil && ctx.Err() == nil {
			svc.Logger.Errorf("Reconciler sweep error: %v", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// StartExpirySweeperRoutine periodically retires pending orders whose
// payment window has passed.
func (svc *PaymentService) StartExpirySweeperRoutine(ctx context.Context) error {
	ticker := time.NewTicker(time.Duration(svc.Config.SweeperInterval) * time.Second)
	defer ticker.Stop()
	for {
		expired, err := svc.ExpirePendingOrders(ctx)
		if err != nil && ctx.Err() == nil {
			svc.Logger.Errorf("Expiry sweep error: %v", err)
		} else if expired > 0 {
			svc.Logger.Infof("Expired %d stale orders", expired)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
