package common

const (
	OrderStatusPending   = "pending"
	OrderStatusPaid      = "paid"
	OrderStatusConfirmed = "confirmed"
	OrderStatusExpired   = "expired"
	OrderStatusCancelled = "cancelled"
	OrderStatusFailed    = "failed"

	PlanMonthly  = "monthly"
	PlanYearly   = "yearly"
	PlanLifetime = "lifetime"

	ChainTRC20 = "TRC20"

	AnomalyKindOverpayment   = "overpayment"
	AnomalyKindUnderpayment  = "underpayment"
	AnomalyKindExtraTransfer = "extra_transfer"
	AnomalyKindLateTransfer  = "late_transfer"
	AnomalyKindStaleTransfer = "stale_transfer"

	CreditEntryTypeMembership = "membership"
)

// IsTerminalOrderStatus reports whether an order in the given status can
// never transition again.
func IsTerminalOrderStatus(status string) bool {
	switch status {
	case OrderStatusConfirmed, OrderStatusExpired, OrderStatusCancelled, OrderStatusFailed:
		return true
	}
	return false
}
