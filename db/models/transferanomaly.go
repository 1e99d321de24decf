package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransferAnomaly : Transfer Anomaly Model
//
// Records chain activity that needs manual review (overpayments, extra
// transfers after a match, payments arriving after expiry). Anomalies never
// block or retrigger settlement. The (order_id, tx_reference, kind) unique
// constraint makes recording idempotent across reconciliation passes.
type TransferAnomaly struct {
	ID          int64           `json:"id" bun:",pk,autoincrement"`
	OrderID     int64           `json:"order_id" bun:",notnull,unique:anomaly_order_tx_kind"`
	Order       *Order          `json:"-" bun:"rel:belongs-to,join:order_id=id"`
	TxReference string          `json:"tx_reference" bun:",notnull,unique:anomaly_order_tx_kind"`
	Kind        string          `json:"kind" bun:",notnull,unique:anomaly_order_tx_kind"`
	Amount      decimal.Decimal `json:"amount" bun:"type:decimal(20,6),notnull"`
	Detail      string          `json:"detail" bun:",nullzero"`
	CreatedAt   time.Time       `json:"created_at" bun:",nullzero,notnull,default:current_timestamp"`
}
