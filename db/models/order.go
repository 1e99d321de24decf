package models

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// Order : Payment Order Model
//
// One order owns its deposit address for all time; the unique constraints on
// address and derivation_index are part of the correctness argument, not
// just hygiene. All state transitions happen through conditional updates
// guarded on the current status.
type Order struct {
	ID                int64           `json:"id" bun:",pk,autoincrement"`
	OrderRef          string          `json:"order_ref" bun:",unique,notnull"`
	UserID            int64           `json:"user_id" bun:",notnull"`
	User              *User           `json:"-" bun:"rel:belongs-to,join:user_id=id"`
	Plan              string          `json:"plan" bun:",notnull"`
	Chain             string          `json:"chain" bun:",notnull"`
	DerivationIndex   int64           `json:"-" bun:",unique,notnull"`
	Address           string          `json:"address" bun:",unique,notnull"`
	ExpectedAmount    decimal.Decimal `json:"expected_amount" bun:"type:decimal(20,6),notnull"`
	ObservedAmount    decimal.Decimal `json:"observed_amount" bun:"type:decimal(20,6),notnull,default:0"`
	Status            string          `json:"status" bun:",notnull,default:'pending'"`
	TxReference       string          `json:"tx_reference" bun:",nullzero"`
	Confirmations     int64           `json:"confirmations" bun:",notnull,default:0"`
	SettlementApplied bool            `json:"-" bun:",notnull,default:false"`
	PaidAt            bun.NullTime    `json:"paid_at" bun:",nullzero"`
	ConfirmedAt       bun.NullTime    `json:"confirmed_at" bun:",nullzero"`
	ExpiresAt         time.Time       `json:"expires_at" bun:",notnull"`
	CreatedAt         time.Time       `json:"created_at" bun:",nullzero,notnull,default:current_timestamp"`
	UpdatedAt         bun.NullTime    `json:"updated_at"`
}

func (o *Order) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	switch query.(type) {
	case *bun.UpdateQuery:
		o.UpdatedAt = bun.NullTime{Time: time.Now()}
	}
	return nil
}

var _ bun.BeforeAppendModelHook = (*Order)(nil)
