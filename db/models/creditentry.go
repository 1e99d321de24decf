package models

import (
	"time"
)

// CreditEntry : Credit Ledger Entry Model
//
// Written exactly once per confirmed order, inside the confirming
// transaction. The unique order_id acts as defense in depth against a
// double settlement slipping past the status compare-and-set.
type CreditEntry struct {
	ID        int64     `json:"id" bun:",pk,autoincrement"`
	UserID    int64     `json:"user_id" bun:",notnull"`
	User      *User     `json:"-" bun:"rel:belongs-to,join:user_id=id"`
	OrderID   int64     `json:"order_id" bun:",unique,notnull"`
	Order     *Order    `json:"-" bun:"rel:belongs-to,join:order_id=id"`
	EntryType string    `json:"entry_type" bun:",notnull"`
	Plan      string    `json:"plan" bun:",notnull"`
	Credits   int64     `json:"credits" bun:",notnull"`
	VIPDays   int64     `json:"vip_days" bun:",notnull,default:0"`
	CreatedAt time.Time `json:"created_at" bun:",nullzero,notnull,default:current_timestamp"`
}
