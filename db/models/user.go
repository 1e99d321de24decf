package models

import (
	"time"

	"github.com/uptrace/bun"
)

// User : User Model
type User struct {
	ID          int64        `json:"id" bun:",pk,autoincrement"`
	Login       string       `json:"login" bun:",unique,notnull"`
	Password    string       `json:"-" bun:",notnull"`
	Credits     int64        `json:"credits" bun:",notnull,default:0"`
	VIPUntil    bun.NullTime `json:"vip_until" bun:",nullzero"`
	VIPLifetime bool         `json:"vip_lifetime" bun:",notnull,default:false"`
	Deactivated bool         `json:"-" bun:",nullzero"`
	CreatedAt   time.Time    `json:"created_at" bun:",nullzero,notnull,default:current_timestamp"`
	UpdatedAt   bun.NullTime `json:"updated_at"`
}
