package service

import (
	"errors"

	"github.com/labstack/gommon/random"
	"github.com/uptrace/bun"
	"github.com/ziflex/lecho/v3"

	"github.com/quantdesk/usdthub/tron"
	"github.com/quantdesk/usdthub/wallet"
)

const alphaNumBytes = random.Alphanumeric

// Sentinel errors returned to controllers; the transport layer maps them to
// wire error responses.
var (
	ErrInvalidPlan        = errors.New("unknown membership plan")
	ErrPaymentsDisabled   = errors.New("on-chain payments are disabled")
	ErrOrderNotFound      = errors.New("order not found")
	ErrNotCancellable     = errors.New("order can no longer be cancelled")
	ErrAccountDeactivated = errors.New("account deactivated")
)

type PaymentService struct {
	Config    *Config
	DB        *bun.DB
	Allocator *wallet.Allocator
	Oracle    tron.Client
	Logger    *lecho.Logger
	Plans     map[string]Plan
}
