package tron

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Transfer is the normalized view of one incoming token transfer observed
// at a deposit address. TxID uniquely identifies the transfer on chain, so
// re-delivery of the same transfer across polls is detectable by the caller.
type Transfer struct {
	TxID          string
	From          string
	To            string
	Amount        decimal.Decimal
	Confirmations int64
	BlockNumber   int64
	Timestamp     int64 // block timestamp, unix milliseconds
}

// Client answers "what happened at address X". Implementations query an
// external ledger indexer and are trusted for the confirmation counts they
// report, but not for liveness.
type Client interface {
	ListTransfers(ctx context.Context, address string) ([]Transfer, error)
}

// ErrorKind classifies oracle failures for the retry policy.
type ErrorKind int

const (
	// ErrorKindTransient marks failures worth retrying with backoff:
	// timeouts, rate limits, 5xx responses.
	ErrorKindTransient ErrorKind = iota
	// ErrorKindFatal marks failures that retrying within one call cannot
	// fix: bad credentials, unexpected upstream statuses. These are
	// operational problems and say nothing about the queried address.
	ErrorKindFatal
	// ErrorKindBadAddress marks the one permanently unanswerable case:
	// the queried address itself is rejected.
	ErrorKindBadAddress
)

type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("tron: %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// IsTransient reports whether err is a retryable oracle failure. Unknown
// errors count as transient so that network-level failures wrapped by the
// http client still get retried.
func IsTransient(err error) bool {
	var oe *Error
	if errors.As(err, &oe) {
		return oe.Kind == ErrorKindTransient
	}
	return true
}

// IsBadAddress reports whether err means the queried address can never be
// answered for, as opposed to the oracle being temporarily or operationally
// unable to answer.
func IsBadAddress(err error) bool {
	var oe *Error
	return errors.As(err, &oe) && oe.Kind == ErrorKindBadAddress
}

func transientError(op string, err error) *Error {
	return &Error{Kind: ErrorKindTransient, Op: op, Err: err}
}

func fatalError(op string, err error) *Error {
	return &Error{Kind: ErrorKindFatal, Op: op, Err: err}
}

func badAddressError(op string, err error) *Error {
	return &Error{Kind: ErrorKindBadAddress, Op: op, Err: err}
}
