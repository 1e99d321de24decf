package tron

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/quantdesk/usdthub/wallet"
)

func testAddress(t *testing.T, index uint32) string {
	seed := []byte("usdthub tron test seed 00000001!")
	master, err := hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
	assert.NoError(t, err)
	account := master
	for _, child := range []uint32{44, 195, 0} {
		account, err = account.Derive(hdkeychain.HardenedKeyStart + child)
		assert.NoError(t, err)
	}
	neutered, err := account.Neuter()
	assert.NoError(t, err)
	allocator, err := wallet.NewAllocator(neutered.String())
	assert.NoError(t, err)
	address, err := allocator.Derive(index)
	assert.NoError(t, err)
	return address
}

// tronGridStub serves the three TronGrid endpoints the client touches.
func tronGridStub(address string, nowBlock, txBlock int64, value string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/wallet/getnowblock":
			fmt.Fprintf(w, `{"block_header":{"raw_data":{"number":%d}}}`, nowBlock)
		case "/wallet/gettransactioninfobyid":
			fmt.Fprintf(w, `{"id":"tx-1","blockNumber":%d}`, txBlock)
		case "/v1/accounts/" + address + "/transactions/trc20":
			fmt.Fprintf(w, `{"success":true,"data":[{"transaction_id":"tx-1","from":"TSender","to":%q,"value":%q,"block_timestamp":1700000000000,"token_info":{"symbol":"USDT","decimals":6}}]}`, address, value)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}
}

func TestListTransfers(t *testing.T) {
	address := testAddress(t, 0)
	server := httptest.NewServer(tronGridStub(address, 1000, 995, "19900000"))
	defer server.Close()

	client := NewTronGridClient(server.URL, "TContract")
	transfers, err := client.ListTransfers(context.Background(), address)
	assert.NoError(t, err)
	assert.Len(t, transfers, 1)
	assert.Equal(t, "tx-1", transfers[0].TxID)
	assert.True(t, transfers[0].Amount.Equal(decimal.RequireFromString("19.90")))
	assert.Equal(t, int64(6), transfers[0].Confirmations)
	assert.Equal(t, int64(995), transfers[0].BlockNumber)
	assert.Equal(t, int64(1700000000000), transfers[0].Timestamp)
}

func TestListTransfersSendsAPIKey(t *testing.T) {
	address := testAddress(t, 1)
	var sawKey atomic.Bool
	stub := tronGridStub(address, 1000, 995, "19900000")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("TRON-PRO-API-KEY") == "secret-key" {
			sawKey.Store(true)
		}
		stub(w, r)
	}))
	defer server.Close()

	client := NewTronGridClient(server.URL, "TContract", WithAPIKey("secret-key"))
	_, err := client.ListTransfers(context.Background(), address)
	assert.NoError(t, err)
	assert.True(t, sawKey.Load())
}

func TestListTransfersIgnoresOtherRecipients(t *testing.T) {
	address := testAddress(t, 2)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/wallet/getnowblock":
			fmt.Fprint(w, `{"block_header":{"raw_data":{"number":1000}}}`)
		case "/v1/accounts/" + address + "/transactions/trc20":
			fmt.Fprint(w, `{"success":true,"data":[{"transaction_id":"tx-out","from":"TSomeoneElse","to":"TOtherAddress","value":"5000000","block_timestamp":1700000000000,"token_info":{"symbol":"USDT","decimals":6}}]}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client := NewTronGridClient(server.URL, "TContract")
	transfers, err := client.ListTransfers(context.Background(), address)
	assert.NoError(t, err)
	assert.Empty(t, transfers)
}

func TestListTransfersMalformedAddressIsBadAddress(t *testing.T) {
	client := NewTronGridClient("http://127.0.0.1:1", "TContract")
	_, err := client.ListTransfers(context.Background(), "not-an-address")
	assert.Error(t, err)
	assert.False(t, IsTransient(err))
	assert.True(t, IsBadAddress(err))
}

func TestListTransfersUnauthorizedIsNotBadAddress(t *testing.T) {
	address := testAddress(t, 5)
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	// a rejected API key is an operational problem, not a statement about
	// the queried address
	client := NewTronGridClient(server.URL, "TContract")
	client.MaxRetryElapsed = 10 * time.Second
	_, err := client.ListTransfers(context.Background(), address)
	assert.Error(t, err)
	assert.False(t, IsTransient(err))
	assert.False(t, IsBadAddress(err))
	assert.Equal(t, int64(1), calls.Load())
}

func TestListTransfersRetriesTransientFailures(t *testing.T) {
	address := testAddress(t, 3)
	var calls atomic.Int64
	stub := tronGridStub(address, 1000, 995, "19900000")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		stub(w, r)
	}))
	defer server.Close()

	client := NewTronGridClient(server.URL, "TContract")
	client.MaxRetryElapsed = 10 * time.Second
	transfers, err := client.ListTransfers(context.Background(), address)
	assert.NoError(t, err)
	assert.Len(t, transfers, 1)
	assert.GreaterOrEqual(t, calls.Load(), int64(2))
}

func TestListTransfersDoesNotRetryFatalStatus(t *testing.T) {
	address := testAddress(t, 4)
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewTronGridClient(server.URL, "TContract")
	client.MaxRetryElapsed = 10 * time.Second
	_, err := client.ListTransfers(context.Background(), address)
	assert.Error(t, err)
	assert.False(t, IsTransient(err))
	assert.False(t, IsBadAddress(err))
	assert.Equal(t, int64(1), calls.Load())
}

func TestParseTokenValue(t *testing.T) {
	amount, err := parseTokenValue("19900000", 6)
	assert.NoError(t, err)
	assert.True(t, amount.Equal(decimal.RequireFromString("19.90")))

	// missing token metadata falls back to USDT's six decimals
	amount, err = parseTokenValue("1000000", 0)
	assert.NoError(t, err)
	assert.True(t, amount.Equal(decimal.NewFromInt(1)))

	_, err = parseTokenValue("garbage", 6)
	assert.Error(t, err)
}

func TestErrorKinds(t *testing.T) {
	assert.True(t, IsTransient(transientError("op", errors.New("timeout"))))
	assert.False(t, IsTransient(fatalError("op", errors.New("bad credentials"))))
	assert.False(t, IsTransient(badAddressError("op", errors.New("malformed address"))))
	assert.False(t, IsBadAddress(fatalError("op", errors.New("bad credentials"))))
	assert.True(t, IsBadAddress(badAddressError("op", errors.New("malformed address"))))
	// unclassified errors are retried
	assert.True(t, IsTransient(errors.New("connection reset")))
	assert.False(t, IsBadAddress(errors.New("connection reset")))
}
