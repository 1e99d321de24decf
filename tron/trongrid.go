package tron

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/shopspring/decimal"
	"github.com/ziflex/lecho/v3"

	"github.com/quantdesk/usdthub/wallet"
)

const (
	apiKeyHeader     = "TRON-PRO-API-KEY"
	transfersPerPage = 50

	// usdtDecimals is the number of decimals of the TRC20 USDT contract.
	usdtDecimals = 6
)

// TronGridClient implements Client against the TronGrid HTTP API.
type TronGridClient struct {
	BaseURL         string
	APIKey          string
	ContractAddress string
	HTTPClient      *http.Client
	Logger          *lecho.Logger

	// MaxRetryElapsed bounds the exponential backoff applied to transient
	// failures inside a single ListTransfers call.
	MaxRetryElapsed time.Duration
}

type TronGridOption func(*TronGridClient)

func WithAPIKey(key string) TronGridOption {
	return func(c *TronGridClient) { c.APIKey = key }
}

func WithHTTPTimeout(timeout time.Duration) TronGridOption {
	return func(c *TronGridClient) { c.HTTPClient.Timeout = timeout }
}

func WithTronGridLogger(logger *lecho.Logger) TronGridOption {
	return func(c *TronGridClient) { c.Logger = logger }
}

func NewTronGridClient(baseURL, contractAddress string, options ...TronGridOption) *TronGridClient {
	client := &TronGridClient{
		BaseURL:         baseURL,
		ContractAddress: contractAddress,
		HTTPClient:      &http.Client{Timeout: 10 * time.Second},
		MaxRetryElapsed: 30 * time.Second,
	}
	for _, opt := range options {
		opt(client)
	}
	return client
}

type trc20TransferItem struct {
	TransactionID  string `json:"transaction_id"`
	From           string `json:"from"`
	To             string `json:"to"`
	Value          string `json:"value"`
	BlockTimestamp int64  `json:"block_timestamp"`
	TokenInfo      struct {
		Symbol   string `json:"symbol"`
		Address  string `json:"address"`
		Decimals int32  `json:"decimals"`
	} `json:"token_info"`
}

type trc20TransferResponse struct {
	Data    []trc20TransferItem `json:"data"`
	Success bool                `json:"success"`
}

type transactionInfoResponse struct {
	ID          string `json:"id"`
	BlockNumber int64  `json:"blockNumber"`
}

type nowBlockResponse struct {
	BlockHeader struct {
		RawData struct {
			Number int64 `json:"number"`
		} `json:"raw_data"`
	} `json:"block_header"`
}

// ListTransfers returns the incoming USDT transfers seen at address,
// newest first, with their current confirmation depth. Transient upstream
// failures are retried with exponential backoff before surfacing.
func (c *TronGridClient) ListTransfers(ctx context.Context, address string) ([]Transfer, error) {
	if !wallet.ValidAddress(address) {
		return nil, badAddressError("list transfers", fmt.Errorf("malformed address %q", address))
	}

	var transfers []Transfer
	operation := func() error {
		var err error
		transfers, err = c.listTransfersOnce(ctx, address)
		if err != nil && !IsTransient(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	policy := backoff.NewExponentialBackOff()
	policy.MaxInterval = 5 * time.Second
	policy.MaxElapsedTime = c.MaxRetryElapsed
	err := backoff.Retry(operation, backoff.WithContext(policy, ctx))
	if err != nil {
		return nil, err
	}
	return transfers, nil
}

func (c *TronGridClient) listTransfersOnce(ctx context.Context, address string) ([]Transfer, error) {
	nowBlock, err := c.nowBlock(ctx)
	if err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("only_to", "true")
	query.Set("only_confirmed", "true")
	query.Set("limit", fmt.Sprint(transfersPerPage))
	query.Set("contract_address", c.ContractAddress)

	endpoint := fmt.Sprintf("%s/v1/accounts/%s/transactions/trc20?%s", c.BaseURL, address, query.Encode())
	var page trc20TransferResponse
	if err := c.getJSON(ctx, endpoint, &page); err != nil {
		return nil, err
	}

	transfers := make([]Transfer, 0, len(page.Data))
	for _, item := range page.Data {
		if item.To != address {
			continue
		}
		amount, err := parseTokenValue(item.Value, item.TokenInfo.Decimals)
		if err != nil {
			if c.Logger != nil {
				c.Logger.Warnf("Skipping transfer %s with unparseable value %q: %v", item.TransactionID, item.Value, err)
			}
			continue
		}

		blockNumber, err := c.transactionBlock(ctx, item.TransactionID)
		if err != nil {
			return nil, err
		}
		confirmations := int64(0)
		if blockNumber > 0 && nowBlock >= blockNumber {
			confirmations = nowBlock - blockNumber + 1
		}

		transfers = append(transfers, Transfer{
			TxID:          item.TransactionID,
			From:          item.From,
			To:            item.To,
			Amount:        amount,
			Confirmations: confirmations,
			BlockNumber:   blockNumber,
			Timestamp:     item.BlockTimestamp,
		})
	}
	return transfers, nil
}

func (c *TronGridClient) nowBlock(ctx context.Context) (int64, error) {
	var resp nowBlockResponse
	if err := c.postJSON(ctx, c.BaseURL+"/wallet/getnowblock", nil, &resp); err != nil {
		return 0, err
	}
	return resp.BlockHeader.RawData.Number, nil
}

func (c *TronGridClient) transactionBlock(ctx context.Context, txID string) (int64, error) {
	body := map[string]string{"value": txID}
	var resp transactionInfoResponse
	if err := c.postJSON(ctx, c.BaseURL+"/wallet/gettransactioninfobyid", body, &resp); err != nil {
		return 0, err
	}
	return resp.BlockNumber, nil
}

func (c *TronGridClient) getJSON(ctx context.Context, endpoint string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fatalError("build request", err)
	}
	return c.do(req, out)
}

func (c *TronGridClient) postJSON(ctx context.Context, endpoint string, payload interface{}, out interface{}) error {
	buf := &bytes.Buffer{}
	if payload != nil {
		if err := json.NewEncoder(buf).Encode(payload); err != nil {
			return fatalError("encode request", err)
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, buf)
	if err != nil {
		return fatalError("build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *TronGridClient) do(req *http.Request, out interface{}) error {
	if c.APIKey != "" {
		req.Header.Set(apiKeyHeader, c.APIKey)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return transientError("http request", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return transientError("http request", fmt.Errorf("upstream status %d", resp.StatusCode))
	default:
		return fatalError("http request", fmt.Errorf("upstream status %d", resp.StatusCode))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return transientError("decode response", err)
	}
	return nil
}

func parseTokenValue(value string, decimals int32) (decimal.Decimal, error) {
	raw, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, err
	}
	if decimals <= 0 {
		decimals = usdtDecimals
	}
	return raw.Shift(-decimals), nil
}
