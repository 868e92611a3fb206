// Package ledger reads balances and gas prices from a Sui full node over
// JSON-RPC. Building and signing transactions happens outside this service.
package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/tjfontaine/sui-agent/internal/domain"
)

// Coin types on mainnet.
const (
	SUICoinType         = "0x2::sui::SUI"
	DefaultUSDCCoinType = "0xdba34672e30cb065b1f93e3ab55318768fd6fef66c15942c9f7cb846e2f900e7::usdc::USDC"
)

const (
	// DefaultGasUnits approximates the computation units of a coin transfer.
	DefaultGasUnits = 2_000
	// DefaultGasBudget caps any estimate at 0.01 SUI.
	DefaultGasBudget = 10_000_000
)

// Config configures the RPC client.
type Config struct {
	RPCURL       string
	USDCCoinType string
	GasUnits     uint64
	GasBudget    uint64
	HTTPClient   *http.Client
}

// Client is a minimal Sui JSON-RPC client.
type Client struct {
	url        string
	coinTypes  map[domain.Token]string
	gasUnits   uint64
	gasBudget  uint64
	httpClient *http.Client
	nextID     atomic.Uint64
}

// NewClient creates a client for cfg.RPCURL.
func NewClient(cfg Config) *Client {
	c := &Client{
		url:        cfg.RPCURL,
		gasUnits:   cfg.GasUnits,
		gasBudget:  cfg.GasBudget,
		httpClient: cfg.HTTPClient,
		coinTypes: map[domain.Token]string{
			domain.TokenSUI:  SUICoinType,
			domain.TokenUSDC: cfg.USDCCoinType,
		},
	}
	if c.coinTypes[domain.TokenUSDC] == "" {
		c.coinTypes[domain.TokenUSDC] = DefaultUSDCCoinType
	}
	if c.gasUnits == 0 {
		c.gasUnits = DefaultGasUnits
	}
	if c.gasBudget == 0 {
		c.gasBudget = DefaultGasBudget
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return c
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *RPCError       `json:"error"`
}

// RPCError is an error object returned by the node.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("ledger: rpc error %d: %s", e.Code, e.Message)
}

func (c *Client) call(ctx context.Context, method string, params []any, out any) error {
	if params == nil {
		params = []any{}
	}
	body, err := json.Marshal(rpcRequest{JSONRPC: "2.0", ID: c.nextID.Add(1), Method: method, Params: params})
	if err != nil {
		return fmt.Errorf("ledger: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("ledger: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ledger: %s failed: %w", method, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("ledger: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ledger: %s returned status %d", method, resp.StatusCode)
	}

	var rr rpcResponse
	if err := json.Unmarshal(respBody, &rr); err != nil {
		return fmt.Errorf("ledger: decode response: %w", err)
	}
	if rr.Error != nil {
		return rr.Error
	}
	if err := json.Unmarshal(rr.Result, out); err != nil {
		return fmt.Errorf("ledger: decode %s result: %w", method, err)
	}
	return nil
}

// Balance returns owner's total balance of token in smallest units.
func (c *Client) Balance(ctx context.Context, owner string, token domain.Token) (string, error) {
	coinType, ok := c.coinTypes[token]
	if !ok {
		return "", fmt.Errorf("ledger: unsupported token %q", token)
	}
	var result struct {
		CoinType        string `json:"coinType"`
		CoinObjectCount int    `json:"coinObjectCount"`
		TotalBalance    string `json:"totalBalance"`
	}
	if err := c.call(ctx, "suix_getBalance", []any{owner, coinType}, &result); err != nil {
		return "", err
	}
	return result.TotalBalance, nil
}

// ReferenceGasPrice returns the current reference gas price in MIST per unit.
func (c *Client) ReferenceGasPrice(ctx context.Context) (uint64, error) {
	var raw json.RawMessage
	if err := c.call(ctx, "suix_getReferenceGasPrice", nil, &raw); err != nil {
		return 0, err
	}
	// Nodes return the price as a decimal string; older ones as a number.
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		s = string(raw)
	}
	price, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("ledger: parse gas price %q: %w", s, err)
	}
	return price, nil
}

// EstimateGas prices a simple transfer in MIST, capped at the gas budget.
func (c *Client) EstimateGas(ctx context.Context) (string, error) {
	price, err := c.ReferenceGasPrice(ctx)
	if err != nil {
		return "", err
	}
	fee := price * c.gasUnits
	if fee > c.gasBudget || (c.gasUnits != 0 && fee/c.gasUnits != price) {
		fee = c.gasBudget
	}
	return strconv.FormatUint(fee, 10), nil
}
