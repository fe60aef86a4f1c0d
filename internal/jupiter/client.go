// Package jupiter is a client for the Jupiter quote and price HTTP APIs.
package jupiter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"solana-tx-engine/internal/domain"
)

// Default configuration values.
const (
	DefaultQuoteAPI   = "https://quote-api.jup.ag/v6"
	DefaultPriceAPI   = "https://price.jup.ag/v6/price"
	DefaultTimeout    = 10 * time.Second
	DefaultSlippageBp = 10
)

// ErrPriceNotFound is returned when the price API has no entry for a mint.
var ErrPriceNotFound = errors.New("price not found")

// HTTPError is a non-2xx response from a Jupiter API.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("jupiter: HTTP %d: %s", e.StatusCode, e.Body)
}

// Client talks to the Jupiter quote and price APIs. Safe for concurrent use.
type Client struct {
	quoteAPI string
	priceAPI string
	client   *http.Client
}

// ClientOption configures Client.
type ClientOption func(*Client)

// WithQuoteAPI sets the quote API base URL.
func WithQuoteAPI(base string) ClientOption {
	return func(c *Client) {
		if base != "" {
			c.quoteAPI = base
		}
	}
}

// WithPriceAPI sets the price API URL.
func WithPriceAPI(u string) ClientOption {
	return func(c *Client) {
		if u != "" {
			c.priceAPI = u
		}
	}
}

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.client = hc
	}
}

// NewClient creates a Jupiter API client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		quoteAPI: DefaultQuoteAPI,
		priceAPI: DefaultPriceAPI,
		client:   &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// QuoteRequest holds the parameters of a quote lookup.
type QuoteRequest struct {
	InputMint                  string
	OutputMint                 string
	Amount                     uint64 // raw units of InputMint
	AutoSlippage               bool
	MaxAutoSlippageBps         int
	OnlyDirectRoutes           bool
	RestrictIntermediateTokens bool
}

// PriceQuote returns the request used to price one unit of mint in USDC.
func PriceQuote(mint string, amount uint64) QuoteRequest {
	return QuoteRequest{
		InputMint:                  mint,
		OutputMint:                 domain.USDCMint,
		Amount:                     amount,
		AutoSlippage:               true,
		MaxAutoSlippageBps:         DefaultSlippageBp,
		RestrictIntermediateTokens: true,
	}
}

func (r QuoteRequest) values() url.Values {
	v := url.Values{}
	v.Set("inputMint", r.InputMint)
	v.Set("outputMint", r.OutputMint)
	v.Set("amount", strconv.FormatUint(r.Amount, 10))
	if r.AutoSlippage {
		v.Set("autoSlippage", "true")
		v.Set("maxAutoSlippageBps", strconv.Itoa(r.MaxAutoSlippageBps))
	} else if r.MaxAutoSlippageBps > 0 {
		v.Set("slippageBps", strconv.Itoa(r.MaxAutoSlippageBps))
	}
	v.Set("onlyDirectRoutes", strconv.FormatBool(r.OnlyDirectRoutes))
	v.Set("asLegacyTransaction", "false")
	if r.RestrictIntermediateTokens {
		v.Set("restrictIntermediateTokens", "true")
	}
	return v
}

// SwapInfo is one hop of a quoted route.
type SwapInfo struct {
	AMMKey     string `json:"ammKey"`
	Label      string `json:"label"`
	InputMint  string `json:"inputMint"`
	OutputMint string `json:"outputMint"`
	InAmount   string `json:"inAmount"`
	OutAmount  string `json:"outAmount"`
	FeeAmount  string `json:"feeAmount"`
	FeeMint    string `json:"feeMint"`
}

// RoutePlanStep wraps a hop with its share of the input.
type RoutePlanStep struct {
	SwapInfo SwapInfo `json:"swapInfo"`
	Percent  int      `json:"percent"`
}

// QuoteResponse is the quote API response.
type QuoteResponse struct {
	InputMint            string          `json:"inputMint"`
	InAmount             string          `json:"inAmount"`
	OutputMint           string          `json:"outputMint"`
	OutAmount            string          `json:"outAmount"`
	OtherAmountThreshold string          `json:"otherAmountThreshold"`
	SwapMode             string          `json:"swapMode"`
	SlippageBps          int             `json:"slippageBps"`
	PriceImpactPct       string          `json:"priceImpactPct"`
	RoutePlan            []RoutePlanStep `json:"routePlan"`
	ContextSlot          uint64          `json:"contextSlot"`
}

// OutAmountUnits parses OutAmount as raw units.
func (q *QuoteResponse) OutAmountUnits() (decimal.Decimal, error) {
	d, err := decimal.NewFromString(q.OutAmount)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse outAmount %q: %w", q.OutAmount, err)
	}
	return d, nil
}

// Route converts the route plan into domain hops.
// Unparseable amounts become 0.
func (q *QuoteResponse) Route() []domain.RouteHop {
	hops := make([]domain.RouteHop, 0, len(q.RoutePlan))
	for _, step := range q.RoutePlan {
		si := step.SwapInfo
		hops = append(hops, domain.RouteHop{
			AMMKey:     si.AMMKey,
			Label:      si.Label,
			InputMint:  si.InputMint,
			OutputMint: si.OutputMint,
			InAmount:   parseAmount(si.InAmount),
			OutAmount:  parseAmount(si.OutAmount),
			FeeAmount:  parseAmount(si.FeeAmount),
			FeeMint:    si.FeeMint,
		})
	}
	return hops
}

func parseAmount(s string) float64 {
	if s == "" {
		return 0
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0
	}
	return d.InexactFloat64()
}

// Quote fetches a swap quote.
func (c *Client) Quote(ctx context.Context, req QuoteRequest) (*QuoteResponse, error) {
	if req.Amount == 0 {
		return nil, fmt.Errorf("quote %s: amount must be positive", req.InputMint)
	}

	u := c.quoteAPI + "/quote?" + req.values().Encode()
	var resp QuoteResponse
	if err := c.get(ctx, u, &resp); err != nil {
		return nil, fmt.Errorf("quote %s -> %s: %w", req.InputMint, req.OutputMint, err)
	}
	return &resp, nil
}

// priceEntry accepts the price as a JSON number or string.
type priceEntry struct {
	ID    string          `json:"id"`
	Price json.RawMessage `json:"price"`
}

type priceResponse struct {
	Data map[string]*priceEntry `json:"data"`
}

// Price fetches the USD price of mint from the price API.
func (c *Client) Price(ctx context.Context, mint string) (float64, error) {
	u := c.priceAPI + "?" + url.Values{"ids": {mint}}.Encode()

	var resp priceResponse
	if err := c.get(ctx, u, &resp); err != nil {
		return 0, fmt.Errorf("price %s: %w", mint, err)
	}

	entry, ok := resp.Data[mint]
	if !ok || entry == nil || len(entry.Price) == 0 || string(entry.Price) == "null" {
		return 0, fmt.Errorf("%w: %s", ErrPriceNotFound, mint)
	}

	raw := string(entry.Price)
	if unquoted, err := strconv.Unquote(raw); err == nil {
		raw = unquoted
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return 0, fmt.Errorf("price %s: parse %q: %w", mint, raw, err)
	}
	return d.InexactFloat64(), nil
}

func (c *Client) get(ctx context.Context, u string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &HTTPError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}
