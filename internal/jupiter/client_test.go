package jupiter

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-tx-engine/internal/domain"
)

const bonkMint = "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263"

func TestClient_Quote(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v6/quote" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("inputMint") != bonkMint || q.Get("outputMint") != domain.USDCMint {
			t.Errorf("unexpected mints: %v", q)
		}
		if q.Get("amount") != "100000" {
			t.Errorf("expected amount 100000, got %s", q.Get("amount"))
		}
		if q.Get("maxAutoSlippageBps") != "10" || q.Get("autoSlippage") != "true" {
			t.Errorf("unexpected slippage params: %v", q)
		}
		if q.Get("restrictIntermediateTokens") != "true" {
			t.Errorf("expected restrictIntermediateTokens")
		}
		w.Write([]byte(`{
			"inputMint": "` + bonkMint + `",
			"inAmount": "100000",
			"outputMint": "` + domain.USDCMint + `",
			"outAmount": "2345",
			"slippageBps": 10,
			"routePlan": [
				{"swapInfo": {"ammKey": "amm1", "label": "Whirlpool", "inputMint": "` + bonkMint + `",
					"outputMint": "` + domain.SOLMint + `", "inAmount": "100000", "outAmount": "15",
					"feeAmount": "100", "feeMint": "` + bonkMint + `"}, "percent": 100},
				{"swapInfo": {"ammKey": "amm2", "label": "Raydium", "inputMint": "` + domain.SOLMint + `",
					"outputMint": "` + domain.USDCMint + `", "inAmount": "15", "outAmount": "2345",
					"feeAmount": "5", "feeMint": "` + domain.USDCMint + `"}, "percent": 100}
			]
		}`))
	}))
	defer server.Close()

	c := NewClient(WithQuoteAPI(server.URL + "/v6"))
	resp, err := c.Quote(context.Background(), PriceQuote(bonkMint, 100000))
	require.NoError(t, err)

	out, err := resp.OutAmountUnits()
	require.NoError(t, err)
	assert.Equal(t, "2345", out.String())

	route := resp.Route()
	require.Len(t, route, 2)
	assert.Equal(t, "Whirlpool", route[0].Label)
	assert.Equal(t, 100000.0, route[0].InAmount)
	assert.Equal(t, 100.0, route[0].FeeAmount)
	assert.Equal(t, domain.USDCMint, route[1].FeeMint)
	assert.Equal(t, 2345.0, route[1].OutAmount)
}

func TestClient_QuoteZeroAmount(t *testing.T) {
	c := NewClient(WithQuoteAPI("http://unused"))
	_, err := c.Quote(context.Background(), PriceQuote(bonkMint, 0))
	assert.Error(t, err)
}

func TestClient_QuoteHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"Could not find any route"}`))
	}))
	defer server.Close()

	c := NewClient(WithQuoteAPI(server.URL))
	_, err := c.Quote(context.Background(), PriceQuote(bonkMint, 1))
	require.Error(t, err)

	var httpErr *HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusBadRequest, httpErr.StatusCode)
}

func TestClient_Price(t *testing.T) {
	tests := []struct {
		name string
		body string
		want float64
	}{
		{"number", `{"data":{"` + domain.SOLMint + `":{"id":"SOL","price":142.5}}}`, 142.5},
		{"string", `{"data":{"` + domain.SOLMint + `":{"id":"SOL","price":"142.5"}}}`, 142.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if got := r.URL.Query().Get("ids"); got != domain.SOLMint {
					t.Errorf("expected ids=%s, got %s", domain.SOLMint, got)
				}
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			c := NewClient(WithPriceAPI(server.URL))
			price, err := c.Price(context.Background(), domain.SOLMint)
			require.NoError(t, err)
			assert.Equal(t, tt.want, price)
		})
	}
}

func TestClient_PriceMissing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{}}`))
	}))
	defer server.Close()

	c := NewClient(WithPriceAPI(server.URL))
	_, err := c.Price(context.Background(), bonkMint)
	assert.ErrorIs(t, err, ErrPriceNotFound)
}

func TestQuoteResponse_RouteBadAmounts(t *testing.T) {
	q := &QuoteResponse{RoutePlan: []RoutePlanStep{{SwapInfo: SwapInfo{InAmount: "abc", OutAmount: ""}}}}
	route := q.Route()
	require.Len(t, route, 1)
	assert.Equal(t, 0.0, route[0].InAmount)
	assert.Equal(t, 0.0, route[0].OutAmount)
}
