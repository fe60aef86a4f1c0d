package domain

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrInvalidTradeContext is returned when a trade context misses required fields.
var ErrInvalidTradeContext = errors.New("invalid trade context")

// TradeContext carries the per-message parameters of one submission.
// It is built once per inbound message and passed by value; nothing mutates it.
type TradeContext struct {
	RequestID string

	ClientID string
	Vault    string
	Wallet   string

	BaseMint      string
	BaseDecimals  int
	QuoteMint     string
	QuoteDecimals int

	// SwapFees is the fee fraction charged on the input USD amount (0.001 = 0.1%).
	SwapFees float64
}

// NewTradeContext returns a copy of tc with a fresh request ID if it has none.
func NewTradeContext(tc TradeContext) TradeContext {
	if tc.RequestID == "" {
		tc.RequestID = uuid.NewString()
	}
	return tc
}

// Validate checks that the mints and decimals are usable.
func (tc TradeContext) Validate() error {
	if tc.BaseMint == "" || tc.QuoteMint == "" {
		return fmt.Errorf("%w: base and quote mint are required", ErrInvalidTradeContext)
	}
	if tc.BaseDecimals < 0 || tc.QuoteDecimals < 0 {
		return fmt.Errorf("%w: decimals must be non-negative", ErrInvalidTradeContext)
	}
	if tc.SwapFees < 0 {
		return fmt.Errorf("%w: swap fees must be non-negative", ErrInvalidTradeContext)
	}
	return nil
}

// DecimalsFor returns the decimals of mint if it is the trade's base or quote.
func (tc TradeContext) DecimalsFor(mint string) (int, bool) {
	switch mint {
	case "":
		return 0, false
	case tc.BaseMint:
		return tc.BaseDecimals, true
	case tc.QuoteMint:
		return tc.QuoteDecimals, true
	}
	return 0, false
}
