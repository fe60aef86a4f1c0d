package domain

import (
	"errors"
	"testing"
)

func TestBlockhashLease_EffectiveExpiry(t *testing.T) {
	tests := []struct {
		name string
		last uint64
		want uint64
	}{
		{name: "typical", last: 1000, want: 850},
		{name: "exactly margin", last: 150, want: 0},
		{name: "below margin", last: 20, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lease := BlockhashLease{Blockhash: "hash", LastValidBlockHeight: tt.last}
			if got := lease.EffectiveExpiry(); got != tt.want {
				t.Errorf("EffectiveExpiry() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestTradeContext(t *testing.T) {
	tc := NewTradeContext(TradeContext{
		BaseMint:      SOLMint,
		BaseDecimals:  SOLDecimals,
		QuoteMint:     USDCMint,
		QuoteDecimals: USDCDecimals,
	})

	if tc.RequestID == "" {
		t.Error("expected request id to be assigned")
	}
	if err := tc.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}

	if d, ok := tc.DecimalsFor(USDCMint); !ok || d != 6 {
		t.Errorf("DecimalsFor(USDC) = %d, %v", d, ok)
	}
	if _, ok := tc.DecimalsFor(USDTMint); ok {
		t.Error("DecimalsFor(USDT) should be unknown")
	}

	again := NewTradeContext(tc)
	if again.RequestID != tc.RequestID {
		t.Error("existing request id must be kept")
	}

	bad := TradeContext{BaseMint: SOLMint}
	if err := bad.Validate(); !errors.Is(err, ErrInvalidTradeContext) {
		t.Errorf("Validate() error = %v, want ErrInvalidTradeContext", err)
	}
}

func TestIsUSDStable(t *testing.T) {
	if !IsUSDStable(USDCMint) || !IsUSDStable(USDTMint) {
		t.Error("USDC and USDT are USD stables")
	}
	if IsUSDStable(SOLMint) {
		t.Error("SOL is not a USD stable")
	}
}
