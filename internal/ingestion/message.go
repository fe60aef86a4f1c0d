// Package ingestion accepts signed swap transactions over HTTP and Kafka and
// drives them through submission, parsing and persistence.
package ingestion

import (
	"encoding/json"
	"errors"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"

	"solana-tx-engine/internal/domain"
)

// ErrInvalidMessage is returned when an inbound message fails validation.
var ErrInvalidMessage = errors.New("invalid message")

// Message is the inbound trade request carried on Kafka.
type Message struct {
	Client       string  `json:"client"`
	Vault        string  `json:"vault"`
	Wallet       string  `json:"wallet"`
	BaseMint     string  `json:"baseMint"`
	QuoteMint    string  `json:"quoteMint"`
	SwapFees     float64 `json:"swapFees"`
	BaseDecimal  int     `json:"baseDecimal"`
	QuoteDecimal int     `json:"quoteDecimal"`
	Txn          string  `json:"txn"` // base64 signed transaction
}

// DecodeMessage parses and validates a JSON message.
func DecodeMessage(data []byte) (*Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks required fields. The wallet signs the transaction, so it
// must be a point on the ed25519 curve.
func (m *Message) Validate() error {
	if m.Client == "" {
		return fmt.Errorf("%w: client is required", ErrInvalidMessage)
	}
	if m.Txn == "" {
		return fmt.Errorf("%w: txn is required", ErrInvalidMessage)
	}
	if m.Wallet != "" {
		if err := checkOnCurve(m.Wallet); err != nil {
			return fmt.Errorf("%w: wallet: %v", ErrInvalidMessage, err)
		}
	}
	if err := m.TradeContext().Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	return nil
}

// TradeContext builds the trade parameters of the message.
func (m *Message) TradeContext() domain.TradeContext {
	return domain.NewTradeContext(domain.TradeContext{
		ClientID:      m.Client,
		Vault:         m.Vault,
		Wallet:        m.Wallet,
		BaseMint:      m.BaseMint,
		BaseDecimals:  m.BaseDecimal,
		QuoteMint:     m.QuoteMint,
		QuoteDecimals: m.QuoteDecimal,
		SwapFees:      m.SwapFees,
	})
}

func checkOnCurve(address string) error {
	b, err := base58.Decode(address)
	if err != nil {
		return fmt.Errorf("decode base58: %w", err)
	}
	if len(b) != 32 {
		return fmt.Errorf("expected 32 bytes, got %d", len(b))
	}
	if _, err := new(edwards25519.Point).SetBytes(b); err != nil {
		return errors.New("not on the ed25519 curve")
	}
	return nil
}
