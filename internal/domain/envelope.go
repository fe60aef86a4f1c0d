package domain

import (
	"encoding/base64"
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// ErrInvalidEnvelope is returned when a payload cannot be decoded as a signed transaction.
var ErrInvalidEnvelope = errors.New("invalid transaction envelope")

// TransactionEnvelope is a signed, serialized transaction and its primary signature.
// The signature is extracted once at decode time and never recomputed.
type TransactionEnvelope struct {
	Raw       []byte // wire bytes, legacy or v0
	Signature string // base58 primary signature
}

// DecodeEnvelope decodes wire bytes and extracts the fee payer signature.
func DecodeEnvelope(raw []byte) (*TransactionEnvelope, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrInvalidEnvelope)
	}

	tx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEnvelope, err)
	}
	if len(tx.Signatures) == 0 {
		return nil, fmt.Errorf("%w: no signatures", ErrInvalidEnvelope)
	}
	if tx.Signatures[0] == (solana.Signature{}) {
		return nil, fmt.Errorf("%w: transaction is not signed", ErrInvalidEnvelope)
	}

	buf := make([]byte, len(raw))
	copy(buf, raw)

	return &TransactionEnvelope{
		Raw:       buf,
		Signature: tx.Signatures[0].String(),
	}, nil
}

// DecodeEnvelopeBase64 decodes a base64 encoded transaction.
func DecodeEnvelopeBase64(s string) (*TransactionEnvelope, error) {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: base64: %v", ErrInvalidEnvelope, err)
	}
	return DecodeEnvelope(raw)
}

// Base64 returns the wire bytes base64 encoded, as expected by JSON-RPC.
func (e *TransactionEnvelope) Base64() string {
	return base64.StdEncoding.EncodeToString(e.Raw)
}
