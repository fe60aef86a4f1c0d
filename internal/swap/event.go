// Package swap reconstructs executed swap amounts, USD valuations and fees
// from settled aggregator transactions.
package swap

import (
	"bytes"
	"fmt"

	"github.com/mr-tron/base58"
	"github.com/near/borsh-go"

	"solana-tx-engine/internal/solana"
)

// JupiterProgramID is the aggregator program emitting swap events.
const JupiterProgramID = "JUP6LkbZbjS1jKKwapdHNy74zcZ3tLUZoi5QNyVTaV4"

var (
	// eventCPITag prefixes anchor self-CPI event instructions.
	eventCPITag = []byte{0xe4, 0x45, 0xa5, 0x2e, 0x51, 0xcb, 0x9a, 0x1d}
	// swapEventDiscriminator identifies SwapEvent payloads.
	swapEventDiscriminator = []byte{0x40, 0xc6, 0xcd, 0xe8, 0x26, 0x08, 0x71, 0xe2}
)

// Pubkey is a raw 32-byte account address.
type Pubkey [32]byte

// String returns the base58 form.
func (p Pubkey) String() string {
	return base58.Encode(p[:])
}

// SwapEvent is one AMM hop executed by the aggregator. It is the borsh
// payload following the CPI tag and the event discriminator.
type SwapEvent struct {
	Amm          Pubkey
	InputMint    Pubkey
	InputAmount  uint64
	OutputMint   Pubkey
	OutputAmount uint64
}

// RawSwap is the aggregate of a transaction's swap events, in raw units.
type RawSwap struct {
	InMint    string
	InAmount  uint64
	OutMint   string
	OutAmount uint64
	Events    int
}

// DecodeSwapEvents returns every aggregator SwapEvent in the record's inner instructions, in order.
func DecodeSwapEvents(record *solana.Transaction) ([]SwapEvent, error) {
	if record == nil || record.Meta == nil {
		return nil, nil
	}
	keys := record.AccountKeys()

	var events []SwapEvent
	for _, set := range record.Meta.InnerInstructions {
		for _, ix := range set.Instructions {
			if ix.ProgramIDIndex < 0 || ix.ProgramIDIndex >= len(keys) || keys[ix.ProgramIDIndex] != JupiterProgramID {
				continue
			}
			data, err := base58.Decode(ix.Data)
			if err != nil {
				return nil, fmt.Errorf("decode instruction data: %w", err)
			}
			ev, ok, err := decodeSwapEvent(data)
			if err != nil {
				return nil, err
			}
			if ok {
				events = append(events, ev)
			}
		}
	}
	return events, nil
}

func decodeSwapEvent(data []byte) (ev SwapEvent, ok bool, err error) {
	if len(data) < 16 || !bytes.Equal(data[:8], eventCPITag) || !bytes.Equal(data[8:16], swapEventDiscriminator) {
		return SwapEvent{}, false, nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("decode swap event: %v", r)
			ok = false
		}
	}()
	if err := borsh.Deserialize(&ev, data[16:]); err != nil {
		return SwapEvent{}, false, fmt.Errorf("decode swap event: %w", err)
	}
	return ev, true, nil
}

// ExtractSwap aggregates the record's swap events. The input leg is the first
// event's input mint, the output leg the last event's output mint; amounts of
// split routes are summed per mint.
func ExtractSwap(record *solana.Transaction) (*RawSwap, error) {
	events, err := DecodeSwapEvents(record)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, ErrNoSwapEvents
	}

	in := events[0].InputMint
	out := events[len(events)-1].OutputMint
	raw := &RawSwap{InMint: in.String(), OutMint: out.String(), Events: len(events)}
	for _, ev := range events {
		if ev.InputMint == in {
			raw.InAmount += ev.InputAmount
		}
		if ev.OutputMint == out {
			raw.OutAmount += ev.OutputAmount
		}
	}
	return raw, nil
}
