package swap

import (
	"fmt"

	"solana-tx-engine/internal/domain"
)

// AllocateFee returns the fee charged on amountIn across route. Each hop's
// fee percentage applies to the share of principal left by the previous hops.
func AllocateFee(amountIn float64, route []domain.RouteHop) (float64, error) {
	remainingPct := 100.0
	totalFeePct := 0.0

	for i, hop := range route {
		var feePct float64
		switch hop.FeeMint {
		case hop.InputMint:
			feePct = hop.FeeAmount / hop.InAmount * 100
		case hop.OutputMint:
			feePct = hop.FeeAmount / hop.OutAmount * 100
		default:
			return 0, fmt.Errorf("%w: hop %d fee mint %s", ErrFeeMintMismatch, i, hop.FeeMint)
		}
		charged := remainingPct * feePct / 100
		totalFeePct += charged
		remainingPct -= charged
	}

	return amountIn * totalFeePct / 100, nil
}
