package metrics

import (
	"math"
	"sort"

	"solana-tx-engine/internal/domain"
)

// computeSummary calculates a client summary from its stored metrics.
// Records are sorted by CreatedAt ASC, Signature ASC before computing
// order-dependent fields (MaxDrawdown, MaxConsecutiveLosses).
func computeSummary(clientID string, records []*domain.TransactionMetrics) *domain.ClientSummary {
	n := len(records)
	if n == 0 {
		return &domain.ClientSummary{ClientID: clientID}
	}

	sorted := make([]*domain.TransactionMetrics, n)
	copy(sorted, records)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].CreatedAt != sorted[j].CreatedAt {
			return sorted[i].CreatedAt < sorted[j].CreatedAt
		}
		return sorted[i].Signature < sorted[j].Signature
	})

	s := &domain.ClientSummary{ClientID: clientID, TotalTrades: n}

	pnls := make([]float64, n)
	landTimes := make([]float64, n)
	mints := make(map[string]struct{})
	for i, r := range sorted {
		pnls[i] = r.TxnPnL
		landTimes[i] = float64(r.TxnLandTimeMs)
		mints[r.BaseMint] = struct{}{}

		if r.TxnPnL > 0 {
			s.Wins++
		} else {
			s.Losses++
		}
		s.Volume += r.AmountIn
		s.Received += r.AmountOut
		s.TotalTxnFees += r.TxnFee
		s.TotalSwapFee += r.SwapFee
		s.TotalPnL += r.TxnPnL
	}
	s.TotalMints = len(mints)
	s.WinRate = computeWinRate(s.Wins, n)

	sortedPnLs := make([]float64, n)
	copy(sortedPnLs, pnls)
	sort.Float64s(sortedPnLs)

	s.PnLMean = computeMean(pnls)
	s.PnLStddev = computeStddev(pnls, s.PnLMean)
	s.PnLMedian = computePercentile(sortedPnLs, 0.50)
	s.PnLP10 = computePercentile(sortedPnLs, 0.10)
	s.PnLP90 = computePercentile(sortedPnLs, 0.90)
	s.PnLMin = sortedPnLs[0]
	s.PnLMax = sortedPnLs[n-1]

	s.MaxDrawdown = computeMaxDrawdown(pnls)
	s.MaxConsecutiveLosses = computeMaxConsecutiveLosses(pnls)

	sort.Float64s(landTimes)
	s.LandTimeMeanMs = computeMean(landTimes)
	s.LandTimeP90Ms = computePercentile(landTimes, 0.90)

	return s
}

// computeWinRate calculates win rate as wins / total.
func computeWinRate(wins, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(wins) / float64(total)
}

// computeMean calculates the arithmetic mean.
func computeMean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// computeStddev calculates sample standard deviation (n-1 denominator).
func computeStddev(values []float64, mean float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}
	sumSq := 0.0
	for _, v := range values {
		diff := v - mean
		sumSq += diff * diff
	}
	return math.Sqrt(sumSq / float64(n-1))
}

// computePercentile uses linear interpolation.
// sorted must be pre-sorted ASC.
func computePercentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return sorted[0]
	}

	idx := p * float64(n-1)
	lower := int(idx)
	upper := lower + 1
	if upper >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lower)
	return sorted[lower] + frac*(sorted[upper]-sorted[lower])
}

// computeMaxDrawdown calculates worst peak-to-trough on cumulative PnL.
// Values must be in chronological order.
func computeMaxDrawdown(pnls []float64) float64 {
	cumulative := 0.0
	peak := 0.0
	maxDrawdown := 0.0

	for _, p := range pnls {
		cumulative += p
		if cumulative > peak {
			peak = cumulative
		}
		if dd := peak - cumulative; dd > maxDrawdown {
			maxDrawdown = dd
		}
	}
	return maxDrawdown
}

// computeMaxConsecutiveLosses finds the longest streak of PnL <= 0.
func computeMaxConsecutiveLosses(pnls []float64) int {
	maxStreak := 0
	currentStreak := 0

	for _, p := range pnls {
		if p <= 0 {
			currentStreak++
			if currentStreak > maxStreak {
				maxStreak = currentStreak
			}
		} else {
			currentStreak = 0
		}
	}
	return maxStreak
}
