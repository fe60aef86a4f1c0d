package domain

// LeaseSafetyMargin is subtracted from the lease's last valid block height
// to get the height after which a submission is treated as expired.
const LeaseSafetyMargin = 150

// BlockhashLease is a recent blockhash and the last block height at which
// transactions referencing it are still accepted.
type BlockhashLease struct {
	Blockhash            string
	LastValidBlockHeight uint64
}

// EffectiveExpiry returns LastValidBlockHeight minus the safety margin, floored at 0.
func (l BlockhashLease) EffectiveExpiry() uint64 {
	if l.LastValidBlockHeight < LeaseSafetyMargin {
		return 0
	}
	return l.LastValidBlockHeight - LeaseSafetyMargin
}
