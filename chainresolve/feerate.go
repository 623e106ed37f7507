package chainresolve

import "github.com/btcsuite/btcd/btcutil"

// FeerateRange tracks a shrinking [min, max] window of feerate_per_kw
// candidates. The commitment transaction's fee reveals nothing about how
// many HTLCs were trimmed at broadcast time, so the daemon can never read
// off the exact feerate in use; instead it brute-forces candidates within
// this window and narrows the window every time a confirmed fee pins one
// down further.
type FeerateRange struct {
	Min, Max uint32
}

// InitFeerateRange derives the widest possible feerate window from the
// funding amount and a commitment transaction's outputs: the implied fee is
// funding_satoshi minus the sum of all outputs, and the maximum number of
// untrimmed HTLCs bounds how little of that fee could be attributable to
// feerate alone.
func InitFeerateRange(fundingSatoshi btcutil.Amount, commitOutputs []btcutil.Amount) FeerateRange {
	fee := fundingSatoshi
	for _, out := range commitOutputs {
		fee -= out
	}
	if fee < 0 {
		// Outputs summing past the funding amount means a malformed or
		// inconsistent commitment; there's no valid feerate to imply,
		// so this resolves to the [0, 0] range rather than wrapping a
		// negative fee into a huge uint64.
		fee = 0
	}

	var maxUntrimmed int
	if len(commitOutputs) >= 2 {
		maxUntrimmed = len(commitOutputs) - 2
	}

	denom := uint64(724 + 172*maxUntrimmed)
	max := ceilDiv(uint64(fee)*1000, denom)

	return FeerateRange{
		Min: 0,
		Max: uint32(max),
	}
}

// Narrow shrinks the range given a confirmed fee for a transaction whose fee
// formula uses the fixed weight multiplier m (e.g. 663 for an HTLC-timeout
// transaction, 703 for HTLC-success). Narrowing is monotone: Min never
// decreases and Max never increases.
func (r *FeerateRange) Narrow(fee uint64, m uint32) {
	newMax := ceilDiv((fee+999)*1000, uint64(m))

	var newMin uint64
	if fee >= 999 {
		newMin = ((fee - 999) * 1000) / uint64(m)
	}

	if uint32(newMax) < r.Max {
		r.Max = uint32(newMax)
	}
	if uint32(newMin) > r.Min {
		r.Min = uint32(newMin)
	}
}

func ceilDiv(num, denom uint64) uint64 {
	return (num + denom - 1) / denom
}
