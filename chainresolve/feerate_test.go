package chainresolve_test

import (
	"testing"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/lightningnetwork/onchaind/chainresolve"
	"github.com/stretchr/testify/require"
)

func TestInitFeerateRange(t *testing.T) {
	t.Parallel()

	// funding_satoshi = 1000000, commitment outputs sum to 995000, with 5
	// untrimmed non-funding outputs (3 HTLCs + to-local + to-remote), so
	// max_untrimmed = 3.
	outputs := []btcutil.Amount{400000, 400000, 65000, 65000, 65000}
	rng := chainresolve.InitFeerateRange(1000000, outputs)

	require.Equal(t, uint32(0), rng.Min)

	fee := uint64(1000000 - 995000)
	denom := uint64(724 + 172*3)
	wantMax := (fee*1000 + denom - 1) / denom
	require.Equal(t, uint32(wantMax), rng.Max)
}

func TestInitFeerateRangeNoHtlcs(t *testing.T) {
	t.Parallel()

	// The worked example from the channel-closure protocol notes: a fee of
	// 5000 satoshi against a commitment with no untrimmed HTLCs narrows the
	// ceiling to 6907.
	outputs := []btcutil.Amount{995000, 0}
	rng := chainresolve.InitFeerateRange(1000000, outputs)

	require.Equal(t, uint32(6907), rng.Max)
}

func TestInitFeerateRangeNegativeFeeClampsToZero(t *testing.T) {
	t.Parallel()

	// Outputs summing past funding_satoshi would make fee negative; this
	// must not wrap into a huge Max via an unchecked int64->uint64 cast.
	outputs := []btcutil.Amount{600000, 600000}
	rng := chainresolve.InitFeerateRange(1000000, outputs)

	require.Equal(t, uint32(0), rng.Min)
	require.Equal(t, uint32(0), rng.Max)
}

func TestFeerateRangeNarrow(t *testing.T) {
	t.Parallel()

	rng := chainresolve.FeerateRange{Min: 0, Max: 10000}

	// A confirmed HTLC-timeout transaction (weight 663) paying a fee of
	// 3313 satoshi narrows both ends of the range.
	rng.Narrow(3313, chainresolve.HtlcTimeoutWeight)

	wantMax := uint32(((3313+999)*1000 + 662) / 663)
	wantMin := uint32((3313 - 999) * 1000 / 663)

	require.Equal(t, wantMax, rng.Max)
	require.Equal(t, wantMin, rng.Min)
	require.LessOrEqual(t, rng.Min, rng.Max)
}

func TestFeerateRangeNarrowMonotone(t *testing.T) {
	t.Parallel()

	rng := chainresolve.FeerateRange{Min: 1000, Max: 2000}

	// A narrow call that would widen the range (fee inconsistent with a
	// tighter previous observation) must not move either bound outward.
	rng.Narrow(100000, chainresolve.HtlcTimeoutWeight)

	require.Equal(t, uint32(2000), rng.Max)
	require.GreaterOrEqual(t, rng.Min, uint32(1000))
}
