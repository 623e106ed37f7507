package chainresolve_test

import (
	"testing"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/lightningnetwork/onchaind/chainresolve"
	"github.com/stretchr/testify/require"
)

func TestRegistryTrackAndGet(t *testing.T) {
	t.Parallel()

	reg := chainresolve.NewRegistry()

	fundingTxid := chainhash.Hash{1, 2, 3}
	h := reg.Track(fundingTxid, 100, chainresolve.FundingTransaction, 0,
		btcutil.Amount(1000000), chainresolve.FundingOutput)

	require.Equal(t, chainresolve.Handle(0), h)
	require.Equal(t, h, reg.FundingHandle())
	require.Same(t, reg.Get(h), reg.FundingOutput())
	require.Len(t, reg.All(), 1)
}

func TestRegistryIgnoreResolvesImmediately(t *testing.T) {
	t.Parallel()

	reg := chainresolve.NewRegistry()
	txid := chainhash.Hash{9}
	h := reg.Track(txid, 10, chainresolve.MutualClose, 0, 500, chainresolve.OutputToUs)

	require.False(t, reg.AllIrrevocablyResolved())

	reg.Ignore(h)

	out := reg.Get(h)
	require.NotNil(t, out.Resolved)
	require.Equal(t, uint32(0), out.Resolved.Depth)

	reg.UpdateDepth(txid, 100)
	require.True(t, reg.AllIrrevocablyResolved())
}

func TestRegistryResolvedByProposal(t *testing.T) {
	t.Parallel()

	reg := chainresolve.NewRegistry()
	txid := chainhash.Hash{7}
	h := reg.Track(txid, 50, chainresolve.OurUnilateral, 0, 10000,
		chainresolve.DelayedOutputToUs)

	sweepTx := wire.NewMsgTx(2)
	sweepTx.AddTxIn(&wire.TxIn{PreviousOutPoint: wire.OutPoint{Hash: txid, Index: 0}})
	sweepTx.AddTxOut(&wire.TxOut{Value: 9000, PkScript: []byte{0x00}})

	reg.Propose(h, sweepTx, 144, chainresolve.OurUnilateralToUsReturnToWallet)

	// A spend by a different, unrelated transaction must not resolve it.
	unrelated := chainhash.Hash{0xff}
	require.False(t, reg.ResolvedByProposal(h, unrelated))
	require.Nil(t, reg.Get(h).Resolved)

	ok := reg.ResolvedByProposal(h, sweepTx.TxHash())
	require.True(t, ok)
	require.NotNil(t, reg.Get(h).Resolved)
	require.Equal(t, chainresolve.OurUnilateralToUsReturnToWallet, reg.Get(h).Resolved.TxType)
}

func TestRegistryDueProposals(t *testing.T) {
	t.Parallel()

	reg := chainresolve.NewRegistry()
	txid := chainhash.Hash{3}
	h := reg.Track(txid, 200, chainresolve.OurUnilateral, 0, 10000,
		chainresolve.DelayedOutputToUs)

	sweepTx := wire.NewMsgTx(2)
	sweepTx.AddTxIn(&wire.TxIn{PreviousOutPoint: wire.OutPoint{Hash: txid, Index: 0}})
	sweepTx.AddTxOut(&wire.TxOut{Value: 9000, PkScript: []byte{0x00}})

	reg.ProposeAtBlock(h, sweepTx, 344, chainresolve.OurUnilateralToUsReturnToWallet)

	// Not yet at the required depth (344-200 = 144 confirmations).
	require.Empty(t, reg.DueProposals(txid, 100))

	due := reg.DueProposals(txid, 144)
	require.Equal(t, []chainresolve.Handle{h}, due)

	// A later, deeper notification for the same transaction must not hand
	// the same proposal out twice.
	require.Empty(t, reg.DueProposals(txid, 200))
}

func TestRegistryAllIrrevocablyResolvedRequiresEveryOutput(t *testing.T) {
	t.Parallel()

	reg := chainresolve.NewRegistry()
	txid := chainhash.Hash{1}

	h1 := reg.Track(txid, 1, chainresolve.MutualClose, 0, 100, chainresolve.OutputToUs)
	h2 := reg.Track(txid, 1, chainresolve.MutualClose, 1, 100, chainresolve.OutputToThem)

	reg.Ignore(h1)
	reg.UpdateDepth(txid, 100)
	require.False(t, reg.AllIrrevocablyResolved())

	reg.Ignore(h2)
	reg.UpdateDepth(txid, 100)
	require.True(t, reg.AllIrrevocablyResolved())
}
