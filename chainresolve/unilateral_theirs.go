package chainresolve

import (
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/wire"
)

// TheirCommitmentInfo bundles everything the daemon learned about a
// commitment transaction the counterparty broadcast: the keys in effect
// from our point of view (mirrored relative to OurCommitmentInfo, since
// "to_remote" on their commitment is "to us"), their to_self_delay, and the
// HTLC set.
type TheirCommitmentInfo struct {
	Tx             *wire.MsgTx
	ToSelfDelay    uint16
	Keys           KeySet
	Htlcs          []HtlcStub
	OurSweepScript []byte
	FeerateRange   FeerateRange
}

// HandleTheirUnilateral tracks the outputs of a valid (unrevoked)
// commitment transaction broadcast by the counterparty. Our to-us output on
// their commitment is a plain P2WPKH paid directly to our payment key, with
// no CSV delay, so it needs no timelocked sweep: it is spendable the moment
// it confirms and the daemon simply watches it resolve via the wallet.
//
// HTLC outputs resolve differently here than on our own commitment, because
// there is no second stage on the counterparty's commitment: an HTLC we
// offered (OUR_HTLC) is reclaimed with a single direct, CLTV-gated sweep
// straight to our wallet once it times out, needing only our own signature
// and no counter-signature at all. An HTLC the counterparty offered
// (THEIR_HTLC) is, as on our own commitment, not ours to claim, and is
// proposed with no transaction, to resolve once it times out.
func HandleTheirUnilateral(reg *Registry, blockheight uint32, info TheirCommitmentInfo) error {
	txid := info.Tx.TxHash()

	ourDirectScript, err := CommitScriptUnencumbered(info.Keys.OtherPaymentKey)
	if err != nil {
		return err
	}

	for outnum, out := range info.Tx.TxOut {
		if !scriptEqual(out.PkScript, ourDirectScript) {
			continue
		}

		handle := reg.Track(txid, blockheight, TheirUnilateral, uint32(outnum),
			btcutil.Amount(out.Value), OutputToUs)
		reg.Ignore(handle)
	}

	for _, htlc := range info.Htlcs {
		// Roles invert relative to HandleOurUnilateral: BOLT #3's
		// offered/received HTLC scripts are defined relative to whichever
		// side owns the commitment, so the same htlc.Owner picks the
		// opposite script here.
		outnum, value, witnessScript, found := matchHtlcOutput(info.Tx, htlc, info.Keys, false)
		if !found {
			continue
		}

		if htlc.Owner == Remote {
			handle := reg.Track(txid, blockheight, TheirUnilateral, outnum, value, TheirHtlc)
			reg.ProposeAtBlock(handle, nil, htlc.CltvExpiry, TheirHtlcTimeoutToThem)
			continue
		}

		handle := reg.Track(txid, blockheight, TheirUnilateral, outnum, value, OurHtlc)

		sweepTx, err := BuildHtlcDirectTimeoutSweep(
			wire.OutPoint{Hash: txid, Index: outnum}, int64(value),
			htlc.CltvExpiry, info.OurSweepScript, info.FeerateRange.Max)
		if err != nil {
			return err
		}

		reg.SetPendingHtlcResolution(handle, &PendingHtlcResolution{
			Tx:            sweepTx,
			WitnessScript: witnessScript,
			AbsoluteBlock: htlc.CltvExpiry,
			TxType:        OurHtlcTimeoutToUs,
		})
	}

	return nil
}

// HandleMutualClose tracks the two outputs of a cooperative close
// transaction, which need no further resolution beyond reaching depth: BOLT
// #5 treats a mutual close output as resolved the instant its closing
// transaction itself reaches the irrevocable-resolution depth.
func HandleMutualClose(reg *Registry, blockheight uint32, tx *wire.MsgTx) {
	txid := tx.TxHash()

	for outnum, out := range tx.TxOut {
		handle := reg.Track(txid, blockheight, MutualClose, uint32(outnum),
			btcutil.Amount(out.Value), OutputToUs)
		reg.Ignore(handle)
	}
}
