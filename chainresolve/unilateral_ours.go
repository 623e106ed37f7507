package chainresolve

import (
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/wire"
)

// OurCommitmentInfo bundles everything the daemon learned about our own
// broadcast commitment transaction at init time: the keys in effect for it,
// the to_self_delay applied to our delayed output, and the set of HTLCs it
// still carries.
type OurCommitmentInfo struct {
	Tx             *wire.MsgTx
	ToSelfDelay    uint16
	Keys           KeySet
	Htlcs          []HtlcStub
	OurSweepScript []byte
	FeerateRange   FeerateRange

	// LocalDelayedPrivkey is the private key backing Keys.SelfDelayedPaymentKey,
	// already tweaked for this commitment's per-commitment point. Onchaind
	// signs its own to-us sweep with it directly, with no master-process
	// round trip: unlike an HTLC-timeout, nothing about this output needs
	// a signature only the counterparty could produce.
	LocalDelayedPrivkey *btcec.PrivateKey
}

// HandleOurUnilateral walks our own broadcast commitment transaction and
// tracks every output it must resolve: the to-us delayed output (proposed as
// a timelocked sweep once the CSV delay matures), the counterparty's direct
// output (already settled the moment it confirms), and one entry per HTLC
// still outstanding.
//
// The to-us delayed output is signed immediately with LocalDelayedPrivkey:
// it needs no counterparty involvement, so there is nothing to wait on. An
// HTLC we offered (OUR_HTLC), on the other hand, needs a 2-of-2 HTLC-timeout
// transaction signed by both parties, and onchaind was never handed the
// counterparty's htlc basepoint secret (it couldn't be: onchaind deriving
// the remote's own key would defeat the point of a 2-of-2), so it
// brute-forces the feerate the counterparty's stored signature was made
// against, then parks the chosen candidate as a pending resolution until the
// master process supplies our half of the signature. An HTLC the
// counterparty offered (THEIR_HTLC) is not ours to claim: we can only wait
// for it to either be redeemed with the preimage or to time out, so it is
// proposed with no transaction at all, to resolve once cltv_expiry passes.
func HandleOurUnilateral(reg *Registry, blockheight uint32, info OurCommitmentInfo) error {
	txid := info.Tx.TxHash()

	toSelfScript, err := CommitScriptToSelf(info.ToSelfDelay,
		info.Keys.SelfRevocationKey, info.Keys.SelfDelayedPaymentKey)
	if err != nil {
		return err
	}
	toSelfPkScript, err := WitnessScriptHash(toSelfScript)
	if err != nil {
		return err
	}

	otherDirectScript, err := CommitScriptUnencumbered(info.Keys.OtherPaymentKey)
	if err != nil {
		return err
	}

	for outnum, out := range info.Tx.TxOut {
		switch {
		case scriptEqual(out.PkScript, toSelfPkScript):
			handle := reg.Track(txid, blockheight, OurUnilateral, uint32(outnum),
				btcutil.Amount(out.Value), DelayedOutputToUs)

			sweepTx, err := BuildToUsSweep(ToUsInput{
				Outpoint:      wire.OutPoint{Hash: txid, Index: uint32(outnum)},
				Value:         out.Value,
				WitnessScript: toSelfScript,
				SequenceOrCsv: uint32(info.ToSelfDelay),
			}, info.OurSweepScript, info.FeerateRange.Max)
			if err != nil {
				return err
			}

			if sweepTx == nil {
				reg.Ignore(handle)
				continue
			}

			witness, err := SignToUsSweep(sweepTx, toSelfScript, out.Value,
				info.LocalDelayedPrivkey)
			if err != nil {
				return err
			}
			sweepTx.TxIn[0].Witness = witness

			reg.ProposeAtBlock(handle, sweepTx, blockheight+uint32(info.ToSelfDelay),
				OurUnilateralToUsReturnToWallet)

		case scriptEqual(out.PkScript, otherDirectScript):
			// The counterparty's direct, non-delayed output on our own
			// commitment: spendable by them the instant it confirms, so
			// there is nothing for us to do but wait for it to reach
			// depth.
			handle := reg.Track(txid, blockheight, OurUnilateral, uint32(outnum),
				btcutil.Amount(out.Value), OutputToThem)
			reg.Ignore(handle)
		}
	}

	for _, htlc := range info.Htlcs {
		outnum, value, witnessScript, found := matchHtlcOutput(info.Tx, htlc, info.Keys, true)
		if !found {
			continue
		}

		if htlc.Owner == Remote {
			handle := reg.Track(txid, blockheight, OurUnilateral, outnum, value, TheirHtlc)
			reg.ProposeAtBlock(handle, nil, htlc.CltvExpiry, TheirHtlcTimeoutToThem)
			continue
		}

		handle := reg.Track(txid, blockheight, OurUnilateral, outnum, value, OurHtlc)

		candidates, err := BuildHtlcTimeoutCandidates(
			wire.OutPoint{Hash: txid, Index: outnum}, int64(value),
			witnessScript, htlc.CltvExpiry, info.OurSweepScript, info.FeerateRange)
		if err != nil {
			return err
		}

		chosen, err := SelectHtlcTimeoutCandidate(candidates, witnessScript,
			int64(value), htlc.RemoteSig, info.Keys.OtherHtlcKey)
		if err != nil {
			return err
		}

		reg.SetPendingHtlcResolution(handle, &PendingHtlcResolution{
			Tx:            chosen.Tx,
			WitnessScript: witnessScript,
			RemoteSig:     htlc.RemoteSig,
			AbsoluteBlock: htlc.CltvExpiry,
			TxType:        OurHtlcTimeoutToUs,
		})
	}

	return nil
}

// matchHtlcOutput finds which output of a commitment transaction corresponds
// to the given HTLC by rebuilding its witness script and comparing P2WSH
// addresses, per BOLT #3's output-matching procedure (commitment
// transaction outputs carry no explicit HTLC identifier). onOurCommitment
// says whether tx is our own broadcast commitment or the counterparty's:
// BOLT #3's offered/received HTLC scripts are defined relative to whichever
// side owns the commitment, not relative to who originally offered the
// HTLC, so the two can disagree about which script applies.
func matchHtlcOutput(tx *wire.MsgTx, htlc HtlcStub, keys KeySet,
	onOurCommitment bool) (outnum uint32, value btcutil.Amount, witnessScript []byte, found bool) {

	offeredByCommitmentOwner := (htlc.Owner == Local) == onOurCommitment

	var script []byte
	var err error
	if offeredByCommitmentOwner {
		script, err = SenderHTLCScript(keys.SelfRevocationKey, keys.OtherHtlcKey,
			keys.SelfHtlcKey, htlc.Ripemd)
	} else {
		script, err = ReceiverHTLCScript(htlc.CltvExpiry, keys.SelfRevocationKey,
			keys.OtherHtlcKey, keys.SelfHtlcKey, htlc.Ripemd)
	}
	if err != nil {
		return 0, 0, nil, false
	}

	pkScript, err := WitnessScriptHash(script)
	if err != nil {
		return 0, 0, nil, false
	}

	for i, out := range tx.TxOut {
		if scriptEqual(out.PkScript, pkScript) {
			return uint32(i), btcutil.Amount(out.Value), script, true
		}
	}

	return 0, 0, nil, false
}
