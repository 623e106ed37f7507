package chainresolve

import (
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btcwallet/wallet/txrules"
	"github.com/go-errors/errors"
)

// HTLC-success and HTLC-timeout transaction weights, per BOLT #3's weight
// table. HtlcTimeoutWeight sizes the fee of our own HTLC-timeout and direct
// HTLC sweep proposals; both are multipliers FeerateRange.Narrow accepts,
// though the daemon itself never calls Narrow.
const (
	HtlcTimeoutWeight = 663
	HtlcSuccessWeight = 703
)

// ToUsInput is the information the proposal engine needs to sweep a single
// to-us (delayed or otherwise encumbered) commitment output.
type ToUsInput struct {
	Outpoint     wire.OutPoint
	Value        int64
	WitnessScript []byte
	SequenceOrCsv uint32
}

// BuildToUsSweep constructs a transaction sweeping a to-us output to
// destScript at the given feerate. If the swept value would leave a dust
// change output it returns (nil, nil): the caller should drop the output
// instead of proposing a transaction for it, matching the source's dust
// handling for to-us outputs too small to economically claim.
func BuildToUsSweep(in ToUsInput, destScript []byte, feeratePerKw uint32) (*wire.MsgTx, error) {
	tx := wire.NewMsgTx(2)
	tx.AddTxIn(&wire.TxIn{
		PreviousOutPoint: in.Outpoint,
		Sequence:         in.SequenceOrCsv,
	})

	weight := int64(500)
	fee := int64(feeratePerKw) * weight / 1000

	outValue := in.Value - fee
	if outValue < 0 {
		return nil, nil
	}

	out := &wire.TxOut{Value: outValue, PkScript: destScript}
	if txrules.IsDustOutput(out, txrules.DefaultRelayFeePerKb) {
		return nil, nil
	}

	tx.AddTxOut(out)

	return tx, nil
}

// ToUsSweepWitness builds the witness stack for spending our own to-us
// delayed output via its CSV-gated branch: the empty second element routes
// CommitScriptToSelf's OP_IF past the revocation branch, leaving only the
// delayed-payment CHECKSIG to satisfy. Per BOLT #3: "<local_delayedsig> 0".
func ToUsSweepWitness(sig []byte, witnessScript []byte) wire.TxWitness {
	return wire.TxWitness{sig, nil, witnessScript}
}

// SignToUsSweep signs tx's single input over its to-us witness script with
// privkey and returns the completed witness stack. Unlike an HTLC-timeout
// transaction's local half, which waits on a signature from the master
// process, a to-us sweep needs no such round trip: onchaind derives this
// key itself from the basepoint secret handed over at init.
func SignToUsSweep(tx *wire.MsgTx, witnessScript []byte, value int64,
	privkey *btcec.PrivateKey) (wire.TxWitness, error) {

	prevOutFetcher := txscript.NewCannedPrevOutputFetcher(witnessScript, value)
	hashes := txscript.NewTxSigHashes(tx, prevOutFetcher)

	sigHash, err := txscript.CalcWitnessSigHash(witnessScript, hashes,
		txscript.SigHashAll, tx, 0, value)
	if err != nil {
		return nil, errors.Errorf("computing to-us sweep sighash: %v", err)
	}

	sig := ecdsa.Sign(privkey, sigHash)
	rawSig := append(sig.Serialize(), byte(txscript.SigHashAll))

	return ToUsSweepWitness(rawSig, witnessScript), nil
}

// HtlcTimeoutCandidate is one brute-force feerate guess for an HTLC-timeout
// transaction, paired with the feerate that produced it.
type HtlcTimeoutCandidate struct {
	Tx      *wire.MsgTx
	Feerate uint32
}

// BuildHtlcTimeoutCandidates constructs one HTLC-timeout transaction per
// feerate in the inclusive [rng.Min, rng.Max] window, brute-forcing the
// unknown feerate the counterparty's commitment used. Exactly one candidate
// is ever actually proposed: the caller runs SelectHtlcTimeoutCandidate
// against the remote counter-signature to find it.
func BuildHtlcTimeoutCandidates(htlcOutpoint wire.OutPoint, htlcValue int64,
	witnessScript []byte, cltvExpiry uint32, destScript []byte,
	rng FeerateRange) ([]HtlcTimeoutCandidate, error) {

	if rng.Max < rng.Min {
		return nil, errors.Errorf("invalid feerate range [%d, %d]", rng.Min, rng.Max)
	}

	var candidates []HtlcTimeoutCandidate
	for feerate := rng.Min; ; feerate++ {
		fee := int64(feerate) * HtlcTimeoutWeight / 1000
		outValue := htlcValue - fee
		if outValue > 0 {
			tx := wire.NewMsgTx(2)
			tx.LockTime = cltvExpiry
			tx.AddTxIn(&wire.TxIn{
				PreviousOutPoint: htlcOutpoint,
				Sequence:         wire.MaxTxInSequenceNum - 1,
			})
			tx.AddTxOut(&wire.TxOut{
				Value:    outValue,
				PkScript: destScript,
			})

			candidates = append(candidates, HtlcTimeoutCandidate{
				Tx:      tx,
				Feerate: feerate,
			})
		}

		// Checked unconditionally, outside the outValue > 0 branch
		// above: rng.Max is the loop's only exit, so if the check were
		// skipped whenever outValue<=0, a Max of exactly math.MaxUint32
		// would let feerate++ wrap to 0 and the loop would never
		// terminate.
		if feerate == rng.Max {
			break
		}
	}

	if len(candidates) == 0 {
		return nil, errors.Errorf("htlc value %d too small to sweep at any feerate in [%d, %d]",
			htlcValue, rng.Min, rng.Max)
	}

	return candidates, nil
}

// SelectHtlcTimeoutCandidate narrows a set of brute-forced HTLC-timeout
// candidates down to the one the counterparty actually counter-signed: it
// recomputes each candidate's witness sighash and keeps the first one the
// remote signature validates against. This is how onchaind recovers the
// feerate the channel used for HTLC transactions without ever having been
// told it directly, and why every candidate needs its own signature check
// rather than just picking one by convention.
func SelectHtlcTimeoutCandidate(candidates []HtlcTimeoutCandidate, witnessScript []byte,
	htlcValue int64, remoteSig []byte, remoteHtlcKey *btcec.PublicKey) (*HtlcTimeoutCandidate, error) {

	if len(remoteSig) < 2 {
		return nil, errors.Errorf("remote htlc-timeout signature too short")
	}

	// remoteSig is ready to drop straight into a witness (see
	// HtlcTimeoutWitness), so it carries a trailing sighash type byte that
	// a DER parse must not see.
	sig, err := ecdsa.ParseDERSignature(remoteSig[:len(remoteSig)-1])
	if err != nil {
		return nil, errors.Errorf("parsing remote htlc-timeout signature: %v", err)
	}

	prevOutFetcher := txscript.NewCannedPrevOutputFetcher(witnessScript, htlcValue)

	for i := range candidates {
		cand := &candidates[i]

		hashes := txscript.NewTxSigHashes(cand.Tx, prevOutFetcher)
		sigHash, err := txscript.CalcWitnessSigHash(witnessScript, hashes,
			txscript.SigHashAll, cand.Tx, 0, htlcValue)
		if err != nil {
			return nil, errors.Errorf("computing htlc-timeout sighash: %v", err)
		}

		if sig.Verify(sigHash, remoteHtlcKey) {
			return cand, nil
		}
	}

	return nil, errors.Errorf("no htlc-timeout candidate in range matches the remote signature")
}

// HtlcTimeoutWitness builds the witness stack for spending an offered HTLC
// output via its 2-of-2 HTLC-timeout path: an empty preimage placeholder
// signals the timeout branch rather than the success/preimage branch.
func HtlcTimeoutWitness(remoteSig []byte, localSig []byte, witnessScript []byte) wire.TxWitness {
	return wire.TxWitness{
		nil,
		remoteSig,
		localSig,
		nil,
		witnessScript,
	}
}

// HtlcDirectTimeoutWitness builds the witness stack for the single-key
// timeout path of a received-HTLC output: the one case where the offering
// party can reclaim an HTLC directly off the counterparty's commitment,
// with no second-stage transaction or counter-signature required.
func HtlcDirectTimeoutWitness(sig []byte, witnessScript []byte) wire.TxWitness {
	return wire.TxWitness{
		sig,
		nil,
		witnessScript,
	}
}

// BuildHtlcDirectTimeoutSweep constructs a transaction directly sweeping an
// HTLC output we offered off the counterparty's commitment to destScript,
// after its CLTV timeout. Unlike BuildHtlcTimeoutCandidates this needs no
// brute force: we chose this feerate ourselves, since no remote
// counter-signature constrains it.
func BuildHtlcDirectTimeoutSweep(htlcOutpoint wire.OutPoint, htlcValue int64,
	cltvExpiry uint32, destScript []byte, feeratePerKw uint32) (*wire.MsgTx, error) {

	fee := int64(feeratePerKw) * HtlcTimeoutWeight / 1000
	outValue := htlcValue - fee
	if outValue <= 0 {
		return nil, errors.Errorf("htlc value %d too small to sweep at feerate %d",
			htlcValue, feeratePerKw)
	}

	tx := wire.NewMsgTx(2)
	tx.LockTime = cltvExpiry
	tx.AddTxIn(&wire.TxIn{
		PreviousOutPoint: htlcOutpoint,
		Sequence:         wire.MaxTxInSequenceNum - 1,
	})
	tx.AddTxOut(&wire.TxOut{
		Value:    outValue,
		PkScript: destScript,
	})

	return tx, nil
}

// SpendFundingWitness builds the 2-of-2 multisig witness stack closing a
// mutual-close or unilateral-close transaction's single input.
func SpendFundingWitness(sig1, sig2 []byte, fundingScript []byte) wire.TxWitness {
	return wire.TxWitness{
		nil,
		sig1,
		sig2,
		fundingScript,
	}
}

// FundingMultisigScript builds the 2-of-2 funding output witness script,
// with keys placed in ascending lexicographical order per BOLT #3.
func FundingMultisigScript(a, b *btcec.PublicKey) ([]byte, error) {
	ab := a.SerializeCompressed()
	bb := b.SerializeCompressed()

	first, second := ab, bb
	if lexicographicallyGreater(ab, bb) {
		first, second = bb, ab
	}

	builder := txscript.NewScriptBuilder()
	builder.AddOp(txscript.OP_2)
	builder.AddData(first)
	builder.AddData(second)
	builder.AddOp(txscript.OP_2)
	builder.AddOp(txscript.OP_CHECKMULTISIG)
	return builder.Script()
}

func lexicographicallyGreater(a, b []byte) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return a[i] > b[i]
		}
	}
	return len(a) > len(b)
}
