package chainresolve

import (
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
)

// CommitScriptToSelf builds the to_local witness script BOLT #3 defines: an
// immediate spend with the revocation key, or a CSV-delayed spend with the
// delayed payment key.
func CommitScriptToSelf(toSelfDelay uint16, revocationKey,
	delayedPaymentKey *btcec.PublicKey) ([]byte, error) {

	builder := txscript.NewScriptBuilder()

	builder.AddOp(txscript.OP_IF)
	builder.AddData(revocationKey.SerializeCompressed())
	builder.AddOp(txscript.OP_ELSE)
	builder.AddInt64(int64(toSelfDelay))
	builder.AddOp(txscript.OP_CHECKSEQUENCEVERIFY)
	builder.AddOp(txscript.OP_DROP)
	builder.AddData(delayedPaymentKey.SerializeCompressed())
	builder.AddOp(txscript.OP_ENDIF)
	builder.AddOp(txscript.OP_CHECKSIG)

	return builder.Script()
}

// SenderHTLCScript builds the witness script for an HTLC offered by the
// party that owns this commitment transaction: the counterparty can sweep
// it either via the revocation key (on a breach) or by revealing the
// payment preimage; otherwise only the offering party can reclaim it after
// the HTLC's CLTV timeout, via an HTLC-timeout transaction.
func SenderHTLCScript(revocationKey, remoteHtlcKey, localHtlcKey *btcec.PublicKey,
	paymentRipemd [20]byte) ([]byte, error) {

	builder := txscript.NewScriptBuilder()

	builder.AddOp(txscript.OP_DUP)
	builder.AddOp(txscript.OP_HASH160)
	builder.AddData(btcutil.Hash160(revocationKey.SerializeCompressed()))
	builder.AddOp(txscript.OP_EQUAL)
	builder.AddOp(txscript.OP_IF)
	builder.AddOp(txscript.OP_CHECKSIG)
	builder.AddOp(txscript.OP_ELSE)

	builder.AddData(remoteHtlcKey.SerializeCompressed())
	builder.AddOp(txscript.OP_SWAP)
	builder.AddOp(txscript.OP_SIZE)
	builder.AddInt64(32)
	builder.AddOp(txscript.OP_EQUAL)
	builder.AddOp(txscript.OP_NOTIF)

	builder.AddOp(txscript.OP_DROP)
	builder.AddInt64(2)
	builder.AddOp(txscript.OP_SWAP)
	builder.AddData(localHtlcKey.SerializeCompressed())
	builder.AddInt64(2)
	builder.AddOp(txscript.OP_CHECKMULTISIG)

	builder.AddOp(txscript.OP_ELSE)
	builder.AddOp(txscript.OP_HASH160)
	builder.AddData(paymentRipemd[:])
	builder.AddOp(txscript.OP_EQUALVERIFY)
	builder.AddOp(txscript.OP_CHECKSIG)
	builder.AddOp(txscript.OP_ENDIF)

	builder.AddOp(txscript.OP_ENDIF)

	return builder.Script()
}

// ReceiverHTLCScript builds the witness script for an HTLC received by the
// party that owns this commitment transaction: it can be swept immediately
// with the payment preimage, by the counterparty via the revocation key on
// a breach, or reclaimed directly by the offering party after the CLTV
// timeout with a single signature and no second-stage transaction.
func ReceiverHTLCScript(cltvExpiry uint32, revocationKey, remoteHtlcKey,
	localHtlcKey *btcec.PublicKey, paymentRipemd [20]byte) ([]byte, error) {

	builder := txscript.NewScriptBuilder()

	builder.AddOp(txscript.OP_DUP)
	builder.AddOp(txscript.OP_HASH160)
	builder.AddData(btcutil.Hash160(revocationKey.SerializeCompressed()))
	builder.AddOp(txscript.OP_EQUAL)
	builder.AddOp(txscript.OP_IF)
	builder.AddOp(txscript.OP_CHECKSIG)
	builder.AddOp(txscript.OP_ELSE)

	builder.AddData(remoteHtlcKey.SerializeCompressed())
	builder.AddOp(txscript.OP_SWAP)
	builder.AddOp(txscript.OP_SIZE)
	builder.AddInt64(32)
	builder.AddOp(txscript.OP_EQUAL)
	builder.AddOp(txscript.OP_IF)

	builder.AddOp(txscript.OP_HASH160)
	builder.AddData(paymentRipemd[:])
	builder.AddOp(txscript.OP_EQUALVERIFY)
	builder.AddInt64(2)
	builder.AddOp(txscript.OP_SWAP)
	builder.AddData(localHtlcKey.SerializeCompressed())
	builder.AddInt64(2)
	builder.AddOp(txscript.OP_CHECKMULTISIG)

	builder.AddOp(txscript.OP_ELSE)
	builder.AddOp(txscript.OP_DROP)
	builder.AddInt64(int64(cltvExpiry))
	builder.AddOp(txscript.OP_CHECKLOCKTIMEVERIFY)
	builder.AddOp(txscript.OP_DROP)
	builder.AddOp(txscript.OP_CHECKSIG)
	builder.AddOp(txscript.OP_ENDIF)

	builder.AddOp(txscript.OP_ENDIF)

	return builder.Script()
}

// WitnessScriptHash wraps a witness script in its P2WSH output script.
func WitnessScriptHash(witnessScript []byte) ([]byte, error) {
	scriptHash := chainhash.HashB(witnessScript)

	builder := txscript.NewScriptBuilder()
	builder.AddOp(txscript.OP_0)
	builder.AddData(scriptHash)
	return builder.Script()
}

// CommitScriptUnencumbered returns the direct (non-delayed) P2WPKH output
// script used for the counterparty's to_remote output on our commitment.
func CommitScriptUnencumbered(key *btcec.PublicKey) ([]byte, error) {
	builder := txscript.NewScriptBuilder()
	builder.AddOp(txscript.OP_0)
	builder.AddData(btcutil.Hash160(key.SerializeCompressed()))
	return builder.Script()
}
