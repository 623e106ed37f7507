package chainresolve

import (
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// Side is a two-valued tag identifying one of the two channel participants.
type Side uint8

const (
	// Local is the side running this daemon.
	Local Side = iota

	// Remote is the channel counterparty.
	Remote
)

// Counterparty returns the other side of the channel.
func (s Side) Counterparty() Side {
	if s == Local {
		return Remote
	}
	return Local
}

func (s Side) String() string {
	if s == Local {
		return "local"
	}
	return "remote"
}

// TxType is a closed enumeration of the roles a transaction can play in the
// channel-closure protocol.
type TxType uint8

const (
	FundingTransaction TxType = iota
	MutualClose
	OurUnilateral
	TheirUnilateral
	OurHtlcTimeoutToUs
	OurUnilateralToUsReturnToWallet
	TheirHtlcTimeoutToThem
	SelfTxType
	UnknownTxType
)

func (t TxType) String() string {
	switch t {
	case FundingTransaction:
		return "funding_transaction"
	case MutualClose:
		return "mutual_close"
	case OurUnilateral:
		return "our_unilateral"
	case TheirUnilateral:
		return "their_unilateral"
	case OurHtlcTimeoutToUs:
		return "our_htlc_timeout_to_us"
	case OurUnilateralToUsReturnToWallet:
		return "our_unilateral_to_us_return_to_wallet"
	case TheirHtlcTimeoutToThem:
		return "their_htlc_timeout_to_them"
	case SelfTxType:
		return "self"
	default:
		return "unknown_txtype"
	}
}

// OutputType classifies a single tracked output.
type OutputType uint8

const (
	FundingOutput OutputType = iota
	OutputToUs
	OutputToThem
	DelayedOutputToUs
	DelayedOutputToThem
	OurHtlc
	TheirHtlc
)

func (o OutputType) String() string {
	switch o {
	case FundingOutput:
		return "funding_output"
	case OutputToUs:
		return "output_to_us"
	case OutputToThem:
		return "output_to_them"
	case DelayedOutputToUs:
		return "delayed_output_to_us"
	case DelayedOutputToThem:
		return "delayed_output_to_them"
	case OurHtlc:
		return "our_htlc"
	case TheirHtlc:
		return "their_htlc"
	default:
		return "unknown_output_type"
	}
}

// HtlcStub is the minimum amount of information needed to recognize an HTLC
// output on a commitment transaction and build its timeout/success witness.
type HtlcStub struct {
	// Owner is the side that offered this HTLC.
	Owner Side

	// CltvExpiry is the absolute block height at which the HTLC times out.
	CltvExpiry uint32

	// Ripemd is RIPEMD160(SHA256(payment_preimage)), the value committed
	// to in the HTLC's witness script.
	Ripemd [20]byte

	// RemoteSig is the counterparty's signature over our HTLC-timeout
	// transaction for this HTLC, handed to us at close time since we
	// cannot ask for it again once the channel is dead. It is only
	// meaningful for an HTLC we offered on our own broadcast commitment,
	// where resolving it takes a 2-of-2 signed HTLC-timeout transaction;
	// it is nil in every other case.
	RemoteSig []byte
}

// KeySet holds the five public keys derived for a single commitment
// transaction, sufficient to reconstruct every witness script BOLT #3
// defines for that commitment.
type KeySet struct {
	// SelfRevocationKey is the key the *other* party needs to sweep our
	// delayed output should we broadcast a revoked commitment.
	SelfRevocationKey *btcec.PublicKey

	// SelfDelayedPaymentKey is our key behind the CSV-delayed to-self
	// output.
	SelfDelayedPaymentKey *btcec.PublicKey

	// SelfHtlcKey is our key used in HTLC witness scripts on this
	// commitment.
	SelfHtlcKey *btcec.PublicKey

	// OtherHtlcKey is the counterparty's key used in HTLC witness scripts
	// on this commitment.
	OtherHtlcKey *btcec.PublicKey

	// OtherPaymentKey is the counterparty's direct (non-delayed) payment
	// key on this commitment.
	OtherPaymentKey *btcec.PublicKey
}

// CommitNumberObscurer computes the 48-bit value used to XOR-mask the
// commitment number into a commitment transaction's locktime/sequence
// fields, per BOLT #3.
func CommitNumberObscurer(funderPaymentBasepoint,
	fundeePaymentBasepoint *btcec.PublicKey) uint64 {

	h := chainhash.HashB(append(
		funderPaymentBasepoint.SerializeCompressed(),
		fundeePaymentBasepoint.SerializeCompressed()...,
	))

	// Lower 48 bits of the SHA256 of the two basepoints, concatenated in
	// funder-then-fundee order.
	var obscurer uint64
	for i := len(h) - 6; i < len(h); i++ {
		obscurer = (obscurer << 8) | uint64(h[i])
	}
	return obscurer
}
