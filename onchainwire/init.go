package onchainwire

import (
	"io"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// HtlcDesc describes one HTLC still outstanding on the commitment
// transaction(s) the master process is handing off to onchaind.
type HtlcDesc struct {
	Owner      uint8
	CltvExpiry uint32
	Ripemd     [20]byte
	AmountMsat uint64

	// RemoteSig is the counterparty's signature over the HTLC-timeout
	// transaction for this HTLC, as counter-signed when the HTLC was
	// added to the channel. onchaind has no channel state beyond what
	// Init hands it, so this is the only chance to deliver it: without
	// it onchaind could never produce a valid witness for an HTLC it
	// offered on its own broadcast commitment. Empty for HTLCs where no
	// such signature applies (everything except our own offered HTLCs
	// on our own commitment).
	RemoteSig []byte
}

// RevocationSecretDesc is one revocation secret the master process has
// already received and verified from the counterparty's shachain, handed to
// onchaind so it can recognize a revoked (cheating) commitment broadcast.
type RevocationSecretDesc struct {
	Index  uint64
	Secret [32]byte
}

// Init is the first message onchaind receives: everything it needs to know
// about the channel being resolved, including both sides' basepoints, the
// funding output, the HTLCs live at the moment the channel closed, and the
// counterparty's revocation history so far.
type Init struct {
	FundingTxid    chainhash.Hash
	FundingTxout   uint32
	FundingSatoshi uint64
	Funder         uint8

	LocalRevocationBasepoint      *btcec.PublicKey
	LocalPaymentBasepoint         *btcec.PublicKey
	LocalDelayedPaymentBasepoint  *btcec.PublicKey
	LocalHtlcBasepoint            *btcec.PublicKey
	RemoteRevocationBasepoint     *btcec.PublicKey
	RemotePaymentBasepoint        *btcec.PublicKey
	RemoteDelayedPaymentBasepoint *btcec.PublicKey
	RemoteHtlcBasepoint           *btcec.PublicKey

	LocalToSelfDelay  uint16
	RemoteToSelfDelay uint16

	// LocalDelayedPaymentBasepointSecret is the secret behind
	// LocalDelayedPaymentBasepoint. Onchaind needs it to sign its own
	// to-us delayed sweep directly: that output is never counter-signed
	// by the counterparty, so there is nothing to gain by waiting on a
	// signature from the master process the way an HTLC-timeout's local
	// half does.
	LocalDelayedPaymentBasepointSecret [32]byte

	OurBroadcastTxid chainhash.Hash

	// OurPerCommitmentPoint is the per-commitment point for the commitment
	// transaction named by OurBroadcastTxid, needed to rederive the keys
	// on our own broadcast commitment if it is the one that confirms.
	OurPerCommitmentPoint *btcec.PublicKey

	// RemotePerCommitmentPoint is the latest per-commitment point the
	// counterparty has revealed to us for their own next commitment; it
	// is the point used to rederive keys if their commitment is the one
	// that confirms.
	RemotePerCommitmentPoint *btcec.PublicKey

	// DestScript is the script our wallet wants delayed-output and
	// HTLC-resolution sweeps paid to.
	DestScript []byte

	Htlcs []HtlcDesc

	RevocationSecrets []RevocationSecretDesc
}

func (m *Init) MsgType() MessageType { return MsgInit }

func (m *Init) Encode(w io.Writer) error {
	if err := writeElements(w,
		m.FundingTxid,
		m.FundingTxout,
		m.FundingSatoshi,
		m.Funder,
		m.LocalRevocationBasepoint,
		m.LocalPaymentBasepoint,
		m.LocalDelayedPaymentBasepoint,
		m.LocalHtlcBasepoint,
		m.RemoteRevocationBasepoint,
		m.RemotePaymentBasepoint,
		m.RemoteDelayedPaymentBasepoint,
		m.RemoteHtlcBasepoint,
		m.LocalToSelfDelay,
		m.RemoteToSelfDelay,
		m.LocalDelayedPaymentBasepointSecret,
		m.OurBroadcastTxid,
		m.OurPerCommitmentPoint,
		m.RemotePerCommitmentPoint,
		m.DestScript,
		uint16(len(m.Htlcs)),
	); err != nil {
		return err
	}

	for _, htlc := range m.Htlcs {
		if err := writeElements(w, htlc.Owner, htlc.CltvExpiry, htlc.Ripemd,
			htlc.AmountMsat, htlc.RemoteSig); err != nil {
			return err
		}
	}

	if err := writeElements(w, uint16(len(m.RevocationSecrets))); err != nil {
		return err
	}
	for _, rs := range m.RevocationSecrets {
		if err := writeElements(w, rs.Index, rs.Secret); err != nil {
			return err
		}
	}

	return nil
}

func (m *Init) Decode(r io.Reader) error {
	var numHtlcs uint16

	if err := readElements(r,
		&m.FundingTxid,
		&m.FundingTxout,
		&m.FundingSatoshi,
		&m.Funder,
		&m.LocalRevocationBasepoint,
		&m.LocalPaymentBasepoint,
		&m.LocalDelayedPaymentBasepoint,
		&m.LocalHtlcBasepoint,
		&m.RemoteRevocationBasepoint,
		&m.RemotePaymentBasepoint,
		&m.RemoteDelayedPaymentBasepoint,
		&m.RemoteHtlcBasepoint,
		&m.LocalToSelfDelay,
		&m.RemoteToSelfDelay,
		&m.LocalDelayedPaymentBasepointSecret,
		&m.OurBroadcastTxid,
		&m.OurPerCommitmentPoint,
		&m.RemotePerCommitmentPoint,
		&m.DestScript,
		&numHtlcs,
	); err != nil {
		return err
	}

	m.Htlcs = make([]HtlcDesc, numHtlcs)
	for i := range m.Htlcs {
		if err := readElements(r, &m.Htlcs[i].Owner, &m.Htlcs[i].CltvExpiry,
			&m.Htlcs[i].Ripemd, &m.Htlcs[i].AmountMsat,
			&m.Htlcs[i].RemoteSig); err != nil {
			return err
		}
	}

	var numSecrets uint16
	if err := readElements(r, &numSecrets); err != nil {
		return err
	}

	m.RevocationSecrets = make([]RevocationSecretDesc, numSecrets)
	for i := range m.RevocationSecrets {
		if err := readElements(r, &m.RevocationSecrets[i].Index,
			&m.RevocationSecrets[i].Secret); err != nil {
			return err
		}
	}

	return nil
}
