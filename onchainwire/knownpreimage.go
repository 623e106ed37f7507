package onchainwire

import "io"

// KnownPreimage tells onchaind that the payment preimage for an HTLC it is
// tracking has become known. onchaind only logs it: no preimage spend of
// the HTLC output is built, and the output still resolves on timeout.
type KnownPreimage struct {
	PaymentHash [32]byte
	Preimage    [32]byte
}

func (m *KnownPreimage) MsgType() MessageType { return MsgKnownPreimage }

func (m *KnownPreimage) Encode(w io.Writer) error {
	return writeElements(w, m.PaymentHash, m.Preimage)
}

func (m *KnownPreimage) Decode(r io.Reader) error {
	return readElements(r, &m.PaymentHash, &m.Preimage)
}
