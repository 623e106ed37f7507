package onchainwire

import "io"

// Htlc carries a per-output signature the master process supplies for an
// HTLC-timeout or direct HTLC sweep transaction onchaind cannot sign itself
// (onchaind is never given an HTLC basepoint secret).
type Htlc struct {
	Outnum    uint32
	Signature []byte
}

func (m *Htlc) MsgType() MessageType { return MsgHtlc }

func (m *Htlc) Encode(w io.Writer) error {
	return writeElements(w, m.Outnum, m.Signature)
}

func (m *Htlc) Decode(r io.Reader) error {
	return readElements(r, &m.Outnum, &m.Signature)
}
