package onchainwire

import (
	"io"

	"github.com/btcsuite/btcd/wire"
)

// BroadcastTx asks the master process to broadcast a transaction onchaind
// has constructed; onchaind has no network connection of its own and relies
// on the master for all chain I/O.
type BroadcastTx struct {
	Tx    *wire.MsgTx
	Label string
}

func (m *BroadcastTx) MsgType() MessageType { return MsgBroadcastTx }

func (m *BroadcastTx) Encode(w io.Writer) error {
	return writeElements(w, m.Tx, []byte(m.Label))
}

func (m *BroadcastTx) Decode(r io.Reader) error {
	var label []byte
	if err := readElements(r, &m.Tx, &label); err != nil {
		return err
	}
	m.Label = string(label)
	return nil
}
