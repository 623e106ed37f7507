package onchainwire

import (
	"io"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// Depth notifies onchaind of the current confirmation depth of a
// transaction it is watching.
type Depth struct {
	Txid  chainhash.Hash
	Depth uint32
}

func (m *Depth) MsgType() MessageType { return MsgDepth }

func (m *Depth) Encode(w io.Writer) error {
	return writeElements(w, m.Txid, m.Depth)
}

func (m *Depth) Decode(r io.Reader) error {
	return readElements(r, &m.Txid, &m.Depth)
}
