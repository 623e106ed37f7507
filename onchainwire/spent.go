package onchainwire

import (
	"io"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

// Spent notifies onchaind that a tracked output was spent, giving it the
// spending transaction and the height it confirmed in.
type Spent struct {
	Txid        chainhash.Hash
	Outnum      uint32
	SpendingTx  *wire.MsgTx
	Blockheight uint32
}

func (m *Spent) MsgType() MessageType { return MsgSpent }

func (m *Spent) Encode(w io.Writer) error {
	return writeElements(w, m.Txid, m.Outnum, m.SpendingTx, m.Blockheight)
}

func (m *Spent) Decode(r io.Reader) error {
	return readElements(r, &m.Txid, &m.Outnum, &m.SpendingTx, &m.Blockheight)
}
