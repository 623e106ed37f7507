package onchainwire

import (
	"io"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// UnwatchTx tells the master process it no longer needs notifications about
// a transaction, because a spend it was notified of matches no output
// onchaind still tracks.
type UnwatchTx struct {
	Txid chainhash.Hash
}

func (m *UnwatchTx) MsgType() MessageType { return MsgUnwatchTx }

func (m *UnwatchTx) Encode(w io.Writer) error {
	return writeElements(w, m.Txid)
}

func (m *UnwatchTx) Decode(r io.Reader) error {
	return readElements(r, &m.Txid)
}
