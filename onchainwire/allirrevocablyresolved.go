package onchainwire

import "io"

// AllIrrevocablyResolved is onchaind's final message: every tracked output
// has reached its required confirmation depth, and the master process may
// tear this onchaind instance down.
type AllIrrevocablyResolved struct{}

func (m *AllIrrevocablyResolved) MsgType() MessageType { return MsgAllIrrevocablyResolved }

func (m *AllIrrevocablyResolved) Encode(w io.Writer) error { return nil }

func (m *AllIrrevocablyResolved) Decode(r io.Reader) error { return nil }
