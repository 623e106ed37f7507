package onchainwire

import "io"

// PeerState reports onchaind's classification of the closing transaction
// back to the master process, so it can update its own view of the
// channel's state.
type PeerState uint8

const (
	StateMutual PeerState = iota
	StateOurUnilateral
	StateTheirUnilateral
	StateCheated
)

func (s PeerState) String() string {
	switch s {
	case StateMutual:
		return "onchaind_mutual"
	case StateOurUnilateral:
		return "onchaind_our_unilateral"
	case StateTheirUnilateral:
		return "onchaind_their_unilateral"
	case StateCheated:
		return "onchaind_cheated"
	default:
		return "onchaind_unknown"
	}
}

// InitReply tells the master process how the closing transaction was
// classified, once onchaind has examined it.
type InitReply struct {
	State PeerState
}

func (m *InitReply) MsgType() MessageType { return MsgInitReply }

func (m *InitReply) Encode(w io.Writer) error {
	return writeElements(w, uint8(m.State))
}

func (m *InitReply) Decode(r io.Reader) error {
	var state uint8
	if err := readElements(r, &state); err != nil {
		return err
	}
	m.State = PeerState(state)
	return nil
}
