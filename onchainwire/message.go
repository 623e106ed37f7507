package onchainwire

// framing derived from the lnwire message header, with an added 4-byte
// length prefix: the lightning wire protocol omits a length field because it
// runs inside an authenticated, length-delimited transport, but the pipe
// connecting onchaind to its master process carries no such wrapper.

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// MaxMessagePayload is the maximum bytes a message's payload can be,
// regardless of any individual message's own limit.
const MaxMessagePayload = 1 << 20

// MessageType is the unique 2-byte big-endian integer identifying a message
// on the master<->onchaind pipe.
type MessageType uint16

const (
	MsgInit                MessageType = 3001
	MsgInitReply           MessageType = 3002
	MsgSpent               MessageType = 3003
	MsgDepth               MessageType = 3004
	MsgHtlc                MessageType = 3005
	MsgKnownPreimage       MessageType = 3006
	MsgBroadcastTx         MessageType = 3007
	MsgUnwatchTx           MessageType = 3008
	MsgAllIrrevocablyResolved MessageType = 3009
)

func (t MessageType) String() string {
	switch t {
	case MsgInit:
		return "init"
	case MsgInitReply:
		return "init_reply"
	case MsgSpent:
		return "spent"
	case MsgDepth:
		return "depth"
	case MsgHtlc:
		return "htlc"
	case MsgKnownPreimage:
		return "known_preimage"
	case MsgBroadcastTx:
		return "broadcast_tx"
	case MsgUnwatchTx:
		return "unwatch_tx"
	case MsgAllIrrevocablyResolved:
		return "all_irrevocably_resolved"
	default:
		return fmt.Sprintf("unknown(%d)", uint16(t))
	}
}

// UnknownMessage is returned when a message type has no known decoder.
type UnknownMessage struct {
	messageType MessageType
}

func (u *UnknownMessage) Error() string {
	return fmt.Sprintf("unable to parse message of unknown type: %v", u.messageType)
}

// Message is the interface every onchaind wire message implements.
type Message interface {
	Decode(io.Reader) error
	Encode(io.Writer) error
	MsgType() MessageType
}

func makeEmptyMessage(msgType MessageType) (Message, error) {
	var msg Message

	switch msgType {
	case MsgInit:
		msg = &Init{}
	case MsgInitReply:
		msg = &InitReply{}
	case MsgSpent:
		msg = &Spent{}
	case MsgDepth:
		msg = &Depth{}
	case MsgHtlc:
		msg = &Htlc{}
	case MsgKnownPreimage:
		msg = &KnownPreimage{}
	case MsgBroadcastTx:
		msg = &BroadcastTx{}
	case MsgUnwatchTx:
		msg = &UnwatchTx{}
	case MsgAllIrrevocablyResolved:
		msg = &AllIrrevocablyResolved{}
	default:
		return nil, &UnknownMessage{messageType: msgType}
	}

	return msg, nil
}

// WriteMessage serializes msg as [4-byte BE length][2-byte BE type][payload]
// and writes it to w, returning the total bytes written.
func WriteMessage(w io.Writer, msg Message) (int, error) {
	var bw bytes.Buffer
	if err := msg.Encode(&bw); err != nil {
		return 0, err
	}
	payload := bw.Bytes()

	if len(payload) > MaxMessagePayload {
		return 0, fmt.Errorf("message payload is too large - encoded "+
			"%d bytes, but maximum message payload is %d bytes",
			len(payload), MaxMessagePayload)
	}

	var header [6]byte
	binary.BigEndian.PutUint32(header[0:4], uint32(len(payload)+2))
	binary.BigEndian.PutUint16(header[4:6], uint16(msg.MsgType()))

	total := 0
	n, err := w.Write(header[:])
	total += n
	if err != nil {
		return total, err
	}

	n, err = w.Write(payload)
	total += n
	return total, err
}

// ReadMessage reads, frames, and decodes the next message from r.
func ReadMessage(r io.Reader) (Message, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	length := binary.BigEndian.Uint32(lenBuf[:])
	if length < 2 {
		return nil, fmt.Errorf("message length %d too short to contain a type", length)
	}
	if length-2 > MaxMessagePayload {
		return nil, fmt.Errorf("message length %d exceeds maximum payload %d",
			length-2, MaxMessagePayload)
	}

	body := make([]byte, length)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, err
	}

	msgType := MessageType(binary.BigEndian.Uint16(body[0:2]))

	msg, err := makeEmptyMessage(msgType)
	if err != nil {
		return nil, err
	}
	if err := msg.Decode(bytes.NewReader(body[2:])); err != nil {
		return nil, err
	}

	return msg, nil
}
