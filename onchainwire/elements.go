package onchainwire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

var errUnsupportedType = errors.New("onchainwire: unsupported element type")

func writeElement(w io.Writer, element interface{}) error {
	switch e := element.(type) {
	case uint8:
		return binary.Write(w, binary.BigEndian, e)
	case uint16:
		return binary.Write(w, binary.BigEndian, e)
	case uint32:
		return binary.Write(w, binary.BigEndian, e)
	case uint64:
		return binary.Write(w, binary.BigEndian, e)
	case bool:
		var b uint8
		if e {
			b = 1
		}
		return binary.Write(w, binary.BigEndian, b)
	case chainhash.Hash:
		_, err := w.Write(e[:])
		return err
	case [20]byte:
		_, err := w.Write(e[:])
		return err
	case [32]byte:
		_, err := w.Write(e[:])
		return err
	case *btcec.PublicKey:
		_, err := w.Write(e.SerializeCompressed())
		return err
	case []byte:
		if err := writeElement(w, uint32(len(e))); err != nil {
			return err
		}
		_, err := w.Write(e)
		return err
	case *wire.MsgTx:
		raw, err := serializeTx(e)
		if err != nil {
			return err
		}
		return writeElement(w, raw)
	default:
		return errUnsupportedType
	}
}

func readElement(r io.Reader, element interface{}) error {
	switch e := element.(type) {
	case *uint8:
		return binary.Read(r, binary.BigEndian, e)
	case *uint16:
		return binary.Read(r, binary.BigEndian, e)
	case *uint32:
		return binary.Read(r, binary.BigEndian, e)
	case *uint64:
		return binary.Read(r, binary.BigEndian, e)
	case *bool:
		var b uint8
		if err := binary.Read(r, binary.BigEndian, &b); err != nil {
			return err
		}
		*e = b != 0
		return nil
	case *chainhash.Hash:
		_, err := io.ReadFull(r, e[:])
		return err
	case *[20]byte:
		_, err := io.ReadFull(r, e[:])
		return err
	case *[32]byte:
		_, err := io.ReadFull(r, e[:])
		return err
	case **btcec.PublicKey:
		var raw [33]byte
		if _, err := io.ReadFull(r, raw[:]); err != nil {
			return err
		}
		pub, err := btcec.ParsePubKey(raw[:])
		if err != nil {
			return err
		}
		*e = pub
		return nil
	case *[]byte:
		var length uint32
		if err := readElement(r, &length); err != nil {
			return err
		}
		if length > MaxMessagePayload {
			return fmt.Errorf("onchainwire: element length %d exceeds maximum payload %d",
				length, MaxMessagePayload)
		}
		buf := make([]byte, length)
		if _, err := io.ReadFull(r, buf); err != nil {
			return err
		}
		*e = buf
		return nil
	case **wire.MsgTx:
		var raw []byte
		if err := readElement(r, &raw); err != nil {
			return err
		}
		tx, err := deserializeTx(raw)
		if err != nil {
			return err
		}
		*e = tx
		return nil
	default:
		return errUnsupportedType
	}
}

func writeElements(w io.Writer, elements ...interface{}) error {
	for _, element := range elements {
		if err := writeElement(w, element); err != nil {
			return err
		}
	}
	return nil
}

func readElements(r io.Reader, elements ...interface{}) error {
	for _, element := range elements {
		if err := readElement(r, element); err != nil {
			return err
		}
	}
	return nil
}

func serializeTx(tx *wire.MsgTx) ([]byte, error) {
	var buf bytes.Buffer
	if err := tx.Serialize(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func deserializeTx(raw []byte) (*wire.MsgTx, error) {
	tx := wire.NewMsgTx(2)
	if err := tx.Deserialize(bytes.NewReader(raw)); err != nil {
		return nil, err
	}
	return tx, nil
}
