package onchainwire_test

import (
	"bytes"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/lightningnetwork/onchaind/onchainwire"
	"github.com/stretchr/testify/require"
)

func testPubKey(seed byte) *btcec.PublicKey {
	var raw [32]byte
	raw[31] = seed + 1
	priv, _ := btcec.PrivKeyFromBytes(raw[:])
	return priv.PubKey()
}

func roundTrip(t *testing.T, msg onchainwire.Message) onchainwire.Message {
	t.Helper()

	var buf bytes.Buffer
	_, err := onchainwire.WriteMessage(&buf, msg)
	require.NoError(t, err)

	got, err := onchainwire.ReadMessage(&buf)
	require.NoError(t, err)

	return got
}

func TestInitRoundTrip(t *testing.T) {
	t.Parallel()

	msg := &onchainwire.Init{
		FundingTxid:                   chainhash.Hash{1, 2, 3},
		FundingTxout:                  0,
		FundingSatoshi:                1000000,
		Funder:                        0,
		LocalRevocationBasepoint:      testPubKey(1),
		LocalPaymentBasepoint:         testPubKey(2),
		LocalDelayedPaymentBasepoint:  testPubKey(3),
		LocalHtlcBasepoint:            testPubKey(4),
		RemoteRevocationBasepoint:     testPubKey(5),
		RemotePaymentBasepoint:        testPubKey(6),
		RemoteDelayedPaymentBasepoint: testPubKey(7),
		RemoteHtlcBasepoint:           testPubKey(8),
		LocalToSelfDelay:                   144,
		RemoteToSelfDelay:                  144,
		LocalDelayedPaymentBasepointSecret: [32]byte{7, 7, 7},
		OurBroadcastTxid:                   chainhash.Hash{9},
		OurPerCommitmentPoint:              testPubKey(9),
		RemotePerCommitmentPoint:           testPubKey(10),
		Htlcs: []onchainwire.HtlcDesc{
			{
				Owner: 0, CltvExpiry: 500000, Ripemd: [20]byte{1}, AmountMsat: 100000,
				RemoteSig: []byte{0xde, 0xad, 0xbe, 0xef},
			},
			{Owner: 1, CltvExpiry: 500100, Ripemd: [20]byte{2}, AmountMsat: 200000},
		},
		RevocationSecrets: []onchainwire.RevocationSecretDesc{
			{Index: 0, Secret: [32]byte{1, 2, 3}},
			{Index: 1, Secret: [32]byte{4, 5, 6}},
		},
	}

	got := roundTrip(t, msg).(*onchainwire.Init)

	require.Equal(t, msg.FundingTxid, got.FundingTxid)
	require.Equal(t, msg.FundingSatoshi, got.FundingSatoshi)
	require.Equal(t, msg.LocalToSelfDelay, got.LocalToSelfDelay)
	require.Equal(t, msg.OurBroadcastTxid, got.OurBroadcastTxid)
	require.Len(t, got.Htlcs, 2)
	require.Equal(t, msg.Htlcs[1].AmountMsat, got.Htlcs[1].AmountMsat)
	require.Equal(t, msg.Htlcs[0].RemoteSig, got.Htlcs[0].RemoteSig)
	require.Empty(t, got.Htlcs[1].RemoteSig)
	require.True(t, msg.LocalRevocationBasepoint.IsEqual(got.LocalRevocationBasepoint))
	require.Equal(t, msg.RevocationSecrets, got.RevocationSecrets)
	require.Equal(t, msg.LocalDelayedPaymentBasepointSecret, got.LocalDelayedPaymentBasepointSecret)
}

func TestSpentRoundTrip(t *testing.T) {
	t.Parallel()

	tx := wire.NewMsgTx(2)
	tx.AddTxIn(&wire.TxIn{PreviousOutPoint: wire.OutPoint{Hash: chainhash.Hash{1}, Index: 0}})
	tx.AddTxOut(&wire.TxOut{Value: 500, PkScript: []byte{0x00, 0x14}})

	msg := &onchainwire.Spent{
		Txid:        chainhash.Hash{4, 5, 6},
		Outnum:      2,
		SpendingTx:  tx,
		Blockheight: 700000,
	}

	got := roundTrip(t, msg).(*onchainwire.Spent)

	require.Equal(t, msg.Txid, got.Txid)
	require.Equal(t, msg.Outnum, got.Outnum)
	require.Equal(t, msg.Blockheight, got.Blockheight)
	require.Equal(t, tx.TxHash(), got.SpendingTx.TxHash())
}

func TestInitReplyRoundTrip(t *testing.T) {
	t.Parallel()

	msg := &onchainwire.InitReply{State: onchainwire.StateTheirUnilateral}
	got := roundTrip(t, msg).(*onchainwire.InitReply)
	require.Equal(t, onchainwire.StateTheirUnilateral, got.State)
}

func TestUnknownMessageType(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	// length=2 (type only), type=9999 (unregistered)
	buf.Write([]byte{0, 0, 0, 2, 0x27, 0x0f})

	_, err := onchainwire.ReadMessage(&buf)
	require.Error(t, err)
}
