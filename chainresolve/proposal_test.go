package chainresolve_test

import (
	"math"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/lightningnetwork/onchaind/chainresolve"
	"github.com/stretchr/testify/require"
)

func TestBuildToUsSweep(t *testing.T) {
	t.Parallel()

	destScript := []byte{0x00, 0x14, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 20}

	in := chainresolve.ToUsInput{
		Outpoint:      wire.OutPoint{Index: 0},
		Value:         100000,
		WitnessScript: []byte{0x51},
		SequenceOrCsv: 144,
	}

	tx, err := chainresolve.BuildToUsSweep(in, destScript, 10000)
	require.NoError(t, err)
	require.NotNil(t, tx)
	require.Len(t, tx.TxOut, 1)
	require.Equal(t, in.SequenceOrCsv, tx.TxIn[0].Sequence)
	require.Less(t, tx.TxOut[0].Value, in.Value)
}

func TestBuildToUsSweepDust(t *testing.T) {
	t.Parallel()

	destScript := []byte{0x00, 0x14, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 20}

	in := chainresolve.ToUsInput{
		Outpoint:      wire.OutPoint{Index: 0},
		Value:         1000,
		WitnessScript: []byte{0x51},
		SequenceOrCsv: 144,
	}

	tx, err := chainresolve.BuildToUsSweep(in, destScript, 50000)
	require.NoError(t, err)
	require.Nil(t, tx)
}

func TestSignToUsSweepProducesAValidWitness(t *testing.T) {
	t.Parallel()

	destScript := []byte{0x00, 0x14, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 20}
	witnessScript := []byte{0x51}

	in := chainresolve.ToUsInput{
		Outpoint:      wire.OutPoint{Index: 0},
		Value:         100000,
		WitnessScript: witnessScript,
		SequenceOrCsv: 144,
	}

	tx, err := chainresolve.BuildToUsSweep(in, destScript, 10000)
	require.NoError(t, err)
	require.NotNil(t, tx)
	require.Nil(t, tx.TxIn[0].Witness)

	priv, pub := genKeyPair(t, 5)

	witness, err := chainresolve.SignToUsSweep(tx, witnessScript, in.Value, priv)
	require.NoError(t, err)
	require.Len(t, witness, 3)
	require.Nil(t, witness[1])
	require.Equal(t, witnessScript, []byte(witness[2]))

	tx.TxIn[0].Witness = witness

	prevOutFetcher := txscript.NewCannedPrevOutputFetcher(witnessScript, in.Value)
	hashes := txscript.NewTxSigHashes(tx, prevOutFetcher)
	sigHash, err := txscript.CalcWitnessSigHash(witnessScript, hashes,
		txscript.SigHashAll, tx, 0, in.Value)
	require.NoError(t, err)

	rawSig := witness[0]
	sig, err := ecdsa.ParseDERSignature(rawSig[:len(rawSig)-1])
	require.NoError(t, err)
	require.True(t, sig.Verify(sigHash, pub))
}

func TestBuildHtlcTimeoutCandidates(t *testing.T) {
	t.Parallel()

	destScript := []byte{0x00, 0x14, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 20}
	rng := chainresolve.FeerateRange{Min: 1000, Max: 1005}

	candidates, err := chainresolve.BuildHtlcTimeoutCandidates(
		wire.OutPoint{Index: 1}, 50000, []byte{0x51}, 700000, destScript, rng)
	require.NoError(t, err)
	require.Len(t, candidates, 6)

	for i, c := range candidates {
		require.Equal(t, rng.Min+uint32(i), c.Feerate)
		require.Equal(t, uint32(700000), c.Tx.LockTime)
	}
}

func TestBuildHtlcTimeoutCandidatesMaxUint32DoesNotHang(t *testing.T) {
	t.Parallel()

	// A range pinned to the very top of uint32 with a dust outcome there
	// must still terminate: the loop's only exit is the rng.Max check, and
	// an unconditional feerate++ past it would otherwise wrap to zero.
	rng := chainresolve.FeerateRange{Min: math.MaxUint32, Max: math.MaxUint32}
	_, err := chainresolve.BuildHtlcTimeoutCandidates(
		wire.OutPoint{Index: 1}, 1, []byte{0x51}, 700000, nil, rng)
	require.Error(t, err)
}

func TestBuildHtlcTimeoutCandidatesInvalidRange(t *testing.T) {
	t.Parallel()

	rng := chainresolve.FeerateRange{Min: 2000, Max: 1000}
	_, err := chainresolve.BuildHtlcTimeoutCandidates(
		wire.OutPoint{}, 50000, []byte{0x51}, 700000, nil, rng)
	require.Error(t, err)
}

func TestBuildHtlcTimeoutCandidatesTooSmall(t *testing.T) {
	t.Parallel()

	rng := chainresolve.FeerateRange{Min: 1000000, Max: 1000000}
	_, err := chainresolve.BuildHtlcTimeoutCandidates(
		wire.OutPoint{}, 1000, []byte{0x51}, 700000, nil, rng)
	require.Error(t, err)
}

func TestSelectHtlcTimeoutCandidateFindsTheSignedFeerate(t *testing.T) {
	t.Parallel()

	destScript := []byte{0x00, 0x14, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 20}
	witnessScript := []byte{0x51}
	rng := chainresolve.FeerateRange{Min: 1000, Max: 1010}

	candidates, err := chainresolve.BuildHtlcTimeoutCandidates(
		wire.OutPoint{Index: 2}, 50000, witnessScript, 700000, destScript, rng)
	require.NoError(t, err)
	require.NotEmpty(t, candidates)

	// Pretend the counterparty actually signed the candidate in the
	// middle of the range.
	signed := candidates[len(candidates)/2]

	remotePriv, remotePub := genKeyPair(t, 9)
	prevOutFetcher := txscript.NewCannedPrevOutputFetcher(witnessScript, 50000)
	hashes := txscript.NewTxSigHashes(signed.Tx, prevOutFetcher)
	sigHash, err := txscript.CalcWitnessSigHash(witnessScript, hashes,
		txscript.SigHashAll, signed.Tx, 0, 50000)
	require.NoError(t, err)

	sig := ecdsa.Sign(remotePriv, sigHash)
	remoteSig := append(sig.Serialize(), byte(txscript.SigHashAll))

	found, err := chainresolve.SelectHtlcTimeoutCandidate(candidates, witnessScript,
		50000, remoteSig, remotePub)
	require.NoError(t, err)
	require.Equal(t, signed.Feerate, found.Feerate)
}

func TestSelectHtlcTimeoutCandidateNoMatch(t *testing.T) {
	t.Parallel()

	destScript := []byte{0x00, 0x14, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 20}
	witnessScript := []byte{0x51}
	rng := chainresolve.FeerateRange{Min: 1000, Max: 1002}

	candidates, err := chainresolve.BuildHtlcTimeoutCandidates(
		wire.OutPoint{Index: 2}, 50000, witnessScript, 700000, destScript, rng)
	require.NoError(t, err)

	remotePriv, remotePub := genKeyPair(t, 11)
	// Sign an unrelated hash, so no candidate's sighash will ever match.
	sig := ecdsa.Sign(remotePriv, make([]byte, 32))
	remoteSig := append(sig.Serialize(), byte(txscript.SigHashAll))

	_, err = chainresolve.SelectHtlcTimeoutCandidate(candidates, witnessScript,
		50000, remoteSig, remotePub)
	require.Error(t, err)
}

func TestBuildHtlcDirectTimeoutSweep(t *testing.T) {
	t.Parallel()

	destScript := []byte{0x00, 0x14, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 20}

	tx, err := chainresolve.BuildHtlcDirectTimeoutSweep(
		wire.OutPoint{Index: 3}, 50000, 700000, destScript, 1000)
	require.NoError(t, err)
	require.Equal(t, uint32(700000), tx.LockTime)
	require.Len(t, tx.TxOut, 1)
	require.Less(t, tx.TxOut[0].Value, int64(50000))
}

func TestHtlcDirectTimeoutWitnessShape(t *testing.T) {
	t.Parallel()

	witness := chainresolve.HtlcDirectTimeoutWitness([]byte{0xaa}, []byte{0x51})
	require.Len(t, witness, 3)
	require.Equal(t, []byte{0xaa}, witness[0])
	require.Nil(t, witness[1])
	require.Equal(t, []byte{0x51}, witness[2])
}

func genKeyPair(t *testing.T, seed byte) (*btcec.PrivateKey, *btcec.PublicKey) {
	t.Helper()
	var raw [32]byte
	raw[31] = seed + 1
	priv, pub := btcec.PrivKeyFromBytes(raw[:])
	return priv, pub
}

func TestFundingMultisigScriptOrdersKeysLexicographically(t *testing.T) {
	t.Parallel()

	a := genKey(t, 1)
	b := genKey(t, 2)

	scriptAB, err := chainresolve.FundingMultisigScript(a, b)
	require.NoError(t, err)

	scriptBA, err := chainresolve.FundingMultisigScript(b, a)
	require.NoError(t, err)

	require.Equal(t, scriptAB, scriptBA)
}
