package chainresolve_test

import (
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/lightningnetwork/onchaind/chainresolve"
	"github.com/stretchr/testify/require"
)

func genPrivKey(t *testing.T, seed byte) *btcec.PrivateKey {
	t.Helper()
	var raw [32]byte
	raw[31] = seed + 1
	priv, _ := btcec.PrivKeyFromBytes(raw[:])
	return priv
}

func TestDerivePrivkeyMatchesDerivePubkey(t *testing.T) {
	t.Parallel()

	basepointSecret := genPrivKey(t, 3)
	perCommitmentPoint := genKey(t, 9)

	privkey := chainresolve.DerivePrivkey(basepointSecret, perCommitmentPoint)
	pubkey := chainresolve.DerivePubkey(basepointSecret.PubKey(), perCommitmentPoint)

	require.True(t, privkey.PubKey().IsEqual(pubkey))
}

func TestDerivePrivkeyVariesWithPerCommitmentPoint(t *testing.T) {
	t.Parallel()

	basepointSecret := genPrivKey(t, 3)

	privkeyA := chainresolve.DerivePrivkey(basepointSecret, genKey(t, 9))
	privkeyB := chainresolve.DerivePrivkey(basepointSecret, genKey(t, 10))

	require.False(t, privkeyA.PubKey().IsEqual(privkeyB.PubKey()))
}
