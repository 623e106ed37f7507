package shachain_test

import (
	"crypto/sha256"
	"testing"

	"github.com/lightningnetwork/onchaind/shachain"
	"github.com/stretchr/testify/require"
)

// deriveFromSeed reproduces the generator side of the scheme for testing:
// the secret at index 0 (all bits unset) can derive every other index by
// flipping bits from the top of the tree down to bit zero.
func deriveFromSeed(seed shachain.Secret, index uint64) shachain.Secret {
	out := seed
	for b := 47; b >= 0; b-- {
		if index&(1<<uint(b)) != 0 {
			out[b/8] ^= 1 << uint(b%8)
			out = sha256.Sum256(out[:])
		}
	}
	return out
}

func TestReceiverAcceptsConsistentChain(t *testing.T) {
	t.Parallel()

	seed := shachain.Secret{1, 2, 3, 4}
	recv := shachain.NewReceiver()

	// Secrets are handed over in decreasing index order, as the BOLT
	// revocation protocol delivers them.
	for i := uint64(5); i > 0; i-- {
		secret := deriveFromSeed(seed, i-1)
		require.NoError(t, recv.AddNextSecret(i-1, secret))
	}

	require.Equal(t, uint64(4), recv.RevocationsReceived())

	for i := uint64(0); i < 5; i++ {
		got, ok := recv.Lookup(i)
		require.True(t, ok)
		require.Equal(t, deriveFromSeed(seed, i), got)
	}
}

func TestReceiverRejectsInconsistentSecret(t *testing.T) {
	t.Parallel()

	seed := shachain.Secret{9, 9, 9}
	recv := shachain.NewReceiver()

	require.NoError(t, recv.AddNextSecret(10, deriveFromSeed(seed, 10)))

	// A secret for an ancestor index that does not actually derive the
	// one already stored must be rejected.
	badSecret := shachain.Secret{0xff}
	err := recv.AddNextSecret(8, badSecret)
	require.ErrorIs(t, err, shachain.ErrInconsistentSecret)
}

func TestReceiverLookupMissing(t *testing.T) {
	t.Parallel()

	recv := shachain.NewReceiver()
	_, ok := recv.Lookup(42)
	require.False(t, ok)
}
