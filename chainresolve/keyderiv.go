package chainresolve

import (
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// DerivePubkey computes one of the three per-commitment tweaked public keys
// BOLT #3 defines (localpubkey, local_htlcpubkey, remote_htlcpubkey all share
// this formula):
//
//	pubkey = basepoint + SHA256(per_commitment_point || basepoint)*G
func DerivePubkey(basepoint, perCommitmentPoint *btcec.PublicKey) *btcec.PublicKey {
	tweak := chainhash.HashB(append(
		perCommitmentPoint.SerializeCompressed(),
		basepoint.SerializeCompressed()...,
	))
	return addTweakedPoint(basepoint, tweak)
}

// DeriveRevocationPubkey computes the revocationpubkey BOLT #3 assigns to a
// commitment transaction:
//
//	revocationpubkey = revocation_basepoint*SHA256(revocation_basepoint || per_commitment_point)
//	                 + per_commitment_point*SHA256(per_commitment_point || revocation_basepoint)
func DeriveRevocationPubkey(revocationBasepoint, perCommitmentPoint *btcec.PublicKey) *btcec.PublicKey {
	basepointTweak := chainhash.HashB(append(
		revocationBasepoint.SerializeCompressed(),
		perCommitmentPoint.SerializeCompressed()...,
	))
	commitTweak := chainhash.HashB(append(
		perCommitmentPoint.SerializeCompressed(),
		revocationBasepoint.SerializeCompressed()...,
	))

	var term1, term2, sum btcec.JacobianPoint
	scalarMultPoint(revocationBasepoint, basepointTweak, &term1)
	scalarMultPoint(perCommitmentPoint, commitTweak, &term2)

	btcec.AddNonConst(&term1, &term2, &sum)
	sum.ToAffine()

	return btcec.NewPublicKey(&sum.X, &sum.Y)
}

// DerivePrivkey is DerivePubkey's private-key counterpart: given the secret
// behind a basepoint, it derives the private key matching one of
// DerivePubkey's tweaked public keys. onchaind needs this for the one
// output it must sign without any help from the master process: its own
// to-us delayed output, whose basepoint secret the master hands over at
// init precisely so onchaind can do this locally rather than round-trip a
// signature request for a key it can derive itself.
func DerivePrivkey(basepointSecret *btcec.PrivateKey, perCommitmentPoint *btcec.PublicKey) *btcec.PrivateKey {
	basepoint := basepointSecret.PubKey()
	tweak := chainhash.HashB(append(
		perCommitmentPoint.SerializeCompressed(),
		basepoint.SerializeCompressed()...,
	))

	var tweakScalar btcec.ModNScalar
	tweakScalar.SetByteSlice(tweak)

	var sum btcec.ModNScalar
	sum.Add2(&basepointSecret.Key, &tweakScalar)

	return secp256k1.NewPrivateKey(&sum)
}

// addTweakedPoint returns basepoint + tweak*G.
func addTweakedPoint(basepoint *btcec.PublicKey, tweak []byte) *btcec.PublicKey {
	var tweakScalar btcec.ModNScalar
	tweakScalar.SetByteSlice(tweak)

	var tweakPoint, basePointJ, sum btcec.JacobianPoint
	btcec.ScalarBaseMultNonConst(&tweakScalar, &tweakPoint)
	basepoint.AsJacobian(&basePointJ)

	btcec.AddNonConst(&tweakPoint, &basePointJ, &sum)
	sum.ToAffine()

	return btcec.NewPublicKey(&sum.X, &sum.Y)
}

// scalarMultPoint computes scalar*point, writing the Jacobian result into
// result.
func scalarMultPoint(point *btcec.PublicKey, scalarBytes []byte, result *btcec.JacobianPoint) {
	var scalar btcec.ModNScalar
	scalar.SetByteSlice(scalarBytes)

	var pointJ btcec.JacobianPoint
	point.AsJacobian(&pointJ)

	btcec.ScalarMultNonConst(&scalar, &pointJ, result)
}

// PerCommitmentPoint derives the public per-commitment point for a secret
// drawn from the revocation store: per_commitment_point = secret*G.
func PerCommitmentPoint(secret [32]byte) *btcec.PublicKey {
	var scalar btcec.ModNScalar
	scalar.SetBytes(&secret)

	var point btcec.JacobianPoint
	btcec.ScalarBaseMultNonConst(&scalar, &point)
	point.ToAffine()

	return btcec.NewPublicKey(&point.X, &point.Y)
}

// DeriveKeySet builds the full KeySet for one side's view of a commitment
// transaction. delayedPaymentBasepoint belongs to the side whose to_local
// output this is; revocationBasepoint belongs to the *other* side, since
// BOLT #3's revocation key on a commitment is always derived from the
// counterparty's revocation basepoint, so that a revealed per-commitment
// secret lets them, not the commitment's owner, sweep a cheat. selfHtlcBasepoint
// and otherHtlcBasepoint are the HTLC basepoints of the commitment owner and
// its counterparty, respectively; otherPaymentBasepoint is the counterparty's
// payment basepoint, backing their direct (non-delayed) output. Every key
// here is tweaked by the same per-commitment point, per BOLT #3.
func DeriveKeySet(perCommitmentPoint *btcec.PublicKey, revocationBasepoint,
	delayedPaymentBasepoint, selfHtlcBasepoint, otherHtlcBasepoint,
	otherPaymentBasepoint *btcec.PublicKey) KeySet {

	return KeySet{
		SelfRevocationKey:     DeriveRevocationPubkey(revocationBasepoint, perCommitmentPoint),
		SelfDelayedPaymentKey: DerivePubkey(delayedPaymentBasepoint, perCommitmentPoint),
		SelfHtlcKey:           DerivePubkey(selfHtlcBasepoint, perCommitmentPoint),
		OtherHtlcKey:          DerivePubkey(otherHtlcBasepoint, perCommitmentPoint),
		OtherPaymentKey:       DerivePubkey(otherPaymentBasepoint, perCommitmentPoint),
	}
}
