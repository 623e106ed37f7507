package shachain

import (
	"crypto/sha256"

	"github.com/go-errors/errors"
)

// maxHeight is the number of bits in a commitment index; BOLT #3 commitment
// numbers are 48-bit values, so that is the height of the derivation tree
// this package maintains.
const maxHeight = 48

// Secret is a single revocation secret. It is an alias (not a distinct
// type) for [32]byte so that Receiver satisfies chainresolve.RevocationStore
// without an adapter.
type Secret = [32]byte

// ErrInconsistentSecret is returned when a newly offered secret cannot be
// reconciled against a previously stored one that shares an ancestor
// relationship with it: either the peer sent a secret out of order, or it
// attempted to cheat by feeding onchaind a secret inconsistent with an
// earlier revocation.
var ErrInconsistentSecret = errors.New("shachain: secret inconsistent with a previously stored value")

// lowestSetBit returns the position of the lowest set bit of v, or
// maxHeight if v is zero (index 0 is the ancestor of every index in the
// tree, so it is treated as having every bit above the tree's height set).
func lowestSetBit(v uint64) uint8 {
	if v == 0 {
		return maxHeight
	}
	var pos uint8
	for v&1 == 0 {
		v >>= 1
		pos++
	}
	return pos
}

// isAncestor reports whether the secret stored at index `from` can derive
// the secret at index `to`: every bit of `to` at or above from's lowest set
// bit must match `from`.
func isAncestor(from, to uint64) bool {
	bit := lowestSetBit(from)
	if bit >= maxHeight {
		return true
	}
	mask := ^uint64(0) << bit
	return from&mask == to&mask
}

// deriveChild computes the secret at index `to` given the secret stored at
// index `from`, by flipping each bit of `from` below its lowest set bit to
// match `to` and re-hashing after every flip, walking from the
// highest differing bit down to bit zero.
func deriveChild(secret Secret, from, to uint64) (Secret, error) {
	if !isAncestor(from, to) {
		return Secret{}, ErrInconsistentSecret
	}

	bit := lowestSetBit(from)
	out := secret
	for b := int(bit) - 1; b >= 0; b-- {
		if to&(1<<uint(b)) != 0 {
			out = flipAndHash(out, b)
		}
	}
	return out, nil
}

func flipAndHash(h Secret, bit int) Secret {
	byteIdx := bit / 8
	h[byteIdx] ^= 1 << uint(bit%8)
	return sha256.Sum256(h[:])
}

type element struct {
	index  uint64
	secret Secret
}

// Receiver stores the revocation secrets handed to onchaind by its peer's
// init message, compressing them into at most maxHeight+1 buckets the same
// way the shachain scheme (and the teacher's own elkrem package) does: a
// new secret is only kept if it cannot be derived from one already stored,
// and storing it lets any now-redundant descendant entries be dropped.
type Receiver struct {
	buckets  [maxHeight + 1]*element
	received uint64
	any      bool
}

// NewReceiver returns an empty revocation store.
func NewReceiver() *Receiver {
	return &Receiver{}
}

// AddNextSecret inserts a newly learned secret for a commitment index,
// verifying it against every previously stored secret with an ancestor
// relationship to it. It returns ErrInconsistentSecret if the new secret
// does not reconcile with prior state, which the caller must treat as fatal
// (the counterparty has violated the revocation protocol).
func (r *Receiver) AddNextSecret(index uint64, secret Secret) error {
	for _, e := range r.buckets {
		if e == nil {
			continue
		}

		switch {
		case e.index == index:
			if e.secret != secret {
				return ErrInconsistentSecret
			}
		case isAncestor(index, e.index):
			derived, err := deriveChild(secret, index, e.index)
			if err != nil {
				return err
			}
			if derived != e.secret {
				return ErrInconsistentSecret
			}
		case isAncestor(e.index, index):
			derived, err := deriveChild(e.secret, e.index, index)
			if err != nil {
				return err
			}
			if derived != secret {
				return ErrInconsistentSecret
			}
		}
	}

	bucket := lowestSetBit(index)
	r.buckets[bucket] = &element{index: index, secret: secret}
	log.Tracef("stored revocation secret for index %d in bucket %d", index, bucket)

	// Any bucket now derivable from the newly stored secret is redundant.
	for b, e := range r.buckets {
		if e == nil || uint8(b) == bucket {
			continue
		}
		if isAncestor(index, e.index) {
			r.buckets[b] = nil
		}
	}

	if !r.any || index > r.received {
		r.received = index
	}
	r.any = true

	return nil
}

// Lookup returns the secret for a commitment index, deriving it from the
// closest stored ancestor if it is not stored directly.
func (r *Receiver) Lookup(index uint64) (Secret, bool) {
	for _, e := range r.buckets {
		if e == nil {
			continue
		}
		if e.index == index {
			return e.secret, true
		}
		if isAncestor(e.index, index) {
			secret, err := deriveChild(e.secret, e.index, index)
			if err != nil {
				continue
			}
			return secret, true
		}
	}
	return Secret{}, false
}

// RevocationsReceived returns the highest commitment index whose secret has
// been received so far, or zero if none has.
func (r *Receiver) RevocationsReceived() uint64 {
	return r.received
}
