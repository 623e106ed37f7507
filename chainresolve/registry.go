package chainresolve

import (
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

// Proposal is the daemon's chosen resolution for a tracked output: either a
// transaction to broadcast once depth_required confirmations are reached, or
// (if Tx is nil) simply treating the output as resolved by ignoring it once
// that depth is reached.
type Proposal struct {
	Tx            *wire.MsgTx
	DepthRequired uint32
	TxType        TxType

	// Broadcast is set once the registry has handed this proposal back to
	// a caller via DueProposals, so a later depth update for the same
	// creating transaction does not hand it out a second time.
	Broadcast bool
}

// PendingHtlcResolution holds an HTLC resolution transaction onchaind has
// chosen and built but cannot yet broadcast because it still needs a
// signature only the master process can produce: HTLC basepoint secrets are
// never handed to onchaind, unlike the delayed-payment basepoint secret
// backing a to-us sweep, so this half of the signature has to come from
// whichever process already holds the rest of the channel's key material.
// RemoteSig is nil for a direct, single-key sweep (an HTLC we offered,
// reclaimed straight off the counterparty's commitment) and set for a
// 2-of-2 HTLC-timeout transaction (an HTLC we offered, reclaimed off our
// own commitment), selecting which witness
// HtlcTimeoutWitness/HtlcDirectTimeoutWitness to complete it with.
type PendingHtlcResolution struct {
	Tx            *wire.MsgTx
	WitnessScript []byte
	RemoteSig     []byte
	AbsoluteBlock uint32
	TxType        TxType
}

// Resolution records how a tracked output actually ended up resolved.
type Resolution struct {
	SpendingTxid chainhash.Hash
	Depth        uint32
	TxType       TxType
}

// IrrevocablyResolved reports whether this resolution has reached the
// BOLT #5 depth of 100 confirmations.
func (r *Resolution) IrrevocablyResolved() bool {
	return r.Depth >= 100
}

// TrackedOutput is a single on-chain output the daemon must drive to an
// irrevocably resolved state. Once appended to a Registry it is never
// mutated except through the Registry's own methods, and its address is
// stable for the daemon's lifetime (the registry never reallocates existing
// entries).
type TrackedOutput struct {
	Txid          chainhash.Hash
	Outnum        uint32
	TxBlockheight uint32
	Satoshi       btcutil.Amount

	TxType     TxType
	OutputType OutputType

	Proposal *Proposal
	Resolved *Resolution

	// pending is set while this output's resolution is waiting on a
	// signature from the master process, and cleared once
	// CompletePendingHtlcResolution turns it into a real Proposal.
	pending *PendingHtlcResolution
}

// Handle is a stable reference into a Registry.
type Handle int

// Registry is the append-only collection of on-chain outputs of interest.
// Entry 0 is always the funding output.
type Registry struct {
	outs []*TrackedOutput
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Track appends a new tracked output and returns a stable handle to it.
func (r *Registry) Track(txid chainhash.Hash, blockheight uint32, txType TxType,
	outnum uint32, value btcutil.Amount, outputType OutputType) Handle {

	out := &TrackedOutput{
		Txid:          txid,
		Outnum:        outnum,
		TxBlockheight: blockheight,
		TxType:        txType,
		OutputType:    outputType,
		Satoshi:       value,
	}

	log.Debugf("Tracking output %d of %v: %v/%v", outnum, txid, txType,
		outputType)

	r.outs = append(r.outs, out)
	return Handle(len(r.outs) - 1)
}

// Get returns the tracked output behind a handle.
func (r *Registry) Get(h Handle) *TrackedOutput {
	return r.outs[h]
}

// All returns every tracked output, in registry order. Callers must not
// mutate the returned slice's backing entries outside this package.
func (r *Registry) All() []*TrackedOutput {
	return r.outs
}

// Propose attaches a proposal to a tracked output, overwriting any prior
// proposal. Per the daemon's invariants this is only ever called once per
// output, by the deconstructors.
func (r *Registry) Propose(h Handle, tx *wire.MsgTx, depthRequired uint32, txType TxType) {
	out := r.outs[h]

	log.Debugf("Propose handling %v/%v by %v (tx=%v) in %d blocks",
		out.TxType, out.OutputType, txType, tx != nil, depthRequired)

	out.Proposal = &Proposal{
		Tx:            tx,
		DepthRequired: depthRequired,
		TxType:        txType,
	}
}

// ProposeAtBlock is Propose with the depth requirement computed from an
// absolute block height rather than a confirmation count. Expiry could be in
// the past (e.g. we're recovering after the daemon missed some blocks), in
// which case the depth required is zero.
func (r *Registry) ProposeAtBlock(h Handle, tx *wire.MsgTx, absoluteBlock uint32, txType TxType) {
	out := r.outs[h]

	var depth uint32
	if absoluteBlock > out.TxBlockheight {
		depth = absoluteBlock - out.TxBlockheight
	}

	r.Propose(h, tx, depth, txType)
}

// SetPendingHtlcResolution records a chosen but unsigned HTLC resolution for
// a tracked output, to be completed once the corresponding local signature
// arrives from the master process.
func (r *Registry) SetPendingHtlcResolution(h Handle, p *PendingHtlcResolution) {
	r.outs[h].pending = p
}

// CompletePendingHtlcResolution finishes the pending HTLC resolution for the
// tracked output at outnum using a freshly supplied local signature, and
// installs the result as that output's proposal. It reports false if no
// output has a pending resolution at that output index.
func (r *Registry) CompletePendingHtlcResolution(outnum uint32, localSig []byte) (Handle, bool) {
	for i, out := range r.outs {
		if out.pending == nil || out.Outnum != outnum {
			continue
		}

		p := out.pending
		if p.RemoteSig != nil {
			p.Tx.TxIn[0].Witness = HtlcTimeoutWitness(p.RemoteSig, localSig, p.WitnessScript)
		} else {
			p.Tx.TxIn[0].Witness = HtlcDirectTimeoutWitness(localSig, p.WitnessScript)
		}

		h := Handle(i)
		r.ProposeAtBlock(h, p.Tx, p.AbsoluteBlock, p.TxType)
		out.pending = nil
		return h, true
	}

	return 0, false
}

// Ignore resolves a tracked output with no broadcast, immediately and at
// depth zero. It is used for outputs that are already spendable/settled by
// virtue of the transaction that created them (BOLT #5's "no action
// required" outputs).
func (r *Registry) Ignore(h Handle) {
	out := r.outs[h]

	log.Debugf("Ignoring output %d of %v: %v/%v", out.Outnum, out.Txid,
		out.TxType, out.OutputType)

	out.Resolved = &Resolution{
		SpendingTxid: out.Txid,
		Depth:        0,
		TxType:       SelfTxType,
	}
}

// ResolvedByProposal checks whether a notified spending txid matches this
// output's own proposal, and if so installs the resolution. It returns false
// (without mutating anything) if there is no proposed transaction, or if the
// proposed transaction's txid does not match.
func (r *Registry) ResolvedByProposal(h Handle, spendingTxid chainhash.Hash) bool {
	out := r.outs[h]

	if out.Proposal == nil || out.Proposal.Tx == nil {
		return false
	}

	proposedTxid := out.Proposal.Tx.TxHash()
	if proposedTxid != spendingTxid {
		return false
	}

	log.Debugf("Resolved %v/%v by our proposal %v", out.TxType,
		out.OutputType, out.Proposal.TxType)

	out.Resolved = &Resolution{
		SpendingTxid: proposedTxid,
		Depth:        0,
		TxType:       out.Proposal.TxType,
	}
	return true
}

// ResolvedByOther installs a resolution whose spending transaction did not
// come from our own proposal engine (e.g. the funding output being resolved
// by the commitment/closing tx itself).
func (r *Registry) ResolvedByOther(h Handle, spendingTxid chainhash.Hash, txType TxType) {
	out := r.outs[h]

	log.Debugf("Resolved %v/%v by %v (%v)", out.TxType, out.OutputType,
		txType, spendingTxid)

	out.Resolved = &Resolution{
		SpendingTxid: spendingTxid,
		Depth:        0,
		TxType:       txType,
	}
}

// UnknownSpend resolves a tracked output whose spend we cannot account for
// (e.g. a concurrent wallet spend of a to-us output). This is not treated as
// fatal, only logged loudly, per the source's FIXME.
func (r *Registry) UnknownSpend(h Handle, tx *wire.MsgTx) {
	out := r.outs[h]

	txid := tx.TxHash()

	log.Warnf("Unknown spend of %v/%v by %v", out.TxType, out.OutputType, txid)

	out.Resolved = &Resolution{
		SpendingTxid: txid,
		Depth:        0,
		TxType:       UnknownTxType,
	}
}

// UpdateDepth applies a new confirmation depth to every tracked output whose
// resolving transaction is txid. Depths may regress during a reorg; the
// daemon accepts this without losing track of anything.
func (r *Registry) UpdateDepth(txid chainhash.Hash, depth uint32) {
	for _, out := range r.outs {
		if out.Resolved != nil && out.Resolved.SpendingTxid == txid {
			log.Tracef("%v depth %d", out.Resolved.TxType, depth)
			out.Resolved.Depth = depth
		}
	}
}

// DueProposals returns every tracked output whose creating transaction is
// txid, is still unresolved, carries a broadcastable proposal (one with a
// transaction to send, as opposed to a bare Ignore), has not yet been handed
// out by a previous call, and has now reached its required depth. The
// caller is expected to ask the master process to broadcast each returned
// transaction.
func (r *Registry) DueProposals(txid chainhash.Hash, depth uint32) []Handle {
	var due []Handle

	for i, out := range r.outs {
		if out.Resolved != nil || out.Proposal == nil || out.Proposal.Tx == nil {
			continue
		}
		if out.Txid != txid || out.Proposal.Broadcast {
			continue
		}
		if depth < out.Proposal.DepthRequired {
			continue
		}

		out.Proposal.Broadcast = true
		due = append(due, Handle(i))
	}

	return due
}

// DueIgnores returns every tracked output whose creating transaction is
// txid, is still unresolved, and carries a bare "resolve by ignoring"
// proposal (Tx is nil, e.g. an HTLC we cannot act on until it times out)
// that has now reached its required depth. Unlike DueProposals this does not
// hand the output back for a broadcast: the caller is expected to resolve it
// immediately by calling Ignore.
func (r *Registry) DueIgnores(txid chainhash.Hash, depth uint32) []Handle {
	var due []Handle

	for i, out := range r.outs {
		if out.Resolved != nil || out.Proposal == nil || out.Proposal.Tx != nil {
			continue
		}
		if out.Txid != txid || out.Proposal.Broadcast {
			continue
		}
		if depth < out.Proposal.DepthRequired {
			continue
		}

		out.Proposal.Broadcast = true
		due = append(due, Handle(i))
	}

	return due
}

// AllIrrevocablyResolved reports whether every tracked output has a
// resolution with at least 100 confirmations.
func (r *Registry) AllIrrevocablyResolved() bool {
	for _, out := range r.outs {
		if out.Resolved == nil || !out.Resolved.IrrevocablyResolved() {
			return false
		}
	}
	return true
}

// FundingOutput returns the registry's entry 0, which is always the funding
// output by construction.
func (r *Registry) FundingOutput() *TrackedOutput {
	return r.outs[0]
}

// FundingHandle returns the handle for the registry's entry 0.
func (r *Registry) FundingHandle() Handle {
	return Handle(0)
}
