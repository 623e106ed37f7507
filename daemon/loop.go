package daemon

import (
	"io"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/lightningnetwork/onchaind/chainresolve"
	"github.com/lightningnetwork/onchaind/onchainwire"
	"github.com/lightningnetwork/onchaind/status"
)

// Run drives the daemon's synchronous event loop: it blocks reading one
// message at a time from the master process, fully handling each before
// reading the next. There is no internal concurrency; work onchaind cannot
// do itself (broadcasts) goes back out over the same pipe as a request to the
// master process, and missing HTLC signatures arrive from the master as Htlc
// messages.
func Run(ctx *Ctx) {
	initMsg := mustReadInit(ctx)
	classifyAndInit(ctx, initMsg)

	for {
		msg, err := onchainwire.ReadMessage(ctx.R)
		if err == io.EOF {
			return
		}
		if err != nil {
			status.Fail(status.BadCommand, "reading message: %v", err)
		}

		switch m := msg.(type) {
		case *onchainwire.Depth:
			handleDepth(ctx, m)
		case *onchainwire.Spent:
			handleSpent(ctx, m)
		case *onchainwire.Htlc:
			handleHtlc(ctx, m)
		case *onchainwire.KnownPreimage:
			handleKnownPreimage(ctx, m)
		default:
			status.Fail(status.BadCommand, "unexpected message type %v outside init", msg.MsgType())
		}

		if ctx.Registry.AllIrrevocablyResolved() {
			send(ctx, &onchainwire.AllIrrevocablyResolved{})
			return
		}
	}
}

func mustReadInit(ctx *Ctx) *onchainwire.Init {
	msg, err := onchainwire.ReadMessage(ctx.R)
	if err != nil {
		status.Fail(status.BadCommand, "reading init message: %v", err)
	}

	init, ok := msg.(*onchainwire.Init)
	if !ok {
		status.Fail(status.BadCommand, "expected init message, got %v", msg.MsgType())
	}

	return init
}

func send(ctx *Ctx, msg onchainwire.Message) {
	if _, err := onchainwire.WriteMessage(ctx.W, msg); err != nil {
		status.Fail(status.InternalError, "writing %v message: %v", msg.MsgType(), err)
	}
}

func classifyAndInit(ctx *Ctx, init *onchainwire.Init) {
	ctx.Funder = chainresolve.Side(init.Funder)
	ctx.OurBroadcastTxid = init.OurBroadcastTxid
	ctx.Init = init

	ctx.Registry.Track(init.FundingTxid, 0, chainresolve.FundingTransaction,
		init.FundingTxout, 0, chainresolve.FundingOutput)

	for _, rs := range init.RevocationSecrets {
		if err := ctx.Store.AddNextSecret(rs.Index, rs.Secret); err != nil {
			status.Fail(status.CryptoFailed,
				"revocation secret for index %d inconsistent with prior state: %v",
				rs.Index, err)
		}
	}

	log.Infof("onchaind initialized for funding outpoint %v:%d, %d revocation secrets known",
		init.FundingTxid, init.FundingTxout, len(init.RevocationSecrets))

	// The actual closing transaction and its classification arrive via
	// the first Spent notification on the funding output, handled by
	// handleSpent below; Init alone only establishes channel parameters.
}

// htlcStubs converts the wire HTLC descriptions from Init into the stubs
// chainresolve needs to recognize commitment outputs.
func htlcStubs(descs []onchainwire.HtlcDesc) []chainresolve.HtlcStub {
	stubs := make([]chainresolve.HtlcStub, len(descs))
	for i, d := range descs {
		stubs[i] = chainresolve.HtlcStub{
			Owner:      chainresolve.Side(d.Owner),
			CltvExpiry: d.CltvExpiry,
			Ripemd:     d.Ripemd,
			RemoteSig:  d.RemoteSig,
		}
	}
	return stubs
}

func handleDepth(ctx *Ctx, m *onchainwire.Depth) {
	ctx.Registry.UpdateDepth(m.Txid, m.Depth)

	for _, h := range ctx.Registry.DueProposals(m.Txid, m.Depth) {
		out := ctx.Registry.Get(h)
		send(ctx, &onchainwire.BroadcastTx{
			Tx:    out.Proposal.Tx,
			Label: out.Proposal.TxType.String(),
		})
	}

	for _, h := range ctx.Registry.DueIgnores(m.Txid, m.Depth) {
		ctx.Registry.Ignore(h)
	}
}

func handleSpent(ctx *Ctx, m *onchainwire.Spent) {
	fundingHandle := ctx.Registry.FundingHandle()
	fundingOut := ctx.Registry.Get(fundingHandle)

	if fundingOut.Resolved == nil && m.Txid == fundingOut.Txid && m.Outnum == fundingOut.Outnum {
		resolveClosingTransaction(ctx, m)
		return
	}

	for i, out := range ctx.Registry.All() {
		if out.Resolved != nil {
			continue
		}
		if out.Txid != m.Txid || out.Outnum != m.Outnum {
			continue
		}

		h := chainresolve.Handle(i)

		switch out.OutputType {
		case chainresolve.FundingOutput, chainresolve.OutputToThem, chainresolve.DelayedOutputToThem:
			// These outputs are never ours to spend, and are already
			// resolved the moment they are tracked: a spend notification
			// for one here means either a protocol violation or a bug
			// in our own output classification.
			status.Fail(status.InternalError,
				"unexpected spend of %v output %d of %v by %v",
				out.OutputType, out.Outnum, out.Txid, m.SpendingTx.TxHash())

		case chainresolve.TheirHtlc:
			// An HTLC the counterparty offered is not ours to act on;
			// however it is spent, it is no longer our concern.
			ctx.Registry.Ignore(h)

		default:
			if !ctx.Registry.ResolvedByProposal(h, m.SpendingTx.TxHash()) {
				ctx.Registry.UnknownSpend(h, m.SpendingTx)
			}
		}

		return
	}

	// No tracked output matches this spend at all; tell the master process
	// to stop watching the transaction entirely.
	send(ctx, &onchainwire.UnwatchTx{Txid: m.Txid})
}

func resolveClosingTransaction(ctx *Ctx, m *onchainwire.Spent) {
	tx := m.SpendingTx
	init := ctx.Init

	localSettle, err := chainresolve.CommitScriptUnencumbered(init.LocalPaymentBasepoint)
	if err != nil {
		status.Fail(status.CryptoFailed, "building local settlement script: %v", err)
	}
	remoteSettle, err := chainresolve.CommitScriptUnencumbered(init.RemotePaymentBasepoint)
	if err != nil {
		status.Fail(status.CryptoFailed, "building remote settlement script: %v", err)
	}

	if chainresolve.IsMutualClose(tx, localSettle, remoteSettle) {
		ctx.Registry.ResolvedByOther(ctx.Registry.FundingHandle(), tx.TxHash(),
			chainresolve.MutualClose)
		chainresolve.HandleMutualClose(ctx.Registry, m.Blockheight, tx)
		send(ctx, &onchainwire.InitReply{State: onchainwire.StateMutual})
		return
	}

	funderPaymentBasepoint, fundeePaymentBasepoint := init.RemotePaymentBasepoint, init.LocalPaymentBasepoint
	if ctx.Funder == chainresolve.Local {
		funderPaymentBasepoint, fundeePaymentBasepoint = init.LocalPaymentBasepoint, init.RemotePaymentBasepoint
	}
	commitNum := chainresolve.UnmaskCommitNumber(tx, ctx.Funder,
		funderPaymentBasepoint, fundeePaymentBasepoint)

	txid := tx.TxHash()
	class, ok := chainresolve.ClassifyUnilateral(commitNum, ctx.OurBroadcastTxid, txid, ctx.Store)
	if !ok {
		status.Fail(status.InternalError,
			"closing transaction %v matches neither a mutual close nor any recognized unilateral close", txid)
	}

	fundingCloseType := chainresolve.TheirUnilateral
	if class == chainresolve.ClassOurUnilateral {
		fundingCloseType = chainresolve.OurUnilateral
	}
	ctx.Registry.ResolvedByOther(ctx.Registry.FundingHandle(), txid, fundingCloseType)

	commitOutputs := make([]btcutil.Amount, len(tx.TxOut))
	for i, out := range tx.TxOut {
		commitOutputs[i] = btcutil.Amount(out.Value)
	}
	ctx.FeerateRange = chainresolve.InitFeerateRange(
		btcutil.Amount(init.FundingSatoshi), commitOutputs)

	switch class {
	case chainresolve.ClassOurUnilateral:
		keys := chainresolve.DeriveKeySet(init.OurPerCommitmentPoint,
			init.RemoteRevocationBasepoint, init.LocalDelayedPaymentBasepoint,
			init.LocalHtlcBasepoint, init.RemoteHtlcBasepoint, init.RemotePaymentBasepoint)

		delayedBasepointSecret, _ := btcec.PrivKeyFromBytes(init.LocalDelayedPaymentBasepointSecret[:])
		localDelayedPrivkey := chainresolve.DerivePrivkey(delayedBasepointSecret, init.OurPerCommitmentPoint)

		if err := chainresolve.HandleOurUnilateral(ctx.Registry, m.Blockheight, chainresolve.OurCommitmentInfo{
			Tx:                  tx,
			ToSelfDelay:         init.LocalToSelfDelay,
			Keys:                keys,
			Htlcs:               htlcStubs(init.Htlcs),
			OurSweepScript:      init.DestScript,
			FeerateRange:        ctx.FeerateRange,
			LocalDelayedPrivkey: localDelayedPrivkey,
		}); err != nil {
			status.Fail(status.CryptoFailed, "handling our unilateral close: %v", err)
		}

		send(ctx, &onchainwire.InitReply{State: onchainwire.StateOurUnilateral})

	case chainresolve.ClassTheirUnilateralCurrent, chainresolve.ClassTheirUnilateralPrevious:
		// The daemon only retains the counterparty's latest revealed
		// per-commitment point; it cannot distinguish their previous
		// unrevoked commitment from their current one without storing
		// a history of their points, so both are handled identically.
		keys := chainresolve.DeriveKeySet(init.RemotePerCommitmentPoint,
			init.LocalRevocationBasepoint, init.RemoteDelayedPaymentBasepoint,
			init.RemoteHtlcBasepoint, init.LocalHtlcBasepoint, init.LocalPaymentBasepoint)

		if err := chainresolve.HandleTheirUnilateral(ctx.Registry, m.Blockheight, chainresolve.TheirCommitmentInfo{
			Tx:             tx,
			ToSelfDelay:    init.RemoteToSelfDelay,
			Keys:           keys,
			Htlcs:          htlcStubs(init.Htlcs),
			OurSweepScript: init.DestScript,
			FeerateRange:   ctx.FeerateRange,
		}); err != nil {
			status.Fail(status.CryptoFailed, "handling their unilateral close: %v", err)
		}

		send(ctx, &onchainwire.InitReply{State: onchainwire.StateTheirUnilateral})

	case chainresolve.ClassTheirCheat:
		send(ctx, &onchainwire.InitReply{State: onchainwire.StateCheated})
		status.Fail(status.InternalError,
			"FIXME: penalty transactions not implemented (revoked commitment %v, commit number %d)",
			txid, commitNum)
	}
}

func handleHtlc(ctx *Ctx, m *onchainwire.Htlc) {
	if _, ok := ctx.Registry.CompletePendingHtlcResolution(m.Outnum, m.Signature); !ok {
		log.Warnf("received htlc signature for output %d with no pending resolution", m.Outnum)
		return
	}

	log.Debugf("completed htlc resolution for output %d", m.Outnum)
}

func handleKnownPreimage(ctx *Ctx, m *onchainwire.KnownPreimage) {
	log.Debugf("learned preimage for payment hash %x", m.PaymentHash)
}
