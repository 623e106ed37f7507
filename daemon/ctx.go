package daemon

import (
	"io"

	"github.com/lightningnetwork/onchaind/chainresolve"
	"github.com/lightningnetwork/onchaind/onchainwire"
	"github.com/lightningnetwork/onchaind/shachain"
)

// Ctx is the daemon's runtime state: one onchaind process handles exactly
// one closing channel for its entire lifetime, so unlike the master process
// there is no need for a registry of multiple channels here.
type Ctx struct {
	// R and W are the two halves of the pipe connecting this process to
	// its master; in production both are the same fd (0) duplicated, in
	// tests they are in-memory pipes.
	R io.Reader
	W io.Writer

	Registry *chainresolve.Registry
	Store    *shachain.Receiver

	// FeerateRange is set once from the closing transaction's fee when it
	// is classified. Nothing narrows it afterwards: confirmed
	// HTLC-timeout/success fees are not fed back into it.
	FeerateRange chainresolve.FeerateRange

	// OurBroadcastTxid is the txid of the commitment transaction this
	// node itself last broadcast, if any; it is empty until Init names
	// one.
	OurBroadcastTxid [32]byte

	// Funder records which side opened the channel, needed to unmask
	// commitment numbers.
	Funder chainresolve.Side

	// Init is the full init message the master process sent at startup,
	// kept around so the closing-transaction handler can rederive keys
	// and HTLC sets for whichever commitment actually confirms.
	Init *onchainwire.Init
}

// NewCtx returns a Ctx wired to the given pipe halves, with an empty
// registry and revocation store ready for an Init message.
func NewCtx(r io.Reader, w io.Writer) *Ctx {
	return &Ctx{
		R:        r,
		W:        w,
		Registry: chainresolve.NewRegistry(),
		Store:    shachain.NewReceiver(),
	}
}
