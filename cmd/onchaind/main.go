package main

import (
	"fmt"
	"os"

	"github.com/btcsuite/btclog"
	flags "github.com/jessevdk/go-flags"
	"github.com/lightningnetwork/onchaind/chainresolve"
	"github.com/lightningnetwork/onchaind/daemon"
	"github.com/lightningnetwork/onchaind/shachain"
	"github.com/lightningnetwork/onchaind/status"
)

// buildVersion is stamped at release time; left as a placeholder here since
// this tree has no release tooling.
const buildVersion = "0.1.0"

type config struct {
	Version bool `long:"version" description:"Display version information and exit"`
}

func main() {
	var cfg config
	parser := flags.NewParser(&cfg, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if e, ok := err.(*flags.Error); ok && e.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	if cfg.Version {
		fmt.Printf("onchaind version %s\n", buildVersion)
		os.Exit(0)
	}

	setupLogging()

	// The master process speaks to onchaind over fd 0, duplexed as both
	// the read and write end of a single pipe; there is no separate
	// control channel.
	ctx := daemon.NewCtx(os.Stdin, os.Stdout)

	daemon.Run(ctx)
}

func setupLogging() {
	backend := btclog.NewBackend(os.Stderr)

	logger := backend.Logger("ONCH")
	logger.SetLevel(btclog.LevelInfo)
	daemon.UseLogger(logger)

	chainresolve.UseLogger(backend.Logger("CHRS"))
	shachain.UseLogger(backend.Logger("SHCN"))
	status.UseLogger(backend.Logger("STAT"))
}
