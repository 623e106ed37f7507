package shachain

import "github.com/btcsuite/btclog"

var log = btclog.Disabled

// UseLogger installs a logger for the shachain package.
func UseLogger(logger btclog.Logger) {
	log = logger
}
