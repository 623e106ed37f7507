package daemon

import "github.com/btcsuite/btclog"

var log = btclog.Disabled

// UseLogger installs a logger for the daemon package.
func UseLogger(logger btclog.Logger) {
	log = logger
}
