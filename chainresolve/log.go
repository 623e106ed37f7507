package chainresolve

import "github.com/btcsuite/btclog"

// log is the package-level logger for chainresolve. It is a no-op until the
// daemon's bootstrap code calls UseLogger with a configured backend.
var log = btclog.Disabled

// UseLogger installs a logger for the chainresolve package, replacing the
// disabled default.
func UseLogger(logger btclog.Logger) {
	log = logger
}
