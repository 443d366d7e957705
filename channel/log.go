package channel

import "github.com/btcsuite/btclog"

// log is the channel package's subsystem logger, following the same
// convention every lnd subsystem uses: a disabled logger until the
// embedding application wires one in with UseLogger.
var log = btclog.Disabled

// UseLogger sets the subsystem logger used by package channel.
func UseLogger(logger btclog.Logger) {
	log = logger
}
