// Package clog centralizes the btclog backend every subsystem in this
// module logs through, the same way lnd's daemon package wires one
// backend into each of its subsystems' UseLogger hooks.
package clog

import (
	"io"
	"os"

	"github.com/aeternity/aepp-statechannels-go/channel"
	"github.com/aeternity/aepp-statechannels-go/rpcsession"
	"github.com/btcsuite/btclog"
)

var (
	logWriter io.Writer = os.Stdout

	backendLog = btclog.NewBackend(logWriter)

	channelLog    = backendLog.Logger("CHAN")
	rpcsessionLog = backendLog.Logger("RPCS")
)

func init() {
	channel.UseLogger(channelLog)
	rpcsession.UseLogger(rpcsessionLog)
}

// SetOutput redirects every subsystem logger to w. Call it before any
// channel is initialized: the subsystem loggers are plain package
// variables, replaced here without any synchronization.
func SetOutput(w io.Writer) {
	backendLog = btclog.NewBackend(w)
	channelLog = backendLog.Logger("CHAN")
	rpcsessionLog = backendLog.Logger("RPCS")
	channel.UseLogger(channelLog)
	rpcsession.UseLogger(rpcsessionLog)
}

// SetLevel sets the logging level for every subsystem at once.
func SetLevel(levelStr string) {
	level, _ := btclog.LevelFromString(levelStr)
	channelLog.SetLevel(level)
	rpcsessionLog.SetLevel(level)
}
