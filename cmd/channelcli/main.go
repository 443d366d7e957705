// Command channelcli is an operator tool for driving a single state
// channel session from a terminal, in the spirit of lncli: one
// subcommand per action-surface operation, talking to a channel node
// over the same websocket/JSON-RPC transport the library itself uses.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/aeternity/aepp-statechannels-go/channel"
	"github.com/aeternity/aepp-statechannels-go/clog"
	"github.com/aeternity/aepp-statechannels-go/events"
	"github.com/aeternity/aepp-statechannels-go/rpcsession"
	"github.com/aeternity/aepp-statechannels-go/types"
	"github.com/urfave/cli"
)

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "[channelcli] %v\n", err)
	os.Exit(1)
}

var ch *channel.Channel

func connect(c *cli.Context) error {
	role := channel.Responder
	if c.GlobalString("role") == "initiator" {
		role = channel.Initiator
	}

	params := channel.InitParams{
		URL:             c.GlobalString("url"),
		InitiatorID:     types.Address(c.GlobalString("initiator-id")),
		ResponderID:     types.Address(c.GlobalString("responder-id")),
		InitiatorAmount: mustAmount(c.GlobalString("initiator-amount")),
		ResponderAmount: mustAmount(c.GlobalString("responder-amount")),
		PushAmount:      mustAmount(c.GlobalString("push-amount")),
		ChannelReserve:  mustAmount(c.GlobalString("channel-reserve")),
		LockPeriod:      uint64(c.GlobalInt("lock-period")),
		TTL:             c.GlobalDuration("ttl"),
	}

	if existing := c.GlobalString("existing-fsm-id"); existing != "" {
		params.ExistingFsmID = existing
		params.ExistingChannelID = c.GlobalString("existing-channel-id")
	}

	transport := rpcsession.NewWSTransport(params.URL, params.Host, params.Port)

	ch = channel.New(params, role, transport, newStdinSigner(),
		channel.WithMetrics("channelcli"))

	ch.On(events.StatusChanged, func(p interface{}) {
		fmt.Printf("status changed: %v\n", p)
	})

	return ch.Initialize(context.Background())
}

func mustAmount(s string) *types.Amount {
	if s == "" {
		return types.AmountFromUint64(0)
	}
	a, err := types.ParseAmount(s)
	if err != nil {
		fatal(err)
	}
	return a
}

func requireChannel() error {
	if ch == nil {
		return fmt.Errorf("not connected: run with a subcommand after the global flags establish a session")
	}
	return nil
}

func main() {
	clog.SetLevel("info")

	app := cli.NewApp()
	app.Name = "channelcli"
	app.Usage = "operator control plane for a single æternity state channel session"
	app.Flags = []cli.Flag{
		cli.StringFlag{Name: "url", Usage: "websocket URL of the channel-FSM node"},
		cli.StringFlag{Name: "role", Value: "initiator", Usage: "initiator or responder"},
		cli.StringFlag{Name: "initiator-id"},
		cli.StringFlag{Name: "responder-id"},
		cli.StringFlag{Name: "initiator-amount"},
		cli.StringFlag{Name: "responder-amount"},
		cli.StringFlag{Name: "push-amount"},
		cli.StringFlag{Name: "channel-reserve"},
		cli.IntFlag{Name: "lock-period", Value: 10},
		cli.DurationFlag{Name: "ttl", Value: 30 * time.Second},
		cli.StringFlag{Name: "existing-fsm-id"},
		cli.StringFlag{Name: "existing-channel-id"},
	}
	app.Before = connect
	app.Commands = []cli.Command{
		updateCommand,
		depositCommand,
		withdrawCommand,
		createContractCommand,
		callContractCommand,
		balancesCommand,
		poiCommand,
		shutdownCommand,
		leaveCommand,
		sendMessageCommand,
	}

	if err := app.Run(os.Args); err != nil {
		fatal(err)
	}
}
