package main

import (
	"context"
	"fmt"

	"github.com/aeternity/aepp-statechannels-go/channel"
	"github.com/aeternity/aepp-statechannels-go/types"
	"github.com/urfave/cli"
)

var updateCommand = cli.Command{
	Name:      "update",
	Usage:     "submit an off-chain transfer",
	ArgsUsage: "from to amount",
	Action: func(c *cli.Context) error {
		if err := requireChannel(); err != nil {
			return err
		}
		if c.NArg() != 3 {
			return fmt.Errorf("usage: update from to amount")
		}
		amount, err := types.ParseAmount(c.Args().Get(2))
		if err != nil {
			return err
		}
		outcome, err := ch.Update(context.Background(), types.Address(c.Args().Get(0)), types.Address(c.Args().Get(1)), amount)
		printOutcome(outcome, err)
		return nil
	},
}

var depositCommand = cli.Command{
	Name:      "deposit",
	Usage:     "deposit funds into the channel",
	ArgsUsage: "from amount",
	Action: func(c *cli.Context) error {
		if err := requireChannel(); err != nil {
			return err
		}
		if c.NArg() != 2 {
			return fmt.Errorf("usage: deposit from amount")
		}
		amount, err := types.ParseAmount(c.Args().Get(1))
		if err != nil {
			return err
		}
		cb := channel.OnChainCallbacks{
			OnOnChainTx: func(tx []byte) { fmt.Printf("on-chain tx posted: %s\n", tx) },
		}
		outcome, err := ch.Deposit(context.Background(), types.Address(c.Args().Get(0)), amount, cb)
		printOutcome(outcome, err)
		return nil
	},
}

var withdrawCommand = cli.Command{
	Name:      "withdraw",
	Usage:     "withdraw funds from the channel",
	ArgsUsage: "to amount",
	Action: func(c *cli.Context) error {
		if err := requireChannel(); err != nil {
			return err
		}
		if c.NArg() != 2 {
			return fmt.Errorf("usage: withdraw to amount")
		}
		amount, err := types.ParseAmount(c.Args().Get(1))
		if err != nil {
			return err
		}
		cb := channel.OnChainCallbacks{
			OnOnChainTx: func(tx []byte) { fmt.Printf("on-chain tx posted: %s\n", tx) },
		}
		outcome, err := ch.Withdraw(context.Background(), types.Address(c.Args().Get(0)), amount, cb)
		printOutcome(outcome, err)
		return nil
	},
}

var createContractCommand = cli.Command{
	Name:      "create-contract",
	Usage:     "deploy a contract off-chain",
	ArgsUsage: "owner code deposit",
	Action: func(c *cli.Context) error {
		if err := requireChannel(); err != nil {
			return err
		}
		if c.NArg() != 3 {
			return fmt.Errorf("usage: create-contract owner code deposit")
		}
		deposit, err := types.ParseAmount(c.Args().Get(2))
		if err != nil {
			return err
		}
		outcome, err := ch.CreateContract(context.Background(), channel.NewContractParams{
			Owner:   types.Address(c.Args().Get(0)),
			Code:    []byte(c.Args().Get(1)),
			Deposit: deposit,
		})
		printOutcome(outcome, err)
		if err == nil && outcome.Accepted {
			fmt.Printf("contract address: %s\n", outcome.Address)
		}
		return nil
	},
}

var callContractCommand = cli.Command{
	Name:      "call-contract",
	Usage:     "call a deployed contract off-chain",
	ArgsUsage: "caller contract calldata amount",
	Action: func(c *cli.Context) error {
		if err := requireChannel(); err != nil {
			return err
		}
		if c.NArg() != 4 {
			return fmt.Errorf("usage: call-contract caller contract calldata amount")
		}
		amount, err := types.ParseAmount(c.Args().Get(3))
		if err != nil {
			return err
		}
		outcome, err := ch.CallContract(context.Background(), channel.CallContractParams{
			Caller:   types.Address(c.Args().Get(0)),
			Contract: types.Address(c.Args().Get(1)),
			CallData: []byte(c.Args().Get(2)),
			Amount:   amount,
		})
		printOutcome(outcome, err)
		return nil
	},
}

var balancesCommand = cli.Command{
	Name:      "balances",
	Usage:     "fetch encoded balances for the given accounts",
	ArgsUsage: "account [account...]",
	Action: func(c *cli.Context) error {
		if err := requireChannel(); err != nil {
			return err
		}
		addrs := make([]types.Address, c.NArg())
		for i, a := range c.Args() {
			addrs[i] = types.Address(a)
		}
		out, err := ch.Balances(context.Background(), addrs)
		if err != nil {
			return err
		}
		for addr, blob := range out {
			fmt.Printf("%s: %s\n", addr, blob)
		}
		return nil
	},
}

var poiCommand = cli.Command{
	Name:  "poi",
	Usage: "fetch a proof of inclusion for the given accounts",
	Action: func(c *cli.Context) error {
		if err := requireChannel(); err != nil {
			return err
		}
		addrs := make([]types.Address, c.NArg())
		for i, a := range c.Args() {
			addrs[i] = types.Address(a)
		}
		poi, err := ch.POI(context.Background(), addrs, nil)
		if err != nil {
			return err
		}
		fmt.Printf("poi: %s\n", poi)
		return nil
	},
}

var shutdownCommand = cli.Command{
	Name:  "shutdown",
	Usage: "cooperatively close the channel",
	Action: func(c *cli.Context) error {
		if err := requireChannel(); err != nil {
			return err
		}
		outcome, err := ch.Shutdown(context.Background())
		printOutcome(outcome, err)
		return nil
	},
}

var leaveCommand = cli.Command{
	Name:  "leave",
	Usage: "leave the session, preserving the channel for a later reconnect",
	Action: func(c *cli.Context) error {
		if err := requireChannel(); err != nil {
			return err
		}
		outcome, err := ch.Leave(context.Background())
		printOutcome(outcome, err)
		if err == nil {
			fmt.Printf("fsmId: %s channelId: %s\n", ch.FsmID(), ch.ChannelID())
		}
		return nil
	},
}

var sendMessageCommand = cli.Command{
	Name:      "send-message",
	Usage:     "send an opaque chat message to the counterparty",
	ArgsUsage: "to message",
	Action: func(c *cli.Context) error {
		if err := requireChannel(); err != nil {
			return err
		}
		if c.NArg() != 2 {
			return fmt.Errorf("usage: send-message to message")
		}
		return ch.SendMessage(types.Address(c.Args().Get(0)), c.Args().Get(1))
	},
}

func printOutcome(o channel.Outcome, err error) {
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	if !o.Accepted {
		if o.ErrorCode != nil {
			fmt.Printf("rejected: code=%d message=%s\n", *o.ErrorCode, o.ErrorMessage)
		} else {
			fmt.Println("rejected")
		}
		return
	}
	fmt.Printf("accepted: signedTx=%s\n", o.SignedTx)
}
