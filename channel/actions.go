package channel

import (
	"context"

	"github.com/aeternity/aepp-statechannels-go/rpcsession"
	"github.com/aeternity/aepp-statechannels-go/signer"
	"github.com/aeternity/aepp-statechannels-go/types"
)

// Update submits an off-chain transfer from from to to (§4.5 `update`).
func (c *Channel) Update(ctx context.Context, from, to types.Address, amount *types.Amount) (Outcome, error) {
	if amount == nil || amount.Sign() < 0 {
		return Outcome{}, illegalArgument("amount must be a non-negative integer")
	}
	if err := types.Check(from); err != nil {
		return Outcome{}, illegalArgument("%v", err)
	}
	if err := types.Check(to); err != nil {
		return Outcome{}, illegalArgument("%v", err)
	}

	params := TransferParams{From: from, To: to, Amount: amount}
	a := newPendingAction(actionTransfer, params, OnChainCallbacks{})

	return c.submit(ctx, a)
}

// Deposit submits an on-chain-settled deposit from from (§4.5 `deposit`).
func (c *Channel) Deposit(ctx context.Context, from types.Address, amount *types.Amount, cb OnChainCallbacks) (Outcome, error) {
	if amount == nil || amount.Sign() <= 0 {
		return Outcome{}, illegalArgument("deposit amount must be positive")
	}
	if err := types.Check(from); err != nil {
		return Outcome{}, illegalArgument("%v", err)
	}

	params := DepositParams{From: from, Amount: amount}
	a := newPendingAction(actionDeposit, params, cb)

	return c.submit(ctx, a)
}

// Withdraw submits an on-chain-settled withdrawal to to (§4.5
// `withdraw`).
func (c *Channel) Withdraw(ctx context.Context, to types.Address, amount *types.Amount, cb OnChainCallbacks) (Outcome, error) {
	if amount == nil || amount.Sign() <= 0 {
		return Outcome{}, illegalArgument("withdraw amount must be positive")
	}
	if err := types.Check(to); err != nil {
		return Outcome{}, illegalArgument("%v", err)
	}

	params := WithdrawParams{To: to, Amount: amount}
	a := newPendingAction(actionWithdraw, params, cb)

	return c.submit(ctx, a)
}

// CreateContract deploys a contract off-chain (§4.5 `createContract`).
// On success, Outcome.Address is the deterministic (owner, round_after)
// derived contract address.
func (c *Channel) CreateContract(ctx context.Context, p NewContractParams) (Outcome, error) {
	if err := types.Check(p.Owner); err != nil {
		return Outcome{}, illegalArgument("%v", err)
	}
	if p.Deposit == nil || p.Deposit.Sign() < 0 {
		return Outcome{}, illegalArgument("deposit must be a non-negative integer")
	}
	if len(p.Code) == 0 {
		return Outcome{}, illegalArgument("code must not be empty")
	}

	a := newPendingAction(actionNewContract, p, OnChainCallbacks{})

	return c.submit(ctx, a)
}

// CallContract calls a previously deployed contract off-chain (§4.5
// `callContract`).
func (c *Channel) CallContract(ctx context.Context, p CallContractParams) (Outcome, error) {
	if err := types.Check(p.Caller); err != nil {
		return Outcome{}, illegalArgument("%v", err)
	}
	if err := types.Check(p.Contract); err != nil {
		return Outcome{}, illegalArgument("%v", err)
	}
	if p.Amount == nil || p.Amount.Sign() < 0 {
		return Outcome{}, illegalArgument("amount must be a non-negative integer")
	}

	a := newPendingAction(actionCallContract, p, OnChainCallbacks{})

	return c.submit(ctx, a)
}

// ForceProgress forces the result of a contract call the counterparty
// refuses to co-sign (§4.5 `forceProgress`). The caller is responsible
// for posting Outcome.Tx on chain via an external.TxSubmitter.
func (c *Channel) ForceProgress(ctx context.Context, p ForceProgressParams) (Outcome, error) {
	if err := types.Check(p.Contract); err != nil {
		return Outcome{}, illegalArgument("%v", err)
	}

	a := newPendingAction(actionForceProgress, p, OnChainCallbacks{})

	return c.submit(ctx, a)
}

// Shutdown cooperatively closes the channel (§4.5 `shutdown`, §4.4
// shutdown). On acceptance, Outcome.SignedTx is the co-signed mutual
// close transaction; the FSM loop itself transitions Status to closed
// as part of resolving this action (see completeCurrentUpdate).
func (c *Channel) Shutdown(ctx context.Context) (Outcome, error) {
	a := newPendingAction(actionShutdown, map[string]interface{}{}, OnChainCallbacks{})
	return c.submit(ctx, a)
}

// Leave releases the session while the node preserves the channel on
// disk (§4.5 `leave`, §4.4 leave). The returned Outcome.SignedTx is the
// last off-chain payload, usable with Reconnect.
func (c *Channel) Leave(ctx context.Context) (Outcome, error) {
	a := newPendingAction(actionLeave, map[string]interface{}{}, OnChainCallbacks{})
	return c.submit(ctx, a)
}

// SendMessage sends an opaque chat message to the counterparty (§4.5
// `sendMessage`). Fire-and-forget: it does not participate in the
// action queue since it carries no co-sign round.
func (c *Channel) SendMessage(to types.Address, message string) error {
	if err := types.Check(to); err != nil {
		return illegalArgument("%v", err)
	}
	return c.correlator.Notify(methodMessage, map[string]interface{}{
		"to":      to,
		"message": message,
	})
}

// Balances returns opaque encoded balances for the given addresses
// (§4.5 `balances`). Decoding requires the external transaction/proof
// library (§9 Open Question (c)).
func (c *Channel) Balances(ctx context.Context, addrs []types.Address) (map[types.Address][]byte, error) {
	raw, err := c.correlator.Call(ctx, "channels.get.balances", map[string]interface{}{"accounts": addrs})
	if err != nil {
		return nil, err
	}

	var decoded map[string]string
	if err := c.decode(raw, &decoded); err != nil {
		return nil, newIncomingMessageError(raw, err)
	}

	out := make(map[types.Address][]byte, len(decoded))
	for addr, blob := range decoded {
		out[types.Address(addr)] = []byte(blob)
	}
	return out, nil
}

// POI returns an opaque Merkle Patricia proof of inclusion for the
// given accounts/contracts (§4.5 `poi`). Kept opaque per §9 Open
// Question (c); decode with an external.POIDecoder.
func (c *Channel) POI(ctx context.Context, accounts, contracts []types.Address) ([]byte, error) {
	raw, err := c.correlator.Call(ctx, "channels.get.poi", map[string]interface{}{
		"accounts":  accounts,
		"contracts": contracts,
	})
	if err != nil {
		return nil, err
	}

	var res struct {
		POI string `json:"poi"`
	}
	if err := c.decode(raw, &res); err != nil {
		return nil, newIncomingMessageError(raw, err)
	}
	return []byte(res.POI), nil
}

// GetContractCall fetches the result of a previously performed contract
// call (§4.5 `getContractCall`).
func (c *Channel) GetContractCall(ctx context.Context, caller, contract types.Address, round uint64) ([]byte, error) {
	raw, err := c.correlator.Call(ctx, "channels.get.contract_call", map[string]interface{}{
		"caller_id":   caller,
		"contract_id": contract,
		"round":       round,
	})
	if err != nil {
		return nil, err
	}
	return []byte(raw), nil
}

// CallContractStatic performs a read-only, non-co-signed contract call
// against the current off-chain state (§4.5 `callContractStatic`).
func (c *Channel) CallContractStatic(ctx context.Context, p CallContractParams) ([]byte, error) {
	raw, err := c.correlator.Call(ctx, "channels.dry_run.call_contract", map[string]interface{}{
		"caller":      p.Caller,
		"contract":    p.Contract,
		"abi_version": p.ABIVersion,
		"amount":      amountOrZero(p.Amount).String(),
		"call_data":   string(p.CallData),
	})
	if err != nil {
		return nil, err
	}
	return []byte(raw), nil
}

// CleanContractCalls discards cached contract call results the node is
// holding for this channel (§4.5 `cleanContractCalls`).
func (c *Channel) CleanContractCalls(ctx context.Context) error {
	_, err := c.correlator.Call(ctx, "channels.clean_contract_calls", map[string]interface{}{})
	return err
}

// GetContractState fetches a contract's encoded off-chain state (§4.5
// `getContractState`). Kept opaque per §9 Open Question (c).
func (c *Channel) GetContractState(ctx context.Context, contract types.Address) ([]byte, error) {
	raw, err := c.correlator.Call(ctx, "channels.get.contract", map[string]interface{}{"contract": contract})
	if err != nil {
		return nil, err
	}

	var res struct {
		ContractState string `json:"contractState"`
	}
	if err := c.decode(raw, &res); err != nil {
		return nil, newIncomingMessageError(raw, err)
	}
	return []byte(res.ContractState), nil
}

// Reconnect builds and initializes a fresh Channel that resumes a
// previously left session (§4.5 `reconnect`, §4.7), using the
// existingChannelID/existingFsmID/offchainTx triple a prior Leave
// returned. The caller discards any old Channel value; this one starts
// in awaitingReestablish and transitions to open once the node
// confirms (§4.4 "Reconnect").
func Reconnect(ctx context.Context, params InitParams, role Role, transport rpcsession.Transport, s signer.Signer, existingChannelID, existingFsmID string, offchainTx []byte, opts ...Option) (*Channel, error) {
	params.ExistingChannelID = existingChannelID
	params.ExistingFsmID = existingFsmID
	params.OffchainTx = offchainTx

	c := New(params, role, transport, s, opts...)
	if err := c.Initialize(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

func amountOrZero(a *types.Amount) *types.Amount {
	if a == nil {
		return types.AmountFromUint64(0)
	}
	return a
}
