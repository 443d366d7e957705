package channel

import "github.com/aeternity/aepp-statechannels-go/types"

// TransferParams are the arguments to Update: an off-chain transfer
// from From to To.
type TransferParams struct {
	From   types.Address  `json:"from"`
	To     types.Address  `json:"to"`
	Amount *types.Amount  `json:"amount"`
}

// DepositParams are the arguments to Deposit.
type DepositParams struct {
	From   types.Address `json:"from"`
	Amount *types.Amount `json:"amount"`
}

// WithdrawParams are the arguments to Withdraw.
type WithdrawParams struct {
	To     types.Address `json:"to"`
	Amount *types.Amount `json:"amount"`
}

// NewContractParams are the arguments to CreateContract.
type NewContractParams struct {
	Owner      types.Address `json:"owner"`
	Code       []byte        `json:"code"`
	CallData   []byte        `json:"call_data"`
	Deposit    *types.Amount `json:"deposit"`
	VMVersion  uint16        `json:"vm_version"`
	ABIVersion uint16        `json:"abi_version"`
}

// CallContractParams are the arguments to CallContract.
type CallContractParams struct {
	Caller     types.Address `json:"caller"`
	Contract   types.Address `json:"contract"`
	ABIVersion uint16        `json:"abi_version"`
	Amount     *types.Amount `json:"amount"`
	CallData   []byte        `json:"call_data"`
	CallStack  []uint64      `json:"call_stack,omitempty"`
	GasPrice   *types.Amount `json:"gas_price,omitempty"`
	GasLimit   *types.Amount `json:"gas_limit,omitempty"`
}

// ForceProgressParams are the arguments to ForceProgress: forcing the
// result of a contract call the counterparty refuses to co-sign.
type ForceProgressParams struct {
	Contract   types.Address `json:"contract"`
	ABIVersion uint16        `json:"abi_version"`
	Amount     *types.Amount `json:"amount"`
	CallData   []byte        `json:"call_data"`
	GasPrice   *types.Amount `json:"gas_price,omitempty"`
	GasLimit   *types.Amount `json:"gas_limit,omitempty"`
}
