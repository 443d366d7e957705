package channel

import (
	"fmt"

	"github.com/aeternity/aepp-statechannels-go/external"
	"github.com/aeternity/aepp-statechannels-go/types"
)

// UpdateOp is a closed sum type over the off-chain update
// sub-operations named in §3. Modeling it as a sealed interface (the
// rbf_coop_states.go `protocolSealed` pattern) rather than a tag string
// means a type switch that forgets a case is caught by go vet's
// exhaustiveness tooling rather than silently mishandling a protocol
// notification (§9 Design Notes).
type UpdateOp interface {
	isUpdateOp()
}

// OffChainTransfer moves amount off-chain from From to To.
type OffChainTransfer struct {
	Amount *types.Amount
	From   types.Address
	To     types.Address
}

func (OffChainTransfer) isUpdateOp() {}

// OffChainDeposit records an on-chain deposit's off-chain counterpart.
type OffChainDeposit struct {
	Amount *types.Amount
	From   types.Address
}

func (OffChainDeposit) isUpdateOp() {}

// OffChainWithdrawal records an on-chain withdrawal's off-chain
// counterpart.
type OffChainWithdrawal struct {
	Amount *types.Amount
	To     types.Address
}

func (OffChainWithdrawal) isUpdateOp() {}

// OffChainNewContract deploys a contract off-chain.
type OffChainNewContract struct {
	Owner      types.Address
	Code       []byte
	CallData   []byte
	Deposit    *types.Amount
	VMVersion  uint16
	ABIVersion uint16
}

func (OffChainNewContract) isUpdateOp() {}

// OffChainCallContract calls a previously deployed contract off-chain.
type OffChainCallContract struct {
	Caller     types.Address
	Contract   types.Address
	ABIVersion uint16
	Amount     *types.Amount
	CallData   []byte
	CallStack  []uint64
	GasPrice   *types.Amount
	GasLimit   *types.Amount
}

func (OffChainCallContract) isUpdateOp() {}

// OffChainMeta carries opaque application data alongside an update.
type OffChainMeta struct {
	Data []byte
}

func (OffChainMeta) isUpdateOp() {}

// LastUpdateOps decodes the most recently co-signed off-chain
// transaction into the ordered list of sub-operations it carries,
// using the TxCodec supplied via WithTxCodec. Returns an error if no
// codec was configured or the channel hasn't completed an update yet.
func (c *Channel) LastUpdateOps() ([]UpdateOp, error) {
	if c.codec == nil {
		return nil, fmt.Errorf("channel: no TxCodec configured, see WithTxCodec")
	}
	tx := c.LastSignedTx()
	if len(tx) == 0 {
		return nil, fmt.Errorf("channel: no signed transaction recorded yet")
	}

	records, err := c.codec.DecodeUpdate(tx)
	if err != nil {
		return nil, fmt.Errorf("channel: decode update: %w", err)
	}

	ops := make([]UpdateOp, 0, len(records))
	for _, r := range records {
		op, err := updateOpFromRecord(r)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	return ops, nil
}

func updateOpFromRecord(r external.UpdateRecord) (UpdateOp, error) {
	f := r.Fields
	switch r.Kind {
	case "transfer":
		return OffChainTransfer{
			Amount: fieldAmount(f, "amount"),
			From:   fieldAddress(f, "from"),
			To:     fieldAddress(f, "to"),
		}, nil
	case "deposit":
		return OffChainDeposit{
			Amount: fieldAmount(f, "amount"),
			From:   fieldAddress(f, "from"),
		}, nil
	case "withdrawal":
		return OffChainWithdrawal{
			Amount: fieldAmount(f, "amount"),
			To:     fieldAddress(f, "to"),
		}, nil
	case "new_contract":
		return OffChainNewContract{
			Owner:      fieldAddress(f, "owner"),
			Code:       fieldBytes(f, "code"),
			CallData:   fieldBytes(f, "call_data"),
			Deposit:    fieldAmount(f, "deposit"),
			VMVersion:  fieldUint16(f, "vm_version"),
			ABIVersion: fieldUint16(f, "abi_version"),
		}, nil
	case "call_contract":
		return OffChainCallContract{
			Caller:     fieldAddress(f, "caller"),
			Contract:   fieldAddress(f, "contract"),
			ABIVersion: fieldUint16(f, "abi_version"),
			Amount:     fieldAmount(f, "amount"),
			CallData:   fieldBytes(f, "call_data"),
		}, nil
	case "meta":
		return OffChainMeta{Data: fieldBytes(f, "data")}, nil
	default:
		return nil, fmt.Errorf("channel: unrecognized update sub-operation kind %q", r.Kind)
	}
}

func fieldAddress(f map[string]interface{}, key string) types.Address {
	if s, ok := f[key].(string); ok {
		return types.Address(s)
	}
	return ""
}

func fieldBytes(f map[string]interface{}, key string) []byte {
	switch v := f[key].(type) {
	case []byte:
		return v
	case string:
		return []byte(v)
	}
	return nil
}

func fieldUint16(f map[string]interface{}, key string) uint16 {
	switch v := f[key].(type) {
	case uint16:
		return v
	case int:
		return uint16(v)
	case float64:
		return uint16(v)
	}
	return 0
}

func fieldAmount(f map[string]interface{}, key string) *types.Amount {
	switch v := f[key].(type) {
	case *types.Amount:
		return v
	case string:
		if a, err := types.ParseAmount(v); err == nil {
			return a
		}
	}
	return nil
}
