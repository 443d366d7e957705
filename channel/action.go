package channel

import "github.com/aeternity/aepp-statechannels-go/types"

// actionKind is the closed sum type over the caller-driven action kinds
// named in §3's "Pending action" data model.
type actionKind uint8

const (
	actionTransfer actionKind = iota
	actionDeposit
	actionWithdraw
	actionNewContract
	actionCallContract
	actionForceProgress
	actionShutdown
	actionLeave
)

func (k actionKind) String() string {
	switch k {
	case actionTransfer:
		return "transfer"
	case actionDeposit:
		return "deposit"
	case actionWithdraw:
		return "withdraw"
	case actionNewContract:
		return "newContract"
	case actionCallContract:
		return "callContract"
	case actionForceProgress:
		return "forceProgress"
	case actionShutdown:
		return "shutdown"
	case actionLeave:
		return "leave"
	default:
		return "unknown"
	}
}

// OnChainCallbacks bundles the optional on-chain lifecycle callbacks a
// caller may attach to deposit/withdraw actions (§3). Bundling these at
// submission time, rather than exposing an open-ended observer, bounds
// callback lifetime to the action's own lifetime (§9 Design Notes).
type OnChainCallbacks struct {
	OnOnChainTx        func(signedTx []byte)
	OnOwnDepositLocked func()
	OnDepositLocked    func()
	OnOwnWithdrawLocked func()
	OnWithdrawLocked   func()
}

// Outcome is the terminal result of a caller-driven action. Exactly one
// of Accepted==true (with SignedTx set, or Tx/TxHash for forceProgress)
// or Accepted==false is ever returned for any action, per §8's
// round-trip laws.
type Outcome struct {
	Accepted bool

	// SignedTx is the co-signed off-chain (or, for shutdown, the
	// mutual-close) transaction blob, set when Accepted is true for every
	// action except forceProgress.
	SignedTx []byte

	// ErrorCode and ErrorMessage are set when the remote party aborted
	// with a user-defined code (§4.3, §4.4 step 4).
	ErrorCode    *int
	ErrorMessage string

	// Address is set for a successful createContract, derived from
	// (owner, round_after) per §4.4.
	Address types.Address

	// Tx and TxHash are set for a successful forceProgress: the
	// serialized, not-yet-submitted on-chain transaction and its hash.
	Tx    []byte
	TxHash string
}

// rejected builds a generic {accepted:false} outcome with no code.
func rejected() Outcome {
	return Outcome{Accepted: false}
}

// abortedWithCode builds a {accepted:false, errorCode, errorMessage:
// "user-defined"} outcome (§4.4 step 4, §8 scenario 4).
func abortedWithCode(code int) Outcome {
	return Outcome{Accepted: false, ErrorCode: &code, ErrorMessage: "user-defined"}
}

// pendingAction is the single in-flight caller action the FSM is
// allowed to process at a time (§3 invariant). A second submission
// while one is pending is queued and served FIFO (§4.4 Back-pressure).
type pendingAction struct {
	kind   actionKind
	params interface{}

	callbacks OnChainCallbacks

	resultCh chan Outcome
	errCh    chan error
}

func newPendingAction(kind actionKind, params interface{}, cb OnChainCallbacks) *pendingAction {
	return &pendingAction{
		kind:      kind,
		params:    params,
		callbacks: cb,
		resultCh:  make(chan Outcome, 1),
		errCh:     make(chan error, 1),
	}
}

func (a *pendingAction) resolve(o Outcome) {
	a.resultCh <- o
}

func (a *pendingAction) fail(err error) {
	a.errCh <- err
}
