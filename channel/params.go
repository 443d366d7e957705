package channel

import (
	"net/url"
	"strconv"
	"time"

	"github.com/aeternity/aepp-statechannels-go/types"
)

// Role is the channel participant's role, fixed for the lifetime of a
// session.
type Role uint8

const (
	Initiator Role = iota
	Responder
)

func (r Role) String() string {
	if r == Initiator {
		return "initiator"
	}
	return "responder"
}

// InitParams are the immutable parameters a caller supplies to open or
// resume a channel (§3, §6). Tagged for github.com/jessevdk/go-flags so
// a CLI or config file can populate them directly, the same way lnd's
// daemon config struct is built.
type InitParams struct {
	URL  string `long:"url" description:"full websocket URL of the channel-FSM node"`
	Host string `long:"host" description:"node host, used if url is empty"`
	Port int    `long:"port" description:"node port, used if url is empty"`

	Role Role `no-flag:"true"`

	InitiatorID types.Address `long:"initiator-id" description:"initiator account address"`
	ResponderID types.Address `long:"responder-id" description:"responder account address"`

	InitiatorAmount *types.Amount `no-flag:"true"`
	ResponderAmount *types.Amount `no-flag:"true"`
	PushAmount      *types.Amount `no-flag:"true"`
	ChannelReserve  *types.Amount `no-flag:"true"`

	LockPeriod uint64        `long:"lock-period" description:"number of blocks for the lock period"`
	TTL        time.Duration `long:"ttl" default:"30s" description:"round-trip timeout; must be positive, but no outbound request or waiter is bounded by it"`

	StatePassword string `long:"state-password" description:"password used to encrypt persisted channel state, if any"`
	Debug         bool   `long:"debug" description:"dump every inbound/outbound frame with go-spew"`

	// Reconnect fields. Set ExistingFsmID to resume a previously opened
	// session instead of opening a new channel (§4.7).
	ExistingChannelID string `long:"existing-channel-id"`
	ExistingFsmID     string `long:"existing-fsm-id"`
	OffchainTx        []byte `no-flag:"true"`
}

// validate checks the subset of InitParams invariants the action
// surface must reject synchronously (§7: IllegalArgumentError).
func (p *InitParams) validate() error {
	if p.URL == "" && (p.Host == "" || p.Port == 0) {
		return illegalArgument("either url, or both host and port, must be set")
	}
	if p.ExistingFsmID == "" {
		if !p.InitiatorID.Valid() {
			return illegalArgument("initiatorId %q is not a valid account address", p.InitiatorID)
		}
		if !p.ResponderID.Valid() {
			return illegalArgument("responderId %q is not a valid account address", p.ResponderID)
		}
		if p.InitiatorAmount == nil || p.InitiatorAmount.Sign() < 0 {
			return illegalArgument("initiatorAmount must be a non-negative amount")
		}
		if p.ResponderAmount == nil || p.ResponderAmount.Sign() < 0 {
			return illegalArgument("responderAmount must be a non-negative amount")
		}
	}
	if p.TTL <= 0 {
		return illegalArgument("ttl must be positive")
	}
	return nil
}

// isReestablish reports whether these params resume an existing FSM
// session rather than opening a fresh channel.
func (p *InitParams) isReestablish() bool {
	return p.ExistingFsmID != ""
}

// connectQuery builds the dial URL query parameters the node's channel
// websocket endpoint reads to negotiate the session (§4.4 Open
// handshake, §4.7 reestablish): there is no request in the JSON-RPC
// wire protocol itself that carries the role, party ids, amounts, lock
// period, or state password, so they travel in the connect URL instead,
// the same way the real æternity node's channel endpoint expects them.
func (p *InitParams) connectQuery() url.Values {
	q := url.Values{}

	q.Set("role", p.Role.String())
	if p.StatePassword != "" {
		q.Set("state_password", p.StatePassword)
	}

	if p.isReestablish() {
		q.Set("existing_channel_id", p.ExistingChannelID)
		q.Set("existing_fsm_id", p.ExistingFsmID)
		return q
	}

	q.Set("initiator_id", string(p.InitiatorID))
	q.Set("responder_id", string(p.ResponderID))
	q.Set("lock_period", strconv.FormatUint(p.LockPeriod, 10))
	if p.InitiatorAmount != nil {
		q.Set("initiator_amount", p.InitiatorAmount.String())
	}
	if p.ResponderAmount != nil {
		q.Set("responder_amount", p.ResponderAmount.String())
	}
	if p.PushAmount != nil {
		q.Set("push_amount", p.PushAmount.String())
	}
	if p.ChannelReserve != nil {
		q.Set("channel_reserve", p.ChannelReserve.String())
	}

	return q
}
