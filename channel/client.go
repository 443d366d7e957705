// Package channel implements the æternity state channel client: the
// Channel session (§3), the channel FSM (§4.4), the action surface
// (§4.5), and reconnect/reestablish (§4.7).
package channel

import (
	"context"
	"fmt"
	"sync"

	"github.com/aeternity/aepp-statechannels-go/events"
	"github.com/aeternity/aepp-statechannels-go/external"
	"github.com/aeternity/aepp-statechannels-go/rpcsession"
	"github.com/aeternity/aepp-statechannels-go/signer"
)

// Channel owns one channel session: a transport, a request correlator,
// a signer broker, and the single-threaded FSM that drives them. Every
// exported method is safe to call from any goroutine; internally, all
// FSM state is only ever touched from the channel's own event-loop
// goroutine (§5), guarded by stateMu purely so getters can be read
// concurrently with that loop.
type Channel struct {
	params InitParams
	role   Role

	transport   rpcsession.Transport
	correlator  *rpcsession.Correlator
	broker      *signer.Broker
	bus         *events.Bus
	codec       external.TxCodec
	txSubmitter external.TxSubmitter
	metrics     *metricsCollector

	stateMu sync.RWMutex
	status  Status
	state   fsmState
	round   uint64

	channelID    string
	fsmID        string
	lastSignedTx []byte

	ownFundingLocked  bool
	peerFundingLocked bool
	lockFlags         map[string]bool // allocated by New; no FSM handler reads or writes it

	actionCh chan *pendingAction
	queue    []*pendingAction
	current  *pendingAction

	quit chan struct{}
	done chan struct{}
	wg   sync.WaitGroup
}

// Option configures a Channel at construction time.
type Option func(*Channel)

// WithTxCodec injects the transaction builder/codec collaborator (§1
// "Out of scope"). Without one, DecodeUpdate-dependent round-trip
// checks are unavailable but the FSM itself still functions, since it
// only ever treats transaction blobs as opaque.
func WithTxCodec(codec external.TxCodec) Option {
	return func(c *Channel) { c.codec = codec }
}

// WithMetrics enables Prometheus instrumentation (see metrics.go).
func WithMetrics(namespace string) Option {
	return func(c *Channel) { c.metrics = newMetricsCollector(namespace) }
}

// WithTxSubmitter injects the collaborator that posts a node-unilateral
// on-chain transaction (a solo-close, slash, or settle payload observed
// during dispute handling, §1 "dispute coordination") to the node's HTTP
// API on the caller's behalf. Without one, the channel only ever emits
// the payload on events.Dispute and leaves submission to the caller.
func WithTxSubmitter(s external.TxSubmitter) Option {
	return func(c *Channel) { c.txSubmitter = s }
}

// New constructs a Channel. transport is typically a *rpcsession.WSTransport
// for production use or a *rpcsession.MockTransport in tests; the caller
// owns its lifecycle up to Initialize.
func New(params InitParams, role Role, transport rpcsession.Transport, s signer.Signer, opts ...Option) *Channel {
	params.Role = role

	c := &Channel{
		params:    params,
		role:      role,
		transport: transport,
		broker:    signer.NewBroker(s),
		bus:       events.New(),
		state:     stateConnecting,
		status:    StatusConnecting,
		lockFlags: make(map[string]bool),
		actionCh:  make(chan *pendingAction, 1),
		quit:      make(chan struct{}),
		done:      make(chan struct{}),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// On registers a listener for one of the channel's event streams
// (§4.6).
func (c *Channel) On(name events.Name, l events.Listener) {
	c.bus.On(name, l)
}

// Initialize connects the transport and starts the FSM's event loop
// (§3 Lifecycle, §4.4 Initial state). If params.ExistingFsmID is set,
// the FSM immediately enters awaitingReestablish once connected (§4.7).
func (c *Channel) Initialize(ctx context.Context) error {
	if err := c.params.validate(); err != nil {
		return err
	}

	if ps, ok := c.transport.(rpcsession.ParamSetter); ok {
		ps.SetConnectParams(c.params.connectQuery())
	}
	if ds, ok := c.transport.(interface{ SetDebug(bool) }); ok {
		ds.SetDebug(c.params.Debug)
	}

	if err := c.transport.Connect(ctx); err != nil {
		return connectionError("unable to connect to node", err)
	}

	c.correlator = rpcsession.NewCorrelator(c.transport)
	c.correlator.Run()

	c.setState(stateConnecting)

	if c.params.isReestablish() {
		c.fsmID = c.params.ExistingFsmID
		c.channelID = c.params.ExistingChannelID
		c.lastSignedTx = c.params.OffchainTx
		c.setState(stateAwaitingReestablish)
	}

	c.wg.Add(1)
	go c.run()

	return nil
}

// Status returns the channel's current public status.
func (c *Channel) Status() Status {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.status
}

// Round returns the current off-chain round. Per §9 Open Question (a),
// after a reestablish whose node reply omitted the round field this is
// simply left at its previous value (possibly 0) until the next
// successful advance.
func (c *Channel) Round() uint64 {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.round
}

// ChannelID returns the opaque channel identifier assigned by the node
// once the channel is open. Empty until then.
func (c *Channel) ChannelID() string {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.channelID
}

// FsmID returns the opaque FSM session identifier.
func (c *Channel) FsmID() string {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.fsmID
}

// LastSignedTx returns the most recently co-signed off-chain transaction
// blob.
func (c *Channel) LastSignedTx() []byte {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.lastSignedTx
}

// Disconnect cancels all pending waiters with a transport error and
// tears down the transport (§5 Cancellation). The channel may still be
// resumed later with Reconnect/a fresh Initialize using the same
// FsmID.
func (c *Channel) Disconnect() error {
	close(c.quit)
	err := c.transport.Close()
	<-c.done
	return err
}

// setState transitions the internal FSM state, deriving and emitting a
// Status change when the projected status differs from the last
// observed one (§4.6: "statusChanged fires exactly once per status
// transition").
func (c *Channel) setState(s fsmState) {
	newStatus := s.status()

	c.stateMu.Lock()
	oldStatus := c.status
	c.state = s
	c.status = newStatus
	c.stateMu.Unlock()

	c.bus.Emit(events.StateChanged, s)
	if c.metrics != nil {
		c.metrics.observeState(s)
	}

	if newStatus != oldStatus {
		c.bus.Emit(events.StatusChanged, newStatus)
		if c.metrics != nil {
			c.metrics.statusTransitions.Inc()
		}
	}
}

func (c *Channel) getState() fsmState {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.state
}

// emitError emits a typed error on the error bus (§4.6, §7).
func (c *Channel) emitError(err error) {
	log.Errorf("channel: %v", err)
	c.bus.Emit(events.Error, err)
}

// submit enqueues action, blocking the CALLER (not the FSM loop) until
// a slot in the action channel is free, and waits for either its
// resolution or a hard error.
func (c *Channel) submit(ctx context.Context, a *pendingAction) (Outcome, error) {
	select {
	case c.actionCh <- a:
	case <-c.done:
		return Outcome{}, connectionError("channel is no longer running", nil)
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	}

	select {
	case o := <-a.resultCh:
		return o, nil
	case err := <-a.errCh:
		return Outcome{}, err
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	}
}

func (c *Channel) subsystem() string {
	return fmt.Sprintf("channel(%s,%s)", c.role, c.fsmID)
}
