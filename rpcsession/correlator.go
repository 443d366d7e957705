package rpcsession

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
)

// Notification is a server-originated, id-less frame routed to whatever
// dispatcher the FSM registered for its method name.
type Notification struct {
	Method string
	Params json.RawMessage
}

// RemoteError wraps a JSON-RPC error object reported by the node for a
// request we issued.
type RemoteError struct {
	Code    int
	Message string
	Data    json.RawMessage
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("node error %d: %s", e.Code, e.Message)
}

// waiter is the correlator's bookkeeping for one outstanding request,
// directly modeled on htlcswitch.Switch's pendingPayments: a map keyed
// by a monotonically assigned id, guarded by a mutex, resolved exactly
// once.
type waiter struct {
	resultCh chan waitResult
}

type waitResult struct {
	result json.RawMessage
	err    error
}

// Correlator assigns monotonic ids to outbound requests and matches
// inbound frames bearing an id back to the waiter that issued them. It
// routes frames without an id to a Notifications channel for the FSM to
// consume.
type Correlator struct {
	transport Transport

	nextID uint64

	mu      sync.Mutex
	pending map[string]*waiter
	closed  bool

	notifications chan Notification

	lastErrorMu sync.Mutex
	lastError   error

	runOnce sync.Once
	stopped chan struct{}
}

// NewCorrelator builds a Correlator atop an already-connected transport.
func NewCorrelator(t Transport) *Correlator {
	return &Correlator{
		transport:     t,
		pending:       make(map[string]*waiter),
		notifications: make(chan Notification, 256),
		stopped:       make(chan struct{}),
	}
}

// Run starts a goroutine that drains the transport's inbound frames until
// the transport is closed, and returns at once. Call it before any Call
// is issued; calling it again has no effect.
func (c *Correlator) Run() {
	c.runOnce.Do(func() {
		go c.run()
	})
}

func (c *Correlator) run() {
	defer close(c.stopped)
	defer close(c.notifications)

	for {
		select {
		case f, ok := <-c.transport.Inbound():
			if !ok {
				c.teardown(ErrConnectionLost)
				return
			}
			c.dispatch(f)

		case <-c.transport.Done():
			c.teardown(ErrConnectionLost)
			return
		}
	}
}

func (c *Correlator) dispatch(f Frame) {
	switch {
	case f.IsResponse():
		c.resolve(*f.ID, f)

	case f.IsNotification():
		if f.Error != nil {
			c.lastErrorMu.Lock()
			c.lastError = &RemoteError{Code: f.Error.Code, Message: f.Error.Message, Data: f.Error.Data}
			c.lastErrorMu.Unlock()
		}
		select {
		case c.notifications <- Notification{Method: f.Method, Params: f.Params}:
		case <-c.stopped:
		}

	default:
		log.Warnf("rpcsession: dropping frame matching neither a response nor a notification: %+v", f)
	}
}

func (c *Correlator) resolve(id string, f Frame) {
	c.mu.Lock()
	w, ok := c.pending[id]
	if ok {
		delete(c.pending, id)
	}
	c.mu.Unlock()

	if !ok {
		log.Warnf("rpcsession: response for unknown request id %s", id)
		return
	}

	if f.Error != nil {
		w.resultCh <- waitResult{err: &RemoteError{Code: f.Error.Code, Message: f.Error.Message, Data: f.Error.Data}}
		return
	}
	w.resultCh <- waitResult{result: f.Result}
}

// teardown rejects every outstanding waiter with a connection-lost
// error, carrying the last error frame observed (if any), per §4.2.
func (c *Correlator) teardown(cause error) {
	c.lastErrorMu.Lock()
	last := c.lastError
	c.lastErrorMu.Unlock()

	err := cause
	if last != nil {
		err = fmt.Errorf("%w (last node error: %v)", cause, last)
	}

	c.mu.Lock()
	c.closed = true
	pending := c.pending
	c.pending = make(map[string]*waiter)
	c.mu.Unlock()

	for _, w := range pending {
		w.resultCh <- waitResult{err: err}
	}
}

// Call issues method with params and blocks until the matching response
// (or a remote error, or connection loss, or ctx cancellation) arrives.
func (c *Correlator) Call(ctx context.Context, method string, params interface{}) (json.RawMessage, error) {
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("rpcsession: marshal params: %w", err)
	}

	id := strconv.FormatUint(atomic.AddUint64(&c.nextID, 1), 10)
	w := &waiter{resultCh: make(chan waitResult, 1)}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrConnectionLost
	}
	c.pending[id] = w
	c.mu.Unlock()

	if err := c.transport.Send(newRequestFrame(id, method, raw)); err != nil {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return nil, err
	}

	select {
	case res := <-w.resultCh:
		if res.err != nil {
			return nil, res.err
		}
		return res.result, nil

	case <-ctx.Done():
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return nil, ctx.Err()
	}
}

// Notify sends method fire-and-forget, with no correlated response.
func (c *Correlator) Notify(method string, params interface{}) error {
	raw, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("rpcsession: marshal params: %w", err)
	}
	return c.transport.Send(newNotificationFrame(method, raw))
}

// Notifications returns the channel of server-originated, id-less
// frames for the FSM to dispatch by method name. It is closed once the
// correlator has torn down.
func (c *Correlator) Notifications() <-chan Notification {
	return c.notifications
}

// Stopped is closed once Run's loop has exited.
func (c *Correlator) Stopped() <-chan struct{} {
	return c.stopped
}
