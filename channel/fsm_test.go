package channel

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/aeternity/aepp-statechannels-go/rpcsession"
	"github.com/aeternity/aepp-statechannels-go/signer"
	"github.com/aeternity/aepp-statechannels-go/types"
	"github.com/stretchr/testify/require"
)

// alwaysSignSigner accepts every sign request by echoing back the
// request's tx prefixed with "signed:".
type alwaysSignSigner struct{}

func (alwaysSignSigner) Sign(tx []byte, meta map[string]interface{}) (signer.RawResponse, error) {
	return "signed:" + string(tx), nil
}

func (alwaysSignSigner) SignTagged(tag signer.Tag, tx []byte, meta map[string]interface{}) (signer.RawResponse, error) {
	return "signed:" + string(tx), nil
}

func testParams() InitParams {
	return InitParams{
		URL:             "ws://test",
		InitiatorID:     types.Address("ak_initiator"),
		ResponderID:     types.Address("ak_responder"),
		InitiatorAmount: types.AmountFromUint64(1000),
		ResponderAmount: types.AmountFromUint64(1000),
		LockPeriod:      10,
		TTL:             time.Second,
	}
}

// newOpenChannel builds a Channel wired to a MockTransport's client
// side, drives it through the open handshake via the node side, and
// returns both once the channel reports StatusOpen.
func newOpenChannel(t *testing.T) (*Channel, *rpcsession.MockTransport) {
	t.Helper()

	client, node := rpcsession.NewMockPair()
	c := New(testParams(), Initiator, client, alwaysSignSigner{})

	require.NoError(t, c.Initialize(context.Background()))

	sendInfo(t, node, "channel_open")
	sendInfo(t, node, "funding_created")
	sendInfo(t, node, "own_funding_locked")
	sendInfo(t, node, "funding_locked")

	require.Eventually(t, func() bool {
		return c.Status() == StatusOpen
	}, 2*time.Second, 10*time.Millisecond)

	return c, node
}

func sendInfo(t *testing.T, node *rpcsession.MockTransport, event string) {
	t.Helper()
	params, err := json.Marshal(map[string]string{"event": event})
	require.NoError(t, err)
	require.NoError(t, node.Send(rpcsession.Frame{
		JSONRPC: "2.0",
		Method:  "channels.info",
		Params:  params,
	}))
}

func recvRequest(t *testing.T, node *rpcsession.MockTransport) rpcsession.Frame {
	t.Helper()
	select {
	case f := <-node.Inbound():
		return f
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for request")
		return rpcsession.Frame{}
	}
}

// ackRequest replies to req with an empty result, resolving the
// correlator.Call that dispatchAction is blocked in. The FSM's outcome
// for co-sign actions is settled separately by a later channels.update
// notification; this only unblocks the event loop so it can read that
// notification off the wire.
func ackRequest(t *testing.T, node *rpcsession.MockTransport, req rpcsession.Frame) {
	t.Helper()
	require.NoError(t, node.Send(rpcsession.Frame{JSONRPC: "2.0", ID: req.ID, Result: json.RawMessage(`{}`)}))
}

func TestOpenHandshakeReachesOpen(t *testing.T) {
	c, node := newOpenChannel(t)
	defer node.Close()
	defer c.Disconnect()

	require.Equal(t, uint64(1), c.Round())
}

func TestUpdateAccepted(t *testing.T) {
	c, node := newOpenChannel(t)
	defer node.Close()
	defer c.Disconnect()

	resultCh := make(chan Outcome, 1)
	errCh := make(chan error, 1)
	go func() {
		o, err := c.Update(context.Background(), types.Address("ak_initiator"), types.Address("ak_responder"), types.AmountFromUint64(10))
		if err != nil {
			errCh <- err
			return
		}
		resultCh <- o
	}()

	req := recvRequest(t, node)
	require.Equal(t, "channels.update.new", req.Method)
	ackRequest(t, node, req)

	upd, err := json.Marshal(map[string]interface{}{"accepted": true, "signed_tx": "abc123"})
	require.NoError(t, err)
	require.NoError(t, node.Send(rpcsession.Frame{JSONRPC: "2.0", Method: "channels.update", Params: upd}))

	select {
	case o := <-resultCh:
		require.True(t, o.Accepted)
		require.Equal(t, []byte("abc123"), o.SignedTx)
	case err := <-errCh:
		t.Fatalf("unexpected error: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for outcome")
	}

	require.Equal(t, uint64(2), c.Round())
	require.Equal(t, StatusOpen, c.Status())
}

func TestUpdateRejectedWithUserCode(t *testing.T) {
	c, node := newOpenChannel(t)
	defer node.Close()
	defer c.Disconnect()

	resultCh := make(chan Outcome, 1)
	go func() {
		o, _ := c.Update(context.Background(), types.Address("ak_initiator"), types.Address("ak_responder"), types.AmountFromUint64(10))
		resultCh <- o
	}()

	req := recvRequest(t, node)
	ackRequest(t, node, req)

	upd, err := json.Marshal(map[string]interface{}{"accepted": false, "error_code": 7})
	require.NoError(t, err)
	require.NoError(t, node.Send(rpcsession.Frame{JSONRPC: "2.0", Method: "channels.update", Params: upd}))

	select {
	case o := <-resultCh:
		require.False(t, o.Accepted)
		require.NotNil(t, o.ErrorCode)
		require.Equal(t, 7, *o.ErrorCode)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for outcome")
	}
}

func TestActionsQueueFIFOWhileOneInFlight(t *testing.T) {
	c, node := newOpenChannel(t)
	defer node.Close()
	defer c.Disconnect()

	first := make(chan Outcome, 1)
	second := make(chan Outcome, 1)

	go func() {
		o, _ := c.Update(context.Background(), types.Address("ak_initiator"), types.Address("ak_responder"), types.AmountFromUint64(1))
		first <- o
	}()
	time.Sleep(20 * time.Millisecond)
	go func() {
		o, _ := c.Update(context.Background(), types.Address("ak_initiator"), types.Address("ak_responder"), types.AmountFromUint64(2))
		second <- o
	}()

	req1 := recvRequest(t, node)
	require.Equal(t, "channels.update.new", req1.Method)
	ackRequest(t, node, req1)

	upd1, _ := json.Marshal(map[string]interface{}{"accepted": true, "signed_tx": "round1"})
	require.NoError(t, node.Send(rpcsession.Frame{JSONRPC: "2.0", Method: "channels.update", Params: upd1}))

	select {
	case o := <-first:
		require.True(t, o.Accepted)
	case <-time.After(2 * time.Second):
		t.Fatal("first action never resolved")
	}

	req2 := recvRequest(t, node)
	require.Equal(t, "channels.update.new", req2.Method)
	ackRequest(t, node, req2)

	upd2, _ := json.Marshal(map[string]interface{}{"accepted": true, "signed_tx": "round2"})
	require.NoError(t, node.Send(rpcsession.Frame{JSONRPC: "2.0", Method: "channels.update", Params: upd2}))

	select {
	case o := <-second:
		require.True(t, o.Accepted)
	case <-time.After(2 * time.Second):
		t.Fatal("second action never resolved")
	}

	require.Equal(t, uint64(3), c.Round())
}

func TestShutdownTransitionsToClosed(t *testing.T) {
	c, node := newOpenChannel(t)
	defer node.Close()
	defer c.Disconnect()

	resultCh := make(chan Outcome, 1)
	go func() {
		o, err := c.Shutdown(context.Background())
		require.NoError(t, err)
		resultCh <- o
	}()

	req := recvRequest(t, node)
	require.Equal(t, "channels.shutdown", req.Method)

	id := req.ID
	resp := rpcsession.Frame{JSONRPC: "2.0", ID: id, Result: json.RawMessage(`{}`)}
	require.NoError(t, node.Send(resp))

	upd, _ := json.Marshal(map[string]interface{}{"accepted": true, "signed_tx": "closetx"})
	require.NoError(t, node.Send(rpcsession.Frame{JSONRPC: "2.0", Method: "channels.update", Params: upd}))

	select {
	case o := <-resultCh:
		require.True(t, o.Accepted)
	case <-time.After(2 * time.Second):
		t.Fatal("shutdown never resolved")
	}

	require.Eventually(t, func() bool {
		return c.Status() == StatusClosed
	}, 2*time.Second, 10*time.Millisecond)
}

func TestReconnectResumesFromReestablish(t *testing.T) {
	client, node := rpcsession.NewMockPair()

	resultCh := make(chan *Channel, 1)
	errCh := make(chan error, 1)
	go func() {
		c, err := Reconnect(context.Background(), testParams(), Initiator, client, alwaysSignSigner{}, "chan123", "fsm456", []byte("lasttx"))
		if err != nil {
			errCh <- err
			return
		}
		resultCh <- c
	}()

	req := recvRequest(t, node)
	require.Equal(t, "channels.reestablish", req.Method)

	var params map[string]interface{}
	require.NoError(t, json.Unmarshal(req.Params, &params))
	require.Equal(t, "chan123", params["existing_channel_id"])
	require.Equal(t, "fsm456", params["existing_fsm_id"])
	require.Equal(t, "lasttx", params["offchain_tx"])

	res, err := json.Marshal(map[string]interface{}{
		"channel_id": "chan123",
		"fsm_id":     "fsm456",
		"round":      3,
		"signed_tx":  "resumedtx",
	})
	require.NoError(t, err)
	require.NoError(t, node.Send(rpcsession.Frame{JSONRPC: "2.0", ID: req.ID, Result: res}))

	var c *Channel
	select {
	case c = <-resultCh:
	case err := <-errCh:
		t.Fatalf("unexpected error: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for reconnect")
	}
	defer node.Close()
	defer c.Disconnect()

	require.Eventually(t, func() bool {
		return c.Status() == StatusOpen
	}, 2*time.Second, 10*time.Millisecond)

	require.Equal(t, uint64(3), c.Round())
	require.Equal(t, "chan123", c.ChannelID())
	require.Equal(t, "fsm456", c.FsmID())
	require.Equal(t, []byte("resumedtx"), c.LastSignedTx())
}

func TestDisconnectFailsPendingAction(t *testing.T) {
	c, node := newOpenChannel(t)
	defer node.Close()

	errCh := make(chan error, 1)
	go func() {
		_, err := c.Update(context.Background(), types.Address("ak_initiator"), types.Address("ak_responder"), types.AmountFromUint64(1))
		errCh <- err
	}()

	recvRequest(t, node)

	require.NoError(t, c.Disconnect())

	select {
	case err := <-errCh:
		require.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("disconnect never failed the pending action")
	}
}
