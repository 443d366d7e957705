package rpcsession

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCallResolvesOnMatchingResponse(t *testing.T) {
	client, node := NewMockPair()
	defer client.Close()
	defer node.Close()

	c := NewCorrelator(client)
	c.Run()

	go func() {
		f := <-node.Inbound()
		require.Equal(t, "channels.update.new", f.Method)
		resp := Frame{JSONRPC: jsonrpcVersion, ID: f.ID, Result: json.RawMessage(`{"ok":true}`)}
		require.NoError(t, node.Send(resp))
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	raw, err := c.Call(ctx, "channels.update.new", map[string]string{"x": "y"})
	require.NoError(t, err)
	require.JSONEq(t, `{"ok":true}`, string(raw))
}

func TestCallSurfacesRemoteError(t *testing.T) {
	client, node := NewMockPair()
	defer client.Close()
	defer node.Close()

	c := NewCorrelator(client)
	c.Run()

	go func() {
		f := <-node.Inbound()
		resp := Frame{JSONRPC: jsonrpcVersion, ID: f.ID, Error: &ErrorObject{Code: 5, Message: "nope"}}
		require.NoError(t, node.Send(resp))
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := c.Call(ctx, "channels.update.new", nil)
	require.Error(t, err)

	var remoteErr *RemoteError
	require.ErrorAs(t, err, &remoteErr)
	require.Equal(t, 5, remoteErr.Code)
}

func TestCallRespectsContextCancellation(t *testing.T) {
	client, node := NewMockPair()
	defer client.Close()
	defer node.Close()

	c := NewCorrelator(client)
	c.Run()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Call(ctx, "channels.update.new", nil)
	require.ErrorIs(t, err, context.Canceled)
}

func TestNotificationsAreRoutedSeparatelyFromResponses(t *testing.T) {
	client, node := NewMockPair()
	defer client.Close()
	defer node.Close()

	c := NewCorrelator(client)
	c.Run()

	require.NoError(t, node.Send(Frame{
		JSONRPC: jsonrpcVersion,
		Method:  "channels.info",
		Params:  json.RawMessage(`{"event":"channel_open"}`),
	}))

	select {
	case n := <-c.Notifications():
		require.Equal(t, "channels.info", n.Method)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for notification")
	}
}

func TestConnectionLossRejectsPendingCalls(t *testing.T) {
	client, node := NewMockPair()
	defer node.Close()

	c := NewCorrelator(client)
	c.Run()

	errCh := make(chan error, 1)
	go func() {
		_, err := c.Call(context.Background(), "channels.leave", nil)
		errCh <- err
	}()

	// Give the call a moment to register before tearing down.
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, client.Close())

	select {
	case err := <-errCh:
		require.ErrorIs(t, err, ErrConnectionLost)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for call to fail")
	}
}
