package events

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEmitInvokesListenersInOrder(t *testing.T) {
	b := New()

	var order []int
	b.On(StatusChanged, func(payload interface{}) { order = append(order, 1) })
	b.On(StatusChanged, func(payload interface{}) { order = append(order, 2) })

	b.Emit(StatusChanged, "open")

	require.Equal(t, []int{1, 2}, order)
}

func TestEmitOnlyInvokesMatchingName(t *testing.T) {
	b := New()

	var gotStatus, gotState bool
	b.On(StatusChanged, func(payload interface{}) { gotStatus = true })
	b.On(StateChanged, func(payload interface{}) { gotState = true })

	b.Emit(StatusChanged, "open")

	require.True(t, gotStatus)
	require.False(t, gotState)
}

func TestEmitPassesPayload(t *testing.T) {
	b := New()

	var got interface{}
	b.On(Error, func(payload interface{}) { got = payload })

	b.Emit(Error, "boom")

	require.Equal(t, "boom", got)
}

func TestEmitWithNoListenersDoesNotPanic(t *testing.T) {
	b := New()
	require.NotPanics(t, func() { b.Emit(Message, nil) })
}
