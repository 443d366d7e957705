package signer

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeSigner struct {
	response RawResponse
	err      error

	lastTag Tag
}

func (f *fakeSigner) Sign(tx []byte, meta map[string]interface{}) (RawResponse, error) {
	return f.response, f.err
}

func (f *fakeSigner) SignTagged(tag Tag, tx []byte, meta map[string]interface{}) (RawResponse, error) {
	f.lastTag = tag
	return f.response, f.err
}

func TestBrokerSignAcceptsStringAsSignedTx(t *testing.T) {
	s := &fakeSigner{response: "deadbeef"}
	b := NewBroker(s)

	res, err := b.Sign([]byte("tx"), nil)
	require.NoError(t, err)
	require.True(t, res.Accepted())
	require.Equal(t, []byte("deadbeef"), res.SignedTx)
}

func TestBrokerSignAcceptsBytesAsSignedTx(t *testing.T) {
	s := &fakeSigner{response: []byte{1, 2, 3}}
	b := NewBroker(s)

	res, err := b.Sign([]byte("tx"), nil)
	require.NoError(t, err)
	require.True(t, res.Accepted())
	require.Equal(t, []byte{1, 2, 3}, res.SignedTx)
}

func TestBrokerSignTreatsNilAsRejection(t *testing.T) {
	s := &fakeSigner{response: nil}
	b := NewBroker(s)

	res, err := b.Sign([]byte("tx"), nil)
	require.NoError(t, err)
	require.False(t, res.Accepted())
	require.True(t, res.Rejected)
	require.Nil(t, res.AbortCode)
}

func TestBrokerSignTreatsIntAsAbortCode(t *testing.T) {
	s := &fakeSigner{response: 42}
	b := NewBroker(s)

	res, err := b.Sign([]byte("tx"), nil)
	require.NoError(t, err)
	require.False(t, res.Accepted())
	require.NotNil(t, res.AbortCode)
	require.Equal(t, 42, *res.AbortCode)
}

func TestBrokerRejectsUnrecognizedResponseType(t *testing.T) {
	s := &fakeSigner{response: 3.14}
	b := NewBroker(s)

	_, err := b.Sign([]byte("tx"), nil)
	require.Error(t, err)
}

func TestBrokerSignTaggedPassesTagThrough(t *testing.T) {
	s := &fakeSigner{response: "signed"}
	b := NewBroker(s)

	_, err := b.SignTagged(TagUpdateAck, []byte("tx"), nil)
	require.NoError(t, err)
	require.Equal(t, TagUpdateAck, s.lastTag)
}

type blockingSigner struct {
	entered chan struct{}
	release chan struct{}
}

func (b *blockingSigner) Sign(tx []byte, meta map[string]interface{}) (RawResponse, error) {
	close(b.entered)
	<-b.release
	return "signed", nil
}

func (b *blockingSigner) SignTagged(tag Tag, tx []byte, meta map[string]interface{}) (RawResponse, error) {
	return b.Sign(tx, meta)
}

func TestBrokerRejectsReentrantInvocation(t *testing.T) {
	s := &blockingSigner{entered: make(chan struct{}), release: make(chan struct{})}
	b := NewBroker(s)

	errCh := make(chan error, 1)
	go func() {
		_, err := b.Sign([]byte("tx"), nil)
		errCh <- err
	}()

	<-s.entered

	_, err := b.Sign([]byte("tx2"), nil)
	require.ErrorIs(t, err, ErrReentrant)

	close(s.release)
	require.NoError(t, <-errCh)
}

func TestBrokerPropagatesSignerError(t *testing.T) {
	s := &fakeSigner{err: fmt.Errorf("boom")}
	b := NewBroker(s)

	_, err := b.Sign([]byte("tx"), nil)
	require.EqualError(t, err, "boom")
}
