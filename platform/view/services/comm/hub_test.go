/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package comm

import (
	"testing"
	"time"

	"github.com/hyperledger-labs/iou-smart-client/pkg/utils/errors"
	"github.com/hyperledger-labs/iou-smart-client/platform/view/view"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoResponder struct {
	sessions chan *LocalSession
}

func (e *echoResponder) Respond(session *LocalSession) {
	e.sessions <- session
	for msg := range session.Receive() {
		if err := session.Send(append([]byte("echo:"), msg.Payload...)); err != nil {
			return
		}
	}
}

func TestSessionRoundTrip(t *testing.T) {
	hub := NewHub()
	alice, bob := view.Identity("alice"), view.Identity("bob")
	responder := &echoResponder{sessions: make(chan *LocalSession, 1)}
	hub.Register(bob, responder)

	s, err := hub.OpenSession(alice, "initiator", "ctx1", bob)
	require.NoError(t, err)
	assert.Equal(t, bob, s.Remote())

	require.NoError(t, s.Send([]byte("hello")))
	require.NoError(t, s.Send([]byte("world")))

	for _, expected := range []string{"echo:hello", "echo:world"} {
		select {
		case msg := <-s.Receive():
			assert.Equal(t, expected, string(msg.Payload))
			assert.Equal(t, int32(view.OK), msg.Status)
			assert.Equal(t, bob, msg.FromID)
		case <-time.After(5 * time.Second):
			t.Fatal("timeout")
		}
	}

	remote := <-responder.sessions
	info := remote.Info()
	assert.Equal(t, s.Info().ID, info.ID)
	assert.Equal(t, alice, info.Caller)
	assert.Equal(t, "initiator", info.CallerViewID)
	assert.Equal(t, "ctx1", remote.ContextID())

	s.Close()
	assert.True(t, s.Info().Closed)
	assert.True(t, errors.HasCause(s.Send([]byte("late")), ErrSessionClosed))
}

func TestUnknownEndpoint(t *testing.T) {
	hub := NewHub()
	_, err := hub.OpenSession(view.Identity("alice"), "initiator", "ctx", view.Identity("nobody"))
	assert.True(t, errors.HasCause(err, ErrEndpointUnreachable))
}

func TestLinkDown(t *testing.T) {
	hub := NewHub()
	alice, bob := view.Identity("alice"), view.Identity("bob")
	hub.Register(bob, &echoResponder{sessions: make(chan *LocalSession, 1)})

	s, err := hub.OpenSession(alice, "initiator", "ctx", bob)
	require.NoError(t, err)

	hub.SetLinkDown(bob, true)
	assert.True(t, errors.HasCause(s.Send([]byte("x")), ErrEndpointUnreachable))
	_, err = hub.OpenSession(alice, "initiator", "ctx", bob)
	assert.True(t, errors.HasCause(err, ErrEndpointUnreachable))

	hub.SetLinkDown(bob, false)
	assert.NoError(t, s.Send([]byte("x")))
}
