/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package comm

import (
	"sync"
	"time"

	"github.com/hyperledger-labs/iou-smart-client/pkg/utils/errors"
	"github.com/hyperledger-labs/iou-smart-client/platform/view/view"
)

var (
	// ErrSessionClosed is returned when a message is sent when the session is closed.
	ErrSessionClosed = errors.New("session closed")
	// ErrEndpointUnreachable is returned when the remote endpoint cannot be reached.
	ErrEndpointUnreachable = errors.New("endpoint unreachable")
)

const incomingBufferSize = 64

// LocalSession is one side of an in-process duplex stream.
// Messages sent on one side are delivered, in order, to the other side.
type LocalSession struct {
	hub          *Hub
	id           string
	contextID    string
	callerViewID string
	owner        view.Identity
	caller       view.Identity
	remote       view.Identity

	peer     *LocalSession
	incoming chan *view.Message

	mutex      sync.RWMutex
	closed     bool
	onFirstMsg func(*LocalSession)
	firstOnce  sync.Once
}

// Info returns a view.SessionInfo.
func (s *LocalSession) Info() view.SessionInfo {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return view.SessionInfo{
		ID:           s.id,
		Caller:       s.caller,
		CallerViewID: s.callerViewID,
		Closed:       s.closed,
	}
}

// ContextID returns the identifier of the initiator's context
func (s *LocalSession) ContextID() string {
	return s.contextID
}

// Remote returns the identity of the node on the other side of this session
func (s *LocalSession) Remote() view.Identity {
	return s.remote
}

// Send sends the payload to the endpoint.
func (s *LocalSession) Send(payload []byte) error {
	return s.sendWithStatus(payload, view.OK)
}

// SendError sends an error to the endpoint with the passed payload.
func (s *LocalSession) SendError(payload []byte) error {
	return s.sendWithStatus(payload, view.ERROR)
}

// Receive returns a channel of messages received from the endpoint
func (s *LocalSession) Receive() <-chan *view.Message {
	return s.incoming
}

// Close releases all the resources allocated by this session
func (s *LocalSession) Close() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.incoming)
	s.hub.openSessions.Dec()
}

func (s *LocalSession) sendWithStatus(payload []byte, status int32) error {
	s.mutex.RLock()
	closed := s.closed
	s.mutex.RUnlock()
	if closed {
		return ErrSessionClosed
	}
	if !s.hub.reachable(s.owner, s.remote) {
		return errors.Wrapf(ErrEndpointUnreachable, "cannot reach [%s] from [%s]", s.remote, s.owner)
	}

	msg := &view.Message{
		SessionID: s.id,
		ContextID: s.contextID,
		Caller:    s.callerViewID,
		FromID:    s.owner,
		Status:    status,
		Payload:   payload,
	}
	if err := s.peer.enqueue(msg, s.hub.sendTimeout); err != nil {
		return err
	}
	logger.Debugf("sent message [len:%d] to [%s] from [%s] [status:%d]", len(payload), s.remote, s.owner, status)

	s.peer.firstOnce.Do(func() {
		if s.peer.onFirstMsg != nil {
			go s.peer.onFirstMsg(s.peer)
		}
	})
	return nil
}

// enqueue enqueues a message into the session's incoming channel.
func (s *LocalSession) enqueue(msg *view.Message, timeout time.Duration) error {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	if s.closed {
		return ErrSessionClosed
	}

	select {
	case s.incoming <- msg:
		return nil
	default:
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case s.incoming <- msg:
		return nil
	case <-timer.C:
		return errors.Wrapf(ErrEndpointUnreachable, "session [%s] buffer full", s.id)
	}
}
