/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package session

import (
	"context"
	"time"

	"github.com/hyperledger-labs/iou-smart-client/pkg/utils/errors"
	"github.com/hyperledger-labs/iou-smart-client/platform/view/view"
)

var (
	// ErrRemote is returned when the remote party answered with an error message
	ErrRemote = errors.New("received error from remote")
	// ErrTimeout is returned when no message arrived in time
	ErrTimeout = errors.New("time out reached")
	// ErrClosed is returned when the session got closed while waiting
	ErrClosed = errors.New("session closed")
)

// DefaultTimeout bounds every receive that does not specify its own timeout
const DefaultTimeout = 30 * time.Second

type Session interface {
	view.Session
}

// ReadMessageWithTimeout reads the next payload from session honouring the passed context
func ReadMessageWithTimeout(ctx context.Context, session Session, d time.Duration) ([]byte, error) {
	if d <= 0 {
		d = DefaultTimeout
	}
	timeout := time.NewTimer(d)
	defer timeout.Stop()

	select {
	case msg, ok := <-session.Receive():
		if !ok {
			return nil, ErrClosed
		}
		if msg.Status == view.ERROR {
			return nil, errors.Wrapf(ErrRemote, "[%s]", string(msg.Payload))
		}
		return msg.Payload, nil
	case <-timeout.C:
		return nil, errors.Wrapf(ErrTimeout, "after [%s]", d)
	case <-ctx.Done():
		return nil, errors.Wrapf(ctx.Err(), "context done")
	}
}

// ReadFirstMessage reads the message that triggered the responder bound to context
func ReadFirstMessage(context view.Context) (Session, []byte, error) {
	session := context.Session()
	if session == nil {
		return nil, nil, errors.New("no default session, not a responder context")
	}
	payload, err := ReadMessageWithTimeout(context.Context(), session, DefaultTimeout)
	if err != nil {
		return nil, nil, err
	}
	return session, payload, nil
}
