/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package protocol

import (
	"context"

	"github.com/hyperledger-labs/iou-smart-client/pkg/utils/errors"
	errors2 "github.com/hyperledger-labs/iou-smart-client/platform/iou/services/errors"
	"github.com/hyperledger-labs/iou-smart-client/platform/view/services/comm"
	"github.com/hyperledger-labs/iou-smart-client/platform/view/services/session"
)

// classify wraps the failures of the session layer into the error kinds callers branch on
func classify(err error) error {
	if err == nil || errors2.Kind(err) != nil {
		return err
	}
	switch {
	case errors.HasCause(err, context.Canceled), errors.HasCause(err, context.DeadlineExceeded):
		return errors.Wrapf(errors2.ErrCancelled, "%s", err)
	case errors.HasCause(err, session.ErrRemote):
		return errors.Wrapf(errors2.ErrSignatureRefused, "%s", err)
	case errors.HasCause(err, session.ErrTimeout),
		errors.HasCause(err, session.ErrClosed),
		errors.HasCause(err, comm.ErrSessionClosed),
		errors.HasCause(err, comm.ErrEndpointUnreachable):
		return errors.Wrapf(errors2.ErrTransport, "%s", err)
	}
	return err
}

// stalled returns true for the failures after which a process can be resumed from its last checkpoint
func stalled(err error) bool {
	switch errors2.Kind(err) {
	case errors2.ErrTransport, errors2.ErrCancelled:
		return true
	default:
		return false
	}
}

func outcomeOf(err error) string {
	if err == nil {
		return "finalized"
	}
	if k := errors2.Kind(err); k != nil {
		return k.Error()
	}
	return "error"
}
