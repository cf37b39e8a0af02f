/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package protocol

import (
	"context"
	"testing"

	"github.com/hyperledger-labs/iou-smart-client/pkg/utils/errors"
	errors2 "github.com/hyperledger-labs/iou-smart-client/platform/iou/services/errors"
	"github.com/hyperledger-labs/iou-smart-client/platform/view/services/comm"
	"github.com/hyperledger-labs/iou-smart-client/platform/view/services/session"
	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	for _, tc := range []struct {
		err      error
		expected error
		stalled  bool
	}{
		{errors.Wrapf(context.Canceled, "context done"), errors2.ErrCancelled, true},
		{errors.Wrapf(session.ErrRemote, "[no]"), errors2.ErrSignatureRefused, false},
		{errors.Wrapf(session.ErrTimeout, "after [1s]"), errors2.ErrTransport, true},
		{errors.WithMessagef(comm.ErrEndpointUnreachable, "bob"), errors2.ErrTransport, true},
		{errors.Wrapf(errors2.ErrNotaryConflict, "spent"), errors2.ErrNotaryConflict, false},
	} {
		err := classify(tc.err)
		assert.True(t, errors.HasCause(err, tc.expected), "%s", tc.err)
		assert.Equal(t, tc.stalled, stalled(err), "%s", tc.err)
	}
	assert.Nil(t, classify(nil))
	other := errors.New("boom")
	assert.Equal(t, other, classify(other))
	assert.Equal(t, "error", outcomeOf(other))
	assert.Equal(t, "finalized", outcomeOf(nil))
	assert.Equal(t, errors2.ErrNotaryConflict.Error(), outcomeOf(errors.Wrapf(errors2.ErrNotaryConflict, "x")))
}
