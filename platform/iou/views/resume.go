/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package views

import (
	"encoding/json"

	"github.com/hyperledger-labs/iou-smart-client/pkg/utils/errors"
	"github.com/hyperledger-labs/iou-smart-client/platform/iou/services/protocol"
	"github.com/hyperledger-labs/iou-smart-client/platform/iou/services/tx"
	"github.com/hyperledger-labs/iou-smart-client/platform/view/services/assert"
	"github.com/hyperledger-labs/iou-smart-client/platform/view/view"
)

type ResumeViewFactory struct{}

func (c *ResumeViewFactory) NewView(in []byte) (view.View, error) {
	f := &protocol.ResumeView{}
	err := json.Unmarshal(in, f)
	assert.NoError(err)
	return f, nil
}

// ResumeResponderView answers a resumed process, whatever its command
type ResumeResponderView struct{}

func (r *ResumeResponderView) Call(context view.Context) (interface{}, error) {
	return context.RunView(protocol.NewRespondView(checkAny))
}

func checkAny(context view.Context, t *tx.Transaction) error {
	command, err := t.IOUCommand()
	if err != nil {
		return err
	}
	switch command.Type {
	case tx.Issue:
		return checkIssue(context, t)
	case tx.Transfer:
		return checkTransfer(context, t)
	case tx.Settle:
		return checkSettle(context, t)
	default:
		return errors.Errorf("invalid command [%s]", command.Type)
	}
}
