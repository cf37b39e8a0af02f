/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package views

import (
	"encoding/json"

	"github.com/hyperledger-labs/iou-smart-client/platform/iou/services/assembler"
	"github.com/hyperledger-labs/iou-smart-client/platform/iou/services/protocol"
	"github.com/hyperledger-labs/iou-smart-client/platform/iou/services/tx"
	"github.com/hyperledger-labs/iou-smart-client/platform/view/services/assert"
	"github.com/hyperledger-labs/iou-smart-client/platform/view/view"
)

// Transfer contains the input to hand an obligation over to a new lender
type Transfer struct {
	// LinearID is the unique identifier of the obligation
	LinearID string
	// NewLender is the identity of the node the borrower will owe to
	NewLender view.Identity
}

type TransferView struct {
	Transfer
}

func (t *TransferView) Call(context view.Context) (interface{}, error) {
	a, err := assembler.GetAssembler(context)
	assert.NoError(err, "failed getting assembler")

	// Only the current lender can transfer
	transfer, err := a.Transfer(context.Context(), t.LinearID, t.NewLender)
	if err != nil {
		return nil, err
	}

	res, err := context.RunView(protocol.NewCommitView(transfer))
	if err != nil {
		return nil, err
	}
	return result(res, t.LinearID, false), nil
}

type TransferViewFactory struct{}

func (c *TransferViewFactory) NewView(in []byte) (view.View, error) {
	f := &TransferView{}
	err := json.Unmarshal(in, &f.Transfer)
	assert.NoError(err)
	return f, nil
}

type TransferResponderView struct{}

func (t *TransferResponderView) Call(context view.Context) (interface{}, error) {
	return context.RunView(protocol.NewRespondView(checkTransfer))
}

func checkTransfer(context view.Context, t *tx.Transaction) error {
	command, err := t.IOUCommand()
	assert.NoError(err)
	assert.Equal(tx.Transfer, command.Type, "expected command [%s], got [%s]", tx.Transfer, command.Type)

	// One obligation in, its successor out
	assert.Equal(1, len(t.IOUInputs()), "invalid number of inputs, expected 1, was [%d]", len(t.IOUInputs()))
	assert.Equal(1, len(t.IOUOutputs()), "invalid number of outputs, expected 1, was [%d]", len(t.IOUOutputs()))
	in, out := t.IOUInputs()[0], t.IOUOutputs()[0]
	assert.Equal(in.LinearID, out.LinearID, "invalid state id, [%s] != [%s]", in.LinearID, out.LinearID)

	// This node is the borrower, the old lender or the new one
	assert.True(isParty(context, in) || isParty(context, out), "this node is not involved in [%s]", in.LinearID)

	// The old lender gives the obligation away, it signs first
	assert.True(t.SignedBy(in.Lender), "the lender has not signed")
	return nil
}
