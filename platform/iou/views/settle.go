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
	"github.com/hyperledger-labs/iou-smart-client/platform/iou/states"
	"github.com/hyperledger-labs/iou-smart-client/platform/view/services/assert"
	"github.com/hyperledger-labs/iou-smart-client/platform/view/view"
)

// Settle contains the input to pay off, partially or fully, an obligation
type Settle struct {
	// LinearID is the unique identifier of the obligation
	LinearID string
	// Amount to pay to the lender, in the currency of the obligation
	Amount states.Amount
}

type SettleView struct {
	Settle
}

func (s *SettleView) Call(context view.Context) (interface{}, error) {
	a, err := assembler.GetAssembler(context)
	assert.NoError(err, "failed getting assembler")

	// Only the borrower can settle. Funds and outstanding balance are checked before anything is built.
	t, settlement, err := a.Settle(context.Context(), s.LinearID, s.Amount)
	if err != nil {
		return nil, err
	}

	res, err := context.RunView(protocol.NewCommitView(t))
	if err != nil {
		return nil, err
	}
	return result(res, s.LinearID, settlement.Closes()), nil
}

type SettleViewFactory struct{}

func (c *SettleViewFactory) NewView(in []byte) (view.View, error) {
	f := &SettleView{}
	err := json.Unmarshal(in, &f.Settle)
	assert.NoError(err)
	return f, nil
}

type SettleResponderView struct{}

func (s *SettleResponderView) Call(context view.Context) (interface{}, error) {
	return context.RunView(protocol.NewRespondView(checkSettle))
}

func checkSettle(context view.Context, t *tx.Transaction) error {
	command, err := t.IOUCommand()
	assert.NoError(err)
	assert.Equal(tx.Settle, command.Type, "expected command [%s], got [%s]", tx.Settle, command.Type)

	// The obligation is consumed, a successor exists only for a partial payment
	assert.Equal(1, len(t.IOUInputs()), "invalid number of inputs, expected 1, was [%d]", len(t.IOUInputs()))
	assert.True(len(t.IOUOutputs()) <= 1, "invalid number of outputs, expected at most 1, was [%d]", len(t.IOUOutputs()))
	in := t.IOUInputs()[0]
	assert.True(isParty(context, in), "this node is neither lender nor borrower of [%s]", in.LinearID)

	// Some cash reaches the lender
	paid := false
	for _, c := range t.CashOutputs() {
		if c.Owner.Equal(in.Lender) {
			paid = true
		}
	}
	assert.True(paid, "no payment to the lender")
	assert.True(t.SignedBy(in.Borrower), "the borrower has not signed")
	return nil
}
