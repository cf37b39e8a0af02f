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

// Result is returned by the initiator views once the transaction is finalized
type Result struct {
	TxID     string
	LinearID string
	// Closed is true when a settlement paid off the obligation
	Closed bool
	// Undelivered lists the parties that did not receive the notarized transaction
	Undelivered []view.Identity
}

// Issue contains the input to record a new obligation
type Issue struct {
	// Amount the borrower owes the lender
	Amount states.Amount
	// Lender is the identity of the lender's node
	Lender view.Identity
	// Borrower is the identity of the borrower's node
	Borrower view.Identity
}

type IssueView struct {
	Issue
}

func (i *IssueView) Call(context view.Context) (interface{}, error) {
	a, err := assembler.GetAssembler(context)
	assert.NoError(err, "failed getting assembler")

	// The amount and the parties are left to the contracts, CommitView runs them before signing
	t, err := a.Issue(context.Context(), i.Amount, i.Lender, i.Borrower)
	if err != nil {
		return nil, err
	}
	linearID := t.IOUOutputs()[0].LinearID

	res, err := context.RunView(protocol.NewCommitView(t))
	if err != nil {
		return nil, err
	}
	return result(res, linearID, false), nil
}

type IssueViewFactory struct{}

func (c *IssueViewFactory) NewView(in []byte) (view.View, error) {
	f := &IssueView{}
	err := json.Unmarshal(in, &f.Issue)
	assert.NoError(err)
	return f, nil
}

type IssueResponderView struct{}

func (i *IssueResponderView) Call(context view.Context) (interface{}, error) {
	return context.RunView(protocol.NewRespondView(checkIssue))
}

func checkIssue(context view.Context, t *tx.Transaction) error {
	command, err := t.IOUCommand()
	assert.NoError(err)
	assert.Equal(tx.Issue, command.Type, "expected command [%s], got [%s]", tx.Issue, command.Type)

	// No obligation consumed, a single one produced
	assert.Equal(0, len(t.IOUInputs()), "invalid number of inputs, expected 0, was [%d]", len(t.IOUInputs()))
	assert.Equal(1, len(t.IOUOutputs()), "invalid number of outputs, expected 1, was [%d]", len(t.IOUOutputs()))
	out := t.IOUOutputs()[0]

	// This node is one of the two parties and the command asks both of them to sign
	assert.True(isParty(context, out), "this node is neither lender nor borrower of [%s]", out.LinearID)
	assert.True(command.Signers.Match(out.Participants()), "the command does not contain the lender and borrower identities")
	return nil
}

func result(res interface{}, linearID string, closed bool) *Result {
	outcome := res.(*protocol.Outcome)
	return &Result{
		TxID:        outcome.Transaction.ID,
		LinearID:    linearID,
		Closed:      closed,
		Undelivered: outcome.Undelivered,
	}
}

func isParty(context view.Context, iou *states.IOU) bool {
	for _, id := range iou.Participants() {
		if context.IsMe(id) {
			return true
		}
	}
	return false
}
