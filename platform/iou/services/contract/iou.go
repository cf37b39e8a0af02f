/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package contract

import (
	"github.com/hyperledger-labs/iou-smart-client/pkg/utils/errors"
	errors2 "github.com/hyperledger-labs/iou-smart-client/platform/iou/services/errors"
	"github.com/hyperledger-labs/iou-smart-client/platform/iou/services/tx"
	"github.com/hyperledger-labs/iou-smart-client/platform/iou/states"
	"github.com/hyperledger-labs/iou-smart-client/platform/view/view"
)

// IOU is the rule set of the obligation records.
// It is a pure function of the transaction.
type IOU struct{}

func NewIOU() *IOU {
	return &IOU{}
}

// Verify accepts the transaction or returns an ErrValidation with the first failing reason
func (c *IOU) Verify(t *tx.Transaction) error {
	command, err := t.IOUCommand()
	if err != nil {
		return errors.Wrapf(errors2.ErrValidation, "%s", err)
	}
	switch command.Type {
	case tx.Issue:
		err = verifyIssue(t, command)
	case tx.Transfer:
		err = verifyTransfer(t, command)
	case tx.Settle:
		err = verifySettle(t, command)
	default:
		err = errors.Errorf("unknown command [%s]", command.Type)
	}
	if err != nil {
		return errors.Wrapf(errors2.ErrValidation, "[%s] %s", command.Type, err)
	}
	return nil
}

func verifyIssue(t *tx.Transaction, command *tx.Command) error {
	if len(t.IOUInputs()) != 0 {
		return errors.New("no input is allowed when issuing")
	}
	outputs := t.IOUOutputs()
	if len(outputs) != 1 {
		return errors.Errorf("exactly one output expected, got [%d]", len(outputs))
	}
	out := outputs[0]
	if err := out.Validate(); err != nil {
		return err
	}
	if !out.Paid.IsZero() {
		return errors.Errorf("a new obligation must have nothing paid, got [%s]", out.Paid)
	}
	return requireSigners(command, out.Lender, out.Borrower)
}

func verifyTransfer(t *tx.Transaction, command *tx.Command) error {
	inputs, outputs := t.IOUInputs(), t.IOUOutputs()
	if len(inputs) != 1 {
		return errors.Errorf("exactly one input expected, got [%d]", len(inputs))
	}
	if len(outputs) != 1 {
		return errors.Errorf("exactly one output expected, got [%d]", len(outputs))
	}
	in, out := inputs[0], outputs[0]
	if in.Lender.Equal(out.Lender) {
		return errors.New("the lender must change")
	}
	if !in.WithLender(out.Lender).Equal(out) {
		return errors.New("only the lender may change")
	}
	if err := out.Validate(); err != nil {
		return err
	}
	return requireSigners(command, in.Lender, in.Borrower, out.Lender)
}

func verifySettle(t *tx.Transaction, command *tx.Command) error {
	groups := t.GroupIOUStates()
	if len(groups) != 1 {
		return errors.Errorf("exactly one obligation expected, got [%d]", len(groups))
	}
	group := groups[0]
	if len(group.Inputs) != 1 {
		return errors.Errorf("exactly one input expected, got [%d]", len(group.Inputs))
	}
	in := group.Inputs[0]

	cash := t.CashOutputs()
	if len(cash) == 0 {
		return errors.New("cash outputs expected")
	}
	settled := states.Zero(in.Amount.Currency)
	payments := 0
	for _, c := range cash {
		if !c.Owner.Equal(in.Lender) || c.Amount.Currency != in.Amount.Currency {
			continue
		}
		var err error
		settled, err = settled.Add(c.Amount)
		if err != nil {
			return err
		}
		payments++
	}
	if payments == 0 || !settled.IsPositive() {
		return errors.Errorf("no payment to the lender [%s]", in.Lender)
	}

	outstanding, err := in.Outstanding()
	if err != nil {
		return err
	}
	cmp, err := settled.Cmp(outstanding)
	if err != nil {
		return err
	}
	switch {
	case cmp > 0:
		return errors.Errorf("settled [%s] exceeds outstanding [%s]", settled, outstanding)
	case cmp == 0:
		if len(group.Outputs) != 0 {
			return errors.New("a fully settled obligation must not have a successor")
		}
	default:
		if len(group.Outputs) != 1 {
			return errors.Errorf("exactly one successor expected, got [%d]", len(group.Outputs))
		}
		out := group.Outputs[0]
		if !out.Borrower.Equal(in.Borrower) || !out.Lender.Equal(in.Lender) || !out.Amount.Equal(in.Amount) {
			return errors.New("borrower, lender and amount must not change")
		}
		expected, err := in.WithPayment(settled)
		if err != nil {
			return err
		}
		if !out.Paid.Equal(expected.Paid) {
			return errors.Errorf("paid must be [%s], got [%s]", expected.Paid, out.Paid)
		}
		if err := out.Validate(); err != nil {
			return err
		}
	}
	return requireSigners(command, in.Lender, in.Borrower)
}

func requireSigners(command *tx.Command, expected ...view.Identity) error {
	if !command.Signers.Match(expected) {
		return errors.Errorf("signers must be exactly %v, got %v", view.Identities(expected), command.Signers)
	}
	return nil
}
