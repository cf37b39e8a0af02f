/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package cash

import (
	"github.com/hyperledger-labs/iou-smart-client/pkg/utils/errors"
	errors2 "github.com/hyperledger-labs/iou-smart-client/platform/iou/services/errors"
	"github.com/hyperledger-labs/iou-smart-client/platform/iou/services/tx"
	"github.com/hyperledger-labs/iou-smart-client/platform/iou/states"
	"github.com/hyperledger-labs/iou-smart-client/platform/view/view"
)

// Contract is the rule set of the cash states
type Contract struct{}

func NewContract() *Contract {
	return &Contract{}
}

// Verify checks that cash is conserved per currency and issuer and that the right parties signed
func (c *Contract) Verify(t *tx.Transaction) error {
	if err := c.verify(t); err != nil {
		return errors.Wrapf(errors2.ErrValidation, "[cash] %s", err)
	}
	return nil
}

func (c *Contract) verify(t *tx.Transaction) error {
	commands := t.CommandsOf(tx.CashContract)
	if len(commands) != 1 {
		return errors.Errorf("exactly one command expected, got [%d]", len(commands))
	}
	command := commands[0]

	var inputs []*states.Cash
	for _, in := range t.CashInputs() {
		inputs = append(inputs, in.State.Cash)
	}
	outputs := t.CashOutputs()
	for _, s := range append(append([]*states.Cash{}, inputs...), outputs...) {
		if !s.Amount.IsPositive() {
			return errors.Errorf("amounts must be positive, got [%s]", s.Amount)
		}
		if s.Owner.IsNone() || s.Issuer.IsNone() {
			return errors.New("owner and issuer must be set")
		}
	}

	switch command.Type {
	case tx.CashIssue:
		if len(inputs) != 0 {
			return errors.New("no input is allowed when issuing")
		}
		if len(outputs) == 0 {
			return errors.New("outputs expected")
		}
		var issuers view.Identities
		for _, out := range outputs {
			issuers = issuers.Union(out.Issuer)
		}
		if !command.Signers.Match(issuers) {
			return errors.Errorf("signers must be the issuers %v", issuers)
		}
	case tx.CashMove:
		if len(inputs) == 0 {
			return errors.New("inputs expected")
		}
		inSums, err := sums(inputs)
		if err != nil {
			return err
		}
		outSums, err := sums(outputs)
		if err != nil {
			return err
		}
		if len(inSums) != len(outSums) {
			return errors.New("cash not conserved")
		}
		for k, in := range inSums {
			out, ok := outSums[k]
			if !ok || !in.Equal(out) {
				return errors.Errorf("cash not conserved for [%s]", in.Currency)
			}
		}
		var owners view.Identities
		for _, in := range inputs {
			owners = owners.Union(in.Owner)
		}
		if !command.Signers.Match(owners) {
			return errors.Errorf("signers must be the owners of the inputs")
		}
	default:
		return errors.Errorf("unknown command [%s]", command.Type)
	}
	return nil
}

func sums(cash []*states.Cash) (map[string]states.Amount, error) {
	res := map[string]states.Amount{}
	for _, c := range cash {
		k := c.Amount.Currency + "|" + c.Issuer.UniqueID()
		sum, ok := res[k]
		if !ok {
			sum = states.Zero(c.Amount.Currency)
		}
		sum, err := sum.Add(c.Amount)
		if err != nil {
			return nil, err
		}
		res[k] = sum
	}
	return res, nil
}
