/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package tx

import (
	"github.com/hyperledger-labs/iou-smart-client/pkg/utils/errors"
	"github.com/hyperledger-labs/iou-smart-client/platform/view/view"
)

const (
	// IOUContract governs the obligation records
	IOUContract = "iou"
	// CashContract governs the cash states
	CashContract = "cash"
)

// Commands of the IOU contract
const (
	Issue    = "issue"
	Transfer = "transfer"
	Settle   = "settle"
)

// Commands of the cash contract
const (
	CashIssue = "issue"
	CashMove  = "move"
)

// Command is a type tag for a contract together with the identities that must sign
type Command struct {
	Contract string          `json:"contract"`
	Type     string          `json:"type"`
	Signers  view.Identities `json:"signers"`
}

// CommandsOf returns the commands of the passed contract
func (t *Transaction) CommandsOf(contract string) []*Command {
	var res []*Command
	for _, c := range t.Commands {
		if c.Contract == contract {
			res = append(res, c)
		}
	}
	return res
}

// IOUCommand returns the single command of the IOU contract
func (t *Transaction) IOUCommand() (*Command, error) {
	commands := t.CommandsOf(IOUContract)
	if len(commands) != 1 {
		return nil, errors.Errorf("expected exactly one [%s] command, got [%d]", IOUContract, len(commands))
	}
	return commands[0], nil
}
