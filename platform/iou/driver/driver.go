/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package driver

import (
	"context"

	"github.com/hyperledger-labs/iou-smart-client/platform/iou/services/tx"
	"github.com/hyperledger-labs/iou-smart-client/platform/iou/states"
	"github.com/hyperledger-labs/iou-smart-client/platform/view/view"
)

// StateAndRef is an unconsumed obligation record together with where it was produced
type StateAndRef struct {
	Ref    tx.StateRef   `json:"ref"`
	IOU    *states.IOU   `json:"iou"`
	Notary view.Identity `json:"notary"`
}

// Vault is the local ledger store of a node
type Vault interface {
	// FindUnconsumed returns the unconsumed versions of the record with the passed linear id.
	// More than one result denotes a conflict.
	FindUnconsumed(ctx context.Context, linearID string) ([]*StateAndRef, error)
	// Transaction returns the finalized transaction with the passed id
	Transaction(ctx context.Context, txID string) (*tx.Transaction, error)
}

// FinalityListener is notified of every transaction that reached finality at this node
type FinalityListener interface {
	OnFinalized(ctx context.Context, tx *tx.Transaction) error
}

// Notary orders transactions and prevents double spending
type Notary interface {
	// Identity returns the identity the notary signs its proofs with
	Identity() view.Identity
	// Notarize checks the signatures of the transaction and consumes its inputs.
	// It returns a conflict error when any input was consumed already.
	Notarize(ctx context.Context, tx *tx.Transaction) (*tx.Proof, error)
	// Lookup returns the notarized transaction with the passed id
	Lookup(ctx context.Context, txID string) (*tx.Transaction, error)
}

// NotaryDirectory resolves notary identities to notary services
type NotaryDirectory interface {
	Notary(id view.Identity) (Notary, error)
}

// NotarySelector decides which notary orders a transaction
type NotarySelector interface {
	// Select returns the notary for a transaction whose inputs were ordered by the passed notaries
	Select(inputNotaries ...view.Identity) (view.Identity, error)
}

// Spend is the cash part of a payment
type Spend struct {
	Inputs  []*tx.Input
	Outputs []*states.Cash
	// Signers are the owners of the consumed cash
	Signers []view.Identity
	// Notaries are the notaries that ordered the consumed cash
	Notaries []view.Identity
}

// CashLedger is the cash sub-ledger of a node
type CashLedger interface {
	// Balance returns the cash this node owns in the passed currency
	Balance(ctx context.Context, currency string) (states.Amount, error)
	// GenerateSpend selects cash worth amount owned by payer and pays it to payee
	GenerateSpend(ctx context.Context, amount states.Amount, payer, payee view.Identity) (*Spend, error)
}

// Contract verifies the states of one contract in a transaction
type Contract interface {
	Verify(tx *tx.Transaction) error
}

// LocalMembership tells which identities belong to this node
type LocalMembership interface {
	IsMe(ctx context.Context, id view.Identity) bool
}
