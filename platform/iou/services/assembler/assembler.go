/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package assembler

import (
	"context"
	"reflect"

	"github.com/hyperledger-labs/iou-smart-client/pkg/utils/errors"
	"github.com/hyperledger-labs/iou-smart-client/platform/common/services/logging"
	"github.com/hyperledger-labs/iou-smart-client/platform/iou/driver"
	errors2 "github.com/hyperledger-labs/iou-smart-client/platform/iou/services/errors"
	"github.com/hyperledger-labs/iou-smart-client/platform/iou/services/settlement"
	"github.com/hyperledger-labs/iou-smart-client/platform/iou/services/tx"
	"github.com/hyperledger-labs/iou-smart-client/platform/iou/states"
	"github.com/hyperledger-labs/iou-smart-client/platform/view/view"
)

var logger = logging.MustGetLogger("iou.assembler")

// Assembler builds candidate transactions for the IOU commands
type Assembler struct {
	vault      driver.Vault
	notaries   driver.NotarySelector
	reconciler *settlement.Reconciler
	membership driver.LocalMembership
}

func New(vault driver.Vault, notaries driver.NotarySelector, reconciler *settlement.Reconciler, membership driver.LocalMembership) *Assembler {
	return &Assembler{
		vault:      vault,
		notaries:   notaries,
		reconciler: reconciler,
		membership: membership,
	}
}

// GetAssembler returns the assembler registered in the passed service provider
func GetAssembler(sp view.ServiceProvider) (*Assembler, error) {
	s, err := sp.GetService(reflect.TypeOf((*Assembler)(nil)))
	if err != nil {
		return nil, err
	}
	return s.(*Assembler), nil
}

// Current returns the only unconsumed version of the obligation with the passed linear id
func (a *Assembler) Current(ctx context.Context, linearID string) (*driver.StateAndRef, error) {
	found, err := a.vault.FindUnconsumed(ctx, linearID)
	if err != nil {
		return nil, errors.WithMessagef(err, "failed querying [%s]", linearID)
	}
	switch len(found) {
	case 0:
		return nil, errors.Wrapf(errors2.ErrStateNotFound, "no unconsumed obligation [%s]", linearID)
	case 1:
		return found[0], nil
	default:
		return nil, errors.Wrapf(errors2.ErrAmbiguousState, "[%d] unconsumed versions of [%s]", len(found), linearID)
	}
}

// Issue builds the transaction creating a new obligation
func (a *Assembler) Issue(ctx context.Context, amount states.Amount, lender, borrower view.Identity) (*tx.Transaction, error) {
	notary, err := a.notaries.Select()
	if err != nil {
		return nil, err
	}
	iou := states.NewIOU(amount, lender, borrower)
	t := tx.New(notary)
	t.AddIOUOutput(iou)
	t.AddCommand(tx.IOUContract, tx.Issue, lender, borrower)
	if err := t.Seal(); err != nil {
		return nil, err
	}
	logger.Debugf("assembled issue [%s] of [%s]", t.ID, iou.LinearID)
	return t, nil
}

// Transfer builds the transaction moving the obligation to a new lender.
// Only the current lender may transfer.
func (a *Assembler) Transfer(ctx context.Context, linearID string, newLender view.Identity) (*tx.Transaction, error) {
	current, err := a.Current(ctx, linearID)
	if err != nil {
		return nil, err
	}
	if !a.membership.IsMe(ctx, current.IOU.Lender) {
		return nil, errors.Wrapf(errors2.ErrUnauthorized, "only the lender can transfer [%s]", linearID)
	}
	notary, err := a.notaries.Select(current.Notary)
	if err != nil {
		return nil, err
	}

	t := tx.New(notary)
	t.AddIOUInput(current.Ref, current.IOU)
	t.AddIOUOutput(current.IOU.WithLender(newLender))
	t.AddCommand(tx.IOUContract, tx.Transfer, current.IOU.Lender, current.IOU.Borrower, newLender)
	if err := t.Seal(); err != nil {
		return nil, err
	}
	logger.Debugf("assembled transfer [%s] of [%s] to [%s]", t.ID, linearID, newLender)
	return t, nil
}

// Settle builds the transaction paying amount towards the obligation.
// Only the borrower may settle.
func (a *Assembler) Settle(ctx context.Context, linearID string, amount states.Amount) (*tx.Transaction, *settlement.Settlement, error) {
	current, err := a.Current(ctx, linearID)
	if err != nil {
		return nil, nil, err
	}
	iou := current.IOU
	if !a.membership.IsMe(ctx, iou.Borrower) {
		return nil, nil, errors.Wrapf(errors2.ErrUnauthorized, "only the borrower can settle [%s]", linearID)
	}

	s, err := a.reconciler.Reconcile(ctx, iou, amount, iou.Borrower)
	if err != nil {
		return nil, nil, err
	}
	notary, err := a.notaries.Select(append([]view.Identity{current.Notary}, s.Payment.Notaries...)...)
	if err != nil {
		return nil, nil, err
	}

	t := tx.New(notary)
	t.AddIOUInput(current.Ref, iou)
	for _, in := range s.Payment.Inputs {
		t.AddCashInput(in.Ref, in.State.Cash)
	}
	if s.Successor != nil {
		t.AddIOUOutput(s.Successor)
	}
	for _, out := range s.Payment.Outputs {
		t.AddCashOutput(out)
	}
	t.AddCommand(tx.IOUContract, tx.Settle, iou.Lender, iou.Borrower)
	t.AddCommand(tx.CashContract, tx.CashMove, s.Payment.Signers...)
	if err := t.Seal(); err != nil {
		return nil, nil, err
	}
	logger.Debugf("assembled settle [%s] of [%s] for [%s], closes [%v]", t.ID, linearID, amount, s.Closes())
	return t, s, nil
}
