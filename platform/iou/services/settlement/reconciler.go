/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package settlement

import (
	"context"

	"github.com/hyperledger-labs/iou-smart-client/pkg/utils/errors"
	"github.com/hyperledger-labs/iou-smart-client/platform/common/services/logging"
	"github.com/hyperledger-labs/iou-smart-client/platform/iou/driver"
	errors2 "github.com/hyperledger-labs/iou-smart-client/platform/iou/services/errors"
	"github.com/hyperledger-labs/iou-smart-client/platform/iou/states"
	"github.com/hyperledger-labs/iou-smart-client/platform/view/view"
)

var logger = logging.MustGetLogger("iou.settlement")

// Settlement is the outcome of reconciling a payment against an obligation
type Settlement struct {
	// Successor is the next version of the obligation, nil when the payment closes it
	Successor *states.IOU
	// Payment holds the cash legs and the keys they need
	Payment *driver.Spend
}

// Closes returns true if the payment discharges the whole obligation
func (s *Settlement) Closes() bool {
	return s.Successor == nil
}

// Reconciler matches payments with the outstanding balance of obligations
type Reconciler struct {
	cash driver.CashLedger
}

func NewReconciler(cash driver.CashLedger) *Reconciler {
	return &Reconciler{cash: cash}
}

// Reconcile checks that payer can pay amount towards current and requests the payment from the cash ledger
func (r *Reconciler) Reconcile(ctx context.Context, current *states.IOU, amount states.Amount, payer view.Identity) (*Settlement, error) {
	if amount.Currency != current.Amount.Currency {
		return nil, errors.Wrapf(errors2.ErrValidation, "payment in [%s], obligation in [%s]", amount.Currency, current.Amount.Currency)
	}
	if !amount.IsPositive() {
		return nil, errors.Wrapf(errors2.ErrValidation, "payment must be positive, got [%s]", amount)
	}

	balance, err := r.cash.Balance(ctx, amount.Currency)
	if err != nil {
		return nil, errors.WithMessagef(err, "failed getting balance")
	}
	if c, err := balance.Cmp(amount); err != nil || c < 0 {
		return nil, errors.Wrapf(errors2.ErrInsufficientFunds, "balance [%s], requested [%s]", balance, amount)
	}

	outstanding, err := current.Outstanding()
	if err != nil {
		return nil, err
	}
	c, err := amount.Cmp(outstanding)
	if err != nil {
		return nil, err
	}
	if c > 0 {
		return nil, errors.Wrapf(errors2.ErrOverpayment, "payment [%s], outstanding [%s]", amount, outstanding)
	}

	spend, err := r.cash.GenerateSpend(ctx, amount, payer, current.Lender)
	if err != nil {
		return nil, errors.WithMessagef(err, "failed generating payment")
	}

	res := &Settlement{Payment: spend}
	if c < 0 {
		if res.Successor, err = current.WithPayment(amount); err != nil {
			return nil, err
		}
	}
	logger.Debugf("payment of [%s] on [%s], closes [%v]", amount, current.LinearID, res.Closes())
	return res, nil
}
