/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package states

import (
	"github.com/hyperledger-labs/iou-smart-client/pkg/utils"
	"github.com/hyperledger-labs/iou-smart-client/pkg/utils/errors"
	"github.com/hyperledger-labs/iou-smart-client/platform/view/view"
)

// IOU models a debt of the borrower towards the lender.
// An IOU is never modified in place, every change produces a new version
// that shares the LinearID of the previous one.
type IOU struct {
	// Amount the borrower owes the lender, fixed at issue
	Amount Amount `json:"amount"`
	// Lender is the identity currently owed the money
	Lender view.Identity `json:"lender"`
	// Borrower is the identity owing the money
	Borrower view.Identity `json:"borrower"`
	// Paid is the part of Amount already discharged
	Paid Amount `json:"paid"`
	// LinearID identifies all the versions of the same obligation
	LinearID string `json:"linearId"`
}

// NewIOU returns a fresh obligation with nothing paid and a new linear id
func NewIOU(amount Amount, lender, borrower view.Identity) *IOU {
	return &IOU{
		Amount:   amount,
		Lender:   lender,
		Borrower: borrower,
		Paid:     Zero(amount.Currency),
		LinearID: utils.GenerateUUID(),
	}
}

// Participants returns the identities entitled to see and sign changes of this record
func (i *IOU) Participants() view.Identities {
	return view.Identities{i.Lender, i.Borrower}
}

// Outstanding returns Amount - Paid
func (i *IOU) Outstanding() (Amount, error) {
	return i.Amount.Sub(i.Paid)
}

// Validate checks the invariants every accepted version must satisfy
func (i *IOU) Validate() error {
	if !i.Amount.IsPositive() {
		return errors.Errorf("amount must be positive, was [%s]", i.Amount)
	}
	if i.Lender.IsNone() || i.Borrower.IsNone() {
		return errors.New("lender and borrower must be set")
	}
	if i.Lender.Equal(i.Borrower) {
		return errors.New("lender and borrower must differ")
	}
	if len(i.LinearID) == 0 {
		return errors.New("linear id not set")
	}
	if i.Paid.IsNegative() {
		return errors.Errorf("paid must not be negative, was [%s]", i.Paid)
	}
	c, err := i.Paid.Cmp(i.Amount)
	if err != nil {
		return errors.WithMessagef(err, "invalid paid amount")
	}
	if c > 0 {
		return errors.Errorf("paid [%s] exceeds amount [%s]", i.Paid, i.Amount)
	}
	return nil
}

// WithLender returns a copy of this record owed to the passed lender
func (i *IOU) WithLender(lender view.Identity) *IOU {
	c := i.Copy()
	c.Lender = lender
	return c
}

// WithPayment returns a copy of this record with paid increased by the passed amount
func (i *IOU) WithPayment(amount Amount) (*IOU, error) {
	paid, err := i.Paid.Add(amount)
	if err != nil {
		return nil, err
	}
	c := i.Copy()
	c.Paid = paid
	return c, nil
}

// Copy returns a deep copy of this record
func (i *IOU) Copy() *IOU {
	return &IOU{
		Amount:   i.Amount,
		Lender:   append(view.Identity(nil), i.Lender...),
		Borrower: append(view.Identity(nil), i.Borrower...),
		Paid:     i.Paid,
		LinearID: i.LinearID,
	}
}

// Equal returns true if the two records carry the same values
func (i *IOU) Equal(o *IOU) bool {
	if i == nil || o == nil {
		return i == o
	}
	return i.Amount.Equal(o.Amount) &&
		i.Lender.Equal(o.Lender) &&
		i.Borrower.Equal(o.Borrower) &&
		i.Paid.Equal(o.Paid) &&
		i.LinearID == o.LinearID
}
