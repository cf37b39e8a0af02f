/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package states

import (
	"fmt"

	"github.com/hyperledger-labs/iou-smart-client/pkg/utils/errors"
	"github.com/shopspring/decimal"
)

// Amount is a monetary quantity in a fixed currency
type Amount struct {
	Quantity decimal.Decimal `json:"quantity"`
	Currency string          `json:"currency"`
}

// NewAmount returns the amount for the passed decimal string
func NewAmount(quantity string, currency string) (Amount, error) {
	q, err := decimal.NewFromString(quantity)
	if err != nil {
		return Amount{}, errors.Wrapf(err, "invalid quantity [%s]", quantity)
	}
	if len(currency) == 0 {
		return Amount{}, errors.New("currency not set")
	}
	return Amount{Quantity: q, Currency: currency}, nil
}

// MustAmount is NewAmount for literals, it panics on a malformed quantity
func MustAmount(quantity string, currency string) Amount {
	a, err := NewAmount(quantity, currency)
	if err != nil {
		panic(err)
	}
	return a
}

// Zero returns the zero amount in the passed currency
func Zero(currency string) Amount {
	return Amount{Quantity: decimal.Zero, Currency: currency}
}

func (a Amount) IsPositive() bool {
	return a.Quantity.IsPositive()
}

func (a Amount) IsNegative() bool {
	return a.Quantity.IsNegative()
}

func (a Amount) IsZero() bool {
	return a.Quantity.IsZero()
}

// Add returns a+b, both must be in the same currency
func (a Amount) Add(b Amount) (Amount, error) {
	if err := a.sameCurrency(b); err != nil {
		return Amount{}, err
	}
	return Amount{Quantity: a.Quantity.Add(b.Quantity), Currency: a.Currency}, nil
}

// Sub returns a-b, both must be in the same currency
func (a Amount) Sub(b Amount) (Amount, error) {
	if err := a.sameCurrency(b); err != nil {
		return Amount{}, err
	}
	return Amount{Quantity: a.Quantity.Sub(b.Quantity), Currency: a.Currency}, nil
}

// Cmp compares a and b, both must be in the same currency.
// It returns -1 if a < b, 0 if a == b, and 1 if a > b.
func (a Amount) Cmp(b Amount) (int, error) {
	if err := a.sameCurrency(b); err != nil {
		return 0, err
	}
	return a.Quantity.Cmp(b.Quantity), nil
}

// Equal returns true if a and b have the same currency and quantity
func (a Amount) Equal(b Amount) bool {
	return a.Currency == b.Currency && a.Quantity.Equal(b.Quantity)
}

func (a Amount) String() string {
	return fmt.Sprintf("%s %s", a.Quantity.String(), a.Currency)
}

func (a Amount) sameCurrency(b Amount) error {
	if a.Currency != b.Currency {
		return errors.Errorf("currency mismatch [%s]!=[%s]", a.Currency, b.Currency)
	}
	return nil
}
