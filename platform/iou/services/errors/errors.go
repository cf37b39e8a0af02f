/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package errors lists the kinds of failure of the IOU operations.
// Every rejection wraps exactly one of them together with the specific reason.
package errors

import (
	"github.com/hyperledger-labs/iou-smart-client/pkg/utils/errors"
)

var (
	// ErrUnauthorized is returned when a party attempts an operation its role does not allow
	ErrUnauthorized = errors.New("unauthorized")
	// ErrValidation is returned when a transaction breaks the contract rules
	ErrValidation = errors.New("validation failed")
	// ErrInsufficientFunds is returned when the payer cannot cover a payment
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrOverpayment is returned when a payment exceeds the outstanding balance
	ErrOverpayment = errors.New("overpayment")
	// ErrStateNotFound is returned when no unconsumed version of a record exists
	ErrStateNotFound = errors.New("state not found")
	// ErrAmbiguousState is returned when more than one unconsumed version of a record exists
	ErrAmbiguousState = errors.New("ambiguous state")
	// ErrSignatureRefused is returned when a counterparty declines to sign
	ErrSignatureRefused = errors.New("signature refused")
	// ErrNotaryConflict is returned when an input was already consumed by another transaction
	ErrNotaryConflict = errors.New("notary conflict")
	// ErrTransport is returned when a counterparty cannot be reached
	ErrTransport = errors.New("transport failure")
	// ErrCancelled is returned when the caller abandoned the operation
	ErrCancelled = errors.New("cancelled")
)

// Kinds lists all the error kinds
var Kinds = []error{
	ErrUnauthorized,
	ErrValidation,
	ErrInsufficientFunds,
	ErrOverpayment,
	ErrStateNotFound,
	ErrAmbiguousState,
	ErrSignatureRefused,
	ErrNotaryConflict,
	ErrTransport,
	ErrCancelled,
}

// Kind returns the kind err belongs to, nil if none
func Kind(err error) error {
	for _, k := range Kinds {
		if errors.HasCause(err, k) {
			return k
		}
	}
	return nil
}

// Recoverable returns true for the rejections the caller can fix and retry right away
func Recoverable(err error) bool {
	switch Kind(err) {
	case ErrUnauthorized, ErrValidation, ErrInsufficientFunds, ErrOverpayment:
		return true
	default:
		return false
	}
}
