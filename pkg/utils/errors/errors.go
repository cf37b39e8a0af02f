/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package errors

import "github.com/pkg/errors"

// As finds the first error in the chain of err that matches target, and sets target to it
func As(err error, target any) bool {
	return err != nil && errors.As(err, target)
}

// HasCause recursively checks errors wrapped using Wrapf until it detects the target error
func HasCause(source, target error) bool {
	return source != nil && target != nil && errors.Is(source, target)
}

// Wrapf wraps an error in a way compatible with HasCause
func Wrapf(err error, format string, args ...any) error {
	return errors.Wrapf(err, format, args...)
}

// Wrap wraps an error in a way compatible with HasCause
func Wrap(err error, message string) error {
	return errors.Wrap(err, message)
}

// WithMessagef annotates err with a new message without adding a second stack trace
func WithMessagef(err error, format string, args ...any) error {
	return errors.WithMessagef(err, format, args...)
}

// WithMessage annotates err with a new message without adding a second stack trace
func WithMessage(err error, message string) error {
	return errors.WithMessage(err, message)
}

func Errorf(format string, args ...any) error {
	return errors.Errorf(format, args...)
}

func New(message string) error {
	return errors.New(message)
}
