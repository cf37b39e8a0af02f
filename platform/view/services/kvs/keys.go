/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package kvs

import (
	"strings"
	"unicode/utf8"

	"github.com/hyperledger-labs/iou-smart-client/pkg/utils/errors"
)

// Composite keys are laid out as \x00 objectType \x00 (attribute \x00)*,
// so that all the keys sharing a prefix of attributes sort next to each other.
const (
	separator = "\x00"
	// upperBound sorts after any valid attribute
	upperBound = string(utf8.MaxRune)
)

// CreateCompositeKey returns the key of objectType identified by attributes.
// Neither may contain U+0000 or U+10FFFF.
func CreateCompositeKey(objectType string, attributes []string) (string, error) {
	var b strings.Builder
	b.WriteString(separator)
	for i, part := range append([]string{objectType}, attributes...) {
		if err := checkKeyPart(part); err != nil {
			return "", errors.WithMessagef(err, "invalid composite key part [%d]", i)
		}
		b.WriteString(part)
		b.WriteString(separator)
	}
	return b.String(), nil
}

func CreateCompositeKeyOrPanic(objectType string, attributes []string) string {
	k, err := CreateCompositeKey(objectType, attributes)
	if err != nil {
		panic(err)
	}
	return k
}

// PrefixRange returns the range [start, end) covering every composite key
// of objectType whose attributes start with attributes
func PrefixRange(objectType string, attributes []string) (string, string, error) {
	start, err := CreateCompositeKey(objectType, attributes)
	if err != nil {
		return "", "", err
	}
	return start, start + upperBound, nil
}

func checkKeyPart(s string) error {
	if !utf8.ValidString(s) {
		return errors.Errorf("not a valid utf8 string [%x]", s)
	}
	if i := strings.IndexAny(s, separator+upperBound); i >= 0 {
		return errors.Errorf("reserved rune at position [%d] of [%q]", i, s)
	}
	return nil
}
