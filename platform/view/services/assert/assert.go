/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package assert

import (
	"fmt"

	"github.com/hyperledger-labs/iou-smart-client/pkg/utils/errors"
	"github.com/stretchr/testify/assert"
)

// The functions of this package panic when the assertion does not hold.
// Views use them freely since the view runtime turns panics into errors.

type panickier struct {
	releasers []func()
}

func (p *panickier) Errorf(format string, args ...interface{}) {
	release(p.releasers)
	panic(errors.Errorf(format, args...))
}

func release(releasers []func()) {
	for _, releaser := range releasers {
		releaser()
	}
}

func NotNil(object interface{}, msgAndArgs ...interface{}) {
	ma, releasers := extractReleasers(msgAndArgs...)
	assert.NotNil(&panickier{releasers: releasers}, object, ma...)
}

// NoError checks that the passed error is nil, it panics otherwise.
// The panic value wraps err so that its cause survives recovery.
func NoError(err error, msgAndArgs ...interface{}) {
	if err == nil {
		return
	}
	ma, releasers := extractReleasers(msgAndArgs...)
	release(releasers)
	if msg := message(ma...); len(msg) != 0 {
		panic(errors.WithMessage(err, msg))
	}
	panic(err)
}

func NotEmpty(o interface{}, msgAndArgs ...interface{}) {
	ma, releasers := extractReleasers(msgAndArgs...)
	assert.NotEmpty(&panickier{releasers: releasers}, o, ma...)
}

// Equal checks that actual is as expected, it panics otherwise
func Equal(expected, actual interface{}, msgAndArgs ...interface{}) {
	ma, releasers := extractReleasers(msgAndArgs...)
	assert.Equal(&panickier{releasers: releasers}, expected, actual, ma...)
}

func True(value bool, msgAndArgs ...interface{}) {
	ma, releasers := extractReleasers(msgAndArgs...)
	assert.True(&panickier{releasers: releasers}, value, ma...)
}

func False(value bool, msgAndArgs ...interface{}) {
	ma, releasers := extractReleasers(msgAndArgs...)
	assert.False(&panickier{releasers: releasers}, value, ma...)
}

func message(msgAndArgs ...interface{}) string {
	switch len(msgAndArgs) {
	case 0:
		return ""
	case 1:
		if s, ok := msgAndArgs[0].(string); ok {
			return s
		}
		return fmt.Sprintf("%+v", msgAndArgs[0])
	default:
		return fmt.Sprintf(msgAndArgs[0].(string), msgAndArgs[1:]...)
	}
}

func extractReleasers(msgAndArgs ...interface{}) ([]interface{}, []func()) {
	var output []interface{}
	var releasers []func()
	for _, arg := range msgAndArgs {
		switch arg := arg.(type) {
		case func():
			releasers = append(releasers, arg)
		default:
			output = append(output, arg)
		}
	}
	return output, releasers
}
