/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package assert

import (
	"context"
	"testing"
	"time"

	"github.com/hyperledger-labs/iou-smart-client/pkg/utils/errors"
	"github.com/stretchr/testify/require"
)

var errSentinel = errors.New("sentinel")

func recovered(f func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = r.(error)
		}
	}()
	f()
	return nil
}

func TestNoErrorKeepsCause(t *testing.T) {
	require.NoError(t, recovered(func() { NoError(nil) }))

	released := false
	err := recovered(func() {
		NoError(errors.Wrap(errSentinel, "inner"), "failed doing [%s]", "x", func() { released = true })
	})
	require.Error(t, err)
	require.True(t, errors.HasCause(err, errSentinel))
	require.Contains(t, err.Error(), "failed doing [x]")
	require.True(t, released)
}

func TestPanickingAssertions(t *testing.T) {
	require.NoError(t, recovered(func() { Equal(1, 1) }))
	require.Error(t, recovered(func() { Equal(1, 2, "values differ") }))
	require.Error(t, recovered(func() { True(false) }))
	require.Error(t, recovered(func() { False(true) }))
	require.Error(t, recovered(func() { NotNil(nil) }))
	require.Error(t, recovered(func() { NotEmpty("") }))
}

func TestRetry(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), 3, time.Millisecond, func() error {
		calls++
		if calls < 3 {
			return errSentinel
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 3, calls)

	err = Retry(context.Background(), 2, time.Millisecond, func() error { return errSentinel })
	require.True(t, errors.HasCause(err, errSentinel))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = Retry(ctx, 5, time.Hour, func() error { return errSentinel })
	require.Error(t, err)
}
