/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package assert

import (
	"context"
	"time"

	"github.com/hyperledger-labs/iou-smart-client/pkg/utils/errors"
)

// Retry retries the given function until it returns nil, the given
// number of attempts has been reached, or the context is done.
// The sleep between attempts doubles every time.
func Retry(ctx context.Context, attempts int, sleep time.Duration, f func() error) (err error) {
	for i := 0; i < attempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return errors.WithMessagef(ctx.Err(), "gave up after %d attempts, last error: %v", i, err)
			case <-time.After(sleep):
			}
			sleep *= 2
		}

		err = f()
		if err == nil {
			return nil
		}
	}
	return errors.WithMessagef(err, "no luck after %d attempts", attempts)
}
