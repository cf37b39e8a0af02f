/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package runner

import (
	"github.com/hyperledger-labs/iou-smart-client/pkg/utils/errors"
	"github.com/hyperledger-labs/iou-smart-client/platform/common/services/logging"
)

var logger = logging.MustGetLogger("iou.runner")

// ErrClosed is returned for the inputs passed after Close
var ErrClosed = errors.New("runner closed")

// BatchExecutor hands a single input to a function that processes many at once
type BatchExecutor[I any, O any] interface {
	Execute(input I) (O, error)
	// Close stops the executor once the batch in progress is done
	Close()
}

type BatchRunner[V any] interface {
	Run(v V) error
	Close()
}

type Output[O any] struct {
	Val O
	Err error
}

// ExecuteFunc processes a batch. It returns one output per input, in the same order.
type ExecuteFunc[I any, O any] func([]I) []O
