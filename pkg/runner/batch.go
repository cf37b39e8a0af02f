/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package runner

import (
	"sync"
	"time"

	"github.com/hyperledger-labs/iou-smart-client/pkg/utils/errors"
)

type request[I any, O any] struct {
	input  I
	output chan Output[O]
}

// NewBatchExecutor returns an executor that groups the concurrent calls to Execute.
// A batch is handed to executor once it holds capacity inputs, or timeout after its first input arrived.
// Batches are processed one at a time, in arrival order, until Close is called.
func NewBatchExecutor[I any, O any](executor ExecuteFunc[I, Output[O]], capacity int, timeout time.Duration) BatchExecutor[I, O] {
	if capacity < 1 {
		capacity = 1
	}
	e := &batchExecutor[I, O]{
		requests: make(chan *request[I, O], capacity),
		executor: executor,
		capacity: capacity,
		timeout:  timeout,
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
	go e.run()
	return e
}

type batchExecutor[I any, O any] struct {
	requests chan *request[I, O]
	executor ExecuteFunc[I, Output[O]]
	capacity int
	timeout  time.Duration

	done      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once
}

func (e *batchExecutor[I, O]) Execute(input I) (O, error) {
	var zero O
	r := &request[I, O]{input: input, output: make(chan Output[O], 1)}
	select {
	case <-e.done:
		return zero, ErrClosed
	case e.requests <- r:
	}
	select {
	case out := <-r.output:
		return out.Val, out.Err
	case <-e.stopped:
		// the request may have made it into the last batch
		select {
		case out := <-r.output:
			return out.Val, out.Err
		default:
			return zero, ErrClosed
		}
	}
}

func (e *batchExecutor[I, O]) Close() {
	e.closeOnce.Do(func() { close(e.done) })
	<-e.stopped
}

func (e *batchExecutor[I, O]) run() {
	defer close(e.stopped)
	for {
		var first *request[I, O]
		select {
		case <-e.done:
			logger.Debugf("batch executor closed")
			return
		case first = <-e.requests:
		}
		batch := e.collect(first)
		inputs := make([]I, len(batch))
		for i, r := range batch {
			inputs[i] = r.input
		}
		logger.Debugf("executing batch of [%d]", len(batch))
		outputs := e.execute(inputs)
		for i, r := range batch {
			r.output <- outputs[i]
		}
	}
}

func (e *batchExecutor[I, O]) collect(first *request[I, O]) []*request[I, O] {
	batch := []*request[I, O]{first}
	timer := time.NewTimer(e.timeout)
	defer timer.Stop()
	for len(batch) < e.capacity {
		select {
		case r := <-e.requests:
			batch = append(batch, r)
		case <-timer.C:
			return batch
		}
	}
	return batch
}

// execute shields the loop from a failing executor, every caller gets an answer
func (e *batchExecutor[I, O]) execute(inputs []I) (outputs []Output[O]) {
	defer func() {
		if r := recover(); r != nil {
			outputs = failed[O](len(inputs), errors.Errorf("batch execution panicked: %v", r))
		}
	}()
	outputs = e.executor(inputs)
	if len(outputs) != len(inputs) {
		return failed[O](len(inputs), errors.Errorf("batch of [%d] returned [%d] outputs", len(inputs), len(outputs)))
	}
	return outputs
}

func failed[O any](n int, err error) []Output[O] {
	outputs := make([]Output[O], n)
	for i := range outputs {
		outputs[i].Err = err
	}
	return outputs
}

// NewBatchRunner is NewBatchExecutor for functions with no output other than an error
func NewBatchRunner[V any](runner ExecuteFunc[V, error], capacity int, timeout time.Duration) BatchRunner[V] {
	return &batchRunner[V]{executor: NewBatchExecutor(func(vs []V) []Output[struct{}] {
		errs := runner(vs)
		outputs := make([]Output[struct{}], len(errs))
		for i, err := range errs {
			outputs[i].Err = err
		}
		return outputs
	}, capacity, timeout)}
}

type batchRunner[V any] struct {
	executor BatchExecutor[V, struct{}]
}

func (r *batchRunner[V]) Run(v V) error {
	_, err := r.executor.Execute(v)
	return err
}

func (r *batchRunner[V]) Close() {
	r.executor.Close()
}
