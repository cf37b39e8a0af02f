/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package runner

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hyperledger-labs/iou-smart-client/pkg/utils/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatchRunnerGroupsConcurrentCalls(t *testing.T) {
	t.Parallel()

	var batches atomic.Int32
	var mu sync.Mutex
	seen := map[int]bool{}
	r := NewBatchRunner(func(vs []int) []error {
		batches.Add(1)
		mu.Lock()
		defer mu.Unlock()
		errs := make([]error, len(vs))
		for i, v := range vs {
			seen[v] = true
			if v%10 == 0 {
				errs[i] = errors.Errorf("rejected [%d]", v)
			}
		}
		return errs
	}, 100, 50*time.Millisecond)

	var wg sync.WaitGroup
	for v := 1; v <= 50; v++ {
		wg.Add(1)
		go func(v int) {
			defer wg.Done()
			err := r.Run(v)
			if v%10 == 0 {
				assert.Error(t, err, "[%d]", v)
			} else {
				assert.NoError(t, err, "[%d]", v)
			}
		}(v)
	}
	wg.Wait()

	require.Len(t, seen, 50)
	require.Less(t, int(batches.Load()), 50)
}

func TestBatchExecutorCapacity(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var sizes []int
	e := NewBatchExecutor(func(inputs []string) []Output[int] {
		mu.Lock()
		sizes = append(sizes, len(inputs))
		mu.Unlock()
		outputs := make([]Output[int], len(inputs))
		for i, in := range inputs {
			outputs[i].Val = len(in)
		}
		return outputs
	}, 3, 20*time.Millisecond)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(in string) {
			defer wg.Done()
			val, err := e.Execute(in)
			assert.NoError(t, err)
			assert.Equal(t, len(in), val)
		}(fmt.Sprintf("input-%d", i))
	}
	wg.Wait()

	total := 0
	for _, s := range sizes {
		assert.LessOrEqual(t, s, 3)
		total += s
	}
	assert.Equal(t, 10, total)
}

func TestBatchExecutorIdleUntilCalled(t *testing.T) {
	t.Parallel()

	var executions atomic.Int32
	e := NewBatchExecutor(func(inputs []int) []Output[int] {
		executions.Add(1)
		return make([]Output[int], len(inputs))
	}, 5, 5*time.Millisecond)

	time.Sleep(30 * time.Millisecond)
	require.Zero(t, executions.Load())

	_, err := e.Execute(1)
	require.NoError(t, err)
	require.Equal(t, int32(1), executions.Load())
}

func TestBatchExecutorMisbehaving(t *testing.T) {
	t.Parallel()

	short := NewBatchExecutor(func(inputs []int) []Output[int] {
		return nil
	}, 5, time.Millisecond)
	_, err := short.Execute(1)
	require.ErrorContains(t, err, "returned [0] outputs")

	panicking := NewBatchExecutor(func(inputs []int) []Output[int] {
		panic("boom")
	}, 5, time.Millisecond)
	_, err = panicking.Execute(1)
	require.ErrorContains(t, err, "boom")

	// the loop survives
	_, err = panicking.Execute(2)
	require.ErrorContains(t, err, "boom")
}

func TestBatchExecutorClose(t *testing.T) {
	t.Parallel()

	e := NewBatchExecutor(func(inputs []int) []Output[int] {
		outputs := make([]Output[int], len(inputs))
		for i, in := range inputs {
			outputs[i].Val = in * 2
		}
		return outputs
	}, 5, time.Millisecond)

	v, err := e.Execute(21)
	require.NoError(t, err)
	require.Equal(t, 42, v)

	closed := make(chan struct{})
	go func() {
		e.Close()
		close(closed)
	}()
	select {
	case <-closed:
	case <-time.After(time.Second):
		t.Fatal("close did not stop the executor")
	}

	_, err = e.Execute(1)
	require.ErrorIs(t, err, ErrClosed)
	// closing twice is harmless
	e.Close()

	r := NewBatchRunner(func(vs []int) []error { return make([]error, len(vs)) }, 5, time.Millisecond)
	require.NoError(t, r.Run(1))
	r.Close()
	require.ErrorIs(t, r.Run(2), ErrClosed)
}
