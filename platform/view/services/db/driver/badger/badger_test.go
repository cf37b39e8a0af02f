/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package badger

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/hyperledger-labs/iou-smart-client/platform/view/services/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
)

func TestDriverImpl(t *testing.T) {
	tempDir := t.TempDir()
	for _, c := range dbtest.Cases {
		db, err := OpenDB(Opts{Path: filepath.Join(tempDir, c.Name)})
		require.NoError(t, err)
		t.Run(c.Name, func(xt *testing.T) {
			defer db.Close()
			c.Fn(xt, db)
		})
	}
}

func TestInMemory(t *testing.T) {
	db, err := OpenDB(Opts{InMemory: true})
	require.NoError(t, err)
	defer db.Close()
	assert.Nil(t, db.cancelCleaner)
	dbtest.TTestRangeQueries(t, db)
}

func TestReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reopen")
	db, err := OpenDB(Opts{Path: path})
	require.NoError(t, err)
	require.NoError(t, db.SetState(context.Background(), "ns", "k", []byte("v")))
	require.NoError(t, db.Close())

	db, err = OpenDB(Opts{Path: path})
	require.NoError(t, err)
	defer db.Close()
	v, err := db.GetState(context.Background(), "ns", "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), v)
}

func TestEmptyPath(t *testing.T) {
	_, err := OpenDB(Opts{})
	assert.Error(t, err)
}

type fakeBadger struct {
	inMemory bool
	closed   *atomic.Bool
	calls    *atomic.Int32
}

func (f *fakeBadger) IsClosed() bool { return f.closed.Load() }
func (f *fakeBadger) RunValueLogGC(float64) error {
	f.calls.Inc()
	return badger.ErrNoRewrite
}
func (f *fakeBadger) Opts() badger.Options { return badger.DefaultOptions("").WithInMemory(f.inMemory) }

func TestAutoCleaner(t *testing.T) {
	assert.Nil(t, autoCleaner(nil, time.Millisecond, 0.5))
	assert.Nil(t, autoCleaner(&fakeBadger{inMemory: true, closed: atomic.NewBool(false), calls: atomic.NewInt32(0)}, time.Millisecond, 0.5))

	db := &fakeBadger{closed: atomic.NewBool(false), calls: atomic.NewInt32(0)}
	cancel := autoCleaner(db, 5*time.Millisecond, 0.5)
	require.NotNil(t, cancel)
	assert.Eventually(t, func() bool { return db.calls.Load() >= 2 }, 5*time.Second, 5*time.Millisecond)
	cancel()

	db = &fakeBadger{closed: atomic.NewBool(true), calls: atomic.NewInt32(0)}
	cancel = autoCleaner(db, 5*time.Millisecond, 0.5)
	defer cancel()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(0), db.calls.Load())
}
