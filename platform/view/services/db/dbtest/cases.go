/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package dbtest

import (
	"context"
	"testing"

	"github.com/hyperledger-labs/iou-smart-client/platform/view/services/db/driver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Cases is the suite every driver.KeyValueStore implementation must pass
var Cases = []struct {
	Name string
	Fn   func(*testing.T, driver.KeyValueStore)
}{
	{"GetPutDelete", TTestGetPutDelete},
	{"RangeQueries", TTestRangeQueries},
	{"SetIterator", TTestSetIterator},
	{"WriteBatch", TTestWriteBatch},
	{"NamespaceIsolation", TTestNamespaceIsolation},
}

func TTestGetPutDelete(t *testing.T, db driver.KeyValueStore) {
	ctx := context.Background()

	v, err := db.GetState(ctx, "ns", "missing")
	require.NoError(t, err)
	assert.Nil(t, v)

	require.NoError(t, db.SetState(ctx, "ns", "k", []byte("v1")))
	v, err = db.GetState(ctx, "ns", "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), v)

	require.NoError(t, db.SetState(ctx, "ns", "k", []byte("v2")))
	v, err = db.GetState(ctx, "ns", "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), v)

	require.NoError(t, db.DeleteState(ctx, "ns", "k"))
	v, err = db.GetState(ctx, "ns", "k")
	require.NoError(t, err)
	assert.Nil(t, v)

	// empty values delete
	require.NoError(t, db.SetState(ctx, "ns", "k", []byte("v3")))
	require.NoError(t, db.SetState(ctx, "ns", "k", nil))
	v, err = db.GetState(ctx, "ns", "k")
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TTestRangeQueries(t *testing.T, db driver.KeyValueStore) {
	ctx := context.Background()
	for _, k := range []string{"k2", "k3", "k1", "k111"} {
		require.NoError(t, db.SetState(ctx, "namespace", k, []byte(k+"_value")))
	}

	assert.Equal(t, []driver.UnversionedRead{
		{Key: "k1", Raw: []byte("k1_value")},
		{Key: "k111", Raw: []byte("k111_value")},
		{Key: "k2", Raw: []byte("k2_value")},
		{Key: "k3", Raw: []byte("k3_value")},
	}, collect(t, db, "namespace", "", ""))

	assert.Equal(t, []driver.UnversionedRead{
		{Key: "k1", Raw: []byte("k1_value")},
		{Key: "k111", Raw: []byte("k111_value")},
		{Key: "k2", Raw: []byte("k2_value")},
	}, collect(t, db, "namespace", "k1", "k3"))

	assert.Empty(t, collect(t, db, "other", "", ""))
}

func TTestSetIterator(t *testing.T, db driver.KeyValueStore) {
	ctx := context.Background()
	require.NoError(t, db.SetState(ctx, "ns", "a", []byte("1")))
	require.NoError(t, db.SetState(ctx, "ns", "c", []byte("3")))

	it, err := db.GetStateSetIterator(ctx, "ns", "a", "b", "c")
	require.NoError(t, err)
	defer it.Close()

	var res []driver.UnversionedRead
	for n, err := it.Next(); n != nil; n, err = it.Next() {
		require.NoError(t, err)
		res = append(res, *n)
	}
	assert.Equal(t, []driver.UnversionedRead{
		{Key: "a", Raw: []byte("1")},
		{Key: "b", Raw: nil},
		{Key: "c", Raw: []byte("3")},
	}, res)
}

func TTestWriteBatch(t *testing.T, db driver.KeyValueStore) {
	ctx := context.Background()
	require.NoError(t, db.SetState(ctx, "ns", "old", []byte("x")))
	require.NoError(t, db.WriteBatch(ctx, "ns", map[string][]byte{"n1": []byte("1"), "n2": []byte("2")}, []string{"old"}))

	assert.Equal(t, []driver.UnversionedRead{
		{Key: "n1", Raw: []byte("1")},
		{Key: "n2", Raw: []byte("2")},
	}, collect(t, db, "ns", "", ""))
}

func TTestNamespaceIsolation(t *testing.T, db driver.KeyValueStore) {
	ctx := context.Background()
	require.NoError(t, db.SetState(ctx, "a", "k", []byte("in a")))
	require.NoError(t, db.SetState(ctx, "ab", "k", []byte("in ab")))

	v, err := db.GetState(ctx, "a", "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("in a"), v)
	assert.Len(t, collect(t, db, "a", "", ""), 1)
	assert.Len(t, collect(t, db, "ab", "", ""), 1)
}

func collect(t *testing.T, db driver.KeyValueStore, ns, start, end string) []driver.UnversionedRead {
	it, err := db.GetStateRangeScanIterator(context.Background(), ns, start, end)
	require.NoError(t, err)
	defer it.Close()

	res := make([]driver.UnversionedRead, 0)
	for n, err := it.Next(); n != nil; n, err = it.Next() {
		require.NoError(t, err)
		res = append(res, *n)
	}
	return res
}
