/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package driver

import "context"

// UnversionedRead is a key-value pair returned by the iterators
type UnversionedRead struct {
	Key string
	Raw []byte
}

// UnversionedResultsIterator iterates over a result set
type UnversionedResultsIterator interface {
	// Next returns the next item in the result set. The returned read is nil when
	// the iterator gets exhausted
	Next() (*UnversionedRead, error)
	// Close releases resources occupied by the iterator
	Close()
}

// KeyValueStore is a namespaced store of raw values
type KeyValueStore interface {
	// SetState stores value under key. An empty value deletes the key.
	SetState(ctx context.Context, namespace, key string, value []byte) error
	// GetState returns the value stored under key, nil if it does not exist
	GetState(ctx context.Context, namespace, key string) ([]byte, error)
	// DeleteState removes key
	DeleteState(ctx context.Context, namespace, key string) error
	// GetStateSetIterator returns an iterator over the passed keys, missing keys come with a nil value
	GetStateSetIterator(ctx context.Context, namespace string, keys ...string) (UnversionedResultsIterator, error)
	// GetStateRangeScanIterator returns an iterator over the keys in [startKey, endKey), sorted.
	// An empty endKey means no upper bound.
	GetStateRangeScanIterator(ctx context.Context, namespace string, startKey, endKey string) (UnversionedResultsIterator, error)
	// WriteBatch atomically stores every pair in set and removes every key in del
	WriteBatch(ctx context.Context, namespace string, set map[string][]byte, del []string) error
	// Close releases the store
	Close() error
}
