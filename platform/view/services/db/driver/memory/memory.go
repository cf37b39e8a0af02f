/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package mem

import (
	"context"
	"sort"
	"sync"

	"github.com/hyperledger-labs/iou-smart-client/platform/view/services/db/driver"
)

// Persistence is an in-memory driver.KeyValueStore
type Persistence struct {
	mutex sync.RWMutex
	data  map[string]map[string][]byte
}

func New() *Persistence {
	return &Persistence{data: map[string]map[string][]byte{}}
}

func (db *Persistence) SetState(_ context.Context, namespace, key string, value []byte) error {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	db.set(namespace, key, value)
	return nil
}

func (db *Persistence) GetState(_ context.Context, namespace, key string) ([]byte, error) {
	db.mutex.RLock()
	defer db.mutex.RUnlock()
	return copyBytes(db.data[namespace][key]), nil
}

func (db *Persistence) DeleteState(_ context.Context, namespace, key string) error {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	delete(db.data[namespace], key)
	return nil
}

func (db *Persistence) GetStateSetIterator(_ context.Context, namespace string, keys ...string) (driver.UnversionedResultsIterator, error) {
	db.mutex.RLock()
	defer db.mutex.RUnlock()
	reads := make([]*driver.UnversionedRead, len(keys))
	for i, key := range keys {
		reads[i] = &driver.UnversionedRead{Key: key, Raw: copyBytes(db.data[namespace][key])}
	}
	return &iterator{items: reads}, nil
}

func (db *Persistence) GetStateRangeScanIterator(_ context.Context, namespace string, startKey, endKey string) (driver.UnversionedResultsIterator, error) {
	db.mutex.RLock()
	defer db.mutex.RUnlock()

	keys := make([]string, 0, len(db.data[namespace]))
	for k := range db.data[namespace] {
		if k < startKey || (len(endKey) != 0 && k >= endKey) {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	reads := make([]*driver.UnversionedRead, len(keys))
	for i, k := range keys {
		reads[i] = &driver.UnversionedRead{Key: k, Raw: copyBytes(db.data[namespace][k])}
	}
	return &iterator{items: reads}, nil
}

func (db *Persistence) WriteBatch(_ context.Context, namespace string, set map[string][]byte, del []string) error {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	for k, v := range set {
		db.set(namespace, k, v)
	}
	for _, k := range del {
		delete(db.data[namespace], k)
	}
	return nil
}

func (db *Persistence) Close() error {
	return nil
}

func (db *Persistence) set(namespace, key string, value []byte) {
	if len(value) == 0 {
		delete(db.data[namespace], key)
		return
	}
	ns, ok := db.data[namespace]
	if !ok {
		ns = map[string][]byte{}
		db.data[namespace] = ns
	}
	ns[key] = copyBytes(value)
}

func copyBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte(nil), b...)
}

type iterator struct {
	idx   int
	items []*driver.UnversionedRead
}

func (r *iterator) Next() (*driver.UnversionedRead, error) {
	if r.idx == len(r.items) {
		return nil, nil
	}
	r.idx++
	return r.items[r.idx-1], nil
}

func (r *iterator) Close() {}
