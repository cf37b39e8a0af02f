/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package badger

import (
	"bytes"
	"context"
	"strings"

	"github.com/dgraph-io/badger/v3"
	"github.com/hyperledger-labs/iou-smart-client/pkg/utils/errors"
	"github.com/hyperledger-labs/iou-smart-client/platform/common/services/logging"
	"github.com/hyperledger-labs/iou-smart-client/platform/view/services/db/driver"
)

var logger = logging.MustGetLogger("db.driver.badger")

const (
	namespaceSeparator = "\u0000"
	maxConflictRetries = 5
)

// Opts configures the badger store
type Opts struct {
	// Path is the folder holding the database files, ignored when InMemory is set
	Path string
	// InMemory keeps everything in memory
	InMemory bool
}

// DB is a driver.KeyValueStore backed by badger
type DB struct {
	db            *badger.DB
	cancelCleaner context.CancelFunc
}

// OpenDB opens, or creates, the badger database described by opts
func OpenDB(opts Opts) (*DB, error) {
	var opt badger.Options
	if opts.InMemory {
		opt = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if len(opts.Path) == 0 {
			return nil, errors.Errorf("path cannot be empty")
		}
		opt = badger.DefaultOptions(opts.Path)
	}
	// let's pass our logger to badger
	opt = opt.WithLogger(&badgerLogger{logger: logger})

	db, err := badger.Open(opt)
	if err != nil {
		return nil, errors.Wrapf(err, "could not open DB at '%s'", opts.Path)
	}
	logger.Debugf("badger db opened at [%s][in-memory:%v]", opts.Path, opts.InMemory)

	return &DB{db: db, cancelCleaner: autoCleaner(db, defaultGCInterval, defaultGCDiscardRatio)}, nil
}

func (db *DB) Close() error {
	// stop our auto cleaner if we have one
	if db.cancelCleaner != nil {
		db.cancelCleaner()
	}
	if err := db.db.Close(); err != nil {
		return errors.Wrap(err, "could not close DB")
	}
	return nil
}

func (db *DB) SetState(ctx context.Context, namespace, key string, value []byte) error {
	if len(value) == 0 {
		return db.DeleteState(ctx, namespace, key)
	}
	return db.update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(dbKey(namespace, key)), value); err != nil {
			return errors.Wrapf(err, "could not set value for key %s", key)
		}
		return nil
	})
}

func (db *DB) GetState(_ context.Context, namespace, key string) ([]byte, error) {
	var value []byte
	err := db.db.View(func(txn *badger.Txn) error {
		v, err := get(txn, dbKey(namespace, key))
		value = v
		return err
	})
	return value, err
}

func (db *DB) DeleteState(_ context.Context, namespace, key string) error {
	return db.update(func(txn *badger.Txn) error {
		if err := txn.Delete([]byte(dbKey(namespace, key))); err != nil {
			return errors.Wrapf(err, "could not delete value for key %s", key)
		}
		return nil
	})
}

func (db *DB) GetStateSetIterator(_ context.Context, namespace string, keys ...string) (driver.UnversionedResultsIterator, error) {
	reads := make([]*driver.UnversionedRead, len(keys))
	err := db.db.View(func(txn *badger.Txn) error {
		for i, key := range keys {
			v, err := get(txn, dbKey(namespace, key))
			if err != nil {
				return err
			}
			reads[i] = &driver.UnversionedRead{Key: key, Raw: v}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &sliceIterator{items: reads}, nil
}

func (db *DB) WriteBatch(_ context.Context, namespace string, set map[string][]byte, del []string) error {
	return db.update(func(txn *badger.Txn) error {
		for k, v := range set {
			var err error
			if len(v) == 0 {
				err = txn.Delete([]byte(dbKey(namespace, k)))
			} else {
				err = txn.Set([]byte(dbKey(namespace, k)), v)
			}
			if err != nil {
				return errors.Wrapf(err, "could not write key %s", k)
			}
		}
		for _, k := range del {
			if err := txn.Delete([]byte(dbKey(namespace, k))); err != nil {
				return errors.Wrapf(err, "could not delete key %s", k)
			}
		}
		return nil
	})
}

var iteratorOptions = badger.IteratorOptions{
	PrefetchValues: false,
	PrefetchSize:   100,
	Reverse:        false,
	AllVersions:    false,
}

func (db *DB) GetStateRangeScanIterator(_ context.Context, namespace string, startKey, endKey string) (driver.UnversionedResultsIterator, error) {
	txn := db.db.NewTransaction(false)
	it := txn.NewIterator(iteratorOptions)
	it.Seek([]byte(dbKey(namespace, startKey)))

	return &rangeScanIterator{
		txn:       txn,
		it:        it,
		startKey:  startKey,
		endKey:    endKey,
		namespace: namespace,
	}, nil
}

// update runs f in a read-write transaction, retrying on conflicts
func (db *DB) update(f func(txn *badger.Txn) error) error {
	var err error
	for i := 0; i < maxConflictRetries; i++ {
		err = db.db.Update(f)
		if !errors.HasCause(err, badger.ErrConflict) {
			return err
		}
		logger.Debugf("transaction conflict, retry [%d]", i)
	}
	return err
}

type rangeScanIterator struct {
	txn       *badger.Txn
	it        *badger.Iterator
	startKey  string
	endKey    string
	namespace string
}

func (r *rangeScanIterator) Next() (*driver.UnversionedRead, error) {
	if !r.it.Valid() {
		return nil, nil
	}

	item := r.it.Item()
	prefix := []byte(r.namespace + namespaceSeparator)
	if !bytes.HasPrefix(item.Key(), prefix) {
		return nil, nil
	}
	if r.endKey != "" && bytes.Compare(item.Key(), []byte(dbKey(r.namespace, r.endKey))) >= 0 {
		return nil, nil
	}

	value, err := item.ValueCopy(nil)
	if err != nil {
		return nil, errors.Wrapf(err, "error iterating on range %s:%s", r.startKey, r.endKey)
	}
	key := string(item.KeyCopy(nil))
	key = key[strings.Index(key, namespaceSeparator)+1:]

	r.it.Next()
	return &driver.UnversionedRead{Key: key, Raw: value}, nil
}

func (r *rangeScanIterator) Close() {
	r.it.Close()
	r.txn.Discard()
}

type sliceIterator struct {
	idx   int
	items []*driver.UnversionedRead
}

func (r *sliceIterator) Next() (*driver.UnversionedRead, error) {
	if r.idx == len(r.items) {
		return nil, nil
	}
	r.idx++
	return r.items[r.idx-1], nil
}

func (r *sliceIterator) Close() {}
