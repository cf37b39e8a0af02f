/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package badger

import (
	"context"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/hyperledger-labs/iou-smart-client/pkg/utils/errors"
	"github.com/hyperledger-labs/iou-smart-client/platform/common/services/logging"
)

const (
	defaultGCInterval     = 5 * time.Minute
	defaultGCDiscardRatio = 0.5 // recommended ratio by badger docs
)

// badgerDBInterface exists mainly for testing the auto cleaner
type badgerDBInterface interface {
	IsClosed() bool
	RunValueLogGC(discardRatio float64) error
	Opts() badger.Options
}

// autoCleaner runs badger garbage collection periodically as long as the db is open
func autoCleaner(db badgerDBInterface, badgerGCInterval time.Duration, badgerDiscardRatio float64) context.CancelFunc {
	if db == nil || db.Opts().InMemory {
		// not needed when we run badger in memory mode
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		ticker := time.NewTicker(badgerGCInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if db.IsClosed() {
					// no need to clean anymore
					return
				}
				if err := db.RunValueLogGC(badgerDiscardRatio); err != nil {
					switch err {
					case badger.ErrRejected:
						logger.Warnf("badger: value log garbage collection rejected")
					case badger.ErrNoRewrite:
						// do nothing
					default:
						logger.Warnf("badger: unexpected error while performing value log clean up: %s", err)
					}
				}
			}
		}
	}()

	return cancel
}

func dbKey(namespace, key string) string {
	return namespace + namespaceSeparator + key
}

func get(txn *badger.Txn, key string) ([]byte, error) {
	item, err := txn.Get([]byte(key))
	if err == badger.ErrKeyNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "could not retrieve item for key %s", key)
	}
	v, err := item.ValueCopy(nil)
	if err != nil {
		return nil, errors.Wrapf(err, "could not get value for key %s", key)
	}
	return v, nil
}

// badgerLogger routes badger's log lines to our logger
type badgerLogger struct {
	logger logging.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{})   { l.logger.Errorf(format, args...) }
func (l *badgerLogger) Warningf(format string, args ...interface{}) { l.logger.Warnf(format, args...) }
func (l *badgerLogger) Infof(format string, args ...interface{})    { l.logger.Debugf(format, args...) }
func (l *badgerLogger) Debugf(format string, args ...interface{})   { l.logger.Debugf(format, args...) }
