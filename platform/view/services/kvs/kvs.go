/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package kvs

import (
	"context"
	"encoding/json"

	"github.com/hyperledger-labs/iou-smart-client/pkg/utils/errors"
	"github.com/hyperledger-labs/iou-smart-client/platform/common/services/logging"
	"github.com/hyperledger-labs/iou-smart-client/platform/view/services/db/driver"
)

var (
	logger = logging.MustGetLogger("view-sdk.kvs")

	// ErrNotFound is returned when the requested key does not exist
	ErrNotFound = errors.New("state does not exist")
)

type Iterator interface {
	HasNext() bool
	Close() error
	Next(state interface{}) (string, error)
}

// KVS stores json-encoded values in a namespace of a driver.KeyValueStore
type KVS struct {
	namespace string
	store     driver.KeyValueStore
}

// New returns a new KVS instance for the passed namespace using the passed driver
func New(store driver.KeyValueStore, namespace string) *KVS {
	return &KVS{
		namespace: namespace,
		store:     store,
	}
}

// Namespace returns a KVS sharing the same store bound to another namespace
func (o *KVS) Namespace(namespace string) *KVS {
	return New(o.store, namespace)
}

func (o *KVS) Exists(ctx context.Context, id string) bool {
	raw, err := o.store.GetState(ctx, o.namespace, id)
	return err == nil && len(raw) > 0
}

func (o *KVS) Put(ctx context.Context, id string, state interface{}) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return errors.Wrapf(err, "cannot marshal state with id [%s]", id)
	}
	if err := o.store.SetState(ctx, o.namespace, id, raw); err != nil {
		return errors.Wrapf(err, "failed storing state [%s,%s]", o.namespace, id)
	}
	return nil
}

// PutBatch atomically stores every state in puts and removes every key in deletes
func (o *KVS) PutBatch(ctx context.Context, puts map[string]interface{}, deletes []string) error {
	set := make(map[string][]byte, len(puts))
	for id, state := range puts {
		raw, err := json.Marshal(state)
		if err != nil {
			return errors.Wrapf(err, "cannot marshal state with id [%s]", id)
		}
		set[id] = raw
	}
	if err := o.store.WriteBatch(ctx, o.namespace, set, deletes); err != nil {
		return errors.Wrapf(err, "failed writing batch in [%s]", o.namespace)
	}
	return nil
}

func (o *KVS) Get(ctx context.Context, id string, state interface{}) error {
	raw, err := o.store.GetState(ctx, o.namespace, id)
	if err != nil {
		logger.Debugf("failed retrieving state [%s,%s]", o.namespace, id)
		return errors.Wrapf(err, "failed retrieving state [%s,%s]", o.namespace, id)
	}
	if len(raw) == 0 {
		return errors.Wrapf(ErrNotFound, "state [%s,%s]", o.namespace, id)
	}
	if err := json.Unmarshal(raw, state); err != nil {
		logger.Debugf("failed retrieving state [%s,%s], cannot unmarshal state, error [%s]", o.namespace, id, err)
		return errors.Wrapf(err, "failed retrieving state [%s,%s], cannot unmarshal state", o.namespace, id)
	}
	return nil
}

func (o *KVS) Delete(ctx context.Context, id string) error {
	logger.Debugf("delete state [%s,%s]", o.namespace, id)
	return o.store.DeleteState(ctx, o.namespace, id)
}

// GetByPartialCompositeID returns an iterator over the states whose composite key starts
// with the passed prefix and attributes
func (o *KVS) GetByPartialCompositeID(ctx context.Context, prefix string, attrs []string) (Iterator, error) {
	startKey, endKey, err := PrefixRange(prefix, attrs)
	if err != nil {
		return nil, errors.Wrapf(err, "failed building composite key")
	}

	itr, err := o.store.GetStateRangeScanIterator(ctx, o.namespace, startKey, endKey)
	if err != nil {
		return nil, errors.Wrapf(err, "store access failure for GetStateRangeScanIterator, ns [%s] range [%s,%s]", o.namespace, startKey, endKey)
	}
	return &it{ri: itr}, nil
}

func (o *KVS) Stop() {
	if err := o.store.Close(); err != nil {
		logger.Errorf("failed stopping kvs [%s]", err)
	}
}

type it struct {
	ri   driver.UnversionedResultsIterator
	next *driver.UnversionedRead
}

func (i *it) HasNext() bool {
	var err error
	i.next, err = i.ri.Next()
	if err != nil || i.next == nil {
		return false
	}
	return true
}

func (i *it) Close() error {
	i.ri.Close()
	return nil
}

// Next unmarshals the current state into the given state object.
// It also returns the key of the current state.
func (i *it) Next(state interface{}) (string, error) {
	return i.next.Key, json.Unmarshal(i.next.Raw, state)
}
