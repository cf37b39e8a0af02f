/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package sdk

import (
	"context"
	"sync"

	"github.com/hyperledger-labs/iou-smart-client/pkg/utils/errors"
	"github.com/hyperledger-labs/iou-smart-client/platform/iou/services/notary"
	"github.com/hyperledger-labs/iou-smart-client/platform/view/services/comm"
	"github.com/hyperledger-labs/iou-smart-client/platform/view/services/db/driver"
	"github.com/hyperledger-labs/iou-smart-client/platform/view/services/kvs"
	"github.com/hyperledger-labs/iou-smart-client/platform/view/services/sig"
	"github.com/hyperledger-labs/iou-smart-client/platform/view/view"
)

// Network connects the nodes living in this process and the notaries they use
type Network struct {
	Hub      *comm.Hub
	Notaries *notary.Directory

	mutex   sync.RWMutex
	aliases map[string]view.Identity
	stores  []driver.KeyValueStore
	started []*notary.Service
}

func NewNetwork() *Network {
	return &Network{
		Hub:      comm.NewHub(),
		Notaries: notary.NewDirectory(),
		aliases:  map[string]view.Identity{},
	}
}

// AddNotary starts a notary known by the passed alias, its records are kept in store.
// The network owns store from now on and closes it in Close.
func (n *Network) AddNotary(ctx context.Context, alias string, store driver.KeyValueStore) (*notary.Service, error) {
	keys := kvs.New(store, "notary-keys")
	sigs := sig.NewService(keys)
	id, err := n.loadIdentity(ctx, keys, sigs)
	if err != nil {
		return nil, err
	}
	signer, err := sigs.GetSigner(ctx, id)
	if err != nil {
		return nil, err
	}
	s := notary.NewService(id, signer, sigs, kvs.New(store, ""))
	n.mutex.Lock()
	n.stores = append(n.stores, store)
	n.started = append(n.started, s)
	n.mutex.Unlock()
	n.Notaries.Register(s)
	if err := n.Bind(alias, id); err != nil {
		return nil, err
	}
	logger.Infof("notary [%s] started as [%s]", alias, id)
	return s, nil
}

// Close stops the notaries of the network and closes their stores.
// The nodes are expected to be stopped already.
func (n *Network) Close() error {
	n.mutex.Lock()
	defer n.mutex.Unlock()
	for _, s := range n.started {
		s.Close()
	}
	var failed error
	for _, store := range n.stores {
		if err := store.Close(); err != nil {
			logger.Warnf("failed closing notary store: %s", err)
			failed = err
		}
	}
	n.started, n.stores = nil, nil
	return failed
}

// Bind makes the passed identity reachable by alias
func (n *Network) Bind(alias string, id view.Identity) error {
	n.mutex.Lock()
	defer n.mutex.Unlock()
	if bound, ok := n.aliases[alias]; ok && !bound.Equal(id) {
		return errors.Errorf("alias [%s] bound already to [%s]", alias, bound)
	}
	n.aliases[alias] = id
	return nil
}

// Identity returns the identity bound to the passed alias
func (n *Network) Identity(alias string) (view.Identity, error) {
	n.mutex.RLock()
	defer n.mutex.RUnlock()
	id, ok := n.aliases[alias]
	if !ok {
		return nil, errors.Errorf("unknown alias [%s]", alias)
	}
	return id, nil
}

// loadIdentity returns the well-known identity recorded in keys, a new one the first time
func (n *Network) loadIdentity(ctx context.Context, keys *kvs.KVS, sigs *sig.Service) (view.Identity, error) {
	if keys.Exists(ctx, identityKey) {
		var id view.Identity
		if err := keys.Get(ctx, identityKey, &id); err != nil {
			return nil, errors.WithMessagef(err, "failed loading identity")
		}
		return id, nil
	}
	id, err := sigs.NewIdentity(ctx)
	if err != nil {
		return nil, err
	}
	if err := keys.Put(ctx, identityKey, id); err != nil {
		return nil, errors.WithMessagef(err, "failed recording identity")
	}
	return id, nil
}

var identityKey = kvs.CreateCompositeKeyOrPanic("me", nil)
